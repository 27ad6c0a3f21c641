// Package display decides how indexed variants are presented once filters
// have been evaluated.
package display

import (
	"sync/atomic"

	"github.com/inodb/vibe-sync/internal/filter"
	"github.com/inodb/vibe-sync/internal/genome"
	"github.com/inodb/vibe-sync/internal/variant"
)

// Visibility is the display state of one variant.
type Visibility uint8

const (
	Hidden Visibility = iota
	Shown
	ShownAsFiltered
)

func (v Visibility) String() string {
	switch v {
	case Hidden:
		return "hidden"
	case Shown:
		return "shown"
	case ShownAsFiltered:
		return "filtered"
	default:
		return "unknown"
	}
}

const (
	markPass     byte = 0
	markExcluded byte = 1
)

type key struct {
	genome string
	allele variant.Allele
}

// entry pairs a store with one mark per indexed variant.
type entry struct {
	store *genome.Store
	marks []byte
}

// snapshot is immutable once published.
type snapshot struct {
	chrom         string
	entries       map[key]entry
	showReference bool
	showFiltered  bool
}

// Policy answers visibility queries for the current chromosome. Readers see
// either the previous or the next complete snapshot, never a mix.
type Policy struct {
	cur atomic.Pointer[snapshot]
}

// NewPolicy returns a policy with no filter results: every variant is shown
// and reference positions follow showReference.
func NewPolicy(showReference, showFiltered bool) *Policy {
	p := &Policy{}
	p.cur.Store(&snapshot{
		entries:       map[key]entry{},
		showReference: showReference,
		showFiltered:  showFiltered,
	})
	return p
}

// Chromosome returns the chromosome of the last rebuild.
func (p *Policy) Chromosome() string { return p.cur.Load().chrom }

// ShowReference reports whether reference positions are shown.
func (p *Policy) ShowReference() bool { return p.cur.Load().showReference }

// ShowFiltered reports whether excluded variants are shown as filtered
// rather than hidden.
func (p *Policy) ShowFiltered() bool { return p.cur.Load().showFiltered }

// SetShowReference publishes a snapshot with the new reference flag.
func (p *Policy) SetShowReference(show bool) {
	for {
		old := p.cur.Load()
		next := *old
		next.showReference = show
		if p.cur.CompareAndSwap(old, &next) {
			return
		}
	}
}

// SetShowFiltered publishes a snapshot with the new filtered flag.
func (p *Policy) SetShowFiltered(show bool) {
	for {
		old := p.cur.Load()
		next := *old
		next.showFiltered = show
		if p.cur.CompareAndSwap(old, &next) {
			return
		}
	}
}

// Rebuild marks every variant indexed on the results' chromosome. It depends
// only on its inputs and the current flags, so repeated calls with the same
// results publish equal snapshots. A nil results marks nothing as excluded.
func (p *Policy) Rebuild(project *genome.Project, results *filter.Results) {
	var chrom string
	if results != nil {
		chrom = results.Region.Chromosome
	}
	entries := make(map[key]entry)
	for _, name := range project.GenomeNames() {
		g, ok := project.Genome(name)
		if !ok {
			continue
		}
		for _, s := range g.Stores(chrom) {
			entries[key{name, s.Allele()}] = entry{store: s, marks: buildMarks(name, s, results)}
		}
	}

	for {
		old := p.cur.Load()
		next := &snapshot{
			chrom:         chrom,
			entries:       entries,
			showReference: old.showReference,
			showFiltered:  old.showFiltered,
		}
		if p.cur.CompareAndSwap(old, next) {
			return
		}
	}
}

func buildMarks(genomeName string, s *genome.Store, results *filter.Results) []byte {
	marks := make([]byte, s.Len())
	for i, rec := range s.Records() {
		if rec.Type == variant.Reference {
			continue
		}
		if results.Excluded(genomeName, rec.Start) {
			marks[i] = markExcluded
		}
	}
	return marks
}

func (sn *snapshot) lookup(genomeName string, allele variant.Allele) (entry, bool) {
	e, ok := sn.entries[key{genomeName, allele}]
	if !ok && allele == variant.Both {
		e, ok = sn.entries[key{genomeName, variant.Paternal}]
	}
	return e, ok
}

// PolicyFor returns the visibility of the variant starting at refPos on the
// current chromosome. Positions without an indexed variant, and reference
// records, are governed by the reference flag alone. Variants of genomes
// without filter results are shown.
func (p *Policy) PolicyFor(genomeName string, allele variant.Allele, refPos int) Visibility {
	sn := p.cur.Load()
	refVis := Hidden
	if sn.showReference {
		refVis = Shown
	}

	e, ok := sn.lookup(genomeName, allele)
	if !ok {
		return refVis
	}
	i := e.store.IndexOfPosition(refPos)
	for ; i >= 0 && e.store.RefPosition(i) == refPos; i-- {
		if e.store.Record(i).Type == variant.Reference {
			continue
		}
		return sn.resolve(e.marks[i])
	}
	return refVis
}

func (sn *snapshot) resolve(mark byte) Visibility {
	if mark == markPass {
		return Shown
	}
	if sn.showFiltered {
		return ShownAsFiltered
	}
	return Hidden
}

// Counts tallies the visibility of every non-reference variant of one store
// in the current snapshot.
func (p *Policy) Counts(genomeName string, allele variant.Allele) map[Visibility]int {
	sn := p.cur.Load()
	counts := make(map[Visibility]int)
	e, ok := sn.lookup(genomeName, allele)
	if !ok {
		return counts
	}
	for i, rec := range e.store.Records() {
		if rec.Type == variant.Reference {
			continue
		}
		counts[sn.resolve(e.marks[i])]++
	}
	return counts
}
