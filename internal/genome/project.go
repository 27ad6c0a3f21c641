package genome

import (
	"fmt"
	"sort"
	"sync"

	"github.com/inodb/vibe-sync/internal/variant"
)

// MetaGenome is the name of the virtual reference genome. It carries no
// variants and translates positions as the identity.
const MetaGenome = "reference"

type storeKey struct {
	chrom  string
	allele variant.Allele
}

// Genome holds one store per (chromosome, allele).
type Genome struct {
	name string

	mu     sync.RWMutex
	stores map[storeKey]*Store
}

func newGenome(name string) *Genome {
	return &Genome{name: name, stores: make(map[storeKey]*Store)}
}

// Name returns the genome name.
func (g *Genome) Name() string { return g.name }

// SetStore publishes a fully built store, replacing any previous one for the
// same chromosome and allele.
func (g *Genome) SetStore(s *Store) {
	g.mu.Lock()
	g.stores[storeKey{s.Chromosome(), s.Allele()}] = s
	g.mu.Unlock()
}

// Store returns the store for chrom and allele. A query for Both falls back
// to the paternal store when no store was built for Both.
func (g *Genome) Store(chrom string, allele variant.Allele) (*Store, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if s, ok := g.stores[storeKey{chrom, allele}]; ok {
		return s, true
	}
	if allele == variant.Both {
		s, ok := g.stores[storeKey{chrom, variant.Paternal}]
		return s, ok
	}
	return nil, false
}

// Stores returns every store built for chrom, ordered by allele.
func (g *Genome) Stores(chrom string) []*Store {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []*Store
	for k, s := range g.stores {
		if k.chrom == chrom {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Allele() < out[j].Allele() })
	return out
}

// RemoveChromosome drops every store built for chrom.
func (g *Genome) RemoveChromosome(chrom string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for k := range g.stores {
		if k.chrom == chrom {
			delete(g.stores, k)
		}
	}
}

// Project groups the genomes aligned on one chromosome set. Chromosomes are
// referenced by name everywhere, so a reload of the chromosome set keeps the
// stores of chromosomes that survive it.
type Project struct {
	mu      sync.RWMutex
	chroms  *variant.ChromosomeSet
	genomes map[string]*Genome
	order   []string
}

// NewProject creates a project over chroms.
func NewProject(chroms *variant.ChromosomeSet) *Project {
	return &Project{
		chroms:  chroms,
		genomes: make(map[string]*Genome),
	}
}

// Chromosomes returns the current chromosome set.
func (p *Project) Chromosomes() *variant.ChromosomeSet {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.chroms
}

// SetChromosomes replaces the chromosome set and drops stores of chromosomes
// that are no longer part of it.
func (p *Project) SetChromosomes(chroms *variant.ChromosomeSet) {
	p.mu.Lock()
	old := p.chroms
	p.chroms = chroms
	genomes := make([]*Genome, 0, len(p.genomes))
	for _, g := range p.genomes {
		genomes = append(genomes, g)
	}
	p.mu.Unlock()

	if old == nil {
		return
	}
	for _, name := range old.Names() {
		if _, ok := chroms.Get(name); ok {
			continue
		}
		for _, g := range genomes {
			g.RemoveChromosome(name)
		}
	}
}

// AddGenome registers a genome, returning the existing one if the name is
// already known.
func (p *Project) AddGenome(name string) (*Genome, error) {
	if name == MetaGenome {
		return nil, fmt.Errorf("genome name %q is reserved", name)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if g, ok := p.genomes[name]; ok {
		return g, nil
	}
	g := newGenome(name)
	p.genomes[name] = g
	p.order = append(p.order, name)
	return g, nil
}

// Genome returns the named genome.
func (p *Project) Genome(name string) (*Genome, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	g, ok := p.genomes[name]
	return g, ok
}

// GenomeNames returns genome names in registration order.
func (p *Project) GenomeNames() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

// Store returns the store of genome on chrom for allele.
func (p *Project) Store(genome, chrom string, allele variant.Allele) (*Store, bool) {
	g, ok := p.Genome(genome)
	if !ok {
		return nil, false
	}
	return g.Store(chrom, allele)
}
