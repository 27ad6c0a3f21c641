// Package genome holds per-genome, per-chromosome variant indexes that map
// reference positions to positions in a genome's own coordinate system.
package genome

import (
	"errors"
	"fmt"

	"github.com/inodb/vibe-sync/internal/posarray"
	"github.com/inodb/vibe-sync/internal/variant"
)

var (
	// ErrUnsortedInsertion is returned when a variant starts before the
	// previously added one.
	ErrUnsortedInsertion = errors.New("unsorted variant insertion")

	// ErrInvalidRecord is returned for records violating Record invariants.
	ErrInvalidRecord = errors.New("invalid variant record")
)

// Store indexes the variants of one genome allele on one chromosome, in
// reference order. A Store has a single writer while it is built and is
// read-only afterwards; concurrent readers need no locking once building is
// done.
type Store struct {
	chrom  string
	allele variant.Allele

	refPositions    *posarray.Array[int]
	genomePositions *posarray.Array[int]
	shifts          *posarray.Array[int] // cumulative delta before each record
	records         []variant.Record

	shift   int // running delta after the last record
	maxSpan int // longest EffectiveLength seen, bounds VariantAt's back scan
}

// NewStore creates an empty store. opts configure the backing arrays.
func NewStore(chrom string, allele variant.Allele, opts ...posarray.Option) *Store {
	return &Store{
		chrom:           chrom,
		allele:          allele,
		refPositions:    posarray.New[int](0, opts...),
		genomePositions: posarray.New[int](0, opts...),
		shifts:          posarray.New[int](0, opts...),
	}
}

// Chromosome returns the chromosome name the store indexes.
func (s *Store) Chromosome() string { return s.chrom }

// Allele returns the allele the store indexes.
func (s *Store) Allele() variant.Allele { return s.allele }

// Len returns the number of indexed variants.
func (s *Store) Len() int { return len(s.records) }

// TotalShift returns the net length change over the whole chromosome.
func (s *Store) TotalShift() int { return s.shift }

// AddVariant appends rec. Variants must arrive in non-decreasing start order.
func (s *Store) AddVariant(rec variant.Record) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if last, ok := s.refPositions.Last(); ok && rec.Start < last {
		return fmt.Errorf("%w: %s:%d after %d", ErrUnsortedInsertion, s.chrom, rec.Start, last)
	}

	// Records starting inside an earlier deletion would otherwise move
	// backwards in genome coordinates.
	gpos := rec.Start + s.shift
	if last, ok := s.genomePositions.Last(); ok && gpos < last {
		gpos = last
	}

	s.refPositions.Append(rec.Start)
	s.genomePositions.Append(gpos)
	s.shifts.Append(s.shift)
	s.records = append(s.records, rec)

	s.shift += rec.Delta()
	if span := rec.EffectiveLength(); span > s.maxSpan {
		s.maxSpan = span
	}
	return nil
}

// IndexOfPosition returns the index of the last variant starting at or
// before refPos, or -1 when refPos precedes every indexed variant.
func (s *Store) IndexOfPosition(refPos int) int {
	return s.refPositions.LastIndexAtOrBefore(refPos)
}

// IndexOfGenomePosition returns the index of the last variant whose genome
// position is at or before genomePos, or -1.
func (s *Store) IndexOfGenomePosition(genomePos int) int {
	return s.genomePositions.LastIndexAtOrBefore(genomePos)
}

// VariantAt returns the record whose reference interval contains refPos.
func (s *Store) VariantAt(refPos int) (variant.Record, bool) {
	for i := s.IndexOfPosition(refPos); i >= 0; i-- {
		rec := s.records[i]
		if rec.Start+s.maxSpan <= refPos && rec.Start < refPos {
			break
		}
		if rec.Contains(refPos) {
			return rec, true
		}
	}
	return variant.Record{Type: variant.Reference, Start: refPos, Length: 1, Allele: s.allele}, false
}

// Record returns the i-th variant. It panics when i is out of range.
func (s *Store) Record(i int) variant.Record { return s.records[i] }

// RefPosition returns the reference start of the i-th variant.
func (s *Store) RefPosition(i int) int { return s.refPositions.At(i) }

// GenomePosition returns the genome coordinate at which the i-th variant
// takes effect.
func (s *Store) GenomePosition(i int) int { return s.genomePositions.At(i) }

// ShiftBefore returns the cumulative delta of every variant before index i.
func (s *Store) ShiftBefore(i int) int { return s.shifts.At(i) }

// Records returns the indexed records. The slice must not be modified.
func (s *Store) Records() []variant.Record {
	return s.records[:len(s.records):len(s.records)]
}
