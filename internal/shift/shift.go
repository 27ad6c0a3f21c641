// Package shift translates positions between the reference coordinate system
// and the coordinates of an individual genome allele.
package shift

import (
	"errors"
	"fmt"

	"github.com/inodb/vibe-sync/internal/genome"
	"github.com/inodb/vibe-sync/internal/variant"
)

// ErrPositionNotIndexed means the requested genome/chromosome has not been
// synchronized yet. Callers should treat it as "not loaded", not as fatal.
var ErrPositionNotIndexed = errors.New("position not indexed")

// NotIndexedError names the missing index.
type NotIndexedError struct {
	Genome     string
	Chromosome string
	Allele     variant.Allele
}

func (e *NotIndexedError) Error() string {
	return fmt.Sprintf("%s %s allele of %s is not indexed", e.Chromosome, e.Allele, e.Genome)
}

func (e *NotIndexedError) Unwrap() error { return ErrPositionNotIndexed }

// Computer answers translation queries against a project's stores. It holds
// no state of its own and is safe for concurrent use.
type Computer struct {
	project *genome.Project
}

// NewComputer creates a Computer over project.
func NewComputer(project *genome.Project) *Computer {
	return &Computer{project: project}
}

func (c *Computer) store(genomeName, chrom string, allele variant.Allele) (*genome.Store, error) {
	s, ok := c.project.Store(genomeName, chrom, allele)
	if !ok {
		return nil, &NotIndexedError{Genome: genomeName, Chromosome: chrom, Allele: allele}
	}
	return s, nil
}

// ToGenomePosition converts a reference position into the genome's
// coordinates.
func (c *Computer) ToGenomePosition(genomeName, chrom string, allele variant.Allele, refPos int) (int, error) {
	if genomeName == genome.MetaGenome {
		return refPos, nil
	}
	s, err := c.store(genomeName, chrom, allele)
	if err != nil {
		return 0, err
	}
	return ToGenome(s, refPos), nil
}

// ToReferencePosition converts a genome position back to the reference.
func (c *Computer) ToReferencePosition(genomeName, chrom string, allele variant.Allele, genomePos int) (int, error) {
	if genomeName == genome.MetaGenome {
		return genomePos, nil
	}
	s, err := c.store(genomeName, chrom, allele)
	if err != nil {
		return 0, err
	}
	return ToReference(s, genomePos), nil
}

// VariantTypeAt returns the type of the variant covering refPos, or
// variant.Reference when none does.
func (c *Computer) VariantTypeAt(genomeName, chrom string, allele variant.Allele, refPos int) (variant.Type, error) {
	if genomeName == genome.MetaGenome {
		return variant.Reference, nil
	}
	s, err := c.store(genomeName, chrom, allele)
	if err != nil {
		return variant.Reference, err
	}
	rec, _ := s.VariantAt(refPos)
	return rec.Type, nil
}

// ToGenome applies the shift of every variant at or before refPos.
//
// A reference base at exactly an insertion's start lands after the inserted
// bases. Deleted reference bases collapse onto the deletion's genome
// position.
func ToGenome(s *genome.Store, refPos int) int {
	i := s.IndexOfPosition(refPos)
	if i < 0 {
		return refPos
	}
	rec := s.Record(i)
	shift := s.ShiftBefore(i)
	anchor := s.GenomePosition(i)

	var pos int
	switch rec.Type {
	case variant.Insertion:
		pos = refPos + shift + rec.Length
	case variant.Deletion:
		if refPos < rec.End() {
			return anchor
		}
		pos = refPos + shift - rec.Length
	default:
		pos = refPos + shift
	}
	// Records starting inside an earlier deletion share its anchor.
	if pos < anchor {
		pos = anchor
	}
	return pos
}

// ToReference is the inverse of ToGenome. Inserted genome bases map to the
// reference base following the insertion.
func ToReference(s *genome.Store, genomePos int) int {
	i := s.IndexOfGenomePosition(genomePos)
	if i < 0 {
		return genomePos
	}
	rec := s.Record(i)
	shift := s.ShiftBefore(i)

	switch rec.Type {
	case variant.Insertion:
		if genomePos < s.GenomePosition(i)+rec.Length {
			return rec.Start
		}
		return genomePos - shift - rec.Length
	case variant.Deletion:
		return genomePos - shift + rec.Length
	}
	pos := genomePos - shift
	if pos < rec.Start {
		pos = rec.Start
	}
	return pos
}
