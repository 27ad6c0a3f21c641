// Package variant defines the variant records and chromosome metadata shared
// by the indexing, translation and filtering packages.
package variant

import (
	"fmt"
	"strings"
)

// Type classifies a variant record.
type Type uint8

const (
	Reference Type = iota
	SNP
	Insertion
	Deletion
	StructuralVariant
	NoCall
)

var typeNames = [...]string{
	Reference:         "REFERENCE",
	SNP:               "SNP",
	Insertion:         "INSERTION",
	Deletion:          "DELETION",
	StructuralVariant: "SV",
	NoCall:            "NO_CALL",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", t)
}

// ParseType parses the String form of a Type.
func ParseType(s string) (Type, error) {
	for i, name := range typeNames {
		if strings.EqualFold(s, name) {
			return Type(i), nil
		}
	}
	return Reference, fmt.Errorf("unknown variant type %q", s)
}

// Allele selects the haplotype a record or query applies to.
type Allele uint8

const (
	Both Allele = iota
	Paternal
	Maternal
)

func (a Allele) String() string {
	switch a {
	case Paternal:
		return "paternal"
	case Maternal:
		return "maternal"
	default:
		return "both"
	}
}

// ParseAllele parses "paternal", "maternal" or "both" (also "p", "m", "b").
func ParseAllele(s string) (Allele, error) {
	switch strings.ToLower(s) {
	case "", "both", "b":
		return Both, nil
	case "paternal", "p":
		return Paternal, nil
	case "maternal", "m":
		return Maternal, nil
	}
	return Both, fmt.Errorf("unknown allele %q", s)
}

// Covers reports whether a record on allele a applies to a query on q.
func (a Allele) Covers(q Allele) bool {
	return a == Both || q == Both || a == q
}

// Record is an immutable description of one variant on the reference.
// Start is a 0-based reference position. For insertions Start is the
// reference base the inserted bases precede.
type Record struct {
	Type   Type
	Start  int
	Length int
	Allele Allele
	Source string
}

// EffectiveLength returns the number of reference bases the record spans.
// A zero-length SNP counts as one base; insertions span no reference base.
func (r Record) EffectiveLength() int {
	switch r.Type {
	case Insertion:
		return 0
	case SNP:
		if r.Length == 0 {
			return 1
		}
	}
	return r.Length
}

// End returns the exclusive reference end of the record.
func (r Record) End() int {
	return r.Start + r.EffectiveLength()
}

// Delta returns the length change the record introduces in genome
// coordinates: positive for insertions, negative for deletions.
func (r Record) Delta() int {
	switch r.Type {
	case Insertion:
		return r.Length
	case Deletion:
		return -r.Length
	}
	return 0
}

// Contains reports whether pos falls inside the record's reference interval.
// An insertion contains only its start.
func (r Record) Contains(pos int) bool {
	if r.Type == Insertion {
		return pos == r.Start
	}
	return pos >= r.Start && pos < r.End()
}

// Validate checks the record invariants.
func (r Record) Validate() error {
	if r.Length < 0 {
		return fmt.Errorf("negative length %d at %d", r.Length, r.Start)
	}
	if r.Start < 0 {
		return fmt.Errorf("negative start %d", r.Start)
	}
	return nil
}

func (r Record) String() string {
	return fmt.Sprintf("%s@%d+%d(%s)", r.Type, r.Start, r.Length, r.Allele)
}
