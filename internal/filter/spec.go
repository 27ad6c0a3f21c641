// Package filter selects variant records matching user-defined predicates
// over VCF columns and tracks which filters need re-evaluation.
package filter

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/inodb/vibe-sync/internal/vcf"
)

// Column names the VCF column a Spec tests.
type Column string

const (
	ColumnID       Column = "ID"
	ColumnAlt      Column = "ALT"
	ColumnFilter   Column = "FILTER"
	ColumnQual     Column = "QUAL"
	ColumnInfo     Column = "INFO"
	ColumnGenotype Column = "GT"
)

// Spec is one inclusion or exclusion predicate bound to a source file.
//
// A Required spec excludes variants that do not match it; otherwise the spec
// excludes the variants that do. Genomes restricts the spec to some genomes;
// empty means every genome.
type Spec struct {
	Source   string   `yaml:"source"`
	Column   Column   `yaml:"column"`
	Key      string   `yaml:"key,omitempty"`
	Values   []string `yaml:"values,omitempty"`
	Min      *float64 `yaml:"min,omitempty"`
	Max      *float64 `yaml:"max,omitempty"`
	Required bool     `yaml:"required,omitempty"`
	Genomes  []string `yaml:"genomes,omitempty"`
}

// Validate checks that the spec can be evaluated.
func (s Spec) Validate() error {
	if s.Source == "" {
		return fmt.Errorf("filter on %s: missing source", s.Column)
	}
	switch s.Column {
	case ColumnID, ColumnAlt, ColumnFilter, ColumnGenotype:
	case ColumnQual:
		if s.Min == nil && s.Max == nil {
			return fmt.Errorf("filter on QUAL: min or max required")
		}
	case ColumnInfo:
		if s.Key == "" {
			return fmt.Errorf("filter on INFO: key required")
		}
	default:
		return fmt.Errorf("unknown filter column %q", s.Column)
	}
	if s.Min != nil && s.Max != nil && *s.Min > *s.Max {
		return fmt.Errorf("filter on %s: min %g above max %g", s.Column, *s.Min, *s.Max)
	}
	return nil
}

// Fingerprint returns a canonical form used for equality by value. Values and
// Genomes compare as sets.
func (s Spec) Fingerprint() string {
	var b strings.Builder
	b.WriteString(s.Source)
	b.WriteByte('\x00')
	b.WriteString(string(s.Column))
	b.WriteByte('\x00')
	b.WriteString(s.Key)
	b.WriteByte('\x00')
	b.WriteString(strings.Join(sortedCopy(s.Values), ","))
	b.WriteByte('\x00')
	b.WriteString(formatBound(s.Min))
	b.WriteByte('\x00')
	b.WriteString(formatBound(s.Max))
	b.WriteByte('\x00')
	b.WriteString(strconv.FormatBool(s.Required))
	b.WriteByte('\x00')
	b.WriteString(strings.Join(sortedCopy(s.Genomes), ","))
	return b.String()
}

// Equal reports whether two specs are equal by value.
func (s Spec) Equal(o Spec) bool { return s.Fingerprint() == o.Fingerprint() }

func (s Spec) String() string {
	polarity := "forbid"
	if s.Required {
		polarity = "require"
	}
	col := string(s.Column)
	if s.Key != "" {
		col += "." + s.Key
	}
	return fmt.Sprintf("%s %s %v in %s", polarity, col, s.Values, s.Source)
}

func sortedCopy(in []string) []string {
	out := slices.Clone(in)
	slices.Sort(out)
	return out
}

func formatBound(f *float64) string {
	if f == nil {
		return "-"
	}
	return strconv.FormatFloat(*f, 'g', -1, 64)
}

// appliesTo reports whether the spec targets genome.
func (s Spec) appliesTo(genome string) bool {
	return len(s.Genomes) == 0 || slices.Contains(s.Genomes, genome)
}

// Record is one retrieved variant together with the sample names of the
// source it came from.
type Record struct {
	*vcf.Variant
	Samples []string
}

func (r Record) sampleIndex(name string) int {
	return slices.Index(r.Samples, name)
}

// Evaluate reports whether rec matches the predicate. Genotype predicates
// match when any targeted genome's genotype class is listed. Evaluate is pure
// and safe for concurrent use.
func Evaluate(s Spec, rec Record) bool {
	if s.Column != ColumnGenotype {
		return match(s, rec, "")
	}
	genomes := s.Genomes
	if len(genomes) == 0 {
		genomes = rec.Samples
	}
	for _, g := range genomes {
		if match(s, rec, g) {
			return true
		}
	}
	return false
}

// Excludes reports whether s hides rec for genome, taking polarity into
// account.
func Excludes(s Spec, rec Record, genome string) bool {
	if !s.appliesTo(genome) {
		return false
	}
	matched := match(s, rec, genome)
	if s.Required {
		return !matched
	}
	return matched
}

func match(s Spec, rec Record, genome string) bool {
	v := rec.Variant
	switch s.Column {
	case ColumnID:
		if len(s.Values) == 0 {
			return v.ID != "" && v.ID != "."
		}
		return anyIn(strings.Split(v.ID, ";"), s.Values, false)
	case ColumnAlt:
		if len(s.Values) == 0 {
			return len(v.Alts()) > 0
		}
		return anyIn(v.Alts(), s.Values, true)
	case ColumnFilter:
		values := s.Values
		if len(values) == 0 {
			values = []string{"PASS"}
		}
		return anyIn(strings.Split(v.Filter, ";"), values, false)
	case ColumnQual:
		return inRange(v.Qual, s.Min, s.Max)
	case ColumnInfo:
		raw, ok := v.Info[s.Key]
		if !ok {
			return false
		}
		if s.Min != nil || s.Max != nil {
			first, _, _ := strings.Cut(raw, ",")
			f, err := strconv.ParseFloat(first, 64)
			return err == nil && inRange(f, s.Min, s.Max)
		}
		if len(s.Values) > 0 {
			return anyIn(strings.Split(raw, ","), s.Values, false)
		}
		return true
	case ColumnGenotype:
		i := rec.sampleIndex(genome)
		if i < 0 {
			return false
		}
		class := v.Genotype(i).Class()
		return slices.ContainsFunc(s.Values, func(want string) bool {
			return strings.EqualFold(want, class)
		})
	}
	return false
}

func anyIn(have, want []string, fold bool) bool {
	for _, h := range have {
		for _, w := range want {
			if h == w || (fold && strings.EqualFold(h, w)) {
				return true
			}
		}
	}
	return false
}

func inRange(f float64, lo, hi *float64) bool {
	if lo != nil && f < *lo {
		return false
	}
	if hi != nil && f > *hi {
		return false
	}
	return true
}
