package filter

import (
	"io"
	"slices"
	"sort"

	"gopkg.in/yaml.v3"
)

// IncrementalUpdate returns the specs of current that need evaluation. After
// a chromosome change every current spec does, since retrieved positions are
// chromosome-relative. Otherwise only specs absent by value from previous do.
func IncrementalUpdate(previous, current []Spec, chromosomeChanged bool) []Spec {
	if chromosomeChanged {
		return slices.Clone(current)
	}
	seen := make(map[string]struct{}, len(previous))
	for _, s := range previous {
		seen[s.Fingerprint()] = struct{}{}
	}
	var out []Spec
	for _, s := range current {
		if _, ok := seen[s.Fingerprint()]; !ok {
			out = append(out, s)
		}
	}
	return out
}

// GroupBySource partitions specs by source file, keeping their order.
func GroupBySource(specs []Spec) map[string][]Spec {
	groups := make(map[string][]Spec)
	for _, s := range specs {
		groups[s.Source] = append(groups[s.Source], s)
	}
	return groups
}

// Sources returns the sorted source names of a grouping.
func Sources(groups map[string][]Spec) []string {
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RequiredColumns returns the union of columns needed by specs, sorted.
// Every retrieval carries the position columns regardless.
func RequiredColumns(specs []Spec) []Column {
	set := make(map[Column]struct{})
	for _, s := range specs {
		set[s.Column] = struct{}{}
	}
	cols := make([]Column, 0, len(set))
	for c := range set {
		cols = append(cols, c)
	}
	slices.Sort(cols)
	return cols
}

// specFile is the on-disk layout of a filter set.
type specFile struct {
	Filters []Spec `yaml:"filters"`
}

// LoadSpecs decodes a YAML filter set and validates every spec.
func LoadSpecs(r io.Reader) ([]Spec, error) {
	var f specFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, err
	}
	for _, s := range f.Filters {
		if err := s.Validate(); err != nil {
			return nil, err
		}
	}
	return f.Filters, nil
}

// WriteSpecs encodes specs in the layout LoadSpecs reads.
func WriteSpecs(w io.Writer, specs []Spec) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(specFile{Filters: specs}); err != nil {
		return err
	}
	return enc.Close()
}
