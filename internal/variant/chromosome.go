package variant

import "fmt"

// Chromosome identifies a reference chromosome.
type Chromosome struct {
	Name   string
	Length int
}

// ChromosomeSet is an ordered set of chromosomes keyed by name.
type ChromosomeSet struct {
	order  []Chromosome
	byName map[string]int
}

// NewChromosomeSet builds a set, rejecting duplicate names.
func NewChromosomeSet(chroms ...Chromosome) (*ChromosomeSet, error) {
	s := &ChromosomeSet{byName: make(map[string]int, len(chroms))}
	for _, c := range chroms {
		if _, dup := s.byName[c.Name]; dup {
			return nil, fmt.Errorf("duplicate chromosome %q", c.Name)
		}
		if c.Length < 0 {
			return nil, fmt.Errorf("chromosome %q: negative length %d", c.Name, c.Length)
		}
		s.byName[c.Name] = len(s.order)
		s.order = append(s.order, c)
	}
	return s, nil
}

// Get returns the chromosome with the given name.
func (s *ChromosomeSet) Get(name string) (Chromosome, bool) {
	i, ok := s.byName[name]
	if !ok {
		return Chromosome{}, false
	}
	return s.order[i], true
}

// Index returns the load-order index of name, or -1.
func (s *ChromosomeSet) Index(name string) int {
	if i, ok := s.byName[name]; ok {
		return i
	}
	return -1
}

// Len returns the number of chromosomes.
func (s *ChromosomeSet) Len() int { return len(s.order) }

// All returns the chromosomes in load order.
func (s *ChromosomeSet) All() []Chromosome {
	out := make([]Chromosome, len(s.order))
	copy(out, s.order)
	return out
}

// Names returns the chromosome names in load order.
func (s *ChromosomeSet) Names() []string {
	names := make([]string, len(s.order))
	for i, c := range s.order {
		names[i] = c.Name
	}
	return names
}
