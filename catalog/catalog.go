package catalog

import (
	"fmt"

	tterrors "github.com/tth-analysis/tthrun/errors"
)

// Catalog is the ordered set of samples available to a run, keyed by
// dataset name.
type Catalog struct {
	samples []*Sample
	byName  map[string]*Sample
}

func New(samples ...*Sample) (*Catalog, error) {
	c := &Catalog{byName: make(map[string]*Sample, len(samples))}
	for _, s := range samples {
		if err := c.add(s); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Catalog) add(s *Sample) error {
	if s.Name == "" {
		s.Name = s.ProcessName
	}
	if _, found := c.byName[s.Name]; found {
		return tterrors.NewInvalidConfiguration("catalog", "sample %q is declared twice", s.Name)
	}
	if err := s.Validate(); err != nil {
		return fmt.Errorf("sample %q: %w", s.Name, err)
	}
	c.samples = append(c.samples, s)
	c.byName[s.Name] = s
	return nil
}

// Samples returns the samples in catalog order.
func (c *Catalog) Samples() []*Sample {
	return c.samples
}

func (c *Catalog) Get(name string) (*Sample, bool) {
	s, found := c.byName[name]
	return s, found
}

func (c *Catalog) Len() int {
	return len(c.samples)
}
