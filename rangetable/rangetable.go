// Package rangetable implements a distance to value step function.
package rangetable

import (
	"math"
	"sort"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/floats"
)

// Entry is one breakpoint of a Table: every distance up to and including Distance, and above the
// previous breakpoint, maps to Value.
type Entry struct {
	Distance float64 `json:"distance" yaml:"distance"`
	Value    float64 `json:"value" yaml:"value"`
}

// Table is an immutable step function over distance. Lookups past the last breakpoint return the
// fallback value.
type Table struct {
	distances []float64
	values    []float64
	fallback  float64
}

// New returns a table over entries, which must be non-empty, finite and strictly ascending by
// distance.
func New(entries []Entry, fallback float64) (*Table, error) {
	if err := validateEntries(entries); err != nil {
		return nil, err
	}
	if math.IsNaN(fallback) || math.IsInf(fallback, 0) {
		return nil, errors.Errorf("fallback must be finite, got %v", fallback)
	}
	return &Table{
		distances: lo.Map(entries, func(e Entry, _ int) float64 { return e.Distance }),
		values:    lo.Map(entries, func(e Entry, _ int) float64 { return e.Value }),
		fallback:  fallback,
	}, nil
}

func validateEntries(entries []Entry) error {
	if len(entries) == 0 {
		return errors.New("range table needs at least one entry")
	}
	distances := lo.Map(entries, func(e Entry, _ int) float64 { return e.Distance })
	values := lo.Map(entries, func(e Entry, _ int) float64 { return e.Value })
	var err error
	if floats.HasNaN(distances) || floats.HasNaN(values) ||
		lo.SomeBy(append(distances, values...), func(x float64) bool { return math.IsInf(x, 0) }) {
		err = multierr.Append(err, errors.New("range table entries must be finite"))
	}
	for i := 1; i < len(distances); i++ {
		if !(distances[i] > distances[i-1]) {
			err = multierr.Append(err, errors.Errorf(
				"range table breakpoints must be strictly ascending: entry %d (%v) follows %v",
				i, distances[i], distances[i-1]))
		}
	}
	return err
}

// Lookup returns the value of the first breakpoint whose distance is at least distance, or the
// fallback when distance is past the last breakpoint or NaN.
func (t *Table) Lookup(distance float64) float64 {
	i := sort.SearchFloat64s(t.distances, distance)
	if i == len(t.distances) {
		return t.fallback
	}
	return t.values[i]
}

// Entries returns a copy of the table's breakpoints.
func (t *Table) Entries() []Entry {
	return lo.Map(t.distances, func(d float64, i int) Entry { return Entry{Distance: d, Value: t.values[i]} })
}

// Fallback returns the value used beyond the last breakpoint.
func (t *Table) Fallback() float64 {
	return t.fallback
}

// MaxDistance returns the distance of the last breakpoint.
func (t *Table) MaxDistance() float64 {
	return t.distances[len(t.distances)-1]
}

// Config describes a table in a configuration file. A missing fallback means zero.
type Config struct {
	Entries  []Entry  `json:"entries" yaml:"entries"`
	Fallback *float64 `json:"fallback,omitempty" yaml:"fallback,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	return errors.Wrap(validateEntries(cfg.Entries), path)
}

// Build returns the Table described by cfg.
func (cfg *Config) Build() (*Table, error) {
	fallback := 0.0
	if cfg.Fallback != nil {
		fallback = *cfg.Fallback
	}
	return New(cfg.Entries, fallback)
}
