// Package zone decides whether the robot stands inside the firing-permitted region in front of
// the goal.
package zone

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"github.com/ftcshooter/firecontrol/spatialmath"
)

// Config places the zone relative to the goal, in inches.
type Config struct {
	BackOffset float64 `json:"back_offset"`
	HalfWidth  float64 `json:"half_width"`
}

// DefaultConfig returns the default zone dimensions.
func DefaultConfig() Config {
	return Config{BackOffset: 36, HalfWidth: 24}
}

// Validate ensures all parts of the config are valid. Zero dimensions are allowed and yield a
// zone that contains nothing.
func (cfg *Config) Validate(path string) error {
	var err error
	for _, f := range []struct {
		name  string
		value float64
	}{{"back_offset", cfg.BackOffset}, {"half_width", cfg.HalfWidth}} {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) || f.value < 0 {
			err = multierr.Append(err, goutils.NewConfigValidationError(path,
				errors.Errorf("%s must be a finite non-negative number, got %v", f.name, f.value)))
		}
	}
	return err
}

// A Tester holds the zone triangle for the current goal. It is not safe for concurrent use.
type Tester struct {
	cfg      Config
	goal     r2.Point
	triangle spatialmath.Triangle2D
}

// NewTester returns a tester for a zone anchored at goal.
func NewTester(cfg Config, goal r2.Point) (*Tester, error) {
	if err := cfg.Validate("zone"); err != nil {
		return nil, err
	}
	t := &Tester{cfg: cfg}
	t.Recompute(goal)
	return t, nil
}

// Triangle returns the zone for goal. Its vertices, in order, are the two flanking the goal
// (goal.y - half_width, then goal.y + half_width) and the one behind it along the approach axis.
func Triangle(cfg Config, goal r2.Point) spatialmath.Triangle2D {
	return spatialmath.NewTriangle2D(
		r2.Point{X: goal.X, Y: goal.Y - cfg.HalfWidth},
		r2.Point{X: goal.X, Y: goal.Y + cfg.HalfWidth},
		r2.Point{X: goal.X - cfg.BackOffset, Y: goal.Y},
	)
}

// Recompute rebuilds the zone for a new goal and returns it.
func (t *Tester) Recompute(goal r2.Point) spatialmath.Triangle2D {
	t.goal = goal
	t.triangle = Triangle(t.cfg, goal)
	return t.triangle
}

// Goal returns the goal the zone is anchored at.
func (t *Tester) Goal() r2.Point {
	return t.goal
}

// Zone returns the current zone triangle.
func (t *Tester) Zone() spatialmath.Triangle2D {
	return t.triangle
}

// Contains reports whether pt is inside the zone, boundary included.
func (t *Tester) Contains(pt r2.Point) bool {
	return t.triangle.Contains(pt)
}

// Coordinates returns the barycentric weights of pt against the lower flank, the upper flank and
// the back vertex, in that order; all zero for a degenerate zone.
func (t *Tester) Coordinates(pt r2.Point) (u, v, w float64) {
	u, v, w, _ = t.triangle.Barycentric(pt)
	return u, v, w
}

// DistanceOutside returns how far pt is from the zone; zero inside.
func (t *Tester) DistanceOutside(pt r2.Point) float64 {
	return t.triangle.DistanceTo(pt)
}
