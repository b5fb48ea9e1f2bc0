// Package fake implements a vision source that sees the goal wherever the pose tracker says it is.
package fake

import (
	"context"
	"math"
	"sync"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/ftcshooter/firecontrol/components/posetracker"
	"github.com/ftcshooter/firecontrol/logging"
	"github.com/ftcshooter/firecontrol/services/vision"
	"github.com/ftcshooter/firecontrol/utils"
)

// Config describes what the simulated camera can see.
type Config struct {
	MaxRange       float64 `json:"max_range_inches"`
	FieldOfViewDeg float64 `json:"field_of_view_degrees"`
	BiasDeg        float64 `json:"bias_degrees"`
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	var err error
	if !(cfg.MaxRange > 0) {
		err = multierr.Append(err, errors.Wrap(utils.NewNonPositiveError("max_range_inches", cfg.MaxRange), path))
	}
	if !(cfg.FieldOfViewDeg > 0 && cfg.FieldOfViewDeg <= 360) {
		err = multierr.Append(err, errors.Wrap(
			utils.NewOutOfRangeError("field_of_view_degrees", cfg.FieldOfViewDeg, 0, 360), path))
	}
	return err
}

var _ vision.Source = &Source{}

// A Source computes the true bearing from the tracked pose to the goal and reports it like a
// camera would: only inside its range and field of view, shifted by a constant bias.
type Source struct {
	Name   string
	Logger logging.Logger

	tracker posetracker.PoseTracker
	cfg     Config

	mu      sync.Mutex
	goal    r2.Point
	enabled bool
}

// NewSource returns a fake vision source looking at goal.
func NewSource(name string, cfg Config, tracker posetracker.PoseTracker, goal r2.Point, logger logging.Logger) (*Source, error) {
	if err := cfg.Validate(name); err != nil {
		return nil, err
	}
	return &Source{Name: name, Logger: logger, tracker: tracker, cfg: cfg, goal: goal, enabled: true}, nil
}

// TargetOffset returns the offset to the goal in degrees, or NaN when the goal cannot be seen.
func (s *Source) TargetOffset(ctx context.Context) (float64, error) {
	s.mu.Lock()
	goal, enabled := s.goal, s.enabled
	s.mu.Unlock()
	if !enabled {
		return vision.NoTarget(), nil
	}
	pose, err := s.tracker.Pose(ctx)
	if err != nil {
		return 0, err
	}
	if pose.DistanceTo(goal) > s.cfg.MaxRange {
		return vision.NoTarget(), nil
	}
	deg := utils.RadToDeg(pose.BearingTo(goal))
	if math.Abs(deg) > s.cfg.FieldOfViewDeg/2 {
		return vision.NoTarget(), nil
	}
	return deg + s.cfg.BiasDeg, nil
}

// SetGoal moves the goal the camera looks for.
func (s *Source) SetGoal(goal r2.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goal = goal
}

// SetEnabled turns the simulated camera on or off.
func (s *Source) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enabled
}
