// Package fake implements a pose tracker that follows a scripted list of waypoints.
package fake

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/ftcshooter/firecontrol/components/posetracker"
	"github.com/ftcshooter/firecontrol/spatialmath"
)

var _ posetracker.PoseTracker = &PoseTracker{}

// Config describes a scripted path. The tracker starts at the first waypoint and drives through
// the rest at Speed inches per second, turning instantly to each waypoint's heading on arrival.
type Config struct {
	Waypoints []spatialmath.Pose2D `json:"waypoints"`
	Speed     float64              `json:"speed_inches_per_second"`
	Loop      bool                 `json:"loop"`
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	if len(cfg.Waypoints) == 0 {
		return errors.Errorf("%s: at least one waypoint is required", path)
	}
	if len(cfg.Waypoints) > 1 && !(cfg.Speed > 0) {
		return errors.Errorf("%s: speed_inches_per_second must be greater than zero", path)
	}
	for i, wp := range cfg.Waypoints {
		if !wp.IsFinite() {
			return errors.Errorf("%s: waypoint %d is not finite", path, i)
		}
	}
	return nil
}

// A PoseTracker is a scripted pose source.
type PoseTracker struct {
	mu        sync.Mutex
	cfg       Config
	pose      spatialmath.Pose2D
	next      int
	poseError error
}

// NewPoseTracker returns a tracker at the first waypoint.
func NewPoseTracker(cfg Config) (*PoseTracker, error) {
	if err := cfg.Validate("pose_tracker"); err != nil {
		return nil, err
	}
	return &PoseTracker{cfg: cfg, pose: cfg.Waypoints[0], next: 1}, nil
}

// Pose returns the current pose.
func (p *PoseTracker) Pose(ctx context.Context) (spatialmath.Pose2D, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.poseError != nil {
		return spatialmath.Pose2D{}, p.poseError
	}
	return p.pose, nil
}

// SetPose overwrites the current pose.
func (p *PoseTracker) SetPose(pose spatialmath.Pose2D) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pose = pose
}

// SetError makes Pose fail with err until it is cleared with nil.
func (p *PoseTracker) SetError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.poseError = err
}

// Done reports whether the script has reached its last waypoint.
func (p *PoseTracker) Done() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.next >= len(p.cfg.Waypoints)
}

// Advance drives along the script for dt.
func (p *PoseTracker) Advance(dt time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	budget := p.cfg.Speed * dt.Seconds()
	// a looping script whose waypoints coincide never consumes any budget
	stalled := 0
	for budget > 0 && stalled <= len(p.cfg.Waypoints) {
		if p.next >= len(p.cfg.Waypoints) {
			if !p.cfg.Loop || len(p.cfg.Waypoints) < 2 {
				return
			}
			p.next = 0
		}
		target := p.cfg.Waypoints[p.next]
		dx, dy := target.X-p.pose.X, target.Y-p.pose.Y
		dist := math.Hypot(dx, dy)
		if dist <= budget {
			p.pose = target
			p.next++
			budget -= dist
			if dist == 0 {
				stalled++
			} else {
				stalled = 0
			}
			continue
		}
		p.pose.X += dx / dist * budget
		p.pose.Y += dy / dist * budget
		budget = 0
	}
}
