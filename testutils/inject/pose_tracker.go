package inject

import (
	"context"

	"github.com/ftcshooter/firecontrol/components/posetracker"
	"github.com/ftcshooter/firecontrol/spatialmath"
)

// PoseTracker is an injected pose tracker.
type PoseTracker struct {
	posetracker.PoseTracker
	PoseFunc func(ctx context.Context) (spatialmath.Pose2D, error)
}

// Pose calls the injected Pose or the real version.
func (pt *PoseTracker) Pose(ctx context.Context) (spatialmath.Pose2D, error) {
	if pt.PoseFunc == nil {
		return pt.PoseTracker.Pose(ctx)
	}
	return pt.PoseFunc(ctx)
}
