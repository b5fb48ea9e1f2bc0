// Package posetracker defines the source of the robot's field pose.
package posetracker

import (
	"context"

	"github.com/ftcshooter/firecontrol/spatialmath"
)

// A PoseTracker reports the robot's current pose in the field frame. Fire control only consumes
// the pose; how it is produced is up to the implementation.
type PoseTracker interface {
	Pose(ctx context.Context) (spatialmath.Pose2D, error)
}
