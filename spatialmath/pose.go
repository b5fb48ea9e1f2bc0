package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
)

// Pose2D is a robot pose on the field. X and Y are in inches, Heading is in radians,
// counter-clockwise from the +X axis.
type Pose2D struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Heading float64 `json:"heading"`
}

// NewPose2D returns a Pose2D.
func NewPose2D(x, y, heading float64) Pose2D {
	return Pose2D{X: x, Y: y, Heading: heading}
}

// Point returns the position part of the pose.
func (p Pose2D) Point() r2.Point {
	return r2.Point{X: p.X, Y: p.Y}
}

// DistanceTo returns the euclidean distance from the pose's position to target.
func (p Pose2D) DistanceTo(target r2.Point) float64 {
	return target.Sub(p.Point()).Norm()
}

// BearingTo returns the angle of target relative to the pose's heading, normalized into (-pi, pi].
func (p Pose2D) BearingTo(target r2.Point) float64 {
	d := target.Sub(p.Point())
	return NormalizeAngle(math.Atan2(d.Y, d.X) - p.Heading)
}

// IsFinite reports whether every field of the pose is a finite number.
func (p Pose2D) IsFinite() bool {
	for _, v := range []float64{p.X, p.Y, p.Heading} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (p Pose2D) String() string {
	return fmt.Sprintf("(%.2f, %.2f, %.3f rad)", p.X, p.Y, p.Heading)
}
