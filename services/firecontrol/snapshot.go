package firecontrol

import (
	"time"

	"github.com/ftcshooter/firecontrol/services/bearing"
	"github.com/ftcshooter/firecontrol/spatialmath"
)

// TurretStatus is the turret part of a Snapshot. Angles are in radians.
type TurretStatus struct {
	Mode    string  `json:"mode"`
	Target  float64 `json:"target"`
	Angle   float64 `json:"angle"`
	Error   float64 `json:"error"`
	Command float64 `json:"command"`
}

// LauncherStatus is the launcher part of a Snapshot. Velocities are in ticks per second.
type LauncherStatus struct {
	Mode         string  `json:"mode"`
	Source       string  `json:"source"`
	TableTarget  float64 `json:"table_target"`
	Target       float64 `json:"target"`
	Velocity1    float64 `json:"velocity_1"`
	Velocity2    float64 `json:"velocity_2"`
	Command      float64 `json:"command"`
	Active       bool    `json:"active"`
	AtTarget     bool    `json:"at_target"`
	Synchronized bool    `json:"synchronized"`
}

// DeflectorStatus is the deflector part of a Snapshot.
type DeflectorStatus struct {
	Mode        string  `json:"mode"`
	TableTarget float64 `json:"table_target"`
	Target      float64 `json:"target"`
}

// Snapshot is a read-only record of one cycle. ZoneDistance is how far the robot is outside the
// zone; BeyondTable is set when the distance is past the last launcher breakpoint, so the launcher
// table's fallback is in use.
type Snapshot struct {
	Cycle        uint64             `json:"cycle"`
	Time         time.Time          `json:"time"`
	Goal         string             `json:"goal"`
	GoalX        float64            `json:"goal_x"`
	GoalY        float64            `json:"goal_y"`
	Pose         spatialmath.Pose2D `json:"pose"`
	Distance     float64            `json:"distance"`
	InZone       bool               `json:"in_zone"`
	Barycentric  [3]float64         `json:"barycentric"`
	ZoneDistance float64            `json:"zone_distance"`
	BeyondTable  bool               `json:"beyond_table"`
	Aiming       bool               `json:"aiming"`
	Bearing      bearing.Estimate   `json:"bearing"`
	Turret       TurretStatus       `json:"turret"`
	Launcher     LauncherStatus     `json:"launcher"`
	Deflector    DeflectorStatus    `json:"deflector"`
	Ready        bool               `json:"ready"`
	Err          string             `json:"error,omitempty"`
}
