// Package bearing estimates the robot-relative bearing to the goal by fusing odometry and vision
// in a one-state Kalman filter.
package bearing

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"github.com/ftcshooter/firecontrol/control"
	"github.com/ftcshooter/firecontrol/logging"
	"github.com/ftcshooter/firecontrol/services/vision"
	"github.com/ftcshooter/firecontrol/spatialmath"
	"github.com/ftcshooter/firecontrol/utils"
)

const (
	initialAngle    = 0.0
	initialVariance = 1.0
)

// Config holds the noise model of the estimator. Noises are variances in rad².
type Config struct {
	ProcessNoise         float64 `json:"process_noise"`
	OdometryNoise        float64 `json:"odometry_noise"`
	VisionNoise          float64 `json:"vision_noise"`
	VisionMountOffsetDeg float64 `json:"vision_mount_offset_degrees"`
}

// DefaultConfig returns the calibrated noise model, which trusts odometry more than vision.
func DefaultConfig() Config {
	return Config{ProcessNoise: 0.01, OdometryNoise: 0.1, VisionNoise: 0.15}
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	var err error
	if !(cfg.ProcessNoise >= 0) || math.IsInf(cfg.ProcessNoise, 0) {
		err = multierr.Append(err, goutils.NewConfigValidationError(path,
			errors.Errorf("process_noise must be a finite non-negative number, got %v", cfg.ProcessNoise)))
	}
	if !(cfg.OdometryNoise > 0) || math.IsInf(cfg.OdometryNoise, 0) {
		err = multierr.Append(err, goutils.NewConfigValidationError(path,
			utils.NewNonPositiveError("odometry_noise", cfg.OdometryNoise)))
	}
	if !(cfg.VisionNoise > 0) || math.IsInf(cfg.VisionNoise, 0) {
		err = multierr.Append(err, goutils.NewConfigValidationError(path,
			utils.NewNonPositiveError("vision_noise", cfg.VisionNoise)))
	}
	if !utils.IsFinite(cfg.VisionMountOffsetDeg) {
		err = multierr.Append(err, goutils.NewConfigValidationError(path,
			errors.Errorf("vision_mount_offset_degrees must be finite, got %v", cfg.VisionMountOffsetDeg)))
	}
	return err
}

// Source names the last measurement fused into the estimate.
type Source string

// Measurement sources.
const (
	SourceNone     Source = "none"
	SourceOdometry Source = "odometry"
	SourceVision   Source = "vision"
)

// Estimate is a snapshot of the estimator.
type Estimate struct {
	Angle        float64 `json:"angle"`
	Variance     float64 `json:"variance"`
	OdometryUsed bool    `json:"odometry_used"`
	VisionUsed   bool    `json:"vision_used"`
	LastSource   Source  `json:"last_source"`
}

// An Estimator tracks the bearing to the goal. It is not safe for concurrent use.
type Estimator struct {
	cfg    Config
	kf     *control.KalmanFilter
	logger logging.Logger

	odometryUsed bool
	visionUsed   bool
	lastSource   Source
}

// NewEstimator returns an estimator at angle 0 with variance 1.
func NewEstimator(cfg Config, logger logging.Logger) (*Estimator, error) {
	if err := cfg.Validate("bearing"); err != nil {
		return nil, err
	}
	kf, err := control.NewKalmanFilter([]float64{initialAngle}, initialVariance, cfg.ProcessNoise)
	if err != nil {
		return nil, err
	}
	return &Estimator{cfg: cfg, kf: kf, logger: logger, lastSource: SourceNone}, nil
}

// Predict keeps the angle and grows the variance by the process noise.
func (e *Estimator) Predict() {
	e.kf.Predict()
}

// Fuse corrects the estimate with measurement z of variance r. The innovation is wrapped so that
// measurements on either side of ±pi pull the estimate the short way round.
func (e *Estimator) Fuse(z, r float64) error {
	if !utils.IsFinite(z) {
		return errors.Errorf("cannot fuse non-finite bearing %v", z)
	}
	innovation := spatialmath.AngleDifference(e.kf.State()[0], z)
	if err := e.kf.UpdateInnovation([]float64{innovation}, r); err != nil {
		return err
	}
	e.kf.SetState(0, spatialmath.NormalizeAngle(e.kf.State()[0]))
	return nil
}

// Update runs one estimator cycle: predict, fuse the odometry bearing from pose to goal, then
// fuse the vision offset in degrees if it is finite.
func (e *Estimator) Update(pose spatialmath.Pose2D, goal r2.Point, visionOffsetDeg float64) (Estimate, error) {
	if !pose.IsFinite() {
		return e.Estimate(), errors.Errorf("pose %v is not finite", pose)
	}
	e.Predict()

	odometry := OdometryBearing(pose, goal)
	if err := e.Fuse(odometry, e.cfg.OdometryNoise); err != nil {
		return e.Estimate(), errors.Wrap(err, "fusing odometry bearing")
	}
	e.odometryUsed = true
	e.lastSource = SourceOdometry

	e.visionUsed = false
	if vision.HasTarget(visionOffsetDeg) {
		if err := e.Fuse(VisionBearing(visionOffsetDeg, e.cfg.VisionMountOffsetDeg), e.cfg.VisionNoise); err != nil {
			return e.Estimate(), errors.Wrap(err, "fusing vision bearing")
		}
		e.visionUsed = true
		e.lastSource = SourceVision
	}
	return e.Estimate(), nil
}

// Estimate returns the current estimate.
func (e *Estimator) Estimate() Estimate {
	return Estimate{
		Angle:        e.kf.State()[0],
		Variance:     e.kf.Variance(0),
		OdometryUsed: e.odometryUsed,
		VisionUsed:   e.visionUsed,
		LastSource:   e.lastSource,
	}
}

// Stop returns the estimator to its initial state.
func (e *Estimator) Stop() {
	if e.lastSource != SourceNone {
		e.logger.Debug("bearing estimator reset")
	}
	e.kf.Reset()
	e.odometryUsed = false
	e.visionUsed = false
	e.lastSource = SourceNone
}

// OdometryBearing returns the bearing of goal relative to the pose heading.
func OdometryBearing(pose spatialmath.Pose2D, goal r2.Point) float64 {
	return pose.BearingTo(goal)
}

// VisionBearing converts a camera offset in degrees to a robot-relative bearing in radians.
func VisionBearing(offsetDeg, mountOffsetDeg float64) float64 {
	return spatialmath.NormalizeAngle(utils.DegToRad(offsetDeg + mountOffsetDeg))
}
