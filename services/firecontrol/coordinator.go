// Package firecontrol runs the fire-control cycle: it reads the pose, picks launcher and
// deflector targets from the range tables, fuses the goal bearing and drives the turret,
// launcher and deflector toward it.
package firecontrol

import (
	"context"
	"math"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"github.com/ftcshooter/firecontrol/components/deflector"
	"github.com/ftcshooter/firecontrol/components/launcher"
	"github.com/ftcshooter/firecontrol/components/motor"
	"github.com/ftcshooter/firecontrol/components/posetracker"
	"github.com/ftcshooter/firecontrol/components/servo"
	"github.com/ftcshooter/firecontrol/components/turret"
	"github.com/ftcshooter/firecontrol/logging"
	"github.com/ftcshooter/firecontrol/rangetable"
	"github.com/ftcshooter/firecontrol/services/bearing"
	"github.com/ftcshooter/firecontrol/services/vision"
	"github.com/ftcshooter/firecontrol/services/zone"
	"github.com/ftcshooter/firecontrol/utils"
)

// Dependencies are the collaborators the coordinator drives. Vision may be nil. When Loggers is
// set, every component logger is registered in it under "fire_control.<component>".
type Dependencies struct {
	PoseTracker    posetracker.PoseTracker
	Vision         vision.Source
	TurretMotor    motor.Motor
	LauncherMotors [2]motor.Motor
	DeflectorServo servo.Servo
	Loggers        *logging.Registry
}

const loggerPrefix = "fire_control"

type launcherSource int

const (
	launcherOff launcherSource = iota
	launcherTable
	launcherPreset
	launcherManual
)

func (s launcherSource) String() string {
	switch s {
	case launcherOff:
		return "off"
	case launcherTable:
		return "table"
	case launcherPreset:
		return "preset"
	case launcherManual:
		return "manual"
	}
	return "unknown"
}

// A Coordinator owns every fire-control component and advances them together once per Cycle.
// Cycle must be called from a single goroutine. Submit, Sample, UpdateGoals and Snapshot may be
// called from any goroutine.
type Coordinator struct {
	cfg    Config
	logger logging.Logger
	clk    clock.Clock

	tracker        posetracker.PoseTracker
	vision         vision.Source
	zone           *zone.Tester
	estimator      *bearing.Estimator
	turret         *turret.Controller
	launcher       *launcher.Controller
	deflector      *deflector.Controller
	launcherTable  *rangetable.Table
	deflectorTable *rangetable.Table

	mu           sync.Mutex
	pending      []Request
	pendingGoals map[string]GoalConfig
	pendingGoal  string
	knownGoals   map[string]GoalConfig
	inputs       Inputs

	// owned by the cycle
	sampled        Inputs
	goals          map[string]GoalConfig
	goalName       string
	goal           r2.Point
	aiming         bool
	launcherSource launcherSource
	presetVelocity float64
	deflectorAuto  bool
	cycle          uint64

	snapshot atomic.Pointer[Snapshot]
}

// NewCoordinator builds every component from cfg. Construction fails on any configuration error.
func NewCoordinator(cfg Config, deps Dependencies, clk clock.Clock, logger logging.Logger) (*Coordinator, error) {
	if err := cfg.Validate("fire_control"); err != nil {
		return nil, err
	}
	if deps.PoseTracker == nil {
		return nil, errors.New("fire control needs a pose tracker")
	}
	if deps.TurretMotor == nil || deps.LauncherMotors[0] == nil || deps.LauncherMotors[1] == nil {
		return nil, errors.New("fire control needs a turret motor and two launcher motors")
	}
	if deps.DeflectorServo == nil {
		return nil, errors.New("fire control needs a deflector servo")
	}
	if clk == nil {
		clk = clock.New()
	}

	c := &Coordinator{
		cfg:        cfg,
		logger:     logger,
		clk:        clk,
		tracker:    deps.PoseTracker,
		vision:     deps.Vision,
		goals:      copyGoals(cfg.Goals),
		knownGoals: copyGoals(cfg.Goals),
		goalName:   cfg.Goal,
	}
	c.goal = cfg.Goals[cfg.Goal].Point()
	sublogger := func(name string) logging.Logger {
		l := logger.Sublogger(name)
		if deps.Loggers != nil {
			l = deps.Loggers.Register(loggerPrefix+"."+name, l)
		}
		return l
	}
	if deps.Loggers != nil {
		c.logger = deps.Loggers.Register(loggerPrefix, logger)
	}

	var err error
	if c.zone, err = zone.NewTester(cfg.Zone, c.goal); err != nil {
		return nil, err
	}
	if c.estimator, err = bearing.NewEstimator(cfg.Bearing, sublogger("bearing")); err != nil {
		return nil, err
	}
	if c.turret, err = turret.NewController(cfg.Turret, deps.TurretMotor, cfg.FrequencyHz, sublogger("turret")); err != nil {
		return nil, errors.Wrap(err, "turret")
	}
	if c.launcher, err = launcher.NewController(
		cfg.Launcher, deps.LauncherMotors[0], deps.LauncherMotors[1], cfg.FrequencyHz, sublogger("launcher"),
	); err != nil {
		return nil, errors.Wrap(err, "launcher")
	}
	if c.deflector, err = deflector.NewController(deps.DeflectorServo, sublogger("deflector")); err != nil {
		return nil, err
	}
	if c.launcherTable, err = cfg.LauncherTable.Build(); err != nil {
		return nil, errors.Wrap(err, "launcher_table")
	}
	if c.deflectorTable, err = cfg.DeflectorTable.Build(); err != nil {
		return nil, errors.Wrap(err, "deflector_table")
	}
	c.snapshot.Store(&Snapshot{Goal: c.goalName, GoalX: c.goal.X, GoalY: c.goal.Y})
	return c, nil
}

func copyGoals(goals map[string]GoalConfig) map[string]GoalConfig {
	out := make(map[string]GoalConfig, len(goals))
	for k, v := range goals {
		out[k] = v
	}
	return out
}

// Submit queues a request for the next cycle. Requests naming an unknown preset or goal and
// non-finite values are rejected immediately.
func (c *Coordinator) Submit(req Request) error {
	switch req.Kind {
	case RequestTurretManual, RequestLauncherManual, RequestDeflectorPosition:
		if !utils.IsFinite(req.Value) {
			return errors.Errorf("%s needs a finite value, got %v", req.Kind, req.Value)
		}
	case RequestLauncherPreset:
		if _, ok := c.cfg.LauncherPresets[req.Name]; !ok {
			return errors.Errorf("unknown launcher preset %q", req.Name)
		}
	case RequestSelectGoal:
		c.mu.Lock()
		_, ok := c.knownGoals[req.Name]
		c.mu.Unlock()
		if !ok {
			return errors.Errorf("unknown goal %q", req.Name)
		}
	case RequestAim, RequestStopAim, RequestLauncherStop, RequestDeflectorOpen, RequestDeflectorClose, RequestAllStop:
	default:
		return errors.Errorf("unknown request kind %d", int(req.Kind))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append(c.pending, req)
	return nil
}

// Sample records the operator controls. Only the latest sample before a cycle is used.
func (c *Coordinator) Sample(in Inputs) error {
	if in.LauncherPreset != "" {
		if _, ok := c.cfg.LauncherPresets[in.LauncherPreset]; !ok {
			return errors.Errorf("unknown launcher preset %q", in.LauncherPreset)
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inputs = in
	return nil
}

// UpdateGoals replaces the goal positions and selects selected at the next cycle boundary.
func (c *Coordinator) UpdateGoals(goals map[string]GoalConfig, selected string) error {
	g, ok := goals[selected]
	if !ok {
		return errors.Errorf("goal %q is not one of %v", selected, GoalNames(goals))
	}
	if !utils.IsFinite(g.X) || !utils.IsFinite(g.Y) {
		return errors.Errorf("goal %q must be finite, got (%v, %v)", selected, g.X, g.Y)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendingGoals = copyGoals(goals)
	c.pendingGoal = selected
	c.knownGoals = copyGoals(goals)
	return nil
}

// Snapshot returns the record of the last cycle.
func (c *Coordinator) Snapshot() Snapshot {
	return *c.snapshot.Load()
}

// drain takes everything submitted since the last cycle: goal updates first, then queued
// requests in order, then requests from input transitions.
func (c *Coordinator) drain() ([]Request, map[string]GoalConfig, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	reqs := c.pending
	c.pending = nil
	reqs = append(reqs, edges(c.sampled, c.inputs)...)
	c.sampled = c.inputs
	goals, goal := c.pendingGoals, c.pendingGoal
	c.pendingGoals, c.pendingGoal = nil, ""
	return reqs, goals, goal
}

func (c *Coordinator) apply(ctx context.Context, req Request) error {
	c.logger.Infow("applying request", "request", req.String())
	switch req.Kind {
	case RequestAim:
		c.aiming = true
		c.launcherSource = launcherTable
		c.deflectorAuto = true
	case RequestStopAim:
		err := c.stopAiming(ctx)
		if c.launcherSource == launcherTable {
			err = multierr.Append(err, c.stopLauncher(ctx))
		}
		return err
	case RequestTurretManual:
		if c.aiming {
			c.aiming = false
			c.estimator.Stop()
		}
		c.turret.SetManualPower(req.Value)
	case RequestLauncherManual:
		c.launcherSource = launcherManual
		c.launcher.SetManualPower(req.Value)
	case RequestLauncherPreset:
		velocity, ok := c.cfg.LauncherPresets[req.Name]
		if !ok {
			return errors.Errorf("unknown launcher preset %q", req.Name)
		}
		c.launcherSource = launcherPreset
		c.presetVelocity = velocity
	case RequestLauncherStop:
		return c.stopLauncher(ctx)
	case RequestDeflectorPosition:
		c.deflectorAuto = false
		c.deflector.SetManualPosition(req.Value)
	case RequestDeflectorOpen:
		c.deflectorAuto = false
		c.deflector.Open()
	case RequestDeflectorClose:
		c.deflectorAuto = false
		c.deflector.Close()
	case RequestAllStop:
		c.deflectorAuto = false
		c.deflector.Close()
		return multierr.Combine(c.stopAiming(ctx), c.stopLauncher(ctx))
	case RequestSelectGoal:
		return c.selectGoal(req.Name)
	}
	return nil
}

func (c *Coordinator) stopAiming(ctx context.Context) error {
	c.aiming = false
	c.estimator.Stop()
	return c.turret.Stop(ctx)
}

func (c *Coordinator) stopLauncher(ctx context.Context) error {
	c.launcherSource = launcherOff
	c.presetVelocity = 0
	return c.launcher.Stop(ctx)
}

func (c *Coordinator) selectGoal(name string) error {
	g, ok := c.goals[name]
	if !ok {
		return errors.Errorf("unknown goal %q", name)
	}
	c.goalName = name
	c.goal = g.Point()
	c.zone.Recompute(c.goal)
	c.logger.Infow("goal selected", "goal", name, "x", g.X, "y", g.Y)
	return nil
}

func (c *Coordinator) halt(ctx context.Context) error {
	return multierr.Combine(c.turret.Halt(ctx), c.launcher.Halt(ctx))
}

// Cycle runs one fire-control cycle and publishes its snapshot. Errors from collaborators are
// returned after every component has been given the chance to run; a failed pose read zeroes the
// turret and launcher.
func (c *Coordinator) Cycle(ctx context.Context) (Snapshot, error) {
	c.cycle++
	snap := Snapshot{Cycle: c.cycle, Time: c.clk.Now()}

	reqs, goals, selected := c.drain()
	var err error
	if goals != nil {
		c.goals = goals
		err = multierr.Append(err, c.selectGoal(selected))
	}
	for _, req := range reqs {
		err = multierr.Append(err, c.apply(ctx, req))
	}

	pose, poseErr := c.tracker.Pose(ctx)
	if poseErr == nil && !pose.IsFinite() {
		poseErr = errors.Errorf("pose %v is not finite", pose)
	}
	if poseErr != nil {
		err = multierr.Combine(err, errors.Wrap(poseErr, "reading pose"), c.halt(ctx))
		c.fillStatus(&snap)
		return c.publish(snap, err)
	}
	snap.Pose = pose

	distance := pose.DistanceTo(c.goal)
	snap.Distance = distance
	snap.InZone = c.zone.Contains(pose.Point())
	u, v, w := c.zone.Coordinates(pose.Point())
	snap.Barycentric = [3]float64{u, v, w}
	snap.ZoneDistance = c.zone.DistanceOutside(pose.Point())
	snap.BeyondTable = distance > c.launcherTable.MaxDistance()
	launcherTarget := c.launcherTable.Lookup(distance)
	deflectorTarget := c.deflectorTable.Lookup(distance)
	snap.Launcher.TableTarget = launcherTarget
	snap.Deflector.TableTarget = deflectorTarget

	if c.aiming {
		offset := vision.NoTarget()
		if c.vision != nil {
			o, visionErr := c.vision.TargetOffset(ctx)
			if visionErr != nil {
				c.logger.Debugw("vision unavailable", "error", visionErr)
			} else {
				offset = o
			}
		}
		est, estErr := c.estimator.Update(pose, c.goal, offset)
		if estErr != nil {
			err = multierr.Append(err, estErr)
		} else {
			err = multierr.Append(err, c.turret.SetTarget(ctx, est.Angle))
		}
	}
	switch c.launcherSource {
	case launcherTable:
		err = multierr.Append(err, c.launcher.SetTargetVelocity(ctx, launcherTarget))
	case launcherPreset:
		err = multierr.Append(err, c.launcher.SetTargetVelocity(ctx, c.presetVelocity))
	case launcherOff, launcherManual:
	}
	if c.deflectorAuto {
		c.deflector.SetTarget(deflectorTarget)
	}

	err = multierr.Combine(err, c.turret.Update(ctx), c.launcher.Update(ctx), c.deflector.Update(ctx))

	c.fillStatus(&snap)
	snap.Ready = c.ready(snap.InZone)
	c.logger.Debugw("cycle",
		"cycle", snap.Cycle,
		"distance", distance,
		"in_zone", snap.InZone,
		"bearing", snap.Bearing.Angle,
		"ready", snap.Ready,
	)
	return c.publish(snap, err)
}

func (c *Coordinator) ready(inZone bool) bool {
	if !c.aiming || c.turret.Mode() != turret.ModeAiming {
		return false
	}
	if c.cfg.RequireZoneForReady && !inZone {
		return false
	}
	return c.launcher.Ready() && math.Abs(c.turret.Error()) < c.cfg.AimToleranceRad
}

func (c *Coordinator) fillStatus(snap *Snapshot) {
	snap.Goal = c.goalName
	snap.GoalX, snap.GoalY = c.goal.X, c.goal.Y
	snap.Aiming = c.aiming
	snap.Bearing = c.estimator.Estimate()
	snap.Turret = TurretStatus{
		Mode:    c.turret.Mode().String(),
		Target:  c.turret.Target(),
		Angle:   c.turret.Angle(),
		Error:   c.turret.Error(),
		Command: c.turret.Command(),
	}
	v1, v2 := c.launcher.Velocities()
	snap.Launcher.Mode = c.launcher.Mode().String()
	snap.Launcher.Source = c.launcherSource.String()
	snap.Launcher.Target = c.launcher.Target()
	snap.Launcher.Velocity1 = v1
	snap.Launcher.Velocity2 = v2
	snap.Launcher.Command = c.launcher.Command()
	snap.Launcher.Active = c.launcher.Active()
	snap.Launcher.AtTarget = c.launcher.Active() && c.launcher.AtTarget(c.cfg.Launcher.AtTargetTolerance)
	snap.Launcher.Synchronized = c.launcher.Synchronized()
	snap.Deflector.Mode = c.deflector.Mode().String()
	snap.Deflector.Target = c.deflector.Target()
}

func (c *Coordinator) publish(snap Snapshot, err error) (Snapshot, error) {
	if err != nil {
		snap.Err = err.Error()
	}
	c.snapshot.Store(&snap)
	return snap, err
}

// Shutdown stops every actuator. The coordinator can still be cycled afterwards.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	return multierr.Combine(c.stopAiming(ctx), c.stopLauncher(ctx))
}
