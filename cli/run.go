package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"github.com/ftcshooter/firecontrol/components/motor"
	fakemotor "github.com/ftcshooter/firecontrol/components/motor/fake"
	fakepose "github.com/ftcshooter/firecontrol/components/posetracker/fake"
	fakeservo "github.com/ftcshooter/firecontrol/components/servo/fake"
	"github.com/ftcshooter/firecontrol/config"
	"github.com/ftcshooter/firecontrol/logging"
	"github.com/ftcshooter/firecontrol/services/firecontrol"
	fakevision "github.com/ftcshooter/firecontrol/services/vision/fake"
	"github.com/ftcshooter/firecontrol/utils"
	"github.com/ftcshooter/firecontrol/web/telemetry"
)

// simulation is the simulated robot the fire-control core drives.
type simulation struct {
	motors  map[string]*fakemotor.Motor
	servos  map[string]*fakeservo.Servo
	tracker *fakepose.PoseTracker
	vision  *fakevision.Source
}

func newSimulation(cfg *config.Config, logger logging.Logger) (*simulation, error) {
	sim := &simulation{
		motors: make(map[string]*fakemotor.Motor, len(cfg.Simulation.Motors)),
		servos: make(map[string]*fakeservo.Servo, len(cfg.Simulation.Servos)),
	}
	for name, mc := range cfg.Simulation.Motors {
		m, err := fakemotor.NewMotor(name, mc, logger.Sublogger(name))
		if err != nil {
			return nil, err
		}
		sim.motors[name] = m
	}
	for _, name := range cfg.Simulation.Servos {
		sim.servos[name] = fakeservo.NewServo(name, logger.Sublogger(name))
	}
	tracker, err := fakepose.NewPoseTracker(cfg.Simulation.PoseTracker)
	if err != nil {
		return nil, err
	}
	sim.tracker = tracker
	if cfg.Simulation.Vision != nil {
		goal := cfg.FireControl.Goals[cfg.FireControl.Goal].Point()
		sim.vision, err = fakevision.NewSource("camera", *cfg.Simulation.Vision, tracker, goal, logger.Sublogger("camera"))
		if err != nil {
			return nil, err
		}
	}
	return sim, nil
}

// dependencies wires the simulated hardware to the names the fire-control config uses.
func (sim *simulation) dependencies(fc *firecontrol.Config) (firecontrol.Dependencies, error) {
	lookup := func(name string) (motor.Motor, error) {
		m, ok := sim.motors[name]
		if !ok {
			return nil, errors.Errorf("no simulated motor named %q", name)
		}
		return m, nil
	}
	var deps firecontrol.Dependencies
	var err, e1, e2 error
	deps.PoseTracker = sim.tracker
	deps.TurretMotor, err = lookup(fc.Turret.Motor)
	if len(fc.Launcher.Motors) == 2 {
		deps.LauncherMotors[0], e1 = lookup(fc.Launcher.Motors[0])
		deps.LauncherMotors[1], e2 = lookup(fc.Launcher.Motors[1])
	}
	if s, ok := sim.servos[fc.Deflector.Servo]; ok {
		deps.DeflectorServo = s
	} else {
		err = multierr.Append(err, errors.Errorf("no simulated servo named %q", fc.Deflector.Servo))
	}
	if sim.vision != nil {
		deps.Vision = sim.vision
	}
	return deps, multierr.Combine(err, e1, e2)
}

// step moves the simulation on by one cycle and keeps the camera looking at the current goal.
func (sim *simulation) step(dt time.Duration, snap firecontrol.Snapshot) {
	for _, m := range sim.motors {
		m.Advance(dt)
	}
	sim.tracker.Advance(dt)
	if sim.vision != nil {
		sim.vision.SetGoal(r2.Point{X: snap.GoalX, Y: snap.GoalY})
	}
}

// RunAction runs the fire-control loop against the simulated robot until interrupted or until
// --duration has passed.
func RunAction(c *cli.Context) (err error) {
	logger := newLogger(c)
	cfg, err := loadConfig(c, logger)
	if err != nil {
		return err
	}
	if goal := c.String(runFlagGoal); goal != "" {
		cfg.FireControl.Goal = goal
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	registry := logging.NewRegistry()
	if err := registry.UpdateConfig(cfg.Log, logger); err != nil {
		return err
	}
	sim, err := newSimulation(cfg, logger)
	if err != nil {
		return err
	}
	deps, err := sim.dependencies(&cfg.FireControl)
	if err != nil {
		return err
	}
	deps.Loggers = registry

	clk := clock.New()
	coord, err := firecontrol.NewCoordinator(cfg.FireControl, deps, clk, logger)
	if err != nil {
		return err
	}
	var runner *firecontrol.Runner
	ready := false
	runner = firecontrol.NewRunner(coord, clk, logger, func(snap firecontrol.Snapshot) {
		sim.step(runner.Period(), snap)
		if snap.Ready != ready {
			ready = snap.Ready
			logger.Infow("ready changed", "ready", ready, "cycle", snap.Cycle, "distance", snap.Distance)
		}
	})

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if d := c.Duration(runFlagDuration); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	workers := utils.NewStoppableWorkers()
	defer func() {
		err = multierr.Combine(err, workers.Stop())
	}()
	if !cfg.Telemetry.Disabled {
		srv := telemetry.New(coord, telemetry.Options{
			Address:        cfg.Telemetry.Address,
			StreamInterval: cfg.Telemetry.StreamInterval,
		}, registry.Register("telemetry", logger.Sublogger("telemetry")))
		workers.AddWorkers(func(ctx context.Context) {
			if err := srv.Run(ctx); err != nil {
				logger.Errorw("telemetry stopped", "error", err)
			}
		})
	}
	if cfg.ConfigFilePath != "" {
		watcher, werr := config.NewWatcher(cfg.ConfigFilePath, logger)
		if werr != nil {
			return werr
		}
		defer func() {
			err = multierr.Combine(err, watcher.Close())
		}()
		workers.AddWorkers(func(ctx context.Context) {
			prev := cfg
			for {
				select {
				case <-ctx.Done():
					return
				case next := <-watcher.Config():
					if err := config.ApplyLive(prev, next, coord, registry, logger); err != nil {
						logger.Warnw("cannot apply config change", "error", err)
					}
					prev = next
				}
			}
		})
	}

	if err := runner.Start(); err != nil {
		return err
	}
	if c.Bool(runFlagShoot) {
		if err := coord.Sample(firecontrol.Inputs{Shoot: true}); err != nil {
			return multierr.Combine(err, runner.Stop(context.Background()))
		}
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err = runner.Stop(stopCtx)
	printStats(c, runner.Stats(), coord.Snapshot(), sim)
	return err
}

func printStats(c *cli.Context, stats firecontrol.RunnerStats, snap firecontrol.Snapshot, sim *simulation) {
	out := c.App.Writer
	fmt.Fprintf(out, "cycles=%d errors=%d overruns=%d average_cycle=%v\n",
		stats.Cycles, stats.Errors, stats.Overruns, stats.AverageCycleTime)
	fmt.Fprintf(out, "last cycle %d: goal=%s distance=%.1f in_zone=%t ready=%t\n",
		snap.Cycle, snap.Goal, snap.Distance, snap.InZone, snap.Ready)
	names := lo.Keys(sim.motors)
	sort.Strings(names)
	for _, name := range names {
		v, _ := sim.motors[name].Velocity(context.Background())
		fmt.Fprintf(out, "  %s: %.0f ticks/s\n", name, v)
	}
}
