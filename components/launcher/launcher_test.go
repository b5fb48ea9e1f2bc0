package launcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.viam.com/test"

	"github.com/ftcshooter/firecontrol/components/motor/fake"
	"github.com/ftcshooter/firecontrol/control"
	"github.com/ftcshooter/firecontrol/logging"
	"github.com/ftcshooter/firecontrol/testutils/inject"
)

const frequency = 50.0

func newFakeLauncher(t *testing.T, cfg Config) (*Controller, *fake.Motor, *fake.Motor) {
	t.Helper()
	logger := logging.NewTestLogger(t)
	m1, err := fake.NewMotor("fly1", fake.Config{MaxTicksPerSecond: 2800}, logger)
	test.That(t, err, test.ShouldBeNil)
	m2, err := fake.NewMotor("fly2", fake.Config{MaxTicksPerSecond: 2800}, logger)
	test.That(t, err, test.ShouldBeNil)
	c, err := NewController(cfg, m1, m2, frequency, logger)
	test.That(t, err, test.ShouldBeNil)
	return c, m1, m2
}

func simConfig() Config {
	cfg := DefaultConfig()
	cfg.PID = control.PIDConfig{P: 0.0005}
	cfg.Feedforward = control.FeedforwardConfig{KV: 1.0 / 2800}
	return cfg
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	test.That(t, cfg.Validate("launcher"), test.ShouldBeNil)

	bad := Config{Motors: []string{"fly1", ""}, MaxPower: 0, MinActiveVelocity: -1, VelocityFilterSize: -2}
	err := bad.Validate("launcher")
	test.That(t, err, test.ShouldNotBeNil)
	for _, field := range []string{
		"motors.1", "max_power", "min_active_velocity", "at_target_tolerance", "sync_tolerance", "velocity_filter_size",
	} {
		test.That(t, err.Error(), test.ShouldContainSubstring, field)
	}

	bad = DefaultConfig()
	bad.Motors = []string{"fly1"}
	test.That(t, bad.Validate("launcher"), test.ShouldNotBeNil)

	_, err = NewController(bad, &inject.Motor{}, &inject.Motor{}, frequency, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewController(DefaultConfig(), &inject.Motor{}, nil, frequency, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestInactiveTarget(t *testing.T) {
	ctx := context.Background()
	c, m1, m2 := newFakeLauncher(t, DefaultConfig())

	test.That(t, c.SetTargetVelocity(ctx, 30), test.ShouldBeNil)
	test.That(t, c.Mode(), test.ShouldEqual, ModeVelocity)
	test.That(t, c.Active(), test.ShouldBeFalse)
	test.That(t, c.Update(ctx), test.ShouldBeNil)
	test.That(t, m1.PowerPct(), test.ShouldEqual, 0.0)
	test.That(t, m2.PowerPct(), test.ShouldEqual, 0.0)
	test.That(t, c.Ready(), test.ShouldBeFalse)

	// a large target saturates both motors at max power
	test.That(t, c.SetTargetVelocity(ctx, 1000), test.ShouldBeNil)
	test.That(t, c.Active(), test.ShouldBeTrue)
	test.That(t, c.Update(ctx), test.ShouldBeNil)
	test.That(t, m1.PowerPct(), test.ShouldEqual, 0.85)
	test.That(t, m2.PowerPct(), test.ShouldEqual, 0.85)
	test.That(t, c.Command(), test.ShouldEqual, 0.85)

	// dropping back under the threshold forces zero
	test.That(t, c.SetTargetVelocity(ctx, 0), test.ShouldBeNil)
	test.That(t, c.Update(ctx), test.ShouldBeNil)
	test.That(t, m1.PowerPct(), test.ShouldEqual, 0.0)
	test.That(t, m2.PowerPct(), test.ShouldEqual, 0.0)
}

func TestConverges(t *testing.T) {
	ctx := context.Background()
	c, m1, m2 := newFakeLauncher(t, simConfig())
	test.That(t, c.SetTargetVelocity(ctx, 1000), test.ShouldBeNil)

	dt := time.Duration(float64(time.Second) / frequency)
	for i := 0; i < 200; i++ {
		test.That(t, c.Update(ctx), test.ShouldBeNil)
		m1.Advance(dt)
		m2.Advance(dt)
	}
	test.That(t, c.Update(ctx), test.ShouldBeNil)
	test.That(t, c.Velocity(), test.ShouldAlmostEqual, 1000, 20)
	test.That(t, c.AtTarget(100), test.ShouldBeTrue)
	test.That(t, c.Ready(), test.ShouldBeTrue)
	test.That(t, c.Synchronized(), test.ShouldBeTrue)
	test.That(t, m1.PowerPct(), test.ShouldEqual, m2.PowerPct())
}

func TestManualPower(t *testing.T) {
	ctx := context.Background()
	c, m1, m2 := newFakeLauncher(t, DefaultConfig())
	test.That(t, c.SetTargetVelocity(ctx, 1000), test.ShouldBeNil)

	c.SetManualPower(2)
	test.That(t, c.Mode(), test.ShouldEqual, ModeManual)
	test.That(t, c.Active(), test.ShouldBeFalse)
	test.That(t, c.Target(), test.ShouldEqual, 0.0)
	test.That(t, c.Update(ctx), test.ShouldBeNil)
	test.That(t, m1.PowerPct(), test.ShouldEqual, 0.85)
	test.That(t, m2.PowerPct(), test.ShouldEqual, 0.85)

	c.SetManualPower(-0.5)
	test.That(t, c.Update(ctx), test.ShouldBeNil)
	test.That(t, m1.PowerPct(), test.ShouldEqual, -0.5)
	test.That(t, m2.PowerPct(), test.ShouldEqual, -0.5)

	test.That(t, c.Stop(ctx), test.ShouldBeNil)
	test.That(t, c.Mode(), test.ShouldEqual, ModeIdle)
	test.That(t, m1.PowerPct(), test.ShouldEqual, 0.0)
	test.That(t, m2.PowerPct(), test.ShouldEqual, 0.0)
}

func TestSynchronization(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewTestLogger(t)
	var leadPowers, followPowers []float64
	lead := &inject.Motor{
		VelocityFunc: func(ctx context.Context) (float64, error) { return 1000, nil },
		SetPowerFunc: func(ctx context.Context, powerPct float64) error {
			leadPowers = append(leadPowers, powerPct)
			return nil
		},
	}
	followErr := error(nil)
	follow := &inject.Motor{
		VelocityFunc: func(ctx context.Context) (float64, error) { return 800, nil },
		SetPowerFunc: func(ctx context.Context, powerPct float64) error {
			if followErr != nil {
				return followErr
			}
			followPowers = append(followPowers, powerPct)
			return nil
		},
	}
	c, err := NewController(DefaultConfig(), lead, follow, frequency, logger)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, c.SetTargetVelocity(ctx, 1000), test.ShouldBeNil)
	test.That(t, c.Update(ctx), test.ShouldBeNil)
	v1, v2 := c.Velocities()
	test.That(t, v1, test.ShouldEqual, 1000.0)
	test.That(t, v2, test.ShouldEqual, 800.0)
	test.That(t, c.AtTarget(100), test.ShouldBeTrue)
	test.That(t, c.IsSynchronized(150), test.ShouldBeFalse)
	test.That(t, c.IsSynchronized(250), test.ShouldBeTrue)
	test.That(t, c.Synchronized(), test.ShouldBeFalse)
	test.That(t, leadPowers, test.ShouldResemble, followPowers)

	followErr = errors.New("fly2 disconnected")
	err = c.Update(ctx)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "fly2 disconnected")
}

func TestModeString(t *testing.T) {
	test.That(t, ModeIdle.String(), test.ShouldEqual, "idle")
	test.That(t, ModeVelocity.String(), test.ShouldEqual, "velocity")
	test.That(t, ModeManual.String(), test.ShouldEqual, "manual")
	test.That(t, Mode(7).String(), test.ShouldEqual, "unknown")
}

func TestTargetStepHasNoAccelerationKick(t *testing.T) {
	ctx := context.Background()
	cfg := simConfig()
	cfg.Feedforward.KA = 1e-4

	target := 1150.0
	var powers []float64
	onTarget := func(ctx context.Context) (float64, error) { return target, nil }
	lead := &inject.Motor{
		VelocityFunc: onTarget,
		SetPowerFunc: func(ctx context.Context, powerPct float64) error {
			powers = append(powers, powerPct)
			return nil
		},
	}
	follow := &inject.Motor{
		VelocityFunc: onTarget,
		SetPowerFunc: func(ctx context.Context, powerPct float64) error { return nil },
	}
	c, err := NewController(cfg, lead, follow, frequency, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	for _, next := range []float64{1150, 1150, 1150, 1250, 1250, 1250} {
		target = next
		test.That(t, c.SetTargetVelocity(ctx, target), test.ShouldBeNil)
		test.That(t, c.Update(ctx), test.ShouldBeNil)
		// on target the command is the velocity feedforward alone
		test.That(t, c.Command(), test.ShouldAlmostEqual, target/2800)
	}
	test.That(t, powers, test.ShouldHaveLength, 6)
	test.That(t, powers[3], test.ShouldAlmostEqual, 1250.0/2800)
}
