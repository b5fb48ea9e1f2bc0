package deflector

import (
	"context"
	"errors"
	"testing"

	"go.viam.com/test"

	"github.com/ftcshooter/firecontrol/components/servo/fake"
	"github.com/ftcshooter/firecontrol/logging"
	"github.com/ftcshooter/firecontrol/testutils/inject"
)

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	test.That(t, cfg.Validate("deflector"), test.ShouldBeNil)
	cfg.Servo = ""
	err := cfg.Validate("deflector")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "servo")
}

func TestDeflector(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewTestLogger(t)
	s := fake.NewServo("hood", logger)
	c, err := NewController(s, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, c.Mode(), test.ShouldEqual, ModeAutomatic)

	// the first update always writes
	test.That(t, c.Update(ctx), test.ShouldBeNil)
	test.That(t, s.Moves(), test.ShouldEqual, 1)

	t.Run("writes only on change", func(t *testing.T) {
		c.SetTarget(0.45)
		test.That(t, c.Update(ctx), test.ShouldBeNil)
		test.That(t, c.Update(ctx), test.ShouldBeNil)
		test.That(t, s.Moves(), test.ShouldEqual, 2)
		pos, err := c.Position(ctx)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, pos, test.ShouldEqual, 0.45)
	})

	t.Run("manual clamps and presets", func(t *testing.T) {
		c.SetManualPosition(1.7)
		test.That(t, c.Mode(), test.ShouldEqual, ModeManual)
		test.That(t, c.Target(), test.ShouldEqual, 1.0)
		c.SetManualPosition(-0.2)
		test.That(t, c.Target(), test.ShouldEqual, 0.0)
		c.Open()
		test.That(t, c.Target(), test.ShouldEqual, PositionOpen)
		test.That(t, c.Update(ctx), test.ShouldBeNil)
		pos, err := s.Position(ctx)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, pos, test.ShouldEqual, 1.0)
		c.Close()
		test.That(t, c.Target(), test.ShouldEqual, PositionClosed)
	})

	t.Run("automatic resumes", func(t *testing.T) {
		c.SetTarget(0.9)
		test.That(t, c.Mode(), test.ShouldEqual, ModeAutomatic)
		c.SetTarget(2)
		test.That(t, c.Target(), test.ShouldEqual, 1.0)
	})
}

func TestServoError(t *testing.T) {
	ctx := context.Background()
	_, err := NewController(nil, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)

	s := &inject.Servo{
		MoveFunc: func(ctx context.Context, position float64) error {
			return errors.New("servo unplugged")
		},
	}
	c, err := NewController(s, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	err = c.Update(ctx)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "servo unplugged")
}
