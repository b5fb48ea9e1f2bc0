package fake

import (
	"context"
	"testing"

	"go.viam.com/test"

	"github.com/ftcshooter/firecontrol/logging"
)

func TestServo(t *testing.T) {
	ctx := context.Background()
	s := NewServo("hood", logging.NewTestLogger(t))

	test.That(t, s.Move(ctx, 0.45), test.ShouldBeNil)
	pos, err := s.Position(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pos, test.ShouldEqual, 0.45)

	err = s.Move(ctx, 1.2)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "servo named hood")
	test.That(t, s.Move(ctx, -0.1), test.ShouldNotBeNil)

	pos, err = s.Position(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pos, test.ShouldEqual, 0.45)
	test.That(t, s.Moves(), test.ShouldEqual, 1)
	test.That(t, s.Stop(ctx), test.ShouldBeNil)
}
