package utils

import (
	"math"
	"testing"

	"go.viam.com/test"
)

func TestErrors(t *testing.T) {
	err := NewUnexpectedTypeError[float64]("x")
	test.That(t, err.Error(), test.ShouldEqual, "expected float64 but got string")

	err = NewOutOfRangeError("frequency_hz", 500, 0, 200)
	test.That(t, err.Error(), test.ShouldEqual, "frequency_hz must be within [0, 200], got 500")

	err = NewNonPositiveError("vision_noise", -1)
	test.That(t, err.Error(), test.ShouldContainSubstring, "vision_noise must be a finite value greater than zero")
}

func TestMath(t *testing.T) {
	test.That(t, DegToRad(180), test.ShouldAlmostEqual, math.Pi)
	test.That(t, RadToDeg(math.Pi/2), test.ShouldAlmostEqual, 90.0)

	test.That(t, Clamp(2, 0, 1), test.ShouldEqual, 1.0)
	test.That(t, Clamp(-2, 0, 1), test.ShouldEqual, 0.0)
	test.That(t, Clamp(0.4, 0, 1), test.ShouldEqual, 0.4)
	test.That(t, ClampSymmetric(-3, 0.75), test.ShouldEqual, -0.75)
	test.That(t, ClampSymmetric(3, -0.75), test.ShouldEqual, 0.75)

	test.That(t, Sign(-0.2), test.ShouldEqual, -1.0)
	test.That(t, Sign(0), test.ShouldEqual, 0.0)
	test.That(t, Sign(5), test.ShouldEqual, 1.0)

	test.That(t, IsFinite(1), test.ShouldBeTrue)
	test.That(t, IsFinite(math.NaN()), test.ShouldBeFalse)
	test.That(t, IsFinite(math.Inf(-1)), test.ShouldBeFalse)
}
