package logging

import (
	"testing"

	"go.viam.com/test"
)

func TestLevelFromString(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want Level
	}{
		{"debug", DEBUG},
		{"INFO", INFO},
		{"Warn", WARN},
		{"warning", WARN},
		{"error", ERROR},
	} {
		got, err := LevelFromString(tc.in)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, got, test.ShouldEqual, tc.want)
	}

	_, err := LevelFromString("loud")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "loud")
}

func TestLevelJSON(t *testing.T) {
	data, err := WARN.MarshalJSON()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(data), test.ShouldEqual, `"warn"`)

	var lvl Level
	test.That(t, lvl.UnmarshalJSON([]byte(`"error"`)), test.ShouldBeNil)
	test.That(t, lvl, test.ShouldEqual, ERROR)
	test.That(t, lvl.UnmarshalJSON([]byte(`"nope"`)), test.ShouldNotBeNil)
}

func TestObservedLogger(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)

	logger.Debugw("cycle", "n", 1)
	logger.Sublogger("turret").Infof("aiming %v", true)
	test.That(t, logs.Len(), test.ShouldEqual, 2)
	test.That(t, logs.FilterMessage("aiming true").Len(), test.ShouldEqual, 1)
	test.That(t, logs.FilterMessage("aiming true").All()[0].LoggerName, test.ShouldEqual, "turret")

	logger.SetLevel(WARN)
	test.That(t, logger.GetLevel(), test.ShouldEqual, WARN)
	logger.Info("dropped")
	test.That(t, logs.Len(), test.ShouldEqual, 2)
	logger.Warn("kept")
	test.That(t, logs.Len(), test.ShouldEqual, 3)
}

func TestValidatePattern(t *testing.T) {
	test.That(t, ValidatePattern("firecontrol"), test.ShouldBeTrue)
	test.That(t, ValidatePattern("firecontrol.turret"), test.ShouldBeTrue)
	test.That(t, ValidatePattern("*.bearing"), test.ShouldBeTrue)
	test.That(t, ValidatePattern("fire_control-1.*"), test.ShouldBeTrue)
	test.That(t, ValidatePattern(""), test.ShouldBeFalse)
	test.That(t, ValidatePattern("turret."), test.ShouldBeFalse)
	test.That(t, ValidatePattern("turret..launcher"), test.ShouldBeFalse)
}

func TestRegistryUpdateConfig(t *testing.T) {
	reg := NewRegistry()
	turret := reg.Register("firecontrol.turret", NewBlankLogger("turret"))
	launcher := reg.Register("firecontrol.launcher", NewBlankLogger("launcher"))
	test.That(t, reg.Names(), test.ShouldResemble, []string{"firecontrol.launcher", "firecontrol.turret"})

	// second registration under the same name returns the first logger
	again := reg.Register("firecontrol.turret", NewBlankLogger("other"))
	test.That(t, again, test.ShouldEqual, turret)

	errLogger, logs := NewObservedTestLogger(t)
	err := reg.UpdateConfig([]LoggerPatternConfig{
		{Pattern: "firecontrol.*", Level: "warn"},
		{Pattern: "firecontrol.turret", Level: "debug"},
		{Pattern: "bad..pattern", Level: "error"},
	}, errLogger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, turret.GetLevel(), test.ShouldEqual, DEBUG)
	test.That(t, launcher.GetLevel(), test.ShouldEqual, WARN)
	test.That(t, logs.FilterMessage("failed to validate a pattern").Len(), test.ShouldEqual, 1)

	// loggers registered after the update pick up the current patterns
	deflector := reg.Register("firecontrol.deflector", NewBlankLogger("deflector"))
	test.That(t, deflector.GetLevel(), test.ShouldEqual, WARN)

	test.That(t, reg.UpdateConfig(nil, errLogger), test.ShouldBeNil)
	test.That(t, turret.GetLevel(), test.ShouldEqual, INFO)

	err = reg.UpdateConfig([]LoggerPatternConfig{{Pattern: "turret", Level: "shouty"}}, errLogger)
	test.That(t, err, test.ShouldNotBeNil)

	_, ok := reg.LoggerNamed("firecontrol.launcher")
	test.That(t, ok, test.ShouldBeTrue)
	_, ok = reg.LoggerNamed("missing")
	test.That(t, ok, test.ShouldBeFalse)
}

func TestSubloggerLevels(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	sub := logger.Sublogger("launcher")
	sub.SetLevel(ERROR)
	test.That(t, logger.GetLevel(), test.ShouldEqual, DEBUG)

	sub.Warn("dropped")
	logger.Debug("kept")
	test.That(t, logs.Len(), test.ShouldEqual, 1)

	logger.SetLevel(ERROR)
	deeper := sub.Sublogger("motor")
	deeper.SetLevel(DEBUG)
	deeper.Debug("kept")
	test.That(t, logs.FilterLoggerName("launcher.motor").Len(), test.ShouldEqual, 1)
}

func TestWildcardPatterns(t *testing.T) {
	reg := NewRegistry()
	bearing := reg.Register("fire_control.turret.bearing", NewBlankLogger("bearing"))
	dotted := reg.Register("fire_control.a.b", NewBlankLogger("ab"))
	literal := reg.Register("fire_controlXturret", NewBlankLogger("x"))

	err := reg.UpdateConfig([]LoggerPatternConfig{
		{Pattern: "fire_control.*", Level: "error"},
		{Pattern: "*.bearing", Level: "debug"},
		{Pattern: "fire_control.turret", Level: "warn"},
	}, NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, bearing.GetLevel(), test.ShouldEqual, DEBUG)
	test.That(t, dotted.GetLevel(), test.ShouldEqual, ERROR)
	// dots are literal
	test.That(t, literal.GetLevel(), test.ShouldEqual, INFO)
}
