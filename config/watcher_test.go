package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/ftcshooter/firecontrol/logging"
	"github.com/ftcshooter/firecontrol/services/firecontrol"
)

// waitForGoal drains the watcher until a config selecting goal arrives. A single save can fire
// more than one write event.
func waitForGoal(t *testing.T, w *Watcher, goal string) *Config {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-w.Config():
			if cfg.FireControl.Goal == goal {
				return cfg
			}
		case <-timeout:
			t.Fatalf("timed out waiting for a config selecting %q", goal)
			return nil
		}
	}
}

func TestWatcher(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	path := filepath.Join(t.TempDir(), "robot.json")
	test.That(t, os.WriteFile(path, []byte(`{"fire_control": {"goal": "blue"}}`), 0o600), test.ShouldBeNil)

	w, err := NewWatcher(path, logger)
	test.That(t, err, test.ShouldBeNil)
	defer func() {
		test.That(t, w.Close(), test.ShouldBeNil)
	}()

	// unrelated files in the same directory are ignored
	other := filepath.Join(filepath.Dir(path), "notes.txt")
	test.That(t, os.WriteFile(other, []byte("hello"), 0o600), test.ShouldBeNil)

	test.That(t, os.WriteFile(path, []byte(`{"fire_control": {"goal": "red"}}`), 0o600), test.ShouldBeNil)
	cfg := waitForGoal(t, w, firecontrol.GoalRed)
	test.That(t, cfg.Validate(), test.ShouldBeNil)

	test.That(t, os.WriteFile(path, []byte(`{"fire_control": {"goal": "green"}}`), 0o600), test.ShouldBeNil)
	test.That(t, os.WriteFile(path, []byte(`{"fire_control": {"goal": "blue"}}`), 0o600), test.ShouldBeNil)
	waitForGoal(t, w, firecontrol.GoalBlue)
	test.That(t, logs.FilterMessageSnippet("ignoring changed config").Len(), test.ShouldBeGreaterThanOrEqualTo, 1)
}

func TestWatcherMissingDirectory(t *testing.T) {
	_, err := NewWatcher(filepath.Join(t.TempDir(), "nope", "robot.json"), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
}

type goalRecorder struct {
	goals    map[string]firecontrol.GoalConfig
	selected string
	err      error
}

func (g *goalRecorder) UpdateGoals(goals map[string]firecontrol.GoalConfig, selected string) error {
	if g.err != nil {
		return g.err
	}
	g.goals, g.selected = goals, selected
	return nil
}

func TestApplyLive(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	registry := logging.NewRegistry()
	turretLogger := registry.Register("fire_control.turret", logging.NewBlankLogger("fire_control.turret"))
	launcherLogger := registry.Register("fire_control.launcher", logging.NewBlankLogger("fire_control.launcher"))

	prev := Default()
	next := Default()
	next.FireControl.Goal = firecontrol.GoalRed
	next.Log = []logging.LoggerPatternConfig{{Pattern: "fire_control.turret", Level: "debug"}}

	rec := &goalRecorder{}
	test.That(t, ApplyLive(prev, next, rec, registry, logger), test.ShouldBeNil)
	test.That(t, rec.selected, test.ShouldEqual, firecontrol.GoalRed)
	test.That(t, rec.goals, test.ShouldResemble, next.FireControl.Goals)
	test.That(t, turretLogger.GetLevel(), test.ShouldEqual, logging.DEBUG)
	test.That(t, launcherLogger.GetLevel(), test.ShouldEqual, logging.INFO)
	test.That(t, logs.FilterMessageSnippet("apply on restart").Len(), test.ShouldEqual, 0)

	t.Run("restart-only changes are reported", func(t *testing.T) {
		changed := Default()
		changed.FireControl.FrequencyHz = 100
		test.That(t, ApplyLive(next, changed, rec, registry, logger), test.ShouldBeNil)
		test.That(t, logs.FilterMessageSnippet("apply on restart").Len(), test.ShouldEqual, 1)
		test.That(t, turretLogger.GetLevel(), test.ShouldEqual, logging.INFO)
	})

	t.Run("goal errors are returned", func(t *testing.T) {
		rec.err = errors.New("unknown goal")
		err := ApplyLive(nil, next, rec, registry, logger)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "unknown goal")
	})
}
