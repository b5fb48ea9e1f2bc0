package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := NewApp(&out, &errOut)
	err := app.Run(append([]string{"firecontrol"}, args...))
	return out.String(), err
}

func writeConfig(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	test.That(t, os.WriteFile(path, []byte(contents), 0o600), test.ShouldBeNil)
	return path
}

func TestCheck(t *testing.T) {
	out, err := runApp(t, "check")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "config OK")
	test.That(t, out, test.ShouldContainSubstring, "blue of blue (72, -36), red (72, 36)")
	test.That(t, out, test.ShouldContainSubstring, "localhost:8090 every 100ms")

	path := writeConfig(t, "robot.yaml", "fire_control:\n  goal: red\ntelemetry:\n  disabled: true\n")
	out, err = runApp(t, "--config", path, "check")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "red of blue")
	test.That(t, out, test.ShouldContainSubstring, "telemetry: disabled")

	path = writeConfig(t, "robot.json", `{"fire_control": {"goal": "green"}}`)
	_, err = runApp(t, "-c", path, "check")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "green")
}

func TestLookup(t *testing.T) {
	out, err := runApp(t, "lookup", "24")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "distance 24 in: launcher 1150 ticks/s, deflector 0.3")

	// past the last launcher breakpoint the launcher is off
	out, err = runApp(t, "lookup", "100")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "launcher 0 ticks/s, deflector 0.9")

	_, err = runApp(t, "lookup")
	test.That(t, err, test.ShouldNotBeNil)
	_, err = runApp(t, "lookup", "far")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestRun(t *testing.T) {
	path := writeConfig(t, "robot.json", `{"telemetry": {"disabled": true}}`)
	out, err := runApp(t, "-c", path, "run", "--duration", "300ms")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "cycles=")
	test.That(t, out, test.ShouldContainSubstring, "goal=blue")
	test.That(t, out, test.ShouldContainSubstring, "fly1: ")

	t.Run("goal override", func(t *testing.T) {
		out, err := runApp(t, "-c", path, "run", "--duration", "100ms", "--goal", "red", "--shoot=false")
		test.That(t, err, test.ShouldBeNil)
		test.That(t, out, test.ShouldContainSubstring, "goal=red")

		_, err = runApp(t, "-c", path, "run", "--duration", "100ms", "--goal", "green")
		test.That(t, err, test.ShouldNotBeNil)
	})
}
