package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

const (
	testRig  = "../config/testdata/rig.json"
	testClip = "../config/testdata/clip.json"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := NewApp(&out, &errOut)
	err := app.Run(append([]string{"avatar"}, args...))
	return out.String(), err
}

func TestInspect(t *testing.T) {
	out, err := run(t, "inspect", "--rig", testRig)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "J_Hips")
	test.That(t, out, test.ShouldContainSubstring, "leftEye")
	test.That(t, out, test.ShouldContainSubstring, "J_Hair_0 > J_Hair_1 > J_Hair_2")

	_, err = run(t, "inspect")
	test.That(t, err, test.ShouldNotBeNil)
	_, err = run(t, "--log-level", "loud", "inspect", "--rig", testRig)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestRetarget(t *testing.T) {
	out, err := run(t, "retarget", "--rig", testRig, "--clip", testClip, "--time", "1")
	test.That(t, err, test.ShouldBeNil)
	// hips rise 1 above a rest height of 2 on the clip, so half that on a rig with rest height 1
	test.That(t, out, test.ShouldContainSubstring, "(0.000, 1.500, 0.000)")
	test.That(t, out, test.ShouldContainSubstring, "(0.707, 0.000, 0.000, 0.707)")
}

func TestSimulate(t *testing.T) {
	out, err := run(t, "simulate", "--rig", testRig, "--frames", "10")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "J_Hair_2")
	test.That(t, out, test.ShouldContainSubstring, "MEAN TIP STEP")

	out, err = run(t, "--debug", "simulate", "--rig", testRig, "--clip", testClip, "--frames", "5", "--look-at", "1,1.7,1")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "hair")

	_, err = run(t, "simulate", "--rig", testRig, "--look-at", "1,2")
	test.That(t, err, test.ShouldNotBeNil)
	_, err = run(t, "simulate", "--rig", testRig, "--rate", "0")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestLogFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "avatar.log")
	_, err := run(t, "--log-file", logFile, "simulate", "--rig", testRig, "--frames", "2")
	test.That(t, err, test.ShouldBeNil)
	b, err := os.ReadFile(logFile)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(b), test.ShouldContainSubstring, "simulation finished")
}

func TestSchema(t *testing.T) {
	out, err := run(t, "schema", "--kind", "clip")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "channels")

	_, err = run(t, "schema", "--kind", "scene")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestParseVec(t *testing.T) {
	v, err := parseVec(" 1, -2.5,3 ")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v.X, test.ShouldEqual, 1.)
	test.That(t, v.Y, test.ShouldEqual, -2.5)
	test.That(t, v.Z, test.ShouldEqual, 3.)
	_, err = parseVec("1,a,3")
	test.That(t, err, test.ShouldNotBeNil)
}
