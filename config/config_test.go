package config

import (
	"strings"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/vrmkit/avatar/humanoid"
	"github.com/vrmkit/avatar/logging"
	"github.com/vrmkit/avatar/lookat"
	"github.com/vrmkit/avatar/springbone"
)

func TestReadRig(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	rig, err := ReadRig("testdata/rig.json")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rig.Name, test.ShouldEqual, "tall")
	test.That(t, rig.Nodes, test.ShouldHaveLength, 9)

	m, err := rig.Build(logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.Graph.Len(), test.ShouldEqual, 10)
	test.That(t, m.Root.Name(), test.ShouldEqual, "tall")
	test.That(t, m.Skeleton.Bones(), test.ShouldResemble, []humanoid.Bone{
		humanoid.Hips, humanoid.Spine, humanoid.Head, humanoid.LeftEye, humanoid.RightEye,
	})
	test.That(t, logs.FilterMessage("ignoring unknown humanoid bones").Len(), test.ShouldEqual, 1)

	head, rest, ok := m.Skeleton.BoneRest(humanoid.Head)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, head.Name(), test.ShouldEqual, "J_Head")
	test.That(t, rest.World.Translation.Y, test.ShouldAlmostEqual, 1.7)
	test.That(t, rest.Local.Rotation.Jmag, test.ShouldAlmostEqual, 0.258819, 1e-6)

	reg := rig.SpringRegistry(m, logger)
	test.That(t, reg.Len(), test.ShouldEqual, 1)
	chain := reg.Chains()[0]
	test.That(t, chain.Name, test.ShouldEqual, "hair")
	test.That(t, chain.Joints, test.ShouldHaveLength, 3)
	test.That(t, chain.Center.Name(), test.ShouldEqual, "J_Hips")
	test.That(t, chain.Colliders, test.ShouldHaveLength, 2)
	test.That(t, chain.Colliders[0].Shape, test.ShouldResemble, springbone.Sphere{Radius: 0.1})

	test.That(t, chain.Props[0], test.ShouldResemble, springbone.JointProps{
		DragForce: 0.4, GravityDir: r3.Vector{Y: -1}, GravityPower: 0.5, HitRadius: 0.02, Stiffness: 1,
	})
	test.That(t, chain.Props[1].GravityDir, test.ShouldResemble, r3.Vector{Y: -1})
	test.That(t, chain.Props[2], test.ShouldResemble, springbone.DefaultJointProps())

	props := rig.LookAt.Properties()
	test.That(t, props.Type, test.ShouldEqual, lookat.TypeBone)
	test.That(t, props.OffsetFromHeadBone, test.ShouldResemble, r3.Vector{Y: 0.06})
	test.That(t, props.HorizontalOuter, test.ShouldResemble, lookat.RangeMap{InputMaxValue: 90, OutputScale: 12})
}

func TestReadClip(t *testing.T) {
	logger := logging.NewTestLogger(t)
	clip, err := ReadClip("testdata/clip.json")
	test.That(t, err, test.ShouldBeNil)

	m, err := clip.Build(logger)
	test.That(t, err, test.ShouldBeNil)
	_, rest, ok := m.Skeleton.BoneRest(humanoid.Hips)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, rest.World.Translation, test.ShouldResemble, r3.Vector{Y: 2})

	anim, err := clip.Animation()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, anim.Name(), test.ShouldEqual, "nod")
	test.That(t, anim.Targets(), test.ShouldResemble, []string{"head", "hips", "prop"})
	test.That(t, anim.NumCurves(), test.ShouldEqual, 4)
	test.That(t, anim.Duration(), test.ShouldEqual, 1.)
	mid := anim.Curves("hips")[0].Sample(0.5)
	test.That(t, mid.Vector.Y, test.ShouldAlmostEqual, 2.5)

	_, err = ReadClip("testdata/missing.json")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestRigValidation(t *testing.T) {
	for _, tc := range []struct {
		name     string
		json     string
		contains []string
	}{
		{"no nodes", `{"name": "x", "humanoid": {"humanBones": {}}}`, []string{"rig", "nodes"}},
		{"unnamed node", `{"nodes": [{"translation": [0, 1, 0]}]}`, []string{"rig.nodes.0", "name"}},
		{
			"forward parent",
			`{"nodes": [{"name": "a", "parent": 1}, {"name": "b"}]}`,
			[]string{"rig.nodes.0", "earlier node"},
		},
		{"short rotation", `{"nodes": [{"name": "a", "rotation": [0, 0, 1]}]}`, []string{"rotation", "4 components"}},
		{
			"bone on unknown node",
			`{"nodes": [{"name": "a"}], "humanoid": {"humanBones": {"hips": {"node": "b"}}}}`,
			[]string{"rig.humanoid.humanBones.hips", "unknown node"},
		},
		{
			"two shapes",
			`{"nodes": [{"name": "a"}], "springBone": {"colliders": [{"node": "a", "shape": {"sphere": {"radius": 1}, "capsule": {"radius": 1}}}], "springs": []}}`,
			[]string{"rig.springBone.colliders.0", "exactly one"},
		},
		{
			"drag out of range",
			`{"nodes": [{"name": "a"}], "springBone": {"springs": [{"joints": [{"node": "a", "dragForce": 2}]}]}}`,
			[]string{"rig.springBone.springs.0.joints.0", "dragForce"},
		},
		{
			"collider group out of range",
			`{"nodes": [{"name": "a"}], "springBone": {"springs": [{"joints": [{"node": "a"}], "colliderGroups": [3]}]}}`,
			[]string{"rig.springBone.springs.0", "collider group 3"},
		},
		{
			"bad look-at type",
			`{"nodes": [{"name": "a"}], "lookAt": {"type": "blink"}}`,
			[]string{"rig.lookAt", "blink"},
		},
		{"unknown field", `{"nodes": [{"name": "a"}], "meshes": []}`, []string{"meshes"}},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := RigFromReader("rig", strings.NewReader(tc.json))
			test.That(t, err, test.ShouldNotBeNil)
			for _, s := range tc.contains {
				test.That(t, err.Error(), test.ShouldContainSubstring, s)
			}
		})
	}
}

func TestClipValidation(t *testing.T) {
	for _, tc := range []struct {
		name     string
		channel  string
		contains string
	}{
		{"bad path", `{"node": "a", "path": "weights", "times": [0], "values": [[0]]}`, "weights"},
		{"bad interpolation", `{"node": "a", "path": "scale", "interpolation": "CUBICSPLINE", "times": [0], "values": [[1, 1, 1]]}`, "CUBICSPLINE"},
		{"missing times", `{"node": "a", "path": "scale", "times": [], "values": []}`, "times"},
		{"value count", `{"node": "a", "path": "scale", "times": [0, 1], "values": [[1, 1, 1]]}`, "1 values for 2 times"},
		{"rotation width", `{"node": "a", "path": "rotation", "times": [0], "values": [[0, 0, 1]]}`, "4 components"},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			doc := `{"name": "c", "nodes": [{"name": "a"}], "humanoid": {"humanBones": {}}, "channels": [` + tc.channel + `]}`
			_, err := ClipFromReader("clip", strings.NewReader(doc))
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.contains)
		})
	}
}

func TestSchemaJSON(t *testing.T) {
	b, err := SchemaJSON("rig")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(b), test.ShouldContainSubstring, "humanBones")
	test.That(t, string(b), test.ShouldContainSubstring, "gravityPower")

	b, err = SchemaJSON("clip")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(b), test.ShouldContainSubstring, "interpolation")

	_, err = SchemaJSON("scene")
	test.That(t, err, test.ShouldNotBeNil)
}
