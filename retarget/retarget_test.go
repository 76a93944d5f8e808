package retarget

import (
	"errors"
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/num/quat"

	"github.com/vrmkit/avatar/animation"
	"github.com/vrmkit/avatar/humanoid"
	"github.com/vrmkit/avatar/logging"
	"github.com/vrmkit/avatar/scenegraph"
	"github.com/vrmkit/avatar/spatialmath"
)

// makeSkeleton builds root -> hips -> spine -> head with the given hips local transform and maps
// the requested bones to "<prefix>_<Bone>" node names.
func makeSkeleton(t *testing.T, prefix string, hips spatialmath.Transform, bones ...humanoid.Bone) *humanoid.Skeleton {
	t.Helper()
	g := scenegraph.NewGraph(prefix)
	root, err := g.AddNode(prefix+"_Root", nil, spatialmath.NewZeroTransform())
	test.That(t, err, test.ShouldBeNil)
	h, err := g.AddNode(prefix+"_hips", root, hips)
	test.That(t, err, test.ShouldBeNil)
	s, err := g.AddNode(prefix+"_spine", h, spatialmath.NewTransform(
		r3.Vector{Y: 0.3}, spatialmath.QuatFromAxisAngle(r3.Vector{Z: 1}, 0.2),
	))
	test.That(t, err, test.ShouldBeNil)
	_, err = g.AddNode(prefix+"_head", s, spatialmath.NewTransform(
		r3.Vector{Y: 0.4}, spatialmath.QuatFromAxisAngle(r3.Vector{X: 1, Y: 1}, 0.3),
	))
	test.That(t, err, test.ShouldBeNil)

	bm := humanoid.BoneMap{}
	for _, b := range bones {
		bm[b] = prefix + "_" + string(b)
	}
	skel := humanoid.NewSkeleton(prefix, g, root, bm, logging.NewTestLogger(t))
	test.That(t, skel.CaptureRest(), test.ShouldBeNil)
	return skel
}

func TestTransformIdentity(t *testing.T) {
	tr := Transformation{
		SrcRest:      spatialmath.QuatFromAxisAngle(r3.Vector{X: 1}, 0.4),
		SrcRestWorld: spatialmath.QuatFromAxisAngle(r3.Vector{X: 1, Z: 1}, 1.1),
		DstRest:      spatialmath.QuatFromAxisAngle(r3.Vector{Y: 1}, -0.7),
		DstRestWorld: spatialmath.QuatFromAxisAngle(r3.Vector{Y: 1, Z: 2}, 2.3),
	}
	out := tr.Transform(tr.SrcRest)
	test.That(t, spatialmath.QuaternionAlmostEqual(out, tr.DstRest, 1e-9), test.ShouldBeTrue)

	same := Transformation{
		SrcRest: tr.SrcRest, SrcRestWorld: tr.SrcRestWorld,
		DstRest: tr.SrcRest, DstRestWorld: tr.SrcRestWorld,
	}
	pose := spatialmath.QuatFromAxisAngle(r3.Vector{X: 3, Y: 1, Z: -1}, 0.9)
	test.That(t, spatialmath.QuaternionAlmostEqual(same.Transform(pose), pose, 1e-9), test.ShouldBeTrue)
}

func TestHipsTransformation(t *testing.T) {
	h := HipsTransformation{SrcRestWorld: r3.Vector{Y: 2}, DstRestWorld: r3.Vector{Y: 1}}
	scale, err := h.Scale()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, scale, test.ShouldAlmostEqual, 0.5)
	out := h.Transform(r3.Vector{Y: 3})
	test.That(t, spatialmath.R3VectorAlmostEqual(out, r3.Vector{Y: 1.5}, 1e-12), test.ShouldBeTrue)

	d := HipsTransformation{SrcRestWorld: r3.Vector{X: 2, Y: 2, Z: 2}}
	test.That(t, d.Delta(r3.Vector{X: 1, Y: 1, Z: 1}), test.ShouldResemble, r3.Vector{X: -1, Y: -1, Z: -1})

	flat := HipsTransformation{SrcRestWorld: r3.Vector{X: 1}, DstRestWorld: r3.Vector{Y: 1}}
	scale, err = flat.Scale()
	test.That(t, errors.Is(err, ErrDegenerateRestHeight), test.ShouldBeTrue)
	test.That(t, scale, test.ShouldEqual, 1.)
	out = flat.Transform(r3.Vector{X: 2, Y: 0.5})
	test.That(t, spatialmath.R3VectorAlmostEqual(out, r3.Vector{X: 1, Y: 1.5}, 1e-12), test.ShouldBeTrue)
}

func TestNewTable(t *testing.T) {
	logger := logging.NewTestLogger(t)
	a := makeSkeleton(t, "A", spatialmath.NewTransformFromPoint(r3.Vector{Y: 2}), humanoid.Hips, humanoid.Spine)
	b := makeSkeleton(t, "B", spatialmath.NewTransformFromPoint(r3.Vector{Y: 1}), humanoid.Hips, humanoid.Head)

	table, err := NewTable(a, b, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, table.Len(), test.ShouldEqual, 1)

	bHips, err := b.Bone(humanoid.Hips)
	test.That(t, err, test.ShouldBeNil)
	bHead, err := b.Bone(humanoid.Head)
	test.That(t, err, test.ShouldBeNil)
	_, ok := table.Rotation(bHips.ID())
	test.That(t, ok, test.ShouldBeTrue)
	_, ok = table.Rotation(bHead.ID())
	test.That(t, ok, test.ShouldBeFalse)
	h, ok := table.Hips(bHips.ID())
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, h.SrcRestWorld, test.ShouldResemble, r3.Vector{Y: 2})
	test.That(t, h.DstRestWorld, test.ShouldResemble, r3.Vector{Y: 1})

	t.Run("full overlap", func(t *testing.T) {
		c := makeSkeleton(t, "C", spatialmath.NewZeroTransform(), humanoid.Hips, humanoid.Spine, humanoid.Head)
		d := makeSkeleton(t, "D", spatialmath.NewZeroTransform(), humanoid.Hips, humanoid.Spine, humanoid.Head)
		table, err := NewTable(c, d, logger)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, table.Len(), test.ShouldEqual, 3)
	})

	t.Run("requires captured rest", func(t *testing.T) {
		g := scenegraph.NewGraph("late")
		root, err := g.AddNode("root", nil, spatialmath.NewZeroTransform())
		test.That(t, err, test.ShouldBeNil)
		late := humanoid.NewSkeleton("late", g, root, humanoid.BoneMap{}, logger)
		_, err = NewTable(a, late, logger)
		test.That(t, errors.Is(err, ErrRestNotCaptured), test.ShouldBeTrue)
	})
}

func TestCommitWithoutTransformation(t *testing.T) {
	logger := logging.NewTestLogger(t)
	a := makeSkeleton(t, "A", spatialmath.NewZeroTransform(), humanoid.Hips)
	b := makeSkeleton(t, "B", spatialmath.NewZeroTransform(), humanoid.Hips)
	table, err := NewTable(a, b, logger)
	test.That(t, err, test.ShouldBeNil)

	base, err := animation.NewQuatCurve([]float64{0}, []quat.Number{
		spatialmath.QuatFromAxisAngle(r3.Vector{X: 1}, 1),
	}, animation.Linear)
	test.That(t, err, test.ShouldBeNil)
	curve, err := NewRotationCurve(base, table)
	test.That(t, err, test.ShouldBeNil)

	head, ok := b.Index().FindByName("B_head")
	test.That(t, ok, test.ShouldBeTrue)
	before := head.Local()

	ev := curve.NewEvaluator()
	ev.Push(curve.Sample(0), 1)
	ev.Blend()
	err = ev.Commit(head)
	test.That(t, errors.Is(err, ErrNoTransformation), test.ShouldBeTrue)
	test.That(t, head.Local(), test.ShouldResemble, before)

	hipsCurve, err := NewHipsTranslationCurve(base, table)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, hipsCurve, test.ShouldBeNil)
	vec, err := animation.NewVec3Curve(animation.Translation, []float64{0}, []r3.Vector{{Y: 4}}, animation.Step)
	test.That(t, err, test.ShouldBeNil)
	hipsCurve, err = NewHipsTranslationCurve(vec, table)
	test.That(t, err, test.ShouldBeNil)
	hev := hipsCurve.NewEvaluator()
	hev.Push(hipsCurve.Sample(0), 1)
	err = hev.Commit(head)
	test.That(t, errors.Is(err, ErrNoTransformation), test.ShouldBeTrue)
	test.That(t, head.Local(), test.ShouldResemble, before)
}

func TestRetargetClipEndToEnd(t *testing.T) {
	logger := logging.NewTestLogger(t)
	a := makeSkeleton(t, "A", spatialmath.NewTransformFromPoint(r3.Vector{Y: 2}), humanoid.Hips, humanoid.Spine)
	b := makeSkeleton(t, "B", spatialmath.NewTransform(
		r3.Vector{Y: 1}, spatialmath.QuatFromAxisAngle(r3.Vector{Y: 1}, math.Pi/2),
	), humanoid.Hips, humanoid.Head)
	table, err := NewTable(a, b, logger)
	test.That(t, err, test.ShouldBeNil)

	turn, err := animation.NewQuatCurve([]float64{0, 1}, []quat.Number{
		spatialmath.QuatFromAxisAngle(r3.Vector{X: 1}, math.Pi/2),
		spatialmath.QuatFromAxisAngle(r3.Vector{X: 1}, math.Pi/2),
	}, animation.Linear)
	test.That(t, err, test.ShouldBeNil)
	lift, err := animation.NewVec3Curve(animation.Translation, []float64{0, 1}, []r3.Vector{{Y: 3}, {Y: 3}}, animation.Linear)
	test.That(t, err, test.ShouldBeNil)
	spineTurn, err := animation.NewQuatCurve([]float64{0}, []quat.Number{spatialmath.IdentityQuat()}, animation.Step)
	test.That(t, err, test.ShouldBeNil)
	spineMove, err := animation.NewVec3Curve(animation.Translation, []float64{0}, []r3.Vector{{X: 9}}, animation.Step)
	test.That(t, err, test.ShouldBeNil)

	src := animation.NewClip("pose")
	src.AddCurve("A_hips", turn)
	src.AddCurve("A_hips", lift)
	src.AddCurve("A_spine", spineTurn)
	src.AddCurve("Tail", spineMove)

	out, err := Clip(src, a, b, table, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Targets(), test.ShouldResemble, []string{"A_spine", "B_hips", "Tail"})
	hipsCurves := out.Curves("B_hips")
	test.That(t, hipsCurves, test.ShouldHaveLength, 2)
	_, isRotation := hipsCurves[0].(*RotationCurve)
	test.That(t, isRotation, test.ShouldBeTrue)
	_, isHips := hipsCurves[1].(*HipsTranslationCurve)
	test.That(t, isHips, test.ShouldBeTrue)
	test.That(t, out.Curves("Tail")[0], test.ShouldEqual, spineMove)

	player := animation.NewPlayer(logger)
	player.Play(out)
	player.Advance(0.5)
	test.That(t, player.Evaluate(b.Index()), test.ShouldBeNil)

	hips, err := b.Bone(humanoid.Hips)
	test.That(t, err, test.ShouldBeNil)
	// rest is identity on A, so the world-space pose Rx(90) lands on top of B's rest Ry(90):
	// Rx(90) * Ry(90) = (0.5, 0.5, 0.5, 0.5)
	expected := quat.Number{Real: 0.5, Imag: 0.5, Jmag: 0.5, Kmag: 0.5}
	test.That(t, spatialmath.QuaternionAlmostEqual(hips.Local().Rotation, expected, 1e-9), test.ShouldBeTrue)
	test.That(t, spatialmath.R3VectorAlmostEqual(hips.Local().Translation, r3.Vector{Y: 1.5}, 1e-9), test.ShouldBeTrue)
}

func TestSwitchSourceSkeleton(t *testing.T) {
	logger := logging.NewTestLogger(t)
	a := makeSkeleton(t, "A", spatialmath.NewZeroTransform(), humanoid.Hips)
	c := makeSkeleton(t, "C", spatialmath.NewTransform(
		r3.Vector{}, spatialmath.QuatFromAxisAngle(r3.Vector{Z: 1}, math.Pi/2),
	), humanoid.Hips)
	b := makeSkeleton(t, "B", spatialmath.NewZeroTransform(), humanoid.Hips)

	// each clip holds its own skeleton's rest pose, which must land on B's rest pose
	restClip := func(src *humanoid.Skeleton) *animation.Clip {
		node, rest, ok := src.BoneRest(humanoid.Hips)
		test.That(t, ok, test.ShouldBeTrue)
		curve, err := animation.NewQuatCurve([]float64{0}, []quat.Number{rest.Local.Rotation}, animation.Step)
		test.That(t, err, test.ShouldBeNil)
		clip := animation.NewClip(src.Name())
		clip.AddCurve(node.Name(), curve)
		table, err := NewTable(src, b, logger)
		test.That(t, err, test.ShouldBeNil)
		out, err := Clip(clip, src, b, table, logger)
		test.That(t, err, test.ShouldBeNil)
		return out
	}

	hips, err := b.Bone(humanoid.Hips)
	test.That(t, err, test.ShouldBeNil)
	player := animation.NewPlayer(logger)

	fromA := player.Play(restClip(a))
	test.That(t, player.Evaluate(b.Index()), test.ShouldBeNil)
	test.That(t, spatialmath.QuaternionAlmostEqual(hips.Local().Rotation, spatialmath.IdentityQuat(), 1e-9), test.ShouldBeTrue)

	fromA.Weight = 0
	player.Play(restClip(c))
	test.That(t, player.Evaluate(b.Index()), test.ShouldBeNil)
	test.That(t, spatialmath.QuaternionAlmostEqual(hips.Local().Rotation, spatialmath.IdentityQuat(), 1e-9), test.ShouldBeTrue)

	// and back again
	fromA.Weight = 1
	player.Playing()[1].Weight = 0
	test.That(t, player.Evaluate(b.Index()), test.ShouldBeNil)
	test.That(t, spatialmath.QuaternionAlmostEqual(hips.Local().Rotation, spatialmath.IdentityQuat(), 1e-9), test.ShouldBeTrue)
}

func TestDegenerateHipsHeightLog(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	a := makeSkeleton(t, "A", spatialmath.NewZeroTransform(), humanoid.Hips)
	b := makeSkeleton(t, "B", spatialmath.NewTransformFromPoint(r3.Vector{Y: 1}), humanoid.Hips)
	_, err := NewTable(a, b, logger)
	test.That(t, err, test.ShouldBeNil)

	warnings := logs.FilterMessage("using unit hips scale").All()
	test.That(t, warnings, test.ShouldHaveLength, 1)
	fields := warnings[0].ContextMap()
	test.That(t, fields["reason"], test.ShouldContainSubstring, ErrDegenerateRestHeight.Error())
	_, verbose := fields["reasonVerbose"]
	test.That(t, verbose, test.ShouldBeFalse)
}
