package scenegraph

import (
	"errors"
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/vrmkit/avatar/spatialmath"
)

func makeArm(t *testing.T) (*Graph, []*Node) {
	t.Helper()
	g := NewGraph("arm")
	root, err := g.AddNode("root", nil, spatialmath.NewTransformFromPoint(r3.Vector{Y: 1}))
	test.That(t, err, test.ShouldBeNil)
	shoulder, err := g.AddNode("shoulder", root, spatialmath.NewTransform(
		r3.Vector{X: 1},
		spatialmath.QuatFromAxisAngle(r3.Vector{Z: 1}, math.Pi/2),
	))
	test.That(t, err, test.ShouldBeNil)
	elbow, err := g.AddNode("elbow", shoulder, spatialmath.NewTransformFromPoint(r3.Vector{X: 1}))
	test.That(t, err, test.ShouldBeNil)
	return g, []*Node{root, shoulder, elbow}
}

func TestAddNode(t *testing.T) {
	g, nodes := makeArm(t)
	test.That(t, g.Len(), test.ShouldEqual, 3)
	test.That(t, g.Roots(), test.ShouldHaveLength, 1)
	test.That(t, nodes[2].Parent(), test.ShouldEqual, nodes[1])
	test.That(t, nodes[1].Children(), test.ShouldResemble, []*Node{nodes[2]})

	other := NewGraph("other")
	_, err := other.AddNode("orphan", nodes[0], spatialmath.NewZeroTransform())
	test.That(t, errors.Is(err, ErrNodeNotFound), test.ShouldBeTrue)

	n, err := g.Node(2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, n.Name(), test.ShouldEqual, "elbow")
	_, err = g.Node(7)
	test.That(t, errors.Is(err, ErrNodeNotFound), test.ShouldBeTrue)
}

func TestWorldTransforms(t *testing.T) {
	g, nodes := makeArm(t)
	elbow := nodes[2]
	expected := r3.Vector{X: 1, Y: 2}
	test.That(t, spatialmath.R3VectorAlmostEqual(elbow.World().Translation, expected, 1e-9), test.ShouldBeTrue)
	test.That(t, spatialmath.R3VectorAlmostEqual(ComputeWorld(elbow).Translation, expected, 1e-9), test.ShouldBeTrue)

	// moving the shoulder leaves the cache stale until propagation
	nodes[1].SetLocal(nodes[1].Local().WithRotation(spatialmath.IdentityQuat()))
	test.That(t, spatialmath.R3VectorAlmostEqual(elbow.World().Translation, expected, 1e-9), test.ShouldBeTrue)
	test.That(t, spatialmath.R3VectorAlmostEqual(ComputeWorld(elbow).Translation, r3.Vector{X: 2, Y: 1}, 1e-9),
		test.ShouldBeTrue)
	g.Propagate()
	test.That(t, spatialmath.R3VectorAlmostEqual(elbow.World().Translation, r3.Vector{X: 2, Y: 1}, 1e-9),
		test.ShouldBeTrue)
}

func TestFindByName(t *testing.T) {
	g, nodes := makeArm(t)
	dup, err := g.AddNode("elbow", nodes[0], spatialmath.NewZeroTransform())
	test.That(t, err, test.ShouldBeNil)

	found, ok := FindByName(nodes[0], "elbow")
	test.That(t, ok, test.ShouldBeTrue)
	// pre-order reaches the deeper elbow first because shoulder was inserted first
	test.That(t, found, test.ShouldEqual, nodes[2])
	test.That(t, found, test.ShouldNotEqual, dup)

	_, ok = FindByName(nodes[1], "root")
	test.That(t, ok, test.ShouldBeFalse)
}

func TestTraceback(t *testing.T) {
	_, nodes := makeArm(t)
	test.That(t, Traceback(nodes[2]), test.ShouldResemble, []*Node{nodes[2], nodes[1], nodes[0]})
	test.That(t, IsAncestor(nodes[0], nodes[2]), test.ShouldBeTrue)
	test.That(t, IsAncestor(nodes[2], nodes[0]), test.ShouldBeFalse)
	test.That(t, IsAncestor(nodes[2], nodes[2]), test.ShouldBeFalse)
}
