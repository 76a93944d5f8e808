// Package springbone simulates secondary motion of hair, cloth and accessories as chains of rigid
// segments driven by inertia, stiffness and gravity, and pushed out of sphere colliders.
package springbone

import (
	"github.com/golang/geo/r3"
)

// JointProps are the physical parameters of one spring joint.
type JointProps struct {
	// DragForce in [0, 1] damps inertia; 1 removes it entirely.
	DragForce float64
	// GravityDir is the world direction gravity pulls in.
	GravityDir r3.Vector
	// GravityPower scales GravityDir per second.
	GravityPower float64
	// HitRadius is the joint's radius for collision.
	HitRadius float64
	// Stiffness pulls the tail back toward its rest direction per second.
	Stiffness float64
}

// DefaultJointProps returns the parameters used for any field a joint leaves unset.
func DefaultJointProps() JointProps {
	return JointProps{
		GravityDir: r3.Vector{Y: -1},
	}
}

// Shape is a collider shape in the collider node's local space.
type Shape interface {
	isShape()
}

// Sphere is a sphere collider.
type Sphere struct {
	Offset r3.Vector
	Radius float64
}

// Capsule is a capsule collider from Offset to Tail. Capsules are accepted but do not collide.
type Capsule struct {
	Offset r3.Vector
	Radius float64
	Tail   r3.Vector
}

func (Sphere) isShape()  {}
func (Capsule) isShape() {}

// JointSpec names a joint node and its resolved parameters.
type JointSpec struct {
	Node  string
	Props JointProps
}

// ColliderSpec names a collider node and its shape.
type ColliderSpec struct {
	Node  string
	Shape Shape
}

// SpringSpec describes one chain, root first.
type SpringSpec struct {
	Name   string
	Joints []JointSpec
	// ColliderGroups indexes Spec.ColliderGroups.
	ColliderGroups []int
	// Center optionally names the node whose space tails are tracked in.
	Center string
}

// Spec describes every spring chain and collider of a model.
type Spec struct {
	Colliders []ColliderSpec
	// ColliderGroups lists groups of indexes into Colliders.
	ColliderGroups [][]int
	Springs        []SpringSpec
}
