package config

import (
	"fmt"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.viam.com/utils"

	"github.com/vrmkit/avatar/springbone"
)

// SphereShape is a sphere in the collider node's space.
type SphereShape struct {
	Offset []float64 `json:"offset,omitempty"`
	Radius float64   `json:"radius"`
}

// CapsuleShape is a capsule in the collider node's space.
type CapsuleShape struct {
	Offset []float64 `json:"offset,omitempty"`
	Radius float64   `json:"radius"`
	Tail   []float64 `json:"tail,omitempty"`
}

// ColliderShape holds exactly one shape.
type ColliderShape struct {
	Sphere  *SphereShape  `json:"sphere,omitempty"`
	Capsule *CapsuleShape `json:"capsule,omitempty"`
}

// Collider attaches a shape to a node.
type Collider struct {
	Node  string        `json:"node"`
	Shape ColliderShape `json:"shape"`
}

// Validate ensures all parts of the config are valid.
func (c *Collider) Validate(path string, names map[string]bool) error {
	if c.Node == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "node")
	}
	if !names[c.Node] {
		return utils.NewConfigValidationError(path, errors.Errorf("unknown node %q", c.Node))
	}
	switch {
	case (c.Shape.Sphere == nil) == (c.Shape.Capsule == nil):
		return utils.NewConfigValidationError(path, errors.New("shape must be exactly one of sphere or capsule"))
	case c.Shape.Sphere != nil:
		if c.Shape.Sphere.Radius < 0 {
			return utils.NewConfigValidationError(path, errors.New("radius must not be negative"))
		}
		return checkLen(path, "offset", c.Shape.Sphere.Offset, 3)
	default:
		if c.Shape.Capsule.Radius < 0 {
			return utils.NewConfigValidationError(path, errors.New("radius must not be negative"))
		}
		if err := checkLen(path, "offset", c.Shape.Capsule.Offset, 3); err != nil {
			return err
		}
		return checkLen(path, "tail", c.Shape.Capsule.Tail, 3)
	}
}

func (c *Collider) spec() springbone.ColliderSpec {
	if s := c.Shape.Sphere; s != nil {
		return springbone.ColliderSpec{Node: c.Node, Shape: springbone.Sphere{Offset: vec3(s.Offset), Radius: s.Radius}}
	}
	cp := c.Shape.Capsule
	return springbone.ColliderSpec{
		Node:  c.Node,
		Shape: springbone.Capsule{Offset: vec3(cp.Offset), Radius: cp.Radius, Tail: vec3(cp.Tail)},
	}
}

// ColliderGroup is a named set of collider indexes.
type ColliderGroup struct {
	Name      string `json:"name,omitempty"`
	Colliders []int  `json:"colliders"`
}

// SpringJoint is one joint of a spring. Unset parameters take springbone.DefaultJointProps.
type SpringJoint struct {
	Node         string    `json:"node"`
	DragForce    *float64  `json:"dragForce,omitempty"`
	GravityDir   []float64 `json:"gravityDir,omitempty"`
	GravityPower *float64  `json:"gravityPower,omitempty"`
	HitRadius    *float64  `json:"hitRadius,omitempty"`
	Stiffness    *float64  `json:"stiffness,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (j *SpringJoint) Validate(path string) error {
	if j.Node == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "node")
	}
	if j.DragForce != nil && (*j.DragForce < 0 || *j.DragForce > 1) {
		return utils.NewConfigValidationError(path, errors.Errorf("dragForce %g must be within [0, 1]", *j.DragForce))
	}
	for field, v := range map[string]*float64{"gravityPower": j.GravityPower, "hitRadius": j.HitRadius, "stiffness": j.Stiffness} {
		if v != nil && *v < 0 {
			return utils.NewConfigValidationError(path, errors.Errorf("%s must not be negative", field))
		}
	}
	return checkLen(path, "gravityDir", j.GravityDir, 3)
}

// Props resolves the joint's parameters against the defaults.
func (j *SpringJoint) Props() springbone.JointProps {
	p := springbone.DefaultJointProps()
	if j.DragForce != nil {
		p.DragForce = *j.DragForce
	}
	if len(j.GravityDir) == 3 {
		if d := vec3(j.GravityDir); d.Norm() > 0 {
			p.GravityDir = d.Normalize()
		}
	}
	if j.GravityPower != nil {
		p.GravityPower = *j.GravityPower
	}
	if j.HitRadius != nil {
		p.HitRadius = *j.HitRadius
	}
	if j.Stiffness != nil {
		p.Stiffness = *j.Stiffness
	}
	return p
}

// Spring is a chain of joints, root first.
type Spring struct {
	Name           string        `json:"name,omitempty"`
	Joints         []SpringJoint `json:"joints"`
	ColliderGroups []int         `json:"colliderGroups,omitempty"`
	Center         string        `json:"center,omitempty"`
}

// SpringBone holds every spring and collider of a model.
type SpringBone struct {
	Colliders      []Collider      `json:"colliders,omitempty"`
	ColliderGroups []ColliderGroup `json:"colliderGroups,omitempty"`
	Springs        []Spring        `json:"springs"`
}

// Validate ensures all parts of the config are valid. Joint and center nodes may be absent from
// the node list; the registry drops them.
func (sb *SpringBone) Validate(path string, names map[string]bool) error {
	for i := range sb.Colliders {
		if err := sb.Colliders[i].Validate(fmt.Sprintf("%s.colliders.%d", path, i), names); err != nil {
			return err
		}
	}
	for i, g := range sb.ColliderGroups {
		for _, c := range g.Colliders {
			if c < 0 || c >= len(sb.Colliders) {
				return utils.NewConfigValidationError(fmt.Sprintf("%s.colliderGroups.%d", path, i),
					errors.Errorf("collider %d out of range", c))
			}
		}
	}
	for i, s := range sb.Springs {
		springPath := fmt.Sprintf("%s.springs.%d", path, i)
		if len(s.Joints) == 0 {
			return utils.NewConfigValidationFieldRequiredError(springPath, "joints")
		}
		for j := range s.Joints {
			if err := s.Joints[j].Validate(fmt.Sprintf("%s.joints.%d", springPath, j)); err != nil {
				return err
			}
		}
		for _, g := range s.ColliderGroups {
			if g < 0 || g >= len(sb.ColliderGroups) {
				return utils.NewConfigValidationError(springPath, errors.Errorf("collider group %d out of range", g))
			}
		}
	}
	return nil
}

// Spec resolves the config into a springbone.Spec with every joint's defaults applied.
func (sb *SpringBone) Spec() springbone.Spec {
	return springbone.Spec{
		Colliders: lo.Map(sb.Colliders, func(c Collider, _ int) springbone.ColliderSpec { return c.spec() }),
		ColliderGroups: lo.Map(sb.ColliderGroups, func(g ColliderGroup, _ int) []int {
			return g.Colliders
		}),
		Springs: lo.Map(sb.Springs, func(s Spring, i int) springbone.SpringSpec {
			name := s.Name
			if name == "" {
				name = fmt.Sprintf("spring%d", i)
			}
			return springbone.SpringSpec{
				Name: name,
				Joints: lo.Map(s.Joints, func(j SpringJoint, _ int) springbone.JointSpec {
					return springbone.JointSpec{Node: j.Node, Props: j.Props()}
				}),
				ColliderGroups: s.ColliderGroups,
				Center:         s.Center,
			}
		}),
	}
}

func vec3(v []float64) r3.Vector {
	if len(v) != 3 {
		return r3.Vector{}
	}
	return r3.Vector{X: v[0], Y: v[1], Z: v[2]}
}
