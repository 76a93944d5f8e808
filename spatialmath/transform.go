package spatialmath

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Transform is a translation, rotation and per-axis scale applied in scale, rotate, translate order.
// The zero value is not a valid transform; use NewZeroTransform.
type Transform struct {
	Translation r3.Vector
	Rotation    quat.Number
	Scale       r3.Vector
}

// NewZeroTransform returns the transform which leaves every point unchanged.
func NewZeroTransform() Transform {
	return Transform{Rotation: IdentityQuat(), Scale: r3.Vector{X: 1, Y: 1, Z: 1}}
}

// NewTransformFromPoint returns a pure translation.
func NewTransformFromPoint(p r3.Vector) Transform {
	t := NewZeroTransform()
	t.Translation = p
	return t
}

// NewTransform returns a transform with unit scale.
func NewTransform(translation r3.Vector, rotation quat.Number) Transform {
	return Transform{Translation: translation, Rotation: rotation, Scale: r3.Vector{X: 1, Y: 1, Z: 1}}
}

// WithRotation returns a copy of t with its rotation replaced.
func (t Transform) WithRotation(q quat.Number) Transform {
	t.Rotation = q
	return t
}

// WithTranslation returns a copy of t with its translation replaced.
func (t Transform) WithTranslation(p r3.Vector) Transform {
	t.Translation = p
	return t
}

// Compose returns the transform that applies child first and then t, i.e. the world transform of a node
// whose parent world transform is t and whose local transform is child.
func (t Transform) Compose(child Transform) Transform {
	return Transform{
		Translation: t.TransformPoint(child.Translation),
		Rotation:    quat.Mul(t.Rotation, child.Rotation),
		Scale:       mulElem(t.Scale, child.Scale),
	}
}

// TransformPoint maps a point from the local space of t into its parent space.
func (t Transform) TransformPoint(p r3.Vector) r3.Vector {
	return t.Translation.Add(RotateVector(t.Rotation, mulElem(t.Scale, p)))
}

// InverseTransformPoint maps a point from the parent space of t into its local space.
func (t Transform) InverseTransformPoint(p r3.Vector) r3.Vector {
	v := t.Matrix().Inv().Mul4x1(mgl64.Vec4{p.X, p.Y, p.Z, 1})
	return r3.Vector{X: v[0], Y: v[1], Z: v[2]}
}

// Matrix returns the 4x4 homogeneous matrix of t.
func (t Transform) Matrix() mgl64.Mat4 {
	tr := mgl64.Translate3D(t.Translation.X, t.Translation.Y, t.Translation.Z)
	rot := quatToMgl(t.Rotation).Mat4()
	sc := mgl64.Scale3D(t.Scale.X, t.Scale.Y, t.Scale.Z)
	return tr.Mul4(rot).Mul4(sc)
}

// ReparentedTo expresses t, a transform in some common space, relative to parent, a transform in that
// same space.
func (t Transform) ReparentedTo(parent Transform) Transform {
	return TransformFromMatrix(parent.Matrix().Inv().Mul4(t.Matrix()))
}

// MaxAbsScale returns the largest absolute scale component of t.
func (t Transform) MaxAbsScale() float64 {
	return math.Max(math.Abs(t.Scale.X), math.Max(math.Abs(t.Scale.Y), math.Abs(t.Scale.Z)))
}

func (t Transform) String() string {
	axis, angle := QuatToAxisAngle(t.Rotation)
	return fmt.Sprintf("T:(%.4f, %.4f, %.4f) R:%.4frad@(%.3f, %.3f, %.3f) S:(%.3f, %.3f, %.3f)",
		t.Translation.X, t.Translation.Y, t.Translation.Z,
		angle, axis.X, axis.Y, axis.Z,
		t.Scale.X, t.Scale.Y, t.Scale.Z)
}

// TransformFromMatrix decomposes an affine matrix without shear into translation, rotation and scale.
// A negative determinant is folded into the X scale.
func TransformFromMatrix(m mgl64.Mat4) Transform {
	sx := m.Col(0).Vec3().Len()
	sy := m.Col(1).Vec3().Len()
	sz := m.Col(2).Vec3().Len()
	if m.Det() < 0 {
		sx = -sx
	}
	rot := mgl64.Ident4()
	if sx != 0 && sy != 0 && sz != 0 {
		for row := 0; row < 3; row++ {
			rot.Set(row, 0, m.At(row, 0)/sx)
			rot.Set(row, 1, m.At(row, 1)/sy)
			rot.Set(row, 2, m.At(row, 2)/sz)
		}
	}
	tr := m.Col(3)
	return Transform{
		Translation: r3.Vector{X: tr[0], Y: tr[1], Z: tr[2]},
		Rotation:    Normalize(quatFromMgl(mgl64.Mat4ToQuat(rot))),
		Scale:       r3.Vector{X: sx, Y: sy, Z: sz},
	}
}

// TransformAlmostEqual compares translation, rotation and scale within tol.
func TransformAlmostEqual(a, b Transform, tol float64) bool {
	return R3VectorAlmostEqual(a.Translation, b.Translation, tol) &&
		QuaternionAlmostEqual(a.Rotation, b.Rotation, tol) &&
		R3VectorAlmostEqual(a.Scale, b.Scale, tol)
}

// R3VectorAlmostEqual compares two r3.Vector objects and returns if the all elementwise differences are less than epsilon.
func R3VectorAlmostEqual(a, b r3.Vector, epsilon float64) bool {
	return math.Abs(a.X-b.X) < epsilon && math.Abs(a.Y-b.Y) < epsilon && math.Abs(a.Z-b.Z) < epsilon
}

func mulElem(a, b r3.Vector) r3.Vector {
	return r3.Vector{X: a.X * b.X, Y: a.Y * b.Y, Z: a.Z * b.Z}
}

// TransformDirection applies the linear part of m to v, ignoring translation.
func TransformDirection(m mgl64.Mat4, v r3.Vector) r3.Vector {
	d := m.Mul4x1(mgl64.Vec4{v.X, v.Y, v.Z, 0})
	return r3.Vector{X: d[0], Y: d[1], Z: d[2]}
}
