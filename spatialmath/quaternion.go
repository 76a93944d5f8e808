// Package spatialmath defines spatial mathematical operations on rigid transforms and rotations.
package spatialmath

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// If two unit vectors are closer than this to pointing in opposite directions, a rotation arc between
// them is treated as a half turn around an arbitrary perpendicular axis.
const antiparallelEpsilon = 1e-9

// IdentityQuat returns the quaternion which signifies no rotation.
func IdentityQuat() quat.Number {
	return quat.Number{Real: 1}
}

// QuatFromAxisAngle returns the unit quaternion rotating by theta radians around axis.
// A zero axis yields the identity rotation.
func QuatFromAxisAngle(axis r3.Vector, theta float64) quat.Number {
	n := axis.Norm()
	if n == 0 {
		return IdentityQuat()
	}
	axis = axis.Mul(1 / n)
	s := math.Sin(theta / 2)
	return quat.Number{Real: math.Cos(theta / 2), Imag: axis.X * s, Jmag: axis.Y * s, Kmag: axis.Z * s}
}

// QuatFromEulerYXZ builds a rotation applying yaw around Y, then pitch around X, then roll around Z,
// composed as Ry * Rx * Rz.
func QuatFromEulerYXZ(yaw, pitch, roll float64) quat.Number {
	ry := QuatFromAxisAngle(r3.Vector{Y: 1}, yaw)
	rx := QuatFromAxisAngle(r3.Vector{X: 1}, pitch)
	rz := QuatFromAxisAngle(r3.Vector{Z: 1}, roll)
	return quat.Mul(quat.Mul(ry, rx), rz)
}

// Normalize scales q to unit length. The zero quaternion becomes the identity.
func Normalize(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n == 0 || math.IsNaN(n) {
		return IdentityQuat()
	}
	return quat.Scale(1/n, q)
}

// QuatInverse returns the inverse rotation of q.
func QuatInverse(q quat.Number) quat.Number {
	return quat.Inv(q)
}

// MulQuats multiplies the given rotations left to right.
func MulQuats(qs ...quat.Number) quat.Number {
	out := IdentityQuat()
	for _, q := range qs {
		out = quat.Mul(out, q)
	}
	return out
}

// RotateVector rotates v by the unit quaternion q.
func RotateVector(q quat.Number, v r3.Vector) r3.Vector {
	p := quat.Mul(quat.Mul(q, quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}), quat.Conj(q))
	return r3.Vector{X: p.Imag, Y: p.Jmag, Z: p.Kmag}
}

// QuatFromTo returns the shortest-arc rotation taking the direction of from onto the direction of to.
// Zero-length inputs yield the identity.
func QuatFromTo(from, to r3.Vector) quat.Number {
	if from.Norm2() == 0 || to.Norm2() == 0 {
		return IdentityQuat()
	}
	from = from.Normalize()
	to = to.Normalize()
	dot := from.Dot(to)
	if dot < -1+antiparallelEpsilon {
		axis := r3.Vector{X: 1}.Cross(from)
		if axis.Norm2() < antiparallelEpsilon {
			axis = r3.Vector{Y: 1}.Cross(from)
		}
		return QuatFromAxisAngle(axis, math.Pi)
	}
	c := from.Cross(to)
	return Normalize(quat.Number{Real: 1 + dot, Imag: c.X, Jmag: c.Y, Kmag: c.Z})
}

// Slerp spherically interpolates between a and b along the shortest path.
func Slerp(a, b quat.Number, t float64) quat.Number {
	dot := a.Real*b.Real + a.Imag*b.Imag + a.Jmag*b.Jmag + a.Kmag*b.Kmag
	if dot < 0 {
		b = Flip(b)
		dot = -dot
	}
	if dot > 0.9995 {
		return Normalize(quat.Add(a, quat.Scale(t, quat.Sub(b, a))))
	}
	theta := math.Acos(dot)
	sinTheta := math.Sin(theta)
	wa := math.Sin((1-t)*theta) / sinTheta
	wb := math.Sin(t*theta) / sinTheta
	return quat.Add(quat.Scale(wa, a), quat.Scale(wb, b))
}

// Flip will multiply a quaternion by -1, returning a quaternion representing the same orientation but in the opposing octant.
func Flip(q quat.Number) quat.Number {
	return quat.Number{Real: -q.Real, Imag: -q.Imag, Jmag: -q.Jmag, Kmag: -q.Kmag}
}

// QuaternionAlmostEqual returns whether two quaternions represent the same rotation within tol,
// treating q and -q as equal.
func QuaternionAlmostEqual(a, b quat.Number, tol float64) bool {
	near := func(x, y quat.Number) bool {
		return math.Abs(x.Real-y.Real) < tol &&
			math.Abs(x.Imag-y.Imag) < tol &&
			math.Abs(x.Jmag-y.Jmag) < tol &&
			math.Abs(x.Kmag-y.Kmag) < tol
	}
	return near(a, b) || near(a, Flip(b))
}

// QuatToAxisAngle converts a unit quaternion to an axis and an angle in radians.
// Rotations too small to define an axis report the X axis.
func QuatToAxisAngle(q quat.Number) (r3.Vector, float64) {
	denom := math.Sqrt(q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag)
	angle := 2 * math.Atan2(denom, math.Abs(q.Real))
	if q.Real < 0 {
		angle *= -1
	}
	if denom < 1e-6 {
		return r3.Vector{X: 1}, angle
	}
	return r3.Vector{X: q.Imag / denom, Y: q.Jmag / denom, Z: q.Kmag / denom}, angle
}

func quatToMgl(q quat.Number) mgl64.Quat {
	return mgl64.Quat{W: q.Real, V: mgl64.Vec3{q.Imag, q.Jmag, q.Kmag}}
}

func quatFromMgl(q mgl64.Quat) quat.Number {
	return quat.Number{Real: q.W, Imag: q.V[0], Jmag: q.V[1], Kmag: q.V[2]}
}
