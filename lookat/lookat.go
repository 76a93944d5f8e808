// Package lookat turns a look target into eye bone rotations.
package lookat

import (
	"math"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"

	"github.com/vrmkit/avatar/humanoid"
	"github.com/vrmkit/avatar/scenegraph"
	"github.com/vrmkit/avatar/spatialmath"
	"github.com/vrmkit/avatar/utils"
)

// Type selects how the gaze is expressed on the model.
type Type int

// Look-at types.
const (
	TypeBone Type = iota
	TypeExpression
)

// ErrExpressionLookAtUnsupported is returned for models that express gaze through blend shapes.
var ErrExpressionLookAtUnsupported = errors.New("expression look-at is not supported")

// ParseType parses "bone" or "expression". An empty string means bone.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(s) {
	case "", "bone":
		return TypeBone, nil
	case "expression":
		return TypeExpression, nil
	}
	return 0, errors.Errorf("unknown look-at type %q", s)
}

// RangeMap maps an input angle magnitude in degrees, clamped to InputMaxValue, onto [0, OutputScale].
type RangeMap struct {
	InputMaxValue float64
	OutputScale   float64
}

// Map applies the range map to the magnitude of degrees.
func (r RangeMap) Map(degrees float64) float64 {
	ratio, _ := utils.SafeRatio(math.Min(math.Abs(degrees), r.InputMaxValue), r.InputMaxValue, 1e-9, 0)
	return ratio * r.OutputScale
}

// Properties describes a model's gaze.
type Properties struct {
	Type               Type
	OffsetFromHeadBone r3.Vector
	HorizontalInner    RangeMap
	HorizontalOuter    RangeMap
	VerticalDown       RangeMap
	VerticalUp         RangeMap
}

// Space returns the frame gaze angles are measured in: positioned at offset from the head and
// rotated so that the head's own local rotation is cancelled.
func Space(headLocal, headWorld spatialmath.Transform, offset r3.Vector) spatialmath.Transform {
	local := spatialmath.NewZeroTransform().ReparentedTo(headWorld)
	local.Translation = offset
	local.Rotation = spatialmath.QuatInverse(headLocal.Rotation)
	return headWorld.Compose(local)
}

// YawPitch returns the yaw and pitch in degrees of target as seen from space. Positive yaw is toward
// +X and positive pitch is downward.
func YawPitch(space spatialmath.Transform, target r3.Vector) (yaw, pitch float64) {
	local := space.InverseTransformPoint(target)
	yaw = utils.RadToDeg(math.Atan2(local.X, local.Z))
	xz := math.Hypot(local.X, local.Z)
	pitch = utils.RadToDeg(-math.Atan2(local.Y, xz))
	return yaw, pitch
}

// EyeRotations returns the local rotations of the left and right eye for a gaze direction.
func EyeRotations(props Properties, yaw, pitch float64) (left, right quat.Number) {
	vertical := -props.VerticalUp.Map(pitch)
	if pitch > 0 {
		vertical = props.VerticalDown.Map(pitch)
	}
	leftYaw := -props.HorizontalInner.Map(yaw)
	rightYaw := -props.HorizontalOuter.Map(yaw)
	if yaw > 0 {
		leftYaw = props.HorizontalOuter.Map(yaw)
		rightYaw = props.HorizontalInner.Map(yaw)
	}
	left = spatialmath.QuatFromEulerYXZ(utils.DegToRad(leftYaw), utils.DegToRad(vertical), 0)
	right = spatialmath.QuatFromEulerYXZ(utils.DegToRad(rightYaw), utils.DegToRad(vertical), 0)
	return left, right
}

// Rig holds the nodes gaze is applied to.
type Rig struct {
	Head     *scenegraph.Node
	LeftEye  *scenegraph.Node
	RightEye *scenegraph.Node
}

// NewRig resolves the head and eye bones of skel.
func NewRig(skel *humanoid.Skeleton) (*Rig, error) {
	var nodes [3]*scenegraph.Node
	for i, b := range []humanoid.Bone{humanoid.Head, humanoid.LeftEye, humanoid.RightEye} {
		n, ok := skel.FindBone(b)
		if !ok {
			return nil, errors.Wrapf(humanoid.ErrBoneNotMapped, "look-at needs %s", b)
		}
		nodes[i] = n
	}
	return &Rig{Head: nodes[0], LeftEye: nodes[1], RightEye: nodes[2]}, nil
}

// Apply turns the eyes toward a world position. World transforms must be propagated first.
func (r *Rig) Apply(props Properties, target r3.Vector) error {
	if props.Type == TypeExpression {
		return ErrExpressionLookAtUnsupported
	}
	space := Space(r.Head.Local(), r.Head.World(), props.OffsetFromHeadBone)
	yaw, pitch := YawPitch(space, target)
	left, right := EyeRotations(props, yaw, pitch)
	r.LeftEye.SetLocal(r.LeftEye.Local().WithRotation(left))
	r.RightEye.SetLocal(r.RightEye.Local().WithRotation(right))
	return nil
}
