// Package animation samples keyframe curves and blends them onto scene nodes.
package animation

import (
	"sort"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"

	"github.com/vrmkit/avatar/scenegraph"
	"github.com/vrmkit/avatar/spatialmath"
)

// Property is the part of a node's local transform a curve drives.
type Property int

// Animated properties.
const (
	Translation Property = iota
	Rotation
	Scale
)

func (p Property) String() string {
	switch p {
	case Translation:
		return "translation"
	case Rotation:
		return "rotation"
	case Scale:
		return "scale"
	default:
		return "unknown"
	}
}

// ParseProperty parses a glTF channel path.
func ParseProperty(s string) (Property, error) {
	switch strings.ToLower(s) {
	case "translation":
		return Translation, nil
	case "rotation":
		return Rotation, nil
	case "scale":
		return Scale, nil
	}
	return 0, errors.Errorf("unknown animated property %q", s)
}

// Interpolation selects how a curve fills time between keyframes.
type Interpolation int

// Supported interpolations.
const (
	Linear Interpolation = iota
	Step
)

func (i Interpolation) String() string {
	if i == Step {
		return "STEP"
	}
	return "LINEAR"
}

// ParseInterpolation parses a glTF sampler interpolation. An empty string means LINEAR.
func ParseInterpolation(s string) (Interpolation, error) {
	switch strings.ToUpper(s) {
	case "", "LINEAR":
		return Linear, nil
	case "STEP":
		return Step, nil
	}
	return 0, errors.Errorf("unsupported interpolation %q", s)
}

// Sample is a curve value. Vector is used by translation and scale curves, Rotation by rotation curves.
type Sample struct {
	Vector   r3.Vector
	Rotation quat.Number
}

// EvaluatorID identifies the evaluator a curve accumulates into. Curves on the same node with equal
// ids share one evaluator per frame.
type EvaluatorID struct {
	Property Property
	Kind     string
}

// Curve samples a value over time and knows how to build the evaluator that commits it.
type Curve interface {
	Property() Property
	Duration() float64
	Sample(t float64) Sample
	EvaluatorID() EvaluatorID
	NewEvaluator() Evaluator
}

// Evaluator accumulates weighted samples for one node property and writes the result.
type Evaluator interface {
	// Push stages a weighted sample.
	Push(s Sample, weight float64)
	// Blend folds staged samples into the accumulated value by weighted interpolation.
	Blend()
	// Add folds staged samples into the accumulated value additively.
	Add()
	// Commit writes the accumulated value into target's local transform and resets the evaluator.
	Commit(target *scenegraph.Node) error
}

// Binder is implemented by curves that share an evaluator with curves of other clips but carry
// their own context for it. The player binds the evaluator to the curve before every Push, so the
// last curve pushed in a frame decides the context the commit uses.
type Binder interface {
	Bind(ev Evaluator)
}

// Resetter is implemented by evaluators that can discard accumulated samples without committing.
type Resetter interface {
	Reset()
}

var (
	// ErrEmptyCurve is returned when a curve has no keyframes.
	ErrEmptyCurve = errors.New("curve has no keyframes")
	// ErrNothingToCommit is returned when an evaluator is committed without any samples.
	ErrNothingToCommit = errors.New("evaluator has no samples")
)

const keyframeKind = "keyframes"

func checkTimes(times []float64, values int) error {
	if len(times) == 0 {
		return ErrEmptyCurve
	}
	if len(times) != values {
		return errors.Errorf("%d keyframe times but %d values", len(times), values)
	}
	for i := 1; i < len(times); i++ {
		if times[i] <= times[i-1] {
			return errors.Errorf("keyframe times not increasing at index %d", i)
		}
	}
	return nil
}

// segment returns the keyframe index at or before t and the interpolation factor toward the next.
func segment(times []float64, t float64) (int, float64) {
	last := len(times) - 1
	if t <= times[0] {
		return 0, 0
	}
	if t >= times[last] {
		return last, 0
	}
	i := sort.SearchFloat64s(times, t)
	if times[i] == t {
		return i, 0
	}
	i--
	return i, (t - times[i]) / (times[i+1] - times[i])
}

// Vec3Curve is a keyframe curve over translation or scale.
type Vec3Curve struct {
	property Property
	times    []float64
	values   []r3.Vector
	interp   Interpolation
}

// NewVec3Curve returns a translation or scale curve.
func NewVec3Curve(property Property, times []float64, values []r3.Vector, interp Interpolation) (*Vec3Curve, error) {
	if property == Rotation {
		return nil, errors.New("vector curve cannot drive rotation")
	}
	if err := checkTimes(times, len(values)); err != nil {
		return nil, err
	}
	return &Vec3Curve{property: property, times: times, values: values, interp: interp}, nil
}

// Property returns the driven property.
func (c *Vec3Curve) Property() Property { return c.property }

// Duration returns the time of the last keyframe.
func (c *Vec3Curve) Duration() float64 { return c.times[len(c.times)-1] }

// Sample returns the curve value at t, holding the end values outside the keyframe range.
func (c *Vec3Curve) Sample(t float64) Sample {
	i, f := segment(c.times, t)
	if f == 0 || c.interp == Step {
		return Sample{Vector: c.values[i]}
	}
	a, b := c.values[i], c.values[i+1]
	return Sample{Vector: a.Add(b.Sub(a).Mul(f))}
}

// EvaluatorID returns the id shared by all keyframe curves of this property.
func (c *Vec3Curve) EvaluatorID() EvaluatorID {
	return EvaluatorID{Property: c.property, Kind: keyframeKind}
}

// NewEvaluator returns an evaluator that writes the curve's property.
func (c *Vec3Curve) NewEvaluator() Evaluator {
	return NewVec3Evaluator(c.property)
}

// QuatCurve is a keyframe curve over rotation. Linear interpolation uses slerp.
type QuatCurve struct {
	times  []float64
	values []quat.Number
	interp Interpolation
}

// NewQuatCurve returns a rotation curve. Values are normalized.
func NewQuatCurve(times []float64, values []quat.Number, interp Interpolation) (*QuatCurve, error) {
	if err := checkTimes(times, len(values)); err != nil {
		return nil, err
	}
	norm := make([]quat.Number, len(values))
	for i, q := range values {
		norm[i] = spatialmath.Normalize(q)
	}
	return &QuatCurve{times: times, values: norm, interp: interp}, nil
}

// Property returns Rotation.
func (c *QuatCurve) Property() Property { return Rotation }

// Duration returns the time of the last keyframe.
func (c *QuatCurve) Duration() float64 { return c.times[len(c.times)-1] }

// Sample returns the curve value at t, holding the end values outside the keyframe range.
func (c *QuatCurve) Sample(t float64) Sample {
	i, f := segment(c.times, t)
	if f == 0 || c.interp == Step {
		return Sample{Rotation: c.values[i]}
	}
	return Sample{Rotation: spatialmath.Slerp(c.values[i], c.values[i+1], f)}
}

// EvaluatorID returns the id shared by all keyframe rotation curves.
func (c *QuatCurve) EvaluatorID() EvaluatorID {
	return EvaluatorID{Property: Rotation, Kind: keyframeKind}
}

// NewEvaluator returns a rotation evaluator.
func (c *QuatCurve) NewEvaluator() Evaluator {
	return NewQuatEvaluator()
}
