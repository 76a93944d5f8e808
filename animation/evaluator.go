package animation

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"

	"github.com/vrmkit/avatar/scenegraph"
	"github.com/vrmkit/avatar/spatialmath"
)

type weighted struct {
	sample Sample
	weight float64
}

// register holds the staged samples and running accumulation shared by both evaluator kinds.
type register struct {
	stack     []weighted
	hasValue  bool
	weightSum float64
}

func (r *register) push(s Sample, weight float64) {
	r.stack = append(r.stack, weighted{s, weight})
}

func (r *register) reset() {
	r.stack = r.stack[:0]
	r.hasValue = false
	r.weightSum = 0
}

// Vec3Evaluator blends translation or scale samples.
type Vec3Evaluator struct {
	register
	property Property
	value    r3.Vector
}

// NewVec3Evaluator returns an evaluator for a translation or scale property.
func NewVec3Evaluator(property Property) *Vec3Evaluator {
	return &Vec3Evaluator{property: property}
}

// Push stages a weighted sample.
func (e *Vec3Evaluator) Push(s Sample, weight float64) {
	e.push(s, weight)
}

// Blend interpolates staged samples into the value, each weighted against the weight already
// accumulated.
func (e *Vec3Evaluator) Blend() {
	for _, w := range e.stack {
		if !e.hasValue {
			e.value, e.weightSum, e.hasValue = w.sample.Vector, w.weight, true
			continue
		}
		total := e.weightSum + w.weight
		if total > 0 {
			e.value = e.value.Add(w.sample.Vector.Sub(e.value).Mul(w.weight / total))
		}
		e.weightSum = total
	}
	e.stack = e.stack[:0]
}

// Add sums staged samples scaled by their weights into the value.
func (e *Vec3Evaluator) Add() {
	for _, w := range e.stack {
		e.value = e.value.Add(w.sample.Vector.Mul(w.weight))
		e.hasValue = true
	}
	e.stack = e.stack[:0]
}

// Reset discards staged samples and the accumulated value.
func (e *Vec3Evaluator) Reset() {
	e.reset()
	e.value = r3.Vector{}
}

// Commit writes the value into the target's translation or scale.
func (e *Vec3Evaluator) Commit(target *scenegraph.Node) error {
	if len(e.stack) > 0 {
		e.Blend()
	}
	defer e.Reset()
	if !e.hasValue {
		return errors.Wrapf(ErrNothingToCommit, "%s of %s", e.property, target)
	}
	local := target.Local()
	if e.property == Scale {
		local.Scale = e.value
	} else {
		local.Translation = e.value
	}
	target.SetLocal(local)
	return nil
}

// QuatEvaluator blends rotation samples.
type QuatEvaluator struct {
	register
	value quat.Number
}

// NewQuatEvaluator returns a rotation evaluator.
func NewQuatEvaluator() *QuatEvaluator {
	return &QuatEvaluator{value: spatialmath.IdentityQuat()}
}

// Push stages a weighted sample.
func (e *QuatEvaluator) Push(s Sample, weight float64) {
	e.push(s, weight)
}

// Blend slerps staged samples into the value, each weighted against the weight already accumulated.
func (e *QuatEvaluator) Blend() {
	for _, w := range e.stack {
		if !e.hasValue {
			e.value, e.weightSum, e.hasValue = w.sample.Rotation, w.weight, true
			continue
		}
		total := e.weightSum + w.weight
		if total > 0 {
			e.value = spatialmath.Slerp(e.value, w.sample.Rotation, w.weight/total)
		}
		e.weightSum = total
	}
	e.stack = e.stack[:0]
}

// Add applies each staged rotation, scaled by its weight, on top of the value.
func (e *QuatEvaluator) Add() {
	for _, w := range e.stack {
		partial := spatialmath.Slerp(spatialmath.IdentityQuat(), w.sample.Rotation, w.weight)
		e.value = spatialmath.Normalize(quat.Mul(e.value, partial))
		e.hasValue = true
	}
	e.stack = e.stack[:0]
}

// Reset discards staged samples and the accumulated value.
func (e *QuatEvaluator) Reset() {
	e.reset()
	e.value = spatialmath.IdentityQuat()
}

// Commit writes the value into the target's rotation.
func (e *QuatEvaluator) Commit(target *scenegraph.Node) error {
	if len(e.stack) > 0 {
		e.Blend()
	}
	defer e.Reset()
	if !e.hasValue {
		return errors.Wrapf(ErrNothingToCommit, "rotation of %s", target)
	}
	target.SetLocal(target.Local().WithRotation(spatialmath.Normalize(e.value)))
	return nil
}
