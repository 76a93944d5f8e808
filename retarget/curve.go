package retarget

import (
	"github.com/pkg/errors"

	"github.com/vrmkit/avatar/animation"
	"github.com/vrmkit/avatar/scenegraph"
)

const retargetKind = "retarget"

// RotationCurve wraps a rotation curve so that committed rotations are mapped through a Table.
type RotationCurve struct {
	base  animation.Curve
	table *Table
}

// NewRotationCurve wraps base, which must drive rotation.
func NewRotationCurve(base animation.Curve, table *Table) (*RotationCurve, error) {
	if base.Property() != animation.Rotation {
		return nil, errors.Errorf("cannot retarget rotation from a %s curve", base.Property())
	}
	return &RotationCurve{base: base, table: table}, nil
}

// Property returns Rotation.
func (c *RotationCurve) Property() animation.Property { return animation.Rotation }

// Duration returns the base curve's duration.
func (c *RotationCurve) Duration() float64 { return c.base.Duration() }

// Sample returns the base curve's unmapped value.
func (c *RotationCurve) Sample(t float64) animation.Sample { return c.base.Sample(t) }

// EvaluatorID is shared by all retargeted rotation curves so clips from different source skeletons
// blend on one node. The table follows the curve through Bind.
func (c *RotationCurve) EvaluatorID() animation.EvaluatorID {
	return animation.EvaluatorID{Property: animation.Rotation, Kind: retargetKind}
}

// NewEvaluator wraps the base curve's evaluator.
func (c *RotationCurve) NewEvaluator() animation.Evaluator {
	return &rotationEvaluator{wrapped{c.base.NewEvaluator()}, c.table}
}

// Bind points a retargeted rotation evaluator at this curve's table.
func (c *RotationCurve) Bind(ev animation.Evaluator) {
	if e, ok := ev.(*rotationEvaluator); ok {
		e.table = c.table
	}
}

// HipsTranslationCurve wraps a hips translation curve so that committed translations are scaled
// through a Table.
type HipsTranslationCurve struct {
	base  animation.Curve
	table *Table
}

// NewHipsTranslationCurve wraps base, which must drive translation.
func NewHipsTranslationCurve(base animation.Curve, table *Table) (*HipsTranslationCurve, error) {
	if base.Property() != animation.Translation {
		return nil, errors.Errorf("cannot retarget hips translation from a %s curve", base.Property())
	}
	return &HipsTranslationCurve{base: base, table: table}, nil
}

// Property returns Translation.
func (c *HipsTranslationCurve) Property() animation.Property { return animation.Translation }

// Duration returns the base curve's duration.
func (c *HipsTranslationCurve) Duration() float64 { return c.base.Duration() }

// Sample returns the base curve's unmapped value.
func (c *HipsTranslationCurve) Sample(t float64) animation.Sample { return c.base.Sample(t) }

// EvaluatorID is shared by all retargeted hips curves. The table follows the curve through Bind.
func (c *HipsTranslationCurve) EvaluatorID() animation.EvaluatorID {
	return animation.EvaluatorID{Property: animation.Translation, Kind: retargetKind}
}

// NewEvaluator wraps the base curve's evaluator.
func (c *HipsTranslationCurve) NewEvaluator() animation.Evaluator {
	return &hipsEvaluator{wrapped{c.base.NewEvaluator()}, c.table}
}

// Bind points a retargeted hips evaluator at this curve's table.
func (c *HipsTranslationCurve) Bind(ev animation.Evaluator) {
	if e, ok := ev.(*hipsEvaluator); ok {
		e.table = c.table
	}
}

// wrapped forwards accumulation to the base evaluator.
type wrapped struct {
	base animation.Evaluator
}

func (w wrapped) Push(s animation.Sample, weight float64) { w.base.Push(s, weight) }
func (w wrapped) Blend()                                  { w.base.Blend() }
func (w wrapped) Add()                                    { w.base.Add() }

// discard drops the base evaluator's pending samples when the commit is refused.
func (w wrapped) discard() {
	if r, ok := w.base.(animation.Resetter); ok {
		r.Reset()
	}
}

type rotationEvaluator struct {
	wrapped
	table *Table
}

func (e *rotationEvaluator) Commit(target *scenegraph.Node) error {
	tr, ok := e.table.Rotation(target.ID())
	if !ok {
		e.discard()
		return errors.Wrapf(ErrNoTransformation, "rotation of %s (%s)", target, e.table)
	}
	if err := e.base.Commit(target); err != nil {
		return err
	}
	target.SetLocal(target.Local().WithRotation(tr.Transform(target.Local().Rotation)))
	return nil
}

type hipsEvaluator struct {
	wrapped
	table *Table
}

func (e *hipsEvaluator) Commit(target *scenegraph.Node) error {
	h, ok := e.table.Hips(target.ID())
	if !ok {
		e.discard()
		return errors.Wrapf(ErrNoTransformation, "translation of %s (%s)", target, e.table)
	}
	if err := e.base.Commit(target); err != nil {
		return err
	}
	target.SetLocal(target.Local().WithTranslation(h.Transform(target.Local().Translation)))
	return nil
}
