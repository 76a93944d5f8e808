// Package retarget transfers poses authored against one humanoid skeleton onto another by
// normalizing through each skeleton's rest pose.
package retarget

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"

	"github.com/vrmkit/avatar/humanoid"
	"github.com/vrmkit/avatar/logging"
	"github.com/vrmkit/avatar/scenegraph"
	"github.com/vrmkit/avatar/spatialmath"
	"github.com/vrmkit/avatar/utils"
)

// minRestHeight is the smallest source hips height that still yields a usable scale.
const minRestHeight = 1e-6

var (
	// ErrNoTransformation is returned when a retargeted curve commits to a node that has no entry
	// in its table.
	ErrNoTransformation = errors.New("no retarget transformation for node")
	// ErrDegenerateRestHeight is returned when the source hips rest height is too close to zero to
	// derive a scale from.
	ErrDegenerateRestHeight = errors.New("source hips rest height is degenerate")
	// ErrRestNotCaptured is returned when a table is built before a skeleton's rest capture.
	ErrRestNotCaptured = errors.New("skeleton rest pose not captured")
)

// Transformation holds the rest rotations that map a local rotation from a source bone to the
// matching destination bone.
type Transformation struct {
	SrcRest      quat.Number
	SrcRestWorld quat.Number
	DstRest      quat.Number
	DstRestWorld quat.Number
}

// Transform maps a source local rotation onto the destination bone. The source rest rotation maps
// to the destination rest rotation.
func (tr Transformation) Transform(pose quat.Number) quat.Number {
	normalized := spatialmath.MulQuats(
		tr.SrcRestWorld, spatialmath.QuatInverse(tr.SrcRest), pose, spatialmath.QuatInverse(tr.SrcRestWorld),
	)
	return spatialmath.Normalize(spatialmath.MulQuats(
		tr.DstRest, spatialmath.QuatInverse(tr.DstRestWorld), normalized, tr.DstRestWorld,
	))
}

// HipsTransformation maps a hips translation by the ratio of the skeletons' rest heights.
type HipsTransformation struct {
	SrcRestWorld r3.Vector
	DstRestWorld r3.Vector
}

// Delta returns the offset of pose from the source rest position.
func (h HipsTransformation) Delta(pose r3.Vector) r3.Vector {
	return pose.Sub(h.SrcRestWorld)
}

// Scale returns the ratio of destination to source rest height. When the source height is
// degenerate it returns 1 with ErrDegenerateRestHeight.
func (h HipsTransformation) Scale() (float64, error) {
	s, fallback := utils.SafeRatio(h.DstRestWorld.Y, h.SrcRestWorld.Y, minRestHeight, 1)
	if fallback {
		return s, errors.Wrapf(ErrDegenerateRestHeight, "height %g", h.SrcRestWorld.Y)
	}
	return s, nil
}

// Transform maps a source hips translation onto the destination.
func (h HipsTransformation) Transform(pose r3.Vector) r3.Vector {
	scale, _ := h.Scale()
	return h.DstRestWorld.Add(h.Delta(pose).Mul(scale))
}

// Table holds the transformations for every bone two skeletons share, keyed by destination node.
type Table struct {
	src, dst  string
	rotations map[scenegraph.NodeID]Transformation
	hips      map[scenegraph.NodeID]HipsTransformation
}

// NewTable builds the transformations for the intersection of both skeletons' bones. Bones missing
// from either side are skipped. Both skeletons must have captured their rest poses.
func NewTable(src, dst *humanoid.Skeleton, logger logging.Logger) (*Table, error) {
	for _, s := range []*humanoid.Skeleton{src, dst} {
		if !s.Captured() {
			return nil, errors.Wrapf(ErrRestNotCaptured, "skeleton %q", s.Name())
		}
	}
	t := &Table{
		src:       src.Name(),
		dst:       dst.Name(),
		rotations: map[scenegraph.NodeID]Transformation{},
		hips:      map[scenegraph.NodeID]HipsTransformation{},
	}
	for _, bone := range src.Bones() {
		_, srcRest, ok := src.BoneRest(bone)
		if !ok {
			continue
		}
		dstNode, dstRest, ok := dst.BoneRest(bone)
		if !ok {
			logger.Debugw("bone missing from destination", "bone", bone, "dst", dst.Name())
			continue
		}
		t.rotations[dstNode.ID()] = Transformation{
			SrcRest:      srcRest.Local.Rotation,
			SrcRestWorld: srcRest.World.Rotation,
			DstRest:      dstRest.Local.Rotation,
			DstRestWorld: dstRest.World.Rotation,
		}
		if bone == humanoid.Hips {
			h := HipsTransformation{SrcRestWorld: srcRest.World.Translation, DstRestWorld: dstRest.World.Translation}
			if _, err := h.Scale(); err != nil {
				logger.Warnw("using unit hips scale", "bone", bone, "height", h.SrcRestWorld.Y, "reason", err.Error())
			}
			t.hips[dstNode.ID()] = h
		}
	}
	return t, nil
}

// Rotation returns the rotation transformation for a destination node.
func (t *Table) Rotation(id scenegraph.NodeID) (Transformation, bool) {
	tr, ok := t.rotations[id]
	return tr, ok
}

// Hips returns the hips translation transformation for a destination node.
func (t *Table) Hips(id scenegraph.NodeID) (HipsTransformation, bool) {
	h, ok := t.hips[id]
	return h, ok
}

// Len returns the number of bones with a rotation transformation.
func (t *Table) Len() int {
	return len(t.rotations)
}

func (t *Table) String() string {
	return t.src + "->" + t.dst
}
