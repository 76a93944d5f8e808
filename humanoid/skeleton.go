package humanoid

import (
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/vrmkit/avatar/logging"
	"github.com/vrmkit/avatar/scenegraph"
	"github.com/vrmkit/avatar/spatialmath"
)

var (
	// ErrSkeletonNotReady is returned when a mapped bone name does not resolve to a node yet.
	ErrSkeletonNotReady = errors.New("skeleton is not fully spawned")
	// ErrRestAlreadyCaptured is returned by a second CaptureRest.
	ErrRestAlreadyCaptured = errors.New("rest pose already captured")
	// ErrBoneNotMapped is returned when a bone has no node in the skeleton.
	ErrBoneNotMapped = errors.New("bone not mapped")
)

// RestPose is the local and world transform of a bone node at capture time. It is never mutated.
type RestPose struct {
	Local spatialmath.Transform
	World spatialmath.Transform
}

// Skeleton binds a BoneMap to the nodes of a scene graph and owns the rest poses of those nodes.
type Skeleton struct {
	name   string
	graph  *scenegraph.Graph
	index  *Index
	names  BoneMap
	logger logging.Logger

	bones map[Bone]*scenegraph.Node
	rest  map[scenegraph.NodeID]RestPose
}

// NewSkeleton returns a skeleton whose bones are looked up by name beneath root.
func NewSkeleton(name string, graph *scenegraph.Graph, root *scenegraph.Node, names BoneMap, logger logging.Logger) *Skeleton {
	return &Skeleton{
		name:   name,
		graph:  graph,
		index:  NewIndex(root),
		names:  names,
		logger: logger,
	}
}

// Name returns the skeleton's name.
func (s *Skeleton) Name() string {
	return s.name
}

// Graph returns the scene graph the skeleton lives in.
func (s *Skeleton) Graph() *scenegraph.Graph {
	return s.graph
}

// Index returns the name index used to resolve bones.
func (s *Skeleton) Index() *Index {
	return s.index
}

// BoneMap returns the bone to node name mapping.
func (s *Skeleton) BoneMap() BoneMap {
	return s.names
}

// Ready reports whether every mapped bone resolves to a node.
func (s *Skeleton) Ready() bool {
	return len(s.missing()) == 0
}

func (s *Skeleton) missing() []Bone {
	return lo.Filter(s.names.Sorted(), func(b Bone, _ int) bool {
		_, ok := s.index.FindByName(s.names[b])
		return !ok
	})
}

// FindBone resolves a bone to its node without requiring a captured rest pose.
func (s *Skeleton) FindBone(b Bone) (*scenegraph.Node, bool) {
	name, ok := s.names[b]
	if !ok {
		return nil, false
	}
	return s.index.FindByName(name)
}

// CaptureRest propagates the graph and records the local and world transform of every mapped bone.
// It succeeds once per skeleton.
func (s *Skeleton) CaptureRest() error {
	if s.rest != nil {
		return errors.Wrapf(ErrRestAlreadyCaptured, "skeleton %q", s.name)
	}
	if missing := s.missing(); len(missing) > 0 {
		return errors.Wrapf(ErrSkeletonNotReady, "skeleton %q missing %v", s.name, missing)
	}
	s.graph.Propagate()
	bones := make(map[Bone]*scenegraph.Node, len(s.names))
	rest := make(map[scenegraph.NodeID]RestPose, len(s.names))
	for _, b := range s.names.Sorted() {
		n, _ := s.index.FindByName(s.names[b])
		bones[b] = n
		rest[n.ID()] = RestPose{Local: n.Local(), World: n.World()}
	}
	s.bones = bones
	s.rest = rest
	s.logger.Debugw("captured rest pose", "skeleton", s.name, "bones", len(bones))
	return nil
}

// Captured reports whether CaptureRest has succeeded.
func (s *Skeleton) Captured() bool {
	return s.rest != nil
}

// Bone returns the node of a bone resolved at rest capture.
func (s *Skeleton) Bone(b Bone) (*scenegraph.Node, error) {
	n, ok := s.bones[b]
	if !ok {
		return nil, errors.Wrapf(ErrBoneNotMapped, "%s in skeleton %q", b, s.name)
	}
	return n, nil
}

// Bones returns the bones resolved at rest capture in humanoid set order.
func (s *Skeleton) Bones() []Bone {
	return lo.Filter(allBones, func(b Bone, _ int) bool {
		_, ok := s.bones[b]
		return ok
	})
}

// Rest returns the rest pose captured for a node.
func (s *Skeleton) Rest(id scenegraph.NodeID) (RestPose, bool) {
	p, ok := s.rest[id]
	return p, ok
}

// BoneRest returns the rest pose and node of a bone.
func (s *Skeleton) BoneRest(b Bone) (*scenegraph.Node, RestPose, bool) {
	n, ok := s.bones[b]
	if !ok {
		return nil, RestPose{}, false
	}
	p, ok := s.rest[n.ID()]
	return n, p, ok
}
