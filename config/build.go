package config

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/vrmkit/avatar/humanoid"
	"github.com/vrmkit/avatar/logging"
	"github.com/vrmkit/avatar/scenegraph"
	"github.com/vrmkit/avatar/spatialmath"
	"github.com/vrmkit/avatar/springbone"
)

// Model is a built scene with its humanoid skeleton.
type Model struct {
	Graph    *scenegraph.Graph
	Root     *scenegraph.Node
	Skeleton *humanoid.Skeleton
}

// BuildGraph creates a graph with a root node named name and the given nodes beneath it.
func BuildGraph(name string, nodes []Node) (*scenegraph.Graph, *scenegraph.Node, error) {
	g := scenegraph.NewGraph(name)
	root, err := g.AddNode(name, nil, spatialmath.NewZeroTransform())
	if err != nil {
		return nil, nil, err
	}
	built := make([]*scenegraph.Node, len(nodes))
	for i, n := range nodes {
		n := n
		parent := root
		if n.Parent != nil {
			if *n.Parent < 0 || *n.Parent >= i {
				return nil, nil, errors.Errorf("node %q: parent %d must index an earlier node", n.Name, *n.Parent)
			}
			parent = built[*n.Parent]
		}
		built[i], err = g.AddNode(n.Name, parent, n.transform())
		if err != nil {
			return nil, nil, err
		}
	}
	return g, root, nil
}

func (n *Node) transform() spatialmath.Transform {
	t := spatialmath.NewZeroTransform()
	if len(n.Translation) == 3 {
		t.Translation = vec3(n.Translation)
	}
	if len(n.Rotation) == 4 {
		t.Rotation = spatialmath.Normalize(quatXYZW(n.Rotation))
	}
	if len(n.Scale) == 3 {
		t.Scale = r3.Vector{X: n.Scale[0], Y: n.Scale[1], Z: n.Scale[2]}
	}
	return t
}

func buildModel(name string, nodes []Node, h Humanoid, logger logging.Logger) (*Model, error) {
	g, root, err := BuildGraph(name, nodes)
	if err != nil {
		return nil, err
	}
	bones, unknown := humanoid.NewBoneMap(h.Names())
	if len(unknown) > 0 {
		logger.Warnw("ignoring unknown humanoid bones", "model", name, "bones", unknown)
	}
	skel := humanoid.NewSkeleton(name, g, root, bones, logger)
	if err := skel.CaptureRest(); err != nil {
		return nil, err
	}
	return &Model{Graph: g, Root: root, Skeleton: skel}, nil
}

// Build creates the rig's scene graph and skeleton and captures its rest pose.
func (r *Rig) Build(logger logging.Logger) (*Model, error) {
	return buildModel(r.Name, r.Nodes, r.Humanoid, logger)
}

// SpringRegistry resolves the rig's springs against a built model. A rig without springs yields an
// empty registry.
func (r *Rig) SpringRegistry(m *Model, logger logging.Logger) *springbone.Registry {
	var spec springbone.Spec
	if r.SpringBone != nil {
		spec = r.SpringBone.Spec()
	}
	return springbone.NewRegistry(spec, m.Skeleton.Index(), logger)
}

// Build creates the clip's source scene graph and skeleton, capturing the authored rest pose.
func (c *Clip) Build(logger logging.Logger) (*Model, error) {
	return buildModel(c.Name, c.Nodes, c.Humanoid, logger)
}
