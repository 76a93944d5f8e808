// Package scenegraph holds the node hierarchy that skeletons, clips and spring chains operate on.
// Each node has a local transform relative to its parent and a cached world transform that is
// refreshed by Propagate.
package scenegraph

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/vrmkit/avatar/spatialmath"
)

// NodeID identifies a node within one Graph. IDs are assigned in insertion order starting at 0.
type NodeID int

// ErrNodeNotFound is returned when a node id does not belong to the graph.
var ErrNodeNotFound = errors.New("node not found")

// Node is a named element of a scene hierarchy.
type Node struct {
	id       NodeID
	name     string
	local    spatialmath.Transform
	world    spatialmath.Transform
	parent   *Node
	children []*Node
}

// ID returns the node's id.
func (n *Node) ID() NodeID {
	return n.id
}

// Name returns the node's name. Names are not required to be unique.
func (n *Node) Name() string {
	return n.name
}

// Parent returns the parent node, or nil for a root.
func (n *Node) Parent() *Node {
	return n.parent
}

// Children returns the node's children in insertion order.
func (n *Node) Children() []*Node {
	return n.children
}

// Local returns the transform from this node to its parent.
func (n *Node) Local() spatialmath.Transform {
	return n.local
}

// SetLocal replaces the local transform. The cached world transform is stale until the next Propagate.
func (n *Node) SetLocal(t spatialmath.Transform) {
	n.local = t
}

// World returns the world transform cached by the last Propagate.
func (n *Node) World() spatialmath.Transform {
	return n.world
}

func (n *Node) String() string {
	return fmt.Sprintf("%s#%d", n.name, n.id)
}

// Graph is a forest of nodes. It is not safe for concurrent mutation; disjoint nodes may have their
// local transforms written concurrently as long as Propagate is not running.
type Graph struct {
	name  string
	nodes []*Node
	roots []*Node
}

// NewGraph returns an empty graph.
func NewGraph(name string) *Graph {
	return &Graph{name: name}
}

// Name returns the name of the graph.
func (g *Graph) Name() string {
	return g.name
}

// AddNode inserts a node under parent, or as a new root when parent is nil.
func (g *Graph) AddNode(name string, parent *Node, local spatialmath.Transform) (*Node, error) {
	if parent != nil && !g.owns(parent) {
		return nil, errors.Wrapf(ErrNodeNotFound, "parent %s is not in graph %q", parent, g.name)
	}
	n := &Node{id: NodeID(len(g.nodes)), name: name, local: local, parent: parent}
	if parent == nil {
		n.world = local
		g.roots = append(g.roots, n)
	} else {
		n.world = parent.world.Compose(local)
		parent.children = append(parent.children, n)
	}
	g.nodes = append(g.nodes, n)
	return n, nil
}

func (g *Graph) owns(n *Node) bool {
	return int(n.id) < len(g.nodes) && g.nodes[n.id] == n
}

// Node returns the node with the given id.
func (g *Graph) Node(id NodeID) (*Node, error) {
	if id < 0 || int(id) >= len(g.nodes) {
		return nil, errors.Wrapf(ErrNodeNotFound, "id %d in graph %q", id, g.name)
	}
	return g.nodes[id], nil
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Roots returns the nodes without parents.
func (g *Graph) Roots() []*Node {
	return g.roots
}

// Walk visits root and its descendants in depth-first pre-order. Returning false from visit stops
// the walk.
func Walk(root *Node, visit func(*Node) bool) bool {
	if !visit(root) {
		return false
	}
	for _, child := range root.children {
		if !Walk(child, visit) {
			return false
		}
	}
	return true
}

// FindByName returns the first node named name in a depth-first pre-order search from root.
func FindByName(root *Node, name string) (*Node, bool) {
	var found *Node
	Walk(root, func(n *Node) bool {
		if n.name == name {
			found = n
			return false
		}
		return true
	})
	return found, found != nil
}

// IsAncestor reports whether ancestor is a strict ancestor of n.
func IsAncestor(ancestor, n *Node) bool {
	for p := n.parent; p != nil; p = p.parent {
		if p == ancestor {
			return true
		}
	}
	return false
}

// Traceback returns n followed by its ancestors up to and including its root.
func Traceback(n *Node) []*Node {
	var chain []*Node
	for p := n; p != nil; p = p.parent {
		chain = append(chain, p)
	}
	return chain
}

// ComputeWorld composes local transforms from the root down to n, ignoring the cached value.
func ComputeWorld(n *Node) spatialmath.Transform {
	chain := Traceback(n)
	world := chain[len(chain)-1].local
	for i := len(chain) - 2; i >= 0; i-- {
		world = world.Compose(chain[i].local)
	}
	return world
}

// Propagate refreshes the cached world transform of every node.
func (g *Graph) Propagate() {
	for _, root := range g.roots {
		PropagateFrom(root)
	}
}

// PropagateFrom refreshes the cached world transforms of n and its descendants, using the cached
// world transform of n's parent.
func PropagateFrom(n *Node) {
	if n.parent == nil {
		n.world = n.local
	} else {
		n.world = n.parent.world.Compose(n.local)
	}
	for _, child := range n.children {
		PropagateFrom(child)
	}
}
