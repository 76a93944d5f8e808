package humanoid

import (
	"sync"

	"github.com/vrmkit/avatar/scenegraph"
)

// Index resolves node names beneath a root. The name table is built once on first use; names that
// miss it fall back to a depth-first search, and hits from the fallback are cached. Misses are not
// cached since the node may be spawned later.
type Index struct {
	root *scenegraph.Node

	mu     sync.Mutex
	built  bool
	byName map[string]*scenegraph.Node
}

// NewIndex returns an index over the subtree rooted at root.
func NewIndex(root *scenegraph.Node) *Index {
	return &Index{root: root}
}

// Root returns the node the index searches from.
func (idx *Index) Root() *scenegraph.Node {
	return idx.root
}

// FindByName returns the first node named name in depth-first pre-order.
func (idx *Index) FindByName(name string) (*scenegraph.Node, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if !idx.built {
		idx.build()
	}
	if n, ok := idx.byName[name]; ok {
		return n, true
	}
	n, ok := scenegraph.FindByName(idx.root, name)
	if ok {
		idx.byName[name] = n
	}
	return n, ok
}

// Invalidate drops the name table so the next lookup rebuilds it.
func (idx *Index) Invalidate() {
	idx.mu.Lock()
	idx.built = false
	idx.byName = nil
	idx.mu.Unlock()
}

func (idx *Index) build() {
	idx.byName = map[string]*scenegraph.Node{}
	scenegraph.Walk(idx.root, func(n *scenegraph.Node) bool {
		if _, ok := idx.byName[n.Name()]; !ok {
			idx.byName[n.Name()] = n
		}
		return true
	})
	idx.built = true
}
