package springbone

import (
	"github.com/samber/lo"

	"github.com/vrmkit/avatar/logging"
	"github.com/vrmkit/avatar/scenegraph"
)

// NodeFinder resolves node names.
type NodeFinder interface {
	FindByName(name string) (*scenegraph.Node, bool)
}

// Collider is a shape attached to a node.
type Collider struct {
	Node  *scenegraph.Node
	Shape Shape
}

// Chain is a resolved spring: joints from root to tip, each the child of the one before.
type Chain struct {
	Name      string
	Joints    []*scenegraph.Node
	Props     []JointProps
	Center    *scenegraph.Node
	Colliders []Collider
}

// Registry holds the chains of one model.
type Registry struct {
	chains []*Chain
}

// NewRegistry resolves spec against the nodes found by finder. Joints, centers and colliders that
// do not resolve are dropped. A spring whose joints are not contiguous is split at each break into
// separate chains, and chains with fewer than two joints are skipped.
func NewRegistry(spec Spec, finder NodeFinder, logger logging.Logger) *Registry {
	colliders := make([]*Collider, len(spec.Colliders))
	for i, cs := range spec.Colliders {
		n, ok := finder.FindByName(cs.Node)
		if !ok {
			logger.Debugw("collider node not found", "node", cs.Node)
			continue
		}
		colliders[i] = &Collider{Node: n, Shape: cs.Shape}
	}

	reg := &Registry{}
	for _, ss := range spec.Springs {
		ss := ss
		chains := lo.Filter(segments(ss, finder, logger), func(c *Chain, _ int) bool {
			if len(c.Joints) < 2 {
				logger.Debugw("skipping spring segment with fewer than two joints", "spring", ss.Name, "joint", c.Joints[0].Name())
				return false
			}
			return true
		})
		if len(chains) == 0 {
			continue
		}
		var center *scenegraph.Node
		if ss.Center != "" {
			if c, ok := finder.FindByName(ss.Center); ok {
				center = c
			} else {
				logger.Debugw("spring center not found", "spring", ss.Name, "node", ss.Center)
			}
		}
		indexes := lo.Uniq(lo.FlatMap(ss.ColliderGroups, func(g int, _ int) []int {
			if g < 0 || g >= len(spec.ColliderGroups) {
				logger.Warnw("collider group out of range", "spring", ss.Name, "group", g)
				return nil
			}
			return spec.ColliderGroups[g]
		}))
		var resolved []Collider
		for _, i := range indexes {
			if i >= 0 && i < len(colliders) && colliders[i] != nil {
				resolved = append(resolved, *colliders[i])
			}
		}
		for _, c := range chains {
			c.Center = center
			c.Colliders = resolved
			reg.chains = append(reg.chains, c)
		}
	}
	return reg
}

// segments resolves the joints of ss into parent-child runs. An unresolved joint is dropped and the
// joints after it are kept, starting a new run when they no longer hang off the previous joint.
func segments(ss SpringSpec, finder NodeFinder, logger logging.Logger) []*Chain {
	var out []*Chain
	var cur *Chain
	for _, js := range ss.Joints {
		n, ok := finder.FindByName(js.Node)
		if !ok {
			logger.Debugw("spring joint not found", "spring", ss.Name, "node", js.Node)
			continue
		}
		if cur != nil {
			if last := cur.Joints[len(cur.Joints)-1]; n.Parent() != last {
				logger.Warnw("spring joints are not contiguous; splitting chain",
					"spring", ss.Name, "joint", n.Name(), "previous", last.Name())
				cur = nil
			}
		}
		if cur == nil {
			cur = &Chain{Name: ss.Name}
			out = append(out, cur)
		}
		cur.Joints = append(cur.Joints, n)
		cur.Props = append(cur.Props, js.Props)
	}
	return out
}

// Chains returns the resolved chains.
func (r *Registry) Chains() []*Chain {
	return r.chains
}

// Len returns the number of chains.
func (r *Registry) Len() int {
	return len(r.chains)
}

// Joints returns every joint of every chain.
func (r *Registry) Joints() []*scenegraph.Node {
	return lo.FlatMap(r.chains, func(c *Chain, _ int) []*scenegraph.Node { return c.Joints })
}
