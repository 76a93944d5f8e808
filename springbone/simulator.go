package springbone

import (
	"context"
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/num/quat"

	"github.com/vrmkit/avatar/logging"
	"github.com/vrmkit/avatar/scenegraph"
	"github.com/vrmkit/avatar/spatialmath"
)

const minBoneLength = 1e-9

// ErrZeroLengthBone is reported when a joint's child sits on the joint, leaving no bone axis.
var ErrZeroLengthBone = errors.New("zero length spring bone")

// JointState is the per-joint simulation state, keyed by the head joint of each segment.
// Tail positions are in the chain's center space, or world space when it has no center.
type JointState struct {
	PrevTail             r3.Vector
	CurrentTail          r3.Vector
	BoneAxis             r3.Vector
	BoneLength           float64
	InitialLocalMatrix   mgl64.Mat4
	InitialLocalRotation quat.Number
}

// Simulator advances every chain of a registry.
type Simulator struct {
	graph    *scenegraph.Graph
	registry *Registry
	logger   logging.Logger

	mu     sync.Mutex
	seeded bool
	states map[scenegraph.NodeID]*JointState
}

// NewSimulator returns an unseeded simulator.
func NewSimulator(graph *scenegraph.Graph, registry *Registry, logger logging.Logger) *Simulator {
	return &Simulator{graph: graph, registry: registry, logger: logger}
}

// Seeded reports whether the joint states have been initialized.
func (s *Simulator) Seeded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seeded
}

// State returns a copy of the state of the segment headed by id.
func (s *Simulator) State(id scenegraph.NodeID) (JointState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[id]
	if !ok {
		return JointState{}, false
	}
	return *st, true
}

// Seed records the rest configuration of every segment from the current pose. It runs once;
// later calls do nothing.
func (s *Simulator) Seed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seedLocked()
}

func (s *Simulator) seedLocked() {
	if s.seeded {
		return
	}
	s.graph.Propagate()
	s.states = map[scenegraph.NodeID]*JointState{}
	for _, chain := range s.registry.Chains() {
		for i := 0; i < len(chain.Joints)-1; i++ {
			head, tail := chain.Joints[i], chain.Joints[i+1]
			axis := tail.Local().Translation
			length := axis.Norm()
			if length < minBoneLength {
				s.logger.Warnw("skipping spring segment", "spring", chain.Name, "joint", head.Name(), "error", ErrZeroLengthBone)
				continue
			}
			pos := tail.World().Translation
			if chain.Center != nil {
				pos = tail.World().ReparentedTo(chain.Center.World()).Translation
			}
			s.states[head.ID()] = &JointState{
				PrevTail:             pos,
				CurrentTail:          pos,
				BoneAxis:             axis.Mul(1 / length),
				BoneLength:           length,
				InitialLocalMatrix:   head.Local().Matrix(),
				InitialLocalRotation: head.Local().Rotation,
			}
		}
	}
	s.seeded = true
	s.logger.Debugw("seeded spring joints", "chains", s.registry.Len(), "segments", len(s.states))
}

// frame holds world transforms read before chains run in parallel. Chains only read from it and
// only write their own joints.
type frame struct {
	parents   map[*Chain]spatialmath.Transform
	centers   map[*Chain]spatialmath.Transform
	colliders map[*scenegraph.Node]spatialmath.Transform
}

func (s *Simulator) snapshot() frame {
	f := frame{
		parents:   map[*Chain]spatialmath.Transform{},
		centers:   map[*Chain]spatialmath.Transform{},
		colliders: map[*scenegraph.Node]spatialmath.Transform{},
	}
	for _, chain := range s.registry.Chains() {
		if p := chain.Joints[0].Parent(); p != nil {
			f.parents[chain] = p.World()
		} else {
			f.parents[chain] = spatialmath.NewZeroTransform()
		}
		if chain.Center != nil {
			f.centers[chain] = chain.Center.World()
		}
		for _, c := range chain.Colliders {
			f.colliders[c.Node] = c.Node.World()
		}
	}
	return f
}

// Update advances every chain by dt seconds, seeding first if needed. World transforms must be
// propagated before the call; joint local rotations are written and the graph should be propagated
// again afterwards.
func (s *Simulator) Update(ctx context.Context, dt float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seedLocked()
	f := s.snapshot()

	g, ctx := errgroup.WithContext(ctx)
	for _, chain := range s.registry.Chains() {
		chain := chain
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s.updateChain(chain, f, dt)
			return nil
		})
	}
	return g.Wait()
}

func (s *Simulator) updateChain(chain *Chain, f frame, dt float64) {
	center, hasCenter := f.centers[chain]
	toWorld := func(p r3.Vector) r3.Vector {
		if hasCenter {
			return center.TransformPoint(p)
		}
		return p
	}
	toCenter := func(p r3.Vector) r3.Vector {
		if hasCenter {
			return center.InverseTransformPoint(p)
		}
		return p
	}

	parentWorld := f.parents[chain]
	headWorld := parentWorld.Compose(chain.Joints[0].Local())
	for i := 0; i < len(chain.Joints)-1; i++ {
		head, tail := chain.Joints[i], chain.Joints[i+1]
		st, ok := s.states[head.ID()]
		if ok {
			props := chain.Props[i]
			headPos := headWorld.Translation
			cur, prev := toWorld(st.CurrentTail), toWorld(st.PrevTail)

			inertia := cur.Sub(prev).Mul(1 - props.DragForce)
			restDir := spatialmath.TransformDirection(parentWorld.Matrix().Mul4(st.InitialLocalMatrix), st.BoneAxis)
			stiff := restDir.Normalize().Mul(dt * props.Stiffness)
			external := props.GravityDir.Mul(props.GravityPower * dt)
			next := project(headPos, cur.Add(inertia).Add(stiff).Add(external), cur, st.BoneLength)

			for _, c := range chain.Colliders {
				next = collide(c.Shape, f.colliders[c.Node], props.HitRadius, headPos, next, st.BoneLength)
			}

			st.PrevTail = st.CurrentTail
			st.CurrentTail = toCenter(next)

			restRot := quat.Mul(parentWorld.Rotation, st.InitialLocalRotation)
			to := spatialmath.RotateVector(spatialmath.QuatInverse(restRot), next.Sub(headPos))
			rot := spatialmath.Normalize(quat.Mul(st.InitialLocalRotation, spatialmath.QuatFromTo(st.BoneAxis, to)))
			head.SetLocal(head.Local().WithRotation(rot))
			headWorld = parentWorld.Compose(head.Local())
		}
		parentWorld = headWorld
		headWorld = headWorld.Compose(tail.Local())
	}
}

// project places p at length from head. When p coincides with head the previous tail direction is
// kept.
func project(head, p, fallback r3.Vector, length float64) r3.Vector {
	d := p.Sub(head)
	if d.Norm() < minBoneLength {
		d = fallback.Sub(head)
		if d.Norm() < minBoneLength {
			return fallback
		}
	}
	return head.Add(d.Normalize().Mul(length))
}

// collisionSlop widens colliders slightly so a resolved tail never rounds back inside.
const collisionSlop = 1e-9

// collide moves a tail that is inside a sphere collider to the nearest point that is both on the
// collider surface and at length from head.
func collide(shape Shape, world spatialmath.Transform, hitRadius float64, head, tail r3.Vector, length float64) r3.Vector {
	sphere, ok := shape.(Sphere)
	if !ok {
		return tail
	}
	center := world.TransformPoint(sphere.Offset)
	r := hitRadius + sphere.Radius*world.MaxAbsScale()
	if tail.Sub(center).Norm2() >= r*r {
		return tail
	}
	return onSurface(head, center, tail, length, r+collisionSlop)
}

// onSurface returns the point nearest p on the circle where the sphere of radius length around head
// meets the sphere of radius radius around center. If the bone sphere lies entirely inside the
// collider, the point farthest from center is returned.
func onSurface(head, center, p r3.Vector, length, radius float64) r3.Vector {
	hc := center.Sub(head)
	d := hc.Norm()
	if d < minBoneLength {
		return p
	}
	n := hc.Mul(1 / d)
	if d+length <= radius {
		return head.Sub(n.Mul(length))
	}
	a := (d*d + length*length - radius*radius) / (2 * d)
	rho := math.Sqrt(math.Max(length*length-a*a, 0))
	mid := head.Add(n.Mul(a))
	v := p.Sub(mid)
	v = v.Sub(n.Mul(v.Dot(n)))
	if v.Norm() < minBoneLength {
		v = n.Ortho()
	}
	return mid.Add(v.Normalize().Mul(rho))
}
