package animation

import (
	"math"

	"go.uber.org/multierr"

	"github.com/vrmkit/avatar/logging"
	"github.com/vrmkit/avatar/scenegraph"
)

// NodeFinder resolves animation target names to nodes.
type NodeFinder interface {
	FindByName(name string) (*scenegraph.Node, bool)
}

// Mode selects how a playing clip combines with clips before it.
type Mode int

// Blend modes.
const (
	ModeBlend Mode = iota
	ModeAdditive
)

// Playback is a clip being played along with its playback state.
type Playback struct {
	Clip   *Clip
	Time   float64
	Weight float64
	Speed  float64
	Mode   Mode
	Repeat bool
}

type evaluatorKey struct {
	node scenegraph.NodeID
	id   EvaluatorID
}

// Player advances clips and commits their blended values to nodes. Evaluators are created on first
// use per node and evaluator id and reused afterwards.
type Player struct {
	playing    []*Playback
	evaluators map[evaluatorKey]Evaluator
	logger     logging.Logger
}

// NewPlayer returns a player with no clips.
func NewPlayer(logger logging.Logger) *Player {
	return &Player{evaluators: map[evaluatorKey]Evaluator{}, logger: logger}
}

// Play starts clip at time zero with full weight and returns its playback state.
func (p *Player) Play(clip *Clip) *Playback {
	pb := &Playback{Clip: clip, Weight: 1, Speed: 1, Repeat: true}
	p.playing = append(p.playing, pb)
	return pb
}

// Playing returns the clips in evaluation order.
func (p *Player) Playing() []*Playback {
	return p.playing
}

// Advance moves every clip forward by dt seconds scaled by its speed.
func (p *Player) Advance(dt float64) {
	for _, pb := range p.playing {
		pb.Time += dt * pb.Speed
		d := pb.Clip.Duration()
		switch {
		case d <= 0:
			pb.Time = 0
		case pb.Repeat:
			pb.Time = math.Mod(pb.Time, d)
			if pb.Time < 0 {
				pb.Time += d
			}
		case pb.Time > d:
			pb.Time = d
		case pb.Time < 0:
			pb.Time = 0
		}
	}
}

// Evaluate samples every clip at its current time and commits the results. Targets that do not
// resolve are skipped. A failed commit does not stop the others; all failures are returned
// combined.
func (p *Player) Evaluate(finder NodeFinder) error {
	var order []evaluatorKey
	touched := map[evaluatorKey]*scenegraph.Node{}
	for _, pb := range p.playing {
		if pb.Weight == 0 {
			continue
		}
		for _, target := range pb.Clip.Targets() {
			node, ok := finder.FindByName(target)
			if !ok {
				p.logger.Debugw("animation target not found", "clip", pb.Clip.Name(), "target", target)
				continue
			}
			for _, curve := range pb.Clip.Curves(target) {
				key := evaluatorKey{node.ID(), curve.EvaluatorID()}
				ev, ok := p.evaluators[key]
				if !ok {
					ev = curve.NewEvaluator()
					p.evaluators[key] = ev
				}
				if _, ok := touched[key]; !ok {
					touched[key] = node
					order = append(order, key)
				}
				if b, ok := curve.(Binder); ok {
					b.Bind(ev)
				}
				ev.Push(curve.Sample(pb.Time), pb.Weight)
				if pb.Mode == ModeAdditive {
					ev.Add()
				} else {
					ev.Blend()
				}
			}
		}
	}

	var errs error
	for _, key := range order {
		multierr.AppendInto(&errs, p.evaluators[key].Commit(touched[key]))
	}
	return errs
}
