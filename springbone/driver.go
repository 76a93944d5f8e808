package springbone

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"github.com/vrmkit/avatar/logging"
	"github.com/vrmkit/avatar/scenegraph"
)

// StepFunc runs before each simulation tick, typically to apply animation.
type StepFunc func(ctx context.Context, dt float64) error

// Driver ticks a Simulator at a fixed interval. Each tick runs the optional pre-step, propagates the
// graph, updates the springs and propagates again.
type Driver struct {
	sim      *Simulator
	graph    *scenegraph.Graph
	clock    clock.Clock
	interval time.Duration
	preStep  StepFunc
	postStep StepFunc
	logger   logging.Logger
	ticks    atomic.Int64
}

// NewDriver returns a driver for sim. A nil clk uses the wall clock.
func NewDriver(sim *Simulator, clk clock.Clock, interval time.Duration, logger logging.Logger) *Driver {
	if clk == nil {
		clk = clock.New()
	}
	return &Driver{sim: sim, graph: sim.graph, clock: clk, interval: interval, logger: logger}
}

// SetPreStep installs a function run at the start of every tick. It must be called before Run.
func (d *Driver) SetPreStep(f StepFunc) {
	d.preStep = f
}

// SetPostStep installs a function run after the springs of every tick have been written and propagated.
func (d *Driver) SetPostStep(f StepFunc) {
	d.postStep = f
}

// Ticks returns the number of completed ticks.
func (d *Driver) Ticks() int64 {
	return d.ticks.Load()
}

// Step runs one tick of dt seconds.
func (d *Driver) Step(ctx context.Context, dt float64) error {
	if d.preStep != nil {
		if err := d.preStep(ctx, dt); err != nil {
			return errors.Wrap(err, "pre-step")
		}
	}
	d.graph.Propagate()
	if err := d.sim.Update(ctx, dt); err != nil {
		return err
	}
	d.graph.Propagate()
	d.ticks.Inc()
	if d.postStep != nil {
		if err := d.postStep(ctx, dt); err != nil {
			return errors.Wrap(err, "post-step")
		}
	}
	return nil
}

// Run ticks until ctx is done or a tick fails. Cancellation is not an error.
func (d *Driver) Run(ctx context.Context) error {
	if d.interval <= 0 {
		return errors.Errorf("invalid tick interval %s", d.interval)
	}
	ticker := d.clock.Ticker(d.interval)
	defer ticker.Stop()
	last := d.clock.Now()
	d.logger.Debugw("spring driver started", "interval", d.interval)
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			if err := d.Step(ctx, dt); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}
