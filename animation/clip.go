package animation

import (
	"sort"

	"github.com/samber/lo"
)

// Clip is a named set of curves keyed by the name of the node they animate.
type Clip struct {
	name     string
	curves   map[string][]Curve
	duration float64
}

// NewClip returns an empty clip.
func NewClip(name string) *Clip {
	return &Clip{name: name, curves: map[string][]Curve{}}
}

// Name returns the clip's name.
func (c *Clip) Name() string {
	return c.name
}

// Duration returns the longest curve duration.
func (c *Clip) Duration() float64 {
	return c.duration
}

// AddCurve appends a curve driving the node named target.
func (c *Clip) AddCurve(target string, curve Curve) {
	c.curves[target] = append(c.curves[target], curve)
	if d := curve.Duration(); d > c.duration {
		c.duration = d
	}
}

// Curves returns the curves driving the node named target.
func (c *Clip) Curves(target string) []Curve {
	return c.curves[target]
}

// Targets returns the animated node names in sorted order.
func (c *Clip) Targets() []string {
	targets := lo.Keys(c.curves)
	sort.Strings(targets)
	return targets
}

// NumCurves returns the total number of curves in the clip.
func (c *Clip) NumCurves() int {
	return lo.SumBy(lo.Values(c.curves), func(cs []Curve) int { return len(cs) })
}
