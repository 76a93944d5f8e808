package cli

import (
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r3"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/num/quat"

	"github.com/vrmkit/avatar/animation"
	"github.com/vrmkit/avatar/config"
	"github.com/vrmkit/avatar/humanoid"
	"github.com/vrmkit/avatar/logging"
	"github.com/vrmkit/avatar/lookat"
	"github.com/vrmkit/avatar/retarget"
	"github.com/vrmkit/avatar/springbone"
)

func loadRig(c *cli.Context, logger logging.Logger) (*config.Rig, *config.Model, error) {
	rig, err := config.ReadRig(c.Path(flagRig))
	if err != nil {
		return nil, nil, err
	}
	m, err := rig.Build(logger)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "cannot build rig %q", rig.Name)
	}
	return rig, m, nil
}

// retargetedPlayer loads the clip file and returns a player with the clip retargeted onto dst.
func retargetedPlayer(c *cli.Context, dst *config.Model, logger logging.Logger) (*animation.Player, *animation.Playback, error) {
	clipCfg, err := config.ReadClip(c.Path(flagClip))
	if err != nil {
		return nil, nil, err
	}
	src, err := clipCfg.Build(logger)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "cannot build clip skeleton %q", clipCfg.Name)
	}
	anim, err := clipCfg.Animation()
	if err != nil {
		return nil, nil, err
	}
	tbl, err := retarget.NewTable(src.Skeleton, dst.Skeleton, logger)
	if err != nil {
		return nil, nil, err
	}
	out, err := retarget.Clip(anim, src.Skeleton, dst.Skeleton, tbl, logger)
	if err != nil {
		return nil, nil, err
	}
	player := animation.NewPlayer(logger.Sublogger("animation"))
	return player, player.Play(out), nil
}

func warnChannels(logger logging.Logger, err error) {
	for _, e := range multierr.Errors(err) {
		logger.Warnw("channel not applied", "error", e)
	}
}

// InspectAction prints the humanoid bones and spring chains of a rig.
func InspectAction(c *cli.Context) error {
	logger, err := newLogger(c)
	if err != nil {
		return err
	}
	rig, m, err := loadRig(c, logger)
	if err != nil {
		return err
	}
	printf(c.App.Writer, "%s", bonesTable(m.Skeleton))
	printf(c.App.Writer, "%s", chainsTable(rig.SpringRegistry(m, logger)))
	return nil
}

// RetargetAction samples a clip retargeted onto a rig and prints the resulting pose.
func RetargetAction(c *cli.Context) error {
	logger, err := newLogger(c)
	if err != nil {
		return err
	}
	_, m, err := loadRig(c, logger)
	if err != nil {
		return err
	}
	player, pb, err := retargetedPlayer(c, m, logger)
	if err != nil {
		return err
	}
	pb.Repeat = false
	player.Advance(c.Float64(flagTime))
	warnChannels(logger, player.Evaluate(m.Skeleton.Index()))
	m.Graph.Propagate()
	printf(c.App.Writer, "%s", poseTable(m.Skeleton))
	return nil
}

// SimulateAction runs the spring bones of a rig for a number of ticks and prints the joints.
func SimulateAction(c *cli.Context) error {
	logger, err := newLogger(c)
	if err != nil {
		return err
	}
	rig, m, err := loadRig(c, logger)
	if err != nil {
		return err
	}
	rate := c.Float64(flagRate)
	if rate <= 0 {
		return errors.Errorf("--%s must be positive", flagRate)
	}
	frames := c.Int(flagFrames)
	interval := time.Duration(float64(time.Second) / rate)

	reg := rig.SpringRegistry(m, logger.Sublogger("springbone"))
	sim := springbone.NewSimulator(m.Graph, reg, logger.Sublogger("springbone"))
	driver := springbone.NewDriver(sim, clock.New(), interval, logger)
	tips := newTipMotion(reg)
	driver.SetPostStep(tips.record)
	if c.Path(flagClip) != "" {
		player, _, err := retargetedPlayer(c, m, logger)
		if err != nil {
			return err
		}
		driver.SetPreStep(func(ctx context.Context, dt float64) error {
			player.Advance(dt)
			if err := player.Evaluate(m.Skeleton.Index()); err != nil {
				logger.Debugw("channels not applied", "error", err)
			}
			return nil
		})
	}

	if c.Bool(flagRealtime) {
		ctx, cancel := context.WithTimeout(c.Context, time.Duration(frames)*interval+interval/2)
		defer cancel()
		if err := driver.Run(ctx); err != nil {
			return err
		}
	} else {
		for i := 0; i < frames; i++ {
			if err := driver.Step(c.Context, interval.Seconds()); err != nil {
				return err
			}
		}
	}

	if s := c.String(flagLookAt); s != "" {
		if err := applyLookAt(rig, m, s); err != nil {
			return err
		}
	}
	logger.Infow("simulation finished", "ticks", driver.Ticks(), "chains", reg.Len())
	printf(c.App.Writer, "%s", springTable(reg))
	summary, err := tips.table()
	if err != nil {
		return err
	}
	printf(c.App.Writer, "%s", summary)
	return nil
}

// tipMotion records how far the tip of every chain moves on each tick.
type tipMotion struct {
	chains []*springbone.Chain
	last   []r3.Vector
	steps  []stats.Float64Data
}

func newTipMotion(reg *springbone.Registry) *tipMotion {
	m := &tipMotion{chains: reg.Chains()}
	m.last = make([]r3.Vector, len(m.chains))
	m.steps = make([]stats.Float64Data, len(m.chains))
	for i, chain := range m.chains {
		m.last[i] = chainTip(chain)
	}
	return m
}

func chainTip(chain *springbone.Chain) r3.Vector {
	return chain.Joints[len(chain.Joints)-1].World().Translation
}

func (m *tipMotion) record(ctx context.Context, dt float64) error {
	for i, chain := range m.chains {
		tip := chainTip(chain)
		m.steps[i] = append(m.steps[i], tip.Sub(m.last[i]).Norm())
		m.last[i] = tip
	}
	return nil
}

func (m *tipMotion) table() (string, error) {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Spring", "Ticks", "Mean Tip Step", "Max Tip Step", "Std Dev"})
	for i, chain := range m.chains {
		steps := m.steps[i]
		if steps.Len() == 0 {
			continue
		}
		mean, err := stats.Mean(steps)
		if err != nil {
			return "", err
		}
		maxStep, err := stats.Max(steps)
		if err != nil {
			return "", err
		}
		sd, err := stats.StandardDeviation(steps)
		if err != nil {
			return "", err
		}
		t.AppendRow(table.Row{chain.Name, steps.Len(), fmt.Sprintf("%.4f", mean), fmt.Sprintf("%.4f", maxStep), fmt.Sprintf("%.4f", sd)})
	}
	return t.Render(), nil
}

func applyLookAt(rig *config.Rig, m *config.Model, target string) error {
	if rig.LookAt == nil {
		return errors.Errorf("rig %q has no lookAt", rig.Name)
	}
	p, err := parseVec(target)
	if err != nil {
		return err
	}
	eyes, err := lookat.NewRig(m.Skeleton)
	if err != nil {
		return err
	}
	if err := eyes.Apply(rig.LookAt.Properties(), p); err != nil {
		return err
	}
	m.Graph.Propagate()
	return nil
}

// SchemaAction prints the JSON schema of a config kind.
func SchemaAction(c *cli.Context) error {
	b, err := config.SchemaJSON(c.String(flagKind))
	if err != nil {
		return err
	}
	printf(c.App.Writer, "%s", b)
	return nil
}

func parseVec(s string) (r3.Vector, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return r3.Vector{}, errors.Errorf("expected X,Y,Z but got %q", s)
	}
	var v [3]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return r3.Vector{}, errors.Wrapf(err, "component %d of %q", i, s)
		}
		v[i] = f
	}
	return r3.Vector{X: v[0], Y: v[1], Z: v[2]}, nil
}

func bonesTable(skel *humanoid.Skeleton) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Bone", "Node", "Rest Position", "Rest Rotation"})
	for i, b := range skel.Bones() {
		n, rest, _ := skel.BoneRest(b)
		t.AppendRow(table.Row{i + 1, b, n.Name(), fmtVec(rest.World.Translation), fmtQuat(rest.Local.Rotation)})
	}
	return t.Render()
}

func poseTable(skel *humanoid.Skeleton) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Bone", "Node", "Translation", "Rotation", "Position"})
	for _, b := range skel.Bones() {
		//nolint:errcheck
		n, _ := skel.Bone(b)
		local := n.Local()
		t.AppendRow(table.Row{b, n.Name(), fmtVec(local.Translation), fmtQuat(local.Rotation), fmtVec(n.World().Translation)})
	}
	return t.Render()
}

func chainsTable(reg *springbone.Registry) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Spring", "Joints", "Center", "Colliders"})
	for _, chain := range reg.Chains() {
		names := make([]string, len(chain.Joints))
		for i, j := range chain.Joints {
			names[i] = j.Name()
		}
		center := ""
		if chain.Center != nil {
			center = chain.Center.Name()
		}
		t.AppendRow(table.Row{chain.Name, strings.Join(names, " > "), center, len(chain.Colliders)})
	}
	return t.Render()
}

func springTable(reg *springbone.Registry) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Spring", "Joint", "Position", "Rotation"})
	for _, chain := range reg.Chains() {
		for _, j := range chain.Joints {
			t.AppendRow(table.Row{chain.Name, j.Name(), fmtVec(j.World().Translation), fmtQuat(j.Local().Rotation)})
		}
	}
	return t.Render()
}

func fmtVec(v r3.Vector) string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f)", clean(v.X), clean(v.Y), clean(v.Z))
}

func fmtQuat(q quat.Number) string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f, %.3f)", clean(q.Imag), clean(q.Jmag), clean(q.Kmag), clean(q.Real))
}

// clean zeroes values that would print as -0.000.
func clean(f float64) float64 {
	if math.Abs(f) < 5e-4 {
		return 0
	}
	return f
}

func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}
