package config

import (
	"fmt"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/utils"
	"gonum.org/v1/gonum/num/quat"

	"github.com/vrmkit/avatar/animation"
)

// Channel animates one property of one node. Values hold one entry per time: three components for
// translation and scale, four (x, y, z, w) for rotation.
type Channel struct {
	Node          string      `json:"node"`
	Path          string      `json:"path"`
	Interpolation string      `json:"interpolation,omitempty"`
	Times         []float64   `json:"times"`
	Values        [][]float64 `json:"values"`
}

// Validate ensures all parts of the config are valid.
func (c *Channel) Validate(path string) error {
	if c.Node == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "node")
	}
	prop, err := animation.ParseProperty(c.Path)
	if err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	if _, err := animation.ParseInterpolation(c.Interpolation); err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	if len(c.Times) == 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "times")
	}
	if len(c.Values) != len(c.Times) {
		return utils.NewConfigValidationError(path, errors.Errorf("%d values for %d times", len(c.Values), len(c.Times)))
	}
	width := 3
	if prop == animation.Rotation {
		width = 4
	}
	for i, v := range c.Values {
		if err := checkLen(fmt.Sprintf("%s.values.%d", path, i), "value", v, width); err != nil {
			return err
		}
		if len(v) == 0 {
			return utils.NewConfigValidationFieldRequiredError(fmt.Sprintf("%s.values.%d", path, i), "value")
		}
	}
	return nil
}

// Curve builds the keyframe curve of the channel.
func (c *Channel) Curve() (animation.Curve, error) {
	prop, err := animation.ParseProperty(c.Path)
	if err != nil {
		return nil, err
	}
	interp, err := animation.ParseInterpolation(c.Interpolation)
	if err != nil {
		return nil, err
	}
	if prop == animation.Rotation {
		values := make([]quat.Number, len(c.Values))
		for i, v := range c.Values {
			values[i] = quatXYZW(v)
		}
		return animation.NewQuatCurve(c.Times, values, interp)
	}
	values := make([]r3.Vector, len(c.Values))
	for i, v := range c.Values {
		values[i] = vec3(v)
	}
	return animation.NewVec3Curve(prop, c.Times, values, interp)
}

// Clip describes an animation together with the rest pose of the skeleton it was authored on.
type Clip struct {
	Name     string    `json:"name"`
	Nodes    []Node    `json:"nodes"`
	Humanoid Humanoid  `json:"humanoid"`
	Channels []Channel `json:"channels"`
}

// Validate ensures all parts of the config are valid.
func (c *Clip) Validate(path string) error {
	names, err := validateNodes(path, c.Nodes)
	if err != nil {
		return err
	}
	if err := c.Humanoid.Validate(path+".humanoid", names); err != nil {
		return err
	}
	for i := range c.Channels {
		if err := c.Channels[i].Validate(fmt.Sprintf("%s.channels.%d", path, i)); err != nil {
			return err
		}
	}
	return nil
}

// Animation builds the clip's curves keyed by node name.
func (c *Clip) Animation() (*animation.Clip, error) {
	out := animation.NewClip(c.Name)
	for i := range c.Channels {
		curve, err := c.Channels[i].Curve()
		if err != nil {
			return nil, errors.Wrapf(err, "channel %d", i)
		}
		out.AddCurve(c.Channels[i].Node, curve)
	}
	return out, nil
}

func quatXYZW(v []float64) quat.Number {
	if len(v) != 4 {
		return quat.Number{Real: 1}
	}
	return quat.Number{Real: v[3], Imag: v[0], Jmag: v[1], Kmag: v[2]}
}
