// Package config defines the JSON descriptions of rigs and clips, validates them and builds the
// scene graphs, skeletons, spring specs and clips they describe.
package config

import (
	"fmt"

	"github.com/pkg/errors"
	"go.viam.com/utils"

	"github.com/vrmkit/avatar/lookat"
)

// Node is one node of a scene. Parent indexes an earlier node; nodes without a parent hang off the
// scene root. Rotation is a quaternion in x, y, z, w order.
type Node struct {
	Name        string    `json:"name"`
	Parent      *int      `json:"parent,omitempty"`
	Translation []float64 `json:"translation,omitempty"`
	Rotation    []float64 `json:"rotation,omitempty"`
	Scale       []float64 `json:"scale,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (n *Node) Validate(path string, index int) error {
	if n.Name == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "name")
	}
	if n.Parent != nil && (*n.Parent < 0 || *n.Parent >= index) {
		return utils.NewConfigValidationError(path, errors.Errorf("parent %d must index an earlier node", *n.Parent))
	}
	if err := checkLen(path, "translation", n.Translation, 3); err != nil {
		return err
	}
	if err := checkLen(path, "rotation", n.Rotation, 4); err != nil {
		return err
	}
	return checkLen(path, "scale", n.Scale, 3)
}

func checkLen(path, field string, v []float64, n int) error {
	if len(v) != 0 && len(v) != n {
		return utils.NewConfigValidationError(path, errors.Errorf("%s must have %d components, got %d", field, n, len(v)))
	}
	return nil
}

// HumanBone points a humanoid bone at a node.
type HumanBone struct {
	Node string `json:"node"`
}

// Humanoid maps humanoid bone names to nodes.
type Humanoid struct {
	HumanBones map[string]HumanBone `json:"humanBones"`
}

// Validate ensures all parts of the config are valid.
func (h *Humanoid) Validate(path string, names map[string]bool) error {
	for bone, hb := range h.HumanBones {
		bonePath := fmt.Sprintf("%s.humanBones.%s", path, bone)
		if hb.Node == "" {
			return utils.NewConfigValidationFieldRequiredError(bonePath, "node")
		}
		if !names[hb.Node] {
			return utils.NewConfigValidationError(bonePath, errors.Errorf("unknown node %q", hb.Node))
		}
	}
	return nil
}

// Names returns the raw bone to node name mapping.
func (h *Humanoid) Names() map[string]string {
	out := make(map[string]string, len(h.HumanBones))
	for bone, hb := range h.HumanBones {
		out[bone] = hb.Node
	}
	return out
}

// RangeMap mirrors lookat.RangeMap.
type RangeMap struct {
	InputMaxValue float64 `json:"inputMaxValue"`
	OutputScale   float64 `json:"outputScale"`
}

// LookAt describes the model's gaze.
type LookAt struct {
	Type                    string    `json:"type,omitempty"`
	OffsetFromHeadBone      []float64 `json:"offsetFromHeadBone,omitempty"`
	RangeMapHorizontalInner RangeMap  `json:"rangeMapHorizontalInner"`
	RangeMapHorizontalOuter RangeMap  `json:"rangeMapHorizontalOuter"`
	RangeMapVerticalDown    RangeMap  `json:"rangeMapVerticalDown"`
	RangeMapVerticalUp      RangeMap  `json:"rangeMapVerticalUp"`
}

// Validate ensures all parts of the config are valid.
func (l *LookAt) Validate(path string) error {
	if _, err := lookat.ParseType(l.Type); err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	return checkLen(path, "offsetFromHeadBone", l.OffsetFromHeadBone, 3)
}

// Properties converts the config to look-at properties.
func (l *LookAt) Properties() lookat.Properties {
	//nolint:errcheck
	typ, _ := lookat.ParseType(l.Type)
	rm := func(r RangeMap) lookat.RangeMap {
		return lookat.RangeMap{InputMaxValue: r.InputMaxValue, OutputScale: r.OutputScale}
	}
	return lookat.Properties{
		Type:               typ,
		OffsetFromHeadBone: vec3(l.OffsetFromHeadBone),
		HorizontalInner:    rm(l.RangeMapHorizontalInner),
		HorizontalOuter:    rm(l.RangeMapHorizontalOuter),
		VerticalDown:       rm(l.RangeMapVerticalDown),
		VerticalUp:         rm(l.RangeMapVerticalUp),
	}
}

// Rig describes a model: its nodes, humanoid mapping, spring bones and gaze.
type Rig struct {
	Name       string      `json:"name"`
	Nodes      []Node      `json:"nodes"`
	Humanoid   Humanoid    `json:"humanoid"`
	SpringBone *SpringBone `json:"springBone,omitempty"`
	LookAt     *LookAt     `json:"lookAt,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (r *Rig) Validate(path string) error {
	names, err := validateNodes(path, r.Nodes)
	if err != nil {
		return err
	}
	if err := r.Humanoid.Validate(path+".humanoid", names); err != nil {
		return err
	}
	if r.SpringBone != nil {
		if err := r.SpringBone.Validate(path+".springBone", names); err != nil {
			return err
		}
	}
	if r.LookAt != nil {
		if err := r.LookAt.Validate(path + ".lookAt"); err != nil {
			return err
		}
	}
	return nil
}

func validateNodes(path string, nodes []Node) (map[string]bool, error) {
	if len(nodes) == 0 {
		return nil, utils.NewConfigValidationFieldRequiredError(path, "nodes")
	}
	names := make(map[string]bool, len(nodes))
	for i := range nodes {
		if err := nodes[i].Validate(fmt.Sprintf("%s.nodes.%d", path, i), i); err != nil {
			return nil, err
		}
		names[nodes[i].Name] = true
	}
	return names, nil
}
