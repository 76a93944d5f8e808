package config

import (
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"
	"go.viam.com/utils"
)

type validator interface {
	Validate(path string) error
}

func fromReader(path string, r io.Reader, v validator) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Wrapf(err, "cannot parse %s", path)
	}
	return v.Validate(path)
}

func read(filePath string, v validator) error {
	f, err := os.Open(filePath) //nolint:gosec
	if err != nil {
		return errors.Wrap(err, "cannot read config file")
	}
	defer utils.UncheckedErrorFunc(f.Close)
	return fromReader(filePath, f, v)
}

// RigFromReader reads and validates a rig.
func RigFromReader(path string, r io.Reader) (*Rig, error) {
	rig := &Rig{}
	if err := fromReader(path, r, rig); err != nil {
		return nil, err
	}
	return rig, nil
}

// ReadRig reads and validates a rig file.
func ReadRig(filePath string) (*Rig, error) {
	rig := &Rig{}
	if err := read(filePath, rig); err != nil {
		return nil, err
	}
	return rig, nil
}

// ClipFromReader reads and validates a clip.
func ClipFromReader(path string, r io.Reader) (*Clip, error) {
	clip := &Clip{}
	if err := fromReader(path, r, clip); err != nil {
		return nil, err
	}
	return clip, nil
}

// ReadClip reads and validates a clip file.
func ReadClip(filePath string) (*Clip, error) {
	clip := &Clip{}
	if err := read(filePath, clip); err != nil {
		return nil, err
	}
	return clip, nil
}
