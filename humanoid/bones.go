// Package humanoid maps the canonical humanoid bone set onto scene nodes and records each bone's
// rest pose.
package humanoid

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Bone is the canonical role of a node in a humanoid skeleton, e.g. "hips" or "leftUpperArm".
type Bone string

// The humanoid bone set.
const (
	Hips       Bone = "hips"
	Spine      Bone = "spine"
	Chest      Bone = "chest"
	UpperChest Bone = "upperChest"
	Neck       Bone = "neck"
	Head       Bone = "head"
	LeftEye    Bone = "leftEye"
	RightEye   Bone = "rightEye"
	Jaw        Bone = "jaw"

	LeftUpperLeg  Bone = "leftUpperLeg"
	LeftLowerLeg  Bone = "leftLowerLeg"
	LeftFoot      Bone = "leftFoot"
	LeftToes      Bone = "leftToes"
	RightUpperLeg Bone = "rightUpperLeg"
	RightLowerLeg Bone = "rightLowerLeg"
	RightFoot     Bone = "rightFoot"
	RightToes     Bone = "rightToes"

	LeftShoulder  Bone = "leftShoulder"
	LeftUpperArm  Bone = "leftUpperArm"
	LeftLowerArm  Bone = "leftLowerArm"
	LeftHand      Bone = "leftHand"
	RightShoulder Bone = "rightShoulder"
	RightUpperArm Bone = "rightUpperArm"
	RightLowerArm Bone = "rightLowerArm"
	RightHand     Bone = "rightHand"

	LeftThumbMetacarpal    Bone = "leftThumbMetacarpal"
	LeftThumbProximal      Bone = "leftThumbProximal"
	LeftThumbDistal        Bone = "leftThumbDistal"
	LeftIndexProximal      Bone = "leftIndexProximal"
	LeftIndexIntermediate  Bone = "leftIndexIntermediate"
	LeftIndexDistal        Bone = "leftIndexDistal"
	LeftMiddleProximal     Bone = "leftMiddleProximal"
	LeftMiddleIntermediate Bone = "leftMiddleIntermediate"
	LeftMiddleDistal       Bone = "leftMiddleDistal"
	LeftRingProximal       Bone = "leftRingProximal"
	LeftRingIntermediate   Bone = "leftRingIntermediate"
	LeftRingDistal         Bone = "leftRingDistal"
	LeftLittleProximal     Bone = "leftLittleProximal"
	LeftLittleIntermediate Bone = "leftLittleIntermediate"
	LeftLittleDistal       Bone = "leftLittleDistal"

	RightThumbMetacarpal    Bone = "rightThumbMetacarpal"
	RightThumbProximal      Bone = "rightThumbProximal"
	RightThumbDistal        Bone = "rightThumbDistal"
	RightIndexProximal      Bone = "rightIndexProximal"
	RightIndexIntermediate  Bone = "rightIndexIntermediate"
	RightIndexDistal        Bone = "rightIndexDistal"
	RightMiddleProximal     Bone = "rightMiddleProximal"
	RightMiddleIntermediate Bone = "rightMiddleIntermediate"
	RightMiddleDistal       Bone = "rightMiddleDistal"
	RightRingProximal       Bone = "rightRingProximal"
	RightRingIntermediate   Bone = "rightRingIntermediate"
	RightRingDistal         Bone = "rightRingDistal"
	RightLittleProximal     Bone = "rightLittleProximal"
	RightLittleIntermediate Bone = "rightLittleIntermediate"
	RightLittleDistal       Bone = "rightLittleDistal"
)

var allBones = []Bone{
	Hips, Spine, Chest, UpperChest, Neck, Head, LeftEye, RightEye, Jaw,
	LeftUpperLeg, LeftLowerLeg, LeftFoot, LeftToes,
	RightUpperLeg, RightLowerLeg, RightFoot, RightToes,
	LeftShoulder, LeftUpperArm, LeftLowerArm, LeftHand,
	RightShoulder, RightUpperArm, RightLowerArm, RightHand,
	LeftThumbMetacarpal, LeftThumbProximal, LeftThumbDistal,
	LeftIndexProximal, LeftIndexIntermediate, LeftIndexDistal,
	LeftMiddleProximal, LeftMiddleIntermediate, LeftMiddleDistal,
	LeftRingProximal, LeftRingIntermediate, LeftRingDistal,
	LeftLittleProximal, LeftLittleIntermediate, LeftLittleDistal,
	RightThumbMetacarpal, RightThumbProximal, RightThumbDistal,
	RightIndexProximal, RightIndexIntermediate, RightIndexDistal,
	RightMiddleProximal, RightMiddleIntermediate, RightMiddleDistal,
	RightRingProximal, RightRingIntermediate, RightRingDistal,
	RightLittleProximal, RightLittleIntermediate, RightLittleDistal,
}

var bonesByUpper = func() map[string]Bone {
	m := make(map[string]Bone, len(allBones))
	for _, b := range allBones {
		m[strings.ToUpper(string(b))] = b
	}
	return m
}()

// ErrUnknownBone is returned when a name is not part of the humanoid bone set.
var ErrUnknownBone = errors.New("unknown humanoid bone")

// AllBones returns every humanoid bone, torso first.
func AllBones() []Bone {
	out := make([]Bone, len(allBones))
	copy(out, allBones)
	return out
}

// ParseBone resolves a bone name case-insensitively.
func ParseBone(name string) (Bone, error) {
	if b, ok := bonesByUpper[strings.ToUpper(name)]; ok {
		return b, nil
	}
	return "", errors.Wrapf(ErrUnknownBone, "%q", name)
}

// BoneMap maps humanoid bones to the names of the nodes that represent them.
type BoneMap map[Bone]string

// NewBoneMap parses raw bone names. Names outside the humanoid set are returned separately so the
// caller can report them; they are not an error.
func NewBoneMap(raw map[string]string) (BoneMap, []string) {
	bm := make(BoneMap, len(raw))
	var unknown []string
	for name, node := range raw {
		b, err := ParseBone(name)
		if err != nil {
			unknown = append(unknown, name)
			continue
		}
		bm[b] = node
	}
	sort.Strings(unknown)
	return bm, unknown
}

// Sorted returns the mapped bones in humanoid set order.
func (bm BoneMap) Sorted() []Bone {
	out := make([]Bone, 0, len(bm))
	for _, b := range allBones {
		if _, ok := bm[b]; ok {
			out = append(out, b)
		}
	}
	return out
}
