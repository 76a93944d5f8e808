package retarget

import (
	"github.com/vrmkit/avatar/animation"
	"github.com/vrmkit/avatar/humanoid"
	"github.com/vrmkit/avatar/logging"
)

// Clip returns a copy of src whose humanoid bone curves target the destination skeleton's nodes.
// Rotation curves of every shared bone and the hips translation curve are wrapped to map through
// table; other curves, and curves of nodes that are not shared bones, are kept unchanged.
func Clip(
	src *animation.Clip,
	srcSkel, dstSkel *humanoid.Skeleton,
	table *Table,
	logger logging.Logger,
) (*animation.Clip, error) {
	type rename struct {
		bone humanoid.Bone
		dst  string
	}
	renames := map[string]rename{}
	dstNames := dstSkel.BoneMap()
	for bone, srcName := range srcSkel.BoneMap() {
		if dstName, ok := dstNames[bone]; ok {
			renames[srcName] = rename{bone, dstName}
		}
	}

	out := animation.NewClip(src.Name())
	for _, target := range src.Targets() {
		r, ok := renames[target]
		if !ok {
			for _, c := range src.Curves(target) {
				out.AddCurve(target, c)
			}
			continue
		}
		for _, c := range src.Curves(target) {
			var (
				wrappedCurve animation.Curve = c
				err          error
			)
			switch {
			case c.Property() == animation.Rotation:
				wrappedCurve, err = NewRotationCurve(c, table)
			case c.Property() == animation.Translation && r.bone == humanoid.Hips:
				wrappedCurve, err = NewHipsTranslationCurve(c, table)
			}
			if err != nil {
				return nil, err
			}
			out.AddCurve(r.dst, wrappedCurve)
		}
		logger.Debugw("retargeted bone", "bone", r.bone, "from", target, "to", r.dst)
	}
	return out, nil
}
