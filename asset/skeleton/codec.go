package skeleton

import (
	"encoding/binary"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/assetrename/asset"
	"github.com/mogaika/assetrename/chunk"
	"github.com/mogaika/assetrename/format"

	"github.com/pkg/errors"
)

// Decode reads a whole skeleton file, header included.
func Decode(r *chunk.Reader) (*Skeleton, *format.Revision, error) {
	rev, err := format.ReadHeader(r)
	if err != nil {
		return nil, nil, err
	}
	if rev.Kind != asset.KindSkeleton {
		return nil, nil, errors.Wrapf(format.ErrUnsupportedVersion, "%q is not a skeleton version", rev.Label)
	}

	s := New()
	s.loaded = rev.Label
	var tracks []*Track
	for !r.EOF() {
		h, err := r.ReadChunkHeader()
		if err != nil {
			return nil, nil, err
		}

		var e chunk.Element
		switch {
		case h.ID == ChunkBlendMode && rev.BlendMode:
			sub, err := r.Sub("blendmode", h)
			if err != nil {
				return nil, nil, err
			}
			bm := &BlendMode{}
			if bm.Mode, err = sub.Uint16(); err != nil {
				return nil, nil, errors.Wrapf(err, "blend mode")
			}
			bm.tail = sub.Rest()
			e = bm
		case h.ID == ChunkBone:
			sub, err := r.Sub("bone", h)
			if err != nil {
				return nil, nil, err
			}
			b, err := decodeBone(sub, rev)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "bone %d", len(s.bones))
			}
			if err := s.insertBone(b); err != nil {
				return nil, nil, err
			}
			e = b
		case h.ID == ChunkBoneParent:
			sub, err := r.Sub("boneparent", h)
			if err != nil {
				return nil, nil, err
			}
			bp := &BoneParent{}
			if bp.Child, err = sub.Uint16(); err != nil {
				return nil, nil, err
			}
			if bp.Parent, err = sub.Uint16(); err != nil {
				return nil, nil, err
			}
			bp.tail = sub.Rest()
			if err := s.link(bp); err != nil {
				return nil, nil, errors.Wrapf(err, "bone parent")
			}
			e = bp
		case h.ID == ChunkAnimation:
			sub, err := r.Sub("animation", h)
			if err != nil {
				return nil, nil, err
			}
			a, err := decodeAnimation(sub)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "animation %d", len(s.animations))
			}
			if _, taken := s.animations[a.name]; taken {
				return nil, nil, asset.Duplicate("animation", a.name)
			}
			s.animations[a.name] = a
			tracks = append(tracks, a.Tracks()...)
			e = a
		default:
			if e, err = r.ReadRaw(h); err != nil {
				return nil, nil, err
			}
		}
		s.sequence = append(s.sequence, e)
	}

	// tracks may come before the bones they drive
	for _, t := range tracks {
		if _, ok := s.bones[t.BoneHandle]; !ok {
			return nil, nil, errors.Wrapf(asset.NotFound("bone handle", formatHandle(t.BoneHandle)), "animation track")
		}
	}
	return s, rev, nil
}

func readVec3(r *chunk.Reader) (mgl32.Vec3, error) {
	var v mgl32.Vec3
	for i := range v {
		f, err := r.Float32()
		if err != nil {
			return v, err
		}
		v[i] = f
	}
	return v, nil
}

func decodeBone(r *chunk.Reader, rev *format.Revision) (*Bone, error) {
	b := &Bone{parent: NoParent}
	var err error
	if b.name, err = r.ReadString(); err != nil {
		return nil, errors.Wrapf(err, "name")
	}
	if b.handle, err = r.Uint16(); err != nil {
		return nil, err
	}
	if b.Position, err = readVec3(r); err != nil {
		return nil, errors.Wrapf(err, "position")
	}
	xyz, err := readVec3(r)
	if err != nil {
		return nil, errors.Wrapf(err, "orientation")
	}
	w, err := r.Float32()
	if err != nil {
		return nil, errors.Wrapf(err, "orientation")
	}
	b.Orientation = mgl32.Quat{W: w, V: xyz}

	// scale is optional even in revisions that know it
	if rev.BoneScale && r.Remaining() >= 12 {
		if b.Scale, err = readVec3(r); err != nil {
			return nil, err
		}
		b.HasScale = true
	}
	b.tail = r.Rest()
	return b, nil
}

func decodeAnimation(r *chunk.Reader) (*Animation, error) {
	a := &Animation{}
	var err error
	if a.name, err = r.ReadString(); err != nil {
		return nil, errors.Wrapf(err, "name")
	}
	if a.Length, err = r.Float32(); err != nil {
		return nil, err
	}
	for !r.EOF() {
		h, err := r.ReadChunkHeader()
		if err != nil {
			return nil, err
		}
		if h.ID != ChunkAnimationTrack {
			raw, err := r.ReadRaw(h)
			if err != nil {
				return nil, err
			}
			a.Children = append(a.Children, raw)
			continue
		}
		sub, err := r.Sub("track", h)
		if err != nil {
			return nil, err
		}
		t, err := decodeTrack(sub)
		if err != nil {
			return nil, errors.Wrapf(err, "animation %q track", a.name)
		}
		a.Children = append(a.Children, t)
	}
	return a, nil
}

func decodeTrack(r *chunk.Reader) (*Track, error) {
	t := &Track{}
	var err error
	if t.BoneHandle, err = r.Uint16(); err != nil {
		return nil, err
	}
	for !r.EOF() {
		h, err := r.ReadChunkHeader()
		if err != nil {
			return nil, err
		}
		if h.ID != ChunkKeyFrame || h.PayloadSize()%4 != 0 {
			raw, err := r.ReadRaw(h)
			if err != nil {
				return nil, err
			}
			t.Keys = append(t.Keys, raw)
			continue
		}
		sub, err := r.Sub("keyframe", h)
		if err != nil {
			return nil, err
		}
		values, err := chunk.ReadArray[float32](sub, h.PayloadSize()/4)
		if err != nil {
			return nil, err
		}
		t.Keys = append(t.Keys, &KeyFrame{Values: values})
	}
	return t, nil
}

// Encode writes the skeleton in the given revision and byte order.
func (s *Skeleton) Encode(rev *format.Revision, order binary.ByteOrder) ([]byte, error) {
	if rev.Kind != asset.KindSkeleton {
		return nil, errors.Wrapf(format.ErrUnsupportedVersion, "%q is not a skeleton version", rev.Label)
	}

	w := chunk.NewWriter(order, rev.Strings)
	if err := format.WriteHeader(w, rev); err != nil {
		return nil, err
	}

	// a blend mode is only made up when converting or building from scratch
	if rev.BlendMode && rev.Label != s.loaded && !s.hasBlendChunk() {
		w.BeginChunk(ChunkBlendMode)
		w.Uint16(0)
		if err := w.EndChunk(); err != nil {
			return nil, err
		}
	}

	for _, e := range s.sequence {
		var err error
		switch e := e.(type) {
		case *BlendMode:
			if !rev.BlendMode {
				continue
			}
			w.BeginChunk(ChunkBlendMode)
			w.Uint16(e.Mode)
			w.Write(e.tail)
			err = w.EndChunk()
		case *Bone:
			err = encodeBone(w, e, rev)
		case *BoneParent:
			w.BeginChunk(ChunkBoneParent)
			w.Uint16(e.Child)
			w.Uint16(e.Parent)
			w.Write(e.tail)
			err = w.EndChunk()
		case *Animation:
			err = encodeAnimation(w, e)
		case *chunk.Raw:
			err = w.WriteRaw(e)
		default:
			err = errors.Errorf("Unknown skeleton element %T", e)
		}
		if err != nil {
			return nil, err
		}
	}
	return w.Bytes()
}

func writeVec3(w *chunk.Writer, v mgl32.Vec3) {
	for _, f := range v {
		w.Float32(f)
	}
}

func encodeBone(w *chunk.Writer, b *Bone, rev *format.Revision) error {
	w.BeginChunk(ChunkBone)
	if err := w.PutString(b.name); err != nil {
		return errors.Wrapf(err, "bone name")
	}
	w.Uint16(b.handle)
	writeVec3(w, b.Position)
	writeVec3(w, b.Orientation.V)
	w.Float32(b.Orientation.W)
	if rev.BoneScale && b.HasScale {
		writeVec3(w, b.Scale)
	}
	w.Write(b.tail)
	return w.EndChunk()
}

func encodeAnimation(w *chunk.Writer, a *Animation) error {
	w.BeginChunk(ChunkAnimation)
	if err := w.PutString(a.name); err != nil {
		return errors.Wrapf(err, "animation name")
	}
	w.Float32(a.Length)
	for _, c := range a.Children {
		switch c := c.(type) {
		case *Track:
			w.BeginChunk(ChunkAnimationTrack)
			w.Uint16(c.BoneHandle)
			for _, k := range c.Keys {
				switch k := k.(type) {
				case *KeyFrame:
					w.BeginChunk(ChunkKeyFrame)
					chunk.WriteArray(w, k.Values)
					if err := w.EndChunk(); err != nil {
						return err
					}
				case *chunk.Raw:
					if err := w.WriteRaw(k); err != nil {
						return err
					}
				}
			}
			if err := w.EndChunk(); err != nil {
				return err
			}
		case *chunk.Raw:
			if err := w.WriteRaw(c); err != nil {
				return err
			}
		}
	}
	return w.EndChunk()
}
