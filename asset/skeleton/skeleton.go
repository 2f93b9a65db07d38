// Package skeleton is the in-memory form of a skeleton file.
//
// Bones are addressed by two keys. The handle is assigned when the bone is
// created and never changes; the name is a label that can be renamed. Every
// reference inside the file (parents, animation tracks) uses handles, so a
// bone rename touches nothing but the name index.
package skeleton

import (
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/assetrename/asset"
	"github.com/mogaika/assetrename/chunk"
)

const (
	ChunkBlendMode      = 0x1010
	ChunkBone           = 0x2000
	ChunkBoneParent     = 0x3000
	ChunkAnimation      = 0x4000
	ChunkAnimationTrack = 0x4100
	ChunkKeyFrame       = 0x4110
)

const NoParent = -1

type Bone struct {
	handle uint16
	name   string

	Position    mgl32.Vec3
	Orientation mgl32.Quat
	Scale       mgl32.Vec3
	HasScale    bool

	parent   int
	children []uint16

	// bytes after the known fields, kept verbatim
	tail []byte
}

func (b *Bone) ChunkID() uint16 { return ChunkBone }

func (b *Bone) Handle() uint16 { return b.handle }

func (b *Bone) Name() string { return b.name }

// Parent returns the parent handle, or false for a root bone.
func (b *Bone) Parent() (uint16, bool) {
	if b.parent == NoParent {
		return 0, false
	}
	return uint16(b.parent), true
}

func (b *Bone) Children() []uint16 {
	return append([]uint16(nil), b.children...)
}

type BoneParent struct {
	Child  uint16
	Parent uint16

	tail []byte
}

func (bp *BoneParent) ChunkID() uint16 { return ChunkBoneParent }

type BlendMode struct {
	Mode uint16

	tail []byte
}

func (bm *BlendMode) ChunkID() uint16 { return ChunkBlendMode }

// KeyFrame values are carried as floats without interpretation: time,
// rotation, translation and an optional scale.
type KeyFrame struct {
	Values []float32
}

func (kf *KeyFrame) ChunkID() uint16 { return ChunkKeyFrame }

// Track binds key frames to one bone by handle.
type Track struct {
	BoneHandle uint16
	Keys       []chunk.Element
}

func (t *Track) ChunkID() uint16 { return ChunkAnimationTrack }

type Animation struct {
	name     string
	Length   float32
	Children []chunk.Element
}

func (a *Animation) ChunkID() uint16 { return ChunkAnimation }

func (a *Animation) Name() string { return a.name }

func (a *Animation) Tracks() []*Track {
	list := make([]*Track, 0)
	for _, c := range a.Children {
		if t, ok := c.(*Track); ok {
			list = append(list, t)
		}
	}
	return list
}

// AddTrack appends a track bound to handle with the given key frames.
func (a *Animation) AddTrack(handle uint16, keys ...[]float32) *Track {
	t := &Track{BoneHandle: handle}
	for _, k := range keys {
		t.Keys = append(t.Keys, &KeyFrame{Values: k})
	}
	a.Children = append(a.Children, t)
	return t
}

type Skeleton struct {
	// chunks after the header in file order
	sequence []chunk.Element

	bones      map[uint16]*Bone
	boneNames  map[string]uint16
	animations map[string]*Animation

	// label of the revision the skeleton was decoded from
	loaded string
}

var _ asset.Asset = (*Skeleton)(nil)

func New() *Skeleton {
	return &Skeleton{
		bones:      make(map[uint16]*Bone),
		boneNames:  make(map[string]uint16),
		animations: make(map[string]*Animation),
	}
}

func (s *Skeleton) Kind() asset.Kind { return asset.KindSkeleton }

func (s *Skeleton) Supports(op asset.OpKind) bool {
	switch op {
	case asset.OpBone, asset.OpAnimation:
		return true
	}
	return false
}

func (s *Skeleton) BoneByHandle(handle uint16) (*Bone, bool) {
	b, ok := s.bones[handle]
	return b, ok
}

func (s *Skeleton) BoneByName(name string) (*Bone, bool) {
	handle, ok := s.boneNames[name]
	if !ok {
		return nil, false
	}
	return s.bones[handle], true
}

// Bones returns all bones ordered by handle.
func (s *Skeleton) Bones() []*Bone {
	list := make([]*Bone, 0, len(s.bones))
	for _, b := range s.bones {
		list = append(list, b)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].handle < list[j].handle })
	return list
}

func (s *Skeleton) Animation(name string) (*Animation, bool) {
	a, ok := s.animations[name]
	return a, ok
}

// AnimationNames lists animations in file order.
func (s *Skeleton) AnimationNames() []string {
	list := make([]string, 0, len(s.animations))
	for _, e := range s.sequence {
		if a, ok := e.(*Animation); ok {
			list = append(list, a.name)
		}
	}
	return list
}

func (s *Skeleton) BlendMode() (uint16, bool) {
	for _, e := range s.sequence {
		if bm, ok := e.(*BlendMode); ok {
			return bm.Mode, true
		}
	}
	return 0, false
}

// hasBlendChunk also counts blend mode chunks kept opaque by revisions that
// do not decode them.
func (s *Skeleton) hasBlendChunk() bool {
	for _, e := range s.sequence {
		if e.ChunkID() == ChunkBlendMode {
			return true
		}
	}
	return false
}

func (s *Skeleton) SetBlendMode(mode uint16) {
	for i, e := range s.sequence {
		switch e := e.(type) {
		case *BlendMode:
			e.Mode = mode
			return
		case *chunk.Raw:
			if e.ID == ChunkBlendMode {
				s.sequence[i] = &BlendMode{Mode: mode}
				return
			}
		}
	}
	s.sequence = append([]chunk.Element{&BlendMode{Mode: mode}}, s.sequence...)
}

func (s *Skeleton) AddBone(handle uint16, name string, position mgl32.Vec3, orientation mgl32.Quat) (*Bone, error) {
	b := &Bone{
		handle:      handle,
		name:        name,
		Position:    position,
		Orientation: orientation,
		parent:      NoParent,
	}
	if err := s.insertBone(b); err != nil {
		return nil, err
	}
	s.sequence = append(s.sequence, b)
	return b, nil
}

func (s *Skeleton) insertBone(b *Bone) error {
	if _, taken := s.bones[b.handle]; taken {
		return asset.Duplicate("bone handle", formatHandle(b.handle))
	}
	if _, taken := s.boneNames[b.name]; taken {
		return asset.Duplicate("bone", b.name)
	}
	s.bones[b.handle] = b
	s.boneNames[b.name] = b.handle
	return nil
}

func formatHandle(handle uint16) string {
	return fmt.Sprintf("#%d", handle)
}

// SetParent records that child hangs below parent.
func (s *Skeleton) SetParent(child, parent uint16) error {
	bp := &BoneParent{Child: child, Parent: parent}
	if err := s.link(bp); err != nil {
		return err
	}
	s.sequence = append(s.sequence, bp)
	return nil
}

func (s *Skeleton) link(bp *BoneParent) error {
	c, ok := s.bones[bp.Child]
	if !ok {
		return asset.NotFound("bone handle", formatHandle(bp.Child))
	}
	p, ok := s.bones[bp.Parent]
	if !ok {
		return asset.NotFound("bone handle", formatHandle(bp.Parent))
	}
	c.parent = int(bp.Parent)
	p.children = append(p.children, bp.Child)
	return nil
}

func (s *Skeleton) AddAnimation(name string, length float32) (*Animation, error) {
	if _, taken := s.animations[name]; taken {
		return nil, asset.Duplicate("animation", name)
	}
	a := &Animation{name: name, Length: length}
	s.animations[name] = a
	s.sequence = append(s.sequence, a)
	return a, nil
}

// AddChunk appends an opaque chunk after everything else.
func (s *Skeleton) AddChunk(raw *chunk.Raw) {
	s.sequence = append(s.sequence, raw)
}

// RenameBone renames the bone currently called name.
func (s *Skeleton) RenameBone(name, newName string) error {
	handle, ok := s.boneNames[name]
	if !ok {
		return asset.NotFound("bone", name)
	}
	return s.RenameBoneByHandle(handle, newName)
}

// RenameBoneByHandle changes only the bone name and the name index; the
// handle and every binding to it stay as they are.
func (s *Skeleton) RenameBoneByHandle(handle uint16, newName string) error {
	b, ok := s.bones[handle]
	if !ok {
		return asset.NotFound("bone handle", formatHandle(handle))
	}
	if other, taken := s.boneNames[newName]; taken {
		if other == handle {
			return nil
		}
		return asset.Duplicate("bone", newName)
	}
	delete(s.boneNames, b.name)
	s.boneNames[newName] = handle
	b.name = newName
	return nil
}

// RenameAnimation re-keys an animation. Its tracks and their bone handles
// are not touched and it keeps its position in the file.
func (s *Skeleton) RenameAnimation(oldName, newName string) error {
	a, ok := s.animations[oldName]
	if !ok {
		return asset.NotFound("animation", oldName)
	}
	if oldName == newName {
		return nil
	}
	if _, taken := s.animations[newName]; taken {
		return asset.Duplicate("animation", newName)
	}
	delete(s.animations, oldName)
	a.name = newName
	s.animations[newName] = a
	return nil
}

// OpaqueChunks counts chunks and byte tails kept verbatim.
func (s *Skeleton) OpaqueChunks() int {
	count := 0
	for _, e := range s.sequence {
		switch e := e.(type) {
		case *chunk.Raw:
			count++
		case *Bone:
			if len(e.tail) != 0 {
				count++
			}
		case *BoneParent:
			if len(e.tail) != 0 {
				count++
			}
		case *BlendMode:
			if len(e.tail) != 0 {
				count++
			}
		case *Animation:
			for _, c := range e.Children {
				switch c := c.(type) {
				case *chunk.Raw:
					count++
				case *Track:
					for _, k := range c.Keys {
						if _, ok := k.(*chunk.Raw); ok {
							count++
						}
					}
				}
			}
		}
	}
	return count
}
