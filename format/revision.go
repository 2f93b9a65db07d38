package format

import (
	"github.com/mogaika/assetrename/asset"
	"github.com/mogaika/assetrename/chunk"

	"github.com/pkg/errors"
)

var ErrUnsupportedVersion = errors.New("unsupported version")

// Revision is the field layout of one historical file version. Everything
// that differs between versions lives here; the chunk framing does not.
type Revision struct {
	Label   string
	Kind    asset.Kind
	Strings chunk.StringStyle

	// mesh: bool "skeletally animated" at the start of the mesh chunk
	AnimatedFlag bool

	// skeleton: bones carry a scale vector; blend mode chunk is written
	BoneScale bool
	BlendMode bool
}

const (
	MeshV130     = "[MeshSerializer_v1.30]"
	MeshV140     = "[MeshSerializer_v1.40]"
	MeshV141     = "[MeshSerializer_v1.41]"
	SkeletonV110 = "[Serializer_v1.10]"
	SkeletonV180 = "[Serializer_v1.80]"
)

var revisions = []*Revision{
	{Label: MeshV130, Kind: asset.KindMesh, Strings: chunk.StringNewline},
	{Label: MeshV140, Kind: asset.KindMesh, Strings: chunk.StringNewline, AnimatedFlag: true},
	{Label: MeshV141, Kind: asset.KindMesh, Strings: chunk.StringLengthPrefixed, AnimatedFlag: true},
	{Label: SkeletonV110, Kind: asset.KindSkeleton, Strings: chunk.StringNewline},
	{Label: SkeletonV180, Kind: asset.KindSkeleton, Strings: chunk.StringNull, BoneScale: true, BlendMode: true},
}

var current = map[asset.Kind]string{
	asset.KindMesh:     MeshV141,
	asset.KindSkeleton: SkeletonV180,
}

func (r *Revision) String() string {
	return r.Label
}

func Lookup(label string) (*Revision, error) {
	for _, r := range revisions {
		if r.Label == label {
			return r, nil
		}
	}
	return nil, errors.Wrapf(ErrUnsupportedVersion, "%q", label)
}

// LookupKind is Lookup that also checks the revision belongs to kind.
func LookupKind(label string, kind asset.Kind) (*Revision, error) {
	r, err := Lookup(label)
	if err != nil {
		return nil, err
	}
	if r.Kind != kind {
		return nil, errors.Wrapf(ErrUnsupportedVersion, "%q is a %v version, not %v", label, r.Kind, kind)
	}
	return r, nil
}

// Current is the revision written when the original one is not kept.
func Current(kind asset.Kind) *Revision {
	r, err := Lookup(current[kind])
	if err != nil {
		panic(err)
	}
	return r
}

func Revisions(kind asset.Kind) []*Revision {
	list := make([]*Revision, 0)
	for _, r := range revisions {
		if r.Kind == kind {
			list = append(list, r)
		}
	}
	return list
}
