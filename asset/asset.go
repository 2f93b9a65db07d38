// Package asset holds what mesh and skeleton assets have in common: their
// kind tag, the rename operations each kind accepts, and the mutation errors.
package asset

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrDuplicateName = errors.New("duplicate name")
	ErrNotFound      = errors.New("not found")
)

type Kind int

const (
	KindUnknown Kind = iota
	KindMesh
	KindSkeleton
)

func (k Kind) String() string {
	switch k {
	case KindMesh:
		return "mesh"
	case KindSkeleton:
		return "skeleton"
	default:
		return "unknown"
	}
}

// Extension is the file suffix that routes a file to this kind.
func (k Kind) Extension() string {
	switch k {
	case KindMesh:
		return ".mesh"
	case KindSkeleton:
		return ".skeleton"
	default:
		return ""
	}
}

// KindForPath classifies a file by its suffix, ignoring case.
func KindForPath(path string) Kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mesh":
		return KindMesh
	case ".skeleton":
		return KindSkeleton
	default:
		return KindUnknown
	}
}

// OpKind is a kind of rename operation.
type OpKind int

const (
	OpSkeletonLink OpKind = iota + 1
	OpBone
	OpAnimation
	OpMaterial
	OpSubPart
)

var opKindNames = map[OpKind]string{
	OpSkeletonLink: "skeleton-link",
	OpBone:         "bone",
	OpAnimation:    "animation",
	OpMaterial:     "material",
	OpSubPart:      "sub-part",
}

func (o OpKind) String() string {
	if s, ok := opKindNames[o]; ok {
		return s
	}
	return fmt.Sprintf("OpKind(%d)", int(o))
}

// Asset is either a mesh or a skeleton.
type Asset interface {
	Kind() Kind
	// Supports reports whether operations of this kind apply to the asset.
	Supports(op OpKind) bool
}

// NotFound and Duplicate build the mutation errors with the offending name.
func NotFound(what, name string) error {
	return errors.Wrapf(ErrNotFound, "%s %q", what, name)
}

func Duplicate(what, name string) error {
	return errors.Wrapf(ErrDuplicateName, "%s %q", what, name)
}
