// Package session pairs one loaded asset with the revision and byte order it
// was read with, so that a save can reproduce the original format or target
// another one.
package session

import (
	"bytes"
	"encoding/binary"
	"os"

	"github.com/mogaika/assetrename/asset"
	"github.com/mogaika/assetrename/asset/mesh"
	"github.com/mogaika/assetrename/asset/skeleton"
	"github.com/mogaika/assetrename/chunk"
	"github.com/mogaika/assetrename/format"
	"github.com/mogaika/assetrename/status"
	"github.com/mogaika/assetrename/utils"

	"github.com/pkg/errors"
)

// Model is what every asset variant provides to the session.
type Model interface {
	asset.Asset
	Encode(rev *format.Revision, order binary.ByteOrder) ([]byte, error)
	OpaqueChunks() int
}

var (
	_ Model = (*mesh.Mesh)(nil)
	_ Model = (*skeleton.Skeleton)(nil)
)

type LoadOptions struct {
	// nil detects the order from the header tag
	Order binary.ByteOrder
	Log   *status.Logger
}

type SaveOptions struct {
	KeepVersion bool
	KeepEndian  bool
	// non-empty overrides KeepVersion
	Version string
	// non-nil overrides KeepEndian
	Order binary.ByteOrder
}

func DefaultSaveOptions() SaveOptions {
	return SaveOptions{KeepVersion: true, KeepEndian: true}
}

type Session struct {
	Path     string
	Model    Model
	Revision *format.Revision
	Order    binary.ByteOrder

	log *status.Logger
}

func (s *Session) Kind() asset.Kind { return s.Model.Kind() }

// Mesh returns the model as a mesh, or nil for other kinds.
func (s *Session) Mesh() *mesh.Mesh {
	m, _ := s.Model.(*mesh.Mesh)
	return m
}

func (s *Session) Skeleton() *skeleton.Skeleton {
	sk, _ := s.Model.(*skeleton.Skeleton)
	return sk
}

// Load opens path and decodes it as the kind its extension names.
func Load(path string, opts LoadOptions) (*Session, error) {
	kind := asset.KindForPath(path)
	if kind == asset.KindUnknown {
		return nil, errors.Errorf("%q has no known asset extension", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Cannot read %q", path)
	}
	s, err := Decode(kind, data, opts)
	if err != nil {
		return nil, err
	}
	s.Path = path
	return s, nil
}

// Decode resolves the header of data and decodes the body as kind.
func Decode(kind asset.Kind, data []byte, opts LoadOptions) (*Session, error) {
	res, err := format.Resolve(bytes.NewReader(data), opts.Order)
	if err != nil {
		return nil, err
	}
	if res.Revision.Kind != kind {
		return nil, errors.Wrapf(format.ErrUnsupportedVersion, "%q is a %v version, expected %v",
			res.Revision.Label, res.Revision.Kind, kind)
	}

	r := chunk.NewReader(kind.String(), data, res.Order, res.Revision.Strings)
	var model Model
	switch kind {
	case asset.KindMesh:
		model, _, err = mesh.Decode(r)
	case asset.KindSkeleton:
		model, _, err = skeleton.Decode(r)
	default:
		return nil, errors.Errorf("Cannot decode %v", kind)
	}
	if err != nil {
		return nil, err
	}

	log := opts.Log
	if log == nil {
		log = status.Default()
	}
	log.Debugf("loaded %v %s %s endian, %d opaque chunks",
		kind, res.Revision.Label, format.OrderName(res.Order), model.OpaqueChunks())

	return &Session{
		Model:    model,
		Revision: res.Revision,
		Order:    res.Order,
		log:      log,
	}, nil
}

// Target returns the revision and byte order a save with opts would use.
func (s *Session) Target(opts SaveOptions) (*format.Revision, binary.ByteOrder, error) {
	rev := s.Revision
	switch {
	case opts.Version != "":
		var err error
		if rev, err = format.LookupKind(opts.Version, s.Kind()); err != nil {
			return nil, nil, err
		}
	case !opts.KeepVersion:
		rev = format.Current(s.Kind())
	}

	order := s.Order
	switch {
	case opts.Order != nil:
		order = opts.Order
	case !opts.KeepEndian:
		order = format.NativeOrder
	}
	return rev, order, nil
}

// Encode serializes the model as a save with opts would write it.
func (s *Session) Encode(opts SaveOptions) ([]byte, error) {
	rev, order, err := s.Target(opts)
	if err != nil {
		return nil, err
	}
	if order != s.Order {
		if n := s.Model.OpaqueChunks(); n != 0 {
			s.log.Warnf("%d opaque chunks are written unchanged in %s endian output, their contents are not byte swapped",
				n, format.OrderName(order))
		}
	}
	if rev != s.Revision {
		s.log.Infof("converting %s -> %s", s.Revision.Label, rev.Label)
	}
	return s.Model.Encode(rev, order)
}

// Save writes the model to path, replacing it atomically.
func (s *Session) Save(path string, opts SaveOptions) error {
	data, err := s.Encode(opts)
	if err != nil {
		return err
	}
	return utils.NewSaveProvider(path).Save(bytes.NewReader(data))
}
