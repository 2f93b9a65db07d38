package mesh

import (
	"encoding/binary"

	"github.com/mogaika/assetrename/asset"
	"github.com/mogaika/assetrename/chunk"
	"github.com/mogaika/assetrename/format"

	"github.com/pkg/errors"
)

// Decode reads a whole mesh file, header included. r must start at the
// header and use the resolved byte order.
func Decode(r *chunk.Reader) (*Mesh, *format.Revision, error) {
	rev, err := format.ReadHeader(r)
	if err != nil {
		return nil, nil, err
	}
	if rev.Kind != asset.KindMesh {
		return nil, nil, errors.Wrapf(format.ErrUnsupportedVersion, "%q is not a mesh version", rev.Label)
	}

	m := New()
	haveMesh := false
	for !r.EOF() {
		h, err := r.ReadChunkHeader()
		if err != nil {
			return nil, nil, err
		}
		if h.ID == ChunkMesh && !haveMesh {
			sub, err := r.Sub("mesh", h)
			if err != nil {
				return nil, nil, err
			}
			if err := m.decodeMesh(sub, rev); err != nil {
				return nil, nil, errors.Wrapf(err, "mesh chunk")
			}
			haveMesh = true
			continue
		}

		raw, err := r.ReadRaw(h)
		if err != nil {
			return nil, nil, err
		}
		if haveMesh {
			m.after = append(m.after, raw)
		} else {
			m.before = append(m.before, raw)
		}
	}
	if !haveMesh {
		return nil, nil, errors.Errorf("no mesh chunk (0x%.4x) in file", ChunkMesh)
	}
	return m, rev, nil
}

func (m *Mesh) decodeMesh(r *chunk.Reader, rev *format.Revision) error {
	if rev.AnimatedFlag {
		animated, err := r.Bool()
		if err != nil {
			return err
		}
		m.Animated = animated
	}

	for !r.EOF() {
		h, err := r.ReadChunkHeader()
		if err != nil {
			return err
		}
		switch {
		case h.ID == ChunkSubMesh:
			sub, err := r.Sub("submesh", h)
			if err != nil {
				return err
			}
			sp, err := decodeSubPart(sub)
			if err != nil {
				return errors.Wrapf(err, "submesh %d", len(m.SubParts))
			}
			m.SubParts = append(m.SubParts, sp)
			m.sections = append(m.sections, sp)
		case h.ID == ChunkSkeletonLink && m.link == nil:
			sub, err := r.Sub("skeletonlink", h)
			if err != nil {
				return err
			}
			name, err := sub.ReadString()
			if err != nil {
				return errors.Wrapf(err, "skeleton link")
			}
			m.link = &SkeletonLink{Name: name, tail: sub.Rest()}
			m.sections = append(m.sections, m.link)
		case h.ID == ChunkSubMeshNameTable && m.table == nil:
			sub, err := r.Sub("nametable", h)
			if err != nil {
				return err
			}
			if m.table, err = decodeNameTable(sub); err != nil {
				return errors.Wrapf(err, "submesh name table")
			}
			m.sections = append(m.sections, m.table)
		default:
			raw, err := r.ReadRaw(h)
			if err != nil {
				return err
			}
			m.sections = append(m.sections, raw)
		}
	}

	return m.indexNames()
}

func decodeSubPart(r *chunk.Reader) (*SubPart, error) {
	sp := &SubPart{}
	var err error
	if sp.Material, err = r.ReadString(); err != nil {
		return nil, errors.Wrapf(err, "material name")
	}
	if sp.SharedVertices, err = r.Bool(); err != nil {
		return nil, err
	}
	count, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	if sp.Indexes32, err = r.Bool(); err != nil {
		return nil, err
	}
	if sp.Indexes32 {
		if sp.Indices, err = chunk.ReadArray[uint32](r, int(count)); err != nil {
			return nil, errors.Wrapf(err, "indices")
		}
	} else {
		short, err := chunk.ReadArray[uint16](r, int(count))
		if err != nil {
			return nil, errors.Wrapf(err, "indices")
		}
		sp.Indices = make([]uint32, len(short))
		for i, v := range short {
			sp.Indices[i] = uint32(v)
		}
	}

	for !r.EOF() {
		h, err := r.ReadChunkHeader()
		if err != nil {
			return nil, err
		}
		raw, err := r.ReadRaw(h)
		if err != nil {
			return nil, err
		}
		sp.Children = append(sp.Children, raw)
	}
	return sp, nil
}

func decodeNameTable(r *chunk.Reader) (*NameTable, error) {
	nt := &NameTable{}
	for !r.EOF() {
		h, err := r.ReadChunkHeader()
		if err != nil {
			return nil, err
		}
		if h.ID != ChunkSubMeshNameTableElement {
			raw, err := r.ReadRaw(h)
			if err != nil {
				return nil, err
			}
			nt.Entries = append(nt.Entries, raw)
			continue
		}

		sub, err := r.Sub("nametableelement", h)
		if err != nil {
			return nil, err
		}
		ne := &NameEntry{}
		if ne.Index, err = sub.Uint16(); err != nil {
			return nil, err
		}
		if ne.Name, err = sub.ReadString(); err != nil {
			return nil, err
		}
		if !sub.EOF() {
			return nil, errors.Errorf("0x%x unexpected bytes after name %q", sub.Remaining(), ne.Name)
		}
		nt.Entries = append(nt.Entries, ne)
	}
	return nt, nil
}

func (m *Mesh) indexNames() error {
	m.names = make(map[string]int)
	if m.table == nil {
		return nil
	}
	for _, e := range m.table.Entries {
		ne, ok := e.(*NameEntry)
		if !ok {
			continue
		}
		if int(ne.Index) >= len(m.SubParts) {
			return asset.NotFound("sub-part index for name", ne.Name)
		}
		if _, taken := m.names[ne.Name]; taken {
			return asset.Duplicate("sub-part", ne.Name)
		}
		m.names[ne.Name] = int(ne.Index)
	}
	return nil
}

// Encode writes the mesh in the given revision and byte order. Known chunks
// follow the target layout; opaque chunks are copied unchanged.
func (m *Mesh) Encode(rev *format.Revision, order binary.ByteOrder) ([]byte, error) {
	if rev.Kind != asset.KindMesh {
		return nil, errors.Wrapf(format.ErrUnsupportedVersion, "%q is not a mesh version", rev.Label)
	}

	w := chunk.NewWriter(order, rev.Strings)
	if err := format.WriteHeader(w, rev); err != nil {
		return nil, err
	}
	if err := writeElements(w, m.before); err != nil {
		return nil, err
	}
	if err := m.encodeMesh(w, rev); err != nil {
		return nil, errors.Wrapf(err, "mesh chunk")
	}
	if err := writeElements(w, m.after); err != nil {
		return nil, err
	}
	return w.Bytes()
}

func (m *Mesh) encodeMesh(w *chunk.Writer, rev *format.Revision) error {
	w.BeginChunk(ChunkMesh)
	if rev.AnimatedFlag {
		w.Bool(m.Animated)
	}
	for _, s := range m.sections {
		var err error
		switch s := s.(type) {
		case *SubPart:
			err = encodeSubPart(w, s)
		case *SkeletonLink:
			w.BeginChunk(ChunkSkeletonLink)
			if err = w.PutString(s.Name); err == nil {
				w.Write(s.tail)
				err = w.EndChunk()
			}
		case *NameTable:
			err = encodeNameTable(w, s)
		case *chunk.Raw:
			err = w.WriteRaw(s)
		default:
			err = errors.Errorf("Unknown mesh section %T", s)
		}
		if err != nil {
			return err
		}
	}
	return w.EndChunk()
}

func encodeSubPart(w *chunk.Writer, sp *SubPart) error {
	w.BeginChunk(ChunkSubMesh)
	if err := w.PutString(sp.Material); err != nil {
		return errors.Wrapf(err, "material name")
	}
	w.Bool(sp.SharedVertices)
	w.Uint32(uint32(len(sp.Indices)))
	w.Bool(sp.Indexes32)
	if sp.Indexes32 {
		chunk.WriteArray(w, sp.Indices)
	} else {
		short := make([]uint16, len(sp.Indices))
		for i, v := range sp.Indices {
			if v > 0xffff {
				return errors.Errorf("index %d does not fit 16 bit index buffer", v)
			}
			short[i] = uint16(v)
		}
		chunk.WriteArray(w, short)
	}
	if err := writeElements(w, sp.Children); err != nil {
		return err
	}
	return w.EndChunk()
}

func encodeNameTable(w *chunk.Writer, nt *NameTable) error {
	w.BeginChunk(ChunkSubMeshNameTable)
	for _, e := range nt.Entries {
		switch e := e.(type) {
		case *NameEntry:
			w.BeginChunk(ChunkSubMeshNameTableElement)
			w.Uint16(e.Index)
			if err := w.PutString(e.Name); err != nil {
				return errors.Wrapf(err, "sub-part name")
			}
			if err := w.EndChunk(); err != nil {
				return err
			}
		case *chunk.Raw:
			if err := w.WriteRaw(e); err != nil {
				return err
			}
		}
	}
	return w.EndChunk()
}

func writeElements(w *chunk.Writer, list []chunk.Element) error {
	for _, e := range list {
		raw, ok := e.(*chunk.Raw)
		if !ok {
			return errors.Errorf("Unexpected %T among opaque chunks", e)
		}
		if err := w.WriteRaw(raw); err != nil {
			return err
		}
	}
	return nil
}
