// Package mesh is the in-memory form of a mesh file: sub-parts with their
// material bindings, the sub-part name table and the skeleton link.
package mesh

import (
	"github.com/mogaika/assetrename/asset"
	"github.com/mogaika/assetrename/chunk"
)

const (
	ChunkMesh                    = 0x3000
	ChunkSubMesh                 = 0x4000
	ChunkSkeletonLink            = 0x6000
	ChunkSubMeshNameTable        = 0xA000
	ChunkSubMeshNameTableElement = 0xA100
)

type SubPart struct {
	Material       string
	SharedVertices bool
	Indexes32      bool
	Indices        []uint32

	// geometry, operation, bone assignments...
	Children []chunk.Element
}

func (sp *SubPart) ChunkID() uint16 { return ChunkSubMesh }

type SkeletonLink struct {
	Name string

	tail []byte
}

func (sl *SkeletonLink) ChunkID() uint16 { return ChunkSkeletonLink }

type NameEntry struct {
	Index uint16
	Name  string
}

func (ne *NameEntry) ChunkID() uint16 { return ChunkSubMeshNameTableElement }

// NameTable keeps its elements in file order so an untouched table is
// written back unchanged.
type NameTable struct {
	Entries []chunk.Element
}

func (nt *NameTable) ChunkID() uint16 { return ChunkSubMeshNameTable }

type Mesh struct {
	Animated bool
	SubParts []*SubPart

	// chunks of the mesh chunk in file order
	sections []chunk.Element
	link     *SkeletonLink
	table    *NameTable
	// sub-part name -> index in SubParts
	names map[string]int

	// top level chunks around the mesh chunk
	before []chunk.Element
	after  []chunk.Element
}

var _ asset.Asset = (*Mesh)(nil)

func New() *Mesh {
	return &Mesh{names: make(map[string]int)}
}

func (m *Mesh) Kind() asset.Kind { return asset.KindMesh }

func (m *Mesh) Supports(op asset.OpKind) bool {
	switch op {
	case asset.OpSkeletonLink, asset.OpMaterial, asset.OpSubPart:
		return true
	}
	return false
}

// AddSubPart appends a sub-part after the existing ones. An empty name
// leaves it unnamed.
func (m *Mesh) AddSubPart(name string, sp *SubPart) error {
	if name != "" {
		if _, taken := m.names[name]; taken {
			return asset.Duplicate("sub-part", name)
		}
	}

	pos := 0
	for i, s := range m.sections {
		if _, ok := s.(*SubPart); ok {
			pos = i + 1
		}
	}
	m.sections = insertElement(m.sections, pos, sp)
	m.SubParts = append(m.SubParts, sp)

	if name != "" {
		index := len(m.SubParts) - 1
		m.nameTable().Entries = append(m.nameTable().Entries, &NameEntry{Index: uint16(index), Name: name})
		m.names[name] = index
	}
	return nil
}

// AddChunk appends an opaque chunk to the end of the mesh chunk.
func (m *Mesh) AddChunk(raw *chunk.Raw) {
	m.sections = append(m.sections, raw)
}

func (m *Mesh) nameTable() *NameTable {
	if m.table == nil {
		m.table = &NameTable{}
		m.sections = append(m.sections, m.table)
	}
	return m.table
}

func insertElement(list []chunk.Element, pos int, e chunk.Element) []chunk.Element {
	list = append(list, nil)
	copy(list[pos+1:], list[pos:])
	list[pos] = e
	return list
}

func (m *Mesh) SkeletonLink() (string, bool) {
	if m.link == nil {
		return "", false
	}
	return m.link.Name, true
}

// SetSkeletonLink overwrites the linked skeleton label. The name is not
// checked against any file.
func (m *Mesh) SetSkeletonLink(name string) {
	if m.link != nil {
		m.link.Name = name
		return
	}
	m.link = &SkeletonLink{Name: name}
	pos := 0
	for i, s := range m.sections {
		if _, ok := s.(*SubPart); ok {
			pos = i + 1
		}
	}
	m.sections = insertElement(m.sections, pos, m.link)
}

// SubPartName returns the name of the sub-part at index, or "" for an
// unnamed one.
func (m *Mesh) SubPartName(index int) string {
	if m.table == nil {
		return ""
	}
	for _, e := range m.table.Entries {
		if ne, ok := e.(*NameEntry); ok && int(ne.Index) == index {
			if m.names[ne.Name] == index {
				return ne.Name
			}
		}
	}
	return ""
}

func (m *Mesh) SubPartByName(name string) (*SubPart, int, bool) {
	index, ok := m.names[name]
	if !ok {
		return nil, -1, false
	}
	return m.SubParts[index], index, true
}

// SubPartNames lists names in name table order.
func (m *Mesh) SubPartNames() []string {
	list := make([]string, 0, len(m.names))
	if m.table == nil {
		return list
	}
	for _, e := range m.table.Entries {
		if ne, ok := e.(*NameEntry); ok {
			list = append(list, ne.Name)
		}
	}
	return list
}

// MaterialNames lists distinct bound materials in sub-part order.
func (m *Mesh) MaterialNames() []string {
	seen := make(map[string]struct{})
	list := make([]string, 0)
	for _, sp := range m.SubParts {
		if _, ok := seen[sp.Material]; !ok {
			seen[sp.Material] = struct{}{}
			list = append(list, sp.Material)
		}
	}
	return list
}

// RenameSubPart moves the name key from oldName to newName. The sub-part
// keeps its index.
func (m *Mesh) RenameSubPart(oldName, newName string) error {
	index, ok := m.names[oldName]
	if !ok {
		return asset.NotFound("sub-part", oldName)
	}
	if oldName == newName {
		return nil
	}
	if _, taken := m.names[newName]; taken {
		return asset.Duplicate("sub-part", newName)
	}

	for _, e := range m.table.Entries {
		if ne, ok := e.(*NameEntry); ok && ne.Name == oldName {
			ne.Name = newName
		}
	}
	delete(m.names, oldName)
	m.names[newName] = index
	return nil
}

// RenameMaterial rebinds every sub-part using oldMaterial and returns how
// many were changed.
func (m *Mesh) RenameMaterial(oldMaterial, newMaterial string) int {
	count := 0
	for _, sp := range m.SubParts {
		if sp.Material == oldMaterial {
			sp.Material = newMaterial
			count++
		}
	}
	return count
}

// OpaqueChunks counts chunks and byte tails kept as raw bytes anywhere in
// the mesh.
func (m *Mesh) OpaqueChunks() int {
	count := countRaw(m.before) + countRaw(m.after) + countRaw(m.sections)
	if m.link != nil && len(m.link.tail) != 0 {
		count++
	}
	for _, sp := range m.SubParts {
		count += countRaw(sp.Children)
	}
	if m.table != nil {
		count += countRaw(m.table.Entries)
	}
	return count
}

func countRaw(list []chunk.Element) int {
	count := 0
	for _, e := range list {
		if _, ok := e.(*chunk.Raw); ok {
			count++
		}
	}
	return count
}
