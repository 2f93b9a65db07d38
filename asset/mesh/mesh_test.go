package mesh

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/mogaika/assetrename/asset"
	"github.com/mogaika/assetrename/chunk"
	"github.com/mogaika/assetrename/format"
	"github.com/mogaika/assetrename/utils"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixtureSubPart struct {
	material string
	idx32    bool
	indices  []uint32
	geometry bool
}

// buildFile writes a mesh file by hand, without going through Encode.
func buildFile(t *testing.T, label string, order binary.ByteOrder, parts []fixtureSubPart, names map[uint16]string, link string) []byte {
	rev, err := format.Lookup(label)
	require.NoError(t, err)

	w := chunk.NewWriter(order, rev.Strings)
	require.NoError(t, format.WriteHeader(w, rev))
	require.NoError(t, w.WriteRaw(&chunk.Raw{ID: 0xF000, Payload: []byte("top level before")}))

	w.BeginChunk(ChunkMesh)
	if rev.AnimatedFlag {
		w.Bool(true)
	}
	for _, p := range parts {
		w.BeginChunk(ChunkSubMesh)
		require.NoError(t, w.PutString(p.material))
		w.Bool(false)
		w.Uint32(uint32(len(p.indices)))
		w.Bool(p.idx32)
		if p.idx32 {
			chunk.WriteArray(w, p.indices)
		} else {
			short := make([]uint16, len(p.indices))
			for i, v := range p.indices {
				short[i] = uint16(v)
			}
			chunk.WriteArray(w, short)
		}
		if p.geometry {
			require.NoError(t, w.WriteRaw(&chunk.Raw{ID: 0x5000, Payload: []byte{1, 2, 3, 4, 5, 6, 7, 8}}))
		}
		require.NoError(t, w.EndChunk())
	}
	// bounds chunk, unknown to the model
	require.NoError(t, w.WriteRaw(&chunk.Raw{ID: 0x9000, Payload: make([]byte, 28)}))
	if link != "" {
		w.BeginChunk(ChunkSkeletonLink)
		require.NoError(t, w.PutString(link))
		require.NoError(t, w.EndChunk())
	}
	if len(names) != 0 {
		w.BeginChunk(ChunkSubMeshNameTable)
		for i := uint16(0); i < uint16(len(parts)); i++ {
			name, ok := names[i]
			if !ok {
				continue
			}
			w.BeginChunk(ChunkSubMeshNameTableElement)
			w.Uint16(i)
			require.NoError(t, w.PutString(name))
			require.NoError(t, w.EndChunk())
		}
		require.NoError(t, w.EndChunk())
	}
	require.NoError(t, w.EndChunk())
	require.NoError(t, w.WriteRaw(&chunk.Raw{ID: 0xF001, Payload: []byte{0xde, 0xad}}))

	data, err := w.Bytes()
	require.NoError(t, err)
	return data
}

var defaultParts = []fixtureSubPart{
	{material: "M1", indices: []uint32{0, 1, 2}, geometry: true},
	{material: "M2", indices: []uint32{2, 3, 0}},
	{material: "M1", idx32: true, indices: []uint32{0x10000, 1, 2}, geometry: true},
	{material: "M1", indices: nil},
}

var defaultNames = map[uint16]string{0: "Body", 1: "Head", 3: "Cape"}

func decode(t *testing.T, data []byte, order binary.ByteOrder) (*Mesh, *format.Revision) {
	m, rev, err := Decode(chunk.NewReader("test", data, order, chunk.StringNull))
	require.NoError(t, err)
	return m, rev
}

func TestRoundTripIdentity(t *testing.T) {
	for _, rev := range format.Revisions(asset.KindMesh) {
		for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
			data := buildFile(t, rev.Label, order, defaultParts, defaultNames, "hero.skeleton")

			m, gotRev := decode(t, data, order)
			assert.Equal(t, rev, gotRev)

			out, err := m.Encode(gotRev, order)
			require.NoError(t, err)
			assert.Equal(t, data, out, "%v %v\n%s", rev, order, utils.DumpToOneLineString(out))
		}
	}
}

// irregular describes mesh files the encoder would not produce by itself.
// Accepted ones must come back byte for byte.
type irregular struct {
	name     string
	linkTail []byte
	noLink   bool
	animated byte
	shared   byte
	err      error
}

var irregularTests = []irregular{
	{name: "bytes after skeleton link", linkTail: []byte{0xaa, 0xbb, 0xcc}, animated: 1},
	{name: "no skeleton link", noLink: true},
	{name: "animated flag 2", animated: 2, err: chunk.ErrInvalidBool},
	{name: "shared vertices flag 0xff", shared: 0xff, err: chunk.ErrInvalidBool},
}

func buildIrregular(t *testing.T, rev *format.Revision, order binary.ByteOrder, f irregular) []byte {
	w := chunk.NewWriter(order, rev.Strings)
	require.NoError(t, format.WriteHeader(w, rev))
	w.BeginChunk(ChunkMesh)
	if rev.AnimatedFlag {
		w.Write([]byte{f.animated})
	}
	w.BeginChunk(ChunkSubMesh)
	require.NoError(t, w.PutString("M1"))
	w.Write([]byte{f.shared})
	w.Uint32(3)
	w.Bool(false)
	chunk.WriteArray(w, []uint16{0, 1, 2})
	require.NoError(t, w.EndChunk())
	if !f.noLink {
		w.BeginChunk(ChunkSkeletonLink)
		require.NoError(t, w.PutString("hero.skeleton"))
		w.Write(f.linkTail)
		require.NoError(t, w.EndChunk())
	}
	require.NoError(t, w.EndChunk())
	data, err := w.Bytes()
	require.NoError(t, err)
	return data
}

func TestRoundTripIrregular(t *testing.T) {
	for _, tt := range irregularTests {
		t.Run(tt.name, func(t *testing.T) {
			rev, err := format.Lookup(format.MeshV141)
			require.NoError(t, err)
			order := binary.BigEndian
			data := buildIrregular(t, rev, order, tt)

			m, gotRev, err := Decode(chunk.NewReader("test", data, order, chunk.StringNull))
			if tt.err != nil {
				assert.True(t, errors.Is(err, tt.err), "%v", err)
				return
			}
			require.NoError(t, err)

			out, err := m.Encode(gotRev, order)
			require.NoError(t, err)
			assert.Equal(t, data, out, "%s", utils.DumpToOneLineString(out))

			_, hasLink := m.SkeletonLink()
			assert.Equal(t, !tt.noLink, hasLink)
			if len(tt.linkTail) != 0 {
				assert.Equal(t, 1, m.OpaqueChunks())
			}
		})
	}
}

func TestDecodeModel(t *testing.T) {
	data := buildFile(t, format.MeshV141, binary.LittleEndian, defaultParts, defaultNames, "hero.skeleton")
	m, _ := decode(t, data, binary.LittleEndian)

	assert.True(t, m.Animated)
	require.Len(t, m.SubParts, 4)
	assert.Equal(t, "M2", m.SubParts[1].Material)
	assert.Equal(t, []uint32{0x10000, 1, 2}, m.SubParts[2].Indices)
	assert.Empty(t, m.SubParts[3].Indices)
	assert.Equal(t, "Body", m.SubPartName(0))
	assert.Equal(t, "", m.SubPartName(2))
	assert.Equal(t, []string{"Body", "Head", "Cape"}, m.SubPartNames())
	assert.Equal(t, []string{"M1", "M2"}, m.MaterialNames())

	link, ok := m.SkeletonLink()
	assert.True(t, ok)
	assert.Equal(t, "hero.skeleton", link)

	// 2 top level, bounds, 2 geometry
	assert.Equal(t, 5, m.OpaqueChunks())
}

func TestRenameSubPart(t *testing.T) {
	data := buildFile(t, format.MeshV140, binary.LittleEndian, defaultParts, defaultNames, "")
	m, rev := decode(t, data, binary.LittleEndian)

	head := m.SubParts[1]
	require.NoError(t, m.RenameSubPart("Head", "Skull"))

	sp, index, ok := m.SubPartByName("Skull")
	require.True(t, ok)
	assert.Equal(t, 1, index)
	assert.Same(t, head, sp)
	_, _, ok = m.SubPartByName("Head")
	assert.False(t, ok)
	assert.Equal(t, []string{"Body", "Skull", "Cape"}, m.SubPartNames())

	// survives a round trip
	out, err := m.Encode(rev, binary.LittleEndian)
	require.NoError(t, err)
	m2, _ := decode(t, out, binary.LittleEndian)
	assert.Equal(t, "Skull", m2.SubPartName(1))
	assert.Equal(t, []string{"Body", "Skull", "Cape"}, m2.SubPartNames())
}

func TestRenameSubPartErrorsLeaveModelUnchanged(t *testing.T) {
	data := buildFile(t, format.MeshV141, binary.BigEndian, defaultParts, defaultNames, "")
	m, rev := decode(t, data, binary.BigEndian)

	err := m.RenameSubPart("Head", "Body")
	assert.True(t, errors.Is(err, asset.ErrDuplicateName), "%v", err)
	err = m.RenameSubPart("Tail", "Wing")
	assert.True(t, errors.Is(err, asset.ErrNotFound), "%v", err)

	assert.NoError(t, m.RenameSubPart("Head", "Head"))

	out, err := m.Encode(rev, binary.BigEndian)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestRenameMaterialMultiTarget(t *testing.T) {
	data := buildFile(t, format.MeshV141, binary.LittleEndian, defaultParts, nil, "")
	m, _ := decode(t, data, binary.LittleEndian)

	assert.Equal(t, 3, m.RenameMaterial("M1", "M3"))
	assert.Equal(t, "M3", m.SubParts[0].Material)
	assert.Equal(t, "M2", m.SubParts[1].Material)
	assert.Equal(t, "M3", m.SubParts[2].Material)
	assert.Equal(t, "M3", m.SubParts[3].Material)

	assert.Equal(t, 0, m.RenameMaterial("Missing", "M4"))
	assert.Equal(t, []string{"M3", "M2"}, m.MaterialNames())
}

func TestSetSkeletonLink(t *testing.T) {
	data := buildFile(t, format.MeshV141, binary.LittleEndian, defaultParts, defaultNames, "")
	m, rev := decode(t, data, binary.LittleEndian)

	_, ok := m.SkeletonLink()
	assert.False(t, ok)

	m.SetSkeletonLink("does/not/exist.skeleton")
	out, err := m.Encode(rev, binary.LittleEndian)
	require.NoError(t, err)

	m2, _ := decode(t, out, binary.LittleEndian)
	link, ok := m2.SkeletonLink()
	assert.True(t, ok)
	assert.Equal(t, "does/not/exist.skeleton", link)

	// inserted right after the last sub-part
	_, isLink := m2.sections[len(m2.SubParts)].(*SkeletonLink)
	assert.True(t, isLink)

	m2.SetSkeletonLink("other.skeleton")
	link, _ = m2.SkeletonLink()
	assert.Equal(t, "other.skeleton", link)
}

func TestCrossRevisionAndEndian(t *testing.T) {
	data := buildFile(t, format.MeshV141, binary.LittleEndian, defaultParts, defaultNames, "hero.skeleton")
	m, _ := decode(t, data, binary.LittleEndian)

	old, err := format.Lookup(format.MeshV130)
	require.NoError(t, err)
	out, err := m.Encode(old, binary.BigEndian)
	require.NoError(t, err)

	res, err := format.Resolve(bytes.NewReader(out), nil)
	require.NoError(t, err)
	assert.Equal(t, old, res.Revision)
	assert.Equal(t, binary.BigEndian, res.Order)

	m2, _ := decode(t, out, binary.BigEndian)
	assert.False(t, m2.Animated, "v1.30 has no animated flag")
	assert.Equal(t, m.SubPartNames(), m2.SubPartNames())
	assert.Equal(t, m.MaterialNames(), m2.MaterialNames())
	for i := range m.SubParts {
		assert.Equal(t, m.SubParts[i].Indices, m2.SubParts[i].Indices)
	}

	// and back: same bytes as a hand built v1.30 big endian file
	expect := buildFile(t, format.MeshV130, binary.BigEndian, defaultParts, defaultNames, "hero.skeleton")
	assert.Equal(t, expect, out)
}

func TestDecodeErrors(t *testing.T) {
	data := buildFile(t, format.MeshV141, binary.LittleEndian, defaultParts, defaultNames, "")

	_, _, err := Decode(chunk.NewReader("test", data[:len(data)-3], binary.LittleEndian, chunk.StringNull))
	assert.True(t, errors.Is(err, chunk.ErrTruncatedChunk), "%v", err)

	skel := chunk.NewWriter(binary.LittleEndian, chunk.StringNull)
	rev, _ := format.Lookup(format.SkeletonV180)
	require.NoError(t, format.WriteHeader(skel, rev))
	raw, _ := skel.Bytes()
	_, _, err = Decode(chunk.NewReader("test", raw, binary.LittleEndian, chunk.StringNull))
	assert.True(t, errors.Is(err, format.ErrUnsupportedVersion), "%v", err)

	noMesh := chunk.NewWriter(binary.LittleEndian, chunk.StringNull)
	rev, _ = format.Lookup(format.MeshV141)
	require.NoError(t, format.WriteHeader(noMesh, rev))
	raw, _ = noMesh.Bytes()
	_, _, err = Decode(chunk.NewReader("test", raw, binary.LittleEndian, chunk.StringNull))
	assert.Error(t, err)

	dup := buildFile(t, format.MeshV141, binary.LittleEndian, defaultParts, map[uint16]string{0: "A", 1: "A"}, "")
	_, _, err = Decode(chunk.NewReader("test", dup, binary.LittleEndian, chunk.StringNull))
	assert.True(t, errors.Is(err, asset.ErrDuplicateName), "%v", err)
}

func TestBuildMesh(t *testing.T) {
	m := New()
	require.NoError(t, m.AddSubPart("Body", &SubPart{Material: "Skin"}))
	require.NoError(t, m.AddSubPart("", &SubPart{Material: "Skin"}))
	err := m.AddSubPart("Body", &SubPart{Material: "Cloth"})
	assert.True(t, errors.Is(err, asset.ErrDuplicateName))
	m.SetSkeletonLink("a.skeleton")
	m.AddChunk(&chunk.Raw{ID: 0x8000, Payload: []byte{1}})

	rev := format.Current(asset.KindMesh)
	out, err := m.Encode(rev, binary.LittleEndian)
	require.NoError(t, err)

	m2, _ := decode(t, out, binary.LittleEndian)
	assert.Len(t, m2.SubParts, 2)
	assert.Equal(t, []string{"Body"}, m2.SubPartNames())
	assert.Equal(t, 1, m2.OpaqueChunks())

	again, err := m2.Encode(rev, binary.LittleEndian)
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestSupports(t *testing.T) {
	m := New()
	assert.Equal(t, asset.KindMesh, m.Kind())
	assert.True(t, m.Supports(asset.OpMaterial))
	assert.True(t, m.Supports(asset.OpSubPart))
	assert.True(t, m.Supports(asset.OpSkeletonLink))
	assert.False(t, m.Supports(asset.OpBone))
	assert.False(t, m.Supports(asset.OpAnimation))
}

func TestManyNamedSubParts(t *testing.T) {
	names := utils.NewRandomNameGenerator(7).RandomNames(40)
	m := New()
	for i, name := range names {
		require.NoError(t, m.AddSubPart(name, &SubPart{Material: "M", Indices: []uint32{uint32(i)}}))
	}
	for i := 0; i < len(names)-1; i++ {
		err := m.RenameSubPart(names[i], names[i+1])
		assert.True(t, errors.Is(err, asset.ErrDuplicateName))
	}
	require.NoError(t, m.RenameSubPart(names[0], "renamed"))

	seen := make(map[string]bool)
	for _, n := range m.SubPartNames() {
		assert.False(t, seen[n], "duplicate %q", n)
		seen[n] = true
	}
	assert.Len(t, seen, len(names))
	assert.Equal(t, "renamed", m.SubPartName(0))
}
