package session

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/assetrename/asset"
	"github.com/mogaika/assetrename/asset/mesh"
	"github.com/mogaika/assetrename/asset/skeleton"
	"github.com/mogaika/assetrename/chunk"
	"github.com/mogaika/assetrename/format"
	"github.com/mogaika/assetrename/status"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func meshBytes(t *testing.T, label string, order binary.ByteOrder, opaque bool) []byte {
	m := mesh.New()
	require.NoError(t, m.AddSubPart("Body", &mesh.SubPart{Material: "M1", Indices: []uint32{0, 1, 2}}))
	require.NoError(t, m.AddSubPart("", &mesh.SubPart{Material: "M2", Indices: []uint32{2, 1, 0}}))
	m.SetSkeletonLink("hero.skeleton")
	if opaque {
		m.AddChunk(&chunk.Raw{ID: 0x9000, Payload: []byte{1, 0, 0, 0}})
	}
	rev, err := format.Lookup(label)
	require.NoError(t, err)
	data, err := m.Encode(rev, order)
	require.NoError(t, err)
	return data
}

func skeletonBytes(t *testing.T, label string, order binary.ByteOrder) []byte {
	s := skeleton.New()
	_, err := s.AddBone(0, "Root", mgl32.Vec3{}, mgl32.QuatIdent())
	require.NoError(t, err)
	_, err = s.AddBone(1, "Head", mgl32.Vec3{0, 1, 0}, mgl32.QuatIdent())
	require.NoError(t, err)
	require.NoError(t, s.SetParent(1, 0))
	rev, err := format.Lookup(label)
	require.NoError(t, err)
	data, err := s.Encode(rev, order)
	require.NoError(t, err)
	return data
}

func writeFile(t *testing.T, name string, data []byte) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func quietLog() *status.Logger {
	return status.New(&bytes.Buffer{})
}

func TestLoadSaveIdentity(t *testing.T) {
	cases := []struct {
		name  string
		data  func(t *testing.T, order binary.ByteOrder) []byte
		kind  asset.Kind
		label string
	}{
		{"hero.mesh", func(t *testing.T, o binary.ByteOrder) []byte { return meshBytes(t, format.MeshV140, o, true) }, asset.KindMesh, format.MeshV140},
		{"HERO.MESH", func(t *testing.T, o binary.ByteOrder) []byte { return meshBytes(t, format.MeshV130, o, false) }, asset.KindMesh, format.MeshV130},
		{"hero.skeleton", func(t *testing.T, o binary.ByteOrder) []byte { return skeletonBytes(t, format.SkeletonV110, o) }, asset.KindSkeleton, format.SkeletonV110},
	}
	for _, c := range cases {
		for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
			data := c.data(t, order)
			path := writeFile(t, c.name, data)

			s, err := Load(path, LoadOptions{Log: quietLog()})
			require.NoError(t, err, c.name)
			assert.Equal(t, c.kind, s.Kind())
			assert.Equal(t, c.label, s.Revision.Label)
			assert.Equal(t, order, s.Order)
			assert.Equal(t, path, s.Path)

			out := filepath.Join(filepath.Dir(path), "out_"+c.name)
			require.NoError(t, s.Save(out, DefaultSaveOptions()))
			got, err := os.ReadFile(out)
			require.NoError(t, err)
			assert.Equal(t, data, got, "%s %v", c.name, order)
		}
	}
}

func TestSaveOverrides(t *testing.T) {
	data := meshBytes(t, format.MeshV130, binary.BigEndian, false)
	s, err := Decode(asset.KindMesh, data, LoadOptions{Log: quietLog()})
	require.NoError(t, err)
	require.NotNil(t, s.Mesh())
	assert.Nil(t, s.Skeleton())

	rev, order, err := s.Target(DefaultSaveOptions())
	require.NoError(t, err)
	assert.Equal(t, format.MeshV130, rev.Label)
	assert.Equal(t, binary.BigEndian, order)

	rev, order, err = s.Target(SaveOptions{})
	require.NoError(t, err)
	assert.Equal(t, format.Current(asset.KindMesh), rev)
	assert.Equal(t, format.NativeOrder, order)

	rev, order, err = s.Target(SaveOptions{KeepVersion: true, KeepEndian: true, Version: format.MeshV140, Order: binary.LittleEndian})
	require.NoError(t, err)
	assert.Equal(t, format.MeshV140, rev.Label)
	assert.Equal(t, binary.LittleEndian, order)

	_, _, err = s.Target(SaveOptions{Version: format.SkeletonV180})
	assert.True(t, errors.Is(err, format.ErrUnsupportedVersion))
	_, _, err = s.Target(SaveOptions{Version: "[MeshSerializer_v9.99]"})
	assert.True(t, errors.Is(err, format.ErrUnsupportedVersion))

	out, err := s.Encode(SaveOptions{Version: format.MeshV141, Order: binary.LittleEndian})
	require.NoError(t, err)
	assert.Equal(t, meshBytes(t, format.MeshV141, binary.LittleEndian, false), out)
}

func TestEndianFlipWarnsAboutOpaqueChunks(t *testing.T) {
	data := meshBytes(t, format.MeshV141, binary.LittleEndian, true)

	var buf bytes.Buffer
	s, err := Decode(asset.KindMesh, data, LoadOptions{Log: status.New(&buf)})
	require.NoError(t, err)

	_, err = s.Encode(DefaultSaveOptions())
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "byte swapped")

	_, err = s.Encode(SaveOptions{KeepVersion: true, Order: binary.BigEndian})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "byte swapped")
}

func TestForcedOrder(t *testing.T) {
	data := skeletonBytes(t, format.SkeletonV180, binary.BigEndian)

	s, err := Decode(asset.KindSkeleton, data, LoadOptions{Order: binary.BigEndian, Log: quietLog()})
	require.NoError(t, err)
	assert.Equal(t, binary.BigEndian, s.Order)

	_, err = Decode(asset.KindSkeleton, data, LoadOptions{Order: binary.LittleEndian, Log: quietLog()})
	assert.True(t, errors.Is(err, format.ErrMalformedHeader), "%v", err)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(writeFile(t, "hero.skeleton", meshBytes(t, format.MeshV141, binary.LittleEndian, false)), LoadOptions{Log: quietLog()})
	assert.True(t, errors.Is(err, format.ErrUnsupportedVersion), "%v", err)

	_, err = Load(writeFile(t, "hero.mesh", []byte{0x34, 0x12, 0, 0}), LoadOptions{Log: quietLog()})
	assert.True(t, errors.Is(err, format.ErrMalformedHeader), "%v", err)

	_, err = Load(writeFile(t, "notes.txt", []byte("text")), LoadOptions{Log: quietLog()})
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.mesh"), LoadOptions{Log: quietLog()})
	assert.True(t, errors.Is(err, os.ErrNotExist), "%v", err)

	data := meshBytes(t, format.MeshV141, binary.LittleEndian, false)
	_, err = Load(writeFile(t, "cut.mesh", data[:len(data)-3]), LoadOptions{Log: quietLog()})
	assert.True(t, errors.Is(err, chunk.ErrTruncatedChunk), "%v", err)
}

func TestFailedSaveKeepsTarget(t *testing.T) {
	original := []byte("previous content")
	dir := t.TempDir()
	target := filepath.Join(dir, "hero.mesh")
	require.NoError(t, os.WriteFile(target, original, 0600))

	s, err := Decode(asset.KindMesh, meshBytes(t, format.MeshV141, binary.LittleEndian, false), LoadOptions{Log: quietLog()})
	require.NoError(t, err)
	require.NoError(t, s.Mesh().RenameSubPart("Body", "Line\nBreak"))

	// newline terminated strings cannot carry the new name
	err = s.Save(target, SaveOptions{Version: format.MeshV130})
	assert.True(t, errors.Is(err, chunk.ErrInvalidString), "%v", err)

	got, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, original, got)

	require.NoError(t, s.Save(target, DefaultSaveOptions()))
	fi, err := os.Stat(target)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), fi.Mode().Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
