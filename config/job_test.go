package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yamlJob = `
encoding: Windows 1251
workers: 2
operations:
  - kind: bone
    operand: "Bip01:Root"
  - kind: material
    operand: "M1:M2"
save:
  keep_version: false
  endian: big
`

const tomlJob = `
encoding = "Windows 1251"

[[operations]]
kind = "submesh"
operand = "Body:Torso"

[[operations]]
kind = "skeleton"
operand = "hero.skeleton"

[save]
keep_endian = false
version = "[MeshSerializer_v1.30]"
`

func TestParseJobYaml(t *testing.T) {
	job, err := ParseJob([]byte(yamlJob), ".yml")
	require.NoError(t, err)

	assert.Equal(t, "Windows 1251", job.Encoding)
	assert.Equal(t, 2, job.Workers)
	require.Len(t, job.Operations, 2)
	assert.Equal(t, JobOperation{Kind: "bone", Operand: "Bip01:Root"}, job.Operations[0])
	assert.Equal(t, JobOperation{Kind: "material", Operand: "M1:M2"}, job.Operations[1])
	assert.False(t, Bool(job.Save.KeepVersion, true))
	assert.True(t, Bool(job.Save.KeepEndian, true))
	assert.Equal(t, "big", job.Save.Endian)
}

func TestParseJobToml(t *testing.T) {
	job, err := ParseJob([]byte(tomlJob), ".TOML")
	require.NoError(t, err)

	require.Len(t, job.Operations, 2)
	assert.Equal(t, "submesh", job.Operations[0].Kind)
	assert.Equal(t, "hero.skeleton", job.Operations[1].Operand)
	assert.True(t, Bool(job.Save.KeepVersion, true))
	assert.False(t, Bool(job.Save.KeepEndian, true))
	assert.Equal(t, "[MeshSerializer_v1.30]", job.Save.Version)
}

func TestParseJobErrors(t *testing.T) {
	_, err := ParseJob([]byte("operations: []"), ".json")
	assert.Error(t, err)

	_, err = ParseJob([]byte("operations:\n  - operand: x\n"), ".yaml")
	assert.Error(t, err)

	_, err = ParseJob([]byte("unknown_field: 1\n"), ".yaml")
	assert.Error(t, err)
}

func TestLoadJob(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlJob), 0666))

	job, err := LoadJob(path)
	require.NoError(t, err)
	assert.Len(t, job.Operations, 2)

	_, err = LoadJob(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSetEncoding(t *testing.T) {
	defer SetEncoding(DefaultEncoding)

	require.NoError(t, SetEncoding("windows 1251"))
	assert.Equal(t, "Windows 1251", GetEncoding().String())
	assert.Error(t, SetEncoding("no such charset"))
	assert.Equal(t, "Windows 1251", GetEncoding().String())
	assert.Contains(t, ListEncodings(), DefaultEncoding)
}
