package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// JobOperation is one rename operation as written in a job file.
// Kind is validated by the rename package.
type JobOperation struct {
	Kind    string `yaml:"kind" toml:"kind"`
	Operand string `yaml:"operand" toml:"operand"`
}

type JobSave struct {
	// nil means "use the default" (keep)
	KeepVersion *bool  `yaml:"keep_version,omitempty" toml:"keep_version,omitempty"`
	KeepEndian  *bool  `yaml:"keep_endian,omitempty" toml:"keep_endian,omitempty"`
	Version     string `yaml:"version,omitempty" toml:"version,omitempty"`
	Endian      string `yaml:"endian,omitempty" toml:"endian,omitempty"`
}

// Job is a reusable description of a rename batch. Inputs and outputs
// given on the command line are appended to the ones listed here.
type Job struct {
	Encoding   string         `yaml:"encoding,omitempty" toml:"encoding,omitempty"`
	Workers    int            `yaml:"workers,omitempty" toml:"workers,omitempty"`
	Inputs     []string       `yaml:"inputs,omitempty" toml:"inputs,omitempty"`
	Outputs    []string       `yaml:"outputs,omitempty" toml:"outputs,omitempty"`
	Operations []JobOperation `yaml:"operations" toml:"operations"`
	Save       JobSave        `yaml:"save,omitempty" toml:"save,omitempty"`
}

// LoadJob reads a job file. The format is picked by extension:
// .yaml/.yml or .toml.
func LoadJob(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Cannot read job file %q", path)
	}
	job, err := ParseJob(data, filepath.Ext(path))
	if err != nil {
		return nil, errors.Wrapf(err, "Cannot parse job file %q", path)
	}
	return job, nil
}

func ParseJob(data []byte, ext string) (*Job, error) {
	job := &Job{}
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(job); err != nil {
			return nil, errors.Wrapf(err, "Failed to unmarshal yaml")
		}
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(job); err != nil {
			return nil, errors.Wrapf(err, "Failed to unmarshal toml")
		}
	default:
		return nil, errors.Errorf("Unknown job file extension %q", ext)
	}

	for i, op := range job.Operations {
		if op.Kind == "" {
			return nil, errors.Errorf("Operation %d has no kind", i)
		}
	}
	return job, nil
}

// Bool resolves an optional flag against its default.
func Bool(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
