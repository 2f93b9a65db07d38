package utils

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// SaveProvider writes a file so that path holds either the old or the new
// content, never a partial one. Data goes to a temp file in the target
// directory which is then renamed over path.
type SaveProvider struct {
	Path string
	Perm os.FileMode
}

func NewSaveProvider(path string) *SaveProvider {
	perm := os.FileMode(0644)
	if fi, err := os.Stat(path); err == nil {
		perm = fi.Mode().Perm()
	}
	return &SaveProvider{Path: path, Perm: perm}
}

func (sp *SaveProvider) Name() string { return sp.Path }

func (sp *SaveProvider) Save(in io.Reader) (err error) {
	dir, base := filepath.Split(sp.Path)
	if dir == "" {
		dir = "."
	}
	f, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return errors.Wrapf(err, "Cannot create temp file for %q", sp.Path)
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmp)
		}
	}()

	if _, err = io.Copy(f, in); err != nil {
		return errors.Wrapf(err, "Cannot write %q", tmp)
	}
	if err = f.Sync(); err != nil {
		return errors.Wrapf(err, "Cannot sync %q", tmp)
	}
	if err = f.Close(); err != nil {
		return errors.Wrapf(err, "Cannot close %q", tmp)
	}
	if err = os.Chmod(tmp, sp.Perm); err != nil {
		return errors.Wrapf(err, "Cannot chmod %q", tmp)
	}
	if err = os.Rename(tmp, sp.Path); err != nil {
		return errors.Wrapf(err, "Cannot replace %q", sp.Path)
	}
	return nil
}
