//go:build mage

package main

import (
	"path/filepath"

	"github.com/magefile/mage/mg"
)

var tools = []string{"rename", "inspect"}

type Build mg.Namespace

// Builds every tool into ./bin.
func (Build) Tools() error {
	for _, tool := range tools {
		out := filepath.Join("bin", tool)
		if _, err := executeCmd("go", withArgs("build", "-o", out, "./tools/"+tool), withStream()); err != nil {
			return err
		}
	}
	return nil
}

// Builds the rename tool for windows.
func (Build) Windows() error {
	_, err := executeCmd("go", withArgs("build", "-o", filepath.Join("bin", "rename.exe"), "./tools/rename"),
		withEnv("GOOS=windows", "GOARCH=amd64"), withStream())
	return err
}
