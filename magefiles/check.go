//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Check mg.Namespace

// Runs go vet over the module.
func (Check) Vet() error {
	_, err := executeCmd("go", withArgs("vet", "./..."), withStream())
	return err
}

// Runs all tests with the race detector.
func (Check) Test() error {
	mg.Deps(Check.Vet)
	_, err := executeCmd("go", withArgs("test", "-race", "./..."), withStream())
	return err
}
