//go:build mage
// +build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
	"github.com/pkg/errors"
)

// Check dependent tools are present and the correct version.
func CheckDeps() error {
	checks := []struct {
		name  string
		check func() error
	}{
		{"go", goCheck},
		{"golangci-lint", golangciLintCheck},
	}
	failures := false
	for _, check := range checks {
		fmt.Printf("Checking %s... ", check.name)
		if err := check.check(); err != nil {
			fmt.Printf("FAILED\nReason: %v\n", err)
			failures = true
		} else {
			fmt.Println("PASSED")
		}
	}
	if failures {
		return errors.New("check(s) failed.")
	}
	return nil
}

// Removes build outputs and test reports.
func Clean() {
	fmt.Println("Cleaning...")
	for _, path := range []string{"bin", "test_reports"} {
		os.RemoveAll(path)
	}
}

// Builds the populator and popconctl binaries into ./bin.
func Build() error {
	mg.Deps(goCheck, makeLocalBin)
	ldflags, err := buildLdflags()
	if err != nil {
		return err
	}
	for _, binary := range []string{"lhcinfoperls", "popconctl"} {
		fmt.Printf("Building %s...\n", binary)
		if err := goRun("build", "-ldflags", ldflags, "-o", binaryPath(binary), "./cmd/"+binary); err != nil {
			return err
		}
	}
	return nil
}
