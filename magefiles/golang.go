//go:build mage
// +build mage

package main

import (
	"fmt"
	"strings"
	"time"

	semver "github.com/Masterminds/semver/v3"
	"github.com/magefile/mage/sh"
	"github.com/pkg/errors"
)

const GO_VERSION_CONSTRAINT = ">= 1.21.0"

const buildPackage = "github.com/armadaproject/popcon/internal/popconctl/build"

func goBinary() string {
	return binaryWithExt("go")
}

func goOutput(args ...string) (string, error) {
	return sh.Output(goBinary(), args...)
}

func goRun(args ...string) error {
	return sh.RunV(goBinary(), args...)
}

func goVersion() (*semver.Version, error) {
	output, err := goOutput("version")
	if err != nil {
		return nil, errors.Errorf("error running version cmd: %v", err)
	}
	fields := strings.Fields(output)
	if len(fields) < 3 {
		return nil, errors.Errorf("unexpected version cmd output: %s", output)
	}
	version, err := semver.NewVersion(strings.TrimPrefix(fields[2], "go"))
	if err != nil {
		return nil, errors.Errorf("error parsing version: %v", err)
	}
	return version, nil
}

func goCheck() error {
	version, err := goVersion()
	if err != nil {
		return errors.Errorf("error getting version: %v", err)
	}
	constraint, err := semver.NewConstraint(GO_VERSION_CONSTRAINT)
	if err != nil {
		return errors.Errorf("error parsing constraint: %v", err)
	}
	if !constraint.Check(version) {
		return errors.Errorf("found version %v but it failed constraint %v", version, constraint)
	}
	return nil
}

// buildLdflags stamps the build information printed by "popconctl version".
func buildLdflags() (string, error) {
	commit, err := sh.Output("git", "rev-parse", "HEAD")
	if err != nil {
		commit = "UNKNOWN_GITCOMMIT"
	}
	version, err := goOutput("env", "GOVERSION")
	if err != nil {
		return "", err
	}
	release := "dev"
	if tag, err := sh.Output("git", "describe", "--tags", "--always"); err == nil {
		release = tag
	}
	vars := map[string]string{
		"ReleaseVersion": release,
		"GitCommit":      commit,
		"GoVersion":      version,
		"BuildTime":      time.Now().UTC().Format(time.RFC3339),
	}
	flags := make([]string, 0, len(vars))
	for name, value := range vars {
		flags = append(flags, fmt.Sprintf("-X '%s.%s=%s'", buildPackage, name, value))
	}
	return strings.Join(flags, " "), nil
}
