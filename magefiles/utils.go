//go:build mage
// +build mage

package main

import (
	"fmt"
	"path/filepath"
	"runtime"
)

func binaryWithExt(name string) string {
	if runtime.GOOS == "windows" {
		return fmt.Sprintf("%s.exe", name)
	}
	return name
}

func binaryPath(name string) string {
	return filepath.Join(LocalBin, binaryWithExt(name))
}
