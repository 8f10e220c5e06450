// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const coverProfile = "coverage.out"

// Test groups test targets (all, race, cover).
type Test mg.Namespace

// All runs all tests.
func (Test) All() error {
	return sh.RunV(binGo, "test", "-v", "./...")
}

// Race runs all tests with the race detector.
func (Test) Race() error {
	return sh.RunV(binGo, "test", "-race", "./...")
}

// Cover runs all tests and prints per-function coverage.
func (Test) Cover() error {
	if err := sh.RunV(binGo, "test", "-coverprofile="+coverProfile, "./..."); err != nil {
		return err
	}
	return sh.RunV(binGo, "tool", "cover", "-func="+coverProfile)
}

// Smoke builds the binary, then initializes two scratch profiles, exports
// an empty one and imports the bundle into the other.
func Smoke() error {
	mg.Deps(Build)

	dir, err := os.MkdirTemp("", "sigsmuggle-smoke-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	bin, err := filepath.Abs(filepath.Join(binaryDir, binaryName))
	if err != nil {
		return err
	}
	cfg := filepath.Join(dir, "config")
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	bundle := filepath.Join(dir, "signatures.bundle")

	steps := [][]string{
		{"--data-dir", src, "init"},
		{"--data-dir", dst, "init"},
		{"--data-dir", src, "export", bundle},
		{"--data-dir", dst, "import", "--dry-run", bundle},
		{"--data-dir", dst, "import", bundle},
		{"--data-dir", dst, "status"},
	}
	for _, step := range steps {
		args := append([]string{"--config-dir", cfg}, step...)
		fmt.Println("smoke:", binaryName, strings.Join(step, " "))
		if err := sh.RunV(bin, args...); err != nil {
			return fmt.Errorf("smoke %v: %w", step, err)
		}
	}
	return nil
}
