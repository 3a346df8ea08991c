// Copyright 2025 Lincoln Institute of Land Policy
// SPDX-License-Identifier: Apache-2.0

package projectpath

import (
	"path/filepath"
	"runtime"
)

// Tests read fixtures shared across packages (ontologies, sample datasets)
// relative to the root of the repository; Root resolves that
// regardless of which package directory the test runs in
var (
	_, b, _, _ = runtime.Caller(0)

	// Root folder of this project
	Root = filepath.Join(filepath.Dir(b), "../../..")
)

// Testdata returns the path of a file under the shared testdata directory
func Testdata(elem ...string) string {
	return filepath.Join(append([]string{Root, "testdata"}, elem...)...)
}
