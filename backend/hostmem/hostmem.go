// Copyright 2025 Latch ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package hostmem provides the host-memory reference implementation of the
// native runtime surface.
//
// It is the default device: deterministic, dependency-free, and with full
// allocation accounting, which makes it the right library for tests and
// leak checks.
//
// Example:
//
//	lib := hostmem.New()
//	rt := tensor.NewRuntime(lib)
//	...
//	fmt.Println(lib.Stats().Live) // live native allocations
package hostmem

import (
	"github.com/latch-ml/latch/internal/backend/hostmem"
	"github.com/latch-ml/latch/internal/native"
)

// Lib is the host-memory native runtime.
type Lib = hostmem.Lib

// Stats reports allocation accounting.
type Stats = hostmem.Stats

// Compile-time check that Lib implements the native surface.
var _ native.Lib = (*Lib)(nil)

// New creates a host-memory runtime.
func New() *Lib {
	return hostmem.New()
}
