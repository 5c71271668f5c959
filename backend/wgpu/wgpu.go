// Copyright 2025 Latch ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package wgpu provides the WebGPU-backed native runtime, placing tensor
// allocations in GPU device memory.
//
// WebGPU is a cross-platform graphics and compute API that works on:
//   - Windows (via Dawn/D3D12)
//   - macOS (via Dawn/Metal)
//   - Linux (via Dawn/Vulkan)
//
// Example:
//
//	lib, err := wgpu.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer lib.Close()
//
//	rt := tensor.NewRuntime(lib)
//
// Use IsAvailable for graceful fallback to the host-memory runtime when no
// compatible GPU is present:
//
//	var lib tensor.Lib
//	if wgpu.IsAvailable() {
//	    lib, _ = wgpu.New()
//	} else {
//	    lib = hostmem.New()
//	}
package wgpu

import (
	"github.com/latch-ml/latch/internal/backend/wgpu"
	"github.com/latch-ml/latch/internal/native"
)

// Lib is the WebGPU native runtime.
type Lib = wgpu.Lib

// MemoryStats describes GPU memory usage.
type MemoryStats = wgpu.MemoryStats

// Compile-time check that Lib implements the native surface.
var _ native.Lib = (*Lib)(nil)

// New creates a WebGPU runtime. Call Close when done to release GPU
// resources.
//
// Returns an error if WebGPU initialization fails (e.g., no compatible GPU).
func New() (*Lib, error) {
	return wgpu.New()
}

// IsAvailable checks if WebGPU is usable on the current system.
func IsAvailable() bool {
	return wgpu.IsAvailable()
}
