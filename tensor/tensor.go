// Copyright 2025 Latch ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public API for native-backed tensors in the
// latch binding layer.
//
// A Tensor wraps exactly one allocation owned by the native runtime. The
// wrapper — not the Go collector — is responsible for releasing that
// memory: explicitly via Dispose, in bulk via the enclosing dispose scope,
// or (as a logged backstop for tensors that escaped both) via the
// collector's finalizer.
//
// Example:
//
//	rt := tensor.NewRuntime(hostmem.New())
//	s := rt.NewScope()
//	defer s.Exit()
//
//	x, err := tensor.FromSlice(rt, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
//	y, err := x.Clone()
package tensor

import (
	"github.com/latch-ml/latch/internal/native"
	"github.com/latch-ml/latch/internal/tensor"
)

// Handle is an opaque reference to memory owned by the native runtime.
type Handle = native.Handle

// Null is the sentinel for "no native object".
const Null = native.Null

// DataType represents the element type of a tensor.
type DataType = native.DataType

// Data type constants.
const (
	Float32 DataType = native.Float32
	Float64 DataType = native.Float64
	Int32   DataType = native.Int32
	Int64   DataType = native.Int64
	Uint8   DataType = native.Uint8
	Bool    DataType = native.Bool
)

// Device represents where allocations reside.
type Device = native.Device

// Device constants.
const (
	HostMem Device = native.HostMem
	WebGPU  Device = native.WebGPU
)

// Shape represents the dimensions of a tensor.
// Example: Shape{2, 3, 4} represents a 3D tensor with dimensions 2×3×4.
type Shape = native.Shape

// Tensor is a disposable wrapper over one native allocation.
type Tensor = tensor.Tensor

// Runtime bundles a native library with the scope stack for one execution
// context. One Runtime per goroutine; derive extras with Fork.
type Runtime = tensor.Runtime

// Option configures a Runtime.
type Option = tensor.Option

// WithLogger installs a logger for tensor lifetime diagnostics.
var WithLogger = tensor.WithLogger

// ErrUseAfterDispose is returned by operations on a disposed tensor.
var ErrUseAfterDispose = tensor.ErrUseAfterDispose

// ErrInvalidHandle is matched (errors.Is) by failures of native factory
// calls; the error text carries the native runtime's last diagnostic.
var ErrInvalidHandle = native.ErrInvalidHandle

// NewRuntime creates a Runtime with a fresh scope stack.
func NewRuntime(lib Lib, opts ...Option) *Runtime {
	return tensor.NewRuntime(lib, opts...)
}

// Lib is the native library surface a Runtime drives.
type Lib = native.Lib

// Creation functions

// Zeros creates a zero-filled tensor.
func Zeros(rt *Runtime, shape Shape, dtype DataType) (*Tensor, error) {
	return tensor.Zeros(rt, shape, dtype)
}

// Ones creates a float32 tensor filled with ones.
func Ones(rt *Runtime, shape Shape) (*Tensor, error) {
	return tensor.Ones(rt, shape)
}

// Full creates a float32 tensor filled with a specific value.
func Full(rt *Runtime, shape Shape, value float32) (*Tensor, error) {
	return tensor.Full(rt, shape, value)
}

// FromSlice creates a tensor from a Go slice.
//
// Example:
//
//	x, err := tensor.FromSlice(rt, []float32{1, 2, 3, 4}, tensor.Shape{2, 2})
func FromSlice[T tensor.Element](rt *Runtime, data []T, shape Shape) (*Tensor, error) {
	return tensor.FromSlice(rt, data, shape)
}

// Wrap takes ownership of a native handle produced by a factory call.
// This is a low-level function; most users should use creation functions.
func Wrap(rt *Runtime, h, boxed Handle, shape Shape, dtype DataType, op string) (*Tensor, error) {
	return tensor.Wrap(rt, h, boxed, shape, dtype, op)
}

// Adopt wraps a handle whose shape and dtype are queried from the native
// library, e.g. one produced by a native callback invocation.
func Adopt(rt *Runtime, h Handle, op string) (*Tensor, error) {
	return tensor.Adopt(rt, h, op)
}
