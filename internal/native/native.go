// Package native defines the boundary vocabulary shared by every latch
// component: opaque handles into the native tensor runtime, the Lib
// interface that models the foreign-function surface, and the callback
// table used for native-to-Go dispatch.
package native

import (
	"fmt"
	"math"
)

// Handle is an opaque reference to memory owned by the native runtime.
// Handles support identity comparison only; the bits have no meaning on
// the Go side.
type Handle uintptr

// Null is the sentinel for "no native object". Every factory call on Lib
// that returns Null signals failure, never a valid empty object.
const Null Handle = 0

// Valid reports whether the handle refers to a native object.
func (h Handle) Valid() bool {
	return h != Null
}

// String returns the handle value for logging.
func (h Handle) String() string {
	if h == Null {
		return "handle(null)"
	}
	return fmt.Sprintf("handle(%#x)", uintptr(h))
}

// Device identifies where a native allocation resides.
type Device int

// Supported devices.
const (
	HostMem Device = iota
	WebGPU
)

// String returns a human-readable device name.
func (d Device) String() string {
	switch d {
	case HostMem:
		return "hostmem"
	case WebGPU:
		return "webgpu"
	default:
		return "unknown"
	}
}

// DataType is the element type of a native allocation.
type DataType int

// Supported data types.
const (
	Float32 DataType = iota
	Float64
	Int32
	Int64
	Uint8
	Bool
)

// Size returns the byte size of one element.
func (dt DataType) Size() int {
	switch dt {
	case Float32, Int32:
		return 4
	case Float64, Int64:
		return 8
	case Uint8, Bool:
		return 1
	default:
		panic("unknown data type")
	}
}

// String returns a human-readable name for the data type.
func (dt DataType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Uint8:
		return "uint8"
	case Bool:
		return "bool"
	default:
		return "unknown"
	}
}

// Shape represents the dimensions of a native tensor allocation.
type Shape []int

// NumElements returns the total number of elements.
func (s Shape) NumElements() int {
	if len(s) == 0 {
		return 1 // Scalar has 1 element
	}
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// NumBytes returns the allocation size for the given element type.
func (s Shape) NumBytes(dt DataType) int {
	return s.NumElements() * dt.Size()
}

// ByteSize returns the allocation size for the given element type, failing
// when the dimension product overflows int. Allocators use this instead of
// NumBytes so a pathological shape is a recorded error, not a panic.
func (s Shape) ByteSize(dt DataType) (int, error) {
	n := 1
	for _, dim := range s {
		if dim > 0 && n > math.MaxInt/dim {
			return 0, fmt.Errorf("shape %v overflows allocation size", []int(s))
		}
		n *= dim
	}
	if n > math.MaxInt/dt.Size() {
		return 0, fmt.Errorf("shape %v overflows allocation size for %s", []int(s), dt)
	}
	return n * dt.Size(), nil
}

// Validate checks that all dimensions are positive.
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim <= 0 {
			return fmt.Errorf("invalid dimension at index %d: %d (must be > 0)", i, dim)
		}
	}
	return nil
}

// Equal checks if two shapes are equal.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}
