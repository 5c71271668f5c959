// Package hostmem implements the native.Lib surface with plain host memory.
//
// It is the reference runtime: allocations are byte slabs in a table keyed
// by handle. Handle ids are never reused within a process, so a freed or
// fabricated handle is always detectable. All bookkeeping is guarded by a
// mutex; the library may be shared between goroutines.
package hostmem

import (
	"fmt"
	"sync"

	"github.com/latch-ml/latch/internal/native"
)

// slab is one native allocation.
type slab struct {
	data   []byte
	shape  native.Shape
	dtype  native.DataType
	device native.Device
}

// Lib is the host-memory native runtime.
type Lib struct {
	mu      sync.Mutex
	slabs   map[native.Handle]*slab
	nextID  native.Handle
	lastErr string

	// Allocation accounting, in the spirit of a native allocator's
	// introspection API.
	totalAllocs uint64
	totalFrees  uint64
	doubleFrees uint64
}

// New creates a host-memory runtime.
func New() *Lib {
	return &Lib{
		slabs:  make(map[native.Handle]*slab),
		nextID: 1,
	}
}

// Alloc creates a zero-filled slab. Returns Null on invalid shape.
func (l *Lib) Alloc(shape native.Shape, dtype native.DataType, device native.Device) native.Handle {
	if err := shape.Validate(); err != nil {
		l.fail("alloc: %v", err)
		return native.Null
	}
	size, err := shape.ByteSize(dtype)
	if err != nil {
		l.fail("alloc: %v", err)
		return native.Null
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	h := l.nextID
	l.nextID++
	l.slabs[h] = &slab{
		data:   make([]byte, size),
		shape:  shape.Clone(),
		dtype:  dtype,
		device: device,
	}
	l.totalAllocs++
	return h
}

// Clone duplicates a slab.
func (l *Lib) Clone(h native.Handle) native.Handle {
	l.mu.Lock()
	defer l.mu.Unlock()
	src, ok := l.slabs[h]
	if !ok {
		l.failLocked("clone: unknown handle %s", h)
		return native.Null
	}
	dst := &slab{
		data:   append([]byte(nil), src.data...),
		shape:  src.shape.Clone(),
		dtype:  src.dtype,
		device: src.device,
	}
	nh := l.nextID
	l.nextID++
	l.slabs[nh] = dst
	l.totalAllocs++
	return nh
}

// Convert produces a new slab with migrated element type and device. Only
// widening/narrowing between the numeric types is supported; the element
// data is converted through float64 as an intermediate.
func (l *Lib) Convert(h native.Handle, dtype native.DataType, device native.Device) native.Handle {
	l.mu.Lock()
	src, ok := l.slabs[h]
	if !ok {
		l.failLocked("convert: unknown handle %s", h)
		l.mu.Unlock()
		return native.Null
	}
	data := append([]byte(nil), src.data...)
	shape := src.shape.Clone()
	srcType := src.dtype
	l.mu.Unlock()

	out, err := native.ConvertBytes(data, srcType, dtype)
	if err != nil {
		l.fail("convert: %v", err)
		return native.Null
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	nh := l.nextID
	l.nextID++
	l.slabs[nh] = &slab{data: out, shape: shape, dtype: dtype, device: device}
	l.totalAllocs++
	return nh
}

// Read copies a slab's contents out.
func (l *Lib) Read(h native.Handle) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slabs[h]
	if !ok {
		return nil, fmt.Errorf("hostmem: read: unknown handle %s", h)
	}
	return append([]byte(nil), s.data...), nil
}

// Write replaces a slab's contents.
func (l *Lib) Write(h native.Handle, data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slabs[h]
	if !ok {
		return fmt.Errorf("hostmem: write: unknown handle %s", h)
	}
	if len(data) != len(s.data) {
		return fmt.Errorf("hostmem: write: size mismatch: have %d bytes, want %d", len(data), len(s.data))
	}
	copy(s.data, data)
	return nil
}

// Free releases a slab. Freeing Null is a no-op; freeing a stale handle is
// recorded but does not fault, matching the idempotent-release contract.
func (l *Lib) Free(h native.Handle) {
	if h == native.Null {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.slabs[h]; !ok {
		l.doubleFrees++
		l.failLocked("free: unknown or already freed handle %s", h)
		return
	}
	delete(l.slabs, h)
	l.totalFrees++
}

// Box registers a dispatch target in the shared callback table.
func (l *Lib) Box(target native.Forwarder) native.Handle {
	if target == nil {
		l.fail("box: nil target")
		return native.Null
	}
	return native.Bind(target)
}

// FreeBoxed releases a shadow handle.
func (l *Lib) FreeBoxed(h native.Handle) {
	if h == native.Null {
		return
	}
	native.Unbind(h)
}

// Invoke calls back into the Go target behind a shadow handle, as the
// native execution graph would.
func (l *Lib) Invoke(boxed, input native.Handle) native.Handle {
	target := native.LookupCallback(boxed)
	if target == nil {
		l.fail("invoke: unknown shadow handle %s", boxed)
		return native.Null
	}
	out := target.NativeForward(input)
	if out == native.Null {
		l.fail("invoke: target returned null for input %s", input)
	}
	return out
}

// Device reports the host-memory device.
func (l *Lib) Device() native.Device {
	return native.HostMem
}

// LastError returns the most recent recorded diagnostic.
func (l *Lib) LastError() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastErr
}

// Describe returns shape and dtype for a live handle. Used by the wrapper
// layer when adopting a handle produced natively (e.g. by Invoke).
func (l *Lib) Describe(h native.Handle) (native.Shape, native.DataType, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slabs[h]
	if !ok {
		return nil, 0, false
	}
	return s.shape.Clone(), s.dtype, true
}

// Stats reports allocation accounting.
type Stats struct {
	Live        int
	TotalAllocs uint64
	TotalFrees  uint64
	DoubleFrees uint64
}

// Stats returns a snapshot of the allocator counters.
func (l *Lib) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Stats{
		Live:        len(l.slabs),
		TotalAllocs: l.totalAllocs,
		TotalFrees:  l.totalFrees,
		DoubleFrees: l.doubleFrees,
	}
}

func (l *Lib) fail(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failLocked(format, args...)
}

// failLocked records a diagnostic; caller holds mu.
func (l *Lib) failLocked(format string, args ...any) {
	l.lastErr = "hostmem: " + fmt.Sprintf(format, args...)
}
