// Package wgpu implements the native.Lib surface on WebGPU device memory.
// Uses go-webgpu (github.com/go-webgpu/webgpu) for zero-CGO WebGPU bindings.
//
// Allocations live in GPU storage buffers; reads go through a staging
// buffer since storage buffers cannot be mapped directly. Element-type
// migration round-trips through the host.
package wgpu

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/latch-ml/latch/internal/native"
)

// alloc is one GPU-resident allocation.
type alloc struct {
	buffer *wgpu.Buffer
	shape  native.Shape
	dtype  native.DataType
	size   uint64
}

// Lib is the WebGPU native runtime.
type Lib struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	mu      sync.Mutex
	allocs  map[native.Handle]*alloc
	nextID  native.Handle
	lastErr string
	closed  bool

	// Memory tracking
	totalAllocatedBytes uint64
	peakMemoryBytes     uint64
}

// New creates a WebGPU runtime.
// Returns an error if WebGPU is not available or initialization fails.
func New() (lib *Lib, err error) {
	// Recover from panic if wgpu_native library is not found.
	defer func() {
		if r := recover(); r != nil {
			lib = nil
			err = fmt.Errorf("wgpu: native library not available: %v", r)
		}
	}()

	instance, instanceErr := wgpu.CreateInstance(nil)
	if instanceErr != nil {
		return nil, fmt.Errorf("wgpu: failed to create instance: %w", instanceErr)
	}
	adapter, adapterErr := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if adapterErr != nil {
		instance.Release()
		return nil, fmt.Errorf("wgpu: failed to request adapter: %w", adapterErr)
	}

	device, deviceErr := adapter.RequestDevice(nil)
	if deviceErr != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("wgpu: failed to request device: %w", deviceErr)
	}

	queue := device.GetQueue()
	if queue == nil {
		device.Release()
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("wgpu: failed to get queue")
	}

	return &Lib{
		instance: instance,
		adapter:  adapter,
		device:   device,
		queue:    queue,
		allocs:   make(map[native.Handle]*alloc),
		nextID:   1,
	}, nil
}

// IsAvailable checks if WebGPU is usable on this system.
func IsAvailable() (available bool) {
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	instance, err := wgpu.CreateInstance(nil)
	if err != nil {
		return false
	}
	defer instance.Release()

	adapter, err := instance.RequestAdapter(nil)
	if err != nil {
		return false
	}
	adapter.Release()
	return true
}

// Alloc creates a zero-filled GPU buffer.
func (l *Lib) Alloc(shape native.Shape, dtype native.DataType, device native.Device) native.Handle {
	if err := shape.Validate(); err != nil {
		l.fail("alloc: %v", err)
		return native.Null
	}
	if device != native.WebGPU {
		l.fail("alloc: device %s not backed by this runtime", device)
		return native.Null
	}
	byteSize, err := shape.ByteSize(dtype)
	if err != nil {
		l.fail("alloc: %v", err)
		return native.Null
	}
	size := uint64(byteSize)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		l.failLocked("alloc: runtime closed")
		return native.Null
	}
	buffer := l.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst,
		Size:  size,
	})
	h := l.nextID
	l.nextID++
	l.allocs[h] = &alloc{buffer: buffer, shape: shape.Clone(), dtype: dtype, size: size}
	l.trackLocked(size)
	return h
}

// Clone duplicates an allocation with a GPU-side buffer copy.
func (l *Lib) Clone(h native.Handle) native.Handle {
	l.mu.Lock()
	defer l.mu.Unlock()
	src, ok := l.allocs[h]
	if !ok {
		l.failLocked("clone: unknown handle %s", h)
		return native.Null
	}
	dst := l.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst,
		Size:  src.size,
	})
	encoder := l.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(src.buffer, 0, dst, 0, src.size)
	l.queue.Submit(encoder.Finish(nil))

	nh := l.nextID
	l.nextID++
	l.allocs[nh] = &alloc{buffer: dst, shape: src.shape.Clone(), dtype: src.dtype, size: src.size}
	l.trackLocked(src.size)
	return nh
}

// Convert migrates element data through the host.
func (l *Lib) Convert(h native.Handle, dtype native.DataType, device native.Device) native.Handle {
	if device != native.WebGPU {
		l.fail("convert: device %s not backed by this runtime", device)
		return native.Null
	}
	data, err := l.Read(h)
	if err != nil {
		l.fail("convert: %v", err)
		return native.Null
	}
	l.mu.Lock()
	src, ok := l.allocs[h]
	if !ok {
		// Freed between the Read above and here.
		l.failLocked("convert: handle %s freed during conversion", h)
		l.mu.Unlock()
		return native.Null
	}
	shape := src.shape.Clone()
	from := src.dtype
	l.mu.Unlock()

	out, err := native.ConvertBytes(data, from, dtype)
	if err != nil {
		l.fail("convert: %v", err)
		return native.Null
	}
	nh := l.Alloc(shape, dtype, native.WebGPU)
	if nh == native.Null {
		return native.Null
	}
	if err := l.Write(nh, out); err != nil {
		l.Free(nh)
		l.fail("convert: %v", err)
		return native.Null
	}
	return nh
}

// Read copies a GPU buffer back to host memory through a staging buffer.
func (l *Lib) Read(h native.Handle) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.allocs[h]
	if !ok {
		return nil, fmt.Errorf("wgpu: read: unknown handle %s", h)
	}

	stagingBuffer := l.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		Size:  a.size,
	})
	defer stagingBuffer.Release()

	encoder := l.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(a.buffer, 0, stagingBuffer, 0, a.size)
	l.queue.Submit(encoder.Finish(nil))

	if err := stagingBuffer.MapAsync(l.device, wgpu.MapModeRead, 0, a.size); err != nil {
		return nil, fmt.Errorf("wgpu: failed to map staging buffer: %w", err)
	}
	mappedPtr := stagingBuffer.GetMappedRange(0, a.size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	mappedSlice := unsafe.Slice((*byte)(mappedPtr), a.size)
	result := make([]byte, a.size)
	copy(result, mappedSlice)
	stagingBuffer.Unmap()

	return result, nil
}

// Write uploads host data into a GPU buffer via a mapped staging buffer.
func (l *Lib) Write(h native.Handle, data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.allocs[h]
	if !ok {
		return fmt.Errorf("wgpu: write: unknown handle %s", h)
	}
	if uint64(len(data)) != a.size {
		return fmt.Errorf("wgpu: write: size mismatch: have %d bytes, want %d", len(data), a.size)
	}

	staging := l.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageCopySrc,
		Size:             a.size,
		MappedAtCreation: wgpu.True,
	})
	defer staging.Release()

	mappedPtr := staging.GetMappedRange(0, a.size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	mappedSlice := unsafe.Slice((*byte)(mappedPtr), a.size)
	copy(mappedSlice, data)
	staging.Unmap()

	encoder := l.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(staging, 0, a.buffer, 0, a.size)
	l.queue.Submit(encoder.Finish(nil))
	return nil
}

// Free releases a GPU buffer. Freeing Null or a stale handle is a no-op
// beyond recording a diagnostic.
func (l *Lib) Free(h native.Handle) {
	if h == native.Null {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.allocs[h]
	if !ok {
		l.failLocked("free: unknown or already freed handle %s", h)
		return
	}
	a.buffer.Release()
	delete(l.allocs, h)
	l.totalAllocatedBytes -= a.size
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

// Invoke calls the Go target behind a shadow handle.
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

// Describe queries shape and dtype for a live handle.
func (l *Lib) Describe(h native.Handle) (native.Shape, native.DataType, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.allocs[h]
	if !ok {
		return nil, 0, false
	}
	return a.shape.Clone(), a.dtype, true
}

// Device reports the WebGPU device.
func (l *Lib) Device() native.Device {
	return native.WebGPU
}

// LastError returns the most recent recorded diagnostic.
func (l *Lib) LastError() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastErr
}

// MemoryStats describes GPU memory usage.
type MemoryStats struct {
	LiveBuffers         int
	TotalAllocatedBytes uint64
	PeakMemoryBytes     uint64
}

// MemoryStats returns current usage.
func (l *Lib) MemoryStats() MemoryStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return MemoryStats{
		LiveBuffers:         len(l.allocs),
		TotalAllocatedBytes: l.totalAllocatedBytes,
		PeakMemoryBytes:     l.peakMemoryBytes,
	}
}

// Close releases every live buffer, then the queue, device, adapter, and
// instance. Must be called when the runtime is no longer needed; further
// allocations fail.
func (l *Lib) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true

	for h, a := range l.allocs {
		a.buffer.Release()
		delete(l.allocs, h)
	}
	l.totalAllocatedBytes = 0

	if l.queue != nil {
		l.queue.Release()
		l.queue = nil
	}
	if l.device != nil {
		l.device.Release()
		l.device = nil
	}
	if l.adapter != nil {
		l.adapter.Release()
		l.adapter = nil
	}
	if l.instance != nil {
		l.instance.Release()
		l.instance = nil
	}
}

// trackLocked records an allocation; caller holds mu.
func (l *Lib) trackLocked(size uint64) {
	l.totalAllocatedBytes += size
	if l.totalAllocatedBytes > l.peakMemoryBytes {
		l.peakMemoryBytes = l.totalAllocatedBytes
	}
}

func (l *Lib) fail(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failLocked(format, args...)
}

// failLocked records a diagnostic; caller holds mu.
func (l *Lib) failLocked(format string, args ...any) {
	l.lastErr = "wgpu: " + fmt.Sprintf(format, args...)
}
