package wgpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latch-ml/latch/internal/native"
)

func newGPU(t *testing.T) *Lib {
	t.Helper()
	lib, err := New()
	if err != nil {
		t.Skipf("WebGPU not available: %v", err)
	}
	t.Cleanup(lib.Close)
	return lib
}

func TestGPU_AllocReadWrite(t *testing.T) {
	lib := newGPU(t)

	h := lib.Alloc(native.Shape{4}, native.Float32, native.WebGPU)
	require.True(t, h.Valid())

	want := []byte{1, 0, 0, 0, 2, 0, 0, 0, 3, 0, 0, 0, 4, 0, 0, 0}
	require.NoError(t, lib.Write(h, want))
	got, err := lib.Read(h)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	shape, dtype, ok := lib.Describe(h)
	require.True(t, ok)
	assert.Equal(t, native.Shape{4}, shape)
	assert.Equal(t, native.Float32, dtype)

	lib.Free(h)
	assert.Equal(t, 0, lib.MemoryStats().LiveBuffers)
}

func TestGPU_Clone(t *testing.T) {
	lib := newGPU(t)

	h := lib.Alloc(native.Shape{2}, native.Int32, native.WebGPU)
	require.True(t, h.Valid())
	require.NoError(t, lib.Write(h, []byte{7, 0, 0, 0, 8, 0, 0, 0}))

	c := lib.Clone(h)
	require.True(t, c.Valid())
	require.NoError(t, lib.Write(h, make([]byte, 8)))

	got, err := lib.Read(c)
	require.NoError(t, err)
	assert.Equal(t, []byte{7, 0, 0, 0, 8, 0, 0, 0}, got)
}

func TestGPU_MemoryTracking(t *testing.T) {
	lib := newGPU(t)

	h1 := lib.Alloc(native.Shape{256}, native.Float32, native.WebGPU)
	h2 := lib.Alloc(native.Shape{256}, native.Float32, native.WebGPU)
	require.True(t, h1.Valid() && h2.Valid())

	stats := lib.MemoryStats()
	assert.Equal(t, 2, stats.LiveBuffers)
	assert.Equal(t, uint64(2048), stats.TotalAllocatedBytes)

	lib.Free(h1)
	lib.Free(h2)
	stats = lib.MemoryStats()
	assert.Equal(t, 0, stats.LiveBuffers)
	assert.Equal(t, uint64(2048), stats.PeakMemoryBytes)
}

func TestGPU_AllocOverflowShape(t *testing.T) {
	lib := newGPU(t)

	h := lib.Alloc(native.Shape{3, 1 << 62}, native.Uint8, native.WebGPU)
	assert.Equal(t, native.Null, h)
	assert.Contains(t, lib.LastError(), "overflow")
}

func TestGPU_ConvertFreedHandle(t *testing.T) {
	lib := newGPU(t)

	h := lib.Alloc(native.Shape{2}, native.Float32, native.WebGPU)
	require.True(t, h.Valid())
	lib.Free(h)

	c := lib.Convert(h, native.Float64, native.WebGPU)
	assert.Equal(t, native.Null, c)
	assert.NotEmpty(t, lib.LastError())
}

func TestGPU_AllocAfterClose(t *testing.T) {
	lib, err := New()
	if err != nil {
		t.Skipf("WebGPU not available: %v", err)
	}
	lib.Close()

	h := lib.Alloc(native.Shape{1}, native.Float32, native.WebGPU)
	assert.Equal(t, native.Null, h)
	assert.NotEmpty(t, lib.LastError())
}
