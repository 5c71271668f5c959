package hostmem

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latch-ml/latch/internal/native"
)

func TestAllocFree_Accounting(t *testing.T) {
	lib := New()

	h1 := lib.Alloc(native.Shape{2, 3}, native.Float32, native.HostMem)
	require.True(t, h1.Valid())
	h2 := lib.Alloc(native.Shape{4}, native.Int64, native.HostMem)
	require.True(t, h2.Valid())
	assert.NotEqual(t, h1, h2)

	stats := lib.Stats()
	assert.Equal(t, 2, stats.Live)
	assert.Equal(t, uint64(2), stats.TotalAllocs)

	lib.Free(h1)
	lib.Free(h2)
	stats = lib.Stats()
	assert.Equal(t, 0, stats.Live)
	assert.Equal(t, uint64(2), stats.TotalFrees)
}

func TestAlloc_InvalidShape(t *testing.T) {
	lib := New()
	h := lib.Alloc(native.Shape{2, -1}, native.Float32, native.HostMem)
	assert.Equal(t, native.Null, h)
	assert.NotEmpty(t, lib.LastError())
}

func TestAlloc_OverflowShapeFailsCleanly(t *testing.T) {
	lib := New()
	h := lib.Alloc(native.Shape{3, 1 << 62}, native.Uint8, native.HostMem)
	assert.Equal(t, native.Null, h)
	assert.Contains(t, lib.LastError(), "overflow")
	assert.Equal(t, 0, lib.Stats().Live)
}

func TestFree_StaleHandleIsRecordedNotFatal(t *testing.T) {
	lib := New()
	h := lib.Alloc(native.Shape{1}, native.Float32, native.HostMem)
	lib.Free(h)

	// Second free must not fault, only record.
	lib.Free(h)
	assert.Equal(t, uint64(1), lib.Stats().DoubleFrees)
	assert.NotEmpty(t, lib.LastError())

	// Null is always a silent no-op.
	lib.Free(native.Null)
	assert.Equal(t, uint64(1), lib.Stats().DoubleFrees)
}

func TestReadWrite_RoundTrip(t *testing.T) {
	lib := New()
	h := lib.Alloc(native.Shape{4}, native.Uint8, native.HostMem)

	require.NoError(t, lib.Write(h, []byte{1, 2, 3, 4}))
	data, err := lib.Read(h)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, data)

	// Reads are snapshots, not views.
	data[0] = 99
	again, err := lib.Read(h)
	require.NoError(t, err)
	assert.Equal(t, byte(1), again[0])
}

func TestWrite_SizeMismatch(t *testing.T) {
	lib := New()
	h := lib.Alloc(native.Shape{4}, native.Uint8, native.HostMem)
	assert.Error(t, lib.Write(h, []byte{1, 2}))
}

func TestClone_Independent(t *testing.T) {
	lib := New()
	h := lib.Alloc(native.Shape{2}, native.Uint8, native.HostMem)
	require.NoError(t, lib.Write(h, []byte{7, 8}))

	c := lib.Clone(h)
	require.True(t, c.Valid())
	require.NoError(t, lib.Write(h, []byte{0, 0}))

	data, err := lib.Read(c)
	require.NoError(t, err)
	assert.Equal(t, []byte{7, 8}, data)
}

func TestClone_UnknownHandle(t *testing.T) {
	lib := New()
	h := lib.Clone(native.Handle(12345))
	assert.Equal(t, native.Null, h)
	assert.Contains(t, lib.LastError(), "unknown handle")
}

func TestConvert_Float32ToFloat64(t *testing.T) {
	lib := New()
	h := lib.Alloc(native.Shape{2}, native.Float32, native.HostMem)
	src := floats32Bytes([]float32{1.5, -2})
	require.NoError(t, lib.Write(h, src))

	c := lib.Convert(h, native.Float64, native.HostMem)
	require.True(t, c.Valid())

	shape, dtype, ok := lib.Describe(c)
	require.True(t, ok)
	assert.Equal(t, native.Shape{2}, shape)
	assert.Equal(t, native.Float64, dtype)

	back := lib.Convert(c, native.Float32, native.HostMem)
	require.True(t, back.Valid())
	data, err := lib.Read(back)
	require.NoError(t, err)
	assert.Equal(t, src, data)
}

func TestDescribe_UnknownHandle(t *testing.T) {
	lib := New()
	_, _, ok := lib.Describe(native.Handle(9))
	assert.False(t, ok)
}

type echo struct{ lib *Lib }

func (e *echo) NativeForward(input native.Handle) native.Handle {
	return e.lib.Clone(input)
}

func TestBoxInvoke_RoundTrip(t *testing.T) {
	lib := New()
	boxed := lib.Box(&echo{lib: lib})
	require.True(t, boxed.Valid())
	defer lib.FreeBoxed(boxed)

	in := lib.Alloc(native.Shape{2}, native.Uint8, native.HostMem)
	require.NoError(t, lib.Write(in, []byte{5, 6}))

	out := lib.Invoke(boxed, in)
	require.True(t, out.Valid())
	data, err := lib.Read(out)
	require.NoError(t, err)
	assert.Equal(t, []byte{5, 6}, data)
}

func TestInvoke_UnknownShadowHandle(t *testing.T) {
	lib := New()
	out := lib.Invoke(native.Handle(777), native.Null)
	assert.Equal(t, native.Null, out)
	assert.Contains(t, lib.LastError(), "unknown shadow handle")
}

func TestBox_NilTarget(t *testing.T) {
	lib := New()
	assert.Equal(t, native.Null, lib.Box(nil))
	assert.NotEmpty(t, lib.LastError())
}

// floats32Bytes encodes float32 values little-endian for test fixtures.
func floats32Bytes(vals []float32) []byte {
	out := make([]byte, 0, len(vals)*4)
	for _, v := range vals {
		var b [4]byte
		bits := math.Float32bits(v)
		b[0] = byte(bits)
		b[1] = byte(bits >> 8)
		b[2] = byte(bits >> 16)
		b[3] = byte(bits >> 24)
		out = append(out, b[:]...)
	}
	return out
}
