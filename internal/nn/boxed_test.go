package nn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latch-ml/latch/internal/native"
	"github.com/latch-ml/latch/internal/tensor"
)

func TestBindForward_InvokeRoundTrip(t *testing.T) {
	rt, lib := newNNRuntime(t)

	m := newScale(3)
	require.NoError(t, BindForward(rt, m))
	require.True(t, m.Boxed().Valid())

	in := lib.Alloc(native.Shape{2}, native.Float32, native.HostMem)
	inT, err := tensor.Adopt(rt, in, "test input")
	require.NoError(t, err)
	require.NoError(t, inT.SetFloat32s([]float32{1, 2}))
	_, err = inT.Release()
	require.NoError(t, err)

	out := lib.Invoke(m.Boxed(), in)
	require.True(t, out.Valid())

	outT, err := tensor.Adopt(rt, out, "test output")
	require.NoError(t, err)
	vals, err := outT.Float32s()
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 6}, vals)

	// The dispatch scope released its intermediates; only the caller's
	// input and the returned result remain.
	assert.Equal(t, 0, rt.ScopeDepth())
	assert.Equal(t, 2, lib.Stats().Live)

	outT.Dispose()
	lib.Free(in)
	m.Components().Dispose()
	assert.Equal(t, native.Null, m.Boxed())
	assert.Equal(t, 0, lib.Stats().Live)
}

func TestBindForward_Twice(t *testing.T) {
	rt, _ := newNNRuntime(t)
	m := newScale(2)
	require.NoError(t, BindForward(rt, m))
	assert.Error(t, BindForward(rt, m))
	m.Components().Dispose()
}

func TestNativeForward_ErrorReturnsNull(t *testing.T) {
	rt, lib := newNNRuntime(t)
	m := &failing{Base: &Base{}}
	require.NoError(t, BindForward(rt, m))

	in := lib.Alloc(native.Shape{1}, native.Float32, native.HostMem)
	out := lib.Invoke(m.Boxed(), in)
	assert.Equal(t, native.Null, out)

	// The forward's private scope still unwound and freed its clone of the
	// input.
	assert.Equal(t, 1, lib.Stats().Live)
	lib.Free(in)
	m.Components().Dispose()
}
