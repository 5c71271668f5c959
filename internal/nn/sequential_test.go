package nn

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latch-ml/latch/internal/native"
	"github.com/latch-ml/latch/internal/tensor"
)

func TestSequential_ForwardInOrder(t *testing.T) {
	rt, _ := newNNRuntime(t)
	s := rt.NewScope()
	defer s.Exit()

	seq, err := NewSequential(newScale(2), newScale(3))
	require.NoError(t, err)
	assert.Equal(t, 2, seq.Len())

	in, err := tensor.FromSlice(rt, []float32{1, 2}, native.Shape{2})
	require.NoError(t, err)
	out, err := seq.Forward(in)
	require.NoError(t, err)

	vals, err := out.Float32s()
	require.NoError(t, err)
	assert.Equal(t, []float32{6, 12}, vals)
}

func TestSequential_IndexNames(t *testing.T) {
	seq, err := NewSequential(newScale(1), newScale(2), newScale(3))
	require.NoError(t, err)

	var names []string
	for _, c := range seq.NamedChildren() {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"0", "1", "2"}, names)
	assert.NotNil(t, seq.Child("1"))
}

// failing always errors from Forward.
type failing struct{ *Base }

func (m *failing) Forward(*tensor.Tensor) (*tensor.Tensor, error) {
	return nil, errors.New("boom")
}

func TestSequential_ForwardErrorNamesChild(t *testing.T) {
	rt, _ := newNNRuntime(t)
	s := rt.NewScope()
	defer s.Exit()

	seq, err := NewSequential(newScale(2), &failing{Base: &Base{}})
	require.NoError(t, err)

	in, err := tensor.FromSlice(rt, []float32{1}, native.Shape{1})
	require.NoError(t, err)
	_, err = seq.Forward(in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sequential module 1")
}

func TestSequential_IntermediatesDieWithScope(t *testing.T) {
	rt, lib := newNNRuntime(t)

	seq, err := NewSequential(newScale(2), newScale(3), newScale(4))
	require.NoError(t, err)

	outer := rt.NewScope()
	inner := rt.NewScope()
	in, err := tensor.FromSlice(rt, []float32{1}, native.Shape{1})
	require.NoError(t, err)
	out, err := seq.Forward(in)
	require.NoError(t, err)
	require.NoError(t, out.MoveToOuterScope())
	inner.Exit()

	// Input and both intermediates were released; only the moved-out
	// result survives.
	assert.Equal(t, 1, lib.Stats().Live)
	vals, err := out.Float32s()
	require.NoError(t, err)
	assert.Equal(t, []float32{24}, vals)

	outer.Exit()
	assert.Equal(t, 0, lib.Stats().Live)
}
