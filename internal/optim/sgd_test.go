package optim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latch-ml/latch/internal/backend/hostmem"
	"github.com/latch-ml/latch/internal/native"
	"github.com/latch-ml/latch/internal/nn"
	"github.com/latch-ml/latch/internal/tensor"
)

func newOptimRuntime(t *testing.T) (*tensor.Runtime, *hostmem.Lib) {
	t.Helper()
	lib := hostmem.New()
	return tensor.NewRuntime(lib), lib
}

func paramWithGrad(t *testing.T, rt *tensor.Runtime, vals, grads []float32) *nn.Parameter {
	t.Helper()
	pt, err := tensor.FromSlice(rt, vals, native.Shape{len(vals)})
	require.NoError(t, err)
	pt.ExcludeFromScope()
	p := nn.NewParameter("weight", pt)
	if grads != nil {
		g, err := tensor.FromSlice(rt, grads, native.Shape{len(grads)})
		require.NoError(t, err)
		p.SetGrad(g)
	}
	return p
}

func TestSGD_StepVanilla(t *testing.T) {
	rt, _ := newOptimRuntime(t)
	p := paramWithGrad(t, rt, []float32{1, 2}, []float32{10, -10})
	defer p.Dispose()

	o := NewSGD(rt, []*nn.Parameter{p}, SGDConfig{LR: 0.1})
	require.NoError(t, o.Step())

	vals, err := p.Tensor().Float32s()
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{0, 3}, vals, 1e-6)
}

func TestSGD_DefaultLR(t *testing.T) {
	rt, _ := newOptimRuntime(t)
	p := paramWithGrad(t, rt, []float32{1}, []float32{1})
	defer p.Dispose()

	o := NewSGD(rt, []*nn.Parameter{p}, SGDConfig{})
	require.NoError(t, o.Step())

	vals, err := p.Tensor().Float32s()
	require.NoError(t, err)
	assert.InDelta(t, 0.99, vals[0], 1e-6)
}

func TestSGD_Momentum(t *testing.T) {
	rt, lib := newOptimRuntime(t)
	p := paramWithGrad(t, rt, []float32{1}, []float32{1})
	defer p.Dispose()

	o := NewSGD(rt, []*nn.Parameter{p}, SGDConfig{LR: 0.1, Momentum: 0.9})
	defer o.Dispose()

	// First step: velocity = 1, param = 1 - 0.1 = 0.9.
	require.NoError(t, o.Step())
	// Second step: velocity = 0.9 + 1 = 1.9, param = 0.9 - 0.19 = 0.71.
	require.NoError(t, o.Step())

	vals, err := p.Tensor().Float32s()
	require.NoError(t, err)
	assert.InDelta(t, 0.71, vals[0], 1e-6)

	// One momentum buffer was allocated lazily, alongside param and grad.
	assert.Equal(t, 3, lib.Stats().Live)
}

func TestSGD_SkipsParamsWithoutGrad(t *testing.T) {
	rt, _ := newOptimRuntime(t)
	p := paramWithGrad(t, rt, []float32{5}, nil)
	defer p.Dispose()

	o := NewSGD(rt, []*nn.Parameter{p}, SGDConfig{LR: 0.1})
	require.NoError(t, o.Step())

	vals, err := p.Tensor().Float32s()
	require.NoError(t, err)
	assert.Equal(t, []float32{5}, vals)
}

func TestSGD_RejectsNonFloat32(t *testing.T) {
	rt, _ := newOptimRuntime(t)
	pt, err := tensor.FromSlice(rt, []int32{1}, native.Shape{1})
	require.NoError(t, err)
	p := nn.NewParameter("weight", pt)
	defer p.Dispose()
	g, err := tensor.FromSlice(rt, []int32{1}, native.Shape{1})
	require.NoError(t, err)
	p.SetGrad(g)

	o := NewSGD(rt, []*nn.Parameter{p}, SGDConfig{LR: 0.1})
	err = o.Step()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported dtype")
}

func TestSGD_ZeroGrad(t *testing.T) {
	rt, _ := newOptimRuntime(t)
	p := paramWithGrad(t, rt, []float32{1}, []float32{1})
	defer p.Dispose()

	o := NewSGD(rt, []*nn.Parameter{p}, SGDConfig{})
	o.ZeroGrad()
	assert.Nil(t, p.Grad())
}

func TestSGD_ScopeOwnsOptimizer(t *testing.T) {
	rt, lib := newOptimRuntime(t)
	p := paramWithGrad(t, rt, []float32{1}, []float32{1})
	defer p.Dispose()

	s := rt.NewScope()
	o := NewSGD(rt, []*nn.Parameter{p}, SGDConfig{LR: 0.1, Momentum: 0.9})
	require.NoError(t, o.Step())
	require.Equal(t, 3, lib.Stats().Live)
	s.Exit()

	// The scope disposed the optimizer, which released its momentum
	// buffer; the parameter and gradient belong to the caller.
	assert.True(t, o.IsDisposed())
	assert.Equal(t, 2, lib.Stats().Live)
	assert.ErrorIs(t, o.Step(), ErrDisposed)
}
