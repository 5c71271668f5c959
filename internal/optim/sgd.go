// Package optim implements parameter optimizers as disposable resources.
//
// An optimizer owns native state tensors (momentum buffers) whose release
// obligation it carries exactly like a module carries its parameters: the
// state is excluded from dispose scopes at creation and freed when the
// optimizer is disposed. The optimizer object itself registers into the
// current dispose scope like any other disposable resource.
package optim

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/latch-ml/latch/internal/native"
	"github.com/latch-ml/latch/internal/nn"
	"github.com/latch-ml/latch/internal/tensor"
)

// ErrDisposed is returned by operations on a disposed optimizer.
var ErrDisposed = errors.New("optimizer disposed")

// SGD implements stochastic gradient descent with optional momentum.
//
// Update rule without momentum:
//
//	param = param - lr * grad
//
// With momentum:
//
//	velocity = momentum * velocity + grad
//	param = param - lr * velocity
type SGD struct {
	rt       *tensor.Runtime
	params   []*nn.Parameter
	lr       float32
	momentum float32
	velocity map[*nn.Parameter]*tensor.Tensor
	dead     atomic.Bool
}

// SGDConfig configures an SGD optimizer.
type SGDConfig struct {
	LR       float32 // learning rate (default 0.01)
	Momentum float32 // momentum factor in [0, 1)
}

// NewSGD creates an SGD optimizer over the given parameters. Momentum
// buffers are allocated lazily on the first step that needs them. Only
// Float32 parameters are supported.
func NewSGD(rt *tensor.Runtime, params []*nn.Parameter, config SGDConfig) *SGD {
	if config.LR == 0 {
		config.LR = 0.01
	}
	o := &SGD{
		rt:       rt,
		params:   params,
		lr:       config.LR,
		momentum: config.Momentum,
		velocity: make(map[*nn.Parameter]*tensor.Tensor),
	}
	if s := rt.CurrentScope(); s != nil {
		s.Register(o)
	}
	return o
}

// Step applies one update to every parameter that has a gradient.
func (o *SGD) Step() error {
	if o.dead.Load() {
		return fmt.Errorf("step: %w", ErrDisposed)
	}
	for _, p := range o.params {
		if p.Grad() == nil {
			continue
		}
		if err := o.stepParam(p); err != nil {
			return fmt.Errorf("step %q: %w", p.Name(), err)
		}
	}
	return nil
}

func (o *SGD) stepParam(p *nn.Parameter) error {
	if p.Tensor().DType() != native.Float32 {
		return fmt.Errorf("unsupported dtype %s", p.Tensor().DType())
	}
	vals, err := p.Tensor().Float32s()
	if err != nil {
		return err
	}
	grads, err := p.Grad().Float32s()
	if err != nil {
		return err
	}
	if len(vals) != len(grads) {
		return fmt.Errorf("gradient size %d does not match parameter size %d", len(grads), len(vals))
	}

	if o.momentum > 0 {
		vel, err := o.velocityFor(p)
		if err != nil {
			return err
		}
		vvals, err := vel.Float32s()
		if err != nil {
			return err
		}
		for i := range vals {
			vvals[i] = o.momentum*vvals[i] + grads[i]
			vals[i] -= o.lr * vvals[i]
		}
		if err := vel.SetFloat32s(vvals); err != nil {
			return err
		}
	} else {
		for i := range vals {
			vals[i] -= o.lr * grads[i]
		}
	}
	return p.Tensor().SetFloat32s(vals)
}

// velocityFor lazily allocates the momentum buffer for a parameter. The
// buffer is owned by the optimizer and kept out of any dispose scope.
func (o *SGD) velocityFor(p *nn.Parameter) (*tensor.Tensor, error) {
	if v, ok := o.velocity[p]; ok {
		return v, nil
	}
	v, err := tensor.Zeros(o.rt, p.Tensor().Shape(), native.Float32)
	if err != nil {
		return nil, err
	}
	v.ExcludeFromScope()
	o.velocity[p] = v
	return v, nil
}

// ZeroGrad clears the gradients of all managed parameters.
func (o *SGD) ZeroGrad() {
	for _, p := range o.params {
		p.ZeroGrad()
	}
}

// Dispose releases the optimizer's momentum buffers. The parameters
// themselves belong to their module and are untouched. Idempotent.
func (o *SGD) Dispose() {
	if !o.dead.CompareAndSwap(false, true) {
		return
	}
	for _, v := range o.velocity {
		v.Dispose()
	}
	o.velocity = nil
}

// IsDisposed reports whether the optimizer has been disposed.
func (o *SGD) IsDisposed() bool {
	return o.dead.Load()
}
