package nn

import (
	"github.com/latch-ml/latch/internal/tensor"
)

// Parameter is a trainable state tensor with an optional gradient. The
// parameter owns both tensors once it is registered on a module; disposing
// the parameter releases them.
type Parameter struct {
	name string
	t    *tensor.Tensor
	grad *tensor.Tensor
}

// NewParameter wraps an initialized tensor as a trainable parameter.
func NewParameter(name string, t *tensor.Tensor) *Parameter {
	return &Parameter{name: name, t: t}
}

// Name returns the parameter name (e.g. "weight").
func (p *Parameter) Name() string {
	return p.name
}

// Tensor returns the parameter tensor.
func (p *Parameter) Tensor() *tensor.Tensor {
	return p.t
}

// Grad returns the gradient tensor, or nil before any backward pass.
func (p *Parameter) Grad() *tensor.Tensor {
	return p.grad
}

// SetGrad installs a gradient tensor, taking over its release obligation.
// A previously held gradient is disposed.
func (p *Parameter) SetGrad(g *tensor.Tensor) {
	if p.grad != nil && p.grad != g {
		p.grad.Dispose()
	}
	if g != nil {
		g.ExcludeFromScope()
	}
	p.grad = g
}

// ZeroGrad releases the gradient tensor. Call before each training step to
// avoid accumulating across iterations.
func (p *Parameter) ZeroGrad() {
	if p.grad != nil {
		p.grad.Dispose()
		p.grad = nil
	}
}

// Dispose releases the parameter and gradient tensors. Idempotent.
func (p *Parameter) Dispose() {
	if p.t != nil {
		p.t.Dispose()
	}
	if p.grad != nil {
		p.grad.Dispose()
	}
}

// IsDisposed reports whether the parameter tensor has been released.
func (p *Parameter) IsDisposed() bool {
	return p.t == nil || p.t.IsDisposed()
}

// detachFromScopes hands the parameter's tensors over to the registering
// module.
func (p *Parameter) detachFromScopes() {
	if p.t != nil {
		p.t.ExcludeFromScope()
	}
	if p.grad != nil {
		p.grad.ExcludeFromScope()
	}
}

// transform migrates the parameter tensor (and gradient, if present)
// through fn, disposing the originals.
func (p *Parameter) transform(fn TransformFunc) error {
	nt, err := fn(p.t)
	if err != nil {
		return err
	}
	nt.ExcludeFromScope()
	p.t.Dispose()
	p.t = nt

	if p.grad != nil {
		ng, err := fn(p.grad)
		if err != nil {
			return err
		}
		ng.ExcludeFromScope()
		p.grad.Dispose()
		p.grad = ng
	}
	return nil
}
