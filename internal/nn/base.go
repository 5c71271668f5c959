package nn

import (
	"errors"
	"fmt"

	"github.com/latch-ml/latch/internal/native"
	"github.com/latch-ml/latch/internal/tensor"
)

// Registry validation failures, raised at registration time.
var (
	ErrDuplicateName    = errors.New("duplicate component name")
	ErrInvalidChildKind = errors.New("invalid component kind")
)

// Kind classifies a registered component.
type Kind int

// Component kinds.
const (
	KindModule Kind = iota
	KindParameter
	KindBuffer
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindModule:
		return "module"
	case KindParameter:
		return "parameter"
	case KindBuffer:
		return "buffer"
	default:
		return "unknown"
	}
}

// entry is one named ownership edge from a module to a child.
type entry struct {
	name   string
	kind   Kind
	module Module
	param  *Parameter
	buffer *tensor.Tensor
}

// NamedModule pairs a child module with its registered name.
type NamedModule struct {
	Name   string
	Module Module
}

// NamedParameter pairs a parameter with its dotted path name.
type NamedParameter struct {
	Name  string
	Param *Parameter
}

// Base is the component registry embedded by every module. The zero value
// is ready to use.
type Base struct {
	entries []entry
	names   map[string]struct{}

	rt    *tensor.Runtime
	boxed native.Handle
}

// Components returns the registry itself, satisfying the Module interface
// for any type embedding *Base.
func (b *Base) Components() *Base {
	return b
}

// RegisterModule attaches a named submodule. Fails with ErrDuplicateName
// if the name is taken; the existing registration is untouched.
func (b *Base) RegisterModule(name string, m Module) error {
	if m == nil {
		return fmt.Errorf("register %q: nil module: %w", name, ErrInvalidChildKind)
	}
	if err := b.claim(name); err != nil {
		return err
	}
	b.entries = append(b.entries, entry{name: name, kind: KindModule, module: m})
	return nil
}

// RegisterParameter attaches a named trainable parameter and takes over
// the release obligation for its tensors: they are excluded from any
// dispose scope and live until the module is disposed.
func (b *Base) RegisterParameter(name string, p *Parameter) error {
	if p == nil {
		return fmt.Errorf("register %q: nil parameter: %w", name, ErrInvalidChildKind)
	}
	if err := b.claim(name); err != nil {
		return err
	}
	p.detachFromScopes()
	b.entries = append(b.entries, entry{name: name, kind: KindParameter, param: p})
	return nil
}

// RegisterBuffer attaches a named non-trainable state tensor, taking over
// its release obligation like RegisterParameter.
func (b *Base) RegisterBuffer(name string, t *tensor.Tensor) error {
	if t == nil {
		return fmt.Errorf("register %q: nil buffer: %w", name, ErrInvalidChildKind)
	}
	if err := b.claim(name); err != nil {
		return err
	}
	t.ExcludeFromScope()
	b.entries = append(b.entries, entry{name: name, kind: KindBuffer, buffer: t})
	return nil
}

// Register attaches a child of dynamic kind: a Module, a *Parameter, or a
// plain *tensor.Tensor buffer. Anything else fails with
// ErrInvalidChildKind.
func (b *Base) Register(name string, child any) error {
	switch c := child.(type) {
	case Module:
		return b.RegisterModule(name, c)
	case *Parameter:
		return b.RegisterParameter(name, c)
	case *tensor.Tensor:
		return b.RegisterBuffer(name, c)
	default:
		return fmt.Errorf("register %q: %T: %w", name, child, ErrInvalidChildKind)
	}
}

// claim reserves a component name, enforcing per-owner uniqueness across
// all kinds.
func (b *Base) claim(name string) error {
	if _, taken := b.names[name]; taken {
		return fmt.Errorf("register %q: %w", name, ErrDuplicateName)
	}
	if b.names == nil {
		b.names = make(map[string]struct{})
	}
	b.names[name] = struct{}{}
	return nil
}

// NamedChildren returns the registered submodules in registration order.
// This order is authoritative: containers that replay children as a
// pipeline iterate exactly this sequence.
func (b *Base) NamedChildren() []NamedModule {
	var out []NamedModule
	for _, e := range b.entries {
		if e.kind == KindModule {
			out = append(out, NamedModule{Name: e.name, Module: e.module})
		}
	}
	return out
}

// Child returns the submodule registered under name, or nil.
func (b *Base) Child(name string) Module {
	for _, e := range b.entries {
		if e.kind == KindModule && e.name == name {
			return e.module
		}
	}
	return nil
}

// Parameter returns the parameter registered under name, or nil.
func (b *Base) Parameter(name string) *Parameter {
	for _, e := range b.entries {
		if e.kind == KindParameter && e.name == name {
			return e.param
		}
	}
	return nil
}

// Buffer returns the buffer registered under name, or nil.
func (b *Base) Buffer(name string) *tensor.Tensor {
	for _, e := range b.entries {
		if e.kind == KindBuffer && e.name == name {
			return e.buffer
		}
	}
	return nil
}

// NamedParameters returns all parameters of this module and its
// submodules, depth-first in registration order, with dotted path names
// ("block.weight"). prefix is prepended to every name; pass "" at the
// root.
func (b *Base) NamedParameters(prefix string) []NamedParameter {
	var out []NamedParameter
	for _, e := range b.entries {
		name := e.name
		if prefix != "" {
			name = prefix + "." + e.name
		}
		switch e.kind {
		case KindParameter:
			out = append(out, NamedParameter{Name: name, Param: e.param})
		case KindModule:
			out = append(out, e.module.Components().NamedParameters(name)...)
		}
	}
	return out
}

// Parameters returns all parameters of this module and its submodules.
func (b *Base) Parameters() []*Parameter {
	named := b.NamedParameters("")
	out := make([]*Parameter, len(named))
	for i, np := range named {
		out[i] = np.Param
	}
	return out
}

// Transform applies fn to every registered parameter and buffer of this
// module, then recurses into every registered submodule. This is the
// single traversal point for state migration (dtype or device changes); a
// module intercepts it by implementing Transformer and calling the base
// traversal itself.
func (b *Base) Transform(fn TransformFunc) error {
	for i := range b.entries {
		e := &b.entries[i]
		switch e.kind {
		case KindParameter:
			if err := e.param.transform(fn); err != nil {
				return fmt.Errorf("transform parameter %q: %w", e.name, err)
			}
		case KindBuffer:
			nt, err := fn(e.buffer)
			if err != nil {
				return fmt.Errorf("transform buffer %q: %w", e.name, err)
			}
			nt.ExcludeFromScope()
			e.buffer.Dispose()
			e.buffer = nt
		case KindModule:
			if tm, ok := e.module.(Transformer); ok {
				if err := tm.Transform(fn); err != nil {
					return err
				}
			} else if err := e.module.Components().Transform(fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// Dispose releases every registered parameter and buffer, then submodules,
// and frees the module's shadow handle if one was bound. Idempotent
// through the idempotence of the underlying disposals.
func (b *Base) Dispose() {
	for i := range b.entries {
		e := &b.entries[i]
		switch e.kind {
		case KindParameter:
			e.param.Dispose()
		case KindBuffer:
			e.buffer.Dispose()
		}
	}
	for i := range b.entries {
		e := &b.entries[i]
		if e.kind == KindModule {
			e.module.Components().Dispose()
		}
	}
	if b.boxed != native.Null && b.rt != nil {
		b.rt.Lib().FreeBoxed(b.boxed)
		b.boxed = native.Null
	}
}

// Boxed returns the module's shadow handle, or Null if Forward was never
// bound for native dispatch.
func (b *Base) Boxed() native.Handle {
	return b.boxed
}
