// Package tensor provides the disposable tensor wrapper over native
// runtime handles, and the Runtime that bundles a native library with the
// scope stack for one execution context.
package tensor

import (
	"go.uber.org/zap"

	"github.com/latch-ml/latch/internal/native"
	"github.com/latch-ml/latch/internal/scope"
)

// Runtime ties a native library to a scope stack. The library may be
// shared; the stack may not. Use one Runtime per goroutine doing
// independent work, deriving extras with Fork.
type Runtime struct {
	lib    native.Lib
	stack  *scope.Stack
	logger *zap.Logger
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger installs a logger for tensor lifetime diagnostics, such as
// finalizer-backstop warnings.
func WithLogger(l *zap.Logger) Option {
	return func(rt *Runtime) {
		if l != nil {
			rt.logger = l
		}
	}
}

// NewRuntime creates a Runtime with a fresh, empty scope stack.
func NewRuntime(lib native.Lib, opts ...Option) *Runtime {
	rt := &Runtime{
		lib:    lib,
		stack:  scope.NewStack(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Fork derives a Runtime sharing the native library with its own empty
// scope stack, for handing to another goroutine.
func (rt *Runtime) Fork() *Runtime {
	return &Runtime{
		lib:    rt.lib,
		stack:  scope.NewStack(),
		logger: rt.logger,
	}
}

// Lib returns the native library.
func (rt *Runtime) Lib() native.Lib {
	return rt.lib
}

// NewScope enters a new dispose scope. Pair with a deferred Exit:
//
//	s := rt.NewScope()
//	defer s.Exit()
func (rt *Runtime) NewScope() *scope.Scope {
	return rt.stack.Enter()
}

// CurrentScope returns the innermost active scope, or nil.
func (rt *Runtime) CurrentScope() *scope.Scope {
	return rt.stack.Current()
}

// ScopeDepth returns the number of active scopes.
func (rt *Runtime) ScopeDepth() int {
	return rt.stack.Depth()
}
