// Copyright 2025 Latch ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package scope exposes the dispose-scope lifetime discipline of the
// latch runtime.
//
// Native tensor memory is released deterministically, not when the Go
// collector gets around to it. Every resource created while a scope is
// active belongs to that scope and is disposed when the scope exits:
//
//	rt := tensor.NewRuntime(hostmem.New())
//	s := rt.NewScope()
//	defer s.Exit()
//
//	x, _ := tensor.Zeros(rt, tensor.Shape{2, 3}, tensor.Float32)
//	y, _ := x.Clone()
//	// both x and y are released when s exits
//
// A value computed under a nested scope is moved out before the scope
// exits:
//
//	inner := rt.NewScope()
//	result, _ := x.Clone()
//	_ = result.MoveToOuterScope()
//	inner.Exit() // result survives, everything else created in inner dies
package scope

import (
	"github.com/latch-ml/latch/internal/scope"
)

// Disposable is a resource participating in scope tracking.
type Disposable = scope.Disposable

// Scope is a stack-disciplined lifetime region releasing its members on
// exit.
type Scope = scope.Scope

// Stack is the per-execution-context stack of active scopes.
type Stack = scope.Stack

// StackViolationError is the panic value raised on out-of-order scope
// exit.
type StackViolationError = scope.StackViolationError

// ErrNoActiveScope is returned when a move to an enclosing scope is
// requested with no enclosing scope to move into.
var ErrNoActiveScope = scope.ErrNoActiveScope

// NewStack creates an empty scope stack. Most callers get a stack
// implicitly through a Runtime and never construct one directly.
func NewStack() *Stack {
	return scope.NewStack()
}

// SetLogger installs a logger for scope lifecycle diagnostics.
var SetLogger = scope.SetLogger
