// Package scope implements the dispose-scope lifetime discipline at the
// heart of latch.
//
// Every disposable resource created while a scope is active registers into
// the innermost scope; when the scope exits, every still-registered member
// is disposed in creation order. Resources that must outlive the scope are
// either excluded (ownership handed to a longer-lived structure) or moved
// to the enclosing scope.
//
// A Stack holds the currently active scopes for one execution context. It
// is deliberately not safe for concurrent use: each goroutine performing
// independent work must own its own Stack, or one context's scope exit
// would dispose another's live resources.
package scope

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Disposable is a resource participating in scope tracking. Dispose must be
// idempotent: the second and later calls are no-ops.
type Disposable interface {
	Dispose()
	IsDisposed() bool
}

// ErrNoActiveScope is returned when a move to an enclosing scope is
// requested but no enclosing scope exists.
var ErrNoActiveScope = errors.New("no active dispose scope")

// StackViolationError is the panic value raised when a scope attempts to
// exit while it is not the current top of its stack. This is a programmer
// error: once enter/exit pairing is broken, the stack's integrity for every
// other in-flight scope is gone, so it is surfaced loudly rather than
// repaired.
type StackViolationError struct {
	Scope string
	Top   string
}

func (e *StackViolationError) Error() string {
	return fmt.Sprintf("dispose scope %s exited out of order (current top is %s)", e.Scope, e.Top)
}

// Stack is the per-execution-context stack of active scopes. The zero
// value is not usable; create one with NewStack.
type Stack struct {
	scopes []*Scope
}

// NewStack creates an empty scope stack.
func NewStack() *Stack {
	return &Stack{}
}

// Current returns the innermost active scope, or nil if none is active.
// Newly created disposable resources register into this scope.
func (st *Stack) Current() *Scope {
	if len(st.scopes) == 0 {
		return nil
	}
	return st.scopes[len(st.scopes)-1]
}

// Depth returns the number of active scopes.
func (st *Stack) Depth() int {
	return len(st.scopes)
}

// Enter pushes a new scope and returns it. Pair every Enter with a
// deferred Exit so the scope is released on all paths, including panics:
//
//	s := stack.Enter()
//	defer s.Exit()
func (st *Stack) Enter() *Scope {
	s := &Scope{
		id:     uuid.New(),
		stack:  st,
		parent: st.Current(),
	}
	st.scopes = append(st.scopes, s)
	Logger().Debug("scope entered", zap.String("scope", s.String()), zap.Int("depth", len(st.scopes)))
	return s
}

// Scope is a stack-disciplined lifetime region. Members are held in
// insertion order, which is also the disposal order on exit; disposing in
// creation order keeps a derived resource from outliving what it was
// derived from.
type Scope struct {
	id      uuid.UUID
	stack   *Stack
	parent  *Scope
	members []Disposable
	exited  bool
}

// String returns a short identity for logging.
func (s *Scope) String() string {
	return "scope-" + s.id.String()[:8]
}

// Register adds a resource to this scope's release set. Registering a
// resource that is already a member is a no-op. A resource belongs to at
// most one scope at a time; the caller (the resource's constructor or a
// move operation) maintains that invariant.
func (s *Scope) Register(d Disposable) {
	if s.exited {
		panic(fmt.Sprintf("register on exited dispose scope %s", s))
	}
	if s.contains(d) {
		return
	}
	s.members = append(s.members, d)
}

// Exclude removes a resource from this scope's release set without
// touching any other scope. The resource becomes unmanaged unless it is
// re-attached elsewhere; used when ownership is handed to a longer-lived
// structure, such as a module registering a parameter.
// Returns whether the resource was a member.
func (s *Scope) Exclude(d Disposable) bool {
	for i, m := range s.members {
		if m == d {
			s.members = append(s.members[:i], s.members[i+1:]...)
			return true
		}
	}
	return false
}

// MoveToOuter transfers a resource from this scope's release set to the
// enclosing scope's, so a value computed inside a nested region can be
// returned without being destroyed on exit. Returns the destination scope.
// Fails with ErrNoActiveScope when there is no enclosing scope.
func (s *Scope) MoveToOuter(d Disposable) (*Scope, error) {
	if s.parent == nil {
		return nil, fmt.Errorf("move to outer from %s: %w", s, ErrNoActiveScope)
	}
	s.Exclude(d)
	s.parent.Register(d)
	return s.parent, nil
}

// Parent returns the enclosing scope, or nil at the bottom of the stack.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// Len returns the number of resources currently in the release set.
func (s *Scope) Len() int {
	return len(s.members)
}

// Exit disposes every still-registered member in insertion order and pops
// the scope. Exit panics with *StackViolationError if this scope is not
// the current top of its stack, leaving the stack untouched so the
// corruption is surfaced rather than silently absorbed.
//
// Exit on an already-exited scope is a no-op, which keeps the deferred
// call harmless after an early manual exit.
func (s *Scope) Exit() {
	if s.exited {
		return
	}
	top := s.stack.Current()
	if top != s {
		topName := "<none>"
		if top != nil {
			topName = top.String()
		}
		panic(&StackViolationError{Scope: s.String(), Top: topName})
	}

	// Detach the member list before disposing: Dispose on a member calls
	// back into Exclude, which must not mutate the list mid-iteration.
	members := s.members
	s.members = nil
	s.exited = true
	s.stack.scopes = s.stack.scopes[:len(s.stack.scopes)-1]

	for _, m := range members {
		m.Dispose()
	}
	Logger().Debug("scope exited",
		zap.String("scope", s.String()),
		zap.Int("released", len(members)),
		zap.Int("depth", len(s.stack.scopes)))
}

func (s *Scope) contains(d Disposable) bool {
	for _, m := range s.members {
		if m == d {
			return true
		}
	}
	return false
}
