// Package nn implements the component registry that ties module object
// graphs to native resource lifetimes.
//
// A module declares its children — submodules, trainable parameters, and
// non-trainable buffers — by explicit registration on an embedded Base.
// Registration transfers the release obligation for the child's native
// memory from whatever dispose scope created it to the owning module: the
// module now owns its registered state for the module's lifetime,
// independent of any scope membership.
//
// Registration order is authoritative. NamedChildren replays children in
// exactly the order they were registered, and Sequential executes them in
// that order, so reordering registrations changes behavior. This coupling
// is part of the contract, not an accident of implementation.
package nn

import (
	"github.com/latch-ml/latch/internal/tensor"
)

// Module is the base interface for all components.
//
// Modules embed *Base, which provides Components and the registration
// machinery; Forward is the only method a module author writes.
type Module interface {
	// Forward computes the module's output for an input tensor.
	Forward(input *tensor.Tensor) (*tensor.Tensor, error)

	// Components returns the module's component registry.
	Components() *Base
}

// TransformFunc produces a migrated replacement for a state tensor, e.g.
// converted to another element type or device. The original is disposed by
// the traversal after a successful transform.
type TransformFunc func(*tensor.Tensor) (*tensor.Tensor, error)

// Transformer is implemented by modules that intercept the state-migration
// traversal. An implementation must still invoke the base traversal
// (Components().Transform) for its registered state to be migrated.
type Transformer interface {
	Transform(fn TransformFunc) error
}
