package nn

import (
	"fmt"

	"github.com/latch-ml/latch/internal/tensor"
)

// Sequential chains submodules into a pipeline: each child's output feeds
// the next child's input, in registration order. Children are named by
// their insertion index ("0", "1", ...).
type Sequential struct {
	*Base
	count int
}

// NewSequential builds a Sequential from the given modules.
func NewSequential(modules ...Module) (*Sequential, error) {
	s := &Sequential{Base: &Base{}}
	for _, m := range modules {
		if err := s.Append(m); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Append adds a module to the end of the pipeline.
func (s *Sequential) Append(m Module) error {
	if err := s.RegisterModule(fmt.Sprintf("%d", s.count), m); err != nil {
		return err
	}
	s.count++
	return nil
}

// Len returns the number of modules in the pipeline.
func (s *Sequential) Len() int {
	return s.count
}

// Forward replays the registered children in order. The child-order
// contract of the registry is what makes this correct: NamedChildren
// yields modules exactly as registered.
func (s *Sequential) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	out := input
	for _, child := range s.NamedChildren() {
		next, err := child.Module.Forward(out)
		if err != nil {
			return nil, fmt.Errorf("sequential module %s: %w", child.Name, err)
		}
		out = next
	}
	return out, nil
}
