// Copyright 2025 Latch ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides neural-network module composition over the latch
// component registry.
//
// Modules declare their children explicitly on an embedded Base:
//
//	type Block struct {
//	    *nn.Base
//	    scale *nn.Parameter
//	}
//
//	func NewBlock(rt *tensor.Runtime) (*Block, error) {
//	    w, err := tensor.Ones(rt, tensor.Shape{4})
//	    if err != nil {
//	        return nil, err
//	    }
//	    b := &Block{Base: &nn.Base{}, scale: nn.NewParameter("scale", w)}
//	    if err := b.RegisterParameter("scale", b.scale); err != nil {
//	        return nil, err
//	    }
//	    return b, nil
//	}
//
// Registration transfers ownership: the module, not the creating dispose
// scope, now carries the release obligation for the parameter's native
// memory, until the module itself is disposed.
package nn

import (
	"github.com/latch-ml/latch/internal/nn"
)

// Module is the base interface for all components.
type Module = nn.Module

// Base is the component registry embedded by every module.
type Base = nn.Base

// Parameter is a trainable state tensor with an optional gradient.
type Parameter = nn.Parameter

// Sequential chains submodules into a pipeline in registration order.
type Sequential = nn.Sequential

// Kind classifies a registered component.
type Kind = nn.Kind

// Component kinds.
const (
	KindModule    Kind = nn.KindModule
	KindParameter Kind = nn.KindParameter
	KindBuffer    Kind = nn.KindBuffer
)

// NamedModule pairs a child module with its registered name.
type NamedModule = nn.NamedModule

// NamedParameter pairs a parameter with its dotted path name.
type NamedParameter = nn.NamedParameter

// TransformFunc produces a migrated replacement for a state tensor.
type TransformFunc = nn.TransformFunc

// Transformer is implemented by modules intercepting the state-migration
// traversal.
type Transformer = nn.Transformer

// Registry validation failures.
var (
	ErrDuplicateName    = nn.ErrDuplicateName
	ErrInvalidChildKind = nn.ErrInvalidChildKind
)

// NewParameter wraps an initialized tensor as a trainable parameter.
var NewParameter = nn.NewParameter

// NewSequential builds a Sequential from the given modules.
var NewSequential = nn.NewSequential

// BindForward anchors a module's Forward in the native runtime for
// shadow-handle callback dispatch.
var BindForward = nn.BindForward
