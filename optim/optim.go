// Copyright 2025 Latch ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides parameter optimizers as disposable resources.
//
// An optimizer owns its native state tensors (momentum buffers) the way a
// module owns its parameters; disposing the optimizer releases them.
//
// Example:
//
//	opt := optim.NewSGD(rt, model.Parameters(), optim.SGDConfig{
//	    LR:       0.01,
//	    Momentum: 0.9,
//	})
//	defer opt.Dispose()
//
//	if err := opt.Step(); err != nil { ... }
//	opt.ZeroGrad()
package optim

import (
	"github.com/latch-ml/latch/internal/optim"
)

// SGD implements stochastic gradient descent with optional momentum.
type SGD = optim.SGD

// SGDConfig configures an SGD optimizer.
type SGDConfig = optim.SGDConfig

// ErrDisposed is returned by operations on a disposed optimizer.
var ErrDisposed = optim.ErrDisposed

// NewSGD creates an SGD optimizer over the given parameters.
var NewSGD = optim.NewSGD
