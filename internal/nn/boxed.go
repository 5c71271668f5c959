package nn

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/latch-ml/latch/internal/native"
	"github.com/latch-ml/latch/internal/scope"
	"github.com/latch-ml/latch/internal/tensor"
)

// BindForward anchors a module's Forward in the native runtime so the
// native execution graph can re-enter it through a shadow handle. The
// shadow handle is stored on the module's Base and released when the
// module is disposed.
//
// Modules that never receive native callbacks do not need binding.
func BindForward(rt *tensor.Runtime, m Module) error {
	base := m.Components()
	if base.boxed != native.Null {
		return fmt.Errorf("bind forward: module already bound to %s", base.boxed)
	}
	h := rt.Lib().Box(&moduleForwarder{rt: rt, m: m})
	if !h.Valid() {
		return native.FactoryError(rt.Lib(), "bind forward")
	}
	base.rt = rt
	base.boxed = h
	return nil
}

// moduleForwarder is the vtable entry the native runtime invokes through a
// shadow handle. It adapts the raw-handle calling convention to the
// module's Forward.
type moduleForwarder struct {
	rt *tensor.Runtime
	m  Module
}

// NativeForward runs the module under a private dispose scope. The input
// handle is borrowed from the native caller, so it is cloned before being
// wrapped; every intermediate dies with the scope, and ownership of the
// result handle passes back to the native side.
func (f *moduleForwarder) NativeForward(input native.Handle) native.Handle {
	s := f.rt.NewScope()
	defer s.Exit()

	in, err := tensor.Adopt(f.rt, f.rt.Lib().Clone(input), "native forward input")
	if err != nil {
		scope.Logger().Error("native forward: bad input handle", zap.Error(err))
		return native.Null
	}
	out, err := f.m.Forward(in)
	if err != nil {
		scope.Logger().Error("native forward failed", zap.Error(err))
		return native.Null
	}
	h, err := out.Release()
	if err != nil {
		scope.Logger().Error("native forward: result already disposed", zap.Error(err))
		return native.Null
	}
	return h
}
