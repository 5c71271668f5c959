package tensor

import (
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/latch-ml/latch/internal/native"
	"github.com/latch-ml/latch/internal/scope"
)

// ErrUseAfterDispose is returned by any fallible operation attempted on a
// tensor that has already been disposed.
var ErrUseAfterDispose = errors.New("use after dispose")

// Tensor owns exactly one native allocation, plus an optional shadow
// handle for native callback dispatch. It is the sole manager authorized
// to release that allocation: disposal happens exactly once, either
// explicitly, through the enclosing dispose scope, or — as a logged last
// resort — through the garbage collector's finalizer.
//
// A Tensor is bound to the Runtime that created it and must only be used
// from that Runtime's execution context.
type Tensor struct {
	rt     *Runtime
	h      native.Handle
	boxed  native.Handle
	shape  native.Shape
	dtype  native.DataType
	device native.Device
	sc     *scope.Scope
	dead   atomic.Bool
}

// Wrap takes ownership of a native handle produced by a factory call. It
// fails with native.ErrInvalidHandle, carrying the library's last error
// text, when the primary handle is Null. The boxed handle may be Null for
// tensors that never receive native callbacks.
//
// On success the tensor registers into the Runtime's current dispose
// scope; with no scope active it is unmanaged and the finalizer backstop
// is the only automatic release path.
func Wrap(rt *Runtime, h, boxed native.Handle, shape native.Shape, dtype native.DataType, op string) (*Tensor, error) {
	if !h.Valid() {
		return nil, native.FactoryError(rt.lib, op)
	}
	t := &Tensor{
		rt:     rt,
		h:      h,
		boxed:  boxed,
		shape:  shape.Clone(),
		dtype:  dtype,
		device: rt.lib.Device(),
	}
	if s := rt.stack.Current(); s != nil {
		s.Register(t)
		t.sc = s
	}
	runtime.SetFinalizer(t, (*Tensor).finalize)
	return t, nil
}

// Adopt wraps a handle whose shape and dtype are queried from the native
// library, e.g. one returned through Invoke.
func Adopt(rt *Runtime, h native.Handle, op string) (*Tensor, error) {
	if !h.Valid() {
		return nil, native.FactoryError(rt.lib, op)
	}
	shape, dtype, ok := rt.lib.Describe(h)
	if !ok {
		return nil, fmt.Errorf("%s: %w: handle not known to the native runtime", op, native.ErrInvalidHandle)
	}
	return Wrap(rt, h, native.Null, shape, dtype, op)
}

// Dispose releases the native allocation (and shadow handle, if any) and
// removes the tensor from its dispose scope. Safe to call more than once;
// only the first call does anything.
func (t *Tensor) Dispose() {
	if !t.dead.CompareAndSwap(false, true) {
		return
	}
	if t.sc != nil {
		t.sc.Exclude(t)
		t.sc = nil
	}
	t.rt.lib.Free(t.h)
	t.h = native.Null
	if t.boxed != native.Null {
		t.rt.lib.FreeBoxed(t.boxed)
		t.boxed = native.Null
	}
	runtime.SetFinalizer(t, nil)
}

// Release relinquishes ownership of the native handle without freeing it
// and returns the handle. Used when ownership passes back to the native
// side, e.g. returning a result from a natively invoked forward. The
// tensor is unusable afterwards; its shadow handle, if any, is still
// freed.
func (t *Tensor) Release() (native.Handle, error) {
	if !t.dead.CompareAndSwap(false, true) {
		return native.Null, fmt.Errorf("release: %w", ErrUseAfterDispose)
	}
	if t.sc != nil {
		t.sc.Exclude(t)
		t.sc = nil
	}
	h := t.h
	t.h = native.Null
	if t.boxed != native.Null {
		t.rt.lib.FreeBoxed(t.boxed)
		t.boxed = native.Null
	}
	runtime.SetFinalizer(t, nil)
	return h, nil
}

// finalize is the collector backstop for tensors that escaped explicit
// disposal. A tensor still registered in a live scope is always reachable
// through that scope, so this only ever fires for unmanaged tensors.
func (t *Tensor) finalize() {
	if t.dead.Load() {
		return
	}
	t.rt.logger.Warn("tensor released by finalizer backstop; call Dispose or use a scope",
		zap.String("handle", t.h.String()),
		zap.String("shape", fmt.Sprint(t.shape)),
		zap.String("dtype", t.dtype.String()))
	t.Dispose()
}

// IsDisposed reports whether the tensor has been released.
func (t *Tensor) IsDisposed() bool {
	return t.dead.Load()
}

// Handle returns the native handle. Panics if the tensor has been
// disposed: handing out a stale handle risks native memory corruption, so
// this fails fast instead.
func (t *Tensor) Handle() native.Handle {
	if t.dead.Load() {
		panic("tensor handle accessed after dispose")
	}
	return t.h
}

// Boxed returns the shadow handle, or Null when the tensor has no native
// callback anchor.
func (t *Tensor) Boxed() native.Handle {
	return t.boxed
}

// SetBoxed attaches a shadow handle to the tensor, transferring its
// release obligation. Fails after dispose.
func (t *Tensor) SetBoxed(h native.Handle) error {
	if t.dead.Load() {
		return fmt.Errorf("set boxed handle: %w", ErrUseAfterDispose)
	}
	t.boxed = h
	return nil
}

// Shape returns the tensor dimensions (defensive copy).
func (t *Tensor) Shape() native.Shape {
	return t.shape.Clone()
}

// DType returns the element type.
func (t *Tensor) DType() native.DataType {
	return t.dtype
}

// Device returns the device holding the allocation.
func (t *Tensor) Device() native.Device {
	return t.device
}

// NumElements returns the total element count.
func (t *Tensor) NumElements() int {
	return t.shape.NumElements()
}

// Runtime returns the Runtime that owns this tensor.
func (t *Tensor) Runtime() *Runtime {
	return t.rt
}

// Scope returns the dispose scope currently holding the release
// obligation, or nil for an unmanaged tensor.
func (t *Tensor) Scope() *scope.Scope {
	return t.sc
}

// MoveToOuterScope transfers the tensor to the scope enclosing its current
// one, the idiomatic way to return a value computed under a nested scope.
// Fails with scope.ErrNoActiveScope when the tensor is unmanaged or its
// scope has no parent.
func (t *Tensor) MoveToOuterScope() error {
	if t.dead.Load() {
		return fmt.Errorf("move to outer scope: %w", ErrUseAfterDispose)
	}
	if t.sc == nil {
		return fmt.Errorf("move to outer scope: %w", scope.ErrNoActiveScope)
	}
	dest, err := t.sc.MoveToOuter(t)
	if err != nil {
		return err
	}
	t.sc = dest
	return nil
}

// MoveToScope transfers the tensor into the given scope, removing it from
// its current one.
func (t *Tensor) MoveToScope(dest *scope.Scope) error {
	if t.dead.Load() {
		return fmt.Errorf("move to scope: %w", ErrUseAfterDispose)
	}
	if dest == nil {
		return fmt.Errorf("move to scope: %w", scope.ErrNoActiveScope)
	}
	if t.sc != nil {
		t.sc.Exclude(t)
	}
	dest.Register(t)
	t.sc = dest
	return nil
}

// ExcludeFromScope removes the tensor from its dispose scope without
// attaching it anywhere else. The caller takes over the release
// obligation; modules do this when registering parameters.
func (t *Tensor) ExcludeFromScope() {
	if t.sc != nil {
		t.sc.Exclude(t)
		t.sc = nil
	}
}

// Clone duplicates the allocation into a new tensor, registered like any
// freshly created resource.
func (t *Tensor) Clone() (*Tensor, error) {
	if t.dead.Load() {
		return nil, fmt.Errorf("clone: %w", ErrUseAfterDispose)
	}
	h := t.rt.lib.Clone(t.h)
	return Wrap(t.rt, h, native.Null, t.shape, t.dtype, "clone")
}

// AsType produces a new tensor with elements converted to dtype. The
// receiver is untouched.
func (t *Tensor) AsType(dtype native.DataType) (*Tensor, error) {
	if t.dead.Load() {
		return nil, fmt.Errorf("astype: %w", ErrUseAfterDispose)
	}
	h := t.rt.lib.Convert(t.h, dtype, t.device)
	nt, err := Wrap(t.rt, h, native.Null, t.shape, dtype, "astype")
	if err != nil {
		return nil, err
	}
	return nt, nil
}

// ToDevice produces a new tensor with the allocation migrated to another
// device on the same native library.
func (t *Tensor) ToDevice(device native.Device) (*Tensor, error) {
	if t.dead.Load() {
		return nil, fmt.Errorf("todevice: %w", ErrUseAfterDispose)
	}
	h := t.rt.lib.Convert(t.h, t.dtype, device)
	nt, err := Wrap(t.rt, h, native.Null, t.shape, t.dtype, "todevice")
	if err != nil {
		return nil, err
	}
	nt.device = device
	return nt, nil
}

// Data reads the allocation's contents into host memory.
func (t *Tensor) Data() ([]byte, error) {
	if t.dead.Load() {
		return nil, fmt.Errorf("data: %w", ErrUseAfterDispose)
	}
	return t.rt.lib.Read(t.h)
}

// SetData replaces the allocation's contents.
func (t *Tensor) SetData(data []byte) error {
	if t.dead.Load() {
		return fmt.Errorf("setdata: %w", ErrUseAfterDispose)
	}
	return t.rt.lib.Write(t.h, data)
}

// String describes the tensor for logging and errors.
func (t *Tensor) String() string {
	if t.dead.Load() {
		return "Tensor(disposed)"
	}
	return fmt.Sprintf("Tensor(%v, %s, %s)", t.shape, t.dtype, t.device)
}
