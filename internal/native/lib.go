package native

// Lib models the foreign-function surface of the native tensor runtime.
//
// The calling convention mirrors a C library: factory calls return a raw
// Handle and signal failure by returning Null, at which point the caller
// must read LastError for the recorded diagnostic. Operations that do not
// produce a handle return ordinary Go errors.
//
// A Lib may be shared freely between goroutines; implementations guard
// their own state. Ownership of returned handles transfers to the caller,
// who must eventually pass each one to Free (or FreeBoxed for shadow
// handles). Freeing Null is always a no-op.
type Lib interface {
	// Alloc creates a new uninitialized allocation. Returns Null and
	// records a last error if the shape or size is invalid.
	Alloc(shape Shape, dtype DataType, device Device) Handle

	// Clone duplicates an allocation, returning a new independent handle.
	Clone(h Handle) Handle

	// Convert produces a new allocation with the element data migrated to
	// a different dtype and/or device. The source handle is untouched.
	Convert(h Handle, dtype DataType, device Device) Handle

	// Read copies the allocation's contents into host memory.
	Read(h Handle) ([]byte, error)

	// Write replaces the allocation's contents. The byte length must match
	// the allocation size.
	Write(h Handle, data []byte) error

	// Free releases an allocation. Freeing Null or an already-freed handle
	// is a no-op (the latter records a last error for diagnostics).
	Free(h Handle)

	// Box anchors a Go-side dispatch target in the native runtime and
	// returns the shadow handle the runtime uses to call back into Go.
	Box(target Forwarder) Handle

	// FreeBoxed releases a shadow handle created by Box.
	FreeBoxed(h Handle)

	// Invoke drives the target behind a shadow handle with an input
	// allocation, as the native graph would during execution. Returns the
	// handle produced by the target, or Null with a recorded last error.
	Invoke(boxed, input Handle) Handle

	// Describe queries shape and element type for a live handle. The
	// second result is false for Null, freed, or unknown handles.
	Describe(h Handle) (Shape, DataType, bool)

	// Device reports which device this library allocates on.
	Device() Device

	// LastError returns the diagnostic recorded by the most recent failed
	// call, or "" if none.
	LastError() string
}

// Forwarder is the stable entry point the native runtime invokes through a
// shadow handle. Implementations receive the input allocation handle and
// return the handle of their result (Null to signal failure).
type Forwarder interface {
	NativeForward(input Handle) Handle
}
