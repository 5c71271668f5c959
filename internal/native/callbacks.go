package native

import "sync"

// The callback table stores Go-side dispatch targets referenced from native
// memory. Native code cannot hold Go pointers, so a boxed object is
// registered here and addressed by an integer handle that is safe to store
// on the native side. Targets stay reachable until Unbind.
var (
	cbMu     sync.RWMutex
	cbTable  = make(map[Handle]Forwarder)
	cbNextID Handle = 1
)

// Bind registers a dispatch target and returns its shadow handle.
//
// Thread-safe.
func Bind(target Forwarder) Handle {
	cbMu.Lock()
	defer cbMu.Unlock()
	id := cbNextID
	cbNextID++
	cbTable[id] = target
	return id
}

// LookupCallback retrieves a dispatch target by shadow handle.
// Returns nil if the handle is not bound.
//
// Thread-safe.
func LookupCallback(h Handle) Forwarder {
	cbMu.RLock()
	defer cbMu.RUnlock()
	return cbTable[h]
}

// Unbind removes a shadow handle, allowing the target to be collected.
//
// Thread-safe.
func Unbind(h Handle) {
	cbMu.Lock()
	defer cbMu.Unlock()
	delete(cbTable, h)
}

// BoundCallbacks returns the number of live shadow handles. Useful for leak
// checks in tests.
func BoundCallbacks() int {
	cbMu.RLock()
	defer cbMu.RUnlock()
	return len(cbTable)
}
