package native

import (
	"errors"
	"fmt"
)

// ErrInvalidHandle is returned when a native factory call produced the Null
// sentinel. It is always wrapped together with the library's last recorded
// error text; match with errors.Is.
var ErrInvalidHandle = errors.New("invalid native handle")

// FactoryError builds the error for a factory call that returned Null,
// attaching the library's last recorded diagnostic.
func FactoryError(lib Lib, op string) error {
	if msg := lib.LastError(); msg != "" {
		return fmt.Errorf("%s: %w: %s", op, ErrInvalidHandle, msg)
	}
	return fmt.Errorf("%s: %w", op, ErrInvalidHandle)
}
