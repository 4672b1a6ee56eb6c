// Package errors provides structured error types for the stx string buffers.
//
// Errors are categorized by Phase (which operation failed) and Kind (error category).
// The Error type carries the handle involved, the capacity a caller would need to
// retry, a human-readable detail and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseResize, errors.KindAllocation).
//		Handle(h).
//		Detail("realloc %d -> %d bytes", oldSize, newSize).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.InvalidHandle(errors.PhaseAppend, h)
//	err := errors.CapacityExceeded(errors.PhaseAppend, h, need)
//
// Capacity errors carry the exact total length required, so callers can resize
// and retry without measuring the source again:
//
//	if need, ok := errors.IsCapacityExceeded(err); ok {
//		h, err = sp.Resize(h, need)
//	}
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
