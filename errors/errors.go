package errors

import (
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"
)

// Phase indicates which operation produced the error
type Phase string

const (
	PhaseNew    Phase = "new"    // construction
	PhaseDup    Phase = "dup"    // duplication
	PhaseFree   Phase = "free"   // release
	PhaseAppend Phase = "append" // plain and growing appends
	PhaseFormat Phase = "format" // formatted append
	PhaseResize Phase = "resize" // capacity change
	PhaseAlloc  Phase = "alloc"  // allocator internals
	PhaseMemory Phase = "memory" // linear memory access
	PhaseEngine Phase = "engine" // wazero hosting
	PhaseConfig Phase = "config" // configuration loading
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidHandle    Kind = "invalid_handle"
	KindAllocation       Kind = "allocation"
	KindCapacityExceeded Kind = "capacity_exceeded"
	KindEncoding         Kind = "encoding"
	KindOverflow         Kind = "overflow"
	KindOutOfBounds      Kind = "out_of_bounds"
	KindInvalidInput     Kind = "invalid_input"
	KindNotFound         Kind = "not_found"
)

// Error is the structured error type used throughout the module
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
	Handle uint32
	Need   uint32
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Handle != 0 {
		b.WriteString(" at 0x")
		b.WriteString(strconv.FormatUint(uint64(e.Handle), 16))
	}

	if e.Need != 0 {
		b.WriteString(" (need ")
		b.WriteString(strconv.FormatUint(uint64(e.Need), 10))
		b.WriteByte(')')
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// An empty Phase in target matches any phase.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return (t.Phase == "" || e.Phase == t.Phase) && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Handle sets the handle the operation was applied to
func (b *Builder) Handle(h uint32) *Builder {
	b.err.Handle = h
	return b
}

// Need sets the total length the caller has to make room for
func (b *Builder) Need(n uint32) *Builder {
	b.err.Need = n
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// InvalidHandle creates an error for a handle that fails the validity check
func InvalidHandle(phase Phase, h uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidHandle,
		Handle: h,
		Detail: "not a live string handle",
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, size, align uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes (align %d)", size, align),
	}
}

// CapacityExceeded creates an error for a write that does not fit the remaining space.
// need is the total string length the buffer must be able to hold.
func CapacityExceeded(phase Phase, h uint32, need uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindCapacityExceeded,
		Handle: h,
		Need:   need,
	}
}

// Overflow creates an error for a capacity beyond what linear memory can address
func Overflow(phase Phase, value uint64, limit uint64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		Detail: fmt.Sprintf("capacity %d exceeds limit %d", value, limit),
	}
}

// OutOfBounds creates an out of bounds memory access error
func OutOfBounds(phase Phase, offset, length uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("offset=%d, length=%d", offset, length),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// NotFound creates a not found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// IsCapacityExceeded reports whether err carries a capacity_exceeded error and
// returns the total length needed to retry.
func IsCapacityExceeded(err error) (uint32, bool) {
	var e *Error
	if !stderrors.As(err, &e) || e.Kind != KindCapacityExceeded {
		return 0, false
	}
	return e.Need, true
}

// KindOf returns the Kind of the first structured error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}
