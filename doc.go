// Package stx implements adaptive string buffers in linear memory.
//
// A string lives in a single allocation laid out as
//
//	[header][cookie][flags][data ... cap bytes][0]
//
// and is referred to by a Handle: the address of the first data byte. The
// handle can be handed to anything that reads zero-terminated strings out of
// the same memory (a WebAssembly guest, for instance), while the hidden header
// answers length and capacity queries in O(1).
//
// # Layout
//
// Two header widths exist. Strings with a capacity below 256 use a narrow
// header (two u8 fields); larger ones use a wide header (two little-endian u32
// fields). The two bytes right before the data hold a cookie (0xAA) and a flags
// byte whose low bits name the header width:
//
//	narrow: [cap u8][len u8][0xAA][flags=1][data]
//	wide:   [cap u32][len u32][0xAA][flags=3][data]
//
// The data area is always cap+1 bytes long. The byte at len and the byte at cap
// are both zero.
//
// # Package Structure
//
//	stx/          Handle, Memory and Allocator interfaces, the Space operations
//	├── memory/   Linear memory backends (Go heap, wazero) and a cabi_realloc adapter
//	├── alloc/    Free-list allocator over any LinearMemory
//	├── engine/   wazero hosting: spaces backed by WebAssembly memory
//	├── errors/   Structured error types
//	└── cmd/stx/  Scripted and interactive inspector
//
// # Quick Start
//
//	mem := memory.NewSlice(1, 16)
//	sp := stx.NewSpace(mem, alloc.NewFreeList(mem, alloc.Config{}))
//
//	h, err := sp.New(4)
//	n, err := sp.Append(h, "ab")      // 2
//	n, err = sp.Append(h, "cdefg")    // -7: needs room for 7 bytes
//	h, n, err = sp.AppendGrow(h, "cdefg")
//	sp.Free(h)
//
// # Failure Convention
//
// Failures never panic. Operations return an error from the errors package and
// leave the previous state untouched. Append and AppendFormat keep a sizing
// hint in their integer result: a negative value is minus the total length the
// string needs, so a caller can resize once and retry.
//
// Shrinking a string below its length with Resize is not an error: the content
// is truncated to the new capacity.
//
// # Relocation
//
// Resize and the growing appends may move the string. They return the handle
// to use from then on, in the manner of the append builtin:
//
//	h, err = sp.Resize(h, 1024)
//
// The old handle must not be used again, and neither may any slice obtained
// from Bytes before the call.
//
// # Thread Safety
//
// A Space is NOT thread-safe. Handles carry no synchronization, and a
// relocation turns every stale copy of a handle into a dangling address. Guard
// a Space with a mutex if it is shared between goroutines. Distinct Spaces over
// distinct memories are independent.
package stx
