// Package alloc provides a host-side allocator for linear memory.
//
// FreeList manages the region of a stx.LinearMemory above a base address. It
// hands out blocks first-fit from a sorted list of free spans, coalesces
// neighbours on release, resizes in place when the following bytes are free,
// and grows the memory by whole pages when nothing fits:
//
//	mem := memory.NewSlice(1, 64)
//	fl := alloc.NewFreeList(mem, alloc.Config{Limit: 1 << 20})
//	sp := stx.NewSpace(mem, fl)
//
// Bookkeeping lives on the Go side, so a guest scribbling over memory cannot
// corrupt the allocator. FreeList is not safe for concurrent use.
package alloc
