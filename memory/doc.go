// Package memory provides linear memory backends for stx spaces.
//
// # Slice
//
// A Go heap backed memory that grows in 64 KiB pages up to a fixed page cap:
//
//	mem := memory.NewSlice(1, 256) // 64 KiB now, at most 16 MiB
//
// # Wazero Wrapper
//
// Wraps wazero api.Memory so strings can live inside a WebAssembly instance:
//
//	mem := memory.WrapMemory(instance.ExportedMemory("memory"))
//	// mem implements stx.LinearMemory
//
// # Allocator Wrapper
//
// Wraps a guest's exported cabi_realloc so the guest's own allocator hands out
// the blocks:
//
//	a := memory.WrapAllocator(ctx, instance.ExportedFunction("cabi_realloc"))
//	// a implements stx.Allocator
package memory
