// Package engine hosts stx spaces inside WebAssembly linear memory.
//
// An Engine owns a wazero runtime. NewSpace instantiates a module that only
// exports a memory and manages it with a host-side alloc.FreeList; Attach binds
// to the exported memory of a guest module, using the guest's cabi_realloc as
// the allocator when it exports one:
//
//	eng, err := engine.NewEngineWithConfig(ctx, &engine.Config{MemoryLimitPages: 256})
//	defer eng.Close(ctx)
//
//	inst, err := eng.NewSpace(ctx)
//	defer inst.Close(ctx)
//
//	h, err := inst.Space.From("hello")
//
// Handles are plain guest addresses, so a guest reading a zero-terminated
// string at h sees the content directly.
//
// The Engine is safe for concurrent use. An Instance is not.
package engine
