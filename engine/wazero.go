package engine

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/stx"
	"github.com/wippyai/stx/alloc"
	"github.com/wippyai/stx/errors"
	"github.com/wippyai/stx/memory"
)

const (
	memoryExport  = "memory"
	reallocExport = "cabi_realloc"
)

// memoryWASM is a module with one page of memory, no maximum, exported as "memory".
var memoryWASM = []byte{
	0x00, 0x61, 0x73, 0x6d, // magic
	0x01, 0x00, 0x00, 0x00, // version
	0x05, 0x03, 0x01, 0x00, 0x01, // memory section: 1 page, no max
	0x07, 0x0a, 0x01, // export section: 10 bytes, 1 export
	0x06, 0x6d, 0x65, 0x6d, 0x6f, 0x72, 0x79, // name: "memory"
	0x02, 0x00, // kind: memory, index 0
}

// Config holds configuration for engine creation
type Config struct {
	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means default (65536 pages = 4GB).
	// 256 = 16MB, 1024 = 64MB, 4096 = 256MB
	MemoryLimitPages uint32

	// HeapLimit caps the bytes held by strings when the host allocates.
	// 0 means the memory limit is the only cap.
	HeapLimit uint32
}

// Engine creates stx spaces backed by wazero linear memory.
type Engine struct {
	runtime wazero.Runtime
	cfg     Config
	seq     atomic.Uint64
}

// NewEngine creates an engine with default configuration
func NewEngine(ctx context.Context) (*Engine, error) {
	return NewEngineWithConfig(ctx, nil)
}

// NewEngineWithConfig creates an engine with custom configuration
func NewEngineWithConfig(ctx context.Context, cfg *Config) (*Engine, error) {
	runtimeCfg := wazero.NewRuntimeConfig()

	e := &Engine{}
	if cfg != nil {
		e.cfg = *cfg
		if cfg.MemoryLimitPages > 0 {
			runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
		}
	}

	e.runtime = wazero.NewRuntimeWithConfig(ctx, runtimeCfg)
	return e, nil
}

// Close releases the runtime and every instance created from it.
func (e *Engine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// Instance is a Space bound to the memory of one module instance.
type Instance struct {
	Space  *stx.Space
	module api.Module
	mem    *memory.Wrapper
	heap   *alloc.FreeList
}

// Memory returns the instance's linear memory.
func (i *Instance) Memory() *memory.Wrapper {
	return i.mem
}

// Heap returns the host allocator, or nil when the guest allocates.
func (i *Instance) Heap() *alloc.FreeList {
	return i.heap
}

// Module returns the underlying wazero module.
func (i *Instance) Module() api.Module {
	return i.module
}

// Close closes the module instance. Handles of its Space become unusable.
func (i *Instance) Close(ctx context.Context) error {
	if i.module == nil {
		return nil
	}
	err := i.module.Close(ctx)
	i.module = nil
	i.Space = nil
	i.mem = nil
	i.heap = nil
	return err
}

// NewSpace instantiates a memory-only module and returns a Space whose blocks
// come from a host allocator over that memory.
func (e *Engine) NewSpace(ctx context.Context) (*Instance, error) {
	mod, err := e.instantiate(ctx, memoryWASM)
	if err != nil {
		return nil, err
	}

	mem := memory.WrapMemory(mod.ExportedMemory(memoryExport))
	heap := alloc.NewFreeList(mem, alloc.Config{Limit: e.cfg.HeapLimit})

	Logger().Debug("space created",
		zap.String("module", mod.Name()),
		zap.Uint32("memory_bytes", mem.Size()))

	return &Instance{
		Space:  stx.NewSpace(mem, heap),
		module: mod,
		mem:    mem,
		heap:   heap,
	}, nil
}

// Attach instantiates a guest module and returns a Space over its exported
// memory. If the guest exports cabi_realloc, blocks come from the guest's own
// allocator; otherwise a host allocator manages the memory beyond the guest's
// initial size.
func (e *Engine) Attach(ctx context.Context, wasm []byte) (*Instance, error) {
	mod, err := e.instantiate(ctx, wasm)
	if err != nil {
		return nil, err
	}

	mem := memory.WrapMemory(mod.ExportedMemory(memoryExport))
	if mem == nil {
		if closeErr := mod.Close(ctx); closeErr != nil {
			Logger().Warn("attach: failed to close module",
				zap.String("module", mod.Name()),
				zap.Error(closeErr))
		}
		return nil, errors.NotFound(errors.PhaseEngine, "memory export", memoryExport)
	}

	inst := &Instance{module: mod, mem: mem}
	var a stx.Allocator
	if fn := mod.ExportedFunction(reallocExport); fn != nil {
		a = memory.WrapAllocator(ctx, fn)
	} else {
		inst.heap = alloc.NewFreeList(mem, alloc.Config{Base: mem.Size(), Limit: e.cfg.HeapLimit})
		a = inst.heap
	}
	inst.Space = stx.NewSpace(mem, a)

	Logger().Debug("guest attached",
		zap.String("module", mod.Name()),
		zap.Bool("guest_allocator", inst.heap == nil))

	return inst, nil
}

func (e *Engine) instantiate(ctx context.Context, wasm []byte) (api.Module, error) {
	compiled, err := e.runtime.CompileModule(ctx, wasm)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseEngine, errors.KindInvalidInput, err, "compile module")
	}

	name := fmt.Sprintf("stx-%d", e.seq.Add(1))
	mod, err := e.runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(name))
	if err != nil {
		if closeErr := compiled.Close(ctx); closeErr != nil {
			Logger().Warn("instantiate: failed to close compiled module",
				zap.String("module", name),
				zap.Error(closeErr))
		}
		return nil, errors.Wrap(errors.PhaseEngine, errors.KindInvalidInput, err, "instantiate module")
	}
	return mod, nil
}
