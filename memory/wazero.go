package memory

import (
	"context"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/stx"
	"github.com/wippyai/stx/errors"
)

// WrapMemory wraps a wazero api.Memory to implement stx.LinearMemory.
func WrapMemory(mem api.Memory) *Wrapper {
	if mem == nil {
		return nil
	}
	return &Wrapper{Mem: mem}
}

// WrapAllocator wraps a guest's cabi_realloc export to implement stx.Allocator.
func WrapAllocator(ctx context.Context, fn api.Function) *AllocatorWrapper {
	if fn == nil {
		return nil
	}
	return &AllocatorWrapper{Ctx: ctx, Fn: fn}
}

// Wrapper adapts wazero api.Memory to stx.LinearMemory.
type Wrapper struct {
	Mem api.Memory
}

// Size returns the memory size in bytes.
func (m *Wrapper) Size() uint32 {
	return m.Mem.Size()
}

// Grow extends the memory by deltaPages and returns the previous size in pages.
func (m *Wrapper) Grow(deltaPages uint32) (uint32, error) {
	prev, ok := m.Mem.Grow(deltaPages)
	if !ok {
		return prev, errors.New(errors.PhaseMemory, errors.KindAllocation).
			Detail("grow by %d pages refused", deltaPages).
			Build()
	}
	return prev, nil
}

// Read returns a view of length bytes at offset.
func (m *Wrapper) Read(offset uint32, length uint32) ([]byte, error) {
	data, ok := m.Mem.Read(offset, length)
	if !ok {
		return nil, errors.OutOfBounds(errors.PhaseMemory, offset, length)
	}
	return data, nil
}

// Write writes bytes to memory.
func (m *Wrapper) Write(offset uint32, data []byte) error {
	if !m.Mem.Write(offset, data) {
		return errors.OutOfBounds(errors.PhaseMemory, offset, uint32(len(data)))
	}
	return nil
}

// ReadU8 reads an unsigned 8-bit value.
func (m *Wrapper) ReadU8(offset uint32) (uint8, error) {
	v, ok := m.Mem.ReadByte(offset)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseMemory, offset, 1)
	}
	return v, nil
}

// ReadU16 reads an unsigned 16-bit little-endian value.
func (m *Wrapper) ReadU16(offset uint32) (uint16, error) {
	v, ok := m.Mem.ReadUint16Le(offset)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseMemory, offset, 2)
	}
	return v, nil
}

// ReadU32 reads an unsigned 32-bit little-endian value.
func (m *Wrapper) ReadU32(offset uint32) (uint32, error) {
	v, ok := m.Mem.ReadUint32Le(offset)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseMemory, offset, 4)
	}
	return v, nil
}

// ReadU64 reads an unsigned 64-bit little-endian value.
func (m *Wrapper) ReadU64(offset uint32) (uint64, error) {
	v, ok := m.Mem.ReadUint64Le(offset)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseMemory, offset, 8)
	}
	return v, nil
}

// WriteU8 writes an unsigned 8-bit value.
func (m *Wrapper) WriteU8(offset uint32, value uint8) error {
	if !m.Mem.WriteByte(offset, value) {
		return errors.OutOfBounds(errors.PhaseMemory, offset, 1)
	}
	return nil
}

// WriteU16 writes an unsigned 16-bit little-endian value.
func (m *Wrapper) WriteU16(offset uint32, value uint16) error {
	if !m.Mem.WriteUint16Le(offset, value) {
		return errors.OutOfBounds(errors.PhaseMemory, offset, 2)
	}
	return nil
}

// WriteU32 writes an unsigned 32-bit little-endian value.
func (m *Wrapper) WriteU32(offset uint32, value uint32) error {
	if !m.Mem.WriteUint32Le(offset, value) {
		return errors.OutOfBounds(errors.PhaseMemory, offset, 4)
	}
	return nil
}

// WriteU64 writes an unsigned 64-bit little-endian value.
func (m *Wrapper) WriteU64(offset uint32, value uint64) error {
	if !m.Mem.WriteUint64Le(offset, value) {
		return errors.OutOfBounds(errors.PhaseMemory, offset, 8)
	}
	return nil
}

// AllocatorWrapper adapts a guest cabi_realloc(old, oldSize, align, newSize)
// export to stx.Allocator.
type AllocatorWrapper struct {
	Ctx context.Context
	Fn  api.Function
}

func (a *AllocatorWrapper) call(ptr, oldSize, align, newSize uint32) (uint32, error) {
	results, err := a.Fn.Call(a.Ctx, uint64(ptr), uint64(oldSize), uint64(align), uint64(newSize))
	if err != nil {
		return 0, errors.New(errors.PhaseAlloc, errors.KindAllocation).
			Cause(err).
			Detail("cabi_realloc").
			Build()
	}
	if len(results) == 0 {
		return 0, errors.New(errors.PhaseAlloc, errors.KindAllocation).
			Detail("cabi_realloc returned no result").
			Build()
	}
	return uint32(results[0]), nil
}

// Alloc allocates memory using cabi_realloc.
func (a *AllocatorWrapper) Alloc(size, align uint32) (uint32, error) {
	ptr, err := a.call(0, 0, align, size)
	if err != nil {
		return 0, errors.Wrap(errors.PhaseAlloc, errors.KindAllocation, err, "alloc")
	}
	if ptr == 0 {
		return 0, errors.AllocationFailed(errors.PhaseAlloc, size, align)
	}
	return ptr, nil
}

// Realloc resizes a block using cabi_realloc. The guest keeps the original
// block when it returns a null pointer.
func (a *AllocatorWrapper) Realloc(ptr, oldSize, align, newSize uint32) (uint32, error) {
	p, err := a.call(ptr, oldSize, align, newSize)
	if err != nil {
		return 0, errors.Wrap(errors.PhaseAlloc, errors.KindAllocation, err, "realloc")
	}
	if p == 0 {
		return 0, errors.AllocationFailed(errors.PhaseAlloc, newSize, align)
	}
	return p, nil
}

// Free deallocates memory using cabi_realloc.
func (a *AllocatorWrapper) Free(ptr, size, align uint32) {
	if ptr == 0 {
		return
	}
	_, _ = a.call(ptr, size, align, 0)
}

var (
	_ stx.LinearMemory = (*Wrapper)(nil)
	_ stx.Allocator    = (*AllocatorWrapper)(nil)
)
