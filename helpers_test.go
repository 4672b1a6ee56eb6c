package stx_test

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/wippyai/stx"
	"github.com/wippyai/stx/alloc"
	"github.com/wippyai/stx/engine"
	"github.com/wippyai/stx/memory"
)

var errOutOfMemory = stderrors.New("out of memory")

// failingAllocator wraps an allocator and refuses requests on demand.
type failingAllocator struct {
	stx.Allocator
	failAlloc   bool
	failRealloc bool
}

func (a *failingAllocator) Alloc(size, align uint32) (uint32, error) {
	if a.failAlloc {
		return 0, errOutOfMemory
	}
	return a.Allocator.Alloc(size, align)
}

func (a *failingAllocator) Realloc(ptr, oldSize, align, newSize uint32) (uint32, error) {
	if a.failRealloc {
		return 0, errOutOfMemory
	}
	return a.Allocator.Realloc(ptr, oldSize, align, newSize)
}

// flakyMemory fails bulk or single-byte writes on demand.
type flakyMemory struct {
	stx.Memory
	failWrite bool
	failByte  bool
}

func (m *flakyMemory) WriteU8(offset uint32, v uint8) error {
	if m.failByte {
		return stderrors.New("byte write refused")
	}
	return m.Memory.WriteU8(offset, v)
}

func (m *flakyMemory) Write(offset uint32, data []byte) error {
	if m.failWrite {
		return stderrors.New("write refused")
	}
	return m.Memory.Write(offset, data)
}

type fixture struct {
	sp    *stx.Space
	mem   *memory.Slice
	heap  *alloc.FreeList
	fault *failingAllocator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := memory.NewSlice(1, 64)
	heap := alloc.NewFreeList(mem, alloc.Config{})
	fault := &failingAllocator{Allocator: heap}
	return &fixture{
		sp:    stx.NewSpace(mem, fault),
		mem:   mem,
		heap:  heap,
		fault: fault,
	}
}

// backends returns spaces over Go heap memory and over wazero memory.
func backends(t *testing.T) map[string]*stx.Space {
	t.Helper()
	ctx := context.Background()

	eng, err := engine.NewEngine(ctx)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	t.Cleanup(func() { eng.Close(ctx) })

	inst, err := eng.NewSpace(ctx)
	if err != nil {
		t.Fatalf("NewSpace failed: %v", err)
	}

	return map[string]*stx.Space{
		"heap":   newFixture(t).sp,
		"wazero": inst.Space,
	}
}

// checkInvariants verifies the layout guarantees every live string keeps.
func checkInvariants(t *testing.T, sp *stx.Space, h stx.Handle) {
	t.Helper()

	info, ok := sp.Inspect(h)
	if !ok {
		t.Fatalf("handle %#x is not valid", h)
	}
	if info.Len > info.Cap {
		t.Errorf("len %d > cap %d", info.Len, info.Cap)
	}
	if info.Cookie != stx.Cookie {
		t.Errorf("cookie = %d", info.Cookie)
	}
	if stx.Width(info.Flags&3) != info.Width {
		t.Errorf("flags %#x do not match header width %s", info.Flags, info.Width)
	}

	mem := sp.Memory()
	if b, err := mem.ReadU8(uint32(h) + info.Len); err != nil || b != 0 {
		t.Errorf("byte at len %d = %d, %v; want 0", info.Len, b, err)
	}
	if b, err := mem.ReadU8(uint32(h) + info.Cap); err != nil || b != 0 {
		t.Errorf("byte at cap %d = %d, %v; want 0", info.Cap, b, err)
	}
}

func mustFrom(t *testing.T, sp *stx.Space, text string) stx.Handle {
	t.Helper()
	h, err := sp.From(text)
	if err != nil {
		t.Fatalf("From(%q) failed: %v", text, err)
	}
	return h
}

func mustNew(t *testing.T, sp *stx.Space, capacity uint32) stx.Handle {
	t.Helper()
	h, err := sp.New(capacity)
	if err != nil {
		t.Fatalf("New(%d) failed: %v", capacity, err)
	}
	return h
}
