package alloc

import (
	"cmp"
	"math"
	"slices"

	"go.uber.org/zap"

	"github.com/wippyai/stx"
	"github.com/wippyai/stx/errors"
)

const (
	defaultBase  = 8
	defaultAlign = 8
)

// Config holds configuration for a FreeList
type Config struct {
	// Base is the lowest address handed out. Everything below it is left to
	// the memory's owner, and address 0 is never returned.
	// 0 means 8.
	Base uint32

	// Limit caps the bytes held by live blocks. 0 means no cap beyond what
	// the memory can grow to.
	Limit uint32

	// Align is the minimum alignment and size granularity of every block.
	// It must be a power of two. 0 means 8.
	Align uint32
}

// Stats describes the state of a FreeList.
type Stats struct {
	InUse    uint32 // bytes held by live blocks
	Free     uint32 // bytes in free spans below the heap top
	Top      uint32 // first address never handed out
	Blocks   int    // live blocks
	Spans    int    // free spans
	Allocs   uint64
	Reallocs uint64
	Frees    uint64
	Failures uint64
	Grown    uint32 // pages added to the memory
}

type span struct {
	off  uint32
	size uint32
}

func (s span) end() uint32 { return s.off + s.size }

// FreeList is a first-fit, coalescing allocator over a LinearMemory.
type FreeList struct {
	mem   stx.LinearMemory
	used  map[uint32]uint32
	free  []span
	cfg   Config
	top   uint32
	stats Stats
}

// NewFreeList creates an allocator managing mem above cfg.Base.
func NewFreeList(mem stx.LinearMemory, cfg Config) *FreeList {
	if cfg.Base == 0 {
		cfg.Base = defaultBase
	}
	if cfg.Align == 0 || cfg.Align&(cfg.Align-1) != 0 {
		cfg.Align = defaultAlign
	}
	top, _ := roundUp(cfg.Base, cfg.Align)
	return &FreeList{
		mem:  mem,
		cfg:  cfg,
		used: make(map[uint32]uint32),
		top:  top,
	}
}

// Stats returns a snapshot of the allocator state.
func (f *FreeList) Stats() Stats {
	s := f.stats
	s.Top = f.top
	s.Blocks = len(f.used)
	s.Spans = len(f.free)
	s.Free = 0
	for _, sp := range f.free {
		s.Free += sp.size
	}
	return s
}

// BlockSize returns the rounded size of the live block at ptr.
func (f *FreeList) BlockSize(ptr uint32) (uint32, bool) {
	n, ok := f.used[ptr]
	return n, ok
}

// Alloc returns a block of at least size bytes aligned to align.
func (f *FreeList) Alloc(size, align uint32) (uint32, error) {
	ptr, err := f.alloc(size, align, 0)
	if err != nil {
		f.stats.Failures++
		return 0, err
	}
	f.stats.Allocs++
	return ptr, nil
}

// alloc places a new block. giveBack is the size of a block the caller frees
// right after, which does not count against the limit.
func (f *FreeList) alloc(size, align, giveBack uint32) (uint32, error) {
	align = max(align, f.cfg.Align)
	if align&(align-1) != 0 {
		return 0, errors.InvalidInput(errors.PhaseAlloc, "alignment must be a power of two")
	}
	n, ok := roundUp(max(size, 1), f.cfg.Align)
	if !ok || !f.withinLimit(n, giveBack) {
		return 0, errors.AllocationFailed(errors.PhaseAlloc, size, align)
	}

	for i, s := range f.free {
		p, ok := roundUp(s.off, align)
		if ok && uint64(p)+uint64(n) <= uint64(s.end()) {
			f.take(i, p, n)
			f.used[p] = n
			f.stats.InUse += n
			return p, nil
		}
	}

	p, ok := roundUp(f.top, align)
	if !ok {
		return 0, errors.AllocationFailed(errors.PhaseAlloc, size, align)
	}
	if err := f.ensure(uint64(p) + uint64(n)); err != nil {
		e := errors.AllocationFailed(errors.PhaseAlloc, size, align)
		e.Cause = err
		return 0, e
	}
	if p > f.top {
		f.release(f.top, p-f.top)
	}
	f.top = p + n
	f.used[p] = n
	f.stats.InUse += n
	return p, nil
}

// Realloc resizes the block at ptr, in place when possible. A null ptr
// allocates; a zero newSize frees and returns 0.
func (f *FreeList) Realloc(ptr, oldSize, align, newSize uint32) (uint32, error) {
	if ptr == 0 {
		return f.Alloc(newSize, align)
	}
	if newSize == 0 {
		f.Free(ptr, oldSize, align)
		return 0, nil
	}

	p, err := f.realloc(ptr, align, newSize)
	if err != nil {
		f.stats.Failures++
		return 0, err
	}
	f.stats.Reallocs++
	return p, nil
}

func (f *FreeList) realloc(ptr, align, newSize uint32) (uint32, error) {
	n, ok := f.used[ptr]
	if !ok {
		return 0, errors.New(errors.PhaseAlloc, errors.KindInvalidInput).
			Detail("realloc of unknown block at %d", ptr).
			Build()
	}
	want, ok := roundUp(newSize, f.cfg.Align)
	if !ok || !f.withinLimit(want, n) {
		return 0, errors.AllocationFailed(errors.PhaseAlloc, newSize, align)
	}

	switch {
	case want == n:
		return ptr, nil

	case want < n:
		f.release(ptr+want, n-want)
		f.used[ptr] = want
		f.stats.InUse -= n - want
		return ptr, nil

	case ptr+n == f.top:
		if err := f.ensure(uint64(ptr) + uint64(want)); err == nil {
			f.top = ptr + want
			f.used[ptr] = want
			f.stats.InUse += want - n
			return ptr, nil
		}

	default:
		if i, ok := f.spanAt(ptr + n); ok && f.free[i].size >= want-n {
			f.take(i, ptr+n, want-n)
			f.used[ptr] = want
			f.stats.InUse += want - n
			return ptr, nil
		}
	}

	moved, err := f.alloc(newSize, align, n)
	if err != nil {
		return 0, err
	}
	data, err := f.mem.Read(ptr, n)
	if err == nil {
		err = f.mem.Write(moved, data)
	}
	if err != nil {
		f.drop(moved)
		return 0, errors.Wrap(errors.PhaseAlloc, errors.KindOutOfBounds, err, "move block")
	}
	f.drop(ptr)
	return moved, nil
}

// Free releases the block at ptr. Unknown pointers are logged and ignored.
func (f *FreeList) Free(ptr, size, align uint32) {
	if ptr == 0 {
		return
	}
	if _, ok := f.used[ptr]; !ok {
		Logger().Warn("free: unknown block",
			zap.Uint32("ptr", ptr),
			zap.Uint32("size", size),
			zap.Uint32("align", align))
		return
	}
	f.drop(ptr)
	f.stats.Frees++
}

func (f *FreeList) drop(ptr uint32) {
	n := f.used[ptr]
	delete(f.used, ptr)
	f.stats.InUse -= n
	f.release(ptr, n)
}

func (f *FreeList) withinLimit(want, giveBack uint32) bool {
	if f.cfg.Limit == 0 {
		return true
	}
	return uint64(f.stats.InUse)-uint64(giveBack)+uint64(want) <= uint64(f.cfg.Limit)
}

// ensure grows the memory until it is at least end bytes long.
func (f *FreeList) ensure(end uint64) error {
	size := uint64(f.mem.Size())
	if end <= size {
		return nil
	}
	if end > math.MaxUint32 {
		return errors.Overflow(errors.PhaseAlloc, end, math.MaxUint32)
	}
	pages := (end - size + stx.PageSize - 1) / stx.PageSize
	if _, err := f.mem.Grow(uint32(pages)); err != nil {
		return err
	}
	f.stats.Grown += uint32(pages)
	return nil
}

func (f *FreeList) spanAt(off uint32) (int, bool) {
	i, ok := slices.BinarySearchFunc(f.free, off, func(s span, off uint32) int {
		return cmp.Compare(s.off, off)
	})
	return i, ok
}

// take carves [p, p+n) out of free span i.
func (f *FreeList) take(i int, p, n uint32) {
	s := f.free[i]
	var rest []span
	if p > s.off {
		rest = append(rest, span{off: s.off, size: p - s.off})
	}
	if end := p + n; end < s.end() {
		rest = append(rest, span{off: end, size: s.end() - end})
	}
	f.free = slices.Replace(f.free, i, i+1, rest...)
}

// release returns [off, off+size) to the free spans, merging neighbours and
// folding a span that reaches the heap top back into the top.
func (f *FreeList) release(off, size uint32) {
	if size == 0 {
		return
	}
	i, _ := f.spanAt(off)
	if i > 0 && f.free[i-1].end() == off {
		i--
		f.free[i].size += size
	} else {
		f.free = slices.Insert(f.free, i, span{off: off, size: size})
	}
	if i+1 < len(f.free) && f.free[i].end() == f.free[i+1].off {
		f.free[i].size += f.free[i+1].size
		f.free = slices.Delete(f.free, i+1, i+2)
	}
	if last := len(f.free) - 1; last >= 0 && f.free[last].end() == f.top {
		f.top = f.free[last].off
		f.free = f.free[:last]
	}
}

func roundUp(v, align uint32) (uint32, bool) {
	r := (uint64(v) + uint64(align) - 1) &^ (uint64(align) - 1)
	if r > math.MaxUint32 {
		return 0, false
	}
	return uint32(r), true
}

var _ stx.Allocator = (*FreeList)(nil)
