package memory

import (
	"encoding/binary"

	"github.com/wippyai/stx"
	"github.com/wippyai/stx/errors"
)

// MaxPages is the largest page count whose byte size still fits a uint32.
const MaxPages = 1<<16 - 1

// Slice is linear memory backed by a Go byte slice.
type Slice struct {
	buf      []byte
	maxPages uint32
}

// NewSlice creates a memory of pages pages that may grow to maxPages.
// A maxPages of 0, or one above MaxPages, means MaxPages.
func NewSlice(pages, maxPages uint32) *Slice {
	if maxPages == 0 || maxPages > MaxPages {
		maxPages = MaxPages
	}
	if pages > maxPages {
		pages = maxPages
	}
	return &Slice{
		buf:      make([]byte, int(pages)*stx.PageSize),
		maxPages: maxPages,
	}
}

// Size returns the memory size in bytes.
func (m *Slice) Size() uint32 {
	return uint32(len(m.buf))
}

// Grow extends the memory by deltaPages zeroed pages and returns the previous
// size in pages.
func (m *Slice) Grow(deltaPages uint32) (uint32, error) {
	prev := uint32(len(m.buf) / stx.PageSize)
	if uint64(prev)+uint64(deltaPages) > uint64(m.maxPages) {
		return prev, errors.New(errors.PhaseMemory, errors.KindAllocation).
			Detail("grow by %d pages exceeds limit of %d pages", deltaPages, m.maxPages).
			Build()
	}
	if deltaPages > 0 {
		m.buf = append(m.buf, make([]byte, int(deltaPages)*stx.PageSize)...)
	}
	return prev, nil
}

func (m *Slice) span(offset, length uint32) ([]byte, error) {
	end := uint64(offset) + uint64(length)
	if end > uint64(len(m.buf)) {
		return nil, errors.OutOfBounds(errors.PhaseMemory, offset, length)
	}
	return m.buf[offset:end:end], nil
}

// Read returns a view of length bytes at offset. The view aliases the memory
// until the next Grow.
func (m *Slice) Read(offset uint32, length uint32) ([]byte, error) {
	return m.span(offset, length)
}

// Write copies data to offset.
func (m *Slice) Write(offset uint32, data []byte) error {
	if uint64(len(data)) > uint64(^uint32(0)) {
		return errors.OutOfBounds(errors.PhaseMemory, offset, ^uint32(0))
	}
	b, err := m.span(offset, uint32(len(data)))
	if err != nil {
		return err
	}
	copy(b, data)
	return nil
}

// ReadU8 reads an unsigned 8-bit value.
func (m *Slice) ReadU8(offset uint32) (uint8, error) {
	b, err := m.span(offset, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadU16 reads an unsigned 16-bit little-endian value.
func (m *Slice) ReadU16(offset uint32) (uint16, error) {
	b, err := m.span(offset, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// ReadU32 reads an unsigned 32-bit little-endian value.
func (m *Slice) ReadU32(offset uint32) (uint32, error) {
	b, err := m.span(offset, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadU64 reads an unsigned 64-bit little-endian value.
func (m *Slice) ReadU64(offset uint32) (uint64, error) {
	b, err := m.span(offset, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// WriteU8 writes an unsigned 8-bit value.
func (m *Slice) WriteU8(offset uint32, value uint8) error {
	b, err := m.span(offset, 1)
	if err != nil {
		return err
	}
	b[0] = value
	return nil
}

// WriteU16 writes an unsigned 16-bit little-endian value.
func (m *Slice) WriteU16(offset uint32, value uint16) error {
	b, err := m.span(offset, 2)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(b, value)
	return nil
}

// WriteU32 writes an unsigned 32-bit little-endian value.
func (m *Slice) WriteU32(offset uint32, value uint32) error {
	b, err := m.span(offset, 4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b, value)
	return nil
}

// WriteU64 writes an unsigned 64-bit little-endian value.
func (m *Slice) WriteU64(offset uint32, value uint64) error {
	b, err := m.span(offset, 8)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(b, value)
	return nil
}

var _ stx.LinearMemory = (*Slice)(nil)
