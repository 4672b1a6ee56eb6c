package stx

import (
	"errors"
	"math"
	"strings"
)

// Width identifies a header shape. Its value is log2 of the header size and is
// stored in the low bits of the flags byte.
type Width uint8

const (
	WidthNarrow Width = 1 // [cap u8][len u8]
	WidthWide   Width = 3 // [cap u32][len u32]
)

func (w Width) String() string {
	switch w {
	case WidthNarrow:
		return "narrow"
	case WidthWide:
		return "wide"
	default:
		return "unknown"
	}
}

const (
	// Cookie is the sentinel stored two bytes before the data of every live string.
	Cookie = 0xAA

	// WideThreshold is the smallest capacity that needs a wide header.
	WideThreshold = 256

	// MaxCapacity is the largest capacity whose block still fits 32-bit addressing.
	MaxCapacity = math.MaxUint32 - (1 << WidthWide) - attrSize - 1

	attrSize  = 2 // cookie + flags
	widthBits = 2
	widthMask = 1<<widthBits - 1
)

var errUnknownWidth = errors.New("unknown header width")

// field selects one of the two header fields.
type field uint32

const (
	fieldCap field = iota
	fieldLen
)

func widthFor(capacity uint32) Width {
	if capacity >= WideThreshold {
		return WidthWide
	}
	return WidthNarrow
}

func (w Width) valid() bool {
	return w == WidthNarrow || w == WidthWide
}

func (w Width) headSize() uint32 {
	return 1 << w
}

// blockSize is the allocation size of a string with the given width and capacity.
func blockSize(w Width, capacity uint32) uint32 {
	return w.headSize() + attrSize + capacity + 1
}

// header locates a string's metadata inside linear memory.
type header struct {
	base  uint32 // start of the allocation
	width Width
}

func headerAt(base uint32, w Width) header {
	return header{base: base, width: w}
}

func (hd header) cookieAddr() uint32 { return hd.base + hd.width.headSize() }
func (hd header) flagsAddr() uint32  { return hd.cookieAddr() + 1 }
func (hd header) data() uint32       { return hd.cookieAddr() + attrSize }
func (hd header) handle() Handle     { return Handle(hd.data()) }

// scrubSize is the number of bytes cleared before a block is released.
func (hd header) scrubSize() uint32 { return hd.width.headSize() + attrSize }

func (hd header) get(mem Memory, f field) (uint32, error) {
	switch hd.width {
	case WidthNarrow:
		v, err := mem.ReadU8(hd.base + uint32(f))
		return uint32(v), err
	case WidthWide:
		return mem.ReadU32(hd.base + 4*uint32(f))
	default:
		return 0, errUnknownWidth
	}
}

func (hd header) set(mem Memory, f field, v uint32) error {
	switch hd.width {
	case WidthNarrow:
		return mem.WriteU8(hd.base+uint32(f), uint8(v))
	case WidthWide:
		return mem.WriteU32(hd.base+4*uint32(f), v)
	default:
		return errUnknownWidth
	}
}

// fields reads capacity and length together.
func (hd header) fields(mem Memory) (capacity, length uint32, err error) {
	if capacity, err = hd.get(mem, fieldCap); err != nil {
		return 0, 0, err
	}
	if length, err = hd.get(mem, fieldLen); err != nil {
		return 0, 0, err
	}
	return capacity, length, nil
}

// stamp initializes a freshly allocated block: both fields, the validity
// record, and the terminator and sentinel bytes.
func (hd header) stamp(mem Memory, capacity, length uint32, flags uint8) error {
	if err := hd.set(mem, fieldCap, capacity); err != nil {
		return err
	}
	if err := hd.set(mem, fieldLen, length); err != nil {
		return err
	}
	if err := mem.WriteU8(hd.cookieAddr(), Cookie); err != nil {
		return err
	}
	flags = flags&^widthMask | uint8(hd.width)
	if err := mem.WriteU8(hd.flagsAddr(), flags); err != nil {
		return err
	}
	if err := mem.WriteU8(hd.data()+length, 0); err != nil {
		return err
	}
	return mem.WriteU8(hd.data()+capacity, 0)
}

// cstrlen returns the length of s up to its first NUL byte.
func cstrlen(s string) uint64 {
	if i := strings.IndexByte(s, 0); i >= 0 {
		return uint64(i)
	}
	return uint64(len(s))
}
