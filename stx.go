package stx

// PageSize is the granularity in which linear memory grows.
const PageSize = 65536

// Handle is the address of the first data byte of a string in linear memory.
// The zero Handle is the null handle.
type Handle uint32

// Memory represents linear memory
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
	ReadU8(offset uint32) (uint8, error)
	ReadU16(offset uint32) (uint16, error)
	ReadU32(offset uint32) (uint32, error)
	ReadU64(offset uint32) (uint64, error)
	WriteU8(offset uint32, value uint8) error
	WriteU16(offset uint32, value uint16) error
	WriteU32(offset uint32, value uint32) error
	WriteU64(offset uint32, value uint64) error
}

// MemorySizer provides the current size of linear memory in bytes.
type MemorySizer interface {
	Size() uint32
}

// MemoryGrower grows linear memory by whole pages and returns the previous
// size in pages.
type MemoryGrower interface {
	Grow(deltaPages uint32) (uint32, error)
}

// LinearMemory is a sized, growable Memory. Allocators that manage their own
// heap need all three.
type LinearMemory interface {
	Memory
	MemorySizer
	MemoryGrower
}

// Allocator allocates blocks in linear memory.
// A zero pointer or a non-nil error reports allocation failure; on a failed
// Realloc the original block is left intact.
type Allocator interface {
	Alloc(size, align uint32) (uint32, error)
	Realloc(ptr, oldSize, align, newSize uint32) (uint32, error)
	Free(ptr, size, align uint32)
}
