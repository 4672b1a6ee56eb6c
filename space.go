package stx

// Space owns the strings allocated from one Memory through one Allocator.
type Space struct {
	mem   Memory
	alloc Allocator
	align uint32
}

// Option configures a Space.
type Option func(*Space)

// WithAlign fixes the alignment requested from the allocator. By default each
// block is aligned to its header size.
func WithAlign(align uint32) Option {
	return func(s *Space) {
		s.align = align
	}
}

// NewSpace creates a Space over mem whose blocks come from alloc.
func NewSpace(mem Memory, alloc Allocator, opts ...Option) *Space {
	s := &Space{mem: mem, alloc: alloc}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Memory returns the linear memory strings live in.
func (s *Space) Memory() Memory {
	return s.mem
}

// Allocator returns the allocator blocks come from.
func (s *Space) Allocator() Allocator {
	return s.alloc
}

func (s *Space) alignFor(w Width) uint32 {
	if s.align != 0 {
		return s.align
	}
	return w.headSize()
}

// lookup validates h and locates its header.
func (s *Space) lookup(h Handle) (header, bool) {
	if s == nil || s.mem == nil || h < attrSize {
		return header{}, false
	}
	cookie, err := s.mem.ReadU8(uint32(h) - 2)
	if err != nil || cookie != Cookie {
		return header{}, false
	}
	flags, err := s.mem.ReadU8(uint32(h) - 1)
	if err != nil {
		return header{}, false
	}
	w := Width(flags & widthMask)
	if !w.valid() || uint32(h)-attrSize < w.headSize() {
		return header{}, false
	}
	return headerAt(uint32(h)-attrSize-w.headSize(), w), true
}

// Check reports whether h refers to a live string of this Space.
// The check is a sanity test against foreign and freed handles, not a guard
// against deliberate tampering.
func (s *Space) Check(h Handle) bool {
	_, ok := s.lookup(h)
	return ok
}

// Cap returns the capacity of h, or 0 if h is invalid.
func (s *Space) Cap(h Handle) uint32 {
	return s.field(h, fieldCap)
}

// Len returns the length of h, or 0 if h is invalid.
func (s *Space) Len(h Handle) uint32 {
	return s.field(h, fieldLen)
}

// Spc returns the bytes that can still be appended without growing, or 0 if h
// is invalid.
func (s *Space) Spc(h Handle) uint32 {
	hd, ok := s.lookup(h)
	if !ok {
		return 0
	}
	capacity, length, err := hd.fields(s.mem)
	if err != nil || length > capacity {
		return 0
	}
	return capacity - length
}

func (s *Space) field(h Handle, f field) uint32 {
	hd, ok := s.lookup(h)
	if !ok {
		return 0
	}
	v, err := hd.get(s.mem, f)
	if err != nil {
		return 0
	}
	return v
}

// Bytes returns the content of h as a view into linear memory. The view is
// only valid until the next call that mutates h or grows the memory. It
// returns nil for an invalid handle.
func (s *Space) Bytes(h Handle) []byte {
	hd, ok := s.lookup(h)
	if !ok {
		return nil
	}
	length, err := hd.get(s.mem, fieldLen)
	if err != nil {
		return nil
	}
	b, err := s.mem.Read(uint32(h), length)
	if err != nil {
		return nil
	}
	return b
}

// String returns a copy of the content of h, or "" if h is invalid.
func (s *Space) String(h Handle) string {
	return string(s.Bytes(h))
}
