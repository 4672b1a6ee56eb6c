package stx

import (
	"go.uber.org/zap"

	"github.com/wippyai/stx/errors"
)

// New allocates an empty string able to hold capacity bytes.
func (s *Space) New(capacity uint32) (Handle, error) {
	if capacity > MaxCapacity {
		return 0, errors.Overflow(errors.PhaseNew, uint64(capacity), MaxCapacity)
	}

	w := widthFor(capacity)
	hd, err := s.allocate(errors.PhaseNew, w, capacity)
	if err != nil {
		return 0, err
	}

	if err := hd.stamp(s.mem, capacity, 0, 0); err != nil {
		s.alloc.Free(hd.base, blockSize(w, capacity), s.alignFor(w))
		return 0, errors.Wrap(errors.PhaseNew, errors.KindOutOfBounds, err, "initialize header")
	}
	return hd.handle(), nil
}

// From allocates a string holding exactly text, up to its first NUL byte.
func (s *Space) From(text string) (Handle, error) {
	n := cstrlen(text)
	if n > MaxCapacity {
		return 0, errors.Overflow(errors.PhaseNew, n, MaxCapacity)
	}

	h, err := s.New(uint32(n))
	if err != nil {
		return 0, err
	}
	if _, _, err := s.appendString(errors.PhaseNew, h, text, n, false); err != nil {
		s.Free(h)
		return 0, err
	}
	return h, nil
}

// Dup returns a compact copy of h: the duplicate keeps the header width of h
// and its capacity equals its length.
func (s *Space) Dup(h Handle) (Handle, error) {
	hd, ok := s.lookup(h)
	if !ok {
		return 0, errors.InvalidHandle(errors.PhaseDup, uint32(h))
	}

	length, err := hd.get(s.mem, fieldLen)
	if err != nil {
		return 0, errors.Wrap(errors.PhaseDup, errors.KindOutOfBounds, err, "read header")
	}

	dup, err := s.allocate(errors.PhaseDup, hd.width, length)
	if err != nil {
		return 0, err
	}

	if err := s.copyBlock(hd, dup, length); err != nil {
		s.alloc.Free(dup.base, blockSize(dup.width, length), s.alignFor(dup.width))
		return 0, errors.Wrap(errors.PhaseDup, errors.KindOutOfBounds, err, "copy block")
	}
	return dup.handle(), nil
}

// copyBlock copies header, validity record and length bytes of content from
// src to dst, then shrinks dst's capacity to length.
func (s *Space) copyBlock(src, dst header, length uint32) error {
	raw, err := s.mem.Read(src.base, src.data()-src.base+length)
	if err != nil {
		return err
	}
	if err := s.mem.Write(dst.base, raw); err != nil {
		return err
	}
	if err := dst.set(s.mem, fieldCap, length); err != nil {
		return err
	}
	return s.mem.WriteU8(dst.data()+length, 0)
}

// Free scrubs the header of h and releases its block. Invalid handles are
// ignored. h must not be used afterwards.
func (s *Space) Free(h Handle) {
	hd, ok := s.lookup(h)
	if !ok {
		return
	}
	s.release(hd)
}

func (s *Space) release(hd header) {
	capacity, err := hd.get(s.mem, fieldCap)
	if err != nil {
		Logger().Warn("free: unreadable header",
			zap.Uint32("handle", uint32(hd.handle())),
			zap.Error(err))
		return
	}

	if err := s.mem.Write(hd.base, make([]byte, hd.scrubSize())); err != nil {
		Logger().Warn("free: failed to scrub header",
			zap.Uint32("handle", uint32(hd.handle())),
			zap.Error(err))
	}
	s.alloc.Free(hd.base, blockSize(hd.width, capacity), s.alignFor(hd.width))
}

// Reset empties h without releasing or shrinking its storage.
func (s *Space) Reset(h Handle) {
	hd, ok := s.lookup(h)
	if !ok {
		return
	}
	if err := hd.set(s.mem, fieldLen, 0); err != nil {
		Logger().Warn("reset: failed to clear length",
			zap.Uint32("handle", uint32(h)),
			zap.Error(err))
		return
	}
	s.terminate("reset", h, uint32(h))
}

// terminate writes a NUL at addr inside h, logging a failure.
func (s *Space) terminate(op string, h Handle, addr uint32) {
	if err := s.mem.WriteU8(addr, 0); err != nil {
		Logger().Warn(op+": failed to write terminator",
			zap.Uint32("handle", uint32(h)),
			zap.Uint32("offset", addr),
			zap.Error(err))
	}
}

// allocate obtains a block for a string of width w and the given capacity.
func (s *Space) allocate(phase errors.Phase, w Width, capacity uint32) (header, error) {
	size := blockSize(w, capacity)
	align := s.alignFor(w)
	base, err := s.alloc.Alloc(size, align)
	if err != nil || base == 0 {
		e := errors.AllocationFailed(phase, size, align)
		e.Cause = err
		return header{}, e
	}
	return headerAt(base, w), nil
}
