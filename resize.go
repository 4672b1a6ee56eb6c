package stx

import (
	"go.uber.org/zap"

	"github.com/wippyai/stx/errors"
)

// Resize changes the capacity of h and returns the handle to use from now on.
//
// Crossing WideThreshold in either direction moves the string to a block with
// the other header width. Shrinking below the current length truncates the
// content to newCap bytes. On failure the original handle is returned and the
// string is left as it was.
func (s *Space) Resize(h Handle, newCap uint32) (Handle, error) {
	hd, ok := s.lookup(h)
	if !ok {
		return h, errors.InvalidHandle(errors.PhaseResize, uint32(h))
	}
	if newCap > MaxCapacity {
		return h, errors.Overflow(errors.PhaseResize, uint64(newCap), MaxCapacity)
	}

	capacity, length, err := hd.fields(s.mem)
	if err != nil {
		return h, errors.Wrap(errors.PhaseResize, errors.KindOutOfBounds, err, "read header")
	}
	if newCap == capacity {
		return h, nil
	}

	var next header
	if w := widthFor(newCap); w == hd.width {
		next, err = s.reallocate(hd, capacity, newCap)
	} else {
		next, err = s.transition(hd, length, newCap)
	}
	if err != nil {
		return h, err
	}

	if newCap < length {
		Logger().Debug("resize: truncated",
			zap.Uint32("handle", uint32(next.handle())),
			zap.Uint32("length", length),
			zap.Uint32("capacity", newCap))
		if err := next.set(s.mem, fieldLen, newCap); err != nil {
			return h, errors.Wrap(errors.PhaseResize, errors.KindOutOfBounds, err, "clamp length")
		}
	}

	if err := next.set(s.mem, fieldCap, newCap); err != nil {
		return h, errors.Wrap(errors.PhaseResize, errors.KindOutOfBounds, err, "update capacity")
	}
	if err := s.mem.WriteU8(next.data()+newCap, 0); err != nil {
		return h, errors.Wrap(errors.PhaseResize, errors.KindOutOfBounds, err, "write sentinel")
	}
	return next.handle(), nil
}

// reallocate resizes the block of hd through the allocator, which may move
// it. The cookie is cleared for the duration so a block left behind by a move
// no longer validates.
func (s *Space) reallocate(hd header, capacity, newCap uint32) (header, error) {
	oldSize := blockSize(hd.width, capacity)
	newSize := blockSize(hd.width, newCap)
	align := s.alignFor(hd.width)

	if err := s.mem.WriteU8(hd.cookieAddr(), 0); err != nil {
		return header{}, errors.Wrap(errors.PhaseResize, errors.KindOutOfBounds, err, "clear cookie")
	}

	base, err := s.alloc.Realloc(hd.base, oldSize, align, newSize)
	if err != nil || base == 0 {
		if werr := s.mem.WriteU8(hd.cookieAddr(), Cookie); werr != nil {
			Logger().Warn("resize: failed to restore cookie",
				zap.Uint32("handle", uint32(hd.handle())),
				zap.Error(werr))
		}
		return header{}, errors.New(errors.PhaseResize, errors.KindAllocation).
			Handle(uint32(hd.handle())).
			Cause(err).
			Detail("realloc %d -> %d bytes", oldSize, newSize).
			Build()
	}

	next := headerAt(base, hd.width)
	if err := s.mem.WriteU8(next.cookieAddr(), Cookie); err != nil {
		return header{}, errors.Wrap(errors.PhaseResize, errors.KindOutOfBounds, err, "restore cookie")
	}
	if base != hd.base {
		Logger().Debug("resize: moved",
			zap.Uint32("old", uint32(hd.handle())),
			zap.Uint32("new", uint32(next.handle())))
	}
	return next, nil
}

// transition moves the string of hd to a fresh block whose header width suits
// newCap, then releases the old block.
func (s *Space) transition(hd header, length, newCap uint32) (header, error) {
	w := widthFor(newCap)
	next, err := s.allocate(errors.PhaseResize, w, newCap)
	if err != nil {
		return header{}, err
	}

	keep := min(length, newCap)
	if err := s.moveContent(hd, next, keep); err != nil {
		s.alloc.Free(next.base, blockSize(w, newCap), s.alignFor(w))
		return header{}, errors.Wrap(errors.PhaseResize, errors.KindOutOfBounds, err, "width transition")
	}

	Logger().Debug("resize: width transition",
		zap.Stringer("from", hd.width),
		zap.Stringer("to", w),
		zap.Uint32("old", uint32(hd.handle())),
		zap.Uint32("new", uint32(next.handle())))

	s.release(hd)
	return next, nil
}

// moveContent copies keep content bytes and the flags of src into the freshly
// allocated block dst, leaving dst a valid string of capacity and length keep.
func (s *Space) moveContent(src, dst header, keep uint32) error {
	flags, err := s.mem.ReadU8(src.flagsAddr())
	if err != nil {
		return err
	}
	content, err := s.mem.Read(src.data(), keep)
	if err != nil {
		return err
	}
	if err := s.mem.Write(dst.data(), content); err != nil {
		return err
	}
	return dst.stamp(s.mem, keep, keep, flags)
}
