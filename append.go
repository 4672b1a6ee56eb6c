package stx

import (
	"go.uber.org/zap"

	"github.com/wippyai/stx/errors"
)

// Append copies src, up to its first NUL byte, to the end of h.
//
// It returns the number of bytes appended. If the result would not fit, h is
// left untouched and Append returns minus the total length required together
// with a capacity_exceeded error; the handle never moves.
func (s *Space) Append(h Handle, src string) (int64, error) {
	_, n, err := s.appendString(errors.PhaseAppend, h, src, cstrlen(src), false)
	return n, err
}

// AppendN is Append limited to at most n bytes of src. A zero n appends
// nothing and returns 0; it is not a request for the whole of src.
func (s *Space) AppendN(h Handle, src string, n uint32) (int64, error) {
	_, inc, err := s.appendString(errors.PhaseAppend, h, src, min(cstrlen(src), uint64(n)), false)
	return inc, err
}

// AppendGrow appends src like Append but grows h when it runs out of room,
// to twice the total length needed. It returns the handle to use from now
// on; on failure that is h itself, unchanged.
func (s *Space) AppendGrow(h Handle, src string) (Handle, int64, error) {
	return s.appendString(errors.PhaseAppend, h, src, cstrlen(src), true)
}

// AppendGrowN is AppendGrow limited to at most n bytes of src.
func (s *Space) AppendGrowN(h Handle, src string, n uint32) (Handle, int64, error) {
	return s.appendString(errors.PhaseAppend, h, src, min(cstrlen(src), uint64(n)), true)
}

// appendString appends the first inc bytes of src to h.
func (s *Space) appendString(phase errors.Phase, h Handle, src string, inc uint64, grow bool) (Handle, int64, error) {
	hd, ok := s.lookup(h)
	if !ok {
		return h, 0, errors.InvalidHandle(phase, uint32(h))
	}

	capacity, length, err := hd.fields(s.mem)
	if err != nil {
		return h, 0, errors.Wrap(phase, errors.KindOutOfBounds, err, "read header")
	}

	total := uint64(length) + inc
	if total > MaxCapacity {
		return h, -int64(total), errors.Overflow(phase, total, MaxCapacity)
	}

	if total > uint64(capacity) {
		if !grow {
			return h, -int64(total), errors.CapacityExceeded(phase, uint32(h), uint32(total))
		}

		newCap := min(total*2, MaxCapacity)
		nh, err := s.Resize(h, uint32(newCap))
		if err != nil {
			Logger().Debug("append: grow failed",
				zap.Uint32("handle", uint32(h)),
				zap.Uint64("capacity", newCap),
				zap.Error(err))
			return h, 0, errors.Wrap(phase, errors.KindOf(err), err, "grow")
		}
		h = nh
		hd, _ = s.lookup(h)
	}

	end := uint32(h) + length
	if err := s.mem.Write(end, []byte(src[:inc])); err != nil {
		s.terminate("append", h, end)
		return h, 0, errors.Wrap(phase, errors.KindOutOfBounds, err, "copy source")
	}
	if err := s.mem.WriteU8(end+uint32(inc), 0); err != nil {
		return h, 0, errors.Wrap(phase, errors.KindOutOfBounds, err, "terminate")
	}
	if err := hd.set(s.mem, fieldLen, uint32(total)); err != nil {
		return h, 0, errors.Wrap(phase, errors.KindOutOfBounds, err, "update length")
	}
	return h, int64(inc), nil
}
