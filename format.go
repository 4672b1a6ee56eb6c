package stx

import (
	"fmt"

	"github.com/wippyai/stx/errors"
)

// tailWriter receives fmt output for the free tail of a string. It stores at
// most room bytes and counts everything it is offered, so the caller learns
// the full rendered length even when the output did not fit.
type tailWriter struct {
	mem    Memory
	off    uint32
	room   uint32
	wanted uint64
}

func (w *tailWriter) Write(p []byte) (int, error) {
	w.wanted += uint64(len(p))
	if w.room == 0 {
		return len(p), nil
	}
	chunk := p
	if uint64(len(chunk)) > uint64(w.room) {
		chunk = chunk[:w.room]
	}
	if err := w.mem.Write(w.off, chunk); err != nil {
		return 0, err
	}
	w.off += uint32(len(chunk))
	w.room -= uint32(len(chunk))
	return len(p), nil
}

// AppendFormat renders format and args with fmt directly into the free space
// of h. It never grows h.
//
// On success it returns the number of bytes appended. When the rendered text
// does not fit, h is left unchanged and the result is minus the total length
// the string would need, with a capacity_exceeded error. A string with no
// free space fails before anything is rendered.
func (s *Space) AppendFormat(h Handle, format string, args ...any) (int64, error) {
	hd, ok := s.lookup(h)
	if !ok {
		return 0, errors.InvalidHandle(errors.PhaseFormat, uint32(h))
	}

	capacity, length, err := hd.fields(s.mem)
	if err != nil {
		return 0, errors.Wrap(errors.PhaseFormat, errors.KindOutOfBounds, err, "read header")
	}

	if length > capacity {
		return 0, errors.New(errors.PhaseFormat, errors.KindInvalidHandle).
			Handle(uint32(h)).
			Detail("length %d exceeds capacity %d", length, capacity).
			Build()
	}

	spc := capacity - length
	if spc == 0 {
		return 0, errors.New(errors.PhaseFormat, errors.KindCapacityExceeded).
			Handle(uint32(h)).
			Detail("no space left").
			Build()
	}

	end := uint32(h) + length
	w := &tailWriter{mem: s.mem, off: end, room: spc}
	if _, err := fmt.Fprintf(w, format, args...); err != nil {
		s.terminate("format", h, end)
		return 0, errors.Wrap(errors.PhaseFormat, errors.KindEncoding, err, "render")
	}

	if w.wanted > uint64(spc) {
		s.terminate("format", h, end)
		need := uint64(length) + w.wanted
		if need > MaxCapacity {
			return -int64(need), errors.Overflow(errors.PhaseFormat, need, MaxCapacity)
		}
		return -int64(need), errors.CapacityExceeded(errors.PhaseFormat, uint32(h), uint32(need))
	}

	n := uint32(w.wanted)
	if err := s.mem.WriteU8(end+n, 0); err != nil {
		return 0, errors.Wrap(errors.PhaseFormat, errors.KindOutOfBounds, err, "terminate")
	}
	if err := hd.set(s.mem, fieldLen, length+n); err != nil {
		return 0, errors.Wrap(errors.PhaseFormat, errors.KindOutOfBounds, err, "update length")
	}
	return int64(n), nil
}
