package stx

import (
	"fmt"
	"io"
)

// Info is a snapshot of a string's header and content.
type Info struct {
	Data   string
	Handle Handle
	Cap    uint32
	Len    uint32
	Width  Width
	Cookie uint8
	Flags  uint8
}

func (i Info) String() string {
	return fmt.Sprintf("cap:%d len:%d cookie:%d flags:%d data:'%s'", i.Cap, i.Len, i.Cookie, i.Flags, i.Data)
}

// Inspect reads the header and content of h. ok is false for an invalid handle.
func (s *Space) Inspect(h Handle) (info Info, ok bool) {
	hd, ok := s.lookup(h)
	if !ok {
		return Info{}, false
	}
	capacity, length, err := hd.fields(s.mem)
	if err != nil {
		return Info{}, false
	}
	flags, err := s.mem.ReadU8(hd.flagsAddr())
	if err != nil {
		return Info{}, false
	}
	return Info{
		Data:   s.String(h),
		Handle: h,
		Cap:    capacity,
		Len:    length,
		Width:  hd.width,
		Cookie: Cookie,
		Flags:  flags,
	}, true
}

// Show writes a one-line diagnostic dump of h to w. Invalid handles print nothing.
func (s *Space) Show(w io.Writer, h Handle) {
	info, ok := s.Inspect(h)
	if !ok {
		return
	}
	fmt.Fprintln(w, info)
}
