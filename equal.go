package stx

import "bytes"

// Equal reports whether a and b are valid and hold identical bytes.
func (s *Space) Equal(a, b Handle) bool {
	ha, ok := s.lookup(a)
	if !ok {
		return false
	}
	hb, ok := s.lookup(b)
	if !ok {
		return false
	}

	la, err := ha.get(s.mem, fieldLen)
	if err != nil {
		return false
	}
	lb, err := hb.get(s.mem, fieldLen)
	if err != nil || la != lb {
		return false
	}

	da, err := s.mem.Read(uint32(a), la)
	if err != nil {
		return false
	}
	db, err := s.mem.Read(uint32(b), lb)
	if err != nil {
		return false
	}
	return bytes.Equal(da, db)
}
