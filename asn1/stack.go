package asn1

// lenStack is the "growable integer vector" of spec §4.2's two-pass
// packer: the size pass appends each visited value's computed content
// length in visitation order, reserving a slot before descending into a
// SEQUENCE/CHOICE and patching it afterward; the emit pass consumes the
// same vector in the same order, and its read index must end exactly at
// the stack's top (spec §8 "length monotonicity").
type lenStack struct {
	entries []int
	rpos    int // emit-pass read cursor
}

func (s *lenStack) reserve() int {
	i := len(s.entries)
	s.entries = append(s.entries, 0)
	return i
}

func (s *lenStack) patch(i, v int) { s.entries[i] = v }

func (s *lenStack) push(v int) { s.entries = append(s.entries, v) }

func (s *lenStack) next() int {
	v := s.entries[s.rpos]
	s.rpos++
	return v
}

func (s *lenStack) done() bool { return s.rpos == len(s.entries) }
