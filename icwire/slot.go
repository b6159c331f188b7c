package icwire

import "sync/atomic"

// slotMask keeps a slot within the header's 24-bit reserved field (spec
// §4.4: "the low 24 bits of its slot").
const slotMask = 1<<24 - 1

// SlotAllocator hands out monotonic, wrapping, never-zero correlation
// ids for outgoing queries (spec §4.4: "counter, modulo 2^24, monotonic,
// skipping zero"). Safe for concurrent use.
type SlotAllocator struct {
	next atomic.Uint32
}

// Next returns the next slot id.
func (s *SlotAllocator) Next() uint32 {
	for {
		v := (s.next.Add(1)) & slotMask
		if v != 0 {
			return v
		}
		// wrapped onto zero; the Add above already consumed it, loop for
		// the next non-zero value.
	}
}
