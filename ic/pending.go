package ic

import (
	"time"

	"github.com/intersec-oss/iop/internal/status"
)

// Continuation is invoked exactly once per pending query, on the owning
// channel's loop goroutine, with the terminal status code and the reply
// payload as received (nil when the query timed out, was canceled, or
// was drained on close).
type Continuation func(code status.Code, reply []byte)

// pendingEntry is spec §4.5.2's slot -> msg table entry.
type pendingEntry struct {
	slot  uint32
	cont  Continuation
	timer *time.Timer
}

// pendingTable is the per-channel map keyed by the 24-bit slot (spec
// §4.5.2). Grounded on transport/collect.go's gc.streams map idiom
// (string-keyed session table with add/remove/drain-all operations),
// adapted to a uint32-keyed table with no teacher analogue for the
// request/reply correlation itself - that part is new, from spec §4.5.2
// directly.
type pendingTable struct {
	entries map[uint32]*pendingEntry
}

func newPendingTable() *pendingTable {
	return &pendingTable{entries: make(map[uint32]*pendingEntry)}
}

// insert registers cont under slot, arming a per-message timer that
// calls onTimeout(slot) if the reply doesn't arrive first (spec §4.5.3).
func (p *pendingTable) insert(slot uint32, timeout time.Duration, cont Continuation, onTimeout func(slot uint32)) *pendingEntry {
	e := &pendingEntry{slot: slot, cont: cont}
	if timeout > 0 {
		e.timer = time.AfterFunc(timeout, func() { onTimeout(slot) })
	}
	p.entries[slot] = e
	return e
}

// detach removes and returns slot's entry, stopping its timer. ok is
// false if no such slot is pending (e.g. a stale or duplicate reply).
func (p *pendingTable) detach(slot uint32) (e *pendingEntry, ok bool) {
	e, ok = p.entries[slot]
	if !ok {
		return nil, false
	}
	delete(p.entries, slot)
	if e.timer != nil {
		e.timer.Stop()
	}
	return e, true
}

// cancel implements spec §4.5.5 for a pending query: detach it and
// invoke its continuation with Canceled exactly once. Returns false if
// slot wasn't pending (already replied, timed out, or canceled).
func (p *pendingTable) cancel(slot uint32) bool {
	e, ok := p.detach(slot)
	if !ok {
		return false
	}
	e.cont(status.Canceled, nil)
	return true
}

// drainAll implements the channel-close half of spec §4.5.2: every
// pending continuation is invoked with code (Abort on a plain close,
// ProxyError when draining for a failed proxy target, per the caller)
// and the table emptied.
func (p *pendingTable) drainAll(code status.Code) {
	for slot, e := range p.entries {
		delete(p.entries, slot)
		if e.timer != nil {
			e.timer.Stop()
		}
		e.cont(code, nil)
	}
}

func (p *pendingTable) len() int { return len(p.entries) }
