package ic

import (
	"testing"

	"github.com/intersec-oss/iop/icwire"
)

func slotOf(m *outMsg) uint32 { return m.header.Slot }

func TestSendQueueHighJumpsAheadOfNormalAndLow(t *testing.T) {
	var q sendQueue
	q.push(&outMsg{header: icwire.Header{Slot: 1}}, icwire.PriorityLow)
	q.push(&outMsg{header: icwire.Header{Slot: 2}}, icwire.PriorityNormal)
	q.push(&outMsg{header: icwire.Header{Slot: 3}}, icwire.PriorityHigh)

	if got := slotOf(q.pop()); got != 3 {
		t.Fatalf("want HIGH (slot 3) first, got %d", got)
	}
	if got := slotOf(q.pop()); got != 2 {
		t.Fatalf("want NORMAL (slot 2) second, got %d", got)
	}
	if got := slotOf(q.pop()); got != 1 {
		t.Fatalf("want LOW (slot 1) last, got %d", got)
	}
	if q.pop() != nil {
		t.Fatalf("expected empty queue")
	}
}

func TestSendQueueNormalStaysFIFOAmongItself(t *testing.T) {
	var q sendQueue
	q.push(&outMsg{header: icwire.Header{Slot: 1}}, icwire.PriorityNormal)
	q.push(&outMsg{header: icwire.Header{Slot: 2}}, icwire.PriorityNormal)
	q.push(&outMsg{header: icwire.Header{Slot: 3}}, icwire.PriorityNormal)

	for _, want := range []uint32{1, 2, 3} {
		if got := slotOf(q.pop()); got != want {
			t.Fatalf("got slot %d, want %d", got, want)
		}
	}
}

func TestSendQueueHighAfterNormalStillLeapfrogs(t *testing.T) {
	var q sendQueue
	q.push(&outMsg{header: icwire.Header{Slot: 1}}, icwire.PriorityNormal)
	q.push(&outMsg{header: icwire.Header{Slot: 2}}, icwire.PriorityHigh)

	if got := slotOf(q.pop()); got != 2 {
		t.Fatalf("want HIGH first even though NORMAL was queued earlier, got %d", got)
	}
	if got := slotOf(q.pop()); got != 1 {
		t.Fatalf("got %d, want 1", got)
	}
}

func TestSendQueueCancelBySlot(t *testing.T) {
	var q sendQueue
	q.push(&outMsg{header: icwire.Header{Slot: 1}}, icwire.PriorityNormal)
	q.push(&outMsg{header: icwire.Header{Slot: 2}}, icwire.PriorityNormal)

	if !q.cancelBySlot(1) {
		t.Fatalf("expected to find and cancel slot 1")
	}
	if q.cancelBySlot(1) {
		t.Fatalf("canceling an already-removed slot must be a no-op")
	}
	if got := slotOf(q.pop()); got != 2 {
		t.Fatalf("got %d, want 2", got)
	}
	if !q.empty() {
		t.Fatalf("expected queue to be empty")
	}
}
