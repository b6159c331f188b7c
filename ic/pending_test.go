package ic

import (
	"testing"
	"time"

	"github.com/intersec-oss/iop/internal/status"
)

func TestPendingTableInsertDetach(t *testing.T) {
	p := newPendingTable()
	var gotCode status.Code
	p.insert(1, 0, func(code status.Code, reply []byte) { gotCode = code }, nil)
	if p.len() != 1 {
		t.Fatalf("want 1 pending entry, got %d", p.len())
	}
	e, ok := p.detach(1)
	if !ok || e.slot != 1 {
		t.Fatalf("detach(1) = %+v, %v", e, ok)
	}
	if p.len() != 0 {
		t.Fatalf("want empty table after detach")
	}
	if _, ok := p.detach(1); ok {
		t.Fatalf("double detach must report not-found")
	}
	_ = gotCode
}

func TestPendingTableCancelInvokesContinuationOnce(t *testing.T) {
	p := newPendingTable()
	calls := 0
	p.insert(5, 0, func(code status.Code, reply []byte) {
		calls++
		if code != status.Canceled {
			t.Errorf("want Canceled, got %v", code)
		}
	}, nil)
	if !p.cancel(5) {
		t.Fatalf("expected cancel to find slot 5")
	}
	if p.cancel(5) {
		t.Fatalf("second cancel on the same slot must be a no-op")
	}
	if calls != 1 {
		t.Fatalf("continuation invoked %d times, want 1", calls)
	}
}

func TestPendingTableDrainAll(t *testing.T) {
	p := newPendingTable()
	var codes []status.Code
	for slot := uint32(1); slot <= 3; slot++ {
		p.insert(slot, 0, func(code status.Code, reply []byte) { codes = append(codes, code) }, nil)
	}
	p.drainAll(status.Abort)
	if p.len() != 0 {
		t.Fatalf("want empty table after drainAll")
	}
	if len(codes) != 3 {
		t.Fatalf("want 3 continuations invoked, got %d", len(codes))
	}
	for _, c := range codes {
		if c != status.Abort {
			t.Errorf("got %v, want Abort", c)
		}
	}
}

func TestPendingTableTimeout(t *testing.T) {
	p := newPendingTable()
	done := make(chan status.Code, 1)
	p.insert(9, 10*time.Millisecond, func(code status.Code, reply []byte) { done <- code }, func(slot uint32) {
		if e, ok := p.detach(slot); ok {
			e.cont(status.TimedOut, nil)
		}
	})
	select {
	case code := <-done:
		if code != status.TimedOut {
			t.Fatalf("got %v, want TimedOut", code)
		}
	case <-time.After(time.Second):
		t.Fatalf("timeout callback never fired")
	}
}
