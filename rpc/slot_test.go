package rpc

import "testing"

func TestSlotHTTPBitRoundTrips(t *testing.T) {
	s := NewHTTPSlot()
	if !s.IsHTTP() {
		t.Fatalf("NewHTTPSlot must set the HTTP bit")
	}
	s2 := NewICSlot()
	if s2.IsHTTP() {
		t.Fatalf("NewICSlot must not set the HTTP bit")
	}
}

func TestSlotUniqueness(t *testing.T) {
	seen := make(map[Slot]bool)
	for i := 0; i < 1000; i++ {
		s := NewICSlot()
		if seen[s] {
			t.Fatalf("duplicate slot %d", s)
		}
		seen[s] = true
	}
}

func TestRegistryLookup(t *testing.T) {
	reg := NewRegistry()
	cb := &Cbe{Kind: Normal}
	reg.Register(3, 7, cb)
	got, ok := reg.Lookup(3, 7)
	if !ok || got != cb {
		t.Fatalf("Lookup(3,7) = %v, %v", got, ok)
	}
	if _, ok := reg.Lookup(3, 8); ok {
		t.Fatalf("Lookup(3,8) should miss")
	}
}
