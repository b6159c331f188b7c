package ic

import (
	"testing"
	"time"
)

func TestWatchdogNopBeforeSoftBeforeHard(t *testing.T) {
	var softFired, hardFired, nopFired bool
	w := newWatchdog(30*time.Second, 60*time.Second,
		func() { softFired = true },
		func() { hardFired = true },
		func() { nopFired = true },
	)
	start := time.Now()
	w.touch(start)

	w.tick(start.Add(5 * time.Second))
	if softFired || hardFired || nopFired {
		t.Fatalf("no callback should fire before nopEvery elapses")
	}

	w.tick(start.Add(w.period() + time.Second))
	if !nopFired || softFired || hardFired {
		t.Fatalf("expected only NOP to fire at nopEvery, got soft=%v hard=%v nop=%v", softFired, hardFired, nopFired)
	}

	w.tick(start.Add(31 * time.Second))
	if !softFired || hardFired {
		t.Fatalf("expected soft to fire at 30s, hard not yet, got soft=%v hard=%v", softFired, hardFired)
	}

	w.tick(start.Add(61 * time.Second))
	if !hardFired {
		t.Fatalf("expected hard to fire at 60s")
	}
}

func TestWatchdogTouchResetsIdleClock(t *testing.T) {
	var hardFired bool
	w := newWatchdog(10*time.Second, 20*time.Second, func() {}, func() { hardFired = true }, func() {})
	start := time.Now()
	w.touch(start)
	w.touch(start.Add(15 * time.Second)) // activity before hard would fire
	w.tick(start.Add(16 * time.Second))  // only 1s idle since last touch
	if hardFired {
		t.Fatalf("touch must reset the idle clock")
	}
}

func TestWatchdogPeriodIsMinOfThresholdsOverThree(t *testing.T) {
	w := newWatchdog(30*time.Second, 9*time.Second, func() {}, func() {}, func() {})
	if w.period() != 3*time.Second {
		t.Fatalf("period = %v, want 3s (min(30,9)/3)", w.period())
	}
}
