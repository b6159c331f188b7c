package ic

import "time"

// watchdog implements spec §4.5.3's channel-wide activity watchdog: it
// emits NoActivity after soft elapses with no traffic, closes the
// channel after hard, and synthesizes an outbound NOP at
// min(soft,hard)/3 to keep the counterpart informed.
//
// Grounded on transport/collect.go's per-stream idle ticker (tick-based
// countdown, reset on activity), collapsed from the teacher's shared
// min-heap collector (which amortizes the ticker across every live
// stream in the process) to one ticker per channel - IC channels are
// pairwise and comparatively few, so the heap's O(log n) reshuffling
// buys nothing a single per-channel time.Timer doesn't already give.
type watchdog struct {
	soft, hard time.Duration
	nopEvery   time.Duration
	lastActive time.Time
	onSoft     func()
	onHard     func()
	onNop      func()
}

func newWatchdog(soft, hard time.Duration, onSoft, onHard, onNop func()) *watchdog {
	nopEvery := soft
	if hard < nopEvery {
		nopEvery = hard
	}
	nopEvery /= 3
	w := &watchdog{soft: soft, hard: hard, nopEvery: nopEvery, lastActive: time.Now(), onSoft: onSoft, onHard: onHard, onNop: onNop}
	return w
}

// touch records activity, resetting the idle clock (spec §4.5.3 implies
// the watchdog is purely activity-driven: any frame in either direction
// counts).
func (w *watchdog) touch(now time.Time) { w.lastActive = now }

// tick is called periodically (at nopEvery granularity, the tightest of
// the three durations) by the channel's event loop; it fires the
// appropriate callback based on elapsed idle time.
func (w *watchdog) tick(now time.Time) {
	idle := now.Sub(w.lastActive)
	switch {
	case idle >= w.hard:
		w.onHard()
	case idle >= w.soft:
		w.onSoft()
	case idle >= w.nopEvery:
		w.onNop()
	}
}

func (w *watchdog) period() time.Duration { return w.nopEvery }
