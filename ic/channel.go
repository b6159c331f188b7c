package ic

import (
	"io"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/intersec-oss/iop/icwire"
	"github.com/intersec-oss/iop/internal/cfg"
	"github.com/intersec-oss/iop/internal/cos"
	"github.com/intersec-oss/iop/internal/nlog"
	"github.com/intersec-oss/iop/internal/status"
)

// Dispatcher handles an inbound query frame (spec §4.6); the ic package
// only frames and correlates - RPC registration and proxying live in
// package rpc, which implements this interface.
type Dispatcher interface {
	Dispatch(c *Channel, h icwire.Header, payload []byte)
}

// Channel is one IOP Channel (spec §4.5): a single-threaded-per-channel
// event loop driven by four event sources - readable (frames off the
// wire), writable (queue has work and the socket can accept more),
// timer (watchdog tick, per-message timeouts), and external request
// (Send/Cancel/Close calls from other goroutines, which only ever post
// to cmdCh and never touch channel state directly, preserving the
// single-threaded-owner model spec §5 requires even though Go doesn't
// pin goroutines to OS threads the way the original's event loop did).
//
// Grounded on transport/base.go's streamBase: sessST active/inactive
// state, stopCh/lastCh shutdown signaling, wg for drain-on-stop, and the
// sendLoop/rtry reconnect idiom - generalized here from a one-directional
// object-sender to a full-duplex frame channel with reply correlation.
type Channel struct {
	conn   net.Conn
	loghdr string
	auto   bool // spec §4.5.4 auto_reconn
	addr   string

	mu          sync.Mutex
	state       State
	sentVersion bool

	queue   sendQueue
	pending *pendingTable
	slots   icwire.SlotAllocator
	wd      *watchdog
	backoff *reconnectBackoff

	cmdCh  chan func()
	stopCh cos.StopCh
	eg     *errgroup.Group

	dispatch Dispatcher
}

// NewChannel builds a channel bound to conn, not yet started (spec §4.5:
// state INIT). addr is used only for reconnect and diagnostics.
func NewChannel(conn net.Conn, addr string, autoReconnect bool, d Dispatcher) *Channel {
	cf := cfg.Get()
	c := &Channel{
		conn:     conn,
		addr:     addr,
		auto:     autoReconnect,
		loghdr:   cos.GenSessionID(),
		state:    StateInit,
		pending:  newPendingTable(),
		backoff:  newReconnectBackoff(cf.RetryInitial, cf.RetryMax),
		cmdCh:    make(chan func(), 64),
		dispatch: d,
	}
	c.stopCh.Init()
	c.wd = newWatchdog(cf.WatchdogSoft, cf.WatchdogHard, c.onSoftTimeout, c.onHardTimeout, c.sendNop)
	return c
}

// Run drives the event loop until the channel is closed; call it in its
// own goroutine. accepted is true for a server-side channel entering
// directly at VERSION-WAIT (network) or READY (unix), per spec §4.5.
//
// The reader runs under an errgroup.Group: readLoop's sole job is turning
// net.Conn reads into frameOrErr values, while the loop below remains
// the single owner of every piece of channel state (spec §5). Close()
// waits on the group, so it returns once the reader has exited; the
// event loop itself is not part of the group.
func (c *Channel) Run(accepted, unix bool) {
	c.mu.Lock()
	c.eg = &errgroup.Group{}
	c.mu.Unlock()

	if accepted {
		if unix {
			c.setState(StateReady)
		} else {
			c.setState(StateVersionWait)
		}
	} else {
		c.setState(StateConnecting)
		c.setState(StateVersionWait)
		// spec §4.5/§4.4: the initiating side speaks first, offering its
		// version; written directly (not through the queue) since the
		// event loop hasn't started draining it yet.
		vframe := icwire.MarshalVersion(icwire.VersionPayload{Version: icwire.CurrentVersion})
		if _, err := c.conn.Write(vframe); err != nil {
			c.teardown(status.Wrap(status.Abort, err, "%s: VERSION write failed", c.loghdr))
			return
		}
		c.sentVersion = true
	}

	frames := make(chan frameOrErr, 16)
	c.eg.Go(func() error {
		c.readLoop(frames)
		return nil
	})

	ticker := time.NewTicker(c.wd.period())
	defer ticker.Stop()

	for {
		select {
		case fe, ok := <-frames:
			if !ok {
				c.teardown(status.New(status.Abort, "%s: peer closed", c.loghdr))
				return
			}
			if fe.err != nil {
				c.teardown(status.Wrap(status.Abort, fe.err, "%s: read error", c.loghdr))
				return
			}
			c.wd.touch(time.Now())
			c.handleFrame(fe.header, fe.payload)
			c.flush()
		case fn := <-c.cmdCh:
			fn()
			c.flush()
		case <-ticker.C:
			c.wd.tick(time.Now())
		case <-c.stopCh.Listen():
			c.teardown(status.New(status.Abort, "%s: stopped", c.loghdr))
			return
		}
	}
}

type frameOrErr struct {
	header  icwire.Header
	payload []byte
	err     error
}

func (c *Channel) readLoop(out chan<- frameOrErr) {
	defer close(out)
	for {
		h, payload, err := icwire.ReadFrame(c.conn)
		if err != nil {
			if err != io.EOF {
				out <- frameOrErr{err: err}
			}
			return
		}
		out <- frameOrErr{header: h, payload: payload}
	}
}

func (c *Channel) setState(next State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.canTransitionTo(next) {
		nlog.Warningf("%s: illegal transition %s -> %s", c.loghdr, c.state, next)
		return
	}
	c.state = next
}

// State returns the channel's current state (safe from any goroutine).
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Channel) handleFrame(h icwire.Header, payload []byte) {
	switch {
	case icwire.IsControl(h.Command):
		c.handleControl(h, payload)
	case icwire.IsReply(h.Command):
		c.handleReply(h, payload)
	case icwire.IsQuery(h.Command):
		if c.dispatch != nil {
			c.dispatch.Dispatch(c, h, payload)
		}
	}
}

func (c *Channel) handleControl(h icwire.Header, payload []byte) {
	switch icwire.ControlType(h.Slot) {
	case icwire.ControlVersion:
		if c.State() == StateVersionWait {
			if _, err := icwire.UnmarshalVersion(payload); err != nil {
				nlog.Warningf("%s: bad VERSION frame: %v", c.loghdr, err)
			}
			if !c.sentVersion {
				// server side of the handshake: the peer spoke first,
				// now we answer with our own VERSION (spec §4.4/§4.5).
				c.sentVersion = true
				vh, vp := icwire.VersionFrameParts(icwire.VersionPayload{Version: icwire.CurrentVersion})
				c.queue.push(&outMsg{header: vh, payload: vp}, icwire.PriorityHigh)
			}
			c.setState(StateReady)
		}
	case icwire.ControlBye:
		c.teardown(status.New(status.Abort, "%s: peer sent BYE", c.loghdr))
	case icwire.ControlNop:
		// activity only, already recorded by the caller's wd.touch
	}
}

func (c *Channel) handleReply(h icwire.Header, payload []byte) {
	slot := h.Slot
	e, ok := c.pending.detach(slot)
	if !ok {
		return // stale/duplicate, or a query we'd already canceled (spec §4.5.2)
	}
	code := status.Code(-h.Command)
	e.cont(code, payload)
}

// Send enqueues a query and registers cont to receive its reply (spec
// §4.5.1/§4.5.2). timeout<=0 disables the per-message timer. Safe to
// call from any goroutine; the actual enqueue runs on the channel loop.
func (c *Channel) Send(iface, rpc uint16, payload []byte, prio icwire.Priority, timeout time.Duration, cont Continuation) error {
	cmd, err := icwire.EncodeQueryCommand(iface, rpc)
	if err != nil {
		return err
	}
	slot := c.slots.Next()
	c.post(func() {
		m := &outMsg{header: icwire.Header{Flags: icwire.WithPriority(0, prio), Slot: slot, Command: cmd}, payload: payload}
		c.pending.insert(slot, timeout, cont, c.onMessageTimeout)
		c.queue.push(m, prio)
	})
	return nil
}

// Reply packs and enqueues a reply for slot (spec §4.6's reply path).
func (c *Channel) Reply(slot uint32, code status.Code, payload []byte) {
	c.post(func() {
		m := &outMsg{header: icwire.Header{Slot: slot, Command: -int32(code)}, payload: payload}
		c.queue.push(m, icwire.PriorityNormal)
	})
}

// Cancel implements spec §4.5.5: idempotent, detaches slot from whichever
// structure holds it and invokes its continuation with Canceled exactly
// once. A reply that arrives afterward is dropped by handleReply via the
// detach-miss path.
func (c *Channel) Cancel(slot uint32) {
	c.post(func() {
		c.queue.cancelBySlot(slot) // no-op if it already left the queue
		c.pending.cancel(slot)
	})
}

// Close implements spec §4.5.4's non-reconnecting close: drains pending
// with Abort and tears the connection down.
func (c *Channel) Close() {
	c.mu.Lock()
	c.auto = false
	eg := c.eg
	c.mu.Unlock()
	c.stopCh.Close()
	if eg != nil {
		_ = eg.Wait()
	}
}

func (c *Channel) post(fn func()) {
	select {
	case c.cmdCh <- fn:
	case <-c.stopCh.Listen():
	}
}

func (c *Channel) onMessageTimeout(slot uint32) {
	c.post(func() {
		c.queue.cancelBySlot(slot)
		if e, ok := c.pending.detach(slot); ok {
			e.cont(status.TimedOut, nil)
		}
	})
}

func (c *Channel) onSoftTimeout() {
	nlog.Warningf("%s: NoActivity (soft watchdog)", c.loghdr)
}

func (c *Channel) onHardTimeout() {
	c.teardown(status.New(status.Abort, "%s: activity watchdog hard timeout", c.loghdr))
}

func (c *Channel) sendNop() {
	c.post(func() {
		c.queue.push(&outMsg{header: icwire.ControlHeader(icwire.ControlNop)}, icwire.PriorityHigh)
	})
}

// flush drains the send queue onto the wire (spec §4.5.1's writable
// event); writes are synchronous here: icwire.WriteFrame writes the
// header and then the payload straight to the socket, unlike the teacher's writev+partial-iov
// bookkeeping which existed to avoid blocking a shared epoll loop across
// many streams - a per-channel goroutine blocking on its own socket write
// has no such neighbor to starve.
func (c *Channel) flush() {
	for {
		m := c.queue.pop()
		if m == nil {
			return
		}
		if err := icwire.WriteFrame(c.conn, m.header, m.payload); err != nil {
			c.teardown(status.Wrap(status.Abort, err, "%s: write error", c.loghdr))
			return
		}
		c.wd.touch(time.Now())
	}
}

func (c *Channel) teardown(reason *status.Error) {
	if c.State() == StateWiped {
		return
	}
	c.setState(StateClosing)
	_ = c.conn.Close()
	code := status.Abort
	c.pending.drainAll(code)
	c.setState(StateWiped)
	c.mu.Lock()
	auto := c.auto
	c.mu.Unlock()
	if auto {
		go c.reconnectLoop()
	}
	nlog.Warningf("%s: %v", c.loghdr, reason)
}

// reconnectLoop implements spec §4.5.4: schedule retry_delay and repeat
// the connect procedure, preserving msg_list (already untouched - it
// lives on c.queue, never drained by teardown) but not pending (already
// drained above).
func (c *Channel) reconnectLoop() {
	delay := c.backoff.delay()
	time.Sleep(delay)
	conn, err := net.Dial("tcp", c.addr)
	if err != nil {
		nlog.Warningf("%s: reconnect failed: %v", c.loghdr, err)
		go c.reconnectLoop()
		return
	}
	c.conn = conn
	c.backoff.reset(cfg.Get().RetryInitial)
	c.mu.Lock()
	c.state = StateInit
	c.mu.Unlock()
	go c.Run(false, false)
}
