package rpc

import (
	"sync"

	"github.com/intersec-oss/iop/ic"
	"github.com/intersec-oss/iop/internal/status"
)

// HTTPResponder is gateway's half of the Slot space: whatever HTTP
// handler owns a synthetic IC call implements this to receive the
// eventual reply (spec.md §4.7 step 4: "enabling unified reply
// handling").
type HTTPResponder interface {
	RespondHTTP(code status.Code, payload []byte)
}

// replyOrigin records where reply/throw/replyErr must deliver the answer
// for one outstanding Slot: an IC channel plus its 24-bit wire slot, or
// an HTTP responder.
type replyOrigin struct {
	ch       *ic.Channel
	wireSlot uint32
	http     HTTPResponder
}

func icOrigin(ch *ic.Channel, wireSlot uint32) replyOrigin { return replyOrigin{ch: ch, wireSlot: wireSlot} }
func httpOrigin_(r HTTPResponder) replyOrigin              { return replyOrigin{http: r} }

func (o replyOrigin) deliver(code status.Code, payload []byte) {
	if o.http != nil {
		o.http.RespondHTTP(code, payload)
		return
	}
	o.ch.Reply(o.wireSlot, code, payload)
}

// pendingCalls is the process-wide hookCtx table, indexed by Slot
// (spec.md §4.6: "indexed by slot and fetched at reply time").
var pendingCalls = struct {
	mu sync.Mutex
	m  map[Slot]*HookCtx
}{m: make(map[Slot]*HookCtx)}

func registerCall(ctx *HookCtx) {
	pendingCalls.mu.Lock()
	pendingCalls.m[ctx.Slot] = ctx
	pendingCalls.mu.Unlock()
}

func detachCall(slot Slot) (*HookCtx, bool) {
	pendingCalls.mu.Lock()
	defer pendingCalls.mu.Unlock()
	ctx, ok := pendingCalls.m[slot]
	if ok {
		delete(pendingCalls.m, slot)
	}
	return ctx, ok
}

// Responder is the per-call handle a cbe's implementation (or a
// short-circuiting pre-hook) uses to produce a reply. It wraps a Slot's
// replyOrigin and guarantees reply/throw/replyErr fire the registration's
// post-hook exactly once, matching the "at-most-one continuation"
// property spec.md §8 requires one layer up at the ic package, extended
// here to the RPC layer.
type Responder struct {
	ctx    *HookCtx
	once   sync.Once
	origin replyOrigin
}

func newResponder(ctx *HookCtx, origin replyOrigin) *Responder {
	return &Responder{ctx: ctx, origin: origin}
}

// Reply packs ok the struct/value into payload already and sends it back
// with status Ok (spec.md §4.6: "reply(slot, struct, value)").
func (r *Responder) Reply(payload []byte) { r.finish(status.Ok, payload) }

// Throw is the error path: it replies with status Exn and the packed
// exception value (spec.md §4.6: "sets cmd=IC_MSG_EXN").
func (r *Responder) Throw(payload []byte) { r.finish(status.Exn, payload) }

// ReplyErr sends code with no payload (spec.md §4.6: "reply_err(slot,
// code)").
func (r *Responder) ReplyErr(code status.Code) { r.finish(code, nil) }

func (r *Responder) finish(code status.Code, payload []byte) {
	r.once.Do(func() {
		r.origin.deliver(code, payload)
		if r.ctx.Cbe != nil && r.ctx.Cbe.PostHook != nil {
			r.ctx.Cbe.PostHook(r.ctx, code, r.ctx.Cbe.UserData, payload)
		}
		detachCall(r.ctx.Slot)
	})
}

// forwardReplyTo implements spec.md §4.6's "re-emits an already-received
// reply without re-serialization (it copies the raw payload from the
// forwarder's read buffer)": used when a Proxy* cbe's target channel
// replies and the raw bytes are handed straight back to the original
// caller with no unpack/repack round trip.
func forwardReplyTo(origin replyOrigin, code status.Code, raw []byte) {
	origin.deliver(code, raw)
}

// magicForward is spec.md §4.6's "magic proxy callback": a sentinel
// continuation installed on the proxied query so that when its reply
// arrives, the library forwards it via origin directly instead of
// invoking any user continuation. ic.Channel has no notion of this
// sentinel itself - it is purely a convention of how this package builds
// the ic.Continuation it passes to ic.Channel.Send for proxy kinds.
func magicForward(origin replyOrigin) func(code status.Code, reply []byte) {
	return func(code status.Code, reply []byte) {
		forwardReplyTo(origin, code, reply)
	}
}
