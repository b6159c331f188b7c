package rpc

import (
	"github.com/intersec-oss/iop/ic"
	"github.com/intersec-oss/iop/icwire"
	"github.com/intersec-oss/iop/internal/status"
)

// Dispatcher implements ic.Dispatcher, routing inbound IC queries through
// a Registry per spec.md §4.6. One Dispatcher can back many channels;
// HeaderFn lets the embedder attach IC-side header extraction (e.g. from
// a HAS_HDR-prefixed payload) without this package knowing the wire
// framing details - it's already the ic package's job to hand us the raw
// payload.
type Dispatcher struct {
	Registry *Registry
	// HeaderFn extracts the user-level Header and the RPC argument bytes
	// from a raw query payload. When nil, the whole payload is treated as
	// args and Header is the zero value (no HAS_HDR prefix).
	HeaderFn func(payload []byte) (*Header, []byte, error)
}

var _ ic.Dispatcher = (*Dispatcher)(nil)

// Dispatch implements ic.Dispatcher.
func (d *Dispatcher) Dispatch(c *ic.Channel, h icwire.Header, payload []byte) {
	iface, rpcID := icwire.DecodeQueryCommand(h.Command)
	origin := icOrigin(c, h.Slot)

	hdr, args, err := d.extractHeader(payload)
	if err != nil {
		origin.deliver(status.Invalid, nil)
		return
	}

	cb, ok := d.Registry.Lookup(iface, rpcID)
	if !ok {
		origin.deliver(status.Unimplemented, nil)
		return
	}
	invoke(cb, origin, NewICSlot(), iface, rpcID, args, hdr)
}

func (d *Dispatcher) extractHeader(payload []byte) (*Header, []byte, error) {
	if d.HeaderFn == nil {
		return &Header{}, payload, nil
	}
	return d.HeaderFn(payload)
}

// Invoke drives one HTTP-gateway-originated call through the same
// registration/hook/proxy machinery Dispatch uses for IC-originated ones
// (spec.md §4.7 step 4: "dispatched per §4.6 with the HTTP slot form...
// enabling unified reply handling"). The gateway package looks the name
// up via its own WSName table and calls this directly - there is no
// icwire.Header to decode a cmd from on the HTTP path.
func Invoke(reg *Registry, iface, rpcID uint16, args []byte, hdr *Header, responder HTTPResponder) {
	cb, ok := reg.Lookup(iface, rpcID)
	origin := httpOrigin_(responder)
	if !ok {
		origin.deliver(status.Unimplemented, nil)
		return
	}
	invoke(cb, origin, NewHTTPSlot(), iface, rpcID, args, hdr)
}

// invoke is the kind-dispatch shared by both origins: run pre-hook, then
// branch on cb.Kind.
func invoke(cb *Cbe, origin replyOrigin, slot Slot, iface, rpcID uint16, args []byte, hdr *Header) {
	ctx := &HookCtx{Slot: slot, Cbe: cb, iface: iface, rpcID: rpcID, hdr: hdr, origin: origin}
	registerCall(ctx)
	r := newResponder(ctx, origin)

	if cb.PreHook != nil && cb.PreHook(r, slot, rpcID, hdr, cb.UserData) {
		return // pre-hook already replied
	}

	switch cb.Kind {
	case Normal:
		if cb.Fn == nil {
			r.ReplyErr(status.ServerError)
			return
		}
		cb.Fn(r, slot, args, hdr)
	case ProxyStatic, ProxyPtr, ProxyDyn:
		forward(r, cb, origin, rpcID, iface, args, hdr)
	case WSShared:
		// Reaching here means a WS-shared cbe was invoked without going
		// through a gateway.Trigger (e.g. directly over IC, which has no
		// HTTP handler table to resolve WSName against).
		r.ReplyErr(status.Unimplemented)
	default:
		r.ReplyErr(status.ServerError)
	}
}

// forward implements spec.md §4.6's three proxy kinds: resolve a target
// channel, re-enqueue the original args on it, and arrange for its reply
// to be forwarded back to origin unmodified (the "magic proxy callback").
func forward(r *Responder, cb *Cbe, origin replyOrigin, rpcID, iface uint16, args []byte, hdr *Header) {
	target, fwdHdr, err := cb.resolveTarget(hdr)
	if err != nil {
		r.ReplyErr(status.As(err))
		return
	}
	_ = fwdHdr // carried for a future HAS_HDR re-encode; proxying today forwards args verbatim
	err = target.Send(iface, rpcID, args, priorityOf(), cb.ProxyTimeout, magicForward(origin))
	if err != nil {
		r.ReplyErr(status.ProxyError)
		return
	}
	// The proxy cbe's own post-hook (if any) runs here, once the query is
	// queued on the target and before its reply arrives: magicForward
	// delivers that reply straight to origin, bypassing Responder.finish,
	// so the hook gets Ok and no payload - it observes that proxying was
	// attempted, not the eventual result.
	if cb.PostHook != nil {
		cb.PostHook(r.ctx, status.Ok, cb.UserData, nil)
	}
	detachCall(r.ctx.Slot)
}
