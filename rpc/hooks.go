package rpc

import "github.com/intersec-oss/iop/internal/status"

// PreHook runs before a cbe's implementation (spec.md §4.6). Returning
// true means the hook already replied (via the Responder it was given)
// and the main implementation must not run.
type PreHook func(r *Responder, slot Slot, rpc uint16, hdr *Header, userdata any) (shortCircuited bool)

// PostHook runs once a reply has been produced, whether by the
// implementation, a short-circuiting pre-hook, or an internal failure
// (spec.md §4.6: "post_hook(ic, status, ctx, userdata, result_struct?,
// result_value?)"). For a proxy cbe whose query was forwarded, it runs
// right after forwarding, with Ok and no result, before the target's
// reply arrives.
type PostHook func(ctx *HookCtx, code status.Code, userdata any, resultValue []byte)

// HookCtx is the per-call context spec.md §4.6 says is "indexed by slot
// and fetched at reply time": it stores the slot, a reference to the
// cbe, the post-hook args, and caller-supplied pass-through bytes.
type HookCtx struct {
	Slot        Slot
	Cbe         *Cbe
	PassThrough []byte

	iface, rpcID uint16
	hdr          *Header
	origin       replyOrigin
}
