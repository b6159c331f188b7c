package rpc

import (
	"sync/atomic"
	"time"

	"github.com/intersec-oss/iop/ic"
	"github.com/intersec-oss/iop/icwire"
	"github.com/intersec-oss/iop/internal/status"
)

// Kind is one of spec.md §4.6's five callback entry kinds.
type Kind int

const (
	Normal Kind = iota
	ProxyStatic
	ProxyPtr
	ProxyDyn
	WSShared
)

func (k Kind) String() string {
	switch k {
	case Normal:
		return "Normal"
	case ProxyStatic:
		return "ProxyStatic"
	case ProxyPtr:
		return "ProxyPtr"
	case ProxyDyn:
		return "ProxyDyn"
	case WSShared:
		return "WSShared"
	default:
		return "Unknown"
	}
}

// NormalFunc implements spec.md §4.6's Normal kind: the implementation
// may reply synchronously using r (calling r.Reply/r.Throw before
// returning) or capture slot and reply later, in which case it must
// still eventually call Reply/Throw/ReplyErr exactly once.
type NormalFunc func(r *Responder, slot Slot, args []byte, hdr *Header)

// DynamicTarget is returned by a ProxyDyn getter: the channel to forward
// to, and an optional header. forward sends the original args unchanged;
// neither this Header nor the incoming one is encoded onto the forwarded
// query.
type DynamicTarget struct {
	Channel *ic.Channel
	Header  *Header // nil: resolveTarget returns the incoming header instead
}

// Cbe is one registration table entry (spec.md §4.6's "Callback entry").
// Exactly one of the kind-specific fields is meaningful, selected by Kind.
type Cbe struct {
	Kind Kind

	// Normal
	Fn NormalFunc

	// ProxyStatic: a fixed target channel, resolved once at registration.
	Target *ic.Channel

	// ProxyPtr: an indirection cell an operator can retarget without
	// re-registering the cbe (spec.md §4.6: "nil indirection fails with
	// ProxyError").
	Indirection *atomic.Pointer[ic.Channel]

	// ProxyDyn: resolved per call from the incoming header; a nil
	// Channel in the returned DynamicTarget is ProxyError, matching
	// ProxyPtr's nil-indirection behavior.
	Getter func(hdr *Header) (DynamicTarget, error)

	// WSShared: delegates to the HTTP gateway path (§4.7); the actual
	// handler lives in package gateway and is looked up by name there,
	// so this field only marks the kind for dispatch routing.
	WSName string

	PreHook  PreHook
	PostHook PostHook
	UserData any

	// ProxyTimeout bounds a proxied query's wait on the target channel;
	// zero or negative means the forwarded query gets no per-message timer.
	ProxyTimeout time.Duration
}

// resolveTarget returns the channel a Proxy* cbe forwards to for hdr, or
// a ProxyError if no target is currently available.
func (cb *Cbe) resolveTarget(hdr *Header) (*ic.Channel, *Header, error) {
	switch cb.Kind {
	case ProxyStatic:
		if cb.Target == nil {
			return nil, nil, status.New(status.ProxyError, "rpc: proxy target not set")
		}
		return cb.Target, hdr, nil
	case ProxyPtr:
		if cb.Indirection == nil {
			return nil, nil, status.New(status.ProxyError, "rpc: proxy indirection not set")
		}
		ch := cb.Indirection.Load()
		if ch == nil {
			return nil, nil, status.New(status.ProxyError, "rpc: proxy indirection is nil")
		}
		return ch, hdr, nil
	case ProxyDyn:
		if cb.Getter == nil {
			return nil, nil, status.New(status.ProxyError, "rpc: proxy getter not set")
		}
		t, err := cb.Getter(hdr)
		if err != nil {
			return nil, nil, err
		}
		if t.Channel == nil {
			return nil, nil, status.New(status.ProxyError, "rpc: dynamic proxy resolved to nil channel")
		}
		h := hdr
		if t.Header != nil {
			h = t.Header
		}
		return t.Channel, h, nil
	default:
		return nil, nil, status.New(status.ServerError, "rpc: resolveTarget called on kind %s", cb.Kind)
	}
}

// priorityOf returns the send priority a forwarded proxy query uses;
// proxying never escalates past Normal so a storm of proxied calls can't
// starve the proxy channel's own traffic.
func priorityOf() icwire.Priority { return icwire.PriorityNormal }
