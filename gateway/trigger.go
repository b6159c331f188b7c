// Package gateway implements the HTTP gateway of spec.md §4.7: a Trigger
// bound to a URL prefix that accepts per-RPC JSON POSTs and SOAP-batched
// POSTs and dispatches them through the same rpc.Registry machinery an IC
// channel uses, via rpc.Invoke's HTTP slot form.
package gateway

import (
	"time"

	"github.com/intersec-oss/iop/rpc"
)

// PackMode selects the wire modality a Trigger negotiates.
type PackMode int

const (
	PackAuto PackMode = iota // decide per-request from Content-Type, per spec.md §4.7 step 2
	PackJSON
	PackSOAP
)

// Trigger is one URL-prefix-scoped RPC surface: an impl table keyed by
// RPC name (plus aliases), the IOP module's negotiated schema URL, and
// the knobs spec.md §4.7 lists for a trigger.
type Trigger struct {
	// Prefix is the URL prefix this trigger is mounted at, e.g. "/v1/".
	Prefix string
	// Module names the IOP module this trigger serves; the Trigger never
	// reads it, so it plays no role in dispatch.
	Module string
	// SchemaURL is handed back on schema-introspection requests; the
	// wire codec itself lives in iopxml, not here.
	SchemaURL string

	Registry *rpc.Registry
	// Iface is the (iface) half of the (iface, rpc) cmd key every name
	// in Names/Aliases below resolves to; one Trigger serves one iface.
	Iface uint16

	// Names maps an RPC name (as it appears in a URL tail or a SOAP
	// Body first-child element name) to its rpc id within Iface.
	Names map[string]uint16
	// Aliases maps an alternate name to a name already in Names.
	Aliases map[string]string

	PackMode   PackMode
	MaxQuerySize int64

	// ReplyHook, if set, observes every completed reply before it is
	// written to the client (status code and raw payload) - used for
	// access logging, not for altering the response.
	ReplyHook func(name string, code int, payload []byte)
}

// DefaultMaxQuerySize has the same value as cfg.DefaultGatewayMaxQuerySize;
// maxQuerySize falls back to it for a Trigger constructed without an
// explicit MaxQuerySize.
const DefaultMaxQuerySize = 16 << 20

func (t *Trigger) maxQuerySize() int64 {
	if t.MaxQuerySize > 0 {
		return t.MaxQuerySize
	}
	return DefaultMaxQuerySize
}

// resolve looks name up through Names then Aliases, returning the rpc id
// to dispatch to.
func (t *Trigger) resolve(name string) (uint16, bool) {
	if id, ok := t.Names[name]; ok {
		return id, true
	}
	if canon, ok := t.Aliases[name]; ok {
		if id, ok := t.Names[canon]; ok {
			return id, true
		}
	}
	return 0, false
}

// proxyTimeout is how long a Trigger's synthetic call waits for a reply
// before the gateway gives up; it is fixed, and it mirrors ic's default
// per-message timeout (cfg.DefaultTimeout) rather than importing cfg
// directly, since a gateway Trigger has no channel of its own.
const proxyTimeout = 30 * time.Second
