package rpc

import "sync"

// Registry is the process-wide cmd -> cbe table spec.md §4.6 describes.
// Grounded on spec.md directly; registration happens once at startup and
// the table is read-mostly thereafter, the same "immutable after first
// use" contract spec.md §5 states for descriptor tables.
type Registry struct {
	mu    sync.RWMutex
	table map[uint32]*Cbe
}

func NewRegistry() *Registry { return &Registry{table: make(map[uint32]*Cbe)} }

func cmdKey(iface, rpcID uint16) uint32 { return uint32(iface)<<16 | uint32(rpcID) }

// Register binds (iface, rpcID) to cb. Re-registering the same pair
// overwrites the previous entry - callers that want collision detection
// should check Lookup first.
func (r *Registry) Register(iface, rpcID uint16, cb *Cbe) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.table[cmdKey(iface, rpcID)] = cb
}

func (r *Registry) Lookup(iface, rpcID uint16) (*Cbe, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cb, ok := r.table[cmdKey(iface, rpcID)]
	return cb, ok
}
