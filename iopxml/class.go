package iopxml

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/intersec-oss/iop/asn1"
)

// ClassInfo is iopxml's own addition to the shared asn1.Descriptor: IOP
// classes (single-inheritance, abstract/private, xsi:type-dispatched) have
// no BER analogue, so the parent-chain and attribute bits live here
// rather than on asn1.Descriptor itself (spec.md §4.3: "class
// polymorphism (parent chain flattening, abstract/private attributes,
// xsi:type dispatch)").
type ClassInfo struct {
	// FullName is the qualified name carried in xsi:type, e.g.
	// "pkg.ChildClass".
	FullName string
	Desc     *asn1.Descriptor
	Parent   *ClassInfo
	Abstract bool
	Private  bool
}

// ClassRegistry maps a class's FullName to its ClassInfo and resolves
// subtype lookups rooted at a given base class, mirroring
// iop_get_class_by_fullname's scope (a subtype must be the base class or
// a descendant of it).
type ClassRegistry struct {
	byName map[string]*ClassInfo
	byType map[reflect.Type]*ClassInfo
}

func NewClassRegistry() *ClassRegistry {
	return &ClassRegistry{
		byName: make(map[string]*ClassInfo),
		byType: make(map[reflect.Type]*ClassInfo),
	}
}

func (r *ClassRegistry) Register(ci *ClassInfo) {
	r.byName[ci.FullName] = ci
	r.byType[ci.Desc.GoType()] = ci
}

// ClassOf resolves v's concrete registered class from its Go type, the
// packing-side mirror of xpack_class inspecting a live object's vtable
// to find its real class instead of trusting the static field type.
func (r *ClassRegistry) ClassOf(v reflect.Value) (*ClassInfo, bool) {
	for v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	ci, ok := r.byType[v.Type()]
	return ci, ok
}

// Resolve looks up fullName and verifies it names base or a descendant of
// base, matching xunpack_class's "class is not a child of" check.
func (r *ClassRegistry) Resolve(base *ClassInfo, fullName string) (*ClassInfo, error) {
	if idx := strings.LastIndexByte(fullName, ':'); idx >= 0 {
		fullName = fullName[idx+1:] // xsi:type carries "ns:Name"; keep the local name
	}
	target, ok := r.byName[fullName]
	if !ok {
		return nil, fmt.Errorf("class %q not found", fullName)
	}
	for ci := target; ci != nil; ci = ci.Parent {
		if ci == base {
			return target, nil
		}
	}
	return nil, fmt.Errorf("class %q is not a child of %q", fullName, base.FullName)
}

// flattenedFields returns ci's field list for XML unpacking. Unlike
// xunpack_class's qv_append_struct_xfields, which flattens master-first
// across the parent chain at unpack time because the C runtime's classes
// are laid out as a chain of nested structs, ci.Desc is used as is: the
// code that builds a class's Descriptor, before handing it to Register,
// lists the parent's Fields before its own (master-first, the same order)
// against one flat Go carrier struct - so every Field.FieldIndex in
// ci.Desc.Fields addresses that one struct directly, and no
// per-class-level navigation is needed here. Register itself only
// records ci; it does not build or flatten the Descriptor.
// Parent is walked for Resolve's ancestry check, not for field lookup.
func flattenedFields(ci *ClassInfo) []xfield {
	return descFields(ci.Desc)
}

type xfield struct {
	desc  *asn1.Descriptor
	field *asn1.Field
}

// allocClassValue allocates a zero value of the real (possibly derived)
// class's Go type and returns it addressable, for the class-dispatch path
// where the destination pointer's static type is the base class.
func allocClassValue(ci *ClassInfo) reflect.Value {
	return reflect.New(ci.Desc.GoType()).Elem()
}
