// Package asn1 is the descriptor-driven ASN.1 BER engine of spec §4.2: a
// two-pass packer (size pass + emit pass) and a mirroring unpacker, driven
// by a schema Descriptor that the IOP XML codec (package iopxml) also
// consumes (spec §3 "schema descriptor (shared by ASN.1 and IOP)").
//
// Grounded on original_source/asn1-writer.c (two-pass size/emit split) and
// original_source/src/asn1/macros.h (descriptor field shape: kind, mode,
// tag, constraints). The original's byte-offset-into-a-C-struct field
// access is replaced here by Go's reflect.Value field indexing - the
// systems-language rewrite's "explicit Registry values" per spec §9's
// design notes, minus the C memory-layout assumptions that have no
// analogue in Go.
package asn1

import "reflect"

type Kind int

const (
	KindSequence Kind = iota
	KindChoice
	KindSet
)

// SemanticType is the field's semantic type tag, spec §3.
type SemanticType int

const (
	TBool SemanticType = iota
	TI8
	TU8
	TI16
	TU16
	TI32
	TU32
	TI64
	TU64
	TEnum
	TNull
	TOptNull
	TString
	TBitString
	TOpenType
	TOpaque
	TSequence
	TChoice
	TUntaggedChoice
	TExt
	TSkip
)

// Mode is the field's presence mode, spec §3.
type Mode int

const (
	Mandatory Mode = iota
	Optional
	SeqOf
)

type IntConstraint struct {
	Min, Max int64
	Extended bool
}

type StringConstraint struct {
	Min, Max int
	Extended bool
}

type SeqOfConstraint struct {
	Min, Max int
	Extended bool
}

// EnumInfo is spec §4.2.2: an ordered values vector, an extension values
// vector, and an optional extension default.
type EnumInfo struct {
	Values    []int64
	ExtValues []int64
	ExtDefval *int64
	Extended  bool
}

// OpaqueCodec is the user-supplied (size, pack, unpack) triple of spec §3.
type OpaqueCodec struct {
	Size   func(v any) int
	Pack   func(v any) []byte
	Unpack func(data []byte) (any, error)
}

// Field is spec §3's field: name/carrier-name for diagnostics, a byte
// offset replaced by a reflect field index, semantic type, mode, the
// "pointed" flag, ASN.1 tag, and constraint info by category.
type Field struct {
	Name        string
	CarrierName string
	FieldIndex  int // index into the carrier struct's reflect.Type fields

	Type    SemanticType
	Mode    Mode
	Pointed bool

	Tag    byte // single-byte BER identifier octet (spec §9: multi-byte tags unimplemented)
	TagLen int

	Int    *IntConstraint
	Str    *StringConstraint
	SeqOf  *SeqOfConstraint
	Enum   *EnumInfo
	Opaque *OpaqueCodec

	IsExtension bool
	IsOpenType  bool
	OpenTypeLen int

	// Elem is the nested descriptor for TSequence/TChoice/TUntaggedChoice
	// fields, and for the element type of a SeqOf field. The code that
	// builds the descriptor sets it; Declare lets mutually recursive
	// descriptors reference each other before Resolve freezes them, and
	// Resolve itself does not fill it in.
	Elem *Descriptor
}

// Descriptor is spec §3's schema descriptor: kind, ordered fields, an
// extension marker position, and - for choices - a precomputed tag index
// table (spec §4.2.1).
type Descriptor struct {
	Name   string
	Kind   Kind
	Fields []Field
	ExtPos int // -1 if no extension marker

	// choiceTagTable[tagByte] = 1-based field index, 0 = no entry
	// (spec §4.2.1: "a 256-entry byte array").
	choiceTagTable [256]int8

	// DefaultTag is the identifier octet used when this descriptor is
	// packed/unpacked with no enclosing field to supply a tag - i.e. a
	// top-level Pack/Unpack call. Nested occurrences always use the
	// enclosing Field's Tag instead (BER implicit tagging), so a
	// descriptor reachable only as a nested field never needs one set.
	// Resolve defaults it to the universal SEQUENCE (0x30) or SET (0x31)
	// tag; it is never consulted for a CHOICE, which has no tag of its
	// own - the chosen alternative's tag is the wire tag.
	DefaultTag byte

	goType reflect.Type
	frozen bool
}

func (d *Descriptor) GoType() reflect.Type { return d.goType }
