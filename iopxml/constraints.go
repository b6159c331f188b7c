package iopxml

import (
	"fmt"

	"github.com/intersec-oss/iop/asn1"
)

// The asn1 package keeps its own constraint checks unexported (string
// length in leafPack and setLeaf, leaf.go and leaf_decode.go; enum
// membership in leaf.go; seq-of length in pack.go and unpack.go) and has
// no integer range check, so the XML engine checks Field.Int/.Str/.SeqOf/
// .Enum itself against its own decoded values rather than calling into
// asn1 for it - there is no exported asn1 function that does this.

func checkIntConstraint(f *asn1.Field, v int64) error {
	if f.Int == nil || f.Int.Extended {
		return nil
	}
	if v < f.Int.Min || (f.Int.Max > 0 && v > f.Int.Max) {
		return fmt.Errorf("iopxml: %s: integer %d out of [%d,%d]", f.Name, v, f.Int.Min, f.Int.Max)
	}
	return nil
}

func checkStringConstraint(f *asn1.Field, s string) error {
	if f.Str == nil || f.Str.Extended {
		return nil
	}
	if len(s) < f.Str.Min || (f.Str.Max > 0 && len(s) > f.Str.Max) {
		return fmt.Errorf("iopxml: %s: string length %d out of [%d,%d]", f.Name, len(s), f.Str.Min, f.Str.Max)
	}
	return nil
}

func checkSeqOfConstraint(f *asn1.Field, n int) error {
	if f.SeqOf == nil || f.SeqOf.Extended {
		return nil
	}
	if n < f.SeqOf.Min || (f.SeqOf.Max > 0 && n > f.SeqOf.Max) {
		return fmt.Errorf("iopxml: %s: seq-of length %d out of [%d,%d]", f.Name, n, f.SeqOf.Min, f.SeqOf.Max)
	}
	return nil
}

// checkEnum has no symbolic-name table to consult (asn1.EnumInfo carries
// only the numeric Values/ExtValues vectors, spec §4.2.2) so, unlike
// iop-xml-unpack.c's get_enum_value, this never resolves an enum by
// name - XML enum fields round-trip as their decimal integer value only.
func checkEnum(f *asn1.Field, v int64) error {
	if f.Enum == nil {
		return nil
	}
	if f.Enum.IndexOf(v) < 0 {
		return fmt.Errorf("iopxml: %s: value %d not a registered enum member", f.Name, v)
	}
	return nil
}
