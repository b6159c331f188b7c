package asn1

import (
	"github.com/intersec-oss/iop/ber"
	"github.com/intersec-oss/iop/internal/status"
)

// leafContentLen returns the packed *content* length (not including tag
// or length-of-length bytes) for a scalar/string/bitstring/opaque/
// open-type/skip/ext field - the unit the size pass pushes onto the
// lenStack for every leaf.
func leafContentLen(f *Field, eff reflectValue) (int, error) {
	b, err := leafPack(f, eff)
	if err != nil {
		return 0, err
	}
	return len(b), nil
}

// leafPack returns the raw content bytes for a scalar/string/bitstring/
// opaque/open-type field - i.e. everything the emit pass writes after
// the tag and length.
func leafPack(f *Field, eff reflectValue) ([]byte, error) {
	switch f.Type {
	case TBool:
		if eff.Bool() {
			return []byte{0xFF}, nil
		}
		return []byte{0x00}, nil
	case TI8:
		return []byte{byte(eff.Int())}, nil
	case TU8:
		return []byte{byte(eff.Uint())}, nil
	case TI16:
		return ber.PackInt16(int16(eff.Int())), nil
	case TU16:
		return ber.PackUint16(uint16(eff.Uint())), nil
	case TI32:
		return ber.PackInt32(int32(eff.Int())), nil
	case TU32:
		return ber.PackUint32(uint32(eff.Uint())), nil
	case TI64:
		return ber.PackInt64(eff.Int()), nil
	case TU64:
		return ber.PackUint64(eff.Uint()), nil
	case TEnum:
		if err := checkEnumValue(f, eff.Int()); err != nil {
			return nil, err
		}
		return ber.PackInt32(int32(eff.Int())), nil
	case TNull, TOptNull:
		return nil, nil
	case TString:
		s := eff.String()
		if f.Str != nil && !f.Str.Extended {
			if len(s) < f.Str.Min || (f.Str.Max > 0 && len(s) > f.Str.Max) {
				return nil, status.New(status.Invalid, "asn1: %s: string length %d out of [%d,%d]", f.Name, len(s), f.Str.Min, f.Str.Max)
			}
		}
		return []byte(s), nil
	case TBitString:
		bs := eff.Interface().(BitString)
		return packBitString(bs), nil
	case TOpenType:
		b := eff.Bytes()
		if f.OpenTypeLen > 0 && len(b) > f.OpenTypeLen {
			return nil, status.New(status.Invalid, "asn1: %s: open-type value exceeds fixed buffer (%d > %d)", f.Name, len(b), f.OpenTypeLen)
		}
		return b, nil
	case TOpaque:
		if f.Opaque == nil {
			return nil, status.New(status.ServerError, "asn1: %s: opaque field has no codec", f.Name)
		}
		return f.Opaque.Pack(eff.Interface()), nil
	case TSkip, TExt:
		return nil, nil
	default:
		return nil, status.New(status.ServerError, "asn1: %s: unsupported leaf type %d", f.Name, f.Type)
	}
}

func checkEnumValue(f *Field, v int64) error {
	if f.Enum == nil {
		return nil
	}
	if f.Enum.IndexOf(v) < 0 {
		return status.New(status.Invalid, "asn1: %s: value %d not a registered enum member", f.Name, v)
	}
	return nil
}

func packBitString(bs BitString) []byte {
	out := make([]byte, 1+len(bs.Bytes))
	out[0] = byte(bs.UnusedBits)
	copy(out[1:], bs.Bytes)
	return out
}

func unpackBitString(b []byte) (BitString, error) {
	if len(b) == 0 {
		return BitString{}, status.New(status.Invalid, "asn1: bit string missing unused-bits octet")
	}
	return BitString{UnusedBits: int(b[0]), Bytes: append([]byte(nil), b[1:]...)}, nil
}
