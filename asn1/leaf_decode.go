package asn1

import (
	"github.com/intersec-oss/iop/ber"
	"github.com/intersec-oss/iop/internal/status"
)

// setLeaf decodes content (a leaf value's already tag/length-stripped
// content bytes) per f's semantic type and writes it into storage, the
// mirror of leafPack for the decode direction.
func setLeaf(f *Field, storage reflectValue, content []byte) error {
	switch f.Type {
	case TBool:
		if len(content) != 1 {
			return status.New(status.Invalid, "asn1: %s: bool content must be 1 byte, got %d", f.Name, len(content))
		}
		storage.SetBool(content[0] != 0x00)
		return nil
	case TI8:
		c := ber.NewCursor(content)
		v, err := ber.DecodeInt(&c, 1)
		if err != nil {
			return err
		}
		storage.SetInt(v)
		return nil
	case TU8:
		c := ber.NewCursor(content)
		v, err := ber.DecodeUint8(&c)
		if err != nil {
			return err
		}
		storage.SetUint(uint64(v))
		return nil
	case TI16:
		c := ber.NewCursor(content)
		v, err := ber.DecodeInt(&c, 2)
		if err != nil {
			return err
		}
		storage.SetInt(v)
		return nil
	case TU16:
		c := ber.NewCursor(content)
		v, err := ber.DecodeUint(&c, 2)
		if err != nil {
			return err
		}
		storage.SetUint(v)
		return nil
	case TI32:
		c := ber.NewCursor(content)
		v, err := ber.DecodeInt(&c, 4)
		if err != nil {
			return err
		}
		storage.SetInt(v)
		return nil
	case TU32:
		c := ber.NewCursor(content)
		v, err := ber.DecodeUint(&c, 4)
		if err != nil {
			return err
		}
		storage.SetUint(v)
		return nil
	case TI64, TEnum:
		c := ber.NewCursor(content)
		v, err := ber.DecodeInt(&c, 8)
		if err != nil {
			return err
		}
		if f.Type == TEnum {
			if err := checkEnumValue(f, v); err != nil {
				return err
			}
		}
		storage.SetInt(v)
		return nil
	case TU64:
		c := ber.NewCursor(content)
		v, err := ber.DecodeUint(&c, 8)
		if err != nil {
			return err
		}
		storage.SetUint(v)
		return nil
	case TNull, TOptNull:
		return nil
	case TString:
		s := string(content)
		if f.Str != nil && !f.Str.Extended {
			if len(s) < f.Str.Min || (f.Str.Max > 0 && len(s) > f.Str.Max) {
				return status.New(status.Invalid, "asn1: %s: string length %d out of [%d,%d]", f.Name, len(s), f.Str.Min, f.Str.Max)
			}
		}
		storage.SetString(s)
		return nil
	case TBitString:
		bs, err := unpackBitString(content)
		if err != nil {
			return err
		}
		storage.Set(reflectValueOf(bs))
		return nil
	case TOpenType:
		if f.OpenTypeLen > 0 && len(content) > f.OpenTypeLen {
			return status.New(status.Invalid, "asn1: %s: open-type value exceeds fixed buffer (%d > %d)", f.Name, len(content), f.OpenTypeLen)
		}
		storage.SetBytes(append([]byte(nil), content...))
		return nil
	case TOpaque:
		if f.Opaque == nil {
			return status.New(status.ServerError, "asn1: %s: opaque field has no codec", f.Name)
		}
		v, err := f.Opaque.Unpack(content)
		if err != nil {
			return err
		}
		storage.Set(reflectValueDirect(v))
		return nil
	case TSkip, TExt:
		return nil
	default:
		return status.New(status.ServerError, "asn1: %s: unsupported leaf type %d", f.Name, f.Type)
	}
}
