package asn1

import "github.com/intersec-oss/iop/internal/status"

// choiceSelector reads the discriminator (field 0 of a CHOICE descriptor,
// spec §4.2 "choice packing") from v and range-checks it against
// [1, len(d.Fields)).
func choiceSelector(d *Descriptor, v reflectValue) (int, error) {
	sel := int(v.Field(d.Fields[0].FieldIndex).Int())
	if sel < 1 || sel >= len(d.Fields) {
		return 0, status.New(status.Invalid, "asn1: %s: choice selector %d out of range [1,%d)", d.Name, sel, len(d.Fields))
	}
	return sel, nil
}

// buildChoiceTagTable implements spec §4.2.1: for each CHOICE descriptor,
// a 256-entry byte array maps the first byte of a child's BER tag to the
// child's 1-based index. Untagged-choice fields recurse: their own
// children populate the parent table with the parent's index, so a
// nested untagged choice flattens at registration time rather than at
// every dispatch.
func buildChoiceTagTable(d *Descriptor) error {
	for i := 1; i < len(d.Fields); i++ { // field 0 is the discriminator selector, see Pack
		f := &d.Fields[i]
		if err := populateTagEntries(d, f, int8(i)); err != nil {
			return err
		}
	}
	return nil
}

func populateTagEntries(owner *Descriptor, f *Field, ownerIndex int8) error {
	if f.Type == TUntaggedChoice && f.Elem != nil {
		for j := 1; j < len(f.Elem.Fields); j++ {
			child := &f.Elem.Fields[j]
			if err := populateTagEntries(owner, child, ownerIndex); err != nil {
				return err
			}
		}
		return nil
	}
	if owner.choiceTagTable[f.Tag] != 0 {
		return status.New(status.Invalid, "asn1: %s: choice tag 0x%02x collides on registration", owner.Name, f.Tag)
	}
	owner.choiceTagTable[f.Tag] = ownerIndex
	return nil
}

// DispatchTag returns the 1-based field index selected by tag, or 0 if
// no child claims it (spec §4.2.1's O(1) dispatch).
func (d *Descriptor) DispatchTag(tag byte) int {
	return int(d.choiceTagTable[tag])
}
