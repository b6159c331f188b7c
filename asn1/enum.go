package asn1

// finalizeEnum runs once per enum field when Resolve closes registration
// and marks the enum Extended when it has extension values. It does not
// check that ExtDefval is unique across Values and ExtValues, and it does
// not set an integer constraint on the field; EnumRange computes the
// [0, len-1] range on demand instead.
func finalizeEnum(e *EnumInfo) {
	e.Extended = len(e.ExtValues) > 0
}

// EnumRange returns the [0, len-1] integer constraint spec §4.2.2
// mandates once an enum is registered.
func EnumRange(e *EnumInfo) IntConstraint {
	return IntConstraint{Min: 0, Max: int64(len(e.Values) - 1)}
}

// IndexOf returns the 0-based index of v within Values, or -1.
func (e *EnumInfo) IndexOf(v int64) int {
	for i, x := range e.Values {
		if x == v {
			return i
		}
	}
	for i, x := range e.ExtValues {
		if x == v {
			return len(e.Values) + i
		}
	}
	return -1
}
