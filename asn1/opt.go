package asn1

// Opt is the "is-present" wrapper spec §4.2 requires for OPTIONAL scalar
// fields ("opt wrappers for scalars, non-null data for strings, non-null
// pointer for composites"). Optional strings and bit strings use a
// pointer carrier (*string, *BitString) instead of Opt[T], nil meaning
// absent, so empty-vs-absent stays expressible.
type Opt[T any] struct {
	Present bool
	Value   T
}

func Some[T any](v T) Opt[T] { return Opt[T]{Present: true, Value: v} }
func None[T any]() Opt[T]    { return Opt[T]{} }
