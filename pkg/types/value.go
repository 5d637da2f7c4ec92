package types

// ValueKind discriminates the two shapes a PropSet value can take.
type ValueKind string

const (
	ValueKindInline ValueKind = "inline"
	ValueKindBlob   ValueKind = "blob"
)

// ScalarKind tags the Go type carried by an inline scalar, so the
// canonical encoder can emit a stable type byte ahead of the value (§4.3:
// "Values embed their type tag ... their type kind").
type ScalarKind string

const (
	ScalarString ScalarKind = "string"
	ScalarInt    ScalarKind = "int"
	ScalarFloat  ScalarKind = "float"
	ScalarBool   ScalarKind = "bool"
	ScalarNull   ScalarKind = "null"
)

// Value is the value half of a PropSet op: either an inline scalar or a
// reference to a content-addressed blob (written via attachContent).
type Value struct {
	Kind ValueKind

	// Populated when Kind == ValueKindInline.
	ScalarKind ScalarKind
	Str        string
	Int        int64
	Float      float64
	Bool       bool

	// Populated when Kind == ValueKindBlob.
	BlobDigest string
}

// InlineString builds an inline string value.
func InlineString(s string) Value { return Value{Kind: ValueKindInline, ScalarKind: ScalarString, Str: s} }

// InlineInt builds an inline integer value.
func InlineInt(i int64) Value { return Value{Kind: ValueKindInline, ScalarKind: ScalarInt, Int: i} }

// InlineFloat builds an inline floating point value.
func InlineFloat(f float64) Value {
	return Value{Kind: ValueKindInline, ScalarKind: ScalarFloat, Float: f}
}

// InlineBool builds an inline boolean value.
func InlineBool(b bool) Value { return Value{Kind: ValueKindInline, ScalarKind: ScalarBool, Bool: b} }

// InlineNull builds an inline null value.
func InlineNull() Value { return Value{Kind: ValueKindInline, ScalarKind: ScalarNull} }

// BlobValue builds a value referencing content by digest.
func BlobValue(digest string) Value { return Value{Kind: ValueKindBlob, BlobDigest: digest} }

// Equal reports deep equality between two values.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	if v.Kind == ValueKindBlob {
		return v.BlobDigest == o.BlobDigest
	}
	if v.ScalarKind != o.ScalarKind {
		return false
	}
	switch v.ScalarKind {
	case ScalarString:
		return v.Str == o.Str
	case ScalarInt:
		return v.Int == o.Int
	case ScalarFloat:
		return v.Float == o.Float
	case ScalarBool:
		return v.Bool == o.Bool
	default:
		return true // null
	}
}
