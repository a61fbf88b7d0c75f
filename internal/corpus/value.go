package corpus

import (
	"fmt"
	"strconv"
)

// ValueKind tags the dynamic type of a Value.
type ValueKind int

const (
	ValueNone ValueKind = iota
	ValueString
	ValueInt
	ValueFloat
	// ValuePos is a corpus position produced by a bare label reference.
	ValuePos
	// ValuePARef is a lexicon ID of a positional attribute. It compares by
	// ID against values of the same attribute.
	ValuePARef
)

func (k ValueKind) String() string {
	switch k {
	case ValueNone:
		return "none"
	case ValueString:
		return "string"
	case ValueInt:
		return "int"
	case ValueFloat:
		return "float"
	case ValuePos:
		return "position"
	case ValuePARef:
		return "paref"
	default:
		return "unknown"
	}
}

// Value is a typed operand of a comparison or function call.
type Value struct {
	Kind  ValueKind
	Str   string
	Int   int
	Float float64

	// Attr and ID are set for ValuePARef.
	Attr Positional
	ID   int
}

func None() Value                { return Value{Kind: ValueNone} }
func StringValue(s string) Value { return Value{Kind: ValueString, Str: s} }
func IntValue(n int) Value       { return Value{Kind: ValueInt, Int: n} }
func FloatValue(f float64) Value { return Value{Kind: ValueFloat, Float: f} }
func PosValue(cpos int) Value    { return Value{Kind: ValuePos, Int: cpos} }
func PARefValue(a Positional, id int) Value {
	return Value{Kind: ValuePARef, Attr: a, ID: id}
}

// AsString returns the string form of v. PARef values are resolved
// through their attribute's lexicon.
func (v Value) AsString() (string, bool) {
	switch v.Kind {
	case ValueString:
		return v.Str, true
	case ValuePARef:
		if v.Attr == nil {
			return "", false
		}
		return v.Attr.Value(v.ID)
	case ValueInt, ValuePos:
		return strconv.Itoa(v.Int), true
	case ValueFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64), true
	default:
		return "", false
	}
}

func (v Value) String() string {
	if v.Kind == ValueNone {
		return "<none>"
	}
	s, ok := v.AsString()
	if !ok {
		return fmt.Sprintf("<%s>", v.Kind)
	}
	return s
}
