package cond

import "strconv"

// Value is a sealed interface over the cell and literal value types the
// pipeline understands. Only StringValue, IntValue, FloatValue and
// BoolValue implement it. Keeping the set closed allows exhaustive type
// switches in the encoder and the canonical serializer.
type Value interface {
	condValue()
}

// StringValue is a textual cell or literal. Comparisons against strings
// are lexicographic unless both operands parse numerically.
type StringValue string

func (StringValue) condValue() {}

// IntValue is an integer cell or literal.
type IntValue int64

func (IntValue) condValue() {}

// FloatValue is a floating-point cell or literal.
type FloatValue float64

func (FloatValue) condValue() {}

// BoolValue is a boolean cell. Condition text never produces one (bare
// identifiers become Var nodes); they enter the pipeline through row
// data such as JSON row files.
type BoolValue bool

func (BoolValue) condValue() {}

// ParseLiteral converts raw literal text to a Value. Integer parsing is
// attempted first, then float, then the text is kept as a string. Quoted
// string literals must be unwrapped by the caller before reaching here.
func ParseLiteral(text string) Value {
	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return IntValue(n)
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return FloatValue(f)
	}
	return StringValue(text)
}

// Num returns the numeric view of a value. The second return reports
// whether the value has one: ints and floats always do, strings only
// when they parse as a number, bools never.
func Num(v Value) (float64, bool) {
	switch val := v.(type) {
	case IntValue:
		return float64(val), true
	case FloatValue:
		return float64(val), true
	case StringValue:
		f, err := strconv.ParseFloat(string(val), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Text renders a value as the string used for lexicographic comparison
// and for display. Floats use the shortest round-trippable form so the
// rendering is deterministic.
func Text(v Value) string {
	switch val := v.(type) {
	case StringValue:
		return string(val)
	case IntValue:
		return strconv.FormatInt(int64(val), 10)
	case FloatValue:
		return strconv.FormatFloat(float64(val), 'g', -1, 64)
	case BoolValue:
		if val {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}

// Truthy reports whether a value counts as true when a bare column
// reference (Var node) is evaluated: non-zero numbers, the literal
// "true", and true bools.
func Truthy(v Value) bool {
	switch val := v.(type) {
	case BoolValue:
		return bool(val)
	case IntValue:
		return val != 0
	case FloatValue:
		return val != 0
	case StringValue:
		if f, ok := Num(val); ok {
			return f != 0
		}
		return string(val) == "true" || string(val) == "TRUE"
	default:
		return false
	}
}
