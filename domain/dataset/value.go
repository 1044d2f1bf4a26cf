package dataset

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ValueKind tags the runtime type of a parsed cell
type ValueKind uint8

const (
	KindMissing ValueKind = iota
	KindNumber
	KindText
	KindBool
)

// Value is the loosely-typed scalar a parsed cell resolves to. Cells arrive
// from CSV/spreadsheet input with ambiguous types; they are resolved into
// this tagged form exactly once at the parser boundary so downstream code
// never re-sniffs strings.
type Value struct {
	kind ValueKind
	num  float64
	text string
	b    bool
}

// Missing is the absent-cell value (nil, undefined, or empty string at parse)
var Missing = Value{}

// Number creates a numeric value
func Number(f float64) Value {
	return Value{kind: KindNumber, num: f}
}

// Text creates a text value
func Text(s string) Value {
	return Value{kind: KindText, text: s}
}

// Bool creates a boolean value
func Bool(b bool) Value {
	return Value{kind: KindBool, b: b}
}

// Coerce resolves a raw cell string into a Value. Whitespace is trimmed;
// the empty string is Missing, numeric-looking text becomes a Number,
// "true"/"false" (any case) become Bool, everything else stays Text.
func Coerce(raw string) Value {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Missing
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return Number(f)
	}
	if strings.EqualFold(s, "true") {
		return Bool(true)
	}
	if strings.EqualFold(s, "false") {
		return Bool(false)
	}
	return Text(s)
}

// Kind returns the value's tag
func (v Value) Kind() ValueKind {
	return v.kind
}

// IsMissing reports whether the cell is absent
func (v Value) IsMissing() bool {
	return v.kind == KindMissing
}

// Number returns the numeric payload when the value is a Number
func (v Value) Number() (float64, bool) {
	if v.kind == KindNumber {
		return v.num, true
	}
	return 0, false
}

// Numeric returns a float64 when the value is numeric or numeric-parseable
// text. Booleans and non-numeric text are not numeric.
func (v Value) Numeric() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindText:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v.text), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// Bool returns the boolean payload when the value is a Bool
func (v Value) Bool() (bool, bool) {
	if v.kind == KindBool {
		return v.b, true
	}
	return false, false
}

// String returns the canonical form used for display, distinctness, and
// duplicate-row serialization. Numbers format with minimal digits so the
// text "2" and the number 2 coincide; Missing is the empty string.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindText:
		return v.text
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}

// MarshalJSON encodes the value as a bare JSON scalar (null for Missing)
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		return json.Marshal(v.num)
	case KindText:
		return json.Marshal(v.text)
	case KindBool:
		return json.Marshal(v.b)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes any JSON scalar into a Value
func (v *Value) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*v = Missing
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*v = Number(f)
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*v = Bool(b)
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*v = Coerce(str)
	return nil
}
