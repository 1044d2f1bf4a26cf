package dataset

import (
	"encoding/json"
	"testing"
)

func TestCoerce(t *testing.T) {
	cases := []struct {
		raw  string
		kind ValueKind
	}{
		{"", KindMissing},
		{"   ", KindMissing},
		{"42", KindNumber},
		{" 3.14 ", KindNumber},
		{"-0.5", KindNumber},
		{"1e3", KindNumber},
		{"true", KindBool},
		{"FALSE", KindBool},
		{"hello", KindText},
		{"2024-01-01", KindText},
	}

	for _, tc := range cases {
		if got := Coerce(tc.raw).Kind(); got != tc.kind {
			t.Errorf("Coerce(%q).Kind() = %d, want %d", tc.raw, got, tc.kind)
		}
	}

	if f, ok := Coerce(" 3.14 ").Number(); !ok || f != 3.14 {
		t.Errorf("Coerce(\" 3.14 \") = %v, %v", f, ok)
	}
	if b, ok := Coerce("TRUE").Bool(); !ok || !b {
		t.Errorf("Coerce(\"TRUE\") = %v, %v", b, ok)
	}
}

func TestValueString(t *testing.T) {
	cases := []struct {
		v    Value
		want string
	}{
		{Number(2), "2"},
		{Number(2.5), "2.5"},
		{Number(-0.25), "-0.25"},
		{Text("abc"), "abc"},
		{Bool(true), "true"},
		{Missing, ""},
	}

	for _, tc := range cases {
		if got := tc.v.String(); got != tc.want {
			t.Errorf("String() = %q, want %q", got, tc.want)
		}
	}
}

func TestValueNumeric(t *testing.T) {
	if f, ok := Number(7).Numeric(); !ok || f != 7 {
		t.Errorf("Number(7).Numeric() = %v, %v", f, ok)
	}
	if f, ok := Text("7.5").Numeric(); !ok || f != 7.5 {
		t.Errorf("Text numeric = %v, %v", f, ok)
	}
	if _, ok := Text("abc").Numeric(); ok {
		t.Error("non-numeric text reported numeric")
	}
	if _, ok := Bool(true).Numeric(); ok {
		t.Error("bool reported numeric")
	}
	if _, ok := Missing.Numeric(); ok {
		t.Error("missing reported numeric")
	}
}

func TestValueJSON(t *testing.T) {
	cases := []struct {
		v    Value
		want string
	}{
		{Number(2.5), "2.5"},
		{Text("abc"), `"abc"`},
		{Bool(false), "false"},
		{Missing, "null"},
	}

	for _, tc := range cases {
		raw, err := json.Marshal(tc.v)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if string(raw) != tc.want {
			t.Errorf("marshal = %s, want %s", raw, tc.want)
		}
	}

	var v Value
	if err := json.Unmarshal([]byte("null"), &v); err != nil || !v.IsMissing() {
		t.Errorf("null round trip = %+v, %v", v, err)
	}
	if err := json.Unmarshal([]byte("1.5"), &v); err != nil {
		t.Fatalf("unmarshal number: %v", err)
	}
	if f, ok := v.Number(); !ok || f != 1.5 {
		t.Errorf("number round trip = %v, %v", f, ok)
	}

	// Numeric-looking strings coerce on the way in, matching the parser
	// boundary rule.
	if err := json.Unmarshal([]byte(`"2"`), &v); err != nil {
		t.Fatalf("unmarshal string: %v", err)
	}
	if v.Kind() != KindNumber {
		t.Errorf("quoted numeric decoded as kind %d", v.Kind())
	}
}

func TestRowKey(t *testing.T) {
	columns := []string{"a", "b"}

	r1 := Row{"a": Number(2), "b": Text("x")}
	r2 := Row{"a": Text("2"), "b": Text("x")}
	r3 := Row{"a": Number(3), "b": Text("x")}

	if r1.Key(columns) != r2.Key(columns) {
		t.Error("text \"2\" and number 2 should serialize identically")
	}
	if r1.Key(columns) == r3.Key(columns) {
		t.Error("different values produced the same key")
	}

	// Absent cells count as Missing, same as an explicit Missing.
	r4 := Row{"a": Number(2)}
	r5 := Row{"a": Number(2), "b": Missing}
	if r4.Key(columns) != r5.Key(columns) {
		t.Error("absent cell and explicit Missing diverged")
	}
}
