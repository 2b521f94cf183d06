package schema

import (
	"testing"
)

type point struct{ x, y float64 }

func (p point) Components() (float64, float64) { return p.x, p.y }

func TestBitType(t *testing.T) {
	typ := Bit()

	if typ.Name() != "bit" {
		t.Errorf("Name() = %q, want %q", typ.Name(), "bit")
	}

	tests := []struct {
		value   any
		wantErr bool
	}{
		{true, false},
		{false, false},
		{1, true},
		{"true", true},
		{nil, true},
	}

	for _, tt := range tests {
		err := typ.Validate(tt.value)
		if (err != nil) != tt.wantErr {
			t.Errorf("Validate(%v) error = %v, wantErr %v", tt.value, err, tt.wantErr)
		}
	}
}

func TestIntType(t *testing.T) {
	typ := Int()

	tests := []struct {
		value   any
		wantErr bool
	}{
		{42, false},
		{int8(42), false},
		{int64(42), false},
		{uint32(7), false},
		{float64(42), false},  // whole number
		{float64(42.5), true}, // not whole
		{"42", true},
		{true, true},
		{nil, true},
	}

	for _, tt := range tests {
		err := typ.Validate(tt.value)
		if (err != nil) != tt.wantErr {
			t.Errorf("Validate(%v) error = %v, wantErr %v", tt.value, err, tt.wantErr)
		}
	}
}

func TestArrType(t *testing.T) {
	typ := Arr()

	tests := []struct {
		value   any
		wantErr bool
	}{
		{[]int{1, 2}, false},
		{[]any{}, false},
		{[2]float32{1, 2}, false},
		{"abc", true},
		{map[string]int{}, true},
		{nil, true},
	}

	for _, tt := range tests {
		err := typ.Validate(tt.value)
		if (err != nil) != tt.wantErr {
			t.Errorf("Validate(%v) error = %v, wantErr %v", tt.value, err, tt.wantErr)
		}
	}
}

func TestVec2Type(t *testing.T) {
	typ := Vec2()

	if err := typ.Validate(point{1, 2}); err != nil {
		t.Errorf("Validate(point) error = %v, want nil", err)
	}
	if err := typ.Validate([]float64{1, 2}); err == nil {
		t.Error("Validate([]float64) should fail")
	}
}

func TestUndType(t *testing.T) {
	typ := Und()

	for _, v := range []any{nil, 1, "x", []int{}, point{}} {
		if err := typ.Validate(v); err != nil {
			t.Errorf("Validate(%v) error = %v, want nil", v, err)
		}
	}
}

func TestParseType(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"bit", "bit", false},
		{"int", "int", false},
		{"arr", "arr", false},
		{"vec2", "vec2", false},
		{"und", "und", false},
		{"", "und", false},
		{"string", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseType(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseType(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if !tt.wantErr && got.Name() != tt.want {
				t.Errorf("ParseType(%q) = %q, want %q", tt.name, got.Name(), tt.want)
			}
		})
	}
}

func TestCompatible(t *testing.T) {
	tests := []struct {
		a, b Type
		want bool
	}{
		{Bit(), Bit(), true},
		{Bit(), Int(), false},
		{Und(), Int(), true},
		{Arr(), Und(), true},
		{nil, Vec2(), true},
		{Vec2(), Arr(), false},
	}

	for _, tt := range tests {
		if got := Compatible(tt.a, tt.b); got != tt.want {
			t.Errorf("Compatible(%s, %s) = %v, want %v", NameOf(tt.a), NameOf(tt.b), got, tt.want)
		}
	}
}

func TestAggregateError(t *testing.T) {
	first := &testErr{"first"}
	err := &AggregateError{Errors: []error{first, &testErr{"second"}}}

	if got := len(ValidationErrors(err)); got != 2 {
		t.Fatalf("ValidationErrors() len = %d, want 2", got)
	}
	if err.Error() == "" {
		t.Error("Error() should not be empty")
	}
	single := &AggregateError{Errors: []error{first}}
	if single.Error() != "first" {
		t.Errorf("Error() = %q, want %q", single.Error(), "first")
	}
}

type testErr struct{ msg string }

func (e *testErr) Error() string { return e.msg }
