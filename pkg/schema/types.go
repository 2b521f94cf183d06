package schema

import (
	"fmt"
	"reflect"
)

// Type defines the contract for a port type tag.
type Type interface {
	// Name returns the tag name (e.g., "bit", "int").
	Name() string
	// Validate checks if a value conforms to this tag.
	Validate(value any) error
}

// Vector is implemented by two-component vector values.
type Vector interface {
	Components() (x, y float64)
}

// BitType validates boolean values.
type BitType struct{}

func (t *BitType) Name() string { return "bit" }

func (t *BitType) Validate(value any) error {
	if _, ok := value.(bool); !ok {
		return fmt.Errorf("expected bit, got %T", value)
	}
	return nil
}

// IntType validates integer values.
type IntType struct{}

func (t *IntType) Name() string { return "int" }

func (t *IntType) Validate(value any) error {
	switch v := value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return nil
	case float64:
		// Accept floats that are whole numbers (from JSON/YAML decoding)
		if v == float64(int64(v)) {
			return nil
		}
		return fmt.Errorf("expected int, got float (not a whole number)")
	default:
		return fmt.Errorf("expected int, got %T", value)
	}
}

// ArrType validates slices and arrays of any element type.
type ArrType struct{}

func (t *ArrType) Name() string { return "arr" }

func (t *ArrType) Validate(value any) error {
	if value == nil {
		return fmt.Errorf("expected arr, got nil")
	}
	kind := reflect.TypeOf(value).Kind()
	if kind != reflect.Slice && kind != reflect.Array {
		return fmt.Errorf("expected arr, got %T", value)
	}
	return nil
}

// Vec2Type validates two-component vectors.
type Vec2Type struct{}

func (t *Vec2Type) Name() string { return "vec2" }

func (t *Vec2Type) Validate(value any) error {
	if _, ok := value.(Vector); !ok {
		return fmt.Errorf("expected vec2, got %T", value)
	}
	return nil
}

// UndType accepts any value, including nil.
type UndType struct{}

func (t *UndType) Name() string { return "und" }

func (t *UndType) Validate(any) error { return nil }

// --- Factory Functions ---

var (
	bit  Type = &BitType{}
	num  Type = &IntType{}
	arr  Type = &ArrType{}
	vec2 Type = &Vec2Type{}
	und  Type = &UndType{}
)

// Bit returns the boolean tag.
func Bit() Type { return bit }

// Int returns the integer tag.
func Int() Type { return num }

// Arr returns the array tag.
func Arr() Type { return arr }

// Vec2 returns the two-component vector tag.
func Vec2() Type { return vec2 }

// Und returns the undetermined tag.
func Und() Type { return und }

// All returns every tag of the closed set, in a stable order.
func All() []Type {
	return []Type{bit, num, arr, vec2, und}
}

// ParseType converts a tag name to a Type.
// An empty name resolves to Und.
func ParseType(name string) (Type, error) {
	if name == "" {
		return und, nil
	}
	for _, t := range All() {
		if t.Name() == name {
			return t, nil
		}
	}
	return nil, fmt.Errorf("unsupported type: %s", name)
}

// Compatible reports whether a producer tagged a may feed a consumer tagged b.
// Nil tags are treated as Und.
func Compatible(a, b Type) bool {
	if a == nil || b == nil {
		return true
	}
	if a.Name() == und.Name() || b.Name() == und.Name() {
		return true
	}
	return a.Name() == b.Name()
}

// NameOf returns the tag name, or "" for a nil tag.
func NameOf(t Type) string {
	if t == nil {
		return ""
	}
	return t.Name()
}
