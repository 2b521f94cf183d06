package domain

import (
	"encoding/json"
	"math"
	"reflect"
)

// ToBool returns the value as a bool, or ErrTypeMismatch.
func ToBool(v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, TypeMismatch("bit", v)
	}
	return b, nil
}

// ToInt converts any integral number to int.
// Whole floats are accepted since JSON and YAML decoders produce them.
func ToInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int8:
		return int(n), nil
	case int16:
		return int(n), nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case uint:
		return int(n), nil
	case uint8:
		return int(n), nil
	case uint16:
		return int(n), nil
	case uint32:
		return int(n), nil
	case uint64:
		return int(n), nil
	case float32:
		if float32(int(n)) == n {
			return int(n), nil
		}
	case float64:
		if float64(int(n)) == n {
			return int(n), nil
		}
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), nil
		}
	}
	return 0, TypeMismatch("int", v)
}

// ToFloat converts any number to float64.
func ToFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, TypeMismatch("number", v)
		}
		return f, nil
	}
	i, err := ToInt(v)
	if err != nil {
		return 0, TypeMismatch("number", v)
	}
	return float64(i), nil
}

// ToFloats converts a slice or array of numbers to []float64.
func ToFloats(v any) ([]float64, error) {
	switch s := v.(type) {
	case []float64:
		return s, nil
	case []float32:
		out := make([]float64, len(s))
		for i, f := range s {
			out[i] = float64(f)
		}
		return out, nil
	}
	if v == nil {
		return nil, TypeMismatch("arr", v)
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, TypeMismatch("arr", v)
	}
	out := make([]float64, rv.Len())
	for i := range out {
		f, err := ToFloat(rv.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}

// Int2 is an integer two-component vector.
type Int2 struct {
	X int `json:"x" yaml:"x" mapstructure:"x"`
	Y int `json:"y" yaml:"y" mapstructure:"y"`
}

// Float2 is a single precision two-component vector.
type Float2 struct {
	X float32 `json:"x" yaml:"x" mapstructure:"x"`
	Y float32 `json:"y" yaml:"y" mapstructure:"y"`
}

// Double2 is a double precision two-component vector.
type Double2 struct {
	X float64 `json:"x" yaml:"x" mapstructure:"x"`
	Y float64 `json:"y" yaml:"y" mapstructure:"y"`
}

func (v Int2) Components() (float64, float64)    { return float64(v.X), float64(v.Y) }
func (v Float2) Components() (float64, float64)  { return float64(v.X), float64(v.Y) }
func (v Double2) Components() (float64, float64) { return v.X, v.Y }

func (v Int2) Abs() Int2 {
	return Int2{X: absInt(v.X), Y: absInt(v.Y)}
}

func (v Float2) Abs() Float2 {
	return Float2{X: float32(math.Abs(float64(v.X))), Y: float32(math.Abs(float64(v.Y)))}
}

func (v Double2) Abs() Double2 {
	return Double2{X: math.Abs(v.X), Y: math.Abs(v.Y)}
}

func absInt(i int) int {
	if i < 0 {
		return -i
	}
	return i
}

// ToVec2 normalizes a vector value. Int2, Float2 and Double2 pass through.
// Two-element lists and maps with "x" and "y" become Int2 when both components
// are whole numbers and Double2 otherwise.
func ToVec2(v any) (any, error) {
	switch t := v.(type) {
	case Int2, Float2, Double2:
		return t, nil
	case *Int2:
		return *t, nil
	case *Float2:
		return *t, nil
	case *Double2:
		return *t, nil
	case map[string]any:
		x, okX := t["x"]
		y, okY := t["y"]
		if !okX || !okY {
			return nil, TypeMismatch("vec2", v)
		}
		return vec2Of(x, y, v)
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		if rv.Len() != 2 {
			return nil, TypeMismatch("vec2", v)
		}
		return vec2Of(rv.Index(0).Interface(), rv.Index(1).Interface(), v)
	}
	return nil, TypeMismatch("vec2", v)
}

func vec2Of(x, y, orig any) (any, error) {
	xi, errX := ToInt(x)
	yi, errY := ToInt(y)
	if errX == nil && errY == nil {
		return Int2{X: xi, Y: yi}, nil
	}
	xf, errX := ToFloat(x)
	yf, errY := ToFloat(y)
	if errX != nil || errY != nil {
		return nil, TypeMismatch("vec2", orig)
	}
	return Double2{X: xf, Y: yf}, nil
}
