package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"unicode/utf16"
)

// Value is a sealed interface over the report value types.
type Value interface {
	reportValue()
}

// String is a string value.
type String string

func (String) reportValue() {}

// Int is an integer value.
type Int int64

func (Int) reportValue() {}

// Bool is a boolean value.
type Bool bool

func (Bool) reportValue() {}

// Array is an ordered list of values.
type Array []Value

func (Array) reportValue() {}

// Object maps keys to values. Use SortedKeys for deterministic iteration.
type Object map[string]Value

func (Object) reportValue() {}

// Pair is one key-value pair for NewObject.
type Pair struct {
	Key   string
	Value Value
}

// P is shorthand for Pair.
func P(key string, v Value) Pair {
	return Pair{Key: key, Value: v}
}

// NewObject builds an Object from pairs. Later pairs win on duplicate keys.
func NewObject(pairs ...Pair) Object {
	obj := make(Object, len(pairs))
	for _, p := range pairs {
		obj[p.Key] = p.Value
	}
	return obj
}

// Strings converts a string slice to an Array.
func Strings(ss []string) Array {
	arr := make(Array, len(ss))
	for i, s := range ss {
		arr[i] = String(s)
	}
	return arr
}

// Counts converts a per-name counter map to an Object.
func Counts(m map[string]int) Object {
	obj := make(Object, len(m))
	for k, n := range m {
		obj[k] = Int(n)
	}
	return obj
}

// SortedKeys returns the keys in RFC 8785 order (UTF-16 code units).
// Byte order differs for characters outside the basic multilingual plane.
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)
	return keys
}

func compareUTF16(a, b string) int {
	return slices.Compare(utf16.Encode([]rune(a)), utf16.Encode([]rune(b)))
}

// Unmarshal decodes JSON into a Value. Floats and null are rejected.
func Unmarshal(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return fromJSON(raw)
}

func fromJSON(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("null is not a report value")
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case json.Number:
		if strings.ContainsAny(string(val), ".eE") {
			return nil, fmt.Errorf("float %s is not a report value", val)
		}
		n, err := val.Int64()
		if err != nil {
			return nil, fmt.Errorf("number out of int64 range: %s", val)
		}
		return Int(n), nil
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			e, err := fromJSON(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = e
		}
		return arr, nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			e, err := fromJSON(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			obj[k] = e
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported JSON type %T", v)
	}
}

// Lookup follows a path of object keys from v. It returns false when a
// key is missing or an intermediate value is not an Object.
func Lookup(v Value, path ...string) (Value, bool) {
	for _, key := range path {
		obj, ok := v.(Object)
		if !ok {
			return nil, false
		}
		if v, ok = obj[key]; !ok {
			return nil, false
		}
	}
	return v, true
}
