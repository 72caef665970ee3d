package slotdb

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"reflect"
	"slices"
	"sort"
	"strconv"
	"unicode/utf8"
)

type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

var kindNames = [...]string{
	KindNull:   "null",
	KindBool:   "bool",
	KindNumber: "number",
	KindString: "string",
	KindArray:  "array",
	KindObject: "object",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a JSON-like value: null, bool, number, string, array of Values,
// or a string-keyed object of Values. The zero Value is null.
//
// Values are immutable once built; accessors that return containers return
// copies.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	arr  []Value
	obj  map[string]Value
}

func Null() Value { return Value{} }
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }
func String(s string) Value { return Value{kind: KindString, s: s} }
func Array(items ...Value) Value { return Value{kind: KindArray, arr: slices.Clone(items)} }

// Number returns a number Value. NaN and infinities have no JSON form and
// are rejected.
func Number(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, &InvalidValueError{Type: "float64", Msg: "non-finite number " + strconv.FormatFloat(f, 'g', -1, 64)}
	}
	return Value{kind: KindNumber, n: f}, nil
}

func Object(m map[string]Value) Value {
	return Value{kind: KindObject, obj: maps.Clone(m)}
}

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }
func (v Value) Bool() bool { return v.b }
func (v Value) Number() float64 { return v.n }
func (v Value) Str() string { return v.s }

// Len returns the number of array items or object entries, and 0 otherwise.
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.arr)
	case KindObject:
		return len(v.obj)
	default:
		return 0
	}
}

func (v Value) Array() []Value {
	if v.kind != KindArray {
		return nil
	}
	return slices.Clone(v.arr)
}

func (v Value) Object() map[string]Value {
	if v.kind != KindObject {
		return nil
	}
	return maps.Clone(v.obj)
}

// Index returns the i-th array item, or null if out of range.
func (v Value) Index(i int) Value {
	if v.kind != KindArray || i < 0 || i >= len(v.arr) {
		return Value{}
	}
	return v.arr[i]
}

// Field returns the object entry for key.
func (v Value) Field(key string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	f, ok := v.obj[key]
	return f, ok
}

// Any converts v into the plain Go representation used by encoding/json:
// nil, bool, float64, string, []any and map[string]any.
func (v Value) Any() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindNumber:
		return v.n
	case KindString:
		return v.s
	case KindArray:
		out := make([]any, len(v.arr))
		for i, item := range v.arr {
			out[i] = item.Any()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.obj))
		for k, item := range v.obj {
			out[k] = item.Any()
		}
		return out
	default:
		panic(fmt.Errorf("invalid value kind %d", v.kind))
	}
}

func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindNumber:
		return v.n == o.n
	case KindString:
		return v.s == o.s
	case KindArray:
		return slices.EqualFunc(v.arr, o.arr, Value.Equal)
	case KindObject:
		return maps.EqualFunc(v.obj, o.obj, Value.Equal)
	default:
		return false
	}
}

func (v Value) String() string {
	return string(must(v.MarshalJSON()))
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Any())
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	val, err := ValueOf(raw)
	if err != nil {
		return err
	}
	*v = val
	return nil
}

// ValueOf converts a Go value into a Value. It accepts nil, bool, every
// integer and float type, string, json.Number, Value, and slices, arrays and
// string-keyed maps of those, recursively. Nil slices and maps become null,
// as in encoding/json. Anything else (structs, pointers, funcs, channels,
// non-finite floats, strings that are not valid UTF-8, cyclic containers)
// fails with *InvalidValueError naming the offending path.
func ValueOf(x any) (Value, error) {
	var c converter
	return c.convert(x, "")
}

var valueType = reflect.TypeOf(Value{})

// converter tracks the maps and slices on the current path so that a
// container holding itself fails instead of recursing forever.
type converter struct {
	visiting map[visitKey]struct{}
}

type visitKey struct {
	ptr uintptr
	len int
	typ reflect.Type
}

// enter marks the container rv as being converted. Empty containers cannot
// hold themselves and are not tracked.
func (c *converter) enter(rv reflect.Value, path string) (visitKey, error) {
	if rv.Len() == 0 {
		return visitKey{}, nil
	}
	k := visitKey{rv.Pointer(), rv.Len(), rv.Type()}
	if _, found := c.visiting[k]; found {
		return visitKey{}, &InvalidValueError{Path: path, Type: rv.Type().String(), Msg: "cyclic value"}
	}
	if c.visiting == nil {
		c.visiting = make(map[visitKey]struct{})
	}
	c.visiting[k] = struct{}{}
	return k, nil
}

func (c *converter) leave(k visitKey) {
	if k.typ != nil {
		delete(c.visiting, k)
	}
}

func (c *converter) convert(x any, path string) (Value, error) {
	switch x := x.(type) {
	case nil:
		return Value{}, nil
	case Value:
		if err := x.validate(path); err != nil {
			return Value{}, err
		}
		return x, nil
	case bool:
		return Bool(x), nil
	case string:
		return stringAt(x, path)
	case float64:
		return numberAt(x, path)
	case float32:
		return numberAt(float64(x), path)
	case int:
		return Value{kind: KindNumber, n: float64(x)}, nil
	case int64:
		return Value{kind: KindNumber, n: float64(x)}, nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return Value{}, &InvalidValueError{Path: path, Type: "json.Number", Msg: err.Error()}
		}
		return numberAt(f, path)
	case []any:
		if x == nil {
			return Value{}, nil
		}
		k, err := c.enter(reflect.ValueOf(x), path)
		if err != nil {
			return Value{}, err
		}
		defer c.leave(k)
		arr := make([]Value, len(x))
		for i, item := range x {
			v, err := c.convert(item, indexPath(path, i))
			if err != nil {
				return Value{}, err
			}
			arr[i] = v
		}
		return Value{kind: KindArray, arr: arr}, nil
	case map[string]any:
		if x == nil {
			return Value{}, nil
		}
		k, err := c.enter(reflect.ValueOf(x), path)
		if err != nil {
			return Value{}, err
		}
		defer c.leave(k)
		obj := make(map[string]Value, len(x))
		for key, item := range x {
			fp := fieldPath(path, key)
			if !utf8.ValidString(key) {
				return Value{}, invalidUTF8(fp, "key")
			}
			v, err := c.convert(item, fp)
			if err != nil {
				return Value{}, err
			}
			obj[key] = v
		}
		return Value{kind: KindObject, obj: obj}, nil
	}
	return c.reflectConvert(reflect.ValueOf(x), path)
}

func (c *converter) reflectConvert(rv reflect.Value, path string) (Value, error) {
	if rv.Type() == valueType {
		return c.convert(rv.Interface(), path)
	}
	switch rv.Kind() {
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.String:
		return stringAt(rv.String(), path)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Value{kind: KindNumber, n: float64(rv.Int())}, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Value{kind: KindNumber, n: float64(rv.Uint())}, nil
	case reflect.Float32, reflect.Float64:
		return numberAt(rv.Float(), path)
	case reflect.Interface:
		if rv.IsNil() {
			return Value{}, nil
		}
		return c.reflectConvert(rv.Elem(), path)
	case reflect.Slice:
		if rv.IsNil() {
			return Value{}, nil
		}
		k, err := c.enter(rv, path)
		if err != nil {
			return Value{}, err
		}
		defer c.leave(k)
		return c.reflectItems(rv, path)
	case reflect.Array:
		return c.reflectItems(rv, path)
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return Value{}, &InvalidValueError{Path: path, Type: rv.Type().String(), Msg: "map keys must be strings"}
		}
		if rv.IsNil() {
			return Value{}, nil
		}
		k, err := c.enter(rv, path)
		if err != nil {
			return Value{}, err
		}
		defer c.leave(k)
		obj := make(map[string]Value, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			key := iter.Key().String()
			fp := fieldPath(path, key)
			if !utf8.ValidString(key) {
				return Value{}, invalidUTF8(fp, "key")
			}
			v, err := c.reflectConvert(iter.Value(), fp)
			if err != nil {
				return Value{}, err
			}
			obj[key] = v
		}
		return Value{kind: KindObject, obj: obj}, nil
	default:
		return Value{}, &InvalidValueError{Path: path, Type: rv.Type().String()}
	}
}

func (c *converter) reflectItems(rv reflect.Value, path string) (Value, error) {
	n := rv.Len()
	arr := make([]Value, n)
	for i := range n {
		v, err := c.reflectConvert(rv.Index(i), indexPath(path, i))
		if err != nil {
			return Value{}, err
		}
		arr[i] = v
	}
	return Value{kind: KindArray, arr: arr}, nil
}

// validate checks a Value built with the constructors, which do not look at
// string contents.
func (v Value) validate(path string) error {
	switch v.kind {
	case KindString:
		if !utf8.ValidString(v.s) {
			return invalidUTF8(path, "string")
		}
	case KindArray:
		for i, item := range v.arr {
			if err := item.validate(indexPath(path, i)); err != nil {
				return err
			}
		}
	case KindObject:
		for key, item := range v.obj {
			fp := fieldPath(path, key)
			if !utf8.ValidString(key) {
				return invalidUTF8(fp, "key")
			}
			if err := item.validate(fp); err != nil {
				return err
			}
		}
	}
	return nil
}

func stringAt(s string, path string) (Value, error) {
	if !utf8.ValidString(s) {
		return Value{}, invalidUTF8(path, "string")
	}
	return Value{kind: KindString, s: s}, nil
}

func invalidUTF8(path, what string) error {
	return &InvalidValueError{Path: path, Type: "string", Msg: what + " is not valid UTF-8"}
}

func numberAt(f float64, path string) (Value, error) {
	v, err := Number(f)
	if err != nil {
		err.(*InvalidValueError).Path = path
	}
	return v, err
}

func indexPath(path string, i int) string {
	return path + "[" + strconv.Itoa(i) + "]"
}

func fieldPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

// Document is the whole logical content persisted under one database name.
type Document map[string]Value

// Keys returns the document keys in sorted order.
func (doc Document) Keys() []string {
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (doc Document) Equal(o Document) bool {
	return maps.EqualFunc(doc, o, Value.Equal)
}
