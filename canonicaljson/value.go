// Package canonicaljson implements the Matrix canonical JSON value model: an
// ordered-key JSON object with integer-only numerics and a deterministic,
// lexicographic serialization. See spec.md §4.1.
package canonicaljson

// Kind identifies which alternative of the Value sum type is populated.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInteger
	KindString
	KindArray
	KindObject
)

// MaxInteger and MinInteger bound the integers representable by a Value,
// matching the 53-bit signed range JavaScript's IEEE-754 doubles can
// represent exactly.
const (
	MaxInteger int64 = (1 << 53) - 1
	MinInteger int64 = -(1 << 53) + 1
)

// Value is the canonical JSON recursive sum type: Null, Bool, Integer,
// String, Array of Value, or Object mapping string to Value. The zero Value
// is Null.
type Value struct {
	kind Kind
	b    bool
	i    int64
	s    string
	arr  []Value
	obj  *Object
}

// Null returns the Null value.
func Null() Value { return Value{kind: KindNull} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Integer wraps an int64, which must already be within [MinInteger,
// MaxInteger]; use NewInteger to validate untrusted input.
func Integer(i int64) Value { return Value{kind: KindInteger, i: i} }

// NewInteger validates i against the 53-bit bound before wrapping it.
func NewInteger(i int64) (Value, error) {
	if i > MaxInteger || i < MinInteger {
		return Value{}, &OutOfRangeError{Value: i}
	}
	return Integer(i), nil
}

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Array wraps a slice of Value.
func Array(vs []Value) Value { return Value{kind: KindArray, arr: vs} }

// ObjectValue wraps an *Object.
func ObjectValue(o *Object) Value { return Value{kind: KindObject, obj: o} }

// Kind reports which alternative is populated.
func (v Value) Kind() Kind { return v.kind }

// AsBool returns the boolean value and whether v is a Bool.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsInteger returns the integer value and whether v is an Integer.
func (v Value) AsInteger() (int64, bool) { return v.i, v.kind == KindInteger }

// AsString returns the string value and whether v is a String.
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// AsArray returns the backing slice and whether v is an Array.
func (v Value) AsArray() ([]Value, bool) { return v.arr, v.kind == KindArray }

// AsObject returns the backing *Object and whether v is an Object.
func (v Value) AsObject() (*Object, bool) { return v.obj, v.kind == KindObject }

// IsNull reports whether v is Null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Object is an ordered-key JSON object. Insertion order of Set calls is
// irrelevant to equality or serialization: Marshal always emits keys sorted
// lexicographically on their UTF-8 bytes. The insertion-ordered slice is
// kept only so Keys() is deterministic before the first Marshal call that
// doesn't matter to any caller.
type Object struct {
	keys []string
	m    map[string]Value
}

// NewObject returns an empty Object.
func NewObject() *Object {
	return &Object{m: make(map[string]Value)}
}

// Set inserts or overwrites the value at key.
func (o *Object) Set(key string, v Value) {
	if _, ok := o.m[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.m[key] = v
}

// Get looks up key.
func (o *Object) Get(key string) (Value, bool) {
	v, ok := o.m[key]
	return v, ok
}

// Delete removes key, if present.
func (o *Object) Delete(key string) {
	if _, ok := o.m[key]; !ok {
		return
	}
	delete(o.m, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
}

// Len returns the number of keys.
func (o *Object) Len() int { return len(o.m) }

// Keys returns the keys in insertion order. Callers needing the
// serialization order should sort a copy themselves; Marshal does this
// internally and does not rely on this method.
func (o *Object) Keys() []string {
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}
