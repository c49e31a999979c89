// Package expr renders ${...} expression tokens inside target documents.
//
// Documents are trees of three node kinds: String leaves, ordered Lists and
// ordered Maps. Rendering rewrites String leaves only and keeps the shape.
package expr

// Value is a document node: String, List or Map.
type Value interface {
	isValue()
}

// String is a scalar leaf.
type String string

// List is an ordered sequence.
type List []Value

// Field is one key of a Map.
type Field struct {
	Key   string
	Value Value
}

// Map is a mapping that keeps insertion order.
type Map []Field

func (String) isValue() {}
func (List) isValue()   {}
func (Map) isValue()    {}

// Get returns the value stored under key.
func (m Map) Get(key string) (Value, bool) {
	for _, f := range m {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// With returns a copy of m with key set, replacing an existing entry in place.
func (m Map) With(key string, v Value) Map {
	out := make(Map, len(m), len(m)+1)
	copy(out, m)
	for i := range out {
		if out[i].Key == key {
			out[i].Value = v
			return out
		}
	}
	return append(out, Field{Key: key, Value: v})
}

// Strings builds a List of String leaves.
func Strings(ss ...string) List {
	l := make(List, len(ss))
	for i, s := range ss {
		l[i] = String(s)
	}
	return l
}

// Lookup follows a dotted path of map keys.
func Lookup(v Value, path ...string) (Value, bool) {
	cur := v
	for _, key := range path {
		m, ok := cur.(Map)
		if !ok {
			return nil, false
		}
		if cur, ok = m.Get(key); !ok {
			return nil, false
		}
	}
	return cur, true
}

// Walk calls fn for every String leaf in document order.
func Walk(v Value, fn func(String)) {
	switch n := v.(type) {
	case String:
		fn(n)
	case List:
		for _, item := range n {
			Walk(item, fn)
		}
	case Map:
		for _, f := range n {
			Walk(f.Value, fn)
		}
	}
}
