package luatable

import (
	"sort"
	"strconv"
)

// Kind identifies the variant stored in a Value.
type Kind uint8

const (
	// KindNil is the Lua nil value.
	KindNil Kind = iota
	// KindBool is a boolean.
	KindBool
	// KindInt is an integer number. Integer and float are distinct kinds so
	// the encoder can reproduce the original literal formatting.
	KindInt
	// KindFloat is a floating-point number.
	KindFloat
	// KindString is a string.
	KindString
	// KindTable is a nested table.
	KindTable
)

// Value is one node of a decoded sidecar: a tagged variant over the Lua
// scalar types plus nested tables.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	t    *Table
}

// Nil returns the nil value.
func Nil() Value { return Value{kind: KindNil} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int wraps an integer number.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float wraps a floating-point number.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, s: s} }

// TableVal wraps a table.
func TableVal(t *Table) Value { return Value{kind: KindTable, t: t} }

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// IsNil reports whether the value is nil.
func (v Value) IsNil() bool { return v.kind == KindNil }

// Bool returns the boolean payload. Valid only for KindBool.
func (v Value) Bool() bool { return v.b }

// Int returns the integer payload. Valid only for KindInt.
func (v Value) Int() int64 { return v.i }

// Float returns the float payload. Valid only for KindFloat.
func (v Value) Float() float64 { return v.f }

// Number returns the numeric payload as a float regardless of numeric kind.
func (v Value) Number() float64 {
	if v.kind == KindInt {
		return float64(v.i)
	}
	return v.f
}

// Str returns the string payload. Valid only for KindString.
func (v Value) Str() string { return v.s }

// Table returns the table payload, or nil for non-table values.
func (v Value) Table() *Table { return v.t }

// Equal reports deep structural equality, including kind: Int(1) and
// Float(1) are not equal, and neither are tables that differ in key type.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNil:
		return true
	case KindBool:
		return v.b == other.b
	case KindInt:
		return v.i == other.i
	case KindFloat:
		return v.f == other.f
	case KindString:
		return v.s == other.s
	case KindTable:
		return v.t.Equal(other.t)
	}
	return false
}

// Table is an ordered-on-demand Lua table: integer keys and string keys live
// in separate maps because the key type is semantically significant.
type Table struct {
	ints map[int64]Value
	strs map[string]Value
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{
		ints: make(map[int64]Value),
		strs: make(map[string]Value),
	}
}

// SetInt stores a value under an integer key.
func (t *Table) SetInt(key int64, v Value) { t.ints[key] = v }

// SetStr stores a value under a string key.
func (t *Table) SetStr(key string, v Value) { t.strs[key] = v }

// GetInt looks up an integer key.
func (t *Table) GetInt(key int64) (Value, bool) {
	v, ok := t.ints[key]
	return v, ok
}

// GetStr looks up a string key.
func (t *Table) GetStr(key string) (Value, bool) {
	v, ok := t.strs[key]
	return v, ok
}

// DeleteStr removes a string key.
func (t *Table) DeleteStr(key string) { delete(t.strs, key) }

// Len returns the total number of entries, both key types.
func (t *Table) Len() int { return len(t.ints) + len(t.strs) }

// IntKeys returns all integer keys in ascending order.
func (t *Table) IntKeys() []int64 {
	keys := make([]int64, 0, len(t.ints))
	for k := range t.ints {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// StrKeys returns all string keys in lexicographic order.
func (t *Table) StrKeys() []string {
	keys := make([]string, 0, len(t.strs))
	for k := range t.strs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SeqLen returns n such that keys 1..n are all present, i.e. the length of
// the dense array prefix that the encoder may emit positionally.
func (t *Table) SeqLen() int64 {
	var n int64
	for {
		if _, ok := t.ints[n+1]; !ok {
			return n
		}
		n++
	}
}

// Equal reports deep structural equality with another table.
func (t *Table) Equal(other *Table) bool {
	if t == nil || other == nil {
		return t == other
	}
	if len(t.ints) != len(other.ints) || len(t.strs) != len(other.strs) {
		return false
	}
	for k, v := range t.ints {
		ov, ok := other.ints[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	for k, v := range t.strs {
		ov, ok := other.strs[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	c := NewTable()
	for k, v := range t.ints {
		c.ints[k] = cloneValue(v)
	}
	for k, v := range t.strs {
		c.strs[k] = cloneValue(v)
	}
	return c
}

func cloneValue(v Value) Value {
	if v.kind == KindTable {
		return TableVal(v.t.Clone())
	}
	return v
}

// Document is a decoded sidecar: the root table of the single table literal.
type Document struct {
	Root *Table
}

// NewDocument returns a document with an empty root table.
func NewDocument() *Document {
	return &Document{Root: NewTable()}
}

// Lookup walks a path of string keys from the root. An empty path returns
// the whole document as a table value. A missing intermediate or leaf key
// returns ok=false, never an error.
func (d *Document) Lookup(path ...string) (Value, bool) {
	cur := TableVal(d.Root)
	for _, key := range path {
		if cur.Kind() != KindTable {
			return Nil(), false
		}
		next, ok := cur.Table().GetStr(key)
		if !ok {
			return Nil(), false
		}
		cur = next
	}
	return cur, true
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	return &Document{Root: d.Root.Clone()}
}

// Equal reports deep structural equality with another document.
func (d *Document) Equal(other *Document) bool {
	if d == nil || other == nil {
		return d == other
	}
	return d.Root.Equal(other.Root)
}

// isDigits reports whether s is a non-empty pure sequence of decimal digits.
// Such string keys are re-coerced to integer keys by the encoder; see Encode.
func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// parseDigits converts a digit string to an int64, returning ok=false on
// overflow so absurd keys stay strings rather than corrupting the table.
func parseDigits(s string) (int64, bool) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
