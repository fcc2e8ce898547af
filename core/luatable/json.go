package luatable

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ToJSON marshals a document into the JSON form stored in the raw-sidecar
// library column. JSON objects have no integer-key primitive, so integer
// keys are stringified here; Encode coerces them back on the way out.
func ToJSON(doc *Document) ([]byte, error) {
	return json.Marshal(tableToAny(doc.Root))
}

// FromJSON rebuilds a document from its JSON form. Every object key comes
// back as a string key, including the digit strings that used to be integer
// keys; JSON arrays become tables keyed 1..n.
func FromJSON(data []byte) (*Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("luatable: invalid sidecar JSON: %w", err)
	}

	v, err := anyToValue(raw)
	if err != nil {
		return nil, err
	}
	if v.Kind() != KindTable {
		return nil, fmt.Errorf("luatable: sidecar JSON root is not an object")
	}
	return &Document{Root: v.Table()}, nil
}

func tableToAny(t *Table) map[string]any {
	out := make(map[string]any, t.Len())
	for _, k := range t.IntKeys() {
		v, _ := t.GetInt(k)
		out[strconv.FormatInt(k, 10)] = valueToAny(v)
	}
	for _, k := range t.StrKeys() {
		v, _ := t.GetStr(k)
		out[k] = valueToAny(v)
	}
	return out
}

func valueToAny(v Value) any {
	switch v.Kind() {
	case KindNil:
		return nil
	case KindBool:
		return v.Bool()
	case KindInt:
		return v.Int()
	case KindFloat:
		return v.Float()
	case KindString:
		return v.Str()
	case KindTable:
		return tableToAny(v.Table())
	}
	return nil
}

func anyToValue(raw any) (Value, error) {
	switch x := raw.(type) {
	case nil:
		return Nil(), nil
	case bool:
		return Bool(x), nil
	case string:
		return String(x), nil
	case json.Number:
		return numberToValue(x), nil
	case []any:
		t := NewTable()
		for i, elem := range x {
			v, err := anyToValue(elem)
			if err != nil {
				return Nil(), err
			}
			t.SetInt(int64(i+1), v)
		}
		return TableVal(t), nil
	case map[string]any:
		t := NewTable()
		for k, elem := range x {
			v, err := anyToValue(elem)
			if err != nil {
				return Nil(), err
			}
			t.SetStr(k, v)
		}
		return TableVal(t), nil
	default:
		return Nil(), fmt.Errorf("luatable: unsupported JSON value %T", raw)
	}
}

// numberToValue keeps the integer/float distinction: a literal without
// fraction or exponent that fits int64 stays an integer.
func numberToValue(n json.Number) Value {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if i, err := n.Int64(); err == nil {
			return Int(i)
		}
	}
	f, _ := n.Float64()
	return Float(f)
}
