package luatable

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// preamble is the fixed comment KOReader sidecars written by this tool carry.
// It matches what the device-side writer produces, byte for byte.
const preamble = "-- we can read Lua syntax here!\nreturn "

// luaKeywords are identifiers that must be bracket-quoted when used as keys.
var luaKeywords = map[string]struct{}{
	"and": {}, "break": {}, "do": {}, "else": {}, "elseif": {}, "end": {},
	"false": {}, "for": {}, "function": {}, "goto": {}, "if": {}, "in": {},
	"local": {}, "nil": {}, "not": {}, "or": {}, "repeat": {}, "return": {},
	"then": {}, "true": {}, "until": {}, "while": {},
}

// Encode renders a document as sidecar text: the fixed preamble, a return
// statement, and one deterministic table literal terminated by a newline.
//
// Keys forming a contiguous 1..n sequence are emitted as bare positional
// entries in ascending order; remaining integer keys as [N] = v; string keys
// bare when they are valid identifiers, bracket-quoted otherwise. String
// keys that are pure digit sequences are coerced back to integer keys first:
// the JSON intermediate cannot express integer keys, so the encoder is the
// place where that erasure gets undone. A genuinely string-typed key that
// happens to be all digits is coerced too; the source format cannot tell the
// two apart and KOReader only ever produces the integer form.
func Encode(doc *Document) string {
	var sb strings.Builder
	sb.WriteString(preamble)
	encodeTable(&sb, doc.Root, 1)
	sb.WriteByte('\n')
	return sb.String()
}

// encodeValue renders a single value at the given indent depth.
func encodeValue(sb *strings.Builder, v Value, depth int) {
	switch v.Kind() {
	case KindNil:
		sb.WriteString("nil")
	case KindBool:
		if v.Bool() {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
	case KindInt:
		sb.WriteString(strconv.FormatInt(v.Int(), 10))
	case KindFloat:
		sb.WriteString(formatFloat(v.Float()))
	case KindString:
		encodeString(sb, v.Str())
	case KindTable:
		encodeTable(sb, v.Table(), depth)
	}
}

func encodeTable(sb *strings.Builder, t *Table, depth int) {
	intKeys, strKeys := normalizedKeys(t)
	if len(intKeys) == 0 && len(strKeys) == 0 {
		sb.WriteString("{}")
		return
	}

	indent := strings.Repeat("    ", depth)
	closeIndent := strings.Repeat("    ", depth-1)
	sb.WriteString("{\n")

	// Dense prefix 1..n goes out positionally.
	var seq int64
	for len(intKeys) > 0 && intKeys[0] == seq+1 {
		seq++
		key := intKeys[0]
		intKeys = intKeys[1:]
		sb.WriteString(indent)
		encodeValue(sb, mustGetInt(t, key), depth+1)
		sb.WriteString(",\n")
	}

	for _, key := range intKeys {
		sb.WriteString(indent)
		sb.WriteByte('[')
		sb.WriteString(strconv.FormatInt(key, 10))
		sb.WriteString("] = ")
		encodeValue(sb, mustGetInt(t, key), depth+1)
		sb.WriteString(",\n")
	}

	for _, key := range strKeys {
		sb.WriteString(indent)
		if isBareIdent(key) {
			sb.WriteString(key)
		} else {
			sb.WriteByte('[')
			encodeString(sb, key)
			sb.WriteByte(']')
		}
		sb.WriteString(" = ")
		v, _ := t.GetStr(key)
		encodeValue(sb, v, depth+1)
		sb.WriteString(",\n")
	}

	sb.WriteString(closeIndent)
	sb.WriteByte('}')
}

// normalizedKeys returns the table's keys with digit-string keys coerced to
// integer keys. On a collision the native integer entry wins.
func normalizedKeys(t *Table) ([]int64, []string) {
	intKeys := t.IntKeys()
	var strKeys []string
	coerced := make(map[int64]struct{})
	for _, k := range t.StrKeys() {
		if isDigits(k) {
			if n, ok := parseDigits(k); ok {
				if _, exists := t.GetInt(n); !exists {
					if _, dup := coerced[n]; !dup {
						coerced[n] = struct{}{}
						intKeys = append(intKeys, n)
					}
				}
				continue
			}
		}
		strKeys = append(strKeys, k)
	}
	if len(coerced) > 0 {
		sort.Slice(intKeys, func(i, j int) bool { return intKeys[i] < intKeys[j] })
	}
	return intKeys, strKeys
}

// mustGetInt fetches an integer-keyed entry that normalizedKeys may have
// sourced from a coerced digit-string key.
func mustGetInt(t *Table, key int64) Value {
	if v, ok := t.GetInt(key); ok {
		return v
	}
	v, _ := t.GetStr(strconv.FormatInt(key, 10))
	return v
}

// encodeString writes a double-quoted string literal. Tabs in the payload
// become four spaces: the sidecar format's indentation convention forbids
// literal tabs inside these files.
func encodeString(sb *strings.Builder, s string) {
	s = strings.ReplaceAll(s, "\t", "    ")
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			sb.WriteString("\\\"")
		case '\\':
			sb.WriteString("\\\\")
		case '\n':
			sb.WriteString("\\n")
		case '\r':
			sb.WriteString("\\r")
		default:
			if c < 0x20 {
				// Always three digits so a following literal digit cannot
				// extend the escape on the way back in.
				sb.WriteByte('\\')
				sb.WriteString(fmt.Sprintf("%03d", c))
			} else {
				sb.WriteByte(c)
			}
		}
	}
	sb.WriteByte('"')
}

// formatFloat renders a float with an explicit decimal point and without
// scientific notation for ordinary magnitudes, so an integer-valued float
// still reads back as a float.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".") {
		s += ".0"
	}
	return s
}

// isBareIdent reports whether a key can be emitted without bracket quoting.
func isBareIdent(s string) bool {
	if s == "" {
		return false
	}
	if _, kw := luaKeywords[s]; kw {
		return false
	}
	if !isIdentStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isIdentPart(s[i]) {
			return false
		}
	}
	return true
}
