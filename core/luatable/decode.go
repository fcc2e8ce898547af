package luatable

import (
	"fmt"
	"strconv"
	"strings"
)

// DecodeError describes a malformed sidecar. Decoding is all-or-nothing: a
// DecodeError means no document was produced.
type DecodeError struct {
	// Offset is the byte offset into the table literal where parsing failed.
	Offset int
	// Msg describes the grammar violation.
	Msg string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("luatable: decode error at offset %d: %s", e.Offset, e.Msg)
}

// Decode parses sidecar text into a Document. Everything before the first
// '{' is treated as preamble (comments, the return statement) and discarded.
// The remainder must contain exactly one well-formed table literal; trailing
// text after the closing brace is ignored, matching how a Lua loader only
// evaluates the returned expression.
func Decode(text string) (*Document, error) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return nil, &DecodeError{Offset: 0, Msg: "no table literal found"}
	}

	p := &parser{src: text[start:]}
	root, err := p.parseTable()
	if err != nil {
		return nil, err
	}
	return &Document{Root: root}, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) errf(format string, args ...any) *DecodeError {
	return &DecodeError{Offset: p.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) peek() byte { return p.src[p.pos] }

// skipSpace advances past whitespace and Lua comments (both `--` line
// comments and `--[[ ]]` long comments).
func (p *parser) skipSpace() {
	for !p.eof() {
		c := p.peek()
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			p.pos++
		case c == '-' && p.pos+1 < len(p.src) && p.src[p.pos+1] == '-':
			p.pos += 2
			if level, ok := p.longBracketOpen(); ok {
				p.skipLongBracket(level)
				continue
			}
			for !p.eof() && p.peek() != '\n' {
				p.pos++
			}
		default:
			return
		}
	}
}

// longBracketOpen consumes `[=*[` if present at the cursor and returns the
// equals-sign level.
func (p *parser) longBracketOpen() (int, bool) {
	if p.eof() || p.peek() != '[' {
		return 0, false
	}
	i := p.pos + 1
	level := 0
	for i < len(p.src) && p.src[i] == '=' {
		level++
		i++
	}
	if i < len(p.src) && p.src[i] == '[' {
		p.pos = i + 1
		return level, true
	}
	return 0, false
}

// skipLongBracket advances past the body and closing `]=*]` of a long
// bracket already opened at the given level. Used for long comments where an
// unterminated body is tolerated (the rest of the input is comment).
func (p *parser) skipLongBracket(level int) {
	closing := "]" + strings.Repeat("=", level) + "]"
	idx := strings.Index(p.src[p.pos:], closing)
	if idx < 0 {
		p.pos = len(p.src)
		return
	}
	p.pos += idx + len(closing)
}

// parseTable parses a `{ ... }` literal. The cursor must be on the opening
// brace. Bare positional values receive sequential integer keys starting at
// 1, in literal order.
func (p *parser) parseTable() (*Table, error) {
	if p.eof() || p.peek() != '{' {
		return nil, p.errf("expected '{'")
	}
	p.pos++

	t := NewTable()
	var nextIndex int64 = 1

	for {
		p.skipSpace()
		if p.eof() {
			return nil, p.errf("unterminated table")
		}

		c := p.peek()
		if c == '}' {
			p.pos++
			return t, nil
		}
		if c == ',' || c == ';' {
			p.pos++
			continue
		}

		if c == '[' {
			// Either a bracketed key `[k] = v` or a long-bracket string as a
			// positional value. Disambiguate by what follows the '['.
			if p.isLongBracketAt(p.pos) {
				v, err := p.parseValue()
				if err != nil {
					return nil, err
				}
				t.SetInt(nextIndex, v)
				nextIndex++
				continue
			}
			if err := p.parseBracketedEntry(t); err != nil {
				return nil, err
			}
			continue
		}

		if isIdentStart(c) {
			// Could be `name = value` or a bare keyword value (true, false,
			// nil). Look ahead for '=' that is not '=='.
			ident := p.peekIdent()
			after := p.pos + len(ident)
			j := after
			for j < len(p.src) && isSpace(p.src[j]) {
				j++
			}
			if j < len(p.src) && p.src[j] == '=' && (j+1 >= len(p.src) || p.src[j+1] != '=') {
				p.pos = j + 1
				p.skipSpace()
				v, err := p.parseValue()
				if err != nil {
					return nil, err
				}
				t.SetStr(ident, v)
				continue
			}
		}

		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		t.SetInt(nextIndex, v)
		nextIndex++
	}
}

// parseBracketedEntry parses `[<key-expr>] = <value>` with the cursor on '['.
func (p *parser) parseBracketedEntry(t *Table) error {
	p.pos++ // consume '['
	p.skipSpace()

	key, err := p.parseValue()
	if err != nil {
		return err
	}

	p.skipSpace()
	if p.eof() || p.peek() != ']' {
		return p.errf("expected ']' after table key")
	}
	p.pos++
	p.skipSpace()
	if p.eof() || p.peek() != '=' {
		return p.errf("expected '=' after table key")
	}
	p.pos++
	p.skipSpace()

	v, err := p.parseValue()
	if err != nil {
		return err
	}

	switch key.Kind() {
	case KindInt:
		t.SetInt(key.Int(), v)
	case KindFloat:
		// Lua normalizes float keys with no fractional part to integers.
		f := key.Float()
		if f == float64(int64(f)) {
			t.SetInt(int64(f), v)
		} else {
			return p.errf("non-integer numeric table key %v", f)
		}
	case KindString:
		t.SetStr(key.Str(), v)
	default:
		return p.errf("unsupported table key kind %d", key.Kind())
	}
	return nil
}

// parseValue parses one scalar or table value with the cursor on its first
// character.
func (p *parser) parseValue() (Value, error) {
	if p.eof() {
		return Nil(), p.errf("unexpected end of input")
	}

	switch c := p.peek(); {
	case c == '{':
		t, err := p.parseTable()
		if err != nil {
			return Nil(), err
		}
		return TableVal(t), nil
	case c == '"' || c == '\'':
		return p.parseQuotedString(c)
	case c == '[':
		if level, ok := p.longBracketOpen(); ok {
			return p.parseLongString(level)
		}
		return Nil(), p.errf("unexpected '['")
	case c == '-' || c == '+' || (c >= '0' && c <= '9') || c == '.':
		return p.parseNumber()
	case isIdentStart(c):
		ident := p.peekIdent()
		p.pos += len(ident)
		switch ident {
		case "nil":
			return Nil(), nil
		case "true":
			return Bool(true), nil
		case "false":
			return Bool(false), nil
		}
		return Nil(), p.errf("unexpected identifier %q", ident)
	default:
		return Nil(), p.errf("unexpected character %q", c)
	}
}

// parseQuotedString parses a single- or double-quoted string with Lua escape
// sequences. The cursor is on the opening quote.
func (p *parser) parseQuotedString(quote byte) (Value, error) {
	p.pos++
	var sb strings.Builder
	for {
		if p.eof() {
			return Nil(), p.errf("unterminated string")
		}
		c := p.peek()
		if c == quote {
			p.pos++
			return String(sb.String()), nil
		}
		if c == '\n' {
			return Nil(), p.errf("unterminated string")
		}
		if c != '\\' {
			sb.WriteByte(c)
			p.pos++
			continue
		}

		p.pos++
		if p.eof() {
			return Nil(), p.errf("unterminated string")
		}
		e := p.peek()
		p.pos++
		switch e {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case 'a':
			sb.WriteByte(7)
		case 'b':
			sb.WriteByte(8)
		case 'f':
			sb.WriteByte(12)
		case 'v':
			sb.WriteByte(11)
		case '\\', '"', '\'':
			sb.WriteByte(e)
		case '\n':
			sb.WriteByte('\n')
		case 'x':
			if p.pos+2 > len(p.src) {
				return Nil(), p.errf("truncated \\x escape")
			}
			n, err := strconv.ParseUint(p.src[p.pos:p.pos+2], 16, 8)
			if err != nil {
				return Nil(), p.errf("invalid \\x escape")
			}
			sb.WriteByte(byte(n))
			p.pos += 2
		default:
			if e >= '0' && e <= '9' {
				// Up to three decimal digits.
				n := int(e - '0')
				for k := 0; k < 2 && !p.eof(); k++ {
					d := p.peek()
					if d < '0' || d > '9' {
						break
					}
					n = n*10 + int(d-'0')
					p.pos++
				}
				if n > 255 {
					return Nil(), p.errf("decimal escape out of range")
				}
				sb.WriteByte(byte(n))
				continue
			}
			return Nil(), p.errf("invalid escape sequence \\%c", e)
		}
	}
}

// parseLongString parses the body of a long-bracket string whose opener was
// already consumed at the given level. A newline immediately after the
// opener is skipped, as in Lua.
func (p *parser) parseLongString(level int) (Value, error) {
	if !p.eof() && p.peek() == '\n' {
		p.pos++
	}
	closing := "]" + strings.Repeat("=", level) + "]"
	idx := strings.Index(p.src[p.pos:], closing)
	if idx < 0 {
		return Nil(), p.errf("unterminated long string")
	}
	s := p.src[p.pos : p.pos+idx]
	p.pos += idx + len(closing)
	return String(s), nil
}

// isLongBracketAt reports whether a long-bracket opener starts at i without
// consuming it.
func (p *parser) isLongBracketAt(i int) bool {
	if i >= len(p.src) || p.src[i] != '[' {
		return false
	}
	j := i + 1
	for j < len(p.src) && p.src[j] == '=' {
		j++
	}
	return j < len(p.src) && p.src[j] == '['
}

// parseNumber parses an integer or float literal, including scientific
// notation and hexadecimal integers. The integer/float distinction is kept
// in the value kind.
func (p *parser) parseNumber() (Value, error) {
	start := p.pos
	if !p.eof() && (p.peek() == '-' || p.peek() == '+') {
		p.pos++
	}

	// Hexadecimal integer.
	if p.pos+1 < len(p.src) && p.src[p.pos] == '0' && (p.src[p.pos+1] == 'x' || p.src[p.pos+1] == 'X') {
		p.pos += 2
		digitStart := p.pos
		for !p.eof() && isHexDigit(p.peek()) {
			p.pos++
		}
		if p.pos == digitStart {
			return Nil(), p.errf("malformed hexadecimal number")
		}
		n, err := strconv.ParseInt(p.src[start:p.pos], 0, 64)
		if err != nil {
			return Nil(), p.errf("malformed hexadecimal number")
		}
		return Int(n), nil
	}

	isFloat := false
	for !p.eof() {
		c := p.peek()
		switch {
		case c >= '0' && c <= '9':
			p.pos++
		case c == '.':
			isFloat = true
			p.pos++
		case c == 'e' || c == 'E':
			isFloat = true
			p.pos++
			if !p.eof() && (p.peek() == '-' || p.peek() == '+') {
				p.pos++
			}
		default:
			goto done
		}
	}
done:
	lit := p.src[start:p.pos]
	if lit == "" || lit == "-" || lit == "+" {
		return Nil(), p.errf("malformed number")
	}
	if !isFloat {
		if n, err := strconv.ParseInt(lit, 10, 64); err == nil {
			return Int(n), nil
		}
		// Out of int64 range; fall back to float.
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return Nil(), p.errf("malformed number %q", lit)
	}
	return Float(f), nil
}

func (p *parser) peekIdent() string {
	i := p.pos
	for i < len(p.src) && isIdentPart(p.src[i]) {
		i++
	}
	return p.src[p.pos:i]
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
