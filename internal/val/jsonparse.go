package val

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"
)

// ParseJSON parses a single JSON text into a Val tree, used by from_json()
// and to read the initial piped input. Numbers become KindNumber (this
// value model has no integer/float distinction); objects become KindMap
// in source key order.
func ParseJSON(src string) (*Val, error) {
	p := &jsonParser{src: src}
	p.skipWS()
	v, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	p.skipWS()
	if p.pos != len(p.src) {
		return nil, fmt.Errorf("trailing data at offset %d", p.pos)
	}
	return v, nil
}

type jsonParser struct {
	src string
	pos int
}

func (p *jsonParser) skipWS() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\r', '\n':
			p.pos++
		default:
			return
		}
	}
}

func (p *jsonParser) peek() (byte, bool) {
	if p.pos >= len(p.src) {
		return 0, false
	}
	return p.src[p.pos], true
}

func (p *jsonParser) parseValue() (*Val, error) {
	c, ok := p.peek()
	if !ok {
		return nil, fmt.Errorf("unexpected end of JSON input")
	}
	switch {
	case c == '{':
		return p.parseObject()
	case c == '[':
		return p.parseArray()
	case c == '"':
		s, err := p.parseJSONStringLiteral()
		if err != nil {
			return nil, err
		}
		return NewString(s), nil
	case c == 't':
		return p.parseLiteral("true", True)
	case c == 'f':
		return p.parseLiteral("false", False)
	case c == 'n':
		return p.parseLiteral("null", Null)
	case c == '-' || (c >= '0' && c <= '9'):
		return p.parseNumber()
	default:
		return nil, fmt.Errorf("unexpected character %q at offset %d", c, p.pos)
	}
}

func (p *jsonParser) parseLiteral(lit string, v *Val) (*Val, error) {
	if p.pos+len(lit) > len(p.src) || p.src[p.pos:p.pos+len(lit)] != lit {
		return nil, fmt.Errorf("invalid literal at offset %d", p.pos)
	}
	p.pos += len(lit)
	return v, nil
}

func (p *jsonParser) parseNumber() (*Val, error) {
	start := p.pos
	if b, ok := p.peek(); ok && b == '-' {
		p.pos++
	}
	for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
		p.pos++
	}
	if b, ok := p.peek(); ok && b == '.' {
		p.pos++
		for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
			p.pos++
		}
	}
	if b, ok := p.peek(); ok && (b == 'e' || b == 'E') {
		p.pos++
		if b, ok := p.peek(); ok && (b == '+' || b == '-') {
			p.pos++
		}
		for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
			p.pos++
		}
	}
	text := p.src[start:p.pos]
	n, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q at offset %d", text, start)
	}
	return NewNumber(n), nil
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func (p *jsonParser) parseArray() (*Val, error) {
	p.pos++ // '['
	var items []*Val
	p.skipWS()
	if b, ok := p.peek(); ok && b == ']' {
		p.pos++
		return NewList(items), nil
	}
	for {
		p.skipWS()
		item, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		p.skipWS()
		b, ok := p.peek()
		if !ok {
			return nil, fmt.Errorf("unterminated array")
		}
		if b == ',' {
			p.pos++
			continue
		}
		if b == ']' {
			p.pos++
			return NewList(items), nil
		}
		return nil, fmt.Errorf("expected ',' or ']' at offset %d", p.pos)
	}
}

func (p *jsonParser) parseObject() (*Val, error) {
	p.pos++ // '{'
	m := NewOrderedMap()
	p.skipWS()
	if b, ok := p.peek(); ok && b == '}' {
		p.pos++
		return NewMap(m), nil
	}
	for {
		p.skipWS()
		b, ok := p.peek()
		if !ok || b != '"' {
			return nil, fmt.Errorf("expected string key at offset %d", p.pos)
		}
		key, err := p.parseJSONStringLiteral()
		if err != nil {
			return nil, err
		}
		p.skipWS()
		b, ok = p.peek()
		if !ok || b != ':' {
			return nil, fmt.Errorf("expected ':' at offset %d", p.pos)
		}
		p.pos++
		p.skipWS()
		value, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		m.Insert(NewString(key), value)
		p.skipWS()
		b, ok = p.peek()
		if !ok {
			return nil, fmt.Errorf("unterminated object")
		}
		if b == ',' {
			p.pos++
			continue
		}
		if b == '}' {
			p.pos++
			return NewMap(m), nil
		}
		return nil, fmt.Errorf("expected ',' or '}' at offset %d", p.pos)
	}
}

func (p *jsonParser) parseJSONStringLiteral() (string, error) {
	p.pos++ // opening quote
	var sb strings.Builder
	for {
		if p.pos >= len(p.src) {
			return "", fmt.Errorf("unterminated string")
		}
		c := p.src[p.pos]
		if c == '"' {
			p.pos++
			return sb.String(), nil
		}
		if c == '\\' {
			p.pos++
			if p.pos >= len(p.src) {
				return "", fmt.Errorf("unterminated escape")
			}
			esc := p.src[p.pos]
			switch esc {
			case '"', '\\', '/':
				sb.WriteByte(esc)
				p.pos++
			case 'n':
				sb.WriteByte('\n')
				p.pos++
			case 't':
				sb.WriteByte('\t')
				p.pos++
			case 'r':
				sb.WriteByte('\r')
				p.pos++
			case 'b':
				sb.WriteByte('\b')
				p.pos++
			case 'f':
				sb.WriteByte('\f')
				p.pos++
			case 'u':
				p.pos++
				r, err := p.readHex4()
				if err != nil {
					return "", err
				}
				if utf16.IsSurrogate(rune(r)) {
					if p.pos+1 < len(p.src) && p.src[p.pos] == '\\' && p.src[p.pos+1] == 'u' {
						p.pos += 2
						r2, err := p.readHex4()
						if err != nil {
							return "", err
						}
						dec := utf16.DecodeRune(rune(r), rune(r2))
						sb.WriteRune(dec)
					} else {
						sb.WriteRune(rune(r))
					}
				} else {
					sb.WriteRune(rune(r))
				}
			default:
				return "", fmt.Errorf("invalid escape \\%c", esc)
			}
			continue
		}
		sb.WriteByte(c)
		p.pos++
	}
}

func (p *jsonParser) readHex4() (uint32, error) {
	if p.pos+4 > len(p.src) {
		return 0, fmt.Errorf("invalid unicode escape")
	}
	n, err := strconv.ParseUint(p.src[p.pos:p.pos+4], 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid unicode escape: %w", err)
	}
	p.pos += 4
	return uint32(n), nil
}
