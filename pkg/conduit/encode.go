package conduit

import (
	"net/url"
	"strconv"
	"strings"
)

const tokenField = "api.token"

// Pair is one flattened name=value unit of a request body.
type Pair struct {
	Name  string
	Value string
}

// String returns the raw "name=value" form without any escaping.
func (p Pair) String() string {
	return p.Name + "=" + p.Value
}

// Encode flattens a parameter tree into wire pairs using PHP bracket naming.
// Top-level map keys are bare names; anything deeper is bracket-indexed.
func Encode(p Param) []Pair {
	return appendPairs(nil, "", p, false)
}

func appendPairs(dst []Pair, prefix string, p Param, nested bool) []Pair {
	switch p.kind {
	case KindString:
		dst = append(dst, Pair{Name: prefix, Value: p.str})
	case KindMap:
		for _, f := range p.fields {
			name := f.Key
			if nested {
				name = prefix + "[" + f.Key + "]"
			}
			dst = appendPairs(dst, name, f.Value, true)
		}
	case KindList:
		for i, item := range p.list {
			dst = appendPairs(dst, prefix+"["+strconv.Itoa(i)+"]", item, true)
		}
	}
	return dst
}

// ManualBody builds a manual-mode body: api.token first, then the encoded
// pairs, joined with "&". Values are written as-is; anything that needs
// escaping must already be escaped by the caller (see Quote).
func ManualBody(token string, p Param) string {
	pairs := Encode(p)
	parts := make([]string, 0, len(pairs)+1)
	parts = append(parts, Pair{Name: tokenField, Value: token}.String())
	for _, pair := range pairs {
		parts = append(parts, pair.String())
	}
	return strings.Join(parts, "&")
}

// StandardBody builds a form-urlencoded body from a flat map. api.token
// replaces an existing key in place or is appended last.
func StandardBody(token string, p Param) (string, error) {
	switch p.kind {
	case KindNone, KindMap:
	default:
		return "", NewInvalidParamsError("standard encoding requires a flat map, got " + p.kind.String())
	}
	flat := p.Set(tokenField, String(token))
	parts := make([]string, 0, len(flat.fields))
	for _, f := range flat.fields {
		if f.Value.kind != KindString {
			return "", NewInvalidParamsError("standard encoding cannot carry nested value for " + strconv.Quote(f.Key))
		}
		parts = append(parts, url.QueryEscape(f.Key)+"="+url.QueryEscape(f.Value.str))
	}
	return strings.Join(parts, "&"), nil
}

const upperHex = "0123456789ABCDEF"

// Quote percent-encodes every byte outside A-Z a-z 0-9 and "_.-~/".
// Manual-mode call sites use it for free text.
func Quote(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isQuoteSafe(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperHex[c>>4])
		b.WriteByte(upperHex[c&15])
	}
	return b.String()
}

func isQuoteSafe(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '_', '.', '-', '~', '/':
		return true
	}
	return false
}
