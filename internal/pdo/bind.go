package pdo

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// Params are execute-time parameters. Keys follow the BindValue rules;
// invalid keys are ignored.
type Params map[any]any

// paramKey is a normalized parameter key. Named keys keep their leading
// colon; positional keys sort by pos, then by name.
type paramKey struct {
	named bool
	name  string
	pos   int
}

// makeKey accepts a non-empty string or any integer. Strings starting with
// ':' are named; every other key is positional.
func makeKey(k any) (paramKey, bool) {
	switch v := k.(type) {
	case string:
		if v == "" {
			return paramKey{}, false
		}
		if v[0] == ':' {
			return paramKey{named: true, name: v}, true
		}
		if n, err := strconv.Atoi(v); err == nil {
			return paramKey{pos: n}, true
		}
		return paramKey{name: v, pos: math.MaxInt}, true
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		n, err := cast.ToIntE(v)
		if err != nil {
			return paramKey{}, false
		}
		return paramKey{pos: n}, true
	default:
		return paramKey{}, false
	}
}

func comparePositional(a, b paramKey) int {
	if c := cmp.Compare(a.pos, b.pos); c != 0 {
		return c
	}
	return strings.Compare(a.name, b.name)
}

// literal coerces v to a string, escapes it and wraps it in single quotes.
func literal(v any, escape func(string) (string, error)) (string, error) {
	s, err := cast.ToStringE(v)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidParameter, err)
	}
	esc, err := escape(s)
	if err != nil {
		return "", err
	}
	return "'" + esc + "'", nil
}

// substitute replaces placeholders in query with the escaped literals of
// params. A single left-to-right scan consumes one '?' per positional key
// in key order and replaces every ':name' token whose name is bound.
// Quoted literals, quoted identifiers and '::' casts are copied verbatim;
// backslash marks an escaped character inside them only when backslash is
// set, and inside E'...' literals. Placeholders without a binding are left
// as they are.
func substitute(query string, params map[paramKey]any, escape func(string) (string, error), backslash bool) (string, error) {
	if len(params) == 0 {
		return query, nil
	}

	named := make(map[string]string)
	var positional []paramKey
	for k := range params {
		if k.named {
			named[k.name] = ""
		} else {
			positional = append(positional, k)
		}
	}
	slices.SortFunc(positional, comparePositional)

	for name := range named {
		lit, err := literal(params[paramKey{named: true, name: name}], escape)
		if err != nil {
			return "", fmt.Errorf("%s: %w", name, err)
		}
		named[name] = lit
	}
	queue := make([]string, len(positional))
	for i, k := range positional {
		lit, err := literal(params[k], escape)
		if err != nil {
			return "", fmt.Errorf("parameter %s: %w", k, err)
		}
		queue[i] = lit
	}

	var b strings.Builder
	b.Grow(len(query))
	for i := 0; i < len(query); {
		c := query[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			end := quotedEnd(query, i, backslash)
			b.WriteString(query[i:end])
			i = end
		case c == '?':
			if len(queue) > 0 {
				b.WriteString(queue[0])
				queue = queue[1:]
			} else {
				b.WriteByte(c)
			}
			i++
		case c == ':' && i+1 < len(query) && query[i+1] == ':':
			b.WriteString("::")
			i += 2
		case c == ':':
			end := i + 1
			for end < len(query) && isNameByte(query[end]) {
				end++
			}
			token := query[i:end]
			if lit, ok := named[token]; ok && end > i+1 {
				b.WriteString(lit)
			} else {
				b.WriteString(token)
			}
			i = end
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String(), nil
}

// quotedEnd returns the index just past the literal opened at query[start].
// With backslash set, backslash escapes apply inside single and double
// quotes; a single-quoted literal prefixed by a lone E always honors them.
// An unterminated literal runs to the end of the query.
func quotedEnd(query string, start int, backslash bool) int {
	q := query[start]
	escapes := backslash && q != '`' || q == '\'' && isEscapePrefix(query, start)
	for i := start + 1; i < len(query); i++ {
		switch query[i] {
		case '\\':
			if escapes {
				i++
			}
		case q:
			return i + 1
		}
	}
	return len(query)
}

// isEscapePrefix reports whether the literal at query[start] is an E'...'
// escape string literal.
func isEscapePrefix(query string, start int) bool {
	if start == 0 || query[start-1] != 'E' && query[start-1] != 'e' {
		return false
	}
	return start == 1 || !isNameByte(query[start-2])
}

func isNameByte(c byte) bool {
	return c == '_' || '0' <= c && c <= '9' || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z'
}

func (k paramKey) String() string {
	if k.named || k.pos == math.MaxInt {
		return k.name
	}
	return strconv.Itoa(k.pos)
}
