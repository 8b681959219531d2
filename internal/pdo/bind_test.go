package pdo

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func backslashEscape(s string) (string, error) {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s), nil
}

func keyed(pairs ...any) map[paramKey]any {
	m := make(map[paramKey]any)
	for i := 0; i < len(pairs); i += 2 {
		k, ok := makeKey(pairs[i])
		if !ok {
			panic("invalid key in test fixture")
		}
		m[k] = pairs[i+1]
	}
	return m
}

func TestSubstitute(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		params map[paramKey]any
		want   string
	}{
		{
			name:   "named",
			query:  "SELECT * FROM t WHERE id = :id",
			params: keyed(":id", 5),
			want:   "SELECT * FROM t WHERE id = '5'",
		},
		{
			name:   "named repeated",
			query:  "SELECT * FROM t WHERE a = :x OR b = :x",
			params: keyed(":x", "v"),
			want:   "SELECT * FROM t WHERE a = 'v' OR b = 'v'",
		},
		{
			name:   "named matches whole token only",
			query:  "SELECT :id, :idx",
			params: keyed(":id", 1),
			want:   "SELECT '1', :idx",
		},
		{
			name:   "positional in key order",
			query:  "INSERT INTO t VALUES (?, ?, ?)",
			params: keyed(3, "c", 1, "a", 2, "b"),
			want:   "INSERT INTO t VALUES ('a', 'b', 'c')",
		},
		{
			name:   "positional string keys",
			query:  "SELECT ?, ?",
			params: keyed("2", "second", "1", "first"),
			want:   "SELECT 'first', 'second'",
		},
		{
			name:   "fewer bindings than placeholders",
			query:  "INSERT INTO t VALUES (?, ?)",
			params: keyed(1, "a"),
			want:   "INSERT INTO t VALUES ('a', ?)",
		},
		{
			name:   "extra bindings ignored",
			query:  "SELECT ?",
			params: keyed(1, "a", 2, "b"),
			want:   "SELECT 'a'",
		},
		{
			name:   "question mark inside literal",
			query:  "SELECT * FROM t WHERE a = '?' AND b = ?",
			params: keyed(1, "x"),
			want:   "SELECT * FROM t WHERE a = '?' AND b = 'x'",
		},
		{
			name:   "escaped quote inside literal",
			query:  `SELECT * FROM t WHERE a = 'it\'s ?' AND b = ?`,
			params: keyed(1, "x"),
			want:   `SELECT * FROM t WHERE a = 'it\'s ?' AND b = 'x'`,
		},
		{
			name:   "named token inside literal",
			query:  "SELECT * FROM t WHERE a = ':id' AND b = :id",
			params: keyed(":id", 7),
			want:   "SELECT * FROM t WHERE a = ':id' AND b = '7'",
		},
		{
			name:   "quoted identifiers",
			query:  "SELECT `?`, \"?\" FROM t WHERE a = ?",
			params: keyed(1, "x"),
			want:   "SELECT `?`, \"?\" FROM t WHERE a = 'x'",
		},
		{
			name:   "cast is not a named token",
			query:  "SELECT :v::int",
			params: keyed(":v", 3),
			want:   "SELECT '3'::int",
		},
		{
			name:   "value is escaped",
			query:  "SELECT * FROM t WHERE name = :n",
			params: keyed(":n", `O'Brien\`),
			want:   `SELECT * FROM t WHERE name = 'O\'Brien\\'`,
		},
		{
			name:   "substituted text is not rescanned",
			query:  "SELECT ?, ?",
			params: keyed(1, "?", 2, ":x"),
			want:   "SELECT '?', ':x'",
		},
		{
			name:   "named and positional together",
			query:  "UPDATE t SET name = ? WHERE id = :id",
			params: keyed(":id", 2, 1, "beta"),
			want:   "UPDATE t SET name = 'beta' WHERE id = '2'",
		},
		{
			name:   "bare colon",
			query:  "SELECT ':' || :a, a : b",
			params: keyed(":a", "x"),
			want:   "SELECT ':' || 'x', a : b",
		},
		{
			name:   "no parameters",
			query:  "SELECT * FROM t WHERE a = ? AND b = :b",
			params: nil,
			want:   "SELECT * FROM t WHERE a = ? AND b = :b",
		},
		{
			name:   "pointer values are dereferenced",
			query:  "SELECT :p",
			params: keyed(":p", ptr("deref")),
			want:   "SELECT 'deref'",
		},
		{
			name:   "nil value becomes empty literal",
			query:  "SELECT :p",
			params: keyed(":p", nil),
			want:   "SELECT ''",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := substitute(tt.query, tt.params, backslashEscape, true)
			if err != nil {
				t.Fatalf("substitute: %v", err)
			}
			if got != tt.want {
				t.Errorf("substitute(%q)\n got  %q\n want %q", tt.query, got, tt.want)
			}
		})
	}
}

func ptr[T any](v T) *T { return &v }

func doubleQuotes(s string) (string, error) {
	return strings.ReplaceAll(s, "'", "''"), nil
}

func TestSubstituteStandardStrings(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{
			name:  "trailing backslash closes the literal",
			query: `SELECT * FROM t WHERE path = 'C:\' AND id = ?`,
			want:  `SELECT * FROM t WHERE path = 'C:\' AND id = '1'`,
		},
		{
			name:  "doubled quote stays inside the literal",
			query: "SELECT * FROM t WHERE a = 'it''s ?' AND id = ?",
			want:  "SELECT * FROM t WHERE a = 'it''s ?' AND id = '1'",
		},
		{
			name:  "double-quoted identifier ends at backslash quote",
			query: `SELECT "a\" FROM t WHERE id = ?`,
			want:  `SELECT "a\" FROM t WHERE id = '1'`,
		},
		{
			name:  "escape string literal honors backslash",
			query: `SELECT E'it\'s ?' AND id = ?`,
			want:  `SELECT E'it\'s ?' AND id = '1'`,
		},
		{
			name:  "identifier ending in e is not an escape prefix",
			query: `SELECT note='C:\' AND id = ?`,
			want:  `SELECT note='C:\' AND id = '1'`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := substitute(tt.query, keyed(1, 1), doubleQuotes, false)
			if err != nil {
				t.Fatalf("substitute: %v", err)
			}
			if got != tt.want {
				t.Errorf("substitute(%q)\n got  %q\n want %q", tt.query, got, tt.want)
			}
		})
	}
}

func TestSubstituteBackslashModes(t *testing.T) {
	query := `SELECT 'C:\' AND id = ?`
	withEscapes, err := substitute(query, keyed(1, 1), backslashEscape, true)
	if err != nil {
		t.Fatal(err)
	}
	if withEscapes != query {
		t.Errorf("backslash mode filled a placeholder inside the literal: %q", withEscapes)
	}
	standard, err := substitute(query, keyed(1, 1), doubleQuotes, false)
	if err != nil {
		t.Fatal(err)
	}
	if want := `SELECT 'C:\' AND id = '1'`; standard != want {
		t.Errorf("standard mode = %q, want %q", standard, want)
	}
}

func TestSubstituteInvalidValue(t *testing.T) {
	_, err := substitute("SELECT :p", keyed(":p", struct{}{}), backslashEscape, true)
	if !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("err = %v, want ErrInvalidParameter", err)
	}
}

func TestSubstituteEscapeError(t *testing.T) {
	boom := errors.New("boom")
	_, err := substitute("SELECT ?", keyed(1, "x"), func(string) (string, error) { return "", boom }, true)
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want escape error", err)
	}
}

func TestMakeKey(t *testing.T) {
	tests := []struct {
		name  string
		key   any
		want  paramKey
		valid bool
	}{
		{name: "named", key: ":id", want: paramKey{named: true, name: ":id"}, valid: true},
		{name: "numeric string", key: "2", want: paramKey{pos: 2}, valid: true},
		{name: "int", key: 1, want: paramKey{pos: 1}, valid: true},
		{name: "int64", key: int64(4), want: paramKey{pos: 4}, valid: true},
		{name: "uint8", key: uint8(3), want: paramKey{pos: 3}, valid: true},
		{name: "bare name is positional", key: "id", want: paramKey{name: "id", pos: math.MaxInt}, valid: true},
		{name: "empty string", key: "", valid: false},
		{name: "float", key: 1.5, valid: false},
		{name: "bool", key: true, valid: false},
		{name: "nil", key: nil, valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := makeKey(tt.key)
			if ok != tt.valid {
				t.Fatalf("makeKey(%v) ok = %v, want %v", tt.key, ok, tt.valid)
			}
			if ok && got != tt.want {
				t.Errorf("makeKey(%v) = %+v, want %+v", tt.key, got, tt.want)
			}
		})
	}
}

func TestIsSelect(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"SELECT 1", true},
		{"select * from t", true},
		{"  \n\tSeLeCt 1", true},
		{"INSERT INTO t VALUES (1)", false},
		{"sel", false},
		{"", false},
		{"WITH x AS (SELECT 1) SELECT * FROM x", false},
	}
	for _, tt := range tests {
		if got := isSelect(tt.query); got != tt.want {
			t.Errorf("isSelect(%q) = %v, want %v", tt.query, got, tt.want)
		}
	}
}
