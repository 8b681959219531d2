package pdo

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"iter"
	"maps"
	"strconv"
	"strings"
	"time"

	"github.com/xtg/pdo/internal/backend"
	"github.com/xtg/pdo/internal/metrics"
)

// Statement is a query template with its bindings and the buffered result
// of its last execution. Bindings survive re-execution.
//
// The whole result set is held in memory; there is no streaming fetch.
type Statement struct {
	conn   *Conn
	query  string
	params map[paramKey]any

	lastQuery string
	isSelect  bool
	affected  int64
	rows      []Row
	pos       int

	// columns caches the values of the last fetched row, keyed by position
	// and name, for BindColumn targets.
	columns map[string]sql.NullString
	bound   map[string][]*string

	state errorState
}

func newStatement(c *Conn, query string) *Statement {
	return &Statement{
		conn:    c,
		query:   query,
		params:  make(map[paramKey]any),
		columns: make(map[string]sql.NullString),
		bound:   make(map[string][]*string),
	}
}

// QueryString returns the query template.
func (s *Statement) QueryString() string { return s.query }

// LastQuery returns the fully substituted text of the last dispatch.
func (s *Statement) LastQuery() string { return s.lastQuery }

// ErrorCode returns the code of the last execution, empty if none has run.
func (s *Statement) ErrorCode() string { return s.state.code }

// ErrorInfo returns code, a driver-reserved empty slot, and message.
func (s *Statement) ErrorInfo() [3]string { return s.state.info() }

// BindValue binds value to key. Keys are non-empty strings or integers;
// ":name" keys are named, all others positional. It reports whether the key
// was accepted.
func (s *Statement) BindValue(key, value any) bool {
	k, ok := makeKey(key)
	if !ok {
		return false
	}
	s.params[k] = value
	return true
}

// BindParam binds ptr to key. ptr is dereferenced at every Execute, so
// later writes through it are picked up.
func (s *Statement) BindParam(key, ptr any) bool {
	return s.BindValue(key, ptr)
}

// BindColumn binds dst to a result column, by zero-based position or name.
// dst is assigned from the last fetched row right away if the column is
// known, and again on every Fetch.
func (s *Statement) BindColumn(key any, dst *string) bool {
	if dst == nil {
		return false
	}
	var name string
	switch v := key.(type) {
	case string:
		if v == "" {
			return false
		}
		name = v
	case int:
		name = strconv.Itoa(v)
	default:
		return false
	}
	s.bound[name] = append(s.bound[name], dst)
	if v, ok := s.columns[name]; ok {
		*dst = v.String
	}
	return true
}

// Execute substitutes the effective parameters into the template,
// dispatches it and buffers the result. params override bound values per
// key. It returns the statement itself, or nil on failure outside
// ModeException.
func (s *Statement) Execute(ctx context.Context, params Params) (*Statement, error) {
	s.rows = nil
	s.affected = 0
	s.pos = 0
	clear(s.columns)

	effective := maps.Clone(s.params)
	for key, v := range params {
		if k, ok := makeKey(key); ok {
			effective[k] = v
		}
	}

	live := s.conn.live
	if live == nil {
		return nil, s.conn.rep.report(&s.state, ErrNotConnected)
	}

	query, err := substitute(s.query, effective, live.Escape, live.BackslashEscapes())
	if err != nil {
		return nil, s.conn.rep.report(&s.state, err)
	}
	s.lastQuery = query
	s.isSelect = isSelect(query)

	label := s.conn.desc.Kind.String()
	start := time.Now()
	if s.isSelect {
		metrics.QueriesTotal.WithLabelValues(label, "select").Inc()
		err = s.drain(ctx, live, query)
	} else {
		metrics.QueriesTotal.WithLabelValues(label, "exec").Inc()
		var res backend.Result
		res, err = live.Exec(ctx, query)
		s.affected = res.RowsAffected
		if err == nil {
			s.conn.lastInsertID = res.LastInsertID
		}
	}
	metrics.QueryDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())

	if err != nil {
		s.rows = nil
		s.affected = 0
		return nil, s.conn.rep.report(&s.state, err)
	}
	s.state.clear()

	if len(s.rows) > 0 {
		for k := range s.rows[0].Map() {
			s.columns[k] = sql.NullString{}
		}
	}
	return s, nil
}

// drain buffers every row of query and releases the backend rows before
// returning.
func (s *Statement) drain(ctx context.Context, live backend.Conn, query string) error {
	rows, err := live.Query(ctx, query)
	if err != nil {
		return err
	}
	for {
		vals, err := rows.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			_ = rows.Close()
			return err
		}
		s.rows = append(s.rows, Row{values: vals})
	}
	cols := rows.Columns()
	for i := range s.rows {
		s.rows[i].columns = cols
	}
	metrics.RowsFetched.Add(float64(len(s.rows)))
	return rows.Close()
}

func isSelect(query string) bool {
	q := strings.TrimSpace(query)
	return len(q) >= 6 && strings.EqualFold(q[:6], "select")
}

// RowCount returns the number of buffered rows for a SELECT, and the
// backend's affected-row count for any other statement.
func (s *Statement) RowCount() int64 {
	if s.isSelect {
		return int64(len(s.rows))
	}
	return s.affected
}

// ColumnCount returns the number of columns in the result set.
func (s *Statement) ColumnCount() int {
	if len(s.rows) == 0 {
		return 0
	}
	return s.rows[0].Len()
}

// Fetch returns the row under the cursor and advances it. ok is false past
// the end.
func (s *Statement) Fetch() (Row, bool) {
	if !s.Valid() {
		return Row{}, false
	}
	row := s.Current()
	for k, v := range row.Map() {
		s.columns[k] = v
		for _, dst := range s.bound[k] {
			*dst = v.String
		}
	}
	s.Next()
	return row, true
}

// FetchAll returns every buffered row without moving the cursor.
func (s *Statement) FetchAll() []Row {
	return s.rows
}

// FetchColumn fetches the next row and returns its value at position i.
// ok is false when no row is left; a missing column yields an invalid
// NullString.
func (s *Statement) FetchColumn(i int) (sql.NullString, bool) {
	row, ok := s.Fetch()
	if !ok {
		return sql.NullString{}, false
	}
	v, _ := row.At(i)
	return v, true
}

// CloseCursor always succeeds; backend rows are released during Execute.
func (s *Statement) CloseCursor() bool { return true }

// Current returns the row under the cursor, or the zero Row when the
// cursor is not valid.
func (s *Statement) Current() Row {
	if !s.Valid() {
		return Row{}
	}
	return s.rows[s.pos]
}

// Key returns the cursor position.
func (s *Statement) Key() int { return s.pos }

// Next advances the cursor. It never moves past the end of the result set.
func (s *Statement) Next() {
	if s.pos < len(s.rows) {
		s.pos++
	}
}

// Rewind moves the cursor back to the first row without re-running the
// query.
func (s *Statement) Rewind() { s.pos = 0 }

// Valid reports whether the cursor is on a row.
func (s *Statement) Valid() bool { return s.pos < len(s.rows) }

// NextRowset advances the cursor and reports whether it is still valid.
func (s *Statement) NextRowset() bool {
	s.Next()
	return s.Valid()
}

// All rewinds and yields every row with its position.
func (s *Statement) All() iter.Seq2[int, Row] {
	return func(yield func(int, Row) bool) {
		for s.Rewind(); s.Valid(); s.Next() {
			if !yield(s.Key(), s.Current()) {
				return
			}
		}
	}
}
