// Package testutil provides backend drivers for tests: a scripted fake that
// records every call, and a real SQL engine backed by in-memory SQLite.
package testutil

import (
	"context"
	"database/sql"
	"io"
	"strings"

	"github.com/xtg/pdo/internal/backend"
)

// Response is the scripted outcome of one query text.
type Response struct {
	Columns  []string
	Rows     [][]any // nil cells are NULL
	Affected int64
	InsertID int64
	Err      error
}

// FakeDriver is a scripted backend. Responses are looked up by exact query
// text; unknown queries succeed with no rows and no affected rows.
type FakeDriver struct {
	KindValue backend.Kind
	Caps      backend.Capabilities
	Responses map[string]Response

	OpenErr   error
	SelectErr error
	EscapeErr error

	// StandardStrings makes the session treat backslashes in literals as
	// ordinary characters; quotes are then escaped by doubling.
	StandardStrings bool

	// Recorded calls.
	Targets    []backend.Target
	Selected   []string
	Dispatched []string
	RowReads   int
	Closes     int
	RowsClosed int
}

// NewFakeDriver returns a fake with every capability enabled.
func NewFakeDriver(kind backend.Kind) *FakeDriver {
	return &FakeDriver{
		KindValue: kind,
		Caps:      backend.Capabilities{Quote: true, LastInsertID: true, InitCommands: true},
		Responses: make(map[string]Response),
	}
}

// Registry returns a registry holding only d.
func (d *FakeDriver) Registry() *backend.Registry {
	r := backend.NewRegistry()
	r.Register(d)
	return r
}

// Opens returns how many sessions were opened.
func (d *FakeDriver) Opens() int { return len(d.Targets) }

func (d *FakeDriver) Kind() backend.Kind { return d.KindValue }

func (d *FakeDriver) Capabilities() backend.Capabilities { return d.Caps }

func (d *FakeDriver) Open(_ context.Context, t backend.Target) (backend.Conn, error) {
	d.Targets = append(d.Targets, t)
	if d.OpenErr != nil {
		return nil, d.OpenErr
	}
	return &fakeConn{d: d}, nil
}

type fakeConn struct {
	d *FakeDriver
}

func (c *fakeConn) SelectDatabase(_ context.Context, name string) error {
	c.d.Selected = append(c.d.Selected, name)
	return c.d.SelectErr
}

// Escape backslash-escapes quotes and backslashes, or doubles quotes under
// StandardStrings.
func (c *fakeConn) Escape(s string) (string, error) {
	if c.d.EscapeErr != nil {
		return "", c.d.EscapeErr
	}
	if c.d.StandardStrings {
		return strings.ReplaceAll(s, "'", "''"), nil
	}
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s), nil
}

func (c *fakeConn) BackslashEscapes() bool { return !c.d.StandardStrings }

func (c *fakeConn) Query(_ context.Context, query string) (backend.Rows, error) {
	c.d.Dispatched = append(c.d.Dispatched, query)
	resp := c.d.Responses[query]
	if resp.Err != nil {
		return nil, resp.Err
	}
	return &fakeRows{d: c.d, resp: resp}, nil
}

func (c *fakeConn) Exec(_ context.Context, query string) (backend.Result, error) {
	c.d.Dispatched = append(c.d.Dispatched, query)
	resp := c.d.Responses[query]
	if resp.Err != nil {
		return backend.Result{}, resp.Err
	}
	return backend.Result{RowsAffected: resp.Affected, LastInsertID: resp.InsertID}, nil
}

func (c *fakeConn) Close() error {
	c.d.Closes++
	return nil
}

type fakeRows struct {
	d    *FakeDriver
	resp Response
	next int
}

func (r *fakeRows) Columns() []string { return r.resp.Columns }

func (r *fakeRows) Next() ([]sql.NullString, error) {
	if r.next >= len(r.resp.Rows) {
		return nil, io.EOF
	}
	r.d.RowReads++
	row := r.resp.Rows[r.next]
	r.next++
	return backend.Strings(row)
}

func (r *fakeRows) Close() error {
	r.d.RowsClosed++
	return nil
}
