// Package postgres provides the PostgreSQL adapter on top of pgx. Queries
// arrive fully substituted, so every call uses the simple protocol.
//
// Importing the package registers the adapter on the default registry.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/xtg/pdo/internal/backend"
)

func init() {
	backend.Register(Driver{})
}

// ErrSwitchDatabase is returned when asked to select a database other than
// the one the session was opened on.
var ErrSwitchDatabase = errors.New("postgresql sessions cannot switch database")

// Driver is the PostgreSQL adapter.
type Driver struct{}

func (Driver) Kind() backend.Kind { return backend.KindPostgreSQL }

// Capabilities reports no caller-facing quoting, no generated ids and no
// init commands.
func (Driver) Capabilities() backend.Capabilities {
	return backend.Capabilities{}
}

// Open connects directly to t.DBName.
func (Driver) Open(ctx context.Context, t backend.Target) (backend.Conn, error) {
	if err := backend.CheckPort(t.Port); err != nil {
		return nil, backend.Wrap(err, classify)
	}
	cfg, err := pgx.ParseConfig("")
	if err != nil {
		return nil, backend.Wrap(err, classify)
	}
	cfg.Host = t.Host
	cfg.Port = uint16(t.Port)
	cfg.Database = t.DBName
	cfg.User = t.User
	cfg.Password = t.Password
	cfg.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, backend.Wrap(err, classify)
	}
	return &Conn{conn: conn}, nil
}

func classify(err error) (string, string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.Message, true
	}
	return "", "", false
}

// Conn is a live pgx session.
type Conn struct {
	conn *pgx.Conn
}

// SelectDatabase only accepts the database the session is connected to.
func (c *Conn) SelectDatabase(_ context.Context, name string) error {
	if current := c.conn.Config().Database; name != current {
		return &backend.Error{
			Code:    "08000",
			Message: fmt.Sprintf("connected to %q, cannot select %q", current, name),
			Err:     ErrSwitchDatabase,
		}
	}
	return nil
}

// Escape uses the session's own escaping, which honors
// standard_conforming_strings and the client encoding.
func (c *Conn) Escape(s string) (string, error) {
	out, err := c.conn.PgConn().EscapeString(s)
	if err != nil {
		return "", backend.Wrap(fmt.Errorf("%w: %w", backend.ErrEscape, err), classify)
	}
	return out, nil
}

// BackslashEscapes is true only when standard_conforming_strings is off.
// E'...' literals always honor backslashes.
func (c *Conn) BackslashEscapes() bool {
	return c.conn.PgConn().ParameterStatus("standard_conforming_strings") != "on"
}

func (c *Conn) Query(ctx context.Context, query string) (backend.Rows, error) {
	rows, err := c.conn.Query(ctx, query)
	if err != nil {
		return nil, backend.Wrap(err, classify)
	}
	return &Rows{rows: rows}, nil
}

func (c *Conn) Exec(ctx context.Context, query string) (backend.Result, error) {
	tag, err := c.conn.Exec(ctx, query)
	if err != nil {
		return backend.Result{}, backend.Wrap(err, classify)
	}
	return backend.Result{RowsAffected: tag.RowsAffected()}, nil
}

func (c *Conn) Close() error {
	return backend.Wrap(c.conn.Close(context.Background()), classify)
}

// Rows reads text-format values straight off the wire.
type Rows struct {
	rows pgx.Rows
}

func (r *Rows) Columns() []string {
	fields := r.rows.FieldDescriptions()
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = f.Name
	}
	return cols
}

func (r *Rows) Next() ([]sql.NullString, error) {
	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			return nil, backend.Wrap(err, classify)
		}
		return nil, io.EOF
	}
	raw := r.rows.RawValues()
	out := make([]sql.NullString, len(raw))
	for i, v := range raw {
		if v != nil {
			out[i] = sql.NullString{String: string(v), Valid: true}
		}
	}
	return out, nil
}

func (r *Rows) Close() error {
	r.rows.Close()
	return backend.Wrap(r.rows.Err(), classify)
}
