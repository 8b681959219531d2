package mysql

import (
	"context"
	"database/sql"
	"errors"
	"io"

	"github.com/xtg/pdo/internal/backend"
)

// LegacyDriver is the plain database/sql adapter. It accepts the old
// password authentication scheme.
type LegacyDriver struct{}

func (LegacyDriver) Kind() backend.Kind { return backend.KindMySQLLegacy }

func (LegacyDriver) Capabilities() backend.Capabilities {
	return backend.Capabilities{Quote: true, LastInsertID: true, InitCommands: true}
}

// Open connects to the server without selecting a database.
func (LegacyDriver) Open(ctx context.Context, t backend.Target) (backend.Conn, error) {
	if err := backend.CheckPort(t.Port); err != nil {
		return nil, backend.Wrap(err, classify)
	}
	cfg := config(t)
	cfg.AllowOldPasswords = true

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		return nil, backend.Wrap(err, classify)
	}
	c := &legacyConn{db: db, conn: conn}
	if err := c.sync(ctx, conn); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

type legacyConn struct {
	session
	db   *sql.DB
	conn *sql.Conn
}

func (c *legacyConn) SelectDatabase(ctx context.Context, name string) error {
	_, err := c.conn.ExecContext(ctx, useDatabase(name))
	return backend.Wrap(err, classify)
}

func (c *legacyConn) Escape(s string) (string, error) {
	return c.session.escape(s), nil
}

func (c *legacyConn) Query(ctx context.Context, query string) (backend.Rows, error) {
	rows, err := c.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, backend.Wrap(err, classify)
	}
	cols, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		return nil, backend.Wrap(err, classify)
	}
	return &legacyRows{rows: rows, cols: cols}, nil
}

func (c *legacyConn) Exec(ctx context.Context, query string) (backend.Result, error) {
	res, err := c.conn.ExecContext(ctx, query)
	if err != nil {
		return backend.Result{}, backend.Wrap(err, classify)
	}
	if setsVariables(query) {
		if err := c.sync(ctx, c.conn); err != nil {
			return backend.Result{}, err
		}
	}
	return result(res)
}

func (c *legacyConn) Close() error {
	return errors.Join(c.conn.Close(), c.db.Close())
}

type legacyRows struct {
	rows *sql.Rows
	cols []string
}

func (r *legacyRows) Columns() []string { return r.cols }

func (r *legacyRows) Next() ([]sql.NullString, error) {
	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			return nil, backend.Wrap(err, classify)
		}
		return nil, io.EOF
	}
	vals := make([]sql.NullString, len(r.cols))
	dest := make([]any, len(vals))
	for i := range vals {
		dest[i] = &vals[i]
	}
	if err := r.rows.Scan(dest...); err != nil {
		return nil, backend.Wrap(err, classify)
	}
	return vals, nil
}

func (r *legacyRows) Close() error {
	return backend.Wrap(r.rows.Close(), classify)
}
