package mysql

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/xtg/pdo/internal/backend"
)

// EnhancedDriver is the sqlx-backed adapter. It is preferred for the generic
// "mysql" token when registered.
type EnhancedDriver struct{}

func (EnhancedDriver) Kind() backend.Kind { return backend.KindMySQLEnhanced }

func (EnhancedDriver) Capabilities() backend.Capabilities {
	return backend.Capabilities{Quote: true, LastInsertID: true, InitCommands: true}
}

// Open connects to the server without selecting a database.
func (EnhancedDriver) Open(ctx context.Context, t backend.Target) (backend.Conn, error) {
	if err := backend.CheckPort(t.Port); err != nil {
		return nil, backend.Wrap(err, classify)
	}
	cfg := config(t)
	cfg.AllowNativePasswords = true

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}
	dbx := sqlx.NewDb(db, "mysql")
	conn, err := dbx.Connx(ctx)
	if err != nil {
		_ = dbx.Close()
		return nil, backend.Wrap(err, classify)
	}
	c := &enhancedConn{db: dbx, conn: conn}
	if err := c.sync(ctx, conn); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

type enhancedConn struct {
	session
	db   *sqlx.DB
	conn *sqlx.Conn
}

func (c *enhancedConn) SelectDatabase(ctx context.Context, name string) error {
	_, err := c.conn.ExecContext(ctx, useDatabase(name))
	return backend.Wrap(err, classify)
}

func (c *enhancedConn) Escape(s string) (string, error) {
	return c.session.escape(s), nil
}

func (c *enhancedConn) Query(ctx context.Context, query string) (backend.Rows, error) {
	rows, err := c.conn.QueryxContext(ctx, query)
	if err != nil {
		return nil, backend.Wrap(err, classify)
	}
	return backend.SQLXRows(rows, classify)
}

func (c *enhancedConn) Exec(ctx context.Context, query string) (backend.Result, error) {
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

func (c *enhancedConn) Close() error {
	return errors.Join(c.conn.Close(), c.db.Close())
}

func result(res sql.Result) (backend.Result, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return backend.Result{}, backend.Wrap(err, classify)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return backend.Result{}, backend.Wrap(err, classify)
	}
	return backend.Result{RowsAffected: n, LastInsertID: id}, nil
}
