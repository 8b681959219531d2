package testutil

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"strconv"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"modernc.org/sqlite"

	"github.com/xtg/pdo/internal/backend"
)

//go:embed migrations
var migrations embed.FS

// SQLiteDriver runs statements against an in-memory SQLite database seeded
// by the fixture migrations. It registers under whatever kind the test
// asks for, standing in for that backend.
type SQLiteDriver struct {
	kind backend.Kind
	db   *sqlx.DB

	// Opens counts sessions checked out.
	Opens int
}

// NewSQLiteDriver opens a fresh in-memory database for t and migrates it.
// The database is closed when the test ends.
func NewSQLiteDriver(t *testing.T, kind backend.Kind) *SQLiteDriver {
	t.Helper()

	// Shared cache lets every pool connection see the same database; the
	// test name keeps databases of different tests apart.
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := sqlx.Open("sqlite", "file:"+name+"?mode=memory&cache=shared&_busy_timeout=5000")
	if err != nil {
		t.Fatalf("open in-memory sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := goose.SetDialect("sqlite3"); err != nil {
		t.Fatalf("set goose dialect: %v", err)
	}
	sub, err := fs.Sub(migrations, "migrations")
	if err != nil {
		t.Fatalf("sub migrations fs: %v", err)
	}
	goose.SetBaseFS(sub)
	defer goose.SetBaseFS(nil)
	if err := goose.Up(db.DB, "."); err != nil {
		t.Fatalf("run fixture migrations: %v", err)
	}

	return &SQLiteDriver{kind: kind, db: db}
}

// Registry returns a registry holding only d.
func (d *SQLiteDriver) Registry() *backend.Registry {
	r := backend.NewRegistry()
	r.Register(d)
	return r
}

// DB exposes the underlying database for assertions.
func (d *SQLiteDriver) DB() *sqlx.DB { return d.db }

func (d *SQLiteDriver) Kind() backend.Kind { return d.kind }

func (d *SQLiteDriver) Capabilities() backend.Capabilities {
	return backend.Capabilities{Quote: true, LastInsertID: true, InitCommands: true}
}

func (d *SQLiteDriver) Open(ctx context.Context, _ backend.Target) (backend.Conn, error) {
	conn, err := d.db.Connx(ctx)
	if err != nil {
		return nil, backend.Wrap(err, classifySQLite)
	}
	d.Opens++
	return &sqliteConn{conn: conn}, nil
}

func classifySQLite(err error) (string, string, bool) {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return strconv.Itoa(se.Code()), se.Error(), true
	}
	return "", "", false
}

type sqliteConn struct {
	conn *sqlx.Conn
}

// SelectDatabase accepts any name; the in-memory database is the only one.
func (c *sqliteConn) SelectDatabase(context.Context, string) error { return nil }

func (c *sqliteConn) Escape(s string) (string, error) {
	return strings.ReplaceAll(s, "'", "''"), nil
}

// BackslashEscapes is false: SQLite literals only escape by doubling quotes.
func (c *sqliteConn) BackslashEscapes() bool { return false }

func (c *sqliteConn) Query(ctx context.Context, query string) (backend.Rows, error) {
	rows, err := c.conn.QueryxContext(ctx, query)
	if err != nil {
		return nil, backend.Wrap(err, classifySQLite)
	}
	return backend.SQLXRows(rows, classifySQLite)
}

func (c *sqliteConn) Exec(ctx context.Context, query string) (backend.Result, error) {
	res, err := c.conn.ExecContext(ctx, query)
	if err != nil {
		return backend.Result{}, backend.Wrap(err, classifySQLite)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return backend.Result{}, backend.Wrap(err, classifySQLite)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return backend.Result{}, backend.Wrap(err, classifySQLite)
	}
	return backend.Result{RowsAffected: n, LastInsertID: id}, nil
}

func (c *sqliteConn) Close() error {
	return c.conn.Close()
}
