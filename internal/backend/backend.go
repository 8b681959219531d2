// Package backend defines the capability set every concrete database adapter
// provides. The connection manager and statement engine only ever talk to a
// database through these interfaces.
package backend

import (
	"context"
	"database/sql"
	"fmt"
)

// Kind enumerates the supported backend adapters.
type Kind int

const (
	KindMySQLLegacy Kind = iota + 1
	KindMySQLEnhanced
	KindPostgreSQL
)

func (k Kind) String() string {
	switch k {
	case KindMySQLLegacy:
		return "mysql"
	case KindMySQLEnhanced:
		return "mysqli"
	case KindPostgreSQL:
		return "postgresql"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Target is everything an adapter needs to open a session.
type Target struct {
	Host     string
	Port     int
	DBName   string
	User     string
	Password string
}

// CheckPort rejects ports outside the TCP range.
func CheckPort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, port)
	}
	return nil
}

// Capabilities describes optional behavior of an adapter.
type Capabilities struct {
	// Quote reports whether the escape primitive may be exposed to callers
	// building LIKE-safe literals.
	Quote bool
	// LastInsertID reports whether executed statements carry a generated id.
	LastInsertID bool
	// InitCommands reports whether post-connect commands may be configured.
	InitCommands bool
}

// Driver opens sessions against one backend.
type Driver interface {
	Kind() Kind
	Capabilities() Capabilities
	Open(ctx context.Context, t Target) (Conn, error)
}

// Conn is a single live session. Implementations are not safe for
// concurrent use.
type Conn interface {
	// SelectDatabase makes name the default database of the session.
	SelectDatabase(ctx context.Context, name string) error
	// Escape escapes s for embedding between single quotes.
	Escape(s string) (string, error)
	// BackslashEscapes reports whether a backslash escapes the next
	// character inside quoted literals under the session's current settings.
	BackslashEscapes() bool
	// Query runs a statement that produces rows.
	Query(ctx context.Context, query string) (Rows, error)
	// Exec runs a statement that produces no rows.
	Exec(ctx context.Context, query string) (Result, error)
	Close() error
}

// Rows is a backend-side result handle. Close must be called once the rows
// are drained.
type Rows interface {
	Columns() []string
	// Next returns the next row, or io.EOF once the rows are exhausted.
	Next() ([]sql.NullString, error)
	Close() error
}

// Result is the outcome of Exec.
type Result struct {
	RowsAffected int64
	LastInsertID int64
}
