// Package mysql provides the legacy and enhanced MySQL adapters. Both speak
// to the server through go-sql-driver/mysql; the enhanced adapter goes
// through sqlx and reports generated ids.
//
// Importing the package registers both adapters on the default registry.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/xtg/pdo/internal/backend"
)

func init() {
	backend.Register(LegacyDriver{})
	backend.Register(EnhancedDriver{})
}

// config builds the driver configuration for t. The database is selected
// after connecting, so DBName is left empty.
func config(t backend.Target) *mysql.Config {
	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
	cfg.User = t.User
	cfg.Passwd = t.Password
	return cfg
}

// openDB returns a pool capped at one session for cfg. Callers check out
// that session and keep it for the lifetime of the adapter connection.
func openDB(cfg *mysql.Config) (*sql.DB, error) {
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, backend.Wrap(err, classify)
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return db, nil
}

func classify(err error) (string, string, bool) {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return strconv.Itoa(int(me.Number)), me.Message, true
	}
	return "", "", false
}

// session tracks the sql_mode bits that change string literal syntax.
type session struct {
	noBackslash bool
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// sync re-reads the session's sql_mode.
func (s *session) sync(ctx context.Context, q rowQuerier) error {
	var mode string
	if err := q.QueryRowContext(ctx, "SELECT @@SESSION.sql_mode").Scan(&mode); err != nil {
		return backend.Wrap(err, classify)
	}
	s.noBackslash = noBackslashEscapes(mode)
	return nil
}

// escape applies the rules of the current sql_mode. With
// NO_BACKSLASH_ESCAPES a backslash is an ordinary character and only the
// quote needs doubling.
func (s *session) escape(str string) string {
	if s.noBackslash {
		return strings.ReplaceAll(str, "'", "''")
	}
	return escape(str)
}

// BackslashEscapes reports whether backslash escapes inside literals.
func (s *session) BackslashEscapes() bool { return !s.noBackslash }

func noBackslashEscapes(mode string) bool {
	for _, m := range strings.Split(mode, ",") {
		if strings.EqualFold(strings.TrimSpace(m), "NO_BACKSLASH_ESCAPES") {
			return true
		}
	}
	return false
}

// setsVariables reports whether query is a SET statement, which may change
// sql_mode.
func setsVariables(query string) bool {
	q := strings.TrimSpace(query)
	return len(q) > 3 && strings.EqualFold(q[:3], "set") && !isWordByte(q[3])
}

func isWordByte(c byte) bool {
	return c == '_' || '0' <= c && c <= '9' || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z'
}

// escape follows the server's default backslash escaping rules for string
// literals.
func escape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case 0:
			b.WriteString(`\0`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\\':
			b.WriteString(`\\`)
		case '\'':
			b.WriteString(`\'`)
		case '"':
			b.WriteString(`\"`)
		case '\x1a':
			b.WriteString(`\Z`)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func useDatabase(name string) string {
	return fmt.Sprintf("USE `%s`", strings.ReplaceAll(name, "`", "``"))
}
