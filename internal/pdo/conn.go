// Package pdo is a uniform connection and statement API over the registered
// backend adapters. Prepared statements are emulated by substituting
// escaped literals into the query text before dispatch.
//
// Every fallible operation resolves through the connection's error mode:
// in ModeException it returns an *Error, in ModeSilent and ModeWarning it
// returns its failure value with a nil error and records the error state,
// readable through ErrorCode and ErrorInfo.
package pdo

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/xtg/pdo/internal/backend"
	"github.com/xtg/pdo/internal/metrics"
)

// ExecFailed is returned by Exec when the statement failed outside
// ModeException.
const ExecFailed int64 = -1

// Option configures New.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	registry *backend.Registry
	attrs    []attrValue
}

type attrValue struct {
	attr  Attribute
	value any
}

// WithLogger sets the logger warnings are written to. Defaults to
// slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRegistry resolves backends against r instead of the default registry.
func WithRegistry(r *backend.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithAttribute applies SetAttribute(a, value) at construction. A rejected
// attribute is ignored.
func WithAttribute(a Attribute, value any) Option {
	return func(o *options) { o.attrs = append(o.attrs, attrValue{a, value}) }
}

// Conn owns at most one live backend session, opened lazily.
type Conn struct {
	id       string
	desc     Descriptor
	registry *backend.Registry
	driver   backend.Driver
	rep      *reporter
	live     backend.Conn
	state    errorState

	lastInsertID int64
}

// New parses dsn and resolves its backend. It does not connect.
// Construction failures are always returned as errors.
func New(dsn, user, password string, opts ...Option) (*Conn, error) {
	o := options{logger: slog.Default(), registry: backend.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	token, desc, err := parseDSN(dsn)
	if err != nil {
		return nil, err
	}
	kind, err := o.registry.Resolve(token)
	if err != nil {
		return nil, err
	}
	driver, _ := o.registry.Lookup(kind)

	desc.Kind = kind
	desc.User = user
	desc.Password = password

	id := uuid.NewString()
	c := &Conn{
		id:       id,
		desc:     desc,
		registry: o.registry,
		driver:   driver,
		rep: &reporter{
			mode:   ModeException,
			logger: o.logger.With("conn", id, "backend", kind.String()),
		},
	}
	for _, a := range o.attrs {
		c.SetAttribute(a.attr, a.value)
	}
	return c, nil
}

// Kind returns the resolved backend.
func (c *Conn) Kind() backend.Kind { return c.desc.Kind }

// Descriptor returns a copy of the connection target.
func (c *Conn) Descriptor() Descriptor {
	d := c.desc
	d.InitCommands = append([]string(nil), c.desc.InitCommands...)
	return d
}

// Mode returns the current error mode.
func (c *Conn) Mode() ErrorMode { return c.rep.mode }

// Connected reports whether a live session exists.
func (c *Conn) Connected() bool { return c.live != nil }

// AvailableDrivers lists the backend tokens that resolve on this
// connection's registry.
func (c *Conn) AvailableDrivers() []string { return c.registry.Available() }

// ErrorCode returns the code of the last connection-level operation, empty
// if none has run.
func (c *Conn) ErrorCode() string { return c.state.code }

// ErrorInfo returns code, a driver-reserved empty slot, and message.
func (c *Conn) ErrorInfo() [3]string { return c.state.info() }

// Connect opens the session, selects the database and replays the init
// commands in order. It is a no-op when already connected. A failing step
// closes the half-open session.
func (c *Conn) Connect(ctx context.Context) (bool, error) {
	if c.live != nil {
		return true, nil
	}
	if c.desc.DBName == "" {
		return false, c.rep.report(&c.state, ErrMissingDatabase)
	}
	if c.driver == nil {
		return false, c.rep.report(&c.state, fmt.Errorf("%w: %s", ErrUnknownDriver, c.desc.Kind))
	}

	label := c.desc.Kind.String()
	live, err := c.driver.Open(ctx, c.desc.target())
	if err != nil {
		metrics.ConnectsTotal.WithLabelValues(label, "error").Inc()
		return false, c.rep.report(&c.state, err)
	}

	if err := live.SelectDatabase(ctx, c.desc.DBName); err != nil {
		_ = live.Close()
		metrics.ConnectsTotal.WithLabelValues(label, "error").Inc()
		return false, c.rep.report(&c.state, err)
	}
	for _, cmd := range c.desc.InitCommands {
		if _, err := live.Exec(ctx, cmd); err != nil {
			_ = live.Close()
			metrics.ConnectsTotal.WithLabelValues(label, "error").Inc()
			return false, c.rep.report(&c.state, fmt.Errorf("init command %q: %w", cmd, err))
		}
	}

	metrics.ConnectsTotal.WithLabelValues(label, "ok").Inc()
	c.live = live
	c.state.clear()
	return true, nil
}

// Disconnect closes the live session. It is safe to call when not
// connected.
func (c *Conn) Disconnect() error {
	if c.live == nil {
		return nil
	}
	live := c.live
	c.live = nil
	if err := live.Close(); err != nil {
		return c.rep.report(&c.state, err)
	}
	return nil
}

// Close is Disconnect.
func (c *Conn) Close() error { return c.Disconnect() }

// Prepare connects if needed and returns an unexecuted statement. It
// returns nil on failure outside ModeException.
func (c *Conn) Prepare(ctx context.Context, query string) (*Statement, error) {
	if ok, err := c.Connect(ctx); !ok {
		return nil, err
	}
	return newStatement(c, query), nil
}

// Query prepares and executes query. It returns nil on failure outside
// ModeException.
func (c *Conn) Query(ctx context.Context, query string) (*Statement, error) {
	st, err := c.Prepare(ctx, query)
	if st == nil {
		return nil, err
	}
	res, err := st.Execute(ctx, nil)
	c.state = st.state
	return res, err
}

// Exec runs query and returns its row count, or ExecFailed on failure
// outside ModeException.
func (c *Conn) Exec(ctx context.Context, query string) (int64, error) {
	st, err := c.Prepare(ctx, query)
	if st == nil {
		return ExecFailed, err
	}
	res, err := st.Execute(ctx, nil)
	c.state = st.state
	if res == nil {
		return ExecFailed, err
	}
	return res.RowCount(), nil
}

// Quote escapes s for embedding in a literal, additionally escaping the
// LIKE wildcards _ and %. The result is not wrapped in quotes. Backends
// that do not expose their escape primitive report ok=false.
func (c *Conn) Quote(ctx context.Context, s string) (string, bool, error) {
	if ok, err := c.Connect(ctx); !ok {
		return "", false, err
	}
	if !c.driver.Capabilities().Quote {
		return "", false, nil
	}
	escaped, err := c.live.Escape(s)
	if err != nil {
		return "", false, c.rep.report(&c.state, err)
	}
	escaped = strings.ReplaceAll(escaped, "_", `\_`)
	escaped = strings.ReplaceAll(escaped, "%", `\%`)
	return escaped, true, nil
}

// LastInsertID returns the id generated by the last statement executed on
// this connection, or -1 when the backend does not report ids.
func (c *Conn) LastInsertID(ctx context.Context) (int64, error) {
	if ok, err := c.Connect(ctx); !ok {
		return -1, err
	}
	if !c.driver.Capabilities().LastInsertID {
		return -1, nil
	}
	return c.lastInsertID, nil
}
