package pdo

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xtg/pdo/internal/backend"
	"github.com/xtg/pdo/internal/metrics"
)

// ErrorMode selects how failures are surfaced.
type ErrorMode int

const (
	// ModeSilent records the error state and returns a failure value.
	ModeSilent ErrorMode = iota + 1
	// ModeWarning also logs one warning record.
	ModeWarning
	// ModeException returns an *Error to the caller.
	ModeException
)

func (m ErrorMode) String() string {
	switch m {
	case ModeSilent:
		return "silent"
	case ModeWarning:
		return "warning"
	case ModeException:
		return "exception"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

func (m ErrorMode) valid() bool {
	return m == ModeSilent || m == ModeWarning || m == ModeException
}

// ParseErrorMode maps "silent", "warning" or "exception" to an ErrorMode.
func ParseErrorMode(s string) (ErrorMode, error) {
	for _, m := range []ErrorMode{ModeSilent, ModeWarning, ModeException} {
		if strings.EqualFold(s, m.String()) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("invalid error mode %q: must be silent, warning or exception", s)
}

var (
	// ErrUnsupportedDriver is returned when the connection string names an
	// unknown backend.
	ErrUnsupportedDriver = backend.ErrUnsupportedDriver

	// ErrDriverUnavailable is returned when no adapter for the named
	// backend is registered.
	ErrDriverUnavailable = backend.ErrDriverUnavailable

	// ErrInvalidConnectionString is returned when the connection string is
	// not of the form <backend>:<key>=<value>;...
	ErrInvalidConnectionString = errors.New("invalid connection string")

	ErrMissingDatabase = errors.New("no database selected")
	ErrNotConnected    = errors.New("not connected")
	ErrUnknownDriver   = errors.New("unknown driver")

	// ErrInvalidParameter is returned when a bound value cannot be coerced
	// to a string.
	ErrInvalidParameter = errors.New("invalid parameter value")
)

var taxonomy = []struct {
	err  error
	code string
}{
	{ErrUnsupportedDriver, "UnsupportedDriver"},
	{ErrDriverUnavailable, "DriverUnavailable"},
	{ErrInvalidConnectionString, "InvalidConnectionString"},
	{ErrMissingDatabase, "MissingDatabase"},
	{ErrNotConnected, "NotConnected"},
	{ErrUnknownDriver, "UnknownDriver"},
	{ErrInvalidParameter, "InvalidParameter"},
}

// describe returns the code and message recorded for err.
func describe(err error) (code, message string) {
	var be *backend.Error
	if errors.As(err, &be) {
		return be.Code, be.Message
	}
	for _, t := range taxonomy {
		if errors.Is(err, t.err) {
			return t.code, err.Error()
		}
	}
	return backend.CodeGeneral, err.Error()
}

// Error is returned in ModeException. It unwraps to the taxonomy sentinel
// or the *backend.Error that caused it.
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s : %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CodeNone is the error code recorded after a successful backend call.
const CodeNone = "00000"

// errorState is the last recorded outcome of an operation.
type errorState struct {
	code    string
	message string
}

func (s *errorState) clear() {
	s.code, s.message = CodeNone, ""
}

// info returns code, a driver-reserved empty slot, and message.
func (s errorState) info() [3]string {
	return [3]string{s.code, "", s.message}
}

// reporter applies the error mode. One reporter is shared by a connection
// and every statement it creates.
type reporter struct {
	mode   ErrorMode
	logger *slog.Logger
}

// report records err into state and returns the error the caller must
// propagate: an *Error in ModeException, nil otherwise.
func (r *reporter) report(state *errorState, err error) error {
	state.code, state.message = describe(err)
	metrics.ErrorsTotal.WithLabelValues(r.mode.String()).Inc()

	switch r.mode {
	case ModeWarning:
		r.logger.Warn("database operation failed", "code", state.code, "message", state.message)
	case ModeException:
		return &Error{Code: state.code, Message: state.message, Err: err}
	}
	return nil
}
