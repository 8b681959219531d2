package backend

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/spf13/cast"
)

// CodeGeneral is reported when a backend failure carries no native code.
const CodeGeneral = "HY000"

var (
	// ErrEscape is returned when a backend cannot escape a value.
	ErrEscape = errors.New("escape failed")

	ErrInvalidPort = errors.New("invalid port")
)

// Error is a failure reported by a backend, normalized to a code and a
// message. Code is the backend's native identifier: a MySQL error number
// or a PostgreSQL SQLSTATE.
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

// Classifier extracts a native code and message from a driver error. It
// returns ok=false when err is not a native driver error.
type Classifier func(err error) (code, message string, ok bool)

// Wrap converts err into an *Error using classify. Errors that already are
// an *Error pass through unchanged; nil stays nil.
func Wrap(err error, classify Classifier) error {
	if err == nil {
		return nil
	}
	var be *Error
	if errors.As(err, &be) {
		return err
	}
	if classify != nil {
		if code, msg, ok := classify(err); ok {
			return &Error{Code: code, Message: msg, Err: err}
		}
	}
	return &Error{Code: CodeGeneral, Message: err.Error(), Err: err}
}

// Strings converts driver values to nullable strings. nil becomes an invalid
// NullString; everything else goes through cast.
func Strings(vals []any) ([]sql.NullString, error) {
	out := make([]sql.NullString, len(vals))
	for i, v := range vals {
		if v == nil {
			continue
		}
		s, err := cast.ToStringE(v)
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", i, err)
		}
		out[i] = sql.NullString{String: s, Valid: true}
	}
	return out, nil
}
