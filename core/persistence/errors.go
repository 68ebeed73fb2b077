package persistence

import (
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrProviderUnavailable is returned when an operation needs a provider
	// that has not been set.
	ErrProviderUnavailable = errors.New("persistence provider unavailable")
	// ErrProviderClosed is returned by a provider after a failed flush.
	ErrProviderClosed = errors.New("persistence provider is closed")
	// ErrUnknownClass is returned for entities or class names with no metadata.
	ErrUnknownClass = errors.New("unknown entity class")
)

// OperationError reports a failed persist, remove or flush. Its message is
// the message of the underlying failure.
type OperationError struct {
	Op    string
	Class string
	// Code is the driver error code when one is known: the SQLSTATE for
	// PostgreSQL or the numeric result code for SQLite.
	Code string
	Err  error
}

// NewOperationError wraps err, extracting its driver code.
func NewOperationError(op, class string, err error) *OperationError {
	return &OperationError{Op: op, Class: class, Code: CodeOf(err), Err: err}
}

func (e *OperationError) Error() string { return e.Err.Error() }
func (e *OperationError) Unwrap() error { return e.Err }

// CodeOf extracts a driver error code from err, or returns "".
func CodeOf(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	var coded interface{ Code() int }
	if errors.As(err, &coded) {
		return strconv.Itoa(coded.Code())
	}
	return ""
}
