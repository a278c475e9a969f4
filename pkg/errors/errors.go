// Package errors defines the error kinds surfaced by the search core and
// maps them to HTTP status codes for the daemon's API layer.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Configuration errors.
var (
	ErrDuplicateField       = errors.New("duplicate field")
	ErrBuilderConsumed      = errors.New("schema builder already consumed")
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrSchemaMismatch       = errors.New("schema mismatch")
)

// Resolution and parse errors.
var (
	ErrUnknownField       = errors.New("unknown field")
	ErrInvalidTerm        = errors.New("invalid term")
	ErrNoSearchableFields = errors.New("no valid fields provided for search")
	ErrQueryParse         = errors.New("query parse error")
	ErrDocumentNotFound   = errors.New("document not found")
)

// Contention, lifecycle and storage errors.
var (
	ErrWriterUnavailable = errors.New("index writer unavailable")
	ErrWriterConsumed    = errors.New("index writer already consumed")
	ErrCommitFailed      = errors.New("commit failed")
	ErrStorage           = errors.New("storage error")
	ErrCorrupt           = errors.New("corrupt index data")
	ErrIndexClosed       = errors.New("index closed")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// Wrap annotates cause with a sentinel kind so that both errors.Is(err, kind)
// and errors.Is(err, cause) hold.
func Wrap(kind error, cause error, message string) error {
	if cause == nil {
		return fmt.Errorf("%w: %s", kind, message)
	}
	return fmt.Errorf("%w: %s: %w", kind, message, cause)
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.StatusCode != 0 {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrWriterUnavailable):
		return http.StatusConflict
	case errors.Is(err, ErrDuplicateField),
		errors.Is(err, ErrBuilderConsumed),
		errors.Is(err, ErrInvalidConfiguration),
		errors.Is(err, ErrSchemaMismatch),
		errors.Is(err, ErrUnknownField),
		errors.Is(err, ErrInvalidTerm),
		errors.Is(err, ErrNoSearchableFields),
		errors.Is(err, ErrQueryParse),
		errors.Is(err, ErrWriterConsumed):
		return http.StatusBadRequest
	case errors.Is(err, ErrIndexClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
