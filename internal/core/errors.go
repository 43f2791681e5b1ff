// internal/core/errors.go
package core

import "fmt"

// Error represents a structured error with code and optional cause.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is matching by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// Predefined errors. Configuration errors are fatal to the run; the
// caller is expected to abort with a diagnostic rather than recover.
var (
	// Market data errors
	ErrDateNotFound   = &Error{Code: "DATE_NOT_FOUND", Message: "date not in market data index"}
	ErrColumnNotFound = &Error{Code: "COLUMN_NOT_FOUND", Message: "column not in market data"}
	ErrNoData         = &Error{Code: "NO_DATA", Message: "no data available"}
	ErrUnknownFill    = &Error{Code: "UNKNOWN_FILL", Message: "unknown fill-missing method"}

	// Transaction errors
	ErrBadDirection = &Error{Code: "BAD_DIRECTION", Message: "transaction direction must be BUY or SELL"}
	ErrBadDate      = &Error{Code: "BAD_DATE", Message: "date must be in YYYY-MM-DD form"}
	ErrBadQuantity  = &Error{Code: "BAD_QUANTITY", Message: "transaction quantity must be positive"}

	// Commission errors
	ErrUnknownScheme = &Error{Code: "UNKNOWN_SCHEME", Message: "unknown commission scheme"}

	// Strategy errors
	ErrBadPeriod        = &Error{Code: "BAD_PERIOD", Message: "rebalancing period must be som, eom, sow or eow"}
	ErrBadWeight        = &Error{Code: "BAD_WEIGHT", Message: "target weight must be between 0 and 1"}
	ErrInsufficientData = &Error{Code: "INSUFFICIENT_DATA", Message: "insufficient data points for metric"}

	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}

	// Persistence errors
	ErrStoreFailed   = &Error{Code: "STORE_FAILED", Message: "result store operation failed"}
	ErrArchiveFailed = &Error{Code: "ARCHIVE_FAILED", Message: "report archive operation failed"}
)
