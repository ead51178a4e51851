package shopsearch

import "github.com/cockroachdb/errors"

// FetchFailedMessage is the only user-facing error text. Network and decode
// failures alike are reported with it.
const FetchFailedMessage = "Failed to fetch results"

// ErrorCode represents specific error codes for search operations.
type ErrorCode int

const (
	// ErrCodeFetchFailed is returned when a search request or its decoding fails.
	ErrCodeFetchFailed ErrorCode = iota + 1000

	// ErrCodeInvalidParam is returned when a query-string parameter cannot be parsed.
	ErrCodeInvalidParam

	// ErrCodeInvalidExpression is returned when an invalid expression is provided.
	ErrCodeInvalidExpression

	// ErrCodeTimeout is returned when a search operation times out.
	ErrCodeTimeout

	// ErrCodeCanceled is returned when a search operation is canceled.
	ErrCodeCanceled

	// ErrCodeBackendUnavailable is returned when the search backend is unavailable.
	ErrCodeBackendUnavailable

	// ErrCodeAlreadyBootstrapped is returned when filter state is bootstrapped twice.
	ErrCodeAlreadyBootstrapped
)

// String returns the human-readable string representation of the error code.
// This implements the fmt.Stringer interface.
func (e ErrorCode) String() string {
	switch e {
	case ErrCodeFetchFailed:
		return "fetch failed"
	case ErrCodeInvalidParam:
		return "invalid parameter"
	case ErrCodeInvalidExpression:
		return "invalid expression"
	case ErrCodeTimeout:
		return "operation timed out"
	case ErrCodeCanceled:
		return "operation canceled"
	case ErrCodeBackendUnavailable:
		return "backend unavailable"
	case ErrCodeAlreadyBootstrapped:
		return "already bootstrapped"
	default:
		return "unknown error"
	}
}

// newErrorWithCode creates a new error with a code and message.
func newErrorWithCode(code ErrorCode, msg string) error {
	err := errors.New(msg)
	return errors.WithSecondaryError(err, errors.Newf("code: %d", int(code)))
}

// Common errors that can be returned by search operations.
var (
	// ErrFetchFailed is returned when a search request fails or its body cannot be decoded.
	ErrFetchFailed = newErrorWithCode(ErrCodeFetchFailed, "shopsearch: fetch failed")

	// ErrInvalidParam is returned when an address-bar or request parameter is malformed.
	ErrInvalidParam = newErrorWithCode(ErrCodeInvalidParam, "shopsearch: invalid parameter")

	// ErrInvalidExpression is returned when an invalid expression is provided.
	ErrInvalidExpression = newErrorWithCode(ErrCodeInvalidExpression, "shopsearch: invalid expression")

	// ErrTimeout is returned when a search operation times out.
	ErrTimeout = newErrorWithCode(ErrCodeTimeout, "shopsearch: operation timed out")

	// ErrCanceled is returned when a search operation is canceled.
	ErrCanceled = newErrorWithCode(ErrCodeCanceled, "shopsearch: operation canceled")

	// ErrBackendUnavailable is returned when the search backend is unavailable.
	ErrBackendUnavailable = newErrorWithCode(ErrCodeBackendUnavailable, "shopsearch: backend unavailable")

	// ErrAlreadyBootstrapped is returned when filter state was already read from the address bar.
	ErrAlreadyBootstrapped = newErrorWithCode(ErrCodeAlreadyBootstrapped, "shopsearch: already bootstrapped")
)
