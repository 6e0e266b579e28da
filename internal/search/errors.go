package search

import (
	"errors"

	"github.com/campusbrain/campusbrain/internal/domain"
)

// Code tags an expected, user-facing search outcome. These are returned as
// data in the search result, not propagated as infrastructure failures.
type Code string

const (
	CodeAuthError    Code = "AUTH_ERROR"
	CodeNoResults    Code = "NO_RESULTS"
	CodeRateLimit    Code = "RATE_LIMIT"
	CodeNetworkError Code = "NETWORK_ERROR"
	CodeInvalidQuery Code = "INVALID_QUERY"
)

// Error is a tagged search-domain error.
type Error struct {
	Code    Code   `json:"type"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

// classify converts a board client failure into a tagged error.
func classify(err error) *Error {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return &Error{Code: CodeAuthError, Message: "board authentication failed"}
	case errors.Is(err, domain.ErrRateLimited):
		return &Error{Code: CodeRateLimit, Message: "board API rate limit reached"}
	default:
		return &Error{Code: CodeNetworkError, Message: "failed to contact the board API"}
	}
}
