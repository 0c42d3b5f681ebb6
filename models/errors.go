package models

import (
	"errors"
	"fmt"
)

// Error codes used in query results, API responses and internal error handling.
const (
	ErrCodeBrowserLaunch = "BROWSER_LAUNCH_FAILED"
	ErrCodeTimeout       = "SCRAPE_TIMEOUT"
	ErrCodeNavigation    = "NAVIGATION_FAILED"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeDetailLoad    = "DETAIL_LOAD_FAILED"
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeRateLimited   = "RATE_LIMITED"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeOverloaded    = "OVERLOADED"
	ErrCodeInternal      = "INTERNAL_ERROR"
)

// ErrorResponse is the body of API rejections that happen before a query
// runs (validation, auth, rate limiting, overload).
type ErrorResponse struct {
	Detail string `json:"detail"`
	Code   string `json:"code"`
}

// NewErrorResponse builds an ErrorResponse.
func NewErrorResponse(code, detail string) ErrorResponse {
	return ErrorResponse{Detail: detail, Code: code}
}

// QueryError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type QueryError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

// Error renders the message followed by the wrapped cause. The code is kept
// out of the text because the text is shown to API callers verbatim.
func (e *QueryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// NewQueryError creates a new QueryError.
func NewQueryError(code, message string, err error) *QueryError {
	return &QueryError{Code: code, Message: message, Err: err}
}

// CodeOf returns the code of the outermost QueryError in err's chain,
// or ErrCodeInternal when there is none.
func CodeOf(err error) string {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Code
	}
	return ErrCodeInternal
}
