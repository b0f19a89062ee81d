package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure for HTTP mapping
type Kind int

const (
	KindUpstream Kind = iota
	KindAuth
	KindValidation
	KindNotFound
	KindRateLimit
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindRateLimit:
		return "rate_limit"
	default:
		return "upstream"
	}
}

// Sentinel causes for validation failures
var (
	ErrEmptyInput     = errors.New("no files provided")
	ErrMissingSummary = errors.New("test summary is required")
	ErrNoCredential   = errors.New("no access token")
)

// Error is the single error type crossing package boundaries
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Detail  any
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Kind.String() + " error"
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Auth reports a missing or rejected credential
func Auth(msg string, err error) *Error {
	return &Error{Kind: KindAuth, Status: http.StatusUnauthorized, Message: msg, Err: err}
}

// Validation reports a missing or malformed request field
func Validation(msg string, err error) *Error {
	return &Error{Kind: KindValidation, Status: http.StatusBadRequest, Message: msg, Err: err}
}

// NotFound reports an upstream 404
func NotFound(msg string, err error) *Error {
	return &Error{Kind: KindNotFound, Status: http.StatusNotFound, Message: msg, Err: err}
}

// RateLimit reports AI provider quota exhaustion
func RateLimit(msg string, err error) *Error {
	return &Error{Kind: KindRateLimit, Status: http.StatusTooManyRequests, Message: msg, Err: err}
}

// Upstream reports any other failure from a dependent API. A zero status
// means the upstream never answered.
func Upstream(status int, msg string, detail any, err error) *Error {
	return &Error{Kind: KindUpstream, Status: status, Message: msg, Detail: detail, Err: err}
}

// As extracts the first *Error in err's chain
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err, KindUpstream when unclassified
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindUpstream
}

// Is reports whether err carries the given kind
func Is(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}

// StatusCode maps err to the HTTP status surfaced to callers
func StatusCode(err error) int {
	e, ok := As(err)
	if !ok || e.Status < 400 || e.Status > 599 {
		return http.StatusInternalServerError
	}
	return e.Status
}

// DetailOf returns the upstream detail for err, falling back to its message
func DetailOf(err error) any {
	if e, ok := As(err); ok && e.Detail != nil {
		return e.Detail
	}
	return err.Error()
}
