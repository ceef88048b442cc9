// Package errors is the coded error type every layer returns; import it as perr
package errors

import (
	stderrs "errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies an error for logs and the HTTP envelope; values are on
// the wire, append only
type ErrorCode uint16

const (
	ErrorCodeUnknown         ErrorCode = iota // unclassified
	ErrorCodePanic                            // recovered by middleware
	ErrorCodeUnavailable                      // transient, retry may succeed
	ErrorCodeTooManyRequests                  // upstream rate limit
	ErrorCodeConflict                         // not allowed in the current state
	ErrorCodeInvalidArgument                  // bad parameters or settings
	ErrorCodeValidation                       // request data failed validation
	ErrorCodeJSON                             // undecodable request body
	ErrorCodeNotFound                         // missing resource
	ErrorCodeDB                               // database failure
	ErrorCodeDriver                           // reader hardware failure
	ErrorCodeLookup                           // remote product lookup failure
	ErrorCodeTimeout                          // gave up waiting
)

var codeInfo = [...]struct {
	label  string
	status int
}{
	ErrorCodeUnknown:         {"unknown", http.StatusInternalServerError},
	ErrorCodePanic:           {"panic", http.StatusInternalServerError},
	ErrorCodeUnavailable:     {"unavailable", http.StatusServiceUnavailable},
	ErrorCodeTooManyRequests: {"too_many_requests", http.StatusTooManyRequests},
	ErrorCodeConflict:        {"conflict", http.StatusConflict},
	ErrorCodeInvalidArgument: {"invalid_argument", http.StatusUnprocessableEntity},
	ErrorCodeValidation:      {"validation", http.StatusBadRequest},
	ErrorCodeJSON:            {"json", http.StatusBadRequest},
	ErrorCodeNotFound:        {"not_found", http.StatusNotFound},
	ErrorCodeDB:              {"db", http.StatusInternalServerError},
	ErrorCodeDriver:          {"driver", http.StatusServiceUnavailable},
	ErrorCodeLookup:          {"lookup", http.StatusBadGateway},
	ErrorCodeTimeout:         {"timeout", http.StatusGatewayTimeout},
}

func (c ErrorCode) known() bool { return int(c) < len(codeInfo) }

// String is the log label, "unknown" for codes this build does not know
func (c ErrorCode) String() string {
	if !c.known() {
		return codeInfo[ErrorCodeUnknown].label
	}
	return codeInfo[c].label
}

// HTTPStatusCode is the response status for c
func HTTPStatusCode(c ErrorCode) int {
	if !c.known() {
		return http.StatusInternalServerError
	}
	return codeInfo[c].status
}

// Error carries a code, a caller facing message and optionally the cause,
// the offending field and an operation label
type Error struct {
	code  ErrorCode
	msg   string
	cause error
	field string
	op    string
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return "<nil>"
	case e.cause != nil:
		return e.msg + ": " + e.cause.Error()
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.cause }

// Code is the classification
func (e *Error) Code() ErrorCode { return e.code }

// Field names the input that failed, if any
func (e *Error) Field() string { return e.field }

// Op labels the operation that failed, if set
func (e *Error) Op() string { return e.op }

// New returns a coded error
func New(code ErrorCode, msg string) error { return &Error{code: code, msg: msg} }

// Newf is New with formatting
func Newf(code ErrorCode, format string, a ...any) error {
	return New(code, fmt.Sprintf(format, a...))
}

// Wrap codes cause; the message shown to callers is msg, Error() appends the cause
func Wrap(cause error, code ErrorCode, msg string) error {
	return &Error{code: code, msg: msg, cause: cause}
}

// Wrapf is Wrap with formatting
func Wrapf(cause error, code ErrorCode, format string, a ...any) error {
	return Wrap(cause, code, fmt.Sprintf(format, a...))
}

// WrapIf is Wrap that keeps nil as nil
func WrapIf(err error, code ErrorCode, msg string) error {
	if err == nil {
		return nil
	}
	return Wrap(err, code, msg)
}

func coded(code ErrorCode) func(string, ...any) error {
	return func(format string, a ...any) error { return Newf(code, format, a...) }
}

// Shorthands for the codes handlers raise most
var (
	NotFoundf    = coded(ErrorCodeNotFound)
	InvalidArgf  = coded(ErrorCodeInvalidArgument)
	Conflictf    = coded(ErrorCodeConflict)
	JSONErrf     = coded(ErrorCodeJSON)
	PanicErrf    = coded(ErrorCodePanic)
	Unavailablef = coded(ErrorCodeUnavailable)
	Driverf      = coded(ErrorCodeDriver)
	Lookupf      = coded(ErrorCodeLookup)
)

// with copies our error and applies set; foreign errors come back unchanged
func with(err error, set func(*Error)) error {
	e, ok := As(err)
	if !ok {
		return err
	}
	c := *e
	set(&c)
	return &c
}

// WithField names the offending input
func WithField(err error, field string) error { return with(err, func(e *Error) { e.field = field }) }

// WithOp labels the failing operation
func WithOp(err error, op string) error { return with(err, func(e *Error) { e.op = op }) }

// As finds our error anywhere in the chain
func As(err error) (*Error, bool) {
	var e *Error
	ok := stderrs.As(err, &e)
	return e, ok
}

// Is is errors.Is, so callers only import perr
func Is(err, target error) bool { return stderrs.Is(err, target) }

// Root follows Unwrap to the innermost cause
func Root(err error) error {
	for {
		next := stderrs.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

// CodeOf is the code of the outermost coded error in the chain, Unknown otherwise
func CodeOf(err error) ErrorCode {
	if e, ok := As(err); ok {
		return e.code
	}
	return ErrorCodeUnknown
}

// IsCode reports whether CodeOf(err) is code
func IsCode(err error, code ErrorCode) bool { return CodeOf(err) == code }

// Wire is the error part of the HTTP envelope
type Wire struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
}

// WireFrom renders any error; foreign errors become Unknown with their text
func WireFrom(err error) Wire {
	if err == nil {
		return Wire{}
	}
	if e, ok := As(err); ok {
		return Wire{Code: e.code, Message: e.msg, Field: e.field}
	}
	return Wire{Code: ErrorCodeUnknown, Message: err.Error()}
}

// HTTP is the status and wire form for err, 200 for nil
func HTTP(err error) (int, Wire) {
	if err == nil {
		return http.StatusOK, Wire{}
	}
	return HTTPStatusCode(CodeOf(err)), WireFrom(err)
}

// Retryable covers the transient codes plus transient database conditions
func Retryable(err error) bool {
	switch CodeOf(err) {
	case ErrorCodeUnavailable, ErrorCodeTooManyRequests, ErrorCodeTimeout:
		return true
	}
	return IsRetryable(err)
}
