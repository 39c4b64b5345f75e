// Package apperr carries machine-checkable error codes from the domain
// services to the HTTP layer. Handlers map Kind to a status code and echo
// Code in the response envelope.
package apperr

type Kind int

const (
	KindValidation Kind = iota
	KindConflict
	KindForbidden
	KindNotFound
)

type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

func Validation(code, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message}
}

func Conflict(code, message string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Code: "FORBIDDEN", Message: message}
}

func NotFound(code, message string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: message}
}
