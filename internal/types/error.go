package types

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure for transport mapping
type Kind string

const (
	KindInvalidInput    Kind = "InvalidInput"
	KindUnauthenticated Kind = "Unauthenticated"
	KindForbidden       Kind = "Forbidden"
	KindNotFound        Kind = "NotFound"
	KindPersistence     Kind = "PersistenceError"
	KindUpstream        Kind = "UpstreamError"
	KindConfiguration   Kind = "ConfigurationError"
)

var kindStatus = map[Kind]int{
	KindInvalidInput:    http.StatusBadRequest,
	KindUnauthenticated: http.StatusUnauthorized,
	KindForbidden:       http.StatusForbidden,
	KindNotFound:        http.StatusNotFound,
	KindPersistence:     http.StatusInternalServerError,
	KindUpstream:        http.StatusInternalServerError,
	KindConfiguration:   http.StatusInternalServerError,
}

type CustomError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Type    string `json:"type"`
	Kind    Kind   `json:"kind"`
	Err     error  `json:"-"`
}

func (e *CustomError) Error() string {
	return fmt.Sprintf("%d: %s [type: %s]", e.Code, e.Message, e.Type)
}

func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewError builds a CustomError whose Code follows the kind
func NewError(kind Kind, errorType, message string) *CustomError {
	return &CustomError{
		Code:    StatusFor(kind),
		Message: message,
		Type:    errorType,
		Kind:    kind,
	}
}

// WrapError is NewError that keeps the cause and uses its message
func WrapError(kind Kind, errorType string, err error) *CustomError {
	e := NewError(kind, errorType, err.Error())
	e.Err = err
	return e
}

// WithCode overrides the HTTP status derived from the kind
func (e *CustomError) WithCode(code int) *CustomError {
	e.Code = code
	return e
}

// StatusFor returns the HTTP status for a kind
func StatusFor(kind Kind) int {
	if code, ok := kindStatus[kind]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// KindOf reports the kind of err, or "" when err carries none
func KindOf(err error) Kind {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}
