package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Domain failures. Wrap with %w to add context; callers match with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidCredential = errors.New("invalid credentials")
	ErrAccountDisabled   = errors.New("account disabled")
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrUnauthorized      = errors.New("not permitted")
	ErrEmptyQuiz         = errors.New("quiz has no questions")
	ErrConflict          = errors.New("conflict")
	ErrInvalidInput      = errors.New("invalid input")
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	return fmt.Sprintf("api error (%d)", e.Status)
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

var table = []struct {
	target error
	status int
	code   string
}{
	{ErrNotFound, http.StatusNotFound, "not_found"},
	{ErrInvalidCredential, http.StatusUnauthorized, "invalid_credential"},
	{ErrAccountDisabled, http.StatusForbidden, "account_disabled"},
	{ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
	{ErrUnauthorized, http.StatusForbidden, "unauthorized"},
	{ErrEmptyQuiz, http.StatusUnprocessableEntity, "empty_quiz"},
	{ErrConflict, http.StatusConflict, "conflict"},
	{ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
}

// From classifies err. Anything outside the taxonomy is a 500 "internal".
func From(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	for _, row := range table {
		if errors.Is(err, row.target) {
			return New(row.status, row.code, err)
		}
	}
	return New(http.StatusInternalServerError, "internal", err)
}

// Invalid wraps a validation message as ErrInvalidInput.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidInput)
}
