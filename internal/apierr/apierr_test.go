package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestFromClassifiesWrappedSentinels(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("quiz q1: %w", ErrNotFound), http.StatusNotFound, "not_found"},
		{ErrInvalidCredential, http.StatusUnauthorized, "invalid_credential"},
		{fmt.Errorf("user u1: %w", ErrAccountDisabled), http.StatusForbidden, "account_disabled"},
		{ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
		{ErrUnauthorized, http.StatusForbidden, "unauthorized"},
		{ErrEmptyQuiz, http.StatusUnprocessableEntity, "empty_quiz"},
		{ErrConflict, http.StatusConflict, "conflict"},
		{Invalid("password too short"), http.StatusBadRequest, "invalid_input"},
		{errors.New("disk on fire"), http.StatusInternalServerError, "internal"},
	}
	for _, c := range cases {
		got := From(c.err)
		if got.Status != c.status || got.Code != c.code {
			t.Errorf("From(%v) = %d/%s, want %d/%s", c.err, got.Status, got.Code, c.status, c.code)
		}
		if !errors.Is(got, c.err) && got.Err != c.err {
			t.Errorf("From(%v) lost the cause", c.err)
		}
	}
}

func TestFromKeepsExplicitError(t *testing.T) {
	in := New(http.StatusRequestEntityTooLarge, "too_large", errors.New("upload too large"))
	if got := From(fmt.Errorf("upload: %w", in)); got != in {
		t.Fatalf("expected the explicit *Error to pass through")
	}
}
