package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOf(t *testing.T) {
	if got := KindOf(NotFound("room")); got != KindNotFound {
		t.Errorf("KindOf = %s, want %s", got, KindNotFound)
	}
	if got := KindOf(errors.New("plain")); got != KindInternal {
		t.Errorf("untyped error kind = %s, want %s", got, KindInternal)
	}

	// Wrapped errors keep their kind through fmt.Errorf chains.
	wrapped := fmt.Errorf("outer: %w", Conflict("room", "name taken"))
	if !IsKind(wrapped, KindConflict) {
		t.Error("kind lost through wrapping")
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Storage("room", cause)
	if !errors.Is(err, cause) {
		t.Error("Storage error does not unwrap to its cause")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{Validation("room", "bad"), http.StatusBadRequest},
		{NotFound("room"), http.StatusNotFound},
		{Authz("room", "no"), http.StatusForbidden},
		{NotJoined("room"), http.StatusForbidden},
		{Conflict("room", "dup"), http.StatusConflict},
		{Expired("assignment", "late"), http.StatusGone},
		{QuotaExceeded("room", "cap"), http.StatusTooManyRequests},
		{Storage("room", errors.New("db")), http.StatusBadGateway},
		{Internal("room", "boom"), http.StatusInternalServerError},
		{errors.New("untyped"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
