// Package apperr carries the typed errors the engine returns to its
// transport layer. Every failing operation returns an *Error with a Kind;
// the HTTP layer maps kinds to status codes with HTTPStatus.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation    Kind = "validation"
	KindNotFound      Kind = "not_found"
	KindAuthz         Kind = "authz"
	KindNotJoined     Kind = "not_joined"
	KindConflict      Kind = "conflict"
	KindExpired       Kind = "expired"
	KindQuotaExceeded Kind = "quota_exceeded"
	KindStorage       Kind = "storage"
	KindInternal      Kind = "internal"
)

type Error struct {
	Kind    Kind   `json:"kind"`
	Entity  string `json:"entity,omitempty"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Entity != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Entity, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, entity, message string) *Error {
	return &Error{Kind: kind, Entity: entity, Message: message}
}

func Validation(entity, message string) *Error {
	return New(KindValidation, entity, message)
}

func NotFound(entity string) *Error {
	return New(KindNotFound, entity, entity+" not found")
}

func Authz(entity, message string) *Error {
	return New(KindAuthz, entity, message)
}

func NotJoined(entity string) *Error {
	return New(KindNotJoined, entity, "user is not a member of this room")
}

func Conflict(entity, message string) *Error {
	return New(KindConflict, entity, message)
}

func Expired(entity, message string) *Error {
	return New(KindExpired, entity, message)
}

func QuotaExceeded(entity, message string) *Error {
	return New(KindQuotaExceeded, entity, message)
}

func Storage(entity string, err error) *Error {
	return &Error{Kind: KindStorage, Entity: entity, Message: "storage failure", Err: err}
}

func Internal(entity, message string) *Error {
	return New(KindInternal, entity, message)
}

func Wrap(kind Kind, entity, message string, err error) *Error {
	return &Error{Kind: kind, Entity: entity, Message: message, Err: err}
}

// KindOf reports the kind of err, or KindInternal for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindAuthz:
		return http.StatusForbidden
	case KindNotJoined:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindExpired:
		return http.StatusGone
	case KindQuotaExceeded:
		return http.StatusTooManyRequests
	case KindStorage:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
