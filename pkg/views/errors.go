package views

import (
	"errors"
	"net/http"

	"github.com/goliatone/go-crudform/pkg/form"
	"github.com/goliatone/go-crudform/pkg/store"
)

// HTTPError is an error that knows its response status.
type HTTPError interface {
	error
	StatusCode() int
}

// StatusError attaches an HTTP status to an error.
type StatusError struct {
	Code int
	Err  error
}

func (e StatusError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.Code)
}

func (e StatusError) Unwrap() error { return e.Err }

func (e StatusError) StatusCode() int {
	if e.Code <= 0 {
		return http.StatusInternalServerError
	}
	return e.Code
}

// statusOf maps handler errors onto a response status and metric outcome.
func statusOf(err error) (int, string) {
	var httpErr HTTPError
	switch {
	case errors.As(err, &httpErr):
		code := httpErr.StatusCode()
		return code, outcomeFor(code)
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, OutcomeNotFound
	case errors.Is(err, form.ErrChildNotFound), errors.Is(err, form.ErrInconsistentEntry):
		return http.StatusConflict, OutcomeConflict
	default:
		return http.StatusInternalServerError, OutcomeError
	}
}

func outcomeFor(code int) string {
	switch code {
	case http.StatusNotFound:
		return OutcomeNotFound
	case http.StatusConflict:
		return OutcomeConflict
	case http.StatusBadRequest, http.StatusMethodNotAllowed:
		return OutcomeBadRequest
	case http.StatusForbidden, http.StatusUnauthorized:
		return OutcomeForbidden
	default:
		return OutcomeError
	}
}
