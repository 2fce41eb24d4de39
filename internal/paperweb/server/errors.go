package server

import (
	stderrors "errors"
	"net/http"

	"github.com/paperfeed/paperfeed/internal/mailbox"
	"github.com/paperfeed/paperfeed/internal/paperd/errors"
)

// HTTPError carries an explicit status code through the handler chain
type HTTPError interface {
	error
	StatusCode() int
}

type httpError struct {
	msg  string
	code int
}

func (e *httpError) Error() string {
	return e.msg
}

func (e *httpError) StatusCode() int {
	return e.code
}

func ErrInvalidRequest(msg string) error {
	return &httpError{msg: msg, code: http.StatusBadRequest}
}

func ErrNotFound(msg string) error {
	return &httpError{msg: msg, code: http.StatusNotFound}
}

func ErrTooLarge(msg string) error {
	return &httpError{msg: msg, code: http.StatusRequestEntityTooLarge}
}

// statusOf maps an error onto an HTTP status and client-safe message
func statusOf(err error) (int, string) {
	var he HTTPError
	if stderrors.As(err, &he) {
		return he.StatusCode(), he.Error()
	}

	switch {
	case stderrors.Is(err, mailbox.ErrResponseTimeout):
		// the renderer did not answer; the outcome is unknown
		return http.StatusGatewayTimeout, err.Error()
	case errors.IsNotFound(err), errors.IsContentMissing(err):
		return http.StatusNotFound, err.Error()
	case errors.IsConflict(err):
		return http.StatusConflict, err.Error()
	case errors.IsInvalidInput(err):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}
