package handlers

import (
	"net/http"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/andrewpaige1/studyplan-api/logger"
	"github.com/andrewpaige1/studyplan-api/validation"
)

// httpError is an error with the status and client-facing message it maps to.
// err, when set, is only logged.
type httpError struct {
	status  int
	message string
	err     error
}

func (e *httpError) Error() string {
	if e.err != nil {
		return e.message + ": " + e.err.Error()
	}
	return e.message
}

func (e *httpError) Unwrap() error {
	return e.err
}

var errUnauthorized = &httpError{status: http.StatusUnauthorized, message: "Unauthorized"}

func notFound(message string) error {
	return &httpError{status: http.StatusNotFound, message: message}
}

func badRequest(message string) error {
	return &httpError{status: http.StatusBadRequest, message: message}
}

// serverError hides err from the client behind message.
func serverError(message string, err error) error {
	return &httpError{status: http.StatusInternalServerError, message: message, err: err}
}

// writeError maps err onto a JSON error response. 5xx errors are logged and
// reported with the request; their cause never reaches the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		herr *httpError
		verr *validation.Error
	)
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":  "validation failed",
			"fields": verr.Fields,
		})
		return
	case errors.As(err, &herr):
	case errors.Is(err, gorm.ErrRecordNotFound):
		herr = &httpError{status: http.StatusNotFound, message: "Not found"}
	default:
		herr = &httpError{status: http.StatusInternalServerError, message: http.StatusText(http.StatusInternalServerError), err: err}
	}

	if herr.status >= http.StatusInternalServerError {
		cause := err
		if herr.err != nil {
			cause = errors.Cause(herr.err)
		}
		logger.Report(herr.message, cause, r)
	}
	writeJSON(w, herr.status, map[string]string{"error": herr.message})
}
