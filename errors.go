package quill

import (
	"errors"
	"net/http"
	"strings"

	"github.com/256dpi/xo"

	"github.com/256dpi/quill/blaze"
	"github.com/256dpi/quill/coal"
	"github.com/256dpi/quill/heat"
	"github.com/256dpi/quill/page"
	"github.com/256dpi/quill/stick"
)

// ErrNotFound is returned if a referenced entity does not exist or is not
// visible to the requester.
var ErrNotFound = xo.BF("not found")

// ErrUnauthorized is returned if the request is not authenticated.
var ErrUnauthorized = xo.BF("unauthorized")

// ErrAccessDenied is returned if the authenticated user is neither the owner
// of an entity nor an admin.
var ErrAccessDenied = xo.BF("access denied")

// Error is the JSON representation of a failed request.
type Error struct {
	// The HTTP status code.
	Status int `json:"status"`

	// A human-readable explanation.
	Message string `json:"message,omitempty"`

	// The messages of invalid fields.
	Errors map[string]string `json:"errors,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// AsError will try to unwrap an Error from err.
func AsError(err error) *Error {
	var anError *Error
	if errors.As(err, &anError) {
		return anError
	}
	return nil
}

// ErrorFromStatus will return an error that has been derived from the passed
// status code.
func ErrorFromStatus(status int, message string) *Error {
	// get text
	str := strings.ToLower(http.StatusText(status))

	// check text
	if str == "" {
		status = http.StatusInternalServerError
		str = strings.ToLower(http.StatusText(status))
	}

	// set default message
	if message == "" {
		message = str
	}

	return &Error{
		Status:  status,
		Message: message,
	}
}

// Classify converts err into the error presented to the client. The second
// return value reports whether the error was unexpected and should be
// reported.
func Classify(err error) (*Error, bool) {
	// check validation errors
	if verr := stick.AsValidationError(err); verr != nil {
		return &Error{
			Status: http.StatusBadRequest,
			Errors: verr.Fields,
		}, false
	}

	// check rich errors
	if anError := AsError(err); anError != nil {
		return anError, false
	}

	switch {
	case ErrNotFound.Is(err), blaze.ErrNotFound.Is(err):
		return ErrorFromStatus(http.StatusNotFound, ""), false
	case ErrUnauthorized.Is(err), heat.ErrInvalidToken.Is(err), heat.ErrExpiredToken.Is(err):
		return ErrorFromStatus(http.StatusUnauthorized, ""), false
	case ErrAccessDenied.Is(err):
		return ErrorFromStatus(http.StatusForbidden, ""), false
	case page.ErrInvalidLimit.Is(err):
		return ErrorFromStatus(http.StatusBadRequest, "limit has to be a number"), false
	case coal.ErrTransactionConflict.Is(err):
		return ErrorFromStatus(http.StatusInternalServerError, "transaction conflict, please retry"), true
	case xo.IsSafe(err):
		return ErrorFromStatus(http.StatusBadRequest, xo.AsSafe(err).Msg), false
	}

	return ErrorFromStatus(http.StatusInternalServerError, ""), true
}
