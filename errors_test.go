package quill

import (
	"io"
	"net/http"
	"testing"

	"github.com/256dpi/xo"
	"github.com/stretchr/testify/assert"

	"github.com/256dpi/quill/blaze"
	"github.com/256dpi/quill/coal"
	"github.com/256dpi/quill/heat"
	"github.com/256dpi/quill/page"
	"github.com/256dpi/quill/stick"
)

func TestErrorFromStatus(t *testing.T) {
	assert.Equal(t, &Error{
		Status:  http.StatusNotFound,
		Message: "not found",
	}, ErrorFromStatus(http.StatusNotFound, ""))

	assert.Equal(t, &Error{
		Status:  http.StatusUnauthorized,
		Message: "user is banned",
	}, ErrorFromStatus(http.StatusUnauthorized, "user is banned"))

	assert.Equal(t, &Error{
		Status:  http.StatusInternalServerError,
		Message: "internal server error",
	}, ErrorFromStatus(999, ""))
}

func TestAsError(t *testing.T) {
	err := ErrorFromStatus(http.StatusForbidden, "")
	assert.Equal(t, err, AsError(xo.W(err)))
	assert.Nil(t, AsError(io.EOF))
}

func TestClassify(t *testing.T) {
	table := []struct {
		err        error
		status     int
		message    string
		unexpected bool
	}{
		{ErrNotFound.Wrap(), http.StatusNotFound, "not found", false},
		{blaze.ErrNotFound.Wrap(), http.StatusNotFound, "not found", false},
		{ErrUnauthorized.Wrap(), http.StatusUnauthorized, "unauthorized", false},
		{heat.ErrInvalidToken.Wrap(), http.StatusUnauthorized, "unauthorized", false},
		{heat.ErrExpiredToken.Wrap(), http.StatusUnauthorized, "unauthorized", false},
		{ErrAccessDenied.Wrap(), http.StatusForbidden, "forbidden", false},
		{page.ErrInvalidLimit.Wrap(), http.StatusBadRequest, "limit has to be a number", false},
		{coal.ErrTransactionConflict.Wrap(), http.StatusInternalServerError, "transaction conflict, please retry", true},
		{xo.SF("invalid body"), http.StatusBadRequest, "invalid body", false},
		{ErrorFromStatus(http.StatusConflict, "taken"), http.StatusConflict, "taken", false},
		{io.EOF, http.StatusInternalServerError, "internal server error", true},
	}

	for _, item := range table {
		anError, unexpected := Classify(item.err)
		assert.Equal(t, item.status, anError.Status, item.err.Error())
		assert.Equal(t, item.message, anError.Message, item.err.Error())
		assert.Equal(t, item.unexpected, unexpected, item.err.Error())
	}
}

func TestClassifyValidation(t *testing.T) {
	anError, unexpected := Classify(xo.W(stick.Invalid("email", "email already in use")))
	assert.False(t, unexpected)
	assert.Equal(t, &Error{
		Status: http.StatusBadRequest,
		Errors: map[string]string{
			"email": "email already in use",
		},
	}, anError)
}
