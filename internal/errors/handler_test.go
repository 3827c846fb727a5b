package errors

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleError(t *testing.T) {
	logger, hook := test.NewNullLogger()
	handler := NewErrorHandler(logger)

	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedType   ErrorType
		expectedLevel  logrus.Level
	}{
		{"app error", NewValidationError("invalid input"), http.StatusBadRequest, ErrorTypeValidation, logrus.WarnLevel},
		{"standard error", errors.New("something went wrong"), http.StatusInternalServerError, ErrorTypeInternal, logrus.ErrorLevel},
		{"forbidden resource", NewForbiddenError("outside local resource roots"), http.StatusForbidden, ErrorTypeForbidden, logrus.WarnLevel},
		{"template failure", WrapTemplateError(errors.New("missing"), "dashboard.html"), http.StatusInternalServerError, ErrorTypeTemplate, logrus.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hook.Reset()
			req := httptest.NewRequest("GET", "/panels/1", nil)
			req.Header.Set("X-Request-ID", "req-1")
			rr := httptest.NewRecorder()

			handler.HandleError(rr, req, tt.err)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, tt.expectedType, resp.Error.Type)
			assert.Equal(t, "req-1", resp.TraceID)

			require.NotNil(t, hook.LastEntry())
			assert.Equal(t, tt.expectedLevel, hook.LastEntry().Level)
		})
	}
}

func TestHandleNotFoundAndMethodNotAllowed(t *testing.T) {
	logger, _ := test.NewNullLogger()
	handler := NewErrorHandler(logger)

	rr := httptest.NewRecorder()
	handler.HandleNotFound(rr, httptest.NewRequest("GET", "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = httptest.NewRecorder()
	handler.HandleMethodNotAllowed(rr, httptest.NewRequest("DELETE", "/commands/x", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestMiddlewareRecoversPanic(t *testing.T) {
	logger, hook := test.NewNullLogger()
	handler := NewErrorHandler(logger)

	h := handler.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("render exploded")
	}))

	rr := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		h.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, rr.Code)

	var sawPanic bool
	for _, e := range hook.AllEntries() {
		if e.Message == "Panic recovered in HTTP handler" {
			sawPanic = true
		}
	}
	assert.True(t, sawPanic)
}
