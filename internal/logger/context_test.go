package logger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextLogger(t *testing.T) {
	logger := logrus.New()
	entry := logger.WithField("test", "value")

	ctx := WithLogger(context.Background(), entry)
	assert.Equal(t, "value", FromContext(ctx).Data["test"])

	assert.NotNil(t, FromContext(context.Background()))
}

func TestContextRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-123")
	assert.Equal(t, "req-123", GetRequestID(ctx))
	assert.Empty(t, GetRequestID(context.Background()))
}

func TestRequestLoggerMiddleware(t *testing.T) {
	logger, _ := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	var gotID string
	var gotEntry *logrus.Entry
	h := RequestLoggerMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = GetRequestID(r.Context())
		gotEntry = FromContext(r.Context())
	}))

	req := httptest.NewRequest("GET", "/panels/abc", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.NotEmpty(t, gotID)
	require.NotNil(t, gotEntry)
	assert.Equal(t, gotID, gotEntry.Data["request_id"])
	assert.Equal(t, "/panels/abc", gotEntry.Data["path"])

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-ID", "fixed")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "fixed", gotID)
}

func TestResponseWriter(t *testing.T) {
	rr := httptest.NewRecorder()
	rw := NewResponseWriter(rr)
	assert.Equal(t, http.StatusOK, rw.StatusCode())

	rw.WriteHeader(http.StatusNotFound)
	rw.WriteHeader(http.StatusInternalServerError)
	assert.Equal(t, http.StatusNotFound, rw.StatusCode())
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rw2 := NewResponseWriter(httptest.NewRecorder())
	_, err := rw2.Write([]byte("ok"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rw2.StatusCode())
	assert.Equal(t, rr, rw.Unwrap())

	_, _, err = rw2.Hijack()
	assert.Error(t, err)
}
