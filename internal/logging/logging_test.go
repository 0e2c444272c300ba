package logging

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		l, err := New("debug", format)
		require.NoError(t, err)
		assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
	}
	l, err := New("warn", "json")
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))

	_, err = New("loud", "json")
	assert.Error(t, err)
}

func TestRequestLoggerLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(core)

	for path, status := range map[string]int{"/ok": 200, "/missing": 404, "/broken": 500} {
		status := status
		h := middleware.RequestID(RequestLogger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	require.Equal(t, 3, logs.Len())
	byPath := map[string]observer.LoggedEntry{}
	for _, e := range logs.All() {
		byPath[e.ContextMap()["path"].(string)] = e
	}
	assert.Equal(t, zapcore.InfoLevel, byPath["/ok"].Level)
	assert.Equal(t, zapcore.WarnLevel, byPath["/missing"].Level)
	assert.Equal(t, zapcore.ErrorLevel, byPath["/broken"].Level)
	assert.NotEmpty(t, byPath["/ok"].ContextMap()["request_id"])
	assert.EqualValues(t, 404, byPath["/missing"].ContextMap()["status"])
}
