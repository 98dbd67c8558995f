package thttp

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ridge/solstream/test"
	"github.com/ridge/solstream/tlog"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLog(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	ctx := tlog.WithLogger(test.Context(t), zap.New(core))

	handler := Log(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	r := httptest.NewRequest(http.MethodGet, "http://localhost/metrics", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	require.Equal(t, http.StatusTeapot, w.Code)
	entries := logs.FilterMessage("HTTP request handled").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, "GET", fields["method"])
	require.Equal(t, int64(http.StatusTeapot), fields["statusCode"])
}
