package thttp

import (
	"net/http"
	"time"

	"github.com/ridge/solstream/tlog"
	"go.uber.org/zap"
)

// Log logs every request at Debug level once it is handled
func Log(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ctx := tlog.With(r.Context(),
			zap.String("method", r.Method),
			zap.String("url", r.URL.String()),
		)
		var status int
		next.ServeHTTP(CaptureStatus(w, &status), r.WithContext(ctx))
		tlog.Get(ctx).Debug("HTTP request handled", zap.Int("statusCode", status), zap.Duration("elapsed", time.Since(started)))
	})
}

// CaptureStatus wraps w so that the response status code is stored in
// *status. Hijacking keeps working when w supports it.
func CaptureStatus(w http.ResponseWriter, status *int) http.ResponseWriter {
	cs := captureStatus{ResponseWriter: w, status: status}
	if h, ok := w.(http.Hijacker); ok {
		cs.Hijacker = h
	}
	return cs
}

type captureStatus struct {
	http.ResponseWriter
	http.Hijacker
	status *int
}

func (cs captureStatus) Write(b []byte) (int, error) {
	if *cs.status == 0 {
		*cs.status = http.StatusOK
	}
	return cs.ResponseWriter.Write(b)
}

func (cs captureStatus) WriteHeader(statusCode int) {
	*cs.status = statusCode
	cs.ResponseWriter.WriteHeader(statusCode)
}
