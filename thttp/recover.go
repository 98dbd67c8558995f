package thttp

import (
	"net/http"
	"runtime/debug"

	"github.com/ridge/parallel"
	"github.com/ridge/solstream/tlog"
	"go.uber.org/zap"
)

// Recover answers status 500 when the handler panics and hands the panic to
// the enclosing Server, which then stops
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			p := recover()
			if p == nil {
				return
			}
			err := parallel.ErrPanic{Value: p, Stack: debug.Stack()}
			tlog.Get(r.Context()).Error("HTTP handler panicked", zap.Error(err))
			w.WriteHeader(http.StatusInternalServerError)
			if panics, ok := r.Context().Value(panicKey).(chan error); ok {
				select {
				case panics <- err:
				default:
				}
			}
		}()
		next.ServeHTTP(w, r)
	})
}
