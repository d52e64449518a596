package server

import (
	"net/http"
	"time"

	"github.com/fedauth/aselect/internal/o11y/logging"
)

type Middleware func(http.HandlerFunc) http.HandlerFunc

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newLoggingResponseWriter(w http.ResponseWriter) *loggingResponseWriter {
	return &loggingResponseWriter{w, http.StatusOK}
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func WithLogging(log *logging.Logger) Middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lrw := newLoggingResponseWriter(w)

			defer func() {
				log.Info("request finished",
					"method", r.Method,
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
					"status", lrw.statusCode,
					"duration", time.Since(start),
				)
			}()

			next.ServeHTTP(lrw, r)
		}
	}
}
