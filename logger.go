package quill

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/256dpi/xo"
)

// DefaultRequestLogger constructs a middleware that logs requests to the
// "QUILL" sink.
func DefaultRequestLogger() func(http.Handler) http.Handler {
	return NewRequestLogger(xo.Sink("QUILL"))
}

// NewRequestLogger constructs a middleware that logs requests to the provided
// writer.
func NewRequestLogger(out io.Writer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// wrap response writer
			wrw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			// save start
			start := time.Now()

			// call next handler
			next.ServeHTTP(wrw, r)

			// log request
			_, _ = fmt.Fprintf(out, "[%s] (%d) %s - %s\n", r.Method, wrw.status, r.URL.Path, time.Since(start).String())
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (w *statusWriter) WriteHeader(status int) {
	// record first status
	if !w.wrote {
		w.status = status
		w.wrote = true
	}

	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(data []byte) (int, error) {
	w.wrote = true
	return w.ResponseWriter.Write(data)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
