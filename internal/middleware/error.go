package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	logpkg "github.com/benvon/time-import/internal/logger"
	"go.uber.org/zap"
)

// ErrorResponse is the body written when a handler panics
type ErrorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// startedWriter records whether the wrapped handler began its response
type startedWriter struct {
	http.ResponseWriter
	started bool
}

func (w *startedWriter) WriteHeader(code int) {
	w.started = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *startedWriter) Write(b []byte) (int, error) {
	w.started = true
	return w.ResponseWriter.Write(b)
}

// ErrorHandler recovers panics in handlers and answers with a JSON 500. A panic with
// http.ErrAbortHandler is passed on so net/http aborts the connection; a panic after the
// response started is only logged.
func ErrorHandler(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &startedWriter{ResponseWriter: w}
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.Error("panic_recovered",
					zap.Any("error", rec),
					zap.String("path", logpkg.SanitizePath(r.URL.Path)),
					zap.String("method", r.Method),
					zap.Bool("response_started", sw.started),
					zap.Stack("stack"),
				)
				if !sw.started {
					writePanicResponse(w, logger)
				}
			}()

			next.ServeHTTP(sw, r)
		})
	}
}

func writePanicResponse(w http.ResponseWriter, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Success:   false,
		Error:     "internal_error",
		Message:   "An unexpected error occurred",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		logger.Error("failed_to_encode_error_response", zap.Error(err))
	}
}
