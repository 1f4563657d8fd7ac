package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"budgetbuddy/internal/log"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// RequestLogger logs one line per request with its status and duration.
func RequestLogger(logger *log.Logger, next http.Handler) http.Handler {
	logger = log.OrDiscard(logger).WithComponent(log.ComponentWeb)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		w.Header().Set("X-Request-ID", requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		args := []any{
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldURL, r.URL.Path,
			log.FieldStatusCode, rec.status,
			log.FieldDuration, time.Since(start).Milliseconds(),
		}
		switch {
		case rec.status >= 500:
			logger.ErrorContext(r.Context(), "request", args...)
		case rec.status >= 400:
			logger.WarnContext(r.Context(), "request", args...)
		default:
			logger.InfoContext(r.Context(), "request", args...)
		}
	})
}
