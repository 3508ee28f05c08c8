package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	json "github.com/goccy/go-json"

	"github.com/bher20/solarquote/internal/auth"
	"github.com/bher20/solarquote/internal/calculator"
	"github.com/bher20/solarquote/internal/estimates"
	"github.com/bher20/solarquote/internal/metrics"
	"github.com/bher20/solarquote/internal/notification"
	"github.com/bher20/solarquote/internal/portfolio"
	"github.com/bher20/solarquote/internal/states"
)

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// writeJSON encodes v before writing the header so an unencodable value
// becomes a 500 instead of an empty success.
func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Printf("api: encode response failed: %v", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal error"}` + "\n"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(b, '\n'))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, calculator.ErrInvalidInput),
		errors.Is(err, portfolio.ErrUnknownSort),
		errors.Is(err, states.ErrNoEnergyCharge),
		errors.Is(err, notification.ErrUnknownProvider):
		return http.StatusBadRequest
	case errors.Is(err, calculator.ErrUnknownKind),
		errors.Is(err, states.ErrUnknownState),
		errors.Is(err, estimates.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// writeErr renders err with its mapped status. Server errors are logged and
// hidden from the client.
func writeErr(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("api: internal error: %v", err)
		writeError(w, status, "internal error")
		return
	}
	body := errorBody{Error: err.Error()}
	var ie *calculator.InputError
	if errors.As(err, &ie) {
		body.Field = ie.Field
	}
	writeJSON(w, status, body)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument records request count, latency and error responses for route.
func instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		metrics.RequestsTotal.WithLabelValues(route).Inc()

		next.ServeHTTP(rec, r)

		metrics.RequestDurationSeconds.WithLabelValues(route).Observe(time.Since(start).Seconds())
		if rec.status >= 400 {
			metrics.RequestErrorsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		}
	})
}
