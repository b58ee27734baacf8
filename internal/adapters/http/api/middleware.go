package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/okian/parrot/pkg/logger"
	"github.com/okian/parrot/pkg/metrics"
)

// HTTP status code constants.
const (
	statusBadRequest      = 400
	statusNotFound        = 404
	statusTooLarge        = 413
	statusTooManyRequests = 429
	statusInternalError   = 500
	statusBadGateway      = 502
	statusGatewayTimeout  = 504
)

// MetricsMiddleware wraps HTTP handlers to record Prometheus metrics. A
// panicking handler is answered with 500 and counted like any other error.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.Get().Error(r.Context(), "handler panic",
					logger.String("endpoint", endpoint),
					logger.Any("panic", rec))
				if !wrapped.wroteHeader {
					writeError(wrapped, http.StatusInternalServerError, codeInternal, nil)
				} else {
					wrapped.statusCode = http.StatusInternalServerError
				}
			}
			record(endpoint, r.Method, wrapped.statusCode, time.Since(start))
		}()

		next.ServeHTTP(wrapped, r)
	}
}

func record(endpoint, method string, status int, elapsed time.Duration) {
	durationMs := float64(elapsed.Milliseconds())
	code := strconv.Itoa(status)

	metrics.RecordHTTPRequest(endpoint, method, code)
	metrics.RecordHTTPRequestDuration(endpoint, method, code, durationMs)

	if status >= statusBadRequest {
		errorType := getErrorType(status)
		metrics.RecordErrorByEndpoint(endpoint, method, errorType)
		metrics.RecordErrorByType(errorType, getErrorSeverity(status))
	}
}

// getErrorType returns a standardized error type based on HTTP status code.
func getErrorType(statusCode int) string {
	switch {
	case statusCode == statusBadGateway, statusCode == statusGatewayTimeout:
		return "upstream_error"
	case statusCode >= statusInternalError:
		return "server_error"
	case statusCode == statusTooManyRequests:
		return "rate_limit"
	case statusCode == statusTooLarge:
		return "payload_too_large"
	case statusCode == statusNotFound:
		return "not_found"
	case statusCode >= statusBadRequest:
		return "client_error"
	default:
		return "unknown"
	}
}

// getErrorSeverity returns error severity based on HTTP status code.
func getErrorSeverity(statusCode int) string {
	switch {
	case statusCode == statusBadGateway, statusCode == statusGatewayTimeout:
		return "medium"
	case statusCode >= statusInternalError:
		return "high"
	default:
		return "low"
	}
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("failed to write response: %w", err)
	}
	return n, nil
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
