package logging

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

// RequestIDHeader carries the per-request correlation id
const RequestIDHeader = "X-Request-ID"

// quietPaths are logged at debug level only
var quietPaths = map[string]bool{
	"/healthz": true,
	"/metrics": true,
}

// HTTPMiddleware stamps every request with a request id, echoed in the
// response header and stored in the request context, and logs one line
// when the request completes. Server errors are logged as warnings. The
// query string is never logged since it may carry the access key.
func HTTPMiddleware(logger Logger) func(http.Handler) http.Handler {
	logger = OrNop(logger)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, requestID)
			r = r.WithContext(ContextWithRequestID(r.Context(), requestID))

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(sw, r)

			fields := []Field{
				String(KeyRequestID, requestID),
				String("http_method", r.Method),
				String("path", r.URL.Path),
				Int("status", sw.status),
				Int("bytes", sw.written),
				Duration("duration", time.Since(start)),
				String("remote_addr", r.RemoteAddr),
			}
			switch {
			case sw.status >= http.StatusInternalServerError:
				logger.Warn("request failed", fields...)
			case quietPaths[r.URL.Path]:
				logger.Debug("request served", fields...)
			default:
				logger.Info("request served", fields...)
			}
		})
	}
}

// statusWriter records the status code and body size of a response
type statusWriter struct {
	http.ResponseWriter
	status  int
	written int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(data []byte) (int, error) {
	n, err := w.ResponseWriter.Write(data)
	w.written += n
	return n, err
}
