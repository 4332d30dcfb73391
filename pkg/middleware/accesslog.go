package middleware

import (
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"draftbff/pkg/metrics"
)

// statusRecorder remembers the first status written. A second WriteHeader is
// logged and dropped.
type statusRecorder struct {
	http.ResponseWriter
	code  int
	bytes int
	log   *zap.SugaredLogger
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.code != 0 {
		s.log.Warnw("duplicate WriteHeader", "first", s.code, "second", code)
		return
	}
	s.code = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.code == 0 {
		s.WriteHeader(http.StatusOK)
	}
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}

// AccessLog logs one line per request and records its latency.
func AccessLog(log *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, log: log}
			next.ServeHTTP(rec, r)
			if rec.code == 0 {
				rec.code = http.StatusOK
			}
			elapsed := time.Since(start)
			metrics.HTTPRequests.WithLabelValues(r.Method, strconv.Itoa(rec.code)).Observe(elapsed.Seconds())
			log.Infow("http",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.code,
				"bytes", rec.bytes,
				"duration_ms", elapsed.Milliseconds(),
				"request_id", RequestIDFrom(r.Context()),
			)
		})
	}
}
