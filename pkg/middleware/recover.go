package middleware

import (
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	"draftbff/pkg/problems"
)

func Recover(log *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Errorw("panic", "err", rec, "path", r.URL.Path, "request_id", RequestIDFrom(r.Context()), "stack", string(debug.Stack()))
					problems.Write(w, http.StatusInternalServerError, problems.CodeInternal, "internal error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
