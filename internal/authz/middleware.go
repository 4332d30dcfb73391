package authz

import (
	"context"
	"errors"
	"net/http"

	"draftbff/pkg/metrics"
	"draftbff/pkg/problems"
)

type ctxKey struct{}

// Middleware authorizes every request and stores the Context for handlers.
// Preflight requests are answered by the CORS layer before reaching here.
func Middleware(a *Authorizer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac, err := a.Authorize(r.Context(), r.Header)
			if err != nil {
				kind, msg := KindOf(err), err.Error()
				var ae *AuthError
				if errors.As(err, &ae) && ae.Detail != "" {
					msg = ae.Detail
				}
				metrics.AuthFailures.WithLabelValues(string(kind)).Inc()
				a.log.Infow("request rejected", "path", r.URL.Path, "code", kind, "err", err)
				problems.Write(w, kind.Status(), string(kind), msg)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), ac)))
		})
	}
}

func WithContext(ctx context.Context, ac Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, ac)
}

// FromContext returns the authorized context stored by Middleware.
func FromContext(ctx context.Context) (Context, bool) {
	ac, ok := ctx.Value(ctxKey{}).(Context)
	return ac, ok
}
