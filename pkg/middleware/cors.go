package middleware

import (
	"net/http"
	"net/url"
	"strings"
)

var (
	shopifyOrigins = []string{
		"https://admin.shopify.com",
		"https://extensions.shopifycdn.com",
	}
	shopifyOriginSuffixes = []string{
		".myshopify.com",
		".shopify.com",
		".shopifycdn.com",
		".shopifypreview.com",
	}
)

// OriginAllowed reports whether origin may call the API: the fixed Shopify
// admin and extension hosts, any https subdomain of the Shopify domains, or
// an entry in extra.
func OriginAllowed(origin string, extra []string) bool {
	if origin == "" {
		return false
	}
	for _, o := range shopifyOrigins {
		if origin == o {
			return true
		}
	}
	for _, o := range extra {
		if strings.EqualFold(strings.TrimRight(o, "/"), origin) {
			return true
		}
	}
	u, err := url.Parse(origin)
	if err != nil || u.Scheme != "https" || u.Host == "" || u.Path != "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, s := range shopifyOriginSuffixes {
		if strings.HasSuffix(host, s) {
			return true
		}
	}
	return false
}

// CORS reflects allowed origins and answers preflight requests with 204
// before any authentication runs.
func CORS(extra []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			h := w.Header()
			h.Add("Vary", "Origin")
			if OriginAllowed(origin, extra) {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-Id")
				h.Set("Access-Control-Max-Age", "600")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
