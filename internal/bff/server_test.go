package bff

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"draftbff/pkg/admingql"
	"draftbff/pkg/config"
	"draftbff/pkg/credentials"
	"draftbff/pkg/logger"
)

const appSecret = "shpss_app_secret"

func sessionToken(t *testing.T, dest string) string {
	t.Helper()
	tok, err := jwt.NewBuilder().
		Claim("dest", dest).
		IssuedAt(time.Now().Add(-time.Minute)).
		Expiration(time.Now().Add(time.Minute)).
		Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, []byte(appSecret)))
	require.NoError(t, err)
	return string(signed)
}

func baseConfig() config.Config {
	return config.Config{
		Env:             "test",
		Shop:            "foo.myshopify.com",
		APIKey:          "key",
		APISecret:       appSecret,
		AccessToken:     "shpat_static",
		APIVersion:      config.DefaultAPIVersion,
		Strategy:        credentials.StrategyStatic,
		UpstreamTimeout: 5 * time.Second,
		TokenClockSkew:  time.Second,
	}
}

func newApp(t *testing.T, cfg config.Config, upstreamBody string) http.Handler {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "shpat_static", r.Header.Get("X-Shopify-Access-Token"))
		_, _ = io.WriteString(w, upstreamBody)
	}))
	t.Cleanup(srv.Close)
	gql := admingql.New(cfg.APIVersion, time.Second, admingql.WithHTTPClient(srv.Client()),
		admingql.WithURLBuilder(func(string, string) (string, error) { return srv.URL, nil }))
	app, err := New(logger.Nop(), cfg, WithUpstream(srv.Client(), nil, gql))
	require.NoError(t, err)
	return app.Handler()
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndDocs(t *testing.T) {
	h := newApp(t, baseConfig(), `{}`)
	for _, p := range []string{"/", "/healthz"} {
		rec := serve(h, httptest.NewRequest(http.MethodGet, p, nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	}
	assert.Equal(t, http.StatusOK, serve(h, httptest.NewRequest(http.MethodGet, "/openapi.json", nil)).Code)
	assert.Equal(t, http.StatusOK, serve(h, httptest.NewRequest(http.MethodGet, "/metrics", nil)).Code)
	assert.Equal(t, http.StatusNotFound, serve(h, httptest.NewRequest(http.MethodGet, "/nope", nil)).Code)
}

func TestPreflightSkipsAuth(t *testing.T) {
	h := newApp(t, baseConfig(), `{}`)
	req := httptest.NewRequest(http.MethodOptions, "/api/draft-orders/1/complete", nil)
	req.Header.Set("Origin", "https://extensions.shopifycdn.com")
	rec := serve(h, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://extensions.shopifycdn.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMissingAuth(t *testing.T) {
	h := newApp(t, baseConfig(), `{}`)
	rec := serve(h, httptest.NewRequest(http.MethodPost, "/api/draft-orders/1/complete", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "missing_auth", body["code"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestCompleteEndToEnd(t *testing.T) {
	h := newApp(t, baseConfig(), `{"data":{"draftOrderComplete":{"draftOrder":{"id":"gid://shopify/DraftOrder/1","order":{"id":"gid://shopify/Order/2"}},"userErrors":[]}}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/draft-orders/1/complete", nil)
	req.Header.Set("Authorization", "Bearer "+sessionToken(t, "https://foo.myshopify.com"))
	rec := serve(h, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"draftOrder":{"id":"gid://shopify/DraftOrder/1","order":{"id":"gid://shopify/Order/2"}},"order":{"id":"gid://shopify/Order/2"}}`, rec.Body.String())
}

func TestShopMismatch(t *testing.T) {
	h := newApp(t, baseConfig(), `{}`)
	req := httptest.NewRequest(http.MethodGet, "/api/draft-orders?customerId=1", nil)
	req.Header.Set("Authorization", "Bearer "+sessionToken(t, "https://other.myshopify.com"))
	rec := serve(h, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "shop_mismatch")
}

func TestSessionStrategyWithMemoryStore(t *testing.T) {
	cfg := baseConfig()
	cfg.Strategy = credentials.StrategySession
	cfg.SessionStore = config.StoreMemory
	cfg.Shop = ""
	cfg.SessionSeedJSON = `[{"id":"offline_foo.myshopify.com","shop":"foo.myshopify.com","accessToken":"shpat_static"}]`
	h := newApp(t, cfg, `{"data":{"draftOrder":{"status":"OPEN"}}}`)

	req := httptest.NewRequest(http.MethodGet, "/api/draft-orders/check?orderId=5", nil)
	req.Header.Set("Authorization", "Bearer "+sessionToken(t, "https://foo.myshopify.com"))
	rec := serve(h, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"isDraft":true}`, rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/api/draft-orders/check?orderId=5", nil)
	req.Header.Set("Authorization", "Bearer "+sessionToken(t, "https://bar.myshopify.com"))
	rec = serve(h, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "session_not_found")
}

func TestNewFailsWithoutSessionBackend(t *testing.T) {
	for _, store := range []string{config.StoreRedis, config.StorePostgres, "dynamo"} {
		cfg := baseConfig()
		cfg.Strategy = credentials.StrategySession
		cfg.SessionStore = store
		_, err := New(logger.Nop(), cfg)
		assert.Error(t, err, store)
	}

	cfg := baseConfig()
	cfg.AccessToken = ""
	_, err := New(logger.Nop(), cfg)
	assert.ErrorIs(t, err, credentials.ErrNotConfigured)
}
