package authz

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"draftbff/pkg/credentials"
	"draftbff/pkg/sessions"
	"draftbff/pkg/sessiontoken"
)

const secret = "shpss_app_secret"

func mint(t *testing.T, key string, claims map[string]any) string {
	t.Helper()
	b := jwt.NewBuilder().IssuedAt(time.Now().Add(-time.Minute)).Expiration(time.Now().Add(time.Minute))
	for k, v := range claims {
		b = b.Claim(k, v)
	}
	tok, err := b.Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, []byte(key)))
	require.NoError(t, err)
	return string(signed)
}

func bearer(tok string) http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+tok)
	return h
}

func staticProvider(t *testing.T) credentials.Provider {
	p, err := credentials.New(credentials.Config{Strategy: credentials.StrategyStatic, StaticToken: "shpat_static_token"})
	require.NoError(t, err)
	return p
}

func sessionProvider(t *testing.T, seed ...sessions.Session) credentials.Provider {
	p, err := credentials.New(credentials.Config{Strategy: credentials.StrategySession, Sessions: sessions.NewMemoryStore(seed...)})
	require.NoError(t, err)
	return p
}

// grantProvider points a grant-based provider at a fake token endpoint.
func grantProvider(t *testing.T, strategy credentials.Strategy, status int, body string) credentials.Provider {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	p, err := credentials.New(credentials.Config{
		Strategy: strategy, ClientID: "cid", ClientSecret: "csecret",
		HTTPClient: srv.Client(),
		TokenURL:   func(string) (string, error) { return srv.URL, nil },
	})
	require.NoError(t, err)
	return p
}

func verifier() *sessiontoken.Verifier { return sessiontoken.NewVerifier(secret) }

func TestMissingAuthForEveryStrategy(t *testing.T) {
	providers := map[string]credentials.Provider{
		"static":             staticProvider(t),
		"session":            sessionProvider(t),
		"token_exchange":     grantProvider(t, credentials.StrategyTokenExchange, 200, `{"access_token":"x"}`),
		"client_credentials": grantProvider(t, credentials.StrategyClientCredentials, 200, `{"access_token":"x"}`),
	}
	headers := []http.Header{
		{},
		{"Authorization": []string{"Basic dXNlcjpwYXNz"}},
		{"Authorization": []string{"Bearer "}},
		{"Authorization": []string{"Bearer"}},
	}
	for name, p := range providers {
		a := New(verifier(), p, "", nil)
		for _, h := range headers {
			_, err := a.Authorize(context.Background(), h)
			assert.Equal(t, MissingAuth, KindOf(err), name)
		}
	}
}

func TestAuthorizeFailures(t *testing.T) {
	good := mint(t, secret, map[string]any{"dest": "https://foo.myshopify.com"})

	cases := []struct {
		name   string
		a      *Authorizer
		header http.Header
		want   Kind
	}{
		{"wrong secret", New(verifier(), staticProvider(t), "foo", nil),
			bearer(mint(t, "other-secret", map[string]any{"dest": "foo.myshopify.com"})), InvalidToken},
		{"garbage token", New(verifier(), staticProvider(t), "foo", nil), bearer("not-a-jwt"), InvalidToken},
		{"no destination", New(verifier(), staticProvider(t), "foo", nil),
			bearer(mint(t, secret, map[string]any{"sub": "1"})), NoShop},
		{"shop mismatch", New(verifier(), staticProvider(t), "bar.myshopify.com", nil), bearer(good), ShopMismatch},
		{"no session", New(verifier(), sessionProvider(t), "", nil), bearer(good), SessionNotFound},
		{"exchange rejected", New(verifier(),
			grantProvider(t, credentials.StrategyTokenExchange, 400, `{"error":"invalid_subject_token"}`), "", nil),
			bearer(good), ExchangeFailed},
		{"client credentials down", New(verifier(),
			grantProvider(t, credentials.StrategyClientCredentials, 500, `oops`), "foo", nil),
			bearer(good), CredentialsUnavailable},
		{"configured shop enforced for sessions", New(verifier(), sessionProvider(t), "bar", nil), bearer(good), ShopMismatch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ac, err := tc.a.Authorize(context.Background(), tc.header)
			require.Error(t, err)
			assert.Equal(t, tc.want, KindOf(err))
			assert.Empty(t, ac.AccessToken)
		})
	}
}

func TestAuthorizeSuccess(t *testing.T) {
	ctx := context.Background()

	t.Run("static", func(t *testing.T) {
		tok := mint(t, secret, map[string]any{"dest": "https://Foo.myshopify.com"})
		ac, err := New(verifier(), staticProvider(t), "foo", nil).Authorize(ctx, bearer(tok))
		require.NoError(t, err)
		assert.Equal(t, Context{Shop: "foo.myshopify.com", AccessToken: "shpat_static_token"}, ac)
	})

	t.Run("legacy destination claim", func(t *testing.T) {
		tok := mint(t, secret, map[string]any{"destination": "foo.myshopify.com"})
		ac, err := New(verifier(), staticProvider(t), "foo.myshopify.com", nil).Authorize(ctx, bearer(tok))
		require.NoError(t, err)
		assert.Equal(t, "foo.myshopify.com", ac.Shop)
	})

	t.Run("stored session via legacy id", func(t *testing.T) {
		p := sessionProvider(t, sessions.Session{ID: "offline_foo", AccessToken: "shpca_legacy"})
		tok := mint(t, secret, map[string]any{"dest": "https://foo.myshopify.com"})
		ac, err := New(verifier(), p, "", nil).Authorize(ctx, bearer(tok))
		require.NoError(t, err)
		assert.Equal(t, "shpca_legacy", ac.AccessToken)
	})

	t.Run("token exchange", func(t *testing.T) {
		p := grantProvider(t, credentials.StrategyTokenExchange, 200, `{"access_token":"shpat_exchanged"}`)
		tok := mint(t, secret, map[string]any{"dest": "https://any-shop.myshopify.com"})
		ac, err := New(verifier(), p, "", nil).Authorize(ctx, bearer(tok))
		require.NoError(t, err)
		assert.Equal(t, Context{Shop: "any-shop.myshopify.com", AccessToken: "shpat_exchanged"}, ac)
	})
}

func TestKindStatus(t *testing.T) {
	for _, k := range []Kind{MissingAuth, InvalidToken, NoShop, ShopMismatch, SessionNotFound, ExchangeFailed} {
		assert.Equal(t, http.StatusUnauthorized, k.Status(), k)
	}
	assert.Equal(t, http.StatusServiceUnavailable, CredentialsUnavailable.Status())
}

func TestContextStringMasksToken(t *testing.T) {
	s := Context{Shop: "foo.myshopify.com", AccessToken: "shpat_0123456789abcdef"}.String()
	assert.NotContains(t, s, "0123456789")
	assert.Contains(t, s, "cdef")
}

func TestMiddleware(t *testing.T) {
	a := New(verifier(), staticProvider(t), "foo", nil)
	var seen Context
	h := Middleware(a)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ac, ok := FromContext(r.Context())
		require.True(t, ok)
		seen = ac
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/draft-orders", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "missing_auth", body["code"])
	assert.NotEmpty(t, body["error"])
	assert.NotEmpty(t, body["type"])

	req := httptest.NewRequest(http.MethodGet, "/api/draft-orders", nil)
	req.Header.Set("Authorization", "Bearer "+mint(t, secret, map[string]any{"dest": "foo.myshopify.com"}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "foo.myshopify.com", seen.Shop)
	assert.Equal(t, "shpat_static_token", seen.AccessToken)
}
