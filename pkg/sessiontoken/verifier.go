// Package sessiontoken verifies the signed session tokens that UI extensions
// send as bearer credentials.
package sessiontoken

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// ErrInvalidToken is matched by every verification failure.
var ErrInvalidToken = errors.New("sessiontoken: invalid token")

// Claim names carrying the issuing shop. Older extension runtimes used the
// long form.
const (
	ClaimDestination       = "dest"
	ClaimDestinationLegacy = "destination"
)

const defaultClockSkew = 10 * time.Second

// InvalidTokenError is returned for malformed, mis-signed or expired tokens.
// Callers only see one kind; Detail is for humans.
type InvalidTokenError struct {
	Detail string
	Cause  error
}

func (e *InvalidTokenError) Error() string {
	if e == nil {
		return ErrInvalidToken.Error()
	}
	msg := ErrInvalidToken.Error()
	if d := strings.TrimSpace(e.Detail); d != "" {
		msg += ": " + d
	}
	return msg
}

func (e *InvalidTokenError) Is(target error) bool { return target == ErrInvalidToken }

func (e *InvalidTokenError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Claims is the verified claim set, returned as decoded.
type Claims struct {
	Raw map[string]any
}

// Destination returns the destination claim, accepting the legacy alias.
func (c Claims) Destination() string {
	for _, k := range []string{ClaimDestination, ClaimDestinationLegacy} {
		if v, ok := c.Raw[k].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// Subject returns the sub claim, if any.
func (c Claims) Subject() string {
	s, _ := c.Raw[jwt.SubjectKey].(string)
	return s
}

// Verifier checks HS256 signatures with a shared secret.
type Verifier struct {
	secret []byte
	skew   time.Duration
	now    func() time.Time
}

type Option func(*Verifier)

// WithClockSkew sets the leeway applied to exp/nbf/iat.
func WithClockSkew(d time.Duration) Option {
	return func(v *Verifier) {
		if d >= 0 {
			v.skew = d
		}
	}
}

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) {
		if now != nil {
			v.now = now
		}
	}
}

func NewVerifier(secret string, opts ...Option) *Verifier {
	v := &Verifier{
		secret: []byte(strings.TrimSpace(secret)),
		skew:   defaultClockSkew,
		now:    time.Now,
	}
	for _, o := range opts {
		o(v)
	}
	return v
}

// Verify validates token and returns its claims. It does not check which shop
// the token names.
func (v *Verifier) Verify(token string) (Claims, error) {
	raw := strings.TrimSpace(token)
	if raw == "" {
		return Claims{}, &InvalidTokenError{Detail: "token is empty"}
	}
	if v == nil || len(v.secret) == 0 {
		return Claims{}, &InvalidTokenError{Detail: "verifier secret is not configured"}
	}
	if strings.Count(raw, ".") != 2 {
		return Claims{}, &InvalidTokenError{Detail: "token is malformed"}
	}
	parsed, err := jwt.Parse([]byte(raw),
		jwt.WithKey(jwa.HS256, v.secret),
		jwt.WithValidate(true),
		jwt.WithAcceptableSkew(v.skew),
		jwt.WithClock(jwt.ClockFunc(v.now)),
	)
	if err != nil {
		return Claims{}, &InvalidTokenError{Detail: err.Error(), Cause: err}
	}
	m, err := parsed.AsMap(context.Background())
	if err != nil {
		return Claims{}, &InvalidTokenError{Detail: fmt.Sprintf("decode claims: %v", err), Cause: err}
	}
	return Claims{Raw: m}, nil
}
