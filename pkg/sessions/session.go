// Package sessions reads offline shop sessions written by the app's OAuth
// install flow. Nothing here writes sessions.
package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"draftbff/pkg/shop"
)

// ErrNotFound means no session exists for the id. This is the normal state
// for a shop that has not installed the app yet.
var ErrNotFound = errors.New("sessions: session not found")

// Session is the subset of a stored shop session this service needs.
type Session struct {
	ID          string     `json:"id"`
	Shop        string     `json:"shop"`
	AccessToken string     `json:"accessToken"`
	Scope       string     `json:"scope,omitempty"`
	IsOnline    bool       `json:"isOnline,omitempty"`
	Expires     *time.Time `json:"expires,omitempty"`
}

// Usable reports whether the session carries a token that has not expired.
func (s Session) Usable(now time.Time) bool {
	if strings.TrimSpace(s.AccessToken) == "" {
		return false
	}
	return s.Expires == nil || now.Before(*s.Expires)
}

type Store interface {
	// Load returns ErrNotFound when no session exists for id.
	Load(ctx context.Context, id string) (Session, error)
}

// OfflineID is the canonical offline session id for a shop.
func OfflineID(shopDomain string) string {
	return "offline_" + shop.Normalize(shopDomain)
}

// CandidateIDs lists the session ids tried for a shop, canonical first,
// followed by ids written by older install flows.
func CandidateIDs(shopDomain string) []string {
	canonical := shop.Normalize(shopDomain)
	if canonical == "" {
		return nil
	}
	ids := []string{
		"offline_" + canonical,
		"offline_" + shop.Handle(canonical),
		canonical,
	}
	seen := map[string]struct{}{}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// FindOffline walks CandidateIDs in order and returns the first usable
// session that belongs to the shop.
func FindOffline(ctx context.Context, store Store, shopDomain string, now time.Time) (Session, error) {
	if store == nil {
		return Session{}, errors.New("sessions: store is not configured")
	}
	canonical := shop.Normalize(shopDomain)
	for _, id := range CandidateIDs(canonical) {
		s, err := store.Load(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return Session{}, fmt.Errorf("load session %s: %w", id, err)
		}
		if s.Shop != "" && !shop.Equal(s.Shop, canonical) {
			continue
		}
		if !s.Usable(now) {
			continue
		}
		if s.Shop == "" {
			s.Shop = canonical
		}
		return s, nil
	}
	return Session{}, ErrNotFound
}

// decodeSession accepts both a JSON object and the [[key, value], ...]
// property array the Node session storage adapters persist.
func decodeSession(raw []byte) (Session, error) {
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "{") {
		var obj map[string]any
		if err := json.Unmarshal(raw, &obj); err != nil {
			return Session{}, err
		}
		return sessionFromMap(obj), nil
	}
	var pairs [][]any
	if err := json.Unmarshal(raw, &pairs); err != nil {
		return Session{}, err
	}
	obj := make(map[string]any, len(pairs))
	for _, p := range pairs {
		if len(p) != 2 {
			continue
		}
		if k, ok := p[0].(string); ok {
			obj[k] = p[1]
		}
	}
	return sessionFromMap(obj), nil
}

func sessionFromMap(m map[string]any) Session {
	str := func(k string) string {
		s, _ := m[k].(string)
		return strings.TrimSpace(s)
	}
	s := Session{
		ID:          str("id"),
		Shop:        str("shop"),
		AccessToken: str("accessToken"),
		Scope:       str("scope"),
	}
	if b, ok := m["isOnline"].(bool); ok {
		s.IsOnline = b
	}
	switch v := m["expires"].(type) {
	case float64:
		s.Expires = unixToTime(int64(v))
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			s.Expires = &t
		}
	}
	return s
}

// unixToTime accepts seconds or milliseconds.
func unixToTime(v int64) *time.Time {
	if v <= 0 {
		return nil
	}
	var t time.Time
	if v > 1e12 {
		t = time.UnixMilli(v).UTC()
	} else {
		t = time.Unix(v, 0).UTC()
	}
	return &t
}
