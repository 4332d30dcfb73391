package draftorders

import (
	"net/url"
	"strings"
)

const (
	draftOrderGID = "gid://shopify/DraftOrder/"
	customerGID   = "gid://shopify/Customer/"
)

// ParseDraftID percent-decodes a path parameter and returns the draft
// order's global id. Bare numeric ids are expanded; DraftOrder gids pass
// through.
func ParseDraftID(raw string) (string, bool) {
	s, err := url.PathUnescape(raw)
	if err != nil {
		return "", false
	}
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, draftOrderGID) {
		if !numeric(strings.TrimPrefix(s, draftOrderGID)) {
			return "", false
		}
		return s, true
	}
	if !numeric(s) {
		return "", false
	}
	return draftOrderGID + s, true
}

// ParseCustomerID returns the numeric customer id used in search queries,
// accepting either the bare id or a Customer gid.
func ParseCustomerID(raw string) (string, bool) {
	s := strings.TrimPrefix(strings.TrimSpace(raw), customerGID)
	if !numeric(s) {
		return "", false
	}
	return s, true
}

func numeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
