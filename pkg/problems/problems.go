// Package problems renders error responses. Every body carries a human
// message, a machine code, and a problem type URL derived from the code.
package problems

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"
)

// Machine-readable codes shared by every handler.
const (
	CodeValidation   = "validation_error"
	CodeUserErrors   = "user_errors"
	CodeUpstream     = "upstream_error"
	CodeNotFound     = "not_found"
	CodeInternal     = "internal_error"
	defaultProblemNS = "https://draftbff.dev/problems"
)

// Base returns the base URL for problem type identifiers.
// PROBLEM_BASE_URL wins, then BASE_PUBLIC_URL + "/problems".
func Base() string {
	if b := os.Getenv("PROBLEM_BASE_URL"); b != "" {
		return strings.TrimRight(b, "/")
	}
	if b := os.Getenv("BASE_PUBLIC_URL"); b != "" {
		return strings.TrimRight(b, "/") + "/problems"
	}
	return defaultProblemNS
}

// Type builds a full problem type URL for the given code.
func Type(code string) string { return Base() + "/" + strings.ReplaceAll(code, "_", "-") }

// Body is the JSON error envelope.
type Body struct {
	Error  string `json:"error"`
	Code   string `json:"code"`
	Type   string `json:"type"`
	Errors any    `json:"errors,omitempty"`
}

// New builds an envelope for code.
func New(code, msg string) Body {
	return Body{Error: msg, Code: code, Type: Type(code)}
}

// Write sends an error envelope with the given status.
func Write(w http.ResponseWriter, status int, code, msg string) {
	WriteBody(w, status, New(code, msg))
}

// WriteBody sends a prepared envelope, e.g. one carrying upstream userErrors.
func WriteBody(w http.ResponseWriter, status int, b Body) {
	JSON(w, status, b)
}

// JSON writes v as the response body.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
