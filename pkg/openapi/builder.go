// Package openapi serves a hand-maintained OpenAPI 3.1 document describing
// the inbound draft-order routes.
package openapi

import (
	"net/http"
	"strings"

	"draftbff/pkg/problems"
)

// Operation is one documented route.
type Operation struct {
	Method     string
	Path       string
	Summary    string
	Tags       []string
	Parameters []map[string]any
	Public     bool
	Responses  map[string]any
}

type Registry struct {
	Ops []Operation
}

func NewRegistry() *Registry { return &Registry{Ops: []Operation{}} }

func (r *Registry) Register(op Operation) {
	op.Method = strings.ToLower(op.Method)
	r.Ops = append(r.Ops, op)
}

// Build renders the registered operations. Authenticated routes reference
// the session-token bearer scheme.
func (r *Registry) Build(serviceName, version string) map[string]any {
	paths := map[string]any{}
	for _, op := range r.Ops {
		if _, ok := paths[op.Path]; !ok {
			paths[op.Path] = map[string]any{}
		}
		m := map[string]any{
			"summary":   op.Summary,
			"tags":      op.Tags,
			"responses": op.Responses,
		}
		if len(op.Parameters) > 0 {
			m["parameters"] = op.Parameters
		}
		if op.Public {
			m["security"] = []map[string]any{}
		}
		paths[op.Path].(map[string]any)[op.Method] = m
	}
	return map[string]any{
		"openapi": "3.1.0",
		"info":    map[string]any{"title": serviceName, "version": version},
		"paths":   paths,
		"components": map[string]any{
			"securitySchemes": map[string]any{
				"sessionToken": map[string]any{
					"type":         "http",
					"scheme":       "bearer",
					"bearerFormat": "JWT",
					"description":  "App Bridge session token signed with the app secret (HS256).",
				},
			},
			"schemas": map[string]any{
				"Error": map[string]any{
					"type":     "object",
					"required": []string{"error", "code"},
					"properties": map[string]any{
						"error":  map[string]any{"type": "string"},
						"code":   map[string]any{"type": "string"},
						"type":   map[string]any{"type": "string", "format": "uri"},
						"errors": map[string]any{"type": "array", "items": map[string]any{"type": "object"}},
					},
				},
			},
		},
		"security": []map[string]any{{"sessionToken": []string{}}},
	}
}

// ServeHandler returns an HTTP handler that serves the built document.
func (r *Registry) ServeHandler(serviceName, version string) http.HandlerFunc {
	doc := r.Build(serviceName, version)
	return func(w http.ResponseWriter, _ *http.Request) {
		problems.JSON(w, http.StatusOK, doc)
	}
}

func errorRef(desc string) map[string]any {
	return map[string]any{
		"description": desc,
		"content": map[string]any{
			"application/json": map[string]any{"schema": map[string]any{"$ref": "#/components/schemas/Error"}},
		},
	}
}

func ok(desc string) map[string]any { return map[string]any{"description": desc} }

func pathID() map[string]any {
	return map[string]any{"name": "id", "in": "path", "required": true, "schema": map[string]any{"type": "string"},
		"description": "Numeric draft order id or DraftOrder gid (percent-encoded)."}
}

func query(name string, required bool) map[string]any {
	return map[string]any{"name": name, "in": "query", "required": required, "schema": map[string]any{"type": "string"}}
}

// DraftOrders returns the registry for this service's routes.
func DraftOrders() *Registry {
	r := NewRegistry()
	authErr := errorRef("missing or invalid session token, or shop not installed")
	r.Register(Operation{Method: http.MethodPost, Path: "/api/draft-orders/{id}/complete", Summary: "Complete a draft order",
		Tags: []string{"draft-orders"}, Parameters: []map[string]any{pathID()},
		Responses: map[string]any{"200": ok("{draftOrder, order}"), "400": errorRef("invalid id"), "401": authErr,
			"422": errorRef("userErrors returned by the shop"), "500": errorRef("upstream failure"), "503": errorRef("credentials unavailable")}})
	r.Register(Operation{Method: http.MethodDelete, Path: "/api/draft-orders/{id}", Summary: "Delete a draft order",
		Tags: []string{"draft-orders"}, Parameters: []map[string]any{pathID()},
		Responses: map[string]any{"200": ok("{deleted, deletedDraftOrderId}"), "400": errorRef("invalid id"), "401": authErr,
			"422": errorRef("userErrors returned by the shop"), "500": errorRef("upstream failure"), "503": errorRef("credentials unavailable")}})
	r.Register(Operation{Method: http.MethodGet, Path: "/api/draft-orders", Summary: "List a customer's draft orders",
		Tags: []string{"draft-orders"}, Parameters: []map[string]any{query("customerId", true)},
		Responses: map[string]any{"200": ok("{draftOrders}; empty on upstream failure"), "400": errorRef("customerId is required"), "401": authErr}})
	r.Register(Operation{Method: http.MethodGet, Path: "/api/draft-orders/check", Summary: "Check whether a draft order is still open",
		Tags: []string{"draft-orders"}, Parameters: []map[string]any{query("orderId", true)},
		Responses: map[string]any{"200": ok("{isDraft}; false on any failure"), "401": authErr}})
	r.Register(Operation{Method: http.MethodGet, Path: "/healthz", Summary: "Liveness", Tags: []string{"ops"}, Public: true,
		Responses: map[string]any{"200": ok("{status: ok}")}})
	return r
}
