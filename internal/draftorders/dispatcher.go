// Package draftorders maps the draft-order operations onto Admin GraphQL
// calls and their results onto JSON responses.
package draftorders

import (
	"context"
	"encoding/json"
	"fmt"

	jmes "github.com/jmespath/go-jmespath"
	"go.uber.org/zap"

	"draftbff/internal/authz"
	"draftbff/pkg/admingql"
	"draftbff/pkg/metrics"
)

// GraphQL is satisfied by *admingql.Client.
type GraphQL interface {
	Do(ctx context.Context, shop, accessToken string, req admingql.Request) (json.RawMessage, error)
}

// ValidationError is a bad request parameter.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

// UserErrors is a business-rule rejection reported inside a 200 response.
type UserErrors struct {
	Operation string
	Errors    []any
}

func (e *UserErrors) Error() string {
	return fmt.Sprintf("%s rejected with %d user error(s)", e.Operation, len(e.Errors))
}

var (
	pathCompleteErrors = jmes.MustCompile("draftOrderComplete.userErrors")
	pathCompleteDraft  = jmes.MustCompile("draftOrderComplete.draftOrder")
	pathCompleteOrder  = jmes.MustCompile("draftOrderComplete.draftOrder.order")
	pathDeleteErrors   = jmes.MustCompile("draftOrderDelete.userErrors")
	pathDeleteID       = jmes.MustCompile("draftOrderDelete.deletedId")
	pathListNodes      = jmes.MustCompile("draftOrders.edges[].node")
	pathStatus         = jmes.MustCompile("draftOrder.status")
)

type CompleteResult struct {
	DraftOrder any `json:"draftOrder"`
	Order      any `json:"order"`
}

type DeleteResult struct {
	Deleted             bool   `json:"deleted"`
	DeletedDraftOrderID string `json:"deletedDraftOrderId"`
}

type ListResult struct {
	DraftOrders []any `json:"draftOrders"`
}

type CheckResult struct {
	IsDraft bool `json:"isDraft"`
}

// Dispatcher runs exactly one upstream request per operation.
type Dispatcher struct {
	gql GraphQL
	log *zap.SugaredLogger
}

func NewDispatcher(gql GraphQL, log *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{gql: gql, log: log}
}

func (d *Dispatcher) Complete(ctx context.Context, ac authz.Context, rawID string) (CompleteResult, error) {
	id, ok := ParseDraftID(rawID)
	if !ok {
		return CompleteResult{}, &ValidationError{Msg: "a valid draft order id is required"}
	}
	data, err := d.run(ctx, ac, "complete", completeMutation, map[string]any{"id": id})
	if err != nil {
		return CompleteResult{}, err
	}
	if ue := userErrors(pathCompleteErrors, data); len(ue) > 0 {
		return CompleteResult{}, &UserErrors{Operation: "draftOrderComplete", Errors: ue}
	}
	draft, _ := pathCompleteDraft.Search(data)
	order, _ := pathCompleteOrder.Search(data)
	return CompleteResult{DraftOrder: draft, Order: order}, nil
}

func (d *Dispatcher) Delete(ctx context.Context, ac authz.Context, rawID string) (DeleteResult, error) {
	id, ok := ParseDraftID(rawID)
	if !ok {
		return DeleteResult{}, &ValidationError{Msg: "a valid draft order id is required"}
	}
	data, err := d.run(ctx, ac, "delete", deleteMutation, map[string]any{"input": map[string]any{"id": id}})
	if err != nil {
		return DeleteResult{}, err
	}
	if ue := userErrors(pathDeleteErrors, data); len(ue) > 0 {
		return DeleteResult{}, &UserErrors{Operation: "draftOrderDelete", Errors: ue}
	}
	deleted, _ := pathDeleteID.Search(data)
	deletedID, _ := deleted.(string)
	if deletedID == "" {
		deletedID = id
	}
	return DeleteResult{Deleted: true, DeletedDraftOrderID: deletedID}, nil
}

// List returns the customer's most recently updated draft orders. A missing
// customer id is a ValidationError; upstream failures are returned as is and
// the handler decides how to degrade.
func (d *Dispatcher) List(ctx context.Context, ac authz.Context, rawCustomerID string) (ListResult, error) {
	if rawCustomerID == "" {
		return ListResult{}, &ValidationError{Msg: "customerId is required"}
	}
	customerID, ok := ParseCustomerID(rawCustomerID)
	if !ok {
		return ListResult{}, &ValidationError{Msg: "customerId must be a numeric id or Customer gid"}
	}
	data, err := d.run(ctx, ac, "list", listQuery, map[string]any{
		"first": PageSize,
		"query": "customer_id:" + customerID,
	})
	if err != nil {
		return ListResult{DraftOrders: []any{}}, err
	}
	nodes, _ := pathListNodes.Search(data)
	out, _ := nodes.([]any)
	if out == nil {
		out = []any{}
	}
	return ListResult{DraftOrders: out}, nil
}

// Check reports whether the draft order is still open. It never fails: any
// problem reading the status reads as "not a draft".
func (d *Dispatcher) Check(ctx context.Context, ac authz.Context, rawID string) CheckResult {
	id, ok := ParseDraftID(rawID)
	if !ok {
		return CheckResult{}
	}
	data, err := d.run(ctx, ac, "check", statusQuery, map[string]any{"id": id})
	if err != nil {
		return CheckResult{}
	}
	status, _ := pathStatus.Search(data)
	s, _ := status.(string)
	return CheckResult{IsDraft: s == "OPEN" || s == "INVOICE_SENT"}
}

func (d *Dispatcher) run(ctx context.Context, ac authz.Context, op, query string, vars map[string]any) (any, error) {
	raw, err := d.gql.Do(ctx, ac.Shop, ac.AccessToken, admingql.Request{Query: query, Variables: vars})
	metrics.UpstreamRequests.WithLabelValues(op, metrics.Outcome(err)).Inc()
	if err != nil {
		d.log.Warnw("upstream call failed", "op", op, "shop", ac.Shop, "err", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var data any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("%s: %w", op, &admingql.TransportError{Cause: err})
		}
	}
	if data == nil {
		return nil, fmt.Errorf("%s: %w", op, &admingql.TransportError{Messages: []string{"response carried no data"}})
	}
	return data, nil
}

func userErrors(path *jmes.JMESPath, data any) []any {
	v, err := path.Search(data)
	if err != nil {
		return nil
	}
	list, _ := v.([]any)
	return list
}
