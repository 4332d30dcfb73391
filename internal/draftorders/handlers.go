package draftorders

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"draftbff/internal/authz"
	"draftbff/pkg/problems"
)

type Handler struct {
	d   *Dispatcher
	log *zap.SugaredLogger
}

func NewHandler(d *Dispatcher, log *zap.SugaredLogger) *Handler {
	return &Handler{d: d, log: log}
}

// Routes registers the draft-order endpoints. r must already sit behind
// authz.Middleware.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/api/draft-orders", h.list)
	r.Get("/api/draft-orders/check", h.check)
	r.Post("/api/draft-orders/{id}/complete", h.complete)
	r.Delete("/api/draft-orders/{id}", h.delete)
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	ac, ok := h.authorized(w, r)
	if !ok {
		return
	}
	res, err := h.d.Complete(r.Context(), ac, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	problems.JSON(w, http.StatusOK, res)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	ac, ok := h.authorized(w, r)
	if !ok {
		return
	}
	res, err := h.d.Delete(r.Context(), ac, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	problems.JSON(w, http.StatusOK, res)
}

// list degrades upstream failures to an empty page; only a bad customerId
// is reported to the caller.
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	ac, ok := h.authorized(w, r)
	if !ok {
		return
	}
	res, err := h.d.List(r.Context(), ac, r.URL.Query().Get("customerId"))
	var ve *ValidationError
	if errors.As(err, &ve) {
		problems.Write(w, http.StatusBadRequest, problems.CodeValidation, ve.Msg)
		return
	}
	if err != nil {
		h.log.Warnw("draft order list degraded to empty", "shop", ac.Shop, "err", err)
		res = ListResult{DraftOrders: []any{}}
	}
	problems.JSON(w, http.StatusOK, res)
}

func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	ac, ok := h.authorized(w, r)
	if !ok {
		return
	}
	problems.JSON(w, http.StatusOK, h.d.Check(r.Context(), ac, r.URL.Query().Get("orderId")))
}

func (h *Handler) authorized(w http.ResponseWriter, r *http.Request) (authz.Context, bool) {
	ac, ok := authz.FromContext(r.Context())
	if !ok {
		problems.Write(w, authz.MissingAuth.Status(), string(authz.MissingAuth), "request is not authorized")
	}
	return ac, ok
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	var (
		ve *ValidationError
		ue *UserErrors
	)
	switch {
	case errors.As(err, &ve):
		problems.Write(w, http.StatusBadRequest, problems.CodeValidation, ve.Msg)
	case errors.As(err, &ue):
		b := problems.New(problems.CodeUserErrors, ue.Error())
		b.Errors = ue.Errors
		problems.WriteBody(w, http.StatusUnprocessableEntity, b)
	default:
		h.log.Errorw("draft order operation failed", "err", err)
		problems.Write(w, http.StatusInternalServerError, problems.CodeUpstream, "upstream request failed")
	}
}
