package handler

import (
	"bytes"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/edvin/budget/internal/api/request"
	"github.com/edvin/budget/internal/api/response"
	"github.com/edvin/budget/internal/core"
	"github.com/edvin/budget/internal/model"
)

type Subscription struct {
	svc    *core.SubscriptionService
	status *core.StatusService
	export *core.ExportService
}

func NewSubscription(svc *core.SubscriptionService, status *core.StatusService, export *core.ExportService) *Subscription {
	return &Subscription{svc: svc, status: status, export: export}
}

// List godoc
//
//	@Summary		List subscriptions
//	@Description	Returns the budget summary of every subscription.
//	@Tags			Subscriptions
//	@Security		ApiKeyAuth
//	@Produce		json
//	@Success		200	{array}		model.SubscriptionSummary
//	@Failure		500	{object}	map[string]string
//	@Router			/subscriptions [get]
func (h *Subscription) List(w http.ResponseWriter, r *http.Request) {
	subs, err := h.svc.List(r.Context())
	if err != nil {
		response.WriteServiceError(w, err)
		return
	}
	if subs == nil {
		subs = []model.SubscriptionSummary{}
	}
	response.WriteJSON(w, http.StatusOK, subs)
}

// Get godoc
//
//	@Summary		Get a subscription
//	@Tags			Subscriptions
//	@Security		ApiKeyAuth
//	@Produce		json
//	@Param			id	path		string	true	"Subscription ID"
//	@Success		200	{object}	model.SubscriptionSummary
//	@Failure		400	{object}	map[string]string
//	@Failure		404	{object}	map[string]string
//	@Failure		500	{object}	map[string]string
//	@Router			/subscriptions/{id} [get]
func (h *Subscription) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireSubscriptionID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	sum, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteServiceError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, sum)
}

// History godoc
//
//	@Summary		Subscription status history
//	@Description	Lists every recorded status of a subscription, newest first.
//	@Tags			Subscriptions
//	@Security		ApiKeyAuth
//	@Produce		json
//	@Param			id	path		string	true	"Subscription ID"
//	@Success		200	{array}		model.SubscriptionDetail
//	@Failure		400	{object}	map[string]string
//	@Failure		500	{object}	map[string]string
//	@Router			/subscriptions/{id}/history [get]
func (h *Subscription) History(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireSubscriptionID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	history, err := h.status.History(r.Context(), id)
	if err != nil {
		response.WriteServiceError(w, err)
		return
	}
	if history == nil {
		history = []model.SubscriptionDetail{}
	}
	response.WriteJSON(w, http.StatusOK, history)
}

// Export godoc
//
//	@Summary		Export subscriptions
//	@Description	Streams the subscription summaries as an xlsx workbook. The workbook is built in memory so a failure can still be reported as JSON.
//	@Tags			Subscriptions
//	@Security		ApiKeyAuth
//	@Produce		application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
//	@Success		200	{file}		binary
//	@Failure		500	{object}	map[string]string
//	@Router			/subscriptions/export [get]
func (h *Subscription) Export(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.export.WriteXLSX(r.Context(), &buf); err != nil {
		response.WriteServiceError(w, err)
		return
	}

	name := "subscriptions-" + time.Now().UTC().Format("20060102") + ".xlsx"
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
