package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/edvin/budget/internal/api/request"
	"github.com/edvin/budget/internal/api/response"
	"github.com/edvin/budget/internal/core"
	"github.com/edvin/budget/internal/model"
)

type Finance struct {
	svc *core.FinanceService
}

func NewFinance(svc *core.FinanceService) *Finance {
	return &Finance{svc: svc}
}

// List godoc
//
//	@Summary		List finance entries
//	@Tags			Budget
//	@Security		ApiKeyAuth
//	@Produce		json
//	@Param			id	path		string	true	"Subscription ID"
//	@Success		200	{array}		model.FinanceEntry
//	@Failure		400	{object}	map[string]string
//	@Failure		500	{object}	map[string]string
//	@Router			/subscriptions/{id}/finances [get]
func (h *Finance) List(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireSubscriptionID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := h.svc.ListBySubscription(r.Context(), id)
	if err != nil {
		response.WriteServiceError(w, err)
		return
	}
	if entries == nil {
		entries = []model.FinanceEntry{}
	}
	response.WriteJSON(w, http.StatusOK, entries)
}

// Create godoc
//
//	@Summary		Record a finance entry
//	@Tags			Budget
//	@Security		ApiKeyAuth
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"Subscription ID"
//	@Param			body	body		request.CreateFinance	true	"Finance entry"
//	@Success		201		{object}	model.FinanceEntry
//	@Failure		400		{object}	map[string]string
//	@Failure		404		{object}	map[string]string
//	@Failure		500		{object}	map[string]string
//	@Router			/subscriptions/{id}/finances [post]
func (h *Finance) Create(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireSubscriptionID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.CreateFinance
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	in, err := req.ToCore(id)
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	entry, err := h.svc.Create(r.Context(), in)
	if err != nil {
		response.WriteServiceError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, entry)
}
