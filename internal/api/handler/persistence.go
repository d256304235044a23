package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/edvin/budget/internal/api/request"
	"github.com/edvin/budget/internal/api/response"
	"github.com/edvin/budget/internal/core"
)

// Persistence sets the always-on flag of a subscription.
type Persistence struct {
	svc      *core.PersistenceService
	desired  DesiredStates
	notifier Notifier
}

func NewPersistence(svc *core.PersistenceService, desired DesiredStates, notifier Notifier) *Persistence {
	return &Persistence{svc: svc, desired: desired, notifier: notifier}
}

// Set godoc
//
//	@Summary		Set always on
//	@Description	An always-on subscription is never switched off for being expired or over budget.
//	@Tags			Budget
//	@Security		ApiKeyAuth
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string						true	"Subscription ID"
//	@Param			body	body		request.SetPersistence		true	"Persistence"
//	@Success		201		{object}	model.Persistence
//	@Failure		400		{object}	map[string]string
//	@Failure		404		{object}	map[string]string
//	@Failure		500		{object}	map[string]string
//	@Router			/subscriptions/{id}/persistence [post]
func (h *Persistence) Set(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireSubscriptionID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.SetPersistence
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := h.svc.Set(r.Context(), id, *req.AlwaysOn)
	if err != nil {
		response.WriteServiceError(w, err)
		return
	}
	logNotifyErr(r.Context(), h.notifier.PersistenceChanged(r.Context(), p), "persistence")
	refreshDesired(r.Context(), h.desired, h.notifier, []string{id})

	response.WriteJSON(w, http.StatusCreated, p)
}
