package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/edvin/budget/internal/api/request"
	"github.com/edvin/budget/internal/api/response"
	"github.com/edvin/budget/internal/core"
	"github.com/edvin/budget/internal/model"
)

type Allocation struct {
	svc      *core.AllocationService
	desired  DesiredStates
	notifier Notifier
}

func NewAllocation(svc *core.AllocationService, desired DesiredStates, notifier Notifier) *Allocation {
	return &Allocation{svc: svc, desired: desired, notifier: notifier}
}

// List godoc
//
//	@Summary		List allocations
//	@Tags			Budget
//	@Security		ApiKeyAuth
//	@Produce		json
//	@Param			id	path		string	true	"Subscription ID"
//	@Success		200	{array}		model.Allocation
//	@Failure		400	{object}	map[string]string
//	@Failure		500	{object}	map[string]string
//	@Router			/subscriptions/{id}/allocations [get]
func (h *Allocation) List(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireSubscriptionID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	allocations, err := h.svc.ListBySubscription(r.Context(), id)
	if err != nil {
		response.WriteServiceError(w, err)
		return
	}
	if allocations == nil {
		allocations = []model.Allocation{}
	}
	response.WriteJSON(w, http.StatusOK, allocations)
}

// Create godoc
//
//	@Summary		Allocate budget
//	@Description	Allocates part of the approved budget. The total allocation may not exceed the approved amount.
//	@Tags			Budget
//	@Security		ApiKeyAuth
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string						true	"Subscription ID"
//	@Param			body	body		request.CreateAllocation	true	"Allocation"
//	@Success		201		{object}	model.Allocation
//	@Failure		400		{object}	map[string]string
//	@Failure		404		{object}	map[string]string
//	@Failure		500		{object}	map[string]string
//	@Router			/subscriptions/{id}/allocations [post]
func (h *Allocation) Create(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireSubscriptionID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.CreateAllocation
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	allocation, err := h.svc.Create(r.Context(), req.ToCore(id))
	if err != nil {
		response.WriteServiceError(w, err)
		return
	}
	logNotifyErr(r.Context(), h.notifier.Allocated(r.Context(), allocation), "allocation")
	refreshDesired(r.Context(), h.desired, h.notifier, []string{id})

	response.WriteJSON(w, http.StatusCreated, allocation)
}
