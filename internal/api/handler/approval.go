package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/edvin/budget/internal/api/request"
	"github.com/edvin/budget/internal/api/response"
	"github.com/edvin/budget/internal/core"
	"github.com/edvin/budget/internal/model"
)

type Approval struct {
	svc      *core.ApprovalService
	desired  DesiredStates
	notifier Notifier
}

func NewApproval(svc *core.ApprovalService, desired DesiredStates, notifier Notifier) *Approval {
	return &Approval{svc: svc, desired: desired, notifier: notifier}
}

// List godoc
//
//	@Summary		List approvals
//	@Tags			Budget
//	@Security		ApiKeyAuth
//	@Produce		json
//	@Param			id	path		string	true	"Subscription ID"
//	@Success		200	{array}		model.Approval
//	@Failure		400	{object}	map[string]string
//	@Failure		500	{object}	map[string]string
//	@Router			/subscriptions/{id}/approvals [get]
func (h *Approval) List(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireSubscriptionID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	approvals, err := h.svc.ListBySubscription(r.Context(), id)
	if err != nil {
		response.WriteServiceError(w, err)
		return
	}
	if approvals == nil {
		approvals = []model.Approval{}
	}
	response.WriteJSON(w, http.StatusOK, approvals)
}

// Create godoc
//
//	@Summary		Approve budget
//	@Description	Approves budget for a subscription, optionally allocating the same amount in the same transaction. The owners are notified and the desired state is refreshed.
//	@Tags			Budget
//	@Security		ApiKeyAuth
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"Subscription ID"
//	@Param			body	body		request.CreateApproval	true	"Approval"
//	@Success		201		{object}	model.Approval
//	@Failure		400		{object}	map[string]string
//	@Failure		404		{object}	map[string]string
//	@Failure		500		{object}	map[string]string
//	@Router			/subscriptions/{id}/approvals [post]
func (h *Approval) Create(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireSubscriptionID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.CreateApproval
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	in, err := req.ToCore(id)
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	approval, err := h.svc.Create(r.Context(), in)
	if err != nil {
		response.WriteServiceError(w, err)
		return
	}
	logNotifyErr(r.Context(), h.notifier.Approved(r.Context(), approval), "approval")
	refreshDesired(r.Context(), h.desired, h.notifier, []string{id})

	response.WriteJSON(w, http.StatusCreated, approval)
}
