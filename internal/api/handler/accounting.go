package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/edvin/budget/internal/api/request"
	"github.com/edvin/budget/internal/api/response"
	"github.com/edvin/budget/internal/core"
)

// Accounting receives the periodic uploads of the status and usage agents.
type Accounting struct {
	status    *core.StatusService
	usage     *core.UsageService
	summaries Summaries
	desired   DesiredStates
	notifier  Notifier
}

func NewAccounting(status *core.StatusService, usage *core.UsageService, summaries Summaries, desired DesiredStates, notifier Notifier) *Accounting {
	return &Accounting{status: status, usage: usage, summaries: summaries, desired: desired, notifier: notifier}
}

// AllStatus godoc
//
//	@Summary		Upload subscription statuses
//	@Description	Stores the statuses that changed since the last upload and notifies the owners.
//	@Tags			Accounting
//	@Security		AgentToken
//	@Accept			json
//	@Produce		json
//	@Param			body	body		request.AllStatus	true	"Status list"
//	@Success		200		{object}	map[string]int
//	@Failure		400		{object}	map[string]string
//	@Failure		401		{object}	map[string]string
//	@Failure		500		{object}	map[string]string
//	@Router			/accounting/all-status [post]
func (h *Accounting) AllStatus(w http.ResponseWriter, r *http.Request) {
	var req request.AllStatus
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	statuses := req.ToModel()
	changes, err := h.status.Ingest(r.Context(), statuses)
	if err != nil {
		response.WriteServiceError(w, err)
		return
	}
	logNotifyErr(r.Context(), h.notifier.StatusChanged(r.Context(), changes), "status")

	ids := make([]string, 0, len(statuses))
	for _, st := range statuses {
		ids = append(ids, st.SubscriptionID)
	}
	refreshDesired(r.Context(), h.desired, h.notifier, ids)

	response.WriteJSON(w, http.StatusOK, map[string]int{
		"received": len(req.StatusList),
		"inserted": len(changes),
	})
}

// AllUsage godoc
//
//	@Summary		Upload usage
//	@Description	Upserts usage rows and sends usage alerts for subscriptions that crossed a threshold.
//	@Tags			Accounting
//	@Security		AgentToken
//	@Accept			json
//	@Produce		json
//	@Param			body	body		request.AllUsage	true	"Usage list"
//	@Success		200		{object}	map[string]int
//	@Failure		400		{object}	map[string]string
//	@Failure		401		{object}	map[string]string
//	@Failure		500		{object}	map[string]string
//	@Router			/accounting/all-usage [post]
func (h *Accounting) AllUsage(w http.ResponseWriter, r *http.Request) {
	var req request.AllUsage
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	usage, err := req.ToModel()
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	before, err := h.summaries.List(r.Context())
	if err != nil {
		response.WriteServiceError(w, err)
		return
	}
	if err := h.usage.Upload(r.Context(), usage); err != nil {
		response.WriteServiceError(w, err)
		return
	}
	if after, err := h.summaries.List(r.Context()); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("listing summaries after usage upload failed")
	} else {
		logNotifyErr(r.Context(), h.notifier.UsageChanged(r.Context(), before, after), "usage")
	}

	response.WriteJSON(w, http.StatusOK, map[string]int{"received": len(usage)})
}

// DesiredStates godoc
//
//	@Summary		List desired states
//	@Description	Refreshes the desired status of every subscription and returns those whose Azure state must change.
//	@Tags			Accounting
//	@Security		AgentToken
//	@Produce		json
//	@Success		200	{array}		model.DesiredState
//	@Failure		401	{object}	map[string]string
//	@Failure		500	{object}	map[string]string
//	@Router			/accounting/desired-states [get]
func (h *Accounting) DesiredStates(w http.ResponseWriter, r *http.Request) {
	changes, err := h.desired.Refresh(r.Context(), nil)
	if err != nil {
		response.WriteServiceError(w, err)
		return
	}
	logNotifyErr(r.Context(), h.notifier.DesiredStatesChanged(r.Context(), changes), "desired states")

	states, err := h.desired.List(r.Context())
	if err != nil {
		response.WriteServiceError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, states)
}
