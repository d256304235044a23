package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	temporalclient "go.temporal.io/sdk/client"

	"github.com/edvin/budget/internal/api/request"
	"github.com/edvin/budget/internal/api/response"
	"github.com/edvin/budget/internal/mailer"
	"github.com/edvin/budget/internal/summary"
	"github.com/edvin/budget/internal/workflow"
)

// Previewer computes a report without touching the marker. *summary.Job
// satisfies this interface.
type Previewer interface {
	Preview(ctx context.Context, since, now time.Time) (*summary.Report, error)
}

type Summary struct {
	job  Previewer
	tc   temporalclient.Client
	meta mailer.Meta
	now  func() time.Time
}

func NewSummary(job Previewer, tc temporalclient.Client, meta mailer.Meta) *Summary {
	return &Summary{job: job, tc: tc, meta: meta, now: time.Now}
}

// Preview godoc
//
//	@Summary		Preview the daily summary
//	@Description	Reports the changes in [since, now). With format=html the report is rendered as the summary email would be.
//	@Tags			Summary
//	@Security		ApiKeyAuth
//	@Produce		json
//	@Produce		html
//	@Param			since	query		string	true	"RFC 3339 start of the window"
//	@Param			format	query		string	false	"json or html"
//	@Success		200		{object}	summary.Report
//	@Failure		400		{object}	map[string]string
//	@Failure		409		{object}	map[string]string
//	@Failure		500		{object}	map[string]string
//	@Router			/summary [get]
func (h *Summary) Preview(w http.ResponseWriter, r *http.Request) {
	since, err := request.ParseSince(r.URL.Query().Get("since"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := h.job.Preview(r.Context(), since, h.now())
	if err != nil {
		response.WriteServiceError(w, err)
		return
	}

	if r.URL.Query().Get("format") == "html" {
		_, body, err := mailer.RenderSummary(report, h.meta)
		if err != nil {
			response.WriteServiceError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(body))
		return
	}

	response.WriteJSON(w, http.StatusOK, report)
}

// Send godoc
//
//	@Summary		Send the daily summary now
//	@Description	Starts the daily summary workflow instead of waiting for the schedule.
//	@Tags			Summary
//	@Security		ApiKeyAuth
//	@Produce		json
//	@Success		202	{object}	map[string]string
//	@Failure		409	{object}	map[string]string
//	@Failure		503	{object}	map[string]string
//	@Router			/summary/send [post]
func (h *Summary) Send(w http.ResponseWriter, r *http.Request) {
	if h.tc == nil {
		response.WriteError(w, http.StatusServiceUnavailable, "temporal client not configured")
		return
	}

	// Two sends in the same second get their own runs; the summary lock keeps
	// them from mailing twice.
	id := "daily-summary-manual-" + h.now().UTC().Format("20060102T150405") + "-" + uuid.NewString()[:8]
	run, err := h.tc.ExecuteWorkflow(r.Context(), temporalclient.StartWorkflowOptions{
		ID:                                       id,
		TaskQueue:                                workflow.TaskQueue,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}, workflow.DailySummaryWorkflow)
	if err != nil {
		response.WriteServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusAccepted, map[string]string{
		"workflow_id": run.GetID(),
		"run_id":      run.GetRunID(),
	})
}
