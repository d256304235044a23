// Package workflow holds the scheduled Temporal workflows of the budget worker.
package workflow

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/edvin/budget/internal/activity"
)

// TaskQueue is the queue the worker polls and schedules start on.
const TaskQueue = "budget-tasks"

// Jobs run once per tick. A failed run is picked up by the next scheduled one.
func jobActivityOptions(timeout time.Duration) workflow.ActivityOptions {
	return workflow.ActivityOptions{
		StartToCloseTimeout: timeout,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	}
}

// DailySummaryWorkflow mails the summary of everything that changed since the
// previous one.
func DailySummaryWorkflow(ctx workflow.Context) (*activity.SummaryResult, error) {
	ctx = workflow.WithActivityOptions(ctx, jobActivityOptions(5*time.Minute))

	var a *activity.Summary
	var res activity.SummaryResult
	if err := workflow.ExecuteActivity(ctx, a.SendDailySummary).Get(ctx, &res); err != nil {
		return nil, err
	}

	logger := workflow.GetLogger(ctx)
	if res.Skipped {
		logger.Info("daily summary skipped, lock held")
	} else {
		logger.Info("daily summary done", "sent", res.Sent, "empty", res.Empty, "window_end", res.Window.End)
	}
	return &res, nil
}

// AbolishSubscriptionsWorkflow abolishes subscriptions that have been inactive
// for longer than the grace period.
func AbolishSubscriptionsWorkflow(ctx workflow.Context) (*activity.AbolishResult, error) {
	ctx = workflow.WithActivityOptions(ctx, jobActivityOptions(5*time.Minute))

	var a *activity.Abolish
	var res activity.AbolishResult
	if err := workflow.ExecuteActivity(ctx, a.AbolishSubscriptions).Get(ctx, &res); err != nil {
		return nil, err
	}

	workflow.GetLogger(ctx).Info("abolishment done", "abolished", res.Abolished, "skipped", res.Skipped)
	return &res, nil
}

// SubscriptionAlertsWorkflow warns owners of subscriptions that are about to
// expire or have spent more than their allocation.
func SubscriptionAlertsWorkflow(ctx workflow.Context) (*activity.AlertsResult, error) {
	ctx = workflow.WithActivityOptions(ctx, jobActivityOptions(10*time.Minute))

	var a *activity.Alerts
	var res activity.AlertsResult
	if err := workflow.ExecuteActivity(ctx, a.SendSubscriptionAlerts).Get(ctx, &res); err != nil {
		return nil, err
	}

	workflow.GetLogger(ctx).Info("subscription alerts done", "expiry", res.Expiry, "over_budget", res.OverBudget, "skipped", res.Skipped)
	return &res, nil
}
