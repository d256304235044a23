package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	enumspb "go.temporal.io/api/enums/v1"
	temporalclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/edvin/budget/internal/activity"
	"github.com/edvin/budget/internal/config"
	"github.com/edvin/budget/internal/core"
	"github.com/edvin/budget/internal/db"
	"github.com/edvin/budget/internal/logging"
	"github.com/edvin/budget/internal/mailer"
	"github.com/edvin/budget/internal/metrics"
	"github.com/edvin/budget/internal/notify"
	"github.com/edvin/budget/internal/summary"
	"github.com/edvin/budget/internal/workflow"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate("worker"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	metrics.RegisterPgxPoolMetrics(prometheus.DefaultRegisterer, "worker", pool)

	tlsConfig, err := cfg.TemporalTLS()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure temporal TLS")
	}
	dialOpts := temporalclient.Options{HostPort: cfg.TemporalAddress}
	if tlsConfig != nil {
		dialOpts.ConnectionOptions = temporalclient.ConnectionOptions{TLS: tlsConfig}
		logger.Info().Msg("temporal mTLS enabled")
	}
	tc, err := temporalclient.Dial(dialOpts)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to temporal")
	}
	defer tc.Close()

	if !cfg.SMTPConfigured() || len(cfg.AdminEmailRecipients) == 0 {
		logger.Warn().Msg("SMTP or admin recipients not configured, emails will be stored in failed_emails")
	}

	locker := db.NewLocker(pool)
	notifyCfg := notify.ConfigFrom(cfg)
	services := core.NewServices(pool, locker, notifyCfg.Whitelist, logger)
	outbox := mailer.NewOutbox(mailer.NewSMTPSender(cfg), services.Email, cfg.SenderEmail, logger)
	notifier := notify.New(services.Subscription, services.Status, services.Email, outbox, notifyCfg, logger)
	meta := mailer.Meta{Organisation: cfg.Organisation, WebsiteHostname: cfg.WebsiteHostname}
	job := summary.NewJob(summary.NewPGStore(pool), summary.WindowConfig{
		Epoch:    cfg.Epoch(),
		Lookback: cfg.SummaryLookback,
	})

	w := worker.New(tc, workflow.TaskQueue, worker.Options{})

	// Register activities
	w.RegisterActivity(activity.NewSummary(locker, summary.NewPGMarkerStore(pool), job, outbox, meta, cfg.AdminEmailRecipients, cfg.SummarySettle, logger))
	w.RegisterActivity(activity.NewAbolish(locker, services.Abolish, services.Email, outbox, meta, cfg.AdminEmailRecipients, logger))
	w.RegisterActivity(activity.NewAlerts(locker, notifier, logger))

	// Register workflows
	w.RegisterWorkflow(workflow.DailySummaryWorkflow)
	w.RegisterWorkflow(workflow.AbolishSubscriptionsWorkflow)
	w.RegisterWorkflow(workflow.SubscriptionAlertsWorkflow)

	if cfg.MetricsAddr != "" {
		metricsSrv := metrics.NewServer(cfg.MetricsAddr, func(ctx context.Context) error {
			if err := pool.Ping(ctx); err != nil {
				return err
			}
			_, err := tc.CheckHealth(ctx, &temporalclient.CheckHealthRequest{})
			return err
		})
		go func() {
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("starting metrics server")
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	go func() {
		logger.Info().Str("taskQueue", workflow.TaskQueue).Msg("starting temporal worker")
		if err := w.Run(worker.InterruptCh()); err != nil {
			logger.Fatal().Err(err).Msg("worker failed")
		}
	}()

	// Errors for already-existing schedules are ignored so that re-deploys do
	// not fail.
	registerCronSchedules(ctx, tc, cfg, logger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down worker")
	cancel()
}

type cronSchedule struct {
	id       string
	cron     string
	workflow any
}

func registerCronSchedules(ctx context.Context, tc temporalclient.Client, cfg *config.Config, logger zerolog.Logger) {
	schedules := []cronSchedule{
		{
			id:       "daily-summary-cron",
			cron:     cfg.SummaryCron,
			workflow: workflow.DailySummaryWorkflow,
		},
		{
			id:       "abolish-subscriptions-cron",
			cron:     cfg.AbolishCron,
			workflow: workflow.AbolishSubscriptionsWorkflow,
		},
		{
			id:       "subscription-alerts-cron",
			cron:     cfg.AlertsCron,
			workflow: workflow.SubscriptionAlertsWorkflow,
		},
	}

	scheduleClient := tc.ScheduleClient()

	for _, s := range schedules {
		_, err := scheduleClient.Create(ctx, temporalclient.ScheduleOptions{
			ID: s.id,
			Spec: temporalclient.ScheduleSpec{
				CronExpressions: []string{s.cron},
				TimeZoneName:    cfg.ScheduleTimezone,
			},
			Overlap: enumspb.SCHEDULE_OVERLAP_POLICY_SKIP,
			Action: &temporalclient.ScheduleWorkflowAction{
				ID:        s.id,
				Workflow:  s.workflow,
				TaskQueue: workflow.TaskQueue,
			},
		})
		if err != nil {
			if strings.Contains(err.Error(), "already exists") || strings.Contains(err.Error(), "AlreadyExists") || strings.Contains(err.Error(), "already registered") {
				logger.Info().Str("id", s.id).Msg("cron schedule already exists, skipping")
			} else {
				logger.Fatal().Err(err).Str("id", s.id).Msg("failed to create cron schedule")
			}
		} else {
			logger.Info().Str("id", s.id).Str("cron", s.cron).Str("tz", cfg.ScheduleTimezone).Msg("created cron schedule")
		}
	}
}
