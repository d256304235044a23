package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/edvin/budget/internal/agent"
	mw "github.com/edvin/budget/internal/api/middleware"
	"github.com/edvin/budget/internal/azure"
	"github.com/edvin/budget/internal/client"
	"github.com/edvin/budget/internal/config"
	"github.com/edvin/budget/internal/logging"
	"github.com/edvin/budget/internal/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate("status-agent"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	signer, err := client.NewSignerFromPEM([]byte(cfg.AgentPrivateKey), mw.StatusAgentSubject)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load agent private key")
	}

	lister, err := azure.NewLister(cfg.AzureTenantID, cfg.AzureClientID, cfg.AzureClientSecret, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create azure lister")
	}

	statusAgent := agent.NewStatusAgent(lister, client.NewAgentClient(cfg.APIURL, signer), cfg.AgentPollInterval, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().
			Str("api", cfg.APIURL).
			Dur("interval", cfg.AgentPollInterval).
			Msg("starting status agent")
		return statusAgent.Run(gctx)
	})

	if cfg.MetricsAddr != "" {
		metricsServer := metrics.NewServer(cfg.MetricsAddr, nil)
		g.Go(func() error {
			logger.Info().Str("addr", metricsServer.Addr).Msg("starting metrics server")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve metrics: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return metricsServer.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("status agent failed")
	}
	logger.Info().Msg("status agent stopped")
}
