package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/llm-anomaly-triage/internal/adapters/export"
	"github.com/mikey/llm-anomaly-triage/internal/classify"
	"github.com/mikey/llm-anomaly-triage/internal/config"
	"github.com/mikey/llm-anomaly-triage/internal/core"
	"github.com/mikey/llm-anomaly-triage/internal/di"
)

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	cfg *config.Config,
	logger *zap.Logger,
	service *core.TriageService,
	source core.MailSource,
	llmClient core.LLMClient,
	store core.TriageStore,
) error {
	defer logger.Sync()

	pollInterval, err := cfg.GetDuration("pipeline.poll_interval")
	if err != nil {
		return fmt.Errorf("invalid pipeline.poll_interval: %w", err)
	}
	fetchLimit := cfg.GetMail().FetchLimit

	var exporter core.CardExporter
	if cfg.GetBool("export.enabled") {
		exporter = export.NewCSVExporter(
			cfg.GetString("export.daily_file"),
			cfg.GetString("export.master_file"),
			logger,
		)
		if contactsFile := cfg.GetString("export.contacts_file"); contactsFile != "" {
			registry, err := classify.LoadRegistry(cfg.GetString("accounts.registry_file"), logger)
			if err != nil {
				return fmt.Errorf("failed to load account registry: %w", err)
			}
			if err := registry.WriteContactsCSV(contactsFile); err != nil {
				logger.Error("Failed to write contacts file",
					zap.String("path", contactsFile), zap.Error(err))
			} else {
				logger.Info("Wrote account contacts file",
					zap.String("path", contactsFile),
					zap.Int("accounts", registry.Size()))
			}
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("Shutting down...", zap.String("signal", sig.String()))
		cancel()
	}()

	logger.Info("Anomaly triage daemon started",
		zap.Duration("poll_interval", pollInterval),
		zap.Int("fetch_limit", fetchLimit))

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	// Process immediately on startup, then on each tick
	runCycle(ctx, logger, service, source, exporter, fetchLimit)
	for {
		select {
		case <-ctx.Done():
			shutdown(logger, source, llmClient, store)
			logger.Info("Shutdown complete")
			return nil
		case <-ticker.C:
			runCycle(ctx, logger, service, source, exporter, fetchLimit)
		}
	}
}

// runCycle fetches pending emails, runs them through the pipeline, exports
// the resulting cards and marks the emails handled at the source. An email
// is only marked processed after its cards are safely stored, so a crash
// mid-cycle reprocesses rather than loses it.
func runCycle(
	ctx context.Context,
	logger *zap.Logger,
	service *core.TriageService,
	source core.MailSource,
	exporter core.CardExporter,
	fetchLimit int,
) {
	emails, err := source.Fetch(ctx, fetchLimit)
	if err != nil {
		logger.Error("Failed to fetch emails", zap.Error(err))
		return
	}
	if len(emails) == 0 {
		return
	}

	logger.Info("Processing fetched emails", zap.Int("count", len(emails)))

	results := service.ProcessBatch(ctx, emails)
	for _, result := range results {
		if result.Err != nil {
			logger.Error("Failed to process email",
				zap.String("email_id", result.EmailID),
				zap.Error(result.Err))
			continue
		}

		if exporter != nil {
			for _, card := range result.Cards {
				if err := exporter.Export(ctx, card); err != nil {
					logger.Error("Failed to export card",
						zap.String("card_id", card.ID),
						zap.Error(err))
				}
			}
		}

		if err := source.MarkProcessed(ctx, result.EmailID); err != nil {
			logger.Error("Failed to mark email processed",
				zap.String("email_id", result.EmailID),
				zap.Error(err))
		}
	}
}

// shutdown closes whatever adapters hold resources
func shutdown(logger *zap.Logger, source core.MailSource, llmClient core.LLMClient, store core.TriageStore) {
	if stopper, ok := source.(interface{ Stop() error }); ok {
		if err := stopper.Stop(); err != nil {
			logger.Error("Failed to stop mail source", zap.Error(err))
		}
	}
	if closer, ok := llmClient.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close LLM client", zap.Error(err))
		}
	}
	if closer, ok := store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close store", zap.Error(err))
		}
	}
}
