package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/llm-anomaly-triage/internal/analyze"
	"github.com/mikey/llm-anomaly-triage/internal/assemble"
	"github.com/mikey/llm-anomaly-triage/internal/classify"
	"github.com/mikey/llm-anomaly-triage/internal/config"
	"github.com/mikey/llm-anomaly-triage/internal/core"
	"github.com/mikey/llm-anomaly-triage/internal/dedup"
	"github.com/mikey/llm-anomaly-triage/internal/links"
	"github.com/mikey/llm-anomaly-triage/internal/normalize"
	"github.com/mikey/llm-anomaly-triage/internal/split"
)

// ServiceFactory wires the pipeline stages into a triage service
type ServiceFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewServiceFactory creates a new service factory
func NewServiceFactory(cfg *config.Config, logger *zap.Logger) *ServiceFactory {
	return &ServiceFactory{cfg: cfg, logger: logger}
}

// CreateService builds the full pipeline around an LLM client and a store
func (f *ServiceFactory) CreateService(llm core.LLMClient, triageStore core.TriageStore) (*core.TriageService, error) {
	registry, err := classify.LoadRegistry(f.cfg.GetString("accounts.registry_file"), f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load account registry: %w", err)
	}

	retry := analyze.DefaultRetryConfig()
	retry.MaxAttempts = f.cfg.GetInt("pipeline.max_retries")
	if backoff, err := f.cfg.GetDuration("pipeline.initial_backoff"); err == nil {
		retry.InitialBackoff = backoff
	}
	if backoff, err := f.cfg.GetDuration("pipeline.max_backoff"); err == nil {
		retry.MaxBackoff = backoff
	}

	return core.NewTriageService(
		normalize.NewNormalizer(f.logger, f.cfg.GetInt("pipeline.max_body_size")),
		classify.NewClassifier(registry, f.logger),
		split.NewSplitter(f.logger),
		analyze.NewAnalyzer(llm, f.logger, retry),
		dedup.NewDeduplicator(f.logger),
		links.NewExtractor(),
		assemble.NewAssembler(),
		triageStore,
		f.logger,
		int64(f.cfg.GetInt("pipeline.max_concurrent_llm")),
		f.cfg.GetInt("pipeline.max_batch_concurrency"),
	), nil
}
