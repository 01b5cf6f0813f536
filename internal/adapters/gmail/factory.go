package gmail

import (
	"context"

	"go.uber.org/zap"

	"github.com/mikey/llm-anomaly-triage/internal/config"
)

// Factory creates Gmail sources
type Factory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewFactory creates a new Gmail source factory
func NewFactory(cfg *config.Config, logger *zap.Logger) *Factory {
	return &Factory{cfg: cfg, logger: logger}
}

// CreateSource creates a new Gmail source
func (f *Factory) CreateSource(ctx context.Context) (*Source, error) {
	gmailCfg := f.cfg.GetGmail()
	return NewSource(ctx, gmailCfg.CredentialsFile, gmailCfg.Query, gmailCfg.ProcessedLabel, f.logger)
}
