package factory

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/llm-anomaly-triage/internal/adapters/gmail"
	"github.com/mikey/llm-anomaly-triage/internal/adapters/smtpsource"
	"github.com/mikey/llm-anomaly-triage/internal/config"
	"github.com/mikey/llm-anomaly-triage/internal/core"
)

// MailFactory creates mail sources
type MailFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewMailFactory creates a new mail source factory
func NewMailFactory(cfg *config.Config, logger *zap.Logger) *MailFactory {
	return &MailFactory{cfg: cfg, logger: logger}
}

// CreateMailSource creates a mail source based on the configuration. SMTP
// sources are returned started; the caller owns their shutdown.
func (f *MailFactory) CreateMailSource(ctx context.Context) (core.MailSource, error) {
	mailConfig := f.cfg.GetMail()

	switch mailConfig.Source {
	case "gmail":
		return gmail.NewFactory(f.cfg, f.logger).CreateSource(ctx)
	case "smtp":
		smtpConfig := f.cfg.GetSMTP()
		source := smtpsource.NewSource(smtpConfig.ListenAddress, smtpConfig.MaxQueue, f.logger)
		if err := source.Start(); err != nil {
			return nil, fmt.Errorf("failed to start SMTP source: %w", err)
		}
		return source, nil
	default:
		return nil, fmt.Errorf("unsupported mail source: %s", mailConfig.Source)
	}
}
