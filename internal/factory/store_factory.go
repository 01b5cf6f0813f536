package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/llm-anomaly-triage/internal/adapters/store"
	"github.com/mikey/llm-anomaly-triage/internal/config"
	"github.com/mikey/llm-anomaly-triage/internal/core"
)

// StoreFactory creates triage stores
type StoreFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewStoreFactory creates a new store factory
func NewStoreFactory(cfg *config.Config, logger *zap.Logger) *StoreFactory {
	return &StoreFactory{cfg: cfg, logger: logger}
}

// CreateStore creates a triage store based on the configuration
func (f *StoreFactory) CreateStore() (core.TriageStore, error) {
	storeType := f.cfg.GetString("store.type")

	ttl, err := f.cfg.GetDuration("store.processed_ttl")
	if err != nil {
		return nil, fmt.Errorf("invalid store.processed_ttl: %w", err)
	}
	cleanupFreq, err := f.cfg.GetDuration("store.cleanup_frequency")
	if err != nil {
		return nil, fmt.Errorf("invalid store.cleanup_frequency: %w", err)
	}

	switch storeType {
	case "memory":
		return store.NewMemoryStore(ttl, f.logger), nil
	case "sqlite":
		return store.NewSQLiteStore(f.cfg.GetString("store.sqlite_path"), ttl, cleanupFreq, f.logger)
	case "mysql":
		return store.NewMySQLStore(f.cfg.GetString("store.mysql_dsn"), ttl, cleanupFreq, f.logger)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", storeType)
	}
}
