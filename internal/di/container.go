package di

import (
	"context"

	"go.uber.org/dig"

	"github.com/mikey/llm-anomaly-triage/internal/config"
	"github.com/mikey/llm-anomaly-triage/internal/core"
	"github.com/mikey/llm-anomaly-triage/internal/factory"
	"github.com/mikey/llm-anomaly-triage/internal/logging"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewLLMFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewMailFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewStoreFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewServiceFactory); err != nil {
		return nil, err
	}

	// Register LLM client
	if err := container.Provide(func(f *factory.LLMFactory) (core.LLMClient, error) {
		return f.CreateLLMClient()
	}); err != nil {
		return nil, err
	}

	// Register mail source
	if err := container.Provide(func(f *factory.MailFactory) (core.MailSource, error) {
		return f.CreateMailSource(context.Background())
	}); err != nil {
		return nil, err
	}

	// Register triage store
	if err := container.Provide(func(f *factory.StoreFactory) (core.TriageStore, error) {
		return f.CreateStore()
	}); err != nil {
		return nil, err
	}

	// Register triage service
	if err := container.Provide(func(f *factory.ServiceFactory, llm core.LLMClient, store core.TriageStore) (*core.TriageService, error) {
		return f.CreateService(llm, store)
	}); err != nil {
		return nil, err
	}

	return container, nil
}
