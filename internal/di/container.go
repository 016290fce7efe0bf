package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/llm-mail-triage/internal/adapters/store"
	"github.com/mikey/llm-mail-triage/internal/config"
	"github.com/mikey/llm-mail-triage/internal/core"
	"github.com/mikey/llm-mail-triage/internal/factory"
	"github.com/mikey/llm-mail-triage/internal/logging"
	"github.com/mikey/llm-mail-triage/internal/metrics"
	"github.com/mikey/llm-mail-triage/internal/ports"
	"github.com/mikey/llm-mail-triage/internal/utils"
)

// BuildContainer creates and configures a dependency injection container.
// An empty configFile searches the default config locations.
func BuildContainer(configFile string) (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(func() (*config.Config, error) {
		if configFile != "" {
			return config.NewFromFile(configFile)
		}
		return config.New()
	}); err != nil {
		return nil, err
	}

	// Register logger and metrics
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}
	if err := container.Provide(metrics.New); err != nil {
		return nil, err
	}

	if err := provideCommon(container); err != nil {
		return nil, err
	}

	// Register identity provider
	if err := container.Provide(factory.NewIdentityFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.IdentityFactory) (core.IdentityProvider, error) {
		return f.CreateIdentityProvider()
	}); err != nil {
		return nil, err
	}

	// Register pipeline
	if err := container.Provide(func(
		llmClient core.LLMClient,
		f *factory.LLMFactory,
		m *metrics.Metrics,
		logger *zap.Logger,
	) *core.Classifier {
		return core.NewClassifier(llmClient, f.ClassifierConfig(), m, logger)
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(
		guard *core.IdentityGuard,
		classifier *core.Classifier,
		st store.Store,
		m *metrics.Metrics,
		logger *zap.Logger,
	) *core.TriageService {
		return core.NewTriageService(guard, classifier, st, m, logger)
	}); err != nil {
		return nil, err
	}

	// Register intakes
	if err := container.Provide(factory.NewIntakeFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.IntakeFactory) ([]ports.Intake, error) {
		return f.CreateIntakes()
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// provideCommon registers what the server and the CLI build the same way
func provideCommon(container *dig.Container) error {
	// Register text processor
	if err := container.Provide(utils.NewTextProcessor); err != nil {
		return err
	}

	// Register LLM client
	if err := container.Provide(factory.NewLLMFactory); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.LLMFactory) (core.LLMClient, error) {
		return f.CreateLLMClient()
	}); err != nil {
		return err
	}

	// Register store
	if err := container.Provide(factory.NewStoreFactory); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.StoreFactory) (store.Store, error) {
		return f.CreateStore()
	}); err != nil {
		return err
	}

	// Register identity guard
	if err := container.Provide(func(
		provider core.IdentityProvider,
		st store.Store,
		logger *zap.Logger,
	) *core.IdentityGuard {
		return core.NewIdentityGuard(provider, st, logger)
	}); err != nil {
		return err
	}

	return nil
}
