package di

import (
	"flag"
	"os"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/llm-mail-triage/internal/adapters/identity"
	"github.com/mikey/llm-mail-triage/internal/adapters/intake"
	"github.com/mikey/llm-mail-triage/internal/adapters/store"
	"github.com/mikey/llm-mail-triage/internal/config"
	"github.com/mikey/llm-mail-triage/internal/core"
	"github.com/mikey/llm-mail-triage/internal/factory"
	"github.com/mikey/llm-mail-triage/internal/logging"
	"github.com/mikey/llm-mail-triage/internal/utils"
)

// CLIFlags contains all command line flags for the CLI application
type CLIFlags struct {
	// LLM provider overrides
	Provider  string
	Model     string
	MaxTokens int

	// Input flags
	InputFile string
	SeedFile  string
	Demo      bool

	// Storage flags
	UserID  string
	Persist bool

	Verbose    bool
	JSONLog    bool
	ConfigFile string
}

// ParseFlags parses command line flags and returns a CLIFlags struct
func ParseFlags() *CLIFlags {
	return parseFlags(flag.CommandLine, os.Args[1:])
}

func parseFlags(fs *flag.FlagSet, args []string) *CLIFlags {
	flags := &CLIFlags{}

	// LLM provider flags
	fs.StringVar(&flags.Provider, "provider", "", "LLM provider (openai, gemini, bedrock); overrides llm.provider")
	fs.StringVar(&flags.Model, "model", "", "Model name or Bedrock model ID for the selected provider")
	fs.IntVar(&flags.MaxTokens, "max-tokens", 0, "Maximum tokens for the LLM response")

	// Input flags
	fs.StringVar(&flags.InputFile, "file", "", "Input email file (use stdin if not specified)")
	fs.StringVar(&flags.SeedFile, "seed", "", "YAML file of demo emails to scan instead of a message")
	fs.BoolVar(&flags.Demo, "demo", false, "Scan the built-in demo emails")

	// Storage flags
	fs.StringVar(&flags.UserID, "user", "", "User the scan is recorded for (defaults to the seed user)")
	fs.BoolVar(&flags.Persist, "persist", false, "Store the results through the configured store")

	fs.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging and content previews")
	fs.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	fs.StringVar(&flags.ConfigFile, "config", "", "Path to config file")

	_ = fs.Parse(args)
	return flags
}

// BuildCLIContainer creates and configures a dependency injection container for the CLI application
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		var cfg *config.Config
		var err error
		if flags.ConfigFile != "" {
			cfg, err = config.NewFromFile(flags.ConfigFile)
		} else {
			cfg, err = config.New()
		}
		if err != nil {
			return nil, err
		}
		if used := cfg.GetViper().ConfigFileUsed(); used != "" {
			logger.Info("Loaded configuration from file", zap.String("file", used))
		}

		applyFlagOverrides(cfg, flags)
		return cfg, nil
	}); err != nil {
		return nil, err
	}

	if err := provideCommon(container); err != nil {
		return nil, err
	}

	// The CLI never sees bearer tokens, it only needs the profile check
	if err := container.Provide(func() core.IdentityProvider {
		return identity.NewStaticProvider(nil)
	}); err != nil {
		return nil, err
	}

	// Register triage service without metrics
	if err := container.Provide(func(
		llmClient core.LLMClient,
		f *factory.LLMFactory,
		guard *core.IdentityGuard,
		st store.Store,
		logger *zap.Logger,
	) *core.TriageService {
		classifier := core.NewClassifier(llmClient, f.ClassifierConfig(), nil, logger)
		return core.NewTriageService(guard, classifier, st, nil, logger)
	}); err != nil {
		return nil, err
	}

	// Register scanner
	if err := container.Provide(func(
		service *core.TriageService,
		textProcessor *utils.TextProcessor,
		flags *CLIFlags,
		logger *zap.Logger,
	) *intake.CLIScanner {
		return intake.NewCLIScanner(service, textProcessor, os.Stdout, logger, flags.Verbose)
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// applyFlagOverrides lets command line flags win over the config file
func applyFlagOverrides(cfg *config.Config, flags *CLIFlags) {
	v := cfg.GetViper()

	if flags.Provider != "" {
		v.Set("llm.provider", flags.Provider)
	}
	provider := v.GetString("llm.provider")

	if flags.Model != "" {
		switch provider {
		case "bedrock":
			v.Set("bedrock.model_id", flags.Model)
		default:
			v.Set(provider+".model_name", flags.Model)
		}
	}
	if flags.MaxTokens > 0 {
		v.Set(provider+".max_tokens", flags.MaxTokens)
	}

	// A dry run has nothing to store
	if !flags.Persist {
		v.Set("store.type", "memory")
	}
}
