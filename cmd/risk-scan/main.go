package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mikey/llm-mail-triage/internal/adapters/intake"
	"github.com/mikey/llm-mail-triage/internal/adapters/store"
	"github.com/mikey/llm-mail-triage/internal/config"
	"github.com/mikey/llm-mail-triage/internal/core"
	"github.com/mikey/llm-mail-triage/internal/di"
	"github.com/mikey/llm-mail-triage/internal/seed"
	"go.uber.org/zap"
)

// dryRunUser fills userId when nothing is stored
const dryRunUser = "risk-scan"

func main() {
	flags := di.ParseFlags()

	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(run); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func run(
	flags *di.CLIFlags,
	cfg *config.Config,
	logger *zap.Logger,
	scanner *intake.CLIScanner,
	llmClient core.LLMClient,
	st store.Store,
) error {
	defer logger.Sync()
	defer st.Close()
	if closer, ok := llmClient.(io.Closer); ok {
		defer closer.Close()
	}

	timeout := cfg.GetServer().RequestTimeout

	if flags.Demo || flags.SeedFile != "" {
		return scanSeed(flags, logger, scanner, st, timeout)
	}

	var reader io.Reader = os.Stdin
	if flags.InputFile != "" {
		file, err := os.Open(flags.InputFile)
		if err != nil {
			return fmt.Errorf("failed to open input file: %w", err)
		}
		defer file.Close()
		reader = file
		logger.Info("Reading email from file", zap.String("file", flags.InputFile))
	} else {
		logger.Info("Reading email from stdin")
	}

	raw, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("failed to read email: %w", err)
	}

	userID := flags.UserID
	if userID == "" {
		if flags.Persist {
			return fmt.Errorf("-user is required with -persist")
		}
		userID = dryRunUser
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	_, err = scanner.ScanMessage(ctx, raw, userID, flags.Persist)
	return err
}

func scanSeed(flags *di.CLIFlags, logger *zap.Logger, scanner *intake.CLIScanner, st store.Store, timeout time.Duration) error {
	seedFile := seed.Default()
	if flags.SeedFile != "" {
		loaded, err := seed.LoadFile(flags.SeedFile)
		if err != nil {
			return err
		}
		seedFile = loaded
	}

	userID := flags.UserID
	if userID == "" {
		userID = seedFile.User.ID
	}
	if userID == "" {
		userID = dryRunUser
	}

	if flags.Persist {
		profile := seedFile.Profile()
		profile.ID = userID
		if err := st.EnsureProfile(context.Background(), profile); err != nil {
			return fmt.Errorf("failed to create seed profile: %w", err)
		}
	}

	requests, err := seedFile.Requests(userID, time.Now())
	if err != nil {
		return err
	}

	failed := 0
	for _, req := range requests {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		_, err := scanner.ScanRequest(ctx, req, flags.Persist)
		cancel()
		if err != nil {
			// Keep scanning the rest of the batch
			logger.Error("Seed email failed", zap.String("email_id", req.EmailID), zap.Error(err))
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d seed emails failed", failed, len(requests))
	}
	return nil
}
