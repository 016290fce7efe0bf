package factory

import (
	"github.com/mikey/llm-mail-triage/internal/adapters/httpapi"
	"github.com/mikey/llm-mail-triage/internal/adapters/intake"
	"github.com/mikey/llm-mail-triage/internal/config"
	"github.com/mikey/llm-mail-triage/internal/core"
	"github.com/mikey/llm-mail-triage/internal/metrics"
	"github.com/mikey/llm-mail-triage/internal/ports"
	"go.uber.org/zap"
)

// IntakeFactory creates the front doors of the server
type IntakeFactory struct {
	cfg     *config.Config
	logger  *zap.Logger
	service *core.TriageService
	metrics *metrics.Metrics
}

// NewIntakeFactory creates a new intake factory
func NewIntakeFactory(cfg *config.Config, logger *zap.Logger, service *core.TriageService, m *metrics.Metrics) *IntakeFactory {
	return &IntakeFactory{
		cfg:     cfg,
		logger:  logger,
		service: service,
		metrics: m,
	}
}

// CreateIntakes returns the HTTP API plus any optional intake that is enabled
func (f *IntakeFactory) CreateIntakes() ([]ports.Intake, error) {
	intakes := []ports.Intake{
		httpapi.NewServer(f.cfg.GetServer(), f.service, f.metrics, f.logger),
	}

	if smtpCfg := f.cfg.GetSMTPIntake(); smtpCfg.Enabled {
		intakes = append(intakes, intake.NewSMTPIntake(f.service, smtpCfg, f.logger))
	}

	return intakes, nil
}
