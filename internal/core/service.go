package core

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// TriageService is the email risk-classification pipeline:
// validate, authorize, classify, sanitize, store.
type TriageService struct {
	guard      *IdentityGuard
	classifier *Classifier
	records    RecordStore
	metrics    MetricsRecorder
	logger     *zap.Logger
}

// NewTriageService creates a new triage service
func NewTriageService(
	guard *IdentityGuard,
	classifier *Classifier,
	records RecordStore,
	metrics MetricsRecorder,
	logger *zap.Logger,
) *TriageService {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &TriageService{
		guard:      guard,
		classifier: classifier,
		records:    records,
		metrics:    metrics,
		logger:     logger,
	}
}

// Authorize exposes the identity guard to intakes that authenticate up front
func (s *TriageService) Authorize(ctx context.Context, authorization string) (*Principal, error) {
	return s.guard.Authorize(ctx, authorization)
}

// AnalyzeEmail validates a raw JSON body and runs it through the pipeline.
// Submitting the same email twice stores two records.
func (s *TriageService) AnalyzeEmail(ctx context.Context, authorization string, body []byte) (*RiskRecord, error) {
	req, err := ParseAnalysisRequest(body)
	if err != nil {
		s.logger.Info("Rejected analysis request", zap.Error(err))
		return nil, err
	}

	principal, err := s.guard.Authorize(ctx, authorization)
	if err != nil {
		return nil, err
	}
	if principal.ID != req.UserID {
		s.logger.Warn("Credential does not match request user",
			zap.String("principal", principal.ID),
			zap.String("user_id", req.UserID))
		return nil, fmt.Errorf("%w: credential does not belong to userId", ErrUnauthorized)
	}

	return s.classifyAndStore(ctx, req)
}

// ScanForUser runs an already validated request for a trusted local caller.
// Only the profile half of the guard applies.
func (s *TriageService) ScanForUser(ctx context.Context, req *AnalysisRequest) (*RiskRecord, error) {
	if err := s.guard.RequireProfile(ctx, req.UserID); err != nil {
		return nil, err
	}
	return s.classifyAndStore(ctx, req)
}

// Assess classifies and sanitizes without storing anything
func (s *TriageService) Assess(ctx context.Context, req *AnalysisRequest) (*RiskAssessment, SanitizeOutcome, error) {
	raw, err := s.classifier.Classify(ctx, req)
	if err != nil {
		return nil, "", err
	}

	assessment, outcome := SanitizeResponse(raw)
	s.metrics.ObserveAssessment(assessment.RiskLevel, outcome)
	if outcome != OutcomeParsed {
		s.logger.Warn("Classifier reply needed sanitizing",
			zap.String("email_id", req.EmailID),
			zap.String("outcome", string(outcome)))
	}
	return assessment, outcome, nil
}

func (s *TriageService) classifyAndStore(ctx context.Context, req *AnalysisRequest) (*RiskRecord, error) {
	assessment, _, err := s.Assess(ctx, req)
	if err != nil {
		return nil, err
	}

	stored, err := s.records.Insert(ctx, NewRiskRecord(req, assessment))
	if err != nil {
		s.logger.Error("Failed to store risk record",
			zap.String("user_id", req.UserID),
			zap.String("email_id", req.EmailID),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}

	s.logger.Info("Email analysis stored",
		zap.String("id", stored.ID),
		zap.String("user_id", stored.UserID),
		zap.String("email_id", stored.EmailID),
		zap.Int("risk_score", stored.RiskScore),
		zap.String("risk_level", string(stored.RiskLevel)))

	return stored, nil
}

// Explain answers a follow-up question about a scan. Nothing is stored.
func (s *TriageService) Explain(ctx context.Context, authorization string, body []byte) (string, error) {
	if _, err := s.guard.Authorize(ctx, authorization); err != nil {
		return "", err
	}

	req, err := ParseExplanationRequest(body)
	if err != nil {
		return "", err
	}

	return s.classifier.Explain(ctx, req)
}

// ListRecords returns the principal's records, newest received first
func (s *TriageService) ListRecords(ctx context.Context, authorization string) ([]*RiskRecord, error) {
	principal, err := s.guard.Authorize(ctx, authorization)
	if err != nil {
		return nil, err
	}
	return s.records.ListByUser(ctx, principal.ID)
}

// GetRecord returns one of the principal's records.
// Records owned by someone else are reported as not found.
func (s *TriageService) GetRecord(ctx context.Context, authorization, id string) (*RiskRecord, error) {
	principal, err := s.guard.Authorize(ctx, authorization)
	if err != nil {
		return nil, err
	}

	record, err := s.records.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load record: %w", err)
	}
	if record.UserID != principal.ID {
		return nil, ErrRecordNotFound
	}
	return record, nil
}
