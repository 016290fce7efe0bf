package intake

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mikey/llm-mail-triage/internal/core"
	"github.com/mikey/llm-mail-triage/internal/utils"
	"go.uber.org/zap"
)

// CLIScanner classifies messages for the command line and prints a report
type CLIScanner struct {
	service       *core.TriageService
	textProcessor *utils.TextProcessor
	out           io.Writer
	logger        *zap.Logger
	verbose       bool
}

// NewCLIScanner creates a new CLI scanner writing its report to out
func NewCLIScanner(service *core.TriageService, textProcessor *utils.TextProcessor, out io.Writer, logger *zap.Logger, verbose bool) *CLIScanner {
	return &CLIScanner{
		service:       service,
		textProcessor: textProcessor,
		out:           out,
		logger:        logger,
		verbose:       verbose,
	}
}

// ScanMessage parses a raw RFC 822 message and scans it on behalf of userID
func (s *CLIScanner) ScanMessage(ctx context.Context, raw []byte, userID string, persist bool) (*core.RiskAssessment, error) {
	msg, err := ParseMessage(raw)
	if err != nil {
		return nil, err
	}

	payload, err := AnalysisPayload(msg, userID, time.Now())
	if err != nil {
		return nil, err
	}

	req, err := core.ParseAnalysisRequest(payload)
	if err != nil {
		return nil, err
	}
	return s.ScanRequest(ctx, req, persist)
}

// ScanRequest classifies a validated request and prints the result.
// With persist set the record is stored, which requires the user's profile.
func (s *CLIScanner) ScanRequest(ctx context.Context, req *core.AnalysisRequest, persist bool) (*core.RiskAssessment, error) {
	s.logger.Debug("Scanning email", zap.String("email_id", req.EmailID))

	fmt.Fprintf(s.out, "\n=== Email Summary ===\n")
	fmt.Fprintf(s.out, "Email ID: %s\n", req.EmailID)
	fmt.Fprintf(s.out, "From: %s <%s>\n", req.Sender, req.SenderEmail)
	fmt.Fprintf(s.out, "Subject: %s\n", req.Subject)
	fmt.Fprintf(s.out, "Received: %s\n", req.ReceivedDate.Format(time.RFC3339))
	fmt.Fprintf(s.out, "Attachments: %t\n", req.HasAttachments)
	fmt.Fprintf(s.out, "Content length: %d characters\n", len([]rune(req.Content)))

	if s.verbose {
		fmt.Fprintf(s.out, "\nContent preview:\n%s\n", s.textProcessor.Preview(req.Content, core.ContentPreviewLength))
	}

	fmt.Fprintf(s.out, "\n=== Analysis ===\n")
	start := time.Now()

	var assessment *core.RiskAssessment
	var recordID string
	outcome := core.OutcomeParsed
	if persist {
		record, err := s.service.ScanForUser(ctx, req)
		if err != nil {
			fmt.Fprintf(s.out, "Error: %v\n", err)
			return nil, err
		}
		recordID = record.ID
		assessment = &core.RiskAssessment{
			RiskScore:        record.RiskScore,
			RiskLevel:        record.RiskLevel,
			ThreatIndicators: record.ThreatIndicators,
			AnalysisSummary:  record.AnalysisSummary,
		}
	} else {
		var err error
		assessment, outcome, err = s.service.Assess(ctx, req)
		if err != nil {
			fmt.Fprintf(s.out, "Error: %v\n", err)
			return nil, err
		}
	}
	duration := time.Since(start)

	fmt.Fprintf(s.out, "\n=== Results ===\n")
	fmt.Fprintf(s.out, "Risk score: %d\n", assessment.RiskScore)
	fmt.Fprintf(s.out, "Risk level: %s\n", assessment.RiskLevel)
	if len(assessment.ThreatIndicators) > 0 {
		fmt.Fprintf(s.out, "Threat indicators:\n  - %s\n", strings.Join(assessment.ThreatIndicators, "\n  - "))
	} else {
		fmt.Fprintf(s.out, "Threat indicators: none\n")
	}
	fmt.Fprintf(s.out, "Summary: %s\n", assessment.AnalysisSummary)
	if !persist && outcome != core.OutcomeParsed {
		fmt.Fprintf(s.out, "Note: classifier reply was %s\n", outcome)
	}
	if recordID != "" {
		fmt.Fprintf(s.out, "Stored as: %s\n", recordID)
	}
	fmt.Fprintf(s.out, "Processing time: %v\n", duration)

	return assessment, nil
}
