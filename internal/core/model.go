package core

import (
	"time"

	"github.com/mikey/llm-mail-triage/internal/utils"
)

// RiskLevel is the coarse severity the classifier assigns to an email
type RiskLevel string

const (
	RiskLevelSafe       RiskLevel = "safe"
	RiskLevelSuspicious RiskLevel = "suspicious"
	RiskLevelDangerous  RiskLevel = "dangerous"
)

// RiskLevels lists the accepted levels in ascending severity
var RiskLevels = []RiskLevel{RiskLevelSafe, RiskLevelSuspicious, RiskLevelDangerous}

// Valid reports whether l is one of the known levels
func (l RiskLevel) Valid() bool {
	for _, level := range RiskLevels {
		if l == level {
			return true
		}
	}
	return false
}

const (
	// PreviewLength is the number of content characters kept in RiskRecord.Preview
	PreviewLength = 200
	// ContentPreviewLength is the number of content characters kept in RiskRecord.ContentPreview
	ContentPreviewLength = 500
)

// AnalysisRequest represents one email submitted for scoring
type AnalysisRequest struct {
	UserID         string    `json:"userId"`
	EmailID        string    `json:"emailId"`
	Subject        string    `json:"subject"`
	Sender         string    `json:"sender"`
	SenderEmail    string    `json:"senderEmail"`
	Content        string    `json:"content"`
	ReceivedDate   time.Time `json:"receivedDate"`
	HasAttachments bool      `json:"hasAttachments"`
}

// RiskAssessment is the classifier's structured opinion about an email
type RiskAssessment struct {
	RiskScore        int       `json:"riskScore"`
	RiskLevel        RiskLevel `json:"riskLevel"`
	ThreatIndicators []string  `json:"threatIndicators"`
	AnalysisSummary  string    `json:"analysisSummary"`
}

// RiskRecord is the persisted result of one classification
type RiskRecord struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	EmailID          string    `json:"email_id"`
	Subject          string    `json:"subject"`
	Sender           string    `json:"sender"`
	SenderEmail      string    `json:"sender_email"`
	Preview          string    `json:"preview"`
	ReceivedDate     time.Time `json:"received_date"`
	RiskScore        int       `json:"risk_score"`
	RiskLevel        RiskLevel `json:"risk_level"`
	ThreatIndicators []string  `json:"threat_indicators"`
	AnalysisSummary  string    `json:"analysis_summary"`
	ContentPreview   string    `json:"content_preview"`
	HasAttachments   bool      `json:"has_attachments"`
	CreatedAt        time.Time `json:"created_at"`
}

// NewRiskRecord combines a request and its assessment into an unsaved record.
// ID and CreatedAt are assigned by the store.
func NewRiskRecord(req *AnalysisRequest, assessment *RiskAssessment) *RiskRecord {
	indicators := make([]string, len(assessment.ThreatIndicators))
	copy(indicators, assessment.ThreatIndicators)

	return &RiskRecord{
		UserID:           req.UserID,
		EmailID:          req.EmailID,
		Subject:          req.Subject,
		Sender:           req.Sender,
		SenderEmail:      req.SenderEmail,
		Preview:          utils.TruncateRunes(req.Content, PreviewLength),
		ReceivedDate:     req.ReceivedDate.UTC(),
		RiskScore:        assessment.RiskScore,
		RiskLevel:        assessment.RiskLevel,
		ThreatIndicators: indicators,
		AnalysisSummary:  assessment.AnalysisSummary,
		ContentPreview:   utils.TruncateRunes(req.Content, ContentPreviewLength),
		HasAttachments:   req.HasAttachments,
	}
}

// Principal is the authenticated actor behind a request
type Principal struct {
	ID    string
	Email string
}

// Profile is the stored user row a principal must map to
type Profile struct {
	ID          string
	Email       string
	DisplayName string
	CreatedAt   time.Time
}

// ExplanationRequest is a partial risk record plus an optional follow-up question.
// Every field is optional; pointer fields distinguish absent from zero.
type ExplanationRequest struct {
	EmailID          string
	Subject          string
	Sender           string
	SenderEmail      string
	Content          string
	ReceivedDate     *time.Time
	HasAttachments   *bool
	RiskScore        *float64
	RiskLevel        RiskLevel
	ThreatIndicators []string
	AnalysisSummary  string
	Question         string
}

// Prompt is the two-message input sent to an LLM
type Prompt struct {
	System string
	User   string
}

// Completion is the raw reply of an LLM
type Completion struct {
	Text      string
	ModelUsed string
	ID        string
}
