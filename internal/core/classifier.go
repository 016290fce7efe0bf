package core

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mikey/llm-mail-triage/internal/utils"
	"go.uber.org/zap"
)

// ClassifierContentLimit is how many characters of the body the classifier sees.
// Threats placed after this point are not inspected.
const ClassifierContentLimit = 2000

const noExplanation = "No explanation available."

const classificationSystemPrompt = `You are an advanced email security analyst AI. Return a JSON object with:
- riskScore (0-100)
- riskLevel ("safe" | "suspicious" | "dangerous")
- threatIndicators (array)
- analysisSummary (string)`

const explanationSystemPrompt = "You are a helpful AI assistant that explains email security scans to end users in plain language."

// ClassifierConfig names the provider behind the LLM client, for logs and metrics
type ClassifierConfig struct {
	Provider string
}

// Classifier wraps the external LLM with the fixed classification and explanation prompts
type Classifier struct {
	llmClient LLMClient
	provider  string
	metrics   MetricsRecorder
	logger    *zap.Logger
}

// NewClassifier creates a new classifier
func NewClassifier(llmClient LLMClient, cfg ClassifierConfig, metrics MetricsRecorder, logger *zap.Logger) *Classifier {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &Classifier{
		llmClient: llmClient,
		provider:  cfg.Provider,
		metrics:   metrics,
		logger:    logger,
	}
}

// BuildClassificationPrompt renders the two-message prompt for an analysis request
func BuildClassificationPrompt(req *AnalysisRequest) *Prompt {
	user := fmt.Sprintf(`Analyze this email:

Subject: %s
Sender: %s <%s>
Has Attachments: %t
Content: %s`,
		req.Subject,
		req.Sender,
		req.SenderEmail,
		req.HasAttachments,
		utils.TruncateRunes(req.Content, ClassifierContentLimit),
	)

	return &Prompt{System: classificationSystemPrompt, User: user}
}

// BuildExplanationPrompt renders the prompt asking for a plain-language explanation
func BuildExplanationPrompt(req *ExplanationRequest) *Prompt {
	score := ""
	if req.RiskScore != nil {
		score = strconv.FormatFloat(*req.RiskScore, 'f', -1, 64)
	}
	attachments := ""
	if req.HasAttachments != nil {
		attachments = strconv.FormatBool(*req.HasAttachments)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Here is the scanned email data:\n")
	fmt.Fprintf(&b, "Subject: %s\n", req.Subject)
	fmt.Fprintf(&b, "Sender: %s <%s>\n", req.Sender, req.SenderEmail)
	fmt.Fprintf(&b, "Has Attachments: %s\n", attachments)
	fmt.Fprintf(&b, "Risk Score: %s\n", score)
	fmt.Fprintf(&b, "Risk Level: %s\n", req.RiskLevel)
	fmt.Fprintf(&b, "Threat Indicators: %s\n", strings.Join(req.ThreatIndicators, ", "))
	fmt.Fprintf(&b, "Analysis Summary: %s\n\n", req.AnalysisSummary)
	b.WriteString("Explain in simple, understandable terms what this email's threats are and what the user should be aware of.")
	if q := strings.TrimSpace(req.Question); q != "" {
		fmt.Fprintf(&b, "\n\nThe user also asks: %s", q)
	}

	return &Prompt{System: explanationSystemPrompt, User: b.String()}
}

// Classify performs exactly one classifier call and returns the raw reply text
func (c *Classifier) Classify(ctx context.Context, req *AnalysisRequest) (string, error) {
	prompt := BuildClassificationPrompt(req)

	start := time.Now()
	completion, err := c.llmClient.Complete(ctx, prompt)
	elapsed := time.Since(start)
	c.metrics.ObserveClassification(c.provider, elapsed, err)
	if err != nil {
		c.logger.Error("Classifier call failed",
			zap.String("provider", c.provider),
			zap.String("email_id", req.EmailID),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrClassifierUnavailable, err)
	}

	c.logger.Debug("Classifier replied",
		zap.String("provider", c.provider),
		zap.String("model", completion.ModelUsed),
		zap.String("email_id", req.EmailID),
		zap.Int("reply_length", len(completion.Text)),
		zap.Duration("elapsed", elapsed))

	return completion.Text, nil
}

// Explain asks the classifier for a plain-language explanation of a scan
func (c *Classifier) Explain(ctx context.Context, req *ExplanationRequest) (string, error) {
	completion, err := c.llmClient.Complete(ctx, BuildExplanationPrompt(req))
	if err != nil {
		c.logger.Error("Explanation call failed", zap.String("provider", c.provider), zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrClassifierUnavailable, err)
	}

	if strings.TrimSpace(completion.Text) == "" {
		return noExplanation, nil
	}
	return completion.Text, nil
}
