package core

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeLLM struct {
	reply   string
	err     error
	prompts []*Prompt
}

func (f *fakeLLM) Complete(ctx context.Context, prompt *Prompt) (*Completion, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return nil, f.err
	}
	return &Completion{Text: f.reply, ModelUsed: "fake"}, nil
}

type recordingMetrics struct {
	classifications []error
	assessments     []SanitizeOutcome
}

func (m *recordingMetrics) ObserveClassification(provider string, elapsed time.Duration, err error) {
	m.classifications = append(m.classifications, err)
}

func (m *recordingMetrics) ObserveAssessment(level RiskLevel, outcome SanitizeOutcome) {
	m.assessments = append(m.assessments, outcome)
}

func sampleRequest() *AnalysisRequest {
	return &AnalysisRequest{
		UserID:         "user-1",
		EmailID:        "msg-001",
		Subject:        "Account suspended",
		Sender:         "Support",
		SenderEmail:    "support@examp1e.com",
		Content:        "Your account has been suspended. Click here...",
		ReceivedDate:   time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		HasAttachments: false,
	}
}

func TestBuildClassificationPrompt(t *testing.T) {
	req := sampleRequest()
	req.Content = strings.Repeat("a", ClassifierContentLimit) + "HIDDEN-PAYLOAD"

	prompt := BuildClassificationPrompt(req)

	if prompt.System != classificationSystemPrompt {
		t.Errorf("System = %q, want the classification instruction", prompt.System)
	}
	for _, want := range []string{
		"Subject: Account suspended",
		"Sender: Support <support@examp1e.com>",
		"Has Attachments: false",
	} {
		if !strings.Contains(prompt.User, want) {
			t.Errorf("User prompt missing %q", want)
		}
	}
	if strings.Contains(prompt.User, "HIDDEN-PAYLOAD") {
		t.Error("User prompt includes content past the classifier limit")
	}
}

func TestBuildExplanationPrompt(t *testing.T) {
	score := 87.0
	attachments := true
	prompt := BuildExplanationPrompt(&ExplanationRequest{
		Subject:          "Verify",
		RiskScore:        &score,
		HasAttachments:   &attachments,
		RiskLevel:        RiskLevelDangerous,
		ThreatIndicators: []string{"urgency", "spoofing"},
		Question:         "Should I click?",
	})

	for _, want := range []string{
		"Risk Score: 87\n",
		"Has Attachments: true\n",
		"Threat Indicators: urgency, spoofing\n",
		"The user also asks: Should I click?",
	} {
		if !strings.Contains(prompt.User, want) {
			t.Errorf("User prompt missing %q:\n%s", want, prompt.User)
		}
	}

	bare := BuildExplanationPrompt(&ExplanationRequest{})
	if strings.Contains(bare.User, "also asks") {
		t.Error("prompt without question mentions a question")
	}
}

func TestClassifierMakesOneCall(t *testing.T) {
	llm := &fakeLLM{reply: "{}"}
	m := &recordingMetrics{}
	c := NewClassifier(llm, ClassifierConfig{Provider: "fake"}, m, zap.NewNop())

	raw, err := c.Classify(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if raw != "{}" {
		t.Errorf("Classify() = %q, want the raw reply", raw)
	}
	if len(llm.prompts) != 1 {
		t.Errorf("LLM called %d times, want 1", len(llm.prompts))
	}
	if len(m.classifications) != 1 || m.classifications[0] != nil {
		t.Errorf("classification metrics = %v, want one success", m.classifications)
	}
}

func TestClassifierFailureIsNotRetried(t *testing.T) {
	llm := &fakeLLM{err: errors.New("503 service unavailable")}
	c := NewClassifier(llm, ClassifierConfig{Provider: "fake"}, nil, zap.NewNop())

	_, err := c.Classify(context.Background(), sampleRequest())
	if !errors.Is(err, ErrClassifierUnavailable) {
		t.Errorf("Classify() error = %v, want ErrClassifierUnavailable", err)
	}
	if len(llm.prompts) != 1 {
		t.Errorf("LLM called %d times, want 1", len(llm.prompts))
	}
}

func TestClassifierExplain(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{name: "answer", reply: "The sender domain is spoofed.", want: "The sender domain is spoofed."},
		{name: "blank answer", reply: "  ", want: noExplanation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &fakeLLM{reply: tt.reply}
			c := NewClassifier(llm, ClassifierConfig{Provider: "fake"}, nil, zap.NewNop())

			got, err := c.Explain(context.Background(), &ExplanationRequest{})
			if err != nil {
				t.Fatalf("Explain() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Explain() = %q, want %q", got, tt.want)
			}
			if llm.prompts[0].System != explanationSystemPrompt {
				t.Error("Explain() did not use the explanation instruction")
			}
		})
	}
}
