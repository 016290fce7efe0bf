package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/mikey/llm-mail-triage/internal/core"
	"go.uber.org/zap"
)

type fakeGenerator struct {
	resp   *genai.GenerateContentResponse
	err    error
	system string
	parts  []genai.Part
}

func (f *fakeGenerator) generate(ctx context.Context, system string, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	f.system = system
	f.parts = parts
	return f.resp, f.err
}

func newClient(gen *fakeGenerator) *GeminiClient {
	return &GeminiClient{
		generate:    gen.generate,
		modelName:   "gemini-1.5-flash",
		maxTokens:   800,
		temperature: 0.1,
		topP:        0.9,
		logger:      zap.NewNop(),
	}
}

func candidate(parts ...genai.Part) *genai.Candidate {
	return &genai.Candidate{Content: &genai.Content{Parts: parts}}
}

func TestComplete(t *testing.T) {
	gen := &fakeGenerator{resp: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			candidate(genai.Text(`{"riskScore":`), genai.Blob{MIMEType: "image/png"}, genai.Text(`72}`)),
			candidate(genai.Text("ignored")),
		},
	}}
	client := newClient(gen)

	completion, err := client.Complete(context.Background(), &core.Prompt{System: "be careful", User: "email"})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if completion.Text != `{"riskScore":72}` {
		t.Errorf("Text = %q, want the first candidate's text parts", completion.Text)
	}
	if completion.ModelUsed != "gemini-1.5-flash" {
		t.Errorf("ModelUsed = %q, want configured model", completion.ModelUsed)
	}
	if gen.system != "be careful" {
		t.Errorf("system = %q, want the system prompt", gen.system)
	}
	if len(gen.parts) != 1 || gen.parts[0] != genai.Text("email") {
		t.Errorf("parts = %v, want the user prompt", gen.parts)
	}
}

func TestCompleteNoCandidates(t *testing.T) {
	tests := []struct {
		name string
		resp *genai.GenerateContentResponse
	}{
		{"nil response", nil},
		{"empty candidates", &genai.GenerateContentResponse{}},
		{"candidate without content", &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newClient(&fakeGenerator{resp: tt.resp})
			completion, err := client.Complete(context.Background(), &core.Prompt{User: "x"})
			if err != nil {
				t.Fatalf("Complete() error = %v", err)
			}
			if completion.Text != "" {
				t.Errorf("Text = %q, want empty", completion.Text)
			}
		})
	}
}

func TestCompleteGenerateError(t *testing.T) {
	client := newClient(&fakeGenerator{err: errors.New("quota exceeded")})
	if _, err := client.Complete(context.Background(), &core.Prompt{User: "x"}); err == nil {
		t.Fatal("Complete() error = nil, want error")
	}
}

func TestConfigure(t *testing.T) {
	client := newClient(&fakeGenerator{})

	model := &genai.GenerativeModel{}
	client.configure(model, "be careful")
	if model.Temperature == nil || *model.Temperature != 0.1 {
		t.Errorf("Temperature = %v, want 0.1", model.Temperature)
	}
	if model.TopP == nil || *model.TopP != 0.9 {
		t.Errorf("TopP = %v, want 0.9", model.TopP)
	}
	if model.MaxOutputTokens == nil || *model.MaxOutputTokens != 800 {
		t.Errorf("MaxOutputTokens = %v, want 800", model.MaxOutputTokens)
	}
	if model.SystemInstruction == nil || len(model.SystemInstruction.Parts) != 1 ||
		model.SystemInstruction.Parts[0] != genai.Text("be careful") {
		t.Errorf("SystemInstruction = %+v, want the system prompt", model.SystemInstruction)
	}

	bare := &genai.GenerativeModel{}
	client.configure(bare, "")
	if bare.SystemInstruction != nil {
		t.Errorf("SystemInstruction = %+v, want nil for an empty system prompt", bare.SystemInstruction)
	}
}
