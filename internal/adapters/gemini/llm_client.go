package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/mikey/llm-mail-triage/internal/core"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// generateFunc runs one generation with the given system instruction
type generateFunc func(ctx context.Context, system string, parts ...genai.Part) (*genai.GenerateContentResponse, error)

// GeminiClient is an implementation of the LLMClient interface using Google Gemini
type GeminiClient struct {
	client      *genai.Client
	generate    generateFunc
	modelName   string
	maxTokens   int
	temperature float32
	topP        float32
	logger      *zap.Logger
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	logger *zap.Logger,
) (*GeminiClient, error) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	c := &GeminiClient{
		client:      client,
		modelName:   modelName,
		maxTokens:   maxTokens,
		temperature: temperature,
		topP:        topP,
		logger:      logger,
	}
	c.generate = func(ctx context.Context, system string, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
		model := c.client.GenerativeModel(c.modelName)
		c.configure(model, system)
		return model.GenerateContent(ctx, parts...)
	}
	return c, nil
}

// Close closes the Gemini client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// configure applies the sampling settings and the per-prompt system instruction
func (c *GeminiClient) configure(model *genai.GenerativeModel, system string) {
	model.SetTemperature(c.temperature)
	model.SetTopP(c.topP)
	model.SetMaxOutputTokens(int32(c.maxTokens))
	if system != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(system)},
		}
	}
}

// Complete sends the prompt and returns the text of the first candidate
func (c *GeminiClient) Complete(ctx context.Context, prompt *core.Prompt) (*core.Completion, error) {
	resp, err := c.generate(ctx, prompt.System, genai.Text(prompt.User))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content with Gemini: %w", err)
	}

	completion := &core.Completion{ModelUsed: c.modelName}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		c.logger.Warn("Gemini returned no candidates")
		return completion, nil
	}

	completion.Text = candidateText(resp.Candidates[0].Content)
	return completion, nil
}

func candidateText(content *genai.Content) string {
	var b strings.Builder
	for _, part := range content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String()
}
