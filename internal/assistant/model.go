package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// ErrUnavailable is returned when no language model is configured.
var ErrUnavailable = errors.New("assistant is not configured")

// Model generates text for a system instruction and a user prompt.
type Model interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// GeminiModel is a Model backed by the Gemini API.
type GeminiModel struct {
	client *genai.Client
	model  string
}

// NewGeminiModel creates a Gemini client for the given API key and model name.
func NewGeminiModel(ctx context.Context, apiKey, model string) (*GeminiModel, error) {
	if apiKey == "" {
		return nil, ErrUnavailable
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return &GeminiModel{client: client, model: model}, nil
}

// Generate sends a single-turn request with temperature 0.
func (m *GeminiModel) Generate(ctx context.Context, system, prompt string) (string, error) {
	resp, err := m.client.Models.GenerateContent(ctx, m.model, genai.Text(prompt), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0),
	})
	if err != nil {
		return "", fmt.Errorf("calling %s: %w", m.model, err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("%s returned an empty response", m.model)
	}
	return text, nil
}

// Name returns the model name.
func (m *GeminiModel) Name() string {
	return m.model
}
