package summarizer

import (
	"context"
	"errors"

	"google.golang.org/genai"
)

var errGeminiNotConfigured = errors.New("GEMINI_API_KEY is not configured")

type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini 在没有配置 API key 时仍然返回可用的实例，调用 Generate 时才报错
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return &Gemini{model: model}, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}

	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	if g.client == nil {
		return "", errGeminiNotConfigured
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", err
	}

	text := result.Text()
	if text == "" {
		return "", errors.New("model returned no text")
	}

	return text, nil
}
