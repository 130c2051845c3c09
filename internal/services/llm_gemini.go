package services

import (
	"context"
	"fmt"
	"log"

	"google.golang.org/genai"

	"alfredoptarigan/resume-polisher/internal/config"
)

// geminiTransport creates a client per call because the API key may be
// overridden per request.
type geminiTransport struct{}

func NewGeminiTransport() LLMTransport {
	return &geminiTransport{}
}

func (g *geminiTransport) Name() string {
	return config.ProviderGemini
}

func (g *geminiTransport) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  req.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", &TransportError{Service: config.ProviderGemini, Err: fmt.Errorf("failed to create gemini client: %w", err)}
	}

	temperature := req.Temperature
	genConfig := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.System, genai.RoleUser),
		Temperature:       &temperature,
		MaxOutputTokens:   int32(req.MaxTokens),
	}

	resp, err := client.Models.GenerateContent(ctx, req.Model, genai.Text(req.User), genConfig)
	if err != nil {
		log.Printf("❌ Gemini API error: %v\n", err)
		return "", &TransportError{Service: config.ProviderGemini, Err: err}
	}

	if resp == nil {
		return "", nil
	}

	text := resp.Text()
	if text == "" {
		for _, candidate := range resp.Candidates {
			log.Printf("⚠️  Gemini candidate without text, finish reason: %s\n", candidate.FinishReason)
		}
	}

	return text, nil
}
