package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"alfredoptarigan/resume-polisher/internal/config"
)

// dashScopeTransport talks to DashScope's OpenAI-compatible endpoint. The API
// key is supplied per request.
type dashScopeTransport struct {
	client openai.Client
}

func NewDashScopeTransport(baseURL string, opts ...option.RequestOption) LLMTransport {
	opts = append([]option.RequestOption{
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0),
	}, opts...)

	return &dashScopeTransport{
		client: openai.NewClient(opts...),
	}
}

func (d *dashScopeTransport) Name() string {
	return config.ProviderDashScope
}

func (d *dashScopeTransport) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.User),
		},
		Model:       req.Model,
		Temperature: openai.Float(float64(req.Temperature)),
		MaxTokens:   openai.Int(int64(req.MaxTokens)),
	}

	resp, err := d.client.Chat.Completions.New(ctx, params, option.WithAPIKey(req.APIKey))
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", &TransportError{Service: config.ProviderDashScope, Err: fmt.Errorf("status %d: %w", apiErr.StatusCode, err)}
		}
		return "", &TransportError{Service: config.ProviderDashScope, Err: err}
	}

	if len(resp.Choices) == 0 {
		return "", nil
	}

	return resp.Choices[0].Message.Content, nil
}
