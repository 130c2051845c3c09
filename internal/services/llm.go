package services

import (
	"context"
	"fmt"
	"strings"

	"alfredoptarigan/resume-polisher/internal/config"
)

type CompletionRequest struct {
	System      string
	User        string
	Model       string
	Temperature float32
	MaxTokens   int
	// APIKey is the validated credential for this call.
	APIKey string
}

// LLMTransport sends one chat completion. Errors are transport failures
// (network, auth, rate limit, timeout); an empty completion is not an error.
type LLMTransport interface {
	Name() string
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// CredentialPolicy describes the accepted shape of an LLM API key.
type CredentialPolicy struct {
	Prefix      string
	MaxLength   int
	Placeholder string
}

// Validate returns the trimmed key or a *ConfigError.
func (p CredentialPolicy) Validate(key string) (string, error) {
	key = strings.TrimSpace(key)
	switch {
	case key == "" || (p.Placeholder != "" && key == p.Placeholder):
		return "", &ConfigError{Reason: "API key is required"}
	case p.Prefix != "" && !strings.HasPrefix(key, p.Prefix):
		return "", &ConfigError{Reason: fmt.Sprintf("API key must start with %q", p.Prefix)}
	case p.MaxLength > 0 && len(key) > p.MaxLength:
		return "", &ConfigError{Reason: fmt.Sprintf("API key must be at most %d characters", p.MaxLength)}
	}
	return key, nil
}

// CredentialPolicyFor returns the key policy of an LLM provider.
func CredentialPolicyFor(provider string) CredentialPolicy {
	if provider == config.ProviderGemini {
		return CredentialPolicy{MaxLength: 200}
	}
	return CredentialPolicy{
		Prefix:      "sk-",
		MaxLength:   200,
		Placeholder: config.DashScopeKeyPlaceholder,
	}
}

// NewLLMTransport builds the transport of the configured provider.
func NewLLMTransport(cfg config.LLMConfig) LLMTransport {
	if cfg.Provider == config.ProviderGemini {
		return NewGeminiTransport()
	}
	return NewDashScopeTransport(cfg.DashScopeBaseURL)
}
