package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("DASHSCOPE_API_KEY", "")

	cfg := Load()

	assert.Equal(t, ProviderDashScope, cfg.LLM.Provider)
	assert.Equal(t, "qwen-max", cfg.LLM.ResumeModel)
	assert.Equal(t, "qwen-plus", cfg.LLM.ContractModel)
	assert.Equal(t, int64(10*1024*1024), cfg.Storage.MaxFileSize)
	assert.Equal(t, 30*time.Second, cfg.OCR.Timeout)
	assert.Equal(t, "chi_sim+eng", cfg.OCR.TesseractLang)
	assert.True(t, cfg.Breaker.Enabled)
}

func TestLoadGeminiProviderSwitchesModels(t *testing.T) {
	t.Setenv("LLM_PROVIDER", ProviderGemini)
	t.Setenv("GEMINI_API_KEY", "AIza-test")

	cfg := Load()

	assert.Equal(t, "gemini-2.5-flash", cfg.LLM.ResumeModel)
	assert.Equal(t, "gemini-2.5-flash", cfg.LLM.ContractModel)
	assert.Equal(t, "AIza-test", cfg.LLMCredential())
}

func TestLLMCredentialIgnoresPlaceholder(t *testing.T) {
	cfg := &Config{LLM: LLMConfig{Provider: ProviderDashScope, DashScopeAPIKey: DashScopeKeyPlaceholder}}
	assert.Equal(t, "", cfg.LLMCredential())

	cfg.LLM.DashScopeAPIKey = "sk-live"
	assert.Equal(t, "sk-live", cfg.LLMCredential())
}

func TestInvalidDurationFallsBackToDefault(t *testing.T) {
	t.Setenv("OCR_TIMEOUT", "soon")

	cfg := Load()

	assert.Equal(t, 30*time.Second, cfg.OCR.Timeout)
}
