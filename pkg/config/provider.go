package config

import (
	"fmt"
	"os"
	"strings"

	cerrors "github.com/colloquyhq/colloquy/pkg/errors"
)

// Supported provider names.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
	ProviderMock      = "mock" // offline scripted run, no credentials
)

// Default models per provider.
const (
	defaultAnthropicModel = "claude-3-5-sonnet-20240620"
	defaultOpenAIModel    = "gpt-5-mini"
	defaultOllamaModel    = "qwen2.5-coder:7b-instruct-q5_K_M"
)

// API-key environment variables per provider.
const (
	anthropicKeyEnv = "ANTHROPIC_API_KEY"
	openaiKeyEnv    = "OPENAI_API_KEY"
)

// ProviderConfig is the resolved, validated backend selection. It is
// produced once at startup and used uniformly by every non-human role.
type ProviderConfig struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

// ResolveProvider validates the configured backend selection. An
// unsupported provider name or a missing API key for a hosted provider is
// a fatal configuration error.
func ResolveProvider(cfg LLMConfig) (*ProviderConfig, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if name == "" {
		name = ProviderAnthropic
	}

	resolved := &ProviderConfig{
		Provider: name,
		Model:    cfg.Model,
		BaseURL:  cfg.BaseURL,
	}

	switch name {
	case ProviderAnthropic:
		key, err := resolveKey(cfg.APIKey, anthropicKeyEnv, name)
		if err != nil {
			return nil, err
		}
		resolved.APIKey = key
		if resolved.Model == "" {
			resolved.Model = defaultAnthropicModel
		}

	case ProviderOpenAI:
		key, err := resolveKey(cfg.APIKey, openaiKeyEnv, name)
		if err != nil {
			return nil, err
		}
		resolved.APIKey = key
		if resolved.Model == "" {
			resolved.Model = defaultOpenAIModel
		}

	case ProviderOllama:
		if resolved.Model == "" {
			resolved.Model = defaultOllamaModel
		}

	case ProviderMock:
		// No credentials, no model.

	default:
		return nil, cerrors.New(cerrors.CodeConfig,
			fmt.Sprintf("unsupported llm provider %q (supported: %s, %s, %s, %s)",
				cfg.Provider, ProviderAnthropic, ProviderOpenAI, ProviderOllama, ProviderMock), nil)
	}

	return resolved, nil
}

func resolveKey(configured, envVar, provider string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	if key := os.Getenv(envVar); key != "" {
		return key, nil
	}
	return "", cerrors.New(cerrors.CodeConfig,
		fmt.Sprintf("provider %s selected but no API key found (set %s)", provider, envVar), nil).
		WithContext("env", envVar)
}
