// Package config loads colloquy configuration: defaults, then an optional
// YAML file, then COLLOQUY_* environment overrides.
package config

import (
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	cerrors "github.com/colloquyhq/colloquy/pkg/errors"
)

type Config struct {
	Log       LogConfig       `koanf:"log"`
	LLM       LLMConfig       `koanf:"llm"`
	Chat      ChatConfig      `koanf:"chat"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
}

type LLMConfig struct {
	Provider    string  `koanf:"provider"` // anthropic, openai, ollama, mock
	Model       string  `koanf:"model"`
	BaseURL     string  `koanf:"base_url"`
	APIKey      string  `koanf:"api_key"`
	Temperature float64 `koanf:"temperature"`
}

type ChatConfig struct {
	MaxRounds   int    `koanf:"max_rounds"`
	WorkDir     string `koanf:"workdir"`
	Sandbox     bool   `koanf:"sandbox"`
	HistoryPath string `koanf:"history_path"` // empty disables persistence
	PromptsPath string `koanf:"prompts_path"` // optional instruction overrides
}

type TelemetryConfig struct {
	Exporter     string `koanf:"exporter"` // stdout, otlp, none
	OTLPEndpoint string `koanf:"otlp_endpoint"`
	OTLPInsecure bool   `koanf:"otlp_insecure"`
}

// Global k instance
var k = koanf.New(".")

func Load(path string) (*Config, error) {
	// Defaults
	k.Set("log.level", "info")
	k.Set("log.format", "text")
	k.Set("llm.provider", ProviderAnthropic)
	k.Set("chat.max_rounds", 20)
	k.Set("chat.workdir", "code")
	k.Set("chat.sandbox", false)
	k.Set("telemetry.exporter", "stdout")

	// 1. Load from file
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, cerrors.New(cerrors.CodeIO, "load config file", err).
				WithContext("path", path)
		}
	}

	// 2. Load from ENV (COLLOQUY_LLM_PROVIDER -> llm.provider)
	if err := k.Load(env.Provider("COLLOQUY_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "COLLOQUY_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, cerrors.New(cerrors.CodeConfig, "load environment overrides", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, cerrors.New(cerrors.CodeConfig, "unmarshal config", err)
	}

	return &cfg, nil
}
