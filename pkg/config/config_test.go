package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/knadh/koanf/v2"

	cerrors "github.com/colloquyhq/colloquy/pkg/errors"
)

// resetKoanf clears the package-global koanf instance between tests.
func resetKoanf() {
	k = koanf.New(".")
}

func TestLoadDefaults(t *testing.T) {
	resetKoanf()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("log defaults = %s/%s, want info/text", cfg.Log.Level, cfg.Log.Format)
	}
	if cfg.LLM.Provider != ProviderAnthropic {
		t.Errorf("expected default provider anthropic, got %s", cfg.LLM.Provider)
	}
	if cfg.Chat.MaxRounds != 20 {
		t.Errorf("expected default max rounds 20, got %d", cfg.Chat.MaxRounds)
	}
	if cfg.Chat.WorkDir != "code" {
		t.Errorf("expected default work dir code, got %s", cfg.Chat.WorkDir)
	}
	if cfg.Chat.Sandbox {
		t.Error("sandbox should default to off")
	}
	if cfg.Telemetry.Exporter != "stdout" {
		t.Errorf("expected default exporter stdout, got %s", cfg.Telemetry.Exporter)
	}
}

func TestLoadFile(t *testing.T) {
	resetKoanf()

	content := `
llm:
  provider: "ollama"
  model: "llama3.1"
  temperature: 0.3
chat:
  max_rounds: 7
  sandbox: true
  history_path: "runs.db"
log:
  level: "debug"
  format: "json"
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.LLM.Provider != "ollama" || cfg.LLM.Model != "llama3.1" {
		t.Errorf("llm config = %+v", cfg.LLM)
	}
	if cfg.LLM.Temperature != 0.3 {
		t.Errorf("temperature = %v, want 0.3", cfg.LLM.Temperature)
	}
	if cfg.Chat.MaxRounds != 7 || !cfg.Chat.Sandbox {
		t.Errorf("chat config = %+v", cfg.Chat)
	}
	if cfg.Chat.HistoryPath != "runs.db" {
		t.Errorf("history path = %q", cfg.Chat.HistoryPath)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("log config = %+v", cfg.Log)
	}
	// Untouched keys keep their defaults.
	if cfg.Chat.WorkDir != "code" {
		t.Errorf("work dir = %q, want default", cfg.Chat.WorkDir)
	}
}

func TestLoadMissingFile(t *testing.T) {
	resetKoanf()

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if !cerrors.IsCode(err, cerrors.CodeIO) {
		t.Errorf("Load error = %v, want code %s", err, cerrors.CodeIO)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	resetKoanf()
	t.Setenv("COLLOQUY_LLM_PROVIDER", "openai")
	t.Setenv("COLLOQUY_LOG_LEVEL", "warn")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.LLM.Provider != "openai" {
		t.Errorf("expected provider openai from env, got %s", cfg.LLM.Provider)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("expected log level warn from env, got %s", cfg.Log.Level)
	}
}

func TestLoadEnvBeatsFile(t *testing.T) {
	resetKoanf()
	t.Setenv("COLLOQUY_LLM_MODEL", "from-env")

	content := "llm:\n  model: \"from-file\"\n"
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LLM.Model != "from-env" {
		t.Errorf("model = %q, want env override to win", cfg.LLM.Model)
	}
}
