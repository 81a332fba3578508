// Package main runs the colloquy demo: a five-role group chat that
// translates an Oracle PL/SQL function into a tested Python program.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/colloquyhq/colloquy/pkg/chat"
	"github.com/colloquyhq/colloquy/pkg/config"
	"github.com/colloquyhq/colloquy/pkg/history"
	"github.com/colloquyhq/colloquy/pkg/llm"
	"github.com/colloquyhq/colloquy/pkg/task"
	"github.com/colloquyhq/colloquy/pkg/telemetry"
	anthropicprovider "github.com/colloquyhq/colloquy/providers/anthropic"
	openaiprovider "github.com/colloquyhq/colloquy/providers/openai"
)

const (
	serviceName    = "colloquy"
	serviceVersion = "0.1.0"
)

func main() {
	if err := run(); err != nil {
		slog.Error("colloquy failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML config file")
	taskDir := flag.String("task-dir", "testdata", "directory holding the reference documents")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	telemetry.ConfigureSlog(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	shutdown, err := telemetry.InitWithConfig(serviceName, serviceVersion, telemetry.Config{
		Exporter:     cfg.Telemetry.Exporter,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure: cfg.Telemetry.OTLPInsecure,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	// Fails fast on an unsupported provider or a missing API key.
	providerCfg, err := config.ResolveProvider(cfg.LLM)
	if err != nil {
		return err
	}

	provider, err := buildProvider(providerCfg)
	if err != nil {
		return err
	}

	registryOpts := []chat.RegistryOption{
		chat.WithWorkDir(cfg.Chat.WorkDir),
		chat.WithSandbox(cfg.Chat.Sandbox),
	}
	if cfg.Chat.PromptsPath != "" {
		overrides, err := chat.LoadInstructionOverrides(cfg.Chat.PromptsPath)
		if err != nil {
			return err
		}
		registryOpts = append(registryOpts, chat.WithInstructionOverrides(overrides))
	}
	registry := chat.NewRegistry(registryOpts...)

	speakers := buildSpeakers(registry, provider, providerCfg, cfg.LLM.Temperature)

	chatOpts := []chat.GroupChatOption{
		chat.WithMaxRounds(cfg.Chat.MaxRounds),
	}
	if cfg.Chat.HistoryPath != "" {
		store, err := history.Open(cfg.Chat.HistoryPath)
		if err != nil {
			return err
		}
		defer store.Close()
		chatOpts = append(chatOpts, chat.WithHistory(store))
	}

	groupChat, err := chat.NewGroupChat(speakers, chatOpts...)
	if err != nil {
		return err
	}

	// Unreadable reference documents abort startup.
	prompt, err := task.NewComposer(*taskDir).Compose()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	transcript, err := groupChat.Run(ctx, chat.NewMessage(chat.RoleAdmin, prompt))
	printTranscript(transcript)
	return err
}

// buildProvider constructs the backend named by the resolved selection.
func buildProvider(cfg *config.ProviderConfig) (llm.Provider, error) {
	switch cfg.Provider {
	case config.ProviderAnthropic:
		return anthropicprovider.NewWithAPIKey(cfg.APIKey, anthropicprovider.WithModel(cfg.Model)), nil
	case config.ProviderOpenAI:
		opts := []openaiprovider.Option{openaiprovider.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, openaiprovider.WithBaseURL(cfg.BaseURL))
		}
		return openaiprovider.NewWithAPIKey(cfg.APIKey, opts...), nil
	case config.ProviderOllama:
		return llm.NewOllama(cfg.BaseURL), nil
	case config.ProviderMock:
		return scriptedDemoProvider(), nil
	default:
		return nil, fmt.Errorf("unhandled provider %q", cfg.Provider)
	}
}

// buildSpeakers binds one speaker to each role definition: the admin is
// the human proxy on stdin, the executor runs code locally, everyone else
// talks to the model.
func buildSpeakers(registry *chat.Registry, provider llm.Provider, cfg *config.ProviderConfig, temperature float64) []chat.Speaker {
	var speakers []chat.Speaker
	for _, def := range registry.Definitions() {
		switch {
		case def.RequiresHuman:
			speakers = append(speakers, chat.NewHumanSpeaker(def, os.Stdin, os.Stdout))
		case def.CanExecuteCode:
			speakers = append(speakers, chat.NewExecSpeaker(def, nil))
		default:
			speakers = append(speakers, chat.NewLLMSpeaker(def, provider,
				chat.WithModel(cfg.Model),
				chat.WithTemperature(temperature),
			))
		}
	}
	return speakers
}

// scriptedDemoProvider walks the happy path offline: plan, code, review,
// test hand-off, result. Useful for trying the loop without credentials.
func scriptedDemoProvider() llm.Provider {
	return llm.NewScriptedMockProvider(
		"Plan: the engineer writes the translation, the reviewer checks it, the executor runs it.\nDear engineer, please write the code.",
		"Here is the translation:\n```python\nprint(\"Emp ID: 201, Name: John Doe, Salary: 50000, Bonus: 5000\")\nprint(\"Emp ID: 202, Name: Jane Smith, Salary: 55000, Bonus: 5500\")\nprint(\"Total Salary for Department 1: 115500\")\n```\nDear reviewer, please check the code.",
		"code: APPROVED\nDear engineer, the code is ready for testing.",
		"Thanks. Time to run it. Dear executor.",
		"The plan executed successfully. Dear user, please check the result.",
	)
}

func printTranscript(transcript *chat.Transcript) {
	if transcript == nil {
		return
	}
	for _, msg := range transcript.Messages() {
		fmt.Printf("\n--- %s ---\n%s\n", msg.Speaker, msg.Content)
	}
}
