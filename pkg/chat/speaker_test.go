package chat

import (
	"context"
	"strings"
	"testing"

	"github.com/colloquyhq/colloquy/pkg/errors"
	"github.com/colloquyhq/colloquy/pkg/llm"
	"github.com/colloquyhq/colloquy/pkg/resilience"
)

func TestLLMSpeakerBuildsPerspectiveMessages(t *testing.T) {
	var captured llm.ChatRequest
	provider := &llm.MockProvider{
		ChatFunc: func(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
			captured = req
			return &llm.ChatResponse{Content: "Dear reviewer, please check."}, nil
		},
	}

	registry := NewRegistry()
	def, _ := registry.Definition(RoleEngineer)
	speaker := NewLLMSpeaker(def, provider, WithModel("test-model"), WithTemperature(0.2))

	transcript := transcriptOf(
		NewMessage(RoleAdmin, "solve the task"),
		NewMessage(RolePlanner, "Dear engineer, write the code."),
		NewMessage(RoleEngineer, "working on it"),
	)

	reply, err := speaker.Reply(context.Background(), transcript)
	if err != nil {
		t.Fatalf("Reply() error = %v", err)
	}
	if reply != "Dear reviewer, please check." {
		t.Errorf("Reply() = %q", reply)
	}

	if captured.Model != "test-model" {
		t.Errorf("request model = %q, want test-model", captured.Model)
	}
	if captured.Temperature != 0.2 {
		t.Errorf("request temperature = %v, want 0.2", captured.Temperature)
	}
	if len(captured.Messages) != 4 {
		t.Fatalf("request carried %d messages, want 4", len(captured.Messages))
	}

	if captured.Messages[0].Role != llm.RoleSystem || captured.Messages[0].Content != def.Instruction {
		t.Error("first message should be the role instruction as system prompt")
	}
	if captured.Messages[1].Role != llm.RoleUser || !strings.HasPrefix(captured.Messages[1].Content, "Admin: ") {
		t.Errorf("admin turn = %+v, want speaker-prefixed user message", captured.Messages[1])
	}
	if captured.Messages[2].Role != llm.RoleUser || !strings.HasPrefix(captured.Messages[2].Content, "Planner: ") {
		t.Errorf("planner turn = %+v, want speaker-prefixed user message", captured.Messages[2])
	}
	if captured.Messages[3].Role != llm.RoleAssistant || captured.Messages[3].Content != "working on it" {
		t.Errorf("own turn = %+v, want plain assistant message", captured.Messages[3])
	}
}

func TestLLMSpeakerWrapsProviderFailure(t *testing.T) {
	provider := &llm.FailingMockProvider{}
	registry := NewRegistry()
	def, _ := registry.Definition(RolePlanner)
	speaker := NewLLMSpeaker(def, provider,
		WithRetry(resilience.RetryConfig{MaxAttempts: 1}),
	)

	_, err := speaker.Reply(context.Background(), transcriptOf(NewMessage(RoleAdmin, "task")))
	if err == nil {
		t.Fatal("Reply() should fail when the provider fails")
	}
	if !errors.IsCode(err, errors.CodeLLM) {
		t.Errorf("error = %v, want code %s", err, errors.CodeLLM)
	}
}

func TestHumanSpeakerReadsOneLine(t *testing.T) {
	registry := NewRegistry()
	def, _ := registry.Definition(RoleAdmin)

	var out strings.Builder
	speaker := NewHumanSpeaker(def, strings.NewReader("looks good\n"), &out)

	reply, err := speaker.Reply(context.Background(), NewTranscript())
	if err != nil {
		t.Fatalf("Reply() error = %v", err)
	}
	if reply != "looks good" {
		t.Errorf("Reply() = %q, want %q", reply, "looks good")
	}
	if !strings.Contains(out.String(), "Admin> ") {
		t.Errorf("prompt output = %q, want role prompt", out.String())
	}
}

func TestHumanSpeakerTerminates(t *testing.T) {
	registry := NewRegistry()
	def, _ := registry.Definition(RoleAdmin)

	tests := []struct {
		name  string
		input string
	}{
		{"empty line", "\n"},
		{"whitespace only", "   \n"},
		{"eof", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			speaker := NewHumanSpeaker(def, strings.NewReader(tt.input), &strings.Builder{})
			_, err := speaker.Reply(context.Background(), NewTranscript())
			if err != ErrTerminated {
				t.Errorf("Reply() error = %v, want ErrTerminated", err)
			}
		})
	}
}

func TestHumanSpeakerHonorsCanceledContext(t *testing.T) {
	registry := NewRegistry()
	def, _ := registry.Definition(RoleAdmin)
	speaker := NewHumanSpeaker(def, strings.NewReader("never read\n"), &strings.Builder{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := speaker.Reply(ctx, NewTranscript()); err != context.Canceled {
		t.Errorf("Reply() error = %v, want context.Canceled", err)
	}
}
