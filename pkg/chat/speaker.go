package chat

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"github.com/colloquyhq/colloquy/pkg/errors"
	"github.com/colloquyhq/colloquy/pkg/llm"
	"github.com/colloquyhq/colloquy/pkg/resilience"
)

// ErrTerminated signals that a speaker ended the conversation. The group
// chat treats it as a clean stop, not a failure.
var ErrTerminated = stderrors.New("chat terminated")

// Speaker produces one reply per turn for a fixed role.
type Speaker interface {
	Role() Role
	Reply(ctx context.Context, transcript *Transcript) (string, error)
}

// LLMSpeaker is a provider-backed speaker. Each turn it replays the
// transcript with its own messages as assistant turns and everyone else's
// as speaker-attributed user turns, under its role instruction.
type LLMSpeaker struct {
	def         RoleDefinition
	provider    llm.Provider
	model       string
	temperature float64
	retry       resilience.RetryConfig
}

// LLMSpeakerOption configures an LLMSpeaker.
type LLMSpeakerOption func(*LLMSpeaker)

// WithModel sets the model identifier sent to the provider.
func WithModel(model string) LLMSpeakerOption {
	return func(s *LLMSpeaker) { s.model = model }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) LLMSpeakerOption {
	return func(s *LLMSpeaker) { s.temperature = t }
}

// WithRetry overrides the retry policy for provider calls.
func WithRetry(rc resilience.RetryConfig) LLMSpeakerOption {
	return func(s *LLMSpeaker) { s.retry = rc }
}

// NewLLMSpeaker creates a provider-backed speaker for a role definition.
func NewLLMSpeaker(def RoleDefinition, provider llm.Provider, opts ...LLMSpeakerOption) *LLMSpeaker {
	s := &LLMSpeaker{
		def:      def,
		provider: provider,
		retry:    resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Role implements Speaker.
func (s *LLMSpeaker) Role() Role { return s.def.Role }

// Reply implements Speaker.
func (s *LLMSpeaker) Reply(ctx context.Context, transcript *Transcript) (string, error) {
	req := llm.ChatRequest{
		Model:    s.model,
		Messages: s.buildMessages(transcript),
	}
	if s.temperature > 0 {
		req.Temperature = s.temperature
	}

	var resp *llm.ChatResponse
	err := s.retry.Do(ctx, func() error {
		var chatErr error
		resp, chatErr = s.provider.Chat(ctx, req)
		return chatErr
	})
	if err != nil {
		return "", errors.New(errors.CodeLLM, fmt.Sprintf("%s reply failed", s.def.Role), err).
			WithContext("role", string(s.def.Role))
	}
	return resp.Content, nil
}

func (s *LLMSpeaker) buildMessages(transcript *Transcript) []llm.Message {
	history := transcript.Messages()
	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: s.def.Instruction})

	for _, msg := range history {
		if msg.Speaker == s.def.Role {
			messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: msg.Content})
			continue
		}
		messages = append(messages, llm.Message{
			Role:    llm.RoleUser,
			Content: fmt.Sprintf("%s: %s", msg.Speaker, msg.Content),
		})
	}
	return messages
}

// HumanSpeaker is the human proxy. It prompts on out and reads one line
// from in; an empty line or EOF terminates the conversation.
type HumanSpeaker struct {
	def     RoleDefinition
	scanner *bufio.Scanner
	out     io.Writer
}

// NewHumanSpeaker creates a human-proxy speaker over the given streams.
func NewHumanSpeaker(def RoleDefinition, in io.Reader, out io.Writer) *HumanSpeaker {
	return &HumanSpeaker{
		def:     def,
		scanner: bufio.NewScanner(in),
		out:     out,
	}
}

// Role implements Speaker.
func (h *HumanSpeaker) Role() Role { return h.def.Role }

// Reply implements Speaker.
func (h *HumanSpeaker) Reply(ctx context.Context, transcript *Transcript) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fmt.Fprintf(h.out, "%s> ", h.def.Role)

	if !h.scanner.Scan() {
		if err := h.scanner.Err(); err != nil {
			return "", errors.New(errors.CodeChat, "read human input", err)
		}
		return "", ErrTerminated
	}

	line := strings.TrimSpace(h.scanner.Text())
	if line == "" {
		return "", ErrTerminated
	}
	return line, nil
}

var (
	_ Speaker = (*LLMSpeaker)(nil)
	_ Speaker = (*HumanSpeaker)(nil)
)
