package chat

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/colloquyhq/colloquy/pkg/errors"
)

const instrumentationName = "github.com/colloquyhq/colloquy/pkg/chat"

// DefaultMaxRounds bounds the conversation length.
const DefaultMaxRounds = 20

// HistoryRecorder persists transcript messages as they are appended.
type HistoryRecorder interface {
	Record(ctx context.Context, runID string, seq int, msg Message) error
}

// GroupChat drives the turn loop: select a speaker, obtain its reply,
// append it, repeat. Strictly sequential; the transcript is the only
// state and only the loop mutates it.
type GroupChat struct {
	speakers  map[Role]Speaker
	selector  SelectorFunc
	maxRounds int
	history   HistoryRecorder
	logger    *slog.Logger

	tracer       trace.Tracer
	turnCounter  metric.Int64Counter
	turnDuration metric.Float64Histogram
}

// GroupChatOption configures a GroupChat.
type GroupChatOption func(*GroupChat)

// WithSelector replaces the default sentinel dispatcher.
func WithSelector(fn SelectorFunc) GroupChatOption {
	return func(g *GroupChat) { g.selector = fn }
}

// WithMaxRounds bounds the number of turns after the opening message.
func WithMaxRounds(n int) GroupChatOption {
	return func(g *GroupChat) { g.maxRounds = n }
}

// WithHistory attaches a transcript store.
func WithHistory(store HistoryRecorder) GroupChatOption {
	return func(g *GroupChat) { g.history = store }
}

// WithLogger replaces the default slog logger.
func WithLogger(logger *slog.Logger) GroupChatOption {
	return func(g *GroupChat) { g.logger = logger }
}

// NewGroupChat builds the turn loop over the given speakers.
func NewGroupChat(speakers []Speaker, opts ...GroupChatOption) (*GroupChat, error) {
	byRole := make(map[Role]Speaker, len(speakers))
	for _, s := range speakers {
		if !s.Role().Valid() {
			return nil, errors.New(errors.CodeChat, fmt.Sprintf("speaker has unknown role %q", s.Role()), nil)
		}
		if _, dup := byRole[s.Role()]; dup {
			return nil, errors.New(errors.CodeChat, fmt.Sprintf("duplicate speaker for role %s", s.Role()), nil)
		}
		byRole[s.Role()] = s
	}

	g := &GroupChat{
		speakers:  byRole,
		selector:  SelectSpeaker,
		maxRounds: DefaultMaxRounds,
		logger:    slog.Default(),
		tracer:    otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(g)
	}

	meter := otel.Meter(instrumentationName)
	if counter, err := meter.Int64Counter("colloquy.chat.turns",
		metric.WithDescription("Turns taken, by speaker role")); err == nil {
		g.turnCounter = counter
	}
	if hist, err := meter.Float64Histogram("colloquy.chat.turn.duration",
		metric.WithDescription("Turn duration in seconds"),
		metric.WithUnit("s")); err == nil {
		g.turnDuration = hist
	}

	return g, nil
}

// Run appends the opening message and loops until the round budget is
// spent, a speaker terminates the chat, or the context is canceled. The
// transcript accumulated so far is always returned.
func (g *GroupChat) Run(ctx context.Context, opening Message) (*Transcript, error) {
	transcript := NewTranscript()

	if !opening.Speaker.Valid() {
		return transcript, errors.New(errors.CodeChat, fmt.Sprintf("opening message has unknown speaker %q", opening.Speaker), nil)
	}

	runID := newRunID()
	appended := transcript.Append(opening)
	g.record(ctx, runID, 0, appended)

	g.logger.InfoContext(ctx, "group chat started",
		slog.String("run_id", runID),
		slog.String("opening_speaker", string(opening.Speaker)),
		slog.Int("max_rounds", g.maxRounds),
	)

	last := opening.Speaker
	for round := 1; round <= g.maxRounds; round++ {
		if err := ctx.Err(); err != nil {
			return transcript, errors.New(errors.CodeChat, "conversation canceled", err).
				WithContext("round", round)
		}

		next := g.selector(last, transcript)
		speaker, ok := g.speakers[next]
		if !ok {
			return transcript, errors.New(errors.CodeChat, fmt.Sprintf("no speaker registered for role %s", next), nil).
				WithContext("round", round)
		}

		turnCtx, span := g.tracer.Start(ctx, "chat.turn",
			trace.WithAttributes(
				attribute.Int("chat.round", round),
				attribute.String("chat.speaker", string(next)),
			))

		started := time.Now()
		content, err := speaker.Reply(turnCtx, transcript)
		g.observeTurn(turnCtx, next, time.Since(started))
		span.End()

		if stderrors.Is(err, ErrTerminated) {
			g.logger.InfoContext(ctx, "group chat terminated by speaker",
				slog.String("run_id", runID),
				slog.String("speaker", string(next)),
				slog.Int("round", round),
			)
			return transcript, nil
		}
		if err != nil {
			return transcript, errors.New(errors.CodeChat, fmt.Sprintf("turn %d (%s) failed", round, next), err)
		}

		msg := transcript.Append(NewMessage(next, content))
		g.record(ctx, runID, transcript.Len()-1, msg)

		g.logger.DebugContext(ctx, "turn completed",
			slog.String("run_id", runID),
			slog.Int("round", round),
			slog.String("speaker", string(next)),
			slog.Int("content_len", len(content)),
		)

		last = next
	}

	g.logger.InfoContext(ctx, "group chat reached round limit",
		slog.String("run_id", runID),
		slog.Int("max_rounds", g.maxRounds),
	)
	return transcript, nil
}

func (g *GroupChat) record(ctx context.Context, runID string, seq int, msg Message) {
	if g.history == nil {
		return
	}
	if err := g.history.Record(ctx, runID, seq, msg); err != nil {
		// Persistence is best effort; the conversation goes on.
		g.logger.WarnContext(ctx, "failed to record message",
			slog.String("run_id", runID),
			slog.Int("seq", seq),
			slog.String("error", err.Error()),
		)
	}
}

func (g *GroupChat) observeTurn(ctx context.Context, role Role, elapsed time.Duration) {
	attrs := metric.WithAttributes(attribute.String("role", string(role)))
	if g.turnCounter != nil {
		g.turnCounter.Add(ctx, 1, attrs)
	}
	if g.turnDuration != nil {
		g.turnDuration.Record(ctx, elapsed.Seconds(), attrs)
	}
}

func newRunID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "run-unknown"
	}
	return "run-" + hex.EncodeToString(buf)
}
