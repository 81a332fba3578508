package chat

import (
	"time"

	"github.com/google/uuid"
)

// Message is one entry in the conversation. Immutable once appended;
// ordering is significant (insertion order = conversation order).
type Message struct {
	ID      string
	Speaker Role
	Content string

	// Directive optionally names the next speaker explicitly. When set it
	// takes precedence over sentinel scanning in SelectSpeakerStructured.
	// The sentinel protocol never sets it.
	Directive Role

	CreatedAt time.Time
}

// NewMessage builds a message with a fresh id and timestamp.
func NewMessage(speaker Role, content string) Message {
	return Message{
		ID:        uuid.New().String(),
		Speaker:   speaker,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

// Transcript is the ordered history of messages exchanged so far.
// It is owned and mutated only by the group-chat runtime; everything else
// gets read-only access. Length is monotonically non-decreasing.
type Transcript struct {
	messages []Message
}

// NewTranscript returns an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{}
}

// Append adds a message, stamping id and timestamp if missing.
func (t *Transcript) Append(msg Message) Message {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	t.messages = append(t.messages, msg)
	return msg
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	return len(t.messages)
}

// Last returns the most recent message and whether one exists.
func (t *Transcript) Last() (Message, bool) {
	if len(t.messages) == 0 {
		return Message{}, false
	}
	return t.messages[len(t.messages)-1], true
}

// Messages returns a copy of the history for read-only consumers.
func (t *Transcript) Messages() []Message {
	return append([]Message(nil), t.messages...)
}

// Tail returns up to n most recent messages, oldest first.
func (t *Transcript) Tail(n int) []Message {
	if n <= 0 || n >= len(t.messages) {
		return t.Messages()
	}
	return append([]Message(nil), t.messages[len(t.messages)-n:]...)
}
