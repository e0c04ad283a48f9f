package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AnonymousSender is attributed to inbound chat lines that carry no
// "sender:" prefix.
const AnonymousSender = "Anonymous"

// ChatMessage is an immutable chat event. At is assigned by the server at
// receipt; arrival order is the total order for both storage and delivery.
type ChatMessage struct {
	ID     uuid.UUID `json:"id"`
	Sender string    `json:"sender"`
	Body   string    `json:"body"`
	At     time.Time `json:"at"`
}

// ParseChatLine splits a raw inbound line on the first colon into sender and
// body, trimming surrounding whitespace from both. A line without a colon is
// all body, attributed to [AnonymousSender].
func ParseChatLine(raw string) (sender, body string) {
	sender, body, found := strings.Cut(raw, ":")
	if !found {
		return AnonymousSender, strings.TrimSpace(raw)
	}
	return strings.TrimSpace(sender), strings.TrimSpace(body)
}

// NewChatMessage builds a message from a parsed raw line, stamping the
// arrival time.
func NewChatMessage(raw string) ChatMessage {
	sender, body := ParseChatLine(raw)
	return ChatMessage{
		ID:     uuid.New(),
		Sender: sender,
		Body:   body,
		At:     clock.Now().UTC(),
	}
}

// Line is the broadcast form delivered verbatim to every member.
func (m ChatMessage) Line() string {
	return fmt.Sprintf("%s: %s", m.Sender, m.Body)
}
