// Package chat implements the live broadcast hub. Every accepted message is
// durably logged before any delivery, so the log is the source of truth for
// message order and history.
package chat

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/perihelion-labs/neo-watch/internal/domain"
	"github.com/perihelion-labs/neo-watch/internal/observability"
)

// Log is the durable store the hub appends to before broadcasting.
type Log interface {
	Append(msg domain.ChatMessage) (domain.ChatMessage, error)
	History() ([]domain.ChatMessage, error)
}

// Member is one connected participant. Outbound carries formatted lines and
// is closed when the member leaves or is dropped by the hub.
type Member struct {
	id       uuid.UUID
	outbound chan string
}

func (m *Member) ID() uuid.UUID { return m.id }

// Outbound is the member's delivery channel.
func (m *Member) Outbound() <-chan string { return m.outbound }

// Hub fans chat messages out to every connected member.
type Hub struct {
	log        Log
	logger     *slog.Logger
	metrics    *observability.Metrics
	bufferSize int

	mu      sync.RWMutex
	members map[uuid.UUID]*Member

	// recvMu serializes Receive so log order matches delivery order.
	recvMu sync.Mutex
}

func NewHub(log Log, bufferSize int, logger *slog.Logger, metrics *observability.Metrics) *Hub {
	return &Hub{
		log:        log,
		logger:     logger,
		metrics:    metrics,
		bufferSize: bufferSize,
		members:    make(map[uuid.UUID]*Member),
	}
}

// Join registers a new member and returns its delivery handle.
func (h *Hub) Join() *Member {
	m := &Member{id: uuid.New(), outbound: make(chan string, h.bufferSize)}

	h.mu.Lock()
	h.members[m.id] = m
	h.mu.Unlock()

	h.metrics.ChatMembers.Inc()
	h.logger.Info("chat member joined", "member_id", m.id)
	return m
}

// Leave unregisters a member and closes its outbound channel. Leaving twice
// is a no-op.
func (h *Hub) Leave(m *Member) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.members[m.id]; !ok {
		return
	}
	delete(h.members, m.id)
	close(m.outbound)

	h.metrics.ChatMembers.Dec()
	h.logger.Info("chat member left", "member_id", m.id)
}

// Receive accepts one raw inbound line: parse, durably log, then broadcast
// the formatted line to every member. Receives are serialized; if the append
// fails nothing is delivered.
func (h *Hub) Receive(raw string) (domain.ChatMessage, error) {
	h.recvMu.Lock()
	defer h.recvMu.Unlock()

	stored, err := h.log.Append(domain.NewChatMessage(raw))
	if err != nil {
		return domain.ChatMessage{}, fmt.Errorf("append chat message: %w", err)
	}
	h.metrics.ChatMessagesReceived.Inc()

	h.broadcast(stored.Line())
	return stored, nil
}

// History returns the full durable message log in arrival order.
func (h *Hub) History() ([]domain.ChatMessage, error) {
	return h.log.History()
}

// MemberCount reports the number of currently connected members.
func (h *Hub) MemberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.members)
}

// broadcast delivers a line to every member without blocking. A member whose
// buffer is full is treated as unreachable and dropped; the remaining members
// are unaffected.
func (h *Hub) broadcast(line string) {
	var stale []*Member

	h.mu.RLock()
	for _, m := range h.members {
		select {
		case m.outbound <- line:
		default:
			stale = append(stale, m)
		}
	}
	h.mu.RUnlock()

	for _, m := range stale {
		h.logger.Warn("dropping unreachable chat member", "member_id", m.id)
		h.metrics.ChatDeliveriesDropped.Inc()
		h.Leave(m)
	}
}
