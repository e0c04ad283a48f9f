package store

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/perihelion-labs/neo-watch/internal/domain"
)

const chatPrefix = "chat:"

// ChatLog is the append-only durable store of chat messages. Keys embed the
// zero-padded arrival nanosecond plus the message uuid, so a prefix scan
// yields chronological order and same-nanosecond arrivals cannot collide.
type ChatLog struct {
	db *badger.DB

	mu       sync.Mutex
	lastNano int64
}

func NewChatLog(db *badger.DB) *ChatLog {
	return &ChatLog{db: db}
}

// Append durably stores a message and returns the stored record. The
// assigned timestamp is made strictly monotonic: an arrival stamped at or
// before the previous one is nudged forward a nanosecond so the log's total
// order matches append order.
func (l *ChatLog) Append(msg domain.ChatMessage) (domain.ChatMessage, error) {
	l.mu.Lock()
	nanos := msg.At.UnixNano()
	if nanos <= l.lastNano {
		nanos = l.lastNano + 1
		msg.At = time.Unix(0, nanos).UTC()
	}
	l.lastNano = nanos
	l.mu.Unlock()

	value, err := json.Marshal(msg)
	if err != nil {
		return domain.ChatMessage{}, fmt.Errorf("serialize chat message: %w", err)
	}
	key := fmt.Sprintf("%s%019d:%s", chatPrefix, nanos, msg.ID)

	err = l.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		return domain.ChatMessage{}, err
	}
	return msg, nil
}

// History returns all messages in ascending arrival order.
func (l *ChatLog) History() ([]domain.ChatMessage, error) {
	var messages []domain.ChatMessage
	err := l.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, chatPrefix, func(value []byte) error {
			var msg domain.ChatMessage
			if err := json.Unmarshal(value, &msg); err != nil {
				return fmt.Errorf("decode chat message: %w", err)
			}
			messages = append(messages, msg)
			return nil
		})
	})
	return messages, err
}
