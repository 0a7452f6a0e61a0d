package mapview

import (
	"sync"
	"time"
)

// StatusTTL is how long a status message stays visible.
const StatusTTL = 5 * time.Second

// Message is one status bar entry.
type Message struct {
	Level string    `json:"level"`
	Text  string    `json:"text"`
	At    time.Time `json:"at"`
}

// StatusBoard holds recent status messages, expiring each after StatusTTL.
type StatusBoard struct {
	mu   sync.Mutex
	msgs []Message
	now  func() time.Time
}

// NewStatusBoard returns a board using the wall clock.
func NewStatusBoard() *StatusBoard {
	return &StatusBoard{now: time.Now}
}

// Add posts a message.
func (b *StatusBoard) Add(level, text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgs = append(b.msgs, Message{Level: level, Text: text, At: b.now()})
}

// Active returns the unexpired messages, oldest first, and drops the rest.
func (b *StatusBoard) Active() []Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	cutoff := b.now().Add(-StatusTTL)
	kept := b.msgs[:0]
	for _, m := range b.msgs {
		if m.At.After(cutoff) {
			kept = append(kept, m)
		}
	}
	b.msgs = kept
	return append([]Message(nil), kept...)
}
