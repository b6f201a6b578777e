package email

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// NoopSender logs and records messages without delivering them.
// Used when no Resend key is configured, and in tests.
type NoopSender struct {
	mu   sync.Mutex
	sent []Message
}

// NewNoopSender creates a new NoopSender.
func NewNoopSender() *NoopSender {
	return &NoopSender{}
}

// Send records the message.
func (s *NoopSender) Send(_ context.Context, msg Message) (string, error) {
	if err := msg.check(); err != nil {
		return "", err
	}
	s.mu.Lock()
	s.sent = append(s.sent, msg)
	n := len(s.sent)
	s.mu.Unlock()
	slog.Info("email_event", "event", "sent", "provider", "noop", "subject", msg.Subject, "recipients", len(msg.To))
	return fmt.Sprintf("noop-%d", n), nil
}

// Sent returns a copy of every recorded message.
func (s *NoopSender) Sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.sent...)
}
