package email

import (
	"context"
	"errors"
)

// ErrNoRecipients rejects a message before it reaches any provider.
var ErrNoRecipients = errors.New("email has no recipients")

// Message is one outbound email. Text is the plain-text part; providers
// derive one from HTML when it is empty.
type Message struct {
	To      []string
	From    string // empty means the sender's default
	Subject string
	HTML    string
	Text    string
}

func (m Message) check() error {
	if len(m.To) == 0 {
		return ErrNoRecipients
	}
	return nil
}

// Sender delivers email through an external provider.
type Sender interface {
	Send(ctx context.Context, msg Message) (messageID string, err error)
}
