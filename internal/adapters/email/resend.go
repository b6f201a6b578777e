package email

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"
)

// ResendSender delivers through the Resend HTTP API. Commit-failure alerts
// are its only traffic, so there is no batching or retry.
type ResendSender struct {
	client *resend.Client
	from   string
}

// NewResendSender uses from whenever a message leaves From empty.
func NewResendSender(apiKey, from string) *ResendSender {
	return &ResendSender{client: resend.NewClient(apiKey), from: from}
}

func (s *ResendSender) request(msg Message) *resend.SendEmailRequest {
	req := &resend.SendEmailRequest{
		From:    s.from,
		To:      msg.To,
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	}
	if msg.From != "" {
		req.From = msg.From
	}
	return req
}

// Send returns Resend's message id.
func (s *ResendSender) Send(ctx context.Context, msg Message) (string, error) {
	if err := msg.check(); err != nil {
		return "", err
	}
	resp, err := s.client.Emails.SendWithContext(ctx, s.request(msg))
	if err != nil {
		slog.Error("email_event", "event", "send_failed", "provider", "resend", "subject", msg.Subject, "error", err)
		return "", fmt.Errorf("resend: %w", err)
	}
	slog.Info("email_event", "event", "sent", "provider", "resend", "message_id", resp.Id, "recipients", len(msg.To))
	return resp.Id, nil
}
