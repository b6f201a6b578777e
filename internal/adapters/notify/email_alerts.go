package notify

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"time"

	"boxdesk/internal/adapters/email"
)

// sendTimeout bounds one alert delivery.
const sendTimeout = 10 * time.Second

// EmailAlerts forwards error toasts to the box's alert recipients.
// Success toasts are ignored.
type EmailAlerts struct {
	sender  email.Sender
	to      []string
	boxName string

	// done is signalled after each delivery attempt; nil outside tests.
	done chan<- struct{}
}

// NewEmailAlerts creates an alerting notifier. It returns nil when to is empty.
func NewEmailAlerts(sender email.Sender, to []string, boxName string) *EmailAlerts {
	if sender == nil || len(to) == 0 {
		return nil
	}
	return &EmailAlerts{sender: sender, to: to, boxName: boxName}
}

// Notify implements Notifier. Delivery runs in the background so the caller never waits on the provider.
func (a *EmailAlerts) Notify(ctx context.Context, t Toast) {
	if a == nil || t.Level != LevelError {
		return
	}
	msg := email.Message{
		To:      a.to,
		Subject: fmt.Sprintf("[%s] schedule save failed", a.boxName),
		HTML: fmt.Sprintf("<p>%s</p><p><small>%s</small></p>",
			html.EscapeString(t.Message), t.At.Format(time.RFC1123)),
		Text: t.Message + "\n\n" + t.At.Format(time.RFC1123),
	}
	go func() {
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
		defer cancel()
		if _, err := a.sender.Send(sendCtx, msg); err != nil {
			slog.Warn("notify_event", "event", "alert_email_failed", "error", err)
		}
		if a.done != nil {
			a.done <- struct{}{}
		}
	}()
}
