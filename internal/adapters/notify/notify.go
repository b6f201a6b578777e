// Package notify delivers fire-and-forget user notifications ("toasts") after
// schedule and planner operations. Delivery failures are logged, never returned.
package notify

import (
	"context"
	"sync"
	"time"
)

// Level is the toast severity.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Toast is one user-visible notification.
type Toast struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Notifier receives toasts.
type Notifier interface {
	Notify(ctx context.Context, t Toast)
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, t Toast)

// Notify calls f.
func (f Func) Notify(ctx context.Context, t Toast) { f(ctx, t) }

// Fanout delivers each toast to every notifier in order.
type Fanout []Notifier

// Notify implements Notifier.
func (f Fanout) Notify(ctx context.Context, t Toast) {
	for _, n := range f {
		if n != nil {
			n.Notify(ctx, t)
		}
	}
}

// DefaultBufferSize caps a ToastBuffer when no size is given.
const DefaultBufferSize = 20

// ToastBuffer holds toasts for one working session until the client drains them.
// When full the oldest toast is dropped.
type ToastBuffer struct {
	mu     sync.Mutex
	toasts []Toast
	max    int
}

// NewToastBuffer creates a buffer holding at most max toasts.
func NewToastBuffer(max int) *ToastBuffer {
	if max <= 0 {
		max = DefaultBufferSize
	}
	return &ToastBuffer{max: max}
}

// Notify implements Notifier.
func (b *ToastBuffer) Notify(_ context.Context, t Toast) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.toasts) == b.max {
		b.toasts = append(b.toasts[:0:0], b.toasts[1:]...)
	}
	b.toasts = append(b.toasts, t)
}

// Drain returns and clears the buffered toasts, oldest first.
func (b *ToastBuffer) Drain() []Toast {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.toasts
	b.toasts = nil
	if out == nil {
		out = []Toast{}
	}
	return out
}
