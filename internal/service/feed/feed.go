package feed

import (
	"context"
	"time"

	"TickerDeck/internal/domain/models"
)

// Listener receives ticks and status changes for its subscriptions.
// OnTick is called in transport arrival order; implementations that cannot
// keep up must buffer or drop on their side.
type Listener interface {
	OnTick(t *models.Tick)
	OnStatus(status string)
}

// Transport is one upstream message connection. Implemented by the vendor
// WebSocket client and by fakes in tests.
type Transport interface {
	WriteJSON(v any) error
	ReadMessage() ([]byte, error)
	Close() error
}

// Dialer opens a new Transport.
type Dialer func(ctx context.Context) (Transport, error)

// Frame is the outbound wire format shared by auth, subscribe and
// unsubscribe messages.
type Frame struct {
	Action string `json:"action"`
	Params string `json:"params,omitempty"`
}

// Option configures a Manager.
type Option func(*Manager)

// WithBackoff sets the reconnect backoff base, cap, and max attempt count.
func WithBackoff(base, cap time.Duration, maxAttempts int) Option {
	return func(m *Manager) {
		if base > 0 {
			m.backoffBase = base
		}
		if cap > 0 {
			m.backoffCap = cap
		}
		if maxAttempts > 0 {
			m.maxAttempts = maxAttempts
		}
	}
}

// WithFlushDelay sets the pause between auth success and flushing queued
// subscriptions, so the transport drains the handshake first.
func WithFlushDelay(d time.Duration) Option {
	return func(m *Manager) { m.flushDelay = d }
}

// WithSilentWindow sets how long a silent subscriber suppresses status
// notifications to other listeners.
func WithSilentWindow(d time.Duration) Option {
	return func(m *Manager) { m.silentWindow = d }
}

// WithSymbolFormat sets the canonical symbol normalizer and the channel
// string builder used in subscribe frames.
func WithSymbolFormat(normalize, channel func(string) string) Option {
	return func(m *Manager) {
		if normalize != nil {
			m.normalize = normalize
		}
		if channel != nil {
			m.channel = channel
		}
	}
}

// SubscribeOption configures a single Subscribe call.
type SubscribeOption func(*subscribeOptions)

type subscribeOptions struct {
	silent bool
}

// Silent suppresses status notifications to all other listeners for the
// configured window. A UX accommodation: one widget's resubscribe churn
// should not flash states on unrelated widgets sharing the transport.
func Silent() SubscribeOption {
	return func(o *subscribeOptions) { o.silent = true }
}
