package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"TickerDeck/internal/domain/models"
	"TickerDeck/pkg/logger"
)

type fakeTransport struct {
	mu      sync.Mutex
	frames  []Frame
	inbound chan []byte
	closed  bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{inbound: make(chan []byte, 16)}
}

func (f *fakeTransport) WriteJSON(v any) error {
	fr, ok := v.(Frame)
	if !ok {
		return errors.New("unexpected frame type")
	}
	f.mu.Lock()
	f.frames = append(f.frames, fr)
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) ReadMessage() ([]byte, error) {
	b, ok := <-f.inbound
	if !ok {
		return nil, io.EOF
	}
	return b, nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.inbound)
	}
	return nil
}

func (f *fakeTransport) sent(action string) []Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Frame
	for _, fr := range f.frames {
		if fr.Action == action {
			out = append(out, fr)
		}
	}
	return out
}

func (f *fakeTransport) push(msg string) {
	f.inbound <- []byte(msg)
}

type recordingListener struct {
	mu       sync.Mutex
	ticks    []*models.Tick
	statuses []string
}

func (l *recordingListener) OnTick(t *models.Tick) {
	l.mu.Lock()
	l.ticks = append(l.ticks, t)
	l.mu.Unlock()
}

func (l *recordingListener) OnStatus(s string) {
	l.mu.Lock()
	l.statuses = append(l.statuses, s)
	l.mu.Unlock()
}

func (l *recordingListener) tickCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.ticks)
}

func (l *recordingListener) sawStatus(s string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, got := range l.statuses {
		if got == s {
			return true
		}
	}
	return false
}

type nopMetrics struct{}

func (nopMetrics) RecordMessageSent(string, string)  {}
func (nopMetrics) RecordError(string)                {}
func (nopMetrics) RecordLastPrice(string, float64)   {}
func (nopMetrics) RecordLatency(string, float64)     {}
func (nopMetrics) RecordFanout(string, int)          {}
func (nopMetrics) RecordFeedState(string, string)    {}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "console", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met in time")
}

// newTestManager wires a manager to a single fake transport with no flush
// delay so tests stay deterministic.
func newTestManager(t *testing.T, tr *fakeTransport, opts ...Option) *Manager {
	t.Helper()
	dial := func(ctx context.Context) (Transport, error) { return tr, nil }
	base := []Option{WithFlushDelay(0)}
	return NewManager("stocks", "test-key", dial, testLogger(t), nopMetrics{}, append(base, opts...)...)
}

func authOK(tr *fakeTransport) {
	tr.push(`[{"ev":"status","status":"connected"}]`)
	tr.push(`[{"ev":"status","status":"auth_success"}]`)
}

func TestSubscribeAuthThenFlush(t *testing.T) {
	tr := newFakeTransport()
	m := newTestManager(t, tr)
	l := &recordingListener{}

	m.Subscribe("aapl", l)
	waitFor(t, func() bool { return len(tr.sent("auth")) == 1 })
	if got := tr.sent("auth")[0].Params; got != "test-key" {
		t.Fatalf("auth params = %q", got)
	}
	// nothing subscribed before the auth ack
	if n := len(tr.sent("subscribe")); n != 0 {
		t.Fatalf("premature subscribe frames: %d", n)
	}

	authOK(tr)
	waitFor(t, func() bool { return len(tr.sent("subscribe")) == 1 })
	if got := tr.sent("subscribe")[0].Params; got != "AAPL" {
		t.Fatalf("subscribe params = %q", got)
	}
	if m.State() != StateReady {
		t.Fatalf("state = %v", m.State())
	}
}

func TestSubscribeIdempotent(t *testing.T) {
	tr := newFakeTransport()
	m := newTestManager(t, tr)
	l := &recordingListener{}

	m.Subscribe("BTC-USD", l)
	waitFor(t, func() bool { return len(tr.sent("auth")) == 1 })
	authOK(tr)
	waitFor(t, func() bool { return len(tr.sent("subscribe")) == 1 })

	// same listener, same ticker: no second upstream subscription
	m.Subscribe("BTC-USD", l)
	m.Subscribe("btc-usd ", l)
	time.Sleep(20 * time.Millisecond)
	if n := len(tr.sent("subscribe")); n != 1 {
		t.Fatalf("expected 1 subscribe frame, got %d", n)
	}
}

func TestSharedUnsubscribe(t *testing.T) {
	tr := newFakeTransport()
	m := newTestManager(t, tr)
	a := &recordingListener{}
	b := &recordingListener{}

	m.Subscribe("BTC-USD", a)
	waitFor(t, func() bool { return len(tr.sent("auth")) == 1 })
	authOK(tr)
	waitFor(t, func() bool { return len(tr.sent("subscribe")) == 1 })
	m.Subscribe("BTC-USD", b)

	// first unsubscribe leaves the upstream subscription active
	m.Unsubscribe("BTC-USD", a)
	time.Sleep(20 * time.Millisecond)
	if n := len(tr.sent("unsubscribe")); n != 0 {
		t.Fatalf("unexpected unsubscribe frames: %d", n)
	}

	// second one sends exactly one frame and tears the connection down
	m.Unsubscribe("BTC-USD", b)
	waitFor(t, func() bool { return len(tr.sent("unsubscribe")) == 1 })
	if m.State() != StateClosed {
		t.Fatalf("state = %v", m.State())
	}
	tr.mu.Lock()
	closed := tr.closed
	tr.mu.Unlock()
	if !closed {
		t.Fatalf("transport not closed")
	}
}

func TestFanoutExactAndWildcard(t *testing.T) {
	tr := newFakeTransport()
	m := newTestManager(t, tr)
	exact := &recordingListener{}
	other := &recordingListener{}
	wild := &recordingListener{}

	m.Subscribe("AAPL", exact)
	m.Subscribe("MSFT", other)
	m.Subscribe(Wildcard, wild)
	waitFor(t, func() bool { return len(tr.sent("auth")) == 1 })
	authOK(tr)
	waitFor(t, func() bool { return len(tr.sent("subscribe")) == 3 })

	tr.push(`[{"ev":"T","sym":"AAPL","p":187.32,"s":100,"t":1700000000000}]`)
	waitFor(t, func() bool { return exact.tickCount() == 1 && wild.tickCount() == 1 })
	if other.tickCount() != 0 {
		t.Fatalf("cross-talk: other listener got %d ticks", other.tickCount())
	}
	exact.mu.Lock()
	tick := exact.ticks[0]
	exact.mu.Unlock()
	if tick.Symbol != "AAPL" || tick.Price != 187.32 || tick.Volume != 100 {
		t.Fatalf("unexpected tick %+v", tick)
	}
}

func TestMalformedFrameDropped(t *testing.T) {
	tr := newFakeTransport()
	m := newTestManager(t, tr)
	l := &recordingListener{}

	m.Subscribe("AAPL", l)
	waitFor(t, func() bool { return len(tr.sent("auth")) == 1 })
	authOK(tr)
	waitFor(t, func() bool { return len(tr.sent("subscribe")) == 1 })

	tr.push(`{not json`)
	tr.push(`[{"ev":"T","sym":"AAPL","p":10,"s":1,"t":1700000000000}]`)
	waitFor(t, func() bool { return l.tickCount() == 1 })
	if m.State() != StateReady {
		t.Fatalf("parse failure broke the connection: %v", m.State())
	}
}

func TestReconnectBackoffSequence(t *testing.T) {
	dialErr := errors.New("refused")
	dials := 0
	var mu sync.Mutex
	var delays []time.Duration

	dial := func(ctx context.Context) (Transport, error) {
		mu.Lock()
		dials++
		mu.Unlock()
		return nil, dialErr
	}
	m := NewManager("stocks", "k", dial, testLogger(t), nopMetrics{},
		WithFlushDelay(0),
		WithBackoff(time.Second, 4*time.Second, 5),
	)
	m.after = func(d time.Duration, fn func()) *time.Timer {
		mu.Lock()
		delays = append(delays, d)
		mu.Unlock()
		fn()
		return nil
	}

	l := &recordingListener{}
	m.Subscribe("AAPL", l)
	waitFor(t, func() bool { return m.State() == StateClosed })

	mu.Lock()
	defer mu.Unlock()
	want := []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second, 4 * time.Second, 4 * time.Second}
	if fmt.Sprint(delays) != fmt.Sprint(want) {
		t.Fatalf("delays = %v, want %v", delays, want)
	}
	if dials != 6 { // initial + 5 retries
		t.Fatalf("dials = %d", dials)
	}
	if !l.sawStatus(StatusDisconnected) {
		t.Fatalf("listener never told the feed gave up")
	}
}

func TestResubscribeAfterDrop(t *testing.T) {
	var mu sync.Mutex
	transports := []*fakeTransport{newFakeTransport(), newFakeTransport()}
	dials := 0
	dial := func(ctx context.Context) (Transport, error) {
		mu.Lock()
		defer mu.Unlock()
		tr := transports[dials]
		dials++
		return tr, nil
	}
	m := NewManager("stocks", "k", dial, testLogger(t), nopMetrics{},
		WithFlushDelay(0), WithBackoff(time.Millisecond, time.Millisecond, 3))

	l := &recordingListener{}
	m.Subscribe("AAPL", l)
	waitFor(t, func() bool { return len(transports[0].sent("auth")) == 1 })
	authOK(transports[0])
	waitFor(t, func() bool { return len(transports[0].sent("subscribe")) == 1 })

	// unexpected close with a subscriber still present
	_ = transports[0].Close()
	waitFor(t, func() bool { return len(transports[1].sent("auth")) == 1 })
	authOK(transports[1])
	waitFor(t, func() bool { return len(transports[1].sent("subscribe")) == 1 })
	if got := transports[1].sent("subscribe")[0].Params; got != "AAPL" {
		t.Fatalf("resubscribe params = %q", got)
	}
	if !l.sawStatus(StatusReconnecting) {
		t.Fatalf("listener missed reconnecting status")
	}
}

func TestSilentWindowSuppressesOthers(t *testing.T) {
	tr := newFakeTransport()
	m := newTestManager(t, tr, WithSilentWindow(3*time.Second))

	now := time.Unix(1700000000, 0)
	m.now = func() time.Time { return now }

	established := &recordingListener{}
	m.Subscribe("AAPL", established)
	waitFor(t, func() bool { return len(tr.sent("auth")) == 1 })
	authOK(tr)
	waitFor(t, func() bool { return m.State() == StateReady })

	quiet := &recordingListener{}
	m.Subscribe("MSFT", quiet, Silent())
	waitFor(t, func() bool { return len(tr.sent("subscribe")) == 2 })

	established.mu.Lock()
	before := len(established.statuses)
	established.mu.Unlock()
	m.notifyStatus(StatusReconnecting)
	if !quiet.sawStatus(StatusReconnecting) {
		t.Fatalf("silent owner should still hear statuses")
	}
	established.mu.Lock()
	after := len(established.statuses)
	established.mu.Unlock()
	if after != before {
		t.Fatalf("established listener heard status during silent window")
	}

	// window elapsed: notifications reach everyone again
	now = now.Add(4 * time.Second)
	m.notifyStatus(StatusReconnecting)
	if !established.sawStatus(StatusReconnecting) {
		t.Fatalf("status still suppressed after window")
	}
}
