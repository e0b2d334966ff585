package feed

import (
	"context"
	"strings"
	"sync"
	"time"

	"TickerDeck/internal/domain/models"
	drepo "TickerDeck/internal/domain/repository"
	"TickerDeck/pkg/logger"

	"github.com/valyala/fastjson"
)

// Manager owns one upstream connection per feed and shares it across
// arbitrarily many listeners. All registry mutations are serialized behind
// a mutex; fan-out snapshots the listener set and delivers outside the lock.
type Manager struct {
	name    string
	apiKey  string
	dial    Dialer
	log     *logger.Logger
	metrics drepo.Metrics

	normalize func(string) string
	channel   func(string) string

	backoffBase  time.Duration
	backoffCap   time.Duration
	maxAttempts  int
	flushDelay   time.Duration
	silentWindow time.Duration

	// indirections for tests
	now   func() time.Time
	after func(time.Duration, func()) *time.Timer

	mu         sync.Mutex
	state      ConnState
	conn       Transport
	gen        int
	listeners  map[string]map[Listener]struct{}
	active     map[string]struct{}
	pending    map[string]struct{}
	attempts   int
	quietUntil time.Time
	quietOwner Listener

	parsers fastjson.ParserPool
}

// NewManager creates a feed manager. Nothing is dialed until the first
// subscriber arrives.
func NewManager(name, apiKey string, dial Dialer, log *logger.Logger, metrics drepo.Metrics, opts ...Option) *Manager {
	m := &Manager{
		name:    name,
		apiKey:  apiKey,
		dial:    dial,
		log:     log,
		metrics: metrics,

		normalize: func(s string) string { return strings.ToUpper(strings.TrimSpace(s)) },
		channel:   func(s string) string { return s },

		backoffBase:  time.Second,
		backoffCap:   30 * time.Second,
		maxAttempts:  8,
		flushDelay:   100 * time.Millisecond,
		silentWindow: 3 * time.Second,

		now:   time.Now,
		after: time.AfterFunc,

		state:     StateIdle,
		listeners: make(map[string]map[Listener]struct{}),
		active:    make(map[string]struct{}),
		pending:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current connection state.
func (m *Manager) State() ConnState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe registers a listener for ticker (or the wildcard). The first
// subscriber triggers connection setup; a symbol already active upstream is
// acknowledged immediately.
func (m *Manager) Subscribe(ticker string, l Listener, opts ...SubscribeOption) {
	if l == nil {
		return
	}
	canon := m.normalize(ticker)
	if canon == "" {
		return
	}
	var so subscribeOptions
	for _, opt := range opts {
		opt(&so)
	}

	var (
		ack  string
		conn Transport
		ch   string
	)

	m.mu.Lock()
	if so.silent && m.silentWindow > 0 {
		m.quietUntil = m.now().Add(m.silentWindow)
		m.quietOwner = l
	}
	set, ok := m.listeners[canon]
	if !ok {
		set = make(map[Listener]struct{})
		m.listeners[canon] = set
	}
	set[l] = struct{}{}

	switch {
	case m.hasSubscriptionLocked(canon):
		ack = StatusSubscribed
	case m.state == StateReady:
		m.active[canon] = struct{}{}
		conn = m.conn
		ch = m.channel(canon)
		ack = StatusSubscribed
	default:
		m.pending[canon] = struct{}{}
		if m.state == StateIdle || m.state == StateClosed {
			m.state = StateConnecting
			m.attempts = 0
			m.gen++
			gen := m.gen
			go m.connect(gen)
		}
		ack = m.state.String()
	}
	m.mu.Unlock()

	if conn != nil {
		if err := conn.WriteJSON(Frame{Action: "subscribe", Params: ch}); err != nil {
			m.log.Warn("subscribe frame write failed",
				logger.String("feed", m.name), logger.String("symbol", canon), logger.Error(err))
			m.metrics.RecordError("feed_subscribe_write")
		}
	}
	l.OnStatus(ack)
}

// Unsubscribe removes the listener. When it was the last listener for the
// symbol an unsubscribe frame is sent best-effort; when the registry becomes
// empty the connection is torn down and backoff counters reset.
func (m *Manager) Unsubscribe(ticker string, l Listener) {
	canon := m.normalize(ticker)
	if canon == "" {
		return
	}

	var (
		conn  Transport
		ch    string
		empty bool
	)

	m.mu.Lock()
	set := m.listeners[canon]
	if set != nil {
		delete(set, l)
		if len(set) == 0 {
			delete(m.listeners, canon)
			delete(m.pending, canon)
			if _, ok := m.active[canon]; ok {
				delete(m.active, canon)
				if m.state == StateReady && m.conn != nil {
					conn = m.conn
					ch = m.channel(canon)
				}
			}
		}
	}
	empty = len(m.listeners) == 0
	m.mu.Unlock()

	if conn != nil {
		// Best effort: local tracking is already gone either way.
		if err := conn.WriteJSON(Frame{Action: "unsubscribe", Params: ch}); err != nil {
			m.log.Warn("unsubscribe frame write failed",
				logger.String("feed", m.name), logger.String("symbol", canon), logger.Error(err))
		}
	}
	if empty {
		m.Close()
	}
}

// Reconnect restarts a connection that gave up after exhausting its backoff
// attempts. No-op unless the manager is Closed with listeners remaining.
func (m *Manager) Reconnect() {
	m.mu.Lock()
	if m.state != StateClosed || len(m.listeners) == 0 {
		m.mu.Unlock()
		return
	}
	m.attempts = 0
	m.state = StateConnecting
	m.gen++
	gen := m.gen
	m.mu.Unlock()
	go m.connect(gen)
}

// Close tears the connection down and clears all subscription state.
func (m *Manager) Close() {
	m.mu.Lock()
	m.gen++
	m.state = StateClosed
	conn := m.conn
	m.conn = nil
	m.active = make(map[string]struct{})
	m.pending = make(map[string]struct{})
	m.attempts = 0
	m.quietUntil = time.Time{}
	m.quietOwner = nil
	m.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	m.metrics.RecordFeedState(m.name, StateClosed.String())
}

func (m *Manager) hasSubscriptionLocked(canon string) bool {
	if _, ok := m.active[canon]; ok {
		return true
	}
	_, ok := m.pending[canon]
	return ok
}

func (m *Manager) connect(gen int) {
	m.metrics.RecordFeedState(m.name, StateConnecting.String())
	m.notifyStatus(StatusConnecting)

	conn, err := m.dial(context.Background())

	m.mu.Lock()
	if m.gen != gen || m.state == StateClosed {
		m.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	if err != nil {
		m.mu.Unlock()
		m.log.Warn("feed dial failed", logger.String("feed", m.name), logger.Error(err))
		m.metrics.RecordError("feed_dial")
		m.scheduleReconnect(gen)
		return
	}
	m.conn = conn
	m.state = StateAuthenticating
	m.mu.Unlock()

	m.metrics.RecordFeedState(m.name, StateAuthenticating.String())
	m.notifyStatus(StatusAuthenticating)

	if err := conn.WriteJSON(Frame{Action: "auth", Params: m.apiKey}); err != nil {
		m.log.Warn("auth frame write failed", logger.String("feed", m.name), logger.Error(err))
		m.handleDisconnect(gen, err)
		return
	}

	go m.readLoop(gen, conn)
}

func (m *Manager) readLoop(gen int, conn Transport) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			m.handleDisconnect(gen, err)
			return
		}
		m.handleMessage(gen, data)
	}
}

// handleMessage parses one inbound frame: an array of events tagged by "ev".
// Parse failures are logged and the frame is dropped; they never break the
// connection.
func (m *Manager) handleMessage(gen int, data []byte) {
	p := m.parsers.Get()
	defer m.parsers.Put(p)

	v, err := p.ParseBytes(data)
	if err != nil {
		m.log.Warn("feed frame parse failed", logger.String("feed", m.name), logger.Error(err))
		m.metrics.RecordError("feed_parse")
		return
	}

	events, err := v.Array()
	if err != nil {
		// Some backends send bare objects for control messages.
		events = []*fastjson.Value{v}
	}
	for _, ev := range events {
		switch string(ev.GetStringBytes("ev")) {
		case "status":
			m.handleStatusEvent(gen, string(ev.GetStringBytes("status")))
		case "T", "XT":
			m.handleTradeEvent(ev)
		default:
			// other event families are not ours to interpret
		}
	}
}

func (m *Manager) handleStatusEvent(gen int, status string) {
	switch status {
	case "auth_success":
		m.onReady(gen)
	case "auth_failed":
		m.log.Error("feed auth rejected", logger.String("feed", m.name))
		m.metrics.RecordError("feed_auth")
		m.notifyStatus(StatusAuthFailed)
		m.Close()
	default:
		// "connected" and friends need no transition
	}
}

func (m *Manager) handleTradeEvent(ev *fastjson.Value) {
	sym := string(ev.GetStringBytes("sym"))
	if sym == "" {
		sym = string(ev.GetStringBytes("pair"))
	}
	if sym == "" {
		return
	}
	vol := ev.GetFloat64("s")
	if vol == 0 {
		vol = ev.GetFloat64("v")
	}
	m.fanout(&models.Tick{
		Symbol:    sym,
		Price:     ev.GetFloat64("p"),
		Volume:    vol,
		Timestamp: ev.GetInt64("t"),
	})
}

// onReady flips to Ready and flushes queued subscriptions after a short
// delay so the transport drains the handshake first.
func (m *Manager) onReady(gen int) {
	m.mu.Lock()
	if m.gen != gen || m.state == StateClosed {
		m.mu.Unlock()
		return
	}
	m.state = StateReady
	m.attempts = 0
	m.mu.Unlock()

	m.metrics.RecordFeedState(m.name, StateReady.String())
	if m.flushDelay <= 0 {
		m.flushPending(gen)
		return
	}
	m.after(m.flushDelay, func() { m.flushPending(gen) })
}

func (m *Manager) flushPending(gen int) {
	m.mu.Lock()
	if m.gen != gen || m.state != StateReady || m.conn == nil {
		m.mu.Unlock()
		return
	}
	conn := m.conn
	channels := make([]string, 0, len(m.pending))
	for s := range m.pending {
		m.active[s] = struct{}{}
		channels = append(channels, m.channel(s))
	}
	m.pending = make(map[string]struct{})
	m.mu.Unlock()

	for _, ch := range channels {
		if err := conn.WriteJSON(Frame{Action: "subscribe", Params: ch}); err != nil {
			m.log.Warn("flush subscribe failed", logger.String("feed", m.name), logger.Error(err))
			m.metrics.RecordError("feed_subscribe_write")
			return
		}
	}
	if len(channels) > 0 {
		m.notifyStatus(StatusSubscribed)
	}
}

// handleDisconnect reacts to an unexpected transport close or error while
// subscribers remain: all active subscriptions move back to pending and a
// reconnect is scheduled with exponential backoff.
func (m *Manager) handleDisconnect(gen int, err error) {
	m.mu.Lock()
	if m.gen != gen || m.state == StateClosed {
		m.mu.Unlock()
		return
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	for s := range m.active {
		m.pending[s] = struct{}{}
	}
	m.active = make(map[string]struct{})
	if len(m.listeners) == 0 {
		m.state = StateClosed
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	m.log.Warn("feed disconnected", logger.String("feed", m.name), logger.Error(err))
	m.metrics.RecordError("feed_disconnect")
	m.scheduleReconnect(gen)
}

func (m *Manager) scheduleReconnect(gen int) {
	m.mu.Lock()
	if m.gen != gen || m.state == StateClosed {
		m.mu.Unlock()
		return
	}
	m.attempts++
	if m.attempts > m.maxAttempts {
		m.state = StateClosed
		m.mu.Unlock()
		m.log.Error("feed gave up reconnecting",
			logger.String("feed", m.name), logger.Int("attempts", m.maxAttempts))
		m.metrics.RecordFeedState(m.name, StateClosed.String())
		m.notifyStatus(StatusDisconnected)
		return
	}
	m.state = StateReconnecting
	delay := m.backoffDelay(m.attempts)
	m.mu.Unlock()

	m.metrics.RecordFeedState(m.name, StateReconnecting.String())
	m.notifyStatus(StatusReconnecting)
	m.after(delay, func() {
		m.mu.Lock()
		if m.gen != gen || m.state != StateReconnecting {
			m.mu.Unlock()
			return
		}
		m.state = StateConnecting
		m.mu.Unlock()
		m.connect(gen)
	})
}

// backoffDelay doubles from the base each attempt, capped.
func (m *Manager) backoffDelay(attempt int) time.Duration {
	d := m.backoffBase
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= m.backoffCap {
			return m.backoffCap
		}
	}
	if d > m.backoffCap {
		d = m.backoffCap
	}
	return d
}

// fanout delivers a tick to every listener of its exact symbol plus every
// wildcard listener, in transport arrival order.
func (m *Manager) fanout(t *models.Tick) {
	m.mu.Lock()
	targets := make([]Listener, 0, len(m.listeners[t.Symbol])+len(m.listeners[Wildcard]))
	for l := range m.listeners[t.Symbol] {
		targets = append(targets, l)
	}
	for l := range m.listeners[Wildcard] {
		targets = append(targets, l)
	}
	m.mu.Unlock()

	for _, l := range targets {
		l.OnTick(t)
	}
	m.metrics.RecordFanout(t.Symbol, len(targets))
	m.metrics.RecordLastPrice(t.Symbol, t.Price)
}

// notifyStatus delivers a status change to all listeners, honoring an active
// silent window: while it lasts only the listener that requested it hears
// status changes.
func (m *Manager) notifyStatus(status string) {
	m.mu.Lock()
	quietActive := !m.quietUntil.IsZero() && m.now().Before(m.quietUntil)
	owner := m.quietOwner
	seen := make(map[Listener]struct{})
	targets := make([]Listener, 0)
	for _, set := range m.listeners {
		for l := range set {
			if _, dup := seen[l]; dup {
				continue
			}
			seen[l] = struct{}{}
			if quietActive && l != owner {
				continue
			}
			targets = append(targets, l)
		}
	}
	m.mu.Unlock()

	for _, l := range targets {
		l.OnStatus(status)
	}
}
