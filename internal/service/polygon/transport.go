package polygon

import (
	"context"
	"fmt"
	"sync"
	"time"

	"TickerDeck/internal/service/feed"

	"github.com/gorilla/websocket"
)

// wsTransport adapts a gorilla websocket connection to feed.Transport.
type wsTransport struct {
	conn *websocket.Conn

	writeMu sync.Mutex
	once    sync.Once
	stop    chan struct{}
}

func (t *wsTransport) WriteJSON(v any) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return t.conn.WriteJSON(v)
}

func (t *wsTransport) ReadMessage() ([]byte, error) {
	_, b, err := t.conn.ReadMessage()
	return b, err
}

func (t *wsTransport) Close() error {
	t.once.Do(func() { close(t.stop) })
	return t.conn.Close()
}

func (t *wsTransport) pingLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			t.writeMu.Lock()
			_ = t.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			t.writeMu.Unlock()
		}
	}
}

// NewDialer returns a feed.Dialer for one vendor websocket endpoint.
func NewDialer(wsURL string, pingInterval time.Duration) feed.Dialer {
	return func(ctx context.Context) (feed.Transport, error) {
		dialer := websocket.Dialer{
			HandshakeTimeout:  10 * time.Second,
			EnableCompression: true,
		}
		conn, _, err := dialer.DialContext(ctx, wsURL, nil)
		if err != nil {
			return nil, fmt.Errorf("polygon dial: %w", err)
		}
		t := &wsTransport{conn: conn, stop: make(chan struct{})}
		if pingInterval > 0 {
			go t.pingLoop(pingInterval)
		}
		return t, nil
	}
}
