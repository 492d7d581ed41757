package transport

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/securelink/limits"
)

// WSTransport carries frames as binary WebSocket messages, one message per
// frame. It satisfies the Transport interface.
type WSTransport struct {
	conn *websocket.Conn

	mu      sync.RWMutex
	handler Handler

	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

// DialWS connects to a WebSocket endpoint (ws:// or wss:// URL) and
// returns the ready transport.
func DialWS(url string, header http.Header) (*WSTransport, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return NewWSTransport(conn), nil
}

// NewWSTransport wraps an established WebSocket connection (client or
// server side). The read loop starts immediately.
func NewWSTransport(conn *websocket.Conn) *WSTransport {
	conn.SetReadLimit(limits.MaxFrameLen)

	t := &WSTransport{
		conn: conn,
		done: make(chan struct{}),
	}
	go t.readLoop()
	return t
}

// Upgrader is the websocket upgrader used by server-side endpoints.
var Upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// UpgradeWS upgrades an HTTP request to a WebSocket transport. Intended
// for use inside an http.Handler on the accepting side.
func UpgradeWS(w http.ResponseWriter, r *http.Request) (*WSTransport, error) {
	conn, err := Upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket upgrade failed: %w", err)
	}
	return NewWSTransport(conn), nil
}

// Send writes one frame as a single binary message.
func (t *WSTransport) Send(frame []byte) error {
	select {
	case <-t.done:
		return ErrTransportClosed
	default:
	}

	if err := limits.ValidateFrameSize(frame); err != nil {
		return err
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if err := t.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		t.teardown()
		return fmt.Errorf("websocket write failed: %w", err)
	}
	return nil
}

// RegisterHandler registers the inbound frame callback.
func (t *WSTransport) RegisterHandler(handler Handler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = handler
}

// Close shuts down the transport and the underlying connection. Idempotent.
func (t *WSTransport) Close() error {
	t.teardown()
	return nil
}

func (t *WSTransport) teardown() {
	t.closeOnce.Do(func() {
		close(t.done)
		if err := t.conn.Close(); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "teardown",
				"error":    err.Error(),
			}).Debug("WebSocket close failed")
		}
	})
}

func (t *WSTransport) readLoop() {
	defer t.teardown()

	for {
		msgType, frame, err := t.conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.BinaryMessage {
			continue
		}

		t.mu.RLock()
		handler := t.handler
		t.mu.RUnlock()

		if handler != nil {
			handler(frame)
		}
	}
}
