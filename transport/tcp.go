package transport

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/securelink/limits"
)

// tcpWriteTimeout bounds a single frame write on the wire.
const tcpWriteTimeout = 5 * time.Second

// TCPTransport carries frames over a single TCP connection using a 4-byte
// big-endian length prefix per frame. It satisfies the Transport interface.
type TCPTransport struct {
	conn net.Conn

	mu      sync.RWMutex
	handler Handler

	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

// DialTCP connects to a remote listener and returns the ready transport.
func DialTCP(addr string) (*TCPTransport, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("tcp dial failed: %w", err)
	}
	return NewTCPTransport(conn), nil
}

// NewTCPTransport wraps an established connection (dialed or accepted).
// The read loop starts immediately; register a handler before the peer
// begins sending or early frames are dropped.
func NewTCPTransport(conn net.Conn) *TCPTransport {
	t := &TCPTransport{
		conn: conn,
		done: make(chan struct{}),
	}
	go t.readLoop()
	return t
}

// ListenTCP accepts connections on addr and invokes onConn with a ready
// transport for each. The returned listener stops accepting when closed.
func ListenTCP(addr string, onConn func(*TCPTransport)) (net.Listener, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("tcp listen failed: %w", err)
	}

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			onConn(NewTCPTransport(conn))
		}
	}()

	return listener, nil
}

// LocalAddr returns the local address of the underlying connection.
func (t *TCPTransport) LocalAddr() net.Addr {
	return t.conn.LocalAddr()
}

// Send writes one length-prefixed frame.
func (t *TCPTransport) Send(frame []byte) error {
	select {
	case <-t.done:
		return ErrTransportClosed
	default:
	}

	if err := limits.ValidateFrameSize(frame); err != nil {
		return err
	}

	prefix := make([]byte, 4)
	binary.BigEndian.PutUint32(prefix, uint32(len(frame)))

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if err := t.conn.SetWriteDeadline(time.Now().Add(tcpWriteTimeout)); err != nil {
		return fmt.Errorf("tcp write deadline failed: %w", err)
	}
	if _, err := t.conn.Write(prefix); err != nil {
		t.teardown()
		return fmt.Errorf("tcp write failed: %w", err)
	}
	if _, err := t.conn.Write(frame); err != nil {
		t.teardown()
		return fmt.Errorf("tcp write failed: %w", err)
	}
	return nil
}

// RegisterHandler registers the inbound frame callback.
func (t *TCPTransport) RegisterHandler(handler Handler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = handler
}

// Close shuts down the transport and the underlying connection. Idempotent.
func (t *TCPTransport) Close() error {
	t.teardown()
	return nil
}

func (t *TCPTransport) teardown() {
	t.closeOnce.Do(func() {
		close(t.done)
		if err := t.conn.Close(); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "teardown",
				"error":    err.Error(),
			}).Debug("TCP connection close failed")
		}
	})
}

func (t *TCPTransport) readLoop() {
	defer t.teardown()

	prefix := make([]byte, 4)
	for {
		if _, err := io.ReadFull(t.conn, prefix); err != nil {
			return
		}

		size := binary.BigEndian.Uint32(prefix)
		if size > limits.MaxFrameLen {
			logrus.WithFields(logrus.Fields{
				"function": "readLoop",
				"size":     size,
			}).Warn("Dropping oversized inbound frame, closing transport")
			return
		}

		frame := make([]byte, size)
		if _, err := io.ReadFull(t.conn, frame); err != nil {
			return
		}

		t.mu.RLock()
		handler := t.handler
		t.mu.RUnlock()

		if handler != nil {
			handler(frame)
		}
	}
}
