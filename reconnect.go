package securelink

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/opd-ai/securelink/transport"
)

// ErrReconnectExhausted indicates every allowed connection attempt failed.
var ErrReconnectExhausted = errors.New("reconnect attempts exhausted")

// DialFunc produces a fresh transport for each connection attempt.
type DialFunc func(ctx context.Context) (transport.Transport, error)

// ConnectionCallback is invoked with every successfully established
// connection, before it is exposed through Current. Register per-connection
// callbacks here — except OnDisconnected, which the reconnector owns; use
// Reconnector.OnDisconnected instead.
type ConnectionCallback func(conn *Conn)

// Reconnector establishes connections through a DialFunc and, when
// Options.AutoReconnect is set, replaces a dropped connection with a fresh
// one (new ephemeral keys, new handshake — a closed Conn stays closed, so
// forward secrecy is preserved across reconnects). Attempts are spaced by
// exponential backoff and capped by Options.MaxRetries.
type Reconnector struct {
	dial DialFunc
	opts *Options

	mu      sync.Mutex
	conn    *Conn
	closed  bool
	backoff *Backoff

	onConnection   ConnectionCallback
	onDisconnected DisconnectedCallback
}

// NewReconnector creates a reconnector. Nothing is dialed until Start.
func NewReconnector(dial DialFunc, opts *Options) *Reconnector {
	return &Reconnector{
		dial:    dial,
		opts:    opts.normalized(),
		backoff: NewBackoff(),
	}
}

// OnConnection sets the callback invoked for every established connection.
func (r *Reconnector) OnConnection(cb ConnectionCallback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onConnection = cb
}

// OnDisconnected sets the callback invoked whenever the managed
// connection drops, before any reconnection attempt.
func (r *Reconnector) OnDisconnected(cb DisconnectedCallback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onDisconnected = cb
}

// Start establishes the first connection, retrying up to MaxRetries with
// backoff. On success the connection is available through Current.
func (r *Reconnector) Start(ctx context.Context) error {
	return r.establish(ctx)
}

// Current returns the managed connection, or nil when disconnected.
func (r *Reconnector) Current() *Conn {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conn
}

// Close stops reconnection and closes the managed connection, if any.
func (r *Reconnector) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	conn := r.conn
	r.conn = nil
	r.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

// establish dials and handshakes until success or the retry budget runs
// out. Each attempt uses a fresh transport and a fresh Conn.
func (r *Reconnector) establish(ctx context.Context) error {
	var lastErr error

	for attempt := 0; attempt < r.opts.MaxRetries; attempt++ {
		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			return fmt.Errorf("%w: reconnector closed", ErrConnectionClosed)
		}
		r.mu.Unlock()

		if attempt > 0 {
			select {
			case <-time.After(r.backoff.Next()):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		conn, err := r.attempt(ctx)
		if err != nil {
			lastErr = err
			continue
		}

		r.backoff.Reset()
		r.install(conn)
		return nil
	}

	return fmt.Errorf("%w after %d attempts: %v", ErrReconnectExhausted, r.opts.MaxRetries, lastErr)
}

func (r *Reconnector) attempt(ctx context.Context) (*Conn, error) {
	tr, err := r.dial(ctx)
	if err != nil {
		return nil, err
	}

	conn, err := New(tr, r.opts)
	if err != nil {
		_ = tr.Close()
		return nil, err
	}
	if err := conn.Connect(ctx); err != nil {
		return nil, err
	}
	return conn, nil
}

// install publishes the connection and hooks its teardown into the
// auto-reconnect loop.
func (r *Reconnector) install(conn *Conn) {
	r.mu.Lock()
	r.conn = conn
	cb := r.onConnection
	r.mu.Unlock()

	if cb != nil {
		cb(conn)
	}

	conn.OnDisconnected(func() {
		r.handleDisconnect(conn)
	})

	// The connection may have dropped before the hook above was in
	// place; recover it here. handleDisconnect dedupes on r.conn, so
	// this cannot double-fire.
	if conn.State() == StateClosed {
		r.handleDisconnect(conn)
	}
}

func (r *Reconnector) handleDisconnect(dropped *Conn) {
	r.mu.Lock()
	if r.conn != dropped {
		r.mu.Unlock()
		return
	}
	r.conn = nil
	closed := r.closed
	cb := r.onDisconnected
	r.mu.Unlock()

	if cb != nil {
		cb()
	}

	if closed || !r.opts.AutoReconnect {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(),
			time.Duration(r.opts.MaxRetries+1)*r.opts.Timeout)
		defer cancel()
		_ = r.establish(ctx)
	}()
}
