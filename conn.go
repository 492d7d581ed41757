package securelink

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/securelink/crypto"
	"github.com/opd-ai/securelink/transport"
	"github.com/opd-ai/securelink/wire"
)

// MessageCallback is invoked for every inbound DATA payload.
type MessageCallback func(data []byte)

// ConnectedCallback is invoked once when the handshake completes.
type ConnectedCallback func()

// DisconnectedCallback is invoked exactly once when the connection closes.
type DisconnectedCallback func()

// ErrorCallback is invoked once per inbound-processing failure, before the
// connection force-closes.
type ErrorCallback func(err error)

// Close reasons recorded in metrics.
const (
	closeReasonLocal  = "local"
	closeReasonRemote = "remote"
	closeReasonError  = "error"
	closeReasonIdle   = "idle"
)

// Conn is a secure channel endpoint.
//
// A Conn is driven from two sides: local calls (Connect, Send, Receive,
// Close) and inbound frames delivered by the transport. All mutable state
// lives behind one mutex; callbacks run outside it. A single Conn is not
// meant for concurrent local mutation, but distinct Conns share nothing.
type Conn struct {
	id        string
	transport transport.Transport
	opts      *Options
	log       *logrus.Entry

	mu            sync.Mutex
	state         State
	keyPair       *crypto.KeyPair
	sessionKeys   *crypto.SessionKeys
	handshakeKeys *crypto.SessionKeys
	localSeq      uint64
	remoteSeq     uint64
	responseSeq   uint64
	pending       map[uint64]*PendingSend
	inbox         [][]byte
	receivers     []chan receiveResult
	idleTimer     *time.Timer

	connectCh       chan error
	connectSignaled bool

	disconnectOnce sync.Once

	messageCallback      MessageCallback
	connectedCallback    ConnectedCallback
	disconnectedCallback DisconnectedCallback
	errorCallback        ErrorCallback
}

// New creates a connection over the given transport and registers for its
// inbound frames. The connection starts in StateDisconnected; call Connect
// to initiate a handshake, or leave it passive to answer one.
func New(t transport.Transport, opts *Options) (*Conn, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil transport", ErrInvalidState)
	}
	opts = opts.normalized()

	c := &Conn{
		id:            uuid.NewString(),
		transport:     t,
		opts:          opts,
		state:         StateDisconnected,
		handshakeKeys: crypto.HandshakeKeys(),
		pending:       make(map[uint64]*PendingSend),
		connectCh:     make(chan error, 1),
	}
	c.log = opts.Logger.WithFields(logrus.Fields{
		"package": "securelink",
		"conn_id": c.id[:8],
	})

	t.RegisterHandler(c.handleInbound)

	return c, nil
}

// State returns the current connection state.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// OnMessage sets the callback for inbound DATA payloads.
func (c *Conn) OnMessage(cb MessageCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messageCallback = cb
}

// OnConnected sets the callback fired when the handshake completes.
func (c *Conn) OnConnected(cb ConnectedCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connectedCallback = cb
}

// OnDisconnected sets the callback fired exactly once on close.
func (c *Conn) OnDisconnected(cb DisconnectedCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnectedCallback = cb
}

// OnError sets the callback for inbound-processing failures.
func (c *Conn) OnError(cb ErrorCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errorCallback = cb
}

// Connect initiates the handshake and blocks until it completes, the
// configured timeout elapses, or ctx is cancelled. On failure the
// connection transitions to StateClosed and the returned error wraps
// ErrHandshakeFailure.
func (c *Conn) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateDisconnected {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: connect in %s", ErrInvalidState, state)
	}

	if c.keyPair == nil {
		keyPair, err := crypto.GenerateKeyPair()
		if err != nil {
			c.mu.Unlock()
			c.closeWithReason(closeReasonError)
			return fmt.Errorf("%w: %v", ErrHandshakeFailure, err)
		}
		c.keyPair = keyPair
	}

	c.state = StateHandshakeInit
	seq := c.nextSeqLocked()
	publicKey := c.keyPair.Public
	c.mu.Unlock()

	c.log.WithField("state", StateHandshakeInit.String()).Debug("Initiating handshake")

	payload, err := wire.EncodePayload(&wire.HandshakePayload{PublicKey: publicKey[:]})
	if err != nil {
		c.closeWithReason(closeReasonError)
		return fmt.Errorf("%w: %v", ErrHandshakeFailure, err)
	}
	if err := c.sendFrame(wire.MessageHandshakeInit, seq, payload, c.handshakeKeys); err != nil {
		c.closeWithReason(closeReasonError)
		return fmt.Errorf("%w: %v", ErrHandshakeFailure, err)
	}

	select {
	case err := <-c.connectCh:
		if err != nil {
			c.opts.Observer.Handshake("failed")
			c.closeWithReason(closeReasonError)
			return fmt.Errorf("%w: %v", ErrHandshakeFailure, err)
		}
		return nil
	case <-time.After(c.opts.Timeout):
		c.opts.Observer.Handshake("failed")
		c.closeWithReason(closeReasonError)
		return fmt.Errorf("%w: no response within %s", ErrHandshakeFailure, c.opts.Timeout)
	case <-ctx.Done():
		c.opts.Observer.Handshake("failed")
		c.closeWithReason(closeReasonError)
		return fmt.Errorf("%w: %v", ErrHandshakeFailure, ctx.Err())
	}
}

// Send transmits data and blocks until the peer acknowledges it or the
// configured timeout elapses.
func (c *Conn) Send(data []byte) error {
	pending, err := c.SendAsync(data)
	if err != nil {
		return err
	}
	return pending.Wait()
}

// SendAsync transmits data and returns a handle that resolves when the
// matching ACK arrives, or fails with ErrAckTimeout when the timer fires
// first. The outcomes are mutually exclusive.
func (c *Conn) SendAsync(data []byte) (*PendingSend, error) {
	payload, err := wire.EncodePayload(&wire.DataPayload{Body: data})
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.state != StateConnected {
		err := c.stateErrLocked("send")
		c.mu.Unlock()
		return nil, err
	}

	seq := c.nextSeqLocked()
	keys := c.sessionKeys

	pending := &PendingSend{
		seq:  seq,
		done: make(chan error, 1),
	}
	pending.timer = time.AfterFunc(c.opts.Timeout, func() { c.expirePending(seq) })
	c.pending[seq] = pending
	c.mu.Unlock()

	if err := c.sendFrame(wire.MessageData, seq, payload, keys); err != nil {
		c.mu.Lock()
		delete(c.pending, seq)
		c.mu.Unlock()
		pending.timer.Stop()
		return nil, err
	}

	return pending, nil
}

// Receive blocks until the next inbound DATA payload is available, the
// configured timeout elapses (ErrReceiveTimeout), or ctx is cancelled.
// Waiting calls are served FIFO against queued inbound data.
func (c *Conn) Receive(ctx context.Context) ([]byte, error) {
	c.mu.Lock()
	if c.state != StateConnected {
		err := c.stateErrLocked("receive")
		c.mu.Unlock()
		return nil, err
	}

	if len(c.inbox) > 0 {
		data := c.inbox[0]
		c.inbox = c.inbox[1:]
		c.mu.Unlock()
		return data, nil
	}

	ch := make(chan receiveResult, 1)
	c.receivers = append(c.receivers, ch)
	c.mu.Unlock()

	timer := time.NewTimer(c.opts.Timeout)
	defer timer.Stop()

	select {
	case result := <-ch:
		return result.data, result.err
	case <-timer.C:
		c.opts.Observer.Timeout("receive")
		return c.abandonReceive(ch, ErrReceiveTimeout)
	case <-ctx.Done():
		return c.abandonReceive(ch, ctx.Err())
	}
}

// abandonReceive withdraws a waiting receiver. If a DATA frame won the
// race and was already delivered to ch, that result is returned instead
// of failure so no message is lost.
func (c *Conn) abandonReceive(ch chan receiveResult, failure error) ([]byte, error) {
	c.mu.Lock()
	for i, waiting := range c.receivers {
		if waiting == ch {
			c.receivers = append(c.receivers[:i], c.receivers[i+1:]...)
			c.mu.Unlock()
			return nil, failure
		}
	}
	c.mu.Unlock()

	result := <-ch
	return result.data, result.err
}

// Close tears the connection down: a CLOSE frame is sent best-effort, the
// transport is closed regardless, every pending send and queued receive
// fails with ErrConnectionClosed, and the disconnected callback fires
// exactly once. Close is idempotent and never fails outward.
func (c *Conn) Close() error {
	c.closeWithReason(closeReasonLocal)
	return nil
}

// handleInbound processes one frame in transport-delivery order. Any
// processing error is reported once through the error callback and then
// force-closes the connection; there is no resynchronization after an
// integrity, format, or sequence failure.
func (c *Conn) handleInbound(raw []byte) {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	keys := c.sessionKeys
	if keys == nil {
		keys = c.handshakeKeys
	}
	c.mu.Unlock()

	header, payload, err := wire.ParseFrame(raw, keys)
	if err != nil {
		if errors.Is(err, crypto.ErrAuthenticationFailed) {
			c.opts.Observer.AuthFailure()
		}
		c.inboundFailure(err)
		return
	}

	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	if header.Sequence <= c.remoteSeq {
		last := c.remoteSeq
		c.mu.Unlock()
		c.opts.Observer.SequenceRejection()
		c.inboundFailure(fmt.Errorf("%w: got %d, last accepted %d", ErrSequence, header.Sequence, last))
		return
	}
	c.remoteSeq = header.Sequence
	c.resetIdleTimerLocked()
	c.mu.Unlock()

	c.opts.Observer.FrameReceived(header.Type.String(), len(raw))
	c.log.WithFields(logrus.Fields{
		"type": header.Type.String(),
		"seq":  header.Sequence,
	}).Trace("Inbound frame accepted")

	switch header.Type {
	case wire.MessageHandshakeInit:
		err = c.handleHandshakeInit(header, payload)
	case wire.MessageHandshakeResponse:
		err = c.handleHandshakeResponse(header, payload)
	case wire.MessageData:
		err = c.handleData(header, payload)
	case wire.MessageAck:
		err = c.handleAck(header, payload)
	case wire.MessageClose:
		c.log.WithField("seq", header.Sequence).Debug("Peer closed the connection")
		c.closeWithReason(closeReasonRemote)
		return
	default:
		err = fmt.Errorf("%w: 0x%02x", ErrUnknownMessageType, uint8(header.Type))
	}

	if err != nil {
		c.inboundFailure(err)
	}
}

// handleHandshakeInit answers an initiator: send our ephemeral public key,
// derive session keys, and wait for the confirming ACK.
func (c *Conn) handleHandshakeInit(header *wire.Header, payload []byte) error {
	_, peerPublic, err := wire.DecodeHandshakePayload(payload)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.state != StateDisconnected {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: HANDSHAKE_INIT in %s", ErrInvalidState, state)
	}

	if c.keyPair == nil {
		keyPair, err := crypto.GenerateKeyPair()
		if err != nil {
			c.mu.Unlock()
			return err
		}
		c.keyPair = keyPair
	}

	sessionKeys, err := c.deriveSessionKeysLocked(peerPublic)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.sessionKeys = sessionKeys
	c.state = StateHandshakeResponse
	seq := c.nextSeqLocked()
	c.responseSeq = seq
	publicKey := c.keyPair.Public
	c.mu.Unlock()

	c.log.WithField("state", StateHandshakeResponse.String()).Debug("Answering handshake")

	responsePayload, err := wire.EncodePayload(&wire.HandshakePayload{PublicKey: publicKey[:]})
	if err != nil {
		return err
	}
	return c.sendFrame(wire.MessageHandshakeResponse, seq, responsePayload, c.handshakeKeys)
}

// handleHandshakeResponse completes the initiator side: derive session
// keys and confirm with an ACK built under them, proving key agreement.
func (c *Conn) handleHandshakeResponse(header *wire.Header, payload []byte) error {
	_, peerPublic, err := wire.DecodeHandshakePayload(payload)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.state != StateHandshakeInit {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: HANDSHAKE_RESPONSE in %s", ErrInvalidState, state)
	}

	sessionKeys, err := c.deriveSessionKeysLocked(peerPublic)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.sessionKeys = sessionKeys
	seq := c.nextSeqLocked()
	c.mu.Unlock()

	ackPayload, err := wire.EncodePayload(&wire.AckPayload{Acked: header.Sequence})
	if err != nil {
		return err
	}
	if err := c.sendFrame(wire.MessageAck, seq, ackPayload, sessionKeys); err != nil {
		return err
	}

	c.becomeConnected()
	return nil
}

// handleData delivers an application payload: message callback, hand-off
// to a waiting Receive (or the FIFO queue when none waits), then an ACK
// referencing the inbound sequence number.
func (c *Conn) handleData(header *wire.Header, payload []byte) error {
	var doc wire.DataPayload
	if err := wire.DecodePayload(payload, &doc); err != nil {
		return err
	}

	c.mu.Lock()
	if c.state != StateConnected {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: DATA in %s", ErrInvalidState, state)
	}
	seq := c.nextSeqLocked()
	keys := c.sessionKeys
	messageCb := c.messageCallback

	var waiter chan receiveResult
	if len(c.receivers) > 0 {
		waiter = c.receivers[0]
		c.receivers = c.receivers[1:]
	} else {
		c.inbox = append(c.inbox, doc.Body)
	}
	c.mu.Unlock()

	if messageCb != nil {
		messageCb(doc.Body)
	}

	// The payload is authenticated and accepted; hand it to the waiter
	// before attempting the ACK. Once dequeued the waiter can only be
	// resolved here, so a failing ACK send must not strand it.
	if waiter != nil {
		waiter <- receiveResult{data: doc.Body}
	}

	ackPayload, err := wire.EncodePayload(&wire.AckPayload{Acked: header.Sequence})
	if err != nil {
		return err
	}
	return c.sendFrame(wire.MessageAck, seq, ackPayload, keys)
}

// handleAck resolves the pending send the ACK references. During the
// responder's handshake it instead confirms key agreement and completes
// the connection. Late or duplicate ACKs are ignored silently.
func (c *Conn) handleAck(header *wire.Header, payload []byte) error {
	var ack wire.AckPayload
	if err := wire.DecodePayload(payload, &ack); err != nil {
		return err
	}

	c.mu.Lock()
	if c.state == StateHandshakeResponse {
		responseSeq := c.responseSeq
		c.mu.Unlock()
		// The confirming ACK must reference our HANDSHAKE_RESPONSE.
		if ack.Acked != responseSeq {
			return fmt.Errorf("%w: ACK references %d, response was %d",
				ErrHandshakeFailure, ack.Acked, responseSeq)
		}
		c.becomeConnected()
		return nil
	}

	pending, ok := c.pending[ack.Acked]
	if ok {
		delete(c.pending, ack.Acked)
	}
	c.mu.Unlock()

	if !ok {
		c.log.WithField("acked", ack.Acked).Trace("Ignoring ACK with no pending send")
		return nil
	}

	pending.resolve(nil)
	return nil
}

// becomeConnected finishes the handshake on either side: state change,
// connect signal, idle timer, connected callback.
func (c *Conn) becomeConnected() {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	c.state = StateConnected
	c.signalConnectLocked(nil)
	c.armIdleTimerLocked()
	connectedCb := c.connectedCallback
	c.mu.Unlock()

	c.opts.Observer.Handshake("ok")
	c.log.WithField("state", StateConnected.String()).Info("Secure channel established")

	if connectedCb != nil {
		connectedCb()
	}
}

// inboundFailure reports one inbound-processing error and force-closes
// unless the connection is already closed.
func (c *Conn) inboundFailure(err error) {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	errorCb := c.errorCallback
	c.signalConnectLocked(err)
	c.mu.Unlock()

	c.log.WithField("error", err.Error()).Warn("Inbound frame rejected, closing connection")

	if errorCb != nil {
		errorCb(err)
	}
	c.closeWithReason(closeReasonError)
}

// onIdleTimeout fires when the peer has been silent too long.
func (c *Conn) onIdleTimeout() {
	c.mu.Lock()
	if c.state != StateConnected {
		c.mu.Unlock()
		return
	}
	errorCb := c.errorCallback
	c.mu.Unlock()

	c.opts.Observer.Timeout("idle")
	err := fmt.Errorf("%w: no frames for %s", ErrProtocolTimeout, c.opts.IdleTimeout)
	c.log.WithField("error", err.Error()).Warn("Idle timeout, closing connection")

	if errorCb != nil {
		errorCb(err)
	}
	c.closeWithReason(closeReasonIdle)
}

// closeWithReason is the single teardown path. Idempotent.
func (c *Conn) closeWithReason(reason string) {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	prevState := c.state
	c.state = StateClosed

	keys := c.sessionKeys
	seq := c.nextSeqLocked()

	pending := c.pending
	c.pending = make(map[uint64]*PendingSend)
	receivers := c.receivers
	c.receivers = nil

	if c.idleTimer != nil {
		c.idleTimer.Stop()
		c.idleTimer = nil
	}
	c.signalConnectLocked(ErrConnectionClosed)
	disconnectedCb := c.disconnectedCallback
	c.mu.Unlock()

	// Best-effort CLOSE frame on voluntary teardown of an established
	// channel; failures are swallowed and never delay the transport
	// teardown below.
	if keys != nil && prevState == StateConnected &&
		(reason == closeReasonLocal || reason == closeReasonIdle) {
		if payload, err := wire.EncodePayload(&wire.ClosePayload{Reason: reason}); err == nil {
			if frame, err := wire.BuildFrame(wire.MessageClose, seq, payload, keys); err == nil {
				if err := c.transport.Send(frame); err == nil {
					c.opts.Observer.FrameSent(wire.MessageClose.String(), len(frame))
				}
			}
		}
	}

	_ = c.transport.Close()

	for _, p := range pending {
		p.resolve(fmt.Errorf("%w: send abandoned", ErrConnectionClosed))
	}
	for _, ch := range receivers {
		ch <- receiveResult{err: fmt.Errorf("%w: receive abandoned", ErrConnectionClosed)}
	}

	keys.Wipe()
	c.mu.Lock()
	crypto.WipeKeyPair(c.keyPair)
	c.mu.Unlock()

	c.opts.Observer.Closed(reason)
	c.log.WithFields(logrus.Fields{
		"reason": reason,
		"from":   prevState.String(),
	}).Info("Connection closed")

	c.disconnectOnce.Do(func() {
		if disconnectedCb != nil {
			disconnectedCb()
		}
	})
}

// expirePending fails one pending send with ErrAckTimeout. The map lookup
// under the lock decides the race against an arriving ACK, making the two
// outcomes mutually exclusive.
func (c *Conn) expirePending(seq uint64) {
	c.mu.Lock()
	pending, ok := c.pending[seq]
	if ok {
		delete(c.pending, seq)
	}
	c.mu.Unlock()

	if !ok {
		return
	}

	c.opts.Observer.Timeout("ack")
	c.log.WithField("seq", seq).Warn("Send not acknowledged before timeout")
	pending.resolve(fmt.Errorf("%w: seq %d", ErrAckTimeout, seq))
}

// sendFrame builds and transmits one frame.
func (c *Conn) sendFrame(msgType wire.MessageType, seq uint64, payload []byte, keys *crypto.SessionKeys) error {
	frame, err := wire.BuildFrame(msgType, seq, payload, keys)
	if err != nil {
		return err
	}
	if err := c.transport.Send(frame); err != nil {
		return err
	}
	c.opts.Observer.FrameSent(msgType.String(), len(frame))
	return nil
}

// deriveSessionKeysLocked runs the key agreement against a peer public
// key, wiping the intermediate shared secret.
func (c *Conn) deriveSessionKeysLocked(peerPublic [32]byte) (*crypto.SessionKeys, error) {
	sharedSecret, err := crypto.DeriveSharedSecret(c.keyPair.Private, peerPublic)
	if err != nil {
		return nil, err
	}
	keys, err := crypto.DeriveSessionKeys(sharedSecret)
	crypto.ZeroBytes(sharedSecret[:])
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// nextSeqLocked allocates the next outgoing sequence number.
func (c *Conn) nextSeqLocked() uint64 {
	c.localSeq++
	return c.localSeq
}

// armIdleTimerLocked starts the inactivity timer.
func (c *Conn) armIdleTimerLocked() {
	if c.idleTimer != nil {
		c.idleTimer.Stop()
	}
	c.idleTimer = time.AfterFunc(c.opts.IdleTimeout, c.onIdleTimeout)
}

// resetIdleTimerLocked pushes the inactivity deadline out after every
// accepted inbound frame.
func (c *Conn) resetIdleTimerLocked() {
	if c.idleTimer != nil {
		c.idleTimer.Reset(c.opts.IdleTimeout)
	}
}

// signalConnectLocked delivers the handshake outcome to a waiting Connect
// at most once.
func (c *Conn) signalConnectLocked(err error) {
	if c.connectSignaled {
		return
	}
	c.connectSignaled = true
	c.connectCh <- err
}

// stateErrLocked builds the caller-facing error for an operation attempted
// in the wrong state.
func (c *Conn) stateErrLocked(op string) error {
	if c.state == StateClosed {
		return fmt.Errorf("%w: %s after close", ErrConnectionClosed, op)
	}
	return fmt.Errorf("%w: %s in %s", ErrInvalidState, op, c.state)
}
