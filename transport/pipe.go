package transport

import (
	"sync"
)

// pipeQueueDepth bounds undelivered frames per direction; senders block
// once the peer falls this far behind.
const pipeQueueDepth = 64

// PipeTransport is one end of an in-memory bidirectional transport pair.
// It delivers frames to the peer end in order, each exactly once, through
// a dedicated delivery goroutine so sends never run the peer's handler on
// the caller's stack.
type PipeTransport struct {
	mu      sync.RWMutex
	handler Handler

	peer *PipeTransport

	inbox     chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// Pipe creates a connected pair of in-memory transports. Frames sent on
// one end arrive at the other. Closing either end fails subsequent sends
// on both.
func Pipe() (*PipeTransport, *PipeTransport) {
	a := newPipeEnd()
	b := newPipeEnd()
	a.peer = b
	b.peer = a

	go a.deliverLoop()
	go b.deliverLoop()

	return a, b
}

func newPipeEnd() *PipeTransport {
	return &PipeTransport{
		inbox: make(chan []byte, pipeQueueDepth),
		done:  make(chan struct{}),
	}
}

// Send queues one frame for delivery to the peer end.
func (p *PipeTransport) Send(frame []byte) error {
	// Frames are copied so callers may reuse their buffers.
	cp := make([]byte, len(frame))
	copy(cp, frame)

	select {
	case <-p.done:
		return ErrTransportClosed
	case <-p.peer.done:
		return ErrTransportClosed
	default:
	}

	select {
	case p.peer.inbox <- cp:
		return nil
	case <-p.done:
		return ErrTransportClosed
	case <-p.peer.done:
		return ErrTransportClosed
	}
}

// RegisterHandler registers the inbound frame callback for this end.
func (p *PipeTransport) RegisterHandler(handler Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handler = handler
}

// Close shuts down this end of the pipe. Idempotent.
func (p *PipeTransport) Close() error {
	p.closeOnce.Do(func() {
		close(p.done)
	})
	return nil
}

func (p *PipeTransport) deliverLoop() {
	for {
		select {
		case <-p.done:
			return
		case frame := <-p.inbox:
			p.mu.RLock()
			handler := p.handler
			p.mu.RUnlock()

			if handler != nil {
				handler(frame)
			}
		}
	}
}
