package securelink

import (
	"time"
)

// PendingSend tracks one outstanding DATA frame awaiting acknowledgement.
//
// A pending send resolves exactly once: with nil when the matching ACK
// arrives, with ErrAckTimeout when the timer fires first, or with
// ErrConnectionClosed when the connection closes while it is outstanding.
// The outcomes are mutually exclusive; whichever path removes the entry
// from the connection's pending map delivers the result.
type PendingSend struct {
	seq   uint64
	done  chan error
	timer *time.Timer
}

// Seq returns the sequence number assigned to the sent frame.
func (p *PendingSend) Seq() uint64 {
	return p.seq
}

// Done returns a channel that yields the final outcome once.
func (p *PendingSend) Done() <-chan error {
	return p.done
}

// Wait blocks until the send is acknowledged or fails.
func (p *PendingSend) Wait() error {
	return <-p.done
}

// resolve delivers the outcome. Callers must guarantee single delivery by
// removing the entry from the pending map first; done is buffered so
// resolution never blocks the dispatch path.
func (p *PendingSend) resolve(err error) {
	if p.timer != nil {
		p.timer.Stop()
	}
	p.done <- err
}

// receiveResult is delivered to a waiting Receive call.
type receiveResult struct {
	data []byte
	err  error
}
