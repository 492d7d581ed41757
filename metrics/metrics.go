// Package metrics exports securelink channel metrics to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry returns a fresh Prometheus registry.
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// Handler returns a Prometheus HTTP handler bound to the registry.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// ChannelObserver exports per-connection channel metrics.
type ChannelObserver struct {
	framesSent     *prometheus.CounterVec
	framesReceived *prometheus.CounterVec
	bytesSent      prometheus.Counter
	bytesReceived  prometheus.Counter
	handshakes     *prometheus.CounterVec
	authFailures   prometheus.Counter
	seqRejections  prometheus.Counter
	timeouts       *prometheus.CounterVec
	closes         *prometheus.CounterVec
}

// NewChannelObserver registers channel metrics on the registry.
func NewChannelObserver(reg *prometheus.Registry) *ChannelObserver {
	o := &ChannelObserver{
		framesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "securelink_frames_sent_total",
			Help: "Frames sent by message type.",
		}, []string{"type"}),
		framesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "securelink_frames_received_total",
			Help: "Frames accepted by message type.",
		}, []string{"type"}),
		bytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "securelink_bytes_sent_total",
			Help: "Total frame bytes sent.",
		}),
		bytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "securelink_bytes_received_total",
			Help: "Total frame bytes received.",
		}),
		handshakes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "securelink_handshakes_total",
			Help: "Handshake outcomes.",
		}, []string{"result"}),
		authFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "securelink_auth_failures_total",
			Help: "Frames rejected for HMAC or AEAD tag mismatch.",
		}),
		seqRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "securelink_sequence_rejections_total",
			Help: "Frames rejected for replayed or reordered sequence numbers.",
		}),
		timeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "securelink_timeouts_total",
			Help: "Timer expirations by kind (ack, receive, idle).",
		}, []string{"kind"}),
		closes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "securelink_closes_total",
			Help: "Connection closes by reason.",
		}, []string{"reason"}),
	}
	reg.MustRegister(
		o.framesSent,
		o.framesReceived,
		o.bytesSent,
		o.bytesReceived,
		o.handshakes,
		o.authFailures,
		o.seqRejections,
		o.timeouts,
		o.closes,
	)
	return o
}

// FrameSent records one outbound frame of the given type and size.
// All observer methods are nil-safe so connections without metrics pay
// only a nil check.
func (o *ChannelObserver) FrameSent(msgType string, bytes int) {
	if o == nil {
		return
	}
	o.framesSent.WithLabelValues(msgType).Inc()
	o.bytesSent.Add(float64(bytes))
}

// FrameReceived records one accepted inbound frame.
func (o *ChannelObserver) FrameReceived(msgType string, bytes int) {
	if o == nil {
		return
	}
	o.framesReceived.WithLabelValues(msgType).Inc()
	o.bytesReceived.Add(float64(bytes))
}

// Handshake records a handshake outcome ("ok" or "failed").
func (o *ChannelObserver) Handshake(result string) {
	if o == nil {
		return
	}
	o.handshakes.WithLabelValues(result).Inc()
}

// AuthFailure records a frame rejected for failed authentication.
func (o *ChannelObserver) AuthFailure() {
	if o == nil {
		return
	}
	o.authFailures.Inc()
}

// SequenceRejection records a replayed or reordered frame.
func (o *ChannelObserver) SequenceRejection() {
	if o == nil {
		return
	}
	o.seqRejections.Inc()
}

// Timeout records a timer expiry of the given kind.
func (o *ChannelObserver) Timeout(kind string) {
	if o == nil {
		return
	}
	o.timeouts.WithLabelValues(kind).Inc()
}

// Closed records a connection close with its reason.
func (o *ChannelObserver) Closed(reason string) {
	if o == nil {
		return
	}
	o.closes.WithLabelValues(reason).Inc()
}
