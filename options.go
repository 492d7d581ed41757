package securelink

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/opd-ai/securelink/metrics"
)

// DefaultTimeout is the default per-operation timeout: Connect handshake,
// Send ack wait, and Receive wait all use it unless overridden.
const DefaultTimeout = 30 * time.Second

// DefaultMaxRetries is the default reconnection attempt cap.
const DefaultMaxRetries = 5

// Options configures a connection.
type Options struct {
	// Timeout bounds the handshake, each Send's ack wait, and each
	// Receive's wait.
	Timeout time.Duration

	// IdleTimeout bounds peer silence on an established connection; when
	// it elapses with no accepted inbound frame the connection
	// force-closes with ErrProtocolTimeout. Zero means twice Timeout.
	IdleTimeout time.Duration

	// MaxRetries caps reconnection attempts made by a Reconnector.
	MaxRetries int

	// AutoReconnect makes a Reconnector re-establish a fresh connection
	// (new ephemeral keys, new handshake) after a disconnect.
	AutoReconnect bool

	// Logger receives structured connection logs. Defaults to the
	// logrus standard logger.
	Logger *logrus.Logger

	// Observer receives channel metrics. Nil disables metrics.
	Observer *metrics.ChannelObserver
}

// DefaultOptions returns options with production defaults.
func DefaultOptions() *Options {
	return &Options{
		Timeout:    DefaultTimeout,
		MaxRetries: DefaultMaxRetries,
	}
}

// normalized returns a copy with zero values filled in.
func (o *Options) normalized() *Options {
	out := &Options{}
	if o != nil {
		*out = *o
	}
	if out.Timeout <= 0 {
		out.Timeout = DefaultTimeout
	}
	if out.IdleTimeout <= 0 {
		out.IdleTimeout = 2 * out.Timeout
	}
	if out.MaxRetries <= 0 {
		out.MaxRetries = DefaultMaxRetries
	}
	if out.Logger == nil {
		out.Logger = logrus.StandardLogger()
	}
	return out
}

// optionsFile is the YAML schema for LoadOptions. Durations are
// milliseconds on disk.
type optionsFile struct {
	TimeoutMs     int64 `yaml:"timeout_ms"`
	IdleTimeoutMs int64 `yaml:"idle_timeout_ms"`
	MaxRetries    int   `yaml:"max_retries"`
	AutoReconnect bool  `yaml:"auto_reconnect"`
}

// LoadOptions reads connection options from a YAML file. Omitted fields
// keep their defaults.
func LoadOptions(path string) (*Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read options file: %w", err)
	}

	var file optionsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse options file: %w", err)
	}

	opts := DefaultOptions()
	if file.TimeoutMs > 0 {
		opts.Timeout = time.Duration(file.TimeoutMs) * time.Millisecond
	}
	if file.IdleTimeoutMs > 0 {
		opts.IdleTimeout = time.Duration(file.IdleTimeoutMs) * time.Millisecond
	}
	if file.MaxRetries > 0 {
		opts.MaxRetries = file.MaxRetries
	}
	opts.AutoReconnect = file.AutoReconnect

	return opts, nil
}
