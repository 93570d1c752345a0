// Package nats provides a sink that publishes events to a NATS subject.
package nats

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/c360/bee/component"
	"github.com/c360/bee/config"
	"github.com/c360/bee/errors"
	"github.com/c360/bee/event"
	"github.com/c360/bee/metric"
	"github.com/c360/bee/pkg/tlsutil"
)

var (
	_ component.Sink          = (*Output)(nil)
	_ component.Initializable = (*Output)(nil)
)

// Publisher is the part of a NATS connection the sink uses.
type Publisher interface {
	Publish(subject string, data []byte) error
	FlushTimeout(timeout time.Duration) error
	Drain() error
}

// Dialer opens a Publisher. The default dials with nats.Connect.
type Dialer func(url string, opts ...nats.Option) (Publisher, error)

func connect(url string, opts ...nats.Option) (Publisher, error) {
	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Config holds configuration for the NATS sink
type Config struct {
	URL           string
	Subject       string
	SubjectField  string // appended to Subject as a token when present in the event
	Name          string
	Token         string
	Username      string
	Password      string
	MaxReconnects int
	ReconnectWait time.Duration
	Timeout       time.Duration
	FlushTimeout  time.Duration
	TLS           tlsutil.ClientConfig
}

// DefaultConfig returns default configuration for the NATS sink
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		Subject:       "bee.events",
		Name:          "bee",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
		FlushTimeout:  5 * time.Second,
	}
}

// ParseConfig reads url, subject, subject_field, name, token, username,
// password, max_reconnects, reconnect_wait, timeout, flush_timeout and the
// optional tls table.
func ParseConfig(cfg *config.Config) (Config, error) {
	c := DefaultConfig()
	strs := []struct {
		key string
		dst *string
	}{
		{"url", &c.URL},
		{"subject", &c.Subject},
		{"subject_field", &c.SubjectField},
		{"name", &c.Name},
		{"token", &c.Token},
		{"username", &c.Username},
		{"password", &c.Password},
	}
	for _, s := range strs {
		v, err := config.GetOr(cfg, s.key, *s.dst)
		if err != nil {
			return c, err
		}
		*s.dst = v
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"reconnect_wait", &c.ReconnectWait},
		{"timeout", &c.Timeout},
		{"flush_timeout", &c.FlushTimeout},
	}
	for _, d := range durations {
		v, err := config.GetDurationOr(cfg, d.key, *d.dst)
		if err != nil {
			return c, err
		}
		*d.dst = v
	}

	var err error
	if c.MaxReconnects, err = config.GetOr(cfg, "max_reconnects", c.MaxReconnects); err != nil {
		return c, err
	}
	if c.Subject == "" || strings.ContainsAny(c.Subject, " \t*>") {
		return c, errors.Newf(errors.InvalidParam, "nats subject %q must be a literal subject", c.Subject)
	}
	if c.TLS, err = tlsutil.ParseClientConfig(cfg); err != nil {
		return c, err
	}
	return c, nil
}

// Output publishes each event as JSON. The connection is shared by all
// sink workers; nats.Conn is safe for concurrent use.
type Output struct {
	config  Config
	dial    Dialer
	logger  *slog.Logger
	metrics *metric.Metrics

	mu   sync.Mutex
	conn Publisher

	published atomic.Int64
}

// NewOutput creates a NATS sink. The connection is opened by Initialize.
func NewOutput(cfg Config, deps component.Dependencies) *Output {
	return &Output{
		config:  cfg,
		dial:    connect,
		logger:  deps.GetLoggerWithComponent("nats_output"),
		metrics: deps.MetricsRegistry.CoreMetrics(),
	}
}

// WithDialer replaces the connection factory.
func (o *Output) WithDialer(d Dialer) *Output {
	o.dial = d
	return o
}

func (o *Output) options() []nats.Option {
	opts := []nats.Option{
		nats.Name(o.config.Name),
		nats.MaxReconnects(o.config.MaxReconnects),
		nats.ReconnectWait(o.config.ReconnectWait),
		nats.Timeout(o.config.Timeout),
		nats.DisconnectErrHandler(o.handleDisconnect),
		nats.ReconnectHandler(o.handleReconnect),
		nats.ClosedHandler(o.handleClosed),
	}
	if o.config.Username != "" && o.config.Password != "" {
		opts = append(opts, nats.UserInfo(o.config.Username, o.config.Password))
	}
	if o.config.Token != "" {
		opts = append(opts, nats.Token(o.config.Token))
	}
	return opts
}

// Initialize connects to the server.
func (o *Output) Initialize(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.Convert(err)
	}
	opts := o.options()
	tlsConfig, err := tlsutil.LoadClientTLSConfig(o.config.TLS)
	if err != nil {
		return errors.Wrap(err, "Output", "Initialize", "tls setup")
	}
	if tlsConfig != nil {
		opts = append(opts, nats.Secure(tlsConfig))
	}
	conn, err := o.dial(o.config.URL, opts...)
	if err != nil {
		o.metrics.RecordNATSStatus(false)
		return errors.WrapAs(errors.IOConnRefused, err, "Output", "Initialize", "connect to "+o.config.URL)
	}

	o.mu.Lock()
	o.conn = conn
	o.mu.Unlock()
	o.metrics.RecordNATSStatus(true)
	o.logger.Info("Connected to NATS", "url", o.config.URL, "subject", o.config.Subject)
	return nil
}

// Subject returns the subject e is published on.
func (o *Output) Subject(e event.Event) string {
	if o.config.SubjectField == "" {
		return o.config.Subject
	}
	v, ok := e.Get(o.config.SubjectField)
	if !ok {
		return o.config.Subject
	}
	token := strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t':
			return '_'
		}
		return r
	}, v.String())
	if token == "" {
		return o.config.Subject
	}
	return o.config.Subject + "." + token
}

// Write implements component.Sink.
func (o *Output) Write(_ context.Context, e event.Event) error {
	o.mu.Lock()
	conn := o.conn
	o.mu.Unlock()
	if conn == nil {
		return errors.New(errors.IONotConnected, "nats output is not connected")
	}

	data, err := json.Marshal(e)
	if err != nil {
		return errors.WrapAs(errors.IOInvalidData, err, "Output", "Write", "encode event")
	}
	subject := o.Subject(e)
	if err := conn.Publish(subject, data); err != nil {
		return errors.WrapAs(errors.IOBrokenPipe, err, "Output", "Write", "publish to "+subject)
	}
	o.published.Add(1)
	return nil
}

// Published returns the number of events handed to the connection.
func (o *Output) Published() int64 {
	return o.published.Load()
}

// Close flushes pending publishes and drains the connection.
func (o *Output) Close() error {
	o.mu.Lock()
	conn := o.conn
	o.conn = nil
	o.mu.Unlock()
	if conn == nil {
		return nil
	}

	if err := conn.FlushTimeout(o.config.FlushTimeout); err != nil {
		o.logger.Warn("NATS flush failed", "error", err)
	}
	if err := conn.Drain(); err != nil {
		return errors.Wrap(err, "Output", "Close", "drain connection")
	}
	o.logger.Info("NATS output closed", "published", o.published.Load())
	return nil
}

func (o *Output) handleDisconnect(_ *nats.Conn, err error) {
	o.metrics.RecordNATSStatus(false)
	if err != nil {
		o.logger.Warn("NATS disconnected", "error", err)
	}
}

func (o *Output) handleReconnect(_ *nats.Conn) {
	o.metrics.RecordNATSStatus(true)
	o.metrics.RecordNATSReconnect()
	o.logger.Info("NATS reconnected")
}

func (o *Output) handleClosed(_ *nats.Conn) {
	o.metrics.RecordNATSStatus(false)
}

// CreateOutput is the factory function for the NATS sink
func CreateOutput(cfg *config.Config, deps component.Dependencies) (any, error) {
	parsed, err := ParseConfig(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "Output", "CreateOutput", "parse config")
	}
	return NewOutput(parsed, deps), nil
}

// Register registers the NATS sink with the registry
func Register(registry *component.Registry) error {
	return registry.Register(component.Registration{
		Name:        "nats",
		Kind:        component.KindSink,
		Description: "Publishes events as JSON to a NATS subject",
		Version:     "1.0.0",
		Factory:     CreateOutput,
	})
}
