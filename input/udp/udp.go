package udp

import (
	"context"
	"log/slog"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/bee/component"
	"github.com/c360/bee/config"
	"github.com/c360/bee/errors"
	"github.com/c360/bee/metric"
	"github.com/c360/bee/pkg/buffer"
)

var _ component.Source = (*Input)(nil)

// pollInterval bounds how long a read blocks before ctx is checked again.
const pollInterval = 100 * time.Millisecond

// Metrics holds Prometheus metrics for the UDP source
type Metrics struct {
	packetsReceived prometheus.Counter
	bytesReceived   prometheus.Counter
	packetsDropped  prometheus.Counter
	socketErrors    prometheus.Counter
	lastActivity    prometheus.Gauge
}

func newMetrics(registry *metric.MetricsRegistry, logger *slog.Logger) *Metrics {
	if registry == nil {
		return nil
	}

	m := &Metrics{
		packetsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "udp_input",
			Name:      "packets_received_total",
			Help:      "Total UDP packets received",
		}),
		bytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "udp_input",
			Name:      "bytes_received_total",
			Help:      "Total bytes received from UDP",
		}),
		packetsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "udp_input",
			Name:      "packets_dropped_total",
			Help:      "Packets dropped because they filled the read buffer",
		}),
		socketErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "udp_input",
			Name:      "socket_errors_total",
			Help:      "Socket read errors encountered",
		}),
		lastActivity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metric.Namespace,
			Subsystem: "udp_input",
			Name:      "last_activity_timestamp",
			Help:      "Unix timestamp of last received packet",
		}),
	}

	for _, err := range []error{
		registry.RegisterCounter("udp_input", "packets_received", m.packetsReceived),
		registry.RegisterCounter("udp_input", "bytes_received", m.bytesReceived),
		registry.RegisterCounter("udp_input", "packets_dropped", m.packetsDropped),
		registry.RegisterCounter("udp_input", "socket_errors", m.socketErrors),
		registry.RegisterGauge("udp_input", "last_activity", m.lastActivity),
	} {
		if err != nil {
			logger.Warn("Failed to register metric", "error", err)
		}
	}
	return m
}

// Config holds configuration for the UDP source
type Config struct {
	Bind string
	// Port 0 binds an ephemeral port, reported by Input.Addr
	Port int
	// ReadBuffer is the requested OS socket buffer in bytes
	ReadBuffer int
	// MaxPacket is the largest datagram forwarded whole; longer ones are
	// counted as dropped
	MaxPacket int
}

// DefaultConfig returns default configuration for the UDP source
func DefaultConfig() Config {
	return Config{
		Bind:       "0.0.0.0",
		ReadBuffer: 2 * 1024 * 1024,
		MaxPacket:  65535,
	}
}

// Validate checks the configuration for errors
func (c Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return errors.Newf(errors.InvalidParam, "udp port must be between 0 and 65535, got %d", c.Port)
	}
	if c.MaxPacket < 1 || c.MaxPacket > 65535 {
		return errors.Newf(errors.InvalidParam, "udp max_packet must be between 1 and 65535, got %d", c.MaxPacket)
	}
	if c.ReadBuffer < 0 {
		return errors.Newf(errors.InvalidParam, "udp read_buffer cannot be negative, got %d", c.ReadBuffer)
	}
	if net.ParseIP(c.Bind) == nil {
		return errors.Newf(errors.InvalidParam, "udp bind must be an IP address, got %q", c.Bind)
	}
	return nil
}

// ParseConfig reads port (required), bind, read_buffer and max_packet.
func ParseConfig(r config.Resolver) (Config, error) {
	c := DefaultConfig()
	var err error

	if c.Port, err = config.Get[int](r, "port"); err != nil {
		return c, errors.Wrap(err, "udp", "ParseConfig", "read port")
	}
	if c.Bind, err = config.GetOr(r, "bind", c.Bind); err != nil {
		return c, errors.Wrap(err, "udp", "ParseConfig", "read bind")
	}
	if c.ReadBuffer, err = config.GetOr(r, "read_buffer", c.ReadBuffer); err != nil {
		return c, errors.Wrap(err, "udp", "ParseConfig", "read read_buffer")
	}
	if c.MaxPacket, err = config.GetOr(r, "max_packet", c.MaxPacket); err != nil {
		return c, errors.Wrap(err, "udp", "ParseConfig", "read max_packet")
	}
	return c, c.Validate()
}

// Input listens on one UDP socket and forwards each datagram as one raw
// payload. Only one worker can hold the port, so run it with
// source.max_thread = 1.
type Input struct {
	config  Config
	logger  *slog.Logger
	metrics *Metrics

	addr     atomic.Value // net.Addr
	received atomic.Int64
	dropped  atomic.Int64
}

// NewInput creates a UDP source. It does not bind.
func NewInput(cfg Config, deps component.Dependencies) *Input {
	logger := deps.GetLoggerWithComponent("udp-input")
	return &Input{
		config:  cfg,
		logger:  logger,
		metrics: newMetrics(deps.MetricsRegistry, logger),
	}
}

// Addr returns the bound address, or nil before Run has bound.
func (u *Input) Addr() net.Addr {
	a, _ := u.addr.Load().(net.Addr)
	return a
}

// Received returns the number of datagrams forwarded so far.
func (u *Input) Received() int64 { return u.received.Load() }

// Dropped returns the number of oversized datagrams discarded.
func (u *Input) Dropped() int64 { return u.dropped.Load() }

// Run binds the socket and forwards datagrams until ctx ends (nil) or the
// socket fails. A full pipeline channel blocks the read loop; the OS socket
// buffer absorbs the burst meanwhile.
func (u *Input) Run(ctx context.Context, out *buffer.Sender[[]byte]) error {
	conn, err := u.bind(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	// One spare byte detects datagrams longer than MaxPacket.
	buf := make([]byte, u.config.MaxPacket+1)
	for {
		if ctx.Err() != nil {
			return nil
		}
		_ = conn.SetReadDeadline(time.Now().Add(pollInterval))
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			if u.metrics != nil {
				u.metrics.socketErrors.Inc()
			}
			return errors.Wrap(err, "udp", "Run", "read datagram")
		}

		if n > u.config.MaxPacket {
			u.dropped.Add(1)
			if u.metrics != nil {
				u.metrics.packetsDropped.Inc()
			}
			continue
		}

		u.received.Add(1)
		if u.metrics != nil {
			u.metrics.packetsReceived.Inc()
			u.metrics.bytesReceived.Add(float64(n))
			u.metrics.lastActivity.Set(float64(time.Now().Unix()))
		}

		data := make([]byte, n)
		copy(data, buf[:n])
		if err := out.Send(ctx, data); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

func (u *Input) bind(ctx context.Context) (*net.UDPConn, error) {
	address := net.JoinHostPort(u.config.Bind, strconv.Itoa(u.config.Port))
	var lc net.ListenConfig
	pc, err := lc.ListenPacket(ctx, "udp", address)
	if err != nil {
		return nil, errors.Wrap(err, "udp", "Run", "listen on "+address)
	}
	conn := pc.(*net.UDPConn)

	if u.config.ReadBuffer > 0 {
		if err := conn.SetReadBuffer(u.config.ReadBuffer); err != nil {
			u.logger.Warn("Could not set UDP buffer size", "buffer_size", u.config.ReadBuffer, "error", err)
		}
	}
	u.addr.Store(conn.LocalAddr())
	u.logger.Info("Listening", "addr", conn.LocalAddr().String())
	return conn, nil
}

// CreateInput is the factory function for the UDP source
func CreateInput(cfg *config.Config, deps component.Dependencies) (any, error) {
	parsed, err := ParseConfig(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "udp-input-factory", "create", "config parsing")
	}
	return NewInput(parsed, deps), nil
}

// Register registers the UDP source with the registry
func Register(registry *component.Registry) error {
	return registry.Register(component.Registration{
		Name:        "udp",
		Kind:        component.KindSource,
		Description: "Forwards UDP datagrams, one payload per datagram",
		Version:     "1.0.0",
		Factory:     CreateInput,
	})
}
