package websocket

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/bee/component"
	"github.com/c360/bee/errors"
	"github.com/c360/bee/metric"
	"github.com/c360/bee/pkg/buffer"
)

var _ component.Source = (*Input)(nil)

// Metrics holds Prometheus metrics for the WebSocket source
type Metrics struct {
	messagesReceived  prometheus.Counter
	bytesReceived     prometheus.Counter
	connectionsActive prometheus.Gauge
	connectionsTotal  prometheus.Counter
	errorsTotal       *prometheus.CounterVec
}

// newMetrics creates and registers source metrics. Registration failures
// leave the metric unexported but usable.
func newMetrics(registry *metric.MetricsRegistry, logger *slog.Logger) *Metrics {
	if registry == nil {
		return nil
	}

	m := &Metrics{
		messagesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "websocket_input",
			Name:      "messages_received_total",
			Help:      "Total frames received",
		}),
		bytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "websocket_input",
			Name:      "bytes_received_total",
			Help:      "Total payload bytes received",
		}),
		connectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metric.Namespace,
			Subsystem: "websocket_input",
			Name:      "connections_active",
			Help:      "1 while connected to the endpoint",
		}),
		connectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "websocket_input",
			Name:      "connections_total",
			Help:      "Total successful dials",
		}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "websocket_input",
			Name:      "errors_total",
			Help:      "Total errors by type",
		}, []string{"type"}),
	}

	for _, err := range []error{
		registry.RegisterCounter("websocket_input", "messages_received", m.messagesReceived),
		registry.RegisterCounter("websocket_input", "bytes_received", m.bytesReceived),
		registry.RegisterGauge("websocket_input", "connections_active", m.connectionsActive),
		registry.RegisterCounter("websocket_input", "connections_total", m.connectionsTotal),
		registry.RegisterCounterVec("websocket_input", "errors_total", m.errorsTotal),
	} {
		if err != nil {
			logger.Warn("Failed to register metric", "error", err)
		}
	}
	return m
}

// Input dials a WebSocket endpoint and forwards every data frame as one raw
// payload. Each Run call owns its own connection, so one Input may serve
// several source workers.
type Input struct {
	config  Config
	dialer  *websocket.Dialer
	logger  *slog.Logger
	metrics *Metrics

	received atomic.Int64
	lastRead atomic.Value // time.Time
}

// NewInput creates a WebSocket source. It does not dial.
func NewInput(cfg Config, deps component.Dependencies) *Input {
	logger := deps.GetLoggerWithComponent("websocket-input")
	return &Input{
		config: cfg,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
		logger:  logger,
		metrics: newMetrics(deps.MetricsRegistry, logger),
	}
}

// Received returns the number of frames forwarded so far.
func (i *Input) Received() int64 { return i.received.Load() }

// LastActivity returns when the last frame arrived, or the zero time.
func (i *Input) LastActivity() time.Time {
	t, _ := i.lastRead.Load().(time.Time)
	return t
}

// Run dials, sends the subscription request and forwards frames until the
// peer closes normally (nil), ctx ends (nil) or the connection fails
// (an I/O-family error the driver may retry).
func (i *Input) Run(ctx context.Context, out *buffer.Sender[[]byte]) error {
	conn, err := i.dial(ctx)
	if err != nil {
		i.trackError("connect_error")
		return err
	}
	defer conn.Close()

	if i.metrics != nil {
		i.metrics.connectionsTotal.Inc()
		i.metrics.connectionsActive.Set(1)
		defer i.metrics.connectionsActive.Set(0)
	}
	i.logger.Info("Connected", "uri", i.config.URI)

	// ReadMessage does not take a context; closing the connection is what
	// unblocks it.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	})
	defer stop()

	if i.config.Subscribe != "" {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(i.config.Subscribe)); err != nil {
			i.trackError("subscribe_error")
			return errors.WrapAs(errors.IOBrokenPipe, err, "websocket", "Run", "send subscription")
		}
	}

	conn.SetReadLimit(i.config.ReadLimit)
	return i.readLoop(ctx, conn, out)
}

func (i *Input) readLoop(ctx context.Context, conn *websocket.Conn, out *buffer.Sender[[]byte]) error {
	for {
		if i.config.ReadTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(i.config.ReadTimeout))
		}
		kind, message, err := conn.ReadMessage()
		if err != nil {
			return i.readError(ctx, err)
		}
		if kind != websocket.TextMessage && kind != websocket.BinaryMessage {
			continue
		}

		i.lastRead.Store(time.Now())
		i.received.Add(1)
		if i.metrics != nil {
			i.metrics.messagesReceived.Inc()
			i.metrics.bytesReceived.Add(float64(len(message)))
		}

		if err := out.Send(ctx, message); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

func (i *Input) dial(ctx context.Context) (*websocket.Conn, error) {
	headers := http.Header{}
	if i.config.BearerTokenEnv != "" {
		if token := os.Getenv(i.config.BearerTokenEnv); token != "" {
			headers.Set("Authorization", "Bearer "+token)
		}
	}

	conn, resp, err := i.dialer.DialContext(ctx, i.config.URI, headers)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err == nil {
		return conn, nil
	}
	if ctx.Err() != nil {
		return nil, errors.WrapAs(errors.IOInterrupted, err, "websocket", "Run", "dial "+i.config.URI)
	}
	if resp != nil {
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return nil, errors.Newf(errors.InvalidAuth, "websocket handshake rejected with %s", resp.Status)
		}
	}
	if errors.IsTransient(err) {
		return nil, errors.Wrap(err, "websocket", "Run", "dial "+i.config.URI)
	}
	return nil, errors.WrapAs(errors.IOConnRefused, err, "websocket", "Run", "dial "+i.config.URI)
}

// readError classifies the error that ended the read loop.
func (i *Input) readError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return nil
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		i.logger.Info("Endpoint closed the stream", "uri", i.config.URI)
		return nil
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		i.trackError("read_timeout")
		return errors.WrapAs(errors.IOTimedOut, err, "websocket", "Run", "read frame")
	}
	if errors.Is(err, websocket.ErrReadLimit) {
		i.trackError("read_limit")
		return errors.WrapAs(errors.IOInvalidData, err, "websocket", "Run", "read frame")
	}
	i.trackError("read_error")
	return errors.WrapAs(errors.IOConnReset, err, "websocket", "Run", "read frame")
}

func (i *Input) trackError(errorType string) {
	if i.metrics != nil {
		i.metrics.errorsTotal.WithLabelValues(errorType).Inc()
	}
}
