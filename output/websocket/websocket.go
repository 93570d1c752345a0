package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/bee/component"
	"github.com/c360/bee/config"
	"github.com/c360/bee/errors"
	"github.com/c360/bee/event"
	"github.com/c360/bee/metric"
)

var (
	_ component.Sink          = (*Output)(nil)
	_ component.Initializable = (*Output)(nil)
	_ io.Closer               = (*Output)(nil)
)

// Config holds configuration for the WebSocket sink
type Config struct {
	Bind string
	// Port 0 binds an ephemeral port, reported by Output.Addr
	Port int
	Path string
	// WriteTimeout bounds one frame write to one client; slower clients
	// are disconnected
	WriteTimeout time.Duration
	// PingInterval keeps idle connections alive; zero disables pings
	PingInterval time.Duration
}

// DefaultConfig returns default configuration for the WebSocket sink
func DefaultConfig() Config {
	return Config{
		Bind:         "0.0.0.0",
		Port:         8081,
		Path:         "/ws",
		WriteTimeout: 5 * time.Second,
		PingInterval: 30 * time.Second,
	}
}

// ParseConfig reads bind, port, path, write_timeout and ping_interval.
func ParseConfig(cfg *config.Config) (Config, error) {
	c := DefaultConfig()
	var err error

	if c.Bind, err = config.GetOr(cfg, "bind", c.Bind); err != nil {
		return c, errors.Wrap(err, "websocket", "ParseConfig", "read bind")
	}
	if c.Port, err = config.GetOr(cfg, "port", c.Port); err != nil {
		return c, errors.Wrap(err, "websocket", "ParseConfig", "read port")
	}
	if c.Path, err = config.GetOr(cfg, "path", c.Path); err != nil {
		return c, errors.Wrap(err, "websocket", "ParseConfig", "read path")
	}
	if c.WriteTimeout, err = config.GetDurationOr(cfg, "write_timeout", c.WriteTimeout); err != nil {
		return c, errors.Wrap(err, "websocket", "ParseConfig", "read write_timeout")
	}
	if c.PingInterval, err = config.GetDurationOr(cfg, "ping_interval", c.PingInterval); err != nil {
		return c, errors.Wrap(err, "websocket", "ParseConfig", "read ping_interval")
	}

	if c.Port < 0 || c.Port > 65535 {
		return c, errors.Newf(errors.InvalidParam, "websocket port must be between 0 and 65535, got %d", c.Port)
	}
	if len(c.Path) == 0 || c.Path[0] != '/' {
		return c, errors.Newf(errors.InvalidPath, "websocket path must start with /, got %q", c.Path)
	}
	if c.WriteTimeout <= 0 {
		return c, errors.Newf(errors.InvalidParam, "websocket write_timeout must be positive, got %s", c.WriteTimeout)
	}
	return c, nil
}

// MessageEnvelope wraps every event sent to clients.
type MessageEnvelope struct {
	Type      string          `json:"type"`      // always "data"
	ID        string          `json:"id"`        // unique per broadcast
	Timestamp int64           `json:"timestamp"` // Unix milliseconds
	Payload   json.RawMessage `json:"payload"`
}

// clientInfo holds information about a connected WebSocket client
type clientInfo struct {
	conn        *websocket.Conn
	connectedAt time.Time
	writeMutex  sync.Mutex // gorilla allows one concurrent writer
	closeOnce   sync.Once
	closed      atomic.Bool
	done        chan struct{}
}

// Metrics holds Prometheus metrics for the WebSocket sink
type Metrics struct {
	messagesSent       prometheus.Counter
	bytesSent          prometheus.Counter
	clientsConnected   prometheus.Gauge
	connectionTotal    prometheus.Counter
	disconnectionTotal *prometheus.CounterVec
	broadcastDuration  prometheus.Histogram
	errorsTotal        *prometheus.CounterVec
}

func newMetrics(registry *metric.MetricsRegistry, logger *slog.Logger) *Metrics {
	if registry == nil {
		return nil
	}

	m := &Metrics{
		messagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "websocket_output",
			Name:      "messages_sent_total",
			Help:      "Frames written to clients",
		}),
		bytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "websocket_output",
			Name:      "bytes_sent_total",
			Help:      "Bytes written to clients",
		}),
		clientsConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metric.Namespace,
			Subsystem: "websocket_output",
			Name:      "clients_connected",
			Help:      "Currently connected clients",
		}),
		connectionTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "websocket_output",
			Name:      "connections_total",
			Help:      "Total accepted connections",
		}),
		disconnectionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "websocket_output",
			Name:      "disconnections_total",
			Help:      "Total disconnections by reason",
		}, []string{"reason"}),
		broadcastDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metric.Namespace,
			Subsystem: "websocket_output",
			Name:      "broadcast_duration_seconds",
			Help:      "Time to write one event to every client",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "websocket_output",
			Name:      "errors_total",
			Help:      "Total errors by type",
		}, []string{"type"}),
	}

	for _, err := range []error{
		registry.RegisterCounter("websocket_output", "messages_sent", m.messagesSent),
		registry.RegisterCounter("websocket_output", "bytes_sent", m.bytesSent),
		registry.RegisterGauge("websocket_output", "clients_connected", m.clientsConnected),
		registry.RegisterCounter("websocket_output", "connections_total", m.connectionTotal),
		registry.RegisterCounterVec("websocket_output", "disconnections_total", m.disconnectionTotal),
		registry.RegisterHistogram("websocket_output", "broadcast_duration", m.broadcastDuration),
		registry.RegisterCounterVec("websocket_output", "errors_total", m.errorsTotal),
	} {
		if err != nil {
			logger.Warn("Failed to register metric", "error", err)
		}
	}
	return m
}

// Output serves a WebSocket endpoint and broadcasts every event to all
// connected clients, at most once. Events written while no client is
// connected are discarded.
type Output struct {
	config   Config
	logger   *slog.Logger
	metrics  *Metrics
	upgrader websocket.Upgrader

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	wg       sync.WaitGroup

	clientsMu sync.RWMutex
	clients   map[*websocket.Conn]*clientInfo

	messageIDCounter atomic.Int64
	broadcasts       atomic.Int64
}

// NewOutput creates the sink. The server starts in Initialize.
func NewOutput(cfg Config, deps component.Dependencies) *Output {
	logger := deps.GetLoggerWithComponent("websocket-output")
	return &Output{
		config:  cfg,
		logger:  logger,
		metrics: newMetrics(deps.MetricsRegistry, logger),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]*clientInfo),
	}
}

// Initialize binds the listener and serves in the background.
func (w *Output) Initialize(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.server != nil {
		return errors.New(errors.InvalidParam, "Output.Initialize: server already running")
	}

	address := net.JoinHostPort(w.config.Bind, strconv.Itoa(w.config.Port))
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", address)
	if err != nil {
		return errors.Wrap(err, "Output", "Initialize", "listen on "+address)
	}

	mux := http.NewServeMux()
	mux.HandleFunc(w.config.Path, w.handleWebSocket)
	w.listener = ln
	w.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	srv := w.server
	go func() { _ = srv.Serve(ln) }()

	w.logger.Info("WebSocket sink listening", "addr", ln.Addr().String(), "path", w.config.Path)
	return nil
}

// Addr returns the bound address, or nil before Initialize.
func (w *Output) Addr() net.Addr {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.listener == nil {
		return nil
	}
	return w.listener.Addr()
}

// Clients returns the number of connected clients.
func (w *Output) Clients() int {
	w.clientsMu.RLock()
	defer w.clientsMu.RUnlock()
	return len(w.clients)
}

func (w *Output) generateMessageID() string {
	counter := w.messageIDCounter.Add(1)
	return fmt.Sprintf("msg-%d-%d", time.Now().UnixMilli(), counter)
}

func (w *Output) handleWebSocket(wr http.ResponseWriter, r *http.Request) {
	conn, err := w.upgrader.Upgrade(wr, r, nil)
	if err != nil {
		w.trackError("connection_upgrade")
		return
	}

	info := &clientInfo{conn: conn, connectedAt: time.Now(), done: make(chan struct{})}
	w.clientsMu.Lock()
	w.clients[conn] = info
	clientCount := len(w.clients)
	w.clientsMu.Unlock()

	if w.metrics != nil {
		w.metrics.connectionTotal.Inc()
		w.metrics.clientsConnected.Set(float64(clientCount))
	}
	w.logger.Debug("Client connected", "remote", r.RemoteAddr, "clients", clientCount)

	w.wg.Add(1)
	go w.handleClient(info)
	if w.config.PingInterval > 0 {
		w.wg.Add(1)
		go w.pingClient(info)
	}
}

// handleClient reads until the client goes away. Clients send nothing
// meaningful; reading is what processes close and pong frames.
func (w *Output) handleClient(info *clientInfo) {
	defer w.wg.Done()
	defer w.removeClient(info, "normal")

	for {
		if _, _, err := info.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (w *Output) pingClient(info *clientInfo) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-info.done:
			return
		case <-ticker.C:
			info.writeMutex.Lock()
			err := info.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(w.config.WriteTimeout))
			info.writeMutex.Unlock()
			if err != nil {
				w.removeClient(info, "ping_failed")
				return
			}
		}
	}
}

// removeClient closes and forgets a client exactly once.
func (w *Output) removeClient(info *clientInfo, reason string) {
	info.closeOnce.Do(func() {
		info.closed.Store(true)
		close(info.done)

		w.clientsMu.Lock()
		delete(w.clients, info.conn)
		clientCount := len(w.clients)
		w.clientsMu.Unlock()

		if w.metrics != nil {
			w.metrics.disconnectionTotal.WithLabelValues(reason).Inc()
			w.metrics.clientsConnected.Set(float64(clientCount))
		}
		_ = info.conn.Close()
	})
}

// Write broadcasts e to every client concurrently. A client that cannot
// take the frame within WriteTimeout is disconnected; that never fails the
// write, so one slow consumer cannot stall the pipeline.
func (w *Output) Write(ctx context.Context, e event.Event) error {
	if err := ctx.Err(); err != nil {
		return errors.Convert(err)
	}
	payload, err := e.MarshalJSON()
	if err != nil {
		w.trackError("encode")
		return errors.WrapAs(errors.IOInvalidData, err, "Output", "Write", "encode event")
	}
	frame, err := json.Marshal(MessageEnvelope{
		Type:      "data",
		ID:        w.generateMessageID(),
		Timestamp: time.Now().UnixMilli(),
		Payload:   payload,
	})
	if err != nil {
		w.trackError("envelope_marshal")
		return errors.WrapAs(errors.IOInvalidData, err, "Output", "Write", "encode envelope")
	}

	start := time.Now()
	var wg sync.WaitGroup
	for _, info := range w.snapshot() {
		wg.Add(1)
		go func(info *clientInfo) {
			defer wg.Done()
			w.sendToClient(info, frame)
		}(info)
	}
	wg.Wait()

	w.broadcasts.Add(1)
	if w.metrics != nil {
		w.metrics.broadcastDuration.Observe(time.Since(start).Seconds())
	}
	return nil
}

func (w *Output) snapshot() []*clientInfo {
	w.clientsMu.RLock()
	defer w.clientsMu.RUnlock()
	out := make([]*clientInfo, 0, len(w.clients))
	for _, info := range w.clients {
		if !info.closed.Load() {
			out = append(out, info)
		}
	}
	return out
}

func (w *Output) sendToClient(info *clientInfo, frame []byte) {
	info.writeMutex.Lock()
	_ = info.conn.SetWriteDeadline(time.Now().Add(w.config.WriteTimeout))
	err := info.conn.WriteMessage(websocket.TextMessage, frame)
	info.writeMutex.Unlock()

	if err != nil {
		w.trackError("client_send")
		w.removeClient(info, "send_failed")
		return
	}
	if w.metrics != nil {
		w.metrics.messagesSent.Inc()
		w.metrics.bytesSent.Add(float64(len(frame)))
	}
}

func (w *Output) trackError(errorType string) {
	if w.metrics != nil {
		w.metrics.errorsTotal.WithLabelValues(errorType).Inc()
	}
}

// Broadcasts returns the number of events written so far.
func (w *Output) Broadcasts() int64 { return w.broadcasts.Load() }

// Close stops accepting clients, disconnects the connected ones and waits
// for their goroutines.
func (w *Output) Close() error {
	w.mu.Lock()
	srv := w.server
	w.server, w.listener = nil, nil
	w.mu.Unlock()
	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(ctx)

	for _, info := range w.snapshot() {
		info.writeMutex.Lock()
		_ = info.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "sink closing"),
			time.Now().Add(time.Second))
		info.writeMutex.Unlock()
		w.removeClient(info, "shutdown")
	}
	w.wg.Wait()

	if err != nil {
		return errors.Wrap(err, "Output", "Close", "shut down server")
	}
	return nil
}

// CreateOutput is the factory function for the WebSocket sink
func CreateOutput(cfg *config.Config, deps component.Dependencies) (any, error) {
	parsed, err := ParseConfig(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "websocket-output-factory", "create", "config parsing")
	}
	return NewOutput(parsed, deps), nil
}

// Register registers the WebSocket sink with the registry
func Register(registry *component.Registry) error {
	return registry.Register(component.Registration{
		Name:        "websocket",
		Kind:        component.KindSink,
		Description: "Serves a WebSocket endpoint and broadcasts every event to connected clients",
		Version:     "1.0.0",
		Factory:     CreateOutput,
	})
}
