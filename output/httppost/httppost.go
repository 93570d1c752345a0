package httppost

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"sync/atomic"
	"time"

	"github.com/c360/bee/component"
	"github.com/c360/bee/config"
	"github.com/c360/bee/errors"
	"github.com/c360/bee/event"
	"github.com/c360/bee/pkg/retry"
	"github.com/c360/bee/pkg/tlsutil"
)

var (
	_ component.Sink     = (*Output)(nil)
	_ io.Closer          = (*Output)(nil)
)

// Config holds configuration for the HTTP POST sink
type Config struct {
	URL         string
	Headers     map[string]string
	Timeout     time.Duration
	ContentType string
	// MaxAttempts counts the first request; 1 disables retries
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	TLS          tlsutil.ClientConfig
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.URL == "" {
		return errors.New(errors.InvalidParam, "Config.Validate: url is required")
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return errors.Wrap(err, "Config", "Validate", "parse url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.Newf(errors.InvalidURL, "http sink url must use http or https, got %q", c.URL)
	}
	if c.Timeout <= 0 || c.Timeout > 300*time.Second {
		return errors.Newf(errors.InvalidParam, "timeout must be between 0 and 300 seconds, got %s", c.Timeout)
	}
	if c.MaxAttempts < 1 || c.MaxAttempts > 10 {
		return errors.Newf(errors.InvalidParam, "retry.max_attempts must be between 1 and 10, got %d", c.MaxAttempts)
	}
	if c.InitialDelay <= 0 || c.MaxDelay < c.InitialDelay {
		return errors.Newf(errors.InvalidParam,
			"retry delays must satisfy 0 < initial_delay <= max_delay, got %s and %s", c.InitialDelay, c.MaxDelay)
	}
	return c.TLS.Validate()
}

// DefaultConfig returns default configuration for the HTTP POST sink
func DefaultConfig() Config {
	return Config{
		Headers:      make(map[string]string),
		Timeout:      30 * time.Second,
		ContentType:  "application/json",
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
	}
}

// ParseConfig reads the sink table:
//
//	url                   required, http or https
//	headers               optional table of string values
//	timeout               optional duration per request
//	content_type          optional
//	retry.max_attempts    optional
//	retry.initial_delay   optional duration
//	retry.max_delay       optional duration
//	tls.*                 optional, see tlsutil.ParseClientConfig
func ParseConfig(cfg *config.Config) (Config, error) {
	c := DefaultConfig()
	var err error

	if c.URL, err = config.Get[string](cfg, "url"); err != nil {
		return c, errors.Wrap(err, "httppost", "ParseConfig", "read url")
	}
	if c.ContentType, err = config.GetOr(cfg, "content_type", c.ContentType); err != nil {
		return c, errors.Wrap(err, "httppost", "ParseConfig", "read content_type")
	}
	if c.Timeout, err = config.GetDurationOr(cfg, "timeout", c.Timeout); err != nil {
		return c, errors.Wrap(err, "httppost", "ParseConfig", "read timeout")
	}
	if c.MaxAttempts, err = config.GetOr(cfg, "retry.max_attempts", c.MaxAttempts); err != nil {
		return c, errors.Wrap(err, "httppost", "ParseConfig", "read retry.max_attempts")
	}
	if c.InitialDelay, err = config.GetDurationOr(cfg, "retry.initial_delay", c.InitialDelay); err != nil {
		return c, errors.Wrap(err, "httppost", "ParseConfig", "read retry.initial_delay")
	}
	if c.MaxDelay, err = config.GetDurationOr(cfg, "retry.max_delay", c.MaxDelay); err != nil {
		return c, errors.Wrap(err, "httppost", "ParseConfig", "read retry.max_delay")
	}

	if headers, err := cfg.Sub("headers"); err == nil {
		for _, name := range headers.Keys() {
			v, err := config.Get[string](headers, name)
			if err != nil {
				return c, errors.Wrap(err, "httppost", "ParseConfig", "read headers."+name)
			}
			c.Headers[name] = v
		}
	} else if !errors.IsOneOf(err, errors.InvalidIndex) {
		return c, errors.Wrap(err, "httppost", "ParseConfig", "read headers")
	}

	if c.TLS, err = tlsutil.ParseClientConfig(cfg); err != nil {
		return c, errors.Wrap(err, "httppost", "ParseConfig", "read tls")
	}
	return c, c.Validate()
}

// Output POSTs every event as one JSON document. The http.Client is shared
// by all sink workers.
type Output struct {
	config     Config
	httpClient *http.Client
	logger     *slog.Logger
	headers    []string // sorted header names

	messagesSent    atomic.Int64
	messagesRetried atomic.Int64
	failed          atomic.Int64
	lastActivity    atomic.Value // time.Time
}

// NewOutput creates the sink and its HTTP client.
func NewOutput(cfg Config, deps component.Dependencies) (*Output, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	httpClient := &http.Client{Timeout: cfg.Timeout}
	tlsConfig, err := tlsutil.LoadClientTLSConfig(cfg.TLS)
	if err != nil {
		return nil, errors.Wrap(err, "httppost", "NewOutput", "tls setup")
	}
	if tlsConfig != nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.TLSClientConfig = tlsConfig
		httpClient.Transport = transport
	}

	headers := make([]string, 0, len(cfg.Headers))
	for name := range cfg.Headers {
		headers = append(headers, name)
	}
	sort.Strings(headers)

	return &Output{
		config:     cfg,
		httpClient: httpClient,
		logger:     deps.GetLoggerWithComponent("httppost-output"),
		headers:    headers,
	}, nil
}

// Write sends e, retrying transient failures with exponential backoff.
// Rejections (4xx) are invalid-data errors and are not retried.
func (h *Output) Write(ctx context.Context, e event.Event) error {
	body, err := e.MarshalJSON()
	if err != nil {
		h.failed.Add(1)
		return errors.WrapAs(errors.IOInvalidData, err, "Output", "Write", "encode event")
	}
	h.lastActivity.Store(time.Now())

	err = retry.Do(ctx, retry.Config{
		MaxAttempts:  h.config.MaxAttempts,
		InitialDelay: h.config.InitialDelay,
		MaxDelay:     h.config.MaxDelay,
		Multiplier:   2.0,
		AddJitter:    true,
		Retryable:    errors.IsTransient,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			h.messagesRetried.Add(1)
			h.logger.Debug("Retrying HTTP POST", "attempt", attempt, "delay", delay, "error", err)
		},
	}, func() error {
		return h.send(ctx, body)
	})
	if err != nil {
		h.failed.Add(1)
		return errors.Wrap(err, "Output", "Write", "post event")
	}
	h.messagesSent.Add(1)
	return nil
}

// send performs a single request and maps the outcome onto the taxonomy.
func (h *Output) send(ctx context.Context, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.config.URL, bytes.NewReader(data))
	if err != nil {
		return errors.Convert(err)
	}
	req.Header.Set("Content-Type", h.config.ContentType)
	for _, name := range h.headers {
		req.Header.Set(name, h.config.Headers[name])
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		converted := errors.Convert(err)
		if ctx.Err() == nil && !errors.IsTransient(converted) {
			return errors.New(errors.IOConnAborted, converted.Message())
		}
		return converted
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return errors.Newf(errors.IOConnAborted, "HTTP %s", resp.Status)
	default:
		return errors.Newf(errors.IOInvalidData, "HTTP %s", resp.Status)
	}
}

// Close releases idle connections.
func (h *Output) Close() error {
	h.httpClient.CloseIdleConnections()
	return nil
}

// Stats returns the sent, retried and failed counts.
func (h *Output) Stats() (sent, retried, failed int64) {
	return h.messagesSent.Load(), h.messagesRetried.Load(), h.failed.Load()
}

// LastActivity returns when the last event was handed to Write.
func (h *Output) LastActivity() time.Time {
	t, _ := h.lastActivity.Load().(time.Time)
	return t
}

// CreateOutput is the factory function for the HTTP POST sink
func CreateOutput(cfg *config.Config, deps component.Dependencies) (any, error) {
	parsed, err := ParseConfig(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "httppost-output-factory", "create", "config parsing")
	}
	out, err := NewOutput(parsed, deps)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Register registers the HTTP POST sink with the registry
func Register(registry *component.Registry) error {
	return registry.Register(component.Registration{
		Name:        "http",
		Kind:        component.KindSink,
		Description: "POSTs each event as JSON to an HTTP endpoint",
		Version:     "1.0.0",
		Factory:     CreateOutput,
	})
}
