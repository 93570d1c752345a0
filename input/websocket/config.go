package websocket

import (
	"net/url"
	"time"

	"github.com/c360/bee/config"
	"github.com/c360/bee/errors"
	"github.com/c360/bee/pkg/tlsutil"
)

// Config holds configuration for the WebSocket source
type Config struct {
	// URI is the ws:// or wss:// endpoint to dial
	URI string
	// Subscribe is sent as one text frame after every successful dial,
	// e.g. an eth_subscribe request. Empty sends nothing.
	Subscribe string
	// HandshakeTimeout bounds the opening handshake
	HandshakeTimeout time.Duration
	// ReadTimeout bounds the wait for each frame; zero waits forever
	ReadTimeout time.Duration
	// BearerTokenEnv names an environment variable holding a bearer token
	BearerTokenEnv string
	// ReadLimit caps the size of one frame in bytes
	ReadLimit int64
	// TLS applies to wss:// endpoints
	TLS tlsutil.ClientConfig
}

// DefaultConfig returns the default configuration for the WebSocket source
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout: 45 * time.Second,
		ReadLimit:        1 << 20,
	}
}

// ParseConfig reads the source table:
//
//	uri                required
//	subscribe          optional
//	handshake_timeout  optional duration
//	read_timeout       optional duration
//	bearer_token_env   optional
//	read_limit         optional bytes
//	tls.*              optional, see tlsutil.ParseClientConfig
func ParseConfig(r config.Resolver) (Config, error) {
	cfg := DefaultConfig()
	var err error

	if cfg.URI, err = config.Get[string](r, "uri"); err != nil {
		return cfg, errors.Wrap(err, "websocket", "ParseConfig", "read uri")
	}
	u, err := url.Parse(cfg.URI)
	if err != nil {
		return cfg, errors.Wrap(err, "websocket", "ParseConfig", "parse uri")
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return cfg, errors.Newf(errors.InvalidURL, "websocket uri must use ws or wss, got %q", cfg.URI)
	}

	if cfg.Subscribe, err = config.GetOr(r, "subscribe", ""); err != nil {
		return cfg, errors.Wrap(err, "websocket", "ParseConfig", "read subscribe")
	}
	if cfg.HandshakeTimeout, err = config.GetDurationOr(r, "handshake_timeout", cfg.HandshakeTimeout); err != nil {
		return cfg, errors.Wrap(err, "websocket", "ParseConfig", "read handshake_timeout")
	}
	if cfg.ReadTimeout, err = config.GetDurationOr(r, "read_timeout", 0); err != nil {
		return cfg, errors.Wrap(err, "websocket", "ParseConfig", "read read_timeout")
	}
	if cfg.BearerTokenEnv, err = config.GetOr(r, "bearer_token_env", ""); err != nil {
		return cfg, errors.Wrap(err, "websocket", "ParseConfig", "read bearer_token_env")
	}
	if cfg.ReadLimit, err = config.GetOr(r, "read_limit", cfg.ReadLimit); err != nil {
		return cfg, errors.Wrap(err, "websocket", "ParseConfig", "read read_limit")
	}
	if cfg.ReadLimit <= 0 {
		return cfg, errors.Newf(errors.InvalidParam, "read_limit must be positive, got %d", cfg.ReadLimit)
	}
	if cfg.TLS, err = tlsutil.ParseClientConfig(r); err != nil {
		return cfg, errors.Wrap(err, "websocket", "ParseConfig", "read tls")
	}
	return cfg, nil
}
