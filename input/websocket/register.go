package websocket

import (
	"github.com/c360/bee/component"
	"github.com/c360/bee/config"
	"github.com/c360/bee/errors"
	"github.com/c360/bee/pkg/tlsutil"
)

// CreateInput is the factory function for the WebSocket source
func CreateInput(cfg *config.Config, deps component.Dependencies) (any, error) {
	parsed, err := ParseConfig(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "websocket-input-factory", "create", "config parsing")
	}
	tlsConfig, err := tlsutil.LoadClientTLSConfig(parsed.TLS)
	if err != nil {
		return nil, errors.Wrap(err, "websocket-input-factory", "create", "tls setup")
	}
	input := NewInput(parsed, deps)
	input.dialer.TLSClientConfig = tlsConfig
	return input, nil
}

// Register registers the WebSocket source with the registry
func Register(registry *component.Registry) error {
	return registry.Register(component.Registration{
		Name:        "websocket",
		Kind:        component.KindSource,
		Description: "Reads frames from a WebSocket endpoint, optionally after sending a subscription request",
		Version:     "1.0.0",
		Factory:     CreateInput,
	})
}
