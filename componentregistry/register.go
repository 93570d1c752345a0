// Package componentregistry registers every built-in bee collaborator.
package componentregistry

import (
	"github.com/c360/bee/component"
	jsondecoder "github.com/c360/bee/decoder/json"
	"github.com/c360/bee/decoder/ethlog"
	"github.com/c360/bee/errors"
	fileinput "github.com/c360/bee/input/file"
	"github.com/c360/bee/input/udp"
	websocketinput "github.com/c360/bee/input/websocket"
	"github.com/c360/bee/output/console"
	fileoutput "github.com/c360/bee/output/file"
	"github.com/c360/bee/output/httppost"
	natsoutput "github.com/c360/bee/output/nats"
	websocketoutput "github.com/c360/bee/output/websocket"
	"github.com/c360/bee/processor/dedupe"
	"github.com/c360/bee/processor/enrich"
	"github.com/c360/bee/processor/filter"
	"github.com/c360/bee/processor/throttle"
)

// registration pairs a Register function with the name used in errors.
type registration struct {
	what     string
	register func(*component.Registry) error
}

var builtins = []registration{
	// Sources
	{"websocket source", websocketinput.Register},
	{"file source", fileinput.Register},
	{"udp source", udp.Register},

	// Decoders
	{"json decoder", jsondecoder.Register},
	{"ethlog decoder", ethlog.Register},

	// Processors
	{"filter processor", filter.Register},
	{"dedupe processor", dedupe.Register},
	{"enrich processor", enrich.Register},
	{"throttle processor", throttle.Register},

	// Sinks
	{"console sink", console.Register},
	{"file sink", fileoutput.Register},
	{"nats sink", natsoutput.Register},
	{"http sink", httppost.Register},
	{"websocket sink", websocketoutput.Register},
}

// Register registers all built-in sources, decoders, processors and sinks
// with registry.
func Register(registry *component.Registry) error {
	// Nil registry is a programming error, not invalid input
	if registry == nil {
		return errors.New(errors.Internal, "ComponentRegistry.Register: registry cannot be nil")
	}

	for _, b := range builtins {
		if err := b.register(registry); err != nil {
			return errors.Wrap(err, "ComponentRegistry", "Register", b.what+" registration")
		}
	}
	return nil
}

// NewRegistry returns a registry with every built-in registered.
func NewRegistry() (*component.Registry, error) {
	registry := component.NewRegistry()
	if err := Register(registry); err != nil {
		return nil, err
	}
	return registry, nil
}
