// Package component defines the contracts of pipeline collaborators and the
// registry that builds them from configuration.
//
// # Stages
//
// A pipeline has four stages, each with one contract:
//
//	Source     Run(ctx, *buffer.Sender[[]byte]) error
//	Decoder    Decode([]byte) (event.Event, error)
//	Processor  Process(ctx, event.Event) ([]event.Event, error)
//	Sink       Write(ctx, event.Event) error
//
// Collaborators may additionally implement Initializable (called before the
// stage starts) and io.Closer (called after the stage has drained).
//
// # Registry
//
// Collaborators are selected by name from configuration (source.type,
// decoder.type, processor.type, sink.type). Each package registers its
// factory:
//
//	func Register(registry *component.Registry) error {
//	    return registry.Register(component.Registration{
//	        Name:        "console",
//	        Kind:        component.KindSink,
//	        Description: "Writes events to stdout",
//	        Version:     "1.0.0",
//	        Factory:     NewFromConfig,
//	    })
//	}
//
// The pipeline then calls NewSource, NewDecoder, NewProcessor and NewSink,
// which run the factory and check that it built the right kind.
//
// # Lifecycle
//
// State is the per-stage state machine the pipeline reports:
// Configured -> Running -> (Draining | Failed) -> Stopped.
package component
