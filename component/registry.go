package component

import (
	"fmt"
	"sort"
	"sync"

	"github.com/c360/bee/config"
	"github.com/c360/bee/errors"
)

// Info holds metadata about an available component type
type Info struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Description string `json:"description"`
	Version     string `json:"version"`
}

// Factory builds a collaborator from its configuration table. For sources,
// decoders and sinks the table is the stage table (source, decoder, sink);
// for processors it is processor.<name>, or empty when that table is
// absent. Factories must not perform I/O; collaborators that need a
// connection implement Initializable.
type Factory func(cfg *config.Config, deps Dependencies) (any, error)

// Registration holds factory and metadata for a component type
type Registration struct {
	Name        string
	Kind        Kind
	Description string
	Version     string
	Factory     Factory
}

// Registry maps (stage, type name) pairs to factories. It is safe for
// concurrent use.
type Registry struct {
	factories map[Kind]map[string]*Registration
	mu        sync.RWMutex
}

// NewRegistry creates a new empty component registry
func NewRegistry() *Registry {
	return &Registry{factories: make(map[Kind]map[string]*Registration)}
}

// Register adds a factory. A name may be used once per stage.
func (r *Registry) Register(reg Registration) error {
	if err := ValidateComponentName(reg.Name); err != nil {
		return errors.Wrap(err, "Registry", "Register", "factory name validation")
	}
	if reg.Factory == nil {
		return errors.Newf(errors.InvalidParam, "Registry.Register: factory for %s %q is nil", reg.Kind, reg.Name)
	}
	if reg.Kind.String() == "unknown" {
		return errors.Newf(errors.InvalidParam, "Registry.Register: unknown kind %d for %q", reg.Kind, reg.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	byName, ok := r.factories[reg.Kind]
	if !ok {
		byName = make(map[string]*Registration)
		r.factories[reg.Kind] = byName
	}
	if _, exists := byName[reg.Name]; exists {
		return errors.Newf(errors.InvalidParam, "Registry.Register: %s factory %q is already registered", reg.Kind, reg.Name)
	}
	cp := reg
	byName[reg.Name] = &cp
	return nil
}

// Lookup returns the registration of a type name.
func (r *Registry) Lookup(kind Kind, name string) (Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.factories[kind][name]
	if !ok {
		return Registration{}, false
	}
	return *reg, true
}

// Create runs the factory registered for (kind, name).
func (r *Registry) Create(kind Kind, name string, cfg *config.Config, deps Dependencies) (any, error) {
	reg, ok := r.Lookup(kind, name)
	if !ok {
		return nil, errors.Newf(errors.InvalidNotSupport, "unknown %s type %q (available: %v)", kind, name, r.Names(kind))
	}
	if cfg == nil {
		cfg = config.New(nil)
	}
	c, err := reg.Factory(cfg, deps)
	if err != nil {
		return nil, errors.Wrap(err, "Registry", "Create", fmt.Sprintf("build %s %q", kind, name))
	}
	if c == nil {
		return nil, errors.Newf(errors.Internal, "%s factory %q returned nil", kind, name)
	}
	return c, nil
}

// NewSource builds a Source.
func (r *Registry) NewSource(name string, cfg *config.Config, deps Dependencies) (Source, error) {
	return create[Source](r, KindSource, name, cfg, deps)
}

// NewDecoder builds a Decoder.
func (r *Registry) NewDecoder(name string, cfg *config.Config, deps Dependencies) (Decoder, error) {
	return create[Decoder](r, KindDecoder, name, cfg, deps)
}

// NewProcessor builds a Processor.
func (r *Registry) NewProcessor(name string, cfg *config.Config, deps Dependencies) (Processor, error) {
	return create[Processor](r, KindProcessor, name, cfg, deps)
}

// NewSink builds a Sink.
func (r *Registry) NewSink(name string, cfg *config.Config, deps Dependencies) (Sink, error) {
	return create[Sink](r, KindSink, name, cfg, deps)
}

func create[T any](r *Registry, kind Kind, name string, cfg *config.Config, deps Dependencies) (T, error) {
	var zero T
	c, err := r.Create(kind, name, cfg, deps)
	if err != nil {
		return zero, err
	}
	t, ok := c.(T)
	if !ok {
		return zero, errors.Newf(errors.InvalidType, "%s factory %q built %T, which is not a %s", kind, name, c, kind)
	}
	return t, nil
}

// Names returns the registered type names of a stage, sorted.
func (r *Registry) Names(kind Kind) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories[kind]))
	for name := range r.factories[kind] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListAvailable returns information about all available component types
func (r *Registry) ListAvailable() []Info {
	var out []Info
	for _, kind := range Kinds {
		for _, name := range r.Names(kind) {
			reg, _ := r.Lookup(kind, name)
			out = append(out, Info{
				Name:        reg.Name,
				Kind:        kind.String(),
				Description: reg.Description,
				Version:     reg.Version,
			})
		}
	}
	return out
}
