package job

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pyxol/protostar"
)

// Factory rebuilds a handler from the properties captured at dispatch time.
type Factory func(props Properties) (Handler, error)

// Registry maps handler type names to factories. It is safe for concurrent
// use and is normally filled once at startup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty handler registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds a factory under name, replacing any previous one.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Get returns the factory registered under name.
func (r *Registry) Get(name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	return f, ok
}

// Names returns all registered handler type names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	return names
}

// Reconstruct builds the handler a descriptor names.
func (r *Registry) Reconstruct(d Descriptor) (Handler, error) {
	if d.Type == "" {
		return nil, protostar.ErrMissingHandlerType
	}

	f, ok := r.Get(d.Type)
	if !ok {
		return nil, fmt.Errorf("%w: %q", protostar.ErrUnknownHandler, d.Type)
	}

	props := d.Properties
	if props == nil {
		props = Properties{}
	}

	h, err := f(props)
	if err != nil {
		var mp *protostar.MissingParameterError
		if errors.As(err, &mp) && mp.Handler == "" {
			mp.Handler = d.Type
		}
		return nil, fmt.Errorf("reconstruct handler %q: %w", d.Type, err)
	}
	if h == nil {
		return nil, fmt.Errorf("%w: %q", protostar.ErrInvalidHandler, d.Type)
	}
	return h, nil
}
