package job

import (
	"encoding/json"
	"fmt"

	"github.com/pyxol/protostar"
)

// Definition is a typed handler definition. T holds the constructor
// properties (JSON-serializable) and New turns a decoded T into a handler.
type Definition[T any] struct {
	// Name is the unique handler type name written into cargo.
	Name string

	// Params lists the properties that must be present to rebuild the
	// handler.
	Params []string

	// New builds the handler from its properties.
	New func(props T) Handler
}

// NewDefinition creates a typed handler definition.
func NewDefinition[T any](name string, newFn func(props T) Handler, params ...string) *Definition[T] {
	return &Definition[T]{
		Name:   name,
		Params: params,
		New:    newFn,
	}
}

// RegisterDefinition registers a typed definition. The factory checks every
// declared parameter, decodes the properties into T and calls New.
//
// This is a package-level generic function because Go does not allow
// generic methods on non-generic receiver types.
func RegisterDefinition[T any](r *Registry, def *Definition[T]) {
	r.Register(def.Name, func(props Properties) (Handler, error) {
		for _, name := range def.Params {
			if !props.Has(name) {
				return nil, &protostar.MissingParameterError{Handler: def.Name, Name: name}
			}
		}

		var t T
		if len(props) > 0 {
			b, err := json.Marshal(props)
			if err != nil {
				return nil, fmt.Errorf("marshal properties for %q: %w", def.Name, err)
			}
			if err := json.Unmarshal(b, &t); err != nil {
				return nil, fmt.Errorf("unmarshal properties for %q: %w", def.Name, err)
			}
		}
		return def.New(t), nil
	})
}
