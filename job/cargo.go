package job

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/pyxol/protostar"
)

// Descriptor is the cargo of a handler job: the registered handler type and
// the constructor properties captured at dispatch time.
type Descriptor struct {
	Type       string     `json:"class"`
	Properties Properties `json:"properties"`
}

// Properties maps constructor parameter names to their JSON values.
type Properties map[string]json.RawMessage

// NewProperties captures every value of m.
func NewProperties(m map[string]any) (Properties, error) {
	p := make(Properties, len(m))
	for k, v := range m {
		if err := p.Set(k, v); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Set captures v under name.
func (p Properties) Set(name string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: property %q: %w", protostar.ErrEncoding, name, err)
	}
	p[name] = b
	return nil
}

// Has reports whether name was captured with a non-null value.
func (p Properties) Has(name string) bool {
	raw, ok := p[name]
	return ok && len(raw) > 0 && !bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// Decode unmarshals the property into v. An absent or null property yields
// a *protostar.MissingParameterError.
func (p Properties) Decode(name string, v any) error {
	if !p.Has(name) {
		return &protostar.MissingParameterError{Name: name}
	}
	if err := json.Unmarshal(p[name], v); err != nil {
		return fmt.Errorf("decode property %q: %w", name, err)
	}
	return nil
}

// String returns a string property.
func (p Properties) String(name string) (string, error) {
	var s string
	err := p.Decode(name, &s)
	return s, err
}

// Int returns an integer property.
func (p Properties) Int(name string) (int, error) {
	var n int
	err := p.Decode(name, &n)
	return n, err
}

// Bool returns a boolean property.
func (p Properties) Bool(name string) (bool, error) {
	var b bool
	err := p.Decode(name, &b)
	return b, err
}

// Descriptor interprets the record's cargo as a handler descriptor. Cargo
// that is not an object naming a handler type yields
// protostar.ErrMissingHandlerType.
func (r *Record) Descriptor() (Descriptor, error) {
	var raw []byte
	switch c := r.Cargo.(type) {
	case json.RawMessage:
		raw = c
	case []byte:
		raw = c
	case Descriptor:
		if c.Type == "" {
			return Descriptor{}, protostar.ErrMissingHandlerType
		}
		return c, nil
	case *Descriptor:
		if c == nil || c.Type == "" {
			return Descriptor{}, protostar.ErrMissingHandlerType
		}
		return *c, nil
	default:
		b, err := json.Marshal(c)
		if err != nil {
			return Descriptor{}, fmt.Errorf("%w: %w", protostar.ErrMissingHandlerType, err)
		}
		raw = b
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Descriptor{}, protostar.ErrMissingHandlerType
	}

	var d Descriptor
	if err := json.Unmarshal(trimmed, &d); err != nil {
		return Descriptor{}, fmt.Errorf("%w: %w", protostar.ErrMissingHandlerType, err)
	}
	if d.Type == "" {
		return Descriptor{}, protostar.ErrMissingHandlerType
	}
	if d.Properties == nil {
		d.Properties = Properties{}
	}
	return d, nil
}
