package protocol

import "fmt"

// Decoder is the parser facade: two entry points over a frozen
// HandlerSet produced by Session.Build.
type Decoder struct {
	handlers *HandlerSet
}

// NewDecoder wraps a built HandlerSet for parsing.
func NewDecoder(handlers *HandlerSet) *Decoder {
	return &Decoder{handlers: handlers}
}

// Parse is the common-case entry point: raw must be a decoded JSON object
// and schemaID must name a handler in this Decoder's set.
func (d *Decoder) Parse(raw any, schemaID SchemaID) (*View, error) {
	if _, ok := raw.(map[string]any); !ok {
		return nil, fmt.Errorf("%w: schema %s", ErrNotObject, schemaID)
	}
	return d.ParseAny(raw, schemaID)
}

// ParseAny accepts any decoded JSON value. It is only meaningful for
// schemas declared in manual-subtyping mode, which may bind to non-object
// underlying values.
func (d *Decoder) ParseAny(raw any, schemaID SchemaID) (*View, error) {
	h, ok := d.handlers.Handler(schemaID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSchema, schemaID)
	}
	return h.ParseRoot(raw)
}
