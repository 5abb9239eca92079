package protocol

import "fmt"

// accessorFunc is the compiled per-accessor function the materialized View
// dispatches to — a small interpreter keyed on accessor id.
type accessorFunc func(od *ObjectData) (any, error)

// accessorEntry pairs a compiled accessor with whether its errors surface
// after the initial parse (and therefore need RuntimeAccessError wrapping)
// or during it (eager fields, whose failures already abort
// TypeHandler.Parse itself).
type accessorEntry struct {
	fn   accessorFunc
	lazy bool
}

// absentMarker is stored in an eager slot when a field's key was missing
// and the field is optional, so its accessor can short-circuit to NoValue
// without asking the field's parser to make sense of a value that was
// never there.
var absentMarker = &struct{}{}

// eagerLoader is one compiled eager field-loader: read key, parse, store.
type eagerLoader struct {
	slot     int
	key      string
	name     string
	parser   Parser
	optional bool
}

// TypeHandler is the compiled per-schema artifact: schema
// identity, optional supertype, the field array size N, eager loaders,
// the accessor dispatch table, the subtype-support block, and (strict
// mode) the closed set of permissible JSON keys.
type TypeHandler struct {
	id          SchemaID
	supertype   *TypeHandler
	slotCount   int
	lazyCount   int
	eagerLoaders []eagerLoader
	accessors   map[string]accessorEntry
	subtype     *subtypeSupport
	strict      bool
	closedNames map[string]struct{}

	// ownFieldNames holds the JSON keys declared on this schema and feeds
	// the closed-name-set computation in session.go; kept on the handler
	// so that pass can walk the supertype chain without re-deriving them
	// from descriptors.
	ownFieldNames []string

	// ownAccessorNames holds the Go-visible accessor names declared on
	// this schema (as opposed to their JSON keys), used by session.go to
	// detect a field shadowing an inherited one without an Override flag.
	ownAccessorNames []string
}

// Parse validates shape, allocates ObjectData,
// runs eager loaders in declared order, dispatches subtypes, and (strict
// mode) check the closed key set.
func (h *TypeHandler) Parse(raw any, parent *ObjectData) (*ObjectData, error) {
	obj, isObject := raw.(map[string]any)
	if !isObject {
		if h.subtype == nil || h.subtype.mode != ManualSubtyping {
			return nil, fmt.Errorf("%w: schema %s", ErrNotObject, h.id)
		}
		// Manual-subtyping schemas may bind to a non-object raw value;
		// field accessors on it will fail individually if
		// ever invoked, since there is no object to read keys from.
		return newObjectData(raw, h), nil
	}

	od := newObjectData(raw, h)

	for _, el := range h.eagerLoaders {
		v, present := obj[el.key]
		if !present {
			if !el.optional {
				return nil, newParseError(h.id, el.name, []string{el.key}, ErrMissingField)
			}
			od.eager[el.slot] = absentMarker
			continue
		}
		stored, err := el.parser.ParseValue(v, od)
		if err != nil {
			return nil, newParseError(h.id, el.name, []string{el.key}, err)
		}
		od.eager[el.slot] = stored
	}

	if h.subtype != nil {
		if err := h.subtype.dispatch(od); err != nil {
			return nil, err
		}
	}

	if h.strict {
		for k := range obj {
			if _, ok := h.closedNames[k]; !ok {
				return nil, newParseError(h.id, "", []string{k}, ErrExtraneousKey)
			}
		}
	}

	return od, nil
}

// ParseRoot is the facade entry point: parse and materialize a view in one
// step.
func (h *TypeHandler) ParseRoot(raw any) (*View, error) {
	od, err := h.Parse(raw, nil)
	if err != nil {
		return nil, err
	}
	return od.View(), nil
}

// eagerSlotAccessor builds the pre-parsed slot handler shape: no parse cost
// at call time, just Finish over the already-stored value. The raw-is-object
// guard only ever fires for a manually-subtyped schema parsed from a
// non-object value, whose eager loaders never ran.
func eagerSlotAccessor(parser Parser, slot int, schemaID SchemaID) accessorFunc {
	return func(od *ObjectData) (any, error) {
		if _, ok := od.raw.(map[string]any); !ok {
			return nil, fmt.Errorf("%w: schema %s", ErrNotObject, schemaID)
		}
		stored := od.eager[slot]
		if stored == absentMarker {
			return NoValue, nil
		}
		return parser.Finish(stored)
	}
}

// lazyQuickAccessor builds the lazy quick-parse handler shape: reads the
// key and reparses on every call, with no caching, since quick parsers are
// cheap enough to repeat. Every failure here happens after the enclosing
// object's own parse already succeeded, so it surfaces wrapped in
// RuntimeAccessError rather than a bare checked error.
func lazyQuickAccessor(fd FieldDescriptor, schemaID SchemaID) accessorFunc {
	return func(od *ObjectData) (any, error) {
		obj, ok := od.raw.(map[string]any)
		if !ok {
			return nil, wrapLazy(newParseError(schemaID, fd.Name, nil, ErrNotObject))
		}
		v, present := obj[fd.Key]
		if !present {
			if fd.Optional {
				return NoValue, nil
			}
			return nil, wrapLazy(newParseError(schemaID, fd.Name, []string{fd.Key}, ErrMissingField))
		}
		stored, err := fd.Parser.ParseValue(v, nil)
		if err != nil {
			return nil, wrapLazy(newParseError(schemaID, fd.Name, []string{fd.Key}, err))
		}
		result, err := fd.Parser.Finish(stored)
		if err != nil {
			return nil, wrapLazy(newParseError(schemaID, fd.Name, []string{fd.Key}, err))
		}
		return result, nil
	}
}

// lazyCachedAccessor builds the lazy cached handler shape: on first call,
// parse via the slow parser against the enclosing ObjectData, finish, and
// publish via compare-and-set into the object's lazy slot array. A failed
// computation is wrapped in RuntimeAccessError before it reaches the
// caller, same as the quick lazy path.
func lazyCachedAccessor(fd FieldDescriptor, schemaID SchemaID, lazySlot int) accessorFunc {
	return func(od *ObjectData) (any, error) {
		v, err := od.loadLazy(lazySlot, func() (any, error) {
			obj, ok := od.raw.(map[string]any)
			if !ok {
				return nil, newParseError(schemaID, fd.Name, nil, ErrNotObject)
			}
			raw, present := obj[fd.Key]
			if !present {
				if fd.Optional {
					return NoValue, nil
				}
				return nil, newParseError(schemaID, fd.Name, []string{fd.Key}, ErrMissingField)
			}
			stored, err := fd.Parser.ParseValue(raw, od)
			if err != nil {
				return nil, newParseError(schemaID, fd.Name, []string{fd.Key}, err)
			}
			return fd.Parser.Finish(stored)
		})
		if err != nil {
			return nil, wrapLazy(asParseError(schemaID, fd.Name, fd.Key, err))
		}
		return v, nil
	}
}

// asParseError normalizes an error raised inside a lazy-path compute
// closure into a *ParseError, preserving one already built with full
// context and wrapping anything else with the field's own breadcrumbs.
func asParseError(schemaID SchemaID, field, key string, err error) *ParseError {
	if pe, ok := err.(*ParseError); ok {
		return pe
	}
	return newParseError(schemaID, field, []string{key}, err)
}
