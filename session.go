package protocol

import "fmt"

// Batch is an ordered list of schema descriptors submitted together to one
// Session.Build call.
type Batch struct {
	descriptors []*SchemaDescriptor
}

// NewBatch collects schema descriptors into a batch.
func NewBatch(descriptors ...*SchemaDescriptor) *Batch {
	return &Batch{descriptors: append([]*SchemaDescriptor(nil), descriptors...)}
}

// HandlerSet is the frozen, read-only map (schema id -> compiled handler)
// produced by a completed Session.Build. It may itself be imported by a
// later Session.Build as a base package.
type HandlerSet struct {
	handlers map[SchemaID]*TypeHandler
}

// Handler looks up a compiled handler by schema id.
func (hs *HandlerSet) Handler(id SchemaID) (*TypeHandler, bool) {
	h, ok := hs.handlers[id]
	return h, ok
}

// Session is the single-threaded, one-shot schema-building session.
// Build may be called at most once per Session.
type Session struct {
	strict  bool
	imports []*HandlerSet
	used    bool
}

// SessionOption configures a Session built by NewSession.
type SessionOption func(*Session)

// NewSession creates a schema-building session.
func NewSession(opts ...SessionOption) *Session {
	s := &Session{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithStrictMode enables the closed-name-set check: parse fails if a JSON
// object carries a key outside its schema's declared key set.
func WithStrictMode() SessionOption {
	return func(s *Session) { s.strict = true }
}

// WithImportedBatch registers a previously built HandlerSet as a base
// package: schema references in the new batch may bind directly to its
// handlers, since placeholders to handlers imported from earlier-built
// batches resolve immediately.
func WithImportedBatch(hs *HandlerSet) SessionOption {
	return func(s *Session) { s.imports = append(s.imports, hs) }
}

// Build runs the compile phases below and returns the frozen handler set.
//
// Rather than swap a placeholder reference for a concrete handler found
// later during a dedicated resolve pass, every handler here is allocated
// with a stable address during Seed, before any schema's fields are
// compiled. That lets Analyze resolve
// every typed-object reference — forward, backward, or cyclic, in this
// batch or an imported one — immediately against the map built by Seed, by
// storing the already-stable *TypeHandler pointer. A separate Link phase
// would have nothing left to do, so it is folded into Analyze.
func (s *Session) Build(batch *Batch) (*HandlerSet, error) {
	if s.used {
		return nil, ErrSessionReused
	}
	s.used = true

	handlers := make(map[SchemaID]*TypeHandler, len(batch.descriptors))
	descByID := make(map[SchemaID]*SchemaDescriptor, len(batch.descriptors))

	// Phase 1: seed.
	for _, d := range batch.descriptors {
		if _, exists := handlers[d.ID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSchema, d.ID)
		}
		handlers[d.ID] = &TypeHandler{
			id:        d.ID,
			strict:    s.strict,
			accessors: make(map[string]accessorEntry),
		}
		descByID[d.ID] = d
	}

	lookup := func(id SchemaID) (*TypeHandler, bool) {
		if h, ok := handlers[id]; ok {
			return h, true
		}
		for _, imp := range s.imports {
			if h, ok := imp.handlers[id]; ok {
				return h, true
			}
		}
		return nil, false
	}

	// Phase 2: analyze (and, per the note above, link).
	for _, d := range batch.descriptors {
		h := handlers[d.ID]
		if d.HasSuper {
			super, ok := lookup(d.Supertype)
			if !ok {
				return nil, fmt.Errorf("%w: %s extends unknown schema %s", ErrUnresolvedReference, d.ID, d.Supertype)
			}
			h.supertype = super
		}
		if err := compileFields(h, d, lookup); err != nil {
			return nil, err
		}
	}

	// A field that shadows an inherited name without being marked as an
	// override is a duplicate declaration. This runs as its own pass
	// after every schema in the batch has compiled its own fields, since
	// a subtype's supertype may be declared later in the same batch and
	// its own field names would not yet be known during the loop above.
	for _, d := range batch.descriptors {
		h := handlers[d.ID]
		if h.supertype == nil {
			continue
		}
		inherited := supertypeFieldNames(h.supertype)
		for _, fd := range d.Fields {
			if fd.Override {
				continue
			}
			if _, dup := inherited[fd.Name]; dup {
				return nil, fmt.Errorf("%w: %s.%s", ErrDuplicateField, d.ID, fd.Name)
			}
		}
	}

	// Phase 3 (wire subtypes) + phase 4 (validate) run together per
	// schema: a schema's subtype-support block is fully wired and
	// internally consistent before the next schema is checked.
	for _, d := range batch.descriptors {
		h := handlers[d.ID]
		if err := wireAndValidateSubtypes(h, d, lookup); err != nil {
			return nil, err
		}
	}

	// Phase 5: closed-name-set construction (strict mode only).
	if s.strict {
		memo := make(map[*TypeHandler]map[string]struct{})
		visiting := make(map[*TypeHandler]bool)
		for _, d := range batch.descriptors {
			handlers[d.ID].closedNames = closedNameSet(handlers[d.ID], memo, visiting)
		}
	}

	return &HandlerSet{handlers: handlers}, nil
}

// compileFields builds the three accessor shapes for every field
// on d, assigning eager slots and lazy-cache slots as it goes, and resolves
// every typed-object reference reachable from each field's parser tree.
func compileFields(h *TypeHandler, d *SchemaDescriptor, lookup func(SchemaID) (*TypeHandler, bool)) error {
	slot := 0
	lazySlot := 0

	seen := make(map[string]struct{}, len(d.Fields))
	for _, fd := range d.Fields {
		if _, dup := seen[fd.Name]; dup && !fd.Override {
			return fmt.Errorf("%w: %s.%s", ErrDuplicateField, d.ID, fd.Name)
		}
		seen[fd.Name] = struct{}{}

		_, wrapped := fd.Parser.(*nullableWrapper)
		if (fd.Nullable || wrapped) && fd.Parser.Kind() == kindPrimitive {
			return fmt.Errorf("%w: %s.%s", ErrIllegalNullability, d.ID, fd.Name)
		}

		parser := fd.Parser
		if fd.Nullable {
			parser = Nullable(parser)
		}
		if err := resolveParserRefs(parser, lookup); err != nil {
			return fmt.Errorf("%s.%s: %w", d.ID, fd.Name, err)
		}

		// Strategy resolution: anything other than Lazy is eager,
		// regardless of parser tier. Lazy forces a lazy path, split by
		// whether the parser is quick (no-cache reparse) or slow-only
		// (cached, CAS-published).
		eager := fd.Strategy != Lazy

		switch {
		case eager:
			s := slot
			slot++
			h.eagerLoaders = append(h.eagerLoaders, eagerLoader{
				slot: s, key: fd.Key, name: fd.Name, parser: parser, optional: fd.Optional,
			})
			h.accessors[fd.Name] = accessorEntry{fn: eagerSlotAccessor(parser, s, h.id), lazy: false}
		case parser.Quick():
			boundFD := fd
			boundFD.Parser = parser
			h.accessors[fd.Name] = accessorEntry{fn: lazyQuickAccessor(boundFD, h.id), lazy: true}
		default:
			boundFD := fd
			boundFD.Parser = parser
			ls := lazySlot
			lazySlot++
			h.accessors[fd.Name] = accessorEntry{fn: lazyCachedAccessor(boundFD, h.id, ls), lazy: true}
		}

		h.ownFieldNames = append(h.ownFieldNames, fd.Key)
		h.ownAccessorNames = append(h.ownAccessorNames, fd.Name)
	}

	h.slotCount = slot
	h.lazyCount = lazySlot
	return nil
}

// supertypeFieldNames collects the accessor names declared anywhere in h's
// supertype chain, so a subtype's own fields can be checked for an
// un-flagged shadow.
func supertypeFieldNames(h *TypeHandler) map[string]struct{} {
	names := make(map[string]struct{})
	for cur := h; cur != nil; cur = cur.supertype {
		for _, n := range cur.ownAccessorNames {
			names[n] = struct{}{}
		}
	}
	return names
}

// resolveParserRefs walks a parser's (possibly wrapped/nested) tree to find
// every typed-object reference and bind its resolved handler pointer, per
// the seed-then-mutate-in-place technique described on Session.Build.
func resolveParserRefs(p Parser, lookup func(SchemaID) (*TypeHandler, bool)) error {
	switch v := p.(type) {
	case *typedObjectParser:
		h, ok := lookup(v.target)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnresolvedReference, v.target)
		}
		v.resolved = h
		return nil
	case *nullableWrapper:
		return resolveParserRefs(v.inner, lookup)
	case *eagerListParser:
		return resolveParserRefs(v.elem, lookup)
	case *lazyListParser:
		return resolveParserRefs(v.elem, lookup)
	default:
		return nil
	}
}

// wireAndValidateSubtypes builds the subtype-support block for d and
// validates it: a schema that declares subtype casters must declare at
// least one, every case/caster must resolve to a known handler, and
// automatic mode may declare at most one default case.
func wireAndValidateSubtypes(h *TypeHandler, d *SchemaDescriptor, lookup func(SchemaID) (*TypeHandler, bool)) error {
	switch d.Mode {
	case NoSubtyping:
		if len(d.AutoCases) > 0 || len(d.Casters) > 0 {
			return fmt.Errorf("%w: %s declares subtype cases without a subtyping mode", ErrMisusedReinterpret, d.ID)
		}
		return nil

	case AutomaticSubtyping:
		if len(d.Casters) > 0 {
			return fmt.Errorf("%w: %s mixes manual casters into automatic-subtyping mode", ErrMisusedReinterpret, d.ID)
		}
		if len(d.AutoCases) == 0 {
			return fmt.Errorf("%w: %s declares automatic subtyping with no cases", ErrAmbiguousSubtypeDeclaration, d.ID)
		}
		support := &subtypeSupport{mode: AutomaticSubtyping}
		defaultSeen := false
		for _, c := range d.AutoCases {
			compiled := autoCaseCompiled{name: c.Name, condition: c.Condition, isDefault: c.IsDefault}
			if c.IsDefault {
				if defaultSeen {
					return fmt.Errorf("%w: %s declares more than one default subtype case", ErrAmbiguousSubtypeDeclaration, d.ID)
				}
				defaultSeen = true
			} else {
				target, ok := lookup(c.Target)
				if !ok {
					return fmt.Errorf("%w: %s subtype case %s -> %s", ErrUnresolvedReference, d.ID, c.Name, c.Target)
				}
				compiled.target = target
			}
			support.autoCases = append(support.autoCases, compiled)
		}
		support.hasDefault = defaultSeen
		support.variantCodeSlot = h.slotCount
		h.slotCount++
		support.variantValueSlot = h.slotCount
		h.slotCount++
		h.subtype = support

		for i, c := range d.AutoCases {
			h.accessors[c.Name] = accessorEntry{fn: autoCaseAccessor(support, i), lazy: false}
		}
		return nil

	case ManualSubtyping:
		if len(d.AutoCases) > 0 {
			return fmt.Errorf("%w: %s mixes automatic cases into manual-subtyping mode", ErrMisusedReinterpret, d.ID)
		}
		if len(d.Casters) == 0 {
			return fmt.Errorf("%w: %s declares manual subtyping with no casters", ErrAmbiguousSubtypeDeclaration, d.ID)
		}
		h.subtype = &subtypeSupport{mode: ManualSubtyping}
		for _, c := range d.Casters {
			target, ok := lookup(c.Target)
			if !ok {
				return fmt.Errorf("%w: %s caster %s -> %s", ErrUnresolvedReference, d.ID, c.Name, c.Target)
			}
			ls := h.lazyCount
			h.lazyCount++
			h.accessors[c.Name] = accessorEntry{fn: manualCasterAccessor(c, target, h.id, ls), lazy: true}
		}
		return nil

	default:
		return nil
	}
}

// closedNameSet computes the union of own field keys, the (override-
// resolved, same-name-collapsing) supertype chain's keys, and — for
// automatic-subtyping schemas — every non-default case's own closed name
// set, via a fixpoint walk. Subtype relations are assumed to form a DAG in
// practice; visiting guards against a pathological cycle rather than
// looping forever.
func closedNameSet(h *TypeHandler, memo map[*TypeHandler]map[string]struct{}, visiting map[*TypeHandler]bool) map[string]struct{} {
	if cached, ok := memo[h]; ok {
		return cached
	}
	if visiting[h] {
		return map[string]struct{}{}
	}
	visiting[h] = true
	defer delete(visiting, h)

	names := make(map[string]struct{})
	for _, k := range h.ownFieldNames {
		names[k] = struct{}{}
	}
	if h.supertype != nil {
		for k := range closedNameSet(h.supertype, memo, visiting) {
			names[k] = struct{}{}
		}
	}
	if h.subtype != nil && h.subtype.mode == AutomaticSubtyping {
		for _, c := range h.subtype.autoCases {
			if c.isDefault || c.target == nil {
				continue
			}
			for k := range closedNameSet(c.target, memo, visiting) {
				names[k] = struct{}{}
			}
		}
	}

	memo[h] = names
	return names
}
