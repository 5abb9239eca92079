package protocol

import (
	"fmt"
	"strconv"
	"sync"
)

// LazyList is the indexable sequence produced by a LAZY list parser.
// Element i is parsed on first access and memoized. Unlike the CAS-based
// publication used elsewhere for lazy fields, list elements must
// additionally serialize concurrent access to the same index so that
// per-element parse work runs exactly once and single-threaded, which a
// per-index sync.Once provides.
type LazyList struct {
	raw    []any
	elem   Parser
	parent *ObjectData

	once   []sync.Once
	values []any
	errs   []error
}

func newLazyList(raw []any, elem Parser, parent *ObjectData) *LazyList {
	return &LazyList{
		raw:    raw,
		elem:   elem,
		parent: parent,
		once:   make([]sync.Once, len(raw)),
		values: make([]any, len(raw)),
		errs:   make([]error, len(raw)),
	}
}

// Len returns the number of elements, none of which need be parsed yet.
func (l *LazyList) Len() int { return len(l.raw) }

// Get parses (on first call) and returns element i's finished value. A
// parse failure is wrapped in RuntimeAccessError, since the list's element
// accessor signature carries no checked error channel for any caller but
// the first.
func (l *LazyList) Get(i int) (any, error) {
	if i < 0 || i >= len(l.raw) {
		return nil, fmt.Errorf("%w: list index %d out of range [0,%d)", ErrTypeMismatch, i, len(l.raw))
	}
	l.once[i].Do(func() {
		stored, err := l.elem.ParseValue(l.raw[i], l.parent)
		if err != nil {
			l.errs[i] = err
			return
		}
		finished, err := l.elem.Finish(stored)
		if err != nil {
			l.errs[i] = err
			return
		}
		l.values[i] = finished
	})
	if l.errs[i] != nil {
		var schemaID SchemaID
		if l.parent != nil {
			schemaID = l.parent.handler.id
		}
		return nil, wrapLazy(asParseError(schemaID, "", strconv.Itoa(i), l.errs[i]))
	}
	return l.values[i], nil
}

// eagerListParser finishes every element up front.
type eagerListParser struct {
	baseParser
	elem Parser
}

func (eagerListParser) Quick() bool     { return true }
func (eagerListParser) Kind() valueKind { return kindReference }

func (p *eagerListParser) ParseValue(raw any, parent *ObjectData) (any, error) {
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected array, got %T", ErrTypeMismatch, raw)
	}
	out := make([]any, len(items))
	for i, item := range items {
		stored, err := p.elem.ParseValue(item, parent)
		if err != nil {
			return nil, fmt.Errorf("list element %d: %w", i, err)
		}
		finished, err := p.elem.Finish(stored)
		if err != nil {
			return nil, fmt.Errorf("list element %d: %w", i, err)
		}
		out[i] = finished
	}
	return out, nil
}

// EagerList wraps elem into a list parser that parses every element at
// parse time into an immutable finished-value slice.
func EagerList(elem Parser) Parser {
	return &eagerListParser{elem: elem}
}

// lazyListParser wraps the raw array into a *LazyList without touching any
// element.
type lazyListParser struct {
	baseParser
	elem Parser
}

func (lazyListParser) Quick() bool     { return true }
func (lazyListParser) Kind() valueKind { return kindReference }

func (p *lazyListParser) ParseValue(raw any, parent *ObjectData) (any, error) {
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected array, got %T", ErrTypeMismatch, raw)
	}
	return newLazyList(items, p.elem, parent), nil
}

// LazyListFactory wraps elem into a list parser whose elements parse on
// first indexed access, memoized per index.
func LazyListFactory(elem Parser) Parser {
	return &lazyListParser{elem: elem}
}
