package protocol

import (
	"fmt"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// valueKind classifies a parser's shape for the nullability invariant:
// nullability may only be declared on reference-shaped types.
type valueKind int

const (
	kindPrimitive valueKind = iota
	kindReference
)

// Parser is the value-parser contract. Every quick parser is also
// a slow parser: ParseValue simply ignores parent when Quick reports true.
// Finish converts a parser's internal stored form into the user-visible
// value exposed by accessors; most parsers store and expose the same value,
// so the default embedded in baseParser is the identity.
type Parser interface {
	// Quick reports whether ParseValue needs no enclosing ObjectData.
	Quick() bool
	// Kind reports whether the value shape may carry a nullable wrapper.
	Kind() valueKind
	// ParseValue consumes a raw JSON value (decoded as any/map[string]any/
	// []any/string/float64/bool/nil) and produces the parser's stored form.
	// parent is the enclosing object's ObjectData when the caller has one
	// (eager loaders always pass it, lazy quick accessors pass nil); only
	// slow parsers (subtyping typed-object parsers) require it.
	ParseValue(raw any, parent *ObjectData) (any, error)
	// Finish converts a stored value into its user-visible form.
	Finish(stored any) (any, error)
	// IsTypedObject reports whether this parser delegates to a schema handler.
	IsTypedObject() bool
	// IsSubtyping reports whether a typed-object parser reparses the parent's
	// raw JSON rather than its own field's raw value.
	IsSubtyping() bool
}

// baseParser supplies the common defaults so concrete parsers only override
// what differs.
type baseParser struct{}

func (baseParser) Finish(stored any) (any, error) { return stored, nil }
func (baseParser) IsTypedObject() bool             { return false }
func (baseParser) IsSubtyping() bool               { return false }

// === Scalars ===

type int64Parser struct{ baseParser }

func (int64Parser) Quick() bool     { return true }
func (int64Parser) Kind() valueKind { return kindPrimitive }
func (int64Parser) ParseValue(raw any, _ *ObjectData) (any, error) {
	f, ok := raw.(float64)
	if !ok {
		return nil, fmt.Errorf("%w: expected integer, got %T", ErrTypeMismatch, raw)
	}
	return int64(f), nil
}

// Int64 is the 64-bit integer scalar parser.
func Int64() Parser { return int64Parser{} }

type boolParser struct{ baseParser }

func (boolParser) Quick() bool     { return true }
func (boolParser) Kind() valueKind { return kindPrimitive }
func (boolParser) ParseValue(raw any, _ *ObjectData) (any, error) {
	b, ok := raw.(bool)
	if !ok {
		return nil, fmt.Errorf("%w: expected boolean, got %T", ErrTypeMismatch, raw)
	}
	return b, nil
}

// Bool is the boolean scalar parser.
func Bool() Parser { return boolParser{} }

type float32Parser struct{ baseParser }

func (float32Parser) Quick() bool     { return true }
func (float32Parser) Kind() valueKind { return kindPrimitive }
func (float32Parser) ParseValue(raw any, _ *ObjectData) (any, error) {
	f, ok := raw.(float64)
	if !ok {
		return nil, fmt.Errorf("%w: expected number, got %T", ErrTypeMismatch, raw)
	}
	return float32(f), nil
}

// Float32 is the 32-bit float scalar parser.
func Float32() Parser { return float32Parser{} }

type strParser struct{ baseParser }

func (strParser) Quick() bool     { return true }
func (strParser) Kind() valueKind { return kindReference }
func (strParser) ParseValue(raw any, _ *ObjectData) (any, error) {
	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("%w: expected string, got %T", ErrTypeMismatch, raw)
	}
	return s, nil
}

// Str is the string scalar parser.
func Str() Parser { return strParser{} }

type objParser struct{ baseParser }

func (objParser) Quick() bool     { return true }
func (objParser) Kind() valueKind { return kindReference }
func (objParser) ParseValue(raw any, _ *ObjectData) (any, error) {
	o, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected object, got %T", ErrTypeMismatch, raw)
	}
	return o, nil
}

// Obj is the opaque-object scalar parser: an unchecked pass-through of a
// decoded JSON object, for fields whose shape the schema does not model.
func Obj() Parser { return objParser{} }

// RawJSON is the canonical-bytes form of an opaque JSON value, re-encoded
// through github.com/go-json-experiment/json so callers get a stable,
// deterministically ordered byte form rather than the decoder's map.
type RawJSON jsontext.Value

type rawJSONParser struct{ baseParser }

func (rawJSONParser) Quick() bool     { return true }
func (rawJSONParser) Kind() valueKind { return kindReference }
func (rawJSONParser) ParseValue(raw any, _ *ObjectData) (any, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: expected value, got null", ErrTypeMismatch)
	}
	b, err := json.Marshal(raw, json.Deterministic(true))
	if err != nil {
		return nil, fmt.Errorf("%w: re-encoding raw JSON: %v", ErrTypeMismatch, err)
	}
	return RawJSON(b), nil
}

// RawJSONScalar is the raw-JSON-object scalar parser: an unchecked
// pass-through that preserves the original bytes instead of a decoded map.
func RawJSONScalar() Parser { return rawJSONParser{} }

// === Nullable wrapping ===

// nullableWrapper adapts any reference-shaped parser into its nullable
// counterpart: a JSON null raw value finishes to NoValue instead of
// failing. Session.Build rejects both Nullable() and NullableField() on
// primitive-shaped parsers: nullability may not be declared on
// primitive-shaped value types.
type nullableWrapper struct {
	inner Parser
}

// Nullable wraps a reference-shaped parser so that JSON null finishes to
// "no value" instead of a type-mismatch failure.
func Nullable(inner Parser) Parser {
	return &nullableWrapper{inner: inner}
}

func (n *nullableWrapper) Quick() bool     { return n.inner.Quick() }
func (n *nullableWrapper) Kind() valueKind { return n.inner.Kind() }

func (n *nullableWrapper) ParseValue(raw any, parent *ObjectData) (any, error) {
	if raw == nil {
		return nil, nil
	}
	return n.inner.ParseValue(raw, parent)
}

func (n *nullableWrapper) Finish(stored any) (any, error) {
	if stored == nil {
		return NoValue, nil
	}
	return n.inner.Finish(stored)
}

func (n *nullableWrapper) IsTypedObject() bool { return n.inner.IsTypedObject() }
func (n *nullableWrapper) IsSubtyping() bool   { return n.inner.IsSubtyping() }

// === Enum ===

// EnumParser decodes a JSON string into one of a declared set of names.
type EnumParser struct {
	baseParser
	Name   string
	byName map[string]int
	Values []string
}

// Enum builds an enum parser over the given ordered names.
func Enum(name string, values ...string) *EnumParser {
	byName := make(map[string]int, len(values))
	for i, v := range values {
		byName[v] = i
	}
	return &EnumParser{Name: name, Values: values, byName: byName}
}

func (EnumParser) Quick() bool     { return true }
func (EnumParser) Kind() valueKind { return kindPrimitive }
func (e *EnumParser) ParseValue(raw any, _ *ObjectData) (any, error) {
	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("%w: expected string for enum %s, got %T", ErrTypeMismatch, e.Name, raw)
	}
	idx, ok := e.byName[s]
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a member of enum %s", ErrUnknownEnumName, s, e.Name)
	}
	return idx, nil
}

// === Void ===

// voidParser consumes any value and always yields "no value"; it is used as
// the default-case placeholder accessor in automatic subtype dispatch.
type voidParser struct{ baseParser }

func (voidParser) Quick() bool     { return true }
func (voidParser) Kind() valueKind { return kindPrimitive }
func (voidParser) ParseValue(any, *ObjectData) (any, error) { return nil, nil }
func (voidParser) Finish(any) (any, error)                  { return NoValue, nil }

// Void is the no-value parser used for default subtype cases.
func Void() Parser { return voidParser{} }

// === Typed-object (nested schema) parser ===

// typedObjectParser references a schema handler by id. The handler pointer
// is nil until Session.Build's analyze phase resolves it, mutating this
// parser in place rather than building a parallel compiled tree.
type typedObjectParser struct {
	baseParser
	target    SchemaID
	subtyping bool
	resolved  *TypeHandler
}

// TypedObject references another schema by id. When subtyping is true, the
// parser reparses the enclosing object's raw JSON under the target schema
// instead of parsing its own field value.
func TypedObject(target SchemaID, subtyping bool) Parser {
	return &typedObjectParser{target: target, subtyping: subtyping}
}

func (t *typedObjectParser) Quick() bool     { return !t.subtyping }
func (t *typedObjectParser) Kind() valueKind { return kindReference }

func (t *typedObjectParser) ParseValue(raw any, parent *ObjectData) (any, error) {
	if t.resolved == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnresolvedReference, t.target)
	}
	if t.subtyping {
		if parent == nil {
			return nil, fmt.Errorf("%w: subtyping parser requires parent data", ErrNotObject)
		}
		return t.resolved.Parse(parent.raw, parent)
	}
	return t.resolved.Parse(raw, nil)
}

func (t *typedObjectParser) Finish(stored any) (any, error) {
	od, ok := stored.(*ObjectData)
	if !ok {
		return nil, fmt.Errorf("%w: typed-object parser stored non-ObjectData value", ErrTypeMismatch)
	}
	return od.View(), nil
}

func (t *typedObjectParser) IsTypedObject() bool { return true }
func (t *typedObjectParser) IsSubtyping() bool   { return t.subtyping }

// TargetID returns the schema id this typed-object parser resolves against.
func (t *typedObjectParser) TargetID() SchemaID { return t.target }
