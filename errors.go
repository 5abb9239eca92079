package protocol

import (
	"errors"
	"fmt"

	"github.com/kaptinlin/go-i18n"
	"github.com/kaptinlin/jsonpointer"
)

// === Schema-model errors (raised only during Session.Build) ===
var (
	// ErrDuplicateSchema is returned when a batch declares the same schema id twice.
	ErrDuplicateSchema = errors.New("duplicate schema declaration")

	// ErrUnresolvedReference is returned when a field or caster names a schema
	// id that is neither in the current batch nor in any imported batch.
	ErrUnresolvedReference = errors.New("unresolved schema reference")

	// ErrDuplicateField is returned when a schema redeclares a field name
	// already present on a supertype, without marking it as an override.
	ErrDuplicateField = errors.New("duplicate field declaration")

	// ErrIllegalNullability is returned when NullableField() is set on, or
	// Nullable() wraps, a primitive-shaped value type (int64, bool, float32,
	// enum, void).
	ErrIllegalNullability = errors.New("nullability not permitted on primitive-shaped type")

	// ErrMisusedReinterpret is returned when a manual caster's reinterpret
	// flag is set on a schema not declared in manual-subtyping mode.
	ErrMisusedReinterpret = errors.New("reinterpret flag only valid in manual-subtyping mode")

	// ErrAmbiguousSubtypeDeclaration is returned when a schema declares more
	// than one unconditional default subtype case.
	ErrAmbiguousSubtypeDeclaration = errors.New("ambiguous subtype declaration")

	// ErrSessionReused is returned when Build is called twice on one Session.
	ErrSessionReused = errors.New("schema-building session already used")

	// ErrUnknownSchema is returned when a facade call names an id the
	// HandlerSet has no handler for.
	ErrUnknownSchema = errors.New("unknown schema id")

	// ErrInvalidYAMLBatch is returned when a declarative YAML schema batch
	// document fails to decode or names an unsupported field type.
	ErrInvalidYAMLBatch = errors.New("invalid yaml schema batch")
)

// === Parse errors (raised during Decoder.Parse / accessor calls) ===
var (
	// ErrNotObject is returned when a JSON object was required but the raw
	// value was something else.
	ErrNotObject = errors.New("value is not a json object")

	// ErrMissingField is returned when a non-optional field's key is absent.
	ErrMissingField = errors.New("field is not optional")

	// ErrTypeMismatch is returned when a raw value's JSON type does not match
	// the declared value parser.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrUnknownEnumName is returned when a string does not name a declared
	// enum value.
	ErrUnknownEnumName = errors.New("unknown enum name")

	// ErrExtraneousKey is returned, in strict mode, when a JSON object key
	// falls outside the schema's closed key set.
	ErrExtraneousKey = errors.New("extraneous key in strict mode")

	// ErrSubtypeAmbiguous is returned when more than one automatic subtype
	// condition matches the same raw object.
	ErrSubtypeAmbiguous = errors.New("ambiguous subtype match")

	// ErrSubtypeUnmatched is returned when no automatic subtype condition
	// matches and no default case was declared.
	ErrSubtypeUnmatched = errors.New("no subtype matched")

	// ErrUnknownAccessor is returned when View.Get names an accessor the
	// handler never declared.
	ErrUnknownAccessor = errors.New("unknown accessor")
)

// ParseError wraps a parse-time failure with breadcrumbs: the schema
// identity and field name it occurred in, plus a
// JSON-Pointer-shaped location built with github.com/kaptinlin/jsonpointer.
type ParseError struct {
	Schema   SchemaID
	Field    string
	Location string
	Code     string
	Cause    error
}

func newParseError(schemaID SchemaID, field string, tokens []string, cause error) *ParseError {
	return &ParseError{
		Schema:   schemaID,
		Field:    field,
		Location: "#" + jsonpointer.Format(tokens...),
		Code:     causeCode(cause),
		Cause:    cause,
	}
}

func (e *ParseError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: field %q at %s: %v", e.Schema, e.Field, e.Location, e.Cause)
	}
	return fmt.Sprintf("%s: at %s: %v", e.Schema, e.Location, e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// Localize renders the error's message through a go-i18n localizer, falling
// back to Error() when localizer is nil or the code has no catalog entry.
func (e *ParseError) Localize(localizer *i18n.Localizer) string {
	if localizer == nil {
		return e.Error()
	}
	return localizer.Get(e.Code, i18n.Vars(map[string]any{
		"field":    e.Field,
		"schema":   string(e.Schema),
		"location": e.Location,
	}))
}

func causeCode(cause error) string {
	switch {
	case errors.Is(cause, ErrMissingField):
		return "missing_field"
	case errors.Is(cause, ErrTypeMismatch):
		return "type_mismatch"
	case errors.Is(cause, ErrUnknownEnumName):
		return "unknown_enum"
	case errors.Is(cause, ErrExtraneousKey):
		return "extraneous_key"
	case errors.Is(cause, ErrSubtypeAmbiguous):
		return "subtype_ambiguous"
	case errors.Is(cause, ErrSubtypeUnmatched):
		return "subtype_unmatched"
	case errors.Is(cause, ErrNotObject):
		return "not_object"
	default:
		return "parse_error"
	}
}

// RuntimeAccessError is the unchecked envelope for lazy accessor failures:
// accessor calls cannot thread a checked error through their declared
// signature's error return without changing every caller's contract, so a
// parse failure discovered after the initial eager parse surfaces wrapped
// in this type. Callers that need checked semantics should prefer eager
// fields, whose failures surface directly from Decoder.Parse.
type RuntimeAccessError struct {
	*ParseError
}

func (e *RuntimeAccessError) Error() string {
	return "runtime accessor error: " + e.ParseError.Error()
}

func wrapLazy(err *ParseError) *RuntimeAccessError {
	if err == nil {
		return nil
	}
	return &RuntimeAccessError{ParseError: err}
}
