package protocol

// SchemaID identifies a declared schema across a build batch and its
// imported batches.
type SchemaID string

// LoadStrategy controls whether a field is parsed at top-level parse time
// or on first accessor call.
type LoadStrategy int

const (
	// Auto resolves to the eager path, whatever the parser's tier.
	Auto LoadStrategy = iota
	// Eager always parses the field during the enclosing object's parse.
	Eager
	// Lazy always defers the field's parse to first accessor call.
	Lazy
)

// SubtypeMode selects the algebraic-subtyping dispatch strategy.
type SubtypeMode int

const (
	// NoSubtyping means the schema declares no subtype casters.
	NoSubtyping SubtypeMode = iota
	// AutomaticSubtyping dispatches by structural condition predicates,
	// exactly-one-match.
	AutomaticSubtyping
	// ManualSubtyping exposes per-accessor reinterpretation casts that the
	// caller selects explicitly.
	ManualSubtyping
)

// Condition is a field-condition predicate: reads the raw JSON object and
// reports whether a subtype case applies.
type Condition func(obj map[string]any) bool

// FieldDescriptor is one accessor declaration on a schema.
type FieldDescriptor struct {
	Name     string
	Key      string
	Parser   Parser
	Optional bool
	Nullable bool
	Strategy LoadStrategy
	Override bool
}

// FieldOption customizes a FieldDescriptor built by Field.
type FieldOption func(*FieldDescriptor)

// Field declares an accessor. Its JSON key defaults to name unless
// overridden with KeyName.
func Field(name string, parser Parser, opts ...FieldOption) FieldDescriptor {
	fd := FieldDescriptor{Name: name, Key: name, Parser: parser}
	for _, opt := range opts {
		opt(&fd)
	}
	return fd
}

// KeyName overrides the JSON key read for this field.
func KeyName(key string) FieldOption {
	return func(fd *FieldDescriptor) { fd.Key = key }
}

// OptionalField marks a field as permitted to be absent.
func OptionalField() FieldOption {
	return func(fd *FieldDescriptor) { fd.Optional = true }
}

// NullableField marks a field as accepting JSON null. Session.Build rejects
// this on primitive-shaped parsers.
func NullableField() FieldOption {
	return func(fd *FieldDescriptor) { fd.Nullable = true }
}

// LazyField forces the lazy load path regardless of parser tier.
func LazyField() FieldOption {
	return func(fd *FieldDescriptor) { fd.Strategy = Lazy }
}

// EagerField forces the eager load path.
func EagerField() FieldOption {
	return func(fd *FieldDescriptor) { fd.Strategy = Eager }
}

// OverridesSupertype marks this field as shadowing an identically named
// supertype field rather than declaring a new one.
func OverridesSupertype() FieldOption {
	return func(fd *FieldDescriptor) { fd.Override = true }
}

// AutoSubtypeCase is one declared subtype in automatic-dispatch mode.
type AutoSubtypeCase struct {
	Name      string
	Target    SchemaID
	Condition Condition
	IsDefault bool
}

// AutoCase declares a subtype accessor whose condition is tested against
// the raw JSON object.
func AutoCase(name string, target SchemaID, condition Condition) AutoSubtypeCase {
	return AutoSubtypeCase{Name: name, Target: target, Condition: condition}
}

// DefaultCase declares the void default-case accessor used when no
// condition matches.
func DefaultCase(name string) AutoSubtypeCase {
	return AutoSubtypeCase{Name: name, IsDefault: true}
}

// ManualCaster is one declared subtype accessor in manual-dispatch mode.
type ManualCaster struct {
	Name        string
	Target      SchemaID
	Reinterpret bool
}

// Caster declares a manual reinterpretation-cast accessor. Reinterpret may
// only be set true when the schema is built in ManualSubtyping mode;
// Session.Build rejects it otherwise.
func Caster(name string, target SchemaID, reinterpret bool) ManualCaster {
	return ManualCaster{Name: name, Target: target, Reinterpret: reinterpret}
}

// SchemaDescriptor is the input declaration for one protocol object type.
// It is immutable after submission to a Session: fields, casters, and
// mode never change post-build. The one exception, documented here rather
// than hidden, is that the typed-object Parser values referenced from its
// FieldDescriptors mutate an internal resolved-handler pointer in place
// during Session.Build via a seed-then-mutate resolved-handler field
// — a descriptor is expected to be submitted to exactly one Session.Build
// call.
type SchemaDescriptor struct {
	ID         SchemaID
	Supertype  SchemaID
	HasSuper   bool
	Fields     []FieldDescriptor
	Mode       SubtypeMode
	AutoCases  []AutoSubtypeCase
	Casters    []ManualCaster
}

// SchemaOption customizes a SchemaDescriptor built by Schema.
type SchemaOption func(*SchemaDescriptor)

// Schema declares a schema descriptor with the given id.
func Schema(id SchemaID, opts ...SchemaOption) *SchemaDescriptor {
	sd := &SchemaDescriptor{ID: id}
	for _, opt := range opts {
		opt(sd)
	}
	return sd
}

// Extends declares the schema's single supertype.
func Extends(super SchemaID) SchemaOption {
	return func(sd *SchemaDescriptor) {
		sd.Supertype = super
		sd.HasSuper = true
	}
}

// WithFields appends field accessor declarations.
func WithFields(fields ...FieldDescriptor) SchemaOption {
	return func(sd *SchemaDescriptor) { sd.Fields = append(sd.Fields, fields...) }
}

// WithAutomaticSubtypes declares the schema as an automatic-dispatch
// supertype with the given ordered subtype cases.
func WithAutomaticSubtypes(cases ...AutoSubtypeCase) SchemaOption {
	return func(sd *SchemaDescriptor) {
		sd.Mode = AutomaticSubtyping
		sd.AutoCases = append(sd.AutoCases, cases...)
	}
}

// WithManualSubtypes declares the schema as a manual-dispatch supertype
// with the given reinterpretation casters.
func WithManualSubtypes(casters ...ManualCaster) SchemaOption {
	return func(sd *SchemaDescriptor) {
		sd.Mode = ManualSubtyping
		sd.Casters = append(sd.Casters, casters...)
	}
}
