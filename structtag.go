package protocol

import (
	"fmt"
	"reflect"

	"github.com/vpupkin/chromedevtools/internal/fieldtag"
)

// FromStruct reflects over a tagged Go struct and builds a SchemaDescriptor
// from it — the struct-tag authoring surface alongside the programmatic
// Schema/Field builders. Supported field kinds are the scalars (int64-ish,
// bool, float32/float64, string), string slices (bound to an eager list of
// Str()), and pointers to any of those (bound as nullable; Session.Build
// rejects nullability on the primitive-shaped ones, so of the pointer
// fields only *string and *[]string yield a buildable schema). Fields needing
// a nested schema reference, a lazy list, or subtyping are not
// representable this way and must be declared with Field/Schema directly.
//
// Tag syntax, read from the "protocol" struct tag: comma-separated rules,
// each either a bare flag (optional, nullable, lazy, eager, override) or a
// key=value pair (key=jsonName). A field tagged `protocol:"-"` is skipped.
func FromStruct(id SchemaID, v any) (*SchemaDescriptor, error) {
	t := reflect.TypeOf(v)
	parser := fieldtag.New()
	infos := parser.ParseStruct(t)

	sd := Schema(id)
	for _, info := range infos {
		fd, err := fieldFromTag(info)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", id, info.GoName, err)
		}
		sd.Fields = append(sd.Fields, fd)
	}
	return sd, nil
}

func fieldFromTag(info fieldtag.FieldInfo) (FieldDescriptor, error) {
	goType := info.Type
	nullable := false
	if goType.Kind() == reflect.Ptr {
		nullable = true
		goType = goType.Elem()
	}

	p, err := scalarParserForKind(goType)
	if err != nil {
		return FieldDescriptor{}, err
	}

	opts := []FieldOption{}
	if key, ok := fieldtag.Param(info.Rules, "key"); ok {
		opts = append(opts, KeyName(key))
	}
	if fieldtag.Has(info.Rules, "optional") {
		opts = append(opts, OptionalField())
	}
	if nullable || fieldtag.Has(info.Rules, "nullable") {
		opts = append(opts, NullableField())
	}
	if fieldtag.Has(info.Rules, "lazy") {
		opts = append(opts, LazyField())
	}
	if fieldtag.Has(info.Rules, "eager") {
		opts = append(opts, EagerField())
	}
	if fieldtag.Has(info.Rules, "override") {
		opts = append(opts, OverridesSupertype())
	}

	return Field(info.GoName, p, opts...), nil
}

func scalarParserForKind(t reflect.Type) (Parser, error) {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Int64(), nil
	case reflect.Bool:
		return Bool(), nil
	case reflect.Float32, reflect.Float64:
		return Float32(), nil
	case reflect.String:
		return Str(), nil
	case reflect.Slice:
		if t.Elem().Kind() == reflect.String {
			return EagerList(Str()), nil
		}
		return nil, fmt.Errorf("unsupported slice element kind %s", t.Elem().Kind())
	default:
		return nil, fmt.Errorf("unsupported field kind %s", t.Kind())
	}
}
