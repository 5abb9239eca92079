package protocol

import (
	"fmt"

	"github.com/goccy/go-yaml"
)

// yamlBatchDoc is the declarative schema-batch document shape, a scalar-
// only convenience surface for application/yaml schema declarations: a
// caller who would rather hand the parser a config file than call the
// builder API declares scalar fields here. Schemas needing nested-schema
// references or subtyping still go through Schema/Field.
type yamlBatchDoc struct {
	Schemas []yamlSchemaDoc `yaml:"schemas"`
}

type yamlSchemaDoc struct {
	ID        string         `yaml:"id"`
	Supertype string         `yaml:"supertype,omitempty"`
	Fields    []yamlFieldDoc `yaml:"fields"`
}

type yamlFieldDoc struct {
	Name     string `yaml:"name"`
	Key      string `yaml:"key,omitempty"`
	Type     string `yaml:"type"`
	Optional bool   `yaml:"optional,omitempty"`
	Nullable bool   `yaml:"nullable,omitempty"`
	Strategy string `yaml:"strategy,omitempty"`
}

// LoadYAMLBatch decodes a declarative schema-batch document into a Batch
// ready for Session.Build.
func LoadYAMLBatch(data []byte) (*Batch, error) {
	var doc yamlBatchDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAMLBatch, err)
	}

	descriptors := make([]*SchemaDescriptor, 0, len(doc.Schemas))
	for _, s := range doc.Schemas {
		sd := Schema(SchemaID(s.ID))
		if s.Supertype != "" {
			sd.Supertype = SchemaID(s.Supertype)
			sd.HasSuper = true
		}
		for _, f := range s.Fields {
			fd, err := yamlFieldDescriptor(f)
			if err != nil {
				return nil, fmt.Errorf("%w: schema %s field %s: %v", ErrInvalidYAMLBatch, s.ID, f.Name, err)
			}
			sd.Fields = append(sd.Fields, fd)
		}
		descriptors = append(descriptors, sd)
	}
	return NewBatch(descriptors...), nil
}

func yamlFieldDescriptor(f yamlFieldDoc) (FieldDescriptor, error) {
	p, err := scalarParserForName(f.Type)
	if err != nil {
		return FieldDescriptor{}, err
	}

	var opts []FieldOption
	if f.Key != "" {
		opts = append(opts, KeyName(f.Key))
	}
	if f.Optional {
		opts = append(opts, OptionalField())
	}
	if f.Nullable {
		opts = append(opts, NullableField())
	}
	switch f.Strategy {
	case "lazy":
		opts = append(opts, LazyField())
	case "eager":
		opts = append(opts, EagerField())
	case "", "auto":
	default:
		return FieldDescriptor{}, fmt.Errorf("unknown strategy %q", f.Strategy)
	}

	return Field(f.Name, p, opts...), nil
}

func scalarParserForName(name string) (Parser, error) {
	switch name {
	case "int64":
		return Int64(), nil
	case "bool":
		return Bool(), nil
	case "float32":
		return Float32(), nil
	case "string":
		return Str(), nil
	case "object":
		return Obj(), nil
	case "rawjson":
		return RawJSONScalar(), nil
	default:
		return nil, fmt.Errorf("unsupported scalar type %q", name)
	}
}
