package protocol

import "fmt"

// autoCaseCompiled is one compiled automatic-subtype case. target is
// looked up when Session.Build's wire-subtypes phase compiles the case, and
// stays nil for the default case.
type autoCaseCompiled struct {
	name      string
	condition Condition
	target    *TypeHandler
	isDefault bool
}

// subtypeSupport is the compiled subtype-dispatch block: which mode the
// schema uses, its ordered automatic cases (if any), and the two reserved
// slots automatic mode allocates for the matched variant's code and value.
type subtypeSupport struct {
	mode             SubtypeMode
	autoCases        []autoCaseCompiled
	hasDefault       bool
	variantCodeSlot  int
	variantValueSlot int
}

// dispatch runs the automatic-mode matching procedure: iterate declared
// subtypes in order, require exactly one condition match (unless
// a default case was declared), parse the raw JSON under the matched
// handler, and publish the variant code and value into the two reserved
// slots.
func (s *subtypeSupport) dispatch(od *ObjectData) error {
	if s.mode != AutomaticSubtyping {
		return nil
	}
	obj, ok := od.raw.(map[string]any)
	if !ok {
		return fmt.Errorf("%w: schema %s", ErrNotObject, od.handler.id)
	}

	matched := -1
	for i, c := range s.autoCases {
		if c.isDefault {
			continue
		}
		if c.condition(obj) {
			if matched != -1 {
				return newParseError(od.handler.id, "", nil, ErrSubtypeAmbiguous)
			}
			matched = i
		}
	}

	if matched == -1 {
		if !s.hasDefault {
			return newParseError(od.handler.id, "", nil, ErrSubtypeUnmatched)
		}
		od.eager[s.variantCodeSlot] = -1
		od.eager[s.variantValueSlot] = (*ObjectData)(nil)
		return nil
	}

	target := s.autoCases[matched].target
	subOD, err := target.Parse(od.raw, od)
	if err != nil {
		return err
	}
	od.eager[s.variantCodeSlot] = matched
	od.eager[s.variantValueSlot] = subOD
	return nil
}

// autoCaseAccessor builds the accessor for one declared automatic subtype
// case: it returns the matched variant's view iff this case's index is the
// one that matched, else NoValue. The default case's accessor is void-typed
// and always reports NoValue, since it exists only to name the "nothing
// matched" branch.
func autoCaseAccessor(s *subtypeSupport, index int) accessorFunc {
	if s.autoCases[index].isDefault {
		return func(*ObjectData) (any, error) { return NoValue, nil }
	}
	return func(od *ObjectData) (any, error) {
		code, _ := od.eager[s.variantCodeSlot].(int)
		if code != index {
			return NoValue, nil
		}
		subOD, _ := od.eager[s.variantValueSlot].(*ObjectData)
		if subOD == nil {
			return NoValue, nil
		}
		return subOD.View(), nil
	}
}

// manualCasterAccessor builds the lazy cached reinterpretation-cast
// accessor for manual mode: on first call, reparse the same underlying raw
// value under the target handler and cache the view. target is resolved up
// front during Session.Build's analyze pass, since every handler in a
// batch is seeded with a stable address before any schema's accessors are
// compiled. A reparse failure surfaces wrapped in RuntimeAccessError, same
// as any other lazy accessor.
func manualCasterAccessor(caster ManualCaster, target *TypeHandler, schemaID SchemaID, lazySlot int) accessorFunc {
	return func(od *ObjectData) (any, error) {
		v, err := od.loadLazy(lazySlot, func() (any, error) {
			subOD, err := target.Parse(od.raw, od)
			if err != nil {
				return nil, newParseError(schemaID, caster.Name, nil, err)
			}
			return subOD.View(), nil
		})
		if err != nil {
			return nil, wrapLazy(asParseError(schemaID, caster.Name, "", err))
		}
		return v, nil
	}
}
