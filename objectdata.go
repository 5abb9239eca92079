package protocol

import (
	"fmt"
	"reflect"
	"sync/atomic"
)

// ObjectData is the per-parsed-value state: the raw JSON
// value, an immutable eager field array, an atomically-published lazy
// field array, a back-reference to the compiled handler, and the
// materialized accessor view.
type ObjectData struct {
	raw     any
	handler *TypeHandler

	// eager is written exactly once, during TypeHandler.Parse, before the
	// ObjectData is returned to any caller. No synchronization is needed
	// for reads after construction.
	eager []any

	// lazy holds one atomic slot per lazy-cached field. A nil pointer means
	// unpublished; CompareAndSwap lets the first successful writer win
	// while tolerating redundant concurrent computation.
	lazy []atomic.Pointer[any]

	view *View
}

func newObjectData(raw any, handler *TypeHandler) *ObjectData {
	od := &ObjectData{
		raw:     raw,
		handler: handler,
		eager:   make([]any, handler.slotCount),
		lazy:    make([]atomic.Pointer[any], handler.lazyCount),
	}
	od.view = &View{od: od}
	return od
}

// Raw returns the underlying decoded JSON value this ObjectData was parsed
// from.
func (od *ObjectData) Raw() any { return od.raw }

// View returns the materialized accessor view over this value.
func (od *ObjectData) View() *View { return od.view }

// loadLazy returns the published value at slot i, computing and publishing
// it on first access. A failed computation is never published, so a
// subsequent call may retry; parsers are required to be pure, so repeated
// computation under race is harmless.
func (od *ObjectData) loadLazy(slot int, compute func() (any, error)) (any, error) {
	if cached := od.lazy[slot].Load(); cached != nil {
		return *cached, nil
	}
	v, err := compute()
	if err != nil {
		return nil, err
	}
	published := &v
	if od.lazy[slot].CompareAndSwap(nil, published) {
		return v, nil
	}
	// Someone else published first; use their value for consistency.
	return *od.lazy[slot].Load(), nil
}

// View routes accessor calls to the compiled per-accessor handler table and
// supplies the base accessors: equality, string form, and raw-value
// retrieval.
type View struct {
	od *ObjectData
}

// Get invokes the named accessor. Field accessors that require a JSON
// object backing fail with ErrNotObject when the underlying raw value is
// not an object, which can only happen for manually-subtyped schemas
// parsed through ParseAny.
func (v *View) Get(name string) (any, error) {
	entry, ok := v.od.handler.accessors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAccessor, name)
	}
	return entry.fn(v.od)
}

// Raw returns the underlying decoded JSON value.
func (v *View) Raw() any { return v.od.raw }

// SchemaID returns the identity of the schema this view was parsed as.
func (v *View) SchemaID() SchemaID { return v.od.handler.id }

// String renders a compact debug form: schema identity plus raw value.
func (v *View) String() string {
	return fmt.Sprintf("%s%v", v.od.handler.id, v.od.raw)
}

// Equal reports whether two views were parsed under the same schema from
// structurally equal raw JSON. Two independent parses of identical input
// produce decoded values that compare equal under reflect.DeepEqual, which
// is the accessor-output equality callers rely on.
func (v *View) Equal(other *View) bool {
	if other == nil {
		return false
	}
	if v.od.handler.id != other.od.handler.id {
		return false
	}
	return reflect.DeepEqual(v.od.raw, other.od.raw)
}
