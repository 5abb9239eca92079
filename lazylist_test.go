package protocol

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLazyListDoesNotTouchUnaccessedElements(t *testing.T) {
	item := Schema("Item", WithFields(
		Field("id", Int64()),
	))
	bag := Schema("Bag", WithFields(
		Field("items", LazyListFactory(TypedObject("Item", false)), LazyField()),
	))

	hs, err := NewSession(WithStrictMode()).Build(NewBatch(item, bag))
	require.NoError(t, err)
	h, _ := hs.Handler("Bag")

	// items[0] carries an extra key that strict mode would reject if ever
	// parsed; items[1] is accessed, items[0] and items[2] never are.
	view, err := h.ParseRoot(map[string]any{
		"items": []any{
			map[string]any{"id": float64(1), "extra": "boom"},
			map[string]any{"id": float64(2)},
			map[string]any{"id": float64(3), "extra": "boom"},
		},
	})
	require.NoError(t, err)

	itemsAny, err := view.Get("items")
	require.NoError(t, err)
	list, ok := itemsAny.(*LazyList)
	require.True(t, ok)
	assert.Equal(t, 3, list.Len())

	one, err := list.Get(1)
	require.NoError(t, err, "accessing items[1] must not trigger parsing items[0] or items[2]")
	itemView := one.(*View)
	id, err := itemView.Get("id")
	require.NoError(t, err)
	assert.Equal(t, int64(2), id)
}

func TestLazyListElementAccessIsMemoizedPerIndex(t *testing.T) {
	item := Schema("Item2", WithFields(Field("id", Int64())))
	bag := Schema("Bag2", WithFields(
		Field("items", LazyListFactory(TypedObject("Item2", false)), LazyField()),
	))

	hs, err := NewSession().Build(NewBatch(item, bag))
	require.NoError(t, err)
	h, _ := hs.Handler("Bag2")

	view, err := h.ParseRoot(map[string]any{
		"items": []any{map[string]any{"id": float64(1)}},
	})
	require.NoError(t, err)

	itemsAny, _ := view.Get("items")
	list := itemsAny.(*LazyList)

	var wg sync.WaitGroup
	results := make([]any, 20)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := list.Get(0)
			require.NoError(t, err)
			results[i] = v
		}(i)
	}
	wg.Wait()

	first := results[0].(*View)
	for _, r := range results[1:] {
		assert.Same(t, first, r.(*View), "concurrent accesses to the same index must return the one memoized result")
	}
}

func TestEagerListParsesAllElementsUpFront(t *testing.T) {
	schema := Schema("Tags", WithFields(
		Field("names", EagerList(Str())),
	))

	hs, err := NewSession().Build(NewBatch(schema))
	require.NoError(t, err)
	h, _ := hs.Handler("Tags")

	view, err := h.ParseRoot(map[string]any{"names": []any{"a", "b", "c"}})
	require.NoError(t, err)

	names, err := view.Get("names")
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b", "c"}, names)
}

func TestLazyListIndexOutOfRange(t *testing.T) {
	item := Schema("Item3", WithFields(Field("id", Int64())))
	bag := Schema("Bag3", WithFields(
		Field("items", LazyListFactory(TypedObject("Item3", false)), LazyField()),
	))

	hs, err := NewSession().Build(NewBatch(item, bag))
	require.NoError(t, err)
	h, _ := hs.Handler("Bag3")

	view, err := h.ParseRoot(map[string]any{"items": []any{}})
	require.NoError(t, err)

	itemsAny, _ := view.Get("items")
	list := itemsAny.(*LazyList)

	_, err = list.Get(0)
	require.Error(t, err)
}
