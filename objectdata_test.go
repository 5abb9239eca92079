package protocol

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingObjParser behaves like Obj() and counts how many times ParseValue
// runs; since Quick reports false, a LazyField of it takes the lazy-cached,
// CAS-published path.
type countingObjParser struct {
	baseParser
	calls *int64
}

func (countingObjParser) Quick() bool     { return false }
func (countingObjParser) Kind() valueKind { return kindReference }
func (p countingObjParser) ParseValue(raw any, _ *ObjectData) (any, error) {
	atomic.AddInt64(p.calls, 1)
	o, ok := raw.(map[string]any)
	if !ok {
		return nil, ErrTypeMismatch
	}
	return o, nil
}

func TestLazyCachedFieldPublishesOnce(t *testing.T) {
	var calls int64
	schema := Schema("Counted", WithFields(
		Field("nested", countingObjParser{calls: &calls}, LazyField()),
	))

	hs, err := NewSession().Build(NewBatch(schema))
	require.NoError(t, err)
	h, _ := hs.Handler("Counted")

	view, err := h.ParseRoot(map[string]any{"nested": map[string]any{"a": float64(1)}})
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]any, 50)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := view.Get("nested")
			require.NoError(t, err)
			results[i] = v
		}(i)
	}
	wg.Wait()

	first := results[0]
	for _, r := range results[1:] {
		assert.Equal(t, first, r, "every call must observe the first successful computation's result")
	}
}

func TestParsingSameRawTwiceYieldsEqualViews(t *testing.T) {
	schema := Schema("Point", WithFields(
		Field("x", Int64()),
		Field("y", Int64()),
	))
	hs, err := NewSession().Build(NewBatch(schema))
	require.NoError(t, err)
	h, _ := hs.Handler("Point")

	raw := map[string]any{"x": float64(1), "y": float64(2)}
	v1, err := h.ParseRoot(raw)
	require.NoError(t, err)
	v2, err := h.ParseRoot(raw)
	require.NoError(t, err)

	assert.True(t, v1.Equal(v2), "parsing the same raw value twice should yield equal views")
}

func TestViewGetUnknownAccessorFails(t *testing.T) {
	schema := Schema("Point", WithFields(Field("x", Int64())))
	hs, err := NewSession().Build(NewBatch(schema))
	require.NoError(t, err)
	h, _ := hs.Handler("Point")

	view, err := h.ParseRoot(map[string]any{"x": float64(1)})
	require.NoError(t, err)

	_, err = view.Get("nonexistent")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownAccessor)
}
