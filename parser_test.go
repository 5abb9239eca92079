package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScalarRoundTrip(t *testing.T) {
	point := Schema("Point", WithFields(
		Field("x", Int64()),
		Field("y", Int64()),
	))

	hs, err := NewSession().Build(NewBatch(point))
	require.NoError(t, err, "building Point schema")

	h, ok := hs.Handler("Point")
	require.True(t, ok, "Point handler missing from set")

	view, err := h.ParseRoot(map[string]any{"x": float64(3), "y": float64(-7)})
	require.NoError(t, err, "parsing well-formed point")

	x, err := view.Get("x")
	require.NoError(t, err)
	assert.Equal(t, int64(3), x)

	y, err := view.Get("y")
	require.NoError(t, err)
	assert.Equal(t, int64(-7), y)

	_, err = h.ParseRoot(map[string]any{"x": float64(3)})
	require.Error(t, err, "missing non-optional field y should fail")
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestNullableVsOptional(t *testing.T) {
	name := Schema("Name", WithFields(
		Field("middle", Nullable(Str()), OptionalField(), NullableField()),
	))

	hs, err := NewSession().Build(NewBatch(name))
	require.NoError(t, err)
	h, _ := hs.Handler("Name")

	view, err := h.ParseRoot(map[string]any{"middle": nil})
	require.NoError(t, err)
	v, err := view.Get("middle")
	require.NoError(t, err)
	assert.True(t, IsNoValue(v), "null middle name should be no-value")

	view, err = h.ParseRoot(map[string]any{})
	require.NoError(t, err)
	v, err = view.Get("middle")
	require.NoError(t, err)
	assert.True(t, IsNoValue(v), "absent middle name should be no-value")

	view, err = h.ParseRoot(map[string]any{"middle": "Q"})
	require.NoError(t, err)
	v, err = view.Get("middle")
	require.NoError(t, err)
	assert.Equal(t, "Q", v)

	_, err = h.ParseRoot(map[string]any{"middle": float64(5)})
	require.Error(t, err, "non-string middle name should fail")
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestIllegalNullabilityOnPrimitive(t *testing.T) {
	bad := Schema("Bad", WithFields(
		Field("n", Int64(), NullableField()),
	))

	_, err := NewSession().Build(NewBatch(bad))
	require.Error(t, err, "nullable int64 field should be rejected at build time")
	assert.ErrorIs(t, err, ErrIllegalNullability)
}

func TestEnumParser(t *testing.T) {
	color := Enum("Color", "red", "green", "blue")
	schema := Schema("Thing", WithFields(
		Field("color", color),
	))

	hs, err := NewSession().Build(NewBatch(schema))
	require.NoError(t, err)
	h, _ := hs.Handler("Thing")

	view, err := h.ParseRoot(map[string]any{"color": "green"})
	require.NoError(t, err)
	v, err := view.Get("color")
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	_, err = h.ParseRoot(map[string]any{"color": "purple"})
	require.Error(t, err, "unknown enum name should fail")
	assert.ErrorIs(t, err, ErrUnknownEnumName)
}

func TestRawJSONScalarDeterministicEncoding(t *testing.T) {
	schema := Schema("Blob", WithFields(
		Field("payload", RawJSONScalar()),
	))

	hs, err := NewSession().Build(NewBatch(schema))
	require.NoError(t, err)
	h, _ := hs.Handler("Blob")

	view1, err := h.ParseRoot(map[string]any{"payload": map[string]any{"b": float64(2), "a": float64(1)}})
	require.NoError(t, err)
	p1, err := view1.Get("payload")
	require.NoError(t, err)

	view2, err := h.ParseRoot(map[string]any{"payload": map[string]any{"a": float64(1), "b": float64(2)}})
	require.NoError(t, err)
	p2, err := view2.Get("payload")
	require.NoError(t, err)

	assert.Equal(t, p1.(RawJSON), p2.(RawJSON), "deterministic re-encoding should ignore input key order")
}
