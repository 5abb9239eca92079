package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecoderParseRequiresObject(t *testing.T) {
	schema := Schema("Point", WithFields(Field("x", Int64())))
	hs, err := NewSession().Build(NewBatch(schema))
	require.NoError(t, err)

	d := NewDecoder(hs)
	_, err = d.Parse([]any{1, 2, 3}, "Point")
	require.Error(t, err, "Parse should reject a non-object raw value")
	assert.ErrorIs(t, err, ErrNotObject)
}

func TestDecoderParseUnknownSchema(t *testing.T) {
	hs, err := NewSession().Build(NewBatch())
	require.NoError(t, err)

	d := NewDecoder(hs)
	_, err = d.Parse(map[string]any{}, "Nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownSchema)
}

func TestDecoderParseAnyManualSubtypingCast(t *testing.T) {
	asInt := Schema("FacadeAsInt", WithFields(Field("value", Int64())))
	union := Schema("FacadeUnion", WithManualSubtypes(
		Caster("asInt", "FacadeAsInt", true),
	))

	hs, err := NewSession().Build(NewBatch(asInt, union))
	require.NoError(t, err)

	d := NewDecoder(hs)
	view, err := d.ParseAny(map[string]any{"value": float64(9)}, "FacadeUnion")
	require.NoError(t, err)

	asIntView, err := view.Get("asInt")
	require.NoError(t, err)
	v, err := asIntView.(*View).Get("value")
	require.NoError(t, err)
	assert.Equal(t, int64(9), v)
}

func TestDecoderParseHappyPath(t *testing.T) {
	schema := Schema("Point", WithFields(
		Field("x", Int64()),
		Field("y", Int64()),
	))
	hs, err := NewSession().Build(NewBatch(schema))
	require.NoError(t, err)

	d := NewDecoder(hs)
	view, err := d.Parse(map[string]any{"x": float64(1), "y": float64(2)}, "Point")
	require.NoError(t, err)

	x, err := view.Get("x")
	require.NoError(t, err)
	assert.Equal(t, int64(1), x)
}
