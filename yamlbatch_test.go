package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadYAMLBatchBuildsAndParses(t *testing.T) {
	doc := []byte(`
schemas:
  - id: Point
    fields:
      - name: x
        type: int64
      - name: y
        type: int64
  - id: Name
    fields:
      - name: middle
        type: string
        key: middleName
        optional: true
        nullable: true
        strategy: lazy
`)

	batch, err := LoadYAMLBatch(doc)
	require.NoError(t, err)

	hs, err := NewSession().Build(batch)
	require.NoError(t, err)

	point, ok := hs.Handler("Point")
	require.True(t, ok)
	view, err := point.ParseRoot(map[string]any{"x": float64(3), "y": float64(4)})
	require.NoError(t, err)
	x, err := view.Get("x")
	require.NoError(t, err)
	assert.Equal(t, int64(3), x)

	name, ok := hs.Handler("Name")
	require.True(t, ok)
	view, err = name.ParseRoot(map[string]any{})
	require.NoError(t, err)
	middle, err := view.Get("middle")
	require.NoError(t, err)
	assert.True(t, IsNoValue(middle))
}

func TestLoadYAMLBatchRejectsUnsupportedType(t *testing.T) {
	doc := []byte(`
schemas:
  - id: Bad
    fields:
      - name: thing
        type: nosuchtype
`)

	_, err := LoadYAMLBatch(doc)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidYAMLBatch)
}

func TestLoadYAMLBatchRejectsMalformedDocument(t *testing.T) {
	_, err := LoadYAMLBatch([]byte("schemas: [this is not valid"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidYAMLBatch)
}
