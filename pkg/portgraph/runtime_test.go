package portgraph

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowgraph/portgraph/pkg/prebuilt"
)

func TestRuntime_SaveLoadPrune(t *testing.T) {
	rt, err := NewRuntime()
	require.NoError(t, err)
	ctx := context.Background()

	m, err := prebuilt.Chain(prebuilt.ChainConfig{Size: 2, Operations: []string{"negate"}})
	require.NoError(t, err)

	rec, err := rt.Save(ctx, "chain", m, "demo")
	require.NoError(t, err)
	assert.Equal(t, m.ID(), rec.ID)

	loaded, err := rt.Load(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, m.Len(), loaded.Len())

	records, err := rt.List(ctx, Filter{Tags: []string{"demo"}})
	require.NoError(t, err)
	require.Len(t, records, 1)

	removed, err := rt.Prune(ctx, rec.ID)
	require.NoError(t, err)
	assert.Empty(t, removed)

	require.NoError(t, rt.Delete(ctx, rec.ID))
	_, err = rt.Load(ctx, rec.ID)
	assert.Error(t, err)
}

func TestRuntime_ImportExport(t *testing.T) {
	rt, err := NewRuntime(WithEncryptionKey(bytes.Repeat([]byte{7}, 32)))
	require.NoError(t, err)
	ctx := context.Background()

	m, err := prebuilt.Reduction(prebuilt.ReductionConfig{Inputs: 2, Size: 3})
	require.NoError(t, err)
	rec, err := rt.Save(ctx, "reduction", m)
	require.NoError(t, err)

	yaml, err := ParseEncoding("yaml+gzip")
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, rt.Export(ctx, rec.ID, &buf, yaml))

	other, err := NewRuntime()
	require.NoError(t, err)
	imported, err := other.Import(ctx, "copy", &buf, yaml)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, imported.ID)
	assert.Equal(t, "copy", imported.Name)
}
