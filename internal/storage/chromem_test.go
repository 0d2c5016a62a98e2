package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChromemIndex_QueryFiltersByOwner(t *testing.T) {
	idx, err := NewChromemIndex("")
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, "1:cidade", []float32{1, 0, 0}))
	require.NoError(t, idx.Upsert(ctx, "1:time", []float32{0, 1, 0}))
	require.NoError(t, idx.Upsert(ctx, "2:cidade", []float32{1, 0, 0}))

	matches, err := idx.Query(ctx, []float32{1, 0.1, 0}, 5, "1:")
	require.NoError(t, err)
	require.Len(t, matches, 2)
	require.Equal(t, "1:cidade", matches[0].ID)
	for _, m := range matches {
		require.NotEqual(t, "2:cidade", m.ID)
	}
}

func TestChromemIndex_UpsertOverwrites(t *testing.T) {
	idx, err := NewChromemIndex("")
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, "1:cidade", []float32{1, 0}))
	require.NoError(t, idx.Upsert(ctx, "1:cidade", []float32{0, 1}))

	matches, err := idx.Query(ctx, []float32{0, 1}, 3, "1:")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.InDelta(t, 1.0, matches[0].Score, 1e-4)
}

func TestChromemIndex_EmptyCollection(t *testing.T) {
	idx, err := NewChromemIndex("")
	require.NoError(t, err)

	matches, err := idx.Query(context.Background(), []float32{1, 0}, 3, "1:")
	require.NoError(t, err)
	require.Empty(t, matches)
}
