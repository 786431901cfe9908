package backup

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileBlob(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "nested")
	b := NewFileBlob(dir)

	names, err := b.List(ctx)
	require.NoError(t, err, "a missing directory lists as empty")
	require.Empty(t, names)

	require.NoError(t, b.Put(ctx, "atelier-1.json", []byte("one")))
	require.NoError(t, b.Put(ctx, "atelier-0.json", []byte("zero")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))

	names, err = b.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"atelier-0.json", "atelier-1.json"}, names)

	data, err := b.Get(ctx, "atelier-1.json")
	require.NoError(t, err)
	require.Equal(t, []byte("one"), data)

	_, err = b.Get(ctx, "atelier-9.json")
	require.ErrorIs(t, err, ErrSnapshotNotFound)

	require.Error(t, b.Put(ctx, "../escape.json", nil))
	_, err = b.Get(ctx, "..")
	require.Error(t, err)
}
