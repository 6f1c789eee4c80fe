package storage

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreRoundtrip(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	content := []byte("lab results pdf")
	key, err := store.Put(bytes.NewReader(content), int64(len(content)), "application/pdf", ".pdf")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(key, ".pdf"))

	blob, err := store.Get(key)
	require.NoError(t, err)
	defer blob.Close()

	got, err := io.ReadAll(blob)
	require.NoError(t, err)
	assert.Equal(t, content, got)

	require.NoError(t, store.Delete(key))
	_, err = store.Get(key)
	assert.Error(t, err)
}

func TestLocalStoreRejectsEscapingKeys(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{
		"../../etc/passwd",
		"..%2F..%2Fsecret",
		"/../outside",
	} {
		if _, err := store.Get(key); err == nil {
			// Cleaned keys must always resolve inside the base directory;
			// a nil error would mean the file exists out there.
			t.Errorf("expected error for key %q", key)
		}
	}
}

func TestLocalStoreKeysAreUnique(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	a, err := store.Put(strings.NewReader("x"), 1, "text/plain", ".txt")
	require.NoError(t, err)
	b, err := store.Put(strings.NewReader("x"), 1, "text/plain", ".txt")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}
