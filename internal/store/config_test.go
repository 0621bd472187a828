package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelect_GenericKVWhenURLPresent(t *testing.T) {
	backends, err := Select(Config{
		KVRestURL:   "http://kv.example.test",
		KVRestToken: "token",
	})
	require.NoError(t, err)
	defer backends.Close()

	assert.IsType(t, &KVBackend{}, backends.Archive)
	assert.Same(t, backends.Archive, backends.Jobs)
}

func TestSelect_MemoryInHostedEnvironment(t *testing.T) {
	backends, err := Select(Config{Hosted: true})
	require.NoError(t, err)
	defer backends.Close()

	assert.IsType(t, &MemoryBackend{}, backends.Archive)
	assert.Same(t, backends.Archive, backends.Jobs)
}

func TestSelect_FileDefaultSplitsJobStorage(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	backends, err := Select(Config{DataDir: dir})
	require.NoError(t, err)
	defer backends.Close()

	assert.IsType(t, &FileBackend{}, backends.Archive)
	// The file backend cannot expire keys; job records go to memory.
	assert.IsType(t, &MemoryBackend{}, backends.Jobs)
}

func TestSelect_KVOutranksHostedFlag(t *testing.T) {
	backends, err := Select(Config{
		KVRestURL: "http://kv.example.test",
		Hosted:    true,
	})
	require.NoError(t, err)
	defer backends.Close()

	assert.IsType(t, &KVBackend{}, backends.Archive)
}
