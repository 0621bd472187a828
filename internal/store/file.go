package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FileBackend stores one file per key under a root directory. It is the
// development default for the brief archive. TTLs are not supported; a
// non-zero ttl is accepted but advisory only, which is why job records never
// use this backend.
//
// Indexes are directories of marker files named after their members. Ordering
// is computed by listing the directory and sorting filenames descending,
// which works because members embed the date. Scores are ignored.
type FileBackend struct {
	root string
}

// NewFileBackend creates (if needed) the root directory and returns a backend
// rooted there.
func NewFileBackend(root string) (*FileBackend, error) {
	if root == "" {
		return nil, fmt.Errorf("file backend root is empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, &StorageError{Op: "mkdir", Key: root, Err: err}
	}
	return &FileBackend{root: root}, nil
}

// sanitize flattens characters that are not portable in filenames.
func sanitize(s string) string {
	s = strings.ReplaceAll(s, ":", "__")
	return strings.ReplaceAll(s, string(os.PathSeparator), "_")
}

func (b *FileBackend) keyPath(key string) string {
	return filepath.Join(b.root, sanitize(key)+".json")
}

// Put writes value to the key's file. The write goes through a temp file and
// rename so readers never observe a partial record.
func (b *FileBackend) Put(_ context.Context, key string, value []byte, _ time.Duration) error {
	path := b.keyPath(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, value, 0o644); err != nil {
		return &StorageError{Op: "put", Key: key, Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		return &StorageError{Op: "put", Key: key, Err: err}
	}
	return nil
}

// Get reads the key's file, translating absence into ErrNotFound.
func (b *FileBackend) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(b.keyPath(key))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &StorageError{Op: "get", Key: key, Err: err}
	}
	return data, nil
}

// Delete removes the key's file and reports whether it existed.
func (b *FileBackend) Delete(_ context.Context, key string) (bool, error) {
	err := os.Remove(b.keyPath(key))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, &StorageError{Op: "delete", Key: key, Err: err}
	}
	return true, nil
}

func (b *FileBackend) indexDir(index string) string {
	return filepath.Join(b.root, "index_"+sanitize(index))
}

// IndexAdd records member as a marker file in the index directory. The score
// is not stored; members sort by name, which embeds the date.
func (b *FileBackend) IndexAdd(_ context.Context, index string, _ float64, member string) error {
	dir := b.indexDir(index)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &StorageError{Op: "index add", Key: index, Err: err}
	}
	path := filepath.Join(dir, sanitize(member))
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		return &StorageError{Op: "index add", Key: index, Err: err}
	}
	return nil
}

// IndexRangeDesc lists the index directory and returns up to count members
// starting at offset, sorted by filename descending (newest date first).
func (b *FileBackend) IndexRangeDesc(_ context.Context, index string, offset, count int) ([]string, error) {
	entries, err := os.ReadDir(b.indexDir(index))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, &StorageError{Op: "index range", Key: index, Err: err}
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	if offset >= len(names) || count <= 0 {
		return nil, nil
	}
	end := offset + count
	if end > len(names) {
		end = len(names)
	}
	return names[offset:end], nil
}

// IndexRemove deletes the member's marker file if present.
func (b *FileBackend) IndexRemove(_ context.Context, index, member string) error {
	err := os.Remove(filepath.Join(b.indexDir(index), sanitize(member)))
	if err != nil && !os.IsNotExist(err) {
		return &StorageError{Op: "index remove", Key: index, Err: err}
	}
	return nil
}

// Close releases nothing; files are opened per operation.
func (b *FileBackend) Close() error {
	return nil
}
