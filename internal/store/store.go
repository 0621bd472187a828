// Package store provides the persistence layer: a single key-value plus
// ordered-index contract implemented by several incompatible backends
// (local filesystem, in-process memory, Redis, and a generic REST key-value
// service). The backend is chosen once at startup; callers only ever see
// the Backend interface.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by Get when a key is absent or its TTL has elapsed.
// Absence is a normal outcome, not a storage failure.
var ErrNotFound = errors.New("store: key not found")

// StorageError wraps a backend failure (connectivity, IO, protocol). It is
// never swallowed at this layer; callers decide whether it is fatal.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("storage error: %s %q: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("storage error: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Backend is the storage contract implemented identically by all variants.
//
// Put stores value under key; a zero ttl means no expiry. Backends without
// native expiry either emulate it (memory, generic KV) or do not support it
// at all (file), in which case a non-zero ttl is advisory only.
//
// IndexAdd/IndexRangeDesc/IndexRemove maintain an ordered index of members
// scored by a float (in practice a unix timestamp). IndexRangeDesc returns
// members highest-score first.
type Backend interface {
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) (bool, error)

	IndexAdd(ctx context.Context, index string, score float64, member string) error
	IndexRangeDesc(ctx context.Context, index string, offset, count int) ([]string, error)
	IndexRemove(ctx context.Context, index, member string) error

	Close() error
}
