package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"
)

// kvRequestTimeout bounds each REST round trip to the KV service.
const kvRequestTimeout = 10 * time.Second

// KVBackend talks to a generic REST key-value service (URL + bearer token).
// Only GET/SET/DEL commands are assumed, with values serialized to text.
// The service has no native expiry, so TTLs are emulated by wrapping each
// value in an envelope carrying an absolute expiry, checked lazily on the
// read that discovers it. Ordered indexes are emulated as a JSON document
// stored under a regular key and rewritten on every change.
type KVBackend struct {
	url    string
	token  string
	client *http.Client
}

// NewKVBackend returns a backend for the REST KV service at url.
func NewKVBackend(url, token string) (*KVBackend, error) {
	if url == "" {
		return nil, fmt.Errorf("kv backend URL is empty")
	}
	return &KVBackend{
		url:    url,
		token:  token,
		client: &http.Client{Timeout: kvRequestTimeout},
	}, nil
}

// kvEnvelope wraps a stored value with its optional absolute expiry.
type kvEnvelope struct {
	ExpiresAt int64  `json:"expires_at,omitempty"` // unix seconds, 0 = never
	Payload   []byte `json:"payload"`
}

// command executes a single REST command ([GET key], [SET key value],
// [DEL key]) and returns the raw result field.
func (b *KVBackend) command(ctx context.Context, cmd []string) (json.RawMessage, error) {
	body, err := json.Marshal(cmd)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if b.token != "" {
		req.Header.Set("Authorization", "Bearer "+b.token)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("kv service returned %d: %s", resp.StatusCode, data)
	}

	var parsed struct {
		Result json.RawMessage `json:"result"`
		Error  string          `json:"error,omitempty"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("unparseable kv response: %w", err)
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("kv service error: %s", parsed.Error)
	}
	return parsed.Result, nil
}

// getString runs GET and returns the stored text, or ErrNotFound on null.
func (b *KVBackend) getString(ctx context.Context, key string) (string, error) {
	result, err := b.command(ctx, []string{"GET", key})
	if err != nil {
		return "", &StorageError{Op: "get", Key: key, Err: err}
	}
	if len(result) == 0 || string(result) == "null" {
		return "", ErrNotFound
	}
	var s string
	if err := json.Unmarshal(result, &s); err != nil {
		return "", &StorageError{Op: "get", Key: key, Err: err}
	}
	return s, nil
}

func (b *KVBackend) setString(ctx context.Context, key, value string) error {
	if _, err := b.command(ctx, []string{"SET", key, value}); err != nil {
		return &StorageError{Op: "put", Key: key, Err: err}
	}
	return nil
}

// Put stores value under key. With a non-zero ttl the envelope records an
// absolute expiry that Get enforces.
func (b *KVBackend) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	env := kvEnvelope{Payload: value}
	if ttl > 0 {
		env.ExpiresAt = time.Now().Add(ttl).Unix()
	}
	text, err := json.Marshal(env)
	if err != nil {
		return &StorageError{Op: "put", Key: key, Err: err}
	}
	return b.setString(ctx, key, string(text))
}

// Get returns the value for key. An entry whose emulated TTL has elapsed is
// deleted by the read that discovers it and reported as ErrNotFound.
func (b *KVBackend) Get(ctx context.Context, key string) ([]byte, error) {
	text, err := b.getString(ctx, key)
	if err != nil {
		return nil, err
	}
	var env kvEnvelope
	if err := json.Unmarshal([]byte(text), &env); err != nil {
		return nil, &StorageError{Op: "get", Key: key, Err: err}
	}
	if env.ExpiresAt > 0 && time.Now().Unix() >= env.ExpiresAt {
		// Lazy eviction; a failed cleanup is not surfaced to the reader.
		_, _ = b.command(ctx, []string{"DEL", key})
		return nil, ErrNotFound
	}
	return env.Payload, nil
}

// Delete removes key and reports whether a live entry was removed.
func (b *KVBackend) Delete(ctx context.Context, key string) (bool, error) {
	result, err := b.command(ctx, []string{"DEL", key})
	if err != nil {
		return false, &StorageError{Op: "delete", Key: key, Err: err}
	}
	var n int64
	if err := json.Unmarshal(result, &n); err != nil {
		return false, &StorageError{Op: "delete", Key: key, Err: err}
	}
	return n > 0, nil
}

// kvIndex is the emulated ordered set, kept sorted descending by score.
type kvIndex struct {
	Entries []kvIndexEntry `json:"entries"`
}

type kvIndexEntry struct {
	Score  float64 `json:"score"`
	Member string  `json:"member"`
}

func indexKey(index string) string {
	return "idx:" + index
}

func (b *KVBackend) readIndex(ctx context.Context, index string) (*kvIndex, error) {
	text, err := b.getString(ctx, indexKey(index))
	if err == ErrNotFound {
		return &kvIndex{}, nil
	}
	if err != nil {
		return nil, err
	}
	var idx kvIndex
	if err := json.Unmarshal([]byte(text), &idx); err != nil {
		return nil, &StorageError{Op: "index parse", Key: index, Err: err}
	}
	return &idx, nil
}

func (b *KVBackend) writeIndex(ctx context.Context, index string, idx *kvIndex) error {
	sort.SliceStable(idx.Entries, func(i, j int) bool {
		return idx.Entries[i].Score > idx.Entries[j].Score
	})
	text, err := json.Marshal(idx)
	if err != nil {
		return &StorageError{Op: "index encode", Key: index, Err: err}
	}
	return b.setString(ctx, indexKey(index), string(text))
}

// IndexAdd inserts or rescores member in the emulated index. The update is a
// read-modify-write; concurrent writers are last-write-wins, same as every
// other key in the system.
func (b *KVBackend) IndexAdd(ctx context.Context, index string, score float64, member string) error {
	idx, err := b.readIndex(ctx, index)
	if err != nil {
		return err
	}
	for i := range idx.Entries {
		if idx.Entries[i].Member == member {
			idx.Entries[i].Score = score
			return b.writeIndex(ctx, index, idx)
		}
	}
	idx.Entries = append(idx.Entries, kvIndexEntry{Score: score, Member: member})
	return b.writeIndex(ctx, index, idx)
}

// IndexRangeDesc returns up to count members starting at offset, highest
// score first.
func (b *KVBackend) IndexRangeDesc(ctx context.Context, index string, offset, count int) ([]string, error) {
	idx, err := b.readIndex(ctx, index)
	if err != nil {
		return nil, err
	}
	if offset >= len(idx.Entries) || count <= 0 {
		return nil, nil
	}
	end := offset + count
	if end > len(idx.Entries) {
		end = len(idx.Entries)
	}
	members := make([]string, 0, end-offset)
	for _, e := range idx.Entries[offset:end] {
		members = append(members, e.Member)
	}
	return members, nil
}

// IndexRemove removes member from the emulated index if present.
func (b *KVBackend) IndexRemove(ctx context.Context, index, member string) error {
	idx, err := b.readIndex(ctx, index)
	if err != nil {
		return err
	}
	for i := range idx.Entries {
		if idx.Entries[i].Member == member {
			idx.Entries = append(idx.Entries[:i], idx.Entries[i+1:]...)
			return b.writeIndex(ctx, index, idx)
		}
	}
	return nil
}

// Close releases nothing; the HTTP client holds no persistent connections
// worth tearing down explicitly.
func (b *KVBackend) Close() error {
	return nil
}
