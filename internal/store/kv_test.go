package store

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeKVService implements the minimal GET/SET/DEL REST surface the generic
// KV backend assumes.
type fakeKVService struct {
	mu   sync.Mutex
	data map[string]string
}

func newFakeKVService() *fakeKVService {
	return &fakeKVService{data: make(map[string]string)}
}

func (f *fakeKVService) handler(w http.ResponseWriter, r *http.Request) {
	var cmd []string
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil || len(cmd) == 0 {
		http.Error(w, `{"error":"bad command"}`, http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	var result any
	switch cmd[0] {
	case "GET":
		if v, ok := f.data[cmd[1]]; ok {
			result = v
		}
	case "SET":
		f.data[cmd[1]] = cmd[2]
		result = "OK"
	case "DEL":
		if _, ok := f.data[cmd[1]]; ok {
			delete(f.data, cmd[1])
			result = 1
		} else {
			result = 0
		}
	default:
		http.Error(w, `{"error":"unknown command"}`, http.StatusBadRequest)
		return
	}

	_ = json.NewEncoder(w).Encode(map[string]any{"result": result})
}

func newKVBackendForTest(t *testing.T) *KVBackend {
	t.Helper()
	svc := newFakeKVService()
	srv := httptest.NewServer(http.HandlerFunc(svc.handler))
	t.Cleanup(srv.Close)

	b, err := NewKVBackend(srv.URL, "test-token")
	require.NoError(t, err)
	return b
}

func TestKVBackend_PutGetDelete(t *testing.T) {
	b := newKVBackendForTest(t)
	ctx := context.Background()

	_, err := b.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, b.Put(ctx, "brief:2026-02-22", []byte("payload"), 0))

	got, err := b.Get(ctx, "brief:2026-02-22")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)

	removed, err := b.Delete(ctx, "brief:2026-02-22")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = b.Delete(ctx, "brief:2026-02-22")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestKVBackend_TTLEmulation(t *testing.T) {
	if testing.Short() {
		t.Skip("sleeps for emulated TTL expiry")
	}

	b := newKVBackendForTest(t)
	ctx := context.Background()

	require.NoError(t, b.Put(ctx, "job:abc", []byte("state"), time.Second))

	got, err := b.Get(ctx, "job:abc")
	require.NoError(t, err)
	assert.Equal(t, []byte("state"), got)

	time.Sleep(2 * time.Second)

	_, err = b.Get(ctx, "job:abc")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestKVBackend_IndexEmulation(t *testing.T) {
	b := newKVBackendForTest(t)
	ctx := context.Background()

	require.NoError(t, b.IndexAdd(ctx, "briefs:index", 2, "2026-02-21"))
	require.NoError(t, b.IndexAdd(ctx, "briefs:index", 1, "2026-02-20"))
	require.NoError(t, b.IndexAdd(ctx, "briefs:index", 3, "2026-02-22"))

	members, err := b.IndexRangeDesc(ctx, "briefs:index", 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-02-22", "2026-02-21"}, members)

	require.NoError(t, b.IndexRemove(ctx, "briefs:index", "2026-02-22"))
	members, err = b.IndexRangeDesc(ctx, "briefs:index", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-02-21", "2026-02-20"}, members)
}

func TestKVBackend_ConnectivityFailureIsStorageError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	b, err := NewKVBackend(url, "")
	require.NoError(t, err)

	err = b.Put(context.Background(), "k", []byte("v"), 0)
	var serr *StorageError
	assert.ErrorAs(t, err, &serr)
}
