package memory

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"

	"github.com/shpitdev/dependents-outreach/internal/mockupstream"
	"github.com/shpitdev/dependents-outreach/pkg/mem0"
)

func TestNormalizeBackend(t *testing.T) {
	tests := []struct {
		in        string
		want      string
		expectErr bool
	}{
		{in: "", want: BackendMem0},
		{in: "MEM0", want: BackendMem0},
		{in: " redis ", want: BackendRedis},
		{in: "sqlite", expectErr: true},
	}
	for _, tt := range tests {
		got, err := NormalizeBackend(tt.in)
		if tt.expectErr {
			if err == nil {
				t.Fatalf("%q: expected error", tt.in)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("%q: got %q err=%v", tt.in, got, err)
		}
	}
}

func newMem0Store(t *testing.T) (*Mem0Store, *mockupstream.Server) {
	t.Helper()
	srv := mockupstream.New()
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	client, err := mem0.NewClient(mem0.Config{BaseURL: ts.URL, APIKey: "m0"})
	if err != nil {
		t.Fatalf("new mem0 client: %v", err)
	}
	return NewMem0Store(client), srv
}

func TestMem0StoreRoundTrip(t *testing.T) {
	store, srv := newMem0Store(t)
	ctx := context.Background()

	if err := store.Remember(ctx, "alice", "likes go"); err != nil {
		t.Fatalf("Remember: %v", err)
	}
	if err := store.Remember(ctx, "alice", "likes go"); err != nil {
		t.Fatalf("Remember again: %v", err)
	}
	got, err := store.Recall(ctx, "alice", "write an email")
	if err != nil {
		t.Fatalf("Recall: %v", err)
	}
	if got != "likes go" {
		t.Fatalf("Recall = %q", got)
	}
	if diff := cmp.Diff([]string{"likes go", "likes go"}, srv.Memories("alice")); diff != "" {
		t.Fatalf("stored mismatch (-want +got):\n%s", diff)
	}

	empty, err := store.Recall(ctx, "nobody", "q")
	if err != nil || empty != "" {
		t.Fatalf("expected empty recall, got %q err=%v", empty, err)
	}
}

func TestMem0StoreConflictIsSuccess(t *testing.T) {
	store, srv := newMem0Store(t)
	srv.FailMem0(http.StatusConflict)
	if err := store.Remember(context.Background(), "alice", "x"); err != nil {
		t.Fatalf("409 should be treated as success, got %v", err)
	}
}

func TestMem0StoreFailure(t *testing.T) {
	store, srv := newMem0Store(t)
	srv.FailMem0(http.StatusInternalServerError)
	if err := store.Remember(context.Background(), "alice", "x"); err == nil {
		t.Fatalf("expected remember error")
	}
	if _, err := store.Recall(context.Background(), "alice", "q"); err == nil {
		t.Fatalf("expected recall error")
	}
}

type fakeKV struct {
	data   map[string]string
	ttls   map[string]time.Duration
	getErr error
}

func (f *fakeKV) Get(_ context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeKV) Set(_ context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	f.data[key] = value.(string)
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func TestRedisStore(t *testing.T) {
	kv := &fakeKV{data: map[string]string{}, ttls: map[string]time.Duration{}}
	store := NewRedisStore(kv, time.Hour)
	ctx := context.Background()

	miss, err := store.Recall(ctx, "alice", "q")
	if err != nil || miss != "" {
		t.Fatalf("expected miss, got %q err=%v", miss, err)
	}
	if err := store.Remember(ctx, "Alice", "first"); err != nil {
		t.Fatalf("Remember: %v", err)
	}
	if err := store.Remember(ctx, "alice", "second"); err != nil {
		t.Fatalf("Remember: %v", err)
	}
	got, err := store.Recall(ctx, "ALICE", "q")
	if err != nil || got != "second" {
		t.Fatalf("Recall = %q err=%v", got, err)
	}
	if kv.ttls["outreach:memory:alice"] != time.Hour {
		t.Fatalf("ttl = %s", kv.ttls["outreach:memory:alice"])
	}

	kv.getErr = errors.New("connection refused")
	if _, err := store.Recall(ctx, "alice", "q"); err == nil {
		t.Fatalf("expected recall error")
	}
}
