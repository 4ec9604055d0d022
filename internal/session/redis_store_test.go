package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStoreWithClient(client), mr
}

func TestRefreshSessionRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.SaveRefreshSession(ctx, "hash-1", "user-1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("save: %v", err)
	}
	user, err := store.LookupRefreshSession(ctx, "hash-1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if user.ID != "user-1" {
		t.Fatalf("user = %+v", user)
	}
}

func TestRefreshSessionRevoke(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.SaveRefreshSession(ctx, "hash-1", "user-1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.RevokeRefreshSession(ctx, "hash-1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := store.LookupRefreshSession(ctx, "hash-1"); err == nil {
		t.Fatal("expected lookup failure after revoke")
	}
}

func TestRefreshSessionExpiry(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	if err := store.SaveRefreshSession(ctx, "hash-1", "user-1", time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("save: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if _, err := store.LookupRefreshSession(ctx, "hash-1"); err == nil {
		t.Fatal("expected lookup failure after expiry")
	}
}

func TestCorrectionsCache(t *testing.T) {
	store, _ := newTestStore(t)
	cache := NewCorrectionsCache(store.Client())
	ctx := context.Background()

	has, err := cache.Has(ctx, "folder/file.opus")
	if err != nil || has {
		t.Fatalf("fresh cache should be empty: %v %v", has, err)
	}
	if err := cache.Mark(ctx, "folder/file.opus"); err != nil {
		t.Fatalf("mark: %v", err)
	}
	has, err = cache.Has(ctx, "folder/file.opus")
	if err != nil || !has {
		t.Fatalf("marked doc missing: %v %v", has, err)
	}

	if err := cache.Repopulate(ctx, []string{"a", "b"}); err != nil {
		t.Fatalf("repopulate: %v", err)
	}
	if has, _ := cache.Has(ctx, "folder/file.opus"); has {
		t.Fatal("repopulate should replace the set")
	}
	if has, _ := cache.Has(ctx, "a"); !has {
		t.Fatal("repopulated doc missing")
	}
}
