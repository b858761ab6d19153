package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStoreTest(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(rdb, "arp", "test", ttl)
	return store, mr, func() {
		rdb.Close()
		mr.Close()
	}
}

func testSession() Session {
	return Session{
		AccessToken:  "at-1",
		RefreshToken: "rt-1",
		UserID:       "42",
		Username:     "alice",
		LoggedIn:     true,
		UpdatedAt:    time.UnixMilli(1700000000000),
	}
}

func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	got, err := store.Get(ctx)
	if err != nil {
		t.Fatalf("get empty: %v", err)
	}
	if !got.Empty() {
		t.Fatalf("expected empty session, got %+v", got)
	}

	want := testSession()
	if err := store.Set(ctx, want); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err = store.Get(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.AccessToken != want.AccessToken || got.RefreshToken != want.RefreshToken ||
		got.UserID != want.UserID || got.Username != want.Username || !got.LoggedIn ||
		!got.UpdatedAt.Equal(want.UpdatedAt) {
		t.Fatalf("unexpected session %+v", got)
	}

	want.AccessToken = "at-2"
	if err := store.Set(ctx, want); err != nil {
		t.Fatalf("replace: %v", err)
	}
	got, _ = store.Get(ctx)
	if got.AccessToken != "at-2" {
		t.Fatalf("expected replaced token, got %q", got.AccessToken)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("first clear: %v", err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("second clear: %v", err)
	}
	got, _ = store.Get(ctx)
	if !got.Empty() || got.Active() {
		t.Fatalf("expected cleared session, got %+v", got)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore(Session{}))
}

func TestRedisStore(t *testing.T) {
	store, _, done := newRedisStoreTest(t, 0)
	defer done()
	exerciseStore(t, store)
}

func TestRedisStoreTTL(t *testing.T) {
	store, mr, done := newRedisStoreTest(t, time.Minute)
	defer done()
	ctx := context.Background()

	if err := store.Set(ctx, testSession()); err != nil {
		t.Fatalf("set: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	got, err := store.Get(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Empty() {
		t.Fatalf("expected expired session, got %+v", got)
	}
}

func TestRedisStoreCorruptBlobReadsAsSignedOut(t *testing.T) {
	store, mr, done := newRedisStoreTest(t, 0)
	defer done()

	mr.Set("arp:session:test", "\x09garbage")
	got, err := store.Get(context.Background())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Empty() {
		t.Fatalf("expected empty session, got %+v", got)
	}
	if mr.Exists("arp:session:test") {
		t.Fatal("expected corrupt key to be removed")
	}
}

func TestRedisStoreUnavailable(t *testing.T) {
	store, mr, done := newRedisStoreTest(t, 0)
	defer done()
	mr.Close()

	if _, err := store.Get(context.Background()); err == nil {
		t.Fatal("expected error when redis is down")
	}
}

func TestSQLiteStore(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "arp.db"), "test")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()
	exerciseStore(t, store)
}

func TestSQLiteStoreProfilesAreIsolated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arp.db")
	a, err := NewSQLiteStore(path, "a")
	if err != nil {
		t.Fatalf("open a: %v", err)
	}
	defer a.Close()
	b, err := NewSQLiteStore(path, "b")
	if err != nil {
		t.Fatalf("open b: %v", err)
	}
	defer b.Close()

	ctx := context.Background()
	if err := a.Set(ctx, testSession()); err != nil {
		t.Fatalf("set a: %v", err)
	}
	got, err := b.Get(ctx)
	if err != nil {
		t.Fatalf("get b: %v", err)
	}
	if !got.Empty() {
		t.Fatalf("expected profile b empty, got %+v", got)
	}
}
