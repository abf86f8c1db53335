package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	store, err := NewRedisStore("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("failed to create redis store: %v", err)
	}
	return store, s
}

func TestNewRedisStore(t *testing.T) {
	s := miniredis.RunT(t)
	defer s.Close()

	store, err := NewRedisStore("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("NewRedisStore failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.Ping(ctx); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestSetAndGet(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	if err := store.Set(ctx, "token:user-1", "gho_abc123", time.Hour); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	value, err := store.Get(ctx, "token:user-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if value != "gho_abc123" {
		t.Errorf("expected gho_abc123, got %s", value)
	}
}

func TestGetExpiredKey(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	if err := store.Set(ctx, "state:abc", "pending", time.Millisecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	s.FastForward(2 * time.Millisecond)

	if _, err := store.Get(ctx, "state:abc"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for expired key, got %v", err)
	}
}

func TestGetMissingKey(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	if _, err := store.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	if err := store.Set(ctx, "state:xyz", "pending", time.Hour); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Delete(ctx, "state:xyz"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, "state:xyz"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	// Deleting a key that does not exist should not error
	if err := store.Delete(ctx, "state:xyz"); err != nil {
		t.Errorf("Delete of missing key failed: %v", err)
	}
}

func TestKeyIsolation(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	if err := store.Set(ctx, "token:user-1", "tok-1", time.Hour); err != nil {
		t.Fatalf("Set user-1 failed: %v", err)
	}
	if err := store.Set(ctx, "token:user-2", "tok-2", time.Hour); err != nil {
		t.Fatalf("Set user-2 failed: %v", err)
	}

	if err := store.Delete(ctx, "token:user-1"); err != nil {
		t.Fatalf("Delete user-1 failed: %v", err)
	}

	if _, err := store.Get(ctx, "token:user-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for deleted token, got %v", err)
	}
	value, err := store.Get(ctx, "token:user-2")
	if err != nil {
		t.Fatalf("Get user-2 after delete failed: %v", err)
	}
	if value != "tok-2" {
		t.Errorf("expected tok-2 after delete, got %s", value)
	}
}
