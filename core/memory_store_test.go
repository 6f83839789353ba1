package core

import (
	"context"
	"sort"
	"testing"
	"time"
)

func TestMemoryStore_GetSet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	// Missing key returns empty, not an error
	val, err := store.Get(ctx, "shopping_cart")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if val != "" {
		t.Errorf("expected empty value for missing key, got %q", val)
	}

	if err := store.Set(ctx, "shopping_cart", `[{"id":1}]`, 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	val, err = store.Get(ctx, "shopping_cart")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if val != `[{"id":1}]` {
		t.Errorf("Get = %q, want %q", val, `[{"id":1}]`)
	}
}

func TestMemoryStore_TTLExpiry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Set(ctx, "session", "abc", 10*time.Millisecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	val, _ := store.Get(ctx, "session")
	if val != "abc" {
		t.Errorf("expected value before expiry, got %q", val)
	}

	time.Sleep(20 * time.Millisecond)

	val, err := store.Get(ctx, "session")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if val != "" {
		t.Errorf("expected empty value after expiry, got %q", val)
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	store.Set(ctx, "wishlist", "[]", 0)
	if err := store.Delete(ctx, "wishlist"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	val, _ := store.Get(ctx, "wishlist")
	if val != "" {
		t.Errorf("expected empty value after delete, got %q", val)
	}

	// Deleting a missing key is not an error
	if err := store.Delete(ctx, "wishlist"); err != nil {
		t.Errorf("Delete of missing key failed: %v", err)
	}
}

func TestMemoryStore_Keys(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	store.Set(ctx, "shopping_cart", "[]", 0)
	store.Set(ctx, "wishlist", "[]", 0)
	store.Set(ctx, "stale", "x", time.Nanosecond)
	time.Sleep(time.Millisecond)

	keys, err := store.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	sort.Strings(keys)
	want := []string{"shopping_cart", "wishlist"}
	if len(keys) != len(want) {
		t.Fatalf("Keys = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("Keys = %v, want %v", keys, want)
		}
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 100; j++ {
				store.Set(ctx, "k", "v", 0)
				store.Get(ctx, "k")
				store.Keys(ctx)
			}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
}
