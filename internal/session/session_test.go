package session

import (
	"context"
	"testing"
	"time"
)

func TestCartSession_IsInitialized(t *testing.T) {
	s := New()
	if s.IsInitialized() {
		t.Error("new session should not be initialized")
	}

	s.SetCartID(42)
	if !s.IsInitialized() {
		t.Error("session with cart id should be initialized")
	}
	if s.CartID() != 42 {
		t.Errorf("CartID() = %d, want 42", s.CartID())
	}

	s.SetCartID(0)
	if s.IsInitialized() {
		t.Error("cart id 0 is the uninitialized sentinel")
	}
}

func TestCartSession_Dirty(t *testing.T) {
	s := New()
	if s.Dirty() {
		t.Fatal("new session should be clean")
	}

	s.SetItemCount(0)
	if s.Dirty() {
		t.Error("setting an unchanged value should not mark dirty")
	}

	s.SetItemCount(3)
	if !s.Dirty() {
		t.Error("changing item count should mark dirty")
	}
	if s.ItemCount() != 3 {
		t.Errorf("ItemCount() = %d, want 3", s.ItemCount())
	}
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)

	s, err := store.Load(ctx, "unknown")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if s.IsInitialized() {
		t.Error("unknown id should yield a fresh session")
	}

	s.SetCartID(7)
	s.SetItemCount(2)
	if err := store.Save(ctx, "abc", s); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if s.Dirty() {
		t.Error("Save() should clear the dirty flag")
	}

	got, err := store.Load(ctx, "abc")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got.CartID() != 7 || got.ItemCount() != 2 {
		t.Errorf("Load() = (%d, %d), want (7, 2)", got.CartID(), got.ItemCount())
	}

	got, _ = store.Load(ctx, "other")
	if got.IsInitialized() {
		t.Error("unknown id should load fresh")
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	s := New()
	s.SetCartID(9)
	store.Save(ctx, "abc", s)

	now = now.Add(2 * time.Minute)
	got, err := store.Load(ctx, "abc")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got.IsInitialized() {
		t.Error("expired session should load fresh")
	}
}
