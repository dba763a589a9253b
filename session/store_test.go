package session

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookbloom", "token")

	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if _, ok := store.Token(); ok {
		t.Fatalf("fresh store should have no token")
	}

	if err := store.Set("tok-123"); err != nil {
		t.Fatalf("set token: %v", err)
	}
	if token, ok := store.Token(); !ok || token != "tok-123" {
		t.Fatalf("token = %q/%v, want tok-123/true", token, ok)
	}

	// A second store over the same file sees the persisted token.
	reloaded, err := NewStore(path)
	if err != nil {
		t.Fatalf("reload store: %v", err)
	}
	if token, ok := reloaded.Token(); !ok || token != "tok-123" {
		t.Fatalf("reloaded token = %q/%v, want tok-123/true", token, ok)
	}
}

func TestStoreSetReplacesToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")

	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := store.Set("old"); err != nil {
		t.Fatalf("set old token: %v", err)
	}
	if err := store.Set("new"); err != nil {
		t.Fatalf("set new token: %v", err)
	}
	if token, _ := store.Token(); token != "new" {
		t.Fatalf("token = %q, want new", token)
	}
}

func TestStoreClearIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")

	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := store.Set("tok"); err != nil {
		t.Fatalf("set token: %v", err)
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok := store.Token(); ok {
		t.Fatalf("token should be gone after clear")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("token file should be removed, stat err=%v", err)
	}

	// Clearing again is a no-op, not an error.
	if err := store.Clear(); err != nil {
		t.Fatalf("second clear: %v", err)
	}
}

func TestStoreSetRejectsEmptyToken(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "token"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := store.Set(""); err == nil {
		t.Fatalf("empty token should be rejected")
	}
}
