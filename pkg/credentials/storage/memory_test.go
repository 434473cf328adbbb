package storage

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.Store(ctx, "octocred", "github.com", "secret-value"); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	secret, err := store.Get(ctx, "octocred", "github.com")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if secret != "secret-value" {
		t.Errorf("Get() = %q, want secret-value", secret)
	}

	if _, err := store.Get(ctx, "octocred", "missing.example.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() missing = %v, want ErrNotFound", err)
	}

	all, err := store.FindAll(ctx, "octocred")
	if err != nil {
		t.Fatalf("FindAll() error = %v", err)
	}
	if len(all) != 1 || all[0].Account != "github.com" {
		t.Errorf("FindAll() = %v", all)
	}

	deleted, err := store.Delete(ctx, "octocred", "github.com")
	if err != nil || !deleted {
		t.Errorf("Delete() = %v, %v, want true, nil", deleted, err)
	}
	deleted, _ = store.Delete(ctx, "octocred", "github.com")
	if deleted {
		t.Error("second Delete() = true, want false")
	}
}

func TestMemoryStoreUnavailable(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.SetAvailable(false)

	if store.IsAvailable(ctx) {
		t.Error("IsAvailable() = true after SetAvailable(false)")
	}
	if err := store.Store(ctx, "octocred", "github.com", "x"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Store() = %v, want ErrUnavailable", err)
	}
	if _, err := store.Get(ctx, "octocred", "github.com"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Get() = %v, want ErrUnavailable", err)
	}
}
