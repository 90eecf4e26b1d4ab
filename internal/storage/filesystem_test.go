package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestFileStorePutGetDelete(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "http://localhost:8080/static")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()

	key, err := store.Put(ctx, "generated-images", "user-1/a.png", []byte{0xAA, 0xBB}, "image/png")
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if key != "user-1/a.png" {
		t.Fatalf("canonical key = %q", key)
	}

	data, err := store.Get(ctx, "generated-images", key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(data, []byte{0xAA, 0xBB}) {
		t.Fatalf("round-trip mismatch: %v", data)
	}

	if err := store.Delete(ctx, "generated-images", key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, "generated-images", key); err == nil {
		t.Fatal("expected get to fail after delete")
	}
	// Deleting a missing object is not an error.
	if err := store.Delete(ctx, "generated-images", key); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
}

func TestFileStoreRejectsTraversal(t *testing.T) {
	base := t.TempDir()
	store, err := NewFileStore(base, "http://localhost:8080/static")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if _, err := store.Put(context.Background(), "b", "../../etc/passwd", []byte{1}, ""); err == nil {
		t.Fatal("expected traversal key to be rejected")
	}
	if _, err := os.Stat(filepath.Join(base, "..", "etc")); err == nil {
		t.Fatal("file escaped the storage root")
	}
}

func TestFileStoreSignedURLCarriesExpiry(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "http://localhost:8080/static")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	url, err := store.SignedURL(context.Background(), "generated-images", "user-1/a.png", time.Hour)
	if err != nil {
		t.Fatalf("signed url: %v", err)
	}
	if !strings.HasPrefix(url, "http://localhost:8080/static/generated-images/user-1/a.png?expires=") {
		t.Fatalf("unexpected url: %q", url)
	}
}
