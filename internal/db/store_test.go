package db

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestGetMissingKey(t *testing.T) {
	store := openTestStore(t)

	value, err := store.Get("transcriptionHistory")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if value != nil {
		t.Errorf("value = %q, want nil", value)
	}
}

func TestPutOverwrites(t *testing.T) {
	store := openTestStore(t)

	if err := store.Put("k", []byte("first")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Put("k", []byte("second")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	value, err := store.Get("k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(value) != "second" {
		t.Errorf("value = %q, want %q", value, "second")
	}

	entry, err := store.Entry("k")
	if err != nil {
		t.Fatalf("Entry: %v", err)
	}
	if entry == nil {
		t.Fatal("expected entry, got nil")
	}
	if time.Since(entry.UpdatedAt) > time.Minute {
		t.Errorf("UpdatedAt = %v, want recent", entry.UpdatedAt)
	}
}

func TestCredentials(t *testing.T) {
	store := openTestStore(t)

	if _, ok, err := store.Credential("openai"); err != nil || ok {
		t.Fatalf("Credential before set: ok=%v err=%v", ok, err)
	}

	if err := store.SetCredential("openai", "sk-old"); err != nil {
		t.Fatalf("SetCredential: %v", err)
	}
	if err := store.SetCredential("openai", "sk-new"); err != nil {
		t.Fatalf("SetCredential: %v", err)
	}
	if err := store.SetCredential("gemini", "AIza"); err != nil {
		t.Fatalf("SetCredential: %v", err)
	}

	secret, ok, err := store.Credential("openai")
	if err != nil || !ok {
		t.Fatalf("Credential: ok=%v err=%v", ok, err)
	}
	if secret != "sk-new" {
		t.Errorf("secret = %q, want %q", secret, "sk-new")
	}

	creds, err := store.Credentials()
	if err != nil {
		t.Fatalf("Credentials: %v", err)
	}
	if len(creds) != 2 {
		t.Fatalf("got %d credentials, want 2", len(creds))
	}
	if creds[0].ProviderID != "gemini" || creds[1].ProviderID != "openai" {
		t.Errorf("order = %q, %q, want gemini, openai", creds[0].ProviderID, creds[1].ProviderID)
	}

	if err := store.DeleteCredential("openai"); err != nil {
		t.Fatalf("DeleteCredential: %v", err)
	}
	if err := store.DeleteCredential("openai"); err != nil {
		t.Fatalf("DeleteCredential twice: %v", err)
	}
	if _, ok, _ := store.Credential("openai"); ok {
		t.Error("credential still present after delete")
	}
}

func TestReadOnlyAlongsideWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Dictate", "dictate.sqlite")

	store, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()
	if err := store.Put("transcriptionHistory", []byte(`[]`)); err != nil {
		t.Fatalf("Put: %v", err)
	}

	ro, err := OpenReadOnly(path)
	if err != nil {
		t.Fatalf("OpenReadOnly: %v", err)
	}
	defer ro.Close()

	value, err := ro.Get("transcriptionHistory")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(value) != `[]` {
		t.Errorf("value = %q, want %q", value, `[]`)
	}
	if err := ro.Put("x", []byte("y")); err == nil {
		t.Error("expected write to fail on read-only store")
	}
}
