package db

import (
	"fmt"
	"os"
	"testing"

	"github.com/remberq/simple-voice-transcribe/internal/config"
)

// TestLiveDatabase opens the real dictate database and reports what it holds.
// Skipped if the database doesn't exist.
func TestLiveDatabase(t *testing.T) {
	dbPath := config.Default().DBPath()
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Skip("database not found at", dbPath)
	}

	store, err := OpenReadOnly(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	entry, err := store.Entry("transcriptionHistory")
	if err != nil {
		t.Fatalf("Entry: %v", err)
	}
	if entry == nil {
		fmt.Println("No history in database")
	} else {
		fmt.Printf("History: %d bytes, updated %s\n", len(entry.Value),
			entry.UpdatedAt.Format("2006-01-02 15:04:05"))
	}

	creds, err := store.Credentials()
	if err != nil {
		t.Fatalf("Credentials: %v", err)
	}
	fmt.Printf("Stored credentials: %d\n", len(creds))
	for _, c := range creds {
		fmt.Printf("  %s (updated %s)\n", c.ProviderID, c.UpdatedAt.Format("2006-01-02"))
	}
}
