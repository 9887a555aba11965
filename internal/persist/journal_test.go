package persist

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/l1jgo/action/internal/action"
)

func TestNewJournalEntry(t *testing.T) {
	run := uuid.New()
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	e := NewJournalEntry(run, action.Record{
		Label:      "intro",
		RootID:     42,
		StartFrame: 10,
		EndFrame:   17,
		Elapsed:    350 * time.Millisecond,
		Stopped:    true,
	}, at)

	if e.RunID != run || e.Label != "intro" || e.RootID != 42 || !e.Stopped || !e.FinishedAt.Equal(at) {
		t.Fatalf("entry = %+v", e)
	}
	if e.Frames() != 7 {
		t.Fatalf("Frames = %d, want 7", e.Frames())
	}
	if (JournalEntry{StartFrame: 5, EndFrame: 3}).Frames() != 0 {
		t.Fatal("inverted frame range should report 0")
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	files, err := MigrationFiles()
	if err != nil {
		t.Fatal(err)
	}
	if len(files) == 0 || files[0] != "00001_action_journal.sql" {
		t.Fatalf("migrations = %v", files)
	}
}
