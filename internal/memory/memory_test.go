package memory

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

func setupTestJournal(t *testing.T) *SQLiteJournal {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "nested", "test.db")
	j, err := NewSQLiteJournal(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { j.Close() })

	return j
}

func TestConversation_Append(t *testing.T) {
	c := NewConversation(6)

	c.Append(RoleUser, "hello")
	c.Append(RoleBot, "hi")

	if c.Len() != 2 {
		t.Fatalf("Expected 2 turns, got %d", c.Len())
	}
	turns := c.Turns()
	if turns[0].Role != RoleUser || turns[0].Content != "hello" {
		t.Errorf("Unexpected first turn: %+v", turns[0])
	}
	if turns[1].Role != RoleBot || turns[1].Content != "hi" {
		t.Errorf("Unexpected second turn: %+v", turns[1])
	}
}

func TestConversation_BoundedSuffix(t *testing.T) {
	for _, limit := range []int{1, 2, 3, 6} {
		t.Run(fmt.Sprintf("cap=%d", limit), func(t *testing.T) {
			c := NewConversation(limit)
			var history []string

			for i := 0; i < 20; i++ {
				role := RoleUser
				if i%2 == 1 {
					role = RoleBot
				}
				content := fmt.Sprintf("msg-%d", i)
				c.Append(role, content)
				history = append(history, content)

				if c.Len() > limit {
					t.Fatalf("Length %d exceeds cap %d", c.Len(), limit)
				}

				// retained turns are always a suffix of the full history
				turns := c.Turns()
				offset := len(history) - len(turns)
				for k, turn := range turns {
					if turn.Content != history[offset+k] {
						t.Fatalf("Turn %d = %q, want %q", k, turn.Content, history[offset+k])
					}
				}
			}
		})
	}
}

func TestConversation_OddBoundaryEviction(t *testing.T) {
	c := NewConversation(3)
	c.Append(RoleUser, "u1")
	c.Append(RoleBot, "b1")
	c.Append(RoleUser, "u2")
	c.Append(RoleBot, "b2")

	turns := c.Turns()
	if len(turns) != 3 {
		t.Fatalf("Expected 3 turns, got %d", len(turns))
	}
	// pure FIFO, oldest bot turn now leads
	if turns[0].Content != "b1" || turns[0].Role != RoleBot {
		t.Errorf("Expected b1 first, got %+v", turns[0])
	}
}

func TestConversation_DefaultCap(t *testing.T) {
	c := NewConversation(0)
	if c.Cap() != DefaultMaxTurns {
		t.Errorf("Expected default cap %d, got %d", DefaultMaxTurns, c.Cap())
	}
}

func TestConversation_TurnsIsCopy(t *testing.T) {
	c := NewConversation(6)
	c.Append(RoleUser, "original")

	turns := c.Turns()
	turns[0].Content = "mutated"

	if c.Turns()[0].Content != "original" {
		t.Error("Turns must return a copy")
	}
}

func TestConversation_Render(t *testing.T) {
	c := NewConversation(6)

	if c.Render() != "" {
		t.Errorf("Empty conversation should render empty string, got %q", c.Render())
	}

	c.Append(RoleUser, "Show patient 001")
	c.Append(RoleBot, "Raw or figure?")

	want := "\n\nRecent conversation:\nUser: Show patient 001\nBot: Raw or figure?\n"
	if got := c.Render(); got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}

func TestRecordAndListExports(t *testing.T) {
	j := setupTestJournal(t)

	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	first := &ExportRecord{Path: "conversation_log_20250301_100000.pdf", Turns: 4, CreatedAt: base}
	second := &ExportRecord{
		PatientID: "032",
		Path:      "conversation_log_patient_032_20250301_110000.pdf",
		RemoteURL: "gs://bucket/exports/conversation_log_patient_032_20250301_110000.pdf",
		Turns:     6,
		CreatedAt: base.Add(time.Hour),
	}

	if err := j.RecordExport(first); err != nil {
		t.Fatalf("Failed to record export: %v", err)
	}
	if err := j.RecordExport(second); err != nil {
		t.Fatalf("Failed to record export: %v", err)
	}
	if first.ID == "" || second.ID == "" {
		t.Error("RecordExport should assign IDs")
	}
	if first.ID == second.ID {
		t.Error("IDs should be unique")
	}

	records, err := j.ListExports(10)
	if err != nil {
		t.Fatalf("Failed to list exports: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	if records[0].ID != second.ID {
		t.Errorf("Expected newest first, got %s", records[0].Path)
	}
	if records[0].PatientID != "032" || records[0].Turns != 6 || records[0].RemoteURL == "" {
		t.Errorf("Unexpected record: %+v", records[0])
	}
	if records[1].PatientID != "" {
		t.Errorf("Expected empty patient id, got %q", records[1].PatientID)
	}
}

func TestListExports_Limit(t *testing.T) {
	j := setupTestJournal(t)

	for i := 0; i < 5; i++ {
		rec := &ExportRecord{Path: fmt.Sprintf("log_%d.pdf", i), Turns: i + 1}
		if err := j.RecordExport(rec); err != nil {
			t.Fatal(err)
		}
	}

	records, err := j.ListExports(3)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Errorf("Expected 3 records, got %d", len(records))
	}
}

func TestJournal_Reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "journal.db")

	j, err := NewSQLiteJournal(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := j.RecordExport(&ExportRecord{Path: "a.pdf", Turns: 2}); err != nil {
		t.Fatal(err)
	}
	j.Close()

	j, err = NewSQLiteJournal(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()

	records, err := j.ListExports(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].Path != "a.pdf" {
		t.Errorf("Expected persisted record, got %+v", records)
	}
}
