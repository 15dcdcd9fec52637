package journal

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	return j
}

// waitForEntries polls until the async writer has flushed count rows.
func waitForEntries(t *testing.T, j *Journal, count int) []Entry {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		entries, err := j.Recent(count + 1)
		if err != nil {
			t.Fatalf("Recent failed: %v", err)
		}
		if len(entries) >= count {
			return entries
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("journal never reached %d entries", count)
	return nil
}

// ===== Record / Recent =====

func TestRecordPersistsEntry(t *testing.T) {
	j := openTestJournal(t)

	j.Record(Entry{
		OperationID:      "op-1",
		EffectType:       "FILE_OPERATION",
		Status:           "success",
		TransactionState: "COMMITTED",
		NodeID:           "node-a",
		RetryCount:       2,
		ProcessingTime:   42 * time.Millisecond,
	})

	entries := waitForEntries(t, j, 1)
	e := entries[0]
	if e.OperationID != "op-1" {
		t.Errorf("OperationID = %q, want op-1", e.OperationID)
	}
	if e.EffectType != "FILE_OPERATION" {
		t.Errorf("EffectType = %q, want FILE_OPERATION", e.EffectType)
	}
	if e.Status != "success" {
		t.Errorf("Status = %q, want success", e.Status)
	}
	if e.TransactionState != "COMMITTED" {
		t.Errorf("TransactionState = %q, want COMMITTED", e.TransactionState)
	}
	if e.RetryCount != 2 {
		t.Errorf("RetryCount = %d, want 2", e.RetryCount)
	}
	if e.ProcessingTime != 42*time.Millisecond {
		t.Errorf("ProcessingTime = %v, want 42ms", e.ProcessingTime)
	}
	if e.RecordedAt.IsZero() {
		t.Error("RecordedAt should have been stamped")
	}
}

func TestRecentReturnsNewestFirst(t *testing.T) {
	j := openTestJournal(t)

	for _, id := range []string{"op-1", "op-2", "op-3"} {
		j.Record(Entry{OperationID: id, EffectType: "EVENT_EMISSION", Status: "success", NodeID: "n"})
	}
	entries := waitForEntries(t, j, 3)

	if entries[0].OperationID != "op-3" {
		t.Errorf("newest entry = %q, want op-3", entries[0].OperationID)
	}
	if entries[2].OperationID != "op-1" {
		t.Errorf("oldest entry = %q, want op-1", entries[2].OperationID)
	}
}

func TestRecentHonorsLimit(t *testing.T) {
	j := openTestJournal(t)

	for i := 0; i < 5; i++ {
		j.Record(Entry{OperationID: "op", EffectType: "x", Status: "error", NodeID: "n"})
	}
	waitForEntries(t, j, 5)

	entries, err := j.Recent(2)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("got %d entries, want 2", len(entries))
	}
}

// ===== Close =====

func TestCloseDrainsQueue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	for i := 0; i < 50; i++ {
		j.Record(Entry{OperationID: "op", EffectType: "x", Status: "success", NodeID: "n"})
	}
	if err := j.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer func() { _ = reopened.Close() }()

	entries, err := reopened.Recent(100)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(entries) != 50 {
		t.Errorf("got %d entries after drain, want 50", len(entries))
	}
}
