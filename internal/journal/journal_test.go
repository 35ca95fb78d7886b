package journal

import (
	"os"
	"path/filepath"
	"testing"

	"taxportal/api/internal/store"
)

func TestRecordChangeAndHistory(t *testing.T) {
	tempDir := t.TempDir()
	svc := New(tempDir)

	entry := Entry{
		SlNo:          7,
		InstitutionID: "I1",
		Action:        "create",
		Payment: store.PaymentCore{
			PaymentYear:     2024,
			ReceiptNoOrDate: "RCPT-7",
			TotalAmount:     12500,
		},
	}

	if err := svc.RecordChange("D1", entry, "north@city.gov", "Add payment record 7"); err != nil {
		t.Fatalf("RecordChange() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(tempDir, "D1", "records", "7.json")); err != nil {
		t.Fatalf("journal snapshot missing: %v", err)
	}

	entry.Action = "approve"
	entry.ApprovalStatus = true
	if err := svc.RecordChange("D1", entry, "north@city.gov", "Approve payment record 7"); err != nil {
		t.Fatalf("RecordChange() second commit error = %v", err)
	}

	history, err := svc.History("D1", 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 commits, got %d", len(history))
	}
	if history[0].Message != "Approve payment record 7" {
		t.Fatalf("newest commit first, got %q", history[0].Message)
	}
	if history[0].Author != "north@city.gov" {
		t.Fatalf("unexpected author %q", history[0].Author)
	}
}

func TestRepoPathStaysInsideBaseDir(t *testing.T) {
	base := filepath.Join(t.TempDir(), "journal")
	if err := os.MkdirAll(base, 0o755); err != nil {
		t.Fatalf("make base dir: %v", err)
	}
	svc := New(base)

	entry := Entry{SlNo: 3, InstitutionID: "I1", Action: "create"}
	if err := svc.RecordChange("../../escape", entry, "north@city.gov", "Add record 3"); err != nil {
		t.Fatalf("RecordChange() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(base, "escape", "records", "3.json")); err != nil {
		t.Fatalf("sanitized snapshot missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(base, "..", "escape")); !os.IsNotExist(err) {
		t.Fatal("journal repo escaped its base directory")
	}

	history, err := svc.History("../../escape", 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 commit, got %d", len(history))
	}
}

func TestHistoryOfUnknownDivisionIsEmpty(t *testing.T) {
	svc := New(t.TempDir())
	history, err := svc.History("D404", 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("expected no history, got %d entries", len(history))
	}
}

func TestJournalsAreIsolatedPerDivision(t *testing.T) {
	svc := New(t.TempDir())

	a := Entry{SlNo: 1, InstitutionID: "I1", Action: "create"}
	b := Entry{SlNo: 2, InstitutionID: "I9", Action: "create"}
	if err := svc.RecordChange("D1", a, "north@city.gov", "Add record 1"); err != nil {
		t.Fatalf("RecordChange(D1) error = %v", err)
	}
	if err := svc.RecordChange("D2", b, "south@city.gov", "Add record 2"); err != nil {
		t.Fatalf("RecordChange(D2) error = %v", err)
	}

	history, err := svc.History("D1", 0)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 commit in D1 journal, got %d", len(history))
	}
}
