package cleanup

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var now = time.Date(2026, 3, 2, 9, 0, 0, 0, time.Local)

// createMockRun creates a directory with the given timestamp-based name.
func createMockRun(t *testing.T, runsDir string, ts time.Time) string {
	t.Helper()
	name := ts.Format(RunLayout)
	path := filepath.Join(runsDir, name)
	if err := os.MkdirAll(path, 0755); err != nil {
		t.Fatalf("creating mock run %s: %v", name, err)
	}
	return name
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestNewRunDir(t *testing.T) {
	runsDir := filepath.Join(t.TempDir(), "runs")

	first, err := NewRunDir(runsDir, now)
	if err != nil {
		t.Fatalf("NewRunDir failed: %v", err)
	}
	if filepath.Base(first) != "20260302-090000" {
		t.Errorf("unexpected run dir name %s", filepath.Base(first))
	}

	second, err := NewRunDir(runsDir, now)
	if err != nil {
		t.Fatalf("NewRunDir failed: %v", err)
	}
	if filepath.Base(second) != "20260302-090001" {
		t.Errorf("expected the next free second, got %s", filepath.Base(second))
	}
}

func TestPruneByAge_RemovesOldRuns(t *testing.T) {
	runsDir := t.TempDir()

	old := createMockRun(t, runsDir, now.AddDate(0, 0, -60))
	recent := createMockRun(t, runsDir, now.AddDate(0, 0, -5))

	pruned, err := PruneByAge(runsDir, 30, now, false)
	if err != nil {
		t.Fatalf("PruneByAge failed: %v", err)
	}

	if len(pruned) != 1 || pruned[0] != old {
		t.Errorf("expected pruned=[%s], got %v", old, pruned)
	}
	if exists(filepath.Join(runsDir, old)) {
		t.Errorf("expected %s to be deleted", old)
	}
	if !exists(filepath.Join(runsDir, recent)) {
		t.Errorf("expected %s to still exist", recent)
	}
}

func TestPruneByAge_DryRun(t *testing.T) {
	runsDir := t.TempDir()
	old := createMockRun(t, runsDir, now.AddDate(0, 0, -60))

	pruned, err := PruneByAge(runsDir, 30, now, true)
	if err != nil {
		t.Fatalf("PruneByAge dry-run failed: %v", err)
	}
	if len(pruned) != 1 || pruned[0] != old {
		t.Errorf("expected pruned=[%s], got %v", old, pruned)
	}
	if !exists(filepath.Join(runsDir, old)) {
		t.Errorf("expected %s to still exist in dry-run", old)
	}
}

func TestPruneByAge_Disabled(t *testing.T) {
	runsDir := t.TempDir()
	old := createMockRun(t, runsDir, now.AddDate(-1, 0, 0))

	pruned, err := PruneByAge(runsDir, 0, now, false)
	if err != nil {
		t.Fatalf("PruneByAge failed: %v", err)
	}
	if len(pruned) != 0 || !exists(filepath.Join(runsDir, old)) {
		t.Errorf("max age 0 should disable pruning, pruned %v", pruned)
	}
}

func TestPruneByAge_SkipsNonTimestampDirs(t *testing.T) {
	runsDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(runsDir, "not-a-timestamp"), 0755); err != nil {
		t.Fatalf("creating mock dir: %v", err)
	}

	pruned, err := PruneByAge(runsDir, 1, now, false)
	if err != nil {
		t.Fatalf("PruneByAge failed: %v", err)
	}
	if len(pruned) != 0 {
		t.Errorf("expected no pruned dirs, got %v", pruned)
	}
}

func TestPruneByAge_NonexistentDir(t *testing.T) {
	pruned, err := PruneByAge("/nonexistent/path", 30, now, false)
	if err != nil {
		t.Fatalf("expected nil error for nonexistent dir, got: %v", err)
	}
	if len(pruned) != 0 {
		t.Errorf("expected empty pruned list, got %v", pruned)
	}
}

func TestPruneKeepRecent_KeepsCorrectCount(t *testing.T) {
	runsDir := t.TempDir()

	var names []string
	for i := 5; i >= 1; i-- {
		names = append(names, createMockRun(t, runsDir, now.AddDate(0, 0, -i)))
	}

	pruned, err := PruneKeepRecent(runsDir, 2, false)
	if err != nil {
		t.Fatalf("PruneKeepRecent failed: %v", err)
	}
	if len(pruned) != 3 {
		t.Fatalf("expected 3 pruned, got %d: %v", len(pruned), pruned)
	}
	for i, name := range names {
		want := i >= 3
		if got := exists(filepath.Join(runsDir, name)); got != want {
			t.Errorf("%s: exists=%v, want %v", name, got, want)
		}
	}
}

func TestPruneKeepRecent_FewerThanKeep(t *testing.T) {
	runsDir := t.TempDir()
	createMockRun(t, runsDir, now)

	pruned, err := PruneKeepRecent(runsDir, 5, false)
	if err != nil {
		t.Fatalf("PruneKeepRecent failed: %v", err)
	}
	if len(pruned) != 0 {
		t.Errorf("expected nothing pruned, got %v", pruned)
	}
}
