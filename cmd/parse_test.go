package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/icscript/optimized-builds/internal/buildcfg"
	"github.com/icscript/optimized-builds/internal/config"
	"github.com/icscript/optimized-builds/internal/dataset"
)

func TestSplitPath(t *testing.T) {
	tests := []struct {
		rel  string
		want int
	}{
		{"1.2.3/host1/2024-Jan-05", 3},
		{"1.2.3/host1", 2},
		{"1.2.3", 1},
		{".", 0},
	}
	for _, tt := range tests {
		got := splitPath(filepath.FromSlash(tt.rel))
		if len(got) != tt.want {
			t.Errorf("splitPath(%q) = %v, want %d parts", tt.rel, got, tt.want)
		}
	}
}

const testTranscript = `CPU utilization at start: 0.05
| Category | Function       | Score       |
|----------+----------------+-------------|
| CPU      | BLAKE2-256     | 1023.00 MiBs |
| CPU      | SR25519-Verify | 666.30 KiBs |
CPU utilization at end: 0.08
`

func TestParseSession(t *testing.T) {
	root := t.TempDir()
	cfg := &config.Config{
		Version: "1.2.3",
		Dirs: config.Dirs{
			Output:    filepath.Join(root, "output"),
			Processed: filepath.Join(root, "processed"),
		},
		Scores: config.Scores{Machine: []string{"BLAKE2-256", "SR25519-Verify"}},
		Baseline: config.Baseline{
			ID:     "official",
			Config: &buildcfg.Config{Toolchain: "1.70", CodegenUnits: 16, LTO: "false", OptLevel: 3},
		},
	}

	session := filepath.Join(cfg.Dirs.Output, "1.2.3", "host1", "2024-Jan-05_10h30")
	if err := os.MkdirAll(session, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"bench_official_run_0.txt", "bench_official_run_1.txt", "bench_o3lto_run_0.txt"} {
		if err := os.WriteFile(filepath.Join(session, name), []byte(testTranscript), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	sc := &buildcfg.Sidecar{BuildOptions: buildcfg.Config{Toolchain: "1.70", CodegenUnits: 1, LTO: "fat", OptLevel: 3}}
	if err := buildcfg.WriteSidecar(filepath.Join(session, "bench_o3lto.json"), sc); err != nil {
		t.Fatal(err)
	}

	if err := parseSession(cfg, session); err != nil {
		t.Fatalf("parseSession: %v", err)
	}

	snapshot := filepath.Join(cfg.Dirs.Processed, "todo", "1.2.3_host1_2024-Jan-05_10h30.json")
	ds, err := dataset.ReadSnapshot(snapshot)
	if err != nil {
		t.Fatalf("reading snapshot: %v", err)
	}
	if len(ds.Records) != 3 {
		t.Errorf("records: got %d, want 3", len(ds.Records))
	}
	if !ds.Configs["o3lto"].Equal(sc.BuildOptions) {
		t.Errorf("o3lto config: got %+v", ds.Configs["o3lto"])
	}
	if _, ok := ds.Configs["official"]; !ok {
		t.Error("baseline config missing from snapshot")
	}

	for _, csv := range []string{"1.2.3_host1_2024-Jan-05_10h30.csv", "extrinsic_1.2.3_host1_2024-Jan-05_10h30.csv"} {
		if _, err := os.Stat(filepath.Join(cfg.Dirs.Processed, "csv", csv)); err != nil {
			t.Errorf("CSV missing: %v", err)
		}
	}

	// Consumed session is archived.
	if _, err := os.Stat(session); !os.IsNotExist(err) {
		t.Errorf("session not archived: %v", err)
	}
	archived := filepath.Join(cfg.Dirs.Processed, "old", "1.2.3", "host1", "2024-Jan-05_10h30")
	if _, err := os.Stat(archived); err != nil {
		t.Errorf("archive missing: %v", err)
	}
}

func TestParseSessionConfigConflictExcludesVariant(t *testing.T) {
	root := t.TempDir()
	cfg := &config.Config{
		Version: "1.2.3",
		Dirs: config.Dirs{
			Output:    filepath.Join(root, "output"),
			Processed: filepath.Join(root, "processed"),
		},
		Scores: config.Scores{Machine: []string{"BLAKE2-256", "SR25519-Verify"}},
		Baseline: config.Baseline{
			ID: "official",
			// Conflicts with the sidecar below for the same variant name.
			Config: &buildcfg.Config{Toolchain: "1.70", CodegenUnits: 16, LTO: "false", OptLevel: 3},
		},
	}

	session := filepath.Join(cfg.Dirs.Output, "1.2.3", "host1", "2024-Jan-05_10h30")
	if err := os.MkdirAll(session, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(session, "bench_official_run_0.txt"), []byte(testTranscript), 0o644); err != nil {
		t.Fatal(err)
	}
	sc := &buildcfg.Sidecar{BuildOptions: buildcfg.Config{Toolchain: "1.75", CodegenUnits: 1, LTO: "fat", OptLevel: 3}}
	if err := buildcfg.WriteSidecar(filepath.Join(session, "bench_official.json"), sc); err != nil {
		t.Fatal(err)
	}

	if err := parseSession(cfg, session); err != nil {
		t.Fatalf("parseSession: %v", err)
	}

	snapshot := filepath.Join(cfg.Dirs.Processed, "todo", "1.2.3_host1_2024-Jan-05_10h30.json")
	ds, err := dataset.ReadSnapshot(snapshot)
	if err != nil {
		t.Fatalf("reading snapshot: %v", err)
	}
	if len(ds.Records) != 0 {
		t.Errorf("conflicting variant should be excluded, got %d records", len(ds.Records))
	}
}
