package cmd

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/spf13/cobra"

	"github.com/icscript/optimized-builds/internal/buildcfg"
	"github.com/icscript/optimized-builds/internal/config"
	"github.com/icscript/optimized-builds/internal/dataset"
	"github.com/icscript/optimized-builds/internal/runner"
	"github.com/icscript/optimized-builds/internal/transcript"
)

var flagParseParallel int

func newParseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Ingest benchmark transcripts into dataset snapshots",
		Long: `Walks output/<version>/<host>/<date> session directories, parses every
benchmark transcript and build sidecar, writes a CSV pair and a JSON
snapshot per session under the processed directory, then moves the
consumed session to processed/old.`,
		RunE: runParse,
	}
	cmd.Flags().IntVar(&flagParseParallel, "parallel", 4, "max concurrent transcript parses")
	return cmd
}

var sidecarFileRe = regexp.MustCompile(`^bench_([^_.]+)\.json$`)

func runParse(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	sessions, err := filepath.Glob(filepath.Join(cfg.Dirs.Output, "*", "*", "*"))
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		return fmt.Errorf("no benchmark sessions under %s", cfg.Dirs.Output)
	}

	for _, session := range sessions {
		if err := parseSession(cfg, session); err != nil {
			return err
		}
	}
	return nil
}

func parseSession(cfg *config.Config, session string) error {
	rel, err := filepath.Rel(cfg.Dirs.Output, session)
	if err != nil {
		return err
	}
	parts := splitPath(rel)
	if len(parts) != 3 {
		return fmt.Errorf("unexpected session layout %q, want <version>/<host>/<date>", rel)
	}
	ds := dataset.New(parts[0], parts[1], parts[2])

	// Build configurations first: aggregation must never merge records of
	// unlike builds, so conflicting variants are excluded up front.
	excluded := make(map[string]bool)
	sidecars, _ := filepath.Glob(filepath.Join(session, "bench_*.json"))
	for _, path := range sidecars {
		m := sidecarFileRe.FindStringSubmatch(filepath.Base(path))
		if m == nil {
			continue
		}
		sc, err := buildcfg.ReadSidecar(path)
		if err != nil {
			log.Printf("warning: skipping sidecar %s: %v", path, err)
			continue
		}
		if err := ds.SetConfig(m[1], sc.BuildOptions); err != nil {
			log.Printf("error: excluding variant %s from aggregation: %v", m[1], err)
			excluded[m[1]] = true
		}
	}
	if cfg.Baseline.Config != nil {
		if err := ds.SetConfig(cfg.Baseline.ID, *cfg.Baseline.Config); err != nil {
			log.Printf("error: excluding baseline from aggregation: %v", err)
			excluded[cfg.Baseline.ID] = true
		}
	}

	transcripts, _ := filepath.Glob(filepath.Join(session, "*bench_*_run_*.txt"))
	var (
		mu   sync.Mutex
		jobs []runner.Job
	)
	for _, path := range transcripts {
		jobs = append(jobs, func() error {
			text, err := os.ReadFile(path)
			if err != nil {
				log.Printf("warning: skipping %s: %v", path, err)
				return nil
			}
			rec, warns, err := transcript.ParseFile(path, string(text), cfg.Scores.Machine)
			for _, w := range warns {
				log.Printf("warning: %s: %s", path, w)
			}
			switch {
			case errors.Is(err, transcript.ErrNotApplicable):
				log.Printf("warning: %s: benchmark not applicable on this host, skipping", path)
				return nil
			case err != nil:
				log.Printf("warning: skipping %s: %v", path, err)
				return nil
			}
			if excluded[rec.Variant] {
				return nil
			}
			mu.Lock()
			ds.Add(*rec)
			mu.Unlock()
			return nil
		})
	}
	runner.RunPool(flagParseParallel, jobs)
	ds.Sort()

	if len(ds.Records) == 0 {
		log.Printf("warning: session %s produced no usable records", session)
	}

	csvDir := filepath.Join(cfg.Dirs.Processed, "csv")
	if err := dataset.WriteCSV(filepath.Join(csvDir, ds.Name()+".csv"), ds, transcript.KindMachine, cfg.Scores.Machine); err != nil {
		return err
	}
	extrinsicNames := []string{"Total", "Min", "Max", "Average", "Median", "Stddev"}
	if err := dataset.WriteCSV(filepath.Join(csvDir, "extrinsic_"+ds.Name()+".csv"), ds, transcript.KindExtrinsic, extrinsicNames); err != nil {
		return err
	}
	snapshot := filepath.Join(cfg.Dirs.Processed, "todo", ds.Name()+".json")
	if err := dataset.WriteSnapshot(snapshot, ds); err != nil {
		return err
	}
	fmt.Printf("Parsed %s: %d records -> %s\n", session, len(ds.Records), snapshot)

	old := filepath.Join(cfg.Dirs.Processed, "old", rel)
	if err := os.MkdirAll(filepath.Dir(old), 0o755); err != nil {
		return fmt.Errorf("creating archive dir: %w", err)
	}
	if err := os.Rename(session, old); err != nil {
		return fmt.Errorf("archiving session: %w", err)
	}
	return nil
}

func splitPath(rel string) []string {
	var parts []string
	for rel != "." && rel != "" {
		dir, file := filepath.Split(rel)
		parts = append([]string{file}, parts...)
		rel = filepath.Clean(dir)
	}
	return parts
}
