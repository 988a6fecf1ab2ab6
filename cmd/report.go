package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/icscript/optimized-builds/internal/aggregate"
	"github.com/icscript/optimized-builds/internal/config"
	"github.com/icscript/optimized-builds/internal/dataset"
	"github.com/icscript/optimized-builds/internal/rank"
	"github.com/icscript/optimized-builds/internal/report"
)

var flagFormat string

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report [snapshot]",
		Short: "Aggregate a dataset snapshot and rank build variants",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			path := ""
			if len(args) > 0 {
				path = args[0]
			} else {
				path, err = latestSnapshot(cfg.Dirs.Processed)
				if err != nil {
					return err
				}
			}
			ds, err := dataset.ReadSnapshot(path)
			if err != nil {
				return err
			}

			maxCPU := 0.0
			for _, rec := range ds.Records {
				maxCPU = max(maxCPU, rec.CPU)
			}
			if maxCPU > 0.5 {
				fmt.Fprintf(os.Stderr, "warning: max CPU interference %.0f%%, results may be unreliable\n", maxCPU*100)
			}

			sums := aggregate.Summarize(ds.Records)
			ranking := rank.Rank(sums, ds.Configs, cfg.Metrics, cfg.Primary, cfg.Baseline.ID)
			return report.Render(os.Stdout, ranking, flagFormat)
		},
	}
	cmd.Flags().StringVar(&flagFormat, "format", "table", "output format (table, markdown, json)")
	return cmd
}

// latestSnapshot picks the lexically greatest unprocessed snapshot, which is
// the most recent one given the timestamped naming.
func latestSnapshot(processedDir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(processedDir, "todo", "*.json"))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no dataset snapshots under %s/todo; run parse first", processedDir)
	}
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}
