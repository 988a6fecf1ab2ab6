package cmd

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/icscript/optimized-builds/internal/buildcfg"
	"github.com/icscript/optimized-builds/internal/config"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List compiled build variants and their configurations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			binDir := filepath.Join(cfg.Dirs.Bin, cfg.Version)
			sidecars, err := filepath.Glob(filepath.Join(binDir, cfg.Artifact+"_*.json"))
			if err != nil {
				return err
			}
			if len(sidecars) == 0 {
				fmt.Printf("No build variants in %s\n", binDir)
				return nil
			}
			sort.Strings(sidecars)
			fmt.Printf("Build variants in %s:\n", binDir)
			for _, path := range sidecars {
				sc, err := buildcfg.ReadSidecar(path)
				if err != nil {
					fmt.Printf("  - %s: unreadable sidecar (%v)\n", filepath.Base(path), err)
					continue
				}
				name := filepath.Base(path)
				name = name[:len(name)-len(".json")]
				fmt.Printf("  - %s: %s\n", name, sc.BuildOptions)
			}
			fmt.Printf("\nBaseline: %s", cfg.Baseline.ID)
			if cfg.Baseline.Config != nil {
				fmt.Printf(" (%s)", *cfg.Baseline.Config)
			}
			fmt.Println()
			return nil
		},
	}
}
