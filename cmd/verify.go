package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/icscript/optimized-builds/internal/config"
	"github.com/icscript/optimized-builds/internal/runner"
	"github.com/icscript/optimized-builds/internal/verify"
)

var (
	flagVerifyParallel  int
	flagVerifyJSON      bool
	flagVerifyReference bool
)

func newVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <binary>...",
		Short: "Check that hand-tuned vectorized code survived the build",
		Long: `Inspects each binary's symbol table for the hand-tuned implementation
and counts SIMD register-class instructions in its disassembly, comparing
against the reference counts in the config. Warnings are advisory; the
command only fails on usage errors.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runVerify,
	}
	cmd.Flags().IntVar(&flagVerifyParallel, "parallel", 2, "max concurrent inspections")
	cmd.Flags().BoolVar(&flagVerifyJSON, "json", false, "emit results as JSON")
	cmd.Flags().BoolVar(&flagVerifyReference, "reference", false, "print the inspected counts as a config verify block")
	return cmd
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	opts := verify.Options{
		SymbolSubstr:      cfg.Verify.SymbolSubstr,
		ISAMarker:         cfg.Verify.ISAMarker,
		NarrowClass:       cfg.Verify.NarrowClass,
		WideClass:         cfg.Verify.WideClass,
		RefNarrow:         cfg.Verify.RefNarrow,
		RefWide:           cfg.Verify.RefWide,
		ThresholdMultiple: cfg.Verify.ThresholdMultiple,
		NMTool:            cfg.Verify.NMTool,
		ObjdumpTool:       cfg.Verify.ObjdumpTool,
		SymbolTimeout:     time.Duration(cfg.Verify.SymbolTimeoutS) * time.Second,
		DisasmTimeout:     time.Duration(cfg.Verify.DisasmTimeoutS) * time.Second,
	}

	ctx := context.Background()
	var (
		mu      sync.Mutex
		results []*verify.Result
	)
	var jobs []runner.Job
	for _, path := range args {
		jobs = append(jobs, func() error {
			res := verify.Inspect(ctx, path, opts)
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			return nil
		})
	}
	runner.RunPool(flagVerifyParallel, jobs)
	sort.Slice(results, func(i, j int) bool { return results[i].Binary < results[j].Binary })

	if flagVerifyJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	for _, res := range results {
		printResult(res, cfg)
	}
	if flagVerifyReference {
		if len(results) > 1 {
			return fmt.Errorf("--reference wants exactly one known-good binary, got %d", len(results))
		}
		printReference(results[0])
	}
	return nil
}

// printReference emits the measured counts as a pasteable config block, for
// capturing a known-good binary as the comparison baseline.
func printReference(res *verify.Result) {
	fmt.Printf("\nverify:\n  ref_narrow: %d\n  ref_wide: %d\n", res.NarrowCount, res.WideCount)
}

func printResult(res *verify.Result, cfg *config.Config) {
	fmt.Printf("%s\n", res.Binary)
	if res.HasTargetSymbol {
		fmt.Printf("  hand-tuned %s/%s path: present (%d symbols)\n",
			cfg.Verify.SymbolSubstr, cfg.Verify.ISAMarker, len(res.Symbols))
	} else {
		fmt.Printf("  hand-tuned %s/%s path: MISSING\n",
			cfg.Verify.SymbolSubstr, cfg.Verify.ISAMarker)
	}
	fmt.Printf("  %s instructions: %d (reference %d)\n", cfg.Verify.NarrowClass, res.NarrowCount, cfg.Verify.RefNarrow)
	fmt.Printf("  %s instructions: %d (reference %d)\n", cfg.Verify.WideClass, res.WideCount, cfg.Verify.RefWide)
	for _, w := range res.Warnings {
		fmt.Printf("  warning: %s\n", w)
	}
}
