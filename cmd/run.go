package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/icscript/optimized-builds/internal/buildcfg"
	"github.com/icscript/optimized-builds/internal/config"
	"github.com/icscript/optimized-builds/internal/runner"
)

var (
	flagRunVariant string
	flagRunCount   int
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the benchmarks for every compiled build variant",
		Long: `Executes the machine and extrinsic benchmarks against each
<artifact>_<n>.bin in the bin directory, writing one transcript per run
into a fresh output/<version>/<host>/<date> session directory and copying
each variant's build sidecar alongside. Variants run sequentially so
measurements do not compete with each other.`,
		RunE: runBenchmarks,
	}
	cmd.Flags().StringVar(&flagRunVariant, "variant", "", "run a single variant")
	cmd.Flags().IntVar(&flagRunCount, "runs", 0, "override machine run count")
	return cmd
}

var binaryFileRe = regexp.MustCompile(`_(\d+|[A-Za-z]+)\.bin$`)

func runBenchmarks(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if flagRunCount > 0 {
		cfg.Runs.Machine = flagRunCount
	}

	binDir := filepath.Join(cfg.Dirs.Bin, cfg.Version)
	binaries, err := filepath.Glob(filepath.Join(binDir, cfg.Artifact+"_*.bin"))
	if err != nil {
		return err
	}
	if len(binaries) == 0 {
		return fmt.Errorf("no %s_*.bin binaries in %s; compile build variants first", cfg.Artifact, binDir)
	}
	sort.Strings(binaries)

	host, err := os.Hostname()
	if err != nil {
		return fmt.Errorf("resolving hostname: %w", err)
	}
	stamp := time.Now().Format("2006-Jan-02_15h04")
	outDir := filepath.Join(cfg.Dirs.Output, cfg.Version, host, stamp)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating session dir: %w", err)
	}
	fmt.Printf("Session directory: %s\n", outDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	for _, binary := range binaries {
		m := binaryFileRe.FindStringSubmatch(filepath.Base(binary))
		if m == nil {
			continue
		}
		variant := m[1]
		if flagRunVariant != "" && variant != flagRunVariant {
			continue
		}
		fmt.Printf("Benchmarking variant %s (%d machine runs)...\n", variant, cfg.Runs.Machine)
		err := runner.RunBenchmarks(ctx, &runner.BenchOpts{
			Binary:        binary,
			Variant:       variant,
			MachineRuns:   cfg.Runs.Machine,
			ExtrinsicRuns: cfg.Runs.Extrinsic,
			MachineArgs:   cfg.Benchmark.MachineArgs,
			ExtrinsicArgs: cfg.Benchmark.ExtrinsicArgs,
			OutDir:        outDir,
			RunTimeout:    time.Duration(cfg.Runs.TimeoutMinutes) * time.Minute,
			SandboxImage:  cfg.Sandbox.Image,
		})
		if err != nil {
			return err
		}
		if err := copySidecar(binary, outDir, variant); err != nil {
			fmt.Printf("  warning: %v\n", err)
		}
	}

	fmt.Println("Benchmarking complete. Run parse to ingest the transcripts.")
	return nil
}

// copySidecar places the variant's build metadata next to its transcripts
// under the name the parse command expects.
func copySidecar(binary, outDir, variant string) error {
	src := binary[:len(binary)-len(".bin")] + ".json"
	sc, err := buildcfg.ReadSidecar(src)
	if err != nil {
		return fmt.Errorf("no build sidecar for variant %s: %w", variant, err)
	}
	dst := filepath.Join(outDir, "bench_"+variant+".json")
	return buildcfg.WriteSidecar(dst, sc)
}
