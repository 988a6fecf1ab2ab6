// Benchmark execution. This is deliberately a thin process wrapper: the
// analysis pipeline only ever consumes the transcripts written here, never
// the processes themselves.
package runner

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/icscript/optimized-builds/internal/cpuutil"
	"github.com/icscript/optimized-builds/internal/sandbox"
)

// BenchOpts configures the benchmark runs for one build variant's binary.
type BenchOpts struct {
	Binary        string
	Variant       string
	MachineRuns   int
	ExtrinsicRuns int
	MachineArgs   []string
	ExtrinsicArgs []string
	OutDir        string
	RunTimeout    time.Duration
	// SampleInterval is how long each CPU utilization sample observes the
	// system before and after a run.
	SampleInterval time.Duration
	// SandboxImage, when set, runs each benchmark inside a container of
	// this image instead of directly on the host.
	SandboxImage string
}

func (o *BenchOpts) withDefaults() {
	if o.RunTimeout == 0 {
		o.RunTimeout = 10 * time.Minute
	}
	if o.SampleInterval == 0 {
		o.SampleInterval = 2 * time.Second
	}
	if o.ExtrinsicRuns == 0 {
		// Extrinsic runs cost little signal per run; the convention is a
		// fifth of the machine runs with a floor of 4.
		o.ExtrinsicRuns = max(4, o.MachineRuns/5)
	}
}

// RunBenchmarks executes the machine and extrinsic benchmarks for one
// binary, writing one transcript per run into OutDir with the CPU
// utilization framing the parser expects. A failed or timed-out run still
// produces a transcript (the parser will reject it and the batch moves on);
// only filesystem problems are errors. Cancellation is cooperative between
// runs.
func RunBenchmarks(ctx context.Context, opts *BenchOpts) error {
	opts.withDefaults()
	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	for i := 0; i < opts.MachineRuns; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := fmt.Sprintf("bench_%s_run_%d.txt", opts.Variant, i)
		if err := opts.runOnce(ctx, opts.MachineArgs, name); err != nil {
			return err
		}
	}
	for i := 0; i < opts.ExtrinsicRuns; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := fmt.Sprintf("new_bench_%s_run_%d.txt", opts.Variant, i)
		if err := opts.runOnce(ctx, opts.ExtrinsicArgs, name); err != nil {
			return err
		}
	}
	return nil
}

func (o *BenchOpts) runOnce(ctx context.Context, args []string, name string) error {
	before, _ := cpuutil.Percent(o.SampleInterval)
	out := o.invoke(ctx, args)
	after, _ := cpuutil.Percent(o.SampleInterval)

	transcript := fmt.Sprintf("CPU utilization at start: %g\n%sCPU utilization at end: %g\n", before, out, after)
	path := filepath.Join(o.OutDir, name)
	if err := os.WriteFile(path, []byte(transcript), 0o644); err != nil {
		return fmt.Errorf("writing transcript %s: %w", path, err)
	}
	return nil
}

func (o *BenchOpts) invoke(ctx context.Context, args []string) string {
	if o.SandboxImage != "" {
		res, err := sandbox.Run(ctx, &sandbox.RunOpts{
			Image:   o.SandboxImage,
			Binary:  o.Binary,
			Args:    args,
			Timeout: o.RunTimeout,
		})
		if err != nil {
			log.Printf("warning: sandboxed benchmark for %s failed: %v", o.Variant, err)
			return ""
		}
		if res.TimedOut {
			log.Printf("warning: benchmark for %s timed out after %s", o.Variant, o.RunTimeout)
		}
		return string(res.Output)
	}

	runCtx, cancel := context.WithTimeout(ctx, o.RunTimeout)
	defer cancel()
	cmd := exec.CommandContext(runCtx, o.Binary, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		// The transcript keeps whatever output there was; the parser
		// decides whether it is usable.
		log.Printf("warning: benchmark for %s: %v", o.Variant, err)
	}
	return string(out)
}
