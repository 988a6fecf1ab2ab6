// Package verify inspects a compiled binary's symbol table and disassembly
// to confirm that hand-tuned vectorized code paths survived the build
// pipeline, and to gauge how aggressively the compiler auto-vectorized.
// Inspection never mutates the binary and never fails hard: missing tools,
// missing binaries and timeouts all degrade to a zero-valued result with an
// explanatory warning so one bad binary cannot abort a batch.
package verify

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Options configures one inspection pass.
type Options struct {
	// SymbolSubstr identifies the hand-tuned implementation; ISAMarker is
	// the case-insensitive marker for the targeted instruction-set
	// extension. A symbol matches when its name contains both.
	SymbolSubstr string
	ISAMarker    string

	// Register classes counted in the disassembly: one narrower SIMD width
	// and one wider.
	NarrowClass string
	WideClass   string

	// Reference counts from a known-good baseline binary, and the multiple
	// of them above which a count triggers an over-vectorization warning.
	RefNarrow         int
	RefWide           int
	ThresholdMultiple int

	// External tools. Symbol listing is quick; a full disassembly of a
	// large binary can take minutes.
	NMTool        string
	ObjdumpTool   string
	SymbolTimeout time.Duration
	DisasmTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.NMTool == "" {
		o.NMTool = "nm"
	}
	if o.ObjdumpTool == "" {
		o.ObjdumpTool = "objdump"
	}
	if o.SymbolTimeout == 0 {
		o.SymbolTimeout = 30 * time.Second
	}
	if o.DisasmTimeout == 0 {
		o.DisasmTimeout = 5 * time.Minute
	}
	if o.ThresholdMultiple == 0 {
		o.ThresholdMultiple = 10
	}
	return o
}

// Result is the outcome of inspecting one binary. Created fresh per
// invocation; stateless between binaries.
type Result struct {
	Binary          string   `json:"binary"`
	HasTargetSymbol bool     `json:"has_target_symbol"`
	Symbols         []string `json:"symbols,omitempty"`
	NarrowCount     int      `json:"narrow_count"`
	WideCount       int      `json:"wide_count"`
	Warnings        []string `json:"warnings,omitempty"`
}

func (r *Result) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Inspect runs the symbol and disassembly passes over one binary. The
// instruction counts are an approximate proxy for auto-vectorization
// pressure, not an exact measure: each disassembly line mentioning a
// register class counts once regardless of how many operands reference it.
func Inspect(ctx context.Context, path string, opts Options) *Result {
	opts = opts.withDefaults()
	res := &Result{Binary: path}

	if _, err := os.Stat(path); err != nil {
		res.warnf("binary not inspectable: %v", err)
		return res
	}

	inspectSymbols(ctx, path, opts, res)
	countInstructions(ctx, path, opts, res)
	return res
}

// inspectSymbols lists the binary's symbols and records the names matching
// the hand-tuned pattern. No match is a warning, not a failure: the caller
// decides whether a missing hand-tuned path is fatal to its pipeline.
func inspectSymbols(ctx context.Context, path string, opts Options, res *Result) {
	ctx, cancel := context.WithTimeout(ctx, opts.SymbolTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, opts.NMTool, "--defined-only", path)
	out, err := cmd.Output()
	if err != nil {
		res.warnf("symbol listing failed (%s %s): %v", opts.NMTool, path, err)
		return
	}

	marker := strings.ToLower(opts.ISAMarker)
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		name := fields[len(fields)-1]
		if strings.Contains(name, opts.SymbolSubstr) && strings.Contains(strings.ToLower(name), marker) {
			res.Symbols = append(res.Symbols, name)
		}
	}
	if len(res.Symbols) > 0 {
		res.HasTargetSymbol = true
	} else {
		res.warnf("no symbol matching %q with %s marker; the hand-tuned path may have been eliminated by the compiler", opts.SymbolSubstr, opts.ISAMarker)
	}
}

// countInstructions disassembles the binary's code sections and counts the
// lines referencing each SIMD register-width class, then checks the counts
// against the stored baseline references. Unexpectedly large wide-register
// counts historically correlate with compiler transformations that replace
// the hand-tuned path with auto-vectorized code.
func countInstructions(ctx context.Context, path string, opts Options, res *Result) {
	ctx, cancel := context.WithTimeout(ctx, opts.DisasmTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, opts.ObjdumpTool, "-d", path)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		res.warnf("disassembly failed (%s -d %s): %v", opts.ObjdumpTool, path, err)
		return
	}
	if err := cmd.Start(); err != nil {
		res.warnf("disassembly failed (%s -d %s): %v", opts.ObjdumpTool, path, err)
		return
	}

	// Disassembly of a large binary runs to hundreds of MB; stream it.
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.Contains(line, opts.NarrowClass) {
			res.NarrowCount++
		}
		if strings.Contains(line, opts.WideClass) {
			res.WideCount++
		}
	}
	scanErr := scanner.Err()
	if err := cmd.Wait(); err != nil {
		res.NarrowCount, res.WideCount = 0, 0
		if ctx.Err() != nil {
			res.warnf("disassembly of %s timed out after %s", path, opts.DisasmTimeout)
		} else {
			res.warnf("disassembly failed (%s -d %s): %v", opts.ObjdumpTool, path, err)
		}
		return
	}
	if scanErr != nil {
		res.NarrowCount, res.WideCount = 0, 0
		res.warnf("reading disassembly of %s: %v", path, scanErr)
		return
	}

	checkThreshold(res, opts.NarrowClass, res.NarrowCount, opts.RefNarrow, opts.ThresholdMultiple)
	checkThreshold(res, opts.WideClass, res.WideCount, opts.RefWide, opts.ThresholdMultiple)
}

func checkThreshold(res *Result, class string, count, ref, multiple int) {
	if ref <= 0 || count <= ref*multiple {
		return
	}
	res.warnf("%s instruction count %d exceeds %dx the baseline reference %d; auto-vectorization may have displaced the hand-tuned path", class, count, multiple, ref)
}
