// Package transcript converts raw benchmark output captured from a single
// execution into structured run records. Transcripts interleave banner text
// and log noise with the measurements, so parsing is a predicate-filtered
// line scan rather than a strict grammar: lines that don't look like data
// are skipped.
package transcript

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Kind distinguishes the two benchmark transcript formats.
type Kind string

const (
	// KindMachine is the multi-metric throughput benchmark (pipe table).
	KindMachine Kind = "machine"
	// KindExtrinsic is the single-operation timing benchmark (labeled fields).
	KindExtrinsic Kind = "extrinsic"
)

var (
	// ErrMalformed marks a transcript whose format is unrecognized or whose
	// run failed. Callers skip the file with a warning; one bad transcript
	// never aborts a batch.
	ErrMalformed = errors.New("malformed transcript")

	// ErrNotApplicable marks a machine transcript with a table header but no
	// data rows. This is a legitimate outcome (e.g. an unsupported CPU
	// feature on this host), not a failure.
	ErrNotApplicable = errors.New("benchmark not applicable on this host")
)

// Score is one named numeric measurement. Throughput values are normalized
// to MiB/s at parse time; Unit records the unit seen before normalization.
type Score struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit,omitempty"`
}

// Percentiles holds the optional 99th/95th/75th triple from an extrinsic
// transcript.
type Percentiles struct {
	P99 float64 `json:"p99"`
	P95 float64 `json:"p95"`
	P75 float64 `json:"p75"`
}

// Record is the structured outcome of one benchmark execution. Immutable
// once created; the aggregation stage owns it from then on.
type Record struct {
	Variant     string       `json:"variant"`
	Run         int          `json:"run"`
	Kind        Kind         `json:"kind"`
	CPU         float64      `json:"cpu"`
	Scores      []Score      `json:"scores"`
	Percentiles *Percentiles `json:"percentiles,omitempty"`
}

// Transcript file names as written by the benchmark runner. The extrinsic
// benchmark was added later, hence the new_ prefix.
var (
	machineFileRe   = regexp.MustCompile(`^bench_([^_]+)_run_(\d+)\.txt$`)
	extrinsicFileRe = regexp.MustCompile(`^new_bench_([^_]+)_run_(\d+)\.txt$`)
)

// ParseFile parses one transcript, dispatching on the file name convention:
// bench_<variant>_run_<n>.txt for machine, new_bench_<variant>_run_<n>.txt
// for extrinsic. scoreNames assigns names to machine table rows by position.
// Returns ErrNotApplicable or ErrMalformed for skippable transcripts, and a
// plain error for file names the runner never produces.
func ParseFile(name, text string, scoreNames []string) (*Record, []string, error) {
	base := filepath.Base(name)
	if m := extrinsicFileRe.FindStringSubmatch(base); m != nil {
		run, _ := strconv.Atoi(m[2])
		return parseRecord(m[1], run, KindExtrinsic, text, scoreNames)
	}
	if m := machineFileRe.FindStringSubmatch(base); m != nil {
		run, _ := strconv.Atoi(m[2])
		return parseRecord(m[1], run, KindMachine, text, scoreNames)
	}
	return nil, nil, fmt.Errorf("unrecognized transcript name %q", base)
}

// Parse parses a transcript of the given kind for the given variant and run
// index.
func Parse(variant string, run int, kind Kind, text string, scoreNames []string) (*Record, []string, error) {
	return parseRecord(variant, run, kind, text, scoreNames)
}

func parseRecord(variant string, run int, kind Kind, text string, scoreNames []string) (*Record, []string, error) {
	rec := &Record{
		Variant: variant,
		Run:     run,
		Kind:    kind,
		CPU:     CPUUtilization(text),
	}
	var warnings []string
	switch kind {
	case KindMachine:
		scores, warns, err := ParseMachine(text, scoreNames)
		if err != nil {
			return nil, warns, err
		}
		rec.Scores = scores
		warnings = warns
	case KindExtrinsic:
		scores, pct, err := ParseExtrinsic(text)
		if err != nil {
			return nil, nil, err
		}
		rec.Scores = scores
		rec.Percentiles = pct
	default:
		return nil, nil, fmt.Errorf("unknown benchmark kind %q", kind)
	}
	return rec, warnings, nil
}

// CPUUtilization extracts the CPU interference indicator from a transcript.
// The runner frames the benchmark output with two "CPU ...: <pct>" lines,
// one sampled before the run and one after. The maximum of the pair is the
// conservative indicator of system interference during the run. Returns 0
// when no sample line is present.
func CPUUtilization(text string) float64 {
	start, end := -1.0, -1.0
	for _, line := range strings.Split(text, "\n") {
		if !strings.HasPrefix(line, "CPU") {
			continue
		}
		idx := strings.LastIndex(line, ":")
		if idx < 0 {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(line[idx+1:]), 64)
		if err != nil {
			continue
		}
		if start < 0 {
			start = v
		} else if end < 0 {
			end = v
		}
	}
	return max(start, end, 0)
}
