package transcript

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Column of the pipe table that holds the score, counting the cells between
// the outer delimiters.
const machineScoreColumn = 2

var numberRe = regexp.MustCompile(`[+-]?\d+(?:\.\d+)?`)

// ParseMachine extracts the throughput scores from a machine benchmark
// transcript. The transcript contains a pipe-delimited table; any line not
// beginning with '|' is ignored so banners and log noise interleaved with
// the table are harmless. Divider lines are skipped, the first table row is
// the header and is discarded, and every following row yields one score
// taken from a fixed column. Scores are named positionally from scoreNames;
// surplus rows beyond the named set are dropped with a warning.
//
// A transcript with a header but zero data rows returns ErrNotApplicable:
// the benchmark does not run on this host (e.g. a missing CPU feature) and
// the caller should skip the file.
func ParseMachine(text string, scoreNames []string) ([]Score, []string, error) {
	var (
		scores    []Score
		warnings  []string
		sawHeader bool
	)
	for _, line := range strings.Split(text, "\n") {
		if !strings.HasPrefix(line, "|") {
			continue
		}
		if strings.Contains(line, "-+-") || strings.Contains(line, "===") {
			continue
		}
		cells := strings.Split(line, "|")
		if len(cells) < 2 {
			continue
		}
		cells = cells[1 : len(cells)-1]
		if !sawHeader {
			sawHeader = true
			continue
		}
		if len(cells) <= machineScoreColumn {
			warnings = append(warnings, fmt.Sprintf("table row has %d columns, want at least %d: %q", len(cells), machineScoreColumn+1, line))
			continue
		}
		name := ""
		if len(scores) < len(scoreNames) {
			name = scoreNames[len(scores)]
		}
		score, warn, err := parseThroughput(strings.TrimSpace(cells[machineScoreColumn]))
		if err != nil {
			return nil, warnings, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if warn != "" {
			warnings = append(warnings, warn)
		}
		if name == "" {
			warnings = append(warnings, fmt.Sprintf("dropping unnamed table row %d (only %d score names configured)", len(scores), len(scoreNames)))
			continue
		}
		score.Name = name
		scores = append(scores, score)
	}
	if len(scores) == 0 {
		return nil, warnings, ErrNotApplicable
	}
	return scores, warnings, nil
}

// parseThroughput converts one score cell ("123.40 MiB/s" and tolerant
// variants without the trailing "/s") to the canonical MiB/s unit. An
// unrecognized unit passes the value through unchanged with a warning
// rather than failing the row.
func parseThroughput(cell string) (Score, string, error) {
	m := numberRe.FindString(cell)
	if m == "" {
		return Score{}, "", fmt.Errorf("no numeric value in score cell %q", cell)
	}
	raw, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return Score{}, "", fmt.Errorf("parsing score cell %q: %w", cell, err)
	}
	switch {
	case strings.Contains(cell, "KiB"):
		return Score{Value: raw / 1000, Unit: "KiB"}, "", nil
	case strings.Contains(cell, "GiB"):
		return Score{Value: raw * 1000, Unit: "GiB"}, "", nil
	case strings.Contains(cell, "MiB"):
		return Score{Value: raw, Unit: "MiB"}, "", nil
	default:
		return Score{Value: raw}, fmt.Sprintf("unrecognized unit in score cell %q, passing value through", cell), nil
	}
}
