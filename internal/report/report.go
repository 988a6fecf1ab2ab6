// Package report renders a ranking of build variants for human or
// downstream-tool consumption.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/icscript/optimized-builds/internal/rank"
)

// Render writes the ranking in the requested format: "table" (default),
// "markdown" or "json".
func Render(w io.Writer, r *rank.Ranking, format string) error {
	switch format {
	case "markdown":
		return writeMarkdown(r, w)
	case "json":
		return writeJSON(r, w)
	default:
		return writeTable(r, w)
	}
}

func headerCells(r *rank.Ranking) []string {
	cells := []string{"VARIANT", "CONFIG"}
	for _, m := range r.Metrics {
		cells = append(cells, m.Label())
		if r.HasBaseline {
			cells = append(cells, m.Label()+" Δ%")
		}
	}
	return cells
}

func rowCells(r *rank.Ranking, row rank.Row) []string {
	variant := row.Variant
	if row.Variant == r.BaselineID {
		variant += " (baseline)"
	}
	config := ""
	if row.Config != nil {
		config = row.Config.String()
	}
	cells := []string{variant, config}
	for _, m := range r.Metrics {
		if s, ok := row.Scores[m.Name]; ok {
			cells = append(cells, fmt.Sprintf("%.1f ± %.1f", s.Median, s.Err))
		} else {
			cells = append(cells, "-")
		}
		if r.HasBaseline {
			if d, ok := row.Deltas[m.Name]; ok {
				cells = append(cells, fmt.Sprintf("%+.1f", d))
			} else {
				cells = append(cells, "-")
			}
		}
	}
	return cells
}

func writeTable(r *rank.Ranking, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(headerCells(r), "\t"))
	fmt.Fprintln(tw, strings.Repeat("-", 80))
	for _, row := range r.Rows {
		fmt.Fprintln(tw, strings.Join(rowCells(r, row), "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	writeFindings(r, w)
	return nil
}

func writeMarkdown(r *rank.Ranking, w io.Writer) error {
	header := headerCells(r)
	fmt.Fprintf(w, "| %s |\n", strings.Join(header, " | "))
	fmt.Fprintf(w, "|%s\n", strings.Repeat("---|", len(header)))
	for _, row := range r.Rows {
		fmt.Fprintf(w, "| %s |\n", strings.Join(rowCells(r, row), " | "))
	}
	writeFindings(r, w)
	return nil
}

func writeJSON(r *rank.Ranking, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Rows       []rank.Row `json:"rows"`
		Baseline   string     `json:"baseline,omitempty"`
		Dominating []string   `json:"dominating,omitempty"`
	}{r.Rows, baselineOrEmpty(r), r.Dominating()})
}

func baselineOrEmpty(r *rank.Ranking) string {
	if !r.HasBaseline {
		return ""
	}
	return r.BaselineID
}

// writeFindings prints the delta sign convention and the actionable
// takeaway: the variants that beat baseline on every tracked metric, or,
// when no variant dominates, the independent best per metric.
func writeFindings(r *rank.Ranking, w io.Writer) {
	fmt.Fprintln(w)
	if !r.HasBaseline {
		fmt.Fprintf(w, "No %q variant in dataset: deltas skipped, ranking by %s only.\n", r.BaselineID, r.Primary.Label())
		return
	}

	fmt.Fprintln(w, "Δ% is (value - baseline) / baseline × 100; positive means above baseline.")
	for _, m := range r.Metrics {
		direction := "higher is better (improvement: positive Δ%)"
		if !m.HigherIsBetter {
			direction = "lower is better (improvement: negative Δ%)"
		}
		fmt.Fprintf(w, "  %s: %s\n", m.Label(), direction)
	}
	fmt.Fprintln(w)

	if dom := r.Dominating(); len(dom) > 0 {
		fmt.Fprintf(w, "Variants beating baseline on every metric: %s\n", strings.Join(dom, ", "))
		return
	}

	fmt.Fprintln(w, "No variant beats baseline on every metric. Best per metric:")
	best := r.BestPerMetric()
	for _, m := range r.Metrics {
		if v, ok := best[m.Name]; ok {
			fmt.Fprintf(w, "  %s: %s\n", m.Label(), v)
		}
	}
}
