// Package rank joins aggregated scores with build configurations and orders
// build variants against a designated baseline.
package rank

import (
	"sort"

	"github.com/icscript/optimized-builds/internal/aggregate"
	"github.com/icscript/optimized-builds/internal/buildcfg"
)

// Metric declares the polarity of one tracked score. The sign convention
// for deltas is fixed regardless of polarity: delta = (value - baseline) /
// baseline x 100, so a positive delta always means "larger than baseline".
// HigherIsBetter tells the consumer how to read that sign; the ranker never
// flips it.
type Metric struct {
	Name           string `yaml:"name"`
	Display        string `yaml:"display,omitempty"`
	HigherIsBetter bool   `yaml:"higher_is_better"`
}

// Label is the metric's presentation name.
func (m Metric) Label() string {
	if m.Display != "" {
		return m.Display
	}
	return m.Name
}

// Row is one build variant with its configuration, aggregated scores, and
// (when a baseline exists) signed percentage deltas per score. The terminal
// artifact of the pipeline.
type Row struct {
	Variant string                       `json:"variant"`
	Config  *buildcfg.Config             `json:"config,omitempty"`
	Scores  map[string]aggregate.Summary `json:"scores"`
	// Deltas is nil when no baseline is present in the dataset; delta
	// computation is skipped entirely rather than zero-filled.
	Deltas map[string]float64 `json:"deltas,omitempty"`
}

// Ranking is the ordered comparison of all variants in a dataset.
type Ranking struct {
	Rows        []Row
	Metrics     []Metric
	Primary     Metric
	BaselineID  string
	HasBaseline bool
}

// Rank builds one Row per variant from the aggregated summaries and sorts
// by the primary metric: descending when higher is better, ascending
// otherwise, ties broken by variant identifier ascending for determinism.
// If baselineID is absent from the summaries, deltas are skipped and the
// primary-score ordering stands alone.
func Rank(sums []aggregate.Summary, configs map[string]buildcfg.Config, metrics []Metric, primary string, baselineID string) *Ranking {
	byVariant := make(map[string]map[string]aggregate.Summary)
	var order []string
	for _, s := range sums {
		m, ok := byVariant[s.Variant]
		if !ok {
			m = make(map[string]aggregate.Summary)
			byVariant[s.Variant] = m
			order = append(order, s.Variant)
		}
		m[s.Score] = s
	}

	r := &Ranking{Metrics: metrics, BaselineID: baselineID}
	for _, m := range metrics {
		if m.Name == primary {
			r.Primary = m
		}
	}

	baseline, hasBaseline := byVariant[baselineID]
	r.HasBaseline = hasBaseline

	for _, variant := range order {
		row := Row{Variant: variant, Scores: byVariant[variant]}
		if cfg, ok := configs[variant]; ok {
			c := cfg
			row.Config = &c
		}
		if hasBaseline {
			row.Deltas = make(map[string]float64)
			for _, m := range metrics {
				base, okB := baseline[m.Name]
				cur, okC := row.Scores[m.Name]
				if !okB || !okC || base.Median == 0 {
					continue
				}
				row.Deltas[m.Name] = (cur.Median - base.Median) / base.Median * 100
			}
		}
		r.Rows = append(r.Rows, row)
	}

	sort.Slice(r.Rows, func(i, j int) bool {
		a, aok := r.Rows[i].Scores[primary]
		b, bok := r.Rows[j].Scores[primary]
		switch {
		case aok != bok:
			return aok // rows missing the primary score sink to the bottom
		case aok && a.Median != b.Median:
			if r.Primary.HigherIsBetter {
				return a.Median > b.Median
			}
			return a.Median < b.Median
		default:
			return r.Rows[i].Variant < r.Rows[j].Variant
		}
	})
	return r
}

// BestPerMetric returns, for each tracked metric, the variant with the
// independently best value, excluding the baseline itself. Ties go to the
// lexically smallest variant identifier.
func (r *Ranking) BestPerMetric() map[string]string {
	best := make(map[string]string)
	for _, m := range r.Metrics {
		var (
			winner string
			value  float64
		)
		for _, row := range r.Rows {
			if row.Variant == r.BaselineID {
				continue
			}
			s, ok := row.Scores[m.Name]
			if !ok {
				continue
			}
			better := winner == "" ||
				(m.HigherIsBetter && s.Median > value) ||
				(!m.HigherIsBetter && s.Median < value) ||
				(s.Median == value && row.Variant < winner)
			if better {
				winner, value = row.Variant, s.Median
			}
		}
		if winner != "" {
			best[m.Name] = winner
		}
	}
	return best
}

// Dominating returns the variants that strictly beat the baseline on every
// tracked metric simultaneously, respecting each metric's polarity, in
// ranking order. Empty when no baseline is present. Callers that get an
// empty set fall back to BestPerMetric so there is always actionable
// output.
func (r *Ranking) Dominating() []string {
	if !r.HasBaseline {
		return nil
	}
	var out []string
	for _, row := range r.Rows {
		if row.Variant == r.BaselineID || row.Deltas == nil {
			continue
		}
		dominates := true
		for _, m := range r.Metrics {
			d, ok := row.Deltas[m.Name]
			if !ok || (m.HigherIsBetter && d <= 0) || (!m.HigherIsBetter && d >= 0) {
				dominates = false
				break
			}
		}
		if dominates {
			out = append(out, row.Variant)
		}
	}
	return out
}
