// Package aggregate turns many run records into one statistically grounded
// point estimate per (variant, score).
package aggregate

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/icscript/optimized-builds/internal/transcript"
)

// Summary is the aggregated value of one score on one variant: the sample
// median with a symmetric uncertainty half-width. Consumers treat it as an
// opaque (value, ± err) pair.
type Summary struct {
	Variant string  `json:"variant"`
	Score   string  `json:"score"`
	N       int     `json:"n"`
	Median  float64 `json:"median"`
	Err     float64 `json:"err"`
}

// medianScale approximates the median's sampling uncertainty from the
// mean's: for roughly normal data the median's sampling variance is about
// 1.57x the mean's, and the reporting convention here scales the mean's 95%
// half-width by 1.25. This is a stated approximation, not an exact
// confidence interval on the median.
const medianScale = 1.25

// z95 is the normal-approximation 95% two-sided critical value.
const z95 = 1.96

// Summarize groups records by (variant, score name) and computes one
// Summary per group: the sample median, and an uncertainty half-width of
// 1.25 x 1.96 x (stddev / sqrt(n)) per the methodology documented on
// medianScale. Groups with fewer than 2 samples report zero uncertainty;
// the central value is still reported. Output order is deterministic:
// variant, then score name.
func Summarize(records []transcript.Record) []Summary {
	type key struct{ variant, score string }
	groups := make(map[key][]float64)
	for _, rec := range records {
		for _, s := range rec.Scores {
			k := key{rec.Variant, s.Name}
			groups[k] = append(groups[k], s.Value)
		}
	}

	keys := make([]key, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].variant != keys[j].variant {
			return keys[i].variant < keys[j].variant
		}
		return keys[i].score < keys[j].score
	})

	out := make([]Summary, 0, len(keys))
	for _, k := range keys {
		samples := groups[k]
		s := Summary{
			Variant: k.variant,
			Score:   k.score,
			N:       len(samples),
			Median:  median(samples),
		}
		if len(samples) >= 2 {
			sem := stat.StdDev(samples, nil) / math.Sqrt(float64(len(samples)))
			s.Err = medianScale * z95 * sem
		}
		out = append(out, s)
	}
	return out
}

// median is the conventional sample median: the middle value, or the mean
// of the two middle values for even counts. gonum's empirical quantile
// would pick a sample point for even counts, which disagrees with how the
// published numbers were computed.
func median(samples []float64) float64 {
	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return stat.Mean(sorted[n/2-1:n/2+1], nil)
}
