package transcript

import (
	"fmt"
	"regexp"
	"strconv"
)

// Labels the extrinsic benchmark prints, in report order. Each is matched
// independently with a tolerant search so missing or reordered fields do
// not break extraction of the others.
var extrinsicLabels = []string{"Total", "Min", "Max", "Average", "Median", "Stddev"}

var (
	extrinsicLabelRe = make(map[string]*regexp.Regexp, len(extrinsicLabels))
	percentilesRe    = regexp.MustCompile(`Percentiles 99th, 95th, 75th:\s*(\d+),\s*(\d+),\s*(\d+)`)
)

func init() {
	for _, label := range extrinsicLabels {
		extrinsicLabelRe[label] = regexp.MustCompile(label + `:\s*(\d+)`)
	}
}

// ParseExtrinsic extracts the labeled summary statistics from an extrinsic
// benchmark transcript. Total and Average are mandatory: if either is
// absent the output format is unrecognized (or the run failed) and the
// whole transcript is rejected with ErrMalformed so the caller can skip it.
// The percentile triple is optional.
func ParseExtrinsic(text string) ([]Score, *Percentiles, error) {
	found := make(map[string]float64, len(extrinsicLabels))
	var scores []Score
	for _, label := range extrinsicLabels {
		m := extrinsicLabelRe[label].FindStringSubmatch(text)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		found[label] = v
		scores = append(scores, Score{Name: label, Value: v, Unit: "ns"})
	}
	if _, ok := found["Total"]; !ok {
		return nil, nil, fmt.Errorf("%w: missing mandatory Total field", ErrMalformed)
	}
	if _, ok := found["Average"]; !ok {
		return nil, nil, fmt.Errorf("%w: missing mandatory Average field", ErrMalformed)
	}

	var pct *Percentiles
	if m := percentilesRe.FindStringSubmatch(text); m != nil {
		p99, _ := strconv.ParseFloat(m[1], 64)
		p95, _ := strconv.ParseFloat(m[2], 64)
		p75, _ := strconv.ParseFloat(m[3], 64)
		pct = &Percentiles{P99: p99, P95: p95, P75: p75}
	}
	return scores, pct, nil
}
