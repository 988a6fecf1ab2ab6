package aggregate_test

import (
	"math"
	"testing"

	"github.com/icscript/optimized-builds/internal/aggregate"
	"github.com/icscript/optimized-builds/internal/transcript"
)

func records(variant, score string, values ...float64) []transcript.Record {
	recs := make([]transcript.Record, len(values))
	for i, v := range values {
		recs[i] = transcript.Record{
			Variant: variant,
			Run:     i,
			Kind:    transcript.KindMachine,
			Scores:  []transcript.Score{{Name: score, Value: v}},
		}
	}
	return recs
}

func TestSummarizeNoVariance(t *testing.T) {
	sums := aggregate.Summarize(records("1", "BLAKE2-256", 10.0, 10.0, 10.0))
	if len(sums) != 1 {
		t.Fatalf("summaries: got %d, want 1", len(sums))
	}
	s := sums[0]
	if s.Median != 10.0 {
		t.Errorf("median: got %v, want 10.0", s.Median)
	}
	if s.Err != 0.0 {
		t.Errorf("err: got %v, want 0.0", s.Err)
	}
	if s.N != 3 {
		t.Errorf("n: got %d, want 3", s.N)
	}
}

func TestSummarizeHalfWidthFormula(t *testing.T) {
	sums := aggregate.Summarize(records("1", "BLAKE2-256", 8, 9, 10, 11, 12))
	s := sums[0]
	if s.Median != 10.0 {
		t.Errorf("median: got %v, want 10.0", s.Median)
	}
	// sample stddev of 8..12 is sqrt(2.5); half-width is 1.25*1.96*sd/sqrt(5)
	want := 1.25 * 1.96 * math.Sqrt(2.5) / math.Sqrt(5)
	if math.Abs(s.Err-want) > 1e-12 {
		t.Errorf("err: got %v, want %v", s.Err, want)
	}
	if s.Err <= 0 || math.IsInf(s.Err, 0) || math.IsNaN(s.Err) {
		t.Errorf("err not positive finite: %v", s.Err)
	}
}

func TestSummarizeEvenCountMedian(t *testing.T) {
	sums := aggregate.Summarize(records("1", "x", 1, 2, 3, 4))
	if sums[0].Median != 2.5 {
		t.Errorf("median: got %v, want 2.5", sums[0].Median)
	}
}

func TestSummarizeSingleSample(t *testing.T) {
	sums := aggregate.Summarize(records("1", "x", 42))
	if sums[0].Median != 42 || sums[0].Err != 0 {
		t.Errorf("single sample: got %+v", sums[0])
	}
}

func TestSummarizeGroupingAndOrder(t *testing.T) {
	recs := append(records("2", "b", 1, 2), records("1", "a", 3, 4)...)
	recs = append(recs, transcript.Record{
		Variant: "1",
		Kind:    transcript.KindMachine,
		Scores:  []transcript.Score{{Name: "b", Value: 5}},
	})
	sums := aggregate.Summarize(recs)
	if len(sums) != 3 {
		t.Fatalf("summaries: got %d, want 3", len(sums))
	}
	wantOrder := []struct{ variant, score string }{
		{"1", "a"}, {"1", "b"}, {"2", "b"},
	}
	for i, w := range wantOrder {
		if sums[i].Variant != w.variant || sums[i].Score != w.score {
			t.Errorf("order %d: got (%s, %s), want (%s, %s)", i, sums[i].Variant, sums[i].Score, w.variant, w.score)
		}
	}
}
