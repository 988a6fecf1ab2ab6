// Package dataset collects the structured run records of one benchmark
// session (one version on one host at one point in time) together with the
// build configuration of every variant that appears in it, and persists the
// whole thing as CSV for downstream tools plus a JSON snapshot this repo's
// own report command reads back.
package dataset

import (
	"errors"
	"fmt"
	"sort"

	"github.com/icscript/optimized-builds/internal/buildcfg"
	"github.com/icscript/optimized-builds/internal/transcript"
)

// ErrConfigMismatch is returned when two records claim the same variant
// identifier with different build configurations. Aggregating them would
// silently merge unlike builds, so the conflict is fatal to that variant.
var ErrConfigMismatch = errors.New("conflicting build configurations for variant")

// Dataset is the ordered collection of run records for one benchmark
// session.
type Dataset struct {
	Version string                     `json:"version"`
	Host    string                     `json:"host"`
	Date    string                     `json:"date"`
	Records []transcript.Record        `json:"records"`
	Configs map[string]buildcfg.Config `json:"configs"`
}

// New creates an empty dataset for one (version, host, date) session.
func New(version, host, date string) *Dataset {
	return &Dataset{
		Version: version,
		Host:    host,
		Date:    date,
		Configs: make(map[string]buildcfg.Config),
	}
}

// SetConfig registers the build configuration of a variant. Registering a
// different configuration under an already-known variant identifier returns
// ErrConfigMismatch and leaves the dataset unchanged.
func (d *Dataset) SetConfig(variant string, cfg buildcfg.Config) error {
	if existing, ok := d.Configs[variant]; ok {
		if !existing.Equal(cfg) {
			return fmt.Errorf("%w %q: have (%s), got (%s)", ErrConfigMismatch, variant, existing, cfg)
		}
		return nil
	}
	d.Configs[variant] = cfg.Canonical()
	return nil
}

// Add appends one run record. Records may arrive in any order (e.g. from a
// parse worker pool); Sort restores the deterministic order before
// persistence.
func (d *Dataset) Add(rec transcript.Record) {
	d.Records = append(d.Records, rec)
}

// Sort orders records by (kind, variant, run) so output is deterministic
// regardless of parallel parse completion order.
func (d *Dataset) Sort() {
	sort.Slice(d.Records, func(i, j int) bool {
		a, b := d.Records[i], d.Records[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.Variant != b.Variant {
			return a.Variant < b.Variant
		}
		return a.Run < b.Run
	})
}

// ByKind returns the records of one benchmark kind, in dataset order.
func (d *Dataset) ByKind(kind transcript.Kind) []transcript.Record {
	var out []transcript.Record
	for _, r := range d.Records {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

// Name is the file stem shared by this dataset's artifacts:
// <version>_<host>_<date>.
func (d *Dataset) Name() string {
	return fmt.Sprintf("%s_%s_%s", d.Version, d.Host, d.Date)
}
