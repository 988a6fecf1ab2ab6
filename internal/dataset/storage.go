package dataset

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/icscript/optimized-builds/internal/transcript"
)

// WriteSnapshot persists the full dataset as an indented JSON file. The
// snapshot is the durable artifact the report command consumes.
func WriteSnapshot(path string, d *Dataset) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating snapshot dir: %w", err)
	}
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling dataset: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadSnapshot loads a dataset snapshot written by WriteSnapshot.
func ReadSnapshot(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	var d Dataset
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parsing snapshot %s: %w", path, err)
	}
	return &d, nil
}

// WriteCSV writes the records of one benchmark kind as a delimited table,
// one row per run, with the variant's build configuration repeated on every
// row. Score columns follow the order of scoreNames; a run missing a score
// gets an empty cell.
func WriteCSV(path string, d *Dataset, kind transcript.Kind, scoreNames []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating csv dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"host", "date", "ver", "nb_run", "nb_build", "cpu"}
	header = append(header, scoreNames...)
	header = append(header, "toolchain", "arch", "codegen-units", "lto", "opt-level")
	if err := w.Write(header); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	for _, rec := range d.ByKind(kind) {
		row := []string{
			d.Host, d.Date, d.Version,
			strconv.Itoa(rec.Run), rec.Variant,
			strconv.FormatFloat(rec.CPU, 'g', -1, 64),
		}
		byName := make(map[string]float64, len(rec.Scores))
		for _, s := range rec.Scores {
			byName[s.Name] = s.Value
		}
		for _, name := range scoreNames {
			if v, ok := byName[name]; ok {
				row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
			} else {
				row = append(row, "")
			}
		}
		cfg := d.Configs[rec.Variant]
		row = append(row,
			string(cfg.Toolchain), string(cfg.Arch),
			strconv.Itoa(cfg.CodegenUnits), string(cfg.LTO),
			strconv.Itoa(cfg.OptLevel),
		)
		if err := w.Write(row); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}
