package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/icscript/optimized-builds/internal/buildcfg"
	"github.com/icscript/optimized-builds/internal/rank"
)

type Config struct {
	// Version labels the source release all variants were built from; it
	// names the bin/output subdirectories and the dataset artifacts.
	Version string `yaml:"version"`
	// Artifact is the binary file stem: variant binaries are
	// <artifact>_<n>.bin with an <artifact>_<n>.json sidecar.
	Artifact  string       `yaml:"artifact"`
	Dirs      Dirs         `yaml:"dirs"`
	Runs      Runs         `yaml:"runs"`
	Benchmark Benchmark    `yaml:"benchmark"`
	Scores    Scores       `yaml:"scores"`
	Metrics   []rank.Metric `yaml:"metrics"`
	Primary   string       `yaml:"primary"`
	Baseline  Baseline     `yaml:"baseline"`
	Verify    Verify       `yaml:"verify"`
	Sandbox   Sandbox      `yaml:"sandbox"`
}

type Dirs struct {
	Bin       string `yaml:"bin"`
	Output    string `yaml:"output"`
	Processed string `yaml:"processed"`
}

type Runs struct {
	Machine int `yaml:"machine"`
	// Extrinsic run count; 0 means the convention of max(4, machine/5).
	Extrinsic      int `yaml:"extrinsic"`
	TimeoutMinutes int `yaml:"timeout_minutes"`
}

type Benchmark struct {
	MachineArgs   []string `yaml:"machine_args"`
	ExtrinsicArgs []string `yaml:"extrinsic_args"`
}

type Scores struct {
	// Machine names the pipe-table rows of the machine benchmark, in table
	// order.
	Machine []string `yaml:"machine"`
}

// Baseline nominates the reference variant. Its build configuration is a
// caller-supplied approximation (the reference binary's actual build
// options are not recoverable from the binary), so it lives in the config
// file rather than in code.
type Baseline struct {
	ID     string           `yaml:"id"`
	Config *buildcfg.Config `yaml:"config"`
}

type Verify struct {
	SymbolSubstr      string `yaml:"symbol_substr"`
	ISAMarker         string `yaml:"isa_marker"`
	NarrowClass       string `yaml:"narrow_class"`
	WideClass         string `yaml:"wide_class"`
	RefNarrow         int    `yaml:"ref_narrow"`
	RefWide           int    `yaml:"ref_wide"`
	ThresholdMultiple int    `yaml:"threshold_multiple"`
	NMTool            string `yaml:"nm_tool"`
	ObjdumpTool       string `yaml:"objdump_tool"`
	SymbolTimeoutS    int    `yaml:"symbol_timeout_s"`
	DisasmTimeoutS    int    `yaml:"disasm_timeout_s"`
}

type Sandbox struct {
	// Image, when set, runs benchmarks inside a container of this image
	// instead of directly on the host.
	Image string `yaml:"image"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Version == "" {
		return fmt.Errorf("version is required")
	}
	if cfg.Artifact == "" {
		cfg.Artifact = "polkadot"
	}
	if cfg.Dirs.Bin == "" {
		cfg.Dirs.Bin = "bin"
	}
	if cfg.Dirs.Output == "" {
		cfg.Dirs.Output = "output"
	}
	if cfg.Dirs.Processed == "" {
		cfg.Dirs.Processed = "processed"
	}
	if cfg.Runs.Machine < 1 {
		cfg.Runs.Machine = 20
	}
	if cfg.Runs.TimeoutMinutes < 1 {
		cfg.Runs.TimeoutMinutes = 10
	}
	if len(cfg.Benchmark.MachineArgs) == 0 {
		cfg.Benchmark.MachineArgs = []string{"benchmark", "machine", "--disk-duration", "30"}
	}
	if len(cfg.Benchmark.ExtrinsicArgs) == 0 {
		cfg.Benchmark.ExtrinsicArgs = []string{"benchmark", "extrinsic", "--pallet", "system", "--extrinsic", "remark", "--dev"}
	}
	if len(cfg.Scores.Machine) == 0 {
		cfg.Scores.Machine = []string{"BLAKE2-256", "SR25519-Verify", "Copy", "Seq_Write", "Rnd_Write"}
	}
	if len(cfg.Metrics) == 0 {
		cfg.Metrics = []rank.Metric{
			{Name: "BLAKE2-256", HigherIsBetter: true},
			{Name: "SR25519-Verify", HigherIsBetter: true},
			{Name: "Median", Display: "Extr-Remark", HigherIsBetter: false},
		}
	}
	if cfg.Primary == "" {
		cfg.Primary = cfg.Metrics[0].Name
	}
	found := false
	for _, m := range cfg.Metrics {
		if m.Name == cfg.Primary {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("primary score %q is not a tracked metric", cfg.Primary)
	}
	if cfg.Baseline.ID == "" {
		cfg.Baseline.ID = "official"
	}
	if cfg.Verify.SymbolSubstr == "" {
		cfg.Verify.SymbolSubstr = "blake2"
	}
	if cfg.Verify.ISAMarker == "" {
		cfg.Verify.ISAMarker = "avx2"
	}
	if cfg.Verify.NarrowClass == "" {
		cfg.Verify.NarrowClass = "ymm"
	}
	if cfg.Verify.WideClass == "" {
		cfg.Verify.WideClass = "zmm"
	}
	return nil
}
