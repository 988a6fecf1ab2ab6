package buildcfg

import (
	"encoding/json"
	"fmt"
	"os"
)

// Sidecar is the JSON metadata file the compilation driver writes next to
// each binary artifact.
type Sidecar struct {
	BuildOptions Config   `json:"build_options"`
	BuildTime    string   `json:"build_time,omitempty"`
	RustFlags    string   `json:"RUSTFLAGS,omitempty"`
	BuildCommand string   `json:"build_command,omitempty"`
	Binaries     []string `json:"binaries,omitempty"`
}

// ReadSidecar loads one build metadata sidecar.
func ReadSidecar(path string) (*Sidecar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading sidecar: %w", err)
	}
	var sc Sidecar
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parsing sidecar %s: %w", path, err)
	}
	return &sc, nil
}

// WriteSidecar persists build metadata next to a binary artifact.
func WriteSidecar(path string, sc *Sidecar) error {
	data, err := json.MarshalIndent(sc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling sidecar: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
