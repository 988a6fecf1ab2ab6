// Package buildcfg models the identity of one compiled build variant: the
// optimization configuration it was produced under. Two variants are the
// same build iff their configurations are structurally equal after
// canonicalization.
package buildcfg

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Flag is a configuration value that serializes inconsistently across
// formats: LTO flags appear as booleans in some sidecars and as
// "fat"/"thin"/"off" strings in others, and the target architecture may be
// null. Flags canonicalize to a lowercase string on decode so structural
// equality works without per-field special cases.
type Flag string

func canonical(v any) Flag {
	switch t := v.(type) {
	case nil:
		return "none"
	case bool:
		if t {
			return "true"
		}
		return "false"
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		if s == "" {
			return "none"
		}
		return Flag(s)
	default:
		return Flag(strings.ToLower(fmt.Sprint(t)))
	}
}

func (f *Flag) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = canonical(v)
	return nil
}

func (f *Flag) UnmarshalYAML(node *yaml.Node) error {
	var v any
	if err := node.Decode(&v); err != nil {
		return err
	}
	*f = canonical(v)
	return nil
}

// Config is the optimization configuration tuple of one build variant.
type Config struct {
	Toolchain    Flag `json:"toolchain" yaml:"toolchain"`
	Arch         Flag `json:"arch" yaml:"arch"`
	CodegenUnits int  `json:"codegen-units" yaml:"codegen-units"`
	LTO          Flag `json:"lto" yaml:"lto"`
	OptLevel     int  `json:"opt-level" yaml:"opt-level"`
}

// Canonical returns the configuration with every flag re-canonicalized.
// Configs built from Go literals (rather than decoded) pass through here
// before comparison.
func (c Config) Canonical() Config {
	c.Toolchain = canonical(string(c.Toolchain))
	c.Arch = canonical(string(c.Arch))
	c.LTO = canonical(string(c.LTO))
	return c
}

// Equal reports whether two configurations identify the same build.
func (c Config) Equal(other Config) bool {
	return c.Canonical() == other.Canonical()
}

func (c Config) String() string {
	return fmt.Sprintf("%s, arch=%s, lto=%s, codegen-units=%d, opt-level=%d",
		c.Toolchain, c.Arch, c.LTO, c.CodegenUnits, c.OptLevel)
}
