// Package config handles emberc.toml compiler configuration: which
// instruction specializations are enabled, the objectSmall fast-path
// field-count boundary, and the fiber default stack size.
//
// Grounded on manifest/manifest.go's Load/FindAndLoad shape — the same
// github.com/BurntSushi/toml decode-into-struct idiom, generalized from
// project metadata (name/namespace/dependencies) to compiler tuning.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is emberc.toml's decoded shape.
type Config struct {
	Compile Compile `toml:"compile"`
	Fiber   Fiber   `toml:"fiber"`

	// Dir is the directory containing the emberc.toml file (set at load
	// time), mirroring Manifest.Dir.
	Dir string `toml:"-"`
}

// Compile holds spec.md §4.5's instruction-specialization toggles and
// the objectSmall fast-path boundary. These are loaded settings only:
// pkg/emit does not read a Config, so it always specializes, always uses
// bytecode.ObjectSmallFieldBoundary, and always registers DebugSyms.
type Compile struct {
	// SpecializeArithmetic is the setting for the addInt/minusInt/mulInt
	// specialized op family (spec.md §4.5's binary-arithmetic
	// specialization). Defaults to true.
	SpecializeArithmetic bool `toml:"specialize-arithmetic"`

	// ObjectSmallFieldBoundary is the setting for the objectSmall
	// fast-path boundary (spec.md §8's "fast-path boundary at exactly 4").
	// Zero means "use the compiled-in default".
	ObjectSmallFieldBoundary int `toml:"object-small-field-boundary"`

	// EmitDebugSymbols is the setting for registering DebugSym entries at
	// call/throw/yield sites (spec.md §4.8). Defaults to true.
	EmitDebugSymbols bool `toml:"emit-debug-symbols"`
}

// Fiber holds spec.md §4.6's fiber sizing knobs. pkg/runtime does not
// read a Config; it sizes fiber stacks from its own defaultStackSize.
type Fiber struct {
	// DefaultStackSize is the setting for the register count a freshly
	// coinit'd fiber's stack starts at (spec.md §4.6's defaultStackSize).
	DefaultStackSize int `toml:"default-stack-size"`

	// GrowthFactor is the minimum multiple the stack grows by on
	// overflow (spec.md §4.6: "reallocates to >= 1.5x").
	GrowthFactor float64 `toml:"growth-factor"`
}

// Default returns the compiled-in defaults used when no emberc.toml is
// present, or a loaded Config before defaulting empty fields.
func Default() Config {
	return Config{
		Compile: Compile{
			SpecializeArithmetic:     true,
			ObjectSmallFieldBoundary: 4,
			EmitDebugSymbols:         true,
		},
		Fiber: Fiber{
			DefaultStackSize: 256,
			GrowthFactor:     1.5,
		},
	}
}

// Load parses an emberc.toml file from dir over Default()'s values: a key
// absent from the file keeps its default, and a zero
// ObjectSmallFieldBoundary, DefaultStackSize or GrowthFactor is reset to
// its default. An explicit false for a boolean setting is kept.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, "emberc.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	cfg.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// FindAndLoad walks up from startDir looking for emberc.toml, mirroring
// manifest.FindAndLoad's search-upward behavior. Returns Default() (not
// an error) if no file is found anywhere up to the filesystem root.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", startDir, err)
	}

	for {
		path := filepath.Join(dir, "emberc.toml")
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			def := Default()
			return &def, nil
		}
		dir = parent
	}
}

func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Compile.ObjectSmallFieldBoundary == 0 {
		cfg.Compile.ObjectSmallFieldBoundary = def.Compile.ObjectSmallFieldBoundary
	}
	if cfg.Fiber.DefaultStackSize == 0 {
		cfg.Fiber.DefaultStackSize = def.Fiber.DefaultStackSize
	}
	if cfg.Fiber.GrowthFactor == 0 {
		cfg.Fiber.GrowthFactor = def.Fiber.GrowthFactor
	}
}
