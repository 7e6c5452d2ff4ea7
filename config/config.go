// Package config loads the optional YAML configuration that makes the
// scheduler's worker pool, the settle-iteration cap, the PC reset address,
// and the MMIO base addresses pluggable at runtime instead of build-time
// constants (SPEC_FULL.md's Configuration module).
package config

import (
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Defaults per spec §4.9 (PC reset value) and §6 (MMIO memory map).
const (
	DefaultPCReset           uint32 = 0x40000000
	DefaultKeyboardStatus    uint32 = 0x000A0000
	DefaultFramebufferBase   uint32 = 0x000B8000
	DefaultImageBase         uint32 = 0x40000000
	DefaultMaxSettleIterations int  = 1024
)

// Config is the simulator's tunable parameters. Zero-value fields are
// filled with the package defaults by Load.
type Config struct {
	Workers             int    `yaml:"workers"`
	MaxSettleIterations int    `yaml:"max_settle_iterations"`
	PCReset             uint32 `yaml:"pc_reset"`
	KeyboardStatusAddr  uint32 `yaml:"keyboard_status_addr"`
	FramebufferBaseAddr uint32 `yaml:"framebuffer_base_addr"`
	ImageBase           uint32 `yaml:"image_base"`
}

// Default returns a Config populated entirely with spec-mandated defaults.
func Default() Config {
	return Config{
		Workers:             runtime.NumCPU(),
		MaxSettleIterations: DefaultMaxSettleIterations,
		PCReset:             DefaultPCReset,
		KeyboardStatusAddr:  DefaultKeyboardStatus,
		FramebufferBaseAddr: DefaultFramebufferBase,
		ImageBase:           DefaultImageBase,
	}
}

// Load reads a YAML config file at path, filling any field left at its
// zero value with the corresponding default. A missing file is not an
// error: Load returns Default() unchanged, since configuration is
// optional (SPEC_FULL.md's Configuration module).
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}

	var fromFile Config
	if err := yaml.Unmarshal(data, &fromFile); err != nil {
		return cfg, err
	}

	if fromFile.Workers != 0 {
		cfg.Workers = fromFile.Workers
	}
	if fromFile.MaxSettleIterations != 0 {
		cfg.MaxSettleIterations = fromFile.MaxSettleIterations
	}
	if fromFile.PCReset != 0 {
		cfg.PCReset = fromFile.PCReset
	}
	if fromFile.KeyboardStatusAddr != 0 {
		cfg.KeyboardStatusAddr = fromFile.KeyboardStatusAddr
	}
	if fromFile.FramebufferBaseAddr != 0 {
		cfg.FramebufferBaseAddr = fromFile.FramebufferBaseAddr
	}
	if fromFile.ImageBase != 0 {
		cfg.ImageBase = fromFile.ImageBase
	}
	return cfg, nil
}
