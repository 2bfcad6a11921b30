package main

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/rv32sim/rv32sim/cpu"
	"github.com/rv32sim/rv32sim/loader"
	"github.com/rv32sim/rv32sim/log"
)

// Configuration errors.
var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrInvalidConfig      = errors.New("invalid configuration")
)

// Config holds everything the run command needs. It is filled from
// DefaultConfig, then a YAML file, then command-line flags.
type Config struct {
	Program string `yaml:"program"`
	Format  string `yaml:"format"` // auto, bin, hex or elf

	InstructionWords int     `yaml:"instruction_words"`
	DataBytes        uint32  `yaml:"data_bytes"`
	Entry            *uint32 `yaml:"entry"` // overrides the image entry point
	MaxSteps         uint64  `yaml:"max_steps"`

	Trace      bool   `yaml:"trace"`
	TraceLimit int    `yaml:"trace_limit"` // steps; 0 selects cpu.DefaultTraceLimit
	TraceOut   string `yaml:"trace_out"`
	MetricsOut string `yaml:"metrics_out"`
	DumpRegs   bool   `yaml:"dump_regs"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // json, text, or empty to detect
}

// DefaultConfig returns the configuration used when no file or flag says
// otherwise.
func DefaultConfig() Config {
	return Config{
		Format:           string(loader.FormatAuto),
		InstructionWords: cpu.DefaultInstructionWords,
		DataBytes:        cpu.DefaultDataBytes,
		MaxSteps:         10_000_000,
		LogLevel:         "info",
	}
}

// LoadConfig reads a YAML config file over the defaults. Unknown keys are
// rejected. An empty path returns the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, fmt.Errorf("%w: %s", ErrConfigFileNotFound, path)
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	return cfg, nil
}

// Validate checks the Config for internal consistency and returns an error
// describing the first problem found.
func (c *Config) Validate() error {
	if c.Program == "" {
		return fmt.Errorf("%w: no program given", ErrInvalidConfig)
	}
	if _, err := loader.ParseFormat(c.Format); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.InstructionWords <= 0 {
		return fmt.Errorf("%w: instruction_words must be positive, got %d", ErrInvalidConfig, c.InstructionWords)
	}
	if c.DataBytes == 0 {
		return fmt.Errorf("%w: data_bytes must be positive", ErrInvalidConfig)
	}
	if c.TraceLimit < 0 {
		return fmt.Errorf("%w: trace_limit must not be negative, got %d", ErrInvalidConfig, c.TraceLimit)
	}
	if c.TraceOut != "" && !c.Trace {
		return fmt.Errorf("%w: trace_out set but tracing is off", ErrInvalidConfig)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.LogFormat != "" {
		if _, err := log.ParseFormat(c.LogFormat); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	return nil
}
