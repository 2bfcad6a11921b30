package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"github.com/rv32sim/rv32sim/cpu"
	"github.com/rv32sim/rv32sim/isa"
	"github.com/rv32sim/rv32sim/loader"
	"github.com/rv32sim/rv32sim/log"
	"github.com/rv32sim/rv32sim/metrics"
)

const metricsNamespace = "rv32sim"

// Flag names for the run command.
const (
	flagConfig     = "config"
	flagFormat     = "format"
	flagImemWords  = "imem.words"
	flagDmemBytes  = "dmem.bytes"
	flagEntry      = "entry"
	flagMaxSteps   = "max-steps"
	flagTrace      = "trace"
	flagTraceLimit = "trace.limit"
	flagTraceOut   = "trace.out"
	flagMetricsOut = "metrics.out"
	flagRegs       = "regs"
	flagLogLevel   = "log.level"
	flagLogFormat  = "log.format"
)

// runFlags are built per App so flag state never leaks between runs.
func runFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: flagConfig, Usage: "YAML config file"},
		&cli.StringFlag{Name: flagFormat, Usage: "image format: auto, bin, hex or elf"},
		&cli.IntFlag{Name: flagImemWords, Usage: "instruction store size in words"},
		&cli.Uint64Flag{Name: flagDmemBytes, Usage: "data memory size in bytes"},
		&cli.StringFlag{Name: flagEntry, Usage: "override the entry point (e.g. 0x100)"},
		&cli.Uint64Flag{Name: flagMaxSteps, Usage: "stop after this many instructions (0 = no limit)"},
		&cli.BoolFlag{Name: flagTrace, Usage: "record an execution trace"},
		&cli.IntFlag{Name: flagTraceLimit, Usage: "stop once the trace holds this many steps (0 = default)"},
		&cli.StringFlag{Name: flagTraceOut, Usage: "write the RLP-encoded trace to this file"},
		&cli.StringFlag{Name: flagMetricsOut, Usage: "write Prometheus text metrics to this file (- for stdout)"},
		&cli.BoolFlag{Name: flagRegs, Usage: "print the register file after the run"},
		&cli.StringFlag{Name: flagLogLevel, Usage: "log level: debug, info, warn or error"},
		&cli.StringFlag{Name: flagLogFormat, Usage: "log format: json or text (default: text on a terminal)"},
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "load a program and run it until it halts",
		ArgsUsage: "<program>",
		Flags:     runFlags(),
		Action: func(c *cli.Context) error {
			cfg, err := LoadConfig(c.String(flagConfig))
			if err != nil {
				return cli.Exit(err, exitError)
			}
			if c.NArg() > 0 {
				cfg.Program = c.Args().First()
			}
			if err := applyFlags(c, &cfg); err != nil {
				return cli.Exit(err, exitError)
			}
			if err := cfg.Validate(); err != nil {
				return cli.Exit(err, exitError)
			}
			logger := newLogger(cfg, c.App.ErrWriter)
			log.SetDefault(logger)
			return simulate(cfg, logger, c.App.Writer)
		},
	}
}

// applyFlags overrides cfg with every flag given on the command line.
func applyFlags(c *cli.Context, cfg *Config) error {
	if c.IsSet(flagFormat) {
		cfg.Format = c.String(flagFormat)
	}
	if c.IsSet(flagImemWords) {
		cfg.InstructionWords = c.Int(flagImemWords)
	}
	if c.IsSet(flagDmemBytes) {
		n := c.Uint64(flagDmemBytes)
		if n > 1<<32-4 {
			return fmt.Errorf("%w: --%s %d exceeds the 32-bit address space", ErrInvalidConfig, flagDmemBytes, n)
		}
		cfg.DataBytes = uint32(n)
	}
	if c.IsSet(flagEntry) {
		pc, err := strconv.ParseUint(c.String(flagEntry), 0, 32)
		if err != nil {
			return fmt.Errorf("%w: --%s: %v", ErrInvalidConfig, flagEntry, err)
		}
		entry := uint32(pc)
		cfg.Entry = &entry
	}
	if c.IsSet(flagMaxSteps) {
		cfg.MaxSteps = c.Uint64(flagMaxSteps)
	}
	if c.IsSet(flagTrace) {
		cfg.Trace = c.Bool(flagTrace)
	}
	if c.IsSet(flagTraceLimit) {
		cfg.TraceLimit = c.Int(flagTraceLimit)
	}
	if c.IsSet(flagTraceOut) {
		cfg.TraceOut = c.String(flagTraceOut)
		cfg.Trace = true
	}
	if c.IsSet(flagMetricsOut) {
		cfg.MetricsOut = c.String(flagMetricsOut)
	}
	if c.IsSet(flagRegs) {
		cfg.DumpRegs = c.Bool(flagRegs)
	}
	if c.IsSet(flagLogLevel) {
		cfg.LogLevel = c.String(flagLogLevel)
	}
	if c.IsSet(flagLogFormat) {
		cfg.LogFormat = c.String(flagLogFormat)
	}
	return nil
}

// newLogger builds the process logger. Without an explicit format it
// writes text to a terminal and JSON elsewhere. cfg must be validated.
func newLogger(cfg Config, w io.Writer) *log.Logger {
	level, _ := log.ParseLevel(cfg.LogLevel)
	format := log.FormatJSON
	if cfg.LogFormat != "" {
		format, _ = log.ParseFormat(cfg.LogFormat)
	} else if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		format = log.FormatText
	}
	return log.NewWriter(w, level, format)
}

// simulate loads and runs the configured program and writes its reports.
func simulate(cfg Config, logger *log.Logger, out io.Writer) error {
	format, _ := loader.ParseFormat(cfg.Format)
	img, err := loader.Load(cfg.Program, format)
	if err != nil {
		return cli.Exit(err, exitError)
	}
	logger.Module("loader").Info("image loaded",
		"program", cfg.Program,
		"words", img.Words(),
		"data_segments", len(img.Data),
		"entry", hexutil.Uint64(img.Entry))

	reg := metrics.NewRegistry()
	m, err := cpu.New(cpu.Config{
		InstructionWords: cfg.InstructionWords,
		DataBytes:        cfg.DataBytes,
		Logger:           logger,
		Metrics:          reg,
		Trace:            cfg.Trace,
		TraceLimit:       cfg.TraceLimit,
	})
	if err != nil {
		return cli.Exit(err, exitError)
	}
	if err := img.Install(m); err != nil {
		return cli.Exit(err, exitError)
	}
	if cfg.Entry != nil {
		m.SetPC(*cfg.Entry)
	}

	log.Info("running", "max_steps", cfg.MaxSteps, "pc", hexutil.Uint64(m.PC()))
	runErr := m.Run(cfg.MaxSteps)
	logger.Info("run finished", "steps", m.Steps(), "metrics", reg.Snapshot())

	fmt.Fprintf(out, "steps=%d pc=0x%08x\n", m.Steps(), m.PC())
	if cfg.DumpRegs {
		dumpRegs(out, m)
	}
	if cfg.Trace {
		if err := writeTrace(cfg.TraceOut, m.Trace(), out); err != nil {
			return cli.Exit(err, exitError)
		}
	}
	if cfg.MetricsOut != "" {
		if err := writeMetrics(cfg.MetricsOut, reg, out); err != nil {
			return cli.Exit(err, exitError)
		}
	}

	switch {
	case runErr == nil:
		fmt.Fprintf(out, "exit=%d\n", m.ExitCode())
		if code := int(m.ExitCode() & 0xFF); code != 0 {
			return cli.Exit("", code)
		}
		return nil
	case errors.Is(runErr, cpu.ErrStepLimit), errors.Is(runErr, cpu.ErrTraceLimit):
		return cli.Exit(runErr, exitStepLimit)
	default:
		return cli.Exit(runErr, exitFault)
	}
}

// dumpRegs prints pc and x0..x31 by ABI name, four registers per line.
func dumpRegs(w io.Writer, m *cpu.Machine) {
	fmt.Fprintf(w, "pc   %08x\n", m.PC())
	regs := m.Regs()
	for i, v := range regs {
		sep := "  "
		if i%4 == 3 {
			sep = "\n"
		}
		fmt.Fprintf(w, "%-4s %08x%s", isa.RegName(uint32(i)), v, sep)
	}
}

func writeTrace(path string, tr *cpu.Trace, out io.Writer) error {
	root, err := tr.Commitment()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "trace steps=%d commitment=%s\n", tr.Len(), root.Hex())
	if path == "" {
		return nil
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("trace: %w", err)
	}
	if err := tr.Encode(f); err != nil {
		f.Close()
		return fmt.Errorf("trace: %w", err)
	}
	return f.Close()
}

func writeMetrics(path string, reg *metrics.Registry, stdout io.Writer) error {
	if path == "-" {
		return metrics.WriteText(stdout, reg, metricsNamespace)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	if err := metrics.WriteText(f, reg, metricsNamespace); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
