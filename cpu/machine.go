// Package cpu executes RV32I programs. A Machine owns a register file, a
// read-only instruction store and a byte-addressed data memory, and drives
// them through the fetch, decode, dispatch, execute and advance states one
// instruction at a time.
//
// Programs stop by executing ECALL (a7 = 0 halts with exit code a0) or
// EBREAK. Decode and memory failures halt the machine with a *Fault.
package cpu

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/rv32sim/rv32sim/isa"
	"github.com/rv32sim/rv32sim/log"
	"github.com/rv32sim/rv32sim/metrics"
)

// Default sizes.
const (
	DefaultInstructionWords = 16 * 1024   // 64 KiB of program
	DefaultDataBytes        = 1024 * 1024 // 1 MiB
	DefaultTraceLimit       = 1 << 18     // steps; about 75 MiB of trace
)

// Config sizes a Machine and attaches its optional collaborators.
type Config struct {
	InstructionWords int
	DataBytes        uint32

	Logger  *log.Logger       // nil discards
	Metrics *metrics.Registry // nil disables metrics
	Trace   bool              // record a Trace of every retired instruction

	// TraceLimit bounds the trace in steps. 0 selects DefaultTraceLimit.
	// Once the trace is full, Step returns ErrTraceLimit without executing.
	TraceLimit int
}

// DefaultConfig returns a Config with the default memory sizes.
func DefaultConfig() Config {
	return Config{
		InstructionWords: DefaultInstructionWords,
		DataBytes:        DefaultDataBytes,
	}
}

// Machine is a single RV32I hart. It is not safe for concurrent use.
type Machine struct {
	regs RegisterFile
	rom  *InstructionStore
	ram  *DataMemory

	halted   bool
	exitCode uint32
	fault    *Fault
	steps    uint64

	log      *log.Logger
	stats    *stats
	trace    *Trace
	accesses []MemAccess
}

// New creates a Machine with zeroed registers and memory and PC 0.
func New(cfg Config) (*Machine, error) {
	if cfg.InstructionWords <= 0 {
		return nil, fmt.Errorf("%w: instruction store of %d words", ErrInvalidConfig, cfg.InstructionWords)
	}
	if cfg.DataBytes == 0 {
		return nil, fmt.Errorf("%w: data memory of 0 bytes", ErrInvalidConfig)
	}
	if cfg.TraceLimit < 0 {
		return nil, fmt.Errorf("%w: trace limit of %d steps", ErrInvalidConfig, cfg.TraceLimit)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Discard()
	}
	m := &Machine{
		rom:   NewInstructionStore(cfg.InstructionWords),
		ram:   NewDataMemory(cfg.DataBytes),
		log:   logger.Module("cpu"),
		stats: newStats(cfg.Metrics),
	}
	if cfg.Trace {
		limit := cfg.TraceLimit
		if limit == 0 {
			limit = DefaultTraceLimit
		}
		m.trace = NewTraceLimit(limit)
	}
	return m, nil
}

// LoadProgram copies words into the instruction store at byte address base.
func (m *Machine) LoadProgram(base uint32, words []uint32) error {
	return m.rom.Load(base, words)
}

// LoadData copies raw bytes into data memory at addr.
func (m *Machine) LoadData(addr uint32, data []byte) error {
	return m.ram.LoadSegment(addr, data)
}

// PC returns the program counter.
func (m *Machine) PC() uint32 { return m.regs.PC() }

// SetPC sets the program counter.
func (m *Machine) SetPC(pc uint32) { m.regs.SetPC(pc) }

// Reg returns register i.
func (m *Machine) Reg(i uint32) uint32 { return m.regs.Get(i) }

// SetReg writes register i. Writes to x0 are discarded.
func (m *Machine) SetReg(i, v uint32) { m.regs.Set(i, v) }

// Regs returns a copy of the general registers.
func (m *Machine) Regs() [NumRegs]uint32 { return m.regs.Snapshot() }

// Memory returns the data memory.
func (m *Machine) Memory() *DataMemory { return m.ram }

// Instructions returns the instruction store.
func (m *Machine) Instructions() *InstructionStore { return m.rom }

// Halted reports whether the machine has stopped, by ECALL, EBREAK or a
// fault.
func (m *Machine) Halted() bool { return m.halted }

// ExitCode returns the exit code set by the halting ECALL or EBREAK.
func (m *Machine) ExitCode() uint32 { return m.exitCode }

// Fault returns the fault that halted the machine, if any.
func (m *Machine) Fault() *Fault { return m.fault }

// Steps returns the number of retired instructions.
func (m *Machine) Steps() uint64 { return m.steps }

// Trace returns the execution trace, or nil when tracing is off.
func (m *Machine) Trace() *Trace { return m.trace }

// Reset clears registers, data memory, counters and the trace, leaving the
// instruction store intact.
func (m *Machine) Reset() {
	m.regs.Reset()
	m.ram.Reset()
	m.halted, m.exitCode, m.fault, m.steps = false, 0, nil, 0
	if m.trace != nil {
		m.trace.Reset()
	}
}

// Run steps the machine until it halts. A limit of 0 means no limit;
// otherwise Run returns ErrStepLimit after limit instructions have retired
// without a halt. Run returns nil on a clean halt, including when the
// machine was already halted without a fault.
func (m *Machine) Run(limit uint64) error {
	if m.fault != nil {
		return m.fault
	}
	defer m.stats.timer().Stop()

	for n := uint64(0); !m.halted; n++ {
		if limit > 0 && n >= limit {
			m.log.Warn("step limit reached", "limit", limit, "pc", hex32(m.regs.PC()))
			return fmt.Errorf("%w: %d instructions", ErrStepLimit, limit)
		}
		if err := m.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Step executes exactly one instruction. It returns ErrHalted if the machine
// has already halted, ErrTraceLimit if the trace is full, or a *Fault if the
// instruction cannot retire. A fault halts the machine and leaves PC at the
// faulting instruction.
func (m *Machine) Step() error {
	if m.halted {
		return ErrHalted
	}
	pc := m.regs.PC()
	if m.trace != nil && m.trace.Full() {
		m.log.Warn("trace limit reached", "limit", m.trace.Limit(), "pc", hex32(pc))
		return fmt.Errorf("%w: %d steps", ErrTraceLimit, m.trace.Limit())
	}

	word, err := m.rom.Fetch(pc)
	if err != nil {
		return m.raise(PhaseFetch, pc, 0, err)
	}

	ins, err := isa.DecodeFormat(word)
	if err != nil {
		return m.raise(PhaseDecode, pc, word, fmt.Errorf("%w: %w", ErrIllegalInstruction, err))
	}
	if ins.Op, err = isa.Dispatch(ins); err != nil {
		return m.raise(PhaseDispatch, pc, word, fmt.Errorf("%w: %w", ErrIllegalInstruction, err))
	}

	var before [NumRegs]uint32
	if m.trace != nil {
		before = m.regs.Snapshot()
		m.accesses = m.accesses[:0]
	}
	eff, err := behaviours[ins.Op](m, &ins)
	if err != nil {
		return m.raise(PhaseExecute, pc, word, err)
	}

	next := pc + 4
	if eff.redirect {
		next = eff.target
	}
	m.regs.SetPC(next)
	m.steps++
	m.stats.retire(ins.Format)

	if m.trace != nil {
		m.trace.Record(TraceStep{
			PC:         pc,
			Word:       word,
			RegsBefore: before,
			RegsAfter:  m.regs.Snapshot(),
			Accesses:   m.accesses,
			NextPC:     next,
		})
	}
	if m.log.Enabled(slog.LevelDebug) {
		m.log.Debug("retired", "pc", hex32(pc), "word", hex32(word), "asm", ins.String())
	}
	return nil
}

// raise halts the machine with a Fault.
func (m *Machine) raise(phase Phase, pc, word uint32, err error) error {
	f := &Fault{Phase: phase, PC: pc, Word: word, Err: err}
	m.halted, m.fault = true, f
	m.stats.fault(pc)

	attrs := []any{"phase", phase.String(), "pc", hex32(pc), "word", hex32(word), "err", err}
	var derr *isa.DecodeError
	if errors.As(err, &derr) {
		attrs = append(attrs, "opcode", fmt.Sprintf("0b%07b", derr.Opcode))
	}
	m.log.Warn("fault", attrs...)
	return f
}

// halt stops the machine after the current instruction retires.
func (m *Machine) halt(code uint32, reason string) {
	m.halted, m.exitCode = true, code
	m.stats.halt(code, m.regs.PC())
	m.log.Info("halted", "reason", reason, "exit", code, "steps", m.steps+1)
}

// access records a data-memory access for the trace.
func (m *Machine) access(a MemAccess) {
	if m.trace != nil {
		m.accesses = append(m.accesses, a)
	}
}

func hex32(v uint32) string { return fmt.Sprintf("0x%08x", v) }
