package cpu

import (
	"errors"
	"fmt"
)

// Machine errors.
var (
	ErrIllegalInstruction = errors.New("cpu: illegal instruction")
	ErrAddressRange       = errors.New("cpu: address out of range")
	ErrMisalignedFetch    = errors.New("cpu: misaligned instruction address")
	ErrHalted             = errors.New("cpu: machine halted")
	ErrStepLimit          = errors.New("cpu: step limit reached")
	ErrProgramTooLarge    = errors.New("cpu: program exceeds instruction store")
	ErrInvalidConfig      = errors.New("cpu: invalid config")
)

// Phase is a state of the fetch-decode-execute loop.
type Phase uint8

const (
	PhaseFetch Phase = iota
	PhaseDecode
	PhaseDispatch
	PhaseExecute
	PhaseAdvance
)

func (p Phase) String() string {
	switch p {
	case PhaseFetch:
		return "fetch"
	case PhaseDecode:
		return "decode"
	case PhaseDispatch:
		return "dispatch"
	case PhaseExecute:
		return "execute"
	case PhaseAdvance:
		return "advance"
	}
	return fmt.Sprintf("Phase(%d)", uint8(p))
}

// Fault is the failure the loop surfaces when an instruction cannot retire.
// Decode and dispatch faults unwrap to both ErrIllegalInstruction and the
// underlying isa error; memory faults unwrap to ErrAddressRange or
// ErrMisalignedFetch.
type Fault struct {
	Phase Phase
	PC    uint32
	Word  uint32 // zero when the fetch itself failed
	Err   error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%v: pc=0x%08x word=0x%08x phase=%v", f.Err, f.PC, f.Word, f.Phase)
}

func (f *Fault) Unwrap() error { return f.Err }
