package cpu

import (
	"errors"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"golang.org/x/crypto/sha3"
)

// Trace errors.
var (
	ErrEmptyTrace = errors.New("cpu: empty trace encoding")
	ErrTraceLimit = errors.New("cpu: trace limit reached")
)

// MemAccess is one data-memory read or write performed by an instruction.
// Value holds the bytes moved, zero-extended, before any sign extension of a
// load result.
type MemAccess struct {
	Addr  uint32
	Value uint32
	Width uint8
	Write bool
}

// TraceStep is the record of one retired instruction.
type TraceStep struct {
	PC         uint32
	Word       uint32
	RegsBefore [NumRegs]uint32
	RegsAfter  [NumRegs]uint32
	Accesses   []MemAccess
	NextPC     uint32
}

// Trace accumulates the steps of a run in retirement order. A step holds
// two register file copies, so a trace costs roughly 300 bytes per retired
// instruction.
type Trace struct {
	Steps []TraceStep

	limit int
}

// NewTrace creates an empty, unbounded trace.
func NewTrace() *Trace {
	return NewTraceLimit(0)
}

// NewTraceLimit creates an empty trace that holds at most limit steps.
// A limit of 0 means no bound.
func NewTraceLimit(limit int) *Trace {
	return &Trace{Steps: make([]TraceStep, 0, 256), limit: limit}
}

// Limit returns the step bound, or 0 if the trace is unbounded.
func (t *Trace) Limit() int { return t.limit }

// Full reports whether the trace has reached its limit.
func (t *Trace) Full() bool { return t.limit > 0 && len(t.Steps) >= t.limit }

// Record appends a step. The accesses slice is copied.
func (t *Trace) Record(step TraceStep) {
	if len(step.Accesses) > 0 {
		step.Accesses = append([]MemAccess(nil), step.Accesses...)
	} else {
		step.Accesses = nil
	}
	t.Steps = append(t.Steps, step)
}

// Len returns the number of recorded steps.
func (t *Trace) Len() int { return len(t.Steps) }

// Reset clears all recorded steps.
func (t *Trace) Reset() { t.Steps = t.Steps[:0] }

// Encode writes the RLP encoding of the trace to w.
func (t *Trace) Encode(w io.Writer) error {
	return rlp.Encode(w, t)
}

// Bytes returns the RLP encoding of the trace.
func (t *Trace) Bytes() ([]byte, error) {
	return rlp.EncodeToBytes(t)
}

// DecodeTrace reconstructs a trace from its RLP encoding.
func DecodeTrace(data []byte) (*Trace, error) {
	if len(data) == 0 {
		return nil, ErrEmptyTrace
	}
	t := new(Trace)
	if err := rlp.DecodeBytes(data, t); err != nil {
		return nil, fmt.Errorf("cpu: decode trace: %w", err)
	}
	for i := range t.Steps {
		if len(t.Steps[i].Accesses) == 0 {
			t.Steps[i].Accesses = nil
		}
	}
	return t, nil
}

// Commitment returns a Keccak-256 Merkle root over the steps. Each leaf is
// the hash of the step's RLP encoding; odd levels duplicate their last node.
// The commitment of an empty trace is the hash of no input.
func (t *Trace) Commitment() (common.Hash, error) {
	if len(t.Steps) == 0 {
		return keccak(), nil
	}
	leaves := make([]common.Hash, len(t.Steps))
	for i := range t.Steps {
		enc, err := rlp.EncodeToBytes(&t.Steps[i])
		if err != nil {
			return common.Hash{}, fmt.Errorf("cpu: encode step %d: %w", i, err)
		}
		leaves[i] = keccak(enc)
	}
	return merkleRoot(leaves), nil
}

func keccak(data ...[]byte) common.Hash {
	h := sha3.NewLegacyKeccak256()
	for _, b := range data {
		h.Write(b)
	}
	var out common.Hash
	h.Sum(out[:0])
	return out
}

func merkleRoot(level []common.Hash) common.Hash {
	for len(level) > 1 {
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}
		next := make([]common.Hash, len(level)/2)
		for i := range next {
			next[i] = keccak(level[2*i][:], level[2*i+1][:])
		}
		level = next
	}
	return level[0]
}
