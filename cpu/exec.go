package cpu

import (
	"fmt"

	"github.com/rv32sim/rv32sim/bitutil"
	"github.com/rv32sim/rv32sim/isa"
)

// effect is what a behaviour tells the Advance state. When redirect is set
// the PC becomes target; otherwise it moves to the next instruction.
type effect struct {
	redirect bool
	target   uint32
}

// sequential is the effect of every instruction that does not change
// control flow.
var sequential = effect{}

// behaviour executes one decoded instruction against the machine state.
type behaviour func(m *Machine, ins *isa.Instruction) (effect, error)

// behaviours maps every implemented operation to its behaviour.
var behaviours = [isa.NumOps]behaviour{
	isa.OpLUI:   execLUI,
	isa.OpAUIPC: execAUIPC,
	isa.OpJAL:   execJAL,
	isa.OpJALR:  execJALR,

	isa.OpBEQ:  execBranch,
	isa.OpBNE:  execBranch,
	isa.OpBLT:  execBranch,
	isa.OpBGE:  execBranch,
	isa.OpBLTU: execBranch,
	isa.OpBGEU: execBranch,

	isa.OpLB:  execLoad,
	isa.OpLH:  execLoad,
	isa.OpLW:  execLoad,
	isa.OpLBU: execLoad,
	isa.OpLHU: execLoad,

	isa.OpSB: execStore,
	isa.OpSH: execStore,
	isa.OpSW: execStore,

	isa.OpADDI:  execOpImm,
	isa.OpSLTI:  execOpImm,
	isa.OpSLTIU: execOpImm,
	isa.OpXORI:  execOpImm,
	isa.OpORI:   execOpImm,
	isa.OpANDI:  execOpImm,
	isa.OpSLLI:  execOpImm,
	isa.OpSRLI:  execOpImm,
	isa.OpSRAI:  execOpImm,

	isa.OpADD:  execOp,
	isa.OpSUB:  execOp,
	isa.OpSLL:  execOp,
	isa.OpSLT:  execOp,
	isa.OpSLTU: execOp,
	isa.OpXOR:  execOp,
	isa.OpSRL:  execOp,
	isa.OpSRA:  execOp,
	isa.OpOR:   execOp,
	isa.OpAND:  execOp,

	isa.OpFENCE:  execFence,
	isa.OpFENCEI: execFence,
	isa.OpECALL:  execECALL,
	isa.OpEBREAK: execEBREAK,
}

// alu computes the result of a register-register or register-immediate
// arithmetic, logical, shift or compare operation. Shifts use the low five
// bits of b.
func alu(op isa.Op, a, b uint32) uint32 {
	switch op {
	case isa.OpADD, isa.OpADDI:
		return a + b
	case isa.OpSUB:
		return a - b
	case isa.OpSLL, isa.OpSLLI:
		return a << (b & 0x1F)
	case isa.OpSLT, isa.OpSLTI:
		if int32(a) < int32(b) {
			return 1
		}
		return 0
	case isa.OpSLTU, isa.OpSLTIU:
		if a < b {
			return 1
		}
		return 0
	case isa.OpXOR, isa.OpXORI:
		return a ^ b
	case isa.OpSRL, isa.OpSRLI:
		return a >> (b & 0x1F)
	case isa.OpSRA, isa.OpSRAI:
		return uint32(int32(a) >> (b & 0x1F))
	case isa.OpOR, isa.OpORI:
		return a | b
	case isa.OpAND, isa.OpANDI:
		return a & b
	}
	panic(fmt.Sprintf("cpu: alu called with %v", op))
}

func execOp(m *Machine, ins *isa.Instruction) (effect, error) {
	f := ins.R
	m.regs.Set(f.Rd, alu(ins.Op, m.regs.Get(f.Rs1), m.regs.Get(f.Rs2)))
	return sequential, nil
}

// execOpImm covers the immediate forms. SLTIU compares against the
// sign-extended immediate as an unsigned value.
func execOpImm(m *Machine, ins *isa.Instruction) (effect, error) {
	f := ins.I
	operand := f.Imm()
	switch ins.Op {
	case isa.OpSLLI, isa.OpSRLI, isa.OpSRAI:
		operand = f.Shamt()
	}
	m.regs.Set(f.Rd, alu(ins.Op, m.regs.Get(f.Rs1), operand))
	return sequential, nil
}

func execLUI(m *Machine, ins *isa.Instruction) (effect, error) {
	m.regs.Set(ins.U.Rd, ins.U.Value())
	return sequential, nil
}

func execAUIPC(m *Machine, ins *isa.Instruction) (effect, error) {
	m.regs.Set(ins.U.Rd, m.regs.PC()+ins.U.Value())
	return sequential, nil
}

// jump validates a control transfer target. Targets must be word aligned
// since compressed instructions are not supported.
func jump(target uint32) (effect, error) {
	if target&3 != 0 {
		return effect{}, fmt.Errorf("%w: jump target 0x%08x", ErrMisalignedFetch, target)
	}
	return effect{redirect: true, target: target}, nil
}

func execJAL(m *Machine, ins *isa.Instruction) (effect, error) {
	pc := m.regs.PC()
	eff, err := jump(pc + ins.J.Offset())
	if err != nil {
		return eff, err
	}
	m.regs.Set(ins.J.Rd, pc+4)
	return eff, nil
}

// execJALR reads rs1 before writing rd so that rd == rs1 works.
func execJALR(m *Machine, ins *isa.Instruction) (effect, error) {
	f := ins.I
	pc := m.regs.PC()
	eff, err := jump((m.regs.Get(f.Rs1) + f.Imm()) &^ 1)
	if err != nil {
		return eff, err
	}
	m.regs.Set(f.Rd, pc+4)
	return eff, nil
}

func branchTaken(op isa.Op, a, b uint32) bool {
	switch op {
	case isa.OpBEQ:
		return a == b
	case isa.OpBNE:
		return a != b
	case isa.OpBLT:
		return int32(a) < int32(b)
	case isa.OpBGE:
		return int32(a) >= int32(b)
	case isa.OpBLTU:
		return a < b
	case isa.OpBGEU:
		return a >= b
	}
	panic(fmt.Sprintf("cpu: branchTaken called with %v", op))
}

func execBranch(m *Machine, ins *isa.Instruction) (effect, error) {
	f := ins.B
	if !branchTaken(ins.Op, m.regs.Get(f.Rs1), m.regs.Get(f.Rs2)) {
		m.stats.branch(false)
		return sequential, nil
	}
	eff, err := jump(m.regs.PC() + f.Offset())
	if err != nil {
		return eff, err
	}
	m.stats.branch(true)
	return eff, nil
}

func execLoad(m *Machine, ins *isa.Instruction) (effect, error) {
	f := ins.I
	addr := m.regs.Get(f.Rs1) + f.Imm()
	var (
		v     uint32
		width uint8
		err   error
	)
	switch ins.Op {
	case isa.OpLB, isa.OpLBU:
		var b uint8
		b, err = m.ram.LoadByte(addr)
		v, width = uint32(b), 1
		if ins.Op == isa.OpLB {
			v = bitutil.MustSignExtend(v, 8)
		}
	case isa.OpLH, isa.OpLHU:
		var h uint16
		h, err = m.ram.LoadHalf(addr)
		v, width = uint32(h), 2
		if ins.Op == isa.OpLH {
			v = bitutil.MustSignExtend(v, 16)
		}
	case isa.OpLW:
		v, err = m.ram.LoadWord(addr)
		width = 4
	}
	if err != nil {
		return effect{}, err
	}
	m.access(MemAccess{Addr: addr, Value: v, Width: width})
	m.stats.load()
	m.regs.Set(f.Rd, v)
	return sequential, nil
}

func execStore(m *Machine, ins *isa.Instruction) (effect, error) {
	f := ins.S
	addr := m.regs.Get(f.Rs1) + f.Imm()
	v := m.regs.Get(f.Rs2)
	var (
		width uint8
		err   error
	)
	switch ins.Op {
	case isa.OpSB:
		v, width = bitutil.MustZeroExtend(v, 8), 1
		err = m.ram.StoreByte(addr, uint8(v))
	case isa.OpSH:
		v, width = bitutil.MustZeroExtend(v, 16), 2
		err = m.ram.StoreHalf(addr, uint16(v))
	case isa.OpSW:
		width = 4
		err = m.ram.StoreWord(addr, v)
	}
	if err != nil {
		return effect{}, err
	}
	m.access(MemAccess{Addr: addr, Value: v, Width: width, Write: true})
	m.stats.store()
	return sequential, nil
}

// execFence is a no-op: the machine has a single hart and no caches.
func execFence(*Machine, *isa.Instruction) (effect, error) {
	return sequential, nil
}

// ECALL services, selected by a7.
const (
	EcallHalt uint32 = 0 // halt with exit code a0

	// ExitUnknownEcall is the exit code used when a7 names no service.
	ExitUnknownEcall uint32 = 0xFF
)

// ABI register indices used by the ECALL convention.
const (
	regA0 = 10
	regA7 = 17
)

func execECALL(m *Machine, _ *isa.Instruction) (effect, error) {
	switch m.regs.Get(regA7) {
	case EcallHalt:
		m.halt(m.regs.Get(regA0), "ecall")
	default:
		m.halt(ExitUnknownEcall, "ecall")
	}
	return sequential, nil
}

func execEBREAK(m *Machine, _ *isa.Instruction) (effect, error) {
	m.halt(m.regs.Get(regA0), "ebreak")
	return sequential, nil
}
