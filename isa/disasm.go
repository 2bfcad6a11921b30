package isa

import "fmt"

var abiNames = [32]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

// RegName returns the calling-convention name of register i ("zero", "ra",
// "sp", ...), or "x<i>" when i is not a register index.
func RegName(i uint32) string {
	if i < uint32(len(abiNames)) {
		return abiNames[i]
	}
	return fmt.Sprintf("x%d", i)
}

// String renders the instruction in assembler syntax. Offsets of branches
// and jumps are printed relative to the instruction.
func (ins Instruction) String() string {
	r := RegName
	switch ins.Op {
	case OpInvalid:
		return fmt.Sprintf(".word 0x%08x", ins.Word)
	case OpLUI, OpAUIPC:
		return fmt.Sprintf("%v %s, 0x%x", ins.Op, r(ins.U.Rd), ins.U.Imm31_12)
	case OpJAL:
		return fmt.Sprintf("%v %s, %d", ins.Op, r(ins.J.Rd), int32(ins.J.Offset()))
	case OpJALR, OpLB, OpLH, OpLW, OpLBU, OpLHU:
		return fmt.Sprintf("%v %s, %d(%s)", ins.Op, r(ins.I.Rd), int32(ins.I.Imm()), r(ins.I.Rs1))
	case OpBEQ, OpBNE, OpBLT, OpBGE, OpBLTU, OpBGEU:
		return fmt.Sprintf("%v %s, %s, %d", ins.Op, r(ins.B.Rs1), r(ins.B.Rs2), int32(ins.B.Offset()))
	case OpSB, OpSH, OpSW:
		return fmt.Sprintf("%v %s, %d(%s)", ins.Op, r(ins.S.Rs2), int32(ins.S.Imm()), r(ins.S.Rs1))
	case OpSLLI, OpSRLI, OpSRAI:
		return fmt.Sprintf("%v %s, %s, %d", ins.Op, r(ins.I.Rd), r(ins.I.Rs1), ins.I.Shamt())
	case OpADDI, OpSLTI, OpSLTIU, OpXORI, OpORI, OpANDI:
		return fmt.Sprintf("%v %s, %s, %d", ins.Op, r(ins.I.Rd), r(ins.I.Rs1), int32(ins.I.Imm()))
	case OpADD, OpSUB, OpSLL, OpSLT, OpSLTU, OpXOR, OpSRL, OpSRA, OpOR, OpAND:
		return fmt.Sprintf("%v %s, %s, %s", ins.Op, r(ins.R.Rd), r(ins.R.Rs1), r(ins.R.Rs2))
	}
	return ins.Op.String()
}
