package isa

import "fmt"

// Op names a concrete RV32I operation after opcode and funct resolution.
type Op uint8

const (
	OpInvalid Op = iota

	OpLUI
	OpAUIPC
	OpJAL
	OpJALR

	OpBEQ
	OpBNE
	OpBLT
	OpBGE
	OpBLTU
	OpBGEU

	OpLB
	OpLH
	OpLW
	OpLBU
	OpLHU

	OpSB
	OpSH
	OpSW

	OpADDI
	OpSLTI
	OpSLTIU
	OpXORI
	OpORI
	OpANDI
	OpSLLI
	OpSRLI
	OpSRAI

	OpADD
	OpSUB
	OpSLL
	OpSLT
	OpSLTU
	OpXOR
	OpSRL
	OpSRA
	OpOR
	OpAND

	OpFENCE
	OpFENCEI
	OpECALL
	OpEBREAK

	NumOps
)

// opInfo is the encoding of an Op: its opcode plus the funct values that
// select it. funct7 is only meaningful for R-type ops and shift immediates.
type opInfo struct {
	name   string
	opcode Opcode
	funct3 uint32
	funct7 uint32
}

var opTable = [NumOps]opInfo{
	OpInvalid: {name: "invalid"},

	OpLUI:   {"lui", OpcodeLUI, 0, 0},
	OpAUIPC: {"auipc", OpcodeAUIPC, 0, 0},
	OpJAL:   {"jal", OpcodeJAL, 0, 0},
	OpJALR:  {"jalr", OpcodeJALR, 0b000, 0},

	OpBEQ:  {"beq", OpcodeBranch, uint32(Funct3BEQ), 0},
	OpBNE:  {"bne", OpcodeBranch, uint32(Funct3BNE), 0},
	OpBLT:  {"blt", OpcodeBranch, uint32(Funct3BLT), 0},
	OpBGE:  {"bge", OpcodeBranch, uint32(Funct3BGE), 0},
	OpBLTU: {"bltu", OpcodeBranch, uint32(Funct3BLTU), 0},
	OpBGEU: {"bgeu", OpcodeBranch, uint32(Funct3BGEU), 0},

	OpLB:  {"lb", OpcodeLoad, uint32(Funct3LB), 0},
	OpLH:  {"lh", OpcodeLoad, uint32(Funct3LH), 0},
	OpLW:  {"lw", OpcodeLoad, uint32(Funct3LW), 0},
	OpLBU: {"lbu", OpcodeLoad, uint32(Funct3LBU), 0},
	OpLHU: {"lhu", OpcodeLoad, uint32(Funct3LHU), 0},

	OpSB: {"sb", OpcodeStore, uint32(Funct3SB), 0},
	OpSH: {"sh", OpcodeStore, uint32(Funct3SH), 0},
	OpSW: {"sw", OpcodeStore, uint32(Funct3SW), 0},

	OpADDI:  {"addi", OpcodeOpImm, uint32(Funct3ADDI), 0},
	OpSLTI:  {"slti", OpcodeOpImm, uint32(Funct3SLTI), 0},
	OpSLTIU: {"sltiu", OpcodeOpImm, uint32(Funct3SLTIU), 0},
	OpXORI:  {"xori", OpcodeOpImm, uint32(Funct3XORI), 0},
	OpORI:   {"ori", OpcodeOpImm, uint32(Funct3ORI), 0},
	OpANDI:  {"andi", OpcodeOpImm, uint32(Funct3ANDI), 0},
	OpSLLI:  {"slli", OpcodeOpImm, uint32(Funct3SLLI), uint32(Funct7Base)},
	OpSRLI:  {"srli", OpcodeOpImm, uint32(Funct3SRLISRAI), uint32(Funct7Base)},
	OpSRAI:  {"srai", OpcodeOpImm, uint32(Funct3SRLISRAI), uint32(Funct7Alt)},

	OpADD:  {"add", OpcodeOp, uint32(Funct3ADDSUB), uint32(Funct7Base)},
	OpSUB:  {"sub", OpcodeOp, uint32(Funct3ADDSUB), uint32(Funct7Alt)},
	OpSLL:  {"sll", OpcodeOp, uint32(Funct3SLL), uint32(Funct7Base)},
	OpSLT:  {"slt", OpcodeOp, uint32(Funct3SLT), uint32(Funct7Base)},
	OpSLTU: {"sltu", OpcodeOp, uint32(Funct3SLTU), uint32(Funct7Base)},
	OpXOR:  {"xor", OpcodeOp, uint32(Funct3XOR), uint32(Funct7Base)},
	OpSRL:  {"srl", OpcodeOp, uint32(Funct3SRLSRA), uint32(Funct7Base)},
	OpSRA:  {"sra", OpcodeOp, uint32(Funct3SRLSRA), uint32(Funct7Alt)},
	OpOR:   {"or", OpcodeOp, uint32(Funct3OR), uint32(Funct7Base)},
	OpAND:  {"and", OpcodeOp, uint32(Funct3AND), uint32(Funct7Base)},

	OpFENCE:  {"fence", OpcodeMiscMem, 0b000, 0},
	OpFENCEI: {"fence.i", OpcodeMiscMem, 0b001, 0},
	OpECALL:  {"ecall", OpcodeSystem, 0b000, 0},
	OpEBREAK: {"ebreak", OpcodeSystem, 0b000, 0},
}

// Ops returns every implemented operation.
func Ops() []Op {
	out := make([]Op, 0, NumOps-1)
	for op := OpInvalid + 1; op < NumOps; op++ {
		out = append(out, op)
	}
	return out
}

func (op Op) String() string {
	if op < NumOps {
		return opTable[op].name
	}
	return fmt.Sprintf("Op(%d)", uint8(op))
}

// Opcode returns the major opcode op is encoded under.
func (op Op) Opcode() Opcode {
	if op < NumOps {
		return opTable[op].opcode
	}
	return 0
}

// Format returns the encoding format of op.
func (op Op) Format() Format {
	return op.Opcode().Format()
}
