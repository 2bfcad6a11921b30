package isa

import (
	"errors"
	"fmt"
)

// Catalog errors. A bit pattern that matches no defined value is unknown; a
// pattern that names a real RISC-V operation outside RV32I is unimplemented.
var (
	ErrUnknownOpcode = errors.New("isa: unknown opcode")
	ErrUnknownFunct  = errors.New("isa: unknown funct")
	ErrUnimplemented = errors.New("isa: operation not implemented")
)

// Format identifies an instruction encoding.
type Format uint8

const (
	FormatR Format = iota + 1
	FormatI
	FormatS
	FormatB
	FormatU
	FormatJ
)

func (f Format) String() string {
	switch f {
	case FormatR:
		return "R"
	case FormatI:
		return "I"
	case FormatS:
		return "S"
	case FormatB:
		return "B"
	case FormatU:
		return "U"
	case FormatJ:
		return "J"
	default:
		return fmt.Sprintf("Format(%d)", uint8(f))
	}
}

// Opcode is a major opcode from the RISC-V base opcode map.
type Opcode uint8

const (
	OpcodeLoad    Opcode = 0b0000011
	OpcodeLoadFP  Opcode = 0b0000111
	OpcodeMiscMem Opcode = 0b0001111
	OpcodeOpImm   Opcode = 0b0010011
	OpcodeAUIPC   Opcode = 0b0010111
	OpcodeOpImm32 Opcode = 0b0011011
	OpcodeStore   Opcode = 0b0100011
	OpcodeStoreFP Opcode = 0b0100111
	OpcodeAMO     Opcode = 0b0101111
	OpcodeOp      Opcode = 0b0110011
	OpcodeLUI     Opcode = 0b0110111
	OpcodeOp32    Opcode = 0b0111011
	OpcodeMAdd    Opcode = 0b1000011
	OpcodeMSub    Opcode = 0b1000111
	OpcodeNMSub   Opcode = 0b1001011
	OpcodeNMAdd   Opcode = 0b1001111
	OpcodeOpFP    Opcode = 0b1010011
	OpcodeBranch  Opcode = 0b1100011
	OpcodeJALR    Opcode = 0b1100111
	OpcodeJAL     Opcode = 0b1101111
	OpcodeSystem  Opcode = 0b1110011
)

type opcodeInfo struct {
	name   string
	format Format
}

// R4-type opcodes (fused multiply-add) decode with the R layout; their rs3
// lives in funct7 and is never consulted since they are unimplemented.
var opcodes = map[Opcode]opcodeInfo{
	OpcodeLoad:    {"LOAD", FormatI},
	OpcodeLoadFP:  {"LOAD_FP", FormatI},
	OpcodeMiscMem: {"MISC_MEM", FormatI},
	OpcodeOpImm:   {"OP_IMM", FormatI},
	OpcodeAUIPC:   {"AUIPC", FormatU},
	OpcodeOpImm32: {"OP_IMM_32", FormatI},
	OpcodeStore:   {"STORE", FormatS},
	OpcodeStoreFP: {"STORE_FP", FormatS},
	OpcodeAMO:     {"AMO", FormatR},
	OpcodeOp:      {"OP", FormatR},
	OpcodeLUI:     {"LUI", FormatU},
	OpcodeOp32:    {"OP_32", FormatR},
	OpcodeMAdd:    {"MADD", FormatR},
	OpcodeMSub:    {"MSUB", FormatR},
	OpcodeNMSub:   {"NMSUB", FormatR},
	OpcodeNMAdd:   {"NMADD", FormatR},
	OpcodeOpFP:    {"OP_FP", FormatR},
	OpcodeBranch:  {"BRANCH", FormatB},
	OpcodeJALR:    {"JALR", FormatI},
	OpcodeJAL:     {"JAL", FormatJ},
	OpcodeSystem:  {"SYSTEM", FormatI},
}

// ParseOpcode maps the low 7 bits of an instruction word to its Opcode.
func ParseOpcode(bits uint32) (Opcode, error) {
	if bits > maskOpcode {
		return 0, fmt.Errorf("%w: 0x%x is wider than 7 bits", ErrUnknownOpcode, bits)
	}
	o := Opcode(bits)
	if _, ok := opcodes[o]; !ok {
		return 0, fmt.Errorf("%w: 0b%07b", ErrUnknownOpcode, bits)
	}
	return o, nil
}

// Opcodes returns every defined opcode in ascending order.
func Opcodes() []Opcode {
	out := make([]Opcode, 0, len(opcodes))
	for o := Opcode(0); o <= maskOpcode; o++ {
		if _, ok := opcodes[o]; ok {
			out = append(out, o)
		}
	}
	return out
}

// Format returns the encoding used by instructions under this opcode.
func (o Opcode) Format() Format {
	return opcodes[o].format
}

func (o Opcode) String() string {
	if info, ok := opcodes[o]; ok {
		return info.name
	}
	return fmt.Sprintf("Opcode(0b%07b)", uint8(o))
}

// Funct3OpImm selects the operation under OP_IMM.
type Funct3OpImm uint8

const (
	Funct3ADDI     Funct3OpImm = 0b000
	Funct3SLLI     Funct3OpImm = 0b001
	Funct3SLTI     Funct3OpImm = 0b010
	Funct3SLTIU    Funct3OpImm = 0b011
	Funct3XORI     Funct3OpImm = 0b100
	Funct3SRLISRAI Funct3OpImm = 0b101
	Funct3ORI      Funct3OpImm = 0b110
	Funct3ANDI     Funct3OpImm = 0b111
)

// ParseFunct3OpImm maps funct3 bits under OP_IMM to a tag.
func ParseFunct3OpImm(bits uint32) (Funct3OpImm, error) {
	if bits > 0b111 {
		return 0, fmt.Errorf("%w: OP_IMM funct3=0x%x", ErrUnknownFunct, bits)
	}
	return Funct3OpImm(bits), nil
}

// Funct3Op selects the operation under OP, together with funct7.
type Funct3Op uint8

const (
	Funct3ADDSUB Funct3Op = 0b000
	Funct3SLL    Funct3Op = 0b001
	Funct3SLT    Funct3Op = 0b010
	Funct3SLTU   Funct3Op = 0b011
	Funct3XOR    Funct3Op = 0b100
	Funct3SRLSRA Funct3Op = 0b101
	Funct3OR     Funct3Op = 0b110
	Funct3AND    Funct3Op = 0b111
)

// ParseFunct3Op maps funct3 bits under OP to a tag.
func ParseFunct3Op(bits uint32) (Funct3Op, error) {
	if bits > 0b111 {
		return 0, fmt.Errorf("%w: OP funct3=0x%x", ErrUnknownFunct, bits)
	}
	return Funct3Op(bits), nil
}

// Funct3Load selects the width and signedness of a load.
type Funct3Load uint8

const (
	Funct3LB  Funct3Load = 0b000
	Funct3LH  Funct3Load = 0b001
	Funct3LW  Funct3Load = 0b010
	Funct3LBU Funct3Load = 0b100
	Funct3LHU Funct3Load = 0b101
)

// ParseFunct3Load maps funct3 bits under LOAD to a tag.
func ParseFunct3Load(bits uint32) (Funct3Load, error) {
	switch bits {
	case uint32(Funct3LB), uint32(Funct3LH), uint32(Funct3LW),
		uint32(Funct3LBU), uint32(Funct3LHU):
		return Funct3Load(bits), nil
	}
	return 0, fmt.Errorf("%w: LOAD funct3=0x%x", ErrUnknownFunct, bits)
}

// Funct3Store selects the width of a store.
type Funct3Store uint8

const (
	Funct3SB Funct3Store = 0b000
	Funct3SH Funct3Store = 0b001
	Funct3SW Funct3Store = 0b010
)

// ParseFunct3Store maps funct3 bits under STORE to a tag.
func ParseFunct3Store(bits uint32) (Funct3Store, error) {
	switch bits {
	case uint32(Funct3SB), uint32(Funct3SH), uint32(Funct3SW):
		return Funct3Store(bits), nil
	}
	return 0, fmt.Errorf("%w: STORE funct3=0x%x", ErrUnknownFunct, bits)
}

// Funct3Branch selects the comparison of a conditional branch.
type Funct3Branch uint8

const (
	Funct3BEQ  Funct3Branch = 0b000
	Funct3BNE  Funct3Branch = 0b001
	Funct3BLT  Funct3Branch = 0b100
	Funct3BGE  Funct3Branch = 0b101
	Funct3BLTU Funct3Branch = 0b110
	Funct3BGEU Funct3Branch = 0b111
)

// ParseFunct3Branch maps funct3 bits under BRANCH to a tag.
func ParseFunct3Branch(bits uint32) (Funct3Branch, error) {
	switch bits {
	case uint32(Funct3BEQ), uint32(Funct3BNE), uint32(Funct3BLT),
		uint32(Funct3BGE), uint32(Funct3BLTU), uint32(Funct3BGEU):
		return Funct3Branch(bits), nil
	}
	return 0, fmt.Errorf("%w: BRANCH funct3=0x%x", ErrUnknownFunct, bits)
}

// Funct7 distinguishes operations sharing an opcode and funct3. For the
// shift-immediate forms it is the imm[11:5] half of the I-type immediate.
type Funct7 uint8

const (
	Funct7Base   Funct7 = 0b0000000
	Funct7Alt    Funct7 = 0b0100000 // SUB, SRA, SRAI
	Funct7MulDiv Funct7 = 0b0000001 // M extension
)

// ParseFunct7 maps funct7 bits to a tag.
func ParseFunct7(bits uint32) (Funct7, error) {
	switch bits {
	case uint32(Funct7Base), uint32(Funct7Alt), uint32(Funct7MulDiv):
		return Funct7(bits), nil
	}
	return 0, fmt.Errorf("%w: funct7=0b%07b", ErrUnknownFunct, bits)
}
