package isa

import (
	"errors"
	"fmt"
)

// ErrOperandRange is returned by Assemble when a register index or
// immediate does not fit its field.
var ErrOperandRange = errors.New("isa: operand out of range")

// EncodeR encodes an R-type instruction.
func EncodeR(opcode Opcode, rd, funct3, rs1, rs2, funct7 uint32) uint32 {
	return (funct7&0x7F)<<25 | (rs2&0x1F)<<20 | (rs1&0x1F)<<15 |
		(funct3&0x7)<<12 | (rd&0x1F)<<7 | uint32(opcode)
}

// EncodeI encodes an I-type instruction. Only the low 12 bits of imm are used.
func EncodeI(opcode Opcode, rd, funct3, rs1 uint32, imm int32) uint32 {
	return uint32(imm&0xFFF)<<20 | (rs1&0x1F)<<15 | (funct3&0x7)<<12 |
		(rd&0x1F)<<7 | uint32(opcode)
}

// EncodeS encodes an S-type instruction.
func EncodeS(opcode Opcode, funct3, rs1, rs2 uint32, imm int32) uint32 {
	immU := uint32(imm & 0xFFF)
	return (immU>>5)<<25 | (rs2&0x1F)<<20 | (rs1&0x1F)<<15 | (funct3&0x7)<<12 |
		(immU&0x1F)<<7 | uint32(opcode)
}

// EncodeB encodes a B-type instruction. imm is a byte offset; bit 0 is dropped.
func EncodeB(opcode Opcode, funct3, rs1, rs2 uint32, imm int32) uint32 {
	immU := uint32(imm)
	return ((immU>>12)&0x1)<<31 | ((immU>>5)&0x3F)<<25 |
		(rs2&0x1F)<<20 | (rs1&0x1F)<<15 | (funct3&0x7)<<12 |
		((immU>>1)&0xF)<<8 | ((immU>>11)&0x1)<<7 | uint32(opcode)
}

// EncodeU encodes a U-type instruction. imm is the 20-bit upper immediate.
func EncodeU(opcode Opcode, rd, imm uint32) uint32 {
	return (imm&0xFFFFF)<<12 | (rd&0x1F)<<7 | uint32(opcode)
}

// EncodeJ encodes a J-type instruction. imm is a byte offset; bit 0 is dropped.
func EncodeJ(opcode Opcode, rd uint32, imm int32) uint32 {
	immU := uint32(imm)
	return ((immU>>20)&0x1)<<31 | ((immU>>1)&0x3FF)<<21 |
		((immU>>11)&0x1)<<20 | ((immU>>12)&0xFF)<<12 |
		(rd&0x1F)<<7 | uint32(opcode)
}

// Operands are the inputs to Assemble. Fields an operation does not use are
// ignored. Imm is a byte offset for branches and jumps, a shift amount for
// shift immediates, and the 20-bit upper immediate for LUI and AUIPC.
type Operands struct {
	Rd, Rs1, Rs2 uint32
	Imm          int32
}

func checkImm(op Op, imm, lo, hi int32) error {
	if imm < lo || imm > hi {
		return fmt.Errorf("%w: %v immediate %d not in [%d, %d]", ErrOperandRange, op, imm, lo, hi)
	}
	return nil
}

// Assemble encodes op with the given operands.
func Assemble(op Op, a Operands) (uint32, error) {
	if op == OpInvalid || op >= NumOps {
		return 0, fmt.Errorf("%w: %v", ErrUnknownOpcode, op)
	}
	if a.Rd > 31 || a.Rs1 > 31 || a.Rs2 > 31 {
		return 0, fmt.Errorf("%w: %v register index (rd=%d rs1=%d rs2=%d)", ErrOperandRange, op, a.Rd, a.Rs1, a.Rs2)
	}
	info := opTable[op]

	switch op {
	case OpECALL:
		return EncodeI(OpcodeSystem, 0, 0, 0, 0), nil
	case OpEBREAK:
		return EncodeI(OpcodeSystem, 0, 0, 0, 1), nil
	case OpSLLI, OpSRLI, OpSRAI:
		if err := checkImm(op, a.Imm, 0, 31); err != nil {
			return 0, err
		}
		return EncodeI(info.opcode, a.Rd, info.funct3, a.Rs1, int32(info.funct7<<5)|a.Imm), nil
	}

	switch info.opcode.Format() {
	case FormatR:
		return EncodeR(info.opcode, a.Rd, info.funct3, a.Rs1, a.Rs2, info.funct7), nil
	case FormatI:
		if err := checkImm(op, a.Imm, -2048, 2047); err != nil {
			return 0, err
		}
		return EncodeI(info.opcode, a.Rd, info.funct3, a.Rs1, a.Imm), nil
	case FormatS:
		if err := checkImm(op, a.Imm, -2048, 2047); err != nil {
			return 0, err
		}
		return EncodeS(info.opcode, info.funct3, a.Rs1, a.Rs2, a.Imm), nil
	case FormatB:
		if err := checkImm(op, a.Imm, -4096, 4094); err != nil {
			return 0, err
		}
		if a.Imm&1 != 0 {
			return 0, fmt.Errorf("%w: %v offset %d is odd", ErrOperandRange, op, a.Imm)
		}
		return EncodeB(info.opcode, info.funct3, a.Rs1, a.Rs2, a.Imm), nil
	case FormatU:
		if err := checkImm(op, a.Imm, -(1 << 19), 1<<20-1); err != nil {
			return 0, err
		}
		return EncodeU(info.opcode, a.Rd, uint32(a.Imm)), nil
	case FormatJ:
		if err := checkImm(op, a.Imm, -(1 << 20), 1<<20-2); err != nil {
			return 0, err
		}
		if a.Imm&1 != 0 {
			return 0, fmt.Errorf("%w: %v offset %d is odd", ErrOperandRange, op, a.Imm)
		}
		return EncodeJ(info.opcode, a.Rd, a.Imm), nil
	}
	return 0, fmt.Errorf("%w: %v", ErrUnknownOpcode, op)
}

// MustAssemble is like Assemble but panics on error. It is intended for
// building fixed test programs.
func MustAssemble(op Op, a Operands) uint32 {
	w, err := Assemble(op, a)
	if err != nil {
		panic(err)
	}
	return w
}
