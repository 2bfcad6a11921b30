// Package isa describes the RV32I base integer instruction set: the bit
// layout of each instruction format, the closed sets of opcode and funct
// values, and the mapping from an instruction word to the operation it
// encodes. Everything in this package is a pure function of the word.
package isa

import "github.com/rv32sim/rv32sim/bitutil"

// Field masks, positioned in the instruction word. Each decoder masks the
// word and shifts the result down to bit 0.
const (
	maskOpcode = 0x0000_007F
	maskRd     = 0x0000_0F80
	maskFunct3 = 0x0000_7000
	maskRs1    = 0x000F_8000
	maskRs2    = 0x01F0_0000
	maskFunct7 = 0xFE00_0000

	// I-type
	maskIImm11_0 = 0xFFF0_0000
	maskIImm4_0  = 0x01F0_0000
	maskIImm11_5 = 0xFE00_0000

	// S-type
	maskSImm4_0  = 0x0000_0F80
	maskSImm11_5 = 0xFE00_0000

	// B-type: imm[12|10:5] rs2 rs1 funct3 imm[4:1|11] opcode
	maskBImm11   = 0x0000_0080
	maskBImm4_1  = 0x0000_0F00
	maskBImm10_5 = 0x7E00_0000
	maskBImm12   = 0x8000_0000

	// U-type
	maskUImm31_12 = 0xFFFF_F000

	// J-type: imm[20|10:1|11|19:12] rd opcode
	maskJImm19_12 = 0x000F_F000
	maskJImm11    = 0x0010_0000
	maskJImm10_1  = 0x7FE0_0000
	maskJImm20    = 0x8000_0000
)

// OpcodeFields holds the 7-bit major opcode shared by every format.
type OpcodeFields struct {
	Opcode uint32
}

// DecodeOpcode extracts bits 6:0.
func DecodeOpcode(word uint32) OpcodeFields {
	return OpcodeFields{Opcode: word & maskOpcode}
}

// RType holds the register-register format fields.
type RType struct {
	Rd     uint32
	Funct3 uint32
	Rs1    uint32
	Rs2    uint32
	Funct7 uint32
}

// DecodeR extracts the R-type fields of word.
func DecodeR(word uint32) RType {
	return RType{
		Rd:     (word & maskRd) >> 7,
		Funct3: (word & maskFunct3) >> 12,
		Rs1:    (word & maskRs1) >> 15,
		Rs2:    (word & maskRs2) >> 20,
		Funct7: (word & maskFunct7) >> 25,
	}
}

// IType holds the register-immediate format fields. Imm4_0 and Imm11_5 are
// split views of Imm11_0 used by the shift-immediate instructions.
type IType struct {
	Rd      uint32
	Funct3  uint32
	Rs1     uint32
	Imm11_0 uint32
	Imm4_0  uint32
	Imm11_5 uint32
}

// DecodeI extracts the I-type fields of word.
func DecodeI(word uint32) IType {
	return IType{
		Rd:      (word & maskRd) >> 7,
		Funct3:  (word & maskFunct3) >> 12,
		Rs1:     (word & maskRs1) >> 15,
		Imm11_0: (word & maskIImm11_0) >> 20,
		Imm4_0:  (word & maskIImm4_0) >> 20,
		Imm11_5: (word & maskIImm11_5) >> 25,
	}
}

// Imm returns the 12-bit immediate sign-extended to 32 bits.
func (f IType) Imm() uint32 {
	return bitutil.MustSignExtend(f.Imm11_0, 12)
}

// Shamt returns the shift amount of a shift-immediate instruction.
func (f IType) Shamt() uint32 {
	return f.Imm4_0
}

// SType holds the store format fields.
type SType struct {
	Imm4_0  uint32
	Funct3  uint32
	Rs1     uint32
	Rs2     uint32
	Imm11_5 uint32
}

// DecodeS extracts the S-type fields of word.
func DecodeS(word uint32) SType {
	return SType{
		Imm4_0:  (word & maskSImm4_0) >> 7,
		Funct3:  (word & maskFunct3) >> 12,
		Rs1:     (word & maskRs1) >> 15,
		Rs2:     (word & maskRs2) >> 20,
		Imm11_5: (word & maskSImm11_5) >> 25,
	}
}

// Imm reassembles imm[11:5|4:0] and sign-extends it.
func (f SType) Imm() uint32 {
	return bitutil.MustSignExtend(f.Imm11_5<<5|f.Imm4_0, 12)
}

// BType holds the conditional branch format fields.
type BType struct {
	Imm11   uint32
	Imm4_1  uint32
	Funct3  uint32
	Rs1     uint32
	Rs2     uint32
	Imm10_5 uint32
	Imm12   uint32
}

// DecodeB extracts the B-type fields of word.
func DecodeB(word uint32) BType {
	return BType{
		Imm11:   (word & maskBImm11) >> 7,
		Imm4_1:  (word & maskBImm4_1) >> 8,
		Funct3:  (word & maskFunct3) >> 12,
		Rs1:     (word & maskRs1) >> 15,
		Rs2:     (word & maskRs2) >> 20,
		Imm10_5: (word & maskBImm10_5) >> 25,
		Imm12:   (word & maskBImm12) >> 31,
	}
}

// Offset reassembles {imm[12], imm[11], imm[10:5], imm[4:1], 0} and
// sign-extends it. The result is a byte offset in multiples of 2 within
// +/-4 KiB.
func (f BType) Offset() uint32 {
	raw := f.Imm12<<12 | f.Imm11<<11 | f.Imm10_5<<5 | f.Imm4_1<<1
	return bitutil.MustSignExtend(raw, 13)
}

// UType holds the upper-immediate format fields.
type UType struct {
	Rd       uint32
	Imm31_12 uint32
}

// DecodeU extracts the U-type fields of word.
func DecodeU(word uint32) UType {
	return UType{
		Rd:       (word & maskRd) >> 7,
		Imm31_12: (word & maskUImm31_12) >> 12,
	}
}

// Value returns imm[31:12] in place with the low 12 bits clear.
func (f UType) Value() uint32 {
	return f.Imm31_12 << 12
}

// JType holds the unconditional jump format fields.
type JType struct {
	Rd       uint32
	Imm19_12 uint32
	Imm11    uint32
	Imm10_1  uint32
	Imm20    uint32
}

// DecodeJ extracts the J-type fields of word.
func DecodeJ(word uint32) JType {
	return JType{
		Rd:       (word & maskRd) >> 7,
		Imm19_12: (word & maskJImm19_12) >> 12,
		Imm11:    (word & maskJImm11) >> 20,
		Imm10_1:  (word & maskJImm10_1) >> 21,
		Imm20:    (word & maskJImm20) >> 31,
	}
}

// Offset reassembles {imm[20], imm[19:12], imm[11], imm[10:1], 0} and
// sign-extends it, giving a byte offset within +/-1 MiB.
func (f JType) Offset() uint32 {
	raw := f.Imm20<<20 | f.Imm19_12<<12 | f.Imm11<<11 | f.Imm10_1<<1
	return bitutil.MustSignExtend(raw, 21)
}
