package isa_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rv32sim/rv32sim/isa"
)

var _ = Describe("Format decoders", func() {
	// 0x74348A7E = 0 1110100001 1 01001000 10100 1111110
	//              imm[20] imm[10:1] imm[11] imm[19:12] rd opcode
	It("should split 0x74348A7E along the J-type layout", func() {
		f := isa.DecodeJ(0x7434_8A7E)

		Expect(f.Rd).To(Equal(uint32(20)))
		Expect(f.Imm19_12).To(Equal(uint32(0x48)))
		Expect(f.Imm11).To(Equal(uint32(1)))
		Expect(f.Imm10_1).To(Equal(uint32(0x3A1)))
		Expect(f.Imm20).To(Equal(uint32(0)))
		Expect(f.Offset()).To(Equal(uint32(0x48F42)))
	})

	It("should extract the opcode from the low 7 bits", func() {
		Expect(isa.DecodeOpcode(0x7434_8A7E).Opcode).To(Equal(uint32(0x7E)))
		Expect(isa.DecodeOpcode(0xFFFF_FF93).Opcode).To(Equal(uint32(0x13)))
	})

	// sub gp, ra, sp -> 0x402081B3
	It("should decode R-type fields", func() {
		f := isa.DecodeR(0x4020_81B3)

		Expect(f.Rd).To(Equal(uint32(3)))
		Expect(f.Funct3).To(Equal(uint32(0)))
		Expect(f.Rs1).To(Equal(uint32(1)))
		Expect(f.Rs2).To(Equal(uint32(2)))
		Expect(f.Funct7).To(Equal(uint32(0x20)))
	})

	// srai ra, sp, 4 -> 0x40415093
	It("should decode I-type fields including the split shift views", func() {
		f := isa.DecodeI(0x4041_5093)

		Expect(f.Rd).To(Equal(uint32(1)))
		Expect(f.Funct3).To(Equal(uint32(5)))
		Expect(f.Rs1).To(Equal(uint32(2)))
		Expect(f.Imm11_0).To(Equal(uint32(0x404)))
		Expect(f.Imm4_0).To(Equal(uint32(4)))
		Expect(f.Imm11_5).To(Equal(uint32(0x20)))
		Expect(f.Shamt()).To(Equal(uint32(4)))
	})

	It("should sign-extend the I-type immediate", func() {
		// addi ra, zero, -1
		Expect(isa.DecodeI(0xFFF0_0093).Imm()).To(Equal(uint32(0xFFFFFFFF)))
		// addi t0, zero, 12
		Expect(isa.DecodeI(0x00C0_0293).Imm()).To(Equal(uint32(12)))
	})

	// sw sp, 8(ra) -> 0x0020A423
	It("should reassemble the S-type immediate from both halves", func() {
		f := isa.DecodeS(0x0020_A423)

		Expect(f.Imm4_0).To(Equal(uint32(8)))
		Expect(f.Funct3).To(Equal(uint32(2)))
		Expect(f.Rs1).To(Equal(uint32(1)))
		Expect(f.Rs2).To(Equal(uint32(2)))
		Expect(f.Imm11_5).To(Equal(uint32(0)))
		Expect(f.Imm()).To(Equal(uint32(8)))

		// sw sp, -36(ra): imm = 0xFDC
		Expect(isa.DecodeS(isa.EncodeS(isa.OpcodeStore, 2, 1, 2, -36)).Imm()).To(Equal(uint32(0xFFFFFFDC)))
	})

	// beq ra, sp, 8 -> 0x00208463
	It("should decode B-type fields and reassemble the offset", func() {
		f := isa.DecodeB(0x0020_8463)

		Expect(f.Imm11).To(Equal(uint32(0)))
		Expect(f.Imm4_1).To(Equal(uint32(4)))
		Expect(f.Funct3).To(Equal(uint32(0)))
		Expect(f.Rs1).To(Equal(uint32(1)))
		Expect(f.Rs2).To(Equal(uint32(2)))
		Expect(f.Imm10_5).To(Equal(uint32(0)))
		Expect(f.Imm12).To(Equal(uint32(0)))
		Expect(f.Offset()).To(Equal(uint32(8)))
	})

	// bne zero, zero, -4 -> 0xFE001EE3
	It("should sign-extend a backward branch offset", func() {
		f := isa.DecodeB(0xFE00_1EE3)

		Expect(f.Imm12).To(Equal(uint32(1)))
		Expect(f.Imm11).To(Equal(uint32(1)))
		Expect(f.Imm10_5).To(Equal(uint32(0x3F)))
		Expect(f.Imm4_1).To(Equal(uint32(0xE)))
		Expect(f.Offset()).To(Equal(uint32(0xFFFFFFFC)))
	})

	// lui ra, 0x12345 -> 0x123450B7
	It("should decode U-type fields", func() {
		f := isa.DecodeU(0x1234_50B7)

		Expect(f.Rd).To(Equal(uint32(1)))
		Expect(f.Imm31_12).To(Equal(uint32(0x12345)))
		Expect(f.Value()).To(Equal(uint32(0x12345000)))
	})

	DescribeTable("immediates survive the scrambled encodings",
		func(offset int32) {
			b := isa.DecodeB(isa.EncodeB(isa.OpcodeBranch, 0, 1, 2, offset))
			Expect(int32(b.Offset())).To(Equal(offset))

			if offset >= -2048 && offset <= 2047 {
				s := isa.DecodeS(isa.EncodeS(isa.OpcodeStore, 2, 1, 2, offset))
				Expect(int32(s.Imm())).To(Equal(offset))
			}

			j := isa.DecodeJ(isa.EncodeJ(isa.OpcodeJAL, 1, offset*256))
			Expect(int32(j.Offset())).To(Equal(offset * 256))
		},
		Entry("zero", int32(0)),
		Entry("small forward", int32(8)),
		Entry("small backward", int32(-8)),
		Entry("bit 11 only", int32(2048)),
		Entry("largest forward", int32(4094)),
		Entry("largest backward", int32(-4096)),
		Entry("odd pattern", int32(-1366)),
	)

	It("should decode every format regardless of opcode", func() {
		for _, w := range []uint32{0, 0xFFFFFFFF, 0x7434_8A7E} {
			Expect(func() {
				isa.DecodeR(w)
				isa.DecodeI(w)
				isa.DecodeS(w)
				isa.DecodeB(w)
				isa.DecodeU(w)
				isa.DecodeJ(w)
			}).NotTo(Panic())
		}
		f := isa.DecodeI(0xFFFFFFFF)
		Expect(f.Rd).To(Equal(uint32(31)))
		Expect(f.Imm11_0).To(Equal(uint32(0xFFF)))
	})
})

var _ = Describe("Decode", func() {
	It("should resolve ADDI x5, x0, 12", func() {
		ins, err := isa.Decode(0x00C0_0293)

		Expect(err).NotTo(HaveOccurred())
		Expect(ins.Opcode).To(Equal(isa.OpcodeOpImm))
		Expect(ins.Format).To(Equal(isa.FormatI))
		Expect(ins.Op).To(Equal(isa.OpADDI))
		Expect(ins.I.Rd).To(Equal(uint32(5)))
		Expect(ins.I.Rs1).To(Equal(uint32(0)))
		Expect(ins.I.Imm()).To(Equal(uint32(12)))
	})

	It("should populate only the record of the decoded format", func() {
		ins, err := isa.Decode(0x0020_81B3)

		Expect(err).NotTo(HaveOccurred())
		Expect(ins.Op).To(Equal(isa.OpADD))
		Expect(ins.I).To(Equal(isa.IType{}))
		Expect(ins.J).To(Equal(isa.JType{}))
	})

	It("should pick SRLI or SRAI by imm[11:5]", func() {
		ins, err := isa.Decode(0x4041_5093)
		Expect(err).NotTo(HaveOccurred())
		Expect(ins.Op).To(Equal(isa.OpSRAI))

		ins, err = isa.Decode(0x0041_5093)
		Expect(err).NotTo(HaveOccurred())
		Expect(ins.Op).To(Equal(isa.OpSRLI))
	})

	It("should round-trip every operation through Assemble", func() {
		for _, op := range isa.Ops() {
			a := isa.Operands{Rd: 7, Rs1: 9, Rs2: 11, Imm: 4}
			if op == isa.OpFENCE || op == isa.OpFENCEI {
				a = isa.Operands{}
			}
			w, err := isa.Assemble(op, a)
			Expect(err).NotTo(HaveOccurred(), "assemble %v", op)

			ins, err := isa.Decode(w)
			Expect(err).NotTo(HaveOccurred(), "decode %v (0x%08x)", op, w)
			Expect(ins.Op).To(Equal(op))
			Expect(ins.Format).To(Equal(op.Format()))
		}
	})

	It("should reject operands that do not fit", func() {
		_, err := isa.Assemble(isa.OpADDI, isa.Operands{Rd: 1, Imm: 2048})
		Expect(err).To(MatchError(isa.ErrOperandRange))

		_, err = isa.Assemble(isa.OpBEQ, isa.Operands{Imm: 3})
		Expect(err).To(MatchError(isa.ErrOperandRange))

		_, err = isa.Assemble(isa.OpADD, isa.Operands{Rd: 32})
		Expect(err).To(MatchError(isa.ErrOperandRange))

		_, err = isa.Assemble(isa.OpSLLI, isa.Operands{Imm: 32})
		Expect(err).To(MatchError(isa.ErrOperandRange))
	})
})

var _ = Describe("Operation catalog", func() {
	It("should define the 21 base opcodes", func() {
		Expect(isa.Opcodes()).To(HaveLen(21))
	})

	It("should resolve every defined opcode from the low 7 bits of a word", func() {
		for _, o := range isa.Opcodes() {
			parsed, err := isa.ParseOpcode(uint32(o))
			Expect(err).NotTo(HaveOccurred())
			Expect(parsed).To(Equal(o))

			ins, err := isa.DecodeFormat(0xABCD_E000 | uint32(o))
			Expect(err).NotTo(HaveOccurred())
			Expect(ins.Opcode).To(Equal(o))
		}
	})

	It("should fail on every undefined 7-bit pattern", func() {
		defined := map[isa.Opcode]bool{}
		for _, o := range isa.Opcodes() {
			defined[o] = true
		}
		for bits := uint32(0); bits < 128; bits++ {
			if defined[isa.Opcode(bits)] {
				continue
			}
			_, err := isa.ParseOpcode(bits)
			Expect(err).To(MatchError(isa.ErrUnknownOpcode), "opcode 0b%07b", bits)

			_, err = isa.Decode(bits)
			Expect(err).To(MatchError(isa.ErrUnknownOpcode))
		}
		_, err := isa.ParseOpcode(0x80)
		Expect(err).To(MatchError(isa.ErrUnknownOpcode))
	})

	It("should report the offending word in a DecodeError", func() {
		_, err := isa.Decode(0x7434_8A7E)

		var de *isa.DecodeError
		Expect(err).To(BeAssignableToTypeOf(de))
		de = err.(*isa.DecodeError)
		Expect(de.Word).To(Equal(uint32(0x7434_8A7E)))
		Expect(de.Opcode).To(Equal(uint32(0x7E)))
	})

	DescribeTable("unknown funct combinations",
		func(word uint32) {
			_, err := isa.Decode(word)
			Expect(err).To(MatchError(isa.ErrUnknownFunct))
		},
		Entry("OP funct7=0b0010000", isa.EncodeR(isa.OpcodeOp, 1, 0, 2, 3, 0x10)),
		Entry("OP funct7=alt with XOR", isa.EncodeR(isa.OpcodeOp, 1, 4, 2, 3, 0x20)),
		Entry("LOAD funct3=011 (ld)", isa.EncodeI(isa.OpcodeLoad, 1, 3, 2, 0)),
		Entry("LOAD funct3=111", isa.EncodeI(isa.OpcodeLoad, 1, 7, 2, 0)),
		Entry("STORE funct3=011 (sd)", isa.EncodeS(isa.OpcodeStore, 3, 1, 2, 0)),
		Entry("BRANCH funct3=010", isa.EncodeB(isa.OpcodeBranch, 2, 1, 2, 8)),
		Entry("SLLI imm[11:5]=0b0100000", isa.EncodeI(isa.OpcodeOpImm, 1, 1, 2, 0x401)),
		Entry("SRLI imm[11:5]=0b0010000", isa.EncodeI(isa.OpcodeOpImm, 1, 5, 2, 0x201)),
		Entry("JALR funct3=001", isa.EncodeI(isa.OpcodeJALR, 1, 1, 2, 0)),
		Entry("MISC_MEM funct3=010", isa.EncodeI(isa.OpcodeMiscMem, 0, 2, 0, 0)),
		Entry("SYSTEM funct3=100", isa.EncodeI(isa.OpcodeSystem, 0, 4, 0, 0)),
	)

	DescribeTable("recognised but unimplemented operations",
		func(word uint32) {
			_, err := isa.Decode(word)
			Expect(err).To(MatchError(isa.ErrUnimplemented))
			Expect(err).NotTo(MatchError(isa.ErrUnknownFunct))
		},
		Entry("MUL", isa.EncodeR(isa.OpcodeOp, 1, 0, 2, 3, 0x01)),
		Entry("CSRRW", uint32(0x3052_9073)),
		Entry("MRET", uint32(0x3020_0073)),
		Entry("LR.W", isa.EncodeR(isa.OpcodeAMO, 1, 2, 2, 0, 0x08)),
		Entry("FLW", isa.EncodeI(isa.OpcodeLoadFP, 1, 2, 2, 0)),
		Entry("ADDIW", isa.EncodeI(isa.OpcodeOpImm32, 1, 0, 2, 1)),
		Entry("FMADD.S", uint32(0x1820_00C3)),
	)

	It("should parse funct tags and reject values outside each set", func() {
		_, err := isa.ParseFunct3Load(3)
		Expect(err).To(MatchError(isa.ErrUnknownFunct))
		_, err = isa.ParseFunct3Store(4)
		Expect(err).To(MatchError(isa.ErrUnknownFunct))
		_, err = isa.ParseFunct3Branch(3)
		Expect(err).To(MatchError(isa.ErrUnknownFunct))
		_, err = isa.ParseFunct3Op(8)
		Expect(err).To(MatchError(isa.ErrUnknownFunct))
		_, err = isa.ParseFunct3OpImm(9)
		Expect(err).To(MatchError(isa.ErrUnknownFunct))
		_, err = isa.ParseFunct7(0x7F)
		Expect(err).To(MatchError(isa.ErrUnknownFunct))

		f, err := isa.ParseFunct3Branch(6)
		Expect(err).NotTo(HaveOccurred())
		Expect(f).To(Equal(isa.Funct3BLTU))
		l, err := isa.ParseFunct3Load(5)
		Expect(err).NotTo(HaveOccurred())
		Expect(l).To(Equal(isa.Funct3LHU))
	})
})

var _ = Describe("Disassembly", func() {
	DescribeTable("assembler syntax",
		func(word uint32, want string) {
			ins, err := isa.Decode(word)
			Expect(err).NotTo(HaveOccurred())
			Expect(ins.String()).To(Equal(want))
		},
		Entry("addi", uint32(0x00C0_0293), "addi t0, zero, 12"),
		Entry("add", uint32(0x0020_81B3), "add gp, ra, sp"),
		Entry("sub", uint32(0x4020_8233), "sub tp, ra, sp"),
		Entry("srai", uint32(0x4041_5093), "srai ra, sp, 4"),
		Entry("sw", uint32(0x0020_A423), "sw sp, 8(ra)"),
		Entry("beq", uint32(0x0020_8463), "beq ra, sp, 8"),
		Entry("bne back", uint32(0xFE00_1EE3), "bne zero, zero, -4"),
		Entry("lui", uint32(0x1234_50B7), "lui ra, 0x12345"),
		Entry("lw neg", isa.EncodeI(isa.OpcodeLoad, 10, 2, 2, -4), "lw a0, -4(sp)"),
		Entry("ecall", uint32(0x0000_0073), "ecall"),
	)

	It("should print undecodable words as data", func() {
		Expect(isa.Instruction{Word: 0xDEADBEEF}.String()).To(Equal(".word 0xdeadbeef"))
	})

	It("should name registers by calling convention", func() {
		Expect(isa.RegName(0)).To(Equal("zero"))
		Expect(isa.RegName(2)).To(Equal("sp"))
		Expect(isa.RegName(10)).To(Equal("a0"))
		Expect(isa.RegName(31)).To(Equal("t6"))
		Expect(isa.RegName(40)).To(Equal("x40"))
	})
})
