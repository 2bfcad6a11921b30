package isa

import "fmt"

// Instruction is a decoded instruction word. Exactly one of the format
// records is populated, selected by Format; the others stay zero.
type Instruction struct {
	Word   uint32
	Opcode Opcode
	Format Format
	Op     Op

	R RType
	I IType
	S SType
	B BType
	U UType
	J JType
}

// DecodeError describes a word that could not be mapped to an operation.
// Err is one of ErrUnknownOpcode, ErrUnknownFunct or ErrUnimplemented.
type DecodeError struct {
	Word   uint32
	Opcode uint32
	Funct3 uint32
	Funct7 uint32
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%v (word=0x%08x opcode=0b%07b funct3=0b%03b funct7=0b%07b)",
		e.Err, e.Word, e.Opcode, e.Funct3, e.Funct7)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func decodeError(word uint32, err error) *DecodeError {
	return &DecodeError{
		Word:   word,
		Opcode: word & maskOpcode,
		Funct3: (word & maskFunct3) >> 12,
		Funct7: (word & maskFunct7) >> 25,
		Err:    err,
	}
}

// Decode resolves word to an operation. It is DecodeFormat followed by
// Dispatch.
func Decode(word uint32) (Instruction, error) {
	ins, err := DecodeFormat(word)
	if err != nil {
		return ins, err
	}
	ins.Op, err = Dispatch(ins)
	return ins, err
}

// DecodeFormat applies the opcode decoder and then the one format decoder
// the opcode selects. Operation resolution is left to Dispatch.
func DecodeFormat(word uint32) (Instruction, error) {
	ins := Instruction{Word: word}
	opcode, err := ParseOpcode(DecodeOpcode(word).Opcode)
	if err != nil {
		return ins, decodeError(word, err)
	}
	ins.Opcode = opcode
	ins.Format = opcode.Format()

	switch ins.Format {
	case FormatR:
		ins.R = DecodeR(word)
	case FormatI:
		ins.I = DecodeI(word)
	case FormatS:
		ins.S = DecodeS(word)
	case FormatB:
		ins.B = DecodeB(word)
	case FormatU:
		ins.U = DecodeU(word)
	case FormatJ:
		ins.J = DecodeJ(word)
	}
	return ins, nil
}

// Dispatch resolves the funct fields of a format-decoded instruction to an
// operation.
func Dispatch(ins Instruction) (Op, error) {
	op, err := dispatch(ins)
	if err != nil {
		return OpInvalid, decodeError(ins.Word, err)
	}
	return op, nil
}

func dispatch(ins Instruction) (Op, error) {
	switch ins.Opcode {
	case OpcodeLUI:
		return OpLUI, nil
	case OpcodeAUIPC:
		return OpAUIPC, nil
	case OpcodeJAL:
		return OpJAL, nil
	case OpcodeJALR:
		if ins.I.Funct3 != 0 {
			return OpInvalid, fmt.Errorf("%w: JALR funct3=0x%x", ErrUnknownFunct, ins.I.Funct3)
		}
		return OpJALR, nil
	case OpcodeBranch:
		return dispatchBranch(ins.B)
	case OpcodeLoad:
		return dispatchLoad(ins.I)
	case OpcodeStore:
		return dispatchStore(ins.S)
	case OpcodeOpImm:
		return dispatchOpImm(ins.I)
	case OpcodeOp:
		return dispatchOp(ins.R)
	case OpcodeMiscMem:
		return dispatchMiscMem(ins.I)
	case OpcodeSystem:
		return dispatchSystem(ins.I)
	case OpcodeLoadFP, OpcodeStoreFP, OpcodeOpFP,
		OpcodeMAdd, OpcodeMSub, OpcodeNMSub, OpcodeNMAdd:
		return OpInvalid, fmt.Errorf("%w: floating point (%v)", ErrUnimplemented, ins.Opcode)
	case OpcodeAMO:
		return OpInvalid, fmt.Errorf("%w: atomics (%v)", ErrUnimplemented, ins.Opcode)
	case OpcodeOpImm32, OpcodeOp32:
		return OpInvalid, fmt.Errorf("%w: RV64 word ops (%v)", ErrUnimplemented, ins.Opcode)
	}
	return OpInvalid, fmt.Errorf("%w: %v", ErrUnknownOpcode, ins.Opcode)
}

func dispatchBranch(f BType) (Op, error) {
	funct3, err := ParseFunct3Branch(f.Funct3)
	if err != nil {
		return OpInvalid, err
	}
	switch funct3 {
	case Funct3BEQ:
		return OpBEQ, nil
	case Funct3BNE:
		return OpBNE, nil
	case Funct3BLT:
		return OpBLT, nil
	case Funct3BGE:
		return OpBGE, nil
	case Funct3BLTU:
		return OpBLTU, nil
	case Funct3BGEU:
		return OpBGEU, nil
	}
	return OpInvalid, fmt.Errorf("%w: BRANCH funct3=0x%x", ErrUnknownFunct, f.Funct3)
}

func dispatchLoad(f IType) (Op, error) {
	funct3, err := ParseFunct3Load(f.Funct3)
	if err != nil {
		return OpInvalid, err
	}
	switch funct3 {
	case Funct3LB:
		return OpLB, nil
	case Funct3LH:
		return OpLH, nil
	case Funct3LW:
		return OpLW, nil
	case Funct3LBU:
		return OpLBU, nil
	case Funct3LHU:
		return OpLHU, nil
	}
	return OpInvalid, fmt.Errorf("%w: LOAD funct3=0x%x", ErrUnknownFunct, f.Funct3)
}

func dispatchStore(f SType) (Op, error) {
	funct3, err := ParseFunct3Store(f.Funct3)
	if err != nil {
		return OpInvalid, err
	}
	switch funct3 {
	case Funct3SB:
		return OpSB, nil
	case Funct3SH:
		return OpSH, nil
	case Funct3SW:
		return OpSW, nil
	}
	return OpInvalid, fmt.Errorf("%w: STORE funct3=0x%x", ErrUnknownFunct, f.Funct3)
}

func dispatchOpImm(f IType) (Op, error) {
	funct3, err := ParseFunct3OpImm(f.Funct3)
	if err != nil {
		return OpInvalid, err
	}
	switch funct3 {
	case Funct3ADDI:
		return OpADDI, nil
	case Funct3SLTI:
		return OpSLTI, nil
	case Funct3SLTIU:
		return OpSLTIU, nil
	case Funct3XORI:
		return OpXORI, nil
	case Funct3ORI:
		return OpORI, nil
	case Funct3ANDI:
		return OpANDI, nil
	case Funct3SLLI:
		if f.Imm11_5 != uint32(Funct7Base) {
			return OpInvalid, fmt.Errorf("%w: SLLI imm[11:5]=0b%07b", ErrUnknownFunct, f.Imm11_5)
		}
		return OpSLLI, nil
	case Funct3SRLISRAI:
		switch f.Imm11_5 {
		case uint32(Funct7Base):
			return OpSRLI, nil
		case uint32(Funct7Alt):
			return OpSRAI, nil
		}
		return OpInvalid, fmt.Errorf("%w: SRLI/SRAI imm[11:5]=0b%07b", ErrUnknownFunct, f.Imm11_5)
	}
	return OpInvalid, fmt.Errorf("%w: OP_IMM funct3=0x%x", ErrUnknownFunct, f.Funct3)
}

func dispatchOp(f RType) (Op, error) {
	funct3, err := ParseFunct3Op(f.Funct3)
	if err != nil {
		return OpInvalid, err
	}
	funct7, err := ParseFunct7(f.Funct7)
	if err != nil {
		return OpInvalid, err
	}
	switch funct7 {
	case Funct7MulDiv:
		return OpInvalid, fmt.Errorf("%w: M extension funct3=0x%x", ErrUnimplemented, f.Funct3)
	case Funct7Alt:
		switch funct3 {
		case Funct3ADDSUB:
			return OpSUB, nil
		case Funct3SRLSRA:
			return OpSRA, nil
		}
		return OpInvalid, fmt.Errorf("%w: OP funct3=0x%x funct7=0b%07b", ErrUnknownFunct, f.Funct3, f.Funct7)
	}
	switch funct3 {
	case Funct3ADDSUB:
		return OpADD, nil
	case Funct3SLL:
		return OpSLL, nil
	case Funct3SLT:
		return OpSLT, nil
	case Funct3SLTU:
		return OpSLTU, nil
	case Funct3XOR:
		return OpXOR, nil
	case Funct3SRLSRA:
		return OpSRL, nil
	case Funct3OR:
		return OpOR, nil
	case Funct3AND:
		return OpAND, nil
	}
	return OpInvalid, fmt.Errorf("%w: OP funct3=0x%x", ErrUnknownFunct, f.Funct3)
}

func dispatchMiscMem(f IType) (Op, error) {
	switch f.Funct3 {
	case 0b000:
		return OpFENCE, nil
	case 0b001:
		return OpFENCEI, nil
	}
	return OpInvalid, fmt.Errorf("%w: MISC_MEM funct3=0x%x", ErrUnknownFunct, f.Funct3)
}

// SYSTEM funct3=000 with rd=rs1=0 carries ECALL (imm 0) and EBREAK (imm 1);
// the other funct3 values are the Zicsr instructions.
func dispatchSystem(f IType) (Op, error) {
	switch f.Funct3 {
	case 0b000:
		if f.Rd == 0 && f.Rs1 == 0 {
			switch f.Imm11_0 {
			case 0:
				return OpECALL, nil
			case 1:
				return OpEBREAK, nil
			}
		}
		return OpInvalid, fmt.Errorf("%w: privileged SYSTEM imm=0x%03x", ErrUnimplemented, f.Imm11_0)
	case 0b001, 0b010, 0b011, 0b101, 0b110, 0b111:
		return OpInvalid, fmt.Errorf("%w: CSR access funct3=0x%x", ErrUnimplemented, f.Funct3)
	}
	return OpInvalid, fmt.Errorf("%w: SYSTEM funct3=0x%x", ErrUnknownFunct, f.Funct3)
}
