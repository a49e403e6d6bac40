package insts

import "github.com/sarchlab/rv32pipe/emu"

// Format represents an RV32 instruction encoding format.
type Format uint8

// RV32 base instruction formats.
const (
	FormatUnknown Format = iota
	FormatR              // Register-register (ADD, SUB, MUL, DIV, ...)
	FormatI              // Immediate (ADDI, loads, JALR)
	FormatS              // Store
	FormatB              // Branch
	FormatU              // LUI/AUIPC
	FormatJ              // JAL
)

// Op identifies the operation a decoded instruction performs. Register
// and immediate arithmetic forms of the same ALU operation (e.g. ADD and
// ADDI) share an Op; Format distinguishes where the second operand comes
// from.
type Op uint8

// RV32I/RV32M opcodes.
const (
	OpUnknown Op = iota
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
	OpLUI
	OpAUIPC
	OpJAL
	OpJALR
	OpBranch
	OpLoad
	OpStore
	OpMUL
	OpMULH
	OpMULHSU
	OpMULHU
	OpDIV
	OpDIVU
	OpREM
	OpREMU
)

// LoadStoreSize identifies the memory access width for OpLoad/OpStore.
type LoadStoreSize uint8

// Load/store widths.
const (
	SizeByte LoadStoreSize = iota
	SizeHalf
	SizeWord
)

// Instruction is the result of decoding one 32-bit RV32 instruction word.
type Instruction struct {
	Raw    uint32
	Format Format
	Op     Op

	Rd  uint8
	Rs1 uint8
	Rs2 uint8

	// Imm is the sign-extended immediate for the instruction's format
	// (I/S/B/U/J). For branches and JAL it is the
	// PC-relative byte offset; for JALR and loads/stores it is the
	// base-register offset; for LUI/AUIPC it is the shifted upper
	// immediate.
	Imm int32

	// LSSize and LSSigned describe a load/store's memory access
	// (OpLoad/OpStore only).
	LSSize   LoadStoreSize
	LSSigned bool

	// BranchOp/MulOp/DivOp narrow OpBranch/OpMUL.../OpDIV... to the
	// specific comparison/arithmetic variant (a 3-bit branch_op, mul_op
	// or div_op field).
	BranchOp emu.BranchOp
	MulOp    emu.MulOp
	DivOp    emu.DivOp

	// Illegal marks an unrecognized opcode/funct combination. Decoded as
	// a NOP: no architectural side effect, but the harness should log a
	// warning.
	Illegal bool
}

// Decoder decodes RV32I/RV32M instruction words.
type Decoder struct{}

// NewDecoder creates a new RV32IM decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// RV32 base opcodes (bits [6:0]).
const (
	opcodeOpImm  = 0b0010011 // ADDI, SLTI, ..., immediate ALU
	opcodeOp     = 0b0110011 // ADD, SUB, ..., MUL/DIV (funct7=0000001)
	opcodeLoad   = 0b0000011
	opcodeStore  = 0b0100011
	opcodeBranch = 0b1100011
	opcodeJAL    = 0b1101111
	opcodeJALR   = 0b1100111
	opcodeLUI    = 0b0110111
	opcodeAUIPC  = 0b0010111
)

// Decode decodes one instruction word. Unrecognized opcode/funct
// combinations decode to a NOP-shaped Instruction with Illegal set; the
// caller is responsible for emitting the warning.
func (d *Decoder) Decode(word uint32) *Instruction {
	opcode := word & 0x7f
	rd := uint8((word >> 7) & 0x1f)
	funct3 := uint8((word >> 12) & 0x7)
	rs1 := uint8((word >> 15) & 0x1f)
	rs2 := uint8((word >> 20) & 0x1f)
	funct7 := uint8((word >> 25) & 0x7f)

	inst := &Instruction{Raw: word, Rd: rd, Rs1: rs1, Rs2: rs2}

	switch opcode {
	case opcodeOp:
		inst.Format = FormatR
		if funct7 == 0b0000001 {
			decodeMulDiv(inst, funct3)
		} else {
			decodeAluReg(inst, funct3, funct7)
		}
	case opcodeOpImm:
		inst.Format = FormatI
		inst.Imm = immI(word)
		decodeAluImm(inst, funct3, word)
	case opcodeLoad:
		inst.Format = FormatI
		inst.Imm = immI(word)
		inst.Op = OpLoad
		decodeLoadSize(inst, funct3)
	case opcodeStore:
		inst.Format = FormatS
		inst.Imm = immS(word)
		inst.Op = OpStore
		decodeStoreSize(inst, funct3)
	case opcodeBranch:
		inst.Format = FormatB
		inst.Imm = immB(word)
		inst.Op = OpBranch
		decodeBranchOp(inst, funct3)
	case opcodeJAL:
		inst.Format = FormatJ
		inst.Imm = immJ(word)
		inst.Op = OpJAL
	case opcodeJALR:
		inst.Format = FormatI
		inst.Imm = immI(word)
		inst.Op = OpJALR
	case opcodeLUI:
		inst.Format = FormatU
		inst.Imm = immU(word)
		inst.Op = OpLUI
	case opcodeAUIPC:
		inst.Format = FormatU
		inst.Imm = immU(word)
		inst.Op = OpAUIPC
	default:
		inst.Illegal = true
	}

	return inst
}

func decodeAluReg(inst *Instruction, funct3, funct7 uint8) {
	switch funct3 {
	case 0b000:
		if funct7 == 0b0100000 {
			inst.Op = OpSUB
		} else {
			inst.Op = OpADD
		}
	case 0b001:
		inst.Op = OpSLL
	case 0b010:
		inst.Op = OpSLT
	case 0b011:
		inst.Op = OpSLTU
	case 0b100:
		inst.Op = OpXOR
	case 0b101:
		if funct7 == 0b0100000 {
			inst.Op = OpSRA
		} else {
			inst.Op = OpSRL
		}
	case 0b110:
		inst.Op = OpOR
	case 0b111:
		inst.Op = OpAND
	default:
		inst.Illegal = true
	}
}

func decodeMulDiv(inst *Instruction, funct3 uint8) {
	switch funct3 {
	case 0b000:
		inst.Op, inst.MulOp = OpMUL, emu.MulMUL
	case 0b001:
		inst.Op, inst.MulOp = OpMULH, emu.MulMULH
	case 0b010:
		inst.Op, inst.MulOp = OpMULHSU, emu.MulMULHSU
	case 0b011:
		inst.Op, inst.MulOp = OpMULHU, emu.MulMULHU
	case 0b100:
		inst.Op, inst.DivOp = OpDIV, emu.DivDIV
	case 0b101:
		inst.Op, inst.DivOp = OpDIVU, emu.DivDIVU
	case 0b110:
		inst.Op, inst.DivOp = OpREM, emu.DivREM
	case 0b111:
		inst.Op, inst.DivOp = OpREMU, emu.DivREMU
	default:
		inst.Illegal = true
	}
}

func decodeAluImm(inst *Instruction, funct3 uint8, word uint32) {
	shamt := (word >> 20) & 0x1f
	funct7 := (word >> 25) & 0x7f
	switch funct3 {
	case 0b000:
		inst.Op = OpADD // ADDI
	case 0b010:
		inst.Op = OpSLT // SLTI
	case 0b011:
		inst.Op = OpSLTU // SLTIU
	case 0b100:
		inst.Op = OpXOR // XORI
	case 0b110:
		inst.Op = OpOR // ORI
	case 0b111:
		inst.Op = OpAND // ANDI
	case 0b001:
		inst.Op = OpSLL // SLLI
		inst.Imm = int32(shamt)
	case 0b101:
		inst.Imm = int32(shamt)
		if (funct7>>5)&1 == 1 {
			inst.Op = OpSRA // SRAI
		} else {
			inst.Op = OpSRL // SRLI
		}
	default:
		inst.Illegal = true
	}
}

func decodeLoadSize(inst *Instruction, funct3 uint8) {
	switch funct3 {
	case 0b000:
		inst.LSSize, inst.LSSigned = SizeByte, true
	case 0b001:
		inst.LSSize, inst.LSSigned = SizeHalf, true
	case 0b010:
		inst.LSSize, inst.LSSigned = SizeWord, false
	case 0b100:
		inst.LSSize, inst.LSSigned = SizeByte, false
	case 0b101:
		inst.LSSize, inst.LSSigned = SizeHalf, false
	default:
		inst.Illegal = true
	}
}

func decodeStoreSize(inst *Instruction, funct3 uint8) {
	switch funct3 {
	case 0b000:
		inst.LSSize = SizeByte
	case 0b001:
		inst.LSSize = SizeHalf
	case 0b010:
		inst.LSSize = SizeWord
	default:
		inst.Illegal = true
	}
}

func decodeBranchOp(inst *Instruction, funct3 uint8) {
	switch funct3 {
	case 0b000:
		inst.BranchOp = emu.BranchEQ
	case 0b001:
		inst.BranchOp = emu.BranchNE
	case 0b100:
		inst.BranchOp = emu.BranchLT
	case 0b101:
		inst.BranchOp = emu.BranchGE
	case 0b110:
		inst.BranchOp = emu.BranchLTU
	case 0b111:
		inst.BranchOp = emu.BranchGEU
	default:
		inst.Illegal = true
	}
}

// immI sign-extends the I-type immediate (bits [31:20]).
func immI(word uint32) int32 {
	return int32(word) >> 20
}

// immS sign-extends the S-type immediate (bits [31:25]|[11:7]).
func immS(word uint32) int32 {
	imm := ((word >> 25) << 5) | ((word >> 7) & 0x1f)
	return signExtend(imm, 12)
}

// immB sign-extends the B-type immediate (bit 12 down to bit 1, bit 0
// implicitly zero).
func immB(word uint32) int32 {
	imm := (((word >> 31) & 0x1) << 12) |
		(((word >> 7) & 0x1) << 11) |
		(((word >> 25) & 0x3f) << 5) |
		(((word >> 8) & 0xf) << 1)
	return signExtend(imm, 13)
}

// immU extracts the U-type immediate: upper 20 bits in place, low 12
// zero.
func immU(word uint32) int32 {
	return int32(word & 0xfffff000)
}

// immJ sign-extends the J-type immediate (bit 20 down to bit 1, bit 0
// implicitly zero).
func immJ(word uint32) int32 {
	imm := (((word >> 31) & 0x1) << 20) |
		(((word >> 12) & 0xff) << 12) |
		(((word >> 20) & 0x1) << 11) |
		(((word >> 21) & 0x3ff) << 1)
	return signExtend(imm, 21)
}

// signExtend sign-extends the low bits bits of value to a full int32.
func signExtend(value uint32, bits uint) int32 {
	shift := 32 - bits
	return int32(value<<shift) >> shift
}
