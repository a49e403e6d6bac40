// Package insts provides RV32IM instruction definitions and decoding.
//
// This package implements decoding of RV32I/RV32M machine code into
// structured instruction representations. It supports:
//   - Data processing: ADD/SUB/SLL/SLT/SLTU/XOR/SRL/SRA/OR/AND, register
//     and immediate forms (ADDI, SLTI, ...), plus LUI/AUIPC.
//   - Multiply/divide: MUL/MULH/MULHSU/MULHU, DIV/DIVU/REM/REMU
//     (funct7 = 0000001).
//   - Loads/stores: LB/LH/LW/LBU/LHU, SB/SH/SW.
//   - Control flow: BEQ/BNE/BLT/BGE/BLTU/BGEU, JAL, JALR.
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst := decoder.Decode(0x00c58633) // ADD x12, x11, x12
//	fmt.Printf("Op: %v, Rd: %d, Rs1: %d, Rs2: %d\n", inst.Op, inst.Rd, inst.Rs1, inst.Rs2)
package insts
