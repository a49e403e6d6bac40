package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv32pipe/emu"
)

var _ = Describe("ALU", func() {
	var alu *emu.ALU

	BeforeEach(func() {
		alu = emu.NewALU()
	})

	DescribeTable("integer operations",
		func(op emu.ALUOp, x, y, want uint32) {
			Expect(alu.Exec(op, x, y)).To(Equal(want))
		},
		Entry("ADD", emu.ALUAdd, uint32(2), uint32(3), uint32(5)),
		Entry("ADD wraps on overflow", emu.ALUAdd, uint32(0xffffffff), uint32(1), uint32(0)),
		Entry("SUB", emu.ALUSub, uint32(10), uint32(3), uint32(7)),
		Entry("SUB wraps on underflow", emu.ALUSub, uint32(0), uint32(1), uint32(0xffffffff)),
		Entry("SLL uses low 5 bits of shift amount", emu.ALUSll, uint32(1), uint32(35), uint32(1<<3)),
		Entry("SLT signed less-than true", emu.ALUSlt, uint32(0xffffffff), uint32(1), uint32(1)),
		Entry("SLT signed less-than false", emu.ALUSlt, uint32(1), uint32(0xffffffff), uint32(0)),
		Entry("SLTU unsigned less-than", emu.ALUSltu, uint32(1), uint32(0xffffffff), uint32(1)),
		Entry("XOR", emu.ALUXor, uint32(0xf0), uint32(0x0f), uint32(0xff)),
		Entry("SRL logical shift", emu.ALUSrl, uint32(0xffffffff), uint32(4), uint32(0x0fffffff)),
		Entry("SRA arithmetic shift sign-extends", emu.ALUSra, uint32(0x80000000), uint32(4), uint32(0xf8000000)),
		Entry("OR", emu.ALUOr, uint32(0xf0), uint32(0x0f), uint32(0xff)),
		Entry("AND", emu.ALUAnd, uint32(0xff), uint32(0x0f), uint32(0x0f)),
	)
})
