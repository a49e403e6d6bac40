package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv32pipe/emu"
)

var _ = Describe("RegFile", func() {
	var rf *emu.RegFile

	BeforeEach(func() {
		rf = &emu.RegFile{}
	})

	It("starts with every register at zero", func() {
		for i := uint8(0); i < 32; i++ {
			Expect(rf.ReadReg(i)).To(Equal(uint32(0)))
		}
	})

	It("reads back a written register", func() {
		rf.WriteReg(5, 0xdeadbeef)
		Expect(rf.ReadReg(5)).To(Equal(uint32(0xdeadbeef)))
	})

	It("keeps x0 hardwired to zero", func() {
		rf.WriteReg(0, 0xffffffff)
		Expect(rf.ReadReg(0)).To(Equal(uint32(0)))
	})

	It("tracks PC independently of the register file", func() {
		rf.PC = 0x1000
		rf.WriteReg(1, 42)
		Expect(rf.PC).To(Equal(uint32(0x1000)))
		Expect(rf.ReadReg(1)).To(Equal(uint32(42)))
	})
})
