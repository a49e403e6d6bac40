package core_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv32pipe/emu"
	"github.com/sarchlab/rv32pipe/timing/core"
)

var _ = Describe("Core", func() {
	var (
		regFile *emu.RegFile
		instMem *emu.InstructionMemory
		dataMem *emu.DataMemory
		c       *core.Core
	)

	BeforeEach(func() {
		regFile = &emu.RegFile{}
		instMem = emu.NewInstructionMemory()
		dataMem = emu.NewDataMemory()
		c = core.NewCore(regFile, instMem, dataMem)
	})

	It("should create a core with pipeline", func() {
		Expect(c).NotTo(BeNil())
		Expect(c.Pipeline).NotTo(BeNil())
	})

	It("should set and get PC", func() {
		c.SetPC(0x100)
		Expect(c.PC()).To(Equal(uint32(0x100)))
	})

	It("should not be halted initially", func() {
		Expect(c.Halted()).To(BeFalse())
	})

	It("should execute instructions through tick", func() {
		// addi x1, x0, 42
		instMem.Load([]uint32{0x02A00093})
		c.SetPC(0)

		for i := 0; i < 10; i++ {
			c.Tick()
		}

		Expect(regFile.ReadReg(1)).To(Equal(uint32(42)))
	})

	It("should return stats", func() {
		instMem.Load([]uint32{0x02A00093, 0x00000013})
		c.SetPC(0)
		c.Tick()
		c.Tick()

		stats := c.Stats()
		Expect(stats.Cycles).To(Equal(uint64(2)))
	})

	It("should run until halt and return exit code", func() {
		// addi x10, x0, 10 ; beq x0, x0, 0 (self-loop done sentinel)
		instMem.Load([]uint32{0x00A00513, 0x00000063})
		c.SetPC(0)
		exitCode := c.Run()

		Expect(c.Halted()).To(BeTrue())
		Expect(exitCode).To(Equal(int32(0)))
		Expect(c.RegFile().ReadReg(10)).To(Equal(uint32(10)))
	})

	It("should return exit code correctly", func() {
		// beq x0, x0, 0, immediately at pc=0 (self-loop)
		instMem.Load([]uint32{0x00000063})
		c.SetPC(0)
		c.Run()

		Expect(c.ExitCode()).To(Equal(int32(0)))
		Expect(c.HaltReason()).NotTo(BeEmpty())
	})

	It("should run for specified cycles and return running status", func() {
		// addi x1, x1, 1 followed by NOPs, no self-loop: keeps running.
		instMem.Load([]uint32{
			0x00108093, // addi x1, x1, 1
			0x00000013, // nop
			0x00000013,
			0x00000013,
			0x00000013,
			0x00000013,
			0x00000013,
			0x00000013,
			0x00000013,
		})
		c.SetPC(0)
		running := c.RunCycles(5)

		Expect(running).To(BeTrue())
		Expect(c.Halted()).To(BeFalse())

		stats := c.Stats()
		Expect(stats.Cycles).To(Equal(uint64(5)))
	})

	It("should stop running cycles when halted", func() {
		// beq x0, x0, 0 at pc=0 halts almost immediately.
		instMem.Load([]uint32{0x00000063})
		c.SetPC(0)
		running := c.RunCycles(100)

		Expect(running).To(BeFalse())
		Expect(c.Halted()).To(BeTrue())
	})

	It("should be constructed with a non-nil data memory", func() {
		Expect(dataMem).NotTo(BeNil())
	})
})
