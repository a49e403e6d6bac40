package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv32pipe/timing/pipeline"
)

var _ = Describe("HazardUnit", func() {
	var hazardUnit *pipeline.HazardUnit

	BeforeEach(func() {
		hazardUnit = pipeline.NewHazardUnit()
	})

	Describe("DetectForwarding", func() {
		var idex *pipeline.IDEXRegister
		var exmem *pipeline.EXMEMRegister
		var memwb *pipeline.MEMWBRegister

		BeforeEach(func() {
			idex = &pipeline.IDEXRegister{Valid: true, Rs1Idx: 1, Rs2Idx: 2}
			exmem = &pipeline.EXMEMRegister{}
			memwb = &pipeline.MEMWBRegister{}
		})

		Context("when no forwarding is needed", func() {
			It("returns ForwardNone for both operands", func() {
				result := hazardUnit.DetectForwarding(idex, exmem, memwb)
				Expect(result.ForwardRs1).To(Equal(pipeline.ForwardNone))
				Expect(result.ForwardRs2).To(Equal(pipeline.ForwardNone))
			})
		})

		Context("when EX/MEM writes rs1", func() {
			It("forwards from EX/MEM", func() {
				exmem.Valid = true
				exmem.RegWrite = true
				exmem.Rd = 1
				result := hazardUnit.DetectForwarding(idex, exmem, memwb)
				Expect(result.ForwardRs1).To(Equal(pipeline.ForwardFromEXMEM))
			})
		})

		Context("when only MEM/WB writes rs2", func() {
			It("forwards from MEM/WB", func() {
				memwb.Valid = true
				memwb.RegWrite = true
				memwb.Rd = 2
				result := hazardUnit.DetectForwarding(idex, exmem, memwb)
				Expect(result.ForwardRs2).To(Equal(pipeline.ForwardFromMEMWB))
			})
		})

		Context("when both EX/MEM and MEM/WB write the same register", func() {
			It("prefers EX/MEM (most recent)", func() {
				exmem.Valid, exmem.RegWrite, exmem.Rd = true, true, 1
				memwb.Valid, memwb.RegWrite, memwb.Rd = true, true, 1
				result := hazardUnit.DetectForwarding(idex, exmem, memwb)
				Expect(result.ForwardRs1).To(Equal(pipeline.ForwardFromEXMEM))
			})
		})

		Context("when the destination is x0", func() {
			It("never forwards from a write to x0", func() {
				idex.Rs1Idx = 0
				exmem.Valid, exmem.RegWrite, exmem.Rd = true, true, 0
				result := hazardUnit.DetectForwarding(idex, exmem, memwb)
				Expect(result.ForwardRs1).To(Equal(pipeline.ForwardNone))
			})
		})

		Context("when ID/EX is not valid", func() {
			It("returns no forwarding", func() {
				idex.Valid = false
				exmem.Valid, exmem.RegWrite, exmem.Rd = true, true, 1
				result := hazardUnit.DetectForwarding(idex, exmem, memwb)
				Expect(result.ForwardRs1).To(Equal(pipeline.ForwardNone))
			})
		})
	})

	Describe("GetForwardedValue", func() {
		var exmem *pipeline.EXMEMRegister
		var memwb *pipeline.MEMWBRegister

		BeforeEach(func() {
			exmem = &pipeline.EXMEMRegister{ALUResult: 0xAAAA}
			memwb = &pipeline.MEMWBRegister{ALUResult: 0xBBBB, MemData: 0xCCCC}
		})

		It("returns the original value for ForwardNone", func() {
			v := hazardUnit.GetForwardedValue(pipeline.ForwardNone, 0x1111, exmem, memwb)
			Expect(v).To(Equal(uint32(0x1111)))
		})

		It("returns EX/MEM's ALU result for ForwardFromEXMEM", func() {
			v := hazardUnit.GetForwardedValue(pipeline.ForwardFromEXMEM, 0x1111, exmem, memwb)
			Expect(v).To(Equal(uint32(0xAAAA)))
		})

		It("returns MEM/WB's ALU result for ForwardFromMEMWB when it's not a load", func() {
			memwb.MemToReg = false
			v := hazardUnit.GetForwardedValue(pipeline.ForwardFromMEMWB, 0x1111, exmem, memwb)
			Expect(v).To(Equal(uint32(0xBBBB)))
		})

		It("returns MEM/WB's loaded data for ForwardFromMEMWB when it is a load", func() {
			memwb.MemToReg = true
			v := hazardUnit.GetForwardedValue(pipeline.ForwardFromMEMWB, 0x1111, exmem, memwb)
			Expect(v).To(Equal(uint32(0xCCCC)))
		})
	})

	Describe("DetectLoadUseHazard", func() {
		It("detects a hazard when the consumer reads rs1", func() {
			Expect(hazardUnit.DetectLoadUseHazard(5, true, false, 5, 0)).To(BeTrue())
		})

		It("detects a hazard when the consumer reads rs2", func() {
			Expect(hazardUnit.DetectLoadUseHazard(5, false, true, 0, 5)).To(BeTrue())
		})

		It("finds no hazard when the consumer doesn't read the loaded register", func() {
			Expect(hazardUnit.DetectLoadUseHazard(5, true, true, 1, 2)).To(BeFalse())
		})

		It("never reports a hazard for a load into x0", func() {
			Expect(hazardUnit.DetectLoadUseHazard(0, true, false, 0, 0)).To(BeFalse())
		})
	})

	Describe("ComputeStalls", func() {
		It("stalls IF and holds ID/EX in place on a multiplier/divider busy signal", func() {
			result := hazardUnit.ComputeStalls(false, true, false)
			Expect(result.StallIF).To(BeTrue())
			Expect(result.HoldIDEX).To(BeTrue())
			Expect(result.BubbleIDEX).To(BeFalse())
		})

		It("stalls IF and bubbles ID/EX on a load-use hazard", func() {
			result := hazardUnit.ComputeStalls(true, false, false)
			Expect(result.StallIF).To(BeTrue())
			Expect(result.BubbleIDEX).To(BeTrue())
			Expect(result.HoldIDEX).To(BeFalse())
		})

		It("produces no stall or flush when nothing is hazardous", func() {
			result := hazardUnit.ComputeStalls(false, false, false)
			Expect(result).To(Equal(pipeline.StallResult{}))
		})

		It("flushes IF/ID on a misprediction, overriding any concurrent stall", func() {
			result := hazardUnit.ComputeStalls(true, true, true)
			Expect(result.FlushIF).To(BeTrue())
			Expect(result.FlushID).To(BeTrue())
			Expect(result.StallIF).To(BeFalse())
			Expect(result.HoldIDEX).To(BeFalse())
			Expect(result.BubbleIDEX).To(BeFalse())
		})
	})
})
