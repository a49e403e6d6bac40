// Package pipeline provides a 5-stage pipeline model for cycle-accurate
// timing simulation of RV32IM.
package pipeline

// HazardUnit detects data/structural hazards and computes stall/flush
// control. It is a pure function over snapshots of the pipeline
// registers and multi-cycle unit status; it never mutates state itself.
type HazardUnit struct{}

// NewHazardUnit creates a new hazard detection unit.
func NewHazardUnit() *HazardUnit {
	return &HazardUnit{}
}

// ForwardingSource indicates where to forward an EX operand from.
type ForwardingSource uint8

// Forwarding sources, in priority order.
const (
	ForwardNone ForwardingSource = iota
	ForwardFromEXMEM
	ForwardFromMEMWB
)

// ForwardingResult contains forwarding decisions for both source
// operands of the instruction currently in ID/EX.
type ForwardingResult struct {
	ForwardRs1 ForwardingSource
	ForwardRs2 ForwardingSource
}

// DetectForwarding resolves RAW hazards for the instruction in ID/EX
// against EX/MEM (highest priority) and MEM/WB.
func (h *HazardUnit) DetectForwarding(idex *IDEXRegister, exmem *EXMEMRegister, memwb *MEMWBRegister) ForwardingResult {
	result := ForwardingResult{}
	if !idex.Valid {
		return result
	}

	if idex.Rs1Idx != 0 {
		switch {
		case exmem.Valid && exmem.RegWrite && exmem.Rd != 0 && exmem.Rd == idex.Rs1Idx:
			result.ForwardRs1 = ForwardFromEXMEM
		case memwb.Valid && memwb.RegWrite && memwb.Rd != 0 && memwb.Rd == idex.Rs1Idx:
			result.ForwardRs1 = ForwardFromMEMWB
		}
	}

	if idex.Rs2Idx != 0 {
		switch {
		case exmem.Valid && exmem.RegWrite && exmem.Rd != 0 && exmem.Rd == idex.Rs2Idx:
			result.ForwardRs2 = ForwardFromEXMEM
		case memwb.Valid && memwb.RegWrite && memwb.Rd != 0 && memwb.Rd == idex.Rs2Idx:
			result.ForwardRs2 = ForwardFromMEMWB
		}
	}

	return result
}

// GetForwardedValue resolves a ForwardingSource to the actual value to
// feed into EX.
func (h *HazardUnit) GetForwardedValue(source ForwardingSource, original uint32, exmem *EXMEMRegister, memwb *MEMWBRegister) uint32 {
	switch source {
	case ForwardFromEXMEM:
		return exmem.ALUResult
	case ForwardFromMEMWB:
		if memwb.MemToReg {
			return memwb.MemData
		}
		return memwb.ALUResult
	default:
		return original
	}
}

// DetectLoadUseHazard checks whether a load sitting in ID/EX feeds an
// instruction about to enter ID/EX from IF/ID: the caller has checked
// that ID/EX holds a load, its rd is nonzero, and the incoming
// instruction reads that register. Forwarding
// alone cannot resolve this because the loaded value isn't available
// until after MEM.
func (h *HazardUnit) DetectLoadUseHazard(loadRd uint8, usesRs1, usesRs2 bool, rs1, rs2 uint8) bool {
	if loadRd == 0 {
		return false
	}
	if usesRs1 && rs1 == loadRd {
		return true
	}
	if usesRs2 && rs2 == loadRd {
		return true
	}
	return false
}

// StallResult indicates what pipeline actions are needed this cycle.
//
// A multiplier/divider busy-stall and a load-use stall both hold PC and
// IF/ID, but they differ in what happens to ID/EX: a busy MUL/DIV must
// stay *in* ID/EX (it is re-presented to EX every cycle until its unit
// finishes — see emu.Multiplier/emu.Divider), whereas a load-use hazard's
// load has already produced a valid EX result this cycle and must
// advance normally; it is the hazard's dependent consumer, still sitting
// in IF/ID, that must not be allowed to decode into ID/EX yet. HoldIDEX
// and BubbleIDEX capture that distinction; at most one is set per cycle,
// and neither is set when there is no stall or when a flush overrides it.
type StallResult struct {
	StallIF    bool
	HoldIDEX   bool
	BubbleIDEX bool
	FlushIF    bool
	FlushID    bool
}

// ComputeStalls determines stalling and flushing actions. Priority is
// flush overrides stall overrides normal advance.
func (h *HazardUnit) ComputeStalls(loadUseHazard, mulDivBusy, mispredict bool) StallResult {
	result := StallResult{}

	switch {
	case mulDivBusy:
		result.StallIF = true
		result.HoldIDEX = true
	case loadUseHazard:
		result.StallIF = true
		result.BubbleIDEX = true
	}

	if mispredict {
		result.FlushIF = true
		result.FlushID = true
		// Flush overrides any stall this cycle: the stalled instruction
		// was itself upstream of the mispredicting branch and must be
		// discarded, not held.
		result.StallIF = false
		result.HoldIDEX = false
		result.BubbleIDEX = false
	}

	return result
}
