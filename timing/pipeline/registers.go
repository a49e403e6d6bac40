// Package pipeline provides a 5-stage pipeline model for cycle-accurate
// timing simulation of RV32IM.
package pipeline

import (
	"github.com/sarchlab/rv32pipe/insts"
)

// PredictionInfo is the branch-prediction snapshot IF attaches to a
// fetched instruction.
type PredictionInfo struct {
	BTBHit       bool
	PredictTaken bool
	PredictedPC  uint32
}

// PredictionResult is the verdict EX reaches after evaluating a branch
// against the prediction IF made.
type PredictionResult struct {
	Mispredict   bool
	CorrectPC    uint32
	ActualTaken  bool
	ActualTarget uint32
	BTBIndex     uint32
}

// IFIDRegister holds state between Fetch and Decode stages.
type IFIDRegister struct {
	Valid           bool
	PC              uint32
	InstructionWord uint32
	Prediction      PredictionInfo
}

// Clear resets the IFID register to the all-invalid state.
func (r *IFIDRegister) Clear() {
	*r = IFIDRegister{}
}

// IDEXRegister holds state between Decode and Execute stages.
type IDEXRegister struct {
	Valid bool
	PC    uint32
	Inst  *insts.Instruction

	Rs1Idx uint8
	Rs2Idx uint8
	Rs1Val uint32
	Rs2Val uint32
	Imm    int32
	Rd     uint8

	Prediction PredictionInfo

	// Control signals, flattened directly onto the pipeline register
	// rather than packed into a bitfield.
	RegWrite  bool
	MemRead   bool
	MemWrite  bool
	MemToReg  bool
	AluSrcImm bool
	IsBranch  bool
	IsJump    bool // JAL
	IsJALR    bool
	IsLUI     bool
	IsAUIPC   bool
	NeedsRs1  bool
	NeedsRs2  bool
}

// Clear resets the IDEX register to a bubble.
func (r *IDEXRegister) Clear() {
	*r = IDEXRegister{}
}

// EXMEMRegister holds state between Execute and Memory stages.
type EXMEMRegister struct {
	Valid bool
	PC    uint32
	Inst  *insts.Instruction

	Rd         uint8
	ALUResult  uint32
	StoreValue uint32

	RegWrite bool
	MemRead  bool
	MemWrite bool
	MemToReg bool

	Prediction PredictionResult
}

// Clear resets the EXMEM register to a bubble.
func (r *EXMEMRegister) Clear() {
	*r = EXMEMRegister{}
}

// MEMWBRegister holds state between Memory and Writeback stages.
type MEMWBRegister struct {
	Valid bool
	PC    uint32
	Inst  *insts.Instruction

	Rd        uint8
	ALUResult uint32
	MemData   uint32

	RegWrite bool
	MemToReg bool
}

// Clear resets the MEMWB register to a bubble.
func (r *MEMWBRegister) Clear() {
	*r = MEMWBRegister{}
}
