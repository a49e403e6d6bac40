// Package pipeline provides a 5-stage pipeline model for cycle-accurate
// timing simulation of RV32IM.
package pipeline

import (
	"github.com/sarchlab/rv32pipe/emu"
	"github.com/sarchlab/rv32pipe/insts"
)

// FetchStage handles instruction fetch and branch prediction lookup.
type FetchStage struct {
	memory    *emu.InstructionMemory
	predictor *BranchPredictor
}

// NewFetchStage creates a new fetch stage.
func NewFetchStage(memory *emu.InstructionMemory, predictor *BranchPredictor) *FetchStage {
	return &FetchStage{memory: memory, predictor: predictor}
}

// FetchResult holds the result of the fetch stage.
type FetchResult struct {
	Word       uint32
	Prediction PredictionInfo
}

// Fetch reads the instruction at pc and predicts its outcome.
func (s *FetchStage) Fetch(pc uint32) FetchResult {
	word := s.memory.Read32(pc)
	pred := s.predictor.Predict(pc)

	return FetchResult{
		Word: word,
		Prediction: PredictionInfo{
			BTBHit:       pred.BTBHit,
			PredictTaken: pred.Taken,
			PredictedPC:  pred.Target,
		},
	}
}

// DecodeStage handles instruction decode, immediate generation, and
// register-file read.
type DecodeStage struct {
	regFile *emu.RegFile
	decoder *insts.Decoder
}

// NewDecodeStage creates a new decode stage.
func NewDecodeStage(regFile *emu.RegFile) *DecodeStage {
	return &DecodeStage{regFile: regFile, decoder: insts.NewDecoder()}
}

// DecodeResult holds the result of the decode stage.
type DecodeResult struct {
	Inst *insts.Instruction

	Rs1Val uint32
	Rs2Val uint32
	Rd     uint8

	RegWrite  bool
	MemRead   bool
	MemWrite  bool
	MemToReg  bool
	AluSrcImm bool
	IsBranch  bool
	IsJump    bool
	IsJALR    bool
	IsLUI     bool
	IsAUIPC   bool
	NeedsRs1  bool
	NeedsRs2  bool
}

// Decode decodes word and reads the register file, synthesizing the
// control-signal vector for the downstream stages.
func (s *DecodeStage) Decode(word uint32) DecodeResult {
	inst := s.decoder.Decode(word)

	result := DecodeResult{
		Inst: inst,
		Rd:   inst.Rd,
	}

	result.Rs1Val = s.regFile.ReadReg(inst.Rs1)
	result.Rs2Val = s.regFile.ReadReg(inst.Rs2)

	if inst.Illegal {
		// Decode of unknown opcode/funct: treat as NOP, no architectural
		// side effect. Caller logs the warning.
		return result
	}

	switch inst.Format {
	case insts.FormatR:
		result.NeedsRs1 = true
		result.NeedsRs2 = true
		result.RegWrite = inst.Rd != 0
	case insts.FormatI:
		switch inst.Op {
		case insts.OpLoad:
			result.NeedsRs1 = true
			result.MemRead = true
			result.MemToReg = true
			result.RegWrite = inst.Rd != 0
		case insts.OpJALR:
			result.NeedsRs1 = true
			result.IsJALR = true
			result.RegWrite = inst.Rd != 0
		default:
			result.NeedsRs1 = true
			result.AluSrcImm = true
			result.RegWrite = inst.Rd != 0
		}
	case insts.FormatS:
		result.NeedsRs1 = true
		result.NeedsRs2 = true
		result.MemWrite = true
	case insts.FormatB:
		result.NeedsRs1 = true
		result.NeedsRs2 = true
		result.IsBranch = true
	case insts.FormatU:
		result.RegWrite = inst.Rd != 0
		if inst.Op == insts.OpLUI {
			result.IsLUI = true
		} else {
			result.IsAUIPC = true
		}
	case insts.FormatJ:
		result.IsJump = true
		result.RegWrite = inst.Rd != 0
	}

	return result
}

// ExecuteStage handles ALU operations, branch/jump resolution, address
// calculation, and issuing/advancing the multi-cycle multiplier and
// divider.
type ExecuteStage struct {
	alu        *emu.ALU
	multiplier *emu.Multiplier
	divider    *emu.Divider
}

// NewExecuteStage creates a new execute stage.
func NewExecuteStage(multiplier *emu.Multiplier, divider *emu.Divider) *ExecuteStage {
	return &ExecuteStage{alu: emu.NewALU(), multiplier: multiplier, divider: divider}
}

// ExecuteResult holds the result of the execute stage.
type ExecuteResult struct {
	ALUResult  uint32
	StoreValue uint32
	Prediction PredictionResult

	// Stall is true when a multi-cycle MUL/DIV is in flight and has not
	// yet produced a result this cycle.
	Stall bool

	// Halt reports that this instruction is an unconditional jump or taken
	// branch whose target is its own PC — the canonical "done" sentinel
	// (e.g. a trailing `jal x0, 0` or `beq x0, x0, 0` loop marking the end
	// of the loaded image).
	Halt bool
}

// Execute evaluates idex's instruction with already-forwarded operands.
func (s *ExecuteStage) Execute(idex *IDEXRegister, rs1, rs2 uint32, predictor *BranchPredictor) ExecuteResult {
	result := ExecuteResult{}
	inst := idex.Inst
	if inst == nil {
		return result
	}

	a := rs1
	if inst.Op == insts.OpAUIPC {
		a = idex.PC
	}
	b := rs2
	if idex.AluSrcImm {
		b = uint32(idex.Imm)
	}

	switch inst.Op {
	case insts.OpLUI:
		result.ALUResult = uint32(inst.Imm)
	case insts.OpAUIPC:
		result.ALUResult = idex.PC + uint32(inst.Imm)
	case insts.OpJAL, insts.OpJALR:
		result.ALUResult = idex.PC + 4
		result.Prediction = s.resolveJump(idex, rs1)
	case insts.OpMUL, insts.OpMULH, insts.OpMULHSU, insts.OpMULHU:
		result.ALUResult, result.Stall = s.runMultiplier(idex, a, b)
	case insts.OpDIV, insts.OpDIVU, insts.OpREM, insts.OpREMU:
		result.ALUResult, result.Stall = s.runDivider(idex, a, b)
	case insts.OpLoad, insts.OpStore:
		result.ALUResult = a + uint32(inst.Imm)
		result.StoreValue = rs2
	case insts.OpBranch:
		result.Prediction = s.resolveBranch(idex, inst, a, b, predictor)
	default:
		result.ALUResult = s.alu.Exec(aluOpFor(inst.Op), a, b)
	}

	if result.Prediction.ActualTaken && result.Prediction.ActualTarget == idex.PC {
		result.Halt = true
	}

	return result
}

func (s *ExecuteStage) runMultiplier(idex *IDEXRegister, a, b uint32) (uint32, bool) {
	if !s.multiplier.Busy() {
		s.multiplier.Start(idex.Inst.MulOp, idex.Rd, a, b)
	}
	done, result := s.multiplier.Tick()
	return result, !done
}

func (s *ExecuteStage) runDivider(idex *IDEXRegister, a, b uint32) (uint32, bool) {
	if !s.divider.Busy() {
		s.divider.Start(idex.Inst.DivOp, idex.Rd, a, b)
	}
	done, quotient, remainder := s.divider.Tick()
	if !done {
		return 0, true
	}
	switch idex.Inst.DivOp {
	case emu.DivREM, emu.DivREMU:
		return remainder, false
	default:
		return quotient, false
	}
}

// resolveBranch evaluates a conditional branch against the register
// file and verifies it against the prediction IF made.
func (s *ExecuteStage) resolveBranch(idex *IDEXRegister, inst *insts.Instruction, rs1, rs2 uint32, predictor *BranchPredictor) PredictionResult {
	actualTaken := emu.EvalBranch(inst.BranchOp, rs1, rs2)
	actualTarget := idex.PC + uint32(inst.Imm)

	var correct bool
	switch {
	case idex.Prediction.BTBHit && idex.Prediction.PredictTaken:
		correct = actualTaken && actualTarget == idex.Prediction.PredictedPC
	default:
		correct = !actualTaken
	}

	correctPC := idex.PC + 4
	if actualTaken {
		correctPC = actualTarget
	}

	idx := predictor.Index(idex.PC)
	predictor.Update(idx, idex.Prediction.BTBHit && idex.Prediction.PredictTaken, actualTaken, actualTarget)

	return PredictionResult{
		Mispredict:   !correct,
		CorrectPC:    correctPC,
		ActualTaken:  actualTaken,
		ActualTarget: actualTarget,
		BTBIndex:     idx,
	}
}

// resolveJump always mispredicts: JAL/JALR are never predicted.
func (s *ExecuteStage) resolveJump(idex *IDEXRegister, rs1 uint32) PredictionResult {
	var target uint32
	if idex.Inst.Op == insts.OpJALR {
		target = (rs1 + uint32(idex.Inst.Imm)) &^ 1
	} else {
		target = idex.PC + uint32(idex.Inst.Imm)
	}

	return PredictionResult{
		Mispredict:   true,
		CorrectPC:    target,
		ActualTaken:  true,
		ActualTarget: target,
	}
}

func aluOpFor(op insts.Op) emu.ALUOp {
	switch op {
	case insts.OpADD:
		return emu.ALUAdd
	case insts.OpSUB:
		return emu.ALUSub
	case insts.OpSLL:
		return emu.ALUSll
	case insts.OpSLT:
		return emu.ALUSlt
	case insts.OpSLTU:
		return emu.ALUSltu
	case insts.OpXOR:
		return emu.ALUXor
	case insts.OpSRL:
		return emu.ALUSrl
	case insts.OpSRA:
		return emu.ALUSra
	case insts.OpOR:
		return emu.ALUOr
	case insts.OpAND:
		return emu.ALUAnd
	default:
		return emu.ALUAdd
	}
}

// MemoryStage handles memory load/store operations.
type MemoryStage struct {
	memory *emu.DataMemory
}

// NewMemoryStage creates a new memory stage.
func NewMemoryStage(memory *emu.DataMemory) *MemoryStage {
	return &MemoryStage{memory: memory}
}

// MemoryResult holds the result of the memory stage.
type MemoryResult struct {
	MemData uint32
	Err     error
}

// Access performs the memory access described by exmem, if any.
func (s *MemoryStage) Access(exmem *EXMEMRegister) MemoryResult {
	result := MemoryResult{}
	if !exmem.Valid {
		return result
	}

	inst := exmem.Inst
	addr := exmem.ALUResult

	if exmem.MemRead {
		result.MemData, result.Err = s.readLoad(inst, addr)
	} else if exmem.MemWrite {
		result.Err = s.writeStore(inst, addr, exmem.StoreValue)
	}

	return result
}

func (s *MemoryStage) readLoad(inst *insts.Instruction, addr uint32) (uint32, error) {
	switch inst.LSSize {
	case insts.SizeByte:
		v, err := s.memory.ReadByte(addr)
		if err != nil {
			return 0, err
		}
		if inst.LSSigned {
			return uint32(int32(int8(v))), nil
		}
		return v, nil
	case insts.SizeHalf:
		v, err := s.memory.ReadHalf(addr)
		if err != nil {
			return 0, err
		}
		if inst.LSSigned {
			return uint32(int32(int16(v))), nil
		}
		return v, nil
	default:
		return s.memory.ReadWord(addr)
	}
}

func (s *MemoryStage) writeStore(inst *insts.Instruction, addr uint32, value uint32) error {
	switch inst.LSSize {
	case insts.SizeByte:
		return s.memory.WriteByte(addr, uint8(value))
	case insts.SizeHalf:
		return s.memory.WriteHalf(addr, uint16(value))
	default:
		return s.memory.WriteWord(addr, value)
	}
}

// WritebackStage handles register file writeback.
type WritebackStage struct {
	regFile *emu.RegFile
}

// NewWritebackStage creates a new writeback stage.
func NewWritebackStage(regFile *emu.RegFile) *WritebackStage {
	return &WritebackStage{regFile: regFile}
}

// Writeback writes the result of memwb to the register file.
func (s *WritebackStage) Writeback(memwb *MEMWBRegister) {
	if !memwb.Valid || !memwb.RegWrite || memwb.Rd == 0 {
		return
	}

	value := memwb.ALUResult
	if memwb.MemToReg {
		value = memwb.MemData
	}
	s.regFile.WriteReg(memwb.Rd, value)
}
