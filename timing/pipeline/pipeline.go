// Package pipeline provides a 5-stage pipeline model for cycle-accurate
// timing simulation of RV32IM.
//
// The pipeline implements the classic 5-stage design:
//   - Fetch (IF): read the instruction word and consult the branch predictor
//   - Decode (ID): decode the instruction, read the register file
//   - Execute (EX): ALU/branch/MUL/DIV, prediction verification
//   - Memory (MEM): load/store access
//   - Writeback (WB): commit the result to the register file
//
// Features:
//   - Pipeline registers between stages (IF/ID, ID/EX, EX/MEM, MEM/WB)
//   - Full RAW hazard detection with EX/MEM and MEM/WB forwarding
//   - Load-use and multiplier/divider busy stalling
//   - Branch prediction with predict/verify/recover across IF/EX
//   - Deterministic multi-cycle MUL (3 cycles) and DIV (18 cycles)
package pipeline

import (
	"fmt"

	"github.com/sarchlab/rv32pipe/emu"
	"github.com/sarchlab/rv32pipe/timing/latency"
)

// DefaultMaxCycles bounds simulation when the harness sets no explicit
// threshold: once the cycle count exceeds it, the pipeline halts with a
// non-zero exit code.
const DefaultMaxCycles = 1_000_000

// Logger receives one already-formatted line per log(...) invocation in
// the model: a textual log stream, one entry per invocation, prefixed
// with cycle number and stage tag. The core never owns the sink's
// lifecycle; the harness supplies it.
type Logger func(line string)

// Option configures a Pipeline at construction time.
type Option func(*Pipeline)

// WithLogger installs a log sink. Without one, log output is discarded.
func WithLogger(logger Logger) Option {
	return func(p *Pipeline) { p.log = logger }
}

// WithMaxCycles overrides the cycle-count halt threshold.
func WithMaxCycles(n uint64) Option {
	return func(p *Pipeline) { p.maxCycles = n }
}

// WithBranchPredictorConfig overrides the default 64-entry BTB/BHT sizing.
func WithBranchPredictorConfig(cfg BranchPredictorConfig) Option {
	return func(p *Pipeline) { p.predictor = NewBranchPredictor(cfg) }
}

// WithTimingConfig applies a timing/latency.TimingConfig wholesale:
// multiplier/divider latency, BTB/BHT sizing and the cycle-count halt
// threshold all come from cfg rather than their built-in defaults.
func WithTimingConfig(cfg *latency.TimingConfig) Option {
	return func(p *Pipeline) {
		p.multiplier = emu.NewMultiplierWithLatency(int(cfg.MultiplyCycles))
		p.divider = emu.NewDividerWithLatency(int(cfg.DivideCycles))
		p.predictor = NewBranchPredictor(BranchPredictorConfig{
			BHTSize: cfg.BHTEntries,
			BTBSize: cfg.BTBEntries,
		})
		p.maxCycles = cfg.MaxCycles
	}
}

// Pipeline is a cycle-accurate 5-stage RV32IM pipeline.
type Pipeline struct {
	fetchStage     *FetchStage
	decodeStage    *DecodeStage
	executeStage   *ExecuteStage
	memoryStage    *MemoryStage
	writebackStage *WritebackStage

	predictor  *BranchPredictor
	hazardUnit *HazardUnit
	multiplier *emu.Multiplier
	divider    *emu.Divider

	// Pipeline registers (current side).
	ifid  IFIDRegister
	idex  IDEXRegister
	exmem EXMEMRegister
	memwb MEMWBRegister

	// Next-cycle pipeline registers for synchronous, compute-then-commit
	// update: each stage reads the input side of its pipeline latches and
	// computes a proposed output latch value; at the cycle boundary the
	// driver commits all outputs atomically.
	nextIfid  IFIDRegister
	nextIdex  IDEXRegister
	nextExmem EXMEMRegister
	nextMemwb MEMWBRegister

	regFile *emu.RegFile
	instMem *emu.InstructionMemory
	dataMem *emu.DataMemory
	pc      uint32

	maxCycles uint64

	cycleCount       uint64
	instructionCount uint64
	stallCount       uint64
	branchCount      uint64
	mispredictCount  uint64
	flushCount       uint64

	halted     bool
	exitCode   int32
	haltReason string

	log Logger
}

// NewPipeline creates a new 5-stage pipeline over the given register file
// and instruction/data memories.
func NewPipeline(regFile *emu.RegFile, instMem *emu.InstructionMemory, dataMem *emu.DataMemory, opts ...Option) *Pipeline {
	p := &Pipeline{
		predictor:  NewBranchPredictor(DefaultBranchPredictorConfig()),
		hazardUnit: NewHazardUnit(),
		multiplier: emu.NewMultiplier(),
		divider:    emu.NewDivider(),
		regFile:    regFile,
		instMem:    instMem,
		dataMem:    dataMem,
		maxCycles:  DefaultMaxCycles,
	}

	for _, opt := range opts {
		opt(p)
	}

	p.fetchStage = NewFetchStage(instMem, p.predictor)
	p.decodeStage = NewDecodeStage(regFile)
	p.executeStage = NewExecuteStage(p.multiplier, p.divider)
	p.memoryStage = NewMemoryStage(dataMem)
	p.writebackStage = NewWritebackStage(regFile)

	return p
}

// SetPC sets the program counter (entry point). Initial PC is 0.
func (p *Pipeline) SetPC(pc uint32) {
	p.pc = pc
}

// PC returns the current program counter.
func (p *Pipeline) PC() uint32 {
	return p.pc
}

// Halted reports whether the pipeline has halted.
func (p *Pipeline) Halted() bool {
	return p.halted
}

// ExitCode returns the process exit code once halted: 0 on a successful
// sentinel halt, non-zero otherwise.
func (p *Pipeline) ExitCode() int32 {
	return p.exitCode
}

// HaltReason returns a short diagnostic describing why the pipeline
// halted, or "" if still running.
func (p *Pipeline) HaltReason() string {
	return p.haltReason
}

// Stats holds pipeline performance counters.
type Stats struct {
	Cycles         uint64
	Instructions   uint64
	Stalls         uint64
	Branches       uint64
	Mispredictions uint64
	Flushes        uint64
	CPI            float64
	PredictorStats BranchPredictorStats
}

// Stats returns pipeline performance statistics.
func (p *Pipeline) Stats() Stats {
	s := Stats{
		Cycles:         p.cycleCount,
		Instructions:   p.instructionCount,
		Stalls:         p.stallCount,
		Branches:       p.branchCount,
		Mispredictions: p.mispredictCount,
		Flushes:        p.flushCount,
		PredictorStats: p.predictor.Stats(),
	}
	if s.Instructions > 0 {
		s.CPI = float64(s.Cycles) / float64(s.Instructions)
	}
	return s
}

// RegFile exposes the register file for inspection (e.g. reading x10/a0
// at termination).
func (p *Pipeline) RegFile() *emu.RegFile {
	return p.regFile
}

func (p *Pipeline) logf(stage, format string, args ...interface{}) {
	if p.log == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	p.log(fmt.Sprintf("[cycle %d] %s: %s", p.cycleCount, stage, msg))
}

// Tick advances the pipeline by exactly one cycle.
func (p *Pipeline) Tick() {
	if p.halted {
		return
	}

	p.cycleCount++
	if p.cycleCount > p.maxCycles {
		p.halted = true
		p.exitCode = 1
		p.haltReason = fmt.Sprintf("cycle count threshold (%d) exceeded", p.maxCycles)
		p.logf("DRIVER", "%s", p.haltReason)
		return
	}

	// Phase 1: every stage reads its current-side latch and computes a
	// proposed next-side value. Order here only affects which Go values
	// are computed first; no stage observes another stage's *next* value
	// this same cycle.
	p.doWriteback()
	memErr := p.doMemory()
	exResult, mulDivBusy := p.doExecute()
	loadUseHazard := p.doDecode()

	// IF itself is held on a busy-stall: the instruction at the current
	// PC was already fetched (and predicted) in an earlier cycle, so a
	// real stall never re-reads the instruction memory or the predictor;
	// IF/ID stays unchanged and PC is held.
	if mulDivBusy || loadUseHazard {
		p.nextIfid = p.ifid
	} else {
		p.doFetch()
	}

	if memErr != nil {
		p.halted = true
		p.exitCode = 1
		p.haltReason = memErr.Error()
		p.logf("MEM", "%s", p.haltReason)
		return
	}

	// The done sentinel halts the machine instead of redirecting fetch, so
	// its self-branch is not counted as a misprediction.
	mispredict := p.idex.Valid && exResult.Prediction.Mispredict && !exResult.Halt
	stalls := p.hazardUnit.ComputeStalls(loadUseHazard, mulDivBusy, mispredict)

	if stalls.StallIF {
		p.stallCount++
	}

	if mispredict {
		p.mispredictCount++
		p.flushCount++
		p.logf("EX", "mispredict at pc=0x%x, redirecting to 0x%x", p.idex.PC, exResult.Prediction.CorrectPC)
	}
	if p.idex.Valid && p.idex.IsBranch {
		p.branchCount++
	}

	if stalls.FlushIF {
		p.nextIfid.Clear()
	}
	if stalls.FlushID {
		p.nextIdex.Clear()
		if p.multiplier.Busy() {
			p.multiplier.Cancel()
		}
		if p.divider.Busy() {
			p.divider.Cancel()
		}
	}

	if stalls.HoldIDEX {
		p.nextIdex = p.idex
	}
	if stalls.BubbleIDEX {
		p.nextIdex.Clear()
	}

	// Next-PC priority: flush-to-corrected-PC > stall-hold > predicted_pc
	// (already computed by fetchStage into nextIfid.Prediction.PredictedPC).
	switch {
	case mispredict:
		p.pc = exResult.Prediction.CorrectPC
	case stalls.StallIF:
		// held: PC unchanged, IF/ID unchanged.
	default:
		p.pc = p.nextIfid.Prediction.PredictedPC
	}

	// Phase 2: commit all next-side latches atomically.
	p.ifid = p.nextIfid
	p.idex = p.nextIdex
	p.exmem = p.nextExmem
	p.memwb = p.nextMemwb

	if exResult.Halt {
		// Retire the instruction that has just left MEM, so the register
		// file read at termination reflects every instruction older than
		// the sentinel.
		p.doWriteback()
		p.halted = true
		p.exitCode = 0
		p.haltReason = "done sentinel reached"
		result := int32(p.regFile.ReadReg(10))
		p.logf("DRIVER", "Finish Execution. The result is %d", result)
	}
}

// doFetch performs the fetch stage.
func (p *Pipeline) doFetch() {
	fr := p.fetchStage.Fetch(p.pc)
	p.nextIfid.Valid = true
	p.nextIfid.PC = p.pc
	p.nextIfid.InstructionWord = fr.Word
	p.nextIfid.Prediction = fr.Prediction
}

// doDecode performs the decode stage. Returns whether a
// load-use hazard was detected against the load currently in ID/EX.
func (p *Pipeline) doDecode() bool {
	if !p.ifid.Valid {
		p.nextIdex.Clear()
		return false
	}

	dr := p.decodeStage.Decode(p.ifid.InstructionWord)

	if dr.Inst.Illegal {
		p.logf("ID", "unrecognized opcode 0x%08x at pc=0x%x, treated as NOP", dr.Inst.Raw, p.ifid.PC)
	}

	loadUseHazard := false
	if p.idex.Valid && p.idex.MemRead {
		loadUseHazard = p.hazardUnit.DetectLoadUseHazard(p.idex.Rd, dr.NeedsRs1, dr.NeedsRs2, dr.Inst.Rs1, dr.Inst.Rs2)
	}
	if loadUseHazard {
		return true
	}

	p.nextIdex.Valid = true
	p.nextIdex.PC = p.ifid.PC
	p.nextIdex.Inst = dr.Inst
	p.nextIdex.Rs1Idx = dr.Inst.Rs1
	p.nextIdex.Rs2Idx = dr.Inst.Rs2
	p.nextIdex.Rs1Val = dr.Rs1Val
	p.nextIdex.Rs2Val = dr.Rs2Val
	p.nextIdex.Imm = dr.Inst.Imm
	p.nextIdex.Rd = dr.Rd
	p.nextIdex.Prediction = p.ifid.Prediction

	p.nextIdex.RegWrite = dr.RegWrite
	p.nextIdex.MemRead = dr.MemRead
	p.nextIdex.MemWrite = dr.MemWrite
	p.nextIdex.MemToReg = dr.MemToReg
	p.nextIdex.AluSrcImm = dr.AluSrcImm
	p.nextIdex.IsBranch = dr.IsBranch
	p.nextIdex.IsJump = dr.IsJump
	p.nextIdex.IsJALR = dr.IsJALR
	p.nextIdex.IsLUI = dr.IsLUI
	p.nextIdex.IsAUIPC = dr.IsAUIPC
	p.nextIdex.NeedsRs1 = dr.NeedsRs1
	p.nextIdex.NeedsRs2 = dr.NeedsRs2

	return false
}

// doExecute performs the execute stage. Returns the
// execute result and whether a multi-cycle MUL/DIV is occupying EX and
// has not yet produced its result this cycle.
func (p *Pipeline) doExecute() (ExecuteResult, bool) {
	if !p.idex.Valid {
		p.nextExmem.Clear()
		return ExecuteResult{}, false
	}

	fwd := p.hazardUnit.DetectForwarding(&p.idex, &p.exmem, &p.memwb)
	rs1 := p.hazardUnit.GetForwardedValue(fwd.ForwardRs1, p.idex.Rs1Val, &p.exmem, &p.memwb)
	rs2 := p.hazardUnit.GetForwardedValue(fwd.ForwardRs2, p.idex.Rs2Val, &p.exmem, &p.memwb)

	result := p.executeStage.Execute(&p.idex, rs1, rs2, p.predictor)

	if result.Stall {
		// The multiplier/divider has not finished; EX emits a bubble and
		// the busy signal holds IF/ID and ID/EX in place: EX propagates a
		// bubble and keeps the busy signal asserted.
		p.nextExmem.Clear()
		return result, true
	}

	p.nextExmem.Valid = true
	p.nextExmem.PC = p.idex.PC
	p.nextExmem.Inst = p.idex.Inst
	p.nextExmem.Rd = p.idex.Rd
	p.nextExmem.ALUResult = result.ALUResult
	p.nextExmem.StoreValue = result.StoreValue
	p.nextExmem.RegWrite = p.idex.RegWrite
	p.nextExmem.MemRead = p.idex.MemRead
	p.nextExmem.MemWrite = p.idex.MemWrite
	p.nextExmem.MemToReg = p.idex.MemToReg
	p.nextExmem.Prediction = result.Prediction

	return result, false
}

// doMemory performs the memory stage. Returns a non-nil error when the
// access is out-of-bounds or unaligned; the driver halts on such an
// error.
func (p *Pipeline) doMemory() error {
	if !p.exmem.Valid {
		p.nextMemwb.Clear()
		return nil
	}

	result := p.memoryStage.Access(&p.exmem)
	if result.Err != nil {
		return fmt.Errorf("data memory fault at pc=0x%x: %w", p.exmem.PC, result.Err)
	}

	p.nextMemwb.Valid = true
	p.nextMemwb.PC = p.exmem.PC
	p.nextMemwb.Inst = p.exmem.Inst
	p.nextMemwb.Rd = p.exmem.Rd
	p.nextMemwb.ALUResult = p.exmem.ALUResult
	p.nextMemwb.MemData = result.MemData
	p.nextMemwb.RegWrite = p.exmem.RegWrite
	p.nextMemwb.MemToReg = p.exmem.MemToReg

	return nil
}

// doWriteback performs the writeback stage.
func (p *Pipeline) doWriteback() {
	if !p.memwb.Valid {
		return
	}
	p.writebackStage.Writeback(&p.memwb)
	p.instructionCount++
}

// Run executes the pipeline until it halts and returns the exit code.
func (p *Pipeline) Run() int32 {
	for !p.halted {
		p.Tick()
	}
	return p.exitCode
}

// RunCycles executes up to n cycles. Returns false if the pipeline has
// halted.
func (p *Pipeline) RunCycles(n uint64) bool {
	for i := uint64(0); i < n && !p.halted; i++ {
		p.Tick()
	}
	return !p.halted
}

// GetIFID returns the current IF/ID register for inspection.
func (p *Pipeline) GetIFID() IFIDRegister { return p.ifid }

// GetIDEX returns the current ID/EX register for inspection.
func (p *Pipeline) GetIDEX() IDEXRegister { return p.idex }

// GetEXMEM returns the current EX/MEM register for inspection.
func (p *Pipeline) GetEXMEM() EXMEMRegister { return p.exmem }

// GetMEMWB returns the current MEM/WB register for inspection.
func (p *Pipeline) GetMEMWB() MEMWBRegister { return p.memwb }

// Predictor exposes the branch predictor for inspection.
func (p *Pipeline) Predictor() *BranchPredictor { return p.predictor }
