// Package core provides the cycle-accurate CPU core model.
// It wraps the pipeline implementation to provide a high-level interface.
package core

import (
	"github.com/sarchlab/rv32pipe/emu"
	"github.com/sarchlab/rv32pipe/timing/pipeline"
)

// Stats holds performance statistics for the core.
type Stats struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of instructions retired.
	Instructions uint64
	// Stalls is the number of stall cycles.
	Stalls uint64
	// Branches is the number of branch instructions retired.
	Branches uint64
	// Mispredictions is the number of branch mispredictions.
	Mispredictions uint64
	// Flushes is the number of pipeline flushes.
	Flushes uint64
	// CPI is cycles per instruction.
	CPI float64
}

// Core represents a cycle-accurate CPU core model.
// It wraps a 5-stage pipeline and provides a simple interface for simulation.
type Core struct {
	// Pipeline is the underlying 5-stage pipeline.
	Pipeline *pipeline.Pipeline

	// Shared resources
	regFile *emu.RegFile
	instMem *emu.InstructionMemory
	dataMem *emu.DataMemory
}

// NewCore creates a new Core with the given register file and
// instruction/data memories.
func NewCore(regFile *emu.RegFile, instMem *emu.InstructionMemory, dataMem *emu.DataMemory, opts ...pipeline.Option) *Core {
	return &Core{
		Pipeline: pipeline.NewPipeline(regFile, instMem, dataMem, opts...),
		regFile:  regFile,
		instMem:  instMem,
		dataMem:  dataMem,
	}
}

// SetPC sets the program counter.
func (c *Core) SetPC(pc uint32) {
	c.Pipeline.SetPC(pc)
}

// PC returns the current program counter.
func (c *Core) PC() uint32 {
	return c.Pipeline.PC()
}

// Tick executes one pipeline cycle.
func (c *Core) Tick() {
	c.Pipeline.Tick()
}

// Halted returns true if the core has halted.
func (c *Core) Halted() bool {
	return c.Pipeline.Halted()
}

// ExitCode returns the exit code if the core has halted.
func (c *Core) ExitCode() int32 {
	return c.Pipeline.ExitCode()
}

// HaltReason returns a short diagnostic describing why the core halted.
func (c *Core) HaltReason() string {
	return c.Pipeline.HaltReason()
}

// RegFile exposes the register file for inspection.
func (c *Core) RegFile() *emu.RegFile {
	return c.regFile
}

// Stats returns performance statistics for the core.
func (c *Core) Stats() Stats {
	pipeStats := c.Pipeline.Stats()
	return Stats{
		Cycles:         pipeStats.Cycles,
		Instructions:   pipeStats.Instructions,
		Stalls:         pipeStats.Stalls,
		Branches:       pipeStats.Branches,
		Mispredictions: pipeStats.Mispredictions,
		Flushes:        pipeStats.Flushes,
		CPI:            pipeStats.CPI,
	}
}

// Run executes the core until it halts.
// Returns the exit code.
func (c *Core) Run() int32 {
	return c.Pipeline.Run()
}

// RunCycles executes the core for the specified number of cycles.
// Returns true if still running, false if halted.
func (c *Core) RunCycles(cycles uint64) bool {
	return c.Pipeline.RunCycles(cycles)
}
