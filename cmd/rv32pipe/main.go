// Package main provides the entry point for rv32pipe, a cycle-accurate
// RV32IM 5-stage pipeline simulator.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sarchlab/rv32pipe/emu"
	"github.com/sarchlab/rv32pipe/loader"
	"github.com/sarchlab/rv32pipe/timing/pipeline"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		maxCycles      uint64
		trace          bool
		dumpRegsOnHalt bool
	)

	cmd := &cobra.Command{
		Use:   "rv32pipe <instruction_image_path> <data_image_path>",
		Short: "Cycle-accurate RV32IM 5-stage pipeline simulator",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			exitCode, err := run(args[0], args[1], maxCycles, trace, dumpRegsOnHalt)
			if err != nil {
				fmt.Fprintf(os.Stderr, "rv32pipe: %v\n", err)
				os.Exit(1)
			}
			os.Exit(int(exitCode))
			return nil
		},
	}

	cmd.Flags().Uint64Var(&maxCycles, "max-cycles", pipeline.DefaultMaxCycles, "cycle-count threshold before a non-sentinel halt")
	cmd.Flags().BoolVar(&trace, "trace", false, "emit a cycle/stage-tagged log line per log() invocation in the model")
	cmd.Flags().BoolVar(&dumpRegsOnHalt, "dump-regs-on-halt", false, "print all 32 general-purpose registers when the pipeline halts")

	return cmd
}

// run loads the instruction/data images, drives the pipeline to
// termination and reports results. It returns the process exit code.
func run(instPath, dataPath string, maxCycles uint64, trace, dumpRegsOnHalt bool) (int32, error) {
	prog, err := loader.Load(instPath, dataPath)
	if err != nil {
		return 0, err
	}

	instMem := emu.NewInstructionMemory()
	instMem.Load(prog.Instructions)

	dataMem := emu.NewDataMemory()
	dataMem.Load(prog.DataWords)

	regFile := &emu.RegFile{}

	opts := []pipeline.Option{pipeline.WithMaxCycles(maxCycles)}
	if trace {
		opts = append(opts, pipeline.WithLogger(func(line string) {
			fmt.Fprintln(os.Stderr, line)
		}))
	}

	pipe := pipeline.NewPipeline(regFile, instMem, dataMem, opts...)
	pipe.SetPC(0)

	exitCode := pipe.Run()

	if pipe.HaltReason() == "done sentinel reached" {
		fmt.Printf("Finish Execution. The result is %d\n", int32(pipe.RegFile().ReadReg(10)))
	}

	stats := pipe.Stats()
	fmt.Printf("cycles=%d instructions=%d cpi=%.2f stalls=%d flushes=%d mispredicts=%d halt=%q\n",
		stats.Cycles, stats.Instructions, stats.CPI, stats.Stalls, stats.Flushes,
		stats.Mispredictions, pipe.HaltReason())

	if dumpRegsOnHalt {
		dumpRegisters(pipe.RegFile())
	}

	return exitCode, nil
}

func dumpRegisters(regFile *emu.RegFile) {
	for i := 0; i < 32; i += 4 {
		fmt.Printf("x%-2d=0x%08x  x%-2d=0x%08x  x%-2d=0x%08x  x%-2d=0x%08x\n",
			i, regFile.ReadReg(uint8(i)),
			i+1, regFile.ReadReg(uint8(i+1)),
			i+2, regFile.ReadReg(uint8(i+2)),
			i+3, regFile.ReadReg(uint8(i+3)))
	}
}
