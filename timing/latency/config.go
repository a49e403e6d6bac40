// Package latency provides the cycle-count configuration for the RV32IM
// pipeline's multi-cycle units and branch predictor sizing.
package latency

import (
	"encoding/json"
	"fmt"
	"os"
)

// TimingConfig holds latency values and structural sizing for the RV32IM
// pipeline. Multiply/divide are deterministic multi-cycle state machines,
// not variable-latency estimates, so each gets a single cycle count
// rather than a min/max pair.
type TimingConfig struct {
	// ALULatency is the execution latency for basic ALU operations
	// (ADD, SUB, AND, OR, XOR, shifts, SLT/SLTU). Default: 1 cycle.
	ALULatency uint64 `json:"alu_latency"`

	// BranchLatency is the base execution latency for branch instructions,
	// not counting misprediction recovery. Default: 1 cycle.
	BranchLatency uint64 `json:"branch_latency"`

	// BranchMispredictPenalty is the number of cycles flushed from IF/ID
	// and ID/EX on a misprediction. Default: 2 cycles (one flushed fetch,
	// one flushed decode).
	BranchMispredictPenalty uint64 `json:"branch_mispredict_penalty"`

	// LoadLatency is the base latency for load operations. Default: 1
	// cycle (MEM stage); the load-use hazard adds stall cycles separately.
	LoadLatency uint64 `json:"load_latency"`

	// StoreLatency is the latency for store operations. Default: 1 cycle.
	StoreLatency uint64 `json:"store_latency"`

	// MultiplyCycles is the fixed latency of the Wallace-tree multiplier.
	// Default: 3 cycles.
	MultiplyCycles uint64 `json:"multiply_cycles"`

	// DivideCycles is the fixed latency of the radix-4 SRT divider.
	// Default: 18 cycles.
	DivideCycles uint64 `json:"divide_cycles"`

	// BTBEntries is the number of Branch Target Buffer entries. Must be a
	// power of 2. Default: 64.
	BTBEntries uint32 `json:"btb_entries"`

	// BHTEntries is the number of Branch History Table entries. Default:
	// 64.
	BHTEntries uint32 `json:"bht_entries"`

	// MaxCycles bounds simulation length; Tick halts with a non-zero exit
	// code once exceeded. Default: 1,000,000.
	MaxCycles uint64 `json:"max_cycles"`
}

// DefaultTimingConfig returns a TimingConfig with the core's default values.
func DefaultTimingConfig() *TimingConfig {
	return &TimingConfig{
		ALULatency:              1,
		BranchLatency:           1,
		BranchMispredictPenalty: 2,
		LoadLatency:             1,
		StoreLatency:            1,
		MultiplyCycles:          3,
		DivideCycles:            18,
		BTBEntries:              64,
		BHTEntries:              64,
		MaxCycles:               1_000_000,
	}
}

// LoadConfig loads a TimingConfig from a JSON file, defaulting any field
// the file omits.
func LoadConfig(path string) (*TimingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timing config file: %w", err)
	}

	config := DefaultTimingConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse timing config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a TimingConfig to a JSON file.
func (c *TimingConfig) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize timing config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write timing config file: %w", err)
	}

	return nil
}

// Validate checks that all latency and sizing values are usable.
func (c *TimingConfig) Validate() error {
	if c.ALULatency == 0 {
		return fmt.Errorf("alu_latency must be > 0")
	}
	if c.BranchLatency == 0 {
		return fmt.Errorf("branch_latency must be > 0")
	}
	if c.LoadLatency == 0 {
		return fmt.Errorf("load_latency must be > 0")
	}
	if c.StoreLatency == 0 {
		return fmt.Errorf("store_latency must be > 0")
	}
	if c.MultiplyCycles == 0 {
		return fmt.Errorf("multiply_cycles must be > 0")
	}
	if c.DivideCycles == 0 {
		return fmt.Errorf("divide_cycles must be > 0")
	}
	if c.BTBEntries == 0 || c.BTBEntries&(c.BTBEntries-1) != 0 {
		return fmt.Errorf("btb_entries must be a power of 2")
	}
	if c.BHTEntries == 0 || c.BHTEntries&(c.BHTEntries-1) != 0 {
		return fmt.Errorf("bht_entries must be a power of 2")
	}
	if c.MaxCycles == 0 {
		return fmt.Errorf("max_cycles must be > 0")
	}
	return nil
}

// Clone returns a deep copy of the TimingConfig.
func (c *TimingConfig) Clone() *TimingConfig {
	clone := *c
	return &clone
}
