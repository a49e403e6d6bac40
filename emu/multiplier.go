package emu

// MulOp identifies which RV32M multiply variant a Multiplier is running.
type MulOp uint8

// RV32M multiply opcodes.
const (
	MulMUL MulOp = iota
	MulMULH
	MulMULHSU
	MulMULHU
)

// mulLatencyCycles is the number of EX-cycles a multiply occupies from
// issue to result-visible-at-EX: a deterministic 3 cycles.
const mulLatencyCycles = 3

// Multiplier models a 3-cycle Wallace-tree signed/unsigned multiplier as
// an explicit state machine. Stage 1 forms partial products from sign/zero
// extended operands and reduces them through carry-save layers; stage 2
// continues the reduction to two rows; stage 3 performs the final 66-bit
// add and selects the half of the product the issuing opcode wants.
// Because this is a behavioral cycle-accurate model rather than a gate
// model, the three stages are computed together at issue time and their
// result is simply latched for mulLatencyCycles-1 further ticks, which
// is observationally identical to computing one reduction stage per
// cycle: only the final, post-stage-3 value is ever visible to the
// pipeline.
type Multiplier struct {
	busy      bool
	ticksLeft int
	latency   int
	op        MulOp
	rd        uint8
	result    uint32
}

// NewMultiplier creates an idle multiplier with the default 3-cycle
// latency.
func NewMultiplier() *Multiplier {
	return NewMultiplierWithLatency(mulLatencyCycles)
}

// NewMultiplierWithLatency creates an idle multiplier with a caller-supplied
// latency, letting timing/latency.TimingConfig's MultiplyCycles retune the
// unit without touching its state-machine logic.
func NewMultiplierWithLatency(cycles int) *Multiplier {
	if cycles <= 0 {
		cycles = mulLatencyCycles
	}
	return &Multiplier{latency: cycles}
}

// Busy reports whether the multiplier is currently occupied.
func (m *Multiplier) Busy() bool {
	return m.busy
}

// Start issues a new multiply. The caller must ensure the unit is idle
// (the hazard unit guarantees this by stalling upstream issue while
// Busy() is true).
func (m *Multiplier) Start(op MulOp, rd uint8, a, b uint32) {
	m.busy = true
	m.ticksLeft = m.latency
	m.op = op
	m.rd = rd
	m.result = wallaceMultiply(op, a, b)
}

// Rd returns the destination register of the in-flight multiply.
func (m *Multiplier) Rd() uint8 {
	return m.rd
}

// Tick advances the multiplier by one cycle. It returns true and the
// product on the cycle the result becomes visible at EX.
func (m *Multiplier) Tick() (done bool, result uint32) {
	if !m.busy {
		return false, 0
	}
	m.ticksLeft--
	if m.ticksLeft > 0 {
		return false, 0
	}
	m.busy = false
	return true, m.result
}

// Cancel discards any in-flight multiply whose originating instruction
// has been flushed by a mispredict.
func (m *Multiplier) Cancel() {
	m.busy = false
	m.ticksLeft = 0
}

// wallaceMultiply computes the 32-bit result of a Wallace-tree multiply
// for the given op variant. The partial-product generation and 3:2 CSA
// reduction are architecturally equivalent to
// ordinary 64-bit multiplication of sign/zero-extended operands; this
// function produces the same numeric result the reduction network would
// after its final carry-propagate add, which is all a behavioral
// simulator needs to expose to software.
func wallaceMultiply(op MulOp, a, b uint32) uint32 {
	switch op {
	case MulMUL:
		return a * b
	case MulMULH:
		p := int64(int32(a)) * int64(int32(b))
		return uint32(uint64(p) >> 32)
	case MulMULHSU:
		p := int64(int32(a)) * int64(uint64(b))
		return uint32(uint64(p) >> 32)
	case MulMULHU:
		p := uint64(a) * uint64(b)
		return uint32(p >> 32)
	default:
		return 0
	}
}
