package emu

import "fmt"

// InstructionWords is the default capacity of InstructionMemory, in
// 32-bit words (spec budget: at least 2048 words).
const InstructionWords = 4096

// DataBytes is the default capacity of DataMemory, in bytes (spec budget:
// at least 16 KiB).
const DataBytes = 64 * 1024

// InstructionMemory is a read-only, word-addressed instruction store.
// Address equals PC>>2.
type InstructionMemory struct {
	words []uint32
}

// NewInstructionMemory creates an instruction memory with the default
// capacity.
func NewInstructionMemory() *InstructionMemory {
	return &InstructionMemory{words: make([]uint32, InstructionWords)}
}

// Load installs a program image starting at word-address 0.
func (m *InstructionMemory) Load(words []uint32) {
	if len(words) > len(m.words) {
		grown := make([]uint32, len(words))
		copy(grown, m.words)
		m.words = grown
	}
	copy(m.words, words)
}

// Read32 fetches the instruction word at the given byte-address PC.
// Out-of-range addresses return a zero word, which the decoder flags as an
// unrecognized opcode and the pipeline executes as a NOP; fetching past
// the loaded image neither halts nor raises an "instruction fault".
func (m *InstructionMemory) Read32(pc uint32) uint32 {
	idx := pc >> 2
	if int(idx) >= len(m.words) {
		return 0
	}
	return m.words[idx]
}

// DataMemory is a byte-addressed data store with byte/half/word write
// granularity. Reads and writes are combinational primitives; the
// one-cycle visibility delay a real memory stage exhibits comes from the
// pipeline's MEM/WB register timing, not from DataMemory itself.
type DataMemory struct {
	bytes []byte
}

// NewDataMemory creates a data memory with the default capacity.
func NewDataMemory() *DataMemory {
	return &DataMemory{bytes: make([]byte, DataBytes)}
}

// Load installs the data image as sequential words starting at
// word-address 0 (byte-address 0).
func (m *DataMemory) Load(words []uint32) {
	need := len(words) * 4
	if need > len(m.bytes) {
		grown := make([]byte, need)
		copy(grown, m.bytes)
		m.bytes = grown
	}
	for i, w := range words {
		m.writeWord(uint32(i*4), w)
	}
}

// inBounds reports whether the [addr, addr+size) byte range is resident.
func (m *DataMemory) inBounds(addr uint32, size uint32) bool {
	if uint64(addr)+uint64(size) > uint64(len(m.bytes)) {
		return false
	}
	return true
}

// ErrOutOfBounds is returned by bounds-checked accessors when an address
// falls outside the resident data memory; the driver halts with a
// diagnostic.
type ErrOutOfBounds struct {
	Addr uint32
	Size uint32
}

func (e *ErrOutOfBounds) Error() string {
	return fmt.Sprintf("data memory access out of bounds: addr=0x%x size=%d", e.Addr, e.Size)
}

// ErrUnaligned is returned by bounds-checked accessors when an address is
// not naturally aligned for the requested access width. Unaligned
// behavior is implementation-defined and this implementation chooses to
// halt with a diagnostic.
type ErrUnaligned struct {
	Addr  uint32
	Width uint32
}

func (e *ErrUnaligned) Error() string {
	return fmt.Sprintf("unaligned data memory access: addr=0x%x width=%d", e.Addr, e.Width)
}

func (m *DataMemory) writeWord(addr uint32, value uint32) {
	m.bytes[addr+0] = byte(value)
	m.bytes[addr+1] = byte(value >> 8)
	m.bytes[addr+2] = byte(value >> 16)
	m.bytes[addr+3] = byte(value >> 24)
}

// ReadWord reads a 32-bit word. addr must be 4-byte aligned.
func (m *DataMemory) ReadWord(addr uint32) (uint32, error) {
	if addr%4 != 0 {
		return 0, &ErrUnaligned{Addr: addr, Width: 4}
	}
	if !m.inBounds(addr, 4) {
		return 0, &ErrOutOfBounds{Addr: addr, Size: 4}
	}
	b := m.bytes
	return uint32(b[addr]) | uint32(b[addr+1])<<8 | uint32(b[addr+2])<<16 | uint32(b[addr+3])<<24, nil
}

// WriteWord writes a 32-bit word. addr must be 4-byte aligned.
func (m *DataMemory) WriteWord(addr uint32, value uint32) error {
	if addr%4 != 0 {
		return &ErrUnaligned{Addr: addr, Width: 4}
	}
	if !m.inBounds(addr, 4) {
		return &ErrOutOfBounds{Addr: addr, Size: 4}
	}
	m.writeWord(addr, value)
	return nil
}

// ReadHalf reads a 16-bit halfword, zero-extended to 32 bits. addr must
// be 2-byte aligned.
func (m *DataMemory) ReadHalf(addr uint32) (uint32, error) {
	if addr%2 != 0 {
		return 0, &ErrUnaligned{Addr: addr, Width: 2}
	}
	if !m.inBounds(addr, 2) {
		return 0, &ErrOutOfBounds{Addr: addr, Size: 2}
	}
	b := m.bytes
	return uint32(b[addr]) | uint32(b[addr+1])<<8, nil
}

// WriteHalf writes the low 16 bits of value to the halfword at addr,
// leaving the other lanes of the containing word untouched. addr must be
// 2-byte aligned.
func (m *DataMemory) WriteHalf(addr uint32, value uint16) error {
	if addr%2 != 0 {
		return &ErrUnaligned{Addr: addr, Width: 2}
	}
	if !m.inBounds(addr, 2) {
		return &ErrOutOfBounds{Addr: addr, Size: 2}
	}
	m.bytes[addr] = byte(value)
	m.bytes[addr+1] = byte(value >> 8)
	return nil
}

// ReadByte reads a single byte, zero-extended to 32 bits.
func (m *DataMemory) ReadByte(addr uint32) (uint32, error) {
	if !m.inBounds(addr, 1) {
		return 0, &ErrOutOfBounds{Addr: addr, Size: 1}
	}
	return uint32(m.bytes[addr]), nil
}

// WriteByte writes the low 8 bits of value to the byte at addr, leaving
// the other lanes of the containing word untouched.
func (m *DataMemory) WriteByte(addr uint32, value uint8) error {
	if !m.inBounds(addr, 1) {
		return &ErrOutOfBounds{Addr: addr, Size: 1}
	}
	m.bytes[addr] = value
	return nil
}
