package vm

const MemorySize = 1 << 16

const (
	UserSpaceStart             = 0x3000
	MemoryMappedRegistersStart = 0xFE00
)

// memory mapped register addresses
const (
	KBSR Word = MemoryMappedRegistersStart          /* keyboard status register */
	KBDR Word = MemoryMappedRegistersStart + 0x0002 /* keyboard data register */
)

// keyboard status bit set in KBSR when KBDR holds a fresh character
const kbsrReady Word = 1 << 15

// Memory is the flat 16-bit word address space. Reads of KBSR poll the
// attached keyboard; every other access is a plain array operation.
type Memory struct {
	ram      [MemorySize]Word
	keyboard Keyboard
}

// NewMemory returns zeroed memory whose KBSR/KBDR registers are backed by kb.
// kb may be nil, in which case KBSR always reads as "no character".
func NewMemory(kb Keyboard) *Memory {
	return &Memory{keyboard: kb}
}

func (mem *Memory) Read(addr Word) Word {
	if addr == KBSR {
		mem.pollKeyboard()
	}
	return mem.ram[addr]
}

func (mem *Memory) Write(addr, value Word) {
	mem.ram[addr] = value
}

// Peek reads addr without triggering the keyboard poll.
func (mem *Memory) Peek(addr Word) Word {
	return mem.ram[addr]
}

// Load copies words into memory starting at origin. Words that would fall
// past the top of the address space are dropped; the count written is
// returned.
func (mem *Memory) Load(origin Word, words []Word) int {
	return copy(mem.ram[origin:], words)
}

// Clear zeroes every word.
func (mem *Memory) Clear() {
	mem.ram = [MemorySize]Word{}
}

func (mem *Memory) pollKeyboard() {
	if mem.keyboard != nil && mem.keyboard.InputReady() {
		if c, err := mem.keyboard.ReadByte(); err == nil {
			mem.ram[KBSR] = kbsrReady
			mem.ram[KBDR] = Word(c)
			return
		}
	}
	mem.ram[KBSR] = 0
}
