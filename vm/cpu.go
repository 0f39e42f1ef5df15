package vm

import (
	"log"
)

// Word is the machine's 16-bit unit of data, address and instruction.
type Word uint16

// Flag is a condition code held in COND.
type Flag Word

// general purpose registers
const (
	R0 = 0b000
	R1 = 0b001
	R2 = 0b010
	R3 = 0b011
	R4 = 0b100
	R5 = 0b101
	R6 = 0b110
	R7 = 0b111
)

// flags
const (
	FlagPos Flag = 0b001
	FlagZro Flag = 0b010
	FlagNeg Flag = 0b100
)

func (f Flag) String() string {
	switch f {
	case FlagPos:
		return "P"
	case FlagZro:
		return "Z"
	case FlagNeg:
		return "N"
	case 0:
		return "-"
	}
	return "?"
}

// FlagsFor returns the condition code describing v.
func FlagsFor(v Word) Flag {
	switch {
	case v == 0:
		return FlagZro
	case v>>15 != 0:
		return FlagNeg
	default:
		return FlagPos
	}
}

// Registers is the register file: R0-R7, the program counter and COND.
type Registers struct {
	R    [8]Word
	PC   Word
	Cond Flag
}

// UpdateFlags sets COND from the current value of R[r].
func (reg *Registers) UpdateFlags(r Word) {
	reg.Cond = FlagsFor(reg.R[r&0b111])
}

// SignExtend widens the low bitCount bits of x to 16 bits, replicating the
// field's sign bit.
func SignExtend(x Word, bitCount uint) Word {
	if bitCount >= 16 {
		return x
	}
	if (x>>(bitCount-1))&0b1 != 0 {
		x |= 0xFFFF << bitCount
	}
	return x
}

// Opcode is the top nibble of an instruction.
type Opcode Word

// opcodes
const (
	OpBR Opcode = iota
	OpADD
	OpLD
	OpST
	OpJSR
	OpAND
	OpLDR
	OpSTR
	OpMUL
	OpNOT
	OpLDI
	OpSTI
	OpJMP
	OpDIV
	OpLEA
	OpTRAP
)

var opcodeNames = [16]string{
	"BR", "ADD", "LD", "ST", "JSR", "AND", "LDR", "STR",
	"MUL", "NOT", "LDI", "STI", "JMP", "DIV", "LEA", "TRAP",
}

func (op Opcode) String() string { return opcodeNames[op&0xF] }

// OpcodeOf returns the opcode of instruction.
func OpcodeOf(instruction Word) Opcode { return Opcode(instruction >> 12) }

type handler func(c *cpu, instruction Word) error

// dispatch is total over the 4-bit opcode space.
var dispatch = [16]handler{
	OpBR:   (*cpu).opBR,
	OpADD:  (*cpu).opADD,
	OpLD:   (*cpu).opLD,
	OpST:   (*cpu).opST,
	OpJSR:  (*cpu).opJSR,
	OpAND:  (*cpu).opAND,
	OpLDR:  (*cpu).opLDR,
	OpSTR:  (*cpu).opSTR,
	OpMUL:  (*cpu).opMUL,
	OpNOT:  (*cpu).opNOT,
	OpLDI:  (*cpu).opLDI,
	OpSTI:  (*cpu).opSTI,
	OpJMP:  (*cpu).opJMP,
	OpDIV:  (*cpu).opDIV,
	OpLEA:  (*cpu).opLEA,
	OpTRAP: (*cpu).opTRAP,
}

type cpu struct {
	running   bool
	memory    *Memory
	registers Registers
	console   Console

	canonicalFlags bool
	prompt         string
	trace          *log.Logger
}

func newCpu(memory *Memory, console Console, opts Options) *cpu {
	c := &cpu{
		memory:         memory,
		console:        console,
		canonicalFlags: opts.CanonicalFlags,
		prompt:         opts.Prompt,
		trace:          opts.Trace,
	}
	c.reset()
	return c
}

func (c *cpu) reset() {
	c.running = false
	c.registers = Registers{PC: UserSpaceStart}
}

// step fetches, decodes and executes one instruction. The program counter
// is incremented before the instruction runs.
func (c *cpu) step() error {
	pc := c.registers.PC
	instruction := c.memory.Read(pc)
	c.registers.PC++

	if c.trace != nil {
		c.trace.Printf("0x%04x %s", pc, Disassemble(pc, instruction))
	}

	return dispatch[OpcodeOf(instruction)](c, instruction)
}

func (c *cpu) stop() {
	c.running = false
}

// result flags: updated always for flag-defining instructions, and for the
// extension/trap writes only in canonical mode.
func (c *cpu) setFlags(r Word, always bool) {
	if always || c.canonicalFlags {
		c.registers.UpdateFlags(r)
	}
}
