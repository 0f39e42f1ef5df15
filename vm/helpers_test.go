package vm

import (
	"bytes"
	"strings"
)

// fakeConsole reads from a fixed input and records output.
type fakeConsole struct {
	in      *strings.Reader
	out     bytes.Buffer
	flushes int
}

func newFakeConsole(input string) *fakeConsole {
	return &fakeConsole{in: strings.NewReader(input)}
}

func (fc *fakeConsole) InputReady() bool        { return fc.in.Len() > 0 }
func (fc *fakeConsole) ReadByte() (byte, error) { return fc.in.ReadByte() }
func (fc *fakeConsole) WriteByte(c byte) error  { return fc.out.WriteByte(c) }
func (fc *fakeConsole) Flush() error            { fc.flushes++; return nil }

// instruction encoders
func encRR(op Opcode, dr, sr1, sr2 Word) Word {
	return Word(op)<<12 | dr<<9 | sr1<<6 | sr2
}

func encRI(op Opcode, dr, sr1 Word, imm int) Word {
	return Word(op)<<12 | dr<<9 | sr1<<6 | 1<<5 | Word(imm)&0x1F
}

func encPC9(op Opcode, r Word, off int) Word {
	return Word(op)<<12 | r<<9 | Word(off)&0x1FF
}

func encBase6(op Opcode, r, base Word, off int) Word {
	return Word(op)<<12 | r<<9 | base<<6 | Word(off)&0x3F
}

func encBR(nzp Word, off int) Word {
	return nzp<<9 | Word(off)&0x1FF
}

func encTrap(t TrapCode) Word {
	return Word(OpTRAP)<<12 | Word(t)
}

// newTestVM loads program at UserSpaceStart.
func newTestVM(input string, opts Options, program ...Word) (*VM, *fakeConsole) {
	fc := newFakeConsole(input)
	m := New(fc, opts)
	m.LoadProgram(UserSpaceStart, program)
	return m, fc
}
