package vm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// putString stores s at addr, one character per word, zero terminated.
func putString(mem *Memory, addr Word, s string) {
	for i := 0; i < len(s); i++ {
		mem.Write(addr+Word(i), Word(s[i]))
	}
	mem.Write(addr+Word(len(s)), 0)
}

func TestTrapOUT(t *testing.T) {
	m, fc := newTestVM("", Options{}, encTrap(TrapOUT))
	m.Registers().R[R0] = 0x1241 // only the low byte is written
	require.NoError(t, m.Step())
	assert.Equal(t, "A", fc.out.String())
	assert.Equal(t, 1, fc.flushes)
}

func TestTrapPUTS(t *testing.T) {
	m, fc := newTestVM("", Options{}, encTrap(TrapPUTS))
	putString(m.Memory(), 0x4000, "hello, world")
	m.Registers().R[R0] = 0x4000
	m.Registers().Cond = FlagZro

	require.NoError(t, m.Step())
	assert.Equal(t, "hello, world", fc.out.String())
	assert.Equal(t, 1, fc.flushes)
	assert.Equal(t, FlagZro, m.Registers().Cond)
	assert.Equal(t, Word(0x4000), m.Registers().R[R0])
}

func TestTrapPUTSEmpty(t *testing.T) {
	m, fc := newTestVM("", Options{}, encTrap(TrapPUTS))
	m.Registers().R[R0] = 0x5000
	require.NoError(t, m.Step())
	assert.Equal(t, "", fc.out.String())
}

func TestTrapPUTSP(t *testing.T) {
	m, fc := newTestVM("", Options{}, encTrap(TrapPUTSP))
	mem := m.Memory()
	// "Hello" packed low byte first; the odd tail has a zero high byte.
	mem.Write(0x4000, 'e'<<8|'H')
	mem.Write(0x4001, 'l'<<8|'l')
	mem.Write(0x4002, 'o')
	mem.Write(0x4003, 0)
	m.Registers().R[R0] = 0x4000

	require.NoError(t, m.Step())
	assert.Equal(t, "Hello", fc.out.String())
	assert.Equal(t, 1, fc.flushes)
}

func TestTrapGETC(t *testing.T) {
	assert := assert.New(t)

	m, fc := newTestVM("xy", Options{}, encTrap(TrapGETC), encTrap(TrapGETC))
	m.Registers().Cond = FlagNeg

	require.NoError(t, m.Step())
	assert.Equal(Word('x'), m.Registers().R[R0])
	assert.Equal(FlagNeg, m.Registers().Cond)
	assert.Equal("", fc.out.String(), "GETC does not echo")

	m, _ = newTestVM("y", Options{CanonicalFlags: true}, encTrap(TrapGETC))
	require.NoError(t, m.Step())
	assert.Equal(Word('y'), m.Registers().R[R0])
	assert.Equal(FlagPos, m.Registers().Cond)
}

func TestTrapIN(t *testing.T) {
	assert := assert.New(t)

	m, fc := newTestVM("q", Options{Prompt: "> "}, encTrap(TrapIN))
	require.NoError(t, m.Step())
	assert.Equal("> q", fc.out.String())
	assert.Equal(Word('q'), m.Registers().R[R0])
	assert.Equal(Flag(0), m.Registers().Cond)
	assert.Equal(2, fc.flushes)
}

func TestTrapINDefaultPrompt(t *testing.T) {
	m, fc := newTestVM("!", Options{}, encTrap(TrapIN))
	require.NoError(t, m.Step())
	assert.Equal(t, DefaultPrompt+"!", fc.out.String())
}

func TestTrapInputExhausted(t *testing.T) {
	for _, trap := range []TrapCode{TrapGETC, TrapIN} {
		m, _ := newTestVM("", Options{}, encTrap(trap))
		m.Registers().R[R0] = 0x1234

		err := m.Run(context.Background())
		assert.ErrorIs(t, err, ErrInputExhausted, trap.String())
		assert.False(t, m.Running())
		assert.Equal(t, Word(0x1234), m.Registers().R[R0])
	}
}

type brokenConsole struct{ fakeConsole }

var errBroken = errors.New("broken")

func (bc *brokenConsole) WriteByte(byte) error { return errBroken }

func TestTrapConsoleError(t *testing.T) {
	bc := &brokenConsole{}
	bc.in = strings.NewReader("")
	m := New(bc, Options{})
	m.LoadProgram(UserSpaceStart, []Word{encTrap(TrapOUT)})

	err := m.Run(context.Background())
	assert.ErrorIs(t, err, ErrConsole)
	assert.ErrorIs(t, err, errBroken)
}

func TestTrapHALT(t *testing.T) {
	m, fc := newTestVM("", Options{}, encTrap(TrapHALT), encTrap(TrapOUT))
	require.NoError(t, m.Run(context.Background()))
	assert.False(t, m.Running())
	assert.Equal(t, "", fc.out.String())
	assert.Equal(t, 1, fc.flushes)
	assert.Equal(t, Word(UserSpaceStart+1), m.Registers().PC)
}

func TestTrapUnknown(t *testing.T) {
	m, fc := newTestVM("", Options{}, Word(OpTRAP)<<12|0x26, Word(OpTRAP)<<12|0x00)
	before := *m.Registers()

	require.NoError(t, m.Step())
	require.NoError(t, m.Step())
	after := *m.Registers()
	assert.Equal(t, before.R, after.R)
	assert.Equal(t, before.Cond, after.Cond)
	assert.Equal(t, Word(UserSpaceStart+2), after.PC)
	assert.Equal(t, "", fc.out.String())
	assert.Equal(t, 0, fc.flushes)
}

func TestTrapCodeString(t *testing.T) {
	assert.Equal(t, "HALT", TrapHALT.String())
	assert.Equal(t, "TRAP x26", TrapCode(0x26).String())
}
