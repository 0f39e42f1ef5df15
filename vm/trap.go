package vm

import (
	"errors"
	"fmt"
	"io"
)

// TrapCode selects a service routine in the low byte of a TRAP instruction.
type TrapCode Word

const (
	TrapGETC  TrapCode = 0x20 /* get character from keyboard, not echoed onto the terminal */
	TrapOUT   TrapCode = 0x21 /* output a character */
	TrapPUTS  TrapCode = 0x22 /* output a word string */
	TrapIN    TrapCode = 0x23 /* get character from keyboard, echoed onto the terminal */
	TrapPUTSP TrapCode = 0x24 /* output a byte string */
	TrapHALT  TrapCode = 0x25 /* halt the program */
)

var trapNames = map[TrapCode]string{
	TrapGETC:  "GETC",
	TrapOUT:   "OUT",
	TrapPUTS:  "PUTS",
	TrapIN:    "IN",
	TrapPUTSP: "PUTSP",
	TrapHALT:  "HALT",
}

func (t TrapCode) String() string {
	if name, ok := trapNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TRAP x%02X", Word(t))
}

var traps = map[TrapCode]handler{
	TrapGETC:  (*cpu).trapGETC,
	TrapOUT:   (*cpu).trapOUT,
	TrapPUTS:  (*cpu).trapPUTS,
	TrapIN:    (*cpu).trapIN,
	TrapPUTSP: (*cpu).trapPUTSP,
	TrapHALT:  (*cpu).trapHALT,
}

// opTRAP runs the service routine named by the low byte. Unknown codes
// are ignored.
func (c *cpu) opTRAP(instruction Word) error {
	t, ok := traps[TrapCode(instruction&0xFF)]
	if !ok {
		return nil
	}
	return t(c, instruction)
}

func (c *cpu) trapGETC(Word) error {
	b, err := c.readByte()
	if err != nil {
		return err
	}
	c.registers.R[R0] = Word(b)
	c.setFlags(R0, false)
	return nil
}

func (c *cpu) trapOUT(Word) error {
	if err := c.console.WriteByte(byte(c.registers.R[R0])); err != nil {
		return consoleError(err)
	}
	return c.flush()
}

// trapPUTS writes one character per word starting at R0 until a zero word.
func (c *cpu) trapPUTS(Word) error {
	for addr := c.registers.R[R0]; ; addr++ {
		w := c.memory.Peek(addr)
		if w == 0 {
			break
		}
		if err := c.console.WriteByte(byte(w)); err != nil {
			return consoleError(err)
		}
	}
	return c.flush()
}

func (c *cpu) trapIN(Word) error {
	for i := 0; i < len(c.prompt); i++ {
		if err := c.console.WriteByte(c.prompt[i]); err != nil {
			return consoleError(err)
		}
	}
	if err := c.flush(); err != nil {
		return err
	}

	b, err := c.readByte()
	if err != nil {
		return err
	}
	if err := c.console.WriteByte(b); err != nil {
		return consoleError(err)
	}
	c.registers.R[R0] = Word(b)
	c.setFlags(R0, false)
	return c.flush()
}

// trapPUTSP writes two characters per word, low byte first, until a zero
// word. A zero high byte is skipped.
func (c *cpu) trapPUTSP(Word) error {
	for addr := c.registers.R[R0]; ; addr++ {
		w := c.memory.Peek(addr)
		if w == 0 {
			break
		}
		if err := c.console.WriteByte(byte(w)); err != nil {
			return consoleError(err)
		}
		if hi := byte(w >> 8); hi != 0 {
			if err := c.console.WriteByte(hi); err != nil {
				return consoleError(err)
			}
		}
	}
	return c.flush()
}

func (c *cpu) trapHALT(Word) error {
	if c.trace != nil {
		c.trace.Printf("0x%04x halted", c.registers.PC-1)
	}
	c.stop()
	return c.flush()
}

func (c *cpu) readByte() (byte, error) {
	b, err := c.console.ReadByte()
	if errors.Is(err, io.EOF) {
		c.stop()
		return 0, ErrInputExhausted
	}
	if err != nil {
		return 0, consoleError(err)
	}
	return b, nil
}

func (c *cpu) flush() error {
	if err := c.console.Flush(); err != nil {
		return consoleError(err)
	}
	return nil
}

func consoleError(err error) error {
	return fmt.Errorf("%w: %w", ErrConsole, err)
}
