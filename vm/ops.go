package vm

// instruction fields
func fieldDR(instruction Word) Word   { return (instruction >> 9) & 0b111 }
func fieldSR1(instruction Word) Word  { return (instruction >> 6) & 0b111 }
func fieldSR2(instruction Word) Word  { return instruction & 0b111 }
func fieldImm(instruction Word) bool  { return (instruction>>5)&0b1 == 1 }
func fieldImm5(instruction Word) Word { return SignExtend(instruction&0x1F, 5) }
func fieldOff6(instruction Word) Word { return SignExtend(instruction&0x3F, 6) }
func fieldOff9(instruction Word) Word { return SignExtend(instruction&0x1FF, 9) }
func fieldOff11(instruction Word) Word {
	return SignExtend(instruction&0x7FF, 11)
}

// operand2 is the second source of ADD, AND, MUL and DIV: the
// sign-extended imm5 in immediate mode, SR2 otherwise.
func (c *cpu) operand2(instruction Word) Word {
	if fieldImm(instruction) {
		return fieldImm5(instruction)
	}
	return c.registers.R[fieldSR2(instruction)]
}

func (c *cpu) opBR(instruction Word) error {
	nzp := Flag(fieldDR(instruction))
	if nzp&c.registers.Cond != 0 {
		c.registers.PC += fieldOff9(instruction)
	}
	return nil
}

func (c *cpu) opADD(instruction Word) error {
	dr := fieldDR(instruction)
	c.registers.R[dr] = c.registers.R[fieldSR1(instruction)] + c.operand2(instruction)
	c.setFlags(dr, true)
	return nil
}

func (c *cpu) opLD(instruction Word) error {
	dr := fieldDR(instruction)
	c.registers.R[dr] = c.memory.Read(c.registers.PC + fieldOff9(instruction))
	c.setFlags(dr, true)
	return nil
}

func (c *cpu) opST(instruction Word) error {
	c.memory.Write(c.registers.PC+fieldOff9(instruction), c.registers.R[fieldDR(instruction)])
	return nil
}

// opJSR links R7 before reading the base register, so JSRR R7 falls
// through to the next instruction.
func (c *cpu) opJSR(instruction Word) error {
	c.registers.R[R7] = c.registers.PC
	if (instruction>>11)&0b1 == 1 {
		c.registers.PC += fieldOff11(instruction)
	} else {
		c.registers.PC = c.registers.R[fieldSR1(instruction)]
	}
	return nil
}

func (c *cpu) opAND(instruction Word) error {
	dr := fieldDR(instruction)
	c.registers.R[dr] = c.registers.R[fieldSR1(instruction)] & c.operand2(instruction)
	c.setFlags(dr, false)
	return nil
}

func (c *cpu) opLDR(instruction Word) error {
	dr := fieldDR(instruction)
	c.registers.R[dr] = c.memory.Read(c.registers.R[fieldSR1(instruction)] + fieldOff6(instruction))
	c.setFlags(dr, true)
	return nil
}

func (c *cpu) opSTR(instruction Word) error {
	addr := c.registers.R[fieldSR1(instruction)] + fieldOff6(instruction)
	c.memory.Write(addr, c.registers.R[fieldDR(instruction)])
	return nil
}

func (c *cpu) opMUL(instruction Word) error {
	dr := fieldDR(instruction)
	c.registers.R[dr] = c.registers.R[fieldSR1(instruction)] * c.operand2(instruction)
	c.setFlags(dr, false)
	return nil
}

func (c *cpu) opNOT(instruction Word) error {
	dr := fieldDR(instruction)
	c.registers.R[dr] = ^c.registers.R[fieldSR1(instruction)]
	c.setFlags(dr, true)
	return nil
}

func (c *cpu) opLDI(instruction Word) error {
	dr := fieldDR(instruction)
	c.registers.R[dr] = c.memory.Read(c.memory.Read(c.registers.PC + fieldOff9(instruction)))
	c.setFlags(dr, true)
	return nil
}

func (c *cpu) opSTI(instruction Word) error {
	addr := c.memory.Read(c.registers.PC + fieldOff9(instruction))
	c.memory.Write(addr, c.registers.R[fieldDR(instruction)])
	return nil
}

func (c *cpu) opJMP(instruction Word) error {
	c.registers.PC = c.registers.R[fieldSR1(instruction)]
	return nil
}

// opDIV is unsigned division. A zero divisor leaves DR and COND untouched.
func (c *cpu) opDIV(instruction Word) error {
	divisor := c.operand2(instruction)
	if divisor == 0 {
		return nil
	}
	dr := fieldDR(instruction)
	c.registers.R[dr] = c.registers.R[fieldSR1(instruction)] / divisor
	c.setFlags(dr, false)
	return nil
}

func (c *cpu) opLEA(instruction Word) error {
	dr := fieldDR(instruction)
	c.registers.R[dr] = c.registers.PC + fieldOff9(instruction)
	c.setFlags(dr, true)
	return nil
}
