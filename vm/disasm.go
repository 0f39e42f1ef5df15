package vm

import (
	"fmt"
	"strings"
)

// Disassemble renders instruction, fetched from addr, in assembler syntax.
// PC-relative operands are shown as absolute target addresses.
func Disassemble(addr, instruction Word) string {
	var (
		op   = OpcodeOf(instruction)
		next = addr + 1
		dr   = fieldDR(instruction)
		sr1  = fieldSR1(instruction)
	)
	switch op {
	case OpBR:
		nzp := fieldDR(instruction)
		if nzp == 0 {
			return "NOP"
		}
		var b strings.Builder
		b.WriteString("BR")
		if nzp&0b100 != 0 {
			b.WriteByte('n')
		}
		if nzp&0b010 != 0 {
			b.WriteByte('z')
		}
		if nzp&0b001 != 0 {
			b.WriteByte('p')
		}
		return fmt.Sprintf("%s x%04X", b.String(), next+fieldOff9(instruction))
	case OpADD, OpAND, OpMUL, OpDIV:
		if fieldImm(instruction) {
			return fmt.Sprintf("%s R%d, R%d, #%d", op, dr, sr1, int16(fieldImm5(instruction)))
		}
		return fmt.Sprintf("%s R%d, R%d, R%d", op, dr, sr1, fieldSR2(instruction))
	case OpLD, OpST, OpLDI, OpSTI, OpLEA:
		return fmt.Sprintf("%s R%d, x%04X", op, dr, next+fieldOff9(instruction))
	case OpLDR, OpSTR:
		return fmt.Sprintf("%s R%d, R%d, #%d", op, dr, sr1, int16(fieldOff6(instruction)))
	case OpJSR:
		if (instruction>>11)&0b1 == 1 {
			return fmt.Sprintf("JSR x%04X", next+fieldOff11(instruction))
		}
		return fmt.Sprintf("JSRR R%d", sr1)
	case OpNOT:
		return fmt.Sprintf("NOT R%d, R%d", dr, sr1)
	case OpJMP:
		if sr1 == R7 {
			return "RET"
		}
		return fmt.Sprintf("JMP R%d", sr1)
	}
	return TrapCode(instruction & 0xFF).String()
}
