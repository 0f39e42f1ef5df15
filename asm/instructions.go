package asm

import (
	"github.com/aryanA101a/rvm/vm"
)

// operand shapes
type form int

const (
	formArith   form = iota // DR, SR1, SR2|imm5
	formNot                 // DR, SR
	formPC9                 // R, label|offset9
	formBase6               // R, BaseR, offset6
	formBase                // BaseR
	formPC11                // label|offset11
	formTrap                // trapvect8
	formImplied             // no operands
)

type mnemonic struct {
	op   vm.Opcode
	form form
	base vm.Word // fixed bits for implied forms
}

var mnemonics = map[string]mnemonic{
	"ADD":   {op: vm.OpADD, form: formArith},
	"AND":   {op: vm.OpAND, form: formArith},
	"MUL":   {op: vm.OpMUL, form: formArith},
	"DIV":   {op: vm.OpDIV, form: formArith},
	"NOT":   {op: vm.OpNOT, form: formNot},
	"LD":    {op: vm.OpLD, form: formPC9},
	"LDI":   {op: vm.OpLDI, form: formPC9},
	"LEA":   {op: vm.OpLEA, form: formPC9},
	"ST":    {op: vm.OpST, form: formPC9},
	"STI":   {op: vm.OpSTI, form: formPC9},
	"LDR":   {op: vm.OpLDR, form: formBase6},
	"STR":   {op: vm.OpSTR, form: formBase6},
	"JMP":   {op: vm.OpJMP, form: formBase},
	"JSRR":  {op: vm.OpJSR, form: formBase},
	"JSR":   {op: vm.OpJSR, form: formPC11, base: 1 << 11},
	"TRAP":  {op: vm.OpTRAP, form: formTrap},
	"RET":   {op: vm.OpJMP, form: formImplied, base: vm.R7 << 6},
	"GETC":  {op: vm.OpTRAP, form: formImplied, base: vm.Word(vm.TrapGETC)},
	"OUT":   {op: vm.OpTRAP, form: formImplied, base: vm.Word(vm.TrapOUT)},
	"PUTS":  {op: vm.OpTRAP, form: formImplied, base: vm.Word(vm.TrapPUTS)},
	"IN":    {op: vm.OpTRAP, form: formImplied, base: vm.Word(vm.TrapIN)},
	"PUTSP": {op: vm.OpTRAP, form: formImplied, base: vm.Word(vm.TrapPUTSP)},
	"HALT":  {op: vm.OpTRAP, form: formImplied, base: vm.Word(vm.TrapHALT)},
}

var operandCount = map[form]int{
	formArith:   3,
	formNot:     2,
	formPC9:     2,
	formBase6:   3,
	formBase:    1,
	formPC11:    1,
	formTrap:    1,
	formImplied: 0,
}

// instruction encodes a single machine instruction.
func (asm *assembler) instruction(stmt *statement) (vm.Word, error) {
	if m := reBranch.FindStringSubmatch(stmt.op); m != nil {
		var nzp vm.Word
		if m[1] != "" {
			nzp |= 0b100
		}
		if m[2] != "" {
			nzp |= 0b010
		}
		if m[3] != "" {
			nzp |= 0b001
		}
		if nzp == 0 {
			nzp = 0b111
		}
		if len(stmt.operands) != 1 {
			return 0, ErrOperands
		}
		off, err := asm.offset(stmt, stmt.operands[0], 9)
		if err != nil {
			return 0, err
		}
		return vm.Word(vm.OpBR)<<12 | nzp<<9 | off, nil
	}

	m, ok := mnemonics[stmt.op]
	if !ok {
		return 0, ErrOpcodeInvalid
	}
	ops := stmt.operands
	if len(ops) != operandCount[m.form] {
		return 0, ErrOperands
	}
	w := vm.Word(m.op)<<12 | m.base

	switch m.form {
	case formArith:
		dr, sr1, err := registers2(ops[0], ops[1])
		if err != nil {
			return 0, err
		}
		w |= dr<<9 | sr1<<6
		if sr2, err := register(ops[2]); err == nil {
			return w | sr2, nil
		}
		imm, err := asm.signed(ops[2], 5)
		if err != nil {
			return 0, err
		}
		return w | 1<<5 | imm, nil
	case formNot:
		dr, sr, err := registers2(ops[0], ops[1])
		if err != nil {
			return 0, err
		}
		return w | dr<<9 | sr<<6 | 0x3F, nil
	case formPC9:
		r, err := register(ops[0])
		if err != nil {
			return 0, err
		}
		off, err := asm.offset(stmt, ops[1], 9)
		if err != nil {
			return 0, err
		}
		return w | r<<9 | off, nil
	case formBase6:
		r, base, err := registers2(ops[0], ops[1])
		if err != nil {
			return 0, err
		}
		off, err := asm.signed(ops[2], 6)
		if err != nil {
			return 0, err
		}
		return w | r<<9 | base<<6 | off, nil
	case formBase:
		base, err := register(ops[0])
		if err != nil {
			return 0, err
		}
		return w | base<<6, nil
	case formPC11:
		off, err := asm.offset(stmt, ops[0], 11)
		if err != nil {
			return 0, err
		}
		return w | off, nil
	case formTrap:
		v, err := asm.value(ops[0])
		if err != nil {
			return 0, err
		}
		if v < 0 || v > 0xFF {
			return 0, ErrRange
		}
		return w | vm.Word(v), nil
	}
	return w, nil
}

func registers2(a, b string) (ra, rb vm.Word, err error) {
	if ra, err = register(a); err != nil {
		return
	}
	rb, err = register(b)
	return
}

// signed resolves tok and checks that it fits a bits-wide two's-complement
// field, returning the field bits.
func (asm *assembler) signed(tok string, bits uint) (vm.Word, error) {
	v, err := asm.value(tok)
	if err != nil {
		return 0, err
	}
	return field(v, bits)
}

// offset resolves a PC-relative operand. Numeric literals are taken as the
// offset itself; labels and expressions are target addresses.
func (asm *assembler) offset(stmt *statement, tok string, bits uint) (vm.Word, error) {
	v, err := asm.value(tok)
	if err != nil {
		return 0, err
	}
	if _, isLiteral := literal(tok); !isLiteral {
		v -= int(stmt.addr) + 1
	}
	return field(v, bits)
}

func field(v int, bits uint) (vm.Word, error) {
	lo, hi := -(1 << (bits - 1)), 1<<(bits-1)-1
	if v < lo || v > hi {
		return 0, ErrRange
	}
	return vm.Word(v) & (1<<bits - 1), nil
}
