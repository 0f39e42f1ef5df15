package asm

import (
	"errors"

	"github.com/aryanA101a/rvm/translate"
)

var f = translate.From

var (
	ErrSyntax          = errors.New(f("syntax"))
	ErrOperands        = errors.New(f("wrong number of operands"))
	ErrRegister        = errors.New(f("register invalid"))
	ErrRange           = errors.New(f("value out of range"))
	ErrLabelDuplicate  = errors.New(f("label duplicated"))
	ErrLabelInvalid    = errors.New(f("label invalid"))
	ErrOrigMissing     = errors.New(f(".ORIG missing"))
	ErrOrigMultiple    = errors.New(f(".ORIG duplicated"))
	ErrOpcodeInvalid   = errors.New(f("opcode invalid"))
	ErrStringInvalid   = errors.New(f("string invalid"))
	ErrAddressOverflow = errors.New(f("program exceeds address space"))
)

// ErrLabelMissing names an undefined label.
type ErrLabelMissing string

func (el ErrLabelMissing) Error() string {
	return f("label %v missing", string(el))
}

// ErrExpression reports a parenthesized operand that did not evaluate to
// an integer.
type ErrExpression string

func (ee ErrExpression) Error() string {
	return f("expression %v invalid", string(ee))
}

// ErrLine locates an assembly error in the source.
type ErrLine struct {
	Line int
	Err  error
}

func (el *ErrLine) Error() string {
	return f("line %v: %v", el.Line, el.Err)
}

func (el *ErrLine) Unwrap() error { return el.Err }
