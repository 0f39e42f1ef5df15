// Package asm assembles LC-3 source, including the MUL and DIV extension
// opcodes, into program images the vm package can load.
package asm

import (
	"bufio"
	"encoding/binary"
	"io"
	"regexp"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/aryanA101a/rvm/vm"
)

// Program is an assembled program: a single contiguous block of words.
type Program struct {
	Origin  vm.Word
	Words   []vm.Word
	Symbols map[string]vm.Word
}

// Image encodes the program in the binary image format: the origin
// followed by each word, all big-endian.
func (p *Program) Image() []byte {
	image := make([]byte, 2*(len(p.Words)+1))
	binary.BigEndian.PutUint16(image, uint16(p.Origin))
	for i, w := range p.Words {
		binary.BigEndian.PutUint16(image[2*(i+1):], uint16(w))
	}
	return image
}

// statement is one parsed source line.
type statement struct {
	line     int
	label    string
	op       string // upper-cased mnemonic or directive, empty for label-only lines
	operands []string
	addr     vm.Word
	size     int
}

// assembler holds the state of a single assembly run.
type assembler struct {
	origin  vm.Word
	hasOrig bool
	symbols map[string]vm.Word
	stmts   []*statement
}

// Assemble reads LC-3 source from r and returns the assembled program.
// Errors are *ErrLine.
func Assemble(r io.Reader) (*Program, error) {
	asm := &assembler{symbols: map[string]vm.Word{}}
	if err := asm.parse(r); err != nil {
		return nil, err
	}
	if err := asm.layout(); err != nil {
		return nil, err
	}
	words, err := asm.encode()
	if err != nil {
		return nil, err
	}
	return &Program{
		Origin:  asm.origin,
		Words:   words,
		Symbols: asm.symbols,
	}, nil
}

var (
	reLabel  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	reBranch = regexp.MustCompile(`^BR(N?)(Z?)(P?)$`)
)

var directives = map[string]bool{
	".ORIG":    true,
	".FILL":    true,
	".BLKW":    true,
	".STRINGZ": true,
	".END":     true,
}

func isOp(tok string) bool {
	up := strings.ToUpper(tok)
	if directives[up] {
		return true
	}
	if _, ok := mnemonics[up]; ok {
		return true
	}
	return reBranch.MatchString(up)
}

// parse tokenizes the source into statements, stopping at .END.
func (asm *assembler) parse(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for lineno := 1; scanner.Scan(); lineno++ {
		tokens, err := tokenize(scanner.Text())
		if err != nil {
			return &ErrLine{Line: lineno, Err: err}
		}
		if len(tokens) == 0 {
			continue
		}

		stmt := &statement{line: lineno}
		if !isOp(tokens[0]) {
			stmt.label = strings.TrimSuffix(tokens[0], ":")
			if !isLabel(stmt.label) {
				return &ErrLine{Line: lineno, Err: ErrLabelInvalid}
			}
			tokens = tokens[1:]
		}
		if len(tokens) > 0 {
			stmt.op = strings.ToUpper(tokens[0])
			if !isOp(stmt.op) {
				return &ErrLine{Line: lineno, Err: ErrOpcodeInvalid}
			}
			stmt.operands = tokens[1:]
		}
		if stmt.op == ".END" {
			break
		}
		asm.stmts = append(asm.stmts, stmt)
	}
	return scanner.Err()
}

// layout assigns an address to every statement and defines labels.
func (asm *assembler) layout() error {
	var pc int
	for _, stmt := range asm.stmts {
		fail := func(err error) error { return &ErrLine{Line: stmt.line, Err: err} }

		if stmt.op == ".ORIG" {
			if asm.hasOrig {
				return fail(ErrOrigMultiple)
			}
			if len(stmt.operands) != 1 {
				return fail(ErrOperands)
			}
			v, err := asm.value(stmt.operands[0])
			if err != nil {
				return fail(err)
			}
			if v < 0 || v > 0xFFFF {
				return fail(ErrRange)
			}
			asm.origin, asm.hasOrig = vm.Word(v), true
			pc = v
			continue
		}
		if !asm.hasOrig {
			return fail(ErrOrigMissing)
		}

		stmt.addr = vm.Word(pc)
		if stmt.label != "" {
			if _, dup := asm.symbols[stmt.label]; dup {
				return fail(ErrLabelDuplicate)
			}
			asm.symbols[stmt.label] = stmt.addr
		}

		switch stmt.op {
		case "":
		case ".FILL":
			stmt.size = 1
		case ".BLKW":
			if len(stmt.operands) != 1 {
				return fail(ErrOperands)
			}
			n, err := asm.value(stmt.operands[0])
			if err != nil {
				return fail(err)
			}
			if n < 0 {
				return fail(ErrRange)
			}
			stmt.size = n
		case ".STRINGZ":
			if len(stmt.operands) != 1 {
				return fail(ErrOperands)
			}
			s, err := unquote(stmt.operands[0])
			if err != nil {
				return fail(err)
			}
			stmt.size = len(s) + 1
		default:
			stmt.size = 1
		}

		pc += stmt.size
		if pc > vm.MemorySize {
			return fail(ErrAddressOverflow)
		}
	}
	if !asm.hasOrig {
		return &ErrLine{Line: 1, Err: ErrOrigMissing}
	}
	return nil
}

// encode produces the program words.
func (asm *assembler) encode() ([]vm.Word, error) {
	var words []vm.Word
	for _, stmt := range asm.stmts {
		fail := func(err error) error { return &ErrLine{Line: stmt.line, Err: err} }

		switch stmt.op {
		case "", ".ORIG":
		case ".FILL":
			if len(stmt.operands) != 1 {
				return nil, fail(ErrOperands)
			}
			v, err := asm.value(stmt.operands[0])
			if err != nil {
				return nil, fail(err)
			}
			if v < -0x8000 || v > 0xFFFF {
				return nil, fail(ErrRange)
			}
			words = append(words, vm.Word(v))
		case ".BLKW":
			words = append(words, make([]vm.Word, stmt.size)...)
		case ".STRINGZ":
			s, _ := unquote(stmt.operands[0])
			for i := 0; i < len(s); i++ {
				words = append(words, vm.Word(s[i]))
			}
			words = append(words, 0)
		default:
			w, err := asm.instruction(stmt)
			if err != nil {
				return nil, fail(err)
			}
			words = append(words, w)
		}
	}
	return words, nil
}

// tokenize splits a line into tokens on whitespace and commas. Comments
// start at ';'. Quoted strings, character literals and parenthesized
// expressions are kept whole.
func tokenize(line string) (tokens []string, err error) {
	var (
		cur   strings.Builder
		quote byte
		depth int
	)
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quote != 0:
			cur.WriteByte(c)
			if c == '\\' && i+1 < len(line) {
				i++
				cur.WriteByte(line[i])
			} else if c == quote {
				quote = 0
			}
		case depth > 0:
			cur.WriteByte(c)
			switch c {
			case '(':
				depth++
			case ')':
				depth--
			}
		case c == '"' || c == '\'':
			quote = c
			cur.WriteByte(c)
		case c == '(':
			depth++
			cur.WriteByte(c)
		case c == ';':
			flush()
			return
		case c == ' ' || c == '\t' || c == ',' || c == '\r':
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	if quote != 0 {
		return nil, ErrStringInvalid
	}
	if depth != 0 {
		return nil, ErrSyntax
	}
	flush()
	return
}

func unquote(tok string) (string, error) {
	if len(tok) < 2 || tok[0] != '"' {
		return "", ErrStringInvalid
	}
	s, err := strconv.Unquote(tok)
	if err != nil {
		return "", ErrStringInvalid
	}
	return s, nil
}

// isLabel reports whether tok can name a label: it must not also read as
// a register or a numeric literal.
func isLabel(tok string) bool {
	if !reLabel.MatchString(tok) || isRegister(tok) {
		return false
	}
	_, number := literal(tok)
	return !number
}

func isRegister(tok string) bool {
	_, err := register(tok)
	return err == nil
}

func register(tok string) (vm.Word, error) {
	if len(tok) == 2 && (tok[0] == 'R' || tok[0] == 'r') && tok[1] >= '0' && tok[1] <= '7' {
		return vm.Word(tok[1] - '0'), nil
	}
	return 0, ErrRegister
}

// literal parses a numeric or character literal: #10, #-3, x3000, 0x3000,
// b101, 42 or 'c'.
func literal(tok string) (v int, ok bool) {
	var (
		digits = tok
		base   = 10
	)
	switch {
	case tok == "":
		return 0, false
	case tok[0] == '\'':
		s, err := strconv.Unquote(tok)
		if err != nil || len(s) != 1 {
			return 0, false
		}
		return int(s[0]), true
	case tok[0] == '#':
		digits = tok[1:]
	case len(tok) > 2 && (tok[:2] == "0x" || tok[:2] == "0X"):
		digits, base = tok[2:], 16
	case tok[0] == 'x' || tok[0] == 'X':
		digits, base = tok[1:], 16
	case tok[0] == 'b' || tok[0] == 'B':
		digits, base = tok[1:], 2
	}
	n, err := strconv.ParseInt(digits, base, 32)
	if err != nil {
		return 0, false
	}
	return int(n), true
}

// value resolves a literal, a defined label, or a parenthesized starlark
// expression over the labels defined so far.
func (asm *assembler) value(tok string) (int, error) {
	if v, ok := literal(tok); ok {
		return v, nil
	}
	if strings.HasPrefix(tok, "(") {
		return asm.eval(tok)
	}
	if addr, ok := asm.symbols[tok]; ok {
		return int(addr), nil
	}
	if reLabel.MatchString(tok) {
		return 0, ErrLabelMissing(tok)
	}
	return 0, ErrSyntax
}

// eval does assembly-time (...) evaluations.
func (asm *assembler) eval(expr string) (int, error) {
	thread := starlark.Thread{Name: "asm"}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for label, addr := range asm.symbols {
		pred[label] = starlark.MakeInt(int(addr))
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return 0, ErrExpression(expr)
	}
	st_int, ok := dict["rc"].(starlark.Int)
	if !ok {
		return 0, ErrExpression(expr)
	}
	v, ok := st_int.Int64()
	if !ok {
		return 0, ErrExpression(expr)
	}
	return int(v), nil
}
