// Package vm implements the execution engine of an LC-3 machine extended
// with MUL and DIV: memory with a memory-mapped keyboard, the register
// file, instruction dispatch and the I/O trap routines.
package vm

import (
	"context"
	"io"
	"log"
)

// Options configures a VM.
type Options struct {
	// CanonicalFlags makes AND, MUL, DIV, GETC and IN update COND from
	// their result, as the reference LC-3 does.
	CanonicalFlags bool
	// Prompt is written by the IN trap before reading. Defaults to
	// DefaultPrompt.
	Prompt string
	// Trace, if set, receives one line per executed instruction.
	Trace *log.Logger
}

// DefaultPrompt is the IN trap prompt used when Options.Prompt is empty.
var DefaultPrompt = f("Type in a character: ")

// how many instructions Run executes between context checks
const ctxCheckInterval = 1 << 10

type VM struct {
	memory *Memory
	cpu    *cpu
}

// New returns a VM with zeroed memory and registers, PC at UserSpaceStart,
// attached to console.
func New(console Console, opts Options) *VM {
	if console == nil {
		console = nullConsole{}
	}
	if opts.Prompt == "" {
		opts.Prompt = DefaultPrompt
	}
	mem := NewMemory(console)
	return &VM{
		memory: mem,
		cpu:    newCpu(mem, console, opts),
	}
}

// Memory returns the machine's memory.
func (vm *VM) Memory() *Memory { return vm.memory }

// Registers returns the live register file.
func (vm *VM) Registers() *Registers { return &vm.cpu.registers }

// Running reports whether the machine has started and not yet halted.
func (vm *VM) Running() bool { return vm.cpu.running }

// Reset zeroes memory and registers and sets PC to UserSpaceStart.
func (vm *VM) Reset() {
	vm.memory.Clear()
	vm.cpu.reset()
}

// Step executes a single instruction. It marks the machine running, so a
// HALT executed by Step is observable through Running.
func (vm *VM) Step() error {
	vm.cpu.running = true
	return vm.cpu.step()
}

// Run executes instructions until HALT, an error, or ctx is done.
func (vm *VM) Run(ctx context.Context) error {
	vm.cpu.running = true
	for n := 0; vm.cpu.running; n++ {
		if n%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if err := vm.cpu.step(); err != nil {
			vm.cpu.stop()
			return err
		}
	}
	return nil
}

// Stop clears the running flag; Run returns after the current instruction.
// It must be called from the goroutine driving the machine.
func (vm *VM) Stop() {
	vm.cpu.stop()
}

type nullConsole struct{}

func (nullConsole) InputReady() bool        { return false }
func (nullConsole) ReadByte() (byte, error) { return 0, io.EOF }
func (nullConsole) WriteByte(byte) error    { return nil }
func (nullConsole) Flush() error            { return nil }
