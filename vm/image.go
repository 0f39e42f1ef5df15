package vm

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"os"
)

// ReadImage decodes a program image: a big-endian origin word followed by
// big-endian words to be placed contiguously from that origin. Reading
// stops at EOF or when the address space is full; a trailing odd byte is
// ignored.
func ReadImage(r io.Reader) (origin Word, words []Word, err error) {
	br := bufio.NewReader(r)

	var buf [2]byte
	if _, err = io.ReadFull(br, buf[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			err = ErrImageTooShort
		}
		return
	}
	origin = Word(binary.BigEndian.Uint16(buf[:]))

	capacity := MemorySize - int(origin)
	for len(words) < capacity {
		if _, err = io.ReadFull(br, buf[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				err = nil
			}
			break
		}
		words = append(words, Word(binary.BigEndian.Uint16(buf[:])))
	}
	return
}

// LoadImage reads an image from r into memory. Nothing is written if the
// image cannot be decoded.
func (vm *VM) LoadImage(r io.Reader) (origin Word, n int, err error) {
	origin, words, err := ReadImage(r)
	if err != nil {
		return 0, 0, err
	}
	n = vm.memory.Load(origin, words)
	return origin, n, nil
}

// LoadImageFile loads the image at path. Errors are *ErrImage.
func (vm *VM) LoadImageFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return &ErrImage{Path: path, Err: err}
	}
	defer file.Close()

	origin, n, err := vm.LoadImage(file)
	if err != nil {
		return &ErrImage{Path: path, Err: err}
	}
	if vm.cpu.trace != nil {
		vm.cpu.trace.Printf("loaded %s: %d words at 0x%04x", path, n, origin)
	}
	return nil
}

// LoadProgram places words at origin, as an assembled program.
func (vm *VM) LoadProgram(origin Word, words []Word) int {
	return vm.memory.Load(origin, words)
}

