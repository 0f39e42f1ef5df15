// Package console provides host consoles for the vm package: the
// process terminal, and an in-memory queue used by the debugger.
package console

import (
	"bufio"
	"log"
	"os"

	"github.com/pkg/term/termios"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// Terminal is a vm.Console on a pair of files, normally stdin and stdout.
type Terminal struct {
	in     *os.File
	reader *bufio.Reader
	writer *bufio.Writer

	originalTerminalConfig unix.Termios
	raw                    bool
}

func NewTerminal(in, out *os.File) *Terminal {
	return &Terminal{
		in:     in,
		reader: bufio.NewReader(in),
		writer: bufio.NewWriter(out),
	}
}

// EnableRawMode turns off canonical input and echo so the machine sees
// each key as it is typed. It does nothing when the input is not a
// terminal. Every successful call must be paired with Restore.
func (t *Terminal) EnableRawMode() error {
	fd := t.in.Fd()
	if !term.IsTerminal(int(fd)) {
		return nil
	}
	log.Printf("enabling raw mode...")
	if err := termios.Tcgetattr(fd, &t.originalTerminalConfig); err != nil {
		return err
	}
	newTermios := t.originalTerminalConfig
	newTermios.Lflag &^= unix.ICANON | unix.ECHO
	if err := termios.Tcsetattr(fd, termios.TCSANOW, &newTermios); err != nil {
		return err
	}
	t.raw = true
	return nil
}

// Restore puts the terminal back the way EnableRawMode found it. It is
// safe to call more than once.
func (t *Terminal) Restore() error {
	if !t.raw {
		return nil
	}
	log.Printf("disabling raw mode...")
	t.raw = false
	return termios.Tcsetattr(t.in.Fd(), termios.TCSANOW, &t.originalTerminalConfig)
}

// InputReady polls the input without blocking.
func (t *Terminal) InputReady() bool {
	if t.reader.Buffered() > 0 {
		return true
	}
	fds := []unix.PollFd{{Fd: int32(t.in.Fd()), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, 0)
	return err == nil && n > 0 && fds[0].Revents&(unix.POLLIN|unix.POLLHUP) != 0
}

func (t *Terminal) ReadByte() (byte, error) {
	return t.reader.ReadByte()
}

func (t *Terminal) WriteByte(c byte) error {
	return t.writer.WriteByte(c)
}

func (t *Terminal) Flush() error {
	return t.writer.Flush()
}
