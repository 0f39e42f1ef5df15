package vm

// Keyboard is the host input device behind KBSR/KBDR and the GETC/IN traps.
type Keyboard interface {
	// InputReady reports whether ReadByte would return without blocking.
	// It must never block.
	InputReady() bool
	// ReadByte returns the next input byte, blocking if none is pending.
	ReadByte() (byte, error)
}

// Display is the host console output sink.
type Display interface {
	WriteByte(c byte) error
	Flush() error
}

// Console is the full host console collaborator.
type Console interface {
	Keyboard
	Display
}
