package vm

import (
	"errors"

	"github.com/aryanA101a/rvm/translate"
)

var f = translate.From

var (
	ErrImageTooShort  = errors.New(f("image too short"))
	ErrInputExhausted = errors.New(f("console input exhausted"))
	ErrConsole        = errors.New(f("console"))
)

// ErrImage reports an image file that could not be loaded.
type ErrImage struct {
	Path string
	Err  error
}

func (e *ErrImage) Error() string {
	return f("failed to load image %v: %v", e.Path, e.Err)
}

func (e *ErrImage) Unwrap() error { return e.Err }
