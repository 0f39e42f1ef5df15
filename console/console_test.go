package console

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryanA101a/rvm/vm"
)

var (
	_ vm.Console = (*Terminal)(nil)
	_ vm.Console = (*Queue)(nil)
)

func TestQueue(t *testing.T) {
	assert := assert.New(t)

	var out bytes.Buffer
	q := NewQueue(&out, 8)

	assert.False(q.InputReady())
	q.Feed([]byte("hi"))
	assert.True(q.InputReady())

	b, err := q.ReadByte()
	assert.NoError(err)
	assert.Equal(byte('h'), b)

	q.Close()
	b, err = q.ReadByte()
	assert.NoError(err)
	assert.Equal(byte('i'), b)

	_, err = q.ReadByte()
	assert.ErrorIs(err, io.EOF)

	// Feeding a closed queue does not block.
	q.Feed(bytes.Repeat([]byte{'x'}, 32))
	q.Close()

	assert.NoError(q.WriteByte('o'))
	assert.NoError(q.WriteByte('k'))
	assert.Equal("", out.String())
	assert.NoError(q.Flush())
	assert.Equal("ok", out.String())
}

func TestQueueOffer(t *testing.T) {
	assert := assert.New(t)

	q := NewQueue(io.Discard, 4)
	assert.Equal(3, q.Offer([]byte("abc")))
	// Only one slot is left; the rest is refused rather than waited for.
	assert.Equal(1, q.Offer([]byte("defg")))
	assert.Equal(0, q.Offer([]byte("h")))

	var got []byte
	for q.InputReady() {
		b, err := q.ReadByte()
		assert.NoError(err)
		got = append(got, b)
	}
	assert.Equal([]byte("abcd"), got)

	q.Close()
	assert.Equal(0, q.Offer([]byte("late")))
}

func TestQueueBlockingRead(t *testing.T) {
	q := NewQueue(io.Discard, 1)

	done := make(chan byte)
	go func() {
		b, _ := q.ReadByte()
		done <- b
	}()
	q.Feed([]byte{'z'})
	assert.Equal(t, byte('z'), <-done)
}

func TestTerminalPipe(t *testing.T) {
	assert := assert.New(t)

	inR, inW, err := os.Pipe()
	require.NoError(t, err)
	defer inR.Close()
	defer inW.Close()
	outR, outW, err := os.Pipe()
	require.NoError(t, err)
	defer outR.Close()
	defer outW.Close()

	term := NewTerminal(inR, outW)

	// A pipe is not a terminal, so raw mode is a no-op.
	assert.NoError(term.EnableRawMode())
	defer term.Restore()

	assert.False(term.InputReady())

	_, err = inW.Write([]byte("ab"))
	require.NoError(t, err)
	assert.True(term.InputReady())

	b, err := term.ReadByte()
	assert.NoError(err)
	assert.Equal(byte('a'), b)
	// 'b' is now buffered in the reader.
	assert.True(term.InputReady())
	b, err = term.ReadByte()
	assert.NoError(err)
	assert.Equal(byte('b'), b)
	assert.False(term.InputReady())

	assert.NoError(term.WriteByte('Q'))
	assert.NoError(term.Flush())
	buf := make([]byte, 1)
	_, err = io.ReadFull(outR, buf)
	assert.NoError(err)
	assert.Equal([]byte("Q"), buf)

	assert.NoError(term.Restore())
}
