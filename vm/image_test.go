package vm

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadImage(t *testing.T) {
	table := []struct {
		name   string
		image  []byte
		origin Word
		words  []Word
		err    error
	}{
		{"empty", nil, 0, nil, ErrImageTooShort},
		{"one_byte", []byte{0x30}, 0, nil, ErrImageTooShort},
		{"origin_only", []byte{0x30, 0x00}, 0x3000, nil, nil},
		{"halt", []byte{0x30, 0x00, 0xF0, 0x25}, 0x3000, []Word{0xF025}, nil},
		{"odd_tail", []byte{0x40, 0x00, 0x12, 0x34, 0x56}, 0x4000, []Word{0x1234}, nil},
		{"top", []byte{0xFF, 0xFF, 0x00, 0x01, 0x00, 0x02}, 0xFFFF, []Word{0x0001}, nil},
	}

	for _, entry := range table {
		t.Run(entry.name, func(t *testing.T) {
			origin, words, err := ReadImage(bytes.NewReader(entry.image))
			if entry.err != nil {
				assert.ErrorIs(t, err, entry.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, entry.origin, origin)
			assert.Equal(t, entry.words, words)
		})
	}
}

type failingReader struct{ n int }

var errRead = errors.New("read failed")

func (fr *failingReader) Read(p []byte) (int, error) {
	if fr.n == 0 {
		return 0, errRead
	}
	n := copy(p, bytes.Repeat([]byte{0x30}, min(fr.n, len(p))))
	fr.n -= n
	return n, nil
}

func TestLoadImageAllOrNothing(t *testing.T) {
	m := New(nil, Options{})
	_, _, err := m.LoadImage(&failingReader{n: 6})
	assert.ErrorIs(t, err, errRead)
	assert.Equal(t, Word(0), m.Memory().Peek(0x3030))
	assert.Equal(t, Word(0), m.Memory().Peek(0x3031))
}

func TestLoadImage(t *testing.T) {
	assert := assert.New(t)

	m := New(nil, Options{})
	origin, n, err := m.LoadImage(bytes.NewReader([]byte{0x30, 0x00, 0x12, 0x34, 0xAB, 0xCD}))
	assert.NoError(err)
	assert.Equal(Word(0x3000), origin)
	assert.Equal(2, n)
	assert.Equal(Word(0x1234), m.Memory().Peek(0x3000))
	assert.Equal(Word(0xABCD), m.Memory().Peek(0x3001))
}

func TestLoadImageFile(t *testing.T) {
	assert := assert.New(t)

	dir := t.TempDir()
	first := filepath.Join(dir, "first.obj")
	second := filepath.Join(dir, "second.obj")
	require.NoError(t, os.WriteFile(first, []byte{0x30, 0x00, 0x11, 0x11, 0x22, 0x22}, 0o644))
	require.NoError(t, os.WriteFile(second, []byte{0x30, 0x01, 0x33, 0x33}, 0o644))

	m := New(nil, Options{})
	assert.NoError(m.LoadImageFile(first))
	assert.NoError(m.LoadImageFile(second))

	// Later images overwrite earlier ones.
	assert.Equal(Word(0x1111), m.Memory().Peek(0x3000))
	assert.Equal(Word(0x3333), m.Memory().Peek(0x3001))
}

func TestLoadImageFileMissing(t *testing.T) {
	m := New(nil, Options{})
	path := filepath.Join(t.TempDir(), "missing.obj")

	err := m.LoadImageFile(path)
	var ie *ErrImage
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, path, ie.Path)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadImageFileShort(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.obj")
	require.NoError(t, os.WriteFile(path, []byte{0x30}, 0o644))

	err := New(nil, Options{}).LoadImageFile(path)
	assert.ErrorIs(t, err, ErrImageTooShort)
}
