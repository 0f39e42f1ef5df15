package console

import (
	"bufio"
	"io"
	"sync"
)

// Queue is a vm.Console whose input is fed programmatically and whose
// output goes to an io.Writer. Feed and Close may be called from any
// goroutine; the Console methods belong to the goroutine running the
// machine.
type Queue struct {
	keyBuffer chan byte
	writer    *bufio.Writer

	once   sync.Once
	closed chan struct{}
}

// NewQueue returns a Queue buffering up to size pending input bytes.
func NewQueue(w io.Writer, size int) *Queue {
	return &Queue{
		keyBuffer: make(chan byte, size),
		writer:    bufio.NewWriter(w),
		closed:    make(chan struct{}),
	}
}

// Feed queues p as console input. It blocks while the buffer is full and
// gives up once the queue is closed.
func (q *Queue) Feed(p []byte) {
	for _, b := range p {
		select {
		case q.keyBuffer <- b:
		case <-q.closed:
			return
		}
	}
}

// Offer queues as much of p as fits without blocking and returns the
// number of bytes queued.
func (q *Queue) Offer(p []byte) int {
	for i, b := range p {
		select {
		case <-q.closed:
			return i
		default:
		}
		select {
		case q.keyBuffer <- b:
		default:
			return i
		}
	}
	return len(p)
}

// Close ends the input. Bytes already queued are still delivered; after
// that ReadByte returns io.EOF.
func (q *Queue) Close() {
	q.once.Do(func() { close(q.closed) })
}

func (q *Queue) InputReady() bool {
	return len(q.keyBuffer) > 0
}

func (q *Queue) ReadByte() (byte, error) {
	select {
	case b := <-q.keyBuffer:
		return b, nil
	default:
	}
	select {
	case b := <-q.keyBuffer:
		return b, nil
	case <-q.closed:
		return 0, io.EOF
	}
}

func (q *Queue) WriteByte(c byte) error {
	return q.writer.WriteByte(c)
}

func (q *Queue) Flush() error {
	return q.writer.Flush()
}
