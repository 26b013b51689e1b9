package buffer

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

// ErrIteratorDone is returned by Next once the buffer is closed for writing
// and drained.
var ErrIteratorDone = errors.New("iterator done")

// Buffer is an unbounded FIFO of T that is safe for concurrent use.
//
// Writers never block. Readers block while the buffer is empty and open for
// writing. CloseWrite lets readers drain what is left and then observe the end
// of the stream; CloseWithError drops pending items and fails every pending
// and future call.
type Buffer[T any] struct {
	writeNotify chan struct{}

	mu         sync.Mutex
	closeWrite bool
	closeErr   error
	buf        []T
}

// N returns an empty Buffer with room for n items before it grows.
func N[T any](n int) *Buffer[T] {
	return &Buffer[T]{
		writeNotify: make(chan struct{}, 1),
		buf:         make([]T, 0, n),
	}
}

func (b *Buffer[T]) notifyLocked() {
	select {
	case b.writeNotify <- struct{}{}:
	default:
	}
}

func (b *Buffer[T]) writableLocked() error {
	if b.closeErr != nil {
		return fmt.Errorf("buffer: write to closed buffer: %w", b.closeErr)
	}
	if b.closeWrite {
		return fmt.Errorf("buffer: write to closed buffer: %w", io.ErrClosedPipe)
	}
	return nil
}

// Add appends a single item.
func (b *Buffer[T]) Add(t T) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.writableLocked(); err != nil {
		return err
	}
	b.buf = append(b.buf, t)
	b.notifyLocked()
	return nil
}

// Write appends every item of p.
func (b *Buffer[T]) Write(p []T) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.writableLocked(); err != nil {
		return 0, err
	}
	b.buf = append(b.buf, p...)
	b.notifyLocked()
	return len(p), nil
}

// waitLocked blocks until an item is available. It returns io.EOF when the
// buffer is closed for writing and empty.
func (b *Buffer[T]) waitLocked() error {
	for {
		if b.closeErr != nil {
			return fmt.Errorf("buffer: read from closed buffer: %w", b.closeErr)
		}
		if len(b.buf) > 0 {
			return nil
		}
		if b.closeWrite {
			return io.EOF
		}
		b.mu.Unlock()
		<-b.writeNotify
		b.mu.Lock()
	}
}

// Read moves up to len(p) items into p, oldest first.
func (b *Buffer[T]) Read(p []T) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.waitLocked(); err != nil {
		return 0, err
	}
	n := copy(p, b.buf)
	b.take(n)
	return n, nil
}

// Next removes and returns the oldest item, blocking while the buffer is
// empty. It returns ErrIteratorDone after CloseWrite once drained.
func (b *Buffer[T]) Next() (t T, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err = b.waitLocked(); err != nil {
		if errors.Is(err, io.EOF) {
			err = ErrIteratorDone
		}
		return t, err
	}
	t = b.buf[0]
	b.take(1)
	return t, nil
}

// take drops the first n items, zeroing them so the backing array does not
// retain references.
func (b *Buffer[T]) take(n int) {
	var zero T
	for i := range n {
		b.buf[i] = zero
	}
	b.buf = b.buf[n:]
	if len(b.buf) == 0 {
		b.buf = b.buf[:0:0]
	}
}

// Len returns the number of queued items.
func (b *Buffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buf)
}

// CloseWrite stops accepting items. Queued items stay readable.
func (b *Buffer[T]) CloseWrite() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closeWrite {
		return nil
	}
	b.closeWrite = true
	close(b.writeNotify)
	return nil
}

// CloseWithError closes both ends and drops queued items. A nil err means
// io.ErrClosedPipe.
func (b *Buffer[T]) CloseWithError(err error) error {
	if err == nil {
		err = io.ErrClosedPipe
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closeErr != nil {
		return nil
	}
	b.closeErr = err
	b.buf = nil
	if !b.closeWrite {
		b.closeWrite = true
		close(b.writeNotify)
	}
	return nil
}

// Close is CloseWithError(io.ErrClosedPipe).
func (b *Buffer[T]) Close() error {
	return b.CloseWithError(io.ErrClosedPipe)
}

// Error returns the error the buffer was closed with, if any.
func (b *Buffer[T]) Error() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closeErr
}
