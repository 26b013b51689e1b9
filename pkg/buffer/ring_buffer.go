package buffer

import (
	"fmt"
	"io"
	"sync"
)

// RingBuffer keeps the most recent items up to a fixed capacity. Adding to a
// full ring overwrites the oldest item. It is safe for concurrent use.
type RingBuffer[T any] struct {
	mu       sync.Mutex
	buf      []T
	head     int // index of the oldest item
	size     int
	closeErr error
}

// RingN returns an empty RingBuffer holding at most size items.
func RingN[T any](size int) *RingBuffer[T] {
	if size <= 0 {
		panic("buffer: ring size must be positive")
	}
	return &RingBuffer[T]{buf: make([]T, size)}
}

// Add appends t, evicting the oldest item when full.
func (rb *RingBuffer[T]) Add(t T) error {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	if rb.closeErr != nil {
		return fmt.Errorf("buffer: write to closed buffer: %w", rb.closeErr)
	}
	rb.addLocked(t)
	return nil
}

func (rb *RingBuffer[T]) addLocked(t T) {
	tail := (rb.head + rb.size) % len(rb.buf)
	rb.buf[tail] = t
	if rb.size < len(rb.buf) {
		rb.size++
	} else {
		rb.head = (rb.head + 1) % len(rb.buf)
	}
}

// Write adds every item of p in order.
func (rb *RingBuffer[T]) Write(p []T) (int, error) {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	if rb.closeErr != nil {
		return 0, fmt.Errorf("buffer: write to closed buffer: %w", rb.closeErr)
	}
	for _, t := range p {
		rb.addLocked(t)
	}
	return len(p), nil
}

// Bytes returns a copy of the retained items, oldest first.
func (rb *RingBuffer[T]) Bytes() []T {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	out := make([]T, rb.size)
	for i := range rb.size {
		out[i] = rb.buf[(rb.head+i)%len(rb.buf)]
	}
	return out
}

// Len returns the number of retained items.
func (rb *RingBuffer[T]) Len() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.size
}

// Reset drops every retained item.
func (rb *RingBuffer[T]) Reset() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	clear(rb.buf)
	rb.head, rb.size = 0, 0
}

// Close rejects further writes. Retained items stay readable.
func (rb *RingBuffer[T]) Close() error {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	if rb.closeErr == nil {
		rb.closeErr = io.ErrClosedPipe
	}
	return nil
}
