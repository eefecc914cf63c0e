// Package ringbuffer contains a single-producer, single-consumer ring buffer.
package ringbuffer

import (
	"fmt"
	"sync/atomic"
)

// RingBuffer is a ring buffer.
type RingBuffer[T any] struct {
	size       uint64
	readIndex  uint64
	writeIndex atomic.Uint64
	closed     atomic.Bool
	buffer     []atomic.Pointer[T]
	event      *event
}

// New allocates a RingBuffer.
func New[T any](size uint64) (*RingBuffer[T], error) {
	// when writeIndex overflows, if size is not a power of
	// two, only a portion of the buffer is used.
	if size == 0 || (size&(size-1)) != 0 {
		return nil, fmt.Errorf("size must be a power of two")
	}

	return &RingBuffer[T]{
		size:      size,
		readIndex: 1,
		buffer:    make([]atomic.Pointer[T], size),
		event:     newEvent(),
	}, nil
}

// Close makes Pull() return false.
func (r *RingBuffer[T]) Close() {
	r.closed.Store(true)
	r.event.signal()
}

// Push pushes an item at the end of the buffer.
// It returns false when the buffer is full.
func (r *RingBuffer[T]) Push(item T) bool {
	writeIndex := r.writeIndex.Add(1)
	i := writeIndex % r.size

	if !r.buffer[i].CompareAndSwap(nil, &item) {
		r.writeIndex.Add(^uint64(0))
		return false
	}

	r.event.signal()
	return true
}

// Pull pulls an item from the beginning of the buffer.
// It blocks until an item is available or the buffer is closed.
func (r *RingBuffer[T]) Pull() (T, bool) {
	for {
		i := r.readIndex % r.size
		res := r.buffer[i].Swap(nil)
		if res == nil {
			if r.closed.Swap(false) {
				var zero T
				return zero, false
			}
			r.event.wait()
			continue
		}

		r.readIndex++
		return *res, true
	}
}
