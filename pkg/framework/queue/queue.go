// Package queue provides the retained-frame FIFO used by plugins that
// accumulate input across calls.
package queue

import (
	"errors"

	"github.com/justyntemme/framego/pkg/frame"
)

// ErrFull is returned by Retain when the queue is at capacity
var ErrFull = errors.New("frame queue full")

// FrameQueue is a fixed-capacity circular FIFO of owned frames. Borrowed
// handles are cloned on entry, so nothing in the queue ever references
// host memory.
type FrameQueue struct {
	frames []*frame.Buffer
	head   int
	count  int
	mask   int
}

// New creates a queue holding at least capacity frames
func New(capacity int) *FrameQueue {
	size := nextPowerOf2(capacity)
	return &FrameQueue{
		frames: make([]*frame.Buffer, size),
		mask:   size - 1,
	}
}

// Retain appends a frame, taking an owned copy if it is borrowed
func (q *FrameQueue) Retain(b *frame.Buffer) error {
	if q.count == len(q.frames) {
		return ErrFull
	}
	if b.Ownership() != frame.Owned {
		b = b.Clone()
	}
	q.frames[(q.head+q.count)&q.mask] = b
	q.count++
	return nil
}

// Len returns the number of retained frames
func (q *FrameQueue) Len() int {
	return q.count
}

// Cap returns the queue capacity
func (q *FrameQueue) Cap() int {
	return len(q.frames)
}

// At returns the i-th oldest frame
func (q *FrameQueue) At(i int) *frame.Buffer {
	if i < 0 || i >= q.count {
		return nil
	}
	return q.frames[(q.head+i)&q.mask]
}

// Front returns the oldest frame, or nil when empty
func (q *FrameQueue) Front() *frame.Buffer {
	return q.At(0)
}

// Drop releases the oldest frame
func (q *FrameQueue) Drop() {
	if q.count == 0 {
		return
	}
	q.frames[q.head].Release()
	q.frames[q.head] = nil
	q.head = (q.head + 1) & q.mask
	q.count--
}

// Clear releases every retained frame
func (q *FrameQueue) Clear() {
	for q.count > 0 {
		q.Drop()
	}
	q.head = 0
}

// Each calls fn for every frame, oldest first
func (q *FrameQueue) Each(fn func(i int, b *frame.Buffer)) {
	for i := 0; i < q.count; i++ {
		fn(i, q.frames[(q.head+i)&q.mask])
	}
}

func nextPowerOf2(n int) int {
	if n < 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
