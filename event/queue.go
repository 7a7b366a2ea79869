// Interrupt event plumbing
// https://github.com/mndza/cynthion
//
// Copyright (c) The Cynthion Developers
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package event

import "sync/atomic"

// QueueSize is the queue capacity, a power of two.
const QueueSize = 64

type cell struct {
	sequence atomic.Uint32
	event    InterruptEvent
}

// Queue is a bounded multi-producer multi-consumer FIFO of InterruptEvent
// values, implemented as a lock-free ring over sequence numbers (Vyukov's
// bounded MPMC algorithm).
//
// TryEnqueue and Dequeue never block and never allocate, which makes the
// queue safe to produce into from an interrupt service routine. Events
// enqueued by a single ISR invocation are dequeued in enqueue order;
// since the CPU serializes interrupt handling, hardware causal order is
// preserved end-to-end.
type Queue struct {
	buffer  [QueueSize]cell
	enqueue atomic.Uint32
	dequeue atomic.Uint32
}

// Init prepares the queue for use, it must be called before interrupts are
// enabled.
func (q *Queue) Init() {
	for i := range q.buffer {
		q.buffer[i].sequence.Store(uint32(i))
	}
}

// TryEnqueue appends an event to the queue, it returns false when the queue
// is full.
func (q *Queue) TryEnqueue(ev InterruptEvent) bool {
	pos := q.enqueue.Load()

	for {
		c := &q.buffer[pos%QueueSize]
		seq := c.sequence.Load()
		diff := int32(seq) - int32(pos)

		switch {
		case diff == 0:
			if q.enqueue.CompareAndSwap(pos, pos+1) {
				c.event = ev
				c.sequence.Store(pos + 1)
				return true
			}

			pos = q.enqueue.Load()
		case diff < 0:
			// full
			return false
		default:
			pos = q.enqueue.Load()
		}
	}
}

// Dequeue removes the oldest event from the queue, the boolean return is
// false when the queue is empty.
func (q *Queue) Dequeue() (InterruptEvent, bool) {
	pos := q.dequeue.Load()

	for {
		c := &q.buffer[pos%QueueSize]
		seq := c.sequence.Load()
		diff := int32(seq) - int32(pos+1)

		switch {
		case diff == 0:
			if q.dequeue.CompareAndSwap(pos, pos+1) {
				ev := c.event
				c.sequence.Store(pos + QueueSize)
				return ev, true
			}

			pos = q.dequeue.Load()
		case diff < 0:
			// empty
			return InterruptEvent{}, false
		default:
			pos = q.dequeue.Load()
		}
	}
}

// Len returns the number of queued events, the value is approximate while
// producers or consumers are active.
func (q *Queue) Len() int {
	n := int32(q.enqueue.Load()) - int32(q.dequeue.Load())

	if n < 0 {
		n = 0
	}

	return int(n)
}
