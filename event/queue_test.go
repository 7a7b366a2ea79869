// https://github.com/mndza/cynthion
//
// Copyright (c) The Cynthion Developers
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package event

import (
	"sync"
	"testing"

	"github.com/mndza/cynthion/usb"
)

func testEvent(endpoint uint8) InterruptEvent {
	return Usb(Aux, usb.Event{Type: usb.EventReceivePacket, Endpoint: endpoint})
}

func TestQueueFIFOOrder(t *testing.T) {
	q := &Queue{}
	q.Init()

	for i := 0; i < 16; i++ {
		if !q.TryEnqueue(testEvent(uint8(i))) {
			t.Fatalf("enqueue %d failed", i)
		}
	}

	for i := 0; i < 16; i++ {
		ev, ok := q.Dequeue()

		if !ok {
			t.Fatalf("dequeue %d failed", i)
		}

		if ev.Usb.Endpoint != uint8(i) {
			t.Fatalf("expected event %d, got %d", i, ev.Usb.Endpoint)
		}
	}

	if _, ok := q.Dequeue(); ok {
		t.Fatal("expected empty queue")
	}
}

func TestQueueOverflow(t *testing.T) {
	q := &Queue{}
	q.Init()

	for i := 0; i < QueueSize; i++ {
		if !q.TryEnqueue(testEvent(0)) {
			t.Fatalf("enqueue %d failed before capacity", i)
		}
	}

	if q.TryEnqueue(testEvent(0)) {
		t.Fatal("expected enqueue to fail at capacity")
	}

	if q.Len() != QueueSize {
		t.Fatalf("expected length %d, got %d", QueueSize, q.Len())
	}

	// consuming one slot makes room for exactly one event
	q.Dequeue()

	if !q.TryEnqueue(testEvent(0)) {
		t.Fatal("expected enqueue to succeed after dequeue")
	}
}

func TestQueueWrapAround(t *testing.T) {
	q := &Queue{}
	q.Init()

	// cycle through the ring multiple times
	for i := 0; i < QueueSize*4; i++ {
		if !q.TryEnqueue(testEvent(uint8(i % 256))) {
			t.Fatalf("enqueue %d failed", i)
		}

		ev, ok := q.Dequeue()

		if !ok || ev.Usb.Endpoint != uint8(i%256) {
			t.Fatalf("dequeue %d mismatch", i)
		}
	}
}

func TestQueueConcurrent(t *testing.T) {
	q := &Queue{}
	q.Init()

	const producers = 4
	const perProducer = 1000

	var wg sync.WaitGroup
	var produced sync.WaitGroup

	received := make(map[uint8]int)
	done := make(chan bool)

	wg.Add(1)

	go func() {
		defer wg.Done()

		for {
			ev, ok := q.Dequeue()

			if !ok {
				select {
				case <-done:
					// drain stragglers
					for {
						ev, ok := q.Dequeue()

						if !ok {
							return
						}

						received[ev.Usb.Endpoint] += 1
					}
				default:
					continue
				}
			}

			received[ev.Usb.Endpoint] += 1
		}
	}()

	for p := 0; p < producers; p++ {
		produced.Add(1)

		go func(p int) {
			defer produced.Done()

			for i := 0; i < perProducer; i++ {
				for !q.TryEnqueue(testEvent(uint8(p))) {
					// consumer is behind, retry
				}
			}
		}(p)
	}

	produced.Wait()
	close(done)
	wg.Wait()

	for p := 0; p < producers; p++ {
		if received[uint8(p)] != perProducer {
			t.Fatalf("producer %d: expected %d events, got %d", p, perProducer, received[uint8(p)])
		}
	}
}

func TestInterruptEventString(t *testing.T) {
	ev := Usb(Target, usb.Event{Type: usb.EventReceiveControl, Endpoint: 0})

	if s := ev.String(); s != "Usb(Target, ReceiveControl(0))" {
		t.Errorf("unexpected string %q", s)
	}

	if s := UnknownInterrupt(0x80).String(); s != "UnknownInterrupt(0x00000080)" {
		t.Errorf("unexpected string %q", s)
	}
}
