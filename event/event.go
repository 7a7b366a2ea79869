// Interrupt event plumbing
// https://github.com/mndza/cynthion
//
// Copyright (c) The Cynthion Developers
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package event connects the interrupt service routine to the firmware main
// loop: the ISR translates pending interrupt sources to InterruptEvent
// values and enqueues them on a bounded queue drained at thread context.
package event

import (
	"fmt"

	"github.com/mndza/cynthion/usb"
)

// Interface identifies the USB controller an event originated from.
type Interface uint8

// USB controllers
const (
	// Aux hosts the command and control protocol
	Aux Interface = iota
	// Target emulates a device under host direction
	Target
)

// String returns the interface mnemonic.
func (i Interface) String() string {
	switch i {
	case Aux:
		return "Aux"
	case Target:
		return "Target"
	default:
		return "Unknown"
	}
}

// Type discriminates InterruptEvent variants.
type Type int

// InterruptEvent variants
const (
	// a USB controller event
	EventUsb Type = iota
	// an interrupt fired with no recognized source
	EventUnknownInterrupt
	// a diagnostic message raised at interrupt context
	EventErrorMessage
)

// InterruptEvent is the value produced by the interrupt service routine for
// consumption by the main loop.
type InterruptEvent struct {
	Type      Type
	Interface Interface
	Usb       usb.Event

	// pending mask for EventUnknownInterrupt
	Pending uint32
	// diagnostic for EventErrorMessage
	Message string
}

// Usb returns a USB controller event.
func Usb(iface Interface, ev usb.Event) InterruptEvent {
	return InterruptEvent{
		Type:      EventUsb,
		Interface: iface,
		Usb:       ev,
	}
}

// UnknownInterrupt returns an event reporting an interrupt with no
// recognized source.
func UnknownInterrupt(pending uint32) InterruptEvent {
	return InterruptEvent{
		Type:    EventUnknownInterrupt,
		Pending: pending,
	}
}

// ErrorMessage returns a diagnostic event. The message must be a constant,
// interrupt service routines cannot allocate.
func ErrorMessage(message string) InterruptEvent {
	return InterruptEvent{
		Type:    EventErrorMessage,
		Message: message,
	}
}

// String returns the event mnemonic for diagnostics.
func (e InterruptEvent) String() string {
	switch e.Type {
	case EventUsb:
		return fmt.Sprintf("Usb(%v, %v)", e.Interface, e.Usb)
	case EventUnknownInterrupt:
		return fmt.Sprintf("UnknownInterrupt(%#.8x)", e.Pending)
	case EventErrorMessage:
		return fmt.Sprintf("ErrorMessage(%s)", e.Message)
	default:
		return fmt.Sprintf("InvalidEvent(%d)", e.Type)
	}
}
