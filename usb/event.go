// USB device mode support
// https://github.com/mndza/cynthion
//
// Copyright (c) The Cynthion Developers
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package usb

import "fmt"

// EventType represents the interrupt conditions reported by a device mode
// USB controller.
type EventType int

// USB interrupt events
const (
	// EventBusReset signals that the host reset the bus, the device
	// returns to the Default state and will be re-enumerated.
	EventBusReset EventType = iota
	// EventReceiveControl signals that a SETUP packet is waiting on the
	// endpoint.
	EventReceiveControl
	// EventReceiveSetupPacket signals a SETUP packet already read by the
	// interrupt service routine, the fat variant of EventReceiveControl
	// (see the fatEvents switch in the firmware ISR).
	EventReceiveSetupPacket
	// EventReceivePacket signals that an OUT data packet has arrived on
	// the endpoint.
	EventReceivePacket
	// EventSendComplete signals that an IN transfer on the endpoint has
	// been collected by the host.
	EventSendComplete
)

// Event represents a single USB interrupt condition on a device mode
// controller.
type Event struct {
	Type     EventType
	Endpoint uint8

	// Setup carries the packet for EventReceiveSetupPacket events.
	Setup SetupPacket
}

// String returns the event mnemonic for diagnostics.
func (e Event) String() string {
	switch e.Type {
	case EventBusReset:
		return "BusReset"
	case EventReceiveControl:
		return fmt.Sprintf("ReceiveControl(%d)", e.Endpoint)
	case EventReceiveSetupPacket:
		return fmt.Sprintf("ReceiveSetupPacket(%d, %v)", e.Endpoint, e.Setup)
	case EventReceivePacket:
		return fmt.Sprintf("ReceivePacket(%d)", e.Endpoint)
	case EventSendComplete:
		return fmt.Sprintf("SendComplete(%d)", e.Endpoint)
	default:
		return fmt.Sprintf("UnknownEvent(%d)", e.Type)
	}
}
