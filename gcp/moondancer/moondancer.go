// Moondancer target port controller
// https://github.com/mndza/cynthion
//
// Copyright (c) The Cynthion Developers
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package moondancer implements the protocol class driving the Target USB
// port: under host direction it configures arbitrary endpoints on the
// target controller and shuttles bytes between protocol commands and the
// target bus.
//
// The firmware never interprets target side traffic: control events are
// packaged verbatim and surfaced to the host through the
// get_interrupt_events verb, the host drives target side enumeration.
package moondancer

import (
	"log"

	"github.com/mndza/cynthion/gcp"
	"github.com/mndza/cynthion/usb"
)

// ClassID is the protocol class id of the target port controller.
const ClassID = 0x120

// maxPacketSize is the largest packet a target endpoint can produce (bulk,
// high speed).
const maxPacketSize = 512

// eventQueueSize bounds the target events held between two
// get_interrupt_events polls.
const eventQueueSize = 64

// interfaceTarget is the interface tag of surfaced events on the wire.
const interfaceTarget = 1

// Moondancer owns the Target port USB controller.
type Moondancer struct {
	hw usb.Driver

	events [eventQueueSize]usb.Event
	head   int
	count  int

	connected bool
	quirks    uint8
}

// New returns a target port controller driving the argument USB controller.
func New(hw usb.Driver) *Moondancer {
	return &Moondancer{
		hw: hw,
	}
}

// DispatchEvent queues a target side event for collection by the host. On
// overflow the newest event is dropped with a diagnostic, the host polls
// too slowly for the traffic it generates.
func (m *Moondancer) DispatchEvent(ev usb.Event) {
	if m.count == eventQueueSize {
		log.Printf("moondancer: event queue full, dropping %v", ev)
		return
	}

	m.events[(m.head+m.count)%eventQueueSize] = ev
	m.count += 1
}

// Class returns the class registry entry.
func (m *Moondancer) Class() gcp.Class {
	return gcp.Class{
		ID:   ClassID,
		Name: "moondancer",
		Verbs: []gcp.Verb{
			{Number: 0x0, Name: "connect", Handler: m.connect},
			{Number: 0x1, Name: "disconnect", Handler: m.disconnect},
			{Number: 0x2, Name: "bus_reset", Handler: m.busReset},
			{Number: 0x3, Name: "set_address", Handler: m.setAddress},
			{Number: 0x4, Name: "configure_endpoints", Handler: m.configureEndpoints},
			{Number: 0x5, Name: "stall_endpoint", Handler: m.stallEndpoint},
			{Number: 0x6, Name: "read_setup", Handler: m.readSetup},
			{Number: 0x7, Name: "ack_status_stage", Handler: m.ackStatusStage},
			{Number: 0x8, Name: "send_control_response", Handler: m.sendControlResponse},
			{Number: 0x9, Name: "send_on_endpoint", Handler: m.sendOnEndpoint},
			{Number: 0xa, Name: "read_endpoint", Handler: m.readEndpoint},
			{Number: 0xb, Name: "get_interrupt_events", Handler: m.getInterruptEvents},
		},
	}
}

// connect arguments: ep0_max_packet_size u16, device_speed u8, quirks u8.
func (m *Moondancer) connect(args []byte, response []byte) (int, error) {
	if len(args) < 4 {
		return 0, gcp.InvalidArgument
	}

	speed := usb.Speed(args[2])
	m.quirks = args[3]

	// discard events of a previous session
	m.head = 0
	m.count = 0

	m.hw.Connect(speed)
	m.hw.EnableInterrupts()
	m.connected = true

	log.Printf("moondancer: connected target (%v speed)", speed)

	return 0, nil
}

func (m *Moondancer) disconnect(args []byte, response []byte) (int, error) {
	m.hw.Disconnect()
	m.connected = false

	log.Printf("moondancer: disconnected target")

	return 0, nil
}

func (m *Moondancer) busReset(args []byte, response []byte) (int, error) {
	m.hw.BusReset()
	return 0, nil
}

// setAddress arguments: address u8, deferred u8. The target controller
// filters by address in hardware, deferral is resolved host side.
func (m *Moondancer) setAddress(args []byte, response []byte) (int, error) {
	if len(args) < 2 {
		return 0, gcp.InvalidArgument
	}

	m.hw.SetAddress(args[0] & 0x7f)

	return 0, nil
}

// configureEndpoints arguments: a list of 4-byte endpoint records
// (address u8, attributes u8, max_packet_size u16). OUT endpoints are
// enabled and primed for reception.
func (m *Moondancer) configureEndpoints(args []byte, response []byte) (int, error) {
	if len(args) == 0 || len(args)%4 != 0 {
		return 0, gcp.InvalidArgument
	}

	for i := 0; i < len(args); i += 4 {
		address := args[i]
		endpoint := address & 0xf

		if int(endpoint) >= 16 {
			return 0, gcp.InvalidArgument
		}

		if usb.Direction(address>>7) == usb.HostToDevice {
			m.hw.EnableEndpointOut(endpoint)
			m.hw.EpOutPrimeReceive(endpoint)
		}
	}

	return 0, nil
}

// stallEndpoint arguments: endpoint u8, direction u8.
func (m *Moondancer) stallEndpoint(args []byte, response []byte) (int, error) {
	if len(args) < 2 {
		return 0, gcp.InvalidArgument
	}

	endpoint := args[0] & 0xf

	if usb.Direction(args[1]) == usb.DeviceToHost {
		m.hw.StallEndpointIn(endpoint)
	} else {
		m.hw.StallEndpointOut(endpoint)
	}

	return 0, nil
}

// readSetup arguments: endpoint u8. The response is the raw 8-byte SETUP
// packet.
func (m *Moondancer) readSetup(args []byte, response []byte) (int, error) {
	if len(args) < 1 {
		return 0, gcp.InvalidArgument
	}

	return m.hw.ReadControl(response[0:8]), nil
}

// ackStatusStage arguments: endpoint u8, direction u8 of the transfer being
// concluded.
func (m *Moondancer) ackStatusStage(args []byte, response []byte) (int, error) {
	if len(args) < 2 {
		return 0, gcp.InvalidArgument
	}

	m.hw.Ack(args[0]&0xf, usb.Direction(args[1]))

	return 0, nil
}

// sendControlResponse arguments: endpoint u8, payload. The payload is the
// data stage of a target side control transfer.
func (m *Moondancer) sendControlResponse(args []byte, response []byte) (int, error) {
	if len(args) < 1 {
		return 0, gcp.InvalidArgument
	}

	m.hw.Write(args[0]&0xf, args[1:])

	return 0, nil
}

// sendOnEndpoint arguments: endpoint u8, payload.
func (m *Moondancer) sendOnEndpoint(args []byte, response []byte) (int, error) {
	if len(args) < 1 {
		return 0, gcp.InvalidArgument
	}

	m.hw.Write(args[0]&0xf, args[1:])

	return 0, nil
}

// readEndpoint arguments: endpoint u8. Pending target side data is drained
// to the response buffer and the endpoint is re-armed.
func (m *Moondancer) readEndpoint(args []byte, response []byte) (int, error) {
	if len(args) < 1 {
		return 0, gcp.InvalidArgument
	}

	endpoint := args[0] & 0xf
	n := m.hw.Read(endpoint, response[0:maxPacketSize])

	m.hw.EpOutPrimeReceive(endpoint)

	return n, nil
}

// getInterruptEvents drains the queued target side events to the response
// buffer, 3 bytes per event: interface, event type, endpoint.
func (m *Moondancer) getInterruptEvents(args []byte, response []byte) (int, error) {
	n := 0

	for m.count > 0 {
		ev := m.events[m.head]
		m.head = (m.head + 1) % eventQueueSize
		m.count -= 1

		response[n] = interfaceTarget
		response[n+1] = byte(ev.Type)
		response[n+2] = ev.Endpoint
		n += 3
	}

	return n, nil
}
