// USB device mode support
// https://github.com/mndza/cynthion
//
// Copyright (c) The Cynthion Developers
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package usbtest provides a scripted in-memory implementation of the
// usb.Driver contract for host side simulation of the bus: tests enqueue
// SETUP packets and OUT data as the host would, then assert on the packets
// the device armed in response.
package usbtest

import (
	"github.com/mndza/cynthion/usb"
)

// Call records a single driver operation.
type Call struct {
	Op       string
	Endpoint uint8
	Data     []byte
}

// SimDriver implements usb.Driver over in-memory FIFOs.
type SimDriver struct {
	// Calls records every operation in invocation order.
	Calls []Call

	// Written accumulates the packets armed on each IN endpoint, a zero
	// length entry is a ZLP.
	Written map[uint8][][]byte

	// Primed counts EpOutPrimeReceive calls per endpoint.
	Primed map[uint8]int

	// handshake state, cleared like the hardware would
	StalledIn  map[uint8]bool
	StalledOut map[uint8]bool

	Connected bool
	Speed     usb.Speed
	Address   uint8

	setup   [][8]byte
	outData map[uint8][][]byte
}

var _ usb.Driver = (*SimDriver)(nil)

// NewSimDriver returns an idle simulated controller.
func NewSimDriver() *SimDriver {
	return &SimDriver{
		Written:    make(map[uint8][][]byte),
		Primed:     make(map[uint8]int),
		StalledIn:  make(map[uint8]bool),
		StalledOut: make(map[uint8]bool),
		outData:    make(map[uint8][][]byte),
	}
}

// EnqueueSetup queues a SETUP packet for collection by ReadControl. As on
// the hardware, a SETUP packet clears a control endpoint stall.
func (d *SimDriver) EnqueueSetup(setup usb.SetupPacket) {
	var buf [8]byte
	copy(buf[:], setup.Bytes())

	d.setup = append(d.setup, buf)
	d.StalledIn[0] = false
	d.StalledOut[0] = false
}

// EnqueueOut queues an OUT packet for collection by Read.
func (d *SimDriver) EnqueueOut(endpoint uint8, data []byte) {
	d.outData[endpoint] = append(d.outData[endpoint], append([]byte{}, data...))
}

// InBytes returns the concatenated packets armed on an IN endpoint.
func (d *SimDriver) InBytes(endpoint uint8) (buf []byte) {
	for _, packet := range d.Written[endpoint] {
		buf = append(buf, packet...)
	}

	return
}

// Ops returns the recorded operation names in invocation order.
func (d *SimDriver) Ops() (ops []string) {
	for _, call := range d.Calls {
		ops = append(ops, call.Op)
	}

	return
}

func (d *SimDriver) record(op string, endpoint uint8, data []byte) {
	d.Calls = append(d.Calls, Call{
		Op:       op,
		Endpoint: endpoint,
		Data:     append([]byte{}, data...),
	})
}

// Connect implements usb.Driver.
func (d *SimDriver) Connect(speed usb.Speed) {
	d.record("connect", 0, nil)
	d.Connected = true
	d.Speed = speed
}

// Disconnect implements usb.Driver.
func (d *SimDriver) Disconnect() {
	d.record("disconnect", 0, nil)
	d.Connected = false
}

// BusReset implements usb.Driver.
func (d *SimDriver) BusReset() {
	d.record("bus_reset", 0, nil)
	d.Address = 0
	d.setup = nil
	d.outData = make(map[uint8][][]byte)
}

// EnableInterrupts implements usb.Driver.
func (d *SimDriver) EnableInterrupts() {
	d.record("enable_interrupts", 0, nil)
}

// ReadControl implements usb.Driver.
func (d *SimDriver) ReadControl(buf []byte) int {
	d.record("read_control", 0, nil)

	if len(d.setup) == 0 {
		return 0
	}

	packet := d.setup[0]
	d.setup = d.setup[1:]

	return copy(buf, packet[:])
}

// Read implements usb.Driver, one simulated packet per call.
func (d *SimDriver) Read(endpoint uint8, buf []byte) int {
	d.record("read", endpoint, nil)

	queue := d.outData[endpoint]

	if len(queue) == 0 {
		return 0
	}

	packet := queue[0]
	d.outData[endpoint] = queue[1:]

	return copy(buf, packet)
}

// Write implements usb.Driver.
func (d *SimDriver) Write(endpoint uint8, buf []byte) int {
	d.record("write", endpoint, buf)
	d.Written[endpoint] = append(d.Written[endpoint], append([]byte{}, buf...))

	return len(buf)
}

// EpOutPrimeReceive implements usb.Driver.
func (d *SimDriver) EpOutPrimeReceive(endpoint uint8) {
	d.record("ep_out_prime_receive", endpoint, nil)
	d.Primed[endpoint] += 1
}

// EnableEndpointOut implements usb.Driver.
func (d *SimDriver) EnableEndpointOut(endpoint uint8) {
	d.record("enable_endpoint_out", endpoint, nil)
	d.StalledOut[endpoint] = false
}

// StallEndpointIn implements usb.Driver.
func (d *SimDriver) StallEndpointIn(endpoint uint8) {
	d.record("stall_endpoint_in", endpoint, nil)
	d.StalledIn[endpoint] = true
}

// StallEndpointOut implements usb.Driver.
func (d *SimDriver) StallEndpointOut(endpoint uint8) {
	d.record("stall_endpoint_out", endpoint, nil)
	d.StalledOut[endpoint] = true
}

// StallControlRequest implements usb.Driver.
func (d *SimDriver) StallControlRequest() {
	d.record("stall_control_request", 0, nil)
	d.StalledIn[0] = true
	d.StalledOut[0] = true
}

// ResetEndpointIn implements usb.Driver.
func (d *SimDriver) ResetEndpointIn(endpoint uint8) {
	d.record("reset_endpoint_in", endpoint, nil)
	d.StalledIn[endpoint] = false
}

// Ack implements usb.Driver.
func (d *SimDriver) Ack(endpoint uint8, dir usb.Direction) {
	if dir == usb.HostToDevice {
		d.record("ack", endpoint, nil)
		d.Written[endpoint] = append(d.Written[endpoint], []byte{})
	} else {
		d.EpOutPrimeReceive(endpoint)
	}
}

// SetAddress implements usb.Driver.
func (d *SimDriver) SetAddress(addr uint8) {
	d.record("set_address", 0, nil)
	d.Address = addr
}
