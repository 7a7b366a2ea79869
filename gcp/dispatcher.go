// Great Communications Protocol support
// https://github.com/mndza/cynthion
//
// Copyright (c) The Cynthion Developers
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package gcp

import (
	"encoding/binary"
	"log"
	"sync/atomic"

	"github.com/mndza/cynthion/usb"
)

// Vendor control request multiplexing
const (
	// bRequest carrying all protocol traffic
	UsbCommandRequest = 0x65

	// wValue selectors
	VendorValueExecute = 0x00
	VendorValueCancel  = 0x01
)

// resetDelayCycles is the settling time between stalling the control IN
// endpoint and resetting its FIFO on the error path, in CPU cycles.
// Hardware specific, the host side framing desynchronizes without it.
const resetDelayCycles = 2000

// spin is only ever incremented, it keeps the settling loop from being
// eliminated.
var spin uint32

// delay busy-loops for the argument number of cycles, it must not sleep:
// the firmware has no timer dependency at this layer.
func delay(cycles int) {
	for i := 0; i < cycles; i++ {
		atomic.AddUint32(&spin, 1)
	}
}

// Dispatcher parses protocol commands, routes them to class handlers and
// stages the response for collection by the host. At most one command is
// outstanding per port.
type Dispatcher struct {
	classes Classes

	response       [MaxCommandSize]byte
	responseLength int
	hasResponse    bool

	lastError Error
	hasError  bool
}

// NewDispatcher returns a dispatcher serving the argument class registry.
func NewDispatcher(classes Classes) *Dispatcher {
	return &Dispatcher{
		classes: classes,
	}
}

// HandleVendorRequest processes a vendor SETUP packet returned by the
// control endpoint state machine, data is the buffered payload of the
// request data stage.
func (d *Dispatcher) HandleVendorRequest(hw usb.Driver, setup usb.SetupPacket, data []byte) {
	if setup.Type() != usb.RequestVendor {
		log.Printf("gcp: unexpected control packet %v", setup)
		stall(hw, setup.Direction())
		return
	}

	if setup.Request != UsbCommandRequest {
		// legacy board scan probes expect a stalled IN endpoint
		log.Printf("gcp: legacy vendor request %#.2x", setup.Request)
		hw.StallEndpointIn(0)
		return
	}

	switch {
	case setup.Value == VendorValueExecute && setup.Direction() == usb.HostToDevice:
		// host is starting a new command sequence
		d.Execute(hw, data)
	case setup.Value == VendorValueExecute && setup.Direction() == usb.DeviceToHost:
		// host is ready to collect the response
		d.SendResponse(hw)
	case setup.Value == VendorValueCancel && setup.Direction() == usb.DeviceToHost:
		// host is aborting the current command sequence
		d.Cancel(hw)
	default:
		log.Printf("gcp: unknown vendor value %#.4x (%v)", setup.Value, setup.Direction())
		stall(hw, setup.Direction())
	}
}

// Execute parses and runs one command, staging its response. A command
// arriving while a response is staged discards the previous response.
func (d *Dispatcher) Execute(hw usb.Driver, data []byte) {
	cmd, err := ParseCommand(data)

	if err != nil {
		log.Printf("gcp: %v", err)
		d.fail(hw, InvalidArgument)
		return
	}

	class := d.classes.class(cmd.ClassID)

	if class == nil {
		log.Printf("gcp: class %#x not found", cmd.ClassID)
		d.fail(hw, InvalidArgument)
		return
	}

	verb := class.verb(cmd.VerbNumber)

	if verb == nil {
		log.Printf("gcp: class %s has no verb %#x", class.Name, cmd.VerbNumber)
		d.fail(hw, InvalidArgument)
		return
	}

	n, err := verb.Handler(cmd.Arguments, d.response[:])

	if err != nil {
		log.Printf("gcp: %s.%s: %v", class.Name, verb.Name, err)
		d.fail(hw, Code(err))
		return
	}

	d.responseLength = n
	d.hasResponse = true
	d.hasError = false
}

// SendResponse delivers the staged response, or the staged error code, on
// the control IN endpoint. The staged state is cleared on delivery.
func (d *Dispatcher) SendResponse(hw usb.Driver) {
	switch {
	case d.hasResponse:
		hw.Write(0, d.response[0:d.responseLength])
		d.hasResponse = false

		// prime to receive the host status stage zero length packet
		hw.EpOutPrimeReceive(0)
	case d.hasError:
		hw.EpOutPrimeReceive(0)

		var code [4]byte
		binary.LittleEndian.PutUint32(code[:], uint32(d.lastError))
		hw.Write(0, code[:])

		d.hasError = false
	default:
		log.Printf("gcp: response requested but none staged")
		hw.StallEndpointIn(0)
	}
}

// Cancel aborts the in-flight command, discarding any staged response or
// error. A zero word is sent when a response was staged, leaving the host
// side framing in a defined state.
func (d *Dispatcher) Cancel(hw usb.Driver) {
	if d.hasResponse {
		hw.EpOutPrimeReceive(0)

		var zero [4]byte
		hw.Write(0, zero[:])
	}

	d.hasResponse = false
	d.responseLength = 0
	d.hasError = false
}

// fail stages an error code and resynchronizes the host side framing: the
// IN endpoint is stalled and, after a settling delay, its FIFO is reset.
func (d *Dispatcher) fail(hw usb.Driver, code Error) {
	d.hasResponse = false
	d.responseLength = 0
	d.lastError = code
	d.hasError = true

	hw.StallEndpointIn(0)
	delay(resetDelayCycles)
	hw.ResetEndpointIn(0)
}

func stall(hw usb.Driver, dir usb.Direction) {
	if dir == usb.HostToDevice {
		hw.StallEndpointOut(0)
	} else {
		hw.StallEndpointIn(0)
	}
}
