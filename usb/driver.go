// USB device mode support
// https://github.com/mndza/cynthion
//
// Copyright (c) The Cynthion Developers
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package usb

// Speed represents a USB port speed, the numeric values match the device
// controller speed selection register encoding.
type Speed uint8

// USB port speeds
const (
	HighSpeed Speed = 0
	FullSpeed Speed = 1
	LowSpeed  Speed = 2
	// gateware dependent, reserved
	SuperSpeed Speed = 3
)

// String returns the speed mnemonic.
func (s Speed) String() string {
	switch s {
	case HighSpeed:
		return "high"
	case FullSpeed:
		return "full"
	case LowSpeed:
		return "low"
	case SuperSpeed:
		return "super"
	default:
		return "invalid"
	}
}

// MaxPacketSize returns the bulk endpoint maximum packet size for the port
// speed.
func (s Speed) MaxPacketSize() int {
	if s == HighSpeed {
		return 512
	}

	return 64
}

// Driver is the capability set shared by all device mode USB controllers on
// the board, each instance differs only in which peripheral sub-blocks it
// owns.
//
// The control state machine and the target controller class are written
// against this interface, the hardware implementation is provided by the
// soc/lunasoc/usb package.
type Driver interface {
	// Connect programs the port speed and enables the pull-ups, making
	// the device visible to the host.
	Connect(speed Speed)

	// Disconnect drops the pull-ups.
	Disconnect()

	// BusReset clears the device address and flushes all endpoint FIFOs,
	// it is invoked from the interrupt service routine on a host driven
	// bus reset.
	BusReset()

	// EnableInterrupts unmasks event generation for the controller and
	// its three endpoint sub-blocks.
	EnableInterrupts()

	// ReadControl reads a pending 8-byte SETUP packet, it returns the
	// number of bytes copied.
	ReadControl(buf []byte) int

	// Read drains the OUT FIFO for the endpoint until empty, it returns
	// the number of bytes copied. Bytes beyond the buffer length are
	// drained and discarded.
	Read(endpoint uint8, buf []byte) int

	// Write sends the buffer through an IN endpoint, segmenting it into
	// maximum packet size transfers. A short (or zero length) final
	// packet terminates the transfer on the host side. It returns the
	// number of bytes sent.
	Write(endpoint uint8, buf []byte) int

	// EpOutPrimeReceive re-arms the OUT endpoint to accept the next
	// packet. It must be called exactly once after every consumed OUT
	// packet.
	EpOutPrimeReceive(endpoint uint8)

	// EnableEndpointOut enables reception on an OUT endpoint.
	EnableEndpointOut(endpoint uint8)

	// StallEndpointIn sets the STALL handshake on an IN endpoint.
	StallEndpointIn(endpoint uint8)

	// StallEndpointOut sets the STALL handshake on an OUT endpoint.
	StallEndpointOut(endpoint uint8)

	// StallControlRequest stalls the control endpoint, the stall is
	// cleared by the hardware on the next SETUP packet.
	StallControlRequest()

	// ResetEndpointIn resets the IN endpoint FIFO, dropping any staged
	// data.
	ResetEndpointIn(endpoint uint8)

	// Ack completes the status stage of a control transfer: for
	// HostToDevice transfers a zero length packet is sent on the IN
	// endpoint, for DeviceToHost transfers the OUT endpoint is primed to
	// accept the zero length packet sent by the host.
	Ack(endpoint uint8, dir Direction)

	// SetAddress programs the device address filter.
	SetAddress(addr uint8)
}
