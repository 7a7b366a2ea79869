// LunaSoC eptri USB device controller driver
// https://github.com/mndza/cynthion
//
// Copyright (c) The Cynthion Developers
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package usb

import (
	"github.com/mndza/cynthion/internal/reg"
	"github.com/mndza/cynthion/usb"
)

// ReadControl reads a pending SETUP packet from the EP_CONTROL FIFO, it
// returns the number of bytes copied. The FIFO is drained even when the
// buffer is shorter than its contents.
func (hw *USB) ReadControl(buf []byte) (n int) {
	for reg.IsSet(hw.ctrlHave, HAVE_HAVE) {
		b := byte(reg.Read(hw.ctrlData) & 0xff)

		if n < len(buf) {
			buf[n] = b
		}

		n += 1
	}

	if n > len(buf) {
		n = len(buf)
	}

	return
}

// Read drains the OUT FIFO until empty, it returns the number of bytes
// copied. Bytes beyond the buffer length are drained and discarded, the
// FIFO must be emptied for the endpoint to accept further traffic.
//
// The endpoint is not re-armed, callers follow up with EpOutPrimeReceive
// once the data is consumed.
func (hw *USB) Read(endpoint uint8, buf []byte) (n int) {
	for reg.IsSet(hw.outHave, HAVE_HAVE) {
		b := byte(reg.Read(hw.outData) & 0xff)

		if n < len(buf) {
			buf[n] = b
		}

		n += 1
	}

	if n > len(buf) {
		n = len(buf)
	}

	return
}

// Write sends the buffer through an IN endpoint, segmented in maximum
// packet size transfers, blocking until each packet has been handed to the
// FIFO. An empty buffer arms a zero length packet.
func (hw *USB) Write(endpoint uint8, buf []byte) int {
	max := usb.ControlMaxPacketSize

	if endpoint != 0 {
		max = hw.speed.MaxPacketSize()
	}

	sent := 0

	// loop condition accounts for zero length transfers
	for more := true; more; more = sent < len(buf) {
		chunk := len(buf) - sent

		if chunk > max {
			chunk = max
		}

		// wait for a previous transfer to drain
		reg.Wait(hw.inIdle, IDLE_IDLE, 1, 1)

		for i := 0; i < chunk; i++ {
			reg.Write(hw.inData, uint32(buf[sent+i]))
		}

		// arm transmission
		reg.Write(hw.inEpno, uint32(endpoint&0xf))

		sent += chunk
	}

	return sent
}

// EpOutPrimeReceive re-arms the OUT endpoint to accept the next packet. It
// must be called exactly once after every consumed OUT packet, the endpoint
// NAKs the host otherwise.
func (hw *USB) EpOutPrimeReceive(endpoint uint8) {
	reg.Write(hw.outEpno, uint32(endpoint&0xf))
	reg.Set(hw.outPrime, PRIME_PRIME)
	reg.Set(hw.outEnable, ENABLE_ENABLE)
}

// EnableEndpointOut enables reception on an OUT endpoint, clearing a
// pending STALL handshake.
func (hw *USB) EnableEndpointOut(endpoint uint8) {
	reg.Write(hw.outEpno, uint32(endpoint&0xf))
	reg.Set(hw.outEnable, ENABLE_ENABLE)
}

// StallEndpointIn sets the STALL handshake on an IN endpoint.
func (hw *USB) StallEndpointIn(endpoint uint8) {
	// set the handshake before the endpoint selector, writing the
	// selector arms the endpoint
	reg.Set(hw.inStall, STALL_STALL)
	reg.Write(hw.inEpno, uint32(endpoint&0xf))
}

// StallEndpointOut sets the STALL handshake on an OUT endpoint.
func (hw *USB) StallEndpointOut(endpoint uint8) {
	reg.Write(hw.outEpno, uint32(endpoint&0xf))
	reg.Set(hw.outStall, STALL_STALL)
}

// StallControlRequest stalls the control endpoint in both directions, the
// hardware clears the handshake on the next SETUP packet.
func (hw *USB) StallControlRequest() {
	hw.StallEndpointIn(0)
	hw.StallEndpointOut(0)
}

// ResetEndpointIn resets the IN FIFO, dropping staged data and clearing a
// pending STALL handshake together with the data toggle.
func (hw *USB) ResetEndpointIn(endpoint uint8) {
	reg.Write(hw.inEpno, uint32(endpoint&0xf))
	reg.Set(hw.inReset, RESET_FIFO)
}

// Ack completes the status stage of a control transfer: a zero length
// packet is sent for host-to-device transfers, for device-to-host transfers
// the OUT endpoint is primed to accept the zero length packet sent by the
// host.
func (hw *USB) Ack(endpoint uint8, dir usb.Direction) {
	if dir == usb.HostToDevice {
		hw.Write(endpoint, nil)
	} else {
		hw.EpOutPrimeReceive(endpoint)
	}
}
