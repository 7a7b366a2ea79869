// LunaSoC eptri USB device controller driver
// https://github.com/mndza/cynthion
//
// Copyright (c) The Cynthion Developers
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package usb implements a driver for the LunaSoC `eptri` USB device
// controller, adopting the following reference specifications:
//   - USB2.0 - USB Specification Revision 2.0
//
// Each controller instance owns four memory-mapped peripheral sub-blocks:
// the device block and the EP_CONTROL (SETUP), EP_IN and EP_OUT FIFO
// interfaces. There is exactly one logical owner per controller; the
// interrupt service routine re-acquires the handle through the package
// level instances of the board package, initialized before interrupts are
// enabled.
package usb

import (
	"github.com/mndza/cynthion/bits"
	"github.com/mndza/cynthion/internal/reg"
	"github.com/mndza/cynthion/usb"
)

// Device block registers
const (
	USBx_CONNECT  = 0x00
	CONNECT_SPEED = 1
	CONNECT_EN    = 0

	USBx_SPEED = 0x04

	USBx_EV_STATUS  = 0x08
	USBx_EV_PENDING = 0x0c
	USBx_EV_ENABLE  = 0x10

	// bus reset event
	EV_RESET = 0
)

// EP_CONTROL (SETUP FIFO) block registers
const (
	EP_CONTROL_DATA = 0x00

	EP_CONTROL_EPNO = 0x04

	EP_CONTROL_HAVE = 0x08
	HAVE_HAVE       = 0

	EP_CONTROL_RESET = 0x0c
	RESET_FIFO       = 0

	EP_CONTROL_ADDRESS = 0x10
	ADDRESS_ADDR       = 0

	EP_CONTROL_EV_STATUS  = 0x14
	EP_CONTROL_EV_PENDING = 0x18
	EP_CONTROL_EV_ENABLE  = 0x1c
)

// EP_IN FIFO block registers
const (
	EP_IN_DATA = 0x00

	// writing the endpoint number arms transmission
	EP_IN_EPNO = 0x04

	EP_IN_RESET = 0x08

	EP_IN_STALL = 0x0c
	STALL_STALL = 0

	EP_IN_IDLE = 0x10
	IDLE_IDLE  = 0

	EP_IN_PID = 0x14

	EP_IN_EV_STATUS  = 0x18
	EP_IN_EV_PENDING = 0x1c
	EP_IN_EV_ENABLE  = 0x20
)

// EP_OUT FIFO block registers
const (
	EP_OUT_DATA = 0x00

	// endpoint the buffered data belongs to
	EP_OUT_DATA_EP = 0x04

	// endpoint selector for prime/enable/stall operations
	EP_OUT_EPNO = 0x08

	EP_OUT_HAVE = 0x0c

	EP_OUT_PRIME = 0x10
	PRIME_PRIME  = 0

	EP_OUT_ENABLE = 0x14
	ENABLE_ENABLE = 0

	EP_OUT_STALL = 0x18

	EP_OUT_RESET = 0x1c

	EP_OUT_PID = 0x20

	EP_OUT_EV_STATUS  = 0x24
	EP_OUT_EV_PENDING = 0x28
	EP_OUT_EV_ENABLE  = 0x2c
)

// IrqSource identifies one of the four interrupt sources of a controller.
type IrqSource int

// Controller interrupt sources, in ISR service priority order
const (
	IrqDevice IrqSource = iota
	IrqEpControl
	IrqEpIn
	IrqEpOut
)

var _ usb.Driver = (*USB)(nil)

// USB represents a USB device controller instance.
type USB struct {
	// Controller index
	Index int

	// Device block base register
	Base uint32
	// SETUP FIFO block base register
	EpControl uint32
	// IN FIFO block base register
	EpIn uint32
	// OUT FIFO block base register
	EpOut uint32

	// SoC event controller lines
	IRQ          int
	IRQEpControl int
	IRQEpIn      int
	IRQEpOut     int

	// port speed programmed at Connect
	speed usb.Speed

	// device block registers
	connect   uint32
	portSpeed uint32
	evPending [4]uint32
	evEnable  [4]uint32

	// SETUP FIFO registers
	ctrlData    uint32
	ctrlEpno    uint32
	ctrlHave    uint32
	ctrlReset   uint32
	ctrlAddress uint32

	// IN FIFO registers
	inData  uint32
	inEpno  uint32
	inReset uint32
	inStall uint32
	inIdle  uint32
	inPid   uint32

	// OUT FIFO registers
	outData   uint32
	outDataEp uint32
	outEpno   uint32
	outHave   uint32
	outPrime  uint32
	outEnable uint32
	outStall  uint32
	outReset  uint32
	outPid    uint32
}

// Init validates the instance and computes its register addresses.
func (hw *USB) Init() {
	if hw.Base == 0 || hw.EpControl == 0 || hw.EpIn == 0 || hw.EpOut == 0 {
		panic("invalid USB controller instance")
	}

	hw.connect = hw.Base + USBx_CONNECT
	hw.portSpeed = hw.Base + USBx_SPEED

	hw.evPending[IrqDevice] = hw.Base + USBx_EV_PENDING
	hw.evEnable[IrqDevice] = hw.Base + USBx_EV_ENABLE
	hw.evPending[IrqEpControl] = hw.EpControl + EP_CONTROL_EV_PENDING
	hw.evEnable[IrqEpControl] = hw.EpControl + EP_CONTROL_EV_ENABLE
	hw.evPending[IrqEpIn] = hw.EpIn + EP_IN_EV_PENDING
	hw.evEnable[IrqEpIn] = hw.EpIn + EP_IN_EV_ENABLE
	hw.evPending[IrqEpOut] = hw.EpOut + EP_OUT_EV_PENDING
	hw.evEnable[IrqEpOut] = hw.EpOut + EP_OUT_EV_ENABLE

	hw.ctrlData = hw.EpControl + EP_CONTROL_DATA
	hw.ctrlEpno = hw.EpControl + EP_CONTROL_EPNO
	hw.ctrlHave = hw.EpControl + EP_CONTROL_HAVE
	hw.ctrlReset = hw.EpControl + EP_CONTROL_RESET
	hw.ctrlAddress = hw.EpControl + EP_CONTROL_ADDRESS

	hw.inData = hw.EpIn + EP_IN_DATA
	hw.inEpno = hw.EpIn + EP_IN_EPNO
	hw.inReset = hw.EpIn + EP_IN_RESET
	hw.inStall = hw.EpIn + EP_IN_STALL
	hw.inIdle = hw.EpIn + EP_IN_IDLE
	hw.inPid = hw.EpIn + EP_IN_PID

	hw.outData = hw.EpOut + EP_OUT_DATA
	hw.outDataEp = hw.EpOut + EP_OUT_DATA_EP
	hw.outEpno = hw.EpOut + EP_OUT_EPNO
	hw.outHave = hw.EpOut + EP_OUT_HAVE
	hw.outPrime = hw.EpOut + EP_OUT_PRIME
	hw.outEnable = hw.EpOut + EP_OUT_ENABLE
	hw.outStall = hw.EpOut + EP_OUT_STALL
	hw.outReset = hw.EpOut + EP_OUT_RESET
	hw.outPid = hw.EpOut + EP_OUT_PID
}

// Connect programs the port speed and enables the pull-ups, making the
// device visible to the host.
func (hw *USB) Connect(speed usb.Speed) {
	hw.speed = speed

	// program the speed and the pull-ups in a single register update
	r := reg.Read(hw.connect)
	bits.SetN(&r, CONNECT_SPEED, 0b11, uint32(speed))
	bits.Set(&r, CONNECT_EN)
	reg.Write(hw.connect, r)
}

// Disconnect drops the pull-ups.
func (hw *USB) Disconnect() {
	reg.Clear(hw.connect, CONNECT_EN)
}

// Speed returns the current port speed.
func (hw *USB) Speed() usb.Speed {
	return usb.Speed(reg.Get(hw.portSpeed, 0, 0b11))
}

// BusReset returns the controller to its post reset state: address zero and
// all FIFOs flushed. It is invoked from the interrupt service routine when
// the host signals a bus reset.
func (hw *USB) BusReset() {
	reg.Write(hw.ctrlAddress, 0)

	reg.Set(hw.ctrlReset, RESET_FIFO)
	reg.Set(hw.inReset, RESET_FIFO)
	reg.Set(hw.outReset, RESET_FIFO)
}

// SetAddress programs the device address filter, packets addressed to other
// devices are ignored from this point on.
func (hw *USB) SetAddress(addr uint8) {
	reg.Write(hw.ctrlAddress, uint32(addr&0x7f))
}

// EnableInterrupts unmasks event generation for the controller and its
// three endpoint sub-blocks.
func (hw *USB) EnableInterrupts() {
	for _, addr := range hw.evEnable {
		reg.Set(addr, 0)
	}
}

// IsPending returns whether the argument interrupt source has a pending
// event.
func (hw *USB) IsPending(src IrqSource) bool {
	return reg.Read(hw.evPending[src]) != 0
}

// ClearPending acknowledges the argument interrupt source, the pending
// register is write-one-to-clear.
func (hw *USB) ClearPending(src IrqSource) {
	reg.ClearPending(hw.evPending[src])
}

// SetupEndpoint returns the endpoint number of the pending SETUP packet.
func (hw *USB) SetupEndpoint() uint8 {
	return uint8(reg.Read(hw.ctrlEpno) & 0xf)
}

// InEndpoint returns the endpoint number of the completed IN transfer.
func (hw *USB) InEndpoint() uint8 {
	return uint8(reg.Read(hw.inEpno) & 0xf)
}

// OutEndpoint returns the endpoint number the buffered OUT data belongs to.
func (hw *USB) OutEndpoint() uint8 {
	return uint8(reg.Read(hw.outDataEp) & 0xf)
}
