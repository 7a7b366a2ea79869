// LunaSoC UART driver
// https://github.com/mndza/cynthion
//
// Copyright (c) The Cynthion Developers
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package uart implements a driver for the LunaSoC serial controller, the
// firmware logging sink.
package uart

import (
	"github.com/mndza/cynthion/internal/reg"
)

// UART registers
const (
	UART_DEFAULT_BAUDRATE = 115200

	UARTx_TX_DATA = 0x0000
	TX_DATA_DATA  = 0

	UARTx_TX_RDY = 0x0004
	TX_RDY_READY = 0

	UARTx_RX_DATA = 0x0008
	RX_DATA_DATA  = 0

	UARTx_RX_AVAIL = 0x000c
	RX_AVAIL_AVAIL = 0

	UARTx_DIVISOR = 0x0010

	UARTx_EV_STATUS  = 0x0014
	UARTx_EV_PENDING = 0x0018
	UARTx_EV_ENABLE  = 0x001c
)

// UART represents a serial port instance.
type UART struct {
	// Controller index
	Index int
	// Base register
	Base uint32
	// Clock frequency of the SoC, required to program the baud rate
	// divisor
	Clock uint32

	// control registers
	txdata  uint32
	txrdy   uint32
	rxdata  uint32
	rxavail uint32
	divisor uint32
}

// Init initializes and enables the UART.
func (hw *UART) Init() {
	if hw.Base == 0 {
		panic("invalid UART controller instance")
	}

	hw.txdata = hw.Base + UARTx_TX_DATA
	hw.txrdy = hw.Base + UARTx_TX_RDY
	hw.rxdata = hw.Base + UARTx_RX_DATA
	hw.rxavail = hw.Base + UARTx_RX_AVAIL
	hw.divisor = hw.Base + UARTx_DIVISOR

	if hw.Clock != 0 {
		reg.Write(hw.divisor, hw.Clock/UART_DEFAULT_BAUDRATE)
	}
}

// Tx transmits a single character to the serial port.
func (hw *UART) Tx(c byte) {
	for !reg.IsSet(hw.txrdy, TX_RDY_READY) {
	}

	reg.Write(hw.txdata, uint32(c))
}

// Rx receives a single character from the serial port, the boolean return
// is false when no character is available.
func (hw *UART) Rx() (c byte, valid bool) {
	if !reg.IsSet(hw.rxavail, RX_AVAIL_AVAIL) {
		return
	}

	return byte(reg.Read(hw.rxdata) & 0xff), true
}

// Write transmits a byte array to the serial port, it implements io.Writer
// so the instance can back the `log` package.
func (hw *UART) Write(buf []byte) (n int, _ error) {
	for n = 0; n < len(buf); n++ {
		hw.Tx(buf[n])
	}

	return
}
