// Cynthion board support
// https://github.com/mndza/cynthion
//
// Copyright (c) The Cynthion Developers
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package cynthion provides hardware initialization for the Cynthion USB
// multitool board, a LunaSoC soft core with two device mode USB controllers:
// USB0 (Target) and USB1 (Aux).
package cynthion

import (
	"sync"

	"github.com/mndza/cynthion/soc/lunasoc/gpio"
	"github.com/mndza/cynthion/soc/lunasoc/uart"
	"github.com/mndza/cynthion/soc/lunasoc/usb"
)

// SoC clock frequency (Hz)
const CLOCK = 60000000

// Peripheral base registers
const (
	UART1_BASE = 0xf0001000

	LEDS_BASE  = 0xf0002000
	GPIOA_BASE = 0xf0002800
	GPIOB_BASE = 0xf0002c00

	// Target port
	USB0_BASE            = 0xf0004000
	USB0_EP_CONTROL_BASE = 0xf0004800
	USB0_EP_IN_BASE      = 0xf0005000
	USB0_EP_OUT_BASE     = 0xf0005800

	// Aux port
	USB1_BASE            = 0xf0006000
	USB1_EP_CONTROL_BASE = 0xf0006800
	USB1_EP_IN_BASE      = 0xf0007000
	USB1_EP_OUT_BASE     = 0xf0007800
)

// SoC event controller lines
const (
	TIMER_IRQ = 0
	UART1_IRQ = 1

	USB0_IRQ            = 2
	USB0_EP_CONTROL_IRQ = 3
	USB0_EP_IN_IRQ      = 4
	USB0_EP_OUT_IRQ     = 5

	USB1_IRQ            = 6
	USB1_EP_CONTROL_IRQ = 7
	USB1_EP_IN_IRQ      = 8
	USB1_EP_OUT_IRQ     = 9
)

// Board identity served by the protocol core class
const (
	// board id assigned to Cynthion in the host side client
	BOARD_ID = 0x10
	// firmware release
	VERSION = "v2024.0.1"
	// FPGA part
	PART_ID = "LFE5U-12"
)

// Peripheral instances
var (
	// Serial console
	UART1 = &uart.UART{
		Index: 1,
		Base:  UART1_BASE,
		Clock: CLOCK,
	}

	// User LEDs
	LEDS = &gpio.GPIO{
		Index: 0,
		Base:  LEDS_BASE,
	}

	// Debug pins (PMOD A/B)
	GPIOA = &gpio.GPIO{
		Index: 1,
		Base:  GPIOA_BASE,
	}

	GPIOB = &gpio.GPIO{
		Index: 2,
		Base:  GPIOB_BASE,
	}

	// Target port USB controller
	USB0 = &usb.USB{
		Index:        0,
		Base:         USB0_BASE,
		EpControl:    USB0_EP_CONTROL_BASE,
		EpIn:         USB0_EP_IN_BASE,
		EpOut:        USB0_EP_OUT_BASE,
		IRQ:          USB0_IRQ,
		IRQEpControl: USB0_EP_CONTROL_IRQ,
		IRQEpIn:      USB0_EP_IN_IRQ,
		IRQEpOut:     USB0_EP_OUT_IRQ,
	}

	// Aux port USB controller
	USB1 = &usb.USB{
		Index:        1,
		Base:         USB1_BASE,
		EpControl:    USB1_EP_CONTROL_BASE,
		EpIn:         USB1_EP_IN_BASE,
		EpOut:        USB1_EP_OUT_BASE,
		IRQ:          USB1_IRQ,
		IRQEpControl: USB1_EP_CONTROL_IRQ,
		IRQEpIn:      USB1_EP_IN_IRQ,
		IRQEpOut:     USB1_EP_OUT_IRQ,
	}
)

var taken bool
var mux sync.Mutex

// Take claims exclusive ownership of the board peripherals and initializes
// their register maps, it panics when called more than once.
//
// The instances are reachable through the package level variables, which
// is how interrupt service routines re-acquire their handles after Take has
// completed.
func Take() {
	mux.Lock()
	defer mux.Unlock()

	if taken {
		panic("board peripherals already taken")
	}

	taken = true

	UART1.Init()
	LEDS.Init()
	GPIOA.Init()
	GPIOB.Init()
	USB0.Init()
	USB1.Init()
}

// PartID returns the FPGA part identifier.
func PartID() (id [8]byte) {
	copy(id[:], PART_ID)
	return
}

// SerialNumber returns the board serial number.
//
// TODO read the FPGA device DNA once the gateware exposes it
func SerialNumber() (serial [16]byte) {
	copy(serial[:], "0000000000000000")
	return
}
