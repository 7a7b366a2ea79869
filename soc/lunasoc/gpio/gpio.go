// LunaSoC GPIO driver
// https://github.com/mndza/cynthion
//
// Copyright (c) The Cynthion Developers
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package gpio implements a driver for the LunaSoC general purpose I/O
// controllers, used on this board for the user LEDs and the debug pins.
package gpio

import (
	"github.com/mndza/cynthion/internal/reg"
)

// GPIO registers
const (
	GPIOx_MODE   = 0x00
	GPIOx_OUTPUT = 0x04
	GPIOx_INPUT  = 0x08

	MODE_OUTPUT = 0b01
)

// GPIO represents a GPIO controller instance.
type GPIO struct {
	// Controller index
	Index int
	// Base register
	Base uint32

	// control registers
	mode   uint32
	output uint32
	input  uint32
}

// Init initializes a GPIO controller instance.
func (hw *GPIO) Init() {
	if hw.Base == 0 {
		panic("invalid GPIO controller instance")
	}

	hw.mode = hw.Base + GPIOx_MODE
	hw.output = hw.Base + GPIOx_OUTPUT
	hw.input = hw.Base + GPIOx_INPUT
}

// EnableOutput configures the argument line as an output.
func (hw *GPIO) EnableOutput(line int) {
	reg.SetN(hw.mode, line*2, 0b11, MODE_OUTPUT)
}

// Set drives the argument line high.
func (hw *GPIO) Set(line int) {
	reg.Set(hw.output, line)
}

// Clear drives the argument line low.
func (hw *GPIO) Clear(line int) {
	reg.Clear(hw.output, line)
}

// Write drives all lines at once, the spinner and heartbeat patterns of the
// firmware main loop use this.
func (hw *GPIO) Write(val uint32) {
	reg.Write(hw.output, val)
}

// Get returns the argument line level.
func (hw *GPIO) Get(line int) bool {
	return reg.IsSet(hw.input, line)
}
