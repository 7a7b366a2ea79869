// RISC-V processor support
// https://github.com/mndza/cynthion
//
// Copyright (c) The Cynthion Developers
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago

// Package riscv provides support for the soft RISC-V core the firmware runs
// on, machine mode only.
//
// This package is only meant to be used with `GOOS=tamago GOARCH=riscv64` as
// supported by the TamaGo framework for bare metal Go on RISC-V SoCs.
package riscv

import "runtime"

// XLEN is the register width of the supported cores.
const XLEN = 64

// CPU instance
type CPU struct{}

// defined in riscv.s
func halt()
func mstatus_set_mie()
func mstatus_clear_mie()
func mie_set_mext()

// Init performs initialization of the core instance in machine mode.
func (cpu *CPU) Init() {
	runtime.Exit = halt

	cpu.SetExceptionHandler(DefaultExceptionHandler)
}

// EnableInterrupts sets the machine interrupt enable bit (mstatus.MIE).
func (cpu *CPU) EnableInterrupts() {
	mstatus_set_mie()
}

// DisableInterrupts clears the machine interrupt enable bit (mstatus.MIE).
func (cpu *CPU) DisableInterrupts() {
	mstatus_clear_mie()
}

// EnableExternalInterrupts sets the machine external interrupt enable bit
// (mie.MEXT).
func (cpu *CPU) EnableExternalInterrupts() {
	mie_set_mext()
}
