// RISC-V processor support
// https://github.com/mndza/cynthion
//
// Copyright (c) The Cynthion Developers
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago

package riscv

import (
	"unsafe"
)

// RISC-V exception codes (non-interrupt)
// (Table 3.6 - Volume II: RISC-V Privileged Architectures V20211203).
const (
	InstructionAddressMisaligned = 0
	InstructionAccessFault       = 1
	IllegalInstruction           = 2
	Breakpoint                   = 3
	LoadAddressMisaligned        = 4
	LoadAccessFault              = 5
	StoreAddressMisaligned       = 6
	StoreAccessFault             = 7
	EnvironmentCallFromU         = 8
	EnvironmentCallFromS         = 9
	EnvironmentCallFromM         = 11
	InstructionPageFault         = 12
	LoadPageFault                = 13
	StorePageFault               = 15
)

// RISC-V interrupt codes
const (
	MachineSoftwareInterrupt = 3
	MachineTimerInterrupt    = 7
	MachineExternalInterrupt = 11
)

// defined in exception.s
func set_mtvec(addr uint64)
func read_mepc() uint64
func read_mcause() uint64

// ExceptionHandler is the function vectored on a CPU trap.
type ExceptionHandler func()

func vector(fn ExceptionHandler) uint64 {
	return **((**uint64)(unsafe.Pointer(&fn)))
}

// MachineCause returns whether the trap being serviced is an interrupt and
// its exception or interrupt code.
func MachineCause() (irq bool, code int) {
	mcause := read_mcause()
	size := XLEN - 1

	irq = (mcause >> size) == 1
	code = int(mcause) & ^(1 << size)

	return
}

// DefaultExceptionHandler handles an exception by printing the exception
// program counter and trap cause before panicking.
func DefaultExceptionHandler() {
	irq, code := MachineCause()

	print("exception: pc:", int(read_mepc()), " interrupt:", irq, " code:", code, "\n")
	panic("unhandled exception")
}

// SetExceptionHandler updates the CPU trap vector with the address of the
// argument function.
func (cpu *CPU) SetExceptionHandler(fn ExceptionHandler) {
	set_mtvec(vector(fn))
}
