// LunaSoC configuration and support
// https://github.com/mndza/cynthion
//
// Copyright (c) The Cynthion Developers
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package lunasoc provides support to Go bare metal firmware on the LunaSoC
// soft core, a VexRiscv based System-on-Chip synthesized on the Cynthion
// FPGA together with its USB device controllers.
//
// This package is only meant to be used with `GOOS=tamago GOARCH=riscv64` as
// supported by the TamaGo framework for bare metal Go on RISC-V SoCs.
package lunasoc

import (
	"github.com/mndza/cynthion/internal/reg"
)

// Interrupt controller registers
const (
	// SoC event controller, one line per peripheral
	IRQCTRL_BASE = 0xf0000000

	IRQCTRL_PENDING = 0x00
	IRQCTRL_ENABLE  = 0x04
)

// EnableInterrupt unmasks the argument interrupt line at the SoC event
// controller.
func EnableInterrupt(irq int) {
	reg.Set(IRQCTRL_BASE+IRQCTRL_ENABLE, irq)
}

// DisableInterrupt masks the argument interrupt line at the SoC event
// controller.
func DisableInterrupt(irq int) {
	reg.Clear(IRQCTRL_BASE+IRQCTRL_ENABLE, irq)
}

// IsPending returns whether the argument interrupt line is pending.
func IsPending(irq int) bool {
	return reg.IsSet(IRQCTRL_BASE+IRQCTRL_PENDING, irq)
}

// Pending returns the raw pending line mask.
func Pending() uint32 {
	return reg.Read(IRQCTRL_BASE + IRQCTRL_PENDING)
}
