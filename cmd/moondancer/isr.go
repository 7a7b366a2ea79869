// Moondancer firmware
// https://github.com/mndza/cynthion
//
// Copyright (c) The Cynthion Developers
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago

package main

import (
	"github.com/mndza/cynthion/board/cynthion"
	"github.com/mndza/cynthion/event"
	"github.com/mndza/cynthion/riscv"
	"github.com/mndza/cynthion/soc/lunasoc"
	hal "github.com/mndza/cynthion/soc/lunasoc/usb"
	"github.com/mndza/cynthion/usb"
)

// fatEvents selects whether the ISR pre-reads Aux SETUP packets into the
// event (lower main loop latency) or leaves the FIFO for the main loop to
// drain (fewer cycles at interrupt context). Target SETUP packets always
// stay in the FIFO, the host collects them with the read_setup verb.
const fatEvents = true

// trapHandler is vectored on every machine trap, the runtime restores
// context and returns from the trap once the handler completes.
func trapHandler() {
	if irq, code := riscv.MachineCause(); irq && code == riscv.MachineExternalInterrupt {
		machineExternal()
		return
	}

	riscv.DefaultExceptionHandler()
}

// dispatchEvent enqueues an event for the main loop, queue overflow is
// unrecoverable.
func dispatchEvent(ev event.InterruptEvent) {
	if !eventQueue.TryEnqueue(ev) {
		panic("MachineExternal - event queue overflow")
	}
}

// machineExternal services the board interrupt sources in a fixed priority
// order, bus reset first. It never blocks and never allocates: each source
// is translated to an event, acknowledged write-one-to-clear and queued.
func machineExternal() {
	switch {
	// - usb1 Aux --
	case lunasoc.IsPending(cynthion.USB1_IRQ):
		serviceBusReset(cynthion.USB1, event.Aux)
	case lunasoc.IsPending(cynthion.USB1_EP_CONTROL_IRQ):
		serviceSetup(cynthion.USB1, event.Aux)
	case lunasoc.IsPending(cynthion.USB1_EP_IN_IRQ):
		serviceSendComplete(cynthion.USB1, event.Aux)
	case lunasoc.IsPending(cynthion.USB1_EP_OUT_IRQ):
		serviceReceivePacket(cynthion.USB1, event.Aux)

	// - usb0 Target --
	case lunasoc.IsPending(cynthion.USB0_IRQ):
		serviceBusReset(cynthion.USB0, event.Target)
	case lunasoc.IsPending(cynthion.USB0_EP_CONTROL_IRQ):
		serviceSetup(cynthion.USB0, event.Target)
	case lunasoc.IsPending(cynthion.USB0_EP_IN_IRQ):
		serviceSendComplete(cynthion.USB0, event.Target)
	case lunasoc.IsPending(cynthion.USB0_EP_OUT_IRQ):
		serviceReceivePacket(cynthion.USB0, event.Target)

	default:
		dispatchEvent(event.UnknownInterrupt(lunasoc.Pending()))
	}
}

func serviceBusReset(hw *hal.USB, iface event.Interface) {
	hw.BusReset()
	hw.ClearPending(hal.IrqDevice)

	dispatchEvent(event.Usb(iface, usb.Event{Type: usb.EventBusReset}))
}

func serviceSetup(hw *hal.USB, iface event.Interface) {
	endpoint := hw.SetupEndpoint()

	if fatEvents && iface == event.Aux {
		var buf [8]byte
		hw.ReadControl(buf[:])

		dispatchEvent(event.Usb(iface, usb.Event{
			Type:     usb.EventReceiveSetupPacket,
			Endpoint: endpoint,
			Setup:    usb.ParseSetupPacket(buf),
		}))
	} else {
		dispatchEvent(event.Usb(iface, usb.Event{
			Type:     usb.EventReceiveControl,
			Endpoint: endpoint,
		}))
	}

	hw.ClearPending(hal.IrqEpControl)
}

func serviceSendComplete(hw *hal.USB, iface event.Interface) {
	endpoint := hw.InEndpoint()
	hw.ClearPending(hal.IrqEpIn)

	dispatchEvent(event.Usb(iface, usb.Event{
		Type:     usb.EventSendComplete,
		Endpoint: endpoint,
	}))
}

func serviceReceivePacket(hw *hal.USB, iface event.Interface) {
	endpoint := hw.OutEndpoint()

	dispatchEvent(event.Usb(iface, usb.Event{
		Type:     usb.EventReceivePacket,
		Endpoint: endpoint,
	}))

	hw.ClearPending(hal.IrqEpOut)
}
