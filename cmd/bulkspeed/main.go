// Bulk throughput test firmware
// https://github.com/mndza/cynthion
//
// Copyright (c) The Cynthion Developers
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago

// The bulkspeed firmware enumerates the Aux port as a vendor device with a
// bulk endpoint pair and moves as much traffic as the link allows: EP1 IN
// streams a fixed pattern, EP1 OUT drains whatever the host sends. It
// exercises the device controller driver without the command protocol
// layer.
package main

import (
	"log"

	"github.com/mndza/cynthion/board/cynthion"
	"github.com/mndza/cynthion/event"
	"github.com/mndza/cynthion/riscv"
	"github.com/mndza/cynthion/soc/lunasoc"
	hal "github.com/mndza/cynthion/soc/lunasoc/usb"
	"github.com/mndza/cynthion/usb"
)

const deviceSpeed = usb.HighSpeed

// test endpoint pair
const testEndpoint = 1

var eventQueue event.Queue

var testData [512]byte

func trapHandler() {
	if irq, code := riscv.MachineCause(); irq && code == riscv.MachineExternalInterrupt {
		machineExternal()
		return
	}

	riscv.DefaultExceptionHandler()
}

func machineExternal() {
	usb1 := cynthion.USB1

	dispatch := func(ev event.InterruptEvent) {
		if !eventQueue.TryEnqueue(ev) {
			panic("MachineExternal - event queue overflow")
		}
	}

	switch {
	case lunasoc.IsPending(cynthion.USB1_IRQ):
		usb1.BusReset()
		usb1.ClearPending(hal.IrqDevice)
		dispatch(event.Usb(event.Aux, usb.Event{Type: usb.EventBusReset}))
	case lunasoc.IsPending(cynthion.USB1_EP_CONTROL_IRQ):
		endpoint := usb1.SetupEndpoint()
		dispatch(event.Usb(event.Aux, usb.Event{Type: usb.EventReceiveControl, Endpoint: endpoint}))
		usb1.ClearPending(hal.IrqEpControl)
	case lunasoc.IsPending(cynthion.USB1_EP_IN_IRQ):
		endpoint := usb1.InEndpoint()
		usb1.ClearPending(hal.IrqEpIn)
		dispatch(event.Usb(event.Aux, usb.Event{Type: usb.EventSendComplete, Endpoint: endpoint}))
	case lunasoc.IsPending(cynthion.USB1_EP_OUT_IRQ):
		endpoint := usb1.OutEndpoint()
		dispatch(event.Usb(event.Aux, usb.Event{Type: usb.EventReceivePacket, Endpoint: endpoint}))
		usb1.ClearPending(hal.IrqEpOut)
	default:
		dispatch(event.UnknownInterrupt(lunasoc.Pending()))
	}
}

func main() {
	cynthion.Take()

	log.SetFlags(0)
	log.SetOutput(cynthion.UART1)
	log.Printf("Logging initialized")

	cpu := &riscv.CPU{}
	cpu.Init()
	cpu.SetExceptionHandler(trapHandler)

	eventQueue.Init()

	for i := range testData {
		testData[i] = byte(i % 256)
	}

	usb1 := cynthion.USB1
	control := usb.NewControl(0, descriptors())

	usb1.Connect(deviceSpeed)
	log.Printf("Connected usb1 device")

	cpu.EnableInterrupts()
	cpu.EnableExternalInterrupts()

	lunasoc.EnableInterrupt(cynthion.USB1_IRQ)
	lunasoc.EnableInterrupt(cynthion.USB1_EP_CONTROL_IRQ)
	lunasoc.EnableInterrupt(cynthion.USB1_EP_IN_IRQ)
	lunasoc.EnableInterrupt(cynthion.USB1_EP_OUT_IRQ)

	usb1.EnableInterrupts()

	var configured bool
	var rxBytes, rxPackets, txPackets int
	var rxBuffer [512]byte

	log.Printf("Peripherals initialized, entering main loop")

	for {
		ev, ok := eventQueue.Dequeue()

		if !ok {
			continue
		}

		if ev.Type != event.EventUsb {
			log.Printf("unhandled event: %v", ev)
			continue
		}

		if ev.Usb.Type == usb.EventBusReset || ev.Usb.Endpoint == 0 {
			control.HandleEvent(usb1, ev.Usb)

			// once configured, start the test endpoints
			if !configured && control.Configuration() == 1 {
				configured = true

				usb1.EpOutPrimeReceive(testEndpoint)
				usb1.Write(testEndpoint, testData[:])
				txPackets += 1
			}

			if ev.Usb.Type == usb.EventBusReset {
				configured = false
				rxBytes, rxPackets, txPackets = 0, 0, 0
			}

			continue
		}

		switch ev.Usb.Type {
		case usb.EventReceivePacket:
			rxBytes += usb1.Read(testEndpoint, rxBuffer[:])
			rxPackets += 1
			usb1.EpOutPrimeReceive(testEndpoint)

			if rxPackets%1024 == 0 {
				log.Printf("rx: %d packets, %d bytes", rxPackets, rxBytes)
			}
		case usb.EventSendComplete:
			usb1.Write(testEndpoint, testData[:])
			txPackets += 1
		}
	}
}
