// Moondancer firmware
// https://github.com/mndza/cynthion
//
// Copyright (c) The Cynthion Developers
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago

// The moondancer firmware exposes the Cynthion board to a host computer:
// the Aux port enumerates as a vendor device speaking the command and
// control protocol, the Target port emulates arbitrary USB devices under
// host direction.
package main

import (
	"log"

	"github.com/mndza/cynthion/board/cynthion"
	"github.com/mndza/cynthion/event"
	"github.com/mndza/cynthion/gcp"
	"github.com/mndza/cynthion/gcp/moondancer"
	"github.com/mndza/cynthion/riscv"
	"github.com/mndza/cynthion/soc/lunasoc"
	hal "github.com/mndza/cynthion/soc/lunasoc/usb"
	"github.com/mndza/cynthion/usb"
)

// deviceSpeed is the Aux port speed, programmed at connect.
const deviceSpeed = usb.HighSpeed

var eventQueue event.Queue

type firmware struct {
	usb1 *hal.USB

	control    *usb.Control
	dispatcher *gcp.Dispatcher
	core       *gcp.Core
	moondancer *moondancer.Moondancer
}

func main() {
	// take peripherals
	cynthion.Take()

	// initialize logging
	log.SetFlags(0)
	log.SetOutput(cynthion.UART1)
	log.Printf("%s %s", manufacturer, product)
	log.Printf("Logging initialized")

	// initialize debug pins
	for line := 0; line < 8; line++ {
		cynthion.GPIOA.EnableOutput(line)
		cynthion.GPIOB.EnableOutput(line)
	}

	cpu := &riscv.CPU{}
	cpu.Init()
	cpu.SetExceptionHandler(trapHandler)

	// the queue must be ready before any interrupt can fire
	eventQueue.Init()

	fw := newFirmware()
	fw.initialize(cpu)

	// the main loop does not return
	fw.mainLoop()

	panic("firmware exited unexpectedly in main loop")
}

func newFirmware() *firmware {
	// Aux port control endpoint
	control := usb.NewControl(0, descriptors())

	// protocol classes
	core := gcp.NewCore(gcp.BoardInformation{
		BoardID:       cynthion.BOARD_ID,
		VersionString: cynthion.VERSION,
		PartID:        cynthion.PartID(),
		SerialNumber:  cynthion.SerialNumber(),
	})
	md := moondancer.New(cynthion.USB0)

	classes := gcp.Classes{
		core.Class(),
		gcp.SelftestClass(),
		md.Class(),
	}
	core.Register(classes)

	return &firmware{
		usb1:       cynthion.USB1,
		control:    control,
		dispatcher: gcp.NewDispatcher(classes),
		core:       core,
		moondancer: md,
	}
}

func (fw *firmware) initialize(cpu *riscv.CPU) {
	// leds: starting up
	cynthion.LEDS.Write(1 << 2)

	// connect the Aux port
	fw.usb1.Connect(deviceSpeed)
	log.Printf("Connected usb1 device")

	// All interrupt sources must be configured before any of them can
	// fire: global enable first, then the per-source event controller
	// lines, then the per-controller event unmask, last.
	cpu.EnableInterrupts()
	cpu.EnableExternalInterrupts()

	lunasoc.EnableInterrupt(cynthion.USB1_IRQ)
	lunasoc.EnableInterrupt(cynthion.USB1_EP_CONTROL_IRQ)
	lunasoc.EnableInterrupt(cynthion.USB1_EP_IN_IRQ)
	lunasoc.EnableInterrupt(cynthion.USB1_EP_OUT_IRQ)

	lunasoc.EnableInterrupt(cynthion.USB0_IRQ)
	lunasoc.EnableInterrupt(cynthion.USB0_EP_CONTROL_IRQ)
	lunasoc.EnableInterrupt(cynthion.USB0_EP_IN_IRQ)
	lunasoc.EnableInterrupt(cynthion.USB0_EP_OUT_IRQ)

	fw.usb1.EnableInterrupts()
}

func (fw *firmware) mainLoop() {
	var maxQueueLength int
	var queueLength int
	var counter int

	log.Printf("Peripherals initialized, entering main loop")

	for {
		// leds: main loop is responsive
		cynthion.LEDS.Write(uint32(counter % 0xff))

		if queueLength > maxQueueLength {
			maxQueueLength = queueLength
			log.Printf("max_queue_length: %d", maxQueueLength)
		}

		queueLength = 0

		for {
			ev, ok := eventQueue.Dequeue()

			if !ok {
				break
			}

			counter += 1
			queueLength += 1

			// leds: event loop is active
			cynthion.LEDS.Write(1 << 0)

			fw.handleEvent(ev)
		}
	}
}

func (fw *firmware) handleEvent(ev event.InterruptEvent) {
	switch ev.Type {
	case event.EventErrorMessage:
		log.Printf("MachineExternal error: %s", ev.Message)
	case event.EventUnknownInterrupt:
		log.Printf("unknown interrupt, pending %#.8x", ev.Pending)
	case event.EventUsb:
		switch ev.Interface {
		case event.Aux:
			if ev.Usb.Type != usb.EventBusReset && ev.Usb.Endpoint != 0 {
				log.Printf("unhandled Aux event: %v", ev.Usb)
				return
			}

			// vendor requests are not handled by the control
			// state machine
			if setup := fw.control.HandleEvent(fw.usb1, ev.Usb); setup != nil {
				fw.dispatcher.HandleVendorRequest(fw.usb1, *setup, fw.control.Data())
			}
		case event.Target:
			// target events are surfaced to the host verbatim
			fw.moondancer.DispatchEvent(ev.Usb)
		}
	}
}
