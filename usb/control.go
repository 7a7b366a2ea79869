// USB control endpoint state machine
// https://github.com/mndza/cynthion
//
// Copyright (c) The Cynthion Developers
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package usb

import "log"

// Control endpoint limits
const (
	// ControlMaxPacketSize is the EP0 maximum packet size, common to all
	// supported speeds.
	ControlMaxPacketSize = 64

	// ControlDataSize bounds the buffered OUT data stage of class and
	// vendor requests.
	ControlDataSize = 4096
)

type controlState int

const (
	// no transfer in progress
	stateIdle controlState = iota
	// device is sending the data stage, one packet per SendComplete
	stateDataIn
	// data stage sent, waiting for the host status stage zero length packet
	stateStatusOut
	// device is buffering a host driven data stage
	stateDataOut
	// device status stage zero length packet queued on the IN endpoint
	stateStatusIn
)

// Control implements the USB 2.0 Chapter 9 state machine for a control
// endpoint: standard enumeration, descriptor service and address assignment.
//
// Class and vendor requests are not interpreted, they are returned to the
// caller by HandleEvent once any host driven data stage has been buffered
// (see Data).
//
// The driver is passed into each HandleEvent call rather than stored, the
// state machine holds no reference to the controller.
type Control struct {
	endpoint    uint8
	descriptors *DescriptorSet

	state controlState
	setup SetupPacket

	address        uint8
	pendingAddress int
	configuration  uint8

	// IN data stage
	txBuf    []byte
	txOffset int
	txZLP    bool

	// buffered OUT data stage for class/vendor requests
	rxBuf      [ControlDataSize]byte
	rxLength   int
	rxReceived int
	rxExpected int
	rxChunk    [ControlMaxPacketSize]byte
}

// NewControl returns a control endpoint state machine serving the argument
// descriptor set, the configuration descriptor total lengths are recomputed
// before first use.
func NewControl(endpoint uint8, descriptors *DescriptorSet) *Control {
	descriptors.SetTotalLengths()

	return &Control{
		endpoint:       endpoint,
		descriptors:    descriptors,
		pendingAddress: -1,
	}
}

// Address returns the current device address.
func (c *Control) Address() uint8 {
	return c.address
}

// Configuration returns the configuration value selected by the host (0 or
// 1).
func (c *Control) Configuration() uint8 {
	return c.configuration
}

// Data returns the buffered OUT data stage of the most recent class or
// vendor request.
func (c *Control) Data() []byte {
	return c.rxBuf[0:c.rxLength]
}

// HandleEvent advances the state machine with a single controller event.
//
// Standard requests are handled internally. For class and vendor requests
// the SETUP packet is returned to the caller, after any host-to-device data
// stage has been buffered (see Data); the caller owns the remainder of the
// transfer.
func (c *Control) HandleEvent(hw Driver, ev Event) *SetupPacket {
	switch ev.Type {
	case EventBusReset:
		c.reset()
	case EventReceiveControl:
		var buf [8]byte

		if n := hw.ReadControl(buf[:]); n != len(buf) {
			log.Printf("usb: short setup packet (%d bytes)", n)
			hw.StallControlRequest()
			return nil
		}

		return c.handleSetup(hw, ParseSetupPacket(buf))
	case EventReceiveSetupPacket:
		return c.handleSetup(hw, ev.Setup)
	case EventReceivePacket:
		return c.receivePacket(hw)
	case EventSendComplete:
		c.sendComplete(hw)
	}

	return nil
}

// reset returns the machine to its bus reset state: Idle, address zero,
// deconfigured, any half-sent data dropped.
func (c *Control) reset() {
	c.state = stateIdle
	c.address = 0
	c.pendingAddress = -1
	c.configuration = 0
	c.txBuf = nil
	c.txOffset = 0
	c.txZLP = false
	c.rxLength = 0
	c.rxReceived = 0
	c.rxExpected = 0
}

func (c *Control) handleSetup(hw Driver, setup SetupPacket) *SetupPacket {
	// a new SETUP pre-empts any transfer in progress
	c.state = stateIdle
	c.txBuf = nil
	c.txZLP = false
	c.setup = setup

	if setup.Type() == RequestStandard {
		c.handleStandard(hw, setup)
		return nil
	}

	// class and vendor requests belong to the caller, buffer any
	// host driven data stage first
	if setup.Direction() == HostToDevice && setup.Length > 0 {
		c.rxLength = 0
		c.rxReceived = 0
		c.rxExpected = int(setup.Length)
		c.state = stateDataOut

		hw.EpOutPrimeReceive(c.endpoint)

		return nil
	}

	c.rxLength = 0
	packet := c.setup

	return &packet
}

func (c *Control) receivePacket(hw Driver) *SetupPacket {
	switch c.state {
	case stateDataOut:
		n := hw.Read(c.endpoint, c.rxChunk[:])

		if space := ControlDataSize - c.rxLength; space > 0 {
			m := n

			if m > space {
				m = space
			}

			copy(c.rxBuf[c.rxLength:], c.rxChunk[0:m])
			c.rxLength += m
		}

		c.rxReceived += n

		// a short packet also terminates the data stage
		if c.rxReceived >= c.rxExpected || n < ControlMaxPacketSize {
			hw.Ack(c.endpoint, HostToDevice)
			c.state = stateStatusIn

			packet := c.setup

			return &packet
		}

		hw.EpOutPrimeReceive(c.endpoint)
	case stateStatusOut:
		// host status stage zero length packet
		hw.Read(c.endpoint, nil)
		c.state = stateIdle
	default:
		// no host driven data stage is active, ignore
	}

	return nil
}

func (c *Control) sendComplete(hw Driver) {
	switch c.state {
	case stateDataIn:
		if c.txOffset < len(c.txBuf) {
			c.sendChunk(hw)
			return
		}

		if c.txZLP {
			c.txZLP = false
			hw.Write(c.endpoint, nil)
			return
		}

		// data stage complete, the host concludes with a zero
		// length packet
		c.txBuf = nil
		c.state = stateStatusOut

		hw.Ack(c.endpoint, DeviceToHost)
	case stateStatusIn:
		// the status stage concluded under the old address, the
		// deferred address can be committed now and not earlier
		if c.pendingAddress >= 0 {
			c.address = uint8(c.pendingAddress)
			c.pendingAddress = -1

			hw.SetAddress(c.address)
		}

		c.state = stateIdle
	}
}

// startTx begins a device-to-host data stage, segmented in maximum packet
// size transfers driven by SendComplete events. A transfer whose final
// packet would be full size is terminated with an additional zero length
// packet.
func (c *Control) startTx(hw Driver, buf []byte) {
	if len(buf) == 0 {
		// no data stage
		hw.Ack(c.endpoint, HostToDevice)
		c.state = stateStatusIn
		return
	}

	c.txBuf = buf
	c.txOffset = 0
	c.txZLP = len(buf)%ControlMaxPacketSize == 0
	c.state = stateDataIn

	c.sendChunk(hw)
}

func (c *Control) sendChunk(hw Driver) {
	n := len(c.txBuf) - c.txOffset

	if n > ControlMaxPacketSize {
		n = ControlMaxPacketSize
	}

	hw.Write(c.endpoint, c.txBuf[c.txOffset:c.txOffset+n])
	c.txOffset += n
}

// ackStatus queues the device zero length packet concluding a host-to-device
// transfer.
func (c *Control) ackStatus(hw Driver) {
	hw.Ack(c.endpoint, HostToDevice)
	c.state = stateStatusIn
}

func (c *Control) stall(hw Driver) {
	hw.StallControlRequest()
	c.state = stateIdle
}

func (c *Control) handleStandard(hw Driver, setup SetupPacket) {
	switch setup.Request {
	case GET_STATUS:
		// bus-powered, no remote wakeup, not halted
		c.startTx(hw, trim([]byte{0x00, 0x00}, setup.Length))
	case CLEAR_FEATURE:
		if setup.Value == ENDPOINT_HALT && setup.Recipient() == RecipientEndpoint {
			c.endpointHalt(hw, setup.Index, false)
		}

		c.ackStatus(hw)
	case SET_FEATURE:
		if setup.Value == ENDPOINT_HALT && setup.Recipient() == RecipientEndpoint {
			c.endpointHalt(hw, setup.Index, true)
		}

		c.ackStatus(hw)
	case SET_ADDRESS:
		// deferred, committed once the status stage completes
		c.pendingAddress = int(setup.Value & 0x7f)
		c.ackStatus(hw)
	case GET_DESCRIPTOR:
		c.getDescriptor(hw, setup)
	case GET_CONFIGURATION:
		c.startTx(hw, trim([]byte{c.configuration}, setup.Length))
	case SET_CONFIGURATION:
		conf := uint8(setup.Value & 0xff)

		if conf > 1 {
			c.stall(hw)
			return
		}

		c.configuration = conf
		c.ackStatus(hw)
	case GET_INTERFACE:
		c.startTx(hw, trim([]byte{0x00}, setup.Length))
	case SET_INTERFACE:
		if setup.Value != 0 {
			c.stall(hw)
			return
		}

		c.ackStatus(hw)
	default:
		log.Printf("usb: unsupported standard request %#.2x", setup.Request)
		c.stall(hw)
	}
}

// endpointHalt sets or clears the STALL handshake of the endpoint addressed
// by a feature request wIndex.
func (c *Control) endpointHalt(hw Driver, wIndex uint16, halt bool) {
	endpoint := uint8(wIndex & 0xf)
	dir := Direction((wIndex >> 7) & 1)

	switch {
	case halt && dir == DeviceToHost:
		hw.StallEndpointIn(endpoint)
	case halt && dir == HostToDevice:
		hw.StallEndpointOut(endpoint)
	case !halt && dir == DeviceToHost:
		// resetting the FIFO clears the halt and the data toggle
		hw.ResetEndpointIn(endpoint)
	case !halt && dir == HostToDevice:
		hw.EnableEndpointOut(endpoint)
	}
}

func (c *Control) getDescriptor(hw Driver, setup SetupPacket) {
	descriptorType := setup.Value >> 8
	index := int(setup.Value & 0xff)

	var buf []byte

	switch descriptorType {
	case DEVICE:
		buf = c.descriptors.Device.Bytes()
	case CONFIGURATION:
		if index != 0 {
			c.stall(hw)
			return
		}

		buf = c.descriptors.Configuration.Bytes()
	case OTHER_SPEED_CONFIGURATION:
		if c.descriptors.OtherSpeedConfiguration == nil || index != 0 {
			c.stall(hw)
			return
		}

		buf = c.descriptors.OtherSpeedConfiguration.Bytes()
	case STRING:
		var err error

		if buf, err = c.descriptors.stringDescriptor(index); err != nil {
			log.Printf("usb: %v", err)
			c.stall(hw)
			return
		}
	case DEVICE_QUALIFIER:
		if c.descriptors.Qualifier == nil {
			c.stall(hw)
			return
		}

		buf = c.descriptors.Qualifier.Bytes()
	default:
		log.Printf("usb: unsupported descriptor type %#.2x", descriptorType)
		c.stall(hw)
		return
	}

	c.startTx(hw, trim(buf, setup.Length))
}
