// https://github.com/mndza/cynthion
//
// Copyright (c) The Cynthion Developers
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package usb_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mndza/cynthion/usb"
	"github.com/mndza/cynthion/usb/usbtest"
)

// shortString serializes to exactly one full control packet (2 + 2*31 = 64
// bytes), longString spans four packets (2 + 2*100 = 202 bytes).
var (
	shortString = strings.Repeat("a", 31)
	longString  = strings.Repeat("b", 100)
)

func testDescriptors() *usb.DescriptorSet {
	device := &usb.DeviceDescriptor{}
	device.SetDefaults()
	device.VendorId = 0x1d50
	device.ProductId = 0x615b
	device.Manufacturer = 1
	device.Product = 2

	conf := &usb.ConfigurationDescriptor{}
	conf.SetDefaults()

	iface := &usb.InterfaceDescriptor{}
	iface.SetDefaults()
	iface.InterfaceClass = 0xff

	for _, address := range []uint8{0x01, 0x81} {
		ep := &usb.EndpointDescriptor{}
		ep.SetDefaults()
		ep.EndpointAddress = address
		ep.Attributes = usb.BULK
		iface.AddEndpoint(ep)
	}

	conf.AddInterface(iface)

	other := &usb.ConfigurationDescriptor{}
	other.SetDefaults()
	other.DescriptorType = usb.OTHER_SPEED_CONFIGURATION

	qualifier := &usb.DeviceQualifierDescriptor{}
	qualifier.SetDefaults()

	return &usb.DescriptorSet{
		DeviceSpeed:             usb.HighSpeed,
		Device:                  device,
		Configuration:           conf,
		OtherSpeedConfiguration: other,
		Qualifier:               qualifier,
		Languages:               []uint16{0x0409},
		Strings:                 []string{"Cynthion Project", shortString, longString},
	}
}

func newControl() (*usb.Control, *usbtest.SimDriver) {
	return usb.NewControl(0, testDescriptors()), usbtest.NewSimDriver()
}

// doSetup delivers a SETUP packet the way the thin event path would: the
// packet is latched in the controller FIFO and a ReceiveControl event is
// handed to the state machine.
func doSetup(sm *usb.Control, hw *usbtest.SimDriver, setup usb.SetupPacket) *usb.SetupPacket {
	hw.EnqueueSetup(setup)

	return sm.HandleEvent(hw, usb.Event{Type: usb.EventReceiveControl, Endpoint: 0})
}

func sendComplete(sm *usb.Control, hw *usbtest.SimDriver) {
	sm.HandleEvent(hw, usb.Event{Type: usb.EventSendComplete, Endpoint: 0})
}

func receivePacket(sm *usb.Control, hw *usbtest.SimDriver) *usb.SetupPacket {
	return sm.HandleEvent(hw, usb.Event{Type: usb.EventReceivePacket, Endpoint: 0})
}

func TestGetDescriptorDevice(t *testing.T) {
	sm, hw := newControl()

	// GET_DESCRIPTOR(Device), wLength 64
	setup := usb.ParseSetupPacket([8]byte{0x80, 0x06, 0x00, 0x01, 0x00, 0x00, 0x40, 0x00})
	require.Nil(t, doSetup(sm, hw, setup))

	// the 18 byte descriptor fits one packet
	require.Len(t, hw.Written[0], 1)
	assert.Equal(t, testDescriptors().Device.Bytes(), hw.Written[0][0])

	// data stage collected, device primes for the host status stage
	sendComplete(sm, hw)
	assert.Equal(t, 1, hw.Primed[0])

	// host status stage zero length packet
	receivePacket(sm, hw)
	assert.False(t, hw.StalledIn[0])
}

func TestGetDescriptorTruncation(t *testing.T) {
	sm, hw := newControl()

	// GET_DESCRIPTOR(Device), wLength 8
	setup := usb.ParseSetupPacket([8]byte{0x80, 0x06, 0x00, 0x01, 0x00, 0x00, 0x08, 0x00})
	doSetup(sm, hw, setup)

	require.Len(t, hw.Written[0], 1)
	assert.Equal(t, testDescriptors().Device.Bytes()[0:8], hw.Written[0][0])
}

func TestSetAddressDeferred(t *testing.T) {
	sm, hw := newControl()

	// SET_ADDRESS(42)
	setup := usb.ParseSetupPacket([8]byte{0x00, 0x05, 0x2a, 0x00, 0x00, 0x00, 0x00, 0x00})
	require.Nil(t, doSetup(sm, hw, setup))

	// the status stage zero length packet is armed under address 0
	require.Len(t, hw.Written[0], 1)
	assert.Empty(t, hw.Written[0][0])
	assert.EqualValues(t, 0, hw.Address)

	// the address is committed only once the status stage completes
	sendComplete(sm, hw)
	assert.EqualValues(t, 42, hw.Address)
	assert.EqualValues(t, 42, sm.Address())
}

func TestStringDescriptor(t *testing.T) {
	sm, hw := newControl()

	// GET_DESCRIPTOR(String, 1, 0x0409)
	setup := usb.ParseSetupPacket([8]byte{0x80, 0x06, 0x01, 0x03, 0x09, 0x04, 0xff, 0x00})
	doSetup(sm, hw, setup)

	buf := hw.InBytes(0)
	require.NotEmpty(t, buf)

	assert.EqualValues(t, 2+2*len("Cynthion Project"), buf[0])
	assert.EqualValues(t, 0x03, buf[1])

	// UTF-16LE
	assert.EqualValues(t, 'C', buf[2])
	assert.EqualValues(t, 0, buf[3])
}

func TestMultiPacketDescriptorZLP(t *testing.T) {
	sm, hw := newControl()

	// the short string descriptor is exactly one full packet, a zero
	// length packet must terminate the transfer
	setup := usb.ParseSetupPacket([8]byte{0x80, 0x06, 0x02, 0x03, 0x09, 0x04, 0xff, 0x00})
	doSetup(sm, hw, setup)

	require.Len(t, hw.Written[0], 1)
	require.Len(t, hw.Written[0][0], 64)

	sendComplete(sm, hw)
	require.Len(t, hw.Written[0], 2)
	assert.Empty(t, hw.Written[0][1])

	// transfer concludes with the host status stage
	sendComplete(sm, hw)
	assert.Equal(t, 1, hw.Primed[0])
}

func TestMultiPacketDescriptorSegmentation(t *testing.T) {
	sm, hw := newControl()

	// the long string descriptor spans 64+64+64+10 bytes
	setup := usb.ParseSetupPacket([8]byte{0x80, 0x06, 0x03, 0x03, 0x09, 0x04, 0xff, 0x00})
	doSetup(sm, hw, setup)

	for i := 0; i < 3; i++ {
		sendComplete(sm, hw)
	}

	require.Len(t, hw.Written[0], 4)
	assert.Len(t, hw.Written[0][0], 64)
	assert.Len(t, hw.Written[0][1], 64)
	assert.Len(t, hw.Written[0][2], 64)
	assert.Len(t, hw.Written[0][3], 10)

	buf := hw.InBytes(0)
	assert.EqualValues(t, 202, buf[0])

	// no zero length packet after a short final packet
	sendComplete(sm, hw)
	assert.Len(t, hw.Written[0], 4)
	assert.Equal(t, 1, hw.Primed[0])
}

func TestOtherSpeedConfiguration(t *testing.T) {
	sm, hw := newControl()

	setup := usb.ParseSetupPacket([8]byte{0x80, 0x06, 0x00, 0x07, 0x00, 0x00, 0xff, 0x00})
	doSetup(sm, hw, setup)

	buf := hw.InBytes(0)
	require.NotEmpty(t, buf)
	assert.EqualValues(t, usb.OTHER_SPEED_CONFIGURATION, buf[1])
}

func TestUnknownDescriptorStalls(t *testing.T) {
	sm, hw := newControl()

	setup := usb.ParseSetupPacket([8]byte{0x80, 0x06, 0x00, 0xee, 0x00, 0x00, 0x40, 0x00})
	doSetup(sm, hw, setup)

	assert.True(t, hw.StalledIn[0])
	assert.Empty(t, hw.Written[0])
}

func TestGetStatus(t *testing.T) {
	sm, hw := newControl()

	setup := usb.ParseSetupPacket([8]byte{0x80, 0x00, 0x00, 0x00, 0x00, 0x00, 0x02, 0x00})
	doSetup(sm, hw, setup)

	require.Len(t, hw.Written[0], 1)
	assert.Equal(t, []byte{0x00, 0x00}, hw.Written[0][0])
}

func TestSetConfiguration(t *testing.T) {
	sm, hw := newControl()

	assert.EqualValues(t, 0, sm.Configuration())

	// SET_CONFIGURATION(1)
	setup := usb.ParseSetupPacket([8]byte{0x00, 0x09, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00})
	doSetup(sm, hw, setup)
	sendComplete(sm, hw)

	assert.EqualValues(t, 1, sm.Configuration())

	// GET_CONFIGURATION
	setup = usb.ParseSetupPacket([8]byte{0x80, 0x08, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00})
	doSetup(sm, hw, setup)

	written := hw.Written[0]
	assert.Equal(t, []byte{0x01}, written[len(written)-1])

	// SET_CONFIGURATION(2) is rejected
	setup = usb.ParseSetupPacket([8]byte{0x00, 0x09, 0x02, 0x00, 0x00, 0x00, 0x00, 0x00})
	doSetup(sm, hw, setup)

	assert.True(t, hw.StalledIn[0])
	assert.EqualValues(t, 1, sm.Configuration())
}

func TestSetInterface(t *testing.T) {
	sm, hw := newControl()

	// SET_INTERFACE(0) is acked
	setup := usb.ParseSetupPacket([8]byte{0x01, 0x0b, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00})
	doSetup(sm, hw, setup)
	assert.False(t, hw.StalledIn[0])

	// SET_INTERFACE(1) is rejected
	setup = usb.ParseSetupPacket([8]byte{0x01, 0x0b, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00})
	doSetup(sm, hw, setup)
	assert.True(t, hw.StalledIn[0])
}

func TestEndpointHalt(t *testing.T) {
	sm, hw := newControl()

	// SET_FEATURE(ENDPOINT_HALT) on EP1 IN
	setup := usb.ParseSetupPacket([8]byte{0x02, 0x03, 0x00, 0x00, 0x81, 0x00, 0x00, 0x00})
	doSetup(sm, hw, setup)
	assert.True(t, hw.StalledIn[1])

	// CLEAR_FEATURE(ENDPOINT_HALT) on EP1 IN
	setup = usb.ParseSetupPacket([8]byte{0x02, 0x01, 0x00, 0x00, 0x81, 0x00, 0x00, 0x00})
	doSetup(sm, hw, setup)
	assert.False(t, hw.StalledIn[1])
	assert.Contains(t, hw.Ops(), "reset_endpoint_in")
}

func TestVendorSetupReturned(t *testing.T) {
	sm, hw := newControl()

	// vendor IN requests are returned to the caller untouched
	setup := usb.ParseSetupPacket([8]byte{0xc0, 0x65, 0x00, 0x00, 0x00, 0x00, 0x00, 0x10})
	packet := doSetup(sm, hw, setup)

	require.NotNil(t, packet)
	assert.Equal(t, setup, *packet)
	assert.Empty(t, hw.Written[0])
	assert.Empty(t, sm.Data())
}

func TestVendorDataStageBuffered(t *testing.T) {
	sm, hw := newControl()

	payload := []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}

	// vendor OUT request with an 8 byte data stage
	setup := usb.ParseSetupPacket([8]byte{0x40, 0x65, 0x00, 0x00, 0x00, 0x00, 0x08, 0x00})
	require.Nil(t, doSetup(sm, hw, setup))

	// the endpoint is primed for the data stage
	assert.Equal(t, 1, hw.Primed[0])

	// the setup packet surfaces once the data stage is complete
	hw.EnqueueOut(0, payload)
	packet := receivePacket(sm, hw)

	require.NotNil(t, packet)
	assert.Equal(t, setup, *packet)
	assert.Equal(t, payload, sm.Data())

	// status stage zero length packet is armed
	written := hw.Written[0]
	require.NotEmpty(t, written)
	assert.Empty(t, written[len(written)-1])
}

func TestVendorDataStageMultiPacket(t *testing.T) {
	sm, hw := newControl()

	payload := bytes.Repeat([]byte{0xaa}, 100)

	setup := usb.ParseSetupPacket([8]byte{0x40, 0x65, 0x00, 0x00, 0x00, 0x00, 100, 0x00})
	require.Nil(t, doSetup(sm, hw, setup))

	hw.EnqueueOut(0, payload[0:64])
	require.Nil(t, receivePacket(sm, hw))

	// re-primed after each consumed packet
	assert.Equal(t, 2, hw.Primed[0])

	hw.EnqueueOut(0, payload[64:])
	packet := receivePacket(sm, hw)

	require.NotNil(t, packet)
	assert.Equal(t, payload, sm.Data())
}

func TestBusReset(t *testing.T) {
	sm, hw := newControl()

	// enumerate to address 5, configuration 1
	doSetup(sm, hw, usb.ParseSetupPacket([8]byte{0x00, 0x05, 0x05, 0x00, 0x00, 0x00, 0x00, 0x00}))
	sendComplete(sm, hw)
	doSetup(sm, hw, usb.ParseSetupPacket([8]byte{0x00, 0x09, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00}))
	sendComplete(sm, hw)

	require.EqualValues(t, 5, sm.Address())
	require.EqualValues(t, 1, sm.Configuration())

	sm.HandleEvent(hw, usb.Event{Type: usb.EventBusReset})

	assert.EqualValues(t, 0, sm.Address())
	assert.EqualValues(t, 0, sm.Configuration())
}

func TestFatEvents(t *testing.T) {
	sm, hw := newControl()

	// the SETUP packet rides in the event, the FIFO is not read
	setup := usb.ParseSetupPacket([8]byte{0x80, 0x00, 0x00, 0x00, 0x00, 0x00, 0x02, 0x00})
	sm.HandleEvent(hw, usb.Event{Type: usb.EventReceiveSetupPacket, Endpoint: 0, Setup: setup})

	assert.NotContains(t, hw.Ops(), "read_control")
	require.Len(t, hw.Written[0], 1)
	assert.Equal(t, []byte{0x00, 0x00}, hw.Written[0][0])
}

func TestShortSetupStalls(t *testing.T) {
	sm, hw := newControl()

	// nothing latched in the FIFO
	require.Nil(t, sm.HandleEvent(hw, usb.Event{Type: usb.EventReceiveControl, Endpoint: 0}))

	assert.True(t, hw.StalledIn[0])
	assert.True(t, hw.StalledOut[0])
}
