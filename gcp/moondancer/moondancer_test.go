// https://github.com/mndza/cynthion
//
// Copyright (c) The Cynthion Developers
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package moondancer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mndza/cynthion/gcp"
	"github.com/mndza/cynthion/gcp/moondancer"
	"github.com/mndza/cynthion/usb"
	"github.com/mndza/cynthion/usb/usbtest"
)

func testClass() (*moondancer.Moondancer, gcp.Class, *usbtest.SimDriver) {
	hw := usbtest.NewSimDriver()
	md := moondancer.New(hw)

	return md, md.Class(), hw
}

func call(t *testing.T, class gcp.Class, number uint32, args []byte) []byte {
	t.Helper()

	for _, verb := range class.Verbs {
		if verb.Number != number {
			continue
		}

		response := make([]byte, gcp.MaxCommandSize)
		n, err := verb.Handler(args, response)
		require.NoError(t, err)

		return response[0:n]
	}

	t.Fatalf("no verb %#x", number)
	return nil
}

func TestConnect(t *testing.T) {
	_, class, hw := testClass()

	// ep0 max packet size 64, high speed, no quirks
	call(t, class, 0x0, []byte{64, 0, byte(usb.HighSpeed), 0})

	assert.True(t, hw.Connected)
	assert.Equal(t, usb.HighSpeed, hw.Speed)
	assert.Contains(t, hw.Ops(), "enable_interrupts")

	call(t, class, 0x1, nil)
	assert.False(t, hw.Connected)
}

func TestSetAddress(t *testing.T) {
	_, class, hw := testClass()

	call(t, class, 0x3, []byte{42, 0})
	assert.EqualValues(t, 42, hw.Address)
}

func TestConfigureEndpoints(t *testing.T) {
	_, class, hw := testClass()

	// EP1 OUT bulk 512, EP2 IN bulk 512
	args := []byte{
		0x01, usb.BULK, 0x00, 0x02,
		0x82, usb.BULK, 0x00, 0x02,
	}

	call(t, class, 0x4, args)

	// only the OUT endpoint is enabled and primed
	assert.Equal(t, 1, hw.Primed[1])
	assert.Equal(t, 0, hw.Primed[2])
	assert.Contains(t, hw.Ops(), "enable_endpoint_out")
}

func TestConfigureEndpointsMalformed(t *testing.T) {
	md, _, _ := testClass()
	class := md.Class()

	for _, verb := range class.Verbs {
		if verb.Number != 0x4 {
			continue
		}

		response := make([]byte, gcp.MaxCommandSize)

		if _, err := verb.Handler([]byte{0x01, 0x02, 0x03}, response); err != gcp.InvalidArgument {
			t.Fatalf("expected InvalidArgument, got %v", err)
		}
	}
}

func TestStallEndpoint(t *testing.T) {
	_, class, hw := testClass()

	// EP1 IN
	call(t, class, 0x5, []byte{1, byte(usb.DeviceToHost)})
	assert.True(t, hw.StalledIn[1])

	// EP2 OUT
	call(t, class, 0x5, []byte{2, byte(usb.HostToDevice)})
	assert.True(t, hw.StalledOut[2])
}

func TestReadSetup(t *testing.T) {
	_, class, hw := testClass()

	setup := usb.ParseSetupPacket([8]byte{0x80, 0x06, 0x00, 0x01, 0x00, 0x00, 0x40, 0x00})
	hw.EnqueueSetup(setup)

	buf := call(t, class, 0x6, []byte{0})

	require.Len(t, buf, 8)
	assert.Equal(t, setup.Bytes(), buf)
}

func TestAckStatusStage(t *testing.T) {
	_, class, hw := testClass()

	// host-to-device transfers conclude with a device zero length packet
	call(t, class, 0x7, []byte{0, byte(usb.HostToDevice)})

	require.Len(t, hw.Written[0], 1)
	assert.Empty(t, hw.Written[0][0])

	// device-to-host transfers prime for the host zero length packet
	call(t, class, 0x7, []byte{0, byte(usb.DeviceToHost)})
	assert.Equal(t, 1, hw.Primed[0])
}

func TestSendOnEndpoint(t *testing.T) {
	_, class, hw := testClass()

	payload := []byte{0xde, 0xad, 0xbe, 0xef}

	call(t, class, 0x9, append([]byte{0x01}, payload...))

	require.Len(t, hw.Written[1], 1)
	assert.Equal(t, payload, hw.Written[1][0])
}

func TestReadEndpointPrimes(t *testing.T) {
	_, class, hw := testClass()

	payload := make([]byte, 512)

	for i := range payload {
		payload[i] = byte(i % 256)
	}

	hw.EnqueueOut(1, payload)

	buf := call(t, class, 0xa, []byte{1})

	assert.Equal(t, payload, buf)

	// the endpoint is re-armed after consumption
	assert.Equal(t, 1, hw.Primed[1])
}

func TestGetInterruptEvents(t *testing.T) {
	md, class, _ := testClass()

	md.DispatchEvent(usb.Event{Type: usb.EventBusReset})
	md.DispatchEvent(usb.Event{Type: usb.EventReceiveControl, Endpoint: 0})
	md.DispatchEvent(usb.Event{Type: usb.EventReceivePacket, Endpoint: 2})

	buf := call(t, class, 0xb, nil)
	require.Len(t, buf, 9)

	// (interface, event type, endpoint) triples
	assert.Equal(t, []byte{
		1, byte(usb.EventBusReset), 0,
		1, byte(usb.EventReceiveControl), 0,
		1, byte(usb.EventReceivePacket), 2,
	}, buf)

	// the queue drains on collection
	buf = call(t, class, 0xb, nil)
	assert.Empty(t, buf)
}

func TestEventQueueOverflowDropsNewest(t *testing.T) {
	md, class, _ := testClass()

	// the endpoint field tags each event with its dispatch order
	for i := 0; i < 80; i++ {
		md.DispatchEvent(usb.Event{Type: usb.EventReceivePacket, Endpoint: uint8(i)})
	}

	buf := call(t, class, 0xb, nil)

	// capacity bounds the surfaced events
	require.Len(t, buf, 64*3)

	// the 64 oldest events survive, the 16 newest were dropped
	assert.EqualValues(t, 0, buf[2])
	assert.EqualValues(t, 63, buf[len(buf)-1])
}

func TestClassRegistry(t *testing.T) {
	_, class, _ := testClass()

	assert.EqualValues(t, 0x120, class.ID)
	assert.Equal(t, "moondancer", class.Name)

	numbers := make(map[uint32]bool)

	for _, verb := range class.Verbs {
		if numbers[verb.Number] {
			t.Fatalf("duplicate verb number %#x", verb.Number)
		}

		numbers[verb.Number] = true
	}
}
