// https://github.com/mndza/cynthion
//
// Copyright (c) The Cynthion Developers
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package usb

import (
	"bytes"
	"testing"
)

var testDataSetup = []struct {
	buf       [8]byte
	direction Direction
	reqType   RequestType
	recipient Recipient
	value     uint16
	index     uint16
	length    uint16
}{
	// GET_DESCRIPTOR(Device), wLength 64
	{[8]byte{0x80, 0x06, 0x00, 0x01, 0x00, 0x00, 0x40, 0x00}, DeviceToHost, RequestStandard, RecipientDevice, 0x0100, 0x0000, 64},
	// SET_ADDRESS(42)
	{[8]byte{0x00, 0x05, 0x2a, 0x00, 0x00, 0x00, 0x00, 0x00}, HostToDevice, RequestStandard, RecipientDevice, 0x002a, 0x0000, 0},
	// vendor command request, OUT
	{[8]byte{0x40, 0x65, 0x00, 0x00, 0x00, 0x00, 0x08, 0x00}, HostToDevice, RequestVendor, RecipientDevice, 0x0000, 0x0000, 8},
	// vendor command request, IN
	{[8]byte{0xc0, 0x65, 0x00, 0x00, 0x00, 0x00, 0x00, 0x10}, DeviceToHost, RequestVendor, RecipientDevice, 0x0000, 0x0000, 4096},
	// class request to an interface
	{[8]byte{0x21, 0x09, 0x00, 0x02, 0x01, 0x00, 0x00, 0x00}, HostToDevice, RequestClass, RecipientInterface, 0x0200, 0x0001, 0},
	// CLEAR_FEATURE(ENDPOINT_HALT) on EP1 IN
	{[8]byte{0x02, 0x01, 0x00, 0x00, 0x81, 0x00, 0x00, 0x00}, HostToDevice, RequestStandard, RecipientEndpoint, 0x0000, 0x0081, 0},
}

func TestParseSetupPacket(t *testing.T) {
	for _, data := range testDataSetup {
		setup := ParseSetupPacket(data.buf)

		if setup.Direction() != data.direction {
			t.Errorf("%v: expected direction %v, got %v", data.buf, data.direction, setup.Direction())
		}

		if setup.Type() != data.reqType {
			t.Errorf("%v: expected type %v, got %v", data.buf, data.reqType, setup.Type())
		}

		if setup.Recipient() != data.recipient {
			t.Errorf("%v: expected recipient %v, got %v", data.buf, data.recipient, setup.Recipient())
		}

		if setup.Value != data.value {
			t.Errorf("%v: expected wValue %#x, got %#x", data.buf, data.value, setup.Value)
		}

		if setup.Index != data.index {
			t.Errorf("%v: expected wIndex %#x, got %#x", data.buf, data.index, setup.Index)
		}

		if setup.Length != data.length {
			t.Errorf("%v: expected wLength %d, got %d", data.buf, data.length, setup.Length)
		}
	}
}

func TestSetupPacketBytes(t *testing.T) {
	for _, data := range testDataSetup {
		setup := ParseSetupPacket(data.buf)

		if !bytes.Equal(setup.Bytes(), data.buf[:]) {
			t.Errorf("expected %v, got %v", data.buf, setup.Bytes())
		}
	}
}
