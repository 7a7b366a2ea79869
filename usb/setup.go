// USB device mode support
// https://github.com/mndza/cynthion
//
// Copyright (c) The Cynthion Developers
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package usb

import (
	"encoding/binary"
	"fmt"
)

// Format of Setup Data (p276, Table 9-2, USB2.0)
const (
	REQUEST_TYPE_DIR       = 7
	REQUEST_TYPE_TYPE      = 5
	REQUEST_TYPE_RECIPIENT = 0
)

// Standard request codes (p279, Table 9-4, USB2.0)
const (
	GET_STATUS        = 0
	CLEAR_FEATURE     = 1
	SET_FEATURE       = 3
	SET_ADDRESS       = 5
	GET_DESCRIPTOR    = 6
	SET_DESCRIPTOR    = 7
	GET_CONFIGURATION = 8
	SET_CONFIGURATION = 9
	GET_INTERFACE     = 10
	SET_INTERFACE     = 11
	SYNCH_FRAME       = 12
)

// Standard feature selectors (p280, Table 9-6, USB2.0)
const (
	ENDPOINT_HALT        = 0
	DEVICE_REMOTE_WAKEUP = 1
	TEST_MODE            = 2
)

// Direction represents a USB data transfer direction, relative to the host.
type Direction int

// Transfer directions (bit 7, bmRequestType)
const (
	// Host -> Device
	HostToDevice Direction = 0
	// Device -> Host
	DeviceToHost Direction = 1
)

// String returns the direction mnemonic.
func (d Direction) String() string {
	if d == HostToDevice {
		return "OUT"
	}

	return "IN"
}

// RequestType represents a SETUP packet request type (bits 5..6,
// bmRequestType).
type RequestType int

// Request types
const (
	RequestStandard RequestType = 0
	RequestClass    RequestType = 1
	RequestVendor   RequestType = 2
	RequestReserved RequestType = 3
)

// Recipient represents a SETUP packet recipient (bits 0..4, bmRequestType).
type Recipient int

// Request recipients
const (
	RecipientDevice    Recipient = 0
	RecipientInterface Recipient = 1
	RecipientEndpoint  Recipient = 2
	RecipientOther     Recipient = 3
	RecipientReserved  Recipient = 4
)

// SetupPacket implements
// p276, Table 9-2. Format of Setup Data, USB2.0.
type SetupPacket struct {
	RequestType uint8
	Request     uint8
	Value       uint16
	Index       uint16
	Length      uint16
}

// ParseSetupPacket converts the 8-byte buffer read from the control endpoint
// to a SetupPacket, multi-byte fields are little-endian on the wire.
func ParseSetupPacket(buf [8]byte) SetupPacket {
	return SetupPacket{
		RequestType: buf[0],
		Request:     buf[1],
		Value:       binary.LittleEndian.Uint16(buf[2:4]),
		Index:       binary.LittleEndian.Uint16(buf[4:6]),
		Length:      binary.LittleEndian.Uint16(buf[6:8]),
	}
}

// Bytes converts the packet back to its wire format.
func (s SetupPacket) Bytes() []byte {
	buf := make([]byte, 8)

	buf[0] = s.RequestType
	buf[1] = s.Request
	binary.LittleEndian.PutUint16(buf[2:4], s.Value)
	binary.LittleEndian.PutUint16(buf[4:6], s.Index)
	binary.LittleEndian.PutUint16(buf[6:8], s.Length)

	return buf
}

// Direction returns the transfer direction of the data stage.
func (s SetupPacket) Direction() Direction {
	return Direction((s.RequestType >> REQUEST_TYPE_DIR) & 1)
}

// Type returns the request type.
func (s SetupPacket) Type() RequestType {
	return RequestType((s.RequestType >> REQUEST_TYPE_TYPE) & 0b11)
}

// Recipient returns the request recipient.
func (s SetupPacket) Recipient() Recipient {
	r := Recipient(s.RequestType & 0b11111)

	if r > RecipientOther {
		r = RecipientReserved
	}

	return r
}

// String returns a compact representation of the packet for diagnostics.
func (s SetupPacket) String() string {
	return fmt.Sprintf("bmRequestType:%#.2x bRequest:%#.2x wValue:%#.4x wIndex:%#.4x wLength:%d",
		s.RequestType, s.Request, s.Value, s.Index, s.Length)
}
