// USB descriptor support
// https://github.com/mndza/cynthion
//
// Copyright (c) The Cynthion Developers
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package usb

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"unicode/utf16"
)

// Descriptor types (p279, Table 9-5, USB2.0)
const (
	DEVICE                    = 1
	CONFIGURATION             = 2
	STRING                    = 3
	INTERFACE                 = 4
	ENDPOINT                  = 5
	DEVICE_QUALIFIER          = 6
	OTHER_SPEED_CONFIGURATION = 7
	INTERFACE_POWER           = 8
)

// Standard USB descriptor sizes
const (
	DEVICE_LENGTH           = 18
	CONFIGURATION_LENGTH    = 9
	INTERFACE_LENGTH        = 9
	ENDPOINT_LENGTH         = 7
	DEVICE_QUALIFIER_LENGTH = 10
)

// Transfer types (p270, Table 9-13, USB2.0)
const (
	CONTROL     = 0
	ISOCHRONOUS = 1
	BULK        = 2
	INTERRUPT   = 3
)

// DeviceDescriptor implements
// p290, Table 9-8. Standard Device Descriptor, USB2.0.
type DeviceDescriptor struct {
	Length            uint8
	DescriptorType    uint8
	BcdUSB            uint16
	DeviceClass       uint8
	DeviceSubClass    uint8
	DeviceProtocol    uint8
	MaxPacketSize     uint8
	VendorId          uint16
	ProductId         uint16
	Device            uint16
	Manufacturer      uint8
	Product           uint8
	SerialNumber      uint8
	NumConfigurations uint8
}

// SetDefaults initializes default values for the USB device descriptor.
func (d *DeviceDescriptor) SetDefaults() {
	d.Length = DEVICE_LENGTH
	d.DescriptorType = DEVICE
	// USB 2.0
	d.BcdUSB = 0x0200
	// maximum packet size for EP0
	d.MaxPacketSize = 64
	d.NumConfigurations = 1
}

// Bytes converts the descriptor structure to byte array format.
func (d *DeviceDescriptor) Bytes() []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, d)
	return buf.Bytes()
}

// EndpointDescriptor implements
// p297, Table 9-13. Standard Endpoint Descriptor, USB2.0.
type EndpointDescriptor struct {
	Length          uint8
	DescriptorType  uint8
	EndpointAddress uint8
	Attributes      uint8
	MaxPacketSize   uint16
	Interval        uint8
}

// SetDefaults initializes default values for the USB endpoint descriptor.
func (d *EndpointDescriptor) SetDefaults() {
	d.Length = ENDPOINT_LENGTH
	d.DescriptorType = ENDPOINT
	// EP1 IN
	d.EndpointAddress = 0x81
	// maximum packet size for EP1+ (high speed)
	d.MaxPacketSize = 512
}

// Number returns the endpoint number.
func (d *EndpointDescriptor) Number() int {
	return int(d.EndpointAddress & 0b1111)
}

// Direction returns the endpoint direction.
func (d *EndpointDescriptor) Direction() Direction {
	return Direction(d.EndpointAddress >> 7)
}

// TransferType returns the endpoint transfer type.
func (d *EndpointDescriptor) TransferType() int {
	return int(d.Attributes & 0b11)
}

// Bytes converts the descriptor structure to byte array format.
func (d *EndpointDescriptor) Bytes() []byte {
	buf := new(bytes.Buffer)

	binary.Write(buf, binary.LittleEndian, d.Length)
	binary.Write(buf, binary.LittleEndian, d.DescriptorType)
	binary.Write(buf, binary.LittleEndian, d.EndpointAddress)
	binary.Write(buf, binary.LittleEndian, d.Attributes)
	binary.Write(buf, binary.LittleEndian, d.MaxPacketSize)
	binary.Write(buf, binary.LittleEndian, d.Interval)

	return buf.Bytes()
}

// InterfaceDescriptor implements
// p296, Table 9-12. Standard Interface Descriptor, USB2.0.
type InterfaceDescriptor struct {
	Length            uint8
	DescriptorType    uint8
	InterfaceNumber   uint8
	AlternateSetting  uint8
	NumEndpoints      uint8
	InterfaceClass    uint8
	InterfaceSubClass uint8
	InterfaceProtocol uint8
	Interface         uint8

	Endpoints []*EndpointDescriptor
}

// SetDefaults initializes default values for the USB interface descriptor.
func (d *InterfaceDescriptor) SetDefaults() {
	d.Length = INTERFACE_LENGTH
	d.DescriptorType = INTERFACE
}

// AddEndpoint adds an Endpoint Descriptor to the interface, updating the
// endpoint count accordingly.
func (d *InterfaceDescriptor) AddEndpoint(ep *EndpointDescriptor) {
	d.Endpoints = append(d.Endpoints, ep)
	d.NumEndpoints = uint8(len(d.Endpoints))
}

// Bytes converts the descriptor structure to byte array format, the endpoint
// descriptors are not included.
func (d *InterfaceDescriptor) Bytes() []byte {
	buf := new(bytes.Buffer)

	binary.Write(buf, binary.LittleEndian, d.Length)
	binary.Write(buf, binary.LittleEndian, d.DescriptorType)
	binary.Write(buf, binary.LittleEndian, d.InterfaceNumber)
	binary.Write(buf, binary.LittleEndian, d.AlternateSetting)
	binary.Write(buf, binary.LittleEndian, d.NumEndpoints)
	binary.Write(buf, binary.LittleEndian, d.InterfaceClass)
	binary.Write(buf, binary.LittleEndian, d.InterfaceSubClass)
	binary.Write(buf, binary.LittleEndian, d.InterfaceProtocol)
	binary.Write(buf, binary.LittleEndian, d.Interface)

	return buf.Bytes()
}

// ConfigurationDescriptor implements
// p293, Table 9-10. Standard Configuration Descriptor, USB2.0.
type ConfigurationDescriptor struct {
	Length             uint8
	DescriptorType     uint8
	TotalLength        uint16
	NumInterfaces      uint8
	ConfigurationValue uint8
	Configuration      uint8
	Attributes         uint8
	MaxPower           uint8

	Interfaces []*InterfaceDescriptor
}

// SetDefaults initializes default values for the USB configuration
// descriptor.
func (d *ConfigurationDescriptor) SetDefaults() {
	d.Length = CONFIGURATION_LENGTH
	d.DescriptorType = CONFIGURATION
	d.ConfigurationValue = 1
	// Bus-powered
	d.Attributes = 0x80
	// 500 mA
	d.MaxPower = 250
}

// AddInterface adds an Interface Descriptor to a configuration, updating the
// interface number and interface count accordingly.
func (d *ConfigurationDescriptor) AddInterface(iface *InterfaceDescriptor) {
	if iface.AlternateSetting == 0 {
		iface.InterfaceNumber = d.NumInterfaces
		d.NumInterfaces += 1
	} else if d.NumInterfaces > 0 {
		iface.InterfaceNumber = d.NumInterfaces - 1
	}

	d.Interfaces = append(d.Interfaces, iface)
}

// SetTotalLength recomputes the configuration wTotalLength as the sum of the
// header length and all subordinate descriptor lengths, it returns the
// computed value.
func (d *ConfigurationDescriptor) SetTotalLength() uint16 {
	length := int(d.Length)

	for _, iface := range d.Interfaces {
		length += INTERFACE_LENGTH

		for range iface.Endpoints {
			length += ENDPOINT_LENGTH
		}
	}

	d.TotalLength = uint16(length)

	return d.TotalLength
}

// Bytes converts the descriptor hierarchy to byte array format, as expected
// by Get Descriptor for configuration descriptor types
// (p281, 9.4.3 Get Descriptor, USB2.0).
func (d *ConfigurationDescriptor) Bytes() []byte {
	buf := new(bytes.Buffer)

	binary.Write(buf, binary.LittleEndian, d.Length)
	binary.Write(buf, binary.LittleEndian, d.DescriptorType)
	binary.Write(buf, binary.LittleEndian, d.TotalLength)
	binary.Write(buf, binary.LittleEndian, d.NumInterfaces)
	binary.Write(buf, binary.LittleEndian, d.ConfigurationValue)
	binary.Write(buf, binary.LittleEndian, d.Configuration)
	binary.Write(buf, binary.LittleEndian, d.Attributes)
	binary.Write(buf, binary.LittleEndian, d.MaxPower)

	for _, iface := range d.Interfaces {
		buf.Write(iface.Bytes())

		for _, ep := range iface.Endpoints {
			buf.Write(ep.Bytes())
		}
	}

	return buf.Bytes()
}

// DeviceQualifierDescriptor implements
// p292, 9.6.2 Device_Qualifier, USB2.0.
type DeviceQualifierDescriptor struct {
	Length            uint8
	DescriptorType    uint8
	BcdUSB            uint16
	DeviceClass       uint8
	DeviceSubClass    uint8
	DeviceProtocol    uint8
	MaxPacketSize     uint8
	NumConfigurations uint8
	Reserved          uint8
}

// SetDefaults initializes default values for the USB device qualifier
// descriptor.
func (d *DeviceQualifierDescriptor) SetDefaults() {
	d.Length = DEVICE_QUALIFIER_LENGTH
	d.DescriptorType = DEVICE_QUALIFIER
	// USB 2.0
	d.BcdUSB = 0x0200
	// maximum packet size for EP0
	d.MaxPacketSize = 64
	d.NumConfigurations = 1
}

// Bytes converts the descriptor structure to byte array format.
func (d *DeviceQualifierDescriptor) Bytes() []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, d)
	return buf.Bytes()
}

// DescriptorSet is the immutable collection of descriptors served by the
// control endpoint state machine.
type DescriptorSet struct {
	// Declared port speed, programmed at Connect()
	DeviceSpeed Speed

	Device        *DeviceDescriptor
	Configuration *ConfigurationDescriptor

	// optional
	OtherSpeedConfiguration *ConfigurationDescriptor
	// optional
	Qualifier *DeviceQualifierDescriptor

	// String Descriptor Zero language codes
	// (p273, Table 9-15, USB2.0)
	Languages []uint16
	// Ordered string descriptor list, index 1 on the wire is Strings[0]
	Strings []string
}

// SetTotalLengths recomputes the wTotalLength field of all configuration
// descriptors in the set. It must be called before the set is served.
func (d *DescriptorSet) SetTotalLengths() *DescriptorSet {
	if d.Configuration != nil {
		d.Configuration.SetTotalLength()
	}

	if d.OtherSpeedConfiguration != nil {
		d.OtherSpeedConfiguration.SetTotalLength()
	}

	return d
}

// stringZero returns String Descriptor Zero, carrying the supported language
// codes (p273, Table 9-15, USB2.0).
func (d *DescriptorSet) stringZero() []byte {
	buf := make([]byte, 2+2*len(d.Languages))

	buf[0] = uint8(len(buf))
	buf[1] = STRING

	for i, code := range d.Languages {
		binary.LittleEndian.PutUint16(buf[2+2*i:], code)
	}

	return buf
}

// stringDescriptor returns the string descriptor at the argument index,
// encoded as UTF-16LE with the standard two byte prefix
// (p274, Table 9-16, USB2.0).
func (d *DescriptorSet) stringDescriptor(index int) ([]byte, error) {
	if index == 0 {
		return d.stringZero(), nil
	}

	if index > len(d.Strings) {
		return nil, fmt.Errorf("invalid string descriptor index %d", index)
	}

	u := utf16.Encode([]rune(d.Strings[index-1]))

	if 2+2*len(u) > 255 {
		return nil, fmt.Errorf("string descriptor index %d exceeds 255 bytes", index)
	}

	buf := make([]byte, 2, 2+2*len(u))
	buf[0] = uint8(2 + 2*len(u))
	buf[1] = STRING

	for _, r := range u {
		buf = append(buf, byte(r&0xff), byte(r>>8))
	}

	return buf, nil
}

func trim(buf []byte, wLength uint16) []byte {
	if int(wLength) < len(buf) {
		buf = buf[0:wLength]
	}

	return buf
}
