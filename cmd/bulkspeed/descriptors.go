// Bulk throughput test firmware
// https://github.com/mndza/cynthion
//
// Copyright (c) The Cynthion Developers
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago

package main

import (
	"github.com/mndza/cynthion/usb"
)

// descriptors assembles a minimal vendor device with one bulk endpoint
// pair.
func descriptors() *usb.DescriptorSet {
	device := &usb.DeviceDescriptor{}
	device.SetDefaults()
	device.VendorId = 0x16d0
	device.ProductId = 0x0f3b
	device.Device = 0x0001
	device.Manufacturer = 1
	device.Product = 2

	qualifier := &usb.DeviceQualifierDescriptor{}
	qualifier.SetDefaults()

	set := &usb.DescriptorSet{
		DeviceSpeed:             deviceSpeed,
		Device:                  device,
		Configuration:           configuration(usb.HighSpeed),
		OtherSpeedConfiguration: otherSpeed(usb.FullSpeed),
		Qualifier:               qualifier,
		Languages:               []uint16{0x0409},
		Strings:                 []string{"Cynthion Project", "Bulk speed test"},
	}

	return set.SetTotalLengths()
}

func configuration(speed usb.Speed) *usb.ConfigurationDescriptor {
	conf := &usb.ConfigurationDescriptor{}
	conf.SetDefaults()

	iface := &usb.InterfaceDescriptor{}
	iface.SetDefaults()
	// vendor specific
	iface.InterfaceClass = 0xff

	epOut := &usb.EndpointDescriptor{}
	epOut.SetDefaults()
	epOut.EndpointAddress = 0x01
	epOut.Attributes = usb.BULK
	epOut.MaxPacketSize = uint16(speed.MaxPacketSize())
	iface.AddEndpoint(epOut)

	epIn := &usb.EndpointDescriptor{}
	epIn.SetDefaults()
	epIn.EndpointAddress = 0x81
	epIn.Attributes = usb.BULK
	epIn.MaxPacketSize = uint16(speed.MaxPacketSize())
	iface.AddEndpoint(epIn)

	conf.AddInterface(iface)

	return conf
}

func otherSpeed(speed usb.Speed) *usb.ConfigurationDescriptor {
	conf := configuration(speed)
	conf.DescriptorType = usb.OTHER_SPEED_CONFIGURATION

	return conf
}
