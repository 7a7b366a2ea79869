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
	"github.com/mndza/cynthion/usb"
)

// Aux port identity
const (
	vendorId  = 0x1d50
	productId = 0x615b

	manufacturer = "Cynthion Project"
	product      = "Moondancer"
	serial       = "0000000000000000"
)

// descriptors assembles the Aux port descriptor set: a single vendor class
// configuration with one bulk endpoint pair, plus the other speed fallback.
func descriptors() *usb.DescriptorSet {
	device := &usb.DeviceDescriptor{}
	device.SetDefaults()
	device.VendorId = vendorId
	device.ProductId = productId
	device.Device = 0x0102
	device.Manufacturer = 1
	device.Product = 2
	device.SerialNumber = 3

	qualifier := &usb.DeviceQualifierDescriptor{}
	qualifier.SetDefaults()

	set := &usb.DescriptorSet{
		DeviceSpeed:             usb.HighSpeed,
		Device:                  device,
		Configuration:           configuration(usb.HighSpeed),
		OtherSpeedConfiguration: otherSpeed(usb.FullSpeed),
		Qualifier:               qualifier,
		Languages:               []uint16{0x0409},
		Strings:                 []string{manufacturer, product, serial},
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
	// EP1 OUT, bulk
	epOut.EndpointAddress = 0x01
	epOut.Attributes = usb.BULK
	epOut.MaxPacketSize = uint16(speed.MaxPacketSize())
	iface.AddEndpoint(epOut)

	epIn := &usb.EndpointDescriptor{}
	epIn.SetDefaults()
	// EP1 IN, bulk
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
