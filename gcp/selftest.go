// Great Communications Protocol support
// https://github.com/mndza/cynthion
//
// Copyright (c) The Cynthion Developers
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package gcp

import "encoding/binary"

// ClassSelftest is the class id of the loopback test class.
const ClassSelftest = 0x102

// SelftestClass returns the registry entry for the loopback test class,
// used by the host to validate command framing and bulk throughput without
// touching the target port.
func SelftestClass() Class {
	return Class{
		ID:   ClassSelftest,
		Name: "selftest",
		Verbs: []Verb{
			{Number: 0x0, Name: "test_rx", Handler: testRx},
			{Number: 0x1, Name: "test_tx", Handler: testTx},
		},
	}
}

// testRx swallows its arguments, validating the host to device path.
func testRx(args []byte, response []byte) (int, error) {
	return 0, nil
}

// testTx replies with a length byte pattern (i mod 256), validating the
// device to host path.
func testTx(args []byte, response []byte) (int, error) {
	if len(args) < 4 {
		return 0, InvalidArgument
	}

	length := int(binary.LittleEndian.Uint32(args))

	if length > len(response) {
		return 0, MessageTooLong
	}

	for i := 0; i < length; i++ {
		response[i] = byte(i % 256)
	}

	return length, nil
}
