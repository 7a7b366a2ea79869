// Great Communications Protocol support
// https://github.com/mndza/cynthion
//
// Copyright (c) The Cynthion Developers
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package gcp

import "fmt"

// Error is a protocol error code, delivered to the host as a 4-byte
// little-endian response. The values are derived from the POSIX errno
// numbers the host side client already understands.
type Error uint32

// Protocol error codes
const (
	NotPermitted    Error = 1
	Busy            Error = 16
	InvalidArgument Error = 22
	NotImplemented  Error = 38
	MessageTooLong  Error = 90
)

// Error implements the error interface.
func (e Error) Error() string {
	switch e {
	case NotPermitted:
		return "operation not permitted"
	case Busy:
		return "device or resource busy"
	case InvalidArgument:
		return "invalid argument"
	case NotImplemented:
		return "function not implemented"
	case MessageTooLong:
		return "message too long"
	default:
		return fmt.Sprintf("error %d", uint32(e))
	}
}

// Code converts a handler error to its wire code.
func Code(err error) Error {
	if e, ok := err.(Error); ok {
		return e
	}

	return InvalidArgument
}
