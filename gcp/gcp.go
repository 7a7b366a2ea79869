// Great Communications Protocol support
// https://github.com/mndza/cynthion
//
// Copyright (c) The Cynthion Developers
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package gcp implements the vendor command and control protocol spoken on
// the Aux USB port: commands arrive as vendor control requests, are routed
// to a class handler by (class id, verb number) and the handler response is
// delivered to the host on the subsequent IN request.
package gcp

import (
	"encoding/binary"
	"fmt"
)

// MaxCommandSize bounds both command and response payloads.
const MaxCommandSize = 4096

// Command represents a parsed protocol command.
//
// The wire layout is `class_id u32 | verb_number u32 | arguments`, all
// little-endian.
type Command struct {
	ClassID    uint32
	VerbNumber uint32
	Arguments  []byte
}

// ParseCommand parses a command payload received on the control endpoint.
func ParseCommand(buf []byte) (cmd Command, err error) {
	if len(buf) < 8 {
		return cmd, fmt.Errorf("short command (%d bytes)", len(buf))
	}

	cmd.ClassID = binary.LittleEndian.Uint32(buf[0:4])
	cmd.VerbNumber = binary.LittleEndian.Uint32(buf[4:8])
	cmd.Arguments = buf[8:]

	return
}

// Handler executes a verb: arguments in, response bytes out. The returned
// count is the number of response bytes written. Failures are reported as
// Error codes, any other error maps to InvalidArgument on the wire.
type Handler func(args []byte, response []byte) (int, error)

// Verb is a single named operation within a class.
type Verb struct {
	Number  uint32
	Name    string
	Handler Handler
}

// Class groups related verbs under a protocol class id.
type Class struct {
	ID    uint32
	Name  string
	Verbs []Verb
}

// verb returns the verb with the argument number, nil when not present.
func (c *Class) verb(number uint32) *Verb {
	for i := range c.Verbs {
		if c.Verbs[i].Number == number {
			return &c.Verbs[i]
		}
	}

	return nil
}

// Classes is the ordered class registry, dispatch is by linear lookup.
type Classes []Class

// class returns the class with the argument id, nil when not present.
func (cs Classes) class(id uint32) *Class {
	for i := range cs {
		if cs[i].ID == id {
			return &cs[i]
		}
	}

	return nil
}
