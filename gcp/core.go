// Great Communications Protocol support
// https://github.com/mndza/cynthion
//
// Copyright (c) The Cynthion Developers
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package gcp

import "encoding/binary"

// ClassCore is the class id of the device identity and introspection class.
const ClassCore = 0x0

// BoardInformation is the identity data served by the core class.
type BoardInformation struct {
	BoardID       uint32
	VersionString string
	PartID        [8]byte
	SerialNumber  [16]byte
}

// Core implements the core protocol class: board identity and registry
// introspection, which the host uses to probe device capabilities.
type Core struct {
	info    BoardInformation
	classes Classes
}

// NewCore returns the core class instance.
func NewCore(info BoardInformation) *Core {
	return &Core{
		info: info,
	}
}

// Register hands the complete class registry to the introspection verbs, it
// must be called once the registry is assembled.
func (c *Core) Register(classes Classes) {
	c.classes = classes
}

// Class returns the class registry entry.
func (c *Core) Class() Class {
	return Class{
		ID:   ClassCore,
		Name: "core",
		Verbs: []Verb{
			{Number: 0x0, Name: "read_board_id", Handler: c.readBoardID},
			{Number: 0x1, Name: "read_version_string", Handler: c.readVersionString},
			{Number: 0x2, Name: "read_part_id", Handler: c.readPartID},
			{Number: 0x3, Name: "read_serial_number", Handler: c.readSerialNumber},
			{Number: 0x4, Name: "get_available_classes", Handler: c.getAvailableClasses},
			{Number: 0x5, Name: "get_available_verbs", Handler: c.getAvailableVerbs},
			{Number: 0x6, Name: "get_verb_name", Handler: c.getVerbName},
			{Number: 0x8, Name: "get_class_name", Handler: c.getClassName},
		},
	}
}

func (c *Core) readBoardID(args []byte, response []byte) (int, error) {
	binary.LittleEndian.PutUint32(response, c.info.BoardID)
	return 4, nil
}

func (c *Core) readVersionString(args []byte, response []byte) (int, error) {
	return copy(response, c.info.VersionString), nil
}

func (c *Core) readPartID(args []byte, response []byte) (int, error) {
	return copy(response, c.info.PartID[:]), nil
}

func (c *Core) readSerialNumber(args []byte, response []byte) (int, error) {
	return copy(response, c.info.SerialNumber[:]), nil
}

func (c *Core) getAvailableClasses(args []byte, response []byte) (int, error) {
	n := 0

	for _, class := range c.classes {
		binary.LittleEndian.PutUint32(response[n:], class.ID)
		n += 4
	}

	return n, nil
}

func (c *Core) getAvailableVerbs(args []byte, response []byte) (int, error) {
	if len(args) < 4 {
		return 0, InvalidArgument
	}

	class := c.classes.class(binary.LittleEndian.Uint32(args))

	if class == nil {
		return 0, InvalidArgument
	}

	n := 0

	for _, verb := range class.Verbs {
		binary.LittleEndian.PutUint32(response[n:], verb.Number)
		n += 4
	}

	return n, nil
}

func (c *Core) getVerbName(args []byte, response []byte) (int, error) {
	if len(args) < 8 {
		return 0, InvalidArgument
	}

	class := c.classes.class(binary.LittleEndian.Uint32(args[0:4]))

	if class == nil {
		return 0, InvalidArgument
	}

	verb := class.verb(binary.LittleEndian.Uint32(args[4:8]))

	if verb == nil {
		return 0, InvalidArgument
	}

	return cstring(response, verb.Name), nil
}

func (c *Core) getClassName(args []byte, response []byte) (int, error) {
	if len(args) < 4 {
		return 0, InvalidArgument
	}

	class := c.classes.class(binary.LittleEndian.Uint32(args))

	if class == nil {
		return 0, InvalidArgument
	}

	return cstring(response, class.Name), nil
}

// cstring writes a zero terminated string, the termination is expected by
// the host side introspection client.
func cstring(response []byte, s string) int {
	n := copy(response, s)
	response[n] = 0

	return n + 1
}
