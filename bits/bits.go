// Bit field primitives
// https://github.com/mndza/cynthion
//
// Copyright (c) The Cynthion Developers
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package bits provides primitives for composing 32 bit register values in
// memory before a single volatile store, mirroring the position and mask
// conventions of the internal/reg accessors.
package bits

// Set modifies the pointed value by setting an individual bit at the
// position argument.
func Set(addr *uint32, pos int) {
	*addr |= (1 << pos)
}

// SetN modifies the pointed value by setting a value at a specific bit
// position and with a bitmask applied.
func SetN(addr *uint32, pos int, mask int, val uint32) {
	*addr = (*addr & (^(uint32(mask) << pos))) | (val << pos)
}
