// Package flagfield provides the 32-bit flag register carried by nodes,
// items and item sub-records.
package flagfield

import (
	"fmt"

	"github.com/cory-johannsen/scsmap/internal/maperr"
)

// Width is the number of bits in a FlagField.
const Width = 32

// FlagField is a 32-bit register of independent single-bit flags and
// unsigned sub-fields. It is serialized as 4 little-endian bytes.
//
// Invariant: SetBit, SetByte and SetSubfield never alter bits outside the
// range they address.
type FlagField uint32

// New returns a FlagField holding bits.
func New(bits uint32) FlagField { return FlagField(bits) }

// Uint32 returns the raw register value.
func (f FlagField) Uint32() uint32 { return uint32(f) }

// Bit reports whether bit i is set.
//
// Precondition: 0 <= i < 32.
func (f FlagField) Bit(i int) bool {
	checkIndex(i)
	return f&(1<<uint(i)) != 0
}

// SetBit sets or clears bit i.
//
// Precondition: 0 <= i < 32.
func (f *FlagField) SetBit(i int, v bool) {
	checkIndex(i)
	if v {
		*f |= 1 << uint(i)
	} else {
		*f &^= 1 << uint(i)
	}
}

// Subfield returns the unsigned value stored in the width bits starting at
// offset.
//
// Precondition: width >= 1 and offset+width <= 32.
func (f FlagField) Subfield(offset, width int) uint32 {
	if err := checkRange(offset, width); err != nil {
		panic("flagfield: Subfield: " + err.Error())
	}
	return uint32((uint64(f) >> uint(offset)) & mask(width))
}

// SetSubfield overwrites the width bits starting at offset with value.
// The target range is cleared before value is written, so a second write
// never merges with the first.
//
// Postcondition: Subfield(offset, width) == value and all other bits are
// unchanged; returns a RangeError and leaves f untouched if the range is
// invalid or value does not fit in width bits.
func (f *FlagField) SetSubfield(offset, width int, value uint32) error {
	if err := checkRange(offset, width); err != nil {
		return err
	}
	m := mask(width)
	if uint64(value) > m {
		return &maperr.RangeError{
			Field: fmt.Sprintf("flags[%d:%d]", offset, offset+width),
			Value: value,
			Limit: fmt.Sprintf("at most %d", m),
		}
	}
	cleared := uint64(*f) &^ (m << uint(offset))
	*f = FlagField(cleared | uint64(value)<<uint(offset))
	return nil
}

// Byte returns byte i of the register, where byte 0 holds bits 0-7.
//
// Precondition: 0 <= i < 4.
func (f FlagField) Byte(i int) uint8 {
	return uint8(f.Subfield(i*8, 8))
}

// SetByte overwrites byte i of the register.
//
// Precondition: 0 <= i < 4.
func (f *FlagField) SetByte(i int, b uint8) {
	if err := f.SetSubfield(i*8, 8, uint32(b)); err != nil {
		panic("flagfield: SetByte: " + err.Error())
	}
}

func mask(width int) uint64 {
	return (uint64(1) << uint(width)) - 1
}

func checkIndex(i int) {
	if i < 0 || i >= Width {
		panic(fmt.Sprintf("flagfield: bit index %d out of range", i))
	}
}

func checkRange(offset, width int) error {
	if offset < 0 || width < 1 || offset+width > Width {
		return &maperr.RangeError{
			Field: "flags",
			Value: fmt.Sprintf("offset %d width %d", offset, width),
			Limit: "width >= 1 and offset+width <= 32",
		}
	}
	return nil
}
