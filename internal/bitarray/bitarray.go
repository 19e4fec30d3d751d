// Package bitarray provides a fixed-capacity bit container for packing
// protocol and metadata headers.
//
// Bits are numbered from the most significant bit of byte 0: bit 0 is mask
// 0x80 of byte 0 and bit 8 is mask 0x80 of byte 1. Multi-bit fields use the
// same order, so the most significant bit of a field lands on its lowest
// bit position. This matches the order in which headers appear on the wire.
package bitarray

import (
	"encoding/binary"
	"strings"

	"github.com/tphakala/audioengine/internal/errors"
)

// MaxFieldBits is the widest field SetField and GetField accept.
const MaxFieldBits = 32

var (
	ErrOutOfRange = errors.New(errors.NewStd("bit position out of range")).
			Component("bitarray").
			Category(errors.CategoryLimit).
			Build()
	ErrFieldWidth = errors.New(errors.NewStd("field width must be 1-32 bits")).
			Component("bitarray").
			Category(errors.CategoryValidation).
			Build()
)

// Field is one value in a SetFields or GetFields list.
type Field struct {
	Value uint32
	Bits  int
}

// BitArray holds a fixed number of bits, always a multiple of 8.
type BitArray struct {
	data []byte
	bits int
}

// New returns a zeroed array of n bits. n must be a non-negative multiple
// of 8.
func New(n int) (*BitArray, error) {
	if n < 0 || n%8 != 0 {
		return nil, errors.Newf("bit count %d is not a multiple of 8", n).
			Component("bitarray").
			Category(errors.CategoryValidation).
			Build()
	}
	return &BitArray{data: make([]byte, n/8), bits: n}, nil
}

// FromBytes wraps a copy of b.
func FromBytes(b []byte) *BitArray {
	return &BitArray{data: append([]byte(nil), b...), bits: 8 * len(b)}
}

// Len returns the capacity in bits.
func (a *BitArray) Len() int {
	return a.bits
}

func (a *BitArray) check(pos, width int) error {
	if pos < 0 || width < 0 || pos+width > a.bits {
		return errors.New(ErrOutOfRange).
			Component("bitarray").
			Category(errors.CategoryLimit).
			Context("position", pos).
			Context("width", width).
			Context("bits", a.bits).
			Build()
	}
	return nil
}

func mask(pos int) byte {
	return 0x80 >> (pos % 8)
}

func (a *BitArray) put(pos int, v bool) {
	if v {
		a.data[pos/8] |= mask(pos)
	} else {
		a.data[pos/8] &^= mask(pos)
	}
}

func (a *BitArray) get(pos int) bool {
	return a.data[pos/8]&mask(pos) != 0
}

// Set sets the bit at pos to v.
func (a *BitArray) Set(pos int, v bool) error {
	if err := a.check(pos, 1); err != nil {
		return err
	}
	a.put(pos, v)
	return nil
}

// Test reports whether the bit at pos is set.
func (a *BitArray) Test(pos int) (bool, error) {
	if err := a.check(pos, 1); err != nil {
		return false, err
	}
	return a.get(pos), nil
}

// Flip inverts the bit at pos.
func (a *BitArray) Flip(pos int) error {
	if err := a.check(pos, 1); err != nil {
		return err
	}
	a.data[pos/8] ^= mask(pos)
	return nil
}

// FlipAll inverts every bit.
func (a *BitArray) FlipAll() {
	for i := range a.data {
		a.data[i] = ^a.data[i]
	}
}

// SetField stores the low width bits of value starting at pos, most
// significant bit first.
func (a *BitArray) SetField(pos int, value uint32, width int) error {
	if width < 1 || width > MaxFieldBits {
		return ErrFieldWidth
	}
	if err := a.check(pos, width); err != nil {
		return err
	}
	for i := range width {
		a.put(pos+i, value>>(width-1-i)&1 == 1)
	}
	return nil
}

// GetField reads width bits starting at pos, most significant bit first.
func (a *BitArray) GetField(pos, width int) (uint32, error) {
	if width < 1 || width > MaxFieldBits {
		return 0, ErrFieldWidth
	}
	if err := a.check(pos, width); err != nil {
		return 0, err
	}
	var v uint32
	for i := range width {
		v <<= 1
		if a.get(pos + i) {
			v |= 1
		}
	}
	return v, nil
}

func (a *BitArray) checkFields(start int, fields []Field) error {
	total := 0
	for _, f := range fields {
		if f.Bits < 1 || f.Bits > MaxFieldBits {
			return ErrFieldWidth
		}
		total += f.Bits
	}
	return a.check(start, total)
}

// SetFields writes consecutive fields starting at start. Nothing is written
// unless every field fits.
func (a *BitArray) SetFields(start int, fields []Field) error {
	if err := a.checkFields(start, fields); err != nil {
		return err
	}
	pos := start
	for _, f := range fields {
		_ = a.SetField(pos, f.Value, f.Bits)
		pos += f.Bits
	}
	return nil
}

// GetFields fills the Value of each field from consecutive bits starting at
// start.
func (a *BitArray) GetFields(start int, fields []Field) error {
	if err := a.checkFields(start, fields); err != nil {
		return err
	}
	pos := start
	for i := range fields {
		fields[i].Value, _ = a.GetField(pos, fields[i].Bits)
		pos += fields[i].Bits
	}
	return nil
}

// String renders the bits in position order as '0' and '1'.
func (a *BitArray) String() string {
	var sb strings.Builder
	sb.Grow(a.bits)
	for i := range a.bits {
		if a.get(i) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// Uint32 packs the first four bytes big-endian, zero padded.
func (a *BitArray) Uint32() uint32 {
	var b [4]byte
	copy(b[:], a.data)
	return binary.BigEndian.Uint32(b[:])
}

// Uint32LE packs the first four bytes little-endian, zero padded.
func (a *BitArray) Uint32LE() uint32 {
	var b [4]byte
	copy(b[:], a.data)
	return binary.LittleEndian.Uint32(b[:])
}

// Uint32s packs every four bytes big-endian. A short tail is zero padded on
// the right.
func (a *BitArray) Uint32s() []uint32 {
	out := make([]uint32, 0, (len(a.data)+3)/4)
	for i := 0; i < len(a.data); i += 4 {
		var b [4]byte
		copy(b[:], a.data[i:])
		out = append(out, binary.BigEndian.Uint32(b[:]))
	}
	return out
}

// Bytes returns a copy of the underlying bytes.
func (a *BitArray) Bytes() []byte {
	return append([]byte(nil), a.data...)
}
