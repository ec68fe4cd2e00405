package protocol

import "encoding/binary"

// MaxVarintLen is the longest varint a uint64 encodes to.
const MaxVarintLen = binary.MaxVarintLen64

// EncodeUvarint writes v into buf and returns the number of bytes used.
// buf must hold at least MaxVarintLen bytes.
func EncodeUvarint(buf []byte, v uint64) int {
	return binary.PutUvarint(buf, v)
}

// DecodeUvarint reads a varint from the front of buf. The byte count is -1
// when buf ends inside the varint and -2 when the value overflows 64 bits.
func DecodeUvarint(buf []byte) (uint64, int) {
	v, n := binary.Uvarint(buf)
	switch {
	case n == 0:
		return 0, -1
	case n < 0:
		return 0, -2
	}
	return v, n
}

// UvarintLen returns the encoded size of v.
func UvarintLen(v uint64) int {
	n := 1
	for ; v >= 0x80; v >>= 7 {
		n++
	}
	return n
}

// StringLen returns the encoded size of a length-prefixed string.
func StringLen(s string) int {
	return UvarintLen(uint64(len(s))) + len(s)
}
