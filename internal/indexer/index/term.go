package index

import (
	"encoding/binary"
	"math"
)

// Key kinds distinguish the term namespaces that share one dictionary.
const (
	KindToken   byte = 't'
	KindExact   byte = 'x'
	KindNumeric byte = 'n'
	KindBytes   byte = 'b'
)

const keyPrefixLen = 5

// Key builds the dictionary key for a term: the big-endian field id, the
// kind byte and the encoded term bytes.
func Key(field uint32, kind byte, data []byte) string {
	buf := make([]byte, keyPrefixLen+len(data))
	binary.BigEndian.PutUint32(buf[0:4], field)
	buf[4] = kind
	copy(buf[keyPrefixLen:], data)
	return string(buf)
}

// TokenKey is Key for an analysed text token.
func TokenKey(field uint32, token string) string {
	return Key(field, KindToken, []byte(token))
}

// KeyField extracts the field id from a key built by Key.
func KeyField(key string) uint32 {
	if len(key) < keyPrefixLen {
		return math.MaxUint32
	}
	return binary.BigEndian.Uint32([]byte(key[0:4]))
}

// EncodeI64 maps v to 8 bytes whose lexical order matches numeric order.
func EncodeI64(v int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(v)^(1<<63))
	return buf
}

// EncodeF64 maps f to 8 bytes whose lexical order matches numeric order.
// Negative zero is folded into positive zero.
func EncodeF64(f float64) []byte {
	if f == 0 {
		f = 0
	}
	bits := math.Float64bits(f)
	if bits&(1<<63) != 0 {
		bits = ^bits
	} else {
		bits |= 1 << 63
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, bits)
	return buf
}
