package nat

import (
	"encoding/binary"
	"slices"
)

// Checksum is the one's complement of the folded sum of little-endian
// 16-bit words. For odd lengths the first byte is added on its own and the
// words start at offset 1.
func Checksum(b []byte) uint16 {
	var sum uint32
	off := 0
	if len(b)%2 == 1 {
		sum += uint32(b[0])
		off = 1
	}
	for ; off+1 < len(b); off += 2 {
		sum += uint32(binary.LittleEndian.Uint16(b[off:]))
	}

	c := sum & 0xFFFF
	c += sum >> 16
	c += c >> 16
	return uint16(^c)
}

// VerifyChecksum recomputes the checksum of datagram with seed in the
// checksum field and compares it to the transmitted value.
func VerifyChecksum(datagram []byte, seed uint16) bool {
	if len(datagram) < 2 {
		return false
	}
	got := binary.LittleEndian.Uint16(datagram)

	buf := slices.Clone(datagram)
	binary.LittleEndian.PutUint16(buf, seed)
	return Checksum(buf) == got
}
