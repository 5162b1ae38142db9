package nat

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad hex %q: %v", s, err)
	}
	return b
}

func TestChecksum_Vectors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  uint16
	}{
		{"syn request", "0000341208004230050000000a00efbe00001802", 0xfc6a},
		{"syn ack", "0000efbe08004630060005000a00020000001802", 0x0e93},
		{"syn ack seeded", "1111efbe08004630060005000a00020000001802", 0xfd81},
		{"odd length", "010203", 0xfcfc},
		{"empty", "", 0xffff},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Checksum(mustHex(t, tt.input)))
		})
	}
}

func TestVerifyChecksum(t *testing.T) {
	reply := mustHex(t, "930eefbe08004630060005000a00020000001802")

	assert.True(t, VerifyChecksum(reply, 0))
	assert.False(t, VerifyChecksum(reply, 0x1111))

	// the datagram itself is not modified
	assert.Equal(t, byte(0x93), reply[0])

	reply[12] ^= 0xFF
	assert.False(t, VerifyChecksum(reply, 0))
	assert.False(t, VerifyChecksum([]byte{1}, 0))
}
