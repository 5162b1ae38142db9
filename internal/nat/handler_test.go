package nat

import (
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/gsgo/internal/protocol"
	"github.com/udisondev/gsgo/internal/value"
)

var clientAddr = netip.MustParseAddrPort("192.0.2.10:4500")

func newTestHandler(verify bool) (*Handler, *Registry) {
	reg := NewRegistry()
	return NewHandler(reg, protocol.NewCodec(nil), verify), reg
}

func synRequest(checksumInit uint16) []byte {
	win := Window{Tail: 0x000a, SenderSig: 0xbeef, ChecksumInit: checksumInit, BufSize: 0x0218}
	return Encode(Header{Signature: 0x1234, Flags: FlagProtocolID | FlagSYN, Seg: 5}, AppendWindow(nil, win), checksumInit)
}

func TestHandler_SynReply(t *testing.T) {
	h, reg := newTestHandler(false)

	reply, err := h.Handle(clientAddr, synRequest(0))
	require.NoError(t, err)
	assert.Equal(t, mustHex(t, "930eefbe08004630060005000a00020000001802"), reply)

	peer, ok := reg.Find(clientAddr)
	require.True(t, ok)
	assert.Equal(t, uint16(0xbeef), peer.SenderSig)
	assert.Equal(t, uint16(0), peer.ChecksumInit)
	assert.Equal(t, uint16(5), peer.Seg)
}

func TestHandler_Lifecycle(t *testing.T) {
	h, reg := newTestHandler(false)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	h.now = func() time.Time { return now }

	_, err := h.Handle(clientAddr, synRequest(0x1111))
	require.NoError(t, err)

	body, err := protocol.NewCodec(nil).Encode(&protocol.Message{
		Header:     protocol.Header{Property: protocol.PropertyGS, Type: protocol.MsgPing, Sender: protocol.RoleR, Receiver: protocol.RoleS},
		Payload:    value.Strs("ping"),
		HasPayload: true,
	})
	require.NoError(t, err)

	now = now.Add(time.Second)
	reply, err := h.Handle(clientAddr, Encode(Header{Signature: 2, Flags: FlagProtocolID, Seg: 6, Ack: 6}, body, 0))
	require.NoError(t, err)

	got, err := Decode(reply, protocol.NewCodec(nil))
	require.NoError(t, err)
	assert.Equal(t, FlagProtocolID|FlagACK, got.Flags)
	assert.Equal(t, uint16(0xbeef), got.Signature)
	assert.Equal(t, uint16(7), got.Seg)
	assert.Equal(t, uint16(6), got.Ack)
	assert.Equal(t, body, got.Body)
	assert.True(t, VerifyChecksum(reply, 0x1111), "replies are seeded with the peer's checksum_init")

	peer, ok := reg.Find(clientAddr)
	require.True(t, ok)
	assert.Equal(t, uint16(6), peer.Seg)
	assert.Equal(t, now, peer.LastSeen)

	// bare ACK is consumed silently
	reply, err = h.Handle(clientAddr, Encode(Header{Signature: 2, Flags: FlagProtocolID | FlagACK, Seg: 7, Ack: 7}, nil, 0))
	require.NoError(t, err)
	assert.Nil(t, reply)

	reply, err = h.Handle(clientAddr, Encode(Header{Signature: 2, Flags: FlagProtocolID | FlagFIN, Seg: 8, Ack: 7}, nil, 0))
	require.NoError(t, err)
	got, err = Decode(reply, protocol.NewCodec(nil))
	require.NoError(t, err)
	assert.Equal(t, FlagProtocolID|FlagFIN|FlagACK, got.Flags)
	assert.Equal(t, uint16(9), got.Seg)
	assert.Equal(t, 0, reg.Len())

	_, err = h.Handle(clientAddr, Encode(Header{Signature: 2, Flags: FlagProtocolID, Seg: 9}, body, 0))
	assert.ErrorIs(t, err, ErrUnknownPeer)
}

func TestHandler_UnknownPeer(t *testing.T) {
	h, _ := newTestHandler(false)

	_, err := h.Handle(clientAddr, Encode(Header{Flags: FlagProtocolID | FlagFIN, Seg: 1}, nil, 0))
	assert.ErrorIs(t, err, ErrUnknownPeer)

	_, err = h.Handle(clientAddr, Encode(Header{Flags: FlagProtocolID | FlagACK, Seg: 1}, nil, 0))
	assert.ErrorIs(t, err, ErrUnknownPeer)
}

func TestHandler_Echo(t *testing.T) {
	h, reg := newTestHandler(true)

	tests := []struct {
		name     string
		datagram []byte
	}{
		{"probe", []byte("ping")},
		{"empty", []byte{}},
		{"no protocol id", mustHex(t, "000034120800020005000000aabbccddeeff0011")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply, err := h.Handle(clientAddr, tt.datagram)
			require.NoError(t, err)
			assert.Equal(t, tt.datagram, reply)
		})
	}
	assert.Equal(t, 0, reg.Len())
}

func TestHandler_SynWithoutWindow(t *testing.T) {
	h, _ := newTestHandler(false)

	_, err := h.Handle(clientAddr, Encode(Header{Flags: FlagProtocolID | FlagSYN}, nil, 0))
	assert.ErrorIs(t, err, ErrMalformedSegment)
}

func TestHandler_VerifyChecksum(t *testing.T) {
	h, reg := newTestHandler(true)

	bad := synRequest(0x1111)
	bad[0] ^= 0x01
	_, err := h.Handle(clientAddr, bad)
	assert.ErrorIs(t, err, ErrChecksumMismatch)
	assert.Equal(t, 0, reg.Len())

	reply, err := h.Handle(clientAddr, synRequest(0x1111))
	require.NoError(t, err)
	assert.True(t, VerifyChecksum(reply, 0x1111))

	// после SYN клиент считает checksum с нашим checksum_init
	data := Encode(Header{Signature: 2, Flags: FlagProtocolID | FlagACK, Seg: 6, Ack: 6}, nil, 0)
	reply, err = h.Handle(clientAddr, data)
	require.NoError(t, err)
	assert.Nil(t, reply)

	data[2] ^= 0xFF
	_, err = h.Handle(clientAddr, data)
	assert.ErrorIs(t, err, ErrChecksumMismatch)
}

func TestHandler_BadEmbeddedMessage(t *testing.T) {
	h, _ := newTestHandler(false)
	_, err := h.Handle(clientAddr, synRequest(0))
	require.NoError(t, err)

	_, err = h.Handle(clientAddr, Encode(Header{Flags: FlagProtocolID, Seg: 6}, []byte{0, 0, 9, 0, 58}, 0))
	assert.Error(t, err)
}
