package protocol

import (
	"bytes"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/gsgo/internal/crypto"
	"github.com/udisondev/gsgo/internal/value"
)

func TestHeader_BitPacking(t *testing.T) {
	h := Header{
		Size:     0x010203,
		Property: PropertyEncrypted,
		Priority: 0x3F,
		Type:     MsgKeyExchange,
		Sender:   RoleProxy,
		Receiver: RoleR,
	}

	b, err := AppendHeader(nil, h)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0xBF, 219, 0xB1}, b)

	got, err := ParseHeader(b)
	require.NoError(t, err)
	assert.Equal(t, h, got)
}

func TestHeader_PriorityKeepsSixBits(t *testing.T) {
	b, err := AppendHeader(nil, Header{Size: 6, Property: PropertyGS, Priority: 0xFF, Type: MsgPing, Sender: RoleS, Receiver: RoleS})
	require.NoError(t, err)
	assert.Equal(t, byte(0x3F), b[3])
}

func TestParseHeader_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   []byte
		wantErr error
	}{
		{"short", []byte{0, 0, 6, 0}, ErrShortBuffer},
		{"size below header", []byte{0, 0, 5, 0, 58, 0x11}, ErrBadSize},
		{"reserved property", []byte{0, 0, 6, 0xC0, 58, 0x11}, ErrUnknownProperty},
		{"unknown type", []byte{0, 0, 6, 0, 10, 0x11}, ErrUnknownMessageType},
		{"unknown sender", []byte{0, 0, 6, 0, 58, 0xC1}, ErrUnknownRole},
		{"zero receiver", []byte{0, 0, 6, 0, 58, 0x10}, ErrUnknownRole},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseHeader(tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestMessageType_Names(t *testing.T) {
	assert.Equal(t, "KEY_EXCHANGE", MsgKeyExchange.String())
	assert.Equal(t, "GSSUCCESS", MsgGSSuccess.String())
	assert.Equal(t, "MessageType(10)", MessageType(10).String())
	assert.Equal(t, "PROXY", RoleProxy.String())
	assert.False(t, Role(0).Known())
}

func TestCodec_DecodeKeyExchangeProbe(t *testing.T) {
	// KEY_EXCHANGE sub-request 2 with an empty key list, GS property, S->R
	buf := []byte{0x00, 0x00, 0x11, 0x00, 219, 0x21,
		0x73, 0x32, 0x00, 0x73, 0x31, 0x00, 0x73, 0x31, 0x00, 0x5B, 0x5D}

	msg, err := NewCodec(nil).Decode(buf, nil)
	require.NoError(t, err)
	assert.Equal(t, MsgKeyExchange, msg.Type)
	assert.Equal(t, RoleS, msg.Sender)
	assert.Equal(t, RoleR, msg.Receiver)
	assert.True(t, msg.HasPayload)
	assert.Equal(t, value.List{value.Str("2"), value.Str("1"), value.Str("1"), value.List{}}, msg.Payload)
}

func TestCodec_HeaderOnly(t *testing.T) {
	c := NewCodec(nil)
	msg := &Message{Header: Header{Property: PropertyGS, Type: MsgStillAlive, Sender: RoleS, Receiver: RoleR}}

	b, err := c.Encode(msg)
	require.NoError(t, err)
	assert.Len(t, b, 6)

	got, err := c.Decode(b, nil)
	require.NoError(t, err)
	assert.False(t, got.HasPayload)
	assert.Nil(t, got.Payload)
}

func TestCodec_RoundTripWithObfuscation(t *testing.T) {
	c := NewCodec(crypto.XORChain{Seed: 0x33})
	msg := (&Message{Header: Header{Property: PropertyGS, Priority: 1, Type: MsgLogin, Sender: RoleS, Receiver: RoleR}}).
		SetPayload(value.List{value.Str("player"), value.Strs("a", "b")})

	b, err := c.Encode(msg)
	require.NoError(t, err)
	assert.Equal(t, uint32(len(b)), msg.Size)

	got, err := c.Decode(b, nil)
	require.NoError(t, err)
	assert.Equal(t, msg.Payload, got.Payload)
	assert.Equal(t, msg.Header, got.Header)
}

func TestCodec_GamePassthrough(t *testing.T) {
	c := NewCodec(nil)
	raw := []byte{0xde, 0xad, 0xbe, 0xef, 0x00, 0x5B}
	msg := &Message{Header: Header{Property: PropertyGame, Type: MsgLobbyMsg, Sender: RoleP, Receiver: RoleG}, HasPayload: true, Raw: raw}

	b, err := c.Encode(msg)
	require.NoError(t, err)

	got, err := c.Decode(b, nil)
	require.NoError(t, err)
	assert.Equal(t, raw, got.Raw)
	assert.Nil(t, got.Payload)
}

func TestCodec_SessionEncryptedDecode(t *testing.T) {
	key, err := crypto.GenerateSessionKey(16)
	require.NoError(t, err)
	cipher, err := crypto.NewCipher(key)
	require.NoError(t, err)

	plain, err := value.MarshalInner(value.Strs("1", "hello"))
	require.NoError(t, err)
	body, err := cipher.Encrypt(plain)
	require.NoError(t, err)

	hdr, err := AppendHeader(nil, Header{Size: uint32(6 + len(body)), Property: PropertyEncrypted, Type: MsgLogin, Sender: RoleS, Receiver: RoleR})
	require.NoError(t, err)
	buf := append(hdr, body...)

	c := NewCodec(nil)
	msg, err := c.Decode(buf, cipher)
	require.NoError(t, err)
	assert.Equal(t, value.Strs("1", "hello"), msg.Payload)

	_, err = c.Decode(buf, nil)
	assert.ErrorIs(t, err, ErrNoSessionKey)
}

func TestCodec_EncodeEncryptedUnsupported(t *testing.T) {
	msg := (&Message{Header: Header{Property: PropertyEncrypted, Type: MsgLogin, Sender: RoleS, Receiver: RoleR}}).
		SetPayload(value.Strs("x"))

	_, err := NewCodec(nil).Encode(msg)
	assert.ErrorIs(t, err, ErrUnsupportedProperty)
}

func TestCodec_DecodeMalformedPayload(t *testing.T) {
	buf := []byte{0x00, 0x00, 0x08, 0x00, 58, 0x21, 'x', 0x00}
	_, err := NewCodec(nil).Decode(buf, nil)
	assert.ErrorIs(t, err, value.ErrMalformed)
}

func TestCodec_DecodeTruncated(t *testing.T) {
	buf := []byte{0x00, 0x00, 0x20, 0x00, 58, 0x21, 's', 0x00}
	_, err := NewCodec(nil).Decode(buf, nil)
	assert.ErrorIs(t, err, ErrShortBuffer)
}

func TestNewResponse_SwapsRoles(t *testing.T) {
	req := (&Message{Header: Header{Size: 42, Property: PropertyGS, Priority: 3, Type: MsgLogin, Sender: RoleS, Receiver: RoleR}}).
		SetPayload(value.Strs("x"))

	resp := NewResponse(req)
	assert.Equal(t, RoleR, resp.Sender)
	assert.Equal(t, RoleS, resp.Receiver)
	assert.Equal(t, MsgLogin, resp.Type)
	assert.Equal(t, uint8(3), resp.Priority)
	assert.False(t, resp.HasPayload)
	// запрос не трогаем
	assert.Equal(t, RoleS, req.Sender)
}

func TestDecodeBundle_TwoMessages(t *testing.T) {
	c := NewCodec(nil)
	first := (&Message{Header: Header{Property: PropertyGS, Type: MsgLogin, Sender: RoleS, Receiver: RoleR}}).
		SetPayload(value.Strs("user", "pass"))
	second := &Message{Header: Header{Property: PropertyGame, Priority: 2, Type: MsgStillAlive, Sender: RoleS, Receiver: RoleR}, HasPayload: true, Raw: []byte{1, 2, 3}}

	buf, err := c.AppendEncode(nil, first)
	require.NoError(t, err)
	buf, err = c.AppendEncode(buf, second)
	require.NoError(t, err)

	msgs, err := c.DecodeBundle(buf, nil)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.Equal(t, first.Header, msgs[0].Header)
	assert.Equal(t, first.Payload, msgs[0].Payload)
	assert.Equal(t, second.Header, msgs[1].Header)
	assert.Equal(t, []byte{1, 2, 3}, msgs[1].Raw)
}

func TestDecodeBundle_TrailingGarbage(t *testing.T) {
	c := NewCodec(nil)
	buf, err := c.Encode(&Message{Header: Header{Property: PropertyGS, Type: MsgPing, Sender: RoleS, Receiver: RoleR}})
	require.NoError(t, err)
	buf = append(buf, 0x00, 0x00)

	msgs, err := c.DecodeBundle(buf, nil)
	assert.ErrorIs(t, err, ErrShortBuffer)
	assert.Len(t, msgs, 1)

	_, err = c.DecodeBundle(nil, nil)
	assert.ErrorIs(t, err, ErrShortBuffer)
}

func TestReadBundle_CompletesPartialMessage(t *testing.T) {
	c := NewCodec(nil)
	msg := (&Message{Header: Header{Property: PropertyGS, Type: MsgLogin, Sender: RoleS, Receiver: RoleR}}).
		SetPayload(value.Strs("a-rather-long-login-name", "secret"))
	wire, err := c.Encode(msg)
	require.NoError(t, err)

	client, server := net.Pipe()
	defer server.Close()
	go func() {
		defer client.Close()
		// три куска: середина заголовка, середина payload, хвост
		_, _ = client.Write(wire[:4])
		_, _ = client.Write(wire[4:12])
		_, _ = client.Write(wire[12:])
	}()

	buf := make([]byte, 256)
	got, err := ReadBundle(server, buf)
	require.NoError(t, err)
	assert.Equal(t, wire, got)
}

func TestReadBundle_Errors(t *testing.T) {
	t.Run("eof", func(t *testing.T) {
		_, err := ReadBundle(bytes.NewReader(nil), make([]byte, 16))
		assert.ErrorIs(t, err, io.EOF)
	})

	t.Run("bad size", func(t *testing.T) {
		_, err := ReadBundle(bytes.NewReader([]byte{0, 0, 2, 0, 58, 0x21}), make([]byte, 16))
		assert.ErrorIs(t, err, ErrBadSize)
	})

	t.Run("exceeds buffer", func(t *testing.T) {
		_, err := ReadBundle(bytes.NewReader([]byte{0, 0, 64, 0, 58, 0x21}), make([]byte, 16))
		assert.Error(t, err)
	})

	t.Run("truncated stream", func(t *testing.T) {
		_, err := ReadBundle(bytes.NewReader([]byte{0, 0, 12, 0, 58, 0x21, 's'}), make([]byte, 16))
		assert.ErrorIs(t, err, io.EOF)
	})
}
