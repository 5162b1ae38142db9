package cdkey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/gsgo/internal/crypto"
	"github.com/udisondev/gsgo/internal/value"
)

// captured CHALLENGE: ["2", "1", "1", []]
var challengeDatagram = []byte{
	0xd3,
	0x00, 0x00, 0x00, 0x12,
	0xa3, 0x22, 0xb1, 0x2d, 0x73, 0x40, 0x9f, 0xa3,
	0xf4, 0xfc, 0xf8, 0x0a, 0x03, 0xf1, 0x71, 0xd2,
	0x0b, 0x00,
}

func TestDecode_Challenge(t *testing.T) {
	msg, err := Decode(challengeDatagram)
	require.NoError(t, err)

	assert.Equal(t, byte(0xd3), msg.Type)
	assert.Equal(t, 2, msg.MsgID)
	assert.Equal(t, RequestChallenge, msg.Request)
	assert.Equal(t, 1, msg.Unknown)
	assert.Empty(t, msg.Body)
}

func TestEncode_MatchesCapture(t *testing.T) {
	msg := &Message{Type: 0xd3, MsgID: 2, Request: RequestChallenge, Unknown: 1}

	got, err := msg.Encode()
	require.NoError(t, err)
	assert.Equal(t, challengeDatagram, got)
}

func TestRespond_Challenge(t *testing.T) {
	req, err := Decode(challengeDatagram)
	require.NoError(t, err)

	resp := Respond(req)
	require.NotNil(t, resp)

	wire, err := resp.Encode()
	require.NoError(t, err)
	assert.Equal(t, byte(0xd3), wire[0])

	plain, err := crypto.MustCipher(crypto.GSStaticKey).Decrypt(wire[5:])
	require.NoError(t, err)
	l, err := value.UnmarshalInner(plain)
	require.NoError(t, err)

	want := value.List{
		value.Str("2"), value.Str("1"), value.Str("1"),
		value.List{value.Str("38"), value.Strs("2", "hi")},
	}
	assert.Equal(t, want, l)
}

func TestRespond_OtherRequestsUnanswered(t *testing.T) {
	for _, rt := range []RequestType{RequestActivation, RequestAuth, RequestValidation, RequestPlayerStatus} {
		assert.Nil(t, Respond(&Message{Request: rt}), rt.String())
	}
}

func TestDecode_Errors(t *testing.T) {
	encode := func(l value.List) []byte {
		t.Helper()
		plain, err := value.MarshalInner(l)
		require.NoError(t, err)
		enc, err := crypto.MustCipher(crypto.GSStaticKey).Encrypt(plain)
		require.NoError(t, err)
		return append([]byte{1, 0, 0, 0, byte(len(enc))}, enc...)
	}

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"short header", []byte{1, 0, 0}, ErrShortMessage},
		{"size past end", []byte{1, 0, 0, 0, 40, 1, 2}, ErrShortMessage},
		{"three fields", encode(value.Strs("1", "1", "0")), ErrIncomplete},
		{"unknown request", encode(value.List{value.Str("1"), value.Str("9"), value.Str("0"), value.List{}}), ErrUnknownRequest},
		{"msg id not a number", encode(value.List{value.Str("x"), value.Str("1"), value.Str("0"), value.List{}}), value.ErrMalformed},
		{"body not a list", encode(value.Strs("1", "1", "0", "body")), value.ErrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRequestType_String(t *testing.T) {
	assert.Equal(t, "CHALLENGE", RequestChallenge.String())
	assert.Equal(t, "PLAYER_STATUS", RequestPlayerStatus.String())
	assert.Equal(t, "RequestType(42)", RequestType(42).String())
}
