package testutil

import (
	"fmt"
	"testing"

	"github.com/udisondev/gsgo/internal/constants"
	"github.com/udisondev/gsgo/internal/crypto"
	"github.com/udisondev/gsgo/internal/value"
)

// KeyClient играет роль игрового клиента в KEY_EXCHANGE.
type KeyClient struct {
	KeyPair *crypto.RSAKeyPair
	Key     []byte
	Padding crypto.Padding

	// ServerKey is set by AcceptServerKey.
	ServerKey []byte
}

// NewKeyClient generates a 512-bit client key pair and a session key.
func NewKeyClient(t testing.TB, padding crypto.Padding) *KeyClient {
	t.Helper()

	kp, err := crypto.GenerateRSAKeyPair(constants.TestRSAKeyBits)
	if err != nil {
		t.Fatalf("generating client key pair: %v", err)
	}
	key, err := crypto.GenerateSessionKey(constants.SessionKeySize)
	if err != nil {
		t.Fatalf("generating client session key: %v", err)
	}
	return &KeyClient{KeyPair: kp, Key: key, Padding: padding}
}

// PublicKeyRequest builds the sub-request 1 payload.
func (c *KeyClient) PublicKeyRequest() value.List {
	return KeyPayload(constants.KeyExchangeRequestPublicKey, c.KeyPair.PublicBlob)
}

// SessionKeyRequest wraps the client key with the server key from resp.
func (c *KeyClient) SessionKeyRequest(resp value.List) (value.List, error) {
	blob, err := KeyBlob(resp)
	if err != nil {
		return nil, err
	}
	pub, err := crypto.ParsePublicKey(blob)
	if err != nil {
		return nil, fmt.Errorf("server public key: %w", err)
	}
	enc, err := crypto.RSAEncrypt(pub, c.Key, c.Padding)
	if err != nil {
		return nil, err
	}
	return KeyPayload(constants.KeyExchangeRequestSessionKey, enc), nil
}

// AcceptServerKey unwraps the server session key from resp.
func (c *KeyClient) AcceptServerKey(resp value.List) ([]byte, error) {
	blob, err := KeyBlob(resp)
	if err != nil {
		return nil, err
	}
	plain, err := crypto.RSADecrypt(c.KeyPair.PrivateKey, blob, c.Padding)
	if err != nil {
		return nil, err
	}
	if c.Padding == crypto.PaddingNone {
		plain = plain[len(plain)-constants.SessionKeySize:]
	}
	c.ServerKey = plain
	return plain, nil
}

// KeyPayload builds [sub, ["1", len, blob]].
func KeyPayload(sub int, blob []byte) value.List {
	return value.List{
		value.Itoa(sub),
		value.List{value.Str("1"), value.Itoa(len(blob)), value.Bin(blob)},
	}
}

// KeyBlob extracts the binary element of a KEY_EXCHANGE payload.
func KeyBlob(payload value.List) ([]byte, error) {
	inner, err := payload.Sub(1)
	if err != nil {
		return nil, err
	}
	return inner.Bytes(2)
}
