// Package handshake drives the per-connection KEY_EXCHANGE that negotiates
// the Blowfish session keys.
package handshake

import (
	"bytes"
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/udisondev/gsgo/internal/constants"
	"github.com/udisondev/gsgo/internal/crypto"
	"github.com/udisondev/gsgo/internal/value"
)

var (
	// ErrNotSupported is returned for the disconnect sub-request, which is a real
	// wire feature the server does not implement.
	ErrNotSupported = errors.New("key exchange request not supported")

	// ErrProtocolViolation is returned for out-of-order or unknown sub-requests
	// and for payloads that do not have the KEY_EXCHANGE shape.
	ErrProtocolViolation = errors.New("key exchange protocol violation")
)

// State is the position of a connection in the key exchange.
type State int

const (
	StateIdle State = iota
	StateAwaitingClientKey
	StateKeysEstablished
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingClientKey:
		return "awaiting-client-key"
	case StateKeysEstablished:
		return "keys-established"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Config holds the RSA parameters of the exchange.
type Config struct {
	KeyBits int
	Padding crypto.Padding
}

// KeyState is the key material of one connection. It is owned by the
// connection goroutine and is not safe for concurrent use.
type KeyState struct {
	cfg   Config
	state State

	local     *crypto.RSAKeyPair
	clientPub *rsa.PublicKey

	clientSessionKey []byte
	serverSessionKey []byte
	session          *crypto.Cipher
}

// NewKeyState creates a KeyState in StateIdle.
func NewKeyState(cfg Config) *KeyState {
	if cfg.KeyBits == 0 {
		cfg.KeyBits = constants.RSADefaultKeyBits
	}
	return &KeyState{cfg: cfg}
}

// State returns the current handshake state.
func (k *KeyState) State() State { return k.state }

// SessionKey returns the cipher for session-encrypted traffic, or nil before
// the exchange completed. Traffic is keyed with the server-generated key.
func (k *KeyState) SessionKey() *crypto.Cipher { return k.session }

// ClientSessionKey returns the key the client sent in sub-request 2.
func (k *KeyState) ClientSessionKey() []byte { return k.clientSessionKey }

// ServerSessionKey returns the key the server generated in sub-request 2.
func (k *KeyState) ServerSessionKey() []byte { return k.serverSessionKey }

// LocalPublicKey returns the wire form of the server public key, nil before sub-request 1.
func (k *KeyState) LocalPublicKey() []byte {
	if k.local == nil {
		return nil
	}
	return k.local.PublicBlob
}

// Step handles one KEY_EXCHANGE payload and returns the response payload.
//
// Request and response bodies share one shape:
//
//	[sub_id, ["1", key_len, key_bin]]
func (k *KeyState) Step(req value.List) (value.List, error) {
	sub, err := req.Int(0)
	if err != nil {
		return nil, fmt.Errorf("%w: sub-request id: %w", ErrProtocolViolation, err)
	}

	switch sub {
	case constants.KeyExchangeRequestPublicKey:
		return k.stepPublicKey(req)
	case constants.KeyExchangeRequestSessionKey:
		return k.stepSessionKey(req)
	case constants.KeyExchangeRequestDisconnect:
		return nil, fmt.Errorf("%w: disconnect (sub-request %d)", ErrNotSupported, sub)
	default:
		return nil, fmt.Errorf("%w: unknown sub-request %d", ErrProtocolViolation, sub)
	}
}

func (k *KeyState) stepPublicKey(req value.List) (value.List, error) {
	if k.state != StateIdle {
		return nil, fmt.Errorf("%w: public key request in state %s", ErrProtocolViolation, k.state)
	}

	blob, err := keyBlob(req)
	if err != nil {
		return nil, err
	}
	clientPub, err := crypto.ParsePublicKey(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: client public key: %w", ErrProtocolViolation, err)
	}

	local, err := crypto.GenerateRSAKeyPair(k.cfg.KeyBits)
	if err != nil {
		return nil, fmt.Errorf("key exchange: %w", err)
	}

	k.clientPub = clientPub
	k.local = local
	k.state = StateAwaitingClientKey

	return keyPayload(constants.KeyExchangeRequestPublicKey, local.PublicBlob), nil
}

func (k *KeyState) stepSessionKey(req value.List) (value.List, error) {
	if k.state != StateAwaitingClientKey {
		return nil, fmt.Errorf("%w: session key request in state %s", ErrProtocolViolation, k.state)
	}

	enc, err := keyBlob(req)
	if err != nil {
		return nil, err
	}
	plain, err := crypto.RSADecrypt(k.local.PrivateKey, enc, k.cfg.Padding)
	if err != nil {
		return nil, fmt.Errorf("%w: client session key: %w", ErrProtocolViolation, err)
	}

	clientKey := plain
	if k.cfg.Padding == crypto.PaddingNone {
		// raw RSA возвращает блок размером с модуль, ключ в младших байтах
		if len(plain) < constants.SessionKeySize {
			return nil, fmt.Errorf("%w: decrypted block of %d bytes", ErrProtocolViolation, len(plain))
		}
		clientKey = plain[len(plain)-constants.SessionKeySize:]
	}
	if len(clientKey) == 0 {
		return nil, fmt.Errorf("%w: empty client session key", ErrProtocolViolation)
	}

	serverKey, err := newDistinctKey(clientKey)
	if err != nil {
		return nil, fmt.Errorf("key exchange: %w", err)
	}
	wrapped, err := crypto.RSAEncrypt(k.clientPub, serverKey, k.cfg.Padding)
	if err != nil {
		return nil, fmt.Errorf("key exchange: wrapping server session key: %w", err)
	}
	session, err := crypto.NewCipher(serverKey)
	if err != nil {
		return nil, fmt.Errorf("key exchange: %w", err)
	}

	k.clientSessionKey = bytes.Clone(clientKey)
	k.serverSessionKey = serverKey
	k.session = session
	k.state = StateKeysEstablished

	return keyPayload(constants.KeyExchangeRequestSessionKey, wrapped), nil
}

func newDistinctKey(other []byte) ([]byte, error) {
	for {
		key, err := crypto.GenerateSessionKey(constants.SessionKeySize)
		if err != nil {
			return nil, err
		}
		if !bytes.Equal(key, other) {
			return key, nil
		}
	}
}

// keyBlob extracts key_bin from [sub_id, [_, key_len, key_bin]].
func keyBlob(req value.List) ([]byte, error) {
	inner, err := req.Sub(1)
	if err != nil {
		return nil, fmt.Errorf("%w: key list: %w", ErrProtocolViolation, err)
	}
	blob, err := inner.Bytes(2)
	if err != nil {
		return nil, fmt.Errorf("%w: key blob: %w", ErrProtocolViolation, err)
	}
	if n, err := inner.Int(1); err == nil && n != len(blob) {
		return nil, fmt.Errorf("%w: key length %d, blob has %d bytes", ErrProtocolViolation, n, len(blob))
	}
	return blob, nil
}

func keyPayload(sub int, blob []byte) value.List {
	return value.List{
		value.Itoa(sub),
		value.List{value.Str("1"), value.Itoa(len(blob)), value.Bin(blob)},
	}
}
