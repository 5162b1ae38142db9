package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"slices"

	"github.com/udisondev/gsgo/internal/constants"
)

// ErrPublicKeyFormat is returned for public key blobs that do not parse.
var ErrPublicKeyFormat = errors.New("malformed public key")

// Padding selects the RSA block format used for session key transport.
type Padding int

const (
	// PaddingNone is textbook RSA: m^e mod n over the big-endian block.
	PaddingNone Padding = iota
	// PaddingPKCS1v15 is PKCS#1 v1.5 encryption padding.
	PaddingPKCS1v15
)

func (p Padding) String() string {
	switch p {
	case PaddingNone:
		return "none"
	case PaddingPKCS1v15:
		return "pkcs1v15"
	default:
		return fmt.Sprintf("Padding(%d)", int(p))
	}
}

// ParsePadding maps a configuration value to a Padding.
func ParsePadding(s string) (Padding, error) {
	switch s {
	case "", "none":
		return PaddingNone, nil
	case "pkcs1v15":
		return PaddingPKCS1v15, nil
	default:
		return 0, fmt.Errorf("unknown rsa padding %q", s)
	}
}

// RSAKeyPair holds the server key pair and its pre-encoded public blob.
type RSAKeyPair struct {
	PrivateKey *rsa.PrivateKey
	PublicBlob []byte
}

// GenerateRSAKeyPair generates a key pair with exponent 65537 (F4)
// and pre-computes the wire form of the public key.
func GenerateRSAKeyPair(bits int) (*RSAKeyPair, error) {
	if bits <= 0 {
		bits = constants.RSADefaultKeyBits
	}
	if bits%32 != 0 {
		return nil, fmt.Errorf("generating RSA key: %d bits is not a multiple of 32", bits)
	}

	privateKey, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("generating RSA key: %w", err)
	}

	blob, err := MarshalPublicKey(&privateKey.PublicKey)
	if err != nil {
		return nil, err
	}

	return &RSAKeyPair{
		PrivateKey: privateKey,
		PublicBlob: blob,
	}, nil
}

// MarshalPublicKey encodes pub as little-endian 32-bit words:
//
//	[bit length][modulus, least significant word first][exponent]
//
// The modulus occupies bitLen/32 words.
func MarshalPublicKey(pub *rsa.PublicKey) ([]byte, error) {
	bitLen := pub.N.BitLen()
	words := (bitLen + 31) / 32
	if pub.E <= 0 || int64(pub.E) > 0xFFFFFFFF {
		return nil, fmt.Errorf("%w: exponent %d does not fit a word", ErrPublicKeyFormat, pub.E)
	}

	modLen := words * 4
	out := make([]byte, 4+modLen+4)
	binary.LittleEndian.PutUint32(out[0:], uint32(words*32))

	// FillBytes пишет big-endian, а на проводе little-endian
	mod := out[4 : 4+modLen]
	pub.N.FillBytes(mod)
	slices.Reverse(mod)

	binary.LittleEndian.PutUint32(out[4+modLen:], uint32(pub.E))
	return out, nil
}

// ParsePublicKey decodes a blob produced by MarshalPublicKey or by the client.
func ParsePublicKey(blob []byte) (*rsa.PublicKey, error) {
	if len(blob) < 12 {
		return nil, fmt.Errorf("%w: %d bytes", ErrPublicKeyFormat, len(blob))
	}

	bitLen := binary.LittleEndian.Uint32(blob[0:])
	if bitLen == 0 || bitLen%32 != 0 {
		return nil, fmt.Errorf("%w: bit length %d", ErrPublicKeyFormat, bitLen)
	}
	modLen := int(bitLen / 8)
	if len(blob) != 4+modLen+4 {
		return nil, fmt.Errorf("%w: %d bytes for a %d-bit modulus", ErrPublicKeyFormat, len(blob), bitLen)
	}

	mod := slices.Clone(blob[4 : 4+modLen])
	slices.Reverse(mod)
	n := new(big.Int).SetBytes(mod)
	if n.Sign() == 0 {
		return nil, fmt.Errorf("%w: zero modulus", ErrPublicKeyFormat)
	}

	e := binary.LittleEndian.Uint32(blob[4+modLen:])
	if e < 3 || e%2 == 0 {
		return nil, fmt.Errorf("%w: exponent %d", ErrPublicKeyFormat, e)
	}

	return &rsa.PublicKey{N: n, E: int(e)}, nil
}

// RSAEncrypt encrypts msg to pub. With PaddingNone the result is exactly the
// modulus size and msg, read big-endian, must be smaller than the modulus.
func RSAEncrypt(pub *rsa.PublicKey, msg []byte, padding Padding) ([]byte, error) {
	switch padding {
	case PaddingPKCS1v15:
		ct, err := rsa.EncryptPKCS1v15(rand.Reader, pub, msg)
		if err != nil {
			return nil, fmt.Errorf("RSA encrypt: %w", err)
		}
		return ct, nil
	case PaddingNone:
		m := new(big.Int).SetBytes(msg)
		if m.Cmp(pub.N) >= 0 {
			return nil, fmt.Errorf("RSA encrypt: message is not smaller than the modulus")
		}
		c := new(big.Int).Exp(m, big.NewInt(int64(pub.E)), pub.N)
		return c.FillBytes(make([]byte, pub.Size())), nil
	default:
		return nil, fmt.Errorf("RSA encrypt: unsupported padding %v", padding)
	}
}

// RSADecrypt reverses RSAEncrypt. With PaddingNone the plaintext comes back
// left-padded with zeros to the modulus size.
func RSADecrypt(priv *rsa.PrivateKey, ct []byte, padding Padding) ([]byte, error) {
	switch padding {
	case PaddingPKCS1v15:
		msg, err := rsa.DecryptPKCS1v15(nil, priv, ct)
		if err != nil {
			return nil, fmt.Errorf("RSA decrypt: %w", err)
		}
		return msg, nil
	case PaddingNone:
		k := priv.Size()
		if len(ct) != k {
			return nil, fmt.Errorf("RSA decrypt: expected %d bytes, got %d", k, len(ct))
		}
		c := new(big.Int).SetBytes(ct)
		if c.Cmp(priv.N) >= 0 {
			return nil, fmt.Errorf("RSA decrypt: ciphertext is not smaller than the modulus")
		}
		// raw RSA: ciphertext^d mod n
		m := new(big.Int).Exp(c, priv.D, priv.N)
		return m.FillBytes(make([]byte, k)), nil
	default:
		return nil, fmt.Errorf("RSA decrypt: unsupported padding %v", padding)
	}
}
