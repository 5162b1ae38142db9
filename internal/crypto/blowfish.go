package crypto

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/crypto/blowfish"

	"github.com/udisondev/gsgo/internal/constants"
)

// ErrCipherLength is returned when a ciphertext does not have the streaming-mode shape.
var ErrCipherLength = errors.New("invalid ciphertext length")

// maxStdKeyLen is the longest key blowfish.NewCipher accepts; longer keys go
// through the salted schedule with an all-zero salt, which is the plain
// schedule cycling over up to 72 key bytes.
const maxStdKeyLen = 56

var zeroSalt [constants.BlowfishBlockSize]byte

// Cipher is Blowfish in the client's streaming mode.
//
// Wire shape: each 8-byte block holds two little-endian 32-bit halves; the
// plaintext is zero padded to the block size and a 2-byte little-endian
// plaintext length trails the last block. Ciphertexts are therefore never a
// multiple of the block size.
type Cipher struct {
	block *blowfish.Cipher
}

// NewCipher creates a Cipher from a key of any non-zero length.
func NewCipher(key []byte) (*Cipher, error) {
	var (
		c   *blowfish.Cipher
		err error
	)
	if len(key) > maxStdKeyLen {
		c, err = blowfish.NewSaltedCipher(key, zeroSalt[:])
	} else {
		c, err = blowfish.NewCipher(key)
	}
	if err != nil {
		return nil, fmt.Errorf("creating blowfish cipher: %w", err)
	}
	return &Cipher{block: c}, nil
}

// MustCipher is NewCipher for compile-time constant keys.
func MustCipher(key []byte) *Cipher {
	c, err := NewCipher(key)
	if err != nil {
		panic(err)
	}
	return c
}

// EncryptBlock encrypts one block given as two 32-bit halves.
func (c *Cipher) EncryptBlock(l, r uint32) (uint32, uint32) {
	var b [constants.BlowfishBlockSize]byte
	binary.BigEndian.PutUint32(b[0:], l)
	binary.BigEndian.PutUint32(b[4:], r)
	c.block.Encrypt(b[:], b[:])
	return binary.BigEndian.Uint32(b[0:]), binary.BigEndian.Uint32(b[4:])
}

// DecryptBlock decrypts one block given as two 32-bit halves.
func (c *Cipher) DecryptBlock(l, r uint32) (uint32, uint32) {
	var b [constants.BlowfishBlockSize]byte
	binary.BigEndian.PutUint32(b[0:], l)
	binary.BigEndian.PutUint32(b[4:], r)
	c.block.Decrypt(b[:], b[:])
	return binary.BigEndian.Uint32(b[0:]), binary.BigEndian.Uint32(b[4:])
}

// Encrypt returns the streaming-mode ciphertext of plain. plain is not modified.
func (c *Cipher) Encrypt(plain []byte) ([]byte, error) {
	if len(plain) > 0xFFFF {
		return nil, fmt.Errorf("blowfish encrypt: plaintext of %d bytes exceeds trailer range", len(plain))
	}

	padded := alignBlock(len(plain))
	out := make([]byte, padded+constants.CipherTrailerSize)
	copy(out, plain)

	for i := 0; i < padded; i += constants.BlowfishBlockSize {
		c.cryptBlockLE(out[i:i+constants.BlowfishBlockSize], true)
	}
	binary.LittleEndian.PutUint16(out[padded:], uint16(len(plain)))
	return out, nil
}

// Decrypt reverses Encrypt. data is not modified.
func (c *Cipher) Decrypt(data []byte) ([]byte, error) {
	if len(data) < constants.CipherTrailerSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrCipherLength, len(data))
	}
	padded := len(data) - constants.CipherTrailerSize
	if padded%constants.BlowfishBlockSize != 0 {
		return nil, fmt.Errorf("%w: body of %d bytes is not block aligned", ErrCipherLength, padded)
	}
	n := int(binary.LittleEndian.Uint16(data[padded:]))
	if n > padded || alignBlock(n) != padded {
		return nil, fmt.Errorf("%w: trailer length %d does not fit body of %d bytes", ErrCipherLength, n, padded)
	}

	out := make([]byte, padded)
	copy(out, data[:padded])
	for i := 0; i < padded; i += constants.BlowfishBlockSize {
		c.cryptBlockLE(out[i:i+constants.BlowfishBlockSize], false)
	}
	return out[:n], nil
}

// cryptBlockLE runs the cipher in place on a block whose halves are little-endian.
func (c *Cipher) cryptBlockLE(b []byte, encrypt bool) {
	swapHalves(b)
	if encrypt {
		c.block.Encrypt(b, b)
	} else {
		c.block.Decrypt(b, b)
	}
	swapHalves(b)
}

func swapHalves(b []byte) {
	b[0], b[1], b[2], b[3] = b[3], b[2], b[1], b[0]
	b[4], b[5], b[6], b[7] = b[7], b[6], b[5], b[4]
}

func alignBlock(n int) int {
	if rem := n % constants.BlowfishBlockSize; rem != 0 {
		n += constants.BlowfishBlockSize - rem
	}
	return n
}

// GenerateSessionKey creates a fresh random session key of n bytes.
func GenerateSessionKey(n int) ([]byte, error) {
	key := make([]byte, n)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generating session key: %w", err)
	}
	return key, nil
}
