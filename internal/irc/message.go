// Package irc implements the chat relay framing and its echo service.
//
// Every frame is a 2-byte big-endian size followed by that many bytes of
// IRC static Blowfish ciphertext. One TCP read may carry several frames.
package irc

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/udisondev/gsgo/internal/constants"
	"github.com/udisondev/gsgo/internal/crypto"
)

// ErrShortFrame is returned when a buffer ends inside a frame.
var ErrShortFrame = errors.New("irc frame truncated")

var staticCipher = crypto.MustCipher(crypto.IRCStaticKey)

// Message is one decrypted chat line.
type Message struct {
	Text string
}

// Encode returns the framed, encrypted form of m.
func (m Message) Encode() ([]byte, error) {
	return m.AppendEncode(nil)
}

// AppendEncode appends the frame to dst so several lines share one write.
func (m Message) AppendEncode(dst []byte) ([]byte, error) {
	enc, err := staticCipher.Encrypt([]byte(m.Text))
	if err != nil {
		return dst, fmt.Errorf("encrypting irc payload: %w", err)
	}
	if len(enc) > 0xFFFF {
		return dst, fmt.Errorf("irc payload of %d bytes exceeds frame size", len(enc))
	}
	dst = binary.BigEndian.AppendUint16(dst, uint16(len(enc)))
	return append(dst, enc...), nil
}

// Decode decodes the frame at the start of b and returns it with the number
// of bytes consumed.
func Decode(b []byte) (Message, int, error) {
	if len(b) < constants.IRCHeaderSize {
		return Message{}, 0, fmt.Errorf("%w: %d header bytes", ErrShortFrame, len(b))
	}
	size := int(binary.BigEndian.Uint16(b))
	end := constants.IRCHeaderSize + size
	if end > len(b) {
		return Message{}, 0, fmt.Errorf("%w: declares %d bytes, have %d", ErrShortFrame, size, len(b)-constants.IRCHeaderSize)
	}

	plain, err := staticCipher.Decrypt(b[constants.IRCHeaderSize:end])
	if err != nil {
		return Message{}, 0, fmt.Errorf("decrypting irc payload: %w", err)
	}
	return Message{Text: string(plain)}, end, nil
}

// DecodeBundle splits b into its frames.
func DecodeBundle(b []byte) ([]Message, error) {
	var msgs []Message
	for off := 0; off < len(b); {
		msg, n, err := Decode(b[off:])
		if err != nil {
			return nil, fmt.Errorf("frame at offset %d: %w", off, err)
		}
		msgs = append(msgs, msg)
		off += n
	}
	return msgs, nil
}

func (m Message) String() string {
	return m.Text
}
