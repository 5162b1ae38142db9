package protocol

import (
	"fmt"
	"io"

	"github.com/udisondev/gsgo/internal/constants"
	"github.com/udisondev/gsgo/internal/crypto"
)

// DecodeBundle splits buf into consecutive messages. Every message is decoded
// on its own, so one bundle may mix properties.
func (c *Codec) DecodeBundle(buf []byte, sessionKey *crypto.Cipher) ([]*Message, error) {
	if len(buf) == 0 {
		return nil, fmt.Errorf("decoding bundle: %w: empty buffer", ErrShortBuffer)
	}

	var msgs []*Message
	for off := 0; off < len(buf); {
		msg, err := c.Decode(buf[off:], sessionKey)
		if err != nil {
			return msgs, fmt.Errorf("decoding bundle message %d at offset %d: %w", len(msgs), off, err)
		}
		msgs = append(msgs, msg)
		off += int(msg.Size)
	}
	return msgs, nil
}

// ReadBundle performs one transport read into buf and then completes any
// message the read cut short, trusting the 24-bit size fields. It returns the
// filled prefix of buf, which always ends on a message boundary.
func ReadBundle(r io.Reader, buf []byte) ([]byte, error) {
	n, err := r.Read(buf)
	if n == 0 {
		if err == nil {
			err = io.ErrNoProgress
		}
		return nil, err
	}

	for off := 0; off < n; {
		if n-off < constants.MessageHeaderSize {
			if off+constants.MessageHeaderSize > len(buf) {
				return nil, fmt.Errorf("reading bundle: header at offset %d exceeds buffer", off)
			}
			if _, err := io.ReadFull(r, buf[n:off+constants.MessageHeaderSize]); err != nil {
				return nil, fmt.Errorf("reading bundle header: %w", err)
			}
			n = off + constants.MessageHeaderSize
		}

		size := int(buf[off])<<16 | int(buf[off+1])<<8 | int(buf[off+2])
		if size < constants.MessageHeaderSize {
			return nil, fmt.Errorf("reading bundle: %w: %d at offset %d", ErrBadSize, size, off)
		}
		end := off + size
		if end > len(buf) {
			return nil, fmt.Errorf("reading bundle: message of %d bytes exceeds buffer size %d", size, len(buf))
		}
		if end > n {
			if _, err := io.ReadFull(r, buf[n:end]); err != nil {
				return nil, fmt.Errorf("reading bundle payload: %w", err)
			}
			n = end
		}
		off = end
	}
	return buf[:n], nil
}
