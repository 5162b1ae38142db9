package protocol

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/udisondev/gsgo/internal/constants"
	"github.com/udisondev/gsgo/internal/crypto"
	"github.com/udisondev/gsgo/internal/value"
)

var (
	// ErrUnsupportedProperty is returned when encoding a property the server never emits.
	ErrUnsupportedProperty = errors.New("unsupported message property")

	// ErrNoSessionKey is returned when session-encrypted traffic arrives before KEY_EXCHANGE completed.
	ErrNoSessionKey = errors.New("no session key negotiated")
)

// Message is a header plus its optional payload.
//
// GS and GS_ENCRYPT payloads are decoded into Payload as an implicit outer
// list. GAME payloads are relayed untouched in Raw.
type Message struct {
	Header
	Payload    value.List
	HasPayload bool
	Raw        []byte
}

// NewResponse builds an empty reply addressed back to the sender of req.
func NewResponse(req *Message) *Message {
	h := req.Header
	h.Sender, h.Receiver = req.Receiver, req.Sender
	return &Message{Header: h}
}

// SetPayload attaches a tagged-value payload.
func (m *Message) SetPayload(l value.List) *Message {
	m.Payload = l
	m.HasPayload = true
	return m
}

func (m *Message) String() string {
	switch {
	case !m.HasPayload:
		return "<" + m.Header.String() + ">"
	case m.Raw != nil:
		return fmt.Sprintf("<%s> raw %x", m.Header, m.Raw)
	default:
		return fmt.Sprintf("<%s> %s", m.Header, m.Payload)
	}
}

// Codec decodes and encodes messages. It is stateless apart from the
// configured obfuscation strategy and safe for concurrent use.
type Codec struct {
	obf crypto.Obfuscator
}

// NewCodec creates a Codec. A nil obfuscator means crypto.Passthrough.
func NewCodec(obf crypto.Obfuscator) *Codec {
	if obf == nil {
		obf = crypto.Passthrough{}
	}
	return &Codec{obf: obf}
}

// Decode decodes the message at the start of buf. Bytes after header.Size are
// ignored. sessionKey may be nil until the handshake completes.
func (c *Codec) Decode(buf []byte, sessionKey *crypto.Cipher) (*Message, error) {
	h, err := ParseHeader(buf)
	if err != nil {
		return nil, err
	}
	if int(h.Size) > len(buf) {
		return nil, fmt.Errorf("%w: %s declares %d bytes, have %d", ErrShortBuffer, h.Type, h.Size, len(buf))
	}

	msg := &Message{Header: h}
	body := buf[constants.MessageHeaderSize:h.Size]
	if len(body) == 0 {
		return msg, nil
	}
	msg.HasPayload = true

	var plain []byte
	switch h.Property {
	case PropertyGame:
		msg.Raw = bytes.Clone(body)
		return msg, nil
	case PropertyGS:
		plain = c.obf.Deobfuscate(body)
	case PropertyEncrypted:
		if sessionKey == nil {
			return nil, fmt.Errorf("decoding %s: %w", h.Type, ErrNoSessionKey)
		}
		if plain, err = sessionKey.Decrypt(body); err != nil {
			return nil, fmt.Errorf("decrypting %s payload: %w", h.Type, err)
		}
	}

	if msg.Payload, err = value.UnmarshalInner(plain); err != nil {
		return nil, fmt.Errorf("decoding %s payload: %w", h.Type, err)
	}
	return msg, nil
}

// Encode returns the wire form of msg. Size is recomputed from the encoded payload.
func (c *Codec) Encode(msg *Message) ([]byte, error) {
	return c.AppendEncode(make([]byte, 0, constants.DefaultSendBufSize), msg)
}

// AppendEncode appends the wire form of msg to dst, so several messages can be
// bundled into one transport write.
func (c *Codec) AppendEncode(dst []byte, msg *Message) ([]byte, error) {
	var body []byte
	if msg.HasPayload {
		switch msg.Property {
		case PropertyGS:
			plain, err := value.MarshalInner(msg.Payload)
			if err != nil {
				return dst, fmt.Errorf("encoding %s payload: %w", msg.Type, err)
			}
			body = c.obf.Obfuscate(plain)
		case PropertyGame:
			if msg.Raw != nil {
				body = msg.Raw
				break
			}
			plain, err := value.MarshalInner(msg.Payload)
			if err != nil {
				return dst, fmt.Errorf("encoding %s payload: %w", msg.Type, err)
			}
			body = plain
		case PropertyEncrypted:
			return dst, fmt.Errorf("encoding %s: %w: %s", msg.Type, ErrUnsupportedProperty, msg.Property)
		default:
			return dst, fmt.Errorf("encoding %s: %w: %d", msg.Type, ErrUnknownProperty, msg.Property)
		}
	}

	msg.Size = uint32(constants.MessageHeaderSize + len(body))
	out, err := AppendHeader(dst, msg.Header)
	if err != nil {
		return dst, fmt.Errorf("encoding %s header: %w", msg.Type, err)
	}
	return append(out, body...), nil
}
