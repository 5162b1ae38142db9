// Package cdkey implements the CD-key validation datagram service.
//
// Datagram layout:
//
//	0     type (echoed back unchanged)
//	1..4  payload size, big-endian
//	5..   GS static Blowfish over the inner list
//	      [msg_id, request_type, unknown, [...]]
package cdkey

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/udisondev/gsgo/internal/constants"
	"github.com/udisondev/gsgo/internal/crypto"
	"github.com/udisondev/gsgo/internal/protocol"
	"github.com/udisondev/gsgo/internal/value"
)

var (
	// ErrShortMessage is returned for datagrams shorter than the header or the declared size.
	ErrShortMessage = errors.New("cdkey message truncated")

	// ErrIncomplete is returned when the request list has fewer than four fields.
	ErrIncomplete = errors.New("cdkey message incomplete")

	// ErrUnknownRequest is returned for request types outside CHALLENGE..PLAYER_STATUS.
	ErrUnknownRequest = errors.New("unknown cdkey request type")
)

// RequestType is the CD-key service request kind.
type RequestType int

const (
	RequestChallenge    RequestType = 1
	RequestActivation   RequestType = 2
	RequestAuth         RequestType = 3
	RequestValidation   RequestType = 4
	RequestPlayerStatus RequestType = 5
)

var requestNames = map[RequestType]string{
	RequestChallenge:    "CHALLENGE",
	RequestActivation:   "ACTIVATION",
	RequestAuth:         "AUTH",
	RequestValidation:   "VALIDATION",
	RequestPlayerStatus: "PLAYER_STATUS",
}

func (r RequestType) String() string {
	if name, ok := requestNames[r]; ok {
		return name
	}
	return fmt.Sprintf("RequestType(%d)", int(r))
}

// challengeHash is the fixed hash every CHALLENGE is answered with.
const challengeHash = "hi"

var staticCipher = crypto.MustCipher(crypto.GSStaticKey)

// Message is one CD-key datagram.
type Message struct {
	Type    byte
	MsgID   int
	Request RequestType
	Unknown int
	// Body is the nested list at index 3.
	Body value.List
}

// Decode parses a CD-key datagram.
func Decode(b []byte) (*Message, error) {
	if len(b) < constants.CDKeyHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrShortMessage, len(b))
	}
	size := binary.BigEndian.Uint32(b[1:constants.CDKeyHeaderSize])
	body := b[constants.CDKeyHeaderSize:]
	if uint64(size) > uint64(len(body)) {
		return nil, fmt.Errorf("%w: declares %d payload bytes, have %d", ErrShortMessage, size, len(body))
	}

	plain, err := staticCipher.Decrypt(body[:size])
	if err != nil {
		return nil, fmt.Errorf("decrypting cdkey payload: %w", err)
	}
	l, err := value.UnmarshalInner(plain)
	if err != nil {
		return nil, fmt.Errorf("decoding cdkey payload: %w", err)
	}
	if len(l) < constants.CDKeyMinFields {
		return nil, fmt.Errorf("%w: %d fields", ErrIncomplete, len(l))
	}

	msg := &Message{Type: b[0]}
	if msg.MsgID, err = l.Int(0); err != nil {
		return nil, fmt.Errorf("cdkey msg_id: %w", err)
	}
	req, err := l.Int(1)
	if err != nil {
		return nil, fmt.Errorf("cdkey request type: %w", err)
	}
	msg.Request = RequestType(req)
	if _, ok := requestNames[msg.Request]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRequest, req)
	}
	if msg.Unknown, err = l.Int(2); err != nil {
		return nil, fmt.Errorf("cdkey field 2: %w", err)
	}
	if msg.Body, err = l.Sub(3); err != nil {
		return nil, fmt.Errorf("cdkey body: %w", err)
	}
	return msg, nil
}

// List returns the inner list of m.
func (m *Message) List() value.List {
	body := m.Body
	if body == nil {
		body = value.List{}
	}
	return value.List{value.Itoa(m.MsgID), value.Itoa(int(m.Request)), value.Itoa(m.Unknown), body}
}

// Encode returns the wire form of m.
func (m *Message) Encode() ([]byte, error) {
	plain, err := value.MarshalInner(m.List())
	if err != nil {
		return nil, fmt.Errorf("encoding cdkey payload: %w", err)
	}
	enc, err := staticCipher.Encrypt(plain)
	if err != nil {
		return nil, err
	}

	out := make([]byte, constants.CDKeyHeaderSize, constants.CDKeyHeaderSize+len(enc))
	out[0] = m.Type
	binary.BigEndian.PutUint32(out[1:], uint32(len(enc)))
	return append(out, enc...), nil
}

// Respond builds the reply to req. A nil reply means the request is not answered.
func Respond(req *Message) *Message {
	switch req.Request {
	case RequestChallenge:
		return &Message{
			Type:    req.Type,
			MsgID:   req.MsgID,
			Request: req.Request,
			Unknown: req.Unknown,
			Body: value.List{
				value.Itoa(int(protocol.MsgGSSuccess)),
				value.Strs("2", challengeHash),
			},
		}
	}
	return nil
}

func (m *Message) String() string {
	return fmt.Sprintf("<%s %s>", m.Request, m.List())
}
