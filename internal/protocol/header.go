package protocol

import (
	"errors"
	"fmt"

	"github.com/udisondev/gsgo/internal/constants"
)

var (
	// ErrShortBuffer is returned when a buffer ends before the declared message does.
	ErrShortBuffer = errors.New("buffer shorter than message")

	// ErrBadSize is returned when the size field is smaller than the header itself.
	ErrBadSize = errors.New("invalid message size")
)

// Header is the fixed 6-byte message header.
//
//	0..2  size, 24-bit big-endian, header included
//	3     property<<6 | priority
//	4     type
//	5     sender<<4 | receiver
type Header struct {
	Size     uint32
	Property Property
	Priority uint8
	Type     MessageType
	Sender   Role
	Receiver Role
}

// ParseHeader decodes the header at the start of b.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < constants.MessageHeaderSize {
		return Header{}, fmt.Errorf("%w: %d bytes, header needs %d", ErrShortBuffer, len(b), constants.MessageHeaderSize)
	}

	h := Header{
		Size:     uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2]),
		Property: Property(b[3] >> constants.PropertyShift),
		Priority: b[3] & constants.PriorityMask,
	}
	if h.Size < constants.MessageHeaderSize {
		return Header{}, fmt.Errorf("%w: %d", ErrBadSize, h.Size)
	}
	if h.Property > PropertyEncrypted {
		return Header{}, fmt.Errorf("%w: %d", ErrUnknownProperty, h.Property)
	}

	var err error
	if h.Type, err = ParseMessageType(b[4]); err != nil {
		return Header{}, err
	}
	if h.Sender, err = ParseRole(b[5] >> 4); err != nil {
		return Header{}, fmt.Errorf("sender: %w", err)
	}
	if h.Receiver, err = ParseRole(b[5] & constants.RoleMask); err != nil {
		return Header{}, fmt.Errorf("receiver: %w", err)
	}
	return h, nil
}

// AppendHeader appends the wire form of h to dst.
func AppendHeader(dst []byte, h Header) ([]byte, error) {
	if h.Size > constants.MessageMaxSize {
		return dst, fmt.Errorf("%w: %d does not fit 24 bits", ErrBadSize, h.Size)
	}
	if h.Property > PropertyEncrypted {
		return dst, fmt.Errorf("%w: %d", ErrUnknownProperty, h.Property)
	}

	return append(dst,
		byte(h.Size>>16), byte(h.Size>>8), byte(h.Size),
		byte(h.Property)<<constants.PropertyShift|h.Priority&constants.PriorityMask,
		byte(h.Type),
		byte(h.Sender)<<4|byte(h.Receiver)&constants.RoleMask,
	), nil
}

func (h Header) String() string {
	return fmt.Sprintf("%s %s %s->%s %dB", h.Type, h.Property, h.Sender, h.Receiver, h.Size)
}
