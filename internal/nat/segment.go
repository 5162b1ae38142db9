// Package nat implements the SRP datagram protocol the client uses for NAT
// traversal: a 12-byte header, a connection-setup window or an embedded
// message, and a SYN / data / FIN peer lifecycle.
package nat

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/udisondev/gsgo/internal/constants"
	"github.com/udisondev/gsgo/internal/protocol"
)

var (
	// ErrProbe marks a datagram shorter than a segment header: a bare liveness ping.
	ErrProbe = errors.New("liveness probe")

	// ErrMalformedSegment is returned for segments whose shape contradicts their flags.
	ErrMalformedSegment = errors.New("malformed segment")
)

// Flags is the segment flag set.
type Flags uint16

const (
	FlagFIN Flags = 0x0001
	FlagSYN Flags = 0x0002
	FlagACK Flags = 0x0004
	FlagURG Flags = 0x0008

	// FlagProtocolID is set on every real segment.
	FlagProtocolID Flags = 0x3040
)

// Has reports whether all bits of x are set.
func (f Flags) Has(x Flags) bool { return f&x == x }

func (f Flags) String() string {
	var parts []string
	for _, fl := range []struct {
		f    Flags
		name string
	}{
		{FlagProtocolID, "SRP_ID"},
		{FlagFIN, "FIN"},
		{FlagSYN, "SYN"},
		{FlagACK, "ACK"},
		{FlagURG, "URG"},
	} {
		if f.Has(fl.f) {
			parts = append(parts, fl.name)
		}
	}
	if len(parts) == 0 {
		return fmt.Sprintf("0x%04x", uint16(f))
	}
	return strings.Join(parts, "|")
}

// Header is the fixed segment header, six little-endian uint16.
type Header struct {
	Checksum  uint16
	Signature uint16
	DataSize  uint16
	Flags     Flags
	Seg       uint16
	Ack       uint16
}

// ParseHeader decodes the header at the start of b.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < constants.SRPHeaderSize {
		return Header{}, fmt.Errorf("%w: %d bytes", ErrProbe, len(b))
	}
	return Header{
		Checksum:  binary.LittleEndian.Uint16(b[0:]),
		Signature: binary.LittleEndian.Uint16(b[2:]),
		DataSize:  binary.LittleEndian.Uint16(b[4:]),
		Flags:     Flags(binary.LittleEndian.Uint16(b[6:])),
		Seg:       binary.LittleEndian.Uint16(b[8:]),
		Ack:       binary.LittleEndian.Uint16(b[10:]),
	}, nil
}

// AppendHeader appends the wire form of h to dst.
func AppendHeader(dst []byte, h Header) []byte {
	dst = binary.LittleEndian.AppendUint16(dst, h.Checksum)
	dst = binary.LittleEndian.AppendUint16(dst, h.Signature)
	dst = binary.LittleEndian.AppendUint16(dst, h.DataSize)
	dst = binary.LittleEndian.AppendUint16(dst, uint16(h.Flags))
	dst = binary.LittleEndian.AppendUint16(dst, h.Seg)
	return binary.LittleEndian.AppendUint16(dst, h.Ack)
}

// Window is the connection-setup block that follows a SYN header.
type Window struct {
	Tail         uint16
	SenderSig    uint16
	ChecksumInit uint16
	BufSize      uint16
}

func parseWindow(b []byte) *Window {
	return &Window{
		Tail:         binary.LittleEndian.Uint16(b[0:]),
		SenderSig:    binary.LittleEndian.Uint16(b[2:]),
		ChecksumInit: binary.LittleEndian.Uint16(b[4:]),
		BufSize:      binary.LittleEndian.Uint16(b[6:]),
	}
}

// AppendWindow appends the wire form of w to dst.
func AppendWindow(dst []byte, w Window) []byte {
	dst = binary.LittleEndian.AppendUint16(dst, w.Tail)
	dst = binary.LittleEndian.AppendUint16(dst, w.SenderSig)
	dst = binary.LittleEndian.AppendUint16(dst, w.ChecksumInit)
	return binary.LittleEndian.AppendUint16(dst, w.BufSize)
}

// Segment is one decoded datagram. Body is the raw remainder after the
// header; at most one of Window and Message is set.
type Segment struct {
	Header
	Window  *Window
	Message *protocol.Message
	Body    []byte
}

// IsControl reports a segment without window or message.
func (s *Segment) IsControl() bool { return len(s.Body) == 0 }

// Decode parses a datagram. An 8-byte remainder is a window, a longer or
// shorter non-empty one is an embedded message decoded without a session key.
func Decode(datagram []byte, codec *protocol.Codec) (*Segment, error) {
	h, err := ParseHeader(datagram)
	if err != nil {
		return nil, err
	}

	seg := &Segment{Header: h}
	body := datagram[constants.SRPHeaderSize:]
	switch {
	case len(body) == 0:
		return seg, nil
	case len(body) == constants.SRPWindowSize:
		seg.Body = bytes.Clone(body)
		seg.Window = parseWindow(body)
		return seg, nil
	}

	seg.Body = bytes.Clone(body)
	if seg.Message, err = codec.Decode(seg.Body, nil); err != nil {
		return nil, fmt.Errorf("decoding embedded message: %w", err)
	}
	return seg, nil
}

// Encode builds a segment from h and body. DataSize is set from body and the
// checksum is computed with seed in the checksum field.
func Encode(h Header, body []byte, seed uint16) []byte {
	h.DataSize = uint16(len(body))
	h.Checksum = seed

	out := make([]byte, 0, constants.SRPHeaderSize+len(body))
	out = AppendHeader(out, h)
	out = append(out, body...)
	binary.LittleEndian.PutUint16(out, Checksum(out))
	return out
}

func (s *Segment) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<SRP %s sig=%#04x seg=%d ack=%d size=%d sum=%#04x>",
		s.Flags, s.Signature, s.Seg, s.Ack, s.DataSize, s.Checksum)
	switch {
	case s.Window != nil:
		fmt.Fprintf(&sb, " window{tail=%#04x sig=%#04x init=%#04x buf=%d}",
			s.Window.Tail, s.Window.SenderSig, s.Window.ChecksumInit, s.Window.BufSize)
	case s.Message != nil:
		sb.WriteString(" ")
		sb.WriteString(s.Message.String())
	}
	return sb.String()
}
