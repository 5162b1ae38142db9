package nat

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"time"

	"github.com/udisondev/gsgo/internal/constants"
	"github.com/udisondev/gsgo/internal/protocol"
)

var (
	// ErrChecksumMismatch is returned for segments that fail verification; they are dropped.
	ErrChecksumMismatch = errors.New("segment checksum mismatch")

	// ErrUnknownPeer is returned for data or FIN segments from an address without a SYN.
	ErrUnknownPeer = errors.New("segment from unknown peer")
)

// serverWindow is announced in every SYN|ACK.
var serverWindow = Window{
	Tail:         constants.SRPReplyTail,
	SenderSig:    constants.SRPReplySenderSig,
	ChecksumInit: constants.SRPReplyChecksumInit,
	BufSize:      constants.SRPReplyWindowBufSize,
}

// Handler answers SRP datagrams. It is safe for concurrent use.
type Handler struct {
	peers          *Registry
	codec          *protocol.Codec
	verifyChecksum bool
	now            func() time.Time
}

// NewHandler creates a Handler over peers.
func NewHandler(peers *Registry, codec *protocol.Codec, verifyChecksum bool) *Handler {
	return &Handler{
		peers:          peers,
		codec:          codec,
		verifyChecksum: verifyChecksum,
		now:            time.Now,
	}
}

// Handle processes one datagram from addr and returns the reply to send, or
// nil when nothing is sent. A non-nil error means the datagram is dropped.
func (h *Handler) Handle(addr netip.AddrPort, datagram []byte) ([]byte, error) {
	hdr, err := ParseHeader(datagram)
	if errors.Is(err, ErrProbe) {
		return bytes.Clone(datagram), nil
	}
	if !hdr.Flags.Has(FlagProtocolID) {
		// не SRP, просто эхо
		return bytes.Clone(datagram), nil
	}

	seg, err := Decode(datagram, h.codec)
	if err != nil {
		return nil, err
	}

	if seg.Flags.Has(FlagSYN) {
		return h.handleSYN(addr, seg, datagram)
	}

	// Клиент считает checksum с нашим checksum_init из SYN|ACK.
	if h.verifyChecksum {
		if _, ok := h.peers.Find(addr); ok && !VerifyChecksum(datagram, serverWindow.ChecksumInit) {
			return nil, fmt.Errorf("%w: %s from %s", ErrChecksumMismatch, seg.Flags, addr)
		}
	}

	if seg.Flags.Has(FlagFIN) {
		return h.handleFIN(addr, seg)
	}
	return h.handleData(addr, seg)
}

func (h *Handler) handleSYN(addr netip.AddrPort, seg *Segment, datagram []byte) ([]byte, error) {
	if seg.Window == nil {
		return nil, fmt.Errorf("%w: SYN without window from %s", ErrMalformedSegment, addr)
	}
	if h.verifyChecksum && !VerifyChecksum(datagram, seg.Window.ChecksumInit) {
		return nil, fmt.Errorf("%w: SYN from %s", ErrChecksumMismatch, addr)
	}

	peer := h.peers.Establish(Peer{
		Addr:         addr,
		ChecksumInit: seg.Window.ChecksumInit,
		SenderSig:    seg.Window.SenderSig,
		Seg:          seg.Seg,
		LastSeen:     h.now(),
	})
	slog.Debug("nat peer established", "remote", addr, "sig", peer.SenderSig, "checksumInit", peer.ChecksumInit)

	return Encode(Header{
		Signature: peer.SenderSig,
		Flags:     FlagProtocolID | FlagSYN | FlagACK,
		Seg:       seg.Seg + 1,
		Ack:       seg.Seg,
	}, AppendWindow(nil, serverWindow), peer.ChecksumInit), nil
}

func (h *Handler) handleFIN(addr netip.AddrPort, seg *Segment) ([]byte, error) {
	peer, ok := h.peers.Remove(addr)
	if !ok {
		return nil, fmt.Errorf("%w: FIN from %s", ErrUnknownPeer, addr)
	}
	slog.Debug("nat peer closed", "remote", addr)

	return Encode(Header{
		Signature: peer.SenderSig,
		Flags:     FlagProtocolID | FlagFIN | FlagACK,
		Seg:       seg.Seg + 1,
		Ack:       seg.Seg,
	}, nil, peer.ChecksumInit), nil
}

func (h *Handler) handleData(addr netip.AddrPort, seg *Segment) ([]byte, error) {
	peer, ok := h.peers.Update(addr, func(p *Peer) {
		p.Seg = seg.Seg
		p.LastSeen = h.now()
	})
	if !ok {
		return nil, fmt.Errorf("%w: %s from %s", ErrUnknownPeer, seg.Flags, addr)
	}

	// голый ACK не подтверждаем
	if seg.IsControl() {
		return nil, nil
	}
	if seg.Message != nil {
		slog.Debug("nat data", "remote", addr, "message", seg.Message.Header)
	}

	return Encode(Header{
		Signature: peer.SenderSig,
		Flags:     FlagProtocolID | FlagACK,
		Seg:       seg.Seg + 1,
		Ack:       seg.Seg,
	}, seg.Body, peer.ChecksumInit), nil
}
