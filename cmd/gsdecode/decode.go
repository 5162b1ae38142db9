package main

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/udisondev/gsgo/internal/cdkey"
	"github.com/udisondev/gsgo/internal/crypto"
	"github.com/udisondev/gsgo/internal/irc"
	"github.com/udisondev/gsgo/internal/nat"
	"github.com/udisondev/gsgo/internal/protocol"
)

const (
	kindBundle = "bundle"
	kindNAT    = "nat"
	kindCDKey  = "cdkey"
	kindIRC    = "irc"
)

type decoder struct {
	kind    string
	codec   *protocol.Codec
	session *crypto.Cipher
}

// parseHex accepts plain, spaced or colon separated hex dumps.
func parseHex(s string) ([]byte, error) {
	s = strings.NewReplacer(" ", "", ":", "", "\t", "", "0x", "").Replace(s)
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("parsing hex: %w", err)
	}
	return b, nil
}

// decode returns table rows, header row first.
func (d decoder) decode(data []byte) ([][]string, error) {
	switch d.kind {
	case kindBundle:
		return d.bundle(data)
	case kindNAT:
		return d.segment(data)
	case kindCDKey:
		return cdkeyRows(data)
	case kindIRC:
		return ircRows(data)
	default:
		return nil, fmt.Errorf("unknown capture kind %q", d.kind)
	}
}

var messageHeader = []string{"#", "Size", "Property", "Prio", "Type", "Route", "Payload"}

func messageRow(i int, m *protocol.Message) []string {
	payload := "-"
	switch {
	case m.Raw != nil:
		payload = fmt.Sprintf("raw %x", m.Raw)
	case m.HasPayload:
		payload = m.Payload.String()
	}
	return []string{
		fmt.Sprint(i),
		fmt.Sprint(m.Size),
		m.Property.String(),
		fmt.Sprint(m.Priority),
		m.Type.String(),
		fmt.Sprintf("%s -> %s", m.Sender, m.Receiver),
		payload,
	}
}

func (d decoder) bundle(data []byte) ([][]string, error) {
	msgs, err := d.codec.DecodeBundle(data, d.session)
	if err != nil {
		return nil, err
	}
	rows := [][]string{messageHeader}
	for i, m := range msgs {
		rows = append(rows, messageRow(i, m))
	}
	return rows, nil
}

func (d decoder) segment(data []byte) ([][]string, error) {
	seg, err := nat.Decode(data, d.codec)
	if err != nil {
		return nil, err
	}

	rows := [][]string{
		{"Field", "Value"},
		{"Flags", seg.Flags.String()},
		{"Signature", fmt.Sprintf("%#04x", seg.Signature)},
		{"Seg / Ack", fmt.Sprintf("%d / %d", seg.Seg, seg.Ack)},
		{"Data size", fmt.Sprint(seg.DataSize)},
		{"Checksum", fmt.Sprintf("%#04x", seg.Checksum)},
	}
	if w := seg.Window; w != nil {
		rows = append(rows,
			[]string{"Window", fmt.Sprintf("tail=%#04x sig=%#04x init=%#04x buf=%d", w.Tail, w.SenderSig, w.ChecksumInit, w.BufSize)},
			[]string{"Checksum valid", fmt.Sprint(nat.VerifyChecksum(data, w.ChecksumInit))},
		)
	}
	if m := seg.Message; m != nil {
		rows = append(rows, []string{"Message", m.String()})
	}
	return rows, nil
}

func cdkeyRows(data []byte) ([][]string, error) {
	msg, err := cdkey.Decode(data)
	if err != nil {
		return nil, err
	}
	return [][]string{
		{"Field", "Value"},
		{"Type", fmt.Sprintf("%#02x", msg.Type)},
		{"Msg id", fmt.Sprint(msg.MsgID)},
		{"Request", msg.Request.String()},
		{"Unknown", fmt.Sprint(msg.Unknown)},
		{"Body", msg.Body.String()},
	}, nil
}

func ircRows(data []byte) ([][]string, error) {
	msgs, err := irc.DecodeBundle(data)
	if err != nil {
		return nil, err
	}
	rows := [][]string{{"#", "Text"}}
	for i, m := range msgs {
		rows = append(rows, []string{fmt.Sprint(i), m.Text})
	}
	return rows, nil
}
