package testutil

import (
	"fmt"
	"net"
	"testing"

	"github.com/udisondev/gsgo/internal/constants"
	"github.com/udisondev/gsgo/internal/crypto"
	"github.com/udisondev/gsgo/internal/protocol"
	"github.com/udisondev/gsgo/internal/value"
)

// GSClient — тестовый клиент gateway-сервисов поверх TCP.
type GSClient struct {
	t     testing.TB
	conn  net.Conn
	codec *protocol.Codec

	// Session decodes PropertyEncrypted replies once set.
	Session *crypto.Cipher
}

// DialGS подключается к addr. Соединение закрывается при завершении теста.
func DialGS(t testing.TB, addr string, codec *protocol.Codec) *GSClient {
	t.Helper()

	conn, err := net.DialTimeout("tcp", addr, constants.TestIOTimeout)
	if err != nil {
		t.Fatalf("dialing %s: %v", addr, err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	return NewGSClient(t, conn, codec)
}

// NewGSClient оборачивает готовое соединение.
func NewGSClient(t testing.TB, conn net.Conn, codec *protocol.Codec) *GSClient {
	if codec == nil {
		codec = protocol.NewCodec(nil)
	}
	return &GSClient{t: t, conn: NewConnWithDeadline(conn, constants.TestIOTimeout), codec: codec}
}

// Request builds a GS-property request from the game client to the router.
func Request(typ protocol.MessageType, payload value.List) *protocol.Message {
	return &protocol.Message{
		Header: protocol.Header{
			Property: protocol.PropertyGS,
			Type:     typ,
			Sender:   protocol.RoleR,
			Receiver: protocol.RoleS,
		},
		Payload:    payload,
		HasPayload: payload != nil,
	}
}

// Encode returns the wire form of msgs as one bundle.
func (c *GSClient) Encode(msgs ...*protocol.Message) []byte {
	c.t.Helper()

	var out []byte
	for _, m := range msgs {
		var err error
		if out, err = c.codec.AppendEncode(out, m); err != nil {
			c.t.Fatalf("encoding %s: %v", m.Type, err)
		}
	}
	return out
}

// Send writes msgs as one bundle.
func (c *GSClient) Send(msgs ...*protocol.Message) {
	c.t.Helper()
	c.SendRaw(c.Encode(msgs...))
}

// SendRaw writes b verbatim.
func (c *GSClient) SendRaw(b []byte) {
	c.t.Helper()
	if _, err := c.conn.Write(b); err != nil {
		c.t.Fatalf("writing %d bytes: %v", len(b), err)
	}
}

// ReadRaw reads one bundle without decoding it.
func (c *GSClient) ReadRaw() ([]byte, error) {
	buf := make([]byte, constants.DefaultReadBufSize)
	return protocol.ReadBundle(c.conn, buf)
}

// Recv reads one bundle and decodes its messages.
func (c *GSClient) Recv() ([]*protocol.Message, error) {
	data, err := c.ReadRaw()
	if err != nil {
		return nil, err
	}
	return c.codec.DecodeBundle(data, c.Session)
}

// RecvOne reads one bundle holding exactly one message.
func (c *GSClient) RecvOne() *protocol.Message {
	c.t.Helper()

	msgs, err := c.Recv()
	if err != nil {
		c.t.Fatalf("receiving: %v", err)
	}
	if len(msgs) != 1 {
		c.t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	return msgs[0]
}

// KeyExchange runs both KEY_EXCHANGE steps and returns the server session key.
func (c *GSClient) KeyExchange(kc *KeyClient) ([]byte, error) {
	c.t.Helper()

	c.Send(Request(protocol.MsgKeyExchange, kc.PublicKeyRequest()))
	resp1 := c.RecvOne()
	if resp1.Type != protocol.MsgKeyExchange {
		return nil, fmt.Errorf("step 1 answered with %s", resp1.Type)
	}

	req2, err := kc.SessionKeyRequest(resp1.Payload)
	if err != nil {
		return nil, err
	}
	c.Send(Request(protocol.MsgKeyExchange, req2))
	resp2 := c.RecvOne()

	key, err := kc.AcceptServerKey(resp2.Payload)
	if err != nil {
		return nil, err
	}
	if c.Session, err = crypto.NewCipher(key); err != nil {
		return nil, err
	}
	return key, nil
}

// Close closes the connection.
func (c *GSClient) Close() error {
	return c.conn.Close()
}
