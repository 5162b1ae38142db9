package testutil

import (
	"net"
	"testing"
	"time"
)

// PipeConn создаёт пару net.Conn соединений через net.Pipe для тестирования.
// Автоматически закрывает соединения при завершении теста.
func PipeConn(t testing.TB) (client, server net.Conn) {
	t.Helper()

	server, client = net.Pipe()

	t.Cleanup(func() {
		_ = server.Close()
		_ = client.Close()
	})

	return client, server
}

// ConnWithDeadline оборачивает net.Conn и устанавливает deadline перед каждым read/write.
type ConnWithDeadline struct {
	net.Conn
	deadline time.Duration
}

// NewConnWithDeadline создаёт обёртку с автоматическим deadline.
func NewConnWithDeadline(conn net.Conn, deadline time.Duration) *ConnWithDeadline {
	return &ConnWithDeadline{
		Conn:     conn,
		deadline: deadline,
	}
}

func (c *ConnWithDeadline) Read(b []byte) (int, error) {
	if err := c.Conn.SetReadDeadline(time.Now().Add(c.deadline)); err != nil {
		return 0, err
	}
	return c.Conn.Read(b)
}

func (c *ConnWithDeadline) Write(b []byte) (int, error) {
	if err := c.Conn.SetWriteDeadline(time.Now().Add(c.deadline)); err != nil {
		return 0, err
	}
	return c.Conn.Write(b)
}

// ListenTCP создаёт TCP listener на случайном порту для тестов.
// Автоматически закрывает listener при завершении теста.
func ListenTCP(t testing.TB) (net.Listener, string) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to create TCP listener: %v", err)
	}

	t.Cleanup(func() {
		_ = listener.Close()
	})

	return listener, listener.Addr().String()
}

// ListenUDP создаёт UDP сокет на случайном порту.
func ListenUDP(t testing.TB) net.PacketConn {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to create UDP socket: %v", err)
	}
	t.Cleanup(func() {
		_ = pc.Close()
	})
	return pc
}
