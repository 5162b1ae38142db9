package cdkey

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/udisondev/gsgo/internal/constants"
)

// Server is the CD-key UDP service.
type Server struct {
	addr string

	conn net.PacketConn
	mu   sync.Mutex
}

// NewServer creates the service listening on addr.
func NewServer(addr string) *Server {
	return &Server{addr: addr}
}

// Addr возвращает адрес сокета или nil до запуска.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

// Run binds the UDP socket and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	conn, err := net.ListenPacket("udp", s.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, conn)
}

// Serve answers datagrams on conn until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, conn net.PacketConn) error {
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	slog.Info("cdkey server started", "address", conn.LocalAddr())
	buf := make([]byte, constants.DatagramBufSize)
	for {
		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			slog.Error("cdkey read failed", "err", err)
			continue
		}

		reply, err := s.handle(buf[:n])
		if err != nil {
			slog.Warn("cdkey datagram dropped", "remote", from, "err", err)
			continue
		}
		if reply == nil {
			continue
		}
		if _, err := conn.WriteTo(reply, from); err != nil {
			slog.Error("cdkey write failed", "remote", from, "err", err)
		}
	}
}

func (s *Server) handle(datagram []byte) ([]byte, error) {
	req, err := Decode(datagram)
	if err != nil {
		return nil, err
	}
	slog.Debug("cdkey request", "message", req)

	resp := Respond(req)
	if resp == nil {
		slog.Debug("cdkey request not answered", "request", req.Request)
		return nil, nil
	}
	return resp.Encode()
}
