package irc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/udisondev/gsgo/internal/constants"
)

// Server relays chat frames back to their sender.
type Server struct {
	addr        string
	readTimeout time.Duration

	listener net.Listener
	mu       sync.Mutex
}

// NewServer creates the chat relay on addr. readTimeout 0 disables idle disconnects.
func NewServer(addr string, readTimeout time.Duration) *Server {
	return &Server{addr: addr, readTimeout: readTimeout}
}

// Addr возвращает адрес listener или nil до запуска.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Run listens on the configured address.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	slog.Info("irc server started", "address", ln.Addr())

	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			slog.Error("irc accept failed", "err", err)
			continue
		}
		wg.Go(func() {
			s.handleConnection(ctx, conn)
		})
	}
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	done := make(chan struct{})
	defer close(done)
	defer conn.Close()

	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	id := uuid.New()
	slog.Info("irc connection", "conn", id, "remote", conn.RemoteAddr())
	defer slog.Info("irc connection closed", "conn", id, "remote", conn.RemoteAddr())

	buf := make([]byte, constants.DefaultReadBufSize)
	for {
		if s.readTimeout > 0 {
			if err := conn.SetReadDeadline(time.Now().Add(s.readTimeout)); err != nil {
				return
			}
		}
		n, err := conn.Read(buf)
		if n > 0 {
			if err := relay(conn, id, buf[:n]); err != nil {
				slog.Warn("closing irc connection", "conn", id, "err", err)
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				slog.Warn("irc read failed", "conn", id, "err", err)
			}
			return
		}
	}
}

// relay validates the frames of data and writes them back unchanged.
func relay(w io.Writer, id uuid.UUID, data []byte) error {
	msgs, err := DecodeBundle(data)
	if err != nil {
		return err
	}
	for _, m := range msgs {
		slog.Debug("irc message", "conn", id, "text", m.Text)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}
