package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/udisondev/gsgo/internal/constants"
	"github.com/udisondev/gsgo/internal/handshake"
	"github.com/udisondev/gsgo/internal/protocol"
)

// ServerOption is a functional option for Server configuration.
type ServerOption func(*Server)

// WithRegistry sets a shared client Registry (one per process in cmd/gsserver).
func WithRegistry(r *Registry) ServerOption {
	return func(s *Server) {
		s.registry = r
	}
}

// WithReadTimeout closes connections idle for longer than d.
func WithReadTimeout(d time.Duration) ServerOption {
	return func(s *Server) {
		s.readTimeout = d
	}
}

// Server is one gateway TCP service.
type Server struct {
	kind        Kind
	addr        string
	handler     *Handler
	codec       *protocol.Codec
	keyCfg      handshake.Config
	registry    *Registry
	readTimeout time.Duration

	sendPool *BytePool
	readPool *BytePool

	listener net.Listener
	mu       sync.Mutex
}

// NewServer creates a gateway service of the given kind listening on addr.
func NewServer(
	kind Kind,
	addr string,
	handler *Handler,
	codec *protocol.Codec,
	keyCfg handshake.Config,
	opts ...ServerOption,
) *Server {
	s := &Server{
		kind:     kind,
		addr:     addr,
		handler:  handler,
		codec:    codec,
		keyCfg:   keyCfg,
		sendPool: NewBytePool(constants.DefaultSendBufSize),
		readPool: NewBytePool(constants.DefaultReadBufSize),
	}

	// Применяем опции
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.registry == nil {
		s.registry = NewRegistry()
	}
	return s
}

// Kind returns the service kind.
func (s *Server) Kind() Kind {
	return s.kind
}

// Registry returns the client registry the server reports to.
func (s *Server) Registry() *Registry {
	return s.registry
}

// Addr возвращает адрес, на котором слушает сервер.
// Возвращает nil если сервер ещё не запущен.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Close закрывает listener и останавливает сервер.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

// Run creates a listener on the configured address and runs the accept loop.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve принимает готовый listener и запускает accept loop.
// Используется для тестирования с произвольным listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	var wg sync.WaitGroup
	wg.Go(func() {
		slog.Info("gateway service started", "service", s.kind, "address", ln.Addr())
		acceptLoop(ctx, &wg, s, ln)
	})

	wg.Wait()

	return nil
}

func acceptLoop(
	ctx context.Context,
	wg *sync.WaitGroup,
	srv *Server,
	ln net.Listener,
) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			conn, err := ln.Accept()
			if err != nil {
				if errors.Is(err, net.ErrClosed) {
					return
				}
				slog.Error("Failed to accept new connection", "service", srv.kind, "error", err)
				continue
			}
			wg.Go(func() {
				handleConnection(ctx, srv, conn)
			})
		}
	}
}

func handleConnection(ctx context.Context, srv *Server, conn net.Conn) {
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

	client, err := NewClient(conn, srv.kind, srv.keyCfg)
	if err != nil {
		slog.Error("failed to create client", "err", err, "remote", conn.RemoteAddr())
		return
	}
	srv.registry.Add(client)
	defer srv.registry.Remove(client.ID())

	slog.Info("new connection", "service", srv.kind, "conn", client.ID(), "remote", client.IP())
	defer slog.Info("connection closed", "service", srv.kind, "conn", client.ID(), "remote", client.IP())

	for {
		select {
		case <-ctx.Done():
			return
		default:
			ok, err := srv.handleRead(ctx, client)
			if err != nil {
				slog.Warn("closing connection", "service", srv.kind, "conn", client.ID(), "remote", client.IP(), "err", err)
			}
			if !ok {
				return
			}
		}
	}
}

func (s *Server) handleRead(ctx context.Context, client *Client) (bool, error) {
	readBuf := s.readPool.Get(constants.DefaultReadBufSize)
	defer s.readPool.Put(readBuf)

	if s.readTimeout > 0 {
		if err := client.conn.SetReadDeadline(time.Now().Add(s.readTimeout)); err != nil {
			return false, fmt.Errorf("set read deadline: %w", err)
		}
	}

	if s.kind.Echo() {
		return s.echo(client, readBuf)
	}

	data, err := protocol.ReadBundle(client.conn, readBuf)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
			return false, nil
		}
		return false, fmt.Errorf("read bundle: %w", err)
	}

	sendBuf := s.sendPool.Get(0)
	defer func() { s.sendPool.Put(sendBuf) }()

	ok, herr := s.handleBundle(ctx, client, data, &sendBuf)
	if len(sendBuf) > 0 {
		if _, err := client.conn.Write(sendBuf); err != nil {
			return false, errors.Join(herr, fmt.Errorf("write: %w", err))
		}
	}
	return ok, herr
}

// handleBundle answers every message of data in order and appends the
// responses to out, so one read produces at most one write. Messages after a
// KEY_EXCHANGE in the same bundle are decoded with the freshly set session key.
func (s *Server) handleBundle(ctx context.Context, client *Client, data []byte, out *[]byte) (bool, error) {
	for off := 0; off < len(data); {
		msg, err := s.codec.Decode(data[off:], client.Keys().SessionKey())
		if err != nil {
			return false, fmt.Errorf("decode: %w", err)
		}
		raw := data[off : off+int(msg.Size)]
		off += int(msg.Size)

		slog.Debug("request", "service", s.kind, "conn", client.ID(), "message", msg)

		resp, ok, err := s.handler.HandleMessage(ctx, client, msg)
		if err != nil {
			return false, err
		}

		switch {
		case resp != nil:
			slog.Debug("response", "service", s.kind, "conn", client.ID(), "message", resp)
			if *out, err = s.codec.AppendEncode(*out, resp); err != nil {
				return false, fmt.Errorf("encode: %w", err)
			}
		case msg.Type != protocol.MsgStillAlive:
			*out = append(*out, raw...)
		}

		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func (s *Server) echo(client *Client, buf []byte) (bool, error) {
	n, err := client.conn.Read(buf)
	if n > 0 {
		slog.Debug("echo", "conn", client.ID(), "bytes", n)
		if _, werr := client.conn.Write(buf[:n]); werr != nil {
			return false, fmt.Errorf("write: %w", werr)
		}
	}
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
			return false, nil
		}
		return false, fmt.Errorf("read: %w", err)
	}
	return true, nil
}
