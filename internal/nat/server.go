package nat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/udisondev/gsgo/internal/config"
	"github.com/udisondev/gsgo/internal/constants"
	"github.com/udisondev/gsgo/internal/protocol"
)

// sweepInterval is how often idle peers are dropped.
const sweepInterval = time.Minute

// Server is the NAT traversal datagram service.
type Server struct {
	cfg     config.NAT
	addr    string
	peers   *Registry
	handler *Handler

	// per-IP limiters, evicted after cfg.LimiterTTL of silence
	limiters *cache.Cache

	conn net.PacketConn
	mu   sync.Mutex
}

// NewServer creates the NAT server listening on addr.
func NewServer(cfg config.NAT, addr string, codec *protocol.Codec) *Server {
	ttl := cfg.LimiterTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	peers := NewRegistry()
	return &Server{
		cfg:      cfg,
		addr:     addr,
		peers:    peers,
		handler:  NewHandler(peers, codec, cfg.VerifyChecksum),
		limiters: cache.New(ttl, ttl/6),
	}
}

// Peers returns the peer registry.
func (s *Server) Peers() *Registry {
	return s.peers
}

// Addr возвращает адрес сокета или nil, если сервер ещё не запущен.
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

// Serve reads datagrams from conn. Используется в тестах с готовым сокетом.
func (s *Server) Serve(ctx context.Context, conn net.PacketConn) error {
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	var wg sync.WaitGroup
	wg.Go(func() {
		s.sweep(ctx)
	})

	slog.Info("nat server started", "address", conn.LocalAddr())
	buf := make([]byte, constants.DatagramBufSize)
	for {
		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				break
			}
			slog.Error("nat read failed", "err", err)
			continue
		}

		addr, ok := addrPort(from)
		if !ok {
			continue
		}
		if !s.allow(addr.Addr()) {
			slog.Debug("nat datagram rate limited", "remote", addr)
			continue
		}

		reply, err := s.handler.Handle(addr, buf[:n])
		if err != nil {
			slog.Warn("nat datagram dropped", "remote", addr, "err", err)
			continue
		}
		if reply == nil {
			continue
		}
		if _, err := conn.WriteTo(reply, from); err != nil {
			slog.Error("nat write failed", "remote", addr, "err", err)
		}
	}

	wg.Wait()
	return nil
}

func (s *Server) allow(ip netip.Addr) bool {
	if s.cfg.RateLimit <= 0 {
		return true
	}
	return s.limiter(ip.String()).Allow()
}

func (s *Server) limiter(ip string) *rate.Limiter {
	if l, found := s.limiters.Get(ip); found {
		return l.(*rate.Limiter)
	}
	burst := max(s.cfg.RateBurst, 1)
	l := rate.NewLimiter(rate.Limit(s.cfg.RateLimit), burst)
	s.limiters.Set(ip, l, cache.DefaultExpiration)
	return l
}

func (s *Server) sweep(ctx context.Context) {
	ttl := s.cfg.LimiterTTL
	if ttl <= 0 {
		return
	}
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := s.peers.RemoveIdle(now.Add(-ttl)); n > 0 {
				slog.Debug("nat idle peers dropped", "count", n)
			}
		}
	}
}

func addrPort(a net.Addr) (netip.AddrPort, bool) {
	if ua, ok := a.(*net.UDPAddr); ok {
		ap := ua.AddrPort()
		return netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port()), true
	}
	ap, err := netip.ParseAddrPort(a.String())
	if err != nil {
		return netip.AddrPort{}, false
	}
	return ap, true
}
