// Package discovery serves the per-game service list the client fetches over
// HTTP before it opens any Game Service connection.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/udisondev/gsgo/internal/config"
)

// InitPath is the only file name the client requests.
const InitPath = "gsinit.php"

const shutdownTimeout = 5 * time.Second

// Server is the discovery HTTP endpoint.
type Server struct {
	addr   string
	games  map[string]config.GameEntry
	router *gin.Engine

	httpServer *http.Server
	listener   net.Listener
	mu         sync.Mutex
}

// NewServer creates the endpoint for the configured games.
func NewServer(addr string, games []config.GameEntry) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		addr:   addr,
		games:  make(map[string]config.GameEntry, len(games)),
		router: gin.New(),
	}
	for _, g := range games {
		s.games[g.ID] = g
	}

	s.router.Use(loggingMiddleware(), gin.Recovery())
	s.router.GET("/:file", s.handleGet)
	s.router.NoRoute(unknownRequest)
	return s
}

// Handler returns the HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
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

// Serve serves HTTP on ln and shuts down gracefully when ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.listener = ln
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("discovery server started", "address", ln.Addr())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("discovery server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("discovery shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleGet(c *gin.Context) {
	if c.Param("file") != InitPath {
		unknownRequest(c)
		return
	}

	dp := c.Query("dp")
	game, ok := s.games[dp]
	if !ok {
		slog.Warn("unknown game id", "dp", dp, "remote", c.ClientIP())
		c.String(http.StatusBadRequest, "Unknown game id")
		return
	}
	// SP3 присылает ещё и user
	if user := c.Query("user"); user != "" {
		slog.Debug("discovery user", "dp", dp, "user", user)
	}

	path := filepath.Join(game.Dir, game.File)
	if fi, err := os.Stat(path); err != nil || fi.IsDir() {
		slog.Error("game ini file missing", "dp", dp, "path", path, "err", err)
		c.Status(http.StatusNotFound)
		return
	}
	c.FileAttachment(path, game.File)
}

func unknownRequest(c *gin.Context) {
	slog.Warn("unknown discovery request", "method", c.Request.Method, "path", c.Request.URL.Path, "remote", c.ClientIP())
	c.String(http.StatusBadRequest, "Unknown request")
}

func loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"remote", c.ClientIP(),
			"latency", time.Since(start),
		)
	}
}
