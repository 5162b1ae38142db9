package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/udisondev/gsgo/internal/cdkey"
	"github.com/udisondev/gsgo/internal/config"
	"github.com/udisondev/gsgo/internal/crypto"
	"github.com/udisondev/gsgo/internal/db"
	"github.com/udisondev/gsgo/internal/discovery"
	"github.com/udisondev/gsgo/internal/gateway"
	"github.com/udisondev/gsgo/internal/handshake"
	"github.com/udisondev/gsgo/internal/irc"
	"github.com/udisondev/gsgo/internal/nat"
	"github.com/udisondev/gsgo/internal/protocol"
)

// runner is any service with the Run(ctx) lifecycle.
type runner interface {
	Run(ctx context.Context) error
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})))

	slog.Info("gsgo game service starting")

	cfg, err := config.LoadServer(config.Path())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	slog.Info("config loaded",
		"bind", cfg.BindAddress,
		"public_host", cfg.PublicHost,
		"obfuscation", cfg.Obfuscation.Strategy,
		"rsa_padding", cfg.Handshake.RSAPadding,
		"auto_create", cfg.AutoCreateAccounts,
	)

	accounts, err := db.OpenAccounts(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("opening account store: %w", err)
	}
	defer accounts.Close()
	slog.Info("account store ready", "driver", cfg.Database.Driver)

	obf, err := crypto.NewObfuscator(cfg.Obfuscation.Strategy, cfg.Obfuscation.Seed)
	if err != nil {
		return fmt.Errorf("obfuscation: %w", err)
	}
	padding, err := crypto.ParsePadding(cfg.Handshake.RSAPadding)
	if err != nil {
		return fmt.Errorf("handshake: %w", err)
	}

	codec := protocol.NewCodec(obf)
	keyCfg := handshake.Config{KeyBits: cfg.Handshake.RSABits, Padding: padding}
	handler := gateway.NewHandler(cfg, accounts)
	registry := gateway.NewRegistry()

	services := make(map[string]runner)
	for kind, entry := range gatewayServices(cfg) {
		if !entry.Enabled {
			continue
		}
		services[kind.String()] = gateway.NewServer(kind, cfg.Addr(entry.Port), handler, codec, keyCfg,
			gateway.WithRegistry(registry),
			gateway.WithReadTimeout(cfg.ReadTimeout),
		)
	}
	if cfg.NAT.Enabled {
		services["gsnat"] = nat.NewServer(cfg.NAT, cfg.Addr(cfg.NAT.Port), codec)
	}
	if cfg.CDKey.Enabled {
		services["cdkey"] = cdkey.NewServer(cfg.Addr(cfg.CDKey.Port))
	}
	if cfg.IRC.Enabled {
		services["irc"] = irc.NewServer(cfg.Addr(cfg.IRC.Port), cfg.ReadTimeout)
	}
	if cfg.Discovery.Enabled {
		services["discovery"] = discovery.NewServer(cfg.Addr(cfg.Discovery.Port), cfg.Discovery.Games)
	}
	if len(services) == 0 {
		return fmt.Errorf("no services enabled")
	}

	g, gctx := errgroup.WithContext(ctx)
	for name, srv := range services {
		g.Go(func() error {
			slog.Info("starting service", "service", name)
			if err := srv.Run(gctx); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	slog.Info("all services stopped", "clients_left", registry.Len())
	return nil
}

func gatewayServices(cfg config.Server) map[gateway.Kind]config.ServiceEntry {
	return map[gateway.Kind]config.ServiceEntry{
		gateway.KindRouter:        cfg.Services.Router,
		gateway.KindRouterWM:      cfg.Services.RouterWM,
		gateway.KindProxy:         cfg.Services.Proxy,
		gateway.KindProxyWM:       cfg.Services.ProxyWM,
		gateway.KindLobby:         cfg.Services.Lobby,
		gateway.KindLadderProxy:   cfg.Services.LadderProxy,
		gateway.KindLadderProxyWM: cfg.Services.LadderProxyWM,
	}
}
