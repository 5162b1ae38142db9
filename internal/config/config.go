package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/udisondev/gsgo/internal/constants"
	"github.com/udisondev/gsgo/internal/crypto"
)

// EnvConfigPath overrides the config file path.
const EnvConfigPath = "GSGO_CONFIG"

// DefaultConfigPath is used when EnvConfigPath is not set.
const DefaultConfigPath = "config/gsserver.yaml"

// Server holds all configuration for the Game Service stack.
type Server struct {
	// Network
	BindAddress string `yaml:"bind_address"`
	// PublicHost is the address handed to clients in proxy and wait-module redirects.
	PublicHost string `yaml:"public_host"`

	// Idle client disconnect for the TCP services (0 = none)
	ReadTimeout time.Duration `yaml:"read_timeout"`

	Services    Services       `yaml:"services"`
	NAT         NAT            `yaml:"nat"`
	CDKey       ServiceEntry   `yaml:"cdkey"`
	IRC         ServiceEntry   `yaml:"irc"`
	Discovery   Discovery      `yaml:"discovery"`
	Handshake   Handshake      `yaml:"handshake"`
	Obfuscation Obfuscation    `yaml:"obfuscation"`
	Database    DatabaseConfig `yaml:"database"`

	// Security
	AutoCreateAccounts bool `yaml:"auto_create_accounts"`
}

// ServiceEntry enables one listener.
type ServiceEntry struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Services lists the TCP message services.
type Services struct {
	Router        ServiceEntry `yaml:"router"`
	RouterWM      ServiceEntry `yaml:"router_wm"`
	Proxy         ServiceEntry `yaml:"proxy"`
	ProxyWM       ServiceEntry `yaml:"proxy_wm"`
	Lobby         ServiceEntry `yaml:"lobby"`
	LadderProxy   ServiceEntry `yaml:"ladder_proxy"`
	LadderProxyWM ServiceEntry `yaml:"ladder_proxy_wm"`
}

// NAT configures the SRP datagram service.
type NAT struct {
	ServiceEntry `yaml:",inline"`

	VerifyChecksum bool `yaml:"verify_checksum"`

	// Per-IP flood protection (RateLimit <= 0 disables it)
	RateLimit  float64       `yaml:"rate_limit"` // datagrams per second
	RateBurst  int           `yaml:"rate_burst"`
	LimiterTTL time.Duration `yaml:"limiter_ttl"`
}

// Discovery configures the gsinit.php endpoint.
type Discovery struct {
	ServiceEntry `yaml:",inline"`

	Games []GameEntry `yaml:"games"`
}

// GameEntry maps a game id (the dp parameter) to its ini file.
type GameEntry struct {
	ID   string `yaml:"id"`
	Dir  string `yaml:"dir"`
	File string `yaml:"file"`
}

// Handshake configures KEY_EXCHANGE.
type Handshake struct {
	RSABits    int    `yaml:"rsa_bits"`
	RSAPadding string `yaml:"rsa_padding"` // none | pkcs1v15
}

// Obfuscation selects the GS payload transform.
type Obfuscation struct {
	Strategy string `yaml:"strategy"` // none | xorchain
	Seed     uint8  `yaml:"seed"`
}

// DatabaseConfig holds account store parameters.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // postgres | sqlite

	// PostgreSQL
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`

	// SQLite
	Path string `yaml:"path"`
}

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// DefaultServer returns Server config with the retail port layout.
func DefaultServer() Server {
	return Server{
		BindAddress: "0.0.0.0",
		PublicHost:  "127.0.0.1",
		ReadTimeout: 120 * time.Second,
		Services: Services{
			Router:        ServiceEntry{Enabled: true, Port: constants.PortRouter},
			RouterWM:      ServiceEntry{Enabled: true, Port: constants.PortRouterWM},
			Proxy:         ServiceEntry{Enabled: true, Port: constants.PortProxy},
			ProxyWM:       ServiceEntry{Enabled: true, Port: constants.PortProxyWM},
			Lobby:         ServiceEntry{Enabled: true, Port: constants.PortLobby},
			LadderProxy:   ServiceEntry{Enabled: false, Port: constants.PortLadderProxy},
			LadderProxyWM: ServiceEntry{Enabled: false, Port: constants.PortLadderProxyWM},
		},
		NAT: NAT{
			ServiceEntry: ServiceEntry{Enabled: true, Port: constants.PortNAT},
			RateLimit:    50,
			RateBurst:    100,
			LimiterTTL:   30 * time.Minute,
		},
		CDKey: ServiceEntry{Enabled: true, Port: constants.PortCDKey},
		IRC:   ServiceEntry{Enabled: true, Port: constants.PortIRC},
		Discovery: Discovery{
			ServiceEntry: ServiceEntry{Enabled: true, Port: constants.PortDiscovery},
			Games: []GameEntry{
				{ID: "HEROES_657d2c2ebadc6a1d", Dir: "static/homm5", File: "servers.ini"},
				{ID: "SPLINTERCELL3PS2US", Dir: "static/sp3", File: "GS.ini"},
			},
		},
		Handshake: Handshake{
			RSABits:    constants.RSADefaultKeyBits,
			RSAPadding: crypto.PaddingNone.String(),
		},
		Obfuscation: Obfuscation{
			Strategy: crypto.ObfuscationNone,
		},
		Database: DatabaseConfig{
			Driver:   DriverSQLite,
			Host:     "127.0.0.1",
			Port:     5432,
			User:     "gsgo",
			Password: "gsgo",
			DBName:   "gsgo",
			SSLMode:  "disable",
			Path:     "gsgo.db",
		},
		AutoCreateAccounts: true,
	}
}

// LoadServer loads server config from a YAML file.
// If the file doesn't exist, returns defaults.
func LoadServer(path string) (Server, error) {
	cfg := DefaultServer()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Path returns the config path from the environment or the default.
func Path() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return DefaultConfigPath
}

// Validate checks values that would otherwise fail late at startup.
func (c Server) Validate() error {
	if _, err := crypto.ParsePadding(c.Handshake.RSAPadding); err != nil {
		return err
	}
	if _, err := crypto.NewObfuscator(c.Obfuscation.Strategy, c.Obfuscation.Seed); err != nil {
		return err
	}
	if c.Handshake.RSABits < 0 || c.Handshake.RSABits%32 != 0 {
		return fmt.Errorf("handshake.rsa_bits %d must be a multiple of 32", c.Handshake.RSABits)
	}
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}

	for name, svc := range c.listeners() {
		if svc.Enabled && (svc.Port <= 0 || svc.Port > 0xFFFF) {
			return fmt.Errorf("%s: invalid port %d", name, svc.Port)
		}
	}
	return nil
}

func (c Server) listeners() map[string]ServiceEntry {
	return map[string]ServiceEntry{
		"services.router":          c.Services.Router,
		"services.router_wm":       c.Services.RouterWM,
		"services.proxy":           c.Services.Proxy,
		"services.proxy_wm":        c.Services.ProxyWM,
		"services.lobby":           c.Services.Lobby,
		"services.ladder_proxy":    c.Services.LadderProxy,
		"services.ladder_proxy_wm": c.Services.LadderProxyWM,
		"nat":                      c.NAT.ServiceEntry,
		"cdkey":                    c.CDKey,
		"irc":                      c.IRC,
		"discovery":                c.Discovery.ServiceEntry,
	}
}

// Addr formats a listen address for port on the bind address.
func (c Server) Addr(port int) string {
	return fmt.Sprintf("%s:%d", c.BindAddress, port)
}
