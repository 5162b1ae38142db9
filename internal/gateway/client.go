package gateway

import (
	"fmt"
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/udisondev/gsgo/internal/handshake"
)

// Client is one connection to a gateway service. The key state is owned by the
// connection goroutine; the identity fields are read by the registry too.
type Client struct {
	conn    net.Conn
	id      uuid.UUID
	ip      string
	service Kind
	keys    *handshake.KeyState

	username string
	loggedIn bool

	mu sync.Mutex
}

// NewClient creates client state for conn.
func NewClient(conn net.Conn, service Kind, keyCfg handshake.Config) (*Client, error) {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return nil, fmt.Errorf("splitting host port: %w", err)
	}

	return &Client{
		conn:    conn,
		id:      uuid.New(),
		ip:      host,
		service: service,
		keys:    handshake.NewKeyState(keyCfg),
	}, nil
}

// ID returns the connection id.
func (c *Client) ID() uuid.UUID { return c.id }

// IP returns the client's remote IP address.
func (c *Client) IP() string { return c.ip }

// Service returns the service the client is connected to.
func (c *Client) Service() Kind { return c.service }

// Keys returns the KEY_EXCHANGE state.
func (c *Client) Keys() *handshake.KeyState { return c.keys }

// Username returns the name announced by LOGIN or LOGINWAITMODULE.
func (c *Client) Username() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.username
}

// SetUsername sets the username.
func (c *Client) SetUsername(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.username = name
}

// LoggedIn reports whether LOGIN succeeded on this connection.
func (c *Client) LoggedIn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loggedIn
}

func (c *Client) setLoggedIn(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.username = name
	c.loggedIn = true
}
