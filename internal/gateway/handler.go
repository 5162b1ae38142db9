package gateway

import (
	"context"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/udisondev/gsgo/internal/config"
	"github.com/udisondev/gsgo/internal/db"
	"github.com/udisondev/gsgo/internal/protocol"
	"github.com/udisondev/gsgo/internal/value"
)

var (
	// ErrUnhandledMessage is returned for message types the service does not answer.
	ErrUnhandledMessage = errors.New("no handler for message type")

	// ErrBadRequest is returned for requests whose payload lacks required fields.
	ErrBadRequest = errors.New("bad request payload")
)

// PROXY_HANDLER sub-requests
const (
	proxyHandlerModuleInfo = "1"
	proxyHandlerStatus     = "2"
)

// playerInfoFields is the fixed PLAYERINFO profile.
var playerInfoFields = value.Strs("findme1", "findme2", "findme3", "findme4", "findme5", "findme6", "findme7")

// Endpoint is a host:port handed to the client in a redirect.
type Endpoint struct {
	Host string
	Port int
}

// Handler answers decoded messages for every gateway service. Singleton — один на процесс.
type Handler struct {
	accounts   AccountRepository
	autoCreate bool

	proxy         Endpoint
	proxyWM       Endpoint
	ladderProxyWM Endpoint
}

// NewHandler creates a message handler. accounts may be nil, then LOGIN
// accepts any name.
func NewHandler(cfg config.Server, accounts AccountRepository) *Handler {
	return &Handler{
		accounts:      accounts,
		autoCreate:    cfg.AutoCreateAccounts,
		proxy:         Endpoint{Host: cfg.PublicHost, Port: cfg.Services.Proxy.Port},
		proxyWM:       Endpoint{Host: cfg.PublicHost, Port: cfg.Services.ProxyWM.Port},
		ladderProxyWM: Endpoint{Host: cfg.PublicHost, Port: cfg.Services.LadderProxyWM.Port},
	}
}

// HandleMessage answers one request. A nil response means nothing to send;
// ok=false closes the connection after the response is written.
func (h *Handler) HandleMessage(
	ctx context.Context,
	client *Client,
	req *protocol.Message,
) (*protocol.Message, bool, error) {
	if !client.Service().Handles(req.Type) {
		return nil, false, fmt.Errorf("%w: %s on %s", ErrUnhandledMessage, req.Type, client.Service())
	}

	switch req.Type {
	case protocol.MsgStillAlive:
		return nil, true, nil
	case protocol.MsgKeyExchange:
		return h.handleKeyExchange(client, req)
	case protocol.MsgLoginWaitModule:
		return h.handleLoginWaitModule(client, req)
	case protocol.MsgJoinWaitModule:
		return h.handleJoinWaitModule(client, req)
	case protocol.MsgLogin:
		return h.handleLogin(ctx, client, req)
	case protocol.MsgPlayerInfo:
		return success(req, value.List{msgID(req), playerInfoFields}), true, nil
	case protocol.MsgProxyHandler:
		return h.handleProxyHandler(req)
	}
	return nil, false, fmt.Errorf("%w: %s", ErrUnhandledMessage, req.Type)
}

func (h *Handler) handleKeyExchange(client *Client, req *protocol.Message) (*protocol.Message, bool, error) {
	payload, err := client.Keys().Step(req.Payload)
	if err != nil {
		return nil, false, fmt.Errorf("KEY_EXCHANGE: %w", err)
	}
	slog.Debug("key exchange step", "conn", client.ID(), "state", client.Keys().State())

	resp := protocol.NewResponse(req).SetPayload(payload)
	if resp.Property == protocol.PropertyEncrypted {
		resp.Property = protocol.PropertyGS
	}
	return resp, true, nil
}

func (h *Handler) handleLoginWaitModule(client *Client, req *protocol.Message) (*protocol.Message, bool, error) {
	name, err := req.Payload.Str(0)
	if err != nil {
		return nil, false, fmt.Errorf("%w: LOGINWAITMODULE: %w", ErrBadRequest, err)
	}
	client.SetUsername(name)
	slog.Info("wait module login", "conn", client.ID(), "service", client.Service(), "username", name)
	return success(req, value.List{msgID(req)}), true, nil
}

func (h *Handler) handleJoinWaitModule(client *Client, req *protocol.Message) (*protocol.Message, bool, error) {
	wm := h.proxyWM
	if client.Service() == KindLadderProxy {
		wm = h.ladderProxyWM
	}
	return success(req, value.List{msgID(req), value.List{value.Str(wm.Host), portBin(wm.Port)}}), true, nil
}

func (h *Handler) handleProxyHandler(req *protocol.Message) (*protocol.Message, bool, error) {
	if len(req.Payload) > 0 && req.Payload[0] != nil && req.Payload[0].Kind() == value.KindList {
		// ответа нет, цикл вернёт запрос эхом
		return nil, true, nil
	}

	sub, err := req.Payload.Str(0)
	if err != nil {
		return nil, false, fmt.Errorf("%w: PROXY_HANDLER: %w", ErrBadRequest, err)
	}

	var body value.List
	switch sub {
	case proxyHandlerModuleInfo:
		moduleInfo := value.List{
			value.Str("persistantdata"), value.Str("0"), value.Str("0"),
			value.List{value.Strs("1", h.proxy.Host, strconv.Itoa(h.proxy.Port))},
		}
		body = value.List{value.Str(sub), moduleInfo}
	case proxyHandlerStatus:
		body = value.List{value.Str(sub), value.Strs("1")}
	default:
		return nil, false, fmt.Errorf("%w: PROXY_HANDLER subtype %q", ErrBadRequest, sub)
	}

	resp := protocol.NewResponse(req).SetPayload(value.List{value.Itoa(int(protocol.MsgGSSuccess)), body})
	resp.Property = protocol.PropertyGS
	resp.Type = protocol.MsgProxyHandler
	return resp, true, nil
}

func (h *Handler) handleLogin(ctx context.Context, client *Client, req *protocol.Message) (*protocol.Message, bool, error) {
	name, err := req.Payload.Str(0)
	if err != nil {
		return nil, false, fmt.Errorf("%w: LOGIN: %w", ErrBadRequest, err)
	}
	login := strings.ToLower(strings.TrimSpace(name))
	if login == "" {
		slog.Warn("empty login", "conn", client.ID(), "client", client.IP())
		return fail(req), false, nil
	}
	// пароль необязателен
	password, _ := req.Payload.Str(1)

	if h.accounts != nil {
		if resp, ok := h.authenticate(ctx, client, req, login, password); resp != nil {
			return resp, ok, nil
		}
	}

	client.setLoggedIn(login)
	slog.Info("login success", "conn", client.ID(), "login", login, "client", client.IP())
	return success(req, value.List{msgID(req), value.List{}}), true, nil
}

// authenticate checks the account the way the login flow always has. A
// non-nil response is the failure to send.
func (h *Handler) authenticate(
	ctx context.Context,
	client *Client,
	req *protocol.Message,
	login, password string,
) (*protocol.Message, bool) {
	passHash := db.HashPassword(password)

	acc, err := h.accounts.GetAccount(ctx, login)
	if err != nil {
		slog.Error("database error during auth", "err", err, "client", client.IP())
		return fail(req), false
	}

	if acc == nil {
		if !h.autoCreate {
			slog.Warn("unknown account", "login", login, "client", client.IP())
			return fail(req), false
		}
		acc, err = h.accounts.GetOrCreateAccount(ctx, login, passHash, client.IP())
		if err != nil {
			slog.Error("failed to get or create account", "err", err, "client", client.IP())
			return fail(req), false
		}
	}

	if subtle.ConstantTimeCompare([]byte(acc.PasswordHash), []byte(passHash)) != 1 {
		slog.Warn("wrong password", "login", login, "client", client.IP())
		return fail(req), false
	}
	if acc.Banned() {
		slog.Warn("account banned", "login", login, "client", client.IP())
		return fail(req), false
	}

	if err := h.accounts.UpdateLastLogin(ctx, login, client.Service().String(), client.IP()); err != nil {
		slog.Error("failed to update last login", "err", err)
	}
	return nil, true
}

func msgID(req *protocol.Message) value.Bin {
	return value.Bin{byte(req.Type)}
}

func portBin(port int) value.Bin {
	return binary.LittleEndian.AppendUint32(nil, uint32(port))
}

func success(req *protocol.Message, payload value.List) *protocol.Message {
	resp := protocol.NewResponse(req).SetPayload(payload)
	resp.Property = protocol.PropertyGS
	resp.Type = protocol.MsgGSSuccess
	return resp
}

func fail(req *protocol.Message) *protocol.Message {
	resp := protocol.NewResponse(req).SetPayload(value.List{msgID(req)})
	resp.Property = protocol.PropertyGS
	resp.Type = protocol.MsgGSFail
	return resp
}
