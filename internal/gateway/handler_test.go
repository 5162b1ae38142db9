package gateway

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/gsgo/internal/config"
	"github.com/udisondev/gsgo/internal/constants"
	"github.com/udisondev/gsgo/internal/crypto"
	"github.com/udisondev/gsgo/internal/db"
	"github.com/udisondev/gsgo/internal/handshake"
	"github.com/udisondev/gsgo/internal/protocol"
	"github.com/udisondev/gsgo/internal/testutil"
	"github.com/udisondev/gsgo/internal/value"
)

func testConfig() config.Server {
	cfg := config.DefaultServer()
	cfg.PublicHost = "203.0.113.5"
	return cfg
}

func newTestClient(kind Kind) *Client {
	return &Client{
		id:      uuid.New(),
		ip:      "10.0.0.1",
		service: kind,
		keys:    handshake.NewKeyState(handshake.Config{KeyBits: constants.TestRSAKeyBits}),
	}
}

func handle(t *testing.T, h *Handler, c *Client, req *protocol.Message) (*protocol.Message, bool) {
	t.Helper()
	resp, ok, err := h.HandleMessage(context.Background(), c, req)
	require.NoError(t, err)
	return resp, ok
}

func assertSuccess(t *testing.T, req, resp *protocol.Message) {
	t.Helper()
	require.NotNil(t, resp)
	assert.Equal(t, protocol.MsgGSSuccess, resp.Type)
	assert.Equal(t, protocol.PropertyGS, resp.Property)
	assert.Equal(t, req.Receiver, resp.Sender)
	assert.Equal(t, req.Sender, resp.Receiver)
}

func TestKind_Handles(t *testing.T) {
	tests := []struct {
		kind Kind
		typ  protocol.MessageType
		want bool
	}{
		{KindRouterWM, protocol.MsgPlayerInfo, true},
		{KindRouterWM, protocol.MsgProxyHandler, true},
		{KindRouterWM, protocol.MsgLogin, false},
		{KindProxy, protocol.MsgLogin, true},
		{KindProxy, protocol.MsgJoinWaitModule, true},
		{KindProxy, protocol.MsgPlayerInfo, false},
		{KindLadderProxy, protocol.MsgLogin, true},
		{KindProxyWM, protocol.MsgLoginWaitModule, true},
		{KindLadderProxyWM, protocol.MsgKeyExchange, true},
		{KindLobby, protocol.MsgLoginWaitModule, true},
		{KindLobby, protocol.MsgKeyExchange, false},
		{KindRouter, protocol.MsgStillAlive, false},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String()+"/"+tt.typ.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.Handles(tt.typ))
		})
	}
	assert.True(t, KindRouter.Echo())
	assert.False(t, KindRouterWM.Echo())
	assert.Equal(t, "Kind(99)", Kind(99).String())
}

func TestHandler_Unhandled(t *testing.T) {
	h := NewHandler(testConfig(), nil)

	_, ok, err := h.HandleMessage(context.Background(), newTestClient(KindLobby),
		testutil.Request(protocol.MsgPlayerInfo, nil))
	assert.ErrorIs(t, err, ErrUnhandledMessage)
	assert.False(t, ok)
}

func TestHandler_StillAlive(t *testing.T) {
	h := NewHandler(testConfig(), nil)

	resp, ok := handle(t, h, newTestClient(KindProxy), testutil.Request(protocol.MsgStillAlive, nil))
	assert.Nil(t, resp)
	assert.True(t, ok)
}

func TestHandler_LoginWaitModule(t *testing.T) {
	h := NewHandler(testConfig(), nil)
	c := newTestClient(KindRouterWM)
	req := testutil.Request(protocol.MsgLoginWaitModule, value.Strs("Hero", "x"))

	resp, ok := handle(t, h, c, req)
	assert.True(t, ok)
	assertSuccess(t, req, resp)
	assert.Equal(t, value.List{value.Bin{77}}, resp.Payload)
	assert.Equal(t, "Hero", c.Username())
	assert.False(t, c.LoggedIn())

	_, _, err := h.HandleMessage(context.Background(), c, testutil.Request(protocol.MsgLoginWaitModule, value.List{}))
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestHandler_PlayerInfo(t *testing.T) {
	h := NewHandler(testConfig(), nil)
	req := testutil.Request(protocol.MsgPlayerInfo, value.Strs("Hero"))

	resp, _ := handle(t, h, newTestClient(KindRouterWM), req)
	assertSuccess(t, req, resp)
	assert.Equal(t, value.List{
		value.Bin{19},
		value.Strs("findme1", "findme2", "findme3", "findme4", "findme5", "findme6", "findme7"),
	}, resp.Payload)
}

func TestHandler_ProxyHandler(t *testing.T) {
	h := NewHandler(testConfig(), nil)
	c := newTestClient(KindRouterWM)

	t.Run("module info", func(t *testing.T) {
		resp, ok := handle(t, h, c, testutil.Request(protocol.MsgProxyHandler, value.Strs("1")))
		require.NotNil(t, resp)
		assert.True(t, ok)
		assert.Equal(t, protocol.MsgProxyHandler, resp.Type)
		assert.Equal(t, protocol.PropertyGS, resp.Property)
		assert.Equal(t, value.List{
			value.Str("38"),
			value.List{value.Str("1"), value.List{
				value.Str("persistantdata"), value.Str("0"), value.Str("0"),
				value.List{value.Strs("1", "203.0.113.5", "7783")},
			}},
		}, resp.Payload)
	})

	t.Run("status", func(t *testing.T) {
		resp, _ := handle(t, h, c, testutil.Request(protocol.MsgProxyHandler, value.Strs("2")))
		require.NotNil(t, resp)
		assert.Equal(t, value.List{value.Str("38"), value.List{value.Str("2"), value.Strs("1")}}, resp.Payload)
	})

	t.Run("nested list gets no response", func(t *testing.T) {
		resp, ok := handle(t, h, c, testutil.Request(protocol.MsgProxyHandler, value.List{value.Strs("1")}))
		assert.Nil(t, resp)
		assert.True(t, ok)
	})

	t.Run("unknown subtype", func(t *testing.T) {
		_, ok, err := h.HandleMessage(context.Background(), c, testutil.Request(protocol.MsgProxyHandler, value.Strs("9")))
		assert.ErrorIs(t, err, ErrBadRequest)
		assert.False(t, ok)
	})
}

func TestHandler_JoinWaitModule(t *testing.T) {
	cfg := testConfig()
	cfg.Services.LadderProxyWM.Port = 17787
	h := NewHandler(cfg, nil)

	tests := []struct {
		kind Kind
		port uint32
	}{
		{KindProxy, 7784},
		{KindLadderProxy, 17787},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			req := testutil.Request(protocol.MsgJoinWaitModule, value.Strs("1"))
			resp, ok := handle(t, h, newTestClient(tt.kind), req)
			assert.True(t, ok)
			assertSuccess(t, req, resp)

			port := binary.LittleEndian.AppendUint32(nil, tt.port)
			assert.Equal(t, value.List{
				value.Bin{93},
				value.List{value.Str("203.0.113.5"), value.Bin(port)},
			}, resp.Payload)
		})
	}
}

func TestHandler_LoginWithoutAccounts(t *testing.T) {
	h := NewHandler(testConfig(), nil)
	c := newTestClient(KindProxy)
	req := testutil.Request(protocol.MsgLogin, value.Strs("Hero"))

	resp, ok := handle(t, h, c, req)
	assert.True(t, ok)
	assertSuccess(t, req, resp)
	assert.Equal(t, value.List{value.Bin{102}, value.List{}}, resp.Payload)
	assert.Equal(t, "hero", c.Username())
	assert.True(t, c.LoggedIn())
}

func TestHandler_LoginAccounts(t *testing.T) {
	login := func(h *Handler, name, password string) (*protocol.Message, bool) {
		resp, ok, err := h.HandleMessage(context.Background(), newTestClient(KindProxy),
			testutil.Request(protocol.MsgLogin, value.Strs(name, password)))
		require.NoError(t, err)
		require.NotNil(t, resp)
		return resp, ok
	}

	t.Run("auto create then check password", func(t *testing.T) {
		accounts := testutil.NewMockAccounts()
		h := NewHandler(testConfig(), accounts)

		resp, ok := login(h, "Hero", "secret")
		assert.True(t, ok)
		assert.Equal(t, protocol.MsgGSSuccess, resp.Type)
		assert.Equal(t, 1, accounts.Count())

		acc, err := accounts.GetAccount(context.Background(), "hero")
		require.NoError(t, err)
		assert.Equal(t, db.HashPassword("secret"), acc.PasswordHash)
		assert.Equal(t, "proxy", acc.LastService)

		resp, ok = login(h, "hero", "wrong")
		assert.False(t, ok)
		assert.Equal(t, protocol.MsgGSFail, resp.Type)
		assert.Equal(t, value.List{value.Bin{102}}, resp.Payload)
	})

	t.Run("unknown account without auto create", func(t *testing.T) {
		cfg := testConfig()
		cfg.AutoCreateAccounts = false
		accounts := testutil.NewMockAccounts()
		h := NewHandler(cfg, accounts)

		resp, ok := login(h, "ghost", "pw")
		assert.False(t, ok)
		assert.Equal(t, protocol.MsgGSFail, resp.Type)
		assert.Equal(t, 0, accounts.Count())
	})

	t.Run("banned", func(t *testing.T) {
		accounts := testutil.NewMockAccounts()
		require.NoError(t, accounts.CreateAccount(context.Background(), "bad", db.HashPassword("pw"), "10.0.0.1"))
		accounts.BanAccount("bad")
		h := NewHandler(testConfig(), accounts)

		resp, ok := login(h, "bad", "pw")
		assert.False(t, ok)
		assert.Equal(t, protocol.MsgGSFail, resp.Type)
	})

	t.Run("database error", func(t *testing.T) {
		accounts := testutil.NewMockAccounts()
		accounts.Err = testutil.ErrSimulated
		h := NewHandler(testConfig(), accounts)

		resp, ok := login(h, "hero", "pw")
		assert.False(t, ok)
		assert.Equal(t, protocol.MsgGSFail, resp.Type)
	})

	t.Run("empty name", func(t *testing.T) {
		h := NewHandler(testConfig(), testutil.NewMockAccounts())
		resp, ok := login(h, "  ", "pw")
		assert.False(t, ok)
		assert.Equal(t, protocol.MsgGSFail, resp.Type)
	})
}

func TestHandler_KeyExchange(t *testing.T) {
	h := NewHandler(testConfig(), nil)
	c := newTestClient(KindProxy)
	kc := testutil.NewKeyClient(t, crypto.PaddingNone)

	req1 := testutil.Request(protocol.MsgKeyExchange, kc.PublicKeyRequest())
	resp1, ok := handle(t, h, c, req1)
	require.NotNil(t, resp1)
	assert.True(t, ok)
	assert.Equal(t, protocol.MsgKeyExchange, resp1.Type)
	assert.Equal(t, req1.Sender, resp1.Receiver)

	req2Payload, err := kc.SessionKeyRequest(resp1.Payload)
	require.NoError(t, err)
	resp2, _ := handle(t, h, c, testutil.Request(protocol.MsgKeyExchange, req2Payload))

	serverKey, err := kc.AcceptServerKey(resp2.Payload)
	require.NoError(t, err)
	assert.Equal(t, c.Keys().ServerSessionKey(), serverKey)
	assert.Equal(t, handshake.StateKeysEstablished, c.Keys().State())

	// disconnect is not supported and closes the connection
	_, ok, err = h.HandleMessage(context.Background(), c,
		testutil.Request(protocol.MsgKeyExchange, value.List{value.Str("3"), value.List{}}))
	assert.ErrorIs(t, err, handshake.ErrNotSupported)
	assert.False(t, ok)
}
