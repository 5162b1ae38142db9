package gateway

import (
	"fmt"

	"github.com/udisondev/gsgo/internal/protocol"
)

// Kind identifies one gateway TCP service.
type Kind int

const (
	KindRouter Kind = iota + 1
	KindRouterWM
	KindProxy
	KindProxyWM
	KindLobby
	KindLadderProxy
	KindLadderProxyWM
)

var kindNames = map[Kind]string{
	KindRouter:        "router",
	KindRouterWM:      "router_wm",
	KindProxy:         "proxy",
	KindProxyWM:       "proxy_wm",
	KindLobby:         "lobby",
	KindLadderProxy:   "ladder_proxy",
	KindLadderProxyWM: "ladder_proxy_wm",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Echo reports a service that returns every byte it reads without decoding.
func (k Kind) Echo() bool { return k == KindRouter }

// handled lists the message types each service answers; anything else ends
// the connection.
var handled = map[Kind]map[protocol.MessageType]bool{
	KindRouterWM: set(
		protocol.MsgPlayerInfo,
		protocol.MsgStillAlive,
		protocol.MsgLoginWaitModule,
		protocol.MsgProxyHandler,
		protocol.MsgKeyExchange,
	),
	KindProxy: set(
		protocol.MsgStillAlive,
		protocol.MsgJoinWaitModule,
		protocol.MsgLogin,
		protocol.MsgKeyExchange,
	),
	KindProxyWM: set(
		protocol.MsgStillAlive,
		protocol.MsgLoginWaitModule,
		protocol.MsgKeyExchange,
	),
	KindLobby: set(
		protocol.MsgStillAlive,
		protocol.MsgLoginWaitModule,
	),
}

func init() {
	handled[KindLadderProxy] = handled[KindProxy]
	handled[KindLadderProxyWM] = handled[KindProxyWM]
}

func set(types ...protocol.MessageType) map[protocol.MessageType]bool {
	m := make(map[protocol.MessageType]bool, len(types))
	for _, t := range types {
		m[t] = true
	}
	return m
}

// Handles reports whether the service answers t.
func (k Kind) Handles(t protocol.MessageType) bool {
	return handled[k][t]
}
