package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownMessageType is returned for a type byte outside the known set.
	ErrUnknownMessageType = errors.New("unknown message type")

	// ErrUnknownRole is returned for a sender or receiver nibble outside the known set.
	ErrUnknownRole = errors.New("unknown sender/receiver role")

	// ErrUnknownProperty is returned for the reserved property value 3.
	ErrUnknownProperty = errors.New("unknown message property")
)

// MessageType is the one-byte message type carried in byte 4 of the header.
type MessageType uint8

const (
	MsgNewUserRequest         MessageType = 1
	MsgConnectionRequest      MessageType = 2
	MsgPlayerNew              MessageType = 3
	MsgDisconnection          MessageType = 4
	MsgPlayerRemoved          MessageType = 5
	MsgEventUDPConnect        MessageType = 6
	MsgNews                   MessageType = 7
	MsgSearchPlayer           MessageType = 8
	MsgRemoveAccount          MessageType = 9
	MsgServersList            MessageType = 11
	MsgSessionList            MessageType = 13
	MsgPlayerList             MessageType = 15
	MsgGetGroupInfo           MessageType = 16
	MsgGroupInfo              MessageType = 17
	MsgGetPlayerInfo          MessageType = 18
	MsgPlayerInfo             MessageType = 19
	MsgChatAll                MessageType = 20
	MsgChatList               MessageType = 21
	MsgChatSession            MessageType = 22
	MsgChat                   MessageType = 24
	MsgCreateSession          MessageType = 26
	MsgSessionNew             MessageType = 27
	MsgJoinSession            MessageType = 28
	MsgJoinNew                MessageType = 31
	MsgLeaveSession           MessageType = 32
	MsgJoinLeave              MessageType = 33
	MsgSessionRemove          MessageType = 34
	MsgGSSuccess              MessageType = 38
	MsgGSFail                 MessageType = 39
	MsgBeginGame              MessageType = 40
	MsgUpdatePlayerInfo       MessageType = 45
	MsgMasterChanged          MessageType = 48
	MsgUpdateSessionState     MessageType = 51
	MsgUrgentMessage          MessageType = 52
	MsgNewWaitModule          MessageType = 54
	MsgKillModule             MessageType = 55
	MsgStillAlive             MessageType = 58
	MsgPing                   MessageType = 59
	MsgPlayerKick             MessageType = 60
	MsgPlayerMute             MessageType = 61
	MsgAllowGame              MessageType = 62
	MsgForbidGame             MessageType = 63
	MsgGameList               MessageType = 64
	MsgUpdateAdvertismements  MessageType = 65
	MsgUpdateNews             MessageType = 66
	MsgVersionList            MessageType = 67
	MsgUpdateVersions         MessageType = 68
	MsgUpdateDistantRouters   MessageType = 70
	MsgAdminLogin             MessageType = 71
	MsgStatPlayer             MessageType = 72
	MsgStatGame               MessageType = 73
	MsgUpdateFriend           MessageType = 74
	MsgAddFriend              MessageType = 75
	MsgDelFriend              MessageType = 76
	MsgLoginWaitModule        MessageType = 77
	MsgLoginFriends           MessageType = 78
	MsgAddIgnoreFriend        MessageType = 79
	MsgDelIgnoreFriend        MessageType = 80
	MsgStatusChange           MessageType = 81
	MsgJoinArena              MessageType = 82
	MsgLeaveArena             MessageType = 83
	MsgIgnoreList             MessageType = 84
	MsgIgnoreFriend           MessageType = 85
	MsgGetArena               MessageType = 86
	MsgGetSession             MessageType = 87
	MsgPagePlayer             MessageType = 88
	MsgFriendList             MessageType = 89
	MsgPeerMsg                MessageType = 90
	MsgPeerPlayer             MessageType = 91
	MsgDisconnectFriends      MessageType = 92
	MsgJoinWaitModule         MessageType = 93
	MsgLoginSession           MessageType = 94
	MsgDisconnectSession      MessageType = 95
	MsgPlayerDisconnect       MessageType = 96
	MsgAdvertisement          MessageType = 97
	MsgModifyUser             MessageType = 98
	MsgStartGame              MessageType = 99
	MsgChangeVersion          MessageType = 100
	MsgPager                  MessageType = 101
	MsgLogin                  MessageType = 102
	MsgPhoto                  MessageType = 103
	MsgLoginArena             MessageType = 104
	MsgSQLCreate              MessageType = 106
	MsgSQLSelect              MessageType = 107
	MsgSQLDelete              MessageType = 108
	MsgSQLSet                 MessageType = 109
	MsgSQLStat                MessageType = 110
	MsgSQLQuery               MessageType = 111
	MsgRouteurList            MessageType = 127
	MsgDistanceVector         MessageType = 131
	MsgWrappedMessage         MessageType = 132
	MsgChangeFriend           MessageType = 133
	MsgNewRelFriend           MessageType = 134
	MsgDelRelFriend           MessageType = 135
	MsgNewIgnoreFriend        MessageType = 136
	MsgDeleteIgnoreFriend     MessageType = 137
	MsgArenaConnection        MessageType = 138
	MsgArenaDisconnection     MessageType = 139
	MsgArenaWaitModule        MessageType = 140
	MsgArenaNew               MessageType = 141
	MsgNewBasicGroup          MessageType = 143
	MsgArenaRemoved           MessageType = 144
	MsgDeleteBasicGroup       MessageType = 145
	MsgSessionsBegin          MessageType = 146
	MsgGroupData              MessageType = 148
	MsgArenaMessage           MessageType = 151
	MsgArenaListRequest       MessageType = 157
	MsgRouterPlayerNew        MessageType = 158
	MsgBaseGroupRequest       MessageType = 159
	MsgUpdatePlayerPing       MessageType = 166
	MsgUpdateGroupSize        MessageType = 169
	MsgSleep                  MessageType = 179
	MsgWakeUp                 MessageType = 180
	MsgSystemPage             MessageType = 181
	MsgSessionOpen            MessageType = 189
	MsgSessionClose           MessageType = 190
	MsgLoginClanManager       MessageType = 192
	MsgDisconnectClanManager  MessageType = 193
	MsgClanManagerPage        MessageType = 194
	MsgUpdateClanPlayer       MessageType = 195
	MsgPlayerClans            MessageType = 196
	MsgGetPersistantGroupInfo MessageType = 199
	MsgUpdateGroupPing        MessageType = 202
	MsgDeferredGameStarted    MessageType = 203
	MsgProxyHandler           MessageType = 204
	MsgBeginClientHostGame    MessageType = 205
	MsgLobbyMsg               MessageType = 209
	MsgLobbyServerLogin       MessageType = 210
	MsgSetGroupSZData         MessageType = 211
	MsgGroupSZData            MessageType = 212
	MsgKeyExchange            MessageType = 219
	MsgRequestPortID          MessageType = 221
)

var messageTypeNames = map[MessageType]string{
	MsgNewUserRequest:         "NEWUSERREQUEST",
	MsgConnectionRequest:      "CONNECTIONREQUEST",
	MsgPlayerNew:              "PLAYERNEW",
	MsgDisconnection:          "DISCONNECTION",
	MsgPlayerRemoved:          "PLAYERREMOVED",
	MsgEventUDPConnect:        "EVENT_UDPCONNECT",
	MsgNews:                   "NEWS",
	MsgSearchPlayer:           "SEARCHPLAYER",
	MsgRemoveAccount:          "REMOVEACCOUNT",
	MsgServersList:            "SERVERSLIST",
	MsgSessionList:            "SESSIONLIST",
	MsgPlayerList:             "PLAYERLIST",
	MsgGetGroupInfo:           "GETGROUPINFO",
	MsgGroupInfo:              "GROUPINFO",
	MsgGetPlayerInfo:          "GETPLAYERINFO",
	MsgPlayerInfo:             "PLAYERINFO",
	MsgChatAll:                "CHATALL",
	MsgChatList:               "CHATLIST",
	MsgChatSession:            "CHATSESSION",
	MsgChat:                   "CHAT",
	MsgCreateSession:          "CREATESESSION",
	MsgSessionNew:             "SESSIONNEW",
	MsgJoinSession:            "JOINSESSION",
	MsgJoinNew:                "JOINNEW",
	MsgLeaveSession:           "LEAVESESSION",
	MsgJoinLeave:              "JOINLEAVE",
	MsgSessionRemove:          "SESSIONREMOVE",
	MsgGSSuccess:              "GSSUCCESS",
	MsgGSFail:                 "GSFAIL",
	MsgBeginGame:              "BEGINGAME",
	MsgUpdatePlayerInfo:       "UPDATEPLAYERINFO",
	MsgMasterChanged:          "MASTERCHANGED",
	MsgUpdateSessionState:     "UPDATESESSIONSTATE",
	MsgUrgentMessage:          "URGENTMESSAGE",
	MsgNewWaitModule:          "NEWWAITMODULE",
	MsgKillModule:             "KILLMODULE",
	MsgStillAlive:             "STILLALIVE",
	MsgPing:                   "PING",
	MsgPlayerKick:             "PLAYERKICK",
	MsgPlayerMute:             "PLAYERMUTE",
	MsgAllowGame:              "ALLOWGAME",
	MsgForbidGame:             "FORBIDGAME",
	MsgGameList:               "GAMELIST",
	MsgUpdateAdvertismements:  "UPDATEADVERTISMEMENTS",
	MsgUpdateNews:             "UPDATENEWS",
	MsgVersionList:            "VERSIONLIST",
	MsgUpdateVersions:         "UPDATEVERSIONS",
	MsgUpdateDistantRouters:   "UPDATEDISTANTROUTERS",
	MsgAdminLogin:             "ADMINLOGIN",
	MsgStatPlayer:             "STAT_PLAYER",
	MsgStatGame:               "STAT_GAME",
	MsgUpdateFriend:           "UPDATEFRIEND",
	MsgAddFriend:              "ADDFRIEND",
	MsgDelFriend:              "DELFRIEND",
	MsgLoginWaitModule:        "LOGINWAITMODULE",
	MsgLoginFriends:           "LOGINFRIENDS",
	MsgAddIgnoreFriend:        "ADDIGNOREFRIEND",
	MsgDelIgnoreFriend:        "DELIGNOREFRIEND",
	MsgStatusChange:           "STATUSCHANGE",
	MsgJoinArena:              "JOINARENA",
	MsgLeaveArena:             "LEAVEARENA",
	MsgIgnoreList:             "IGNORELIST",
	MsgIgnoreFriend:           "IGNOREFRIEND",
	MsgGetArena:               "GETARENA",
	MsgGetSession:             "GETSESSION",
	MsgPagePlayer:             "PAGEPLAYER",
	MsgFriendList:             "FRIENDLIST",
	MsgPeerMsg:                "PEERMSG",
	MsgPeerPlayer:             "PEERPLAYER",
	MsgDisconnectFriends:      "DISCONNECTFRIENDS",
	MsgJoinWaitModule:         "JOINWAITMODULE",
	MsgLoginSession:           "LOGINSESSION",
	MsgDisconnectSession:      "DISCONNECTSESSION",
	MsgPlayerDisconnect:       "PLAYERDISCONNECT",
	MsgAdvertisement:          "ADVERTISEMENT",
	MsgModifyUser:             "MODIFYUSER",
	MsgStartGame:              "STARTGAME",
	MsgChangeVersion:          "CHANGEVERSION",
	MsgPager:                  "PAGER",
	MsgLogin:                  "LOGIN",
	MsgPhoto:                  "PHOTO",
	MsgLoginArena:             "LOGINARENA",
	MsgSQLCreate:              "SQLCREATE",
	MsgSQLSelect:              "SQLSELECT",
	MsgSQLDelete:              "SQLDELETE",
	MsgSQLSet:                 "SQLSET",
	MsgSQLStat:                "SQLSTAT",
	MsgSQLQuery:               "SQLQUERY",
	MsgRouteurList:            "ROUTEURLIST",
	MsgDistanceVector:         "DISTANCEVECTOR",
	MsgWrappedMessage:         "WRAPPEDMESSAGE",
	MsgChangeFriend:           "CHANGEFRIEND",
	MsgNewRelFriend:           "NEWRELFRIEND",
	MsgDelRelFriend:           "DELRELFRIEND",
	MsgNewIgnoreFriend:        "NEWIGNOREFRIEND",
	MsgDeleteIgnoreFriend:     "DELETEIGNOREFRIEND",
	MsgArenaConnection:        "ARENACONNECTION",
	MsgArenaDisconnection:     "ARENADISCONNECTION",
	MsgArenaWaitModule:        "ARENAWAITMODULE",
	MsgArenaNew:               "ARENANEW",
	MsgNewBasicGroup:          "NEWBASICGROUP",
	MsgArenaRemoved:           "ARENAREMOVED",
	MsgDeleteBasicGroup:       "DELETEBASICGROUP",
	MsgSessionsBegin:          "SESSIONSBEGIN",
	MsgGroupData:              "GROUPDATA",
	MsgArenaMessage:           "ARENA_MESSAGE",
	MsgArenaListRequest:       "ARENALISTREQUEST",
	MsgRouterPlayerNew:        "ROUTERPLAYERNEW",
	MsgBaseGroupRequest:       "BASEGROUPREQUEST",
	MsgUpdatePlayerPing:       "UPDATEPLAYERPING",
	MsgUpdateGroupSize:        "UPDATEGROUPSIZE",
	MsgSleep:                  "SLEEP",
	MsgWakeUp:                 "WAKEUP",
	MsgSystemPage:             "SYSTEMPAGE",
	MsgSessionOpen:            "SESSIONOPEN",
	MsgSessionClose:           "SESSIONCLOSE",
	MsgLoginClanManager:       "LOGINCLANMANAGER",
	MsgDisconnectClanManager:  "DISCONNECTCLANMANAGER",
	MsgClanManagerPage:        "CLANMANAGERPAGE",
	MsgUpdateClanPlayer:       "UPDATECLANPLAYER",
	MsgPlayerClans:            "PLAYERCLANS",
	MsgGetPersistantGroupInfo: "GETPERSISTANTGROUPINFO",
	MsgUpdateGroupPing:        "UPDATEGROUPPING",
	MsgDeferredGameStarted:    "DEFERREDGAMESTARTED",
	MsgProxyHandler:           "PROXY_HANDLER",
	MsgBeginClientHostGame:    "BEGINCLIENTHOSTGAME",
	MsgLobbyMsg:               "LOBBY_MSG",
	MsgLobbyServerLogin:       "LOBBYSERVERLOGIN",
	MsgSetGroupSZData:         "SETGROUPSZDATA",
	MsgGroupSZData:            "GROUPSZDATA",
	MsgKeyExchange:            "KEY_EXCHANGE",
	MsgRequestPortID:          "REQUESTPORTID",
}

func (t MessageType) String() string {
	if name, ok := messageTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("MessageType(%d)", uint8(t))
}

// Known reports whether t is one of the defined message types.
func (t MessageType) Known() bool {
	_, ok := messageTypeNames[t]
	return ok
}

// ParseMessageType validates a wire type byte.
func ParseMessageType(b byte) (MessageType, error) {
	t := MessageType(b)
	if !t.Known() {
		return 0, fmt.Errorf("%w: %d", ErrUnknownMessageType, b)
	}
	return t, nil
}

// Role identifies a message endpoint (header byte 5, one nibble each).
type Role uint8

const (
	RoleR       Role = 1
	RoleS       Role = 2
	RoleW       Role = 3
	RoleP       Role = 4
	RoleAP      Role = 5
	RoleB       Role = 6
	RoleLP      Role = 7
	RoleUnknown Role = 8
	RoleG       Role = 9
	RoleA       Role = 10
	RoleProxy   Role = 11
)

var roleNames = [...]string{
	RoleR:       "R",
	RoleS:       "S",
	RoleW:       "W",
	RoleP:       "P",
	RoleAP:      "AP",
	RoleB:       "B",
	RoleLP:      "LP",
	RoleUnknown: "UNK",
	RoleG:       "G",
	RoleA:       "A",
	RoleProxy:   "PROXY",
}

func (r Role) String() string {
	if r.Known() {
		return roleNames[r]
	}
	return fmt.Sprintf("Role(%d)", uint8(r))
}

// Known reports whether r is one of the defined roles.
func (r Role) Known() bool {
	return r >= RoleR && r <= RoleProxy
}

// ParseRole validates a header nibble.
func ParseRole(n byte) (Role, error) {
	r := Role(n)
	if !r.Known() {
		return 0, fmt.Errorf("%w: %d", ErrUnknownRole, n)
	}
	return r, nil
}

// Property selects how the payload of a message is protected.
type Property uint8

const (
	// PropertyGS payloads are tagged values behind the keyless obfuscation transform.
	PropertyGS Property = 0
	// PropertyGame payloads are opaque game bytes relayed as is.
	PropertyGame Property = 1
	// PropertyEncrypted payloads are tagged values under the connection session key.
	PropertyEncrypted Property = 2
)

func (p Property) String() string {
	switch p {
	case PropertyGS:
		return "GS"
	case PropertyGame:
		return "GAME"
	case PropertyEncrypted:
		return "GS_ENCRYPT"
	default:
		return fmt.Sprintf("Property(%d)", uint8(p))
	}
}
