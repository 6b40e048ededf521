package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	ProtocolVersion = 1

	InboundTypeHello      = "hello"
	InboundTypeJoin       = "join"
	InboundTypeLeave      = "leave"
	InboundTypeChangeRole = "changeRole"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventJoined        = "joined"
	EventUpdateClients = "updateClients"
	EventRoleChanged   = "roleChanged"
	EventLeft          = "left"
	EventDisconnected  = "disconnected"
)

// HelloData is sent by the client to announce its protocol version.
type HelloData struct {
	Protocol int `json:"protocol,omitempty"`
}

// JoinData requests to join a room under a tab identity.
type JoinData struct {
	RoomID      string `json:"roomId"`
	ChatID      string `json:"chatId,omitempty"`
	Username    string `json:"username,omitempty"`
	ClaimsAdmin bool   `json:"claimsAdmin,omitempty"`
	ClaimToken  string `json:"claimToken,omitempty"`
}

// LeaveData requests to leave a room.
type LeaveData struct {
	RoomID string `json:"roomId"`
	ChatID string `json:"chatId,omitempty"`
}

// ChangeRoleData asks the room admin authority to change a role.
type ChangeRoleData struct {
	RoomID          string `json:"roomId"`
	RequesterChatID string `json:"requesterChatId,omitempty"`
	TargetChatID    string `json:"targetChatId"`
	NewRole         string `json:"newRole"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// ClientInfo is one roster entry.
type ClientInfo struct {
	ChatID       string `json:"chatId"`
	Username     string `json:"username"`
	Role         string `json:"role"`
	IsAdmin      bool   `json:"isAdmin"`
	ConnectionID string `json:"connectionId"`
}

// EventJoinedData is sent to a session after it joined.
type EventJoinedData struct {
	RoomID    string       `json:"roomId"`
	Username  string       `json:"username"`
	AdminUser string       `json:"adminUser,omitempty"`
	Clients   []ClientInfo `json:"clients"`
}

// EventClientsData carries a roster resync or the roster after a role change.
type EventClientsData struct {
	RoomID   string       `json:"roomId"`
	Username string       `json:"username,omitempty"`
	Clients  []ClientInfo `json:"clients"`
}

// EventLeftData notifies that a user left a room.
type EventLeftData struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
}

// EventDisconnectedData notifies that a user's connection dropped.
type EventDisconnectedData struct {
	RoomID       string `json:"roomId"`
	Username     string `json:"username"`
	ConnectionID string `json:"connectionId"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
