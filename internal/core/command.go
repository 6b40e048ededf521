package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandJoinRoom attaches the connection to a room under a chat identity.
	CommandJoinRoom CommandKind = iota
	// CommandLeaveRoom detaches the identity from the room.
	CommandLeaveRoom
	// CommandChangeRole asks the admin authority to change a session's role.
	CommandChangeRole
	// CommandDisconnect reports an abrupt transport-level drop.
	CommandDisconnect
)

func (k CommandKind) String() string {
	switch k {
	case CommandJoinRoom:
		return "join"
	case CommandLeaveRoom:
		return "leave"
	case CommandChangeRole:
		return "change_role"
	case CommandDisconnect:
		return "disconnect"
	default:
		return "unknown"
	}
}

// Command represents an action requested by a client.
// ConnectionID is always filled in by the hub, never by the client.
type Command struct {
	Kind         CommandKind
	Room         string
	ConnectionID string

	// join / leave
	ChatID      string
	Username    string
	ClaimsAdmin bool

	// changeRole
	RequesterChatID string
	TargetChatID    string
	Role            Role
}
