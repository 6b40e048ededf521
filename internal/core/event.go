package core

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventJoined tells a joining session the roster and the admin identity.
	EventJoined EventKind = iota
	// EventUpdateClients resynchronizes the roster.
	EventUpdateClients
	// EventRoleChanged carries the roster after a role change.
	EventRoleChanged
	// EventUserLeft notifies that a user left the room.
	EventUserLeft
	// EventUserDisconnected notifies that a user's connection dropped.
	EventUserDisconnected
	// EventError notifies clients about a domain error.
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventJoined:
		return "joined"
	case EventUpdateClients:
		return "updateClients"
	case EventRoleChanged:
		return "roleChanged"
	case EventUserLeft:
		return "left"
	case EventUserDisconnected:
		return "disconnected"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind         EventKind
	Room         string
	User         string
	ConnectionID string
	AdminChatID  string
	Clients      []Session
	Error        *CoreError
}

// Audience selects which connections of a room receive a notification.
type Audience int

const (
	// AudienceRoom targets every connection in the room.
	AudienceRoom Audience = iota
	// AudienceOthers targets every connection except ConnectionID.
	AudienceOthers
	// AudienceConnection targets only ConnectionID.
	AudienceConnection
)

// Notification pairs an event with its recipients.
type Notification struct {
	Audience     Audience
	ConnectionID string
	Event        *Event
}

func errorEvent(room string, err error) *Event {
	return &Event{Kind: EventError, Room: room, Error: AsCoreError(err)}
}
