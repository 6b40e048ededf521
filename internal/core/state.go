package core

import "strings"

// Session is one active connection's membership in a room.
type Session struct {
	ChatID       string
	ConnectionID string
	Username     string
	Role         Role
	IsAdmin      bool
}

// RoomState is the roster and admin authority of a single room.
// Methods never modify the receiver; they return the next state.
type RoomState struct {
	RoomID      string
	AdminChatID string
	sessions    []Session
}

// JoinResult describes the outcome of a join.
type JoinResult struct {
	Session Session
	// Superseded is the connection id replaced by a reconnect, if any.
	Superseded string
	// Evicted is the identity this connection held before rejoining under
	// another chat id, if any.
	Evicted     *Session
	AdminChatID string
}

// NewRoomState returns an empty roster for roomID.
func NewRoomState(roomID string) RoomState {
	return RoomState{RoomID: roomID}
}

// Len returns the number of active sessions.
func (s RoomState) Len() int {
	return len(s.sessions)
}

// Empty returns true if no sessions are active.
func (s RoomState) Empty() bool {
	return len(s.sessions) == 0
}

// Sessions returns the roster in insertion order.
func (s RoomState) Sessions() []Session {
	out := make([]Session, len(s.sessions))
	copy(out, s.sessions)
	return out
}

// Session looks up an active session by chat id.
func (s RoomState) Session(chatID string) (Session, bool) {
	if i := s.indexByChat(chatID); i >= 0 {
		return s.sessions[i], true
	}
	return Session{}, false
}

// SessionByConnection looks up an active session by connection id.
func (s RoomState) SessionByConnection(connectionID string) (Session, bool) {
	if i := s.indexByConnection(connectionID); i >= 0 {
		return s.sessions[i], true
	}
	return Session{}, false
}

// Join adds a session or replaces the one already held by chatID.
// The first join presenting an admin claim fixes the room's admin.
func (s RoomState) Join(chatID, username, connectionID string, claimsAdmin bool) (RoomState, JoinResult, error) {
	chatID = strings.TrimSpace(chatID)
	username = strings.TrimSpace(username)
	if chatID == "" || username == "" {
		return s, JoinResult{}, ErrMissingIdentity
	}

	next := s.clone()
	var evicted *Session
	if connectionID != "" {
		// A connection holds one identity per room.
		if j := next.indexByConnection(connectionID); j >= 0 && next.sessions[j].ChatID != chatID {
			prev := next.sessions[j]
			evicted = &prev
			next.sessions = append(next.sessions[:j], next.sessions[j+1:]...)
		}
	}
	if next.AdminChatID == "" && claimsAdmin {
		next.AdminChatID = chatID
	}

	sess := Session{
		ChatID:       chatID,
		ConnectionID: connectionID,
		Username:     username,
		Role:         RoleReader,
	}

	var superseded string
	i := next.indexByChat(chatID)
	if i >= 0 {
		prev := next.sessions[i]
		if prev.Role.Assignable() {
			sess.Role = prev.Role
		}
		if prev.ConnectionID != connectionID {
			superseded = prev.ConnectionID
		}
	}
	if chatID == next.AdminChatID {
		sess.Role = RoleAdmin
		sess.IsAdmin = true
	}

	if i >= 0 {
		next.sessions[i] = sess
	} else {
		next.sessions = append(next.sessions, sess)
	}

	return next, JoinResult{
		Session:     sess,
		Superseded:  superseded,
		Evicted:     evicted,
		AdminChatID: next.AdminChatID,
	}, nil
}

// Leave removes the session held by chatID. Admin authority is kept.
func (s RoomState) Leave(chatID string) (RoomState, Session, bool) {
	i := s.indexByChat(chatID)
	if i < 0 {
		return s, Session{}, false
	}
	return s.removeAt(i)
}

// Disconnect removes the session bound to connectionID. A stale id that no
// longer owns a session is ignored.
func (s RoomState) Disconnect(connectionID string) (RoomState, Session, bool) {
	if connectionID == "" {
		return s, Session{}, false
	}
	i := s.indexByConnection(connectionID)
	if i < 0 {
		return s, Session{}, false
	}
	return s.removeAt(i)
}

// ChangeRole sets the role of targetChatID on behalf of requesterChatID.
func (s RoomState) ChangeRole(requesterChatID, targetChatID string, role Role) (RoomState, Session, error) {
	if s.AdminChatID == "" || requesterChatID != s.AdminChatID {
		return s, Session{}, ErrUnauthorized
	}
	if !role.Assignable() {
		return s, Session{}, ErrInvalidRole
	}
	i := s.indexByChat(targetChatID)
	if i < 0 {
		return s, Session{}, ErrNotFound
	}
	if s.sessions[i].IsAdmin {
		// The admin's own role is fixed by the claim.
		return s, Session{}, ErrInvalidRole
	}

	next := s.clone()
	next.sessions[i].Role = role
	return next, next.sessions[i], nil
}

func (s RoomState) removeAt(i int) (RoomState, Session, bool) {
	removed := s.sessions[i]
	next := RoomState{
		RoomID:      s.RoomID,
		AdminChatID: s.AdminChatID,
		sessions:    make([]Session, 0, len(s.sessions)-1),
	}
	next.sessions = append(next.sessions, s.sessions[:i]...)
	next.sessions = append(next.sessions, s.sessions[i+1:]...)
	return next, removed, true
}

func (s RoomState) clone() RoomState {
	next := s
	next.sessions = make([]Session, len(s.sessions), len(s.sessions)+1)
	copy(next.sessions, s.sessions)
	return next
}

func (s RoomState) indexByChat(chatID string) int {
	for i := range s.sessions {
		if s.sessions[i].ChatID == chatID {
			return i
		}
	}
	return -1
}

func (s RoomState) indexByConnection(connectionID string) int {
	for i := range s.sessions {
		if s.sessions[i].ConnectionID == connectionID {
			return i
		}
	}
	return -1
}
