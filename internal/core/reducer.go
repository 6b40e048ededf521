package core

// Reduce applies one command to a room and returns the next state together
// with the notifications to fan out. It has no side effects, so the same
// command sequence always yields the same states.
func Reduce(s RoomState, cmd Command) (RoomState, []Notification) {
	switch cmd.Kind {
	case CommandJoinRoom:
		return reduceJoin(s, cmd)
	case CommandLeaveRoom:
		return reduceLeave(s, cmd)
	case CommandDisconnect:
		return reduceDisconnect(s, cmd)
	case CommandChangeRole:
		return reduceChangeRole(s, cmd)
	default:
		return s, []Notification{toConnection(cmd.ConnectionID, errorEvent(s.RoomID, ErrBadRequest))}
	}
}

func reduceJoin(s RoomState, cmd Command) (RoomState, []Notification) {
	next, res, err := s.Join(cmd.ChatID, cmd.Username, cmd.ConnectionID, cmd.ClaimsAdmin)
	if err != nil {
		return s, []Notification{toConnection(cmd.ConnectionID, errorEvent(s.RoomID, err))}
	}

	clients := View(next)
	var notes []Notification
	if res.Evicted != nil {
		notes = append(notes, Notification{
			Audience:     AudienceOthers,
			ConnectionID: cmd.ConnectionID,
			Event: &Event{
				Kind:         EventUserLeft,
				Room:         next.RoomID,
				User:         res.Evicted.Username,
				ConnectionID: res.Evicted.ConnectionID,
			},
		})
	}
	return next, append(notes,
		toConnection(cmd.ConnectionID, &Event{
			Kind:        EventJoined,
			Room:        next.RoomID,
			User:        res.Session.Username,
			AdminChatID: res.AdminChatID,
			Clients:     clients,
		}),
		Notification{
			Audience:     AudienceOthers,
			ConnectionID: cmd.ConnectionID,
			Event: &Event{
				Kind:    EventUpdateClients,
				Room:    next.RoomID,
				User:    res.Session.Username,
				Clients: clients,
			},
		},
	)
}

func reduceLeave(s RoomState, cmd Command) (RoomState, []Notification) {
	chatID := cmd.ChatID
	if chatID == "" {
		owner, ok := s.SessionByConnection(cmd.ConnectionID)
		if !ok {
			return s, nil
		}
		chatID = owner.ChatID
	}
	sess, ok := s.Session(chatID)
	if !ok {
		return s, nil
	}
	if cmd.ConnectionID != "" && sess.ConnectionID != cmd.ConnectionID {
		// Leave from a connection that was superseded by a reconnect.
		return s, nil
	}
	next, removed, _ := s.Leave(chatID)
	return next, departed(next, EventUserLeft, removed)
}

func reduceDisconnect(s RoomState, cmd Command) (RoomState, []Notification) {
	next, removed, ok := s.Disconnect(cmd.ConnectionID)
	if !ok {
		return s, nil
	}
	return next, departed(next, EventUserDisconnected, removed)
}

func reduceChangeRole(s RoomState, cmd Command) (RoomState, []Notification) {
	requester := cmd.RequesterChatID
	if cmd.ConnectionID != "" {
		owner, ok := s.SessionByConnection(cmd.ConnectionID)
		if !ok || (requester != "" && requester != owner.ChatID) {
			return s, []Notification{toConnection(cmd.ConnectionID, errorEvent(s.RoomID, ErrUnauthorized))}
		}
		requester = owner.ChatID
	}

	next, _, err := s.ChangeRole(requester, cmd.TargetChatID, cmd.Role)
	if err != nil {
		return s, []Notification{toConnection(cmd.ConnectionID, errorEvent(s.RoomID, err))}
	}
	return next, []Notification{{
		Audience: AudienceRoom,
		Event: &Event{
			Kind:    EventRoleChanged,
			Room:    next.RoomID,
			Clients: View(next),
		},
	}}
}

func departed(next RoomState, kind EventKind, removed Session) []Notification {
	clients := View(next)
	return []Notification{
		{
			Audience: AudienceRoom,
			Event: &Event{
				Kind:         kind,
				Room:         next.RoomID,
				User:         removed.Username,
				ConnectionID: removed.ConnectionID,
			},
		},
		{
			Audience: AudienceRoom,
			Event: &Event{
				Kind:    EventUpdateClients,
				Room:    next.RoomID,
				Clients: clients,
			},
		},
	}
}

func toConnection(connectionID string, ev *Event) Notification {
	return Notification{Audience: AudienceConnection, ConnectionID: connectionID, Event: ev}
}
