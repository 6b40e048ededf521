package core

// View orders the roster for display: admin first, everyone else in join
// order. Authority must never be inferred from the position.
func View(s RoomState) []Session {
	out := make([]Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		if sess.IsAdmin {
			out = append(out, sess)
		}
	}
	for _, sess := range s.sessions {
		if !sess.IsAdmin {
			out = append(out, sess)
		}
	}
	return out
}

// RoomView is a read-only snapshot of a room for APIs.
type RoomView struct {
	RoomID      string
	AdminChatID string
	Clients     []Session
}

// RoomInfo summarizes an active room.
type RoomInfo struct {
	RoomID      string
	ClientCount int
}

func viewOf(s RoomState) RoomView {
	return RoomView{
		RoomID:      s.RoomID,
		AdminChatID: s.AdminChatID,
		Clients:     View(s),
	}
}
