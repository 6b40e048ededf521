package core

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/atomic"
)

type roomMsg struct {
	cmd      *Command
	client   *Client
	snapshot chan RoomView
	// owned, when set, receives whether the issuing connection still
	// owns a session after cmd is applied.
	owned chan bool
}

// Room serializes every command for one room through a single goroutine.
type Room struct {
	ID string

	hub     *Hub
	inbox   chan roomMsg
	state   RoomState
	clients map[string]*Client

	// pending counts messages handed to inbox but not yet processed.
	pending atomic.Int64
	size    atomic.Int64

	log zerolog.Logger
}

func newRoom(h *Hub, id string) *Room {
	return &Room{
		ID:      id,
		hub:     h,
		inbox:   make(chan roomMsg, 64),
		state:   NewRoomState(id),
		clients: make(map[string]*Client),
		log:     h.log.With().Str("room", id).Logger(),
	}
}

func (r *Room) run(ctx context.Context) {
	defer r.hub.wg.Done()

	var idle *time.Timer
	var idleC <-chan time.Time
	stopIdle := func() {
		if idle != nil {
			idle.Stop()
			idle, idleC = nil, nil
		}
	}
	defer stopIdle()

	r.log.Debug().Msg("room started")
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-r.inbox:
			r.handle(msg)
			r.pending.Dec()
			if !r.state.Empty() {
				stopIdle()
			} else if idle == nil {
				idle = time.NewTimer(r.hub.idleTTL)
				idleC = idle.C
			}
		case <-idleC:
			idle, idleC = nil, nil
			if r.hub.release(r) {
				r.log.Debug().Msg("room released")
				return
			}
		}
	}
}

func (r *Room) handle(msg roomMsg) {
	if msg.snapshot != nil {
		msg.snapshot <- viewOf(r.state)
		return
	}
	if msg.cmd == nil {
		return
	}

	cmd := *msg.cmd
	if cmd.Kind == CommandJoinRoom && msg.client != nil {
		r.clients[cmd.ConnectionID] = msg.client
	}

	next, notes := Reduce(r.state, cmd)
	r.state = next
	r.reconcile()
	r.size.Store(int64(r.state.Len()))

	r.log.Debug().
		Str("command", cmd.Kind.String()).
		Str("connection_id", cmd.ConnectionID).
		Str("chat_id", cmd.ChatID).
		Str("admin_chat_id", r.state.AdminChatID).
		Int("clients", r.state.Len()).
		Msg("command applied")

	r.deliver(notes, msg.client)

	if msg.owned != nil {
		_, ok := r.state.SessionByConnection(cmd.ConnectionID)
		msg.owned <- ok
	}
}

// reconcile drops fan-out targets whose connection no longer owns a session:
// departed, superseded by a reconnect, or rejected on join.
func (r *Room) reconcile() {
	owned := make(map[string]struct{}, r.state.Len())
	for _, sess := range r.state.sessions {
		owned[sess.ConnectionID] = struct{}{}
	}
	for id := range r.clients {
		if _, ok := owned[id]; !ok {
			delete(r.clients, id)
		}
	}
}

func (r *Room) deliver(notes []Notification, requester *Client) {
	for _, n := range notes {
		switch n.Audience {
		case AudienceConnection:
			if requester != nil && requester.ID == n.ConnectionID {
				r.send(requester, n.Event)
			} else if c, ok := r.clients[n.ConnectionID]; ok {
				r.send(c, n.Event)
			}
		case AudienceOthers:
			for id, c := range r.clients {
				if id != n.ConnectionID {
					r.send(c, n.Event)
				}
			}
		case AudienceRoom:
			for _, c := range r.clients {
				r.send(c, n.Event)
			}
		}
	}
}

func (r *Room) send(c *Client, ev *Event) {
	select {
	case c.Events <- ev:
	default:
		// Drop if slow consumer.
		r.log.Debug().Str("connection_id", c.ID).Str("event", ev.Kind.String()).Msg("event dropped")
	}
}
