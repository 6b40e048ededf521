package core

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const defaultRoomIdleTTL = time.Minute

// Hub routes client commands to per-room actors and owns the room registry.
type Hub struct {
	mu    sync.Mutex
	rooms map[string]*Room

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	idleTTL time.Duration
	log     zerolog.Logger
}

// Option configures a Hub.
type Option func(*Hub)

// WithLogger sets the hub logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(h *Hub) {
		if logger != nil {
			h.log = logger.With().Str("component", "hub").Logger()
		}
	}
}

// WithRoomIdleTTL sets how long an empty room keeps its admin authority
// before it is released. Zero releases rooms as soon as they are empty.
func WithRoomIdleTTL(ttl time.Duration) Option {
	return func(h *Hub) {
		if ttl >= 0 {
			h.idleTTL = ttl
		}
	}
}

// NewHub creates a new hub instance.
func NewHub(opts ...Option) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		rooms:   make(map[string]*Room),
		ctx:     ctx,
		cancel:  cancel,
		idleTTL: defaultRoomIdleTTL,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run blocks until ctx is cancelled, then stops every pump and room.
func (h *Hub) Run(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-h.ctx.Done():
	}
	h.mu.Lock()
	h.cancel()
	h.mu.Unlock()
	h.wg.Wait()
	h.log.Debug().Msg("hub stopped")
}

// RegisterClient starts processing commands sent on c.Commands in order.
func (h *Hub) RegisterClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ctx.Err() != nil {
		close(c.done)
		return
	}
	h.wg.Add(1)
	go h.pump(c)
}

// UnregisterClient reports an abrupt disconnect for c after its already
// queued commands. Calling it more than once is a no-op.
func (h *Hub) UnregisterClient(c *Client) {
	c.unregister.Do(func() {
		select {
		case c.Commands <- &Command{Kind: CommandDisconnect}:
		case <-c.done:
		case <-h.ctx.Done():
		}
	})
}

// Snapshot returns the projected roster of an active room.
func (h *Hub) Snapshot(ctx context.Context, roomID string) (RoomView, error) {
	reply := make(chan RoomView, 1)
	if !h.dispatch(roomID, roomMsg{snapshot: reply}, false) {
		return RoomView{}, ErrRoomNotFound
	}
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return RoomView{}, ctx.Err()
	case <-h.ctx.Done():
		return RoomView{}, h.ctx.Err()
	}
}

// Rooms lists active rooms ordered by id.
func (h *Hub) Rooms() []RoomInfo {
	h.mu.Lock()
	out := make([]RoomInfo, 0, len(h.rooms))
	for id, r := range h.rooms {
		out = append(out, RoomInfo{RoomID: id, ClientCount: int(r.size.Load())})
	}
	h.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].RoomID < out[j].RoomID })
	return out
}

func (h *Hub) pump(c *Client) {
	defer h.wg.Done()
	defer close(c.done)

	for {
		select {
		case <-h.ctx.Done():
			return
		case cmd := <-c.Commands:
			if cmd == nil {
				continue
			}
			if stop := h.handleCommand(c, cmd); stop {
				return
			}
		}
	}
}

func (h *Hub) handleCommand(c *Client, cmd *Command) (stop bool) {
	cmd.ConnectionID = c.ID

	switch cmd.Kind {
	case CommandJoinRoom:
		if cmd.Room == "" {
			h.reject(c, cmd.Room, ErrBadRequest)
			return false
		}
		if strings.TrimSpace(cmd.ChatID) == "" || strings.TrimSpace(cmd.Username) == "" {
			h.reject(c, cmd.Room, ErrMissingIdentity)
			return false
		}
		if c.room != "" && c.room != cmd.Room {
			h.reject(c, cmd.Room, ErrAlreadyJoined)
			return false
		}
		c.room = cmd.Room
		if owned, _ := h.apply(c, cmd, true); !owned {
			c.room = ""
		}
	case CommandLeaveRoom, CommandChangeRole:
		if cmd.Room == "" {
			cmd.Room = c.room
		}
		if c.room == "" || cmd.Room != c.room {
			h.reject(c, cmd.Room, ErrNotInRoom)
			return false
		}
		if cmd.Kind == CommandChangeRole {
			if !h.dispatch(cmd.Room, roomMsg{cmd: cmd, client: c}, false) {
				h.reject(c, cmd.Room, ErrRoomNotFound)
			}
			return false
		}
		// A leave that removed nothing keeps the connection bound.
		owned, delivered := h.apply(c, cmd, false)
		if !delivered {
			h.reject(c, cmd.Room, ErrRoomNotFound)
		}
		if !owned {
			c.room = ""
		}
	case CommandDisconnect:
		if c.room != "" {
			cmd.Room = c.room
			h.dispatch(cmd.Room, roomMsg{cmd: cmd, client: c}, false)
			c.room = ""
		}
		return true
	default:
		h.reject(c, cmd.Room, ErrBadRequest)
	}
	return false
}

func (h *Hub) reject(c *Client, room string, err error) {
	select {
	case c.Events <- errorEvent(room, err):
	default:
	}
}

// dispatch hands msg to the room's inbox, creating the room when asked.
func (h *Hub) dispatch(roomID string, msg roomMsg, create bool) bool {
	h.mu.Lock()
	r, ok := h.rooms[roomID]
	if !ok {
		if !create || h.ctx.Err() != nil {
			h.mu.Unlock()
			return false
		}
		r = newRoom(h, roomID)
		h.rooms[roomID] = r
		h.wg.Add(1)
		go r.run(h.ctx)
		h.log.Info().Str("room", roomID).Msg("room created")
	}
	r.pending.Inc()
	h.mu.Unlock()

	select {
	case r.inbox <- msg:
		return true
	case <-h.ctx.Done():
		return false
	}
}

// apply dispatches cmd to its room and waits for the room to report whether
// c still owns a session there.
func (h *Hub) apply(c *Client, cmd *Command, create bool) (owned, delivered bool) {
	reply := make(chan bool, 1)
	if !h.dispatch(cmd.Room, roomMsg{cmd: cmd, client: c, owned: reply}, create) {
		return false, false
	}
	select {
	case owned = <-reply:
		return owned, true
	case <-h.ctx.Done():
		return false, true
	}
}

// release removes an idle room unless a message is still on its way to it.
func (h *Hub) release(r *Room) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if r.pending.Load() > 0 || r.size.Load() > 0 {
		return false
	}
	if cur, ok := h.rooms[r.ID]; ok && cur == r {
		delete(h.rooms, r.ID)
	}
	h.log.Info().Str("room", r.ID).Msg("room closed")
	return true
}
