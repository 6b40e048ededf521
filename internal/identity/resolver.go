// Package identity resolves who a connection is and whether it may claim
// admin for a room.
package identity

import (
	"errors"
	"strings"
	"sync"
	"unicode/utf8"
)

const (
	// KeyUsername and KeyChatID are the tab-scoped identity keys.
	KeyUsername = "username"
	KeyChatID   = "chatId"

	MaxUsernameLen = 64
	MaxChatIDLen   = 128
)

var (
	// ErrMissingIdentity means the tab has no username or chat id. The
	// session attempt must be abandoned without joining.
	ErrMissingIdentity = errors.New("missing identity")
	ErrUsernameTooLong = errors.New("username too long")
	ErrChatIDTooLong   = errors.New("chat id too long")
)

// Identity is the stable per-tab identity of a participant.
type Identity struct {
	Username string
	ChatID   string
}

// TabStore is a tab-scoped key/value source. url.Values satisfies it.
type TabStore interface {
	Get(key string) string
}

// Claim records that ChatID registered RoomID and is entitled to admin.
type Claim struct {
	RoomID string `json:"roomId"`
	ChatID string `json:"chatId"`
}

// ClaimStore is a durable store of admin claims keyed by room id.
type ClaimStore interface {
	AdminClaim(roomID string) (Claim, bool)
}

// Resolver derives identities and admin claims from its stores.
type Resolver struct {
	claims []ClaimStore
}

// NewResolver builds a resolver consulting the given claim stores in order.
func NewResolver(claims ...ClaimStore) *Resolver {
	out := make([]ClaimStore, 0, len(claims))
	for _, c := range claims {
		if c != nil {
			out = append(out, c)
		}
	}
	return &Resolver{claims: out}
}

// Identity reads the username and chat id from the tab store.
func (r *Resolver) Identity(tab TabStore) (Identity, error) {
	if tab == nil {
		return Identity{}, ErrMissingIdentity
	}
	id := Identity{
		Username: strings.TrimSpace(tab.Get(KeyUsername)),
		ChatID:   strings.TrimSpace(tab.Get(KeyChatID)),
	}
	if id.Username == "" || id.ChatID == "" {
		return Identity{}, ErrMissingIdentity
	}
	if utf8.RuneCountInString(id.Username) > MaxUsernameLen {
		return Identity{}, ErrUsernameTooLong
	}
	if len(id.ChatID) > MaxChatIDLen {
		return Identity{}, ErrChatIDTooLong
	}
	return id, nil
}

// ClaimsAdmin reports whether a stored claim for roomID names chatID.
func (r *Resolver) ClaimsAdmin(roomID, chatID string) bool {
	if roomID == "" || chatID == "" {
		return false
	}
	for _, store := range r.claims {
		if c, ok := store.AdminClaim(roomID); ok && c.RoomID == roomID && c.ChatID == chatID {
			return true
		}
	}
	return false
}

// With returns a resolver that also consults extra stores.
func (r *Resolver) With(extra ...ClaimStore) *Resolver {
	all := make([]ClaimStore, 0, len(r.claims)+len(extra))
	all = append(all, r.claims...)
	all = append(all, extra...)
	return NewResolver(all...)
}

// Claims is an in-memory ClaimStore safe for concurrent use.
type Claims struct {
	mu     sync.RWMutex
	byRoom map[string]string
}

// NewClaims builds a store from a room id to chat id map.
func NewClaims(byRoom map[string]string) *Claims {
	c := &Claims{byRoom: make(map[string]string, len(byRoom))}
	for room, chat := range byRoom {
		c.byRoom[room] = chat
	}
	return c
}

// AdminClaim implements ClaimStore.
func (c *Claims) AdminClaim(roomID string) (Claim, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	chat, ok := c.byRoom[roomID]
	if !ok {
		return Claim{}, false
	}
	return Claim{RoomID: roomID, ChatID: chat}, true
}

// Record stores a claim unless the room already has one. It returns the
// claim in effect.
func (c *Claims) Record(claim Claim) Claim {
	c.mu.Lock()
	defer c.mu.Unlock()
	if chat, ok := c.byRoom[claim.RoomID]; ok {
		return Claim{RoomID: claim.RoomID, ChatID: chat}
	}
	c.byRoom[claim.RoomID] = claim.ChatID
	return claim
}

// Map returns a copy of the stored claims.
func (c *Claims) Map() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(c.byRoom))
	for room, chat := range c.byRoom {
		out[room] = chat
	}
	return out
}
