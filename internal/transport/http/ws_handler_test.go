package http

import (
	"context"
	"io"
	"net/url"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/vovakirdan/lumoshub-server/internal/config"
	"github.com/vovakirdan/lumoshub-server/internal/core"
	"github.com/vovakirdan/lumoshub-server/internal/proto"
)

func TestHealthEndpoint(t *testing.T) {
	env := startTestServer(t)

	resp, err := env.ts.Client().Get(env.ts.URL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "ok" {
		t.Fatalf("unexpected body: %q", body)
	}
}

func TestWebSocketRoleScenario(t *testing.T) {
	env := startTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	created, _ := env.createRoom(t, "R1", "A")

	connA := env.dial(t, ctx, "", nil)
	send(t, ctx, connA, proto.InboundTypeJoin, proto.JoinData{
		RoomID:      "R1",
		ChatID:      "A",
		Username:    "alice",
		ClaimsAdmin: true,
		ClaimToken:  created.ClaimToken,
	})
	var joinedA proto.EventJoinedData
	readEvent(t, ctx, connA, proto.EventJoined, &joinedA)
	if joinedA.AdminUser != "A" || joinedA.Username != "alice" {
		t.Fatalf("expected alice as admin, got %+v", joinedA)
	}
	if len(joinedA.Clients) != 1 || !joinedA.Clients[0].IsAdmin || joinedA.Clients[0].Role != string(core.RoleAdmin) {
		t.Fatalf("unexpected roster: %+v", joinedA.Clients)
	}

	// Identity from query parameters; claimsAdmin without proof is ignored.
	q := url.Values{"chatId": {"B"}, "username": {"bob"}}
	connB := env.dial(t, ctx, q.Encode(), nil)
	send(t, ctx, connB, proto.InboundTypeJoin, proto.JoinData{RoomID: "R1", ClaimsAdmin: true})

	var joinedB proto.EventJoinedData
	readEvent(t, ctx, connB, proto.EventJoined, &joinedB)
	if joinedB.AdminUser != "A" {
		t.Fatalf("admin must stay A, got %q", joinedB.AdminUser)
	}
	if len(joinedB.Clients) != 2 || joinedB.Clients[0].ChatID != "A" {
		t.Fatalf("expected admin first in roster, got %+v", joinedB.Clients)
	}
	if b, _ := clientByChat(joinedB.Clients, "B"); b.Role != string(core.RoleReader) || b.IsAdmin {
		t.Fatalf("expected B to join as reader, got %+v", b)
	}

	var update proto.EventClientsData
	readEvent(t, ctx, connA, proto.EventUpdateClients, &update)
	if len(update.Clients) != 2 || update.Username != "bob" {
		t.Fatalf("unexpected updateClients for A: %+v", update)
	}

	send(t, ctx, connA, proto.InboundTypeChangeRole, proto.ChangeRoleData{
		RoomID:          "R1",
		RequesterChatID: "A",
		TargetChatID:    "B",
		NewRole:         "writer",
	})
	for _, conn := range []*websocket.Conn{connA, connB} {
		var changed proto.EventClientsData
		readEvent(t, ctx, conn, proto.EventRoleChanged, &changed)
		if b, _ := clientByChat(changed.Clients, "B"); b.Role != string(core.RoleWriter) {
			t.Fatalf("expected B to be writer, got %+v", changed.Clients)
		}
	}

	send(t, ctx, connB, proto.InboundTypeChangeRole, proto.ChangeRoleData{
		RoomID:       "R1",
		TargetChatID: "A",
		NewRole:      "reader",
	})
	if e := readError(t, ctx, connB); e.Code != core.ErrCodeUnauthorized {
		t.Fatalf("expected unauthorized, got %+v", e)
	}

	connB.Close(websocket.StatusNormalClosure, "bye")
	var gone proto.EventDisconnectedData
	readEvent(t, ctx, connA, proto.EventDisconnected, &gone)
	if gone.Username != "bob" || gone.ConnectionID == "" {
		t.Fatalf("unexpected disconnected payload: %+v", gone)
	}
	readEvent(t, ctx, connA, proto.EventUpdateClients, &update)
	if len(update.Clients) != 1 || update.Clients[0].ChatID != "A" {
		t.Fatalf("expected only A to remain, got %+v", update.Clients)
	}
}

func TestWebSocketCookieClaimGrantsAdmin(t *testing.T) {
	env := startTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, cookie := env.createRoom(t, "R2", "A")

	conn := env.dial(t, ctx, "chatId=A&username=alice", cookie)
	send(t, ctx, conn, proto.InboundTypeJoin, proto.JoinData{RoomID: "R2", ClaimsAdmin: true})

	var joined proto.EventJoinedData
	readEvent(t, ctx, conn, proto.EventJoined, &joined)
	if joined.AdminUser != "A" {
		t.Fatalf("expected cookie claim to grant admin, got %+v", joined)
	}
}

func TestWebSocketClaimTokenForOtherChatIgnored(t *testing.T) {
	env := startTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	created, _ := env.createRoom(t, "R3", "A")

	conn := env.dial(t, ctx, "", nil)
	send(t, ctx, conn, proto.InboundTypeJoin, proto.JoinData{
		RoomID:      "R3",
		ChatID:      "M",
		Username:    "mallory",
		ClaimsAdmin: true,
		ClaimToken:  created.ClaimToken,
	})

	var joined proto.EventJoinedData
	readEvent(t, ctx, conn, proto.EventJoined, &joined)
	if joined.AdminUser != "" || joined.Clients[0].IsAdmin {
		t.Fatalf("token for A must not grant admin to M: %+v", joined)
	}
}

func TestWebSocketMissingIdentity(t *testing.T) {
	env := startTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := env.dial(t, ctx, "username=alice", nil)
	send(t, ctx, conn, proto.InboundTypeJoin, proto.JoinData{RoomID: "R1"})

	if e := readError(t, ctx, conn); e.Code != core.ErrCodeMissingIdentity {
		t.Fatalf("expected missing_identity, got %+v", e)
	}
	if rooms := env.hub.Rooms(); len(rooms) != 0 {
		t.Fatalf("no room must be created without identity, got %+v", rooms)
	}
}

func TestWebSocketInvalidFrames(t *testing.T) {
	env := startTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := env.dial(t, ctx, "", nil)

	if err := conn.Write(ctx, websocket.MessageText, []byte("{not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if e := readError(t, ctx, conn); e.Code != errCodeInvalidMessage {
		t.Fatalf("expected invalid_message for malformed json, got %+v", e)
	}

	send(t, ctx, conn, "shout", map[string]string{"text": "hi"})
	if e := readError(t, ctx, conn); e.Code != errCodeInvalidMessage {
		t.Fatalf("expected invalid_message for unknown type, got %+v", e)
	}

	send(t, ctx, conn, proto.InboundTypeLeave, proto.LeaveData{RoomID: "R1"})
	if e := readError(t, ctx, conn); e.Code != core.ErrCodeNotInRoom {
		t.Fatalf("expected not_in_room, got %+v", e)
	}
}

func TestWebSocketRateLimit(t *testing.T) {
	env := startTestServer(t, func(c *config.Config) { c.RateLimitPerMinute = 1 })
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := env.dial(t, ctx, "chatId=A&username=alice", nil)
	send(t, ctx, conn, proto.InboundTypeJoin, proto.JoinData{RoomID: "R1"})
	readEvent(t, ctx, conn, proto.EventJoined, nil)

	send(t, ctx, conn, proto.InboundTypeLeave, proto.LeaveData{RoomID: "R1"})
	if e := readError(t, ctx, conn); e.Code != errCodeRateLimited {
		t.Fatalf("expected rate_limited, got %+v", e)
	}
}
