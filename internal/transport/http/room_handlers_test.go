package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/lumoshub-server/internal/core"
	"github.com/vovakirdan/lumoshub-server/internal/proto"
)

func newTestRouter(t *testing.T) (http.Handler, *testEnv) {
	t.Helper()
	env := startTestServer(t)
	logger := zerolog.Nop()
	return NewRouter(env.hub, env.claims, env.cfg, &logger), env
}

func postRoom(t *testing.T, h http.Handler, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/rooms", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func TestCreateRoom(t *testing.T) {
	h, env := newTestRouter(t)

	resp := postRoom(t, h, `{"roomId":"R1","chatId":"A"}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var created CreateRoomResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if created.RoomID != "R1" || created.ChatID != "A" {
		t.Fatalf("unexpected response: %+v", created)
	}

	claim, err := env.claims.Verify(created.ClaimToken)
	if err != nil {
		t.Fatalf("claim token must verify: %v", err)
	}
	if claim.RoomID != "R1" || claim.ChatID != "A" {
		t.Fatalf("unexpected claim: %+v", claim)
	}

	if len(resp.Result().Cookies()) == 0 {
		t.Fatalf("expected session cookie to be set")
	}
}

func TestCreateRoomGeneratesID(t *testing.T) {
	h, _ := newTestRouter(t)

	resp := postRoom(t, h, `{"chatId":"A"}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", resp.Code)
	}
	var created CreateRoomResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if created.RoomID == "" {
		t.Fatalf("expected generated room id")
	}
}

func TestCreateRoomValidation(t *testing.T) {
	h, _ := newTestRouter(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing chat id", `{"roomId":"R1"}`},
		{"blank chat id", `{"roomId":"R1","chatId":""}`},
		{"malformed body", `{"roomId":`},
		{"room id too long", `{"roomId":"` + strings.Repeat("r", maxRoomIDLen+1) + `","chatId":"A"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if resp := postRoom(t, h, tt.body); resp.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d", resp.Code)
			}
		})
	}
}

func TestCreateRoomConflictWithinSession(t *testing.T) {
	h, _ := newTestRouter(t)

	first := postRoom(t, h, `{"roomId":"R1","chatId":"A"}`)
	if first.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", first.Code)
	}
	cookies := first.Result().Cookies()

	if again := postRoom(t, h, `{"roomId":"R1","chatId":"A"}`, cookies...); again.Code != http.StatusCreated {
		t.Fatalf("re-claiming with the same chat id must succeed, got %d", again.Code)
	}
	if other := postRoom(t, h, `{"roomId":"R1","chatId":"B"}`, cookies...); other.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", other.Code)
	}
}

func TestGetRoomNotFound(t *testing.T) {
	h, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/rooms/nope", nil)
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", resp.Code)
	}
}

func TestListAndGetActiveRoom(t *testing.T) {
	h, env := newTestRouter(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/rooms", nil)
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK || strings.TrimSpace(resp.Body.String()) != "[]" {
		t.Fatalf("expected empty list, got %d %s", resp.Code, resp.Body.String())
	}

	conn := env.dial(t, ctx, "chatId=A&username=alice", nil)
	send(t, ctx, conn, proto.InboundTypeJoin, proto.JoinData{RoomID: "R1"})
	readEvent(t, ctx, conn, proto.EventJoined, nil)

	resp = httptest.NewRecorder()
	h.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/rooms", nil))
	var rooms []RoomSummary
	if err := json.Unmarshal(resp.Body.Bytes(), &rooms); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if len(rooms) != 1 || rooms[0].RoomID != "R1" || rooms[0].ClientCount != 1 {
		t.Fatalf("unexpected rooms: %+v", rooms)
	}

	resp = httptest.NewRecorder()
	h.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/rooms/R1", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var room RoomResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &room); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if room.RoomID != "R1" || room.AdminChatID != "" || len(room.Clients) != 1 {
		t.Fatalf("unexpected room: %+v", room)
	}
	if c := room.Clients[0]; c.ChatID != "A" || c.Role != string(core.RoleReader) || c.ConnectionID == "" {
		t.Fatalf("unexpected client entry: %+v", c)
	}
}
