package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/lumoshub-server/internal/auth"
	"github.com/vovakirdan/lumoshub-server/internal/config"
	"github.com/vovakirdan/lumoshub-server/internal/core"
	"github.com/vovakirdan/lumoshub-server/internal/proto"
)

type testEnv struct {
	ts     *httptest.Server
	hub    *core.Hub
	claims *auth.Service
	cfg    *config.Config
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Mode = gin.TestMode
	cfg.SessionSecret = "test-session-secret"
	cfg.ClaimSecret = "test-claim-secret"
	cfg.ClaimTTL = time.Hour
	return cfg
}

func testClaimService(cfg *config.Config) *auth.Service {
	return auth.NewService(&auth.JWTConfig{
		Secret:   []byte(cfg.ClaimSecret),
		Issuer:   cfg.ClaimIssuer,
		Audience: cfg.ClaimAudience,
		TTL:      cfg.ClaimTTL,
	})
}

func startTestServer(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := testConfig()
	for _, m := range mutate {
		m(&cfg)
	}

	logger := zerolog.Nop()
	hub := core.NewHub(core.WithLogger(&logger), core.WithRoomIdleTTL(cfg.RoomIdleTTL))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	claims := testClaimService(&cfg)
	server := NewServer(hub, claims, &cfg, &logger)
	ts := httptest.NewServer(server.Handler)

	t.Cleanup(func() {
		ts.Close()
		cancel()
		<-done
	})
	return &testEnv{ts: ts, hub: hub, claims: claims, cfg: &cfg}
}

func (e *testEnv) wsURL(query string) string {
	u := strings.Replace(e.ts.URL, "http", "ws", 1) + "/ws"
	if query != "" {
		u += "?" + query
	}
	return u
}

func (e *testEnv) dial(t *testing.T, ctx context.Context, query string, header http.Header) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.Dial(ctx, e.wsURL(query), &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

// createRoom registers roomID for chatID over REST and returns the response
// together with the session cookie header.
func (e *testEnv) createRoom(t *testing.T, roomID, chatID string) (CreateRoomResponse, http.Header) {
	t.Helper()
	body, _ := json.Marshal(CreateRoomRequest{RoomID: roomID, ChatID: chatID})
	resp, err := e.ts.Client().Post(e.ts.URL+"/api/rooms", "application/json", strings.NewReader(string(body)))
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create room: unexpected status %d", resp.StatusCode)
	}

	var out CreateRoomResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode create room: %v", err)
	}
	header := http.Header{}
	for _, c := range resp.Cookies() {
		header.Add("Cookie", c.Name+"="+c.Value)
	}
	return out, header
}

type wireMessage struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func send(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string, data any) {
	t.Helper()
	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal %s: %v", typ, err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
		t.Fatalf("send %s: %v", typ, err)
	}
}

// readUntil reads frames until match accepts one, discarding the rest.
func readUntil(t *testing.T, ctx context.Context, conn *websocket.Conn, what string, match func(wireMessage) bool) wireMessage {
	t.Helper()
	for {
		var msg wireMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				t.Fatalf("timed out waiting for %s", what)
			}
			t.Fatalf("read while waiting for %s: %v", what, err)
		}
		if match(msg) {
			return msg
		}
	}
}

func readEvent(t *testing.T, ctx context.Context, conn *websocket.Conn, name string, into any) {
	t.Helper()
	msg := readUntil(t, ctx, conn, "event "+name, func(m wireMessage) bool {
		return m.Type == proto.OutboundTypeEvent && m.Event == name
	})
	if into != nil {
		if err := json.Unmarshal(msg.Data, into); err != nil {
			t.Fatalf("decode %s: %v", name, err)
		}
	}
}

func readError(t *testing.T, ctx context.Context, conn *websocket.Conn) *proto.Error {
	t.Helper()
	msg := readUntil(t, ctx, conn, "error", func(m wireMessage) bool {
		return m.Type == proto.OutboundTypeError
	})
	if msg.Error == nil {
		t.Fatalf("error frame without error body")
	}
	return msg.Error
}

func clientByChat(clients []proto.ClientInfo, chatID string) (proto.ClientInfo, bool) {
	for _, c := range clients {
		if c.ChatID == chatID {
			return c, true
		}
	}
	return proto.ClientInfo{}, false
}
