package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/lumoshub-server/internal/proto"
)

type outbound struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	server := flag.String("server", "http://localhost:8080", "server base URL")
	user := flag.String("user", "tester", "username")
	chatID := flag.String("chat", "smoke-chat", "chat id of this tab")
	room := flag.String("room", "smoke-room", "room id")
	create := flag.Bool("create", true, "register the room over REST and claim admin")
	target := flag.String("target", "", "chat id whose role to change after joining")
	role := flag.String("role", "writer", "role to assign to -target")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	join := proto.JoinData{RoomID: *room, ChatID: *chatID, Username: *user}
	if *create {
		token, err := createRoom(ctx, *server, *room, *chatID)
		if err != nil {
			return err
		}
		join.ClaimsAdmin = true
		join.ClaimToken = token
		fmt.Printf("Registered room %s as %s\n", *room, *chatID)
	}

	wsURL := strings.Replace(*server, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	if err := send(ctx, conn, proto.InboundTypeHello, proto.HelloData{Protocol: proto.ProtocolVersion}); err != nil {
		return err
	}
	if err := send(ctx, conn, proto.InboundTypeJoin, join); err != nil {
		return err
	}

	for {
		var msg outbound
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			return fmt.Errorf("read: %w", err)
		}
		if msg.Error != nil {
			return fmt.Errorf("server error: %s: %s", msg.Error.Code, msg.Error.Msg)
		}

		fmt.Printf("Received outbound: type=%s event=%s\n", msg.Type, msg.Event)
		switch msg.Event {
		case proto.EventJoined:
			var evt proto.EventJoinedData
			if err := json.Unmarshal(msg.Data, &evt); err != nil {
				return fmt.Errorf("unmarshal joined: %w", err)
			}
			fmt.Printf("Joined room=%s admin=%q\n", evt.RoomID, evt.AdminUser)
			printRoster(evt.Clients)
			if *target == "" {
				return nil
			}
			change := proto.ChangeRoleData{RoomID: *room, RequesterChatID: *chatID, TargetChatID: *target, NewRole: *role}
			if err := send(ctx, conn, proto.InboundTypeChangeRole, change); err != nil {
				return err
			}
		case proto.EventRoleChanged:
			var evt proto.EventClientsData
			if err := json.Unmarshal(msg.Data, &evt); err != nil {
				return fmt.Errorf("unmarshal roleChanged: %w", err)
			}
			printRoster(evt.Clients)
			return nil
		default:
			// keep looping for the join reply
		}
	}
}

func createRoom(ctx context.Context, server, room, chatID string) (string, error) {
	body, err := json.Marshal(map[string]string{"roomId": room, "chatId": chatID})
	if err != nil {
		return "", fmt.Errorf("marshal create room: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, server+"/api/rooms", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build create room: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("create room: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("create room: unexpected status %d", resp.StatusCode)
	}

	var out struct {
		ClaimToken string `json:"claimToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode create room: %w", err)
	}
	return out.ClaimToken, nil
}

func send(ctx context.Context, conn *websocket.Conn, typ string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", typ, err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
		return fmt.Errorf("send %s: %w", typ, err)
	}
	return nil
}

func printRoster(clients []proto.ClientInfo) {
	for _, c := range clients {
		marker := " "
		if c.IsAdmin {
			marker = "*"
		}
		fmt.Printf("  %s %-16s %-8s chat=%s conn=%s\n", marker, c.Username, c.Role, c.ChatID, c.ConnectionID)
	}
}
