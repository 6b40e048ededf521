package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

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
		log.Printf("ws_room: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	user := flag.String("user", "cli-user", "username")
	chatID := flag.String("chat", "cli-chat", "chat id of this tab")
	room := flag.String("room", "general", "room to join")
	token := flag.String("claim-token", "", "admin claim token from POST /api/rooms")
	flag.Parse()

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	query := url.Values{"chatId": {*chatID}, "username": {*user}}
	conn, _, err := websocket.Dial(ctx, *addr+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	join := proto.JoinData{RoomID: *room, ClaimsAdmin: *token != "", ClaimToken: *token}
	if err := send(ctx, conn, proto.InboundTypeJoin, join); err != nil {
		return err
	}

	fmt.Printf("Connected to %s as %s (%s) in room %s\n", *addr, *user, *chatID, *room)
	fmt.Println("Commands: /role <chatId> <writer|reader>, /leave, /join, /quit. Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	writeLoop(ctx, conn, *room, join)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

func readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var msg outbound
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			// Treat expected shutdowns quietly.
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			log.Printf("read error: %v", err)
			return
		}

		if msg.Error != nil {
			fmt.Printf("! %s: %s\n", msg.Error.Code, msg.Error.Msg)
			continue
		}

		switch msg.Event {
		case proto.EventJoined:
			var evt proto.EventJoinedData
			if err := json.Unmarshal(msg.Data, &evt); err != nil {
				log.Printf("unmarshal joined: %v", err)
				continue
			}
			fmt.Printf("[room %s] joined as %s, admin=%q\n", evt.RoomID, evt.Username, evt.AdminUser)
			printRoster(evt.Clients)
		case proto.EventUpdateClients, proto.EventRoleChanged:
			var evt proto.EventClientsData
			if err := json.Unmarshal(msg.Data, &evt); err != nil {
				log.Printf("unmarshal %s: %v", msg.Event, err)
				continue
			}
			fmt.Printf("[room %s] %s\n", evt.RoomID, msg.Event)
			printRoster(evt.Clients)
		case proto.EventLeft:
			var evt proto.EventLeftData
			if err := json.Unmarshal(msg.Data, &evt); err != nil {
				log.Printf("unmarshal left: %v", err)
				continue
			}
			fmt.Printf("[room %s] %s left\n", evt.RoomID, evt.Username)
		case proto.EventDisconnected:
			var evt proto.EventDisconnectedData
			if err := json.Unmarshal(msg.Data, &evt); err != nil {
				log.Printf("unmarshal disconnected: %v", err)
				continue
			}
			fmt.Printf("[room %s] %s disconnected\n", evt.RoomID, evt.Username)
		default:
			fmt.Printf("event=%s data=%s\n", msg.Event, msg.Data)
		}
	}
}

func writeLoop(ctx context.Context, conn *websocket.Conn, room string, join proto.JoinData) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			fields := strings.Fields(line)
			if len(fields) == 0 {
				continue
			}

			var err error
			switch fields[0] {
			case "/role":
				if len(fields) != 3 {
					fmt.Println("usage: /role <chatId> <writer|reader>")
					continue
				}
				err = send(ctx, conn, proto.InboundTypeChangeRole, proto.ChangeRoleData{
					RoomID:       room,
					TargetChatID: fields[1],
					NewRole:      fields[2],
				})
			case "/leave":
				err = send(ctx, conn, proto.InboundTypeLeave, proto.LeaveData{RoomID: room})
			case "/join":
				err = send(ctx, conn, proto.InboundTypeJoin, join)
			case "/quit":
				return
			default:
				fmt.Println("unknown command")
				continue
			}
			if err != nil {
				log.Printf("send error: %v", err)
				return
			}
		}
	}
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
		fmt.Printf("  %s %-16s %-8s chat=%s\n", marker, c.Username, c.Role, c.ChatID)
	}
}
