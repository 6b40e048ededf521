package http

import (
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/vovakirdan/lumoshub-server/internal/auth"
	"github.com/vovakirdan/lumoshub-server/internal/core"
	"github.com/vovakirdan/lumoshub-server/internal/identity"
	"github.com/vovakirdan/lumoshub-server/internal/proto"
)

const (
	errCodeInvalidMessage     = "invalid_message"
	errCodeUnsupportedVersion = "unsupported_version"
	errCodeRateLimited        = "rate_limited"
)

// connIdentity is what a connection knows about its tab before any frame
// arrives: query parameters and the cookie session claims.
type connIdentity struct {
	tab      url.Values
	resolver *identity.Resolver
	tokens   *auth.Service
}

func inboundToCommand(conn connIdentity, inbound proto.Inbound) (*core.Command, *proto.Error) {
	switch inbound.Type {
	case proto.InboundTypeJoin:
		var join proto.JoinData
		if err := decodeData(inbound.Data, &join); err != nil {
			return nil, invalidPayload(err)
		}
		roomID := strings.TrimSpace(join.RoomID)
		if roomID == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "roomId is required"}
		}
		if utf8.RuneCountInString(roomID) > maxRoomIDLen {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "roomId is too long"}
		}

		id, err := conn.resolver.Identity(joinTab(conn.tab, join))
		if err != nil {
			if errors.Is(err, identity.ErrMissingIdentity) {
				return nil, &proto.Error{Code: core.ErrCodeMissingIdentity, Msg: core.ErrMissingIdentity.Message}
			}
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: err.Error()}
		}

		claimsAdmin := false
		if join.ClaimsAdmin {
			resolver := conn.resolver
			if join.ClaimToken != "" && conn.tokens != nil {
				resolver = resolver.With(conn.tokens.TokenClaims(join.ClaimToken))
			}
			claimsAdmin = resolver.ClaimsAdmin(roomID, id.ChatID)
		}

		return &core.Command{
			Kind:        core.CommandJoinRoom,
			Room:        roomID,
			ChatID:      id.ChatID,
			Username:    id.Username,
			ClaimsAdmin: claimsAdmin,
		}, nil
	case proto.InboundTypeLeave:
		var leave proto.LeaveData
		if err := decodeData(inbound.Data, &leave); err != nil {
			return nil, invalidPayload(err)
		}
		return &core.Command{
			Kind:   core.CommandLeaveRoom,
			Room:   strings.TrimSpace(leave.RoomID),
			ChatID: strings.TrimSpace(leave.ChatID),
		}, nil
	case proto.InboundTypeChangeRole:
		var change proto.ChangeRoleData
		if err := decodeData(inbound.Data, &change); err != nil {
			return nil, invalidPayload(err)
		}
		// Unknown roles reach the room so authorization is checked first.
		role, ok := core.ParseRole(change.NewRole)
		if !ok {
			role = core.Role(strings.TrimSpace(change.NewRole))
		}
		return &core.Command{
			Kind:            core.CommandChangeRole,
			Room:            strings.TrimSpace(change.RoomID),
			RequesterChatID: strings.TrimSpace(change.RequesterChatID),
			TargetChatID:    strings.TrimSpace(change.TargetChatID),
			Role:            role,
		}, nil
	default:
		return nil, &proto.Error{Code: errCodeInvalidMessage, Msg: "unknown message type"}
	}
}

// joinTab overlays the identity fields of a join payload on the query
// parameters of the connection.
func joinTab(query url.Values, join proto.JoinData) url.Values {
	tab := url.Values{}
	for _, key := range []string{identity.KeyUsername, identity.KeyChatID} {
		if v := query.Get(key); v != "" {
			tab.Set(key, v)
		}
	}
	if v := strings.TrimSpace(join.Username); v != "" {
		tab.Set(identity.KeyUsername, v)
	}
	if v := strings.TrimSpace(join.ChatID); v != "" {
		tab.Set(identity.KeyChatID, v)
	}
	return tab
}

func decodeData(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return errors.New("data is required")
	}
	return json.Unmarshal(raw, v)
}

func invalidPayload(err error) *proto.Error {
	return &proto.Error{Code: errCodeInvalidMessage, Msg: "invalid payload: " + err.Error()}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventJoined:
		return eventOutbound(proto.EventJoined, proto.EventJoinedData{
			RoomID:    event.Room,
			Username:  event.User,
			AdminUser: event.AdminChatID,
			Clients:   clientsOf(event.Clients),
		})
	case core.EventUpdateClients:
		return eventOutbound(proto.EventUpdateClients, proto.EventClientsData{
			RoomID:   event.Room,
			Username: event.User,
			Clients:  clientsOf(event.Clients),
		})
	case core.EventRoleChanged:
		return eventOutbound(proto.EventRoleChanged, proto.EventClientsData{
			RoomID:  event.Room,
			Clients: clientsOf(event.Clients),
		})
	case core.EventUserLeft:
		return eventOutbound(proto.EventLeft, proto.EventLeftData{
			RoomID:   event.Room,
			Username: event.User,
		})
	case core.EventUserDisconnected:
		return eventOutbound(proto.EventDisconnected, proto.EventDisconnectedData{
			RoomID:       event.Room,
			Username:     event.User,
			ConnectionID: event.ConnectionID,
		})
	case core.EventError:
		if event.Error == nil {
			return errorOutbound(&proto.Error{Code: "unknown", Msg: "unknown error"})
		}
		return errorOutbound(&proto.Error{Code: event.Error.Code, Msg: event.Error.Message})
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}

func eventOutbound(name string, data any) proto.Outbound {
	return proto.Outbound{Type: proto.OutboundTypeEvent, Event: name, Data: data}
}

func errorOutbound(e *proto.Error) proto.Outbound {
	return proto.Outbound{Type: proto.OutboundTypeError, Error: e}
}

func clientsOf(sessions []core.Session) []proto.ClientInfo {
	out := make([]proto.ClientInfo, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, proto.ClientInfo{
			ChatID:       s.ChatID,
			Username:     s.Username,
			Role:         s.Role.String(),
			IsAdmin:      s.IsAdmin,
			ConnectionID: s.ConnectionID,
		})
	}
	return out
}
