package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/lumoshub-server/internal/auth"
	"github.com/vovakirdan/lumoshub-server/internal/core"
	"github.com/vovakirdan/lumoshub-server/internal/identity"
	"github.com/vovakirdan/lumoshub-server/internal/proto"
	"github.com/vovakirdan/lumoshub-server/internal/utils"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RoomHandlers provides HTTP handlers for room endpoints.
type RoomHandlers struct {
	hub    *core.Hub
	claims *auth.Service
	log    *zerolog.Logger
}

// NewRoomHandlers creates a new room handlers instance.
func NewRoomHandlers(hub *core.Hub, claimService *auth.Service, logger *zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{
		hub:    hub,
		claims: claimService,
		log:    logger,
	}
}

// maxRoomIDLen caps room ids on every path. Keep the binding tag of
// CreateRoomRequest.RoomID in sync.
const maxRoomIDLen = 128

// CreateRoomRequest represents the create room request body.
type CreateRoomRequest struct {
	RoomID string `json:"roomId" binding:"max=128"`
	ChatID string `json:"chatId" binding:"required,max=128"`
}

// CreateRoomResponse carries the admin claim for a registered room.
type CreateRoomResponse struct {
	RoomID     string `json:"roomId"`
	ChatID     string `json:"chatId"`
	ClaimToken string `json:"claimToken"`
}

// RoomSummary represents an active room in list responses.
type RoomSummary struct {
	RoomID      string `json:"roomId"`
	ClientCount int    `json:"clientCount"`
}

// RoomResponse represents the roster of an active room.
type RoomResponse struct {
	RoomID      string             `json:"roomId"`
	AdminChatID string             `json:"adminChatId,omitempty"`
	Clients     []proto.ClientInfo `json:"clients"`
}

// CreateRoom registers a room for the caller and records the admin claim.
// POST /api/rooms
func (h *RoomHandlers) CreateRoom(c *gin.Context) {
	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create room request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	roomID := strings.TrimSpace(req.RoomID)
	if roomID == "" {
		roomID = utils.NewID()
	}
	chatID := strings.TrimSpace(req.ChatID)
	if chatID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "chatId is required"})
		return
	}

	session := sessions.Default(c)
	claims := loadSessionClaims(session)
	if inEffect := claims.Record(identity.Claim{RoomID: roomID, ChatID: chatID}); inEffect.ChatID != chatID {
		c.JSON(http.StatusConflict, ErrorResponse{Error: "room already claimed by another identity"})
		return
	}

	token, err := h.claims.Issue(roomID, chatID)
	if err != nil {
		h.log.Error().Err(err).Str("room", roomID).Msg("failed to issue claim token")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if err := saveSessionClaims(session, claims); err != nil {
		h.log.Error().Err(err).Str("room", roomID).Msg("failed to store claim")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("room", roomID).Str("chat_id", chatID).Msg("room claimed")
	c.JSON(http.StatusCreated, CreateRoomResponse{
		RoomID:     roomID,
		ChatID:     chatID,
		ClaimToken: token,
	})
}

// ListRooms lists active rooms.
// GET /api/rooms
func (h *RoomHandlers) ListRooms(c *gin.Context) {
	rooms := h.hub.Rooms()
	response := make([]RoomSummary, 0, len(rooms))
	for _, r := range rooms {
		response = append(response, RoomSummary{RoomID: r.RoomID, ClientCount: r.ClientCount})
	}
	c.JSON(http.StatusOK, response)
}

// GetRoom returns the roster of an active room.
// GET /api/rooms/:roomId
func (h *RoomHandlers) GetRoom(c *gin.Context) {
	roomID := c.Param("roomId")

	view, err := h.hub.Snapshot(c.Request.Context(), roomID)
	if err != nil {
		if errors.Is(err, core.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "room not found"})
			return
		}
		h.log.Error().Err(err).Str("room", roomID).Msg("failed to snapshot room")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, RoomResponse{
		RoomID:      view.RoomID,
		AdminChatID: view.AdminChatID,
		Clients:     clientsOf(view.Clients),
	})
}
