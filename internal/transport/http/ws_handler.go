package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/lumoshub-server/internal/auth"
	"github.com/vovakirdan/lumoshub-server/internal/config"
	"github.com/vovakirdan/lumoshub-server/internal/core"
	"github.com/vovakirdan/lumoshub-server/internal/identity"
	"github.com/vovakirdan/lumoshub-server/internal/proto"
	"github.com/vovakirdan/lumoshub-server/internal/utils"
)

var errHubStopped = errors.New("hub stopped")

// WSHandler upgrades HTTP connections and bridges them to core.Client.
type WSHandler struct {
	hub    *core.Hub
	claims *auth.Service
	cfg    *config.Config
	log    *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, claimService *auth.Service, cfg *config.Config, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{hub: hub, claims: claimService, cfg: cfg, log: logger}
}

// Handle serves GET /ws. The cookie session claims are read once, at upgrade.
func (h *WSHandler) Handle(c *gin.Context) {
	ident := connIdentity{
		tab:      c.Request.URL.Query(),
		resolver: identity.NewResolver(loadSessionClaims(sessions.Default(c))),
		tokens:   h.claims,
	}
	h.serve(c.Writer, c.Request, ident)
}

func (h *WSHandler) serve(w stdhttp.ResponseWriter, r *stdhttp.Request, ident connIdentity) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")
	if h.cfg.MaxMessageBytes > 0 {
		conn.SetReadLimit(h.cfg.MaxMessageBytes)
	}

	client := core.NewClient(utils.NewID(), h.cfg.ClientBuffer)
	logger := h.log.With().Str("connection_id", client.ID).Logger()
	logger.Debug().Msg("ws connected")

	h.hub.RegisterClient(client)
	defer h.hub.UnregisterClient(client)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	limiter := newRateLimiter(h.cfg.RateLimitPerMinute)
	limiter.startReset(ctx.Done())

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client, ident, limiter, &logger)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client, &logger)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if errors.Is(err, errHubStopped) {
		status = websocket.StatusGoingAway
		reason = "server shutting down"
		err = nil
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			logger.Warn().Err(err).Msg("ws connection closed with error")
		}
	}

	logger.Debug().Int("status", int(status)).Msg("ws disconnected")
	conn.Close(status, truncateReason(reason))
}

func (h *WSHandler) readLoop(
	ctx context.Context,
	conn *websocket.Conn,
	client *core.Client,
	ident connIdentity,
	limiter *rateLimiter,
	logger *zerolog.Logger,
) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		if !limiter.allow() {
			if err := writeError(ctx, conn, errCodeRateLimited, "too many messages"); err != nil {
				return err
			}
			continue
		}

		var inbound proto.Inbound
		if err := json.Unmarshal(data, &inbound); err != nil {
			logger.Debug().Err(err).Msg("malformed inbound frame")
			if err := writeError(ctx, conn, errCodeInvalidMessage, "malformed json"); err != nil {
				return err
			}
			continue
		}

		if inbound.Type == proto.InboundTypeHello {
			if protoErr := checkHello(inbound.Data); protoErr != nil {
				if err := wsjson.Write(ctx, conn, errorOutbound(protoErr)); err != nil {
					return err
				}
			}
			continue
		}

		cmd, protoErr := inboundToCommand(ident, inbound)
		if protoErr != nil {
			logger.Debug().Str("type", inbound.Type).Str("code", protoErr.Code).Msg("rejected inbound")
			if err := wsjson.Write(ctx, conn, errorOutbound(protoErr)); err != nil {
				return err
			}
			continue
		}

		select {
		case client.Commands <- cmd:
		case <-client.Done():
			return errHubStopped
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client, logger *zerolog.Logger) error {
	for {
		select {
		case event := <-client.Events:
			if event == nil {
				continue
			}
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				logger.Error().Err(err).Msg("write ws event")
				return err
			}
		case <-client.Done():
			return errHubStopped
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func checkHello(raw json.RawMessage) *proto.Error {
	var hello proto.HelloData
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &hello); err != nil {
			return invalidPayload(err)
		}
	}
	if hello.Protocol != 0 && hello.Protocol != proto.ProtocolVersion {
		return &proto.Error{Code: errCodeUnsupportedVersion, Msg: "unsupported protocol version"}
	}
	return nil
}

func writeError(ctx context.Context, conn *websocket.Conn, code, msg string) error {
	return wsjson.Write(ctx, conn, errorOutbound(&proto.Error{Code: code, Msg: msg}))
}

// truncateReason keeps close reasons within the 123 byte control frame limit.
func truncateReason(reason string) string {
	const maxReason = 123
	if len(reason) > maxReason {
		return reason[:maxReason]
	}
	return reason
}
