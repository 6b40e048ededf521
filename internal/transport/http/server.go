package http

import (
	stdhttp "net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/lumoshub-server/internal/auth"
	"github.com/vovakirdan/lumoshub-server/internal/config"
	"github.com/vovakirdan/lumoshub-server/internal/core"
)

// NewServer builds an HTTP server with the websocket and REST routes.
func NewServer(hub *core.Hub, claimService *auth.Service, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(hub, claimService, cfg, logger),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewRouter builds the gin engine serving all routes.
func NewRouter(hub *core.Hub, claimService *auth.Service, cfg *config.Config, logger *zerolog.Logger) *gin.Engine {
	if cfg.Mode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(logger))

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.ClaimTTL.Seconds()),
		HttpOnly: true,
		SameSite: stdhttp.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, store))

	r.GET("/health", healthHandler)

	ws := NewWSHandler(hub, claimService, cfg, logger)
	r.GET("/ws", ws.Handle)

	rooms := NewRoomHandlers(hub, claimService, logger)
	api := r.Group("/api")
	api.POST("/rooms", rooms.CreateRoom)
	api.GET("/rooms", rooms.ListRooms)
	api.GET("/rooms/:roomId", rooms.GetRoom)

	logger.Debug().Str("mode", cfg.Mode).Msg("router setup")
	return r
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
