package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/lumoshub-server/internal/auth"
	"github.com/vovakirdan/lumoshub-server/internal/config"
	"github.com/vovakirdan/lumoshub-server/internal/core"
	transporthttp "github.com/vovakirdan/lumoshub-server/internal/transport/http"
)

const releaseMode = "release"

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	if cfg.ClaimSecret == "" {
		return nil, errors.New("claim secret is required")
	}
	if cfg.SessionSecret == "" {
		return nil, errors.New("session secret is required")
	}
	defaults := config.Default()
	if cfg.SessionSecret == defaults.SessionSecret || cfg.ClaimSecret == defaults.ClaimSecret {
		if strings.EqualFold(cfg.Mode, releaseMode) {
			return nil, errors.New("default secrets are not allowed in release mode, set session_secret and claim_secret")
		}
		logger.Warn().Str("mode", cfg.Mode).Msg("using default secrets, set session_secret and claim_secret in production")
	}

	claimService := auth.NewService(&auth.JWTConfig{
		Secret:   []byte(cfg.ClaimSecret),
		Issuer:   cfg.ClaimIssuer,
		Audience: cfg.ClaimAudience,
		TTL:      cfg.ClaimTTL,
	})

	hub := core.NewHub(
		core.WithLogger(logger),
		core.WithRoomIdleTTL(cfg.RoomIdleTTL),
	)
	server := transporthttp.NewServer(hub, claimService, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		log:             logger,
	}, nil
}

// Handler exposes the HTTP handler, mainly for tests.
func (a *App) Handler() stdhttp.Handler {
	return a.server.Handler
}

// Run starts the hub and the HTTP server and blocks until ctx is cancelled
// or the server fails. The hub is stopped only after the server drained.
func (a *App) Run(ctx context.Context) error {
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.hub.Run(hubCtx)
		return nil
	})

	g.Go(func() error {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		defer stopHub()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
