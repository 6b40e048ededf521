package http

import (
	"encoding/json"
	"fmt"

	"github.com/gin-contrib/sessions"

	"github.com/vovakirdan/lumoshub-server/internal/identity"
)

const (
	sessionName      = "lumoshub"
	sessionClaimsKey = "admin_claims"
)

// loadSessionClaims reads the browser's room to chat id admin claims from
// the signed cookie session. A missing or unreadable value yields no claims.
func loadSessionClaims(s sessions.Session) *identity.Claims {
	byRoom := make(map[string]string)
	if raw, ok := s.Get(sessionClaimsKey).(string); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &byRoom); err != nil {
			byRoom = make(map[string]string)
		}
	}
	return identity.NewClaims(byRoom)
}

func saveSessionClaims(s sessions.Session, claims *identity.Claims) error {
	raw, err := json.Marshal(claims.Map())
	if err != nil {
		return fmt.Errorf("encode claims: %w", err)
	}
	s.Set(sessionClaimsKey, string(raw))
	if err := s.Save(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}
