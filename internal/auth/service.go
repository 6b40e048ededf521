package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vovakirdan/lumoshub-server/internal/identity"
)

var (
	// ErrInvalidRoom is returned when a room id is empty.
	ErrInvalidRoom = errors.New("invalid room id")
	// ErrInvalidChatID is returned when a chat id is empty.
	ErrInvalidChatID = errors.New("invalid chat id")
)

// Service issues and verifies admin claim tokens.
type Service struct {
	jwtConfig *JWTConfig
}

// NewService creates a new claim service.
func NewService(jwtConfig *JWTConfig) *Service {
	return &Service{jwtConfig: jwtConfig}
}

// Issue signs a claim that chatID registered roomID.
func (s *Service) Issue(roomID, chatID string) (string, error) {
	roomID = strings.TrimSpace(roomID)
	chatID = strings.TrimSpace(chatID)
	if roomID == "" {
		return "", ErrInvalidRoom
	}
	if chatID == "" {
		return "", ErrInvalidChatID
	}

	token, err := GenerateToken(s.jwtConfig, roomID, chatID)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return token, nil
}

// Verify validates a claim token and returns the claim it carries.
func (s *Service) Verify(token string) (identity.Claim, error) {
	claims, err := ValidateToken(s.jwtConfig, token)
	if err != nil {
		return identity.Claim{}, err
	}
	return identity.Claim{RoomID: claims.RoomID, ChatID: claims.ChatID}, nil
}

// TokenClaims exposes a verified claim token as an identity.ClaimStore.
// An invalid or empty token yields a store with no claims.
func (s *Service) TokenClaims(token string) identity.ClaimStore {
	if token == "" {
		return tokenClaims{}
	}
	claim, err := s.Verify(token)
	if err != nil {
		return tokenClaims{}
	}
	return tokenClaims{claim: claim, ok: true}
}

type tokenClaims struct {
	claim identity.Claim
	ok    bool
}

func (t tokenClaims) AdminClaim(roomID string) (identity.Claim, bool) {
	if !t.ok || t.claim.RoomID != roomID {
		return identity.Claim{}, false
	}
	return t.claim, true
}
