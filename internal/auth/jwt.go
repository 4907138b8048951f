package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingToken = errors.New("missing authorization token")
)

// Token roles.
const (
	RolePlayer    = "player"
	RoleSpectator = "spectator"
)

// Claims holds the JWT payload. Each token is scoped to a single match:
// player tokens carry the seat they control, spectator tokens omit it.
type Claims struct {
	MatchID  string `json:"match_id"`
	PlayerID string `json:"player_id,omitempty"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// JWTManager handles token creation and validation.
type JWTManager struct {
	secret []byte
	expiry time.Duration
}

// NewJWTManager creates a JWTManager with the given secret. Tokens are
// minted once at match creation and must outlive the longest match.
func NewJWTManager(secret string) *JWTManager {
	return &JWTManager{
		secret: []byte(secret),
		expiry: 30 * 24 * time.Hour,
	}
}

// GeneratePlayerToken creates a token granting control of one seat in a match.
func (m *JWTManager) GeneratePlayerToken(matchID, playerID string) (string, error) {
	claims := &Claims{
		MatchID:  matchID,
		PlayerID: playerID,
		Role:     RolePlayer,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.expiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   matchID + "/" + playerID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// GenerateSpectatorToken creates a token granting read-only omniscient
// access to a match.
func (m *JWTManager) GenerateSpectatorToken(matchID string) (string, error) {
	claims := &Claims{
		MatchID: matchID,
		Role:    RoleSpectator,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.expiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   matchID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ValidateToken parses and validates a JWT string, returning the claims.
func (m *JWTManager) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
