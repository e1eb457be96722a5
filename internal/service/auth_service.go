package service

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stemsi/exstem-assessment/internal/config"
)

// TokenType distinguishes learner tokens from anything else a shared
// issuer might sign with the same secret.
type TokenType string

const (
	TokenTypeLearner TokenType = "learner"
)

// Claims extends JWT standard claims with the learner identity the attempt
// engine needs.
type Claims struct {
	jwt.RegisteredClaims
	TokenType TokenType `json:"token_type"`
	UserID    int       `json:"user_id"`
	GroupIDs  []int     `json:"group_ids,omitempty"`
}

// Identity is the authenticated caller, passed explicitly through every
// attempt operation.
type Identity struct {
	UserID   int
	GroupIDs []int
}

// Identity extracts the caller identity from validated claims.
func (c *Claims) Identity() Identity {
	return Identity{UserID: c.UserID, GroupIDs: c.GroupIDs}
}

// AuthService issues and validates learner JWTs. Login itself lives in an
// external identity service.
type AuthService struct {
	cfg *config.Config
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config) *AuthService {
	return &AuthService{cfg: cfg}
}

// GenerateLearnerToken creates a signed JWT for a learner.
func (s *AuthService) GenerateLearnerToken(userID int, groupIDs []int) (string, error) {
	now := time.Now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   strconv.Itoa(userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		TokenType: TokenTypeLearner,
		UserID:    userID,
		GroupIDs:  groupIDs,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.TokenType != TokenTypeLearner {
		return nil, errors.New("not a learner token")
	}

	return claims, nil
}
