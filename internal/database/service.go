package database

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionService issues and validates member session tokens.
type SessionService struct {
	repo      *Repository
	jwtSecret []byte
	tokenTTL  time.Duration
}

// NewSessionService creates a new session service
func NewSessionService(repo *Repository, jwtSecret string) *SessionService {
	return &SessionService{
		repo:      repo,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  24 * time.Hour,
	}
}

// StartSession registers the user if needed and returns a session token.
func (s *SessionService) StartSession(ctx context.Context, email, displayName, teamID string) (*SessionResult, error) {
	user := NewUser(email, displayName, teamID)
	if err := s.repo.UpsertUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	token, err := s.GenerateSessionToken(user.ID)
	if err != nil {
		return nil, err
	}

	return &SessionResult{User: user, Token: token}, nil
}

// SessionResult represents an opened session
type SessionResult struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

// GenerateSessionToken generates a JWT token for the user session
func (s *SessionService) GenerateSessionToken(userID string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(s.tokenTTL).Unix(),
		"iat":     time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	return tokenString, nil
}

// ValidateSessionToken validates a JWT token and returns the user ID
func (s *SessionService) ValidateSessionToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})

	if err != nil {
		return "", err
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		userID, ok := claims["user_id"].(string)
		if !ok {
			return "", fmt.Errorf("user_id not found in token")
		}
		return userID, nil
	}

	return "", fmt.Errorf("invalid token")
}
