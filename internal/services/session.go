package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// SessionDuration is 7 days
	SessionDuration = 7 * 24 * time.Hour
	// SessionKeyPrefix is the Redis key prefix for sessions
	SessionKeyPrefix = "session:"
	// UserSessionKeyPrefix is the Redis key prefix for user->session mapping
	UserSessionKeyPrefix = "user_session:"
)

// SessionStore keeps opaque session tokens in Redis. A user has at most one
// live session; signing in again replaces it and restarts the 7-day timer.
type SessionStore struct {
	client *redis.Client
}

func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

// CreateSession invalidates any existing session for userID and returns a
// new token.
func (s *SessionStore) CreateSession(ctx context.Context, userID uuid.UUID) (string, error) {
	if err := s.InvalidateUserSessions(ctx, userID); err != nil {
		return "", err
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	sessionToken := base64.URLEncoding.EncodeToString(tokenBytes)

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, SessionKeyPrefix+sessionToken, userID.String(), SessionDuration)
	pipe.Set(ctx, UserSessionKeyPrefix+userID.String(), sessionToken, SessionDuration)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return sessionToken, nil
}

// ValidateSession returns the user id for sessionToken. ok is false for an
// unknown or expired token.
func (s *SessionStore) ValidateSession(ctx context.Context, sessionToken string) (string, bool, error) {
	if sessionToken == "" {
		return "", false, nil
	}

	userIDStr, err := s.client.Get(ctx, SessionKeyPrefix+sessionToken).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return "", false, err
	}
	return userID.String(), true, nil
}

// InvalidateSession removes a session from Redis.
func (s *SessionStore) InvalidateSession(ctx context.Context, sessionToken string) error {
	if sessionToken == "" {
		return nil
	}
	sessionKey := SessionKeyPrefix + sessionToken

	userIDStr, err := s.client.Get(ctx, sessionKey).Result()
	if err == nil && userIDStr != "" {
		s.client.Del(ctx, UserSessionKeyPrefix+userIDStr)
	}
	return s.client.Del(ctx, sessionKey).Err()
}

// InvalidateUserSessions removes the current session of userID, if any.
func (s *SessionStore) InvalidateUserSessions(ctx context.Context, userID uuid.UUID) error {
	userSessionKey := UserSessionKeyPrefix + userID.String()

	sessionToken, err := s.client.Get(ctx, userSessionKey).Result()
	if err == nil && sessionToken != "" {
		s.client.Del(ctx, SessionKeyPrefix+sessionToken)
	}
	return s.client.Del(ctx, userSessionKey).Err()
}
