package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rlproxy/rlp-tgbot/pkg/core/conv"
)

type Config struct {
	RedisAddr string `mapstructure:"redis_addr"`
	Password  string `mapstructure:"redis_password"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

const (
	sessionFieldToken   = "token"
	sessionFieldAPIKey  = "api_key"
	sessionFieldProfile = "profile"

	conversationTTL = time.Hour
)

// Sessions stores per-user console state in Redis: the session token, the
// derived API key, the cached profile blob and any in-progress conversation.
type Sessions struct {
	db        *redis.Client
	keyPrefix string
}

// New initializes and returns a new Sessions instance configured with the provided Config.
func New(cfg *Config) *Sessions {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.Password,
	})

	return &Sessions{
		db:        rdb,
		keyPrefix: cfg.KeyPrefix,
	}
}

// Close terminates the connection to the Redis database and returns an error if the operation fails.
func (s *Sessions) Close() error {
	return s.db.Close()
}

func (s *Sessions) sessionKey(userID string) string {
	return s.keyPrefix + "session:" + userID
}

func (s *Sessions) conversationKey(userID string) string {
	return s.keyPrefix + "conv:" + userID
}

// SessionToken returns the stored session token, or an empty string if none is set.
func (s *Sessions) SessionToken(ctx context.Context, userID string) (string, error) {
	return s.sessionField(ctx, userID, sessionFieldToken)
}

// SetSessionToken stores the session token for the user.
func (s *Sessions) SetSessionToken(ctx context.Context, userID, token string) error {
	return s.setSessionField(ctx, userID, sessionFieldToken, token)
}

// APIKey returns the cached derived API key, or an empty string if none is cached.
func (s *Sessions) APIKey(ctx context.Context, userID string) (string, error) {
	return s.sessionField(ctx, userID, sessionFieldAPIKey)
}

// SetAPIKey caches the derived API key for the user.
func (s *Sessions) SetAPIKey(ctx context.Context, userID, apiKey string) error {
	return s.setSessionField(ctx, userID, sessionFieldAPIKey, apiKey)
}

// ProfileBlob returns the cached profile JSON, or an empty string if none is cached.
func (s *Sessions) ProfileBlob(ctx context.Context, userID string) (string, error) {
	return s.sessionField(ctx, userID, sessionFieldProfile)
}

// SetProfileBlob caches the profile JSON for the user.
func (s *Sessions) SetProfileBlob(ctx context.Context, userID, blob string) error {
	return s.setSessionField(ctx, userID, sessionFieldProfile, blob)
}

// Clear removes the session token, the API key, the profile blob and any
// in-progress conversation in one sweep. It is called on logout and is the
// only way to invalidate a cached API key mid-session.
func (s *Sessions) Clear(ctx context.Context, userID string) error {
	if err := s.db.Del(ctx, s.sessionKey(userID), s.conversationKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}

	return nil
}

// GetConversation retrieves the user's persisted conversation, or a fresh idle
// one if none is stored.
func (s *Sessions) GetConversation(ctx context.Context, userID string) (*conv.Conversation, error) {
	data, err := s.db.Get(ctx, s.conversationKey(userID)).Result()

	switch {
	case errors.Is(err, redis.Nil):
		return conv.New(userID), nil
	case err != nil:
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	var c conv.Conversation
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal conversation: %w", err)
	}

	return &c, nil
}

// SaveConversation persists the conversation with a TTL, so abandoned forms
// expire on their own.
func (s *Sessions) SaveConversation(ctx context.Context, c *conv.Conversation) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation: %w", err)
	}

	if err := s.db.Set(ctx, s.conversationKey(c.ID), data, conversationTTL).Err(); err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}

	return nil
}

// DeleteConversation removes the user's persisted conversation.
func (s *Sessions) DeleteConversation(ctx context.Context, userID string) error {
	if err := s.db.Del(ctx, s.conversationKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}

	return nil
}

func (s *Sessions) sessionField(ctx context.Context, userID, field string) (string, error) {
	val, err := s.db.HGet(ctx, s.sessionKey(userID), field).Result()

	switch {
	case errors.Is(err, redis.Nil):
		return "", nil
	case err != nil:
		return "", fmt.Errorf("failed to get session field %s: %w", field, err)
	}

	return val, nil
}

func (s *Sessions) setSessionField(ctx context.Context, userID, field, value string) error {
	if err := s.db.HSet(ctx, s.sessionKey(userID), field, value).Err(); err != nil {
		return fmt.Errorf("failed to set session field %s: %w", field, err)
	}

	return nil
}
