package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rlproxy/rlp-tgbot/pkg/core/conv"
)

const (
	StateLogin conv.State = "login"

	fieldSessionToken = "session_token"

	loggedInMessage = "✅ You are logged in.\n\nUse /apps to see your API apps or /new_app to create one."
)

// Login stores the session token issued to the user by the proxy service.
// With an empty token it starts a conversation asking the user to paste one.
// Logging in always discards credentials from any previous session first.
func (s *Service) Login(ctx context.Context, userID, token string) (*Response, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return s.askForSessionToken(ctx, userID)
	}

	if err := s.repo.Clear(ctx, userID); err != nil {
		return nil, fmt.Errorf("failed to clear previous session: %w", err)
	}

	if err := s.repo.SetSessionToken(ctx, userID, token); err != nil {
		return nil, fmt.Errorf("failed to store session token: %w", err)
	}

	return &Response{Message: loggedInMessage}, nil
}

// Logout removes the session token, the derived API key and any cached
// profile data. It is the only sanctioned way to invalidate a cached API key.
func (s *Service) Logout(ctx context.Context, userID string) error {
	if err := s.repo.Clear(ctx, userID); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}

	return nil
}

func (s *Service) askForSessionToken(ctx context.Context, userID string) (*Response, error) {
	c, err := s.repo.GetConversation(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	questions := conv.NewQuestions([]conv.Question{{
		Text:  "Paste the session token issued by the proxy service:",
		Field: fieldSessionToken,
	}})

	if err := c.Start(StateLogin, questions); err != nil {
		return nil, fmt.Errorf("failed to start questions: %w", err)
	}

	q, _ := c.Current()

	if err := s.repo.SaveConversation(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to save conversation: %w", err)
	}

	return &Response{Message: q.Text}, nil
}

func (s *Service) handleLoginResult(ctx context.Context, userID string, answers []conv.QuestionAnswer) (*Response, error) {
	if len(answers) != 1 {
		return nil, fmt.Errorf("expected exactly one answer for login question, got %d", len(answers))
	}

	return s.Login(ctx, userID, answers[0].Answer)
}

// apiKey returns the API key authorizing App-management calls for the user.
// A cached key is returned without any network call. Otherwise the key is
// derived exactly once from a profile fetch authorized by the session token;
// absence of the token fails with ErrUnauthenticated. Derivation is serialized
// per user so concurrent callers cannot trigger redundant profile fetches.
func (s *Service) apiKey(ctx context.Context, userID string) (string, error) {
	mu := s.deriveLock(userID)
	mu.Lock()
	defer mu.Unlock()

	key, err := s.repo.APIKey(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to read cached API key: %w", err)
	}

	if key != "" {
		return key, nil
	}

	prof, err := s.derive(ctx, userID)
	if err != nil {
		return "", err
	}

	return prof.APIKey, nil
}

// derive fetches the profile with the session token and persists the API key
// and profile blob. On failure nothing is cached. Caller holds the derive lock.
func (s *Service) derive(ctx context.Context, userID string) (*Profile, error) {
	token, err := s.repo.SessionToken(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read session token: %w", err)
	}

	if token == "" {
		return nil, ErrUnauthenticated
	}

	prof, err := s.proxy.GetProfile(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}

	if err := s.repo.SetAPIKey(ctx, userID, prof.APIKey); err != nil {
		return nil, fmt.Errorf("failed to store API key: %w", err)
	}

	blob, err := json.Marshal(prof)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal profile: %w", err)
	}

	if err := s.repo.SetProfileBlob(ctx, userID, string(blob)); err != nil {
		return nil, fmt.Errorf("failed to store profile: %w", err)
	}

	return prof, nil
}
