package core

import (
	"context"
	"sync"

	"github.com/rlproxy/rlp-tgbot/pkg/core/conv"
)

// SessionRepo persists per-user console state: the session token, the derived
// API key, the cached profile blob and any in-progress form conversation.
type SessionRepo interface {
	SessionToken(ctx context.Context, userID string) (string, error)
	SetSessionToken(ctx context.Context, userID, token string) error
	APIKey(ctx context.Context, userID string) (string, error)
	SetAPIKey(ctx context.Context, userID, apiKey string) error
	ProfileBlob(ctx context.Context, userID string) (string, error)
	SetProfileBlob(ctx context.Context, userID, blob string) error
	Clear(ctx context.Context, userID string) error
	GetConversation(ctx context.Context, userID string) (*conv.Conversation, error)
	SaveConversation(ctx context.Context, c *conv.Conversation) error
	DeleteConversation(ctx context.Context, userID string) error
}

// ProxyAPI is the REST contract of the rate-limiting proxy service.
type ProxyAPI interface {
	GetProfile(ctx context.Context, sessionToken string) (*Profile, error)
	ListApps(ctx context.Context, apiKey string) ([]App, error)
	GetApp(ctx context.Context, apiKey, appID string) (*App, error)
	CreateApp(ctx context.Context, apiKey string, draft AppDraft) (*App, error)
	UpdateApp(ctx context.Context, apiKey, id string, draft AppDraft) (*App, error)
	DeleteApp(ctx context.Context, apiKey, id string) error
	Invoke(ctx context.Context, apiKey, appID string) (*InvokeResult, error)
}

// Response is what the console sends back to the user: a message and,
// when a question is pending, the set of suggested answers.
type Response struct {
	Message string
	Answers []string
}

type Service struct {
	repo  SessionRepo
	proxy ProxyAPI

	mu      sync.Mutex
	derives map[string]*sync.Mutex
}

func New(repo SessionRepo, proxy ProxyAPI) *Service {
	return &Service{
		repo:    repo,
		proxy:   proxy,
		derives: make(map[string]*sync.Mutex),
	}
}

// deriveLock returns the per-user mutex serializing API key derivation,
// so concurrent requests trigger at most one profile fetch.
func (s *Service) deriveLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m, ok := s.derives[userID]; ok {
		return m
	}

	m := &sync.Mutex{}
	s.derives[userID] = m

	return m
}
