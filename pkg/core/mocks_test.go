package core

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rlproxy/rlp-tgbot/pkg/core/conv"
	"github.com/stretchr/testify/mock"
)

// memRepo is an in-memory SessionRepo used to exercise the real caching
// semantics of the session layer in tests.
type memRepo struct {
	mu       sync.Mutex
	tokens   map[string]string
	keys     map[string]string
	profiles map[string]string
	convs    map[string]string
}

func newMemRepo() *memRepo {
	return &memRepo{
		tokens:   make(map[string]string),
		keys:     make(map[string]string),
		profiles: make(map[string]string),
		convs:    make(map[string]string),
	}
}

func (r *memRepo) SessionToken(_ context.Context, userID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.tokens[userID], nil
}

func (r *memRepo) SetSessionToken(_ context.Context, userID, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tokens[userID] = token

	return nil
}

func (r *memRepo) APIKey(_ context.Context, userID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.keys[userID], nil
}

func (r *memRepo) SetAPIKey(_ context.Context, userID, apiKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.keys[userID] = apiKey

	return nil
}

func (r *memRepo) ProfileBlob(_ context.Context, userID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.profiles[userID], nil
}

func (r *memRepo) SetProfileBlob(_ context.Context, userID, blob string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.profiles[userID] = blob

	return nil
}

func (r *memRepo) Clear(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.tokens, userID)
	delete(r.keys, userID)
	delete(r.profiles, userID)
	delete(r.convs, userID)

	return nil
}

// Conversations are stored serialized, matching the Redis-backed repo: a saved
// conversation is a snapshot, not a shared pointer.
func (r *memRepo) GetConversation(_ context.Context, userID string) (*conv.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, ok := r.convs[userID]
	if !ok {
		return conv.New(userID), nil
	}

	var c conv.Conversation
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return nil, err
	}

	return &c, nil
}

func (r *memRepo) SaveConversation(_ context.Context, c *conv.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.Marshal(c)
	if err != nil {
		return err
	}

	r.convs[c.ID] = string(data)

	return nil
}

func (r *memRepo) DeleteConversation(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.convs, userID)

	return nil
}

// MockProxyAPI is a testify mock of the proxy REST contract.
type MockProxyAPI struct {
	mock.Mock
}

func NewMockProxyAPI(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockProxyAPI {
	m := &MockProxyAPI{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockProxyAPI) GetProfile(ctx context.Context, sessionToken string) (*Profile, error) {
	args := m.Called(ctx, sessionToken)

	if p := args.Get(0); p != nil {
		return p.(*Profile), args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *MockProxyAPI) ListApps(ctx context.Context, apiKey string) ([]App, error) {
	args := m.Called(ctx, apiKey)

	if a := args.Get(0); a != nil {
		return a.([]App), args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *MockProxyAPI) GetApp(ctx context.Context, apiKey, appID string) (*App, error) {
	args := m.Called(ctx, apiKey, appID)

	if a := args.Get(0); a != nil {
		return a.(*App), args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *MockProxyAPI) CreateApp(ctx context.Context, apiKey string, draft AppDraft) (*App, error) {
	args := m.Called(ctx, apiKey, draft)

	if a := args.Get(0); a != nil {
		return a.(*App), args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *MockProxyAPI) UpdateApp(ctx context.Context, apiKey, id string, draft AppDraft) (*App, error) {
	args := m.Called(ctx, apiKey, id, draft)

	if a := args.Get(0); a != nil {
		return a.(*App), args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *MockProxyAPI) DeleteApp(ctx context.Context, apiKey, id string) error {
	args := m.Called(ctx, apiKey, id)

	return args.Error(0)
}

func (m *MockProxyAPI) Invoke(ctx context.Context, apiKey, appID string) (*InvokeResult, error) {
	args := m.Called(ctx, apiKey, appID)

	if r := args.Get(0); r != nil {
		return r.(*InvokeResult), args.Error(1)
	}

	return nil, args.Error(1)
}
