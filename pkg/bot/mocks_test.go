package bot

import (
	"context"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rlproxy/rlp-tgbot/pkg/core"
	"github.com/stretchr/testify/mock"
)

type MockAppService struct {
	mock.Mock
}

func NewMockAppService(t *testing.T) *MockAppService {
	m := &MockAppService{}
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockAppService) Login(ctx context.Context, userID, token string) (*core.Response, error) {
	args := m.Called(ctx, userID, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*core.Response), args.Error(1)
}

func (m *MockAppService) Logout(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *MockAppService) Profile(ctx context.Context, userID string) (*core.Response, error) {
	return responseResult(m.Called(ctx, userID))
}

func (m *MockAppService) Apps(ctx context.Context, userID string) (*core.Response, error) {
	return responseResult(m.Called(ctx, userID))
}

func (m *MockAppService) NewApp(ctx context.Context, userID string) (*core.Response, error) {
	return responseResult(m.Called(ctx, userID))
}

func (m *MockAppService) EditApp(ctx context.Context, userID string) (*core.Response, error) {
	return responseResult(m.Called(ctx, userID))
}

func (m *MockAppService) DeleteApp(ctx context.Context, userID string) (*core.Response, error) {
	return responseResult(m.Called(ctx, userID))
}

func (m *MockAppService) TestApp(ctx context.Context, userID string) (*core.Response, error) {
	return responseResult(m.Called(ctx, userID))
}

func (m *MockAppService) HandleMessage(ctx context.Context, userID, text string) (*core.Response, error) {
	args := m.Called(ctx, userID, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*core.Response), args.Error(1)
}

func (m *MockAppService) ResetConversation(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func responseResult(args mock.Arguments) (*core.Response, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*core.Response), args.Error(1)
}

type MockBotAPI struct {
	mock.Mock
}

func NewMockBotAPI(t *testing.T) *MockBotAPI {
	m := &MockBotAPI{}
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockBotAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	args := m.Called(c)

	return args.Get(0).(tgbotapi.Message), args.Error(1)
}

func (m *MockBotAPI) StopReceivingUpdates() {
	m.Called()
}

func (m *MockBotAPI) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	args := m.Called(config)

	return args.Get(0).(tgbotapi.UpdatesChannel)
}
