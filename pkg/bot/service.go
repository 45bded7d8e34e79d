package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rlproxy/rlp-tgbot/pkg/bot/middleware"
	"github.com/rlproxy/rlp-tgbot/pkg/core"
)

const (
	requestTimeout = 15 * time.Second
)

// BotAPI interface represents the Telegram bot API capabilities we use
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	StopReceivingUpdates()
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
}

// AppService is the console business layer the bot talks to.
type AppService interface {
	Login(ctx context.Context, userID, token string) (*core.Response, error)
	Logout(ctx context.Context, userID string) error
	Profile(ctx context.Context, userID string) (*core.Response, error)
	Apps(ctx context.Context, userID string) (*core.Response, error)
	NewApp(ctx context.Context, userID string) (*core.Response, error)
	EditApp(ctx context.Context, userID string) (*core.Response, error)
	DeleteApp(ctx context.Context, userID string) (*core.Response, error)
	TestApp(ctx context.Context, userID string) (*core.Response, error)
	HandleMessage(ctx context.Context, userID, text string) (*core.Response, error)
	ResetConversation(ctx context.Context, userID string) error
}

// Config holds the configuration for the Telegram bot
type Config struct {
	TelegramToken string `mapstructure:"telegram_token"`
}

type Service struct {
	bot     BotAPI
	appSvc  AppService
	handler middleware.Handler
}

// New creates a new bot service wired to the console business layer.
func New(cfg *Config, appSvc AppService) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("telegram token cannot be empty")
	}

	bot, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	s := &Service{
		bot:    bot,
		appSvc: appSvc,
	}

	s.handler = s.setupHandler()

	return s, nil
}

// setupHandler wraps the command handler with the middleware stack: the
// request reducer keeps only the latest request per chat, and error handling
// translates the core error taxonomy into user-visible messages.
func (s *Service) setupHandler() middleware.Handler {
	return middleware.Use(
		s,
		middleware.WithRequestReducer(),
		middleware.WithErrorHandling(),
	)
}

func (s *Service) processUpdate(ctx context.Context, update *tgbotapi.Update) {
	if update.Message == nil {
		return
	}

	// nolint:staticcheck // don't want to have dependecy on cmd package here for now
	ctx = context.WithValue(ctx, "chat_id", fmt.Sprintf("%d", update.Message.Chat.ID))

	msgConfig, err := s.handler.Handle(ctx, update.Message)

	if errors.Is(err, context.Canceled) {
		slog.InfoContext(ctx, "Request cancelled",
			slog.Int64("chat_id", update.Message.Chat.ID),
		)

		return
	} else if err != nil {
		slog.ErrorContext(ctx, "Unexpected error",
			slog.Any("error", err),
		)

		return
	}

	// Skip sending if message is empty
	if msgConfig.Text == "" {
		return
	}

	if _, err := s.bot.Send(msgConfig); err != nil {
		slog.ErrorContext(ctx, "Failed to send message",
			slog.Any("error", err),
		)
	}
}

func (s *Service) Run(ctx context.Context) error {
	slog.InfoContext(ctx, "Starting Telegram bot")

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 30

	updates := s.bot.GetUpdatesChan(updateConfig)

	var wg sync.WaitGroup

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return nil
			}

			wg.Add(1)

			go func() {
				defer wg.Done()

				reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)

				// nolint:staticcheck // don't want to have dependecy on cmd package here for now
				reqCtx = context.WithValue(reqCtx, "req_id", uuid.New().String())

				defer cancel()

				s.processUpdate(reqCtx, &update)
			}()

		case <-ctx.Done():
			slog.Info("Starting graceful shutdown")
			s.bot.StopReceivingUpdates()

			// Wait for ongoing message processors with a timeout
			done := make(chan struct{})
			go func() {
				wg.Wait()
				close(done)
			}()

			select {
			case <-done:
				slog.InfoContext(ctx, "Graceful shutdown completed")
			case <-time.After(requestTimeout):
				slog.Warn("Graceful shutdown timed out")
			}

			return nil
		}
	}
}
