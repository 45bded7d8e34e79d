package middleware

import (
	"context"
	"errors"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rlproxy/rlp-tgbot/pkg/core"
)

const (
	notLoggedInMessage = "🔐 You are not logged in.\n\nUse /login to store the session token issued by the proxy service."
	forbiddenMessage   = "🚫 You are not allowed to perform this operation."
	notFoundMessage    = "❓ That API app could not be found. It may have been deleted from another session.\n\nUse /apps to see the current list."
	connectionMessage  = "⚠️ Could not connect to server.\n\nPlease try the same command again."
)

// WithErrorHandling translates failures from the core error taxonomy into
// user-visible messages, so no error is silently swallowed: everything is
// either answered or logged with a visible fallback.
func WithErrorHandling() Middleware {
	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, message *tgbotapi.Message) (tgbotapi.MessageConfig, error) {
			resp, err := next.Handle(ctx, message)
			if err == nil {
				return resp, nil
			}

			if message == nil {
				return tgbotapi.MessageConfig{}, err
			}

			var vErr *core.ValidationError

			switch {
			case errors.As(err, &vErr):
				return tgbotapi.NewMessage(message.Chat.ID, "❌ "+vErr.Message), nil
			case errors.Is(err, core.ErrUnauthenticated):
				return tgbotapi.NewMessage(message.Chat.ID, notLoggedInMessage), nil
			case errors.Is(err, core.ErrUnauthorized):
				return tgbotapi.NewMessage(message.Chat.ID, forbiddenMessage), nil
			case errors.Is(err, core.ErrNotFound):
				return tgbotapi.NewMessage(message.Chat.ID, notFoundMessage), nil
			case errors.Is(err, context.Canceled):
				return tgbotapi.MessageConfig{}, err
			default:
				slog.ErrorContext(ctx, "Request failed", slog.Any("error", err))

				return tgbotapi.NewMessage(message.Chat.ID, connectionMessage), nil
			}
		})
	}
}
