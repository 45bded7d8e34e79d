package bot

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rlproxy/rlp-tgbot/pkg/core"
)

const (
	welcomeMessage = `👋 Welcome to the Rate Limiting Proxy Console!

I help you manage the API apps registered on your rate-limiting proxy account: create them, edit their policies, delete them and smoke-test them.

Use /login to store your session token, then /help to see available commands.`
	helpMessage = `Available Commands:

/start - Show welcome message
/help - Display this help message
/login - Store the session token issued by the proxy service
/logout - Discard your session token and derived API key
/profile - Show your account profile and API key
/apps - List your API apps
/new_app - Register a new API app
/edit_app - Change an API app's policy
/delete_app - Delete an API app
/test_app - Send a test request through the proxy
/cancel - Abandon the current form

About:
API apps bind a third-party base URL to a rate-limiting policy enforced by the proxy. The console only manages configurations; enforcement happens on the proxy itself.`
	unknownCommandMessage = "❓ Unknown command.\n\nUse /help to see the list of available commands."
	loggedOutMessage      = "👋 You have been logged out.\n\nYour session token and API key were removed. Use /login to start a new session."
	cancelledMessage      = "Form abandoned. You can start over with /new_app, /edit_app, /delete_app or /test_app."
)

// Handle processes incoming telegram messages, routing commands to the console
// operations and plain text into the active form conversation.
func (s *Service) Handle(ctx context.Context, msg *tgbotapi.Message) (tgbotapi.MessageConfig, error) {
	slog.DebugContext(ctx, "Handling message", slog.Any("message", msg))

	if msg.Command() != "" {
		resp, err := s.handleCommand(ctx, msg)
		if err != nil {
			return tgbotapi.MessageConfig{}, fmt.Errorf("failed to handle command: %w", err)
		}

		return resp, nil
	}

	userID := fmt.Sprintf("%d", msg.From.ID)

	resp, err := s.appSvc.HandleMessage(ctx, userID, msg.Text)
	if err != nil {
		return tgbotapi.MessageConfig{}, fmt.Errorf("failed to handle text message: %w", err)
	}

	return newMessage(msg.Chat.ID, resp), nil
}

// handleCommand handles Telegram command messages and generates an appropriate response based on the command received.
func (s *Service) handleCommand(ctx context.Context, msg *tgbotapi.Message) (tgbotapi.MessageConfig, error) {
	userID := fmt.Sprintf("%d", msg.From.ID)

	switch msg.Command() {
	case "start":
		if err := s.appSvc.ResetConversation(ctx, userID); err != nil {
			slog.ErrorContext(ctx, "Failed to reset conversation on start", slog.Any("error", err))
		}

		return newTextMessage(msg.Chat.ID, welcomeMessage), nil
	case "help":
		return newTextMessage(msg.Chat.ID, helpMessage), nil
	case "login":
		resp, err := s.appSvc.Login(ctx, userID, msg.CommandArguments())
		if err != nil {
			return tgbotapi.MessageConfig{}, fmt.Errorf("failed to log in: %w", err)
		}

		return newMessage(msg.Chat.ID, resp), nil
	case "logout":
		if err := s.appSvc.Logout(ctx, userID); err != nil {
			return tgbotapi.MessageConfig{}, fmt.Errorf("failed to log out: %w", err)
		}

		return newTextMessage(msg.Chat.ID, loggedOutMessage), nil
	case "profile":
		return s.respond(ctx, msg, "failed to fetch profile", s.appSvc.Profile)
	case "apps":
		return s.respond(ctx, msg, "failed to list apps", s.appSvc.Apps)
	case "new_app":
		return s.respond(ctx, msg, "failed to start app creation", s.appSvc.NewApp)
	case "edit_app":
		return s.respond(ctx, msg, "failed to start app editing", s.appSvc.EditApp)
	case "delete_app":
		return s.respond(ctx, msg, "failed to start app deletion", s.appSvc.DeleteApp)
	case "test_app":
		return s.respond(ctx, msg, "failed to start app test", s.appSvc.TestApp)
	case "cancel":
		if err := s.appSvc.ResetConversation(ctx, userID); err != nil {
			return tgbotapi.MessageConfig{}, fmt.Errorf("failed to reset conversation: %w", err)
		}

		return newTextMessage(msg.Chat.ID, cancelledMessage), nil
	default:
		return newTextMessage(msg.Chat.ID, unknownCommandMessage), nil
	}
}

// respond invokes a console operation and converts its response into a message.
func (s *Service) respond(ctx context.Context, msg *tgbotapi.Message, failMsg string, op func(context.Context, string) (*core.Response, error)) (tgbotapi.MessageConfig, error) {
	userID := fmt.Sprintf("%d", msg.From.ID)

	resp, err := op(ctx, userID)
	if err != nil {
		return tgbotapi.MessageConfig{}, fmt.Errorf("%s: %w", failMsg, err)
	}

	return newMessage(msg.Chat.ID, resp), nil
}

// newMessage builds an outgoing message, attaching the suggested answers as a
// one-time reply keyboard when the response carries any.
func newMessage(chatID int64, resp *core.Response) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, resp.Message)

	if len(resp.Answers) == 0 {
		msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(false)

		return msg
	}

	rows := make([][]tgbotapi.KeyboardButton, len(resp.Answers))
	for i, a := range resp.Answers {
		rows[i] = tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(a))
	}

	keyboard := tgbotapi.NewReplyKeyboard(rows...)
	keyboard.OneTimeKeyboard = true
	msg.ReplyMarkup = keyboard

	return msg
}

func newTextMessage(chatID int64, text string) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(false)

	return msg
}
