package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rlproxy/rlp-tgbot/pkg/core/conv"
)

const (
	noConversationMessage = "I'm not expecting any input right now.\n\nUse /help to see what I can do."
	invalidAnswerMessage  = "❌ Please pick one of the suggested answers."
)

// HandleMessage feeds a plain text message into the user's active form
// conversation. Invalid input re-asks the current question without losing
// any previously entered values; a completed form is dispatched to the
// handler for its state.
func (s *Service) HandleMessage(ctx context.Context, userID, text string) (*Response, error) {
	c, err := s.repo.GetConversation(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	q, err := c.Current()
	if err != nil {
		return &Response{Message: noConversationMessage}, nil
	}

	text = strings.TrimSpace(text)

	if vErr := validateAnswer(q, text); vErr != nil {
		return &Response{
			Message: fmt.Sprintf("❌ %s\n\n%s", vErr.Message, q.Text),
			Answers: q.Answers,
		}, nil
	}

	if err := c.Submit(text); err != nil {
		if errors.Is(err, conv.ErrInvalidAnswer) {
			return &Response{
				Message: fmt.Sprintf("%s\n\n%s", invalidAnswerMessage, q.Text),
				Answers: q.Answers,
			}, nil
		}

		return nil, fmt.Errorf("failed to submit message: %w", err)
	}

	cctx := c.Context

	state, results, err := c.Results()

	switch {
	case errors.Is(err, conv.ErrIsNotComplete):
		next, err := c.Current()
		if err != nil {
			return nil, fmt.Errorf("failed to get current question: %w", err)
		}

		if err := s.repo.SaveConversation(ctx, c); err != nil {
			return nil, fmt.Errorf("failed to save conversation: %w", err)
		}

		return &Response{Message: next.Text, Answers: next.Answers}, nil
	case err != nil:
		return nil, fmt.Errorf("failed to get conversation results: %w", err)
	}

	if err := s.repo.SaveConversation(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to save conversation: %w", err)
	}

	return s.dispatchResults(ctx, userID, state, cctx, results)
}

func (s *Service) dispatchResults(ctx context.Context, userID string, state conv.State, cctx map[string]string, results []conv.QuestionAnswer) (*Response, error) {
	switch state {
	case StateLogin:
		return s.handleLoginResult(ctx, userID, results)
	case StateNewApp:
		return s.handleNewAppResult(ctx, userID, results)
	case StateSelectAppToEdit:
		return s.handleSelectAppToEditResult(ctx, userID, results)
	case StateEditApp:
		return s.handleEditAppResult(ctx, userID, cctx, results)
	case StateDeleteApp:
		return s.handleDeleteAppResult(ctx, userID, results)
	case StateTestApp:
		return s.handleTestAppResult(ctx, userID, results)
	default:
		return nil, fmt.Errorf("unknown conversation state: %s", state)
	}
}

// ResetConversation abandons any in-progress form for the user.
func (s *Service) ResetConversation(ctx context.Context, userID string) error {
	if err := s.repo.DeleteConversation(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}

	return nil
}

// validateAnswer checks a raw answer against the current question's field
// before it is accepted, so a bad value never advances the form and never
// reaches the network. The remote side stays authoritative for anything
// this does not catch.
func validateAnswer(q *conv.Question, answer string) *ValidationError {
	if answer == conv.KeepAnswer && q.Default != "" {
		answer = q.Default
	}

	var err error

	switch q.Field {
	case fieldName:
		err = validateName(answer)
	case fieldBaseURL:
		err = validateBaseURL(answer)
	case fieldRequests, fieldWindow:
		_, err = validatePositiveInt(answer)
	case fieldTimeout:
		_, err = validateNonNegativeInt(answer)
	case fieldSessionToken:
		if strings.TrimSpace(answer) == "" {
			err = &ValidationError{Message: "session token must not be empty"}
		}
	}

	if err == nil {
		return nil
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return vErr
	}

	return &ValidationError{Message: err.Error()}
}
