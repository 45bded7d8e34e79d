package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/rlproxy/rlp-tgbot/pkg/core/conv"
)

const (
	deleteConfirmQuestion  = "Are you sure you want to delete this API app?"
	deleteCancelledMessage = "No changes made. Your API apps are untouched."
	appDeletedMessage      = "🗑 API app deleted.\n\n%s"
	appAlreadyGoneMessage  = "ℹ️ That API app was already deleted.\n\n%s"
)

// DeleteApp starts the delete flow: app selection followed by an explicit
// confirmation before the destructive call is issued.
func (s *Service) DeleteApp(ctx context.Context, userID string) (*Response, error) {
	key, err := s.apiKey(ctx, userID)
	if err != nil {
		return nil, err
	}

	apps, err := s.proxy.ListApps(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to list apps: %w", err)
	}

	if len(apps) == 0 {
		return &Response{Message: noAppsMessage}, nil
	}

	c, err := s.repo.GetConversation(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	questions := conv.NewQuestions([]conv.Question{
		buildAppSelectionQuestion(apps, "Which API app do you want to delete?", fieldAppSelect),
		{
			Text:    deleteConfirmQuestion,
			Answers: []string{"Yes", "No"},
			Field:   fieldConfirm,
		},
	})

	if err := c.Start(StateDeleteApp, questions); err != nil {
		return nil, fmt.Errorf("failed to start questions: %w", err)
	}

	q, _ := c.Current()

	if err := s.repo.SaveConversation(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to save conversation: %w", err)
	}

	return &Response{Message: q.Text, Answers: q.Answers}, nil
}

// handleDeleteAppResult deletes the selected app once confirmed and then
// reloads the listing from the proxy, so the view reflects server truth
// rather than a local guess. A repeat delete of a gone entity is reported,
// not treated as a failure.
func (s *Service) handleDeleteAppResult(ctx context.Context, userID string, answers []conv.QuestionAnswer) (*Response, error) {
	if len(answers) != 2 {
		return nil, fmt.Errorf("expected selection and confirmation answers, got %d", len(answers))
	}

	if answers[1].Answer != "Yes" {
		return &Response{Message: deleteCancelledMessage}, nil
	}

	key, err := s.apiKey(ctx, userID)
	if err != nil {
		return nil, err
	}

	apps, err := s.proxy.ListApps(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to list apps: %w", err)
	}

	selected, err := resolveAppFromSelection(apps, answers[0].Answer)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve selected app: %w", err)
	}

	err = s.proxy.DeleteApp(ctx, key, selected.ID)

	switch {
	case errors.Is(err, ErrNotFound):
		return s.deleteFollowUp(ctx, userID, appAlreadyGoneMessage)
	case err != nil:
		return nil, fmt.Errorf("failed to delete app: %w", err)
	default:
		return s.deleteFollowUp(ctx, userID, appDeletedMessage)
	}
}

func (s *Service) deleteFollowUp(ctx context.Context, userID, format string) (*Response, error) {
	refreshed, err := s.Apps(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh app list: %w", err)
	}

	return &Response{Message: fmt.Sprintf(format, refreshed.Message)}, nil
}
