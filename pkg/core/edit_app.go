package core

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rlproxy/rlp-tgbot/pkg/core/conv"
)

const (
	ctxKeyAppRecordID = "app_record_id"

	appUpdatedMessage = "✅ API app updated\n\n%s"
)

// EditApp starts the edit flow: the user first selects which app to change,
// then walks an update form seeded with the app's current values.
func (s *Service) EditApp(ctx context.Context, userID string) (*Response, error) {
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

	q := buildAppSelectionQuestion(apps, "Which API app do you want to edit?", fieldAppSelect)

	return s.startSelection(ctx, userID, StateSelectAppToEdit, q)
}

// startSelection begins a single-question app selection conversation.
func (s *Service) startSelection(ctx context.Context, userID string, state conv.State, q conv.Question) (*Response, error) {
	c, err := s.repo.GetConversation(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	if err := c.Start(state, conv.NewQuestions([]conv.Question{q})); err != nil {
		return nil, fmt.Errorf("failed to start questions: %w", err)
	}

	current, _ := c.Current()

	if err := s.repo.SaveConversation(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to save conversation: %w", err)
	}

	return &Response{Message: current.Text, Answers: current.Answers}, nil
}

// handleSelectAppToEditResult loads the chosen entity and seeds the edit form
// with its current values. Legacy strategy casing is normalized on load by the
// proxy client, so the form always shows canonical values.
func (s *Service) handleSelectAppToEditResult(ctx context.Context, userID string, answers []conv.QuestionAnswer) (*Response, error) {
	if len(answers) != 1 {
		return nil, fmt.Errorf("expected exactly one answer for app selection question, got %d", len(answers))
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

	app, err := s.proxy.GetApp(ctx, key, selected.AppID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch app details: %w", err)
	}

	draft := AppDraft{
		Name:              app.Name,
		BaseURL:           app.BaseURL,
		RequestsPerWindow: app.RequestsPerWindow,
		WindowInSeconds:   app.WindowInSeconds,
		Strategy:          app.Strategy,
		Timeout:           app.Timeout,
	}

	c, err := s.repo.GetConversation(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	if err := c.Start(StateEditApp, conv.NewQuestions(editAppQuestions(draft))); err != nil {
		return nil, fmt.Errorf("failed to start questions: %w", err)
	}

	c.Context = map[string]string{ctxKeyAppRecordID: app.ID}

	q, _ := c.Current()

	if err := s.repo.SaveConversation(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to save conversation: %w", err)
	}

	msg := fmt.Sprintf("Editing %s. Send %s at any question to keep the current value.\n\n%s", app.Name, conv.KeepAnswer, q.Text)

	return &Response{Message: msg, Answers: q.Answers}, nil
}

func editAppQuestions(draft AppDraft) []conv.Question {
	return []conv.Question{
		{
			Text:    fmt.Sprintf("Application name (current: %s)", draft.Name),
			Field:   fieldName,
			Default: draft.Name,
		},
		{
			Text:    fmt.Sprintf("Base URL (current: %s)", draft.BaseURL),
			Field:   fieldBaseURL,
			Default: draft.BaseURL,
		},
		{
			Text:    fmt.Sprintf("Requests per window (current: %d)", draft.RequestsPerWindow),
			Field:   fieldRequests,
			Default: strconv.Itoa(draft.RequestsPerWindow),
		},
		{
			Text:    fmt.Sprintf("Window in seconds (current: %d)", draft.WindowInSeconds),
			Field:   fieldWindow,
			Default: strconv.Itoa(draft.WindowInSeconds),
		},
		{
			Text:    fmt.Sprintf("Rate limiting strategy (current: %s)", draft.Strategy),
			Answers: []string{string(StrategyWindow), string(StrategyTokenBucket)},
			Field:   fieldStrategy,
			Default: string(draft.Strategy),
		},
		{
			Text:    fmt.Sprintf("Timeout in milliseconds, 0 for none (current: %d)", draft.Timeout),
			Field:   fieldTimeout,
			Default: strconv.Itoa(draft.Timeout),
		},
	}
}

// handleEditAppResult submits the completed edit form. The patch carries policy
// fields only; the record ID from the conversation context addresses the entity
// and is never part of the payload.
func (s *Service) handleEditAppResult(ctx context.Context, userID string, cctx map[string]string, answers []conv.QuestionAnswer) (*Response, error) {
	id := cctx[ctxKeyAppRecordID]
	if id == "" {
		return nil, fmt.Errorf("missing app record ID in edit conversation context")
	}

	draft, err := draftFromAnswers(answers)
	if err != nil {
		return nil, fmt.Errorf("failed to build app draft: %w", err)
	}

	if err := draft.Validate(); err != nil {
		return nil, fmt.Errorf("invalid app draft: %w", err)
	}

	key, err := s.apiKey(ctx, userID)
	if err != nil {
		return nil, err
	}

	app, err := s.proxy.UpdateApp(ctx, key, id, draft)
	if err != nil {
		return s.reseedForm(ctx, userID, StateEditApp, map[string]string{ctxKeyAppRecordID: id}, draft,
			fmt.Sprintf("❌ Failed to update API app: %s", remoteMessage(err)))
	}

	return &Response{Message: fmt.Sprintf(appUpdatedMessage, formatApp(app))}, nil
}
